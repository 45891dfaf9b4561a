package types

// Severity is a coarse-grained risk level for an indicator.
type Severity string

const (
	SevMed  Severity = "MEDIUM"
	SevHigh Severity = "HIGH"
)

// SourceUnit is one scanned source text with a display label: a file path
// relative to the scan root, an archive entry, or the pasted-snippet placeholder.
type SourceUnit struct {
	Label string
	Text  string
}

// SyntaxFinding is a normalized syntax diagnostic for one unit.
type SyntaxFinding struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Indicator is an informational occurrence of a security-sensitive construct
// at a line. What and Next may hold several descriptions joined during merge.
type Indicator struct {
	Severity Severity `json:"severity"`
	Name     string   `json:"indicator"`
	Line     int      `json:"line"`
	Excerpt  string   `json:"excerpt"`
	What     string   `json:"what"`
	Next     string   `json:"next"`
	File     string   `json:"file,omitempty"` // empty for snippet scans
}

// ScanResult aggregates syntax findings and indicators across all units of a scan.
type ScanResult struct {
	Message      string          `json:"message"`
	FilesChecked int             `json:"filesChecked"`
	Errors       []SyntaxFinding `json:"errors"`
	Indicators   []Indicator     `json:"indicators"`
}

// Normalize replaces nil slices with empty ones so the JSON shape never
// carries null for errors or indicators.
func (r ScanResult) Normalize() ScanResult {
	if r.Errors == nil {
		r.Errors = []SyntaxFinding{}
	}
	if r.Indicators == nil {
		r.Indicators = []Indicator{}
	}
	return r
}

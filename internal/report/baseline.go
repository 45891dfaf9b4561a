package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/phpguard/phpguard/internal/types"
)

// DefaultBaselineFile is looked up in the scan root.
const DefaultBaselineFile = "phpguard.baseline.json"

// Baseline is a set of accepted indicators. Syntax errors are never
// baselined.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	f, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(f, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

func SaveBaseline(path string, indicators []types.Indicator) error {
	b := Baseline{Items: map[string]bool{}}
	for _, ind := range indicators {
		b.Add(ind)
	}
	return b.Save(path)
}

// Save writes the baseline as indented JSON.
func (b Baseline) Save(path string) error {
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Add records ind as accepted.
func (b *Baseline) Add(ind types.Indicator) {
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	b.Items[BaselineKey(ind)] = true
}

// Contains reports whether ind is accepted.
func (b Baseline) Contains(ind types.Indicator) bool {
	return b.Items[BaselineKey(ind)]
}

// FilterNewIndicators drops indicators recorded in base.
func FilterNewIndicators(indicators []types.Indicator, base Baseline) []types.Indicator {
	var out []types.Indicator
	for _, ind := range indicators {
		if !base.Contains(ind) {
			out = append(out, ind)
		}
	}
	return out
}

// BaselineKey identifies an indicator across scans: file, name, line and
// excerpt.
func BaselineKey(ind types.Indicator) string {
	return ind.File + "|" + ind.Name + "|" + strconv.Itoa(ind.Line) + "|" + ind.Excerpt
}

// ShouldFail reports whether res should produce a failing exit status.
// failOn is "high", "medium" or "none"; anything else means "high". Syntax
// errors fail every level except "none".
func ShouldFail(res types.ScanResult, failOn string) bool {
	if failOn == "none" {
		return false
	}
	if len(res.Errors) > 0 {
		return true
	}
	level := map[types.Severity]int{types.SevMed: 1, types.SevHigh: 2}
	th := 2
	if failOn == "medium" {
		th = 1
	}
	for _, ind := range res.Indicators {
		if level[ind.Severity] >= th {
			return true
		}
	}
	return false
}

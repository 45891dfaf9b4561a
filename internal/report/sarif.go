package report

import (
	"io"
	"regexp"
	"strconv"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/phpguard/phpguard/internal/detectors"
	"github.com/phpguard/phpguard/internal/types"
)

const (
	toolName = "phpguard"
	toolURI  = "https://github.com/phpguard/phpguard"

	// SyntaxRuleID identifies syntax errors in SARIF output.
	SyntaxRuleID = "php-syntax"
)

var onLine = regexp.MustCompile(`on line ([0-9]+)`)

// ErrorLine extracts N from "... on line N" in a normalized syntax error
// message, or returns 0.
func ErrorLine(msg string) int {
	m := onLine.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

// SARIFOptions carries run metadata for WriteSARIF.
type SARIFOptions struct {
	Version string
	// Properties are attached to the run, e.g. archive truncation stats.
	Properties map[string]any
}

// WriteSARIF writes res as a SARIF 2.1.0 log with one rule per indicator plus
// a syntax rule.
func WriteSARIF(w io.Writer, res types.ScanResult, opts SARIFOptions) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	if opts.Version != "" {
		v := opts.Version
		run.Tool.Driver.Version = &v
	}

	run.AddRule(SyntaxRuleID).
		WithName("PHPSyntaxError").
		WithDescription("PHP source does not parse.").
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "error"})
	for _, r := range detectors.Rules() {
		run.AddRule(r.ID).
			WithDescription(r.What).
			WithTextHelp(r.Next).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sevToLevel(r.Severity)}).
			WithProperties(sarif.Properties{"severity": string(r.Severity)})
	}

	for _, e := range res.Errors {
		line := ErrorLine(e.Message)
		if line == 0 {
			line = 1
		}
		run.AddResult(sarif.NewRuleResult(SyntaxRuleID).
			WithLevel("error").
			WithMessage(sarif.NewTextMessage(e.Message)).
			WithLocations([]*sarif.Location{newLocation(e.File, line)}))
	}
	for _, ind := range res.Indicators {
		run.AddResult(sarif.NewRuleResult(ind.Name).
			WithLevel(sevToLevel(ind.Severity)).
			WithMessage(sarif.NewTextMessage(ind.What + ". " + ind.Next)).
			WithLocations([]*sarif.Location{newLocation(ind.File, ind.Line)}))
	}

	if len(opts.Properties) > 0 {
		run.Properties = sarif.Properties(opts.Properties)
	}
	report.AddRun(run)
	return report.PrettyWrite(w)
}

func newLocation(file string, line int) *sarif.Location {
	if file == "" {
		file = "snippet.php"
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(file)).
			WithRegion(sarif.NewRegion().WithStartLine(line)),
	)
}

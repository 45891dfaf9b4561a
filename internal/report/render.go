package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/phpguard/phpguard/internal/types"
)

type PrintOptions struct {
	NoColor  bool
	Duration time.Duration
	Cached   int
	// Baselined is the number of indicators hidden by a baseline.
	Baselined int
}

var (
	highStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	medStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func paint(s lipgloss.Style, text string, opts PrintOptions) string {
	if opts.NoColor {
		return text
	}
	return s.Render(text)
}

func colorSeverity(s types.Severity, opts PrintOptions) string {
	switch s {
	case types.SevHigh:
		return paint(highStyle, string(s), opts)
	case types.SevMed:
		return paint(medStyle, string(s), opts)
	default:
		return string(s)
	}
}

// PrintTable writes the summary, a syntax error table and an indicator table.
func PrintTable(w io.Writer, res types.ScanResult, opts PrintOptions) error {
	printHeadline(w, res, opts)

	if len(res.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, paint(titleStyle, "Syntax errors", opts))
		table := tablewriter.NewWriter(w)
		table.Header("FILE", "MESSAGE")
		for _, e := range res.Errors {
			if err := table.Append(e.File, e.Message); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if len(res.Indicators) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, paint(titleStyle, "Security indicators (informational)", opts))
		table := tablewriter.NewWriter(w)
		table.Header("SEVERITY", "INDICATOR", "LOCATION", "EXCERPT", "NEXT STEP")
		for _, ind := range res.Indicators {
			row := []string{string(ind.Severity), ind.Name, location(ind), truncate(ind.Excerpt, 60), ind.Next}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printFooter(w, res, opts)
	return nil
}

// PrintText writes a plain listing with highlighted excerpts.
func PrintText(w io.Writer, res types.ScanResult, opts PrintOptions) {
	printHeadline(w, res, opts)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "%s %s: %s\n", paint(errStyle, "ERROR", opts), e.File, e.Message)
	}
	if len(res.Indicators) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Indicators: %d\n", len(res.Indicators))
	}
	for _, ind := range res.Indicators {
		fmt.Fprintf(w, "%-6s %s %s\n", colorSeverity(ind.Severity, opts), ind.Name, location(ind))
		excerpt := ind.Excerpt
		if !opts.NoColor {
			excerpt = Highlight(excerpt)
		}
		fmt.Fprintf(w, "    %s\n", excerpt)
		fmt.Fprintf(w, "    %s %s\n", paint(dimStyle, "what:", opts), ind.What)
		fmt.Fprintf(w, "    %s %s\n", paint(dimStyle, "next:", opts), ind.Next)
	}
	printFooter(w, res, opts)
}

func printHeadline(w io.Writer, res types.ScanResult, opts PrintOptions) {
	style := okStyle
	if len(res.Errors) > 0 {
		style = errStyle
	}
	fmt.Fprintln(w, paint(style, res.Message, opts))
}

func printFooter(w io.Writer, res types.ScanResult, opts PrintOptions) {
	high, med := 0, 0
	for _, ind := range res.Indicators {
		switch ind.Severity {
		case types.SevHigh:
			high++
		case types.SevMed:
			med++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files checked: %d\n", res.FilesChecked)
	fmt.Fprintf(w, "Syntax errors: %d\n", len(res.Errors))
	fmt.Fprintf(w, "Indicators: %d (high: %d, medium: %d)\n", len(res.Indicators), high, med)
	if opts.Baselined > 0 {
		fmt.Fprintf(w, "Baselined indicators hidden: %d\n", opts.Baselined)
	}
	if opts.Cached > 0 {
		fmt.Fprintf(w, "Cached files: %d\n", opts.Cached)
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
}

func location(ind types.Indicator) string {
	if ind.File == "" {
		return "line " + strconv.Itoa(ind.Line)
	}
	return ind.File + ":" + strconv.Itoa(ind.Line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

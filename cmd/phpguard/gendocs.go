package phpguard

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/detectors"
	"github.com/phpguard/phpguard/internal/types"
)

const (
	docsBegin = "<!-- BEGIN:INDICATORS -->"
	docsEnd   = "<!-- END:INDICATORS -->"
)

// gendocs rewrites the indicator section of README.md between docsBegin and
// docsEnd.
func init() {
	var path string
	cmd := &cobra.Command{
		Use:    "gendocs",
		Short:  "Regenerate the README indicator list",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			nb, err := replaceDocsSection(b, indicatorDocs())
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := os.WriteFile(path, nb, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "README.md", "markdown file to update")
	rootCmd.AddCommand(cmd)
}

func indicatorDocs() string {
	var out strings.Builder
	out.WriteString("\nIndicators by severity (run `phpguard rules` for the next-step hints):\n\n")
	for _, sev := range []types.Severity{types.SevHigh, types.SevMed} {
		var rows []string
		for _, r := range detectors.Rules() {
			if r.Severity == sev {
				rows = append(rows, fmt.Sprintf("  - `%s`: %s", r.ID, r.What))
			}
		}
		if len(rows) == 0 {
			continue
		}
		out.WriteString("- " + string(sev) + ":\n")
		out.WriteString(strings.Join(rows, "\n") + "\n")
	}
	return out.String()
}

func replaceDocsSection(b []byte, section string) ([]byte, error) {
	i := bytes.Index(b, []byte(docsBegin))
	j := bytes.Index(b, []byte(docsEnd))
	if i < 0 || j < 0 || j <= i {
		return nil, fmt.Errorf("markers not found")
	}
	var nb bytes.Buffer
	nb.Write(b[:i+len(docsBegin)])
	nb.WriteString("\n")
	nb.WriteString(section)
	nb.Write(b[j:])
	return nb.Bytes(), nil
}

package phpguard

import (
	"encoding/json"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/detectors"
)

type ruleView struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	What     string `json:"what"`
	Next     string `json:"next"`
}

func init() {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"indicators"},
		Short:   "List the security indicators phpguard reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var views []ruleView
			for _, r := range detectors.Rules() {
				views = append(views, ruleView{ID: r.ID, Severity: string(r.Severity), What: r.What, Next: r.Next})
			}
			w := cmd.OutOrStdout()
			if flagJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			table := tablewriter.NewWriter(w)
			table.Header("ID", "Severity", "What", "Next step")
			for _, v := range views {
				if err := table.Append(v.ID, v.Severity, v.What, v.Next); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	rootCmd.AddCommand(cmd)
}

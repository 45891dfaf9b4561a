package phpguard

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/audit"
)

func init() {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded scan runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			records, err := audit.NewAuditLog(abs).LoadHistory()
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			w := cmd.OutOrStdout()
			if flagJSON {
				if records == nil {
					records = []audit.ScanRecord{}
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(w, "No scans recorded yet.")
				return nil
			}
			table := tablewriter.NewWriter(w)
			table.Header("Time", "Kind", "Files", "Errors", "Indicators", "New", "Duration", "Scan ID")
			for _, r := range records {
				err := table.Append(
					r.Timestamp.Local().Format("2006-01-02 15:04"),
					r.Kind,
					strconv.Itoa(r.FilesChecked),
					strconv.Itoa(r.SyntaxErrors),
					strconv.Itoa(r.Indicators),
					strconv.Itoa(r.NewIndicators),
					r.Duration,
					r.ScanID,
				)
				if err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", ".", "directory whose audit log is read")
	cmd.Flags().IntVar(&limit, "limit", 20, "show at most this many runs (0 = all)")
	rootCmd.AddCommand(cmd)
}

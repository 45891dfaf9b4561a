package phpguard

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage indicator baselines",
	}

	var path string
	update := &cobra.Command{
		Use:   "update",
		Short: "Accept the current indicators so later scans report only new ones",
		Long:  "Scans the plugin directory and writes " + report.DefaultBaselineFile + " in it. Syntax errors are never baselined.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			s := loadSettings(cmd, abs)
			ctx, cancel := s.context(cmd.Context())
			defer cancel()
			orc, err := s.oracle(ctx)
			if err != nil {
				return scanError(err)
			}
			res, err := engine.ScanDir(ctx, orc, s.engineConfig(cmd, abs, "", "", 0))
			if err != nil {
				return scanError(err)
			}
			out := filepath.Join(abs, report.DefaultBaselineFile)
			if err := report.SaveBaseline(out, res.Indicators); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %d indicator(s) in %s\n", len(res.Indicators), out)
			return nil
		},
	}
	update.Flags().StringVarP(&path, "path", "p", ".", "plugin directory")

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
}

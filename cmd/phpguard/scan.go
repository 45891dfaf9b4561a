package phpguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/cache"
	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/report"
	"github.com/phpguard/phpguard/internal/tui"
	"github.com/phpguard/phpguard/internal/types"
)

var (
	flagPath     string
	flagStaged   bool
	flagBase     string
	flagInclude  string
	flagExclude  string
	flagMaxBytes int64
	flagBaseline string
	flagTUI      bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check a plugin directory",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "plugin directory to scan")
	cmd.Flags().BoolVar(&flagStaged, "staged", false, "check the staged content of .php files")
	cmd.Flags().StringVar(&flagBase, "base", "", "check .php files changed against a base ref (e.g. main)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")
	cmd.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselineFile, "baseline file, relative to the scan path")
	cmd.Flags().BoolVar(&flagTUI, "tui", false, "browse the results interactively")
}

func runScan(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	if st, err := os.Stat(abs); err != nil || !st.IsDir() {
		return fmt.Errorf("not a directory: %s", flagPath)
	}
	s := loadSettings(cmd, abs)
	ctx, cancel := s.context(cmd.Context())
	defer cancel()

	orc, err := s.oracle(ctx)
	if err != nil {
		return scanError(err)
	}
	cfg := s.engineConfig(cmd, abs, flagInclude, flagExclude, flagMaxBytes)
	cfg.ScanStaged = flagStaged
	cfg.BaseBranch = flagBase

	showProgress := !machineOutput() && !flagStaged && flagBase == "" && isTerminal(os.Stderr)
	var total int
	if showProgress {
		total, _ = engine.CountTargets(cfg)
		if total > 0 {
			cfg.Progress = progressBar(total)
		}
	}
	if !machineOutput() {
		fmt.Fprintf(os.Stderr, "Scanning %s with %s...\n", abs, orc.Name())
	}

	res, err := engine.ScanDir(ctx, orc, cfg)
	if showProgress && total > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return scanError(err)
	}

	all := res.Indicators
	baselinePath := flagBaseline
	if !filepath.IsAbs(baselinePath) {
		baselinePath = filepath.Join(abs, baselinePath)
	}
	base, err := report.LoadBaseline(baselinePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	res.Indicators = report.FilterNewIndicators(all, base)
	out := output{res: res, baselined: len(all) - len(res.Indicators)}

	interactive := flagTUI && !machineOutput() && isTerminal(cmd.OutOrStdout())
	if !interactive {
		if err := s.emit(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}

	if err := cache.SaveResults(abs, res.ScanResult); err != nil {
		s.log.Debug("last results not saved", "error", err)
	}
	if !flagNoAudit {
		full := res
		full.Indicators = all
		recordAudit(s, abs, "plugin", abs, orc.Name(), full, res.Indicators)
	}

	if interactive {
		rcfg := cfg
		rcfg.Progress = nil
		full := res.ScanResult
		full.Indicators = all
		err := tui.Run(full, tui.Options{
			BaselinePath: baselinePath,
			Baseline:     base,
			Rescan: func() (types.ScanResult, error) {
				rctx, rcancel := s.context(cmd.Context())
				defer rcancel()
				r, err := engine.ScanDir(rctx, orc, rcfg)
				if err != nil {
					return types.ScanResult{}, scanError(err)
				}
				return r.ScanResult, nil
			},
		})
		if err != nil {
			return err
		}
	}

	if report.ShouldFail(res.ScanResult, s.failOn) {
		exit(1)
	}
	return nil
}

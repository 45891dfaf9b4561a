package phpguard

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/artifacts"
	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/report"
)

var (
	flagArchiveInclude  string
	flagArchiveExclude  string
	flagMaxArchiveBytes int64
	flagMaxEntries      int
	flagArchiveBudget   time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "archive FILE",
		Short: "Check the .php entries of a zip, tar or tar.gz archive without extracting it",
		Args:  cobra.ExactArgs(1),
		RunE:  runArchive,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagArchiveInclude, "include", "", "comma-separated include globs for entry names")
	cmd.Flags().StringVar(&flagArchiveExclude, "exclude", "", "comma-separated exclude globs for entry names")
	cmd.Flags().Int64Var(&flagMaxArchiveBytes, "max-archive-bytes", 0, "max decompressed bytes before aborting (0 = default)")
	cmd.Flags().IntVar(&flagMaxEntries, "max-entries", 0, "max entries before aborting (0 = default)")
	cmd.Flags().DurationVar(&flagArchiveBudget, "time-budget", 0, "time budget for reading the archive (0 = default)")
}

func runArchive(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !artifacts.IsArchive(path) {
		return fmt.Errorf("%s: %w", path, artifacts.ErrUnsupported)
	}
	cwd, _ := os.Getwd()
	s := loadSettings(cmd, cwd)
	ctx, cancel := s.context(cmd.Context())
	defer cancel()

	orc, err := s.oracle(ctx)
	if err != nil {
		return scanError(err)
	}
	cfg := s.engineConfig(cmd, cwd, flagArchiveInclude, flagArchiveExclude, 0)
	if flagMaxArchiveBytes > 0 {
		cfg.Limits.MaxArchiveBytes = flagMaxArchiveBytes
	}
	if flagMaxEntries > 0 {
		cfg.Limits.MaxEntries = flagMaxEntries
	}
	cfg.Limits.TimeBudget = flagArchiveBudget

	res, st, err := engine.ScanArchive(ctx, orc, cfg, path)
	if err != nil {
		return scanError(err)
	}
	if st.Truncated() && !machineOutput() {
		fmt.Fprintf(os.Stderr, "warning: archive only partly read (bytes:%t entries:%t time:%t)\n",
			st.AbortedByBytes, st.AbortedByEntries, st.AbortedByTime)
	}
	props := map[string]any{
		"entries":          st.Entries,
		"skipped":          st.Skipped,
		"abortedByBytes":   st.AbortedByBytes,
		"abortedByEntries": st.AbortedByEntries,
		"abortedByTime":    st.AbortedByTime,
	}
	if err := s.emit(cmd.OutOrStdout(), output{res: res, properties: props}); err != nil {
		return err
	}
	if !flagNoAudit {
		abs, _ := filepath.Abs(path)
		recordAudit(s, cwd, "archive", abs, orc.Name(), res, res.Indicators)
	}
	if report.ShouldFail(res.ScanResult, s.failOn) {
		exit(1)
	}
	return nil
}

package phpguard

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/watch"
)

var flagDebounce time.Duration

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check a plugin directory whenever its .php files change",
		RunE:  runWatch,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "plugin directory to watch")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-checking")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	s := loadSettings(cmd, abs)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orc, err := s.oracle(ctx)
	if err != nil {
		return scanError(err)
	}
	cfg := s.engineConfig(cmd, abs, flagInclude, flagExclude, 0)
	skip, err := engine.DirSkipper(cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	check := func(ctx context.Context) {
		scanCtx, cancel := s.context(ctx)
		defer cancel()
		res, err := engine.ScanDir(scanCtx, orc, cfg)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintln(os.Stderr, "error:", scanError(err))
			}
			return
		}
		fmt.Fprintf(w, "\n[%s]\n", time.Now().Format("15:04:05"))
		if err := s.emit(w, output{res: res}); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}

	check(ctx)
	if !machineOutput() {
		fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl-C to stop)...\n", abs)
	}
	return watch.Run(ctx, abs, watch.Options{Debounce: flagDebounce, SkipDir: skip, Logger: s.log}, check)
}

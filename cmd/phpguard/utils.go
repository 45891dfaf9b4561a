package phpguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/phpguard/phpguard/internal/artifacts"
	"github.com/phpguard/phpguard/internal/audit"
	"github.com/phpguard/phpguard/internal/config"
	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/git"
	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/oracle/factory"
	"github.com/phpguard/phpguard/internal/report"
	"github.com/phpguard/phpguard/internal/types"
)

// settings is the resolved configuration for one command run:
// CLI > local config > global config.
type settings struct {
	local, global config.FileConfig
	log           hclog.Logger
	noColor       bool
	failOn        string
	timeout       time.Duration
}

func loadSettings(cmd *cobra.Command, root string) settings {
	var s settings
	if c, err := config.LoadGlobal(); err == nil {
		s.global = c
	} else if !errors.Is(err, config.ErrNoGlobalConfig) {
		fmt.Fprintln(os.Stderr, "warning: global config ignored:", err)
	}
	if root != "" {
		if c, err := config.LoadLocal(root); err == nil {
			s.local = c
		} else if !errors.Is(err, config.ErrNoLocalConfig) {
			fmt.Fprintln(os.Stderr, "warning: local config ignored:", err)
		}
	}
	l, g := s.local, s.global

	s.log = logging.New(logging.Options{
		Level: pickString(flagLogLevel, l.LogLevel, g.LogLevel),
		JSON:  pickBool(flagLogJSON, l.LogJSON, g.LogJSON),
	})
	s.noColor = pickBool(flagNoColor, l.NoColor, g.NoColor) || !isTerminal(cmd.OutOrStdout())
	s.failOn = strings.ToLower(pickString(flagFailOn, l.FailOn, g.FailOn))
	if s.failOn == "" {
		s.failOn = "high"
	}
	s.timeout = flagTimeout
	if s.timeout == 0 {
		if v := pickString("", l.Timeout, g.Timeout); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				s.timeout = d
			} else {
				s.log.Warn("invalid timeout in config", "value", v)
			}
		}
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s settings) context(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

func (s settings) oracle(ctx context.Context) (oracle.Oracle, error) {
	oc := config.Merge(s.global, s.local).GetOracleConfig()
	if flagOracle != "" {
		oc.Backend = &flagOracle
	}
	if flagPHPBinary != "" {
		oc.PHPBinary = &flagPHPBinary
	}
	if flagPHPVersion != "" {
		oc.PHPVersion = &flagPHPVersion
	}
	return factory.New(ctx, factory.Config{Oracle: oc, Logger: s.log})
}

// engineConfig resolves scan scope for root. Include and exclude come from
// the command's own flags when it has them.
func (s settings) engineConfig(cmd *cobra.Command, root, include, exclude string, maxBytes int64) engine.Config {
	l, g := s.local, s.global
	defaultExcludes := flagDefaultExcludes
	if !cmd.Flags().Changed("default-excludes") {
		defaultExcludes = pickBoolDefault(true, l.DefaultExcludes, g.DefaultExcludes)
	}
	return engine.Config{
		Root:            root,
		IncludeGlobs:    pickString(include, l.Include, g.Include),
		ExcludeGlobs:    pickString(exclude, l.Exclude, g.Exclude),
		MaxBytes:        pickInt64(maxBytes, l.MaxBytes, g.MaxBytes),
		Threads:         pickInt(flagThreads, l.Threads, g.Threads),
		DefaultExcludes: defaultExcludes,
		NoCache:         pickBool(flagNoCache, l.NoCache, g.NoCache),
		Limits: artifacts.Limits{
			MaxArchiveBytes: pickInt64(0, l.MaxArchiveBytes, g.MaxArchiveBytes),
			MaxEntries:      pickInt(0, l.MaxEntries, g.MaxEntries),
		},
		Logger: s.log,
	}
}

// output describes one rendered result.
type output struct {
	res        engine.Result
	baselined  int
	properties map[string]any
}

func (s settings) emit(w io.Writer, o output) error {
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(w, o.res.ScanResult, report.SARIFOptions{Version: version, Properties: o.properties}); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		return report.WriteJSON(w, o.res.ScanResult)
	default:
		opts := report.PrintOptions{
			NoColor:   s.noColor,
			Duration:  o.res.Duration,
			Cached:    o.res.Cached,
			Baselined: o.baselined,
		}
		if flagText {
			report.PrintText(w, o.res.ScanResult, opts)
			return nil
		}
		return report.PrintTable(w, o.res.ScanResult, opts)
	}
	return nil
}

func machineOutput() bool { return flagJSON || flagSARIF }

// scanError reports a failed scan. When the oracle is missing the fixed
// unavailable message is shown instead of a wrapped error chain.
func scanError(err error) error {
	if errors.Is(err, engine.ErrScanUnavailable) || errors.Is(err, oracle.ErrUnavailable) {
		return errors.New(oracle.UnavailableMessage)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("scan timed out")
	}
	return fmt.Errorf("scan error: %w", err)
}

// recordAudit appends the run to the audit log kept in logRoot. res carries
// every indicator; newIndicators the ones not covered by a baseline. Failures
// only warn.
func recordAudit(s settings, logRoot, kind, target, oracleName string, res engine.Result, newIndicators []types.Indicator) {
	rec := audit.CreateScanRecord(kind, target, res.ScanResult, newIndicators, res.Duration)
	rec.Oracle = oracleName
	rec.Repo, rec.Commit, rec.Branch = git.RepoMetadata(logRoot)
	if _, err := audit.NewAuditLog(logRoot).LogScan(rec); err != nil {
		s.log.Warn("audit log not written", "error", err)
	}
}

// progressBar returns an engine progress callback drawing a textual bar on
// stderr. It is safe to call from several workers.
func progressBar(total int) func() {
	var done atomic.Int64
	return func() {
		n := done.Add(1)
		if n%10 == 0 || n == int64(total) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", n, total, float64(n)/float64(total)*100)
		}
	}
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	return pickBoolDefault(false, local, global)
}

func pickBoolDefault(def bool, local, global *bool) bool {
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return def
}

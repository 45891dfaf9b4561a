package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/phpguard/phpguard/internal/cache"
	"github.com/phpguard/phpguard/internal/detectors"
	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/normalize"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/phplex"
	"github.com/phpguard/phpguard/internal/types"
)

// Kind selects the wording of the result summary.
type Kind int

const (
	KindFiles Kind = iota
	KindPlugin
	KindArchive
	KindSnippet
)

const (
	// UnitFailureMessage replaces the diagnostic when the oracle failed on a
	// unit for a reason other than a syntax error.
	UnitFailureMessage = "Unable to check syntax for this file."
	// UnknownParseError is used when the oracle's diagnostic normalizes to "".
	UnknownParseError = "Unknown parse error reported by PHP."
)

// ErrScanUnavailable wraps oracle.ErrUnavailable when a scan cannot check
// syntax at all.
var ErrScanUnavailable = errors.New("scanning unavailable")

// Options tune a single Scan call. The zero value scans sequentially with the
// built-in lexer and no cache.
type Options struct {
	Kind    Kind
	Threads int
	Logger  hclog.Logger
	// Tokenizer overrides the lexer used by the token scan. Leave nil for
	// phplex.Tokenize.
	Tokenizer detectors.Tokenizer
	// Cache, when set, is consulted per unit and updated with fresh results.
	Cache *cache.DB
	// Progress is called once per finished unit, possibly from several
	// goroutines when Threads > 1.
	Progress func()
}

// Result is a ScanResult plus run statistics that are not part of the
// serialized shape.
type Result struct {
	types.ScanResult
	Duration time.Duration
	Cached   int
}

type unitOutcome struct {
	finding    *types.SyntaxFinding
	indicators []types.Indicator
	hash       string
	cached     bool
}

// Scan checks units in order and returns the assembled result. Indicators are
// merged per unit only. When ctx is cancelled the result holds the units that
// finished, FilesChecked counts only those, and the error is ctx.Err().
func Scan(ctx context.Context, orc oracle.Oracle, units []types.SourceUnit, opts Options) (types.ScanResult, error) {
	res, err := run(ctx, orc, units, opts)
	return res.ScanResult, err
}

func run(ctx context.Context, orc oracle.Oracle, units []types.SourceUnit, opts Options) (Result, error) {
	started := time.Now()
	log := logging.OrNull(opts.Logger).Named("engine")
	if orc == nil {
		return Result{}, fmt.Errorf("%w: %w", ErrScanUnavailable, oracle.ErrUnavailable)
	}
	tokenize := opts.Tokenizer
	if tokenize == nil {
		tokenize = phplex.Tokenize
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = 1
	}

	if opts.Cache != nil && opts.Cache.Entries == nil {
		opts.Cache.Entries = map[string]cache.Entry{}
	}

	outcomes := make([]unitOutcome, len(units))
	done := make([]bool, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, u := range units {
		i, u := i, u
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := checkUnit(gctx, orc, tokenize, u, opts, log)
			if err != nil {
				return err
			}
			outcomes[i] = out
			done[i] = true
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	var res Result
	for i := range units {
		if !done[i] {
			continue
		}
		res.FilesChecked++
		out := outcomes[i]
		if out.finding != nil {
			res.Errors = append(res.Errors, *out.finding)
		}
		res.Indicators = append(res.Indicators, out.indicators...)
		if out.cached {
			res.Cached++
		} else if opts.Cache != nil && out.hash != "" {
			opts.Cache.Entries[units[i].Label] = cache.Entry{Hash: out.hash, Error: out.finding, Indicators: out.indicators}
		}
	}
	res.Message = Summary(opts.Kind, res.FilesChecked, len(res.Errors))
	res.ScanResult = res.ScanResult.Normalize()
	res.Duration = time.Since(started)
	log.Debug("scan finished", "units", len(units), "errors", len(res.Errors),
		"indicators", len(res.Indicators), "cached", res.Cached, "duration", res.Duration)
	return res, err
}

// checkUnit runs the oracle and the detectors over one unit. Only a missing
// oracle or cancellation is returned as an error.
func checkUnit(ctx context.Context, orc oracle.Oracle, tokenize detectors.Tokenizer, u types.SourceUnit, opts Options, log hclog.Logger) (unitOutcome, error) {
	var out unitOutcome
	if opts.Cache != nil {
		out.hash = cache.Hash(u.Text, orc.Name())
		if e, ok := opts.Cache.Lookup(u.Label, out.hash); ok {
			log.Trace("cache hit", "unit", u.Label)
			return unitOutcome{finding: e.Error, indicators: e.Indicators, hash: out.hash, cached: true}, nil
		}
	}

	hint := u.Label
	if opts.Kind == KindSnippet {
		hint = ""
	}
	serr, err := orc.Check(ctx, u.Text)
	switch {
	case errors.Is(err, oracle.ErrUnavailable):
		return out, fmt.Errorf("%w: %w", ErrScanUnavailable, err)
	case err != nil:
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		log.Warn("syntax check failed", "unit", u.Label, "error", err)
		out.finding = &types.SyntaxFinding{File: u.Label, Message: UnitFailureMessage}
		// a transient failure must not be cached
		out.hash = ""
	case serr != nil:
		msg := normalize.Message(serr.Message, hint)
		if msg == "" {
			msg = UnknownParseError
		}
		out.finding = &types.SyntaxFinding{File: u.Label, Message: msg}
	}

	inds := detectors.DetectWith(tokenize, u.Text)
	if opts.Kind != KindSnippet {
		for i := range inds {
			inds[i].File = u.Label
		}
	}
	out.indicators = inds
	return out, nil
}

// Summary returns the result message for a scan of the given kind.
func Summary(kind Kind, filesChecked, errorCount int) string {
	switch kind {
	case KindSnippet:
		if errorCount == 0 {
			return "No syntax errors detected in the pasted code."
		}
		return "Detected syntax issues in the pasted code. Review details below."
	case KindPlugin:
		switch {
		case filesChecked == 0:
			return "No PHP files found in this plugin."
		case errorCount == 0:
			return "No syntax errors detected in the scanned plugin."
		}
	case KindArchive:
		switch {
		case filesChecked == 0:
			return "No PHP files found in the uploaded ZIP."
		case errorCount == 0:
			return "No syntax errors detected in the uploaded ZIP."
		}
		return fmt.Sprintf("Detected issues in %d file(s) in the uploaded ZIP.", errorCount)
	default:
		switch {
		case filesChecked == 0:
			return "No PHP files found."
		case errorCount == 0:
			return "No syntax errors detected in the scanned files."
		}
	}
	return fmt.Sprintf("Detected issues in %d file(s). Review details below.", errorCount)
}

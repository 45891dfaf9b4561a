package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/artifacts"
	"github.com/phpguard/phpguard/internal/cache"
	"github.com/phpguard/phpguard/internal/detectors"
	"github.com/phpguard/phpguard/internal/git"
	"github.com/phpguard/phpguard/internal/ignore"
	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/types"
)

// SnippetLabel is the unit label of pasted code.
const SnippetLabel = "Pasted code snippet"

// ErrEmptySnippet is returned for a snippet with no non-space content.
var ErrEmptySnippet = errors.New("no code was provided")

// Config controls directory and archive scans: scope, filters and performance.
type Config struct {
	Root            string
	IncludeGlobs    string
	ExcludeGlobs    string
	MaxBytes        int64
	Threads         int
	DefaultExcludes bool
	NoCache         bool

	// ScanStaged checks the index content of staged .php files instead of
	// walking the tree. BaseBranch checks files changed against a ref.
	ScanStaged bool
	BaseBranch string

	// Archive limits; zero fields fall back to artifacts.DefaultLimits.
	Limits artifacts.Limits

	Logger    hclog.Logger
	Tokenizer detectors.Tokenizer
	Progress  func()
}

func (cfg Config) options(kind Kind) Options {
	return Options{
		Kind:      kind,
		Threads:   cfg.Threads,
		Logger:    cfg.Logger,
		Tokenizer: cfg.Tokenizer,
		Progress:  cfg.Progress,
	}
}

// ScanSnippet checks a single pasted text. A leading "<?php\n" is added when
// the text has no open tag.
func ScanSnippet(ctx context.Context, orc oracle.Oracle, text string, opts Options) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptySnippet
	}
	if !strings.Contains(text, "<?") {
		text = "<?php\n" + text
	}
	opts.Kind = KindSnippet
	opts.Cache = nil
	return run(ctx, orc, []types.SourceUnit{{Label: SnippetLabel, Text: text}}, opts)
}

// ScanDir scans the .php files of a plugin directory. Labels are relative to
// cfg.Root with forward slashes.
func ScanDir(ctx context.Context, orc oracle.Oracle, cfg Config) (Result, error) {
	log := logging.OrNull(cfg.Logger).Named("engine")
	if cfg.Root == "" {
		cfg.Root = "."
	}
	ign, err := ignore.LoadOptional(filepath.Join(cfg.Root, ignore.FileName))
	if err != nil {
		log.Warn("ignore file unreadable", "error", err)
	}

	units, err := collectUnits(ctx, cfg, ign)
	if err != nil {
		return Result{}, err
	}

	opts := cfg.options(KindPlugin)
	var db cache.DB
	if !cfg.NoCache {
		db, err = cache.Load(cfg.Root)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug("cache discarded", "error", err)
		}
		opts.Cache = &db
	}

	res, err := run(ctx, orc, units, opts)
	if opts.Cache != nil && len(units) > 0 && err == nil {
		if !cfg.ScanStaged && cfg.BaseBranch == "" {
			pruneCache(&db, units)
		}
		if saveErr := cache.Save(cfg.Root, db); saveErr != nil {
			log.Debug("cache not saved", "error", saveErr)
		}
	}
	return res, err
}

func collectUnits(ctx context.Context, cfg Config, ign ignore.Matcher) ([]types.SourceUnit, error) {
	var units []types.SourceUnit
	keep := func(rel string, b []byte) bool {
		return eligible(rel, cfg, ign) && (cfg.MaxBytes <= 0 || int64(len(b)) <= cfg.MaxBytes)
	}
	switch {
	case cfg.ScanStaged:
		files, data, err := git.StagedFiles(ctx, cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("staged files: %w", err)
		}
		for i, p := range files {
			if keep(p, data[i]) {
				units = append(units, types.SourceUnit{Label: p, Text: string(data[i])})
			}
		}
	case cfg.BaseBranch != "":
		files, err := git.ChangedFiles(ctx, cfg.Root, cfg.BaseBranch)
		if err != nil {
			return nil, fmt.Errorf("changed files: %w", err)
		}
		for _, p := range files {
			if !isPHP(p) {
				continue
			}
			b, err := os.ReadFile(filepath.Join(cfg.Root, filepath.FromSlash(p)))
			if err != nil {
				continue
			}
			if keep(p, b) {
				units = append(units, types.SourceUnit{Label: p, Text: string(b)})
			}
		}
	default:
		err := Walk(ctx, cfg, ign, func(rel string, b []byte) {
			units = append(units, types.SourceUnit{Label: rel, Text: string(b)})
		})
		if err != nil {
			return nil, err
		}
	}
	return units, nil
}

// pruneCache drops entries for files that are no longer part of the scan.
func pruneCache(db *cache.DB, units []types.SourceUnit) {
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		seen[u.Label] = true
	}
	for label := range db.Entries {
		if !seen[label] {
			delete(db.Entries, label)
		}
	}
}

// ScanArchive scans the .php entries of a zip, tar or tar.gz file. Archive
// scans never use the result cache.
func ScanArchive(ctx context.Context, orc oracle.Oracle, cfg Config, archivePath string) (Result, artifacts.Stats, error) {
	r := artifacts.Reader{
		Limits: cfg.Limits.WithDefaults(),
		Allow:  func(rel string) bool { return allowedByGlobs(rel, cfg) },
		Logger: cfg.Logger,
	}
	units, st, err := r.Units(ctx, archivePath)
	if err != nil {
		return Result{}, st, fmt.Errorf("read archive: %w", err)
	}
	res, err := run(ctx, orc, units, cfg.options(KindArchive))
	return res, st, err
}

package core

import (
	"context"

	"github.com/phpguard/phpguard/internal/config"
	"github.com/phpguard/phpguard/internal/detectors"
	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/oracle/factory"
	"github.com/phpguard/phpguard/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Config        = engine.Config
	Result        = engine.Result
	ScanResult    = types.ScanResult
	SyntaxFinding = types.SyntaxFinding
	Indicator     = types.Indicator
	OracleConfig  = config.OracleConfig
	Oracle        = oracle.Oracle
)

// ErrEmptySnippet is returned by ScanSnippet for blank input.
var ErrEmptySnippet = engine.ErrEmptySnippet

// NewOracle creates the syntax checker described by oc. The zero value gives
// the in-process parser.
func NewOracle(ctx context.Context, oc OracleConfig) (Oracle, error) {
	return factory.New(ctx, factory.Config{Oracle: oc})
}

// Scan checks every .php file under cfg.Root with the default parser.
func Scan(ctx context.Context, cfg Config) (Result, error) {
	orc, err := factory.New(ctx, factory.Config{Logger: cfg.Logger})
	if err != nil {
		return Result{}, err
	}
	return engine.ScanDir(ctx, orc, cfg)
}

// ScanWith is Scan with an explicit oracle.
func ScanWith(ctx context.Context, orc Oracle, cfg Config) (Result, error) {
	return engine.ScanDir(ctx, orc, cfg)
}

// ScanSnippet checks pasted code with the default parser.
func ScanSnippet(ctx context.Context, code string) (Result, error) {
	orc, err := factory.New(ctx, factory.Config{})
	if err != nil {
		return Result{}, err
	}
	return engine.ScanSnippet(ctx, orc, code, engine.Options{})
}

// ScanArchive checks the .php entries of a zip or tar archive.
func ScanArchive(ctx context.Context, cfg Config, path string) (Result, error) {
	orc, err := factory.New(ctx, factory.Config{Logger: cfg.Logger})
	if err != nil {
		return Result{}, err
	}
	res, _, err := engine.ScanArchive(ctx, orc, cfg, path)
	return res, err
}

// IndicatorIDs returns the names of the security indicators in table order.
func IndicatorIDs() []string { return detectors.IDs() }

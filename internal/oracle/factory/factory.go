package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/config"
	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/oracle/lint"
	"github.com/phpguard/phpguard/internal/oracle/parser"
)

// Backend names accepted in config and on the command line.
const (
	BackendParser = "parser"
	BackendLint   = "lint"
	BackendAuto   = "auto"
)

// Config is the subset of configuration needed to create an oracle.
type Config struct {
	Oracle config.OracleConfig
	Logger hclog.Logger
}

// New creates the oracle selected by cfg. The parser backend is the default;
// auto prefers php -l and falls back to the parser when php is missing.
func New(ctx context.Context, cfg Config) (oracle.Oracle, error) {
	log := logging.OrNull(cfg.Logger)
	oc := cfg.Oracle
	switch backend := strings.ToLower(strings.TrimSpace(oc.GetBackend())); backend {
	case "", BackendParser:
		return newParser(oc, log)
	case BackendLint:
		o, err := lint.New(ctx, oc.GetPHPBinary(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create lint oracle: %w", err)
		}
		return o, nil
	case BackendAuto:
		o, err := lint.New(ctx, oc.GetPHPBinary(), log)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, oracle.ErrUnavailable) {
			return nil, err
		}
		log.Debug("php not available, using in-process parser", "reason", err)
		return newParser(oc, log)
	default:
		return nil, fmt.Errorf("unknown oracle backend %q (want parser, lint or auto)", backend)
	}
}

func newParser(oc config.OracleConfig, log hclog.Logger) (oracle.Oracle, error) {
	o, err := parser.New(oc.GetPHPVersion(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser oracle: %w", err)
	}
	return o, nil
}

// Backends lists the selectable backends for help output.
func Backends() []string {
	return []string{BackendParser, BackendLint, BackendAuto}
}

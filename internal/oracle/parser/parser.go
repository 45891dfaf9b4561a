// Package parser is the in-process syntax oracle backed by a pure-Go PHP
// grammar. Nothing is executed; the source is only parsed.
package parser

import (
	"context"
	"fmt"

	"github.com/VKCOM/php-parser/pkg/conf"
	phperrors "github.com/VKCOM/php-parser/pkg/errors"
	phpparser "github.com/VKCOM/php-parser/pkg/parser"
	"github.com/VKCOM/php-parser/pkg/version"
	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/oracle"
)

// DefaultVersion is the grammar used when none is configured.
const DefaultVersion = "8.0"

// Oracle parses source with the PHP grammar for a fixed language version.
type Oracle struct {
	version *version.Version
	log     hclog.Logger
}

// New returns a parser oracle for phpVersion ("major.minor").
func New(phpVersion string, log hclog.Logger) (*Oracle, error) {
	if phpVersion == "" {
		phpVersion = DefaultVersion
	}
	v, err := version.New(phpVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid php version %q: %w", phpVersion, err)
	}
	return &Oracle{version: v, log: logging.OrNull(log).Named("parser")}, nil
}

// Name implements oracle.Oracle.
func (o *Oracle) Name() string {
	return fmt.Sprintf("parser-%d.%d", o.version.Major, o.version.Minor)
}

// Check implements oracle.Oracle. Only the first diagnostic is reported.
func (o *Oracle) Check(ctx context.Context, text string) (se *oracle.SyntaxError, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("parser panic", "panic", r)
			se, err = nil, fmt.Errorf("php parser failed: %v", r)
		}
	}()

	var diags []*phperrors.Error
	_, perr := phpparser.Parse([]byte(text), conf.Config{
		Version: o.version,
		ErrorHandlerFunc: func(e *phperrors.Error) {
			diags = append(diags, e)
		},
	})
	if perr != nil {
		return nil, fmt.Errorf("php parser: %w", perr)
	}
	if len(diags) == 0 {
		return nil, nil
	}
	first := diags[0]
	line := 0
	if first.Pos != nil {
		line = first.Pos.StartLine
	}
	o.log.Debug("syntax error", "line", line, "diagnostics", len(diags))
	msg := "PHP Parse error: " + first.Msg
	// end-of-input diagnostics carry no position
	if line > 0 {
		msg = fmt.Sprintf("%s on line %d", msg, line)
	}
	return &oracle.SyntaxError{Message: msg, Line: line}, nil
}

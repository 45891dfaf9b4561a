// Package oracle defines the syntax-check contract. An Oracle decides whether
// PHP source parses; it must never execute it.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable means no syntax checker could be set up. Callers must
// surface it instead of treating the input as valid.
var ErrUnavailable = errors.New("syntax checker unavailable")

// UnavailableMessage is the user-facing text for ErrUnavailable.
const UnavailableMessage = "Parser unavailable. Unable to check syntax safely."

// SyntaxError is a diagnostic for input that does not parse. Message is the
// raw checker output; Line is 0 when unknown.
type SyntaxError struct {
	Message string
	Line    int
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
	}
	return e.Message
}

// Oracle checks one source text. A nil *SyntaxError with a nil error means
// the text is valid.
type Oracle interface {
	Check(ctx context.Context, text string) (*SyntaxError, error)
	Name() string
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, text string) (*SyntaxError, error)

// Check calls f.
func (f Func) Check(ctx context.Context, text string) (*SyntaxError, error) { return f(ctx, text) }

// Name implements Oracle.
func (Func) Name() string { return "func" }

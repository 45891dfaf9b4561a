// Package lint is the syntax oracle that shells out to `php -l`. Lint mode
// only compiles the file; it never runs it.
package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/oracle"
)

var onLine = regexp.MustCompile(`on line (\d+)`)

// Oracle runs php -l against a private temp copy of each text.
type Oracle struct {
	binaryPath string
	version    string
	log        hclog.Logger
}

// New locates php and probes its version. A missing binary is reported as
// oracle.ErrUnavailable.
func New(ctx context.Context, customPath string, log hclog.Logger) (*Oracle, error) {
	log = logging.OrNull(log).Named("lint")
	bin, err := Find(customPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
	}
	v, err := Version(ctx, bin)
	if err != nil {
		log.Warn("could not read php version", "binary", bin, "error", err)
		v = "unknown"
	}
	log.Debug("using php", "binary", bin, "version", v)
	return &Oracle{binaryPath: bin, version: v, log: log}, nil
}

// Name implements oracle.Oracle.
func (o *Oracle) Name() string { return "lint-" + o.version }

// Version returns the detected php version.
func (o *Oracle) Version() string { return o.version }

// Check implements oracle.Oracle.
func (o *Oracle) Check(ctx context.Context, text string) (*oracle.SyntaxError, error) {
	tmpDir, err := os.MkdirTemp("", "phpguard-lint-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp workspace: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmpDir) //nolint:errcheck // best-effort cleanup
	}()
	if err := os.Chmod(tmpDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to secure temp workspace: %w", err)
	}
	unit := filepath.Join(tmpDir, "unit.php")
	if err := os.WriteFile(unit, []byte(text), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, o.binaryPath, "-n", "-l", unit)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	if runErr == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 255 {
		se := &oracle.SyntaxError{Message: out.String()}
		if m := onLine.FindStringSubmatch(se.Message); m != nil {
			se.Line, _ = strconv.Atoi(m[1])
		}
		return se, nil
	}
	return nil, wrapLintError(runErr, out.String())
}

func wrapLintError(err error, output string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("php -l failed (exit code %d)\n\nphp output:\n%s", exitErr.ExitCode(), output)
	}
	return fmt.Errorf("php -l execution failed: %w\n\nError output:\n%s", err, output)
}

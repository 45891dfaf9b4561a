// Package logging builds the hclog logger shared by the CLI and engine.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "PHPGUARD_LOG_LEVEL"

// Options configures New.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// New creates a logger. The PHPGUARD_LOG_LEVEL environment variable wins over
// opts.Level; an empty level means WARN so reports stay clean by default.
func New(opts Options) hclog.Logger {
	if opts.Name == "" {
		opts.Name = "phpguard"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        opts.Name,
		DisableTime: true,
		JSONFormat:  opts.JSON,
		Output:      opts.Output,
		Level:       determineLevel(opts.Level),
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}

func determineLevel(configured string) hclog.Level {
	if env := os.Getenv(EnvLevel); env != "" {
		return ParseLevel(env)
	}
	if configured == "" {
		return hclog.Warn
	}
	return ParseLevel(configured)
}

// ParseLevel maps a level name to hclog.Level, defaulting to INFO.
func ParseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		return hclog.Info
	}
}

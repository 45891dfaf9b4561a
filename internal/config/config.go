package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoLocalConfig is returned by LoadLocal when the root has no config file.
	ErrNoLocalConfig = errors.New("no local config")
	// ErrNoGlobalConfig is returned by LoadGlobal when no user config exists.
	ErrNoGlobalConfig = errors.New("no global config")
)

// LocalNames are the repo-local file names, in search order.
var LocalNames = []string{".phpguard.yml", ".phpguard.yaml", "phpguard.yml", "phpguard.yaml"}

// FileConfig is the on-disk YAML configuration shape for phpguard.
type FileConfig struct {
	Include         *string `yaml:"include,omitempty"`
	Exclude         *string `yaml:"exclude,omitempty"`
	MaxBytes        *int64  `yaml:"max_bytes,omitempty"`
	Threads         *int    `yaml:"threads,omitempty"`
	FailOn          *string `yaml:"fail_on,omitempty"`
	NoColor         *bool   `yaml:"no_color,omitempty"`
	DefaultExcludes *bool   `yaml:"default_excludes,omitempty"`
	NoCache         *bool   `yaml:"no_cache,omitempty"`
	Timeout         *string `yaml:"timeout,omitempty"`

	LogLevel *string `yaml:"log_level,omitempty"`
	LogJSON  *bool   `yaml:"log_json,omitempty"`

	// archive limits
	MaxArchiveBytes *int64 `yaml:"max_archive_bytes,omitempty"`
	MaxEntries      *int   `yaml:"max_entries,omitempty"`

	Oracle *OracleConfig `yaml:"oracle,omitempty"`
}

// OracleConfig selects and tunes the syntax checker.
type OracleConfig struct {
	// Backend is one of "parser", "lint" or "auto". Empty means parser.
	Backend *string `yaml:"backend,omitempty"`

	// PHPBinary is an explicit path to the php executable used by the lint
	// backend. If empty, php is looked up in $PATH.
	PHPBinary *string `yaml:"php_binary,omitempty"`

	// PHPVersion is the grammar version for the parser backend, e.g. "8.1".
	PHPVersion *string `yaml:"php_version,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LocalPath returns the first existing local config file under root.
func LocalPath(root string) (string, bool) {
	for _, name := range LocalNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	if p, ok := LocalPath(root); ok {
		return LoadFile(p)
	}
	return FileConfig{}, ErrNoLocalConfig
}

// GlobalPath returns $XDG_CONFIG_HOME/phpguard/config.yml (or ~/.config).
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "phpguard", "config.yml"), nil
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, ErrNoGlobalConfig
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg FileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// GetOracleConfig returns the oracle section, never nil.
func (fc FileConfig) GetOracleConfig() OracleConfig {
	if fc.Oracle == nil {
		return OracleConfig{}
	}
	return *fc.Oracle
}

// GetBackend returns the configured backend or empty string.
func (oc OracleConfig) GetBackend() string {
	if oc.Backend == nil {
		return ""
	}
	return *oc.Backend
}

// GetPHPBinary returns the custom php path or empty string.
func (oc OracleConfig) GetPHPBinary() string {
	if oc.PHPBinary == nil {
		return ""
	}
	return *oc.PHPBinary
}

// GetPHPVersion returns the grammar version or empty string.
func (oc OracleConfig) GetPHPVersion() string {
	if oc.PHPVersion == nil {
		return ""
	}
	return *oc.PHPVersion
}

// Merge overlays non-nil fields of over onto base.
func Merge(base, over FileConfig) FileConfig {
	out := base
	if over.Include != nil {
		out.Include = over.Include
	}
	if over.Exclude != nil {
		out.Exclude = over.Exclude
	}
	if over.MaxBytes != nil {
		out.MaxBytes = over.MaxBytes
	}
	if over.Threads != nil {
		out.Threads = over.Threads
	}
	if over.FailOn != nil {
		out.FailOn = over.FailOn
	}
	if over.NoColor != nil {
		out.NoColor = over.NoColor
	}
	if over.DefaultExcludes != nil {
		out.DefaultExcludes = over.DefaultExcludes
	}
	if over.NoCache != nil {
		out.NoCache = over.NoCache
	}
	if over.Timeout != nil {
		out.Timeout = over.Timeout
	}
	if over.LogLevel != nil {
		out.LogLevel = over.LogLevel
	}
	if over.LogJSON != nil {
		out.LogJSON = over.LogJSON
	}
	if over.MaxArchiveBytes != nil {
		out.MaxArchiveBytes = over.MaxArchiveBytes
	}
	if over.MaxEntries != nil {
		out.MaxEntries = over.MaxEntries
	}
	if over.Oracle != nil {
		oc := base.GetOracleConfig()
		if over.Oracle.Backend != nil {
			oc.Backend = over.Oracle.Backend
		}
		if over.Oracle.PHPBinary != nil {
			oc.PHPBinary = over.Oracle.PHPBinary
		}
		if over.Oracle.PHPVersion != nil {
			oc.PHPVersion = over.Oracle.PHPVersion
		}
		out.Oracle = &oc
	}
	return out
}

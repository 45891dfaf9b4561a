package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	body := "threads: 4\nmax_bytes: 123\nfail_on: medium\ntimeout: 30s\noracle:\n  backend: lint\n  php_binary: /usr/bin/php8.2\n"
	p := writeTemp(t, dir, "phpguard.yaml", body)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 4 {
		t.Fatalf("expected threads=4, got %#v", cfg.Threads)
	}
	if cfg.MaxBytes == nil || *cfg.MaxBytes != 123 {
		t.Fatalf("expected max_bytes=123, got %#v", cfg.MaxBytes)
	}
	if cfg.FailOn == nil || *cfg.FailOn != "medium" {
		t.Fatalf("expected fail_on=medium, got %#v", cfg.FailOn)
	}
	if cfg.Timeout == nil || *cfg.Timeout != "30s" {
		t.Fatalf("expected timeout=30s, got %#v", cfg.Timeout)
	}
	oc := cfg.GetOracleConfig()
	if oc.GetBackend() != "lint" || oc.GetPHPBinary() != "/usr/bin/php8.2" {
		t.Fatalf("unexpected oracle config: %+v", oc)
	}
	if oc.GetPHPVersion() != "" {
		t.Fatalf("expected empty php_version, got %q", oc.GetPHPVersion())
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "bad.yml", "threads: [\n")
	if _, err := LoadFile(p); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "phpguard.yaml", "threads: 1\n")
	writeTemp(t, dir, ".phpguard.yaml", "threads: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 7 {
		t.Fatalf("expected threads=7 from .phpguard.yaml, got %#v", cfg.Threads)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLocal(dir); !errors.Is(err, ErrNoLocalConfig) {
		t.Fatalf("expected ErrNoLocalConfig, got %v", err)
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "phpguard")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(cfgDir, "config.yml")
	if err := os.WriteFile(p, []byte("threads: 9\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 9 {
		t.Fatalf("expected threads=9 from global config, got %#v", cfg.Threads)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	// Simulate no HOME as well by clearing HOME; LoadGlobal should error
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", ".phpguard.yml")
	threads := 3
	backend := "auto"
	if err := Save(p, FileConfig{Threads: &threads, Oracle: &OracleConfig{Backend: &backend}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 3 || cfg.GetOracleConfig().GetBackend() != "auto" {
		t.Fatalf("round trip mismatch: %+v", cfg)
	}
	if cfg.MaxBytes != nil {
		t.Fatalf("unset field should stay nil, got %v", *cfg.MaxBytes)
	}
}

func TestMerge_LocalOverridesGlobal(t *testing.T) {
	g1, l1 := 2, 8
	gb, lb := "/opt/php", "lint"
	global := FileConfig{Threads: &g1, Oracle: &OracleConfig{PHPBinary: &gb}}
	local := FileConfig{Threads: &l1, Oracle: &OracleConfig{Backend: &lb}}
	got := Merge(global, local)
	if *got.Threads != 8 {
		t.Fatalf("expected local threads, got %d", *got.Threads)
	}
	oc := got.GetOracleConfig()
	if oc.GetBackend() != "lint" || oc.GetPHPBinary() != "/opt/php" {
		t.Fatalf("oracle sections not merged: %+v", oc)
	}
	if *global.Threads != 2 {
		t.Fatal("Merge must not modify its inputs")
	}
}

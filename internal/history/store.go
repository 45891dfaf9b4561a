package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is a small key-value store for JSON values. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(key string) (json.RawMessage, bool, error)
	Set(key string, value json.RawMessage) error
}

// FileName is the history file inside the phpguard config directory.
const FileName = "history.json"

// DefaultPath returns $XDG_CONFIG_HOME/phpguard/history.json, falling back to
// ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "phpguard", FileName)
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "phpguard", FileName)
}

// FileStore keeps all keys in one JSON object on disk. Every Set rewrites the
// file through a temp file and rename.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return m, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".history-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu sync.Mutex
	m  map[string]json.RawMessage
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore { return &MemStore{m: map[string]json.RawMessage{}} }

// Get implements Store.
func (s *MemStore) Get(key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return append(json.RawMessage(nil), v...), ok, nil
}

// Set implements Store.
func (s *MemStore) Set(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]json.RawMessage{}
	}
	s.m[key] = append(json.RawMessage(nil), value...)
	return nil
}

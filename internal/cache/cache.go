package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/phpguard/phpguard/internal/types"
)

// formatVersion is bumped whenever Entry changes shape or detection rules
// change, so stale caches are discarded.
const formatVersion = 1

// Entry is the cached outcome for one unit.
type Entry struct {
	Hash       string               `json:"hash"`
	Error      *types.SyntaxFinding `json:"error,omitempty"`
	Indicators []types.Indicator    `json:"indicators,omitempty"`
}

type DB struct {
	Version int `json:"version"`
	// Label relative to scan root -> cached result
	Entries map[string]Entry `json:"entries"`
}

func defaultPath(root string) string {
	// Prefer storing cache under .git to avoid accidental commits
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "phpguardcache.json")
	}
	return filepath.Join(root, ".phpguardcache.json")
}

func Load(root string) (DB, error) {
	empty := DB{Version: formatVersion, Entries: map[string]Entry{}}
	f, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return empty, err
	}
	var db DB
	if err := json.Unmarshal(f, &db); err != nil {
		return empty, err
	}
	if db.Version != formatVersion || db.Entries == nil {
		return empty, nil
	}
	return db, nil
}

func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	db.Version = formatVersion
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(defaultPath(root), b, 0644)
}

// Lookup returns the entry for label when its hash still matches.
func (db DB) Lookup(label, hash string) (Entry, bool) {
	e, ok := db.Entries[label]
	if !ok || e.Hash != hash {
		return Entry{}, false
	}
	return e, true
}

// Hash fingerprints a unit's text together with the oracle that checked it.
func Hash(text, oracleName string) string {
	d := xxhash.New()
	_, _ = d.WriteString(oracleName)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(text)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Package history keeps an append-only log of version activations in a
// host-provided key-value Store.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/blang/semver/v4"
)

// Component is the name recorded for the phpguard checker itself.
const Component = "preinstall_free"

const keyHistory = "version_history"

func versionKey(component string) string { return "version/" + component }

// Entry is one recorded activation of a new version.
type Entry struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Notes     string `json:"notes"`
}

// Time returns the entry timestamp; the zero time when unknown.
func (e Entry) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(e.Timestamp, 0)
}

var releaseNotes = map[string]string{
	"1.0.0": "Initial public release of PHPGuard Pre-Install Safety Checker.",
}

// NotesFor returns the release notes of a known version, or "".
func NotesFor(version string) string {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return ""
	}
	return releaseNotes[v.String()]
}

// RecordVersionBump stores version as the current version of component and
// appends a history entry, unless it is already current. It reports whether
// an entry was added.
func RecordVersionBump(s Store, component, version string, now time.Time) (bool, error) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}

	raw, ok, err := s.Get(versionKey(component))
	if err != nil {
		return false, err
	}
	if ok {
		var stored string
		if json.Unmarshal(raw, &stored) == nil {
			if sv, err := semver.ParseTolerant(stored); err == nil && sv.Equals(v) {
				return false, nil
			}
		}
	}

	// the version key is written last
	entries, err := load(s)
	if err != nil {
		return false, err
	}
	entries = append(entries, Entry{
		Component: component,
		Version:   v.String(),
		Timestamp: now.Unix(),
		Notes:     NotesFor(v.String()),
	})
	b, err := json.Marshal(entries)
	if err != nil {
		return false, err
	}
	if err := s.Set(keyHistory, b); err != nil {
		return false, err
	}
	b, _ = json.Marshal(v.String())
	if err := s.Set(versionKey(component), b); err != nil {
		return false, err
	}
	return true, nil
}

// load returns the stored entries in insertion order. A value that is not a
// list is treated as empty.
func load(s Store) ([]Entry, error) {
	raw, ok, err := s.Get(keyHistory)
	if err != nil || !ok {
		return nil, err
	}
	var entries []Entry
	if json.Unmarshal(raw, &entries) != nil {
		return nil, nil
	}
	return entries, nil
}

// History returns all entries, newest first. Entries with equal timestamps
// keep their insertion order.
func History(s Store) ([]Entry, error) {
	entries, err := load(s)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// Current returns the recorded version of component.
func Current(s Store, component string) (string, bool, error) {
	raw, ok, err := s.Get(versionKey(component))
	if err != nil || !ok {
		return "", false, err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, fmt.Errorf("stored version: %w", err)
	}
	return v, true, nil
}

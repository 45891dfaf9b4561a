// Package ignore reads .phpguardignore files: one pattern per line, '#'
// comments, a trailing '/' for directories, doublestar globs otherwise.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up in the scan root.
const FileName = ".phpguardignore"

// Matcher reports whether a slash-separated relative path is ignored.
// The zero value ignores nothing.
type Matcher struct {
	dirs  []string
	globs []string
}

// Load parses the ignore file at p. A missing file yields an empty Matcher
// and the underlying fs.ErrNotExist.
func Load(p string) (Matcher, error) {
	f, err := os.Open(p)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	var m Matcher
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.Add(sc.Text())
	}
	return m, sc.Err()
}

// LoadOptional is Load that treats a missing file as empty.
func LoadOptional(p string) (Matcher, error) {
	m, err := Load(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Matcher{}, nil
	}
	return m, err
}

// Add appends one pattern line.
func (m *Matcher) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	line = strings.TrimPrefix(line, "./")
	line = strings.TrimPrefix(line, "/")
	if strings.HasSuffix(line, "/") {
		m.dirs = append(m.dirs, strings.TrimSuffix(line, "/"))
		return
	}
	m.globs = append(m.globs, line)
}

// Match reports whether rel is ignored.
func (m Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "./")
	for _, d := range m.dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") || strings.Contains(rel, "/"+d+"/") {
			return true
		}
	}
	base := path.Base(rel)
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

// Empty reports whether no patterns were loaded.
func (m Matcher) Empty() bool { return len(m.dirs) == 0 && len(m.globs) == 0 }

// Package textpos maps byte offsets inside a source text to 1-based line
// numbers and line excerpts. "\r\n", "\r" and "\n" all count as one break.
package textpos

import (
	"sort"
	"strings"
)

// LineOf returns the 1-based line containing offset. Negative or
// out-of-range offsets map to line 1.
func LineOf(text string, offset int) int {
	if offset < 0 || offset > len(text) {
		return 1
	}
	line := 1
	for i := 0; i < offset; i++ {
		switch text[i] {
		case '\n':
			line++
		case '\r':
			// "\r\n" is counted once, at the '\n'
			if i+1 < len(text) && text[i+1] == '\n' {
				continue
			}
			line++
		}
	}
	return line
}

// SplitLines splits text on any of the three line-break forms.
func SplitLines(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			out = append(out, text[start:i])
			start = i + 1
		case '\r':
			out = append(out, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(out, text[start:])
}

// ExcerptOfLine returns the trimmed content of the given 1-based line, or ""
// when the line does not exist.
func ExcerptOfLine(text string, line int) string {
	lines := SplitLines(text)
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// Index precomputes line starts so repeated lookups on the same text avoid
// rescanning from the beginning.
type Index struct {
	starts []int
	lines  []string
	size   int
}

// NewIndex builds an Index over text.
func NewIndex(text string) *Index {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &Index{starts: starts, lines: SplitLines(text), size: len(text)}
}

// Line is LineOf against the indexed text.
func (x *Index) Line(offset int) int {
	if offset < 0 || offset > x.size {
		return 1
	}
	// number of line starts <= offset
	return sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset })
}

// Excerpt is ExcerptOfLine against the indexed text.
func (x *Index) Excerpt(line int) string {
	if line < 1 || line > len(x.lines) {
		return ""
	}
	return strings.TrimSpace(x.lines[line-1])
}

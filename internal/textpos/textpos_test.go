package textpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineOf(t *testing.T) {
	text := "a\nb\r\nc\rd"
	tests := []struct {
		name   string
		offset int
		want   int
	}{
		{"start", 0, 1},
		{"first break", 1, 1},
		{"second line", 2, 2},
		{"crlf counts once", 5, 3},
		{"bare cr", 7, 4},
		{"end of text", len(text), 4},
		{"negative clamps", -3, 1},
		{"past end clamps", len(text) + 10, 1},
	}
	idx := NewIndex(text)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineOf(text, tt.offset))
			assert.Equal(t, tt.want, idx.Line(tt.offset), "index disagrees with LineOf")
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, SplitLines("a\nb\r\nc\rd"))
	assert.Equal(t, []string{"", ""}, SplitLines("\r\n"))
	assert.Equal(t, []string{""}, SplitLines(""))
}

func TestExcerptOfLine(t *testing.T) {
	text := "<?php\n   system($x);  \r\n"
	assert.Equal(t, "system($x);", ExcerptOfLine(text, 2))
	assert.Equal(t, "", ExcerptOfLine(text, 3))
	assert.Equal(t, "", ExcerptOfLine(text, 0))
	assert.Equal(t, "", ExcerptOfLine(text, 99))
	assert.Equal(t, "system($x);", NewIndex(text).Excerpt(2))
}

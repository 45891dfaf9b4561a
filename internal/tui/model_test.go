package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phpguard/phpguard/internal/report"
	"github.com/phpguard/phpguard/internal/types"
)

func sample() types.ScanResult {
	return types.ScanResult{
		Message:      "Detected issues in 1 file(s). Review details below.",
		FilesChecked: 3,
		Errors: []types.SyntaxFinding{
			{File: "bad.php", Message: "PHP Parse error: syntax error, unexpected '$b' in bad.php on line 3"},
		},
		Indicators: []types.Indicator{
			{Severity: types.SevHigh, Name: "system", Line: 4, Excerpt: "system($cmd);", What: "system() call", Next: "Confirm.", File: "inc/run.php"},
			{Severity: types.SevMed, Name: "create_function", Line: 9, Excerpt: "create_function('', '');", What: "create_function() call", Next: "Prefer closures.", File: "legacy.php"},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestBuildItems(t *testing.T) {
	base := report.Baseline{}
	base.Add(sample().Indicators[1])
	items := buildItems(sample(), base)
	require.Len(t, items, 3)

	assert.Equal(t, kindError, items[0].kind)
	assert.Equal(t, 3, items[0].line)
	assert.Equal(t, "bad.php:3", items[0].location())
	assert.False(t, items[1].baselined)
	assert.True(t, items[2].baselined)

	snippet := item{line: 2}
	assert.Equal(t, "snippet:2", snippet.location())
}

func TestFilters(t *testing.T) {
	m := NewModel(sample(), Options{})
	assert.Len(t, m.visible, 3)

	m = press(t, m, "s")
	assert.Equal(t, sevError, m.severityFilter)
	assert.Equal(t, []int{0}, m.visible)

	m = press(t, m, "s", "s")
	assert.Equal(t, string(types.SevMed), m.severityFilter)
	assert.Equal(t, []int{2}, m.visible)

	m = press(t, m, "s")
	assert.Empty(t, m.severityFilter)

	m = press(t, m, "/", "r", "u", "n", "enter")
	assert.False(t, m.searchMode)
	assert.Equal(t, "run", m.searchQuery)
	assert.Equal(t, []int{1}, m.visible)

	m = press(t, m, "esc")
	assert.Empty(t, m.searchQuery)
	assert.Len(t, m.visible, 3)
}

func TestSearchNoMatch(t *testing.T) {
	m := NewModel(sample(), Options{})
	m.searchQuery = "nothing-like-this"
	m.applyFilters()
	assert.Empty(t, m.visible)
	_, ok := m.selected()
	assert.False(t, ok)
}

func TestAddToBaseline(t *testing.T) {
	p := filepath.Join(t.TempDir(), report.DefaultBaselineFile)
	m := NewModel(sample(), Options{BaselinePath: p})

	assert.Equal(t, "Syntax errors cannot be baselined", m.addToBaseline())

	m = press(t, m, "down", "b")
	assert.Equal(t, "Added indicator to baseline", m.statusMessage)
	assert.True(t, m.items[1].baselined)

	saved, err := report.LoadBaseline(p)
	require.NoError(t, err)
	assert.True(t, saved.Contains(sample().Indicators[0]))

	assert.Equal(t, "Already baselined", m.addToBaseline())

	noPath := NewModel(sample(), Options{})
	noPath.table.SetCursor(1)
	assert.Equal(t, "Baseline not available here", noPath.addToBaseline())
}

func TestHideBaselined(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	base := report.Baseline{}
	base.Add(sample().Indicators[0])
	m := NewModel(sample(), Options{Baseline: base})
	assert.Len(t, m.visible, 3)

	m = press(t, m, "B")
	assert.True(t, m.prefs.HideBaselined)
	assert.Equal(t, []int{0, 2}, m.visible)
	assert.True(t, LoadPrefs().HideBaselined)
}

func TestCopySelected(t *testing.T) {
	var got string
	orig := copyText
	copyText = func(s string) error { got = s; return nil }
	t.Cleanup(func() { copyText = orig })

	m := NewModel(sample(), Options{})
	m.table.SetCursor(1)
	msg := m.copySelected()()
	assert.Equal(t, statusMsg("Copied to clipboard"), msg)
	assert.Contains(t, got, "Location: inc/run.php:4")
	assert.Contains(t, got, "Excerpt: system($cmd);")

	copyText = func(string) error { return errors.New("no display") }
	assert.Equal(t, statusMsg("Clipboard error: no display"), m.copySelected()())
}

func TestRescan(t *testing.T) {
	calls := 0
	m := NewModel(sample(), Options{Rescan: func() (types.ScanResult, error) {
		calls++
		return types.ScanResult{Message: "No syntax errors detected in the scanned plugin.", FilesChecked: 3}, nil
	}})

	next, cmd := m.Update(key("r"))
	m = next.(Model)
	assert.True(t, m.scanning)
	require.NotNil(t, cmd)

	msg := m.rescan()()
	next, _ = m.Update(msg)
	m = next.(Model)
	assert.Equal(t, 1, calls)
	assert.False(t, m.scanning)
	assert.Empty(t, m.items)
	assert.Equal(t, "No syntax errors detected in the scanned plugin.", m.statusMessage)

	none := NewModel(sample(), Options{})
	assert.Equal(t, statusMsg("Rescan not available"), none.rescan()())
}

func TestView(t *testing.T) {
	m := NewModel(sample(), Options{})
	assert.Equal(t, "Initializing...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m = next.(Model)
	out := m.View()
	assert.Contains(t, out, "Files: 3")
	assert.Contains(t, out, "bad.php:3")
	assert.Contains(t, out, "Syntax error")

	m = press(t, m, "?")
	assert.Contains(t, m.View(), "Syntax errors are never baselined.")

	m = press(t, m, "x", "q")
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestStats(t *testing.T) {
	m := NewModel(sample(), Options{})
	m.severityFilter = sevError
	s := m.stats()
	assert.True(t, strings.Contains(s, "Baselined: 0"), s)
	assert.Contains(t, s, "[sev:ERROR]")
}

package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/phpguard/phpguard/internal/report"
	"github.com/phpguard/phpguard/internal/types"
)

var (
	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	statsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("237"))

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 4)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sevHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// copyText is replaced in tests.
var copyText = clipboard.WriteAll

const sevError = "ERROR"

type itemKind int

const (
	kindError itemKind = iota
	kindIndicator
)

// item is one table row: a syntax error or an indicator.
type item struct {
	kind      itemKind
	severity  string
	name      string
	file      string
	line      int
	message   string
	indicator types.Indicator
	baselined bool
}

func buildItems(res types.ScanResult, base report.Baseline) []item {
	items := make([]item, 0, len(res.Errors)+len(res.Indicators))
	for _, e := range res.Errors {
		items = append(items, item{
			kind:     kindError,
			severity: sevError,
			name:     report.SyntaxRuleID,
			file:     e.File,
			line:     report.ErrorLine(e.Message),
			message:  e.Message,
		})
	}
	for _, ind := range res.Indicators {
		items = append(items, item{
			kind:      kindIndicator,
			severity:  string(ind.Severity),
			name:      ind.Name,
			file:      ind.File,
			line:      ind.Line,
			message:   ind.What,
			indicator: ind,
			baselined: base.Contains(ind),
		})
	}
	return items
}

func (it item) location() string {
	file := it.file
	if file == "" {
		file = "snippet"
	}
	if it.line > 0 {
		return fmt.Sprintf("%s:%d", file, it.line)
	}
	return file
}

// RescanFunc runs the scan again and returns the fresh result.
type RescanFunc func() (types.ScanResult, error)

type (
	statusMsg string
	resultMsg types.ScanResult
)

// Model is the bubbletea model of the result browser.
type Model struct {
	table    table.Model
	viewport viewport.Model
	spinner  spinner.Model
	search   textinput.Model

	result       types.ScanResult
	items        []item
	visible      []int // indexes into items after filters
	baseline     report.Baseline
	baselinePath string
	prefs        Prefs
	rescanFunc   RescanFunc

	searchMode     bool
	searchQuery    string
	severityFilter string

	width, height int
	ready         bool
	scanning      bool
	showHelp      bool
	quitting      bool
	statusMessage string
}

// Options configures NewModel.
type Options struct {
	// BaselinePath is where 'b' records accepted indicators. Empty disables it.
	BaselinePath string
	Baseline     report.Baseline
	Rescan       RescanFunc
	Prefs        Prefs
}

// NewModel builds the browser for res.
func NewModel(res types.ScanResult, opts Options) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Sev", Width: 10},
			{Title: "Rule", Width: 16},
			{Title: "Location", Width: 40},
			{Title: "Summary", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Line

	ti := textinput.New()
	ti.Placeholder = "file, rule or message..."
	ti.CharLimit = 100
	ti.Prompt = "/ "

	base := opts.Baseline
	if base.Items == nil {
		base.Items = map[string]bool{}
	}
	m := Model{
		table:        t,
		viewport:     viewport.New(80, 10),
		spinner:      sp,
		search:       ti,
		baseline:     base,
		baselinePath: opts.BaselinePath,
		prefs:        opts.Prefs,
		rescanFunc:   opts.Rescan,
	}
	m.setResult(res)
	m.statusMessage = "q: quit | ?: help | /: search | s: severity | b: baseline | c: copy | r: rescan"
	return m
}

func (m *Model) setResult(res types.ScanResult) {
	m.result = res.Normalize()
	m.items = buildItems(m.result, m.baseline)
	m.applyFilters()
}

// applyFilters recomputes the visible rows and refreshes the table.
func (m *Model) applyFilters() {
	query := strings.ToLower(m.searchQuery)
	var visible []int
	for i, it := range m.items {
		if m.prefs.HideBaselined && it.baselined {
			continue
		}
		if m.severityFilter != "" && it.severity != m.severityFilter {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.file), query) &&
			!strings.Contains(strings.ToLower(it.name), query) &&
			!strings.Contains(strings.ToLower(it.message), query) {
			continue
		}
		visible = append(visible, i)
	}
	m.visible = visible

	rows := make([]table.Row, len(m.visible))
	for r, i := range m.visible {
		it := m.items[i]
		sev := it.severity
		if it.baselined {
			sev = "(b) " + sev
		}
		rows[r] = table.Row{sev, it.name, it.location(), it.message}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
	m.updateDetail()
}

// selected returns the item under the cursor.
func (m *Model) selected() (*item, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visible) {
		return nil, false
	}
	return &m.items[m.visible[c]], true
}

func (m *Model) updateDetail() {
	it, ok := m.selected()
	if !ok {
		if len(m.items) == 0 {
			m.viewport.SetContent(m.result.Message)
		} else {
			m.viewport.SetContent("No rows match the current filter. Press esc to clear it.")
		}
		return
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(it.location()))
	b.WriteString("\n\n")
	if it.kind == kindError {
		b.WriteString(errorStyle.Render("Syntax error"))
		b.WriteString("\n")
		b.WriteString(it.message)
		b.WriteString("\n")
	} else {
		ind := it.indicator
		fmt.Fprintf(&b, "%s  %s\n\n", severityLabel(ind.Severity), ind.Name)
		fmt.Fprintf(&b, "What: %s\n", ind.What)
		fmt.Fprintf(&b, "Next: %s\n\n", ind.Next)
		b.WriteString(report.Highlight(ind.Excerpt))
		b.WriteString("\n")
		if it.baselined {
			b.WriteString("\n(baselined)\n")
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func severityLabel(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return sevHighStyle.Render(string(s))
	case types.SevMed:
		return sevMedStyle.Render(string(s))
	default:
		return string(s)
	}
}

// cycleSeverity steps the filter: all, errors, high, medium.
func (m *Model) cycleSeverity() {
	switch m.severityFilter {
	case "":
		m.severityFilter = sevError
	case sevError:
		m.severityFilter = string(types.SevHigh)
	case string(types.SevHigh):
		m.severityFilter = string(types.SevMed)
	default:
		m.severityFilter = ""
	}
	m.applyFilters()
}

func (m *Model) addToBaseline() string {
	it, ok := m.selected()
	switch {
	case !ok:
		return "Nothing selected"
	case it.kind == kindError:
		return "Syntax errors cannot be baselined"
	case m.baselinePath == "":
		return "Baseline not available here"
	case it.baselined:
		return "Already baselined"
	}
	m.baseline.Add(it.indicator)
	if err := m.baseline.Save(m.baselinePath); err != nil {
		return fmt.Sprintf("Error writing baseline: %v", err)
	}
	it.baselined = true
	m.applyFilters()
	return "Added indicator to baseline"
}

func (m Model) copySelected() tea.Cmd {
	it, ok := m.selected()
	if !ok {
		return func() tea.Msg { return statusMsg("Nothing selected") }
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Location: %s\n", it.location())
	fmt.Fprintf(&sb, "Rule: %s\n", it.name)
	if it.kind == kindError {
		fmt.Fprintf(&sb, "Error: %s\n", it.message)
	} else {
		fmt.Fprintf(&sb, "Severity: %s\nWhat: %s\nNext: %s\nExcerpt: %s\n",
			it.indicator.Severity, it.indicator.What, it.indicator.Next, it.indicator.Excerpt)
	}
	text := sb.String()
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg("Copied to clipboard")
	}
}

func (m Model) rescan() tea.Cmd {
	fn := m.rescanFunc
	return func() tea.Msg {
		if fn == nil {
			return statusMsg("Rescan not available")
		}
		res, err := fn()
		if err != nil {
			return statusMsg(fmt.Sprintf("Scan error: %v", err))
		}
		return resultMsg(res)
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		tableHeight := max(3, msg.Height/2-4)
		m.table.SetHeight(tableHeight)
		m.table.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = max(3, msg.Height-tableHeight-8)
		m.ready = true
		m.updateDetail()
		return m, nil

	case statusMsg:
		m.statusMessage = string(msg)
		return m, nil

	case resultMsg:
		m.scanning = false
		m.setResult(types.ScanResult(msg))
		m.statusMessage = m.result.Message
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.searchMode {
			switch msg.String() {
			case "enter":
				m.searchMode = false
				m.search.Blur()
			case "esc":
				m.searchMode = false
				m.search.Blur()
				m.search.SetValue("")
				m.searchQuery = ""
				m.applyFilters()
			default:
				m.search, cmd = m.search.Update(msg)
				m.searchQuery = m.search.Value()
				m.applyFilters()
				return m, cmd
			}
			return m, nil
		}
		if m.scanning {
			if msg.String() == "ctrl+c" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case "/":
			m.searchMode = true
			cmd = m.search.Focus()
			return m, cmd
		case "esc":
			m.searchQuery = ""
			m.search.SetValue("")
			m.severityFilter = ""
			m.applyFilters()
			return m, nil
		case "s":
			m.cycleSeverity()
			return m, nil
		case "B":
			m.prefs.HideBaselined = !m.prefs.HideBaselined
			m.applyFilters()
			if err := SavePrefs(m.prefs); err != nil {
				m.statusMessage = fmt.Sprintf("Preferences not saved: %v", err)
			}
			return m, nil
		case "b":
			m.statusMessage = m.addToBaseline()
			return m, nil
		case "c":
			return m, m.copySelected()
		case "r":
			m.scanning = true
			return m, tea.Batch(m.spinner.Tick, m.rescan())
		case "pgdown", "ctrl+d":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		prev := m.table.Cursor()
		m.table, cmd = m.table.Update(msg)
		if m.table.Cursor() != prev {
			m.updateDetail()
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) stats() string {
	var errs, high, med, baselined int
	for _, it := range m.items {
		switch {
		case it.kind == kindError:
			errs++
		case it.severity == string(types.SevHigh):
			high++
		case it.severity == string(types.SevMed):
			med++
		}
		if it.baselined {
			baselined++
		}
	}
	line := fmt.Sprintf("Files: %d  |  %s %d  |  %s %d  |  %s %d  |  Baselined: %d",
		m.result.FilesChecked,
		errorStyle.Render("Errors:"), errs,
		sevHighStyle.Render("High:"), high,
		sevMedStyle.Render("Medium:"), med,
		baselined)
	var filters []string
	if m.searchQuery != "" {
		filters = append(filters, fmt.Sprintf("search:'%s'", m.searchQuery))
	}
	if m.severityFilter != "" {
		filters = append(filters, "sev:"+m.severityFilter)
	}
	if m.prefs.HideBaselined {
		filters = append(filters, "baselined hidden")
	}
	if len(filters) > 0 {
		line += fmt.Sprintf("  [%s]", strings.Join(filters, ", "))
	}
	return line
}

const helpText = `Keys

  j/k, up/down   move
  /              search file, rule or message
  s              cycle severity filter (errors, high, medium)
  esc            clear filters
  B              hide or show baselined indicators
  b              add the selected indicator to the baseline
  c              copy the selected row to the clipboard
  r              rescan
  q              quit

Indicators are informational. Syntax errors are never baselined.`

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popupStyle.Render(helpText))
	}
	if m.scanning {
		box := popupStyle.Width(40).Align(lipgloss.Center).Render(m.spinner.View() + "  Rescanning...")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	header := statsStyle.Width(m.width).Render(m.stats())
	body := tableBorderStyle.Width(m.width - 2).Render(m.table.View())
	detail := tableBorderStyle.Width(m.width - 2).Height(m.viewport.Height).Render(m.viewport.View())

	footer := statusStyle.Width(m.width).Render(m.statusMessage)
	if m.searchMode {
		footer = m.search.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, detail, footer)
}

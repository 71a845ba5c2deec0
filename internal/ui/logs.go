package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/logtail"
)

// logLevels is the cycle order of the level filter. Empty shows everything.
var logLevels = []string{"", "INFO", "WARN", "ERROR"}

// logState holds all log-related state.
type logState struct {
	entries  []logtail.Entry
	follow   bool
	levelIdx int
	loadErr  error

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int
	searchMatchIdx int
}

func (s logState) levelLabel() string {
	if lvl := logLevels[s.levelIdx]; lvl != "" {
		return lvl + "+"
	}
	return "all"
}

// visible returns the entries that pass the level filter.
func (s logState) visible() []logtail.Entry {
	floor := logLevels[s.levelIdx]
	if floor == "" {
		return s.entries
	}
	out := make([]logtail.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.AtLeast(floor) {
			out = append(out, e)
		}
	}
	return out
}

type logLoadedMsg struct {
	lines []string
	err   error
}

// loadLogsCmd reads the tail of the log file off the UI thread.
func loadLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLoadedMsg{lines: lines, err: err}
	}
}

func (m *Model) initLogState() {
	ti := textinput.New()
	ti.Placeholder = "Search log..."
	ti.CharLimit = 100
	m.logState = logState{follow: true, searchInput: ti}
}

func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(max(m.width-4, 1), max(m.height-5, 1))
}

// refreshLogs schedules a re-read when the log view is showing.
func (m Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	return loadLogsCmd(m.logPath)
}

func (m *Model) handleLogLoaded(msg logLoadedMsg) {
	m.logState.loadErr = msg.err
	if msg.err != nil {
		return
	}
	entries := make([]logtail.Entry, len(msg.lines))
	for i, line := range msg.lines {
		entries[i], _ = logtail.Parse(line)
	}
	m.logState.entries = entries
	m.findSearchMatches()
	m.updateLogViewport()
}

// updateLogViewport re-renders the visible log lines.
func (m *Model) updateLogViewport() {
	m.logViewport.Width = max(m.width-4, 1)
	m.logViewport.Height = max(m.height-5, 1)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log box with a status line below it.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	height := max(m.height-3, 3)

	title := "Activity log · " + truncateMiddle(m.logPath, max(m.width/2, 10))
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, height, true)
	return box + "\n" + bg.FillLine(m.renderLogStatus(styles, bg), m.width)
}

func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return bg.Render("/", styles.AccentText) + m.logState.searchInput.View()
	}
	if m.logState.searchRegex != nil {
		if len(m.logState.searchMatches) == 0 {
			return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
		}
		return bg.Render("/"+m.logState.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logState.searchMatchIdx+1, len(m.logState.searchMatches)), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}
	if m.logState.loadErr != nil {
		return bg.Render("Could not read log: "+m.logState.loadErr.Error(), styles.DangerText)
	}

	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d lines", len(m.logState.visible())), styles.FaintText),
		bg.Render("level "+m.logState.levelLabel(), styles.MutedText),
		bg.Render("auto-tail "+autoTail, styles.FaintText),
	}
	return strings.Join(parts, bg.Space()+bg.Render("•", styles.FaintText)+bg.Space())
}

// renderLogContent colors each entry by level and highlights the current
// search match.
func (m *Model) renderLogContent() string {
	entries := m.logState.visible()
	if len(entries) == 0 {
		bg := NewBgStyle(m.theme.FocusBg)
		return bg.Render("No log entries yet", m.theme.Styles().FaintText)
	}

	current := -1
	if len(m.logState.searchMatches) > 0 {
		current = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		bgColor := m.theme.FocusBg
		if i == current {
			bgColor = m.theme.SelectionBg
		}
		lines[i] = m.formatLogEntry(e, NewBgStyle(bgColor))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) formatLogEntry(e logtail.Entry, bg BgStyle) string {
	styles := m.theme.Styles()
	if e.Level == "" && e.Message == "" {
		return bg.Render(e.Raw, styles.MutedText)
	}

	levelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(strings.ToLower(e.Level)))).Bold(true)
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(bg.Render(e.Time.Format("15:04:05"), styles.FaintText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(padRight(e.Level, 5), levelStyle))
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(e.Message, styles.Text))
	for _, a := range e.Attrs {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(a.Key+"=", styles.MutedText))
		style := styles.InfoText
		if a.Key == "error" {
			style = styles.DangerText
		}
		b.WriteString(bg.Render(a.Value, style))
	}
	return b.String()
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.levelIdx = (m.logState.levelIdx + 1) % len(logLevels)
		m.findSearchMatches()
		m.updateLogViewport()
	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		return m, m.logState.searchInput.Focus()
	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)
	case key.Matches(msg, m.keys.Escape):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		m.currentView = ViewPosts
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false
	}
	return m, nil
}

func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.logState.searchInput.Value()
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		if query == "" {
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			m.errorMsg = "invalid search pattern"
			return m, nil
		}
		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.findSearchMatches()
		m.scrollToSearchMatch()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
}

// findSearchMatches indexes visible entries whose raw line matches.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
	if m.logState.searchRegex == nil {
		return
	}
	for i, e := range m.logState.visible() {
		if m.logState.searchRegex.MatchString(e.Raw) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
}

func (m *Model) stepSearchMatch(step int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = (m.logState.searchMatchIdx + step + n) % n
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch centers the current match when it can.
func (m *Model) scrollToSearchMatch() {
	if len(m.logState.searchMatches) == 0 {
		return
	}
	m.logState.follow = false
	target := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}

package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/wp"
)

const (
	colID       = 6
	colStatus   = 9
	colCategory = 16
	colDate     = 12
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// plainText strips markup from rendered post content.
func plainText(rendered string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(rendered, " "))
}

// posts returns the posts of the current view in server order.
func (m Model) posts() []wp.Post {
	return m.snapshot.View.Posts
}

// selectedPost returns the highlighted post, if any.
func (m Model) selectedPost() (wp.Post, bool) {
	posts := m.posts()
	if m.selectedRow < 0 || m.selectedRow >= len(posts) {
		return wp.Post{}, false
	}
	return posts[m.selectedRow], true
}

// clampSelection keeps the cursor inside the list after a refresh.
func (m *Model) clampSelection() {
	n := len(m.posts())
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// handlePostsKey processes navigation and post actions.
func (m Model) handlePostsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NewPost):
		return m.openEditor(0)
	case key.Matches(msg, m.keys.EditPost):
		if p, ok := m.selectedPost(); ok {
			return m.openEditor(p.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.DeletePost):
		if p, ok := m.selectedPost(); ok {
			return m.openDelete(p)
		}
		return m, nil
	}

	if m.focusedPane == 1 {
		switch {
		case key.Matches(msg, m.keys.Down):
			m.detailViewport.ScrollDown(1)
		case key.Matches(msg, m.keys.Up):
			m.detailViewport.ScrollUp(1)
		case key.Matches(msg, m.keys.HalfPageDown):
			m.detailViewport.HalfPageDown()
		case key.Matches(msg, m.keys.HalfPageUp):
			m.detailViewport.HalfPageUp()
		case key.Matches(msg, m.keys.Top):
			m.detailViewport.GotoTop()
		case key.Matches(msg, m.keys.Bottom):
			m.detailViewport.GotoBottom()
		}
		return m, nil
	}

	count := len(m.posts())
	if count == 0 {
		return m, nil
	}
	prev := m.selectedRow
	half := max(m.tableRows()/2, 1)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.selectedRow = min(m.selectedRow+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.selectedRow = max(m.selectedRow-1, 0)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow = min(m.selectedRow+half, count-1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow = max(m.selectedRow-half, 0)
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	}
	if m.selectedRow != prev {
		m.updateDetailViewport()
	}
	return m, nil
}

// paneWidths splits the screen between table and detail.
func (m Model) paneWidths() (table, detail int) {
	if m.width >= LayoutExtraWideWidth {
		table = m.width * 55 / 100
	} else {
		table = m.width * 60 / 100
	}
	return table, m.width - table
}

// contentHeight is the space left under the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-2, 3)
}

// tableRows is how many post rows fit in the table box.
func (m Model) tableRows() int {
	return max(m.contentHeight()-3, 1) // borders + column header
}

func (m *Model) initDetailViewport() {
	_, detailWidth := m.paneWidths()
	m.detailViewport = viewport.New(max(detailWidth-4, 1), max(m.contentHeight()-2, 1))
}

// updateDetailViewport re-renders the detail pane for the selection.
func (m *Model) updateDetailViewport() {
	_, detailWidth := m.paneWidths()
	m.detailViewport.Width = max(detailWidth-4, 1)
	m.detailViewport.Height = max(m.contentHeight()-2, 1)

	bgColor := m.theme.SurfaceAlt
	if m.focusedPane == 1 {
		bgColor = m.theme.FocusBg
	}
	m.detailViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(bgColor))

	post, ok := m.selectedPost()
	if !ok {
		m.detailViewport.SetContent("")
		return
	}
	if post.ID != m.detailPostID {
		m.detailViewport.GotoTop()
		m.detailPostID = post.ID
	}
	m.detailViewport.SetContent(m.renderDetailContent(post, m.detailViewport.Width, bgColor))
}

// renderPosts renders the table and detail panes side by side.
func (m Model) renderPosts() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if !m.snapshot.HasView {
		msg := styles.WarningText.Render("Loading posts...")
		if m.snapshot.LastError != nil {
			msg = styles.DangerText.Render("Could not load posts: " + wp.UserMessage(m.snapshot.LastError))
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, msg)
	}
	if len(m.posts()) == 0 {
		msg := styles.MutedText.Render("No posts yet. Press n to write one.")
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	tableWidth, detailWidth := m.paneWidths()

	tableFocused := m.focusedPane == 0
	tableBg := m.theme.SurfaceAlt
	if tableFocused {
		tableBg = m.theme.FocusBg
	}
	table := m.renderPostTable(tableWidth-2, tableBg)
	tablePane := m.renderTitledBox(m.postsTitle(), table, tableWidth, height, tableFocused)

	detailPane := m.renderTitledBox("Details", m.detailViewport.View(), detailWidth, height, !tableFocused)

	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, detailPane)
}

func (m Model) postsTitle() string {
	counts := map[wp.Status]int{}
	for _, p := range m.posts() {
		counts[p.Status]++
	}
	return fmt.Sprintf("Posts (%d) · %d published · %d drafts · %d trashed",
		len(m.posts()), counts[wp.StatusPublish], counts[wp.StatusDraft], counts[wp.StatusTrash])
}

// renderPostTable renders the column header and the visible window of rows.
func (m Model) renderPostTable(width int, bgColor string) string {
	posts := m.posts()
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()
	showDate := width >= LayoutDateWidth

	titleWidth := m.titleColumnWidth(width, showDate)
	header := padRight("ID", colID) + " " + padRight("STATUS", colStatus) + " " +
		padRight("TITLE", titleWidth) + " " + padRight("CATEGORY", colCategory)
	if showDate {
		header += " " + "DATE"
	}
	lines := []string{bg.FillLine(bg.Render(header, styles.FaintText.Bold(true)), width)}

	rows := m.tableRows()
	start := 0
	if m.selectedRow >= rows {
		start = m.selectedRow - rows + 1
	}
	end := min(start+rows, len(posts))

	for i := start; i < end; i++ {
		selected := i == m.selectedRow
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatPostRow(posts[i], titleWidth, showDate, rowBg, selected)
		lines = append(lines, NewBgStyle(rowBg).FillLine(content, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) titleColumnWidth(width int, showDate bool) int {
	fixed := colID + colStatus + colCategory + 3
	if showDate {
		fixed += colDate + 1
	}
	return max(width-fixed, 8)
}

// formatPostRow formats one row. Selected rows use SelectionText for
// everything except the status badge so they stay readable.
func (m Model) formatPostRow(post wp.Post, titleWidth int, showDate bool, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	idStyle, titleStyle, catStyle, dateStyle := styles.MutedText, styles.Text, styles.InfoText, styles.FaintText
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		idStyle, titleStyle, catStyle, dateStyle = sel, sel.Bold(true), sel, sel
	}

	title := post.Title.Display()
	if title == "" {
		title = "(untitled)"
	}
	status := string(post.Status)

	row := bg.Render(padRight(fmt.Sprintf("#%d", post.ID), colID), idStyle) + bg.Space() +
		styles.StatusBadge(status).Render(padRight(truncate(status, colStatus-2), colStatus-2)) + bg.Space() +
		bg.Render(padRight(truncate(singleLine(title), titleWidth), titleWidth), titleStyle) + bg.Space() +
		bg.Render(padRight(truncate(m.snapshot.View.CategoryName(post), colCategory), colCategory), catStyle)
	if showDate {
		row += bg.Space() + bg.Render(formatPostDate(post.ParsedDate(), m.dateLocale), dateStyle)
	}
	return row
}

// renderDetailContent renders the selected post's fields and a content
// preview.
func (m Model) renderDetailContent(post wp.Post, width int, bgColor string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	field := func(label, value string, style lipgloss.Style) string {
		return bg.Render(padRight(label, 10), styles.MutedText) + bg.Render(truncateMiddle(value, max(width-10, 4)), style)
	}

	title := post.Title.Display()
	if title == "" {
		title = "(untitled)"
	}

	var lines []string
	for _, l := range wrapText(title, width) {
		lines = append(lines, bg.Render(l, styles.Text.Bold(true)))
	}
	lines = append(lines, "")
	lines = append(lines,
		bg.Render(padRight("Status", 10), styles.MutedText)+styles.StatusBadge(string(post.Status)).Render(string(post.Status)),
		field("ID", fmt.Sprintf("#%d", post.ID), styles.Text),
		field("Category", m.snapshot.View.CategoryName(post), styles.InfoText),
		field("Date", formatPostDate(post.ParsedDate(), m.dateLocale), styles.Text),
	)

	imageURL := m.snapshot.View.MediaURL(post.ID)
	imageStyle := styles.AccentText
	if post.HasFeaturedMedia() && imageURL == m.placeholderURL {
		imageStyle = styles.WarningText
	} else if !post.HasFeaturedMedia() {
		imageStyle = styles.FaintText
	}
	lines = append(lines, field("Image", imageURL, imageStyle))
	if post.HasFeaturedMedia() {
		lines = append(lines, field("Media", fmt.Sprintf("#%d", post.FeaturedMedia), styles.FaintText))
	}

	lines = append(lines, "", bg.Render("Content", styles.AccentText.Bold(true)))
	content := plainText(post.Content.Display())
	if content == "" {
		lines = append(lines, bg.Render("(empty)", styles.FaintText))
	} else {
		for _, l := range wrapText(content, width) {
			lines = append(lines, bg.Render(l, styles.Text))
		}
	}

	for i, l := range lines {
		lines[i] = bg.FillLine(l, width)
	}
	return strings.Join(lines, "\n")
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)
	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	lineStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	rows := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		rows = append(rows, bg.Render("│", borderStyle)+lineStyle.Render(line)+bg.Render("│", borderStyle))
	}

	return top + "\n" + strings.Join(rows, "\n") + "\n" + bottom
}

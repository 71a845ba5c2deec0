package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/editor"
	"github.com/five82/quill/internal/wp"
)

// Editor form fields in focus order.
const (
	fieldTitle = iota
	fieldCategory
	fieldContent
	fieldImage
	fieldStatus
	fieldCount
)

var editableStatuses = []wp.Status{wp.StatusPublish, wp.StatusDraft}

type preloadMsg struct {
	gen    int
	loaded editor.Preloaded
	err    error
}

func (m preloadMsg) generation() int { return m.gen }

type submitDoneMsg struct {
	gen    int
	post    *wp.Post
	closed  bool
	warning error
	err     error
}

func (m submitDoneMsg) generation() int { return m.gen }

// editorModal is the create/edit form for one post.
type editorModal struct {
	modalBase
	mode   editor.Mode
	postID int

	editor  PostEditor
	refresh func(ctx context.Context) error

	title      textinput.Model
	content    textarea.Model
	image      textinput.Model
	categories []wp.Category
	categoryID int
	status     wp.Status

	focus      int
	loading    bool
	submitting bool
	imageURL   string
	notice     string
}

func newEditorModal(base modalBase, mode editor.Mode, postID int, ed PostEditor, categories []wp.Category, refresh func(ctx context.Context) error) editorModal {
	title := textinput.New()
	title.Placeholder = "Post title"
	title.CharLimit = 200
	title.Width = editorModalWidth - 20
	title.Prompt = ""

	content := textarea.New()
	content.Placeholder = "Write something..."
	content.ShowLineNumbers = false
	content.CharLimit = 0
	content.SetWidth(editorModalWidth - 8)
	content.SetHeight(8)

	image := textinput.New()
	image.Placeholder = "/path/to/image.jpg (optional)"
	image.CharLimit = 1024
	image.Width = editorModalWidth - 20
	image.Prompt = ""

	form := editor.DefaultForm()
	e := editorModal{
		modalBase:  base,
		mode:       mode,
		postID:     postID,
		editor:     ed,
		refresh:    refresh,
		title:      title,
		content:    content,
		image:      image,
		categories: categories,
		status:     form.Status,
		loading:    mode == editor.ModeEdit,
	}
	e.setFocus(fieldTitle)
	return e
}

// start kicks off the preload for an edit; a create has nothing to fetch.
func (e editorModal) start() tea.Cmd {
	if e.mode != editor.ModeEdit {
		return textinput.Blink
	}
	ctx, gen, id, ed := e.ctx, e.gen, e.postID, e.editor
	return func() tea.Msg {
		loaded, err := ed.Preload(ctx, id)
		return preloadMsg{gen: gen, loaded: loaded, err: err}
	}
}

func (e editorModal) form() editor.Form {
	return editor.Form{
		Title:      e.title.Value(),
		CategoryID: e.categoryID,
		Content:    e.content.Value(),
		ImagePath:  strings.TrimSpace(e.image.Value()),
		Status:     e.status,
	}
}

func (e *editorModal) apply(form editor.Form) {
	e.title.SetValue(form.Title)
	e.content.SetValue(form.Content)
	e.image.SetValue(form.ImagePath)
	e.categoryID = form.CategoryID
	e.status = form.Status
}

func (e *editorModal) setFocus(field int) {
	e.focus = (field + fieldCount) % fieldCount
	e.title.Blur()
	e.content.Blur()
	e.image.Blur()
	switch e.focus {
	case fieldTitle:
		e.title.Focus()
	case fieldContent:
		e.content.Focus()
	case fieldImage:
		e.image.Focus()
	}
}

func (e editorModal) categoryIndex() int {
	for i, c := range e.categories {
		if c.ID == e.categoryID {
			return i
		}
	}
	return -1
}

func (e *editorModal) cycleCategory(step int) {
	if len(e.categories) == 0 {
		return
	}
	idx := e.categoryIndex()
	if idx < 0 {
		idx = 0
		if step < 0 {
			idx = len(e.categories) - 1
		}
	} else {
		idx = (idx + step + len(e.categories)) % len(e.categories)
	}
	e.categoryID = e.categories[idx].ID
}

func (e *editorModal) cycleStatus() {
	if e.status == wp.StatusPublish {
		e.status = wp.StatusDraft
	} else {
		e.status = wp.StatusPublish
	}
}

func (e editorModal) submit() tea.Cmd {
	ctx, gen, mode, id, form, ed, refresh := e.ctx, e.gen, e.mode, e.postID, e.form(), e.editor, e.refresh
	return func() tea.Msg {
		closed := false
		var warning error
		post, err := ed.Submit(ctx, mode, id, form, editor.Hooks{
			Refresh: refresh,
			Close:   func() { closed = true },
			Warn:    func(w error) { warning = w },
		})
		return submitDoneMsg{gen: gen, post: post, closed: closed, warning: warning, err: err}
	}
}

func (e editorModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case preloadMsg:
		e.loading = false
		if msg.err != nil {
			e.notice = "Could not load post: " + wp.UserMessage(msg.err)
		}
		e.apply(msg.loaded.Form)
		e.imageURL = msg.loaded.ImageURL
		e.setFocus(fieldTitle)
		return e, textinput.Blink, false

	case submitDoneMsg:
		e.submitting = false
		if msg.err != nil {
			return e, alertCmd(e.failureTitle(), wp.UserMessage(msg.err)), false
		}
		cmd := tea.Cmd(viewChangedCmd)
		if msg.warning != nil {
			cmd = tea.Batch(viewChangedCmd, alertCmd("Image not uploaded", wp.UserMessage(msg.warning)))
		}
		return e, cmd, msg.closed

	case tea.KeyMsg:
		return e.handleKey(msg, keys)
	}

	return e.updateFocused(msg)
}

func (e editorModal) handleKey(msg tea.KeyMsg, keys keyMap) (Modal, tea.Cmd, bool) {
	if key.Matches(msg, keys.Escape) {
		return e, nil, true
	}
	if e.loading || e.submitting {
		return e, nil, false
	}

	switch {
	case key.Matches(msg, keys.Submit):
		e.submitting = true
		e.notice = ""
		return e, e.submit(), false
	case key.Matches(msg, keys.NextField):
		e.setFocus(e.focus + 1)
		return e, nil, false
	case key.Matches(msg, keys.PrevField):
		e.setFocus(e.focus - 1)
		return e, nil, false
	}

	switch e.focus {
	case fieldCategory:
		switch {
		case key.Matches(msg, keys.PrevOption, keys.Up):
			e.cycleCategory(-1)
		case key.Matches(msg, keys.NextOption, keys.Down):
			e.cycleCategory(1)
		}
		return e, nil, false
	case fieldStatus:
		if key.Matches(msg, keys.PrevOption, keys.NextOption, keys.Up, keys.Down) {
			e.cycleStatus()
		}
		return e, nil, false
	case fieldTitle, fieldImage:
		if key.Matches(msg, keys.Confirm) {
			e.setFocus(e.focus + 1)
			return e, nil, false
		}
	}

	return e.updateFocused(msg)
}

func (e editorModal) updateFocused(msg tea.Msg) (Modal, tea.Cmd, bool) {
	var cmd tea.Cmd
	switch e.focus {
	case fieldTitle:
		e.title, cmd = e.title.Update(msg)
	case fieldContent:
		e.content, cmd = e.content.Update(msg)
	case fieldImage:
		e.image, cmd = e.image.Update(msg)
	}
	return e, cmd, false
}

func (e editorModal) failureTitle() string {
	if e.mode == editor.ModeEdit {
		return fmt.Sprintf("Could not update post #%d", e.postID)
	}
	return "Could not create post"
}

func (e editorModal) heading() string {
	if e.mode == editor.ModeEdit {
		return fmt.Sprintf("Edit post #%d", e.postID)
	}
	return "New post"
}

func (e editorModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	labelWidth := 10

	label := func(field int, text string) string {
		style := styles.MutedText.Width(labelWidth)
		if field == e.focus {
			style = styles.AccentText.Bold(true).Width(labelWidth)
		}
		return style.Render(text)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(e.heading()))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", editorModalWidth-6)))
	b.WriteString("\n\n")

	if e.loading {
		b.WriteString(styles.WarningText.Render("Loading post..."))
		b.WriteString("\n")
		return renderModal(theme, theme.Accent, b.String(), editorModalWidth, width, height)
	}

	b.WriteString(label(fieldTitle, "Title") + e.title.View())
	b.WriteString("\n\n")

	b.WriteString(label(fieldCategory, "Category") + e.renderCategory(theme, styles))
	b.WriteString("\n\n")

	b.WriteString(label(fieldContent, "Content"))
	b.WriteString("\n")
	b.WriteString(e.content.View())
	b.WriteString("\n\n")

	b.WriteString(label(fieldImage, "Image") + e.image.View())
	b.WriteString("\n")
	if e.imageURL != "" {
		b.WriteString(styles.FaintText.Render(strings.Repeat(" ", labelWidth) + "current " + truncateMiddle(e.imageURL, editorModalWidth-labelWidth-14)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(label(fieldStatus, "Status") + e.renderStatus(styles))
	b.WriteString("\n\n")

	if e.notice != "" {
		b.WriteString(styles.WarningText.Render(truncate(e.notice, editorModalWidth-6)))
		b.WriteString("\n\n")
	}

	if e.submitting {
		b.WriteString(styles.WarningText.Render("Saving..."))
	} else {
		hints := []string{
			styles.AccentText.Render("ctrl+s") + styles.MutedText.Render(" Save"),
			styles.AccentText.Render("tab") + styles.MutedText.Render(" Next field"),
			styles.AccentText.Render("esc") + styles.MutedText.Render(" Cancel"),
		}
		b.WriteString(strings.Join(hints, "  "))
	}

	return renderModal(theme, theme.Accent, b.String(), editorModalWidth, width, height)
}

func (e editorModal) renderCategory(theme Theme, styles Styles) string {
	if len(e.categories) == 0 {
		return styles.DangerText.Render("no categories loaded")
	}
	idx := e.categoryIndex()
	name := "Select category"
	nameStyle := styles.FaintText
	if idx >= 0 {
		name = e.categories[idx].Name
		nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Text))
	}
	arrows := styles.MutedText
	if e.focus == fieldCategory {
		arrows = styles.AccentText
	}
	return arrows.Render("‹ ") + nameStyle.Render(name) + arrows.Render(" ›")
}

func (e editorModal) renderStatus(styles Styles) string {
	parts := make([]string, 0, len(editableStatuses))
	for _, s := range editableStatuses {
		if s == e.status {
			parts = append(parts, styles.StatusBadge(string(s)).Render(string(s)))
		} else {
			parts = append(parts, styles.FaintText.Render(" "+string(s)+" "))
		}
	}
	return strings.Join(parts, " ")
}

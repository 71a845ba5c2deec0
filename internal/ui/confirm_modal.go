package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/listing"
	"github.com/five82/quill/internal/wp"
)

type deleteDoneMsg struct {
	gen    int
	postID int
	err    error
}

func (m deleteDoneMsg) generation() int { return m.gen }

// confirmDeleteModal asks before a post is permanently deleted. The delete
// itself runs as soon as the modal opens and blocks inside the confirm
// callback until an answer arrives on the channel or the modal closes.
type confirmDeleteModal struct {
	modalBase
	postID   int
	title    string
	answer   chan bool
	answered bool
}

func newConfirmDeleteModal(base modalBase, post wp.Post) confirmDeleteModal {
	return confirmDeleteModal{
		modalBase: base,
		postID:    post.ID,
		title:     post.Title.Display(),
		answer:    make(chan bool, 1),
	}
}

// start runs the delete against sync and reports back under this modal's
// generation.
func (c confirmDeleteModal) start(sync Sync) tea.Cmd {
	ctx, gen, id, answer := c.ctx, c.gen, c.postID, c.answer
	return func() tea.Msg {
		err := sync.DeletePost(ctx, id, func(int) bool {
			select {
			case ok := <-answer:
				return ok
			case <-ctx.Done():
				return false
			}
		})
		return deleteDoneMsg{gen: gen, postID: id, err: err}
	}
}

func (c confirmDeleteModal) reply(ok bool) {
	select {
	case c.answer <- ok:
	default:
	}
}

func (c confirmDeleteModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if c.answered {
			return c, nil, false
		}
		switch {
		case key.Matches(msg, keys.Yes):
			c.reply(true)
			c.answered = true
			return c, nil, false
		case key.Matches(msg, keys.No):
			c.reply(false)
			return c, nil, true
		}

	case deleteDoneMsg:
		switch {
		case errors.Is(msg.err, listing.ErrCancelled):
			return c, nil, true
		case msg.err != nil:
			return c, alertCmd("Delete failed", wp.UserMessage(msg.err)), true
		default:
			return c, viewChangedCmd, true
		}
	}
	return c, nil, false
}

func (c confirmDeleteModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Delete post"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(fmt.Sprintf("Permanently delete #%d?", c.postID)))
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render(truncate(c.title, confirmModalWidth-6)))
	b.WriteString("\n\n")
	if c.answered {
		b.WriteString(styles.WarningText.Render("Deleting..."))
	} else {
		b.WriteString(styles.AccentText.Render("y") + styles.MutedText.Render(" Delete  ") +
			styles.AccentText.Render("n") + styles.MutedText.Render(" Cancel"))
	}

	return renderModal(theme, theme.Warning, b.String(), confirmModalWidth, width, height)
}

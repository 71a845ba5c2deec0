package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool
// indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string

	// Gen identifies this modal instance. Async results carry it back.
	Gen() int
	// Cancel stops any work the modal started.
	Cancel()
}

// modalBase carries the lifetime shared by every modal: a generation id
// and a context cancelled when the modal closes.
type modalBase struct {
	gen    int
	ctx    context.Context
	cancel context.CancelFunc
}

func newModalBase(parent context.Context, gen int) modalBase {
	ctx, cancel := context.WithCancel(parent)
	return modalBase{gen: gen, ctx: ctx, cancel: cancel}
}

func (b modalBase) Gen() int { return b.gen }

func (b modalBase) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
}

// genMsg is implemented by messages that belong to one modal instance.
type genMsg interface {
	generation() int
}

// alertMsg asks the root model to open an alert on top of the stack.
type alertMsg struct {
	title string
	text  string
}

func alertCmd(title, text string) tea.Cmd {
	return func() tea.Msg { return alertMsg{title: title, text: text} }
}

// viewChangedMsg tells the root model the store holds a new view.
type viewChangedMsg struct{}

func viewChangedCmd() tea.Msg { return viewChangedMsg{} }

// renderModal draws a bordered box centered on screen.
func renderModal(theme Theme, border string, content string, modalWidth, width, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(modalWidth).
		Render(content)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// pushModal adds modal to the top of the stack.
func (m *Model) pushModal(modal Modal) {
	m.modals = append(m.modals, modal)
}

// nextGen hands out a fresh generation id.
func (m *Model) nextGen() int {
	m.gen++
	return m.gen
}

// modalIndex finds the open modal with gen, or -1.
func (m Model) modalIndex(gen int) int {
	for i, modal := range m.modals {
		if modal.Gen() == gen {
			return i
		}
	}
	return -1
}

// closeModal removes the modal at i and cancels its context.
func (m *Model) closeModal(i int) {
	if i < 0 || i >= len(m.modals) {
		return
	}
	m.modals[i].Cancel()
	m.modals = append(m.modals[:i:i], m.modals[i+1:]...)
}

// updateModal routes msg to the modal at i and applies the result.
func (m Model) updateModal(i int, msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd, closed := m.modals[i].Update(msg, m.keys)
	if closed {
		m.closeModal(i)
		return m, cmd
	}
	m.modals[i] = updated
	return m, cmd
}

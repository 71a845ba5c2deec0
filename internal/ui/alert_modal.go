package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// alertModal shows a failure and waits for acknowledgement.
type alertModal struct {
	modalBase
	title string
	text  string
}

func newAlertModal(base modalBase, title, text string) alertModal {
	return alertModal{modalBase: base, title: title, text: text}
}

func (a alertModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, keys.Confirm, keys.Escape) {
			return a, nil, true
		}
	}
	return a, nil, false
}

func (a alertModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.DangerText.Render(a.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(strings.Join(wrapText(a.text, alertModalWidth-6), "\n")))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("enter") + styles.MutedText.Render(" OK"))

	return renderModal(theme, theme.Danger, b.String(), alertModalWidth, width, height)
}

package ui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/wp"
)

// renderHeader renders the status bar: site, session, counts, freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("quill", styles.Logo)}

	if m.siteURL != "" && !compact {
		parts = append(parts, bg.Render(truncateMiddle(m.siteURL, 40), styles.MutedText))
	}

	if seg := m.sessionSegment(styles, bg, time.Now()); seg != "" {
		parts = append(parts, seg)
	}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case m.snapshot.HasView:
		parts = append(parts, bg.Pair("Posts:", strconv.Itoa(len(m.snapshot.View.Posts)), styles.MutedText, styles.Text))
	case m.syncing:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	}

	if m.syncing && m.snapshot.HasView {
		parts = append(parts, bg.Render("↻", styles.InfoText))
	}

	if ts := formatRelative(m.snapshot.LastUpdated, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render(classifyError(err), styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(wp.UserMessage(err), maxErr), styles.DangerText))
	}

	if m.errorMsg != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.errorMsg, 50), styles.WarningText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(m.width).
		MaxHeight(1).
		Render(bg.Join(parts, "  "))
}

// sessionSegment shows who the token belongs to and when it expires.
func (m Model) sessionSegment(styles Styles, bg BgStyle, now time.Time) string {
	if m.claims == nil {
		return ""
	}
	claims, ok := m.claims.Claims()
	if !ok {
		return bg.Render("○ signed out", styles.WarningText)
	}
	user := "user " + claims.UserID
	if m.username != "" {
		user = m.username
	}
	if claims.Expired(now) {
		return bg.Render("● "+user, styles.DangerText) + bg.Space() + bg.Render("token expired", styles.DangerText)
	}
	seg := bg.Render("● "+user, styles.SuccessText)
	if !claims.ExpiresAt.IsZero() {
		seg += bg.Space() + bg.Render("until "+claims.ExpiresAt.Format("Jan 2 15:04"), styles.FaintText)
	}
	return seg
}

// classifyError returns a short label for a refresh failure.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	var remote *wp.RemoteError
	if errors.As(err, &remote) {
		switch remote.Status {
		case 401, 403:
			return "AUTH"
		case 404:
			return "NOT FOUND"
		}
		return "HTTP " + strconv.Itoa(remote.Status)
	}
	if errors.Is(err, wp.ErrAuthMissing) {
		return "AUTH"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"f", "Level " + m.logState.levelLabel()},
			{"p", "Posts"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"n", "New"},
			{"e", "Edit"},
			{"d", "Delete"},
			{"r", "Refresh"},
			{"j/k", "Navigate"},
			{"Tab", "Focus"},
			{"L", "Log"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.currentView == ViewLogs && m.logState.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(bg.Join(segments, "  "))
}

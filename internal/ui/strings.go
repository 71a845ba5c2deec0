package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// truncate shortens value to limit runes, ending in an ellipsis.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of value, which suits paths and URLs where
// the file name matters most.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	const ellipsis = "…"
	if limit <= 5 {
		return string(runes[:limit])
	}
	keep := limit - 1
	tail := keep * 2 / 3
	head := keep - tail
	return string(runes[:head]) + ellipsis + string(runes[len(runes)-tail:])
}

// padRight pads s with spaces to width runes.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if width <= 0 || n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// singleLine collapses whitespace runs, including newlines, to one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wrapText hard-wraps s to width runes per line, breaking on spaces where
// it can. Existing newlines are kept.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var cur []rune
		for _, w := range words {
			wr := []rune(w)
			for len(wr) > width {
				if len(cur) > 0 {
					lines = append(lines, string(cur))
					cur = nil
				}
				lines = append(lines, string(wr[:width]))
				wr = wr[width:]
			}
			switch {
			case len(cur) == 0:
				cur = append(cur, wr...)
			case len(cur)+1+len(wr) <= width:
				cur = append(cur, ' ')
				cur = append(cur, wr...)
			default:
				lines = append(lines, string(cur))
				cur = append([]rune(nil), wr...)
			}
		}
		if len(cur) > 0 {
			lines = append(lines, string(cur))
		}
	}
	return lines
}

// formatPostDate renders t in the configured locale. Unknown locales render
// in English.
func formatPostDate(t time.Time, locale string) string {
	if t.IsZero() {
		return "-"
	}
	return monday.Format(t, "02 Jan 2006", monday.Locale(locale))
}

// formatRelative renders how long ago t was, in the header's short form.
func formatRelative(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	clock := t.Format("15:04:05")
	switch {
	case d < time.Minute:
		return clock + " (now)"
	case d < time.Hour:
		return clock + " (" + strconv.Itoa(int(d.Minutes())) + "m ago)"
	case d < 24*time.Hour:
		return clock + " (" + strconv.Itoa(int(d.Hours())) + "h ago)"
	default:
		return clock
	}
}

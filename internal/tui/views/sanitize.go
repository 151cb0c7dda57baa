package views

import (
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/readmark"
)

// clean prepares user-supplied text for a tview cell: emoji modifiers that
// tcell renders at the wrong width are dropped and color tags are escaped.
func clean(s string) string {
	return tview.Escape(strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F3FB && r <= 0x1F3FF, // skin tones
			r == 0x200D, // zero width joiner
			r >= 0xFE00 && r <= 0xFE0F,
			r >= 0xE0100 && r <= 0xE01EF:
			return -1
		}
		return r
	}, s))
}

// formatTimestamp renders a server timestamp as a clock time for today and a
// date otherwise. Unparseable values are shown as received.
func formatTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := readmark.ParseTimestamp(raw)
	if !ok {
		return raw
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02 Jan")
}

// firstLine returns the first line of s, for previews.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

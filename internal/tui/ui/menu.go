package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu displays the current screen's keyboard shortcuts.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints one per line.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	keyColor := colorName(m.theme.MenuKeyColor)
	actionColor := colorName(m.theme.ActionKeyColor)

	for _, h := range hints {
		kc := keyColor
		if h.Action {
			kc = actionColor
		}
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", kc, tview.Escape(h.Key), h.Description)
	}
}

package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays the product name in the header.
type Logo struct {
	*tview.TextView
	theme *Theme
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 0, 1)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	l.render()
	return l
}

func (l *Logo) render() {
	title := colorName(l.theme.TitleColor)
	muted := colorName(l.theme.MutedColor)

	_, _ = fmt.Fprintf(l,
		"[%s::b]╺┳╸╻ ╻╻┏┓╻┏┓ ╻ ╻[-:-:-]\n"+
			"[%s::b] ┃ ┃╻┃┃┃┗┫┣┻┓┗┳┛[-:-:-]\n"+
			"[%s::b] ╹ ┗┻┛╹╹ ╹┗━┛ ╹ [-:-:-]\n"+
			"[%s]meet your twin[-:-:-]",
		title, title, title, muted,
	)
}

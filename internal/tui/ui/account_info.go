package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// AccountData is what the header shows about the signed-in user.
type AccountData struct {
	Workspace string
	Backend   string
	// Name is empty until the profile has been fetched or when signed out.
	Name     string
	SignedIn bool
	Unread   int
}

// AccountInfo displays account metadata in the header.
type AccountInfo struct {
	*tview.TextView
	theme *Theme
}

// NewAccountInfo creates a new account info panel.
func NewAccountInfo(theme *Theme) *AccountInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &AccountInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the account info.
func (ai *AccountInfo) Update(data AccountData) {
	ai.Clear()

	fg := colorName(ai.theme.FgColor)
	counter := colorName(ai.theme.CounterColor)

	user := "signed out"
	if data.SignedIn {
		user = data.Name
		if user == "" {
			user = "-"
		}
	}
	unread := fmt.Sprintf("[%s]%d[-]", counter, data.Unread)
	if data.Unread > 0 {
		unread = fmt.Sprintf("[%s::b]%d[-:-:-]", colorName(ai.theme.UnreadColor), data.Unread)
	}

	_, _ = fmt.Fprintf(ai,
		"[%s::b]Workspace:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Backend:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]      [%s]%s[-]\n"+
			"[%s::b]Unread:[-:-:-]    %s",
		fg, counter, tview.Escape(data.Workspace),
		fg, counter, tview.Escape(data.Backend),
		fg, counter, tview.Escape(user),
		fg, unread,
	)
}

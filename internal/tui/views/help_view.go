package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/tui/ui"
)

// HelpView displays the key and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Anywhere", [][2]string{
		{"f", "Discover people"},
		{"c", "Chats"},
		{"p", "My profile"},
		{":", "Command mode"},
		{"?", "This help"},
		{"Esc / q", "Back"},
		{"Ctrl-C", "Quit"},
	}},
	{"Discover", [][2]string{
		{"l / →", "Like (a match opens a chat)"},
		{"h / ←", "Skip"},
		{"r", "Load more profiles"},
	}},
	{"Chats", [][2]string{
		{"Enter", "Open conversation or support"},
		{"/", "Filter by name or message"},
		{"r", "Refresh now"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus the composer"},
		{"Enter", "Send"},
		{"/attach <path>", "Upload a file and send its link"},
		{"//text", "Send text starting with /"},
	}},
	{"Commands", [][2]string{
		{":feed", "Discover"},
		{":chats", "Chats"},
		{":support", "Support"},
		{":profile", "My profile"},
		{":logout", "Sign out of this workspace"},
		{":quit / :q", "Quit"},
	}},
}

func (hv *HelpView) render() {
	kc := colorHex(hv.theme.MenuKeyColor)

	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-16s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}

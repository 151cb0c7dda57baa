package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/tui/ui"
)

// FeedView shows one candidate profile at a time.
type FeedView struct {
	*tview.TextView
	theme   *ui.Theme
	queue   []api.Profile
	loading bool
}

// NewFeedView creates the discovery screen.
func NewFeedView(theme *ui.Theme) *FeedView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Discover ")
	tv.SetTitleColor(theme.TitleColor)

	fv := &FeedView{TextView: tv, theme: theme}
	fv.render()
	return fv
}

// Name implements ui.Component.
func (fv *FeedView) Name() string { return "Discover" }

// Hints implements ui.Component.
func (fv *FeedView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "l/→", Description: "Like", Action: true},
		{Key: "h/←", Description: "Skip", Action: true},
		{Key: "r", Description: "Reload"},
	}
}

// SetLoading marks a fetch in flight.
func (fv *FeedView) SetLoading(loading bool) {
	fv.loading = loading
	fv.render()
}

// SetProfiles replaces the queue.
func (fv *FeedView) SetProfiles(profiles []api.Profile) {
	fv.queue = profiles
	fv.loading = false
	fv.render()
}

// Current returns the profile on screen.
func (fv *FeedView) Current() (api.Profile, bool) {
	if len(fv.queue) == 0 {
		return api.Profile{}, false
	}
	return fv.queue[0], true
}

// Advance drops the profile on screen and returns how many are left.
func (fv *FeedView) Advance() int {
	if len(fv.queue) > 0 {
		fv.queue = fv.queue[1:]
	}
	fv.render()
	return len(fv.queue)
}

func (fv *FeedView) render() {
	fv.Clear()
	muted := colorHex(fv.theme.MutedColor)

	p, ok := fv.Current()
	if !ok {
		fv.SetTitle(" Discover ")
		msg := "No one new right now. Press r to look again."
		if fv.loading {
			msg = "Looking for people…"
		}
		_, _ = fmt.Fprintf(fv, "\n\n  [%s]%s[-]", muted, msg)
		return
	}

	fv.SetTitle(fmt.Sprintf(" Discover (%d) ", len(fv.queue)))
	title := colorHex(fv.theme.TitleColor)
	counter := colorHex(fv.theme.CounterColor)

	var b strings.Builder
	fmt.Fprintf(&b, "\n  [%s::b]%s[-:-:-], [%s]%d[-]  [%s]%s[-]\n\n", title, clean(p.Name), counter, p.Age, muted, clean(p.Gender))
	if p.About != "" {
		fmt.Fprintf(&b, "  %s\n\n", clean(p.About))
	}
	if len(p.Interests) > 0 {
		tags := make([]string, len(p.Interests))
		for i, in := range p.Interests {
			tags[i] = "#" + in
		}
		fmt.Fprintf(&b, "  [%s]%s[-]\n\n", colorHex(fv.theme.AssistantColor), clean(strings.Join(tags, " ")))
	}
	if p.PhotoURL != "" {
		fmt.Fprintf(&b, "  [%s]photo: %s[-]\n", muted, clean(p.PhotoURL))
	}
	_, _ = fmt.Fprint(fv, b.String())
}

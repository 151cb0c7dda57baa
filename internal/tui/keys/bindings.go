package keys

import (
	"slices"

	"github.com/gdamore/tcell/v2"

	"github.com/tinkering/twinby/internal/tui/ui"
)

// Action is a keybinding and its handler.
type Action struct {
	Key  tcell.Key
	Rune rune
	// Hint is shown in the menu; a zero Hint keeps the binding hidden.
	Hint    ui.MenuHint
	Handler func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings per page, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddView registers a binding active on one page.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = append(r.views[view], action)
}

// Hints returns the visible hints for a page: page bindings first.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, a := range slices.Concat(r.views[view], r.global) {
		if a.Hint.Key != "" {
			hints = append(hints, a.Hint)
		}
	}
	return hints
}

// HandleEvent runs the first binding matching ev, page bindings before
// global ones. It reports whether one matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, a := range r.views[view] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}

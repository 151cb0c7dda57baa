package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/tinkering/twinby/internal/tui/ui"
)

func TestViewBindingsWinOverGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'r', Hint: ui.MenuHint{Key: "r", Description: "global"}, Handler: func() { got = "global" }})
	r.AddView("feed", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() { got = "feed" }})
	r.AddView("feed", &Action{Key: tcell.KeyLeft, Handler: func() { got = "left" }})

	tests := []struct {
		view string
		ev   *tcell.EventKey
		want string
		ok   bool
	}{
		{"feed", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), "feed", true},
		{"chats", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), "global", true},
		{"feed", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), "left", true},
		{"feed", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), "", false},
	}
	for _, tt := range tests {
		got = ""
		if ok := r.HandleEvent(tt.view, tt.ev); ok != tt.ok || got != tt.want {
			t.Errorf("%s %v: handled %v by %q, want %v by %q", tt.view, tt.ev.Name(), ok, got, tt.ok, tt.want)
		}
	}
}

func TestHintsSkipHidden(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Hint: ui.MenuHint{Key: "q", Description: "Quit"}})
	r.AddView("feed", &Action{Key: tcell.KeyRune, Rune: 'l', Hint: ui.MenuHint{Key: "l", Description: "Like"}})
	r.AddView("feed", &Action{Key: tcell.KeyRight})

	hints := r.Hints("feed")
	if len(hints) != 2 || hints[0].Key != "l" || hints[1].Key != "q" {
		t.Fatalf("Hints = %+v", hints)
	}
}

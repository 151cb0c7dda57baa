package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// ttl is how long a message of each level stays on screen.
func (l FlashLevel) ttl() time.Duration {
	switch l {
	case FlashWarn:
		return 6 * time.Second
	case FlashErr:
		return 8 * time.Second
	default:
		return 4 * time.Second
	}
}

// FlashMessage is one transient notification. Repeat counts how many times
// the same text was raised while it was still showing.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Repeat  int
	Expires time.Time
}

// FlashModel holds the notification shown under the pages. It is safe to
// raise messages from the sync goroutines.
type FlashModel struct {
	mu      sync.Mutex
	current FlashMessage
	changed chan struct{}
	now     func() time.Time
}

// NewFlashModel creates an empty flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{changed: make(chan struct{}, 1), now: time.Now}
}

// Info raises an informational message.
func (f *FlashModel) Info(msg string) { f.raise(msg, FlashInfo) }

// Warn raises a warning.
func (f *FlashModel) Warn(msg string) { f.raise(msg, FlashWarn) }

// Err shows err the way the backend phrased it, prefixed with what failed.
func (f *FlashModel) Err(what string, err error) {
	f.raise(what+": "+api.UserMessage(err), FlashErr)
}

func (f *FlashModel) raise(msg string, level FlashLevel) {
	now := f.now()
	f.mu.Lock()
	if f.current.Text == msg && f.current.Level == level && now.Before(f.current.Expires) {
		f.current.Repeat++
	} else {
		f.current = FlashMessage{Text: msg, Level: level, Repeat: 1}
	}
	f.current.Expires = now.Add(level.ttl())
	f.mu.Unlock()

	select {
	case f.changed <- struct{}{}:
	default:
	}
}

// Current returns the showing message, or nil once it has expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch signals whenever a message is raised. Signals coalesce; read
// Current for the message itself.
func (f *FlashModel) Watch() <-chan struct{} {
	return f.changed
}

// FlashBar renders the current flash message on one line.
type FlashBar struct {
	*tview.TextView
	colors map[FlashLevel]tcell.Color
}

// NewFlashBar creates the flash line.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{
		TextView: tv,
		colors: map[FlashLevel]tcell.Color{
			FlashInfo: theme.FlashInfoColor,
			FlashWarn: theme.FlashWarnColor,
			FlashErr:  theme.FlashErrColor,
		},
	}
}

// Update renders msg, or clears the bar when msg is nil.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}
	text := tview.Escape(msg.Text)
	if msg.Repeat > 1 {
		text += fmt.Sprintf(" (x%d)", msg.Repeat)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", colorName(fb.colors[msg.Level]), text)
}

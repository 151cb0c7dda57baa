package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/status"
	"github.com/tinkering/twinby/internal/sync"
	"github.com/tinkering/twinby/internal/tui/ui"
)

// thread is a scrolling message pane above a composer.
type thread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
}

func newThread(theme *ui.Theme, title, composerTitle string) *thread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(title)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(composerTitle)
	composer.SetTitleColor(theme.TitleColor)

	t := &thread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || t.onSend == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			t.onSend(text)
			composer.SetText("")
		}
	})
	return t
}

// SetOnSend sets the callback run with the composer text on Enter.
func (t *thread) SetOnSend(fn func(text string)) {
	t.onSend = fn
}

// Messages returns the message pane (for focus management).
func (t *thread) Messages() *tview.TextView {
	return t.messages
}

// Composer returns the composer input field (for focus management).
func (t *thread) Composer() *tview.InputField {
	return t.composer
}

func (t *thread) writeMessage(sender string, color tcell.Color, at, text string) {
	_, _ = fmt.Fprintf(t.messages, "[%s::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
		colorHex(color), clean(sender),
		colorHex(t.theme.MutedColor), formatTimestamp(at),
		clean(text))
}

// MessageThread shows one conversation and its composer.
type MessageThread struct {
	*thread
	conversationID string
	name           string
}

// NewMessageThread creates a new conversation view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	return &MessageThread{thread: newThread(theme, " Messages ", " Message (i to focus, /attach <path>) ")}
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string {
	if mt.name != "" {
		return mt.name
	}
	return "Chat"
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Enter", Description: "Send", Action: true},
		{Key: "Esc", Description: "Back"},
	}
}

// Reset prepares the view for another conversation.
func (mt *MessageThread) Reset(conversationID, name string) {
	mt.conversationID = conversationID
	mt.name = name
	mt.messages.Clear()
	mt.composer.SetText("")
	mt.messages.SetTitle(fmt.Sprintf(" %s ", clean(name)))
}

// ConversationID returns the conversation shown.
func (mt *MessageThread) ConversationID() string {
	return mt.conversationID
}

// Update renders a snapshot. me is the signed-in user's id.
func (mt *MessageThread) Update(snap sync.Snapshot, me string) {
	if snap.ConversationID != mt.conversationID {
		return
	}
	if snap.Summary != nil && snap.Summary.CounterpartName != "" {
		mt.name = snap.Summary.CounterpartName
	}

	title := " " + clean(mt.name) + " "
	switch {
	case snap.Pending:
		title += "[::d]sending…[-:-:-] "
	case snap.State == status.Loading:
		title += "[::d]loading…[-:-:-] "
	}
	mt.messages.SetTitle(title)

	mt.messages.Clear()
	if len(snap.Messages) == 0 {
		switch {
		case snap.Err != nil:
			_, _ = fmt.Fprintf(mt.messages, "\n  [%s]Could not load messages: %s[-]\n  Retrying…",
				colorHex(mt.theme.FlashErrColor), tview.Escape(api.UserMessage(snap.Err)))
		case snap.State != status.Loading:
			_, _ = fmt.Fprint(mt.messages, "\n  No messages yet. Say hi!")
		}
		return
	}
	for _, m := range snap.Messages {
		sender, color := mt.name, mt.theme.PeerMessageColor
		if m.SenderID == me {
			sender, color = "You", mt.theme.OwnMessageColor
		}
		mt.writeMessage(sender, color, m.CreatedAt, m.Text)
	}
	mt.messages.ScrollToEnd()
}

// SupportThread shows the support conversation.
type SupportThread struct {
	*thread
}

// NewSupportThread creates the support view.
func NewSupportThread(theme *ui.Theme) *SupportThread {
	return &SupportThread{thread: newThread(theme, " Support ", " Question (i to focus) ")}
}

// Name implements ui.Component.
func (st *SupportThread) Name() string { return "Support" }

// Hints implements ui.Component.
func (st *SupportThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Ask"},
		{Key: "Enter", Description: "Send", Action: true},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders the thread.
func (st *SupportThread) Update(msgs []api.SupportMessage, sending bool) {
	title := " Support "
	if sending {
		title += "[::d]waiting for an answer…[-:-:-] "
	}
	st.messages.SetTitle(title)

	st.messages.Clear()
	if len(msgs) == 0 {
		_, _ = fmt.Fprint(st.messages, "\n  Ask anything about twinby. An assistant answers right away.")
		return
	}
	for _, m := range msgs {
		sender, color := "You", st.theme.OwnMessageColor
		if m.Role == api.RoleAssistant {
			sender, color = "Support", st.theme.AssistantColor
		}
		st.writeMessage(sender, color, m.CreatedAt, m.Text)
	}
	st.messages.ScrollToEnd()
}

func colorHex(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}

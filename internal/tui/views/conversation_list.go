package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/sync"
	"github.com/tinkering/twinby/internal/tui/ui"
)

// SupportRowID is what Selected returns for the pinned support row.
const SupportRowID = "support"

// ConversationList is the conversation table with the support thread pinned
// on top and an unread dot per conversation.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	items   []sync.ChatListItem
	support *api.SupportMessage
	filter  string
	// rowIDs maps table rows to conversation ids; row 0 is the header.
	rowIDs []string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Chats" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "r", Description: "Refresh"},
	}
}

// Update replaces the rows. support is the newest support message, if any.
func (cl *ConversationList) Update(items []sync.ChatListItem, support *api.SupportMessage) {
	cl.items = items
	cl.support = support
	cl.render()
}

// SetFilter keeps only conversations whose name or preview contains filter.
// An empty filter shows everything.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

// Selected returns the conversation id under the cursor, SupportRowID for the
// support row, or "" on the header.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	if row <= 0 || row >= len(cl.rowIDs) {
		return ""
	}
	return cl.rowIDs[row]
}

// Item returns the held row for a conversation id.
func (cl *ConversationList) Item(id string) (sync.ChatListItem, bool) {
	for _, it := range cl.items {
		if it.Summary.ConversationID == id {
			return it, true
		}
	}
	return sync.ChatListItem{}, false
}

func (cl *ConversationList) render() {
	selected := cl.Selected()
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" ", 0},
		{"NAME", 1},
		{"LAST MESSAGE", 3},
		{"TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}
	cl.rowIDs = []string{""}

	preview, at := "Questions about the app? Ask here.", ""
	if cl.support != nil {
		preview, at = firstLine(cl.support.Text), cl.support.CreatedAt
	}
	cl.addRow("★", cl.theme.AssistantColor, "Support", preview, at, SupportRowID)

	shown := 0
	for _, it := range cl.items {
		s := it.Summary
		if cl.filter != "" && !containsFold(s.CounterpartName, cl.filter) && !containsFold(s.LastText(), cl.filter) {
			continue
		}
		dot := " "
		if it.Unread {
			dot = "●"
		}
		text := firstLine(s.LastText())
		if s.LastMessageText == nil {
			text = "It's a match! Say hi."
		}
		cl.addRow(dot, cl.theme.UnreadColor, s.CounterpartName, text, s.LastAt(), s.ConversationID)
		shown++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", shown, len(cl.items), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.items)))
	}

	row := 1
	for i, id := range cl.rowIDs {
		if id == selected && i > 0 {
			row = i
		}
	}
	cl.Select(row, 0)
}

func (cl *ConversationList) addRow(mark string, markColor tcell.Color, name, preview, at, id string) {
	row := len(cl.rowIDs)
	fg := cl.theme.FgColor
	cl.SetCell(row, 0, tview.NewTableCell(mark).SetTextColor(markColor))
	cl.SetCell(row, 1, tview.NewTableCell(clean(name)).SetExpansion(1).SetTextColor(fg).SetAttributes(tcell.AttrBold))
	cl.SetCell(row, 2, tview.NewTableCell(clean(preview)).SetExpansion(3).SetTextColor(fg).SetMaxWidth(60))
	cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(at)).SetTextColor(cl.theme.MutedColor).SetAlign(tview.AlignRight))
	cl.rowIDs = append(cl.rowIDs, id)
}

package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main view: one row per conversation, most recent
// first.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	rows   []convindex.Conversation
	total  int
	filter string
	now    func() time.Time
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
		now:   time.Now,
	}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// FocusTarget implements ui.Component.
func (cl *ConversationList) FocusTarget() tview.Primitive { return cl.Table }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "1-9", Description: "Jump"},
	}
}

// Update shows rows, already filtered, out of total conversations.
func (cl *ConversationList) Update(rows []convindex.Conversation, total int, filter string) {
	selected, _ := cl.SelectedPeer()
	cl.rows, cl.total, cl.filter = rows, total, filter
	cl.render()
	for i, c := range rows {
		if c.PeerID == selected.ID {
			cl.Select(i+1, 0)
			return
		}
	}
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" PHONE", 0},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	for i, c := range cl.rows {
		row := i + 1
		name := c.PeerName
		if name == "" {
			name = c.PeerID
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+display(name)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+display(orDash(c.PeerPhone))).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+display(c.LastMessage)).SetExpansion(2).SetMaxWidth(60).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastTs, now)+" ").SetAlign(tview.AlignRight).SetTextColor(cl.theme.CounterColor))
	}

	switch {
	case cl.filter != "":
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) /%s ", len(cl.rows), cl.total, tview.Escape(cl.filter)))
	case cl.total == 0:
		cl.SetTitle(" Conversations (0) press n to start one ")
	default:
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", cl.total))
	}
}

// SelectedPeer returns the peer of the highlighted row.
func (cl *ConversationList) SelectedPeer() (convindex.Peer, bool) {
	row, _ := cl.GetSelection()
	return cl.PeerByIndex(row)
}

// PeerByIndex returns the peer of the nth visible row, 1-based.
func (cl *ConversationList) PeerByIndex(n int) (convindex.Peer, bool) {
	if n < 1 || n > len(cl.rows) {
		return convindex.Peer{}, false
	}
	return cl.rows[n-1].Peer(), true
}

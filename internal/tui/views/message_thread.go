package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays one conversation's log and a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	peer     convindex.Peer
	onSend   func(text string)
	onLeave  func()
	now      func() time.Time
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("type a message, Enter to send")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, false).
		AddItem(composer, 3, 0, true)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := composer.GetText()
			if strings.TrimSpace(text) == "" || mt.onSend == nil {
				return
			}
			mt.onSend(text)
			composer.SetText("")
		case tcell.KeyEscape:
			if mt.onLeave != nil {
				mt.onLeave()
			}
		}
	})

	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string { return "Thread" }

// FocusTarget implements ui.Component.
func (mt *MessageThread) FocusTarget() tview.Primitive { return mt.composer }

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Esc", Description: "Leave composer"},
	}
}

// SetOnSend sets the callback for a submitted message.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetOnLeave sets the callback for Esc inside the composer.
func (mt *MessageThread) SetOnLeave(fn func()) {
	mt.onLeave = fn
}

// Peer returns the conversation shown.
func (mt *MessageThread) Peer() convindex.Peer {
	return mt.peer
}

// Update renders msgs, oldest first. owner is the signed-in user id.
func (mt *MessageThread) Update(owner string, peer convindex.Peer, msgs []msglog.Message) {
	if peer.ID != mt.peer.ID {
		mt.composer.SetText("")
	}
	mt.peer = peer
	title := peer.Name
	if title == "" {
		title = peer.ID
	}
	if peer.Phone != "" {
		title += " · " + peer.Phone
	}
	mt.messages.SetTitle(" " + display(title) + " ")

	mt.messages.Clear()
	if len(msgs) == 0 {
		_, _ = fmt.Fprint(mt.messages, "\n [::d]No messages yet. Say hi![-:-:-]")
		return
	}
	now := mt.now()
	var b strings.Builder
	for _, m := range msgs {
		sender, color := peer.Name, mt.theme.PeerMessageColor
		if sender == "" {
			sender = peer.ID
		}
		mark := ""
		if m.Outgoing(owner) {
			sender, color = "You", mt.theme.OwnMessageColor
			mark = " " + mt.mark(m.Status)
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			ui.ColorName(color), display(sender), formatTimestamp(m.TS, now), mark,
			tview.Escape(sanitizeForTerminal(m.Text, true)))
	}
	_, _ = fmt.Fprint(mt.messages, b.String())
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) mark(s msglog.Status) string {
	color := mt.theme.SentColor
	if s == msglog.Pending {
		color = mt.theme.PendingColor
	}
	return fmt.Sprintf("[%s]%s[-]", ui.ColorName(color), statusMark(s))
}

// Messages returns the log view.
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field.
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// SessionData is what the header shows about the daemon.
type SessionData struct {
	Profile       string
	Name          string
	Phone         string
	State         string
	Attempts      int
	Conversations int
	Uptime        time.Duration
}

// Header is the top bar: session info, key hints and a logo, with the
// breadcrumb trail underneath.
type Header struct {
	*tview.Flex
	theme   *Theme
	session *tview.TextView
	menu    *tview.TextView
	logo    *tview.TextView
	crumbs  *tview.TextView
}

// HeaderHeight is the number of rows the header occupies.
const HeaderHeight = 6

// NewHeader creates the header bar.
func NewHeader(theme *Theme) *Header {
	h := &Header{
		theme:   theme,
		session: newText(theme),
		menu:    newText(theme),
		logo:    newText(theme),
		crumbs:  newText(theme),
	}
	h.session.SetBorderPadding(0, 0, 1, 1)
	h.menu.SetBorderPadding(0, 0, 2, 0)
	h.logo.SetTextAlign(tview.AlignRight)
	h.renderLogo()

	top := tview.NewFlex().
		AddItem(h.session, 0, 2, false).
		AddItem(h.menu, 0, 3, false).
		AddItem(h.logo, 20, 0, false)
	h.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, HeaderHeight-1, 0, false).
		AddItem(h.crumbs, 1, 0, false)
	return h
}

func newText(theme *Theme) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return tv
}

func (h *Header) renderLogo() {
	tc := ColorName(h.theme.TitleColor)
	fg := ColorName(h.theme.FgColor)
	_, _ = fmt.Fprintf(h.logo,
		"[%s::b]╔═╗╦╔═╗╔╦╗╔═╗[-:-:-]\n"+
			"[%s::b]╚═╗║║ ╦║║║╠═╣[-:-:-]\n"+
			"[%s::b]╚═╝╩╚═╝╩ ╩╩ ╩[-:-:-]\n"+
			"[%s]chat[-:-:-] ",
		tc, tc, tc, fg)
}

// SetSession renders the session panel. A nil data clears it.
func (h *Header) SetSession(data *SessionData) {
	h.session.Clear()
	if data == nil {
		return
	}
	fg := ColorName(h.theme.FgColor)
	ct := ColorName(h.theme.CounterColor)
	st := ColorName(h.theme.StateColor(data.State))

	user := "-"
	if data.Name != "" {
		user = tview.Escape(data.Name)
		if data.Phone != "" {
			user += " (" + tview.Escape(data.Phone) + ")"
		}
	}
	state := data.State
	if data.Attempts > 0 && data.State != "CONNECTED" {
		state = fmt.Sprintf("%s #%d", state, data.Attempts)
	}

	_, _ = fmt.Fprintf(h.session,
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, ct, tview.Escape(data.Profile),
		fg, ct, user,
		fg, st, state,
		fg, ct, data.Conversations,
		fg, ct, formatDuration(data.Uptime),
	)
}

// SetHints renders key hints in two columns.
func (h *Header) SetHints(hints []MenuHint) {
	h.menu.Clear()
	kc := ColorName(h.theme.MenuKeyColor)
	rows := HeaderHeight - 1
	lines := make([]string, rows)
	for i, hint := range hints {
		cell := fmt.Sprintf("[%s::b]<%s>[-:-:-] %-12s", kc, hint.Key, hint.Description)
		lines[i%rows] += cell
	}
	_, _ = fmt.Fprint(h.menu, strings.Join(lines, "\n"))
}

// SetCrumbs renders the page stack as a breadcrumb trail.
func (h *Header) SetCrumbs(stack []string) {
	h.crumbs.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg := h.theme.CrumbInactiveFg, h.theme.CrumbInactiveBg
		if i == len(stack)-1 {
			fg, bg = h.theme.CrumbActiveFg, h.theme.CrumbActiveBg
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:b] %s [-:-:-]", ColorName(fg), ColorName(bg), tview.Escape(name)))
	}
	_, _ = fmt.Fprint(h.crumbs, " "+strings.Join(parts, " "))
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

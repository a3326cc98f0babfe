package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/sigma/internal/contact"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactCard shows a user's details and their contact link as a QR code.
type ContactCard struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactCard creates the contact card page.
func NewContactCard(theme *ui.Theme) *ContactCard {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)

	return &ContactCard{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (cc *ContactCard) Name() string { return "Contact" }

// FocusTarget implements ui.Component.
func (cc *ContactCard) FocusTarget() tview.Primitive { return cc.TextView }

// Hints implements ui.Component.
func (cc *ContactCard) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders peer. self marks the signed-in user's own card.
func (cc *ContactCard) Update(peer convindex.Peer, self bool) {
	cc.Clear()
	fg := ui.ColorName(cc.theme.FgColor)
	ct := ui.ColorName(cc.theme.CounterColor)

	link := contact.Link(peer)
	var b strings.Builder
	fmt.Fprintf(&b, "\n [%s::b]Name:[-:-:-]  [%s]%s[-]\n", fg, ct, display(orDash(peer.Name)))
	fmt.Fprintf(&b, " [%s::b]Phone:[-:-:-] [%s]%s[-]\n", fg, ct, display(orDash(peer.Phone)))
	fmt.Fprintf(&b, " [%s::b]ID:[-:-:-]    [%s]%s[-]\n", fg, ct, display(peer.ID))
	fmt.Fprintf(&b, " [%s::b]Link:[-:-:-]  [%s]%s[-]\n\n", fg, ct, tview.Escape(link))

	qr, err := contact.RenderQR(link)
	if err != nil {
		fmt.Fprintf(&b, " [::d](QR unavailable: %s)[-:-:-]\n", tview.Escape(err.Error()))
	} else {
		b.WriteString(indent(qr, "  "))
		if self {
			b.WriteString("\n [::d]Share this code so others can start a chat with you.[-:-:-]\n")
		}
	}
	_, _ = fmt.Fprint(cc, b.String())
	cc.ScrollToBeginning()

	title := " Contact "
	if self {
		title = " My contact card "
	} else if peer.Name != "" {
		title = " " + display(peer.Name) + " "
	}
	cc.SetTitle(title)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

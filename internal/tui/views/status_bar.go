package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar is the bottom line: profile, connection state and clock.
type StatusBar struct {
	*tview.TextView
	theme    *ui.Theme
	profile  string
	state    string
	attempts int
	user     string
	now      func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, state: "DISCONNECTED", now: time.Now}
}

// SetProfile updates the profile name.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetState updates the connection state and reconnect attempt count.
func (sb *StatusBar) SetState(state string, attempts int) {
	sb.state, sb.attempts = state, attempts
	sb.render()
}

// SetUser updates the signed-in user label. Empty means signed out.
func (sb *StatusBar) SetUser(user string) {
	sb.user = user
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	user := sb.user
	if user == "" {
		user = "signed out"
	}
	state := sb.state
	if state == "" {
		state = "UNKNOWN"
	}
	if sb.attempts > 0 && state != "CONNECTED" {
		state = fmt.Sprintf("%s (retry %d)", state, sb.attempts)
	}
	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-] | %s | [%s]● %s[-] | %s",
		tview.Escape(sb.profile), display(user),
		ui.ColorName(sb.theme.StateColor(sb.state)), state,
		sb.now().Format("15:04"))
}

package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// UserPicker lists the directory so the user can start a conversation.
type UserPicker struct {
	*tview.Table
	theme  *ui.Theme
	users  []backend.User
	filter string
}

// NewUserPicker creates the user directory table.
func NewUserPicker(theme *ui.Theme) *UserPicker {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	up := &UserPicker{Table: table, theme: theme}
	up.render()
	return up
}

// Name implements ui.Component.
func (up *UserPicker) Name() string { return "Users" }

// FocusTarget implements ui.Component.
func (up *UserPicker) FocusTarget() tview.Primitive { return up.Table }

// Hints implements ui.Component.
func (up *UserPicker) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Chat"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update shows users matching filter.
func (up *UserPicker) Update(users []backend.User, filter string) {
	up.users, up.filter = users, filter
	up.render()
	if len(users) > 0 {
		up.Select(1, 0)
	}
}

func (up *UserPicker) render() {
	up.Clear()
	for col, h := range []string{" NAME", " PHONE", " ID"} {
		up.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(up.theme.TableHeaderFg).
			SetBackgroundColor(up.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}
	for i, u := range up.users {
		up.SetCell(i+1, 0, tview.NewTableCell(" "+display(u.Name)).SetExpansion(1).SetTextColor(up.theme.FgColor))
		up.SetCell(i+1, 1, tview.NewTableCell(" "+display(orDash(u.Phone))).SetExpansion(1).SetTextColor(up.theme.FgColor))
		up.SetCell(i+1, 2, tview.NewTableCell(" "+display(u.ID)).SetExpansion(1).SetTextColor(up.theme.CounterColor))
	}

	title := fmt.Sprintf(" Users (%d) ", len(up.users))
	if up.filter != "" {
		title = fmt.Sprintf(" Users (%d) /%s ", len(up.users), tview.Escape(up.filter))
	}
	if len(up.users) == 0 && up.filter == "" {
		title = " Users (none available) "
	}
	up.SetTitle(title)
}

// SelectedPeer returns the highlighted user as a conversation peer.
func (up *UserPicker) SelectedPeer() (convindex.Peer, bool) {
	row, _ := up.GetSelection()
	if row < 1 || row > len(up.users) {
		return convindex.Peer{}, false
	}
	u := up.users[row-1]
	return convindex.Peer{ID: u.ID, Name: u.Name, Phone: u.Phone}, true
}

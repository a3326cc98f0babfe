// Package tui is the terminal front end. It renders the daemon's state and
// forwards user actions to it; all state lives in the daemon.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/contact"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/tui/keys"
	"github.com/matheus3301/sigma/internal/tui/model"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/matheus3301/sigma/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageAuth          = "Sign in"
	pageConversations = "Conversations"
	pageUsers         = "Users"
	pageThread        = "Thread"
	pageContact       = "Contact"
	pageHelp          = "Help"

	callTimeout = 15 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	vm       *model.ViewModel
	theme    *ui.Theme
	registry *keys.Registry

	root   *tview.Pages
	body   *tview.Flex
	header *ui.Header
	pages  *ui.Pages
	prompt *ui.Prompt
	flash  *ui.FlashBar
	status *views.StatusBar

	auth   *views.AuthForm
	convs  *views.ConversationList
	users  *views.UserPicker
	thread *views.MessageThread
	card   *views.ContactCard
	help   *views.HelpView

	filters    map[string]string
	promptPage string
	modalOpen  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for one profile's daemon.
func NewApp(d model.Daemon, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		vm:       model.NewViewModel(d),
		theme:    theme,
		registry: keys.NewRegistry(),
		header:   ui.NewHeader(theme),
		pages:    ui.NewPages(),
		prompt:   ui.NewPrompt(theme),
		flash:    ui.NewFlashBar(theme),
		status:   views.NewStatusBar(theme),
		auth:     views.NewAuthForm(theme),
		convs:    views.NewConversationList(theme),
		users:    views.NewUserPicker(theme),
		thread:   views.NewMessageThread(theme),
		card:     views.NewContactCard(theme),
		help:     views.NewHelpView(theme),
		filters:  make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.status.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.help.Update(a.helpSections())
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(
		keys.Rune(':', "Command", func() { a.showPrompt(ui.PromptCommand) }),
		keys.Rune('?', "Help", func() { a.pages.Push(pageHelp) }),
		keys.Key(tcell.KeyEscape, "Back", a.back),
		keys.Rune('q', "Quit", func() {
			if len(a.pages.Stack()) > 1 {
				a.back()
				return
			}
			a.Stop()
		}),
	)

	a.registry.AddView(pageConversations,
		keys.Rune('/', "Filter", func() { a.showPrompt(ui.PromptFilter) }),
		keys.Rune('n', "New chat", a.showUsers),
		keys.Rune('d', "Delete", a.confirmDelete),
		keys.Rune('w', "Who am I", a.showSelf),
		keys.Rune('0', "All", func() { a.setFilter(pageConversations, "") }),
	)
	for n := 1; n <= 9; n++ {
		jump := &keys.Action{Key: tcell.KeyRune, Rune: rune('0' + n), Hidden: true, Handler: func() {
			if peer, ok := a.convs.PeerByIndex(n); ok {
				a.openThread(peer)
			}
		}}
		a.registry.AddView(pageConversations, jump)
	}

	a.registry.AddView(pageUsers,
		keys.Rune('/', "Filter", func() { a.showPrompt(ui.PromptFilter) }),
		keys.Rune('r', "Reload", a.showUsers),
	)

	a.registry.AddView(pageThread,
		keys.Rune('i', "Compose", func() { a.app.SetFocus(a.thread.Composer()) }),
		keys.Rune('c', "Contact", a.showPeerCard),
		keys.Key(tcell.KeyCtrlL, "Clear", a.confirmClear),
	)
}

func (a *App) setupCallbacks() {
	a.auth.SetOnSubmit(a.submitAuth)

	a.convs.SetSelectedFunc(func(row, _ int) {
		if peer, ok := a.convs.PeerByIndex(row); ok {
			a.openThread(peer)
		}
	})
	a.users.SetSelectedFunc(func(_, _ int) {
		if peer, ok := a.users.SelectedPeer(); ok {
			a.openThread(peer)
		}
	})

	a.thread.SetOnSend(a.send)
	a.thread.SetOnLeave(func() { a.app.SetFocus(a.thread.Messages()) })

	a.prompt.SetCompletions(commandNames())
	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.setFilter(a.promptPage, text)
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.runCommand(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.setFilter(a.promptPage, "")
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(top ui.Component, stack []string) {
		a.header.SetCrumbs(stack)
		if top == nil {
			return
		}
		a.header.SetHints(append(top.Hints(), a.registry.Hints(top.Name())...))
		a.app.SetFocus(top.FocusTarget())
	})
}

func (a *App) setupLayout() {
	for _, c := range []ui.Component{a.auth, a.convs, a.users, a.thread, a.card, a.help} {
		a.pages.Add(c)
	}

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, ui.HeaderHeight, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flash, 1, 0, false).
		AddItem(a.status, 1, 0, false)

	a.root = tview.NewPages().AddPage("main", a.body, true, true)
	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if a.modalOpen || a.pages.Current() == pageAuth {
		return ev
	}
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return ev
	}
	if a.registry.HandleEvent(a.pages.Current(), ev) {
		return nil
	}
	return ev
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.pages.Reset(pageConversations)
	go a.bootstrap()
	go a.vm.Watch(a.ctx, a.onChange)
	go a.tick()
	defer a.cancel()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(a.ctx, callTimeout)
}

func (a *App) bootstrap() {
	ctx, cancel := a.call()
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		a.vm.Flash.Err("Daemon unreachable: " + api.ErrorMessage(err))
		a.app.QueueUpdateDraw(a.renderFlash)
		return
	}
	if !a.vm.Status().SignedIn {
		a.app.QueueUpdateDraw(a.showAuth)
		return
	}
	a.loadHome()
}

// loadHome refreshes everything a signed-in user sees and shows the list.
func (a *App) loadHome() {
	ctx, cancel := a.call()
	defer cancel()
	_ = a.vm.LoadStatus(ctx)
	if err := a.vm.LoadConversations(ctx); err != nil {
		a.vm.Flash.Warn("Could not load conversations: " + api.ErrorMessage(err))
	}
	a.app.QueueUpdateDraw(func() {
		a.auth.Reset()
		a.pages.Reset(pageConversations)
		a.renderAll()
	})
}

func (a *App) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
		if n%30 == 0 {
			ctx, cancel := a.call()
			_ = a.vm.LoadStatus(ctx)
			cancel()
		}
		a.app.QueueUpdateDraw(func() {
			a.renderStatus()
			a.renderFlash()
		})
	}
}

// onChange runs on the watch goroutine.
func (a *App) onChange(c model.Change) {
	if c&model.ChangeStatus != 0 {
		go func() {
			ctx, cancel := a.call()
			defer cancel()
			if a.vm.LoadStatus(ctx) == nil {
				a.app.QueueUpdateDraw(a.renderStatus)
			}
		}()
	}
	a.app.QueueUpdateDraw(func() {
		if c&model.ChangeSession != 0 {
			a.syncSession()
		}
		if c&model.ChangeConversations != 0 {
			a.renderConversations()
		}
		if c&model.ChangeThread != 0 {
			a.renderThread()
		}
		a.renderStatus()
		a.renderFlash()
	})
}

func (a *App) syncSession() {
	signedIn := a.vm.Status().SignedIn
	switch {
	case !signedIn && a.pages.Current() != pageAuth:
		a.showAuth()
	case signedIn && a.pages.Current() == pageAuth:
		go a.loadHome()
	}
}

func (a *App) showAuth() {
	a.hidePrompt()
	a.auth.Reset()
	a.pages.Reset(pageAuth)
	a.renderAll()
}

func (a *App) submitAuth(c views.Credentials) {
	a.auth.SetBusy(true)
	go func() {
		ctx, cancel := a.call()
		defer cancel()
		var err error
		if c.Mode == views.ModeRegister {
			err = a.vm.Register(ctx, strings.TrimSpace(c.Name), strings.TrimSpace(c.Phone), c.Password)
		} else {
			err = a.vm.Login(ctx, strings.TrimSpace(c.Phone), c.Password)
		}
		if err != nil {
			a.app.QueueUpdateDraw(func() {
				a.auth.SetBusy(false)
				a.auth.ShowError(api.ErrorMessage(err))
			})
			return
		}
		a.vm.Flash.Info("Signed in as " + a.vm.Status().Name)
		a.loadHome()
	}()
}

func (a *App) openThread(peer convindex.Peer) {
	go func() {
		ctx, cancel := a.call()
		defer cancel()
		if err := a.vm.OpenThread(ctx, peer); err != nil {
			a.vm.Flash.Err("Could not open conversation: " + api.ErrorMessage(err))
			a.app.QueueUpdateDraw(a.renderFlash)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.renderThread()
			if a.pages.Current() == pageUsers {
				a.pages.Pop()
			}
			a.pages.Push(pageThread)
		})
	}()
}

func (a *App) send(text string) {
	go func() {
		ctx, cancel := a.call()
		defer cancel()
		if err := a.vm.Send(ctx, text); err != nil {
			a.vm.Flash.Err(err.Error())
		}
		a.app.QueueUpdateDraw(func() {
			a.renderThread()
			a.renderFlash()
		})
	}()
}

func (a *App) showUsers() {
	a.pages.Push(pageUsers)
	a.users.Update(nil, a.filters[pageUsers])
	go func() {
		ctx, cancel := a.call()
		defer cancel()
		if err := a.vm.LoadUsers(ctx); err != nil {
			a.app.QueueUpdateDraw(func() {
				a.showAuth()
				a.auth.ShowError("Session expired, sign in again")
			})
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.renderUsers()
			a.renderFlash()
		})
	}()
}

func (a *App) showSelf() {
	st := a.vm.Status()
	if !st.SignedIn {
		return
	}
	a.card.Update(convindex.Peer{ID: st.UserID, Name: st.Name, Phone: st.Phone}, true)
	a.pages.Push(pageContact)
}

func (a *App) showPeerCard() {
	if peer, ok := a.vm.Thread(); ok {
		a.card.Update(peer, false)
		a.pages.Push(pageContact)
	}
}

func (a *App) back() {
	if a.pages.Current() == pageThread {
		go func() {
			ctx, cancel := a.call()
			defer cancel()
			_ = a.vm.CloseThread(ctx)
		}()
	}
	a.pages.Pop()
}

func (a *App) confirmDelete() {
	peer, ok := a.convs.SelectedPeer()
	if !ok {
		return
	}
	a.confirm(fmt.Sprintf("Delete the conversation with %s?", label(peer)), func() {
		a.async("Delete failed", func(ctx context.Context) error {
			return a.vm.DeleteConversation(ctx, peer.ID)
		})
	})
}

func (a *App) confirmClear() {
	peer, ok := a.vm.Thread()
	if !ok {
		return
	}
	a.confirm(fmt.Sprintf("Erase all messages with %s?", label(peer)), func() {
		a.async("Clear failed", a.vm.ClearThread)
	})
}

func (a *App) confirmLogout() {
	a.confirm("Sign out and wipe this profile's local data?", func() {
		a.async("Logout failed", a.vm.Logout)
	})
}

// confirm shows a yes/no modal and runs yes on confirmation.
func (a *App) confirm(question string, yes func()) {
	modal := tview.NewModal().
		SetText(question).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(_ int, button string) {
			a.root.RemovePage("confirm")
			a.modalOpen = false
			if top := a.pages.Top(); top != nil {
				a.app.SetFocus(top.FocusTarget())
			}
			if button == "Yes" {
				yes()
			}
		})
	a.modalOpen = true
	a.root.AddPage("confirm", modal, true, true)
	a.app.SetFocus(modal)
}

// async runs fn off the UI goroutine and flashes its error. Results arrive
// through the event stream.
func (a *App) async(failure string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := a.call()
		defer cancel()
		if err := fn(ctx); err != nil {
			a.vm.Flash.Err(failure + ": " + api.ErrorMessage(err))
			a.app.QueueUpdateDraw(a.renderFlash)
		}
	}()
}

func (a *App) runCommand(input string) {
	cmd, err := ParseCommand(input).Resolve()
	if err != nil {
		a.vm.Flash.Warn(err.Error())
		a.renderFlash()
		return
	}
	switch cmd.Name {
	case "chat":
		a.chatCommand(cmd.Args)
	case "new":
		a.showUsers()
	case "chats":
		a.pages.Reset(pageConversations)
	case "clear":
		a.confirmClear()
	case "delete":
		a.confirmDelete()
	case "whoami":
		a.showSelf()
	case "contact":
		a.showPeerCard()
	case "logout":
		a.confirmLogout()
	case "help":
		a.pages.Push(pageHelp)
	case "quit":
		a.Stop()
	}
}

// chatCommand opens a conversation by contact link, peer id, or a name or
// phone matching exactly one conversation or user.
func (a *App) chatCommand(arg string) {
	if peer, err := contact.Parse(arg); err == nil {
		a.openThread(peer)
		return
	}
	go func() {
		peer, err := a.findPeer(arg)
		if err != nil {
			a.vm.Flash.Warn(err.Error())
			a.app.QueueUpdateDraw(a.renderFlash)
			return
		}
		a.openThread(peer)
	}()
}

func (a *App) findPeer(query string) (convindex.Peer, error) {
	for _, c := range a.vm.Conversations("") {
		if c.PeerID == query {
			return c.Peer(), nil
		}
	}
	if rows := a.vm.Conversations(query); len(rows) == 1 {
		return rows[0].Peer(), nil
	}

	ctx, cancel := a.call()
	defer cancel()
	if err := a.vm.LoadUsers(ctx); err != nil {
		return convindex.Peer{}, fmt.Errorf("user lookup failed: %s", api.ErrorMessage(err))
	}
	users := a.vm.Users(query)
	for _, u := range a.vm.Users("") {
		if u.ID == query {
			return convindex.Peer{ID: u.ID, Name: u.Name, Phone: u.Phone}, nil
		}
	}
	switch len(users) {
	case 1:
		return convindex.Peer{ID: users[0].ID, Name: users[0].Name, Phone: users[0].Phone}, nil
	case 0:
		return convindex.Peer{}, fmt.Errorf("no user matches %q", query)
	}
	return convindex.Peer{}, fmt.Errorf("%d users match %q, be more specific", len(users), query)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.promptPage = a.pages.Current()
	text := ""
	if mode == ui.PromptFilter {
		text = a.filters[a.promptPage]
	}
	a.prompt.Activate(mode, text)
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top.FocusTarget())
	}
}

func (a *App) setFilter(page, query string) {
	a.filters[page] = query
	switch page {
	case pageConversations:
		a.renderConversations()
	case pageUsers:
		a.renderUsers()
	}
}

func (a *App) renderAll() {
	a.renderConversations()
	a.renderThread()
	a.renderStatus()
	a.renderFlash()
}

func (a *App) renderConversations() {
	q := a.filters[pageConversations]
	a.convs.Update(a.vm.Conversations(q), len(a.vm.Conversations("")), q)
}

func (a *App) renderUsers() {
	q := a.filters[pageUsers]
	a.users.Update(a.vm.Users(q), q)
}

func (a *App) renderThread() {
	peer, ok := a.vm.Thread()
	if !ok {
		return
	}
	a.thread.Update(a.vm.Status().UserID, peer, a.vm.Messages())
}

func (a *App) renderStatus() {
	st := a.vm.Status()
	a.header.SetSession(&ui.SessionData{
		Profile:       st.Profile,
		Name:          st.Name,
		Phone:         st.Phone,
		State:         st.State,
		Attempts:      st.Attempts,
		Conversations: len(a.vm.Conversations("")),
		Uptime:        time.Duration(st.UptimeMs) * time.Millisecond,
	})
	user := ""
	if st.SignedIn {
		user = st.Name
	}
	a.status.SetUser(user)
	a.status.SetState(st.State, st.Attempts)
}

func (a *App) renderFlash() {
	a.flash.Update(a.vm.Flash.Get())
}

func label(p convindex.Peer) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

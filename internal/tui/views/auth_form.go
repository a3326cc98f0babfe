package views

import (
	"errors"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/sigma/internal/tui/ui"
	"github.com/rivo/tview"
)

// AuthMode selects between signing in and creating an account.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

// Credentials is what the auth form collects.
type Credentials struct {
	Mode     AuthMode
	Name     string
	Phone    string
	Password string
}

// Validate checks that every field the mode needs is filled in.
func (c Credentials) Validate() error {
	if c.Mode == ModeRegister && strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return errors.New("phone is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// AuthForm is the sign-in / registration page.
type AuthForm struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	notice   *tview.TextView
	mode     AuthMode
	busy     bool
	onSubmit func(Credentials)
}

// NewAuthForm creates the auth page in login mode.
func NewAuthForm(theme *ui.Theme) *AuthForm {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(tcell.ColorDarkSlateGray)
	form.SetFieldTextColor(tcell.ColorWhite)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	notice := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	notice.SetBackgroundColor(theme.BgColor)

	inner := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(form, 13, 0, true).
		AddItem(notice, 2, 0, false)
	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(inner, 50, 0, true).
		AddItem(nil, 0, 1, false)
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(centered, 15, 0, true).
		AddItem(nil, 0, 1, false)

	af := &AuthForm{Flex: root, theme: theme, form: form, notice: notice}
	af.build()
	return af
}

// Name implements ui.Component.
func (af *AuthForm) Name() string { return "Sign in" }

// FocusTarget implements ui.Component.
func (af *AuthForm) FocusTarget() tview.Primitive { return af.form }

// Hints implements ui.Component.
func (af *AuthForm) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSubmit sets the callback for valid credentials.
func (af *AuthForm) SetOnSubmit(fn func(Credentials)) {
	af.onSubmit = fn
}

// Mode returns the current form mode.
func (af *AuthForm) Mode() AuthMode { return af.mode }

// SetMode switches the form, keeping the phone number.
func (af *AuthForm) SetMode(mode AuthMode) {
	phone := af.Credentials().Phone
	af.mode = mode
	af.build()
	af.setText("Phone", phone)
}

// Reset clears the form and any notice.
func (af *AuthForm) Reset() {
	af.busy = false
	af.build()
	af.notice.Clear()
}

// SetBusy blocks resubmission while a request is in flight.
func (af *AuthForm) SetBusy(busy bool) {
	af.busy = busy
	if busy {
		af.ShowNotice(ui.ColorName(af.theme.FlashInfoColor), "Contacting server...")
	}
}

// ShowError displays a failure under the form.
func (af *AuthForm) ShowError(msg string) {
	af.ShowNotice(ui.ColorName(af.theme.FlashErrColor), msg)
}

// ShowNotice displays msg under the form in color.
func (af *AuthForm) ShowNotice(color, msg string) {
	af.notice.Clear()
	af.notice.SetText("[" + color + "]" + tview.Escape(msg) + "[-]")
}

// Credentials reads the current field values.
func (af *AuthForm) Credentials() Credentials {
	c := Credentials{Mode: af.mode}
	if f, ok := af.field("Name"); ok {
		c.Name = f.GetText()
	}
	if f, ok := af.field("Phone"); ok {
		c.Phone = f.GetText()
	}
	if f, ok := af.field("Password"); ok {
		c.Password = f.GetText()
	}
	return c
}

func (af *AuthForm) build() {
	af.form.Clear(true)
	title, submit, toggle := " Sign in ", "Sign in", "Create account"
	if af.mode == ModeRegister {
		title, submit, toggle = " Create account ", "Register", "Back to sign in"
		af.form.AddInputField("Name", "", 32, nil, nil)
	}
	af.form.AddInputField("Phone", "", 32, nil, nil)
	af.form.AddPasswordField("Password", "", 32, '*', nil)
	af.form.AddButton(submit, af.submit)
	af.form.AddButton(toggle, func() {
		next := ModeRegister
		if af.mode == ModeRegister {
			next = ModeLogin
		}
		af.SetMode(next)
	})
	af.form.SetTitle(title)
	af.form.SetFocus(0)
}

func (af *AuthForm) submit() {
	if af.busy {
		return
	}
	c := af.Credentials()
	if err := c.Validate(); err != nil {
		af.ShowError(err.Error())
		return
	}
	if af.onSubmit != nil {
		af.onSubmit(c)
	}
}

func (af *AuthForm) field(label string) (*tview.InputField, bool) {
	idx := af.form.GetFormItemIndex(label)
	if idx < 0 {
		return nil, false
	}
	f, ok := af.form.GetFormItem(idx).(*tview.InputField)
	return f, ok
}

func (af *AuthForm) setText(label, text string) {
	if f, ok := af.field(label); ok {
		f.SetText(text)
	}
}

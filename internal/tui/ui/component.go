package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the header.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page the app can push onto its stack.
type Component interface {
	tview.Primitive
	// Name is the page name and its breadcrumb label.
	Name() string
	Hints() []MenuHint
	// FocusTarget returns the primitive that receives focus when the page shows.
	FocusTarget() tview.Primitive
}

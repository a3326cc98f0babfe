package ui

import (
	"slices"
	"testing"

	"github.com/rivo/tview"
)

type page struct {
	*tview.Box
	name string
}

func (p page) Name() string                 { return p.name }
func (p page) Hints() []MenuHint            { return nil }
func (p page) FocusTarget() tview.Primitive { return p.Box }

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"Conversations", "Thread", "Contact"} {
		p.Add(page{Box: tview.NewBox(), name: name})
	}
	var last []string
	p.SetOnChange(func(top Component, stack []string) {
		if top.Name() != stack[len(stack)-1] {
			t.Errorf("top %q does not match stack %v", top.Name(), stack)
		}
		last = stack
	})

	p.Reset("Conversations")
	p.Push("Thread")
	p.Push("Thread")
	p.Push("Contact")
	if want := []string{"Conversations", "Thread", "Contact"}; !slices.Equal(last, want) {
		t.Fatalf("stack = %v, want %v", last, want)
	}

	if got := p.Pop(); got != "Contact" {
		t.Fatalf("Pop = %q", got)
	}
	if got := p.Pop(); got != "Thread" {
		t.Fatalf("Pop = %q", got)
	}
	if got := p.Pop(); got != "" {
		t.Fatalf("popping the last page returned %q", got)
	}
	if p.Current() != "Conversations" {
		t.Fatalf("Current = %q", p.Current())
	}

	p.Push("Thread")
	p.Reset("Contact")
	if want := []string{"Contact"}; !slices.Equal(p.Stack(), want) {
		t.Fatalf("stack after reset = %v", p.Stack())
	}
}

func TestComplete(t *testing.T) {
	words := []string{"chat", "clear", "contact", "quit"}
	tests := []struct {
		text string
		want []string
	}{
		{"c", []string{"chat", "clear", "contact"}},
		{"Cl", []string{"clear"}},
		{"q", []string{"quit"}},
		{"x", nil},
		{"", nil},
		{"chat bea", nil},
	}
	for _, tt := range tests {
		if got := Complete(words, tt.text); !slices.Equal(got, tt.want) {
			t.Errorf("Complete(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestStateColor(t *testing.T) {
	th := DefaultTheme()
	if th.StateColor("CONNECTED") != th.StateOKColor {
		t.Error("CONNECTED not shown as ok")
	}
	if th.StateColor("AUTH_FAILED") != th.StateBadColor {
		t.Error("AUTH_FAILED not shown as bad")
	}
	if th.StateColor("DISCONNECTED") != th.FgColor {
		t.Error("DISCONNECTED not shown plain")
	}
}

package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal(
		Rune('q', "Quit", func() { got = append(got, "global-q") }),
		Rune('?', "Help", func() { got = append(got, "help") }),
	)
	r.AddView("Thread", Rune('q', "Back", func() { got = append(got, "thread-q") }))

	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("Conversations", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, '?', tcell.ModNone))
	if ok := r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)); ok {
		t.Fatal("unbound key reported as handled")
	}

	want := []string{"thread-q", "global-q", "help"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	hit := false
	r.AddView("Thread", Key(tcell.KeyCtrlL, "Clear", func() { hit = true }))
	if !r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyCtrlL, 0, tcell.ModCtrl)) {
		t.Fatal("Ctrl-L not handled")
	}
	if !hit {
		t.Fatal("handler did not run")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(Rune('q', "Quit", nil), &Action{Key: tcell.KeyRune, Rune: 'x', Description: "secret", Hidden: true})
	r.AddView("Conversations", Rune('n', "New", nil), Key(tcell.KeyEnter, "Open", nil))

	hints := r.Hints("Conversations")
	want := []string{"n", "Enter", "q"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %+v", hints)
	}
	for i, h := range hints {
		if h.Key != want[i] {
			t.Fatalf("hint %d = %q, want %q", i, h.Key, want[i])
		}
	}
}

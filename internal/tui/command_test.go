package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Chat   Bea Lima ", Command{Name: "chat", Args: "Bea Lima"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"q", "quit", false},
		{"users", "new", false},
		{"rm", "delete", false},
		{"open u2", "chat", false},
		{"chat", "", true},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.in).Resolve()
		if (err != nil) != tt.wantErr {
			t.Errorf("Resolve(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got.Name != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got.Name, tt.want)
		}
	}
}

func TestCommandNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range commands {
		for _, n := range append([]string{def.Name}, def.Aliases...) {
			if seen[n] {
				t.Errorf("%q is bound twice", n)
			}
			seen[n] = true
		}
	}
	if len(commandNames()) != len(commands) {
		t.Fatal("commandNames length mismatch")
	}
}

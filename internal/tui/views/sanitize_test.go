package views

import (
	"testing"
	"time"

	"github.com/matheus3301/sigma/internal/msglog"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name, in, want string
		keepNewlines   bool
	}{
		{"plain", "hello", "hello", false},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D", false},
		{"zwj and selector", "a\u200db\ufe0f", "ab", false},
		{"ansi escape", "\x1b[31mred\x1b[0m", "[31mred[0m", false},
		{"bell and nul", "a\x07b\x00c", "abc", false},
		{"newline flattened", "one\ntwo\tthree", "one two three", false},
		{"newline kept", "one\ntwo", "one\ntwo", true},
		{"invalid utf8", "ok\xff", "ok", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in, tt.keepNewlines); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayEscapesColorTags(t *testing.T) {
	if got := display("[red]hi"); got != "[red[]hi" {
		t.Fatalf("display = %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		ms   int64
		want string
	}{
		{0, ""},
		{time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC).UnixMilli(), "09:05"},
		{time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC).UnixMilli(), "03/13"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.ms, now); got != tt.want {
			t.Errorf("formatTimestamp(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestStatusMark(t *testing.T) {
	if statusMark(msglog.Pending) != "⏳" || statusMark(msglog.Sent) != "✓" || statusMark(msglog.Received) != "" {
		t.Fatal("unexpected delivery marks")
	}
}

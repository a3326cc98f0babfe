package views

import (
	"strings"
	"unicode"

	"github.com/rivo/tview"
)

// sanitizeForTerminal drops codepoints that tcell renders badly or that a
// peer could use to mess with the terminal:
// skin tone modifiers, zero width joiners and variation selectors, which
// split emoji sequences into oddly sized cells, plus control characters,
// which covers ANSI escapes.
// Newlines survive when keepNewlines is set.
func sanitizeForTerminal(s string, keepNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' && keepNewlines:
			b.WriteRune(r)
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case isProblematicRune(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// display makes peer-supplied text safe for a dynamic-color view.
func display(s string) string {
	return tview.Escape(sanitizeForTerminal(s, false))
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	case r == unicode.ReplacementChar:
		return true
	}
	return unicode.IsControl(r)
}

package views

import (
	"time"

	"github.com/matheus3301/sigma/internal/msglog"
)

// formatTimestamp shows the clock time for today and the date otherwise.
func formatTimestamp(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms).In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

// statusMark is the delivery mark shown after an outgoing message.
func statusMark(s msglog.Status) string {
	switch s {
	case msglog.Pending:
		return "⏳"
	case msglog.Sent:
		return "✓"
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

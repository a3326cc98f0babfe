package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/msglog"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatTime renders a millisecond timestamp as local time; zero renders as "-".
func formatTime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	t := time.UnixMilli(ms).Local()
	if y, m, d := t.Date(); y == time.Now().Year() && m == time.Now().Month() && d == time.Now().Day() {
		return t.Format("15:04")
	}
	return t.Format("2006-01-02 15:04")
}

// statusMark is the delivery marker shown next to outgoing messages.
func statusMark(m msglog.Message) string {
	switch m.Status {
	case msglog.Pending:
		return "⏳"
	case msglog.Sent:
		return "✓"
	default:
		return ""
	}
}

func printMessages(w io.Writer, me string, msgs []msglog.Message) error {
	tw := newTable(w)
	for _, m := range msgs {
		who := "them"
		if m.Outgoing(me) {
			who = "me"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(m.TS), who, statusMark(m), m.Text)
	}
	return tw.Flush()
}

func printStatus(w io.Writer, st *api.StatusResponse) {
	_, _ = fmt.Fprintf(w, "Profile:    %s\n", st.Profile)
	_, _ = fmt.Fprintf(w, "Connection: %s (since %s)\n", st.State, formatTime(st.StateSinceMs))
	if st.SignedIn {
		_, _ = fmt.Fprintf(w, "User:       %s (%s, id %s)\n", st.Name, st.Phone, st.UserID)
	} else {
		_, _ = fmt.Fprintln(w, "User:       not signed in")
	}
	if st.TokenExpiresMs > 0 {
		_, _ = fmt.Fprintf(w, "Token:      expires %s\n", time.UnixMilli(st.TokenExpiresMs).Local().Format(time.RFC3339))
	}
	if st.OpenPeerID != "" {
		_, _ = fmt.Fprintf(w, "Open chat:  %s\n", st.OpenPeerID)
	}
	_, _ = fmt.Fprintf(w, "Chats:      %d\n", st.Conversations)
	if st.Attempts > 0 {
		_, _ = fmt.Fprintf(w, "Reconnects: %d\n", st.Attempts)
	}
	_, _ = fmt.Fprintf(w, "API:        %s\n", st.APIBaseURL)
	_, _ = fmt.Fprintf(w, "Socket:     %s\n", st.SocketURL)
	_, _ = fmt.Fprintf(w, "Uptime:     %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second))
}

package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/sigma/internal/msglog"
)

// Wire event names.
const (
	EventMessage     = "message"
	EventMessageSent = "message:sent"
	EventError       = "error"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMalformed    = errors.New("malformed frame")
)

// Frame is the envelope every frame travels in.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outgoing is the payload of an outbound "message" frame.
type Outgoing struct {
	To      string `json:"to"`
	Content string `json:"content"`
	TempID  string `json:"tempId"`
}

// Incoming is a decoded inbound "message" frame.
type Incoming struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
	TS      int64  `json:"ts"`
}

// Ack is a decoded "message:sent" frame. TS is 0 when the server sent none.
type Ack struct {
	TempID   string `json:"tempId"`
	ServerID string `json:"serverId"`
	TS       int64  `json:"ts"`
}

// ServerError is a decoded "error" frame.
type ServerError struct {
	Message string
}

func (e ServerError) Error() string { return e.Message }

var authFailure = regexp.MustCompile(`(?i)missing_token|invalid_token|jwt|auth`)

// IsAuthFailure reports whether a server or handshake message signals a rejected token.
func IsAuthFailure(msg string) bool {
	return authFailure.MatchString(msg)
}

// Encode builds an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Decode parses one inbound frame into Incoming, Ack or ServerError.
// now fills in a missing message id and timestamp.
func Decode(b []byte, now time.Time) (any, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch f.Event {
	case EventMessage:
		return decodeIncoming(f.Data, now)
	case EventMessageSent:
		return decodeAck(f.Data)
	case EventError:
		return decodeError(f.Data), nil
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

func decodeIncoming(data json.RawMessage, now time.Time) (Incoming, error) {
	var p struct {
		ID      json.RawMessage `json:"id"`
		From    string          `json:"from"`
		To      string          `json:"to"`
		Content string          `json:"content"`
		TS      json.RawMessage `json:"ts"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Incoming{}, fmt.Errorf("%w: message: %v", ErrMalformed, err)
	}
	if p.From == "" || p.To == "" {
		return Incoming{}, fmt.Errorf("%w: message without from/to", ErrMalformed)
	}
	m := Incoming{
		ID:      scalarString(p.ID),
		From:    p.From,
		To:      p.To,
		Content: p.Content,
	}
	ts, err := parseTS(p.TS)
	if err != nil {
		return Incoming{}, fmt.Errorf("%w: message ts: %v", ErrMalformed, err)
	}
	if ts == 0 {
		ts = now.UnixMilli()
	}
	m.TS = ts
	if m.ID == "" {
		m.ID = msglog.FallbackID(now)
	}
	return m, nil
}

func decodeAck(data json.RawMessage) (Ack, error) {
	var p struct {
		TempID   string          `json:"tempId"`
		ServerID json.RawMessage `json:"serverId"`
		TS       json.RawMessage `json:"ts"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Ack{}, fmt.Errorf("%w: message:sent: %v", ErrMalformed, err)
	}
	if p.TempID == "" {
		return Ack{}, fmt.Errorf("%w: message:sent without tempId", ErrMalformed)
	}
	ts, err := parseTS(p.TS)
	if err != nil {
		return Ack{}, fmt.Errorf("%w: message:sent ts: %v", ErrMalformed, err)
	}
	return Ack{TempID: p.TempID, ServerID: scalarString(p.ServerID), TS: ts}, nil
}

// decodeError accepts {"message": "..."}, {"error": "..."} or a bare string.
func decodeError(data json.RawMessage) ServerError {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return ServerError{Message: s}
	}
	var p struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &p)
	if p.Message != "" {
		return ServerError{Message: p.Message}
	}
	return ServerError{Message: p.Error}
}

// parseTS accepts epoch milliseconds or an RFC 3339 string. Absent or null is 0.
func parseTS(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] != '"' {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, err
		}
		return int64(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// scalarString reads ids that servers send either as strings or numbers.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// Package msglog persists the per-conversation message history.
package msglog

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Status is the delivery state of a message.
type Status string

const (
	Pending  Status = "pending"
	Sent     Status = "sent"
	Received Status = "recv"
)

// Message is one entry in a conversation log.
type Message struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
	Status Status `json:"status"`
}

// Outgoing reports whether owner sent m.
func (m Message) Outgoing(owner string) bool {
	return m.From == owner
}

// NewTempID returns a client-side id of the form t<ms>-<n>, 0 <= n < 10000.
func NewTempID(now time.Time) string {
	return fmt.Sprintf("t%d-%d", now.UnixMilli(), rand.IntN(10000))
}

// FallbackID names an inbound message the server sent without an id.
func FallbackID(now time.Time) string {
	return fmt.Sprintf("r%d", now.UnixMilli())
}

// Event is the payload of message.appended and message.acked.
// TempID is set on acks and names the entry Message replaced.
type Event struct {
	PeerID  string  `json:"peerId"`
	TempID  string  `json:"tempId,omitempty"`
	Message Message `json:"message"`
}

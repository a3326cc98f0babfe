package api

import (
	"encoding/json"

	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
)

type Empty struct{}

type StatusResponse struct {
	Profile        string `json:"profile"`
	State          string `json:"state"`
	StateSinceMs   int64  `json:"stateSinceMs"`
	SignedIn       bool   `json:"signedIn"`
	UserID         string `json:"userId,omitempty"`
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	OpenPeerID     string `json:"openPeerId,omitempty"`
	Attempts       int    `json:"reconnectAttempts"`
	Conversations  int    `json:"conversations"`
	UptimeMs       int64  `json:"uptimeMs"`
	APIBaseURL     string `json:"apiBaseUrl"`
	SocketURL      string `json:"socketUrl"`
	TokenExpiresMs int64  `json:"tokenExpiresMs,omitempty"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// FilterRequest narrows a listing by a case-insensitive name/phone query.
type FilterRequest struct {
	Query string `json:"query,omitempty"`
}

type UsersResponse struct {
	Users []backend.User `json:"users"`
}

type ConversationsResponse struct {
	Conversations []convindex.Conversation `json:"conversations"`
}

type PeerRequest struct {
	PeerID    string `json:"peerId"`
	PeerName  string `json:"peerName,omitempty"`
	PeerPhone string `json:"peerPhone,omitempty"`
}

func (r *PeerRequest) peer() convindex.Peer {
	return convindex.Peer{ID: r.PeerID, Name: r.PeerName, Phone: r.PeerPhone}
}

type MessagesResponse struct {
	Messages []msglog.Message `json:"messages"`
}

type SendRequest struct {
	PeerRequest
	Text string `json:"text"`
}

// SendResponse carries the stored message. Error is set when the message was
// stored as pending but the wire write failed.
type SendResponse struct {
	Message msglog.Message `json:"message"`
	Error   string         `json:"error,omitempty"`
}

type WatchRequest struct {
	// Prefix filters event kinds ("message.", "session.", ...). Empty means all.
	Prefix string `json:"prefix,omitempty"`
}

type Event struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	OccurredAtMs int64           `json:"occurredAtMs"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

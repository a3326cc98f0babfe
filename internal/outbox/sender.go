// Package outbox performs optimistic sends: the message is logged as pending
// before it goes on the wire and is reconciled when the server acks it.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/metrics"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/realtime"
	"go.uber.org/zap"
)

var (
	ErrEmptyText = errors.New("message text is empty")
	ErrNoSession = errors.New("not signed in")
	ErrNoPeer    = errors.New("missing peer id")
)

// Transport writes message frames to the realtime channel.
type Transport interface {
	Connected() bool
	Send(peerID, text, tempID string) error
}

// Tracker maps temp ids to conversations until their ack arrives. Locked
// serializes local writes with the ones made for inbound traffic.
type Tracker interface {
	Track(tempID string, peer convindex.Peer)
	Forget(tempID string)
	Locked(fn func() error) error
}

// Owner reports the signed-in user's id.
type Owner interface {
	UserID() string
}

// FailedSend is the payload of message.send_failed.
type FailedSend struct {
	PeerID string `json:"peerId"`
	TempID string `json:"tempId"`
	Error  string `json:"error"`
}

// Sender writes user messages locally and hands them to the transport.
type Sender struct {
	owner     Owner
	index     *convindex.Index
	logs      *msglog.Store
	tracker   Tracker
	transport Transport
	bus       *bus.Bus
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewSender creates a new outbox sender.
func NewSender(owner Owner, index *convindex.Index, logs *msglog.Store, tracker Tracker, transport Transport, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		owner:     owner,
		index:     index,
		logs:      logs,
		tracker:   tracker,
		transport: transport,
		bus:       b,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Send logs text as pending for peer, refreshes the conversation preview and
// writes it to the wire. Nothing is stored when the channel is down.
// A wire failure after the local write leaves the entry pending and publishes
// message.send_failed; the returned message is still valid in that case.
func (s *Sender) Send(ctx context.Context, peer convindex.Peer, text string) (msglog.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return msglog.Message{}, ErrEmptyText
	}
	if peer.ID == "" {
		return msglog.Message{}, ErrNoPeer
	}
	owner := s.owner.UserID()
	if owner == "" {
		return msglog.Message{}, ErrNoSession
	}
	if !s.transport.Connected() {
		return msglog.Message{}, realtime.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return msglog.Message{}, err
	}

	now := s.now()
	var msg msglog.Message
	err := s.tracker.Locked(func() error {
		// The session may have ended since the check above.
		if s.owner.UserID() != owner {
			return ErrNoSession
		}
		msg = msglog.Message{
			ID:     msglog.NewTempID(now),
			From:   owner,
			To:     peer.ID,
			Text:   text,
			TS:     now.UnixMilli(),
			Status: msglog.Pending,
		}
		if err := s.logs.Thread(owner, peer.ID).Append(msg); err != nil {
			return fmt.Errorf("append pending message: %w", err)
		}
		s.bus.Emit(bus.KindMessageAppended, msglog.Event{PeerID: peer.ID, Message: msg})

		peer = s.index.Resolve(owner, peer)
		if err := s.index.Touch(owner, peer, text, msg.TS); err != nil {
			s.logger.Error("failed to touch conversation", zap.Error(err), zap.String("peer", peer.ID))
		} else if c, ok := s.index.Get(owner, peer.ID); ok {
			s.bus.Emit(bus.KindConversationTouched, c)
		}

		s.tracker.Track(msg.ID, peer)
		return nil
	})
	if err != nil {
		return msglog.Message{}, err
	}

	if err := s.transport.Send(peer.ID, text, msg.ID); err != nil {
		s.tracker.Forget(msg.ID)
		s.metrics.SendFailed()
		s.logger.Error("failed to send message", zap.Error(err), zap.String("temp_id", msg.ID))
		s.bus.Emit(bus.KindMessageSendFailed, FailedSend{PeerID: peer.ID, TempID: msg.ID, Error: err.Error()})
		return msg, fmt.Errorf("send: %w", err)
	}
	s.logger.Debug("message sent", zap.String("temp_id", msg.ID), zap.String("peer", peer.ID))
	return msg, nil
}

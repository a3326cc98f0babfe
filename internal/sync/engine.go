package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/metrics"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/realtime"
	"go.uber.org/zap"
)

// Owner reports the signed-in user's id, "" when signed out.
type Owner interface {
	UserID() string
}

// Engine writes realtime traffic into the Conversation Index and Message Log.
// It subscribes to "rt.*" events on the bus without dropping any and
// processes them in order.
type Engine struct {
	owner   Owner
	index   *convindex.Index
	logs    *msglog.Store
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
	cancel  context.CancelFunc

	// work is held while an event is applied and while Locked runs.
	work sync.Mutex

	mu      sync.Mutex
	open    *convindex.Peer
	pending map[string]convindex.Peer
}

// NewEngine creates a new sync engine.
func NewEngine(owner Owner, index *convindex.Index, logs *msglog.Store, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		owner:   owner,
		index:   index,
		logs:    logs,
		bus:     b,
		metrics: m,
		logger:  logger,
		pending: make(map[string]convindex.Peer),
	}
}

// Start subscribes to inbound realtime events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.SubscribeLossless("rt.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Locked runs fn with no realtime event being applied, so a wipe of local
// state cannot interleave with an index or log write.
func (e *Engine) Locked(fn func() error) error {
	e.work.Lock()
	defer e.work.Unlock()
	return fn()
}

func (e *Engine) handleEvent(evt bus.Event) {
	e.work.Lock()
	defer e.work.Unlock()
	switch p := evt.Payload.(type) {
	case realtime.Incoming:
		if err := e.HandleIncoming(p); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", p.ID))
		}
	case realtime.Ack:
		if err := e.HandleAck(p); err != nil {
			e.logger.Error("failed to apply ack", zap.Error(err), zap.String("temp_id", p.TempID))
		}
	}
}

// OpenThread makes peer the conversation whose inbound messages are logged.
func (e *Engine) OpenThread(peer convindex.Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = &peer
}

// CloseThread clears the open conversation.
func (e *Engine) CloseThread() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = nil
}

// OpenPeer returns the open conversation, if any.
func (e *Engine) OpenPeer() (convindex.Peer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open == nil {
		return convindex.Peer{}, false
	}
	return *e.open, true
}

// Track remembers which conversation a pending temp id belongs to.
func (e *Engine) Track(tempID string, peer convindex.Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[tempID] = peer
}

// Forget drops a tracked temp id.
func (e *Engine) Forget(tempID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, tempID)
}

// HandleIncoming records an inbound message. The index row is always
// touched; the log entry is only written when the conversation is open.
func (e *Engine) HandleIncoming(in realtime.Incoming) error {
	owner := e.owner.UserID()
	if owner == "" {
		return nil
	}
	var peerID string
	switch owner {
	case in.To:
		peerID = in.From
	case in.From:
		peerID = in.To
	default:
		e.logger.Debug("dropping message for another user", zap.String("msg_id", in.ID))
		return nil
	}

	open, isOpen := e.OpenPeer()
	isOpen = isOpen && open.ID == peerID

	hint := convindex.Peer{ID: peerID}
	if isOpen {
		hint = open
	}
	peer := e.index.Resolve(owner, hint)
	if err := e.index.Touch(owner, peer, in.Content, in.TS); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	e.publishTouched(owner, peer.ID)

	if !isOpen {
		return nil
	}
	msg := msglog.Message{
		ID:     in.ID,
		From:   in.From,
		To:     in.To,
		Text:   in.Content,
		TS:     in.TS,
		Status: msglog.Received,
	}
	if err := e.logs.Thread(owner, peerID).Append(msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	e.bus.Emit(bus.KindMessageAppended, msglog.Event{PeerID: peerID, Message: msg})
	return nil
}

// HandleAck marks a pending message as sent and refreshes its preview.
// Acks for unknown temp ids are ignored.
func (e *Engine) HandleAck(ack realtime.Ack) error {
	owner := e.owner.UserID()
	if owner == "" {
		return nil
	}

	e.mu.Lock()
	peer, tracked := e.pending[ack.TempID]
	delete(e.pending, ack.TempID)
	if !tracked && e.open != nil {
		peer = *e.open
	}
	e.mu.Unlock()

	if peer.ID == "" {
		e.logger.Debug("ack for unknown message", zap.String("temp_id", ack.TempID))
		return nil
	}

	msg, ok, err := e.logs.Thread(owner, peer.ID).Acknowledge(ack.TempID, ack.ServerID, ack.TS)
	if err != nil {
		return fmt.Errorf("acknowledge: %w", err)
	}
	if !ok {
		e.logger.Debug("ack matched no message", zap.String("temp_id", ack.TempID), zap.String("peer", peer.ID))
		return nil
	}
	e.metrics.MessageAcked()
	e.bus.Emit(bus.KindMessageAcked, msglog.Event{PeerID: peer.ID, TempID: ack.TempID, Message: msg})

	peer = e.index.Resolve(owner, peer)
	if err := e.index.Touch(owner, peer, msg.Text, msg.TS); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	e.publishTouched(owner, peer.ID)
	return nil
}

func (e *Engine) publishTouched(owner, peerID string) {
	if c, ok := e.index.Get(owner, peerID); ok {
		e.bus.Emit(bus.KindConversationTouched, c)
	}
}

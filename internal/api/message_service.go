package api

import (
	"context"

	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/prefs"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Threads selects which conversation receives inbound log writes.
type Threads interface {
	OpenThread(peer convindex.Peer)
	CloseThread()
}

// Outbox sends user messages.
type Outbox interface {
	Send(ctx context.Context, peer convindex.Peer, text string) (msglog.Message, error)
}

// MessageService implements sigma.v1.MessageService.
type MessageService struct {
	prefs   *prefs.Prefs
	logs    *msglog.Store
	index   *convindex.Index
	threads Threads
	outbox  Outbox
	bus     *bus.Bus
}

// NewMessageService creates a new message service.
func NewMessageService(p *prefs.Prefs, logs *msglog.Store, index *convindex.Index, threads Threads, ob Outbox, b *bus.Bus) *MessageService {
	return &MessageService{prefs: p, logs: logs, index: index, threads: threads, outbox: ob, bus: b}
}

func (s *MessageService) owner(peerID string) (string, error) {
	owner := s.prefs.UserID()
	if owner == "" {
		return "", grpcstatus.Error(codes.Unauthenticated, "not signed in")
	}
	if peerID == "" {
		return "", grpcstatus.Error(codes.InvalidArgument, "peer id is required")
	}
	return owner, nil
}

func (s *MessageService) Messages(_ context.Context, req *PeerRequest) (*MessagesResponse, error) {
	owner, err := s.owner(req.PeerID)
	if err != nil {
		return nil, err
	}
	return &MessagesResponse{Messages: nonNil(s.logs.Thread(owner, req.PeerID).Load())}, nil
}

// OpenThread makes req's peer the open conversation and returns its log.
func (s *MessageService) OpenThread(_ context.Context, req *PeerRequest) (*MessagesResponse, error) {
	owner, err := s.owner(req.PeerID)
	if err != nil {
		return nil, err
	}
	s.threads.OpenThread(s.index.Resolve(owner, req.peer()))
	return &MessagesResponse{Messages: nonNil(s.logs.Thread(owner, req.PeerID).Load())}, nil
}

func (s *MessageService) CloseThread(_ context.Context, _ *Empty) (*Empty, error) {
	s.threads.CloseThread()
	return &Empty{}, nil
}

func (s *MessageService) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	if _, err := s.owner(req.PeerID); err != nil {
		return nil, err
	}
	msg, err := s.outbox.Send(ctx, req.peer(), req.Text)
	if err != nil && msg.ID != "" {
		// Stored as pending; only the wire write failed.
		return &SendResponse{Message: msg, Error: err.Error()}, nil
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &SendResponse{Message: msg}, nil
}

func (s *MessageService) ClearThread(_ context.Context, req *PeerRequest) (*Empty, error) {
	owner, err := s.owner(req.PeerID)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Thread(owner, req.PeerID).Clear(); err != nil {
		return nil, toStatus(err)
	}
	s.bus.Emit(bus.KindThreadCleared, req.PeerID)
	return &Empty{}, nil
}

func nonNil(msgs []msglog.Message) []msglog.Message {
	if msgs == nil {
		return []msglog.Message{}
	}
	return msgs
}

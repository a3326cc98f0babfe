package api

import (
	"context"
	"strings"

	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/prefs"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ChatService implements sigma.v1.ChatService.
type ChatService struct {
	prefs     *prefs.Prefs
	directory Directory
	session   *Session
	index     *convindex.Index
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(p *prefs.Prefs, dir Directory, session *Session, index *convindex.Index, b *bus.Bus, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{prefs: p, directory: dir, session: session, index: index, bus: b, logger: logger}
}

// Users lists everyone but the signed-in user. A 401 ends the session.
func (s *ChatService) Users(ctx context.Context, req *FilterRequest) (*UsersResponse, error) {
	token := s.prefs.Token()
	if token == "" {
		return nil, grpcstatus.Error(codes.Unauthenticated, "not signed in")
	}
	users, err := s.directory.Users(ctx, token)
	if backend.IsUnauthorized(err) {
		s.logger.Warn("users rejected the session token", zap.Error(err))
		_ = s.session.End("token rejected")
		return nil, grpcstatus.Error(codes.Unauthenticated, "session expired, sign in again")
	}
	if err != nil {
		return nil, toStatus(err)
	}

	me := s.prefs.UserID()
	q := strings.ToLower(strings.TrimSpace(req.Query))
	out := make([]backend.User, 0, len(users))
	for _, u := range users {
		if u.ID == me {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Phone), q) {
			continue
		}
		out = append(out, u)
	}
	return &UsersResponse{Users: out}, nil
}

func (s *ChatService) Conversations(_ context.Context, req *FilterRequest) (*ConversationsResponse, error) {
	owner := s.prefs.UserID()
	if owner == "" {
		return nil, grpcstatus.Error(codes.Unauthenticated, "not signed in")
	}
	rows := convindex.Filter(s.index.List(owner), req.Query)
	if rows == nil {
		rows = []convindex.Conversation{}
	}
	return &ConversationsResponse{Conversations: rows}, nil
}

func (s *ChatService) DeleteConversation(_ context.Context, req *PeerRequest) (*Empty, error) {
	owner := s.prefs.UserID()
	if owner == "" {
		return nil, grpcstatus.Error(codes.Unauthenticated, "not signed in")
	}
	if req.PeerID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "peer id is required")
	}
	if err := s.index.Delete(owner, req.PeerID); err != nil {
		return nil, toStatus(err)
	}
	s.bus.Emit(bus.KindConversationDeleted, req.PeerID)
	return &Empty{}, nil
}

package api

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/prefs"
	"github.com/matheus3301/sigma/internal/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// OpenPeerer reports the open conversation.
type OpenPeerer interface {
	OpenPeer() (convindex.Peer, bool)
}

// Endpoints are shown by Status.
type Endpoints struct {
	APIBaseURL string
	SocketURL  string
}

// SessionService implements sigma.v1.SessionService.
type SessionService struct {
	profile   string
	endpoints Endpoints
	startedAt time.Time
	session   *Session
	prefs     *prefs.Prefs
	directory Directory
	channel   Channel
	machine   *status.Machine
	threads   OpenPeerer
	index     *convindex.Index
}

// NewSessionService creates a new session service.
func NewSessionService(profile string, endpoints Endpoints, session *Session, p *prefs.Prefs, dir Directory, ch Channel, machine *status.Machine, threads OpenPeerer, index *convindex.Index) *SessionService {
	return &SessionService{
		profile:   profile,
		endpoints: endpoints,
		startedAt: time.Now(),
		session:   session,
		prefs:     p,
		directory: dir,
		channel:   ch,
		machine:   machine,
		threads:   threads,
		index:     index,
	}
}

func (s *SessionService) Status(_ context.Context, _ *Empty) (*StatusResponse, error) {
	pr := s.prefs.Profile()
	resp := &StatusResponse{
		Profile:      s.profile,
		State:        string(s.channel.State()),
		StateSinceMs: s.machine.Since().UnixMilli(),
		SignedIn:     s.prefs.SignedIn(),
		UserID:       pr.UserID,
		Name:         pr.Name,
		Phone:        pr.Phone,
		Attempts:     s.channel.Attempts(),
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
		APIBaseURL:   s.endpoints.APIBaseURL,
		SocketURL:    s.endpoints.SocketURL,
	}
	if peer, ok := s.threads.OpenPeer(); ok {
		resp.OpenPeerID = peer.ID
	}
	if pr.UserID != "" {
		resp.Conversations = len(s.index.List(pr.UserID))
	}
	if exp, ok := prefs.ExpiresAt(s.prefs.Token()); ok {
		resp.TokenExpiresMs = exp.UnixMilli()
	}
	return resp, nil
}

func (s *SessionService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.Password == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "phone and password are required")
	}
	res, err := s.directory.Login(ctx, phone, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.session.Begin(ctx, res); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "store session: %v", err)
	}
	return authResponse(s.prefs.Profile()), nil
}

func (s *SessionService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" || req.Password == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "name, phone and password are required")
	}
	res, err := s.directory.Register(ctx, name, phone, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	if res.User.Name == "" {
		res.User.Name = name
	}
	if res.User.Phone == "" {
		res.User.Phone = phone
	}
	if err := s.session.Begin(ctx, res); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "store session: %v", err)
	}
	return authResponse(s.prefs.Profile()), nil
}

func (s *SessionService) Logout(_ context.Context, _ *Empty) (*Empty, error) {
	if err := s.session.End("logout"); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "logout: %v", err)
	}
	return &Empty{}, nil
}

func authResponse(p prefs.Profile) *AuthResponse {
	return &AuthResponse{UserID: p.UserID, Name: p.Name, Phone: p.Phone}
}

package api

import (
	"context"
	"time"

	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/logging"
	"github.com/matheus3301/sigma/internal/prefs"
	"github.com/matheus3301/sigma/internal/status"
	"go.uber.org/zap"
)

// Directory is the REST backend as the daemon uses it.
type Directory interface {
	Users(ctx context.Context, token string) ([]backend.User, error)
	Login(ctx context.Context, phone, password string) (backend.AuthResult, error)
	Register(ctx context.Context, name, phone, password string) (backend.AuthResult, error)
}

// Channel is the realtime connection as the daemon uses it.
type Channel interface {
	Connect(ctx context.Context, token string) error
	Close()
	State() status.State
	Attempts() int
}

// ThreadCloser forgets the open conversation. Locked runs fn while no
// inbound event is being written.
type ThreadCloser interface {
	CloseThread()
	Locked(fn func() error) error
}

// Session ties the stored credentials to the realtime channel.
type Session struct {
	prefs   *prefs.Prefs
	channel Channel
	threads ThreadCloser
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewSession creates a session manager.
func NewSession(p *prefs.Prefs, ch Channel, threads ThreadCloser, b *bus.Bus, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{prefs: p, channel: ch, threads: threads, bus: b, logger: logger}
}

// Begin stores a fresh login and opens the realtime channel.
func (s *Session) Begin(ctx context.Context, res backend.AuthResult) error {
	if res.User.ID == "" {
		res.User.ID = prefs.Subject(res.Token)
	}
	if err := s.prefs.SaveToken(res.Token); err != nil {
		return err
	}
	if err := s.prefs.SaveProfile(prefs.Profile{UserID: res.User.ID, Name: res.User.Name, Phone: res.User.Phone}); err != nil {
		return err
	}
	s.bus.Emit(bus.KindLoggedIn, res.User)
	s.logger.Info("signed in", zap.String("user_id", res.User.ID), logging.Token("token", s.prefs.Token()))
	if err := s.channel.Connect(ctx, s.prefs.Token()); err != nil {
		s.logger.Warn("realtime connect refused", zap.Error(err))
	}
	return nil
}

// Resume reconnects with the stored token, discarding it when it has expired.
func (s *Session) Resume(ctx context.Context) {
	token := s.prefs.Token()
	if token == "" {
		s.logger.Info("no stored session, sign in required")
		return
	}
	if prefs.Expired(token, time.Now()) {
		s.logger.Info("stored session token expired")
		_ = s.End("token expired")
		return
	}
	if err := s.channel.Connect(ctx, token); err != nil {
		s.logger.Warn("realtime connect refused", zap.Error(err))
	}
}

// End closes the channel and wipes local state.
func (s *Session) End(reason string) error {
	s.channel.Close()
	s.threads.CloseThread()
	err := s.threads.Locked(s.prefs.Clear)
	s.bus.Emit(bus.KindLoggedOut, reason)
	s.logger.Info("signed out", zap.String("reason", reason))
	return err
}

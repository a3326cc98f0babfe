// Package realtime keeps the WebSocket channel to the messaging server open,
// decodes its frames onto the bus and writes outbound messages.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/metrics"
	"github.com/matheus3301/sigma/internal/status"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrMissingToken = errors.New("missing token")
	ErrAuthFailed   = errors.New("authentication failed")
)

const (
	defaultPingInterval = 30 * time.Second
	defaultReadTimeout  = 60 * time.Second
	writeTimeout        = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	Policy           Policy
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	// OnAuthFailed runs once the server rejects the token, before
	// session.auth_failed is published.
	OnAuthFailed func(reason string)
}

// Client owns one realtime connection and its reconnect loop.
type Client struct {
	opts    Options
	bus     *bus.Bus
	machine *status.Machine
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	token       string
	failedToken string
	cancel      context.CancelFunc
	done        chan struct{}

	writeMu  sync.Mutex
	attempts atomic.Int64
}

// NewClient creates a disconnected client.
func NewClient(opts Options, b *bus.Bus, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *Client {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, bus: b, machine: machine, metrics: m, logger: logger}
}

// State returns the connection state.
func (c *Client) State() status.State {
	return c.machine.Current()
}

// Connected reports whether messages can be sent right now.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.machine.Current() == status.Connected
}

// Attempts returns the number of reconnects scheduled since the last
// successful connection.
func (c *Client) Attempts() int {
	return int(c.attempts.Load())
}

// Connect starts the connect/reconnect loop for token and returns without
// waiting for the first handshake. Calling it again with the same token while
// the loop runs is a no-op; a different token replaces the running loop.
func (c *Client) Connect(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}

	c.mu.Lock()
	if c.machine.Current() == status.AuthFailed && token == c.failedToken {
		c.mu.Unlock()
		return ErrAuthFailed
	}
	if c.cancel != nil && c.token == token {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.token = token
	c.cancel = cancel
	c.done = make(chan struct{})
	c.attempts.Store(0)
	go c.run(loopCtx, token, c.done)
	return nil
}

// Close tears the channel down and stops reconnecting.
func (c *Client) Close() {
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.conn
	c.cancel = nil
	if cancel != nil {
		cancel()
	}
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	if conn != nil {
		_ = conn.Close()
	}
	<-done
}

// Send writes an outbound message frame. It never queues.
func (c *Client) Send(peerID, text, tempID string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.machine.Current() != status.Connected {
		return ErrNotConnected
	}

	frame, err := Encode(EventMessage, Outgoing{To: peerID, Content: text, TempID: tempID})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	c.metrics.MessageSent()
	return nil
}

func (c *Client) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	b := c.opts.Policy.NewBackOff()
	for {
		connected, err := c.session(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrAuthFailed) {
			c.authFailed(token, err)
			return
		}
		if connected {
			b.Reset()
			c.attempts.Store(0)
		}

		wait := b.NextBackOff()
		n := c.attempts.Add(1)
		c.metrics.ReconnectAttempt()
		c.logger.Warn("realtime disconnected, reconnecting",
			zap.Error(err), zap.Int64("attempt", n), zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// session dials once and reads until the connection drops.
// connected reports whether the handshake succeeded.
func (c *Client) session(ctx context.Context, token string) (connected bool, err error) {
	c.transition(status.Connecting)

	conn, err := c.dial(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrAuthFailed) {
			c.transition(status.Disconnected)
		}
		return false, err
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		c.transition(status.Disconnected)
		return false, ctx.Err()
	}
	c.conn = conn
	c.mu.Unlock()
	c.transition(status.Connected)
	c.logger.Info("realtime connected", zap.String("url", c.opts.URL))

	stop := make(chan struct{})
	go c.keepalive(conn, stop)

	err = c.readLoop(conn)

	close(stop)
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()
	if !errors.Is(err, ErrAuthFailed) {
		c.transition(status.Disconnected)
	}
	return true, err
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := socketURL(c.opts.URL, token)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, header)
	if err == nil {
		return conn, nil
	}

	if resp == nil {
		// No server answer; host names must not be mistaken for auth text.
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	reason := err.Error()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	_ = resp.Body.Close()
	if len(body) > 0 {
		reason = strings.TrimSpace(string(body))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: handshake %d: %s", ErrAuthFailed, resp.StatusCode, reason)
	}
	if IsAuthFailure(reason) {
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, reason)
	}
	return nil, fmt.Errorf("dial %s: handshake %d: %w", c.opts.URL, resp.StatusCode, err)
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))

		evt, err := Decode(data, time.Now())
		if err != nil {
			c.logger.Warn("dropping realtime frame", zap.Error(err))
			continue
		}
		switch e := evt.(type) {
		case Incoming:
			c.metrics.MessageReceived()
			c.bus.Emit(bus.KindRealtimeMessage, e)
		case Ack:
			c.bus.Emit(bus.KindRealtimeMessageSent, e)
		case ServerError:
			if IsAuthFailure(e.Message) {
				return fmt.Errorf("%w: %s", ErrAuthFailed, e.Message)
			}
			c.logger.Warn("realtime server error", zap.String("message", e.Message))
		}
	}
}

func (c *Client) keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) authFailed(token string, cause error) {
	c.mu.Lock()
	c.failedToken = token
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.transition(status.AuthFailed)
	c.logger.Warn("realtime rejected the session token", zap.Error(cause))
	if c.opts.OnAuthFailed != nil {
		c.opts.OnAuthFailed(cause.Error())
	}
	c.bus.Emit(bus.KindAuthFailed, cause.Error())
}

func (c *Client) transition(to status.State) {
	if err := c.machine.Transition(to); err != nil {
		c.logger.Debug("ignored state transition", zap.Error(err))
		return
	}
	c.metrics.SetState(string(to), allStates...)
}

var allStates = []string{
	string(status.Disconnected),
	string(status.Connecting),
	string(status.Connected),
	string(status.AuthFailed),
}

// socketURL maps http(s) to ws(s) and adds the token query parameter.
func socketURL(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

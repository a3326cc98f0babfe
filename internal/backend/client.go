// Package backend is the REST client for the account and user directory API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/sigma/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxFailures = 5

// Client calls the REST backend. Requests are never retried; after
// consecutive transport or 5xx failures the breaker fails fast for a while.
type Client struct {
	base    string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	tr := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	st := gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var he *HTTPError
			if errors.As(err, &he) {
				return he.Status < 500
			}
			return err == nil || errors.Is(err, ErrBadJSON) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Client{
		base:    baseURL,
		http:    &http.Client{Transport: tr, Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
		metrics: m,
		logger:  logger,
	}
}

// Users lists the directory. A non-array body yields an empty list; entries
// that do not decode or carry no id are skipped.
func (c *Client) Users(ctx context.Context, token string) ([]User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "users", token, nil, &raw); err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("users response is not an array", zap.Error(err))
		return []User{}, nil
	}
	out := make([]User, 0, len(entries))
	for i, entry := range entries {
		var u User
		if err := json.Unmarshal(entry, &u); err != nil {
			c.logger.Warn("skipping malformed user entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		if u.ID != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, phone, password string) (AuthResult, error) {
	return c.auth(ctx, "login", map[string]string{"phone": phone, "password": password})
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, name, phone, password string) (AuthResult, error) {
	return c.auth(ctx, "register", map[string]string{"name": name, "phone": phone, "password": password})
}

func (c *Client) auth(ctx context.Context, path string, body any) (AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, path, "", body, &res); err != nil {
		return AuthResult{}, err
	}
	if strings.TrimSpace(res.Token) == "" {
		return AuthResult{}, ErrNoToken
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, token, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, Join(c.base, path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveRequest(path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	var payload json.RawMessage
	badJSON := false
	if len(bytes.TrimSpace(data)) > 0 {
		badJSON = json.Unmarshal(data, &payload) != nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(payload, resp.StatusCode)}
	}
	if badJSON {
		return fmt.Errorf("%w (status %d)", ErrBadJSON, resp.StatusCode)
	}
	if out == nil || payload == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return nil
}

// errorMessage prefers the server's "error" then "message" field.
func errorMessage(payload json.RawMessage, status int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if payload != nil && json.Unmarshal(payload, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// Join appends path to base with exactly one slash between them.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

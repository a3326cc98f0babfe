// Package prefs stores the signed-in user's session: token and profile.
package prefs

import (
	"regexp"
	"strings"
	"sync"

	"github.com/matheus3301/sigma/internal/store"
)

const (
	keyToken  = "token"
	keyUserID = "user_id"
	keyName   = "name"
	keyPhone  = "phone"
)

// Profile is the locally cached identity of the signed-in user.
type Profile struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// Prefs wraps the local KV store. Reads of missing or unreadable keys return "".
type Prefs struct {
	mu sync.Mutex
	kv store.KV
}

// New creates a preference store over kv.
func New(kv store.KV) *Prefs {
	return &Prefs{kv: kv}
}

var bearerPrefix = regexp.MustCompile(`(?i)^bearer\s+`)

// NormalizeToken strips a leading "Bearer " and surrounding whitespace.
func NormalizeToken(token string) string {
	return strings.TrimSpace(bearerPrefix.ReplaceAllString(strings.TrimSpace(token), ""))
}

// SaveToken stores the normalized session token.
func (p *Prefs) SaveToken(token string) error {
	return p.put(keyToken, NormalizeToken(token))
}

// Token returns the normalized session token, or "" when signed out.
func (p *Prefs) Token() string {
	return NormalizeToken(p.get(keyToken))
}

// SaveProfile stores the user id, display name and phone.
func (p *Prefs) SaveProfile(pr Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range map[string]string{keyUserID: pr.UserID, keyName: pr.Name, keyPhone: pr.Phone} {
		if err := p.kv.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Profile returns the cached identity.
func (p *Prefs) Profile() Profile {
	return Profile{UserID: p.UserID(), Name: p.UserName(), Phone: p.Phone()}
}

// UserID returns the owner user id that scopes all local data.
func (p *Prefs) UserID() string { return p.get(keyUserID) }

// UserName returns the display name.
func (p *Prefs) UserName() string { return p.get(keyName) }

// Phone returns the phone number.
func (p *Prefs) Phone() string { return p.get(keyPhone) }

// SignedIn reports whether a token and user id are both present.
func (p *Prefs) SignedIn() bool {
	return p.Token() != "" && p.UserID() != ""
}

// Clear wipes the whole local store: session, conversation index and message logs.
func (p *Prefs) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kv.Clear()
}

func (p *Prefs) get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok, err := p.kv.Get(key)
	if err != nil || !ok {
		return ""
	}
	return v
}

func (p *Prefs) put(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kv.Put(key, value)
}

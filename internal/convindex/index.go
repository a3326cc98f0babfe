// Package convindex keeps the per-user list of conversations and their
// last-message previews.
package convindex

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/matheus3301/sigma/internal/store"
	"go.uber.org/zap"
)

// Key is the store key holding the whole index document:
// {ownerID: {peerID: Conversation}}.
const Key = "sigma.conversations.v1"

// Peer identifies the other participant of a conversation.
type Peer struct {
	ID    string
	Name  string
	Phone string
}

// Conversation is one row of the index.
type Conversation struct {
	PeerID      string `json:"peerId"`
	PeerName    string `json:"peerName"`
	PeerPhone   string `json:"peerPhone"`
	LastMessage string `json:"lastMessage"`
	LastTs      int64  `json:"lastTs"`
}

// Peer returns the conversation's peer identity.
func (c Conversation) Peer() Peer {
	return Peer{ID: c.PeerID, Name: c.PeerName, Phone: c.PeerPhone}
}

type document map[string]map[string]Conversation

// Index reads and rewrites the index document wholesale on every call.
type Index struct {
	mu     sync.Mutex
	kv     store.KV
	logger *zap.Logger
}

// New creates an index over kv.
func New(kv store.KV, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{kv: kv, logger: logger}
}

// Touch upserts the row for (owner, peer.ID), overwriting every field.
// Callers are trusted to touch in causal order; older timestamps are not rejected.
func (x *Index) Touch(owner string, peer Peer, lastMessage string, lastTs int64) error {
	if owner == "" || peer.ID == "" {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	doc := x.load()
	mine := doc[owner]
	if mine == nil {
		mine = make(map[string]Conversation)
		doc[owner] = mine
	}
	mine[peer.ID] = Conversation{
		PeerID:      peer.ID,
		PeerName:    peer.Name,
		PeerPhone:   peer.Phone,
		LastMessage: lastMessage,
		LastTs:      lastTs,
	}
	return x.save(doc)
}

// List returns owner's conversations, most recent first.
func (x *Index) List(owner string) []Conversation {
	if owner == "" {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	mine := x.load()[owner]
	rows := make([]Conversation, 0, len(mine))
	for _, c := range mine {
		rows = append(rows, c)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].LastTs != rows[j].LastTs {
			return rows[i].LastTs > rows[j].LastTs
		}
		return rows[i].PeerID < rows[j].PeerID
	})
	return rows
}

// Get returns the row for (owner, peerID).
func (x *Index) Get(owner, peerID string) (Conversation, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.load()[owner][peerID]
	return c, ok
}

// Resolve fills p's empty name and phone from the stored row, if any.
func (x *Index) Resolve(owner string, p Peer) Peer {
	if p.Name != "" && p.Phone != "" {
		return p
	}
	c, ok := x.Get(owner, p.ID)
	if !ok {
		return p
	}
	if p.Name == "" {
		p.Name = c.PeerName
	}
	if p.Phone == "" {
		p.Phone = c.PeerPhone
	}
	return p
}

// Delete removes one row. No-op if absent.
func (x *Index) Delete(owner, peerID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	doc := x.load()
	if _, ok := doc[owner][peerID]; !ok {
		return nil
	}
	delete(doc[owner], peerID)
	return x.save(doc)
}

// ClearAll removes every row for owner. No-op if owner has none.
func (x *Index) ClearAll(owner string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	doc := x.load()
	if _, ok := doc[owner]; !ok {
		return nil
	}
	delete(doc, owner)
	return x.save(doc)
}

// Filter keeps rows whose peer name or phone contains query, case-insensitively.
func Filter(rows []Conversation, query string) []Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	var out []Conversation
	for _, c := range rows {
		if strings.Contains(strings.ToLower(c.PeerName), q) || strings.Contains(strings.ToLower(c.PeerPhone), q) {
			out = append(out, c)
		}
	}
	return out
}

// load returns the stored document; missing or corrupt data reads as empty.
func (x *Index) load() document {
	raw, ok, err := x.kv.Get(Key)
	if err != nil {
		x.logger.Warn("read conversation index", zap.Error(err))
		return document{}
	}
	if !ok || raw == "" {
		return document{}
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		x.logger.Warn("conversation index is corrupt, treating as empty", zap.Error(err))
		return document{}
	}
	return doc
}

func (x *Index) save(doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return x.kv.Put(Key, string(data))
}

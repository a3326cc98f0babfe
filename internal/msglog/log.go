package msglog

import (
	"encoding/json"
	"sync"

	"github.com/matheus3301/sigma/internal/store"
	"go.uber.org/zap"
)

// KeyPrefix starts every message log key.
const KeyPrefix = "sigma.messages.v1::"

// Key returns the store key for the (owner, peer) log.
func Key(owner, peer string) string {
	return KeyPrefix + owner + "::" + peer
}

// Store hands out per-conversation logs sharing one KV store.
// Mutations on the same pair are serialized.
type Store struct {
	kv     store.KV
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a log store over kv.
func NewStore(kv store.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Thread returns the log for (owner, peer).
func (s *Store) Thread(owner, peer string) *Log {
	key := Key(owner, peer)
	s.mu.Lock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	s.mu.Unlock()
	return &Log{key: key, kv: s.kv, logger: s.logger, mu: mu}
}

// Log is the ordered message history of one conversation.
type Log struct {
	key    string
	kv     store.KV
	logger *zap.Logger
	mu     *sync.Mutex
}

// Load returns the messages oldest first. Missing or corrupt data reads as empty.
func (l *Log) Load() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Append adds m to the end of the log.
func (l *Log) Append(m Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := l.load()
	msgs = append(msgs, m)
	return l.save(msgs)
}

// Acknowledge marks the message with tempID as sent. Its id becomes serverID
// unless serverID is empty, and its timestamp becomes ts when ts > 0.
// ok is false when no message has tempID.
func (l *Log) Acknowledge(tempID, serverID string, ts int64) (Message, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := l.load()
	for i := range msgs {
		if msgs[i].ID != tempID {
			continue
		}
		if serverID != "" {
			msgs[i].ID = serverID
		}
		msgs[i].Status = Sent
		if ts > 0 {
			msgs[i].TS = ts
		}
		if err := l.save(msgs); err != nil {
			return Message{}, false, err
		}
		return msgs[i], true, nil
	}
	return Message{}, false, nil
}

// Clear empties the log.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(nil)
}

func (l *Log) load() []Message {
	raw, ok, err := l.kv.Get(l.key)
	if err != nil {
		l.logger.Warn("read message log", zap.String("key", l.key), zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		l.logger.Warn("message log is corrupt, treating as empty", zap.String("key", l.key), zap.Error(err))
		return nil
	}
	return msgs
}

func (l *Log) save(msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return l.kv.Put(l.key, string(data))
}

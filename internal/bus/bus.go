// Package bus fans daemon events out to in-process subscribers: the sync
// engine, the event stream served to clients, and tests.
package bus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bus routes events by kind prefix. A subscriber whose buffer is full misses
// the event and the drop is counted, except for lossless subscribers: for
// those Publish waits until there is room or the subscription is cancelled.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	next    uint64
	dropped atomic.Uint64
}

type subscription struct {
	prefixes []string
	ch       chan Event
	lossless bool
	done     chan struct{}
}

func (s *subscription) wants(kind string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(kind, p) {
			return true
		}
	}
	return false
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Publish delivers evt to every subscriber interested in evt.Kind.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	var wait []*subscription
	b.mu.RLock()
	for _, sub := range b.subs {
		if !sub.wants(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			if sub.lossless {
				wait = append(wait, sub)
			} else {
				b.dropped.Add(1)
			}
		}
	}
	b.mu.RUnlock()

	// Outside the lock so a cancelled subscriber can still unsubscribe.
	for _, sub := range wait {
		select {
		case sub.ch <- evt:
		case <-sub.done:
		}
	}
}

// Emit publishes kind with payload, stamped now.
func (b *Bus) Emit(kind string, payload any) {
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe returns a channel of events whose kind starts with prefix ("" is
// everything) and a function that cancels the subscription.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	return b.SubscribeKinds(bufSize, prefix)
}

// SubscribeKinds subscribes to several kind prefixes on one channel.
func (b *Bus) SubscribeKinds(bufSize int, prefixes ...string) (<-chan Event, func()) {
	return b.subscribe(false, bufSize, prefixes)
}

// SubscribeLossless is Subscribe for consumers that must see every event,
// such as the writer of persisted state. Publishers wait on a full buffer, so
// the consumer has to keep draining until it unsubscribes.
func (b *Bus) SubscribeLossless(prefix string, bufSize int) (<-chan Event, func()) {
	return b.subscribe(true, bufSize, []string{prefix})
}

func (b *Bus) subscribe(lossless bool, bufSize int, prefixes []string) (<-chan Event, func()) {
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	sub := &subscription{
		prefixes: prefixes,
		ch:       make(chan Event, bufSize),
		lossless: lossless,
		done:     make(chan struct{}),
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

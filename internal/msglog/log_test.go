package msglog

import (
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/matheus3301/sigma/internal/store"
)

func testStore(t *testing.T) (*Store, *store.DB) {
	t.Helper()
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, nil), db
}

func TestKey(t *testing.T) {
	if got := Key("u1", "u2"); got != "sigma.messages.v1::u1::u2" {
		t.Fatalf("Key = %q", got)
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	s, _ := testStore(t)
	l := s.Thread("me", "ana")

	for i, text := range []string{"one", "two", "three"} {
		m := Message{ID: strconv.Itoa(i), From: "me", To: "ana", Text: text, TS: int64(i), Status: Pending}
		if err := l.Append(m); err != nil {
			t.Fatal(err)
		}
	}
	msgs := s.Thread("me", "ana").Load()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Text != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Text, want)
		}
	}
	if other := s.Thread("me", "bo").Load(); len(other) != 0 {
		t.Fatalf("logs leaked across peers: %+v", other)
	}
}

func TestAcknowledgeRewritesPendingEntry(t *testing.T) {
	s, _ := testStore(t)
	l := s.Thread("u1", "u2")
	if err := l.Append(Message{ID: "t1000-5", From: "u1", To: "u2", Text: "hi", TS: 1000, Status: Pending}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := l.Acknowledge("t1000-5", "m42", 1005)
	if err != nil || !ok {
		t.Fatalf("Acknowledge = %v, %v", ok, err)
	}
	want := Message{ID: "m42", From: "u1", To: "u2", Text: "hi", TS: 1005, Status: Sent}
	if got != want {
		t.Fatalf("acked = %+v, want %+v", got, want)
	}
	msgs := l.Load()
	if len(msgs) != 1 || msgs[0] != want {
		t.Fatalf("stored = %+v", msgs)
	}
}

func TestAcknowledgeEdgeCases(t *testing.T) {
	s, _ := testStore(t)
	l := s.Thread("u1", "u2")
	_ = l.Append(Message{ID: "t1-1", From: "u1", To: "u2", Text: "a", TS: 10, Status: Pending})

	if _, ok, err := l.Acknowledge("nope", "m1", 20); err != nil || ok {
		t.Fatalf("unknown temp id should be a no-op, got ok=%v err=%v", ok, err)
	}
	if msgs := l.Load(); msgs[0].Status != Pending {
		t.Fatalf("status changed on unknown ack: %+v", msgs[0])
	}

	got, ok, err := l.Acknowledge("t1-1", "", 0)
	if err != nil || !ok {
		t.Fatalf("Acknowledge = %v, %v", ok, err)
	}
	if got.ID != "t1-1" || got.TS != 10 || got.Status != Sent {
		t.Fatalf("expected temp id and ts kept, got %+v", got)
	}
}

func TestClear(t *testing.T) {
	s, db := testStore(t)
	l := s.Thread("u1", "u2")
	_ = l.Append(Message{ID: "a", Text: "x"})
	if err := l.Clear(); err != nil {
		t.Fatal(err)
	}
	if msgs := l.Load(); len(msgs) != 0 {
		t.Fatalf("expected empty log, got %+v", msgs)
	}
	raw, ok, _ := db.Get(Key("u1", "u2"))
	if !ok || raw != "[]" {
		t.Fatalf("expected persisted empty array, got %q (ok=%v)", raw, ok)
	}
}

func TestCorruptLogReadsAsEmpty(t *testing.T) {
	s, db := testStore(t)
	_ = db.Put(Key("u1", "u2"), "nope")
	l := s.Thread("u1", "u2")
	if msgs := l.Load(); len(msgs) != 0 {
		t.Fatalf("expected empty, got %+v", msgs)
	}
	if err := l.Append(Message{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if msgs := l.Load(); len(msgs) != 1 {
		t.Fatalf("expected append to recover the log, got %+v", msgs)
	}
}

func TestNewTempID(t *testing.T) {
	re := regexp.MustCompile(`^t(\d+)-(\d+)$`)
	now := time.UnixMilli(1700000000123)
	for range 200 {
		id := NewTempID(now)
		m := re.FindStringSubmatch(id)
		if m == nil {
			t.Fatalf("bad temp id %q", id)
		}
		if m[1] != "1700000000123" {
			t.Fatalf("temp id %q does not carry the send time", id)
		}
		n, _ := strconv.Atoi(m[2])
		if n < 0 || n >= 10000 {
			t.Fatalf("suffix out of range in %q", id)
		}
	}
}

func TestFallbackID(t *testing.T) {
	id := FallbackID(time.UnixMilli(42))
	if id != "r42" {
		t.Fatalf("FallbackID = %q", id)
	}
}

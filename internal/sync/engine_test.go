package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/realtime"
	"github.com/matheus3301/sigma/internal/store"
)

type staticOwner string

func (o staticOwner) UserID() string { return string(o) }

type fixture struct {
	engine *Engine
	index  *convindex.Index
	logs   *msglog.Store
	bus    *bus.Bus
}

func newFixture(t *testing.T, owner string) *fixture {
	t.Helper()
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	index := convindex.New(db, nil)
	logs := msglog.NewStore(db, nil)
	return &fixture{
		engine: NewEngine(staticOwner(owner), index, logs, b, nil, nil),
		index:  index,
		logs:   logs,
		bus:    b,
	}
}

func TestInboundOnOpenThreadIsLogged(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2", Name: "Bea"})

	in := realtime.Incoming{ID: "m7", From: "u2", To: "u1", Content: "hey", TS: 2000}
	if err := f.engine.HandleIncoming(in); err != nil {
		t.Fatal(err)
	}

	msgs := f.logs.Thread("u1", "u2").Load()
	want := msglog.Message{ID: "m7", From: "u2", To: "u1", Text: "hey", TS: 2000, Status: msglog.Received}
	if len(msgs) != 1 || msgs[0] != want {
		t.Fatalf("log = %+v, want [%+v]", msgs, want)
	}
	c, ok := f.index.Get("u1", "u2")
	if !ok || c.LastMessage != "hey" || c.LastTs != 2000 || c.PeerName != "Bea" {
		t.Fatalf("index row = %+v (ok=%v)", c, ok)
	}
}

func TestInboundOnClosedThreadOnlyTouchesIndex(t *testing.T) {
	f := newFixture(t, "u1")
	_ = f.index.Touch("u1", convindex.Peer{ID: "u3", Name: "Cid", Phone: "777"}, "old", 10)
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	if err := f.engine.HandleIncoming(realtime.Incoming{ID: "m8", From: "u3", To: "u1", Content: "psst", TS: 3000}); err != nil {
		t.Fatal(err)
	}

	if msgs := f.logs.Thread("u1", "u3").Load(); len(msgs) != 0 {
		t.Fatalf("closed thread should not be logged, got %+v", msgs)
	}
	rows := f.index.List("u1")
	if len(rows) != 1 || rows[0].LastMessage != "psst" || rows[0].LastTs != 3000 {
		t.Fatalf("index = %+v", rows)
	}
	if rows[0].PeerName != "Cid" || rows[0].PeerPhone != "777" {
		t.Fatalf("peer identity lost: %+v", rows[0])
	}
}

func TestInboundEchoOfOwnMessage(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	if err := f.engine.HandleIncoming(realtime.Incoming{ID: "m9", From: "u1", To: "u2", Content: "from my phone", TS: 10}); err != nil {
		t.Fatal(err)
	}
	if msgs := f.logs.Thread("u1", "u2").Load(); len(msgs) != 1 {
		t.Fatalf("expected echo to land in u2's thread, got %+v", msgs)
	}
}

func TestInboundForOtherUsersIsDropped(t *testing.T) {
	f := newFixture(t, "u1")
	if err := f.engine.HandleIncoming(realtime.Incoming{ID: "x", From: "u5", To: "u6", Content: "?", TS: 1}); err != nil {
		t.Fatal(err)
	}
	if rows := f.index.List("u1"); len(rows) != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInboundWithoutSessionIsDropped(t *testing.T) {
	f := newFixture(t, "")
	if err := f.engine.HandleIncoming(realtime.Incoming{ID: "x", From: "u2", To: "u1", TS: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestAckReconcilesTrackedMessage(t *testing.T) {
	f := newFixture(t, "u1")
	peer := convindex.Peer{ID: "u2", Name: "Bea"}
	_ = f.logs.Thread("u1", "u2").Append(msglog.Message{ID: "t1000-5", From: "u1", To: "u2", Text: "hi", TS: 1000, Status: msglog.Pending})
	f.engine.Track("t1000-5", peer)

	ch, unsub := f.bus.Subscribe("message.", 10)
	defer unsub()

	if err := f.engine.HandleAck(realtime.Ack{TempID: "t1000-5", ServerID: "m42", TS: 1005}); err != nil {
		t.Fatal(err)
	}

	msgs := f.logs.Thread("u1", "u2").Load()
	want := msglog.Message{ID: "m42", From: "u1", To: "u2", Text: "hi", TS: 1005, Status: msglog.Sent}
	if len(msgs) != 1 || msgs[0] != want {
		t.Fatalf("log = %+v, want [%+v]", msgs, want)
	}
	c, _ := f.index.Get("u1", "u2")
	if c.LastMessage != "hi" || c.LastTs != 1005 || c.PeerName != "Bea" {
		t.Fatalf("index row = %+v", c)
	}

	evt := <-ch
	if evt.Kind != bus.KindMessageAcked {
		t.Fatalf("event = %s, want %s", evt.Kind, bus.KindMessageAcked)
	}
	if p := evt.Payload.(msglog.Event); p.PeerID != "u2" || p.Message.ID != "m42" || p.TempID != "t1000-5" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestAckFallsBackToOpenThread(t *testing.T) {
	f := newFixture(t, "u1")
	_ = f.logs.Thread("u1", "u2").Append(msglog.Message{ID: "t5-1", From: "u1", To: "u2", Text: "yo", TS: 5, Status: msglog.Pending})
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	if err := f.engine.HandleAck(realtime.Ack{TempID: "t5-1", ServerID: "s1"}); err != nil {
		t.Fatal(err)
	}
	msgs := f.logs.Thread("u1", "u2").Load()
	if msgs[0].ID != "s1" || msgs[0].Status != msglog.Sent || msgs[0].TS != 5 {
		t.Fatalf("log = %+v", msgs)
	}
}

func TestUnknownAckIsIgnored(t *testing.T) {
	f := newFixture(t, "u1")
	if err := f.engine.HandleAck(realtime.Ack{TempID: "t9-9", ServerID: "s"}); err != nil {
		t.Fatal(err)
	}
	if rows := f.index.List("u1"); len(rows) != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestEngineConsumesBusEvents(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	ch, unsub := f.bus.Subscribe(bus.KindMessageAppended, 10)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.Start(ctx)
	defer f.engine.Stop()

	f.bus.Emit(bus.KindRealtimeMessage, realtime.Incoming{ID: "m1", From: "u2", To: "u1", Content: "ping", TS: 1})

	select {
	case evt := <-ch:
		if p := evt.Payload.(msglog.Event); p.Message.Text != "ping" {
			t.Fatalf("payload = %+v", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("engine never appended the message")
	}
}

func TestEngineKeepsUpWithBursts(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.Start(ctx)
	defer f.engine.Stop()

	const n = 600
	for i := 0; i < n; i++ {
		f.bus.Emit(bus.KindRealtimeMessage, realtime.Incoming{
			ID: fmt.Sprintf("m%d", i), From: "u2", To: "u1", Content: "burst", TS: int64(i + 1),
		})
	}

	thread := f.logs.Thread("u1", "u2")
	deadline := time.Now().Add(10 * time.Second)
	for len(thread.Load()) < n && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	msgs := thread.Load()
	if len(msgs) != n {
		t.Fatalf("log holds %d messages, want %d", len(msgs), n)
	}
	if msgs[0].ID != "m0" || msgs[n-1].ID != fmt.Sprintf("m%d", n-1) {
		t.Fatalf("order lost: first %q last %q", msgs[0].ID, msgs[n-1].ID)
	}
	if got := f.bus.Dropped(); got != 0 {
		t.Fatalf("bus dropped %d events", got)
	}
}

func TestLockedHoldsOffEvents(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.Start(ctx)
	defer f.engine.Stop()

	thread := f.logs.Thread("u1", "u2")
	err := f.engine.Locked(func() error {
		f.bus.Emit(bus.KindRealtimeMessage, realtime.Incoming{ID: "m1", From: "u2", To: "u1", Content: "late", TS: 5})
		time.Sleep(50 * time.Millisecond)
		if msgs := thread.Load(); len(msgs) != 0 {
			t.Errorf("event applied inside Locked: %+v", msgs)
		}
		return thread.Clear()
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(thread.Load()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if msgs := thread.Load(); len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("log = %+v, want the held-off message", msgs)
	}
}

func TestCloseThread(t *testing.T) {
	f := newFixture(t, "u1")
	f.engine.OpenThread(convindex.Peer{ID: "u2"})
	f.engine.CloseThread()
	if _, ok := f.engine.OpenPeer(); ok {
		t.Fatal("expected no open thread")
	}
}

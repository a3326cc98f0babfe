package model

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fakeDaemon struct {
	users    []backend.User
	usersErr error
	sendResp *api.SendResponse
	sendErr  error
	thread   []msglog.Message
	sent     []*api.SendRequest
}

func (f *fakeDaemon) Status(context.Context) (*api.StatusResponse, error) {
	return &api.StatusResponse{Profile: "main", SignedIn: true, UserID: "u1", State: "CONNECTED"}, nil
}
func (f *fakeDaemon) Login(context.Context, *api.LoginRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{UserID: "u1"}, nil
}
func (f *fakeDaemon) Register(context.Context, *api.RegisterRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{UserID: "u1"}, nil
}
func (f *fakeDaemon) Logout(context.Context) error { return nil }
func (f *fakeDaemon) Users(context.Context, string) (*api.UsersResponse, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return &api.UsersResponse{Users: f.users}, nil
}
func (f *fakeDaemon) Conversations(context.Context, string) (*api.ConversationsResponse, error) {
	return &api.ConversationsResponse{}, nil
}
func (f *fakeDaemon) DeleteConversation(context.Context, string) error { return nil }
func (f *fakeDaemon) OpenThread(context.Context, *api.PeerRequest) (*api.MessagesResponse, error) {
	return &api.MessagesResponse{Messages: f.thread}, nil
}
func (f *fakeDaemon) CloseThread(context.Context) error { return nil }
func (f *fakeDaemon) Send(_ context.Context, in *api.SendRequest) (*api.SendResponse, error) {
	f.sent = append(f.sent, in)
	return f.sendResp, f.sendErr
}
func (f *fakeDaemon) ClearThread(context.Context, string) error { return nil }
func (f *fakeDaemon) Watch(context.Context, string) (api.EventWatcher, error) {
	return nil, errors.New("no stream")
}

func event(t *testing.T, kind string, payload any) *api.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &api.Event{Kind: kind, Payload: raw, OccurredAtMs: 1}
}

func openedModel(t *testing.T, d *fakeDaemon) *ViewModel {
	t.Helper()
	vm := NewViewModel(d)
	if err := vm.LoadStatus(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := vm.OpenThread(context.Background(), convindex.Peer{ID: "u2", Name: "Bea"}); err != nil {
		t.Fatal(err)
	}
	return vm
}

func TestApplyAppendThenAckReplacesPending(t *testing.T) {
	vm := openedModel(t, &fakeDaemon{})

	pending := msglog.Message{ID: "t1000-5", From: "u1", To: "u2", Text: "hi", TS: 1000, Status: msglog.Pending}
	if c := vm.Apply(event(t, bus.KindMessageAppended, msglog.Event{PeerID: "u2", Message: pending})); c != ChangeThread {
		t.Fatalf("append change = %v", c)
	}
	sent := pending
	sent.ID, sent.TS, sent.Status = "m42", 1005, msglog.Sent
	if c := vm.Apply(event(t, bus.KindMessageAcked, msglog.Event{PeerID: "u2", TempID: "t1000-5", Message: sent})); c != ChangeThread {
		t.Fatalf("ack change = %v", c)
	}

	msgs := vm.Messages()
	if len(msgs) != 1 || msgs[0] != sent {
		t.Fatalf("messages = %+v, want [%+v]", msgs, sent)
	}
}

func TestApplyIgnoresOtherThreads(t *testing.T) {
	vm := openedModel(t, &fakeDaemon{})
	m := msglog.Message{ID: "m1", From: "u3", To: "u1", Text: "yo", Status: msglog.Received}
	if c := vm.Apply(event(t, bus.KindMessageAppended, msglog.Event{PeerID: "u3", Message: m})); c != 0 {
		t.Fatalf("change = %v, want none", c)
	}
	if len(vm.Messages()) != 0 {
		t.Fatal("message for another thread was shown")
	}
}

func TestApplyConversationOrdering(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	vm.Apply(event(t, bus.KindConversationTouched, convindex.Conversation{PeerID: "a", PeerName: "Ana", LastTs: 10}))
	vm.Apply(event(t, bus.KindConversationTouched, convindex.Conversation{PeerID: "b", PeerName: "Bea", LastTs: 20}))
	vm.Apply(event(t, bus.KindConversationTouched, convindex.Conversation{PeerID: "a", PeerName: "Ana", LastTs: 30, LastMessage: "new"}))

	rows := vm.Conversations("")
	if len(rows) != 2 || rows[0].PeerID != "a" || rows[0].LastMessage != "new" || rows[1].PeerID != "b" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows := vm.Conversations("BE"); len(rows) != 1 || rows[0].PeerID != "b" {
		t.Fatalf("filtered rows = %+v", rows)
	}

	vm.Apply(event(t, bus.KindConversationDeleted, "a"))
	if rows := vm.Conversations(""); len(rows) != 1 || rows[0].PeerID != "b" {
		t.Fatalf("rows after delete = %+v", rows)
	}
}

func TestApplyStatusAndAuthFailure(t *testing.T) {
	vm := openedModel(t, &fakeDaemon{})

	if c := vm.Apply(event(t, bus.KindStatusChanged, status.StatusChange{From: status.Connected, To: status.Disconnected})); c != ChangeStatus {
		t.Fatalf("change = %v", c)
	}
	if st := vm.Status(); st.State != "DISCONNECTED" {
		t.Fatalf("state = %q", st.State)
	}

	c := vm.Apply(event(t, bus.KindAuthFailed, "invalid_token"))
	if c&ChangeSession == 0 {
		t.Fatalf("change = %v, want session", c)
	}
	if vm.Status().SignedIn {
		t.Fatal("still signed in after auth failure")
	}
	if _, ok := vm.Thread(); ok {
		t.Fatal("thread still open after auth failure")
	}
	if f := vm.Flash.Get(); f == nil || f.Level != FlashErr {
		t.Fatalf("flash = %+v", f)
	}
}

func TestApplyThreadCleared(t *testing.T) {
	d := &fakeDaemon{thread: []msglog.Message{{ID: "m1", From: "u2", To: "u1", Text: "x", Status: msglog.Received}}}
	vm := openedModel(t, d)
	if len(vm.Messages()) != 1 {
		t.Fatal("thread not loaded")
	}
	if c := vm.Apply(event(t, bus.KindThreadCleared, "u2")); c != ChangeThread {
		t.Fatalf("change = %v", c)
	}
	if len(vm.Messages()) != 0 {
		t.Fatal("messages survived clear")
	}
}

func TestLoadUsers(t *testing.T) {
	d := &fakeDaemon{users: []backend.User{{ID: "u2", Name: "Bea", Phone: "222"}, {ID: "u3", Name: "Cid", Phone: "333"}}}
	vm := openedModel(t, d)
	if err := vm.LoadUsers(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := vm.Users("33"); len(got) != 1 || got[0].ID != "u3" {
		t.Fatalf("Users(33) = %+v", got)
	}

	d.usersErr = grpcstatus.Error(codes.Unavailable, "connection refused")
	if err := vm.LoadUsers(context.Background()); err != nil {
		t.Fatalf("transport failure returned %v, want empty list", err)
	}
	if len(vm.Users("")) != 0 {
		t.Fatal("stale users kept after a failed load")
	}
	if f := vm.Flash.Get(); f == nil || f.Level != FlashWarn {
		t.Fatalf("flash = %+v", f)
	}

	d.usersErr = grpcstatus.Error(codes.Unauthenticated, "session expired")
	if err := vm.LoadUsers(context.Background()); !api.IsCode(err, codes.Unauthenticated) {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
	if vm.Status().SignedIn {
		t.Fatal("still signed in after 401")
	}
}

func TestSend(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	if err := vm.Send(context.Background(), "hi"); err != ErrNoThread {
		t.Fatalf("err = %v, want ErrNoThread", err)
	}

	vm = openedModel(t, d)
	d.sendErr = grpcstatus.Error(codes.Unavailable, "not connected")
	if err := vm.Send(context.Background(), "hi"); err == nil {
		t.Fatal("send while disconnected succeeded")
	}
	if len(vm.Messages()) != 0 {
		t.Fatal("declined send was shown")
	}

	d.sendErr = nil
	pending := msglog.Message{ID: "t1-1", From: "u1", To: "u2", Text: "hi", Status: msglog.Pending}
	d.sendResp = &api.SendResponse{Message: pending}
	if err := vm.Send(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if msgs := vm.Messages(); len(msgs) != 1 || msgs[0].ID != "t1-1" {
		t.Fatalf("messages = %+v", msgs)
	}
	if last := d.sent[len(d.sent)-1]; last.PeerID != "u2" || last.PeerName != "Bea" {
		t.Fatalf("request = %+v", last)
	}

	// The appended event for the same message does not duplicate it.
	vm.Apply(event(t, bus.KindMessageAppended, msglog.Event{PeerID: "u2", Message: pending}))
	if len(vm.Messages()) != 1 {
		t.Fatal("pending message duplicated")
	}
}

func TestFlashExpires(t *testing.T) {
	now := time.Unix(100, 0)
	f := &Flash{now: func() time.Time { return now }}
	if f.Get() != nil {
		t.Fatal("empty flash returned a message")
	}
	f.Info("saved")
	if m := f.Get(); m == nil || m.Text != "saved" || m.Level != FlashInfo {
		t.Fatalf("flash = %+v", m)
	}
	now = now.Add(5 * time.Second)
	if f.Get() != nil {
		t.Fatal("flash did not expire")
	}
}

// Package model holds the TUI's client-side state, fed by daemon calls and
// the daemon's event stream.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/outbox"
	"github.com/matheus3301/sigma/internal/status"
	"google.golang.org/grpc/codes"
)

var ErrNoThread = errors.New("no conversation open")

// Daemon is the subset of the daemon API the TUI uses.
type Daemon interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	Login(ctx context.Context, in *api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, in *api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	Users(ctx context.Context, query string) (*api.UsersResponse, error)
	Conversations(ctx context.Context, query string) (*api.ConversationsResponse, error)
	DeleteConversation(ctx context.Context, peerID string) error
	OpenThread(ctx context.Context, in *api.PeerRequest) (*api.MessagesResponse, error)
	CloseThread(ctx context.Context) error
	Send(ctx context.Context, in *api.SendRequest) (*api.SendResponse, error)
	ClearThread(ctx context.Context, peerID string) error
	Watch(ctx context.Context, prefix string) (api.EventWatcher, error)
}

// Change tells the UI which parts of the model moved.
type Change int

const (
	ChangeStatus Change = 1 << iota
	ChangeConversations
	ChangeThread
	ChangeSession
	ChangeFlash
)

// ViewModel caches daemon state for rendering.
type ViewModel struct {
	mu sync.RWMutex

	daemon        Daemon
	status        api.StatusResponse
	conversations []convindex.Conversation
	users         []backend.User
	thread        convindex.Peer
	messages      []msglog.Message

	Flash Flash
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{daemon: d}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = *st
	vm.mu.Unlock()
	return nil
}

// LoadConversations fetches the conversation index.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	resp, err := vm.daemon.Conversations(ctx, "")
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = resp.Conversations
	vm.mu.Unlock()
	return nil
}

// LoadUsers fetches the user directory. Transport failures leave an empty
// list and a notice; an expired session is returned to the caller.
func (vm *ViewModel) LoadUsers(ctx context.Context) error {
	resp, err := vm.daemon.Users(ctx, "")
	if api.IsCode(err, codes.Unauthenticated) {
		vm.markSignedOut()
		return err
	}
	var users []backend.User
	if err != nil {
		vm.Flash.Warn("Could not load users: " + api.ErrorMessage(err))
	} else {
		users = resp.Users
	}
	vm.mu.Lock()
	vm.users = users
	vm.mu.Unlock()
	return nil
}

// Login signs in and refreshes the status.
func (vm *ViewModel) Login(ctx context.Context, phone, password string) error {
	if _, err := vm.daemon.Login(ctx, &api.LoginRequest{Phone: phone, Password: password}); err != nil {
		return err
	}
	return vm.LoadStatus(ctx)
}

// Register creates an account, signs in and refreshes the status.
func (vm *ViewModel) Register(ctx context.Context, name, phone, password string) error {
	if _, err := vm.daemon.Register(ctx, &api.RegisterRequest{Name: name, Phone: phone, Password: password}); err != nil {
		return err
	}
	return vm.LoadStatus(ctx)
}

// Logout ends the session and forgets cached data.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if err := vm.daemon.Logout(ctx); err != nil {
		return err
	}
	vm.markSignedOut()
	return nil
}

// OpenThread loads peer's log and makes it the open conversation.
func (vm *ViewModel) OpenThread(ctx context.Context, peer convindex.Peer) error {
	resp, err := vm.daemon.OpenThread(ctx, &api.PeerRequest{PeerID: peer.ID, PeerName: peer.Name, PeerPhone: peer.Phone})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.thread = peer
	vm.messages = resp.Messages
	vm.mu.Unlock()
	return nil
}

// CloseThread leaves the open conversation.
func (vm *ViewModel) CloseThread(ctx context.Context) error {
	vm.mu.Lock()
	vm.thread = convindex.Peer{}
	vm.messages = nil
	vm.mu.Unlock()
	return vm.daemon.CloseThread(ctx)
}

// Send sends text to the open conversation. The log entry itself arrives
// through the event stream.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	peer, ok := vm.Thread()
	if !ok {
		return ErrNoThread
	}
	resp, err := vm.daemon.Send(ctx, &api.SendRequest{
		PeerRequest: api.PeerRequest{PeerID: peer.ID, PeerName: peer.Name, PeerPhone: peer.Phone},
		Text:        text,
	})
	if api.IsCode(err, codes.Unavailable) {
		return errors.New("not connected, message not sent")
	}
	if err != nil {
		return errors.New(api.ErrorMessage(err))
	}
	if resp.Error != "" {
		vm.Flash.Warn("Message saved but not delivered: " + resp.Error)
	}
	vm.upsertMessage(peer.ID, "", resp.Message)
	return nil
}

// ClearThread erases the open conversation's log.
func (vm *ViewModel) ClearThread(ctx context.Context) error {
	peer, ok := vm.Thread()
	if !ok {
		return ErrNoThread
	}
	return vm.daemon.ClearThread(ctx, peer.ID)
}

// DeleteConversation removes a row from the conversation index.
func (vm *ViewModel) DeleteConversation(ctx context.Context, peerID string) error {
	return vm.daemon.DeleteConversation(ctx, peerID)
}

// Status returns a snapshot of the daemon status.
func (vm *ViewModel) Status() api.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Conversations returns the rows matching query, most recent first.
func (vm *ViewModel) Conversations(query string) []convindex.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(convindex.Filter(vm.conversations, query))
}

// Users returns the directory entries matching query.
func (vm *ViewModel) Users(query string) []backend.User {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	var out []backend.User
	for _, u := range vm.users {
		if containsFold(u.Name, query) || containsFold(u.Phone, query) {
			out = append(out, u)
		}
	}
	return out
}

// Thread returns the open conversation, if any.
func (vm *ViewModel) Thread() (convindex.Peer, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.thread, vm.thread.ID != ""
}

// Messages returns a snapshot of the open conversation's log.
func (vm *ViewModel) Messages() []msglog.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.messages)
}

// Apply folds one daemon event into the model and reports what changed.
func (vm *ViewModel) Apply(evt *api.Event) Change {
	switch evt.Kind {
	case bus.KindMessageAppended, bus.KindMessageAcked:
		var p msglog.Event
		if json.Unmarshal(evt.Payload, &p) != nil {
			return 0
		}
		if vm.upsertMessage(p.PeerID, p.TempID, p.Message) {
			return ChangeThread
		}
	case bus.KindMessageSendFailed:
		var p outbox.FailedSend
		if json.Unmarshal(evt.Payload, &p) == nil {
			vm.Flash.Err("Send failed: " + p.Error)
			return ChangeFlash
		}
	case bus.KindThreadCleared:
		var peerID string
		if json.Unmarshal(evt.Payload, &peerID) != nil {
			return 0
		}
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if vm.thread.ID == peerID {
			vm.messages = nil
			return ChangeThread
		}
	case bus.KindConversationTouched:
		var c convindex.Conversation
		if json.Unmarshal(evt.Payload, &c) != nil {
			return 0
		}
		vm.upsertConversation(c)
		return ChangeConversations
	case bus.KindConversationDeleted:
		var peerID string
		if json.Unmarshal(evt.Payload, &peerID) != nil {
			return 0
		}
		vm.mu.Lock()
		vm.conversations = slices.DeleteFunc(vm.conversations, func(c convindex.Conversation) bool { return c.PeerID == peerID })
		vm.mu.Unlock()
		return ChangeConversations
	case bus.KindStatusChanged:
		var sc status.StatusChange
		if json.Unmarshal(evt.Payload, &sc) != nil {
			return 0
		}
		vm.mu.Lock()
		vm.status.State = string(sc.To)
		vm.status.StateSinceMs = evt.OccurredAtMs
		vm.mu.Unlock()
		return ChangeStatus
	case bus.KindAuthFailed:
		vm.markSignedOut()
		vm.Flash.Err("Session rejected by the server, sign in again")
		return ChangeSession | ChangeFlash
	case bus.KindLoggedOut:
		vm.markSignedOut()
		return ChangeSession
	case bus.KindLoggedIn:
		var u backend.User
		if json.Unmarshal(evt.Payload, &u) != nil {
			return 0
		}
		vm.mu.Lock()
		vm.status.SignedIn = true
		vm.status.UserID, vm.status.Name, vm.status.Phone = u.ID, u.Name, u.Phone
		vm.mu.Unlock()
		return ChangeSession
	}
	return 0
}

// Watch applies daemon events until ctx ends, resubscribing after stream
// errors. onChange runs on the watch goroutine.
func (vm *ViewModel) Watch(ctx context.Context, onChange func(Change)) {
	for ctx.Err() == nil {
		w, err := vm.daemon.Watch(ctx, "")
		if err == nil {
			for {
				evt, rerr := w.Recv()
				if rerr != nil {
					break
				}
				if c := vm.Apply(evt); c != 0 {
					onChange(c)
				}
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// upsertMessage replaces the entry named tempID (or m.ID) in the open
// conversation, appending when absent. It reports whether the thread changed.
func (vm *ViewModel) upsertMessage(peerID, tempID string, m msglog.Message) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if peerID == "" || vm.thread.ID != peerID {
		return false
	}
	for i := range vm.messages {
		if vm.messages[i].ID == m.ID || (tempID != "" && vm.messages[i].ID == tempID) {
			vm.messages[i] = m
			return true
		}
	}
	vm.messages = append(vm.messages, m)
	return true
}

func (vm *ViewModel) upsertConversation(c convindex.Conversation) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	rows := slices.DeleteFunc(vm.conversations, func(r convindex.Conversation) bool { return r.PeerID == c.PeerID })
	rows = append(rows, c)
	slices.SortStableFunc(rows, func(a, b convindex.Conversation) int {
		if a.LastTs != b.LastTs {
			if a.LastTs > b.LastTs {
				return -1
			}
			return 1
		}
		switch {
		case a.PeerID < b.PeerID:
			return -1
		case a.PeerID > b.PeerID:
			return 1
		}
		return 0
	})
	vm.conversations = rows
	if vm.thread.ID == c.PeerID && vm.thread.Name == "" {
		vm.thread = c.Peer()
	}
}

func (vm *ViewModel) markSignedOut() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.status.SignedIn = false
	vm.status.UserID, vm.status.Name, vm.status.Phone, vm.status.OpenPeerID = "", "", "", ""
	vm.conversations = nil
	vm.users = nil
	vm.thread = convindex.Peer{}
	vm.messages = nil
}

func containsFold(s, query string) bool {
	query = strings.TrimSpace(query)
	return query == "" || strings.Contains(strings.ToLower(s), strings.ToLower(query))
}

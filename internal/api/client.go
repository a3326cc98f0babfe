package api

import (
	"context"

	"google.golang.org/grpc"
)

// Client is the typed stub for every daemon service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Calls use the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, service, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+service+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

func call[Resp any](ctx context.Context, c *Client, service, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.invoke(ctx, service, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return call[StatusResponse](ctx, c, sessionServiceName, "Status", &Empty{})
}

func (c *Client) Login(ctx context.Context, in *LoginRequest) (*AuthResponse, error) {
	return call[AuthResponse](ctx, c, sessionServiceName, "Login", in)
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest) (*AuthResponse, error) {
	return call[AuthResponse](ctx, c, sessionServiceName, "Register", in)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.invoke(ctx, sessionServiceName, "Logout", &Empty{}, &Empty{})
}

func (c *Client) Users(ctx context.Context, query string) (*UsersResponse, error) {
	return call[UsersResponse](ctx, c, chatServiceName, "Users", &FilterRequest{Query: query})
}

func (c *Client) Conversations(ctx context.Context, query string) (*ConversationsResponse, error) {
	return call[ConversationsResponse](ctx, c, chatServiceName, "Conversations", &FilterRequest{Query: query})
}

func (c *Client) DeleteConversation(ctx context.Context, peerID string) error {
	return c.invoke(ctx, chatServiceName, "DeleteConversation", &PeerRequest{PeerID: peerID}, &Empty{})
}

func (c *Client) Messages(ctx context.Context, peerID string) (*MessagesResponse, error) {
	return call[MessagesResponse](ctx, c, messageServiceName, "Messages", &PeerRequest{PeerID: peerID})
}

func (c *Client) OpenThread(ctx context.Context, in *PeerRequest) (*MessagesResponse, error) {
	return call[MessagesResponse](ctx, c, messageServiceName, "OpenThread", in)
}

func (c *Client) CloseThread(ctx context.Context) error {
	return c.invoke(ctx, messageServiceName, "CloseThread", &Empty{}, &Empty{})
}

func (c *Client) Send(ctx context.Context, in *SendRequest) (*SendResponse, error) {
	return call[SendResponse](ctx, c, messageServiceName, "Send", in)
}

func (c *Client) ClearThread(ctx context.Context, peerID string) error {
	return c.invoke(ctx, messageServiceName, "ClearThread", &PeerRequest{PeerID: peerID}, &Empty{})
}

// EventWatcher receives events from a Watch stream.
type EventWatcher interface {
	Recv() (*Event, error)
}

type eventWatcher struct {
	grpc.ClientStream
}

func (w *eventWatcher) Recv() (*Event, error) {
	e := new(Event)
	if err := w.ClientStream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Watch opens the event stream. Cancel ctx to stop it.
func (c *Client) Watch(ctx context.Context, prefix string) (EventWatcher, error) {
	stream, err := c.cc.NewStream(ctx, &EventServiceDesc.Streams[0], "/"+eventServiceName+"/Watch", grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchRequest{Prefix: prefix}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &eventWatcher{stream}, nil
}

package api

import (
	"context"

	"google.golang.org/grpc"
)

// Service names on the wire.
const (
	sessionServiceName = "sigma.v1.SessionService"
	chatServiceName    = "sigma.v1.ChatService"
	messageServiceName = "sigma.v1.MessageService"
	eventServiceName   = "sigma.v1.EventService"
)

type SessionServer interface {
	Status(context.Context, *Empty) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
}

type ChatServer interface {
	Users(context.Context, *FilterRequest) (*UsersResponse, error)
	Conversations(context.Context, *FilterRequest) (*ConversationsResponse, error)
	DeleteConversation(context.Context, *PeerRequest) (*Empty, error)
}

type MessageServer interface {
	Messages(context.Context, *PeerRequest) (*MessagesResponse, error)
	OpenThread(context.Context, *PeerRequest) (*MessagesResponse, error)
	CloseThread(context.Context, *Empty) (*Empty, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	ClearThread(context.Context, *PeerRequest) (*Empty, error)
}

type EventServer interface {
	Watch(*WatchRequest, EventStream) error
}

// EventStream is the server side of Watch.
type EventStream interface {
	Send(*Event) error
	Context() context.Context
}

// unary builds a method descriptor the way protoc-gen-go-grpc output does.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(sessionServiceName, "Status", SessionServer.Status),
		unary(sessionServiceName, "Login", SessionServer.Login),
		unary(sessionServiceName, "Register", SessionServer.Register),
		unary(sessionServiceName, "Logout", SessionServer.Logout),
	},
	Metadata: "sigma/v1/sigma",
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: chatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(chatServiceName, "Users", ChatServer.Users),
		unary(chatServiceName, "Conversations", ChatServer.Conversations),
		unary(chatServiceName, "DeleteConversation", ChatServer.DeleteConversation),
	},
	Metadata: "sigma/v1/sigma",
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: messageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(messageServiceName, "Messages", MessageServer.Messages),
		unary(messageServiceName, "OpenThread", MessageServer.OpenThread),
		unary(messageServiceName, "CloseThread", MessageServer.CloseThread),
		unary(messageServiceName, "Send", MessageServer.Send),
		unary(messageServiceName, "ClearThread", MessageServer.ClearThread),
	},
	Metadata: "sigma/v1/sigma",
}

var EventServiceDesc = grpc.ServiceDesc{
	ServiceName: eventServiceName,
	HandlerType: (*EventServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(EventServer).Watch(in, &eventStream{stream})
			},
		},
	},
	Metadata: "sigma/v1/sigma",
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(e *Event) error {
	return s.ServerStream.SendMsg(e)
}

// Register adds all daemon services to srv.
func Register(srv grpc.ServiceRegistrar, session SessionServer, chat ChatServer, message MessageServer, events EventServer) {
	srv.RegisterService(&SessionServiceDesc, session)
	srv.RegisterService(&ChatServiceDesc, chat)
	srv.RegisterService(&MessageServiceDesc, message)
	srv.RegisterService(&EventServiceDesc, events)
}

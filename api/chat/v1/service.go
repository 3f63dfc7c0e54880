package chatv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "sublease.chat.v1.ChatService"

// Full method names, as seen by interceptors.
const (
	RegisterMethod        = "/" + ServiceName + "/Register"
	LoginMethod           = "/" + ServiceName + "/Login"
	SendMessageMethod     = "/" + ServiceName + "/SendMessage"
	GetConversationMethod = "/" + ServiceName + "/GetConversation"
	ListInboxMethod       = "/" + ServiceName + "/ListInbox"
	SubscribeMethod       = "/" + ServiceName + "/Subscribe"
)

// SubscribeServer is the server side of the Subscribe stream.
type SubscribeServer = grpc.ServerStreamingServer[Message]

// ChatServiceServer is implemented by the chat service.
type ChatServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*Message, error)
	GetConversation(context.Context, *GetConversationRequest) (*GetConversationResponse, error)
	ListInbox(context.Context, *ListInboxRequest) (*ListInboxResponse, error)
	Subscribe(*SubscribeRequest, SubscribeServer) error
}

// UnimplementedChatServiceServer answers every call with codes.Unimplemented.
// Embed it to satisfy ChatServiceServer partially.
type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) Register(context.Context, *RegisterRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedChatServiceServer) Login(context.Context, *LoginRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedChatServiceServer) SendMessage(context.Context, *SendMessageRequest) (*Message, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedChatServiceServer) GetConversation(context.Context, *GetConversationRequest) (*GetConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetConversation not implemented")
}
func (UnimplementedChatServiceServer) ListInbox(context.Context, *ListInboxRequest) (*ListInboxResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListInbox not implemented")
}
func (UnimplementedChatServiceServer) Subscribe(*SubscribeRequest, SubscribeServer) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

// unary adapts a typed service method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).Subscribe(in, &grpc.GenericServerStream[SubscribeRequest, Message]{ServerStream: stream})
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(RegisterMethod, ChatServiceServer.Register)},
		{MethodName: "Login", Handler: unary(LoginMethod, ChatServiceServer.Login)},
		{MethodName: "SendMessage", Handler: unary(SendMessageMethod, ChatServiceServer.SendMessage)},
		{MethodName: "GetConversation", Handler: unary(GetConversationMethod, ChatServiceServer.GetConversation)},
		{MethodName: "ListInbox", Handler: unary(ListInboxMethod, ChatServiceServer.ListInbox)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "api/chat/v1",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

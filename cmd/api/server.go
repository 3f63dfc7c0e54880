package main

import (
	"context"

	v1 "github.com/easylease/sublease/api/chat/v1"
	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/pg"
	"google.golang.org/grpc"
)

// userStore is the subset of data.UsersStore the service needs.
type userStore interface {
	CreateUser(ctx context.Context, nu data.NewUser) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id string) (*data.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*data.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
}

// messageStore is the subset of data.MessagesStore the service needs.
type messageStore interface {
	SaveMessage(ctx context.Context, msg data.Message) (*data.Message, bool, error)
	GetConversation(ctx context.Context, conversationID string, limit int64) ([]*data.Message, error)
	GetInbox(ctx context.Context, userID string, limit int64) ([]*data.InboxEntry, error)
}

// profileStore receives the public profile created at signup.
type profileStore interface {
	CreateProfile(ctx context.Context, p *pg.Profile) error
}

// Server implements the chat service and contains references to stores and auth logic.
type Server struct {
	v1.UnimplementedChatServiceServer

	users    userStore
	msgs     messageStore
	profiles profileStore
	auth     *auth.JWTManager
	hub      *ConnectionHub

	// directPublish pushes saved messages to the hub from SendMessage.
	// It is off when a change stream feeds the hub instead.
	directPublish bool
}

// newServer returns a ready-to-use Server wired with stores, auth manager and hub.
func newServer(users userStore, msgs messageStore, authMgr *auth.JWTManager, hub *ConnectionHub) *Server {
	return &Server{users: users, msgs: msgs, auth: authMgr, hub: hub, directPublish: true}
}

// registerService registers the ChatService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterChatServiceServer(s, srv)
}

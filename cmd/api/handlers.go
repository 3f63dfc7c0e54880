package main

import (
	"context"
	"errors"
	"log"
	"strings"

	v1 "github.com/easylease/sublease/api/chat/v1"
	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/conversation"
	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/pg"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
	defaultInboxLimit   = 50
	maxContentLength    = 4000
)

// Register validates the signup form, stores the user and returns a token.
// The public profile is created best effort.
func (s *Server) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error) {
	signup := auth.Signup{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		University:      req.University,
	}
	if err := signup.Validate(); err != nil {
		if auth.IsValidation(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "validate signup: %v", err)
	}

	// checked before hashing; CreateUser still catches a concurrent signup
	exists, err := s.users.UserExists(ctx, req.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to check user: %v", err)
	}
	if exists {
		return nil, status.Errorf(codes.AlreadyExists, "an account with this email already exists")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	user, err := s.users.CreateUser(ctx, data.NewUser{
		Email:          req.Email,
		HashedPassword: hashed,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		University:     strings.TrimSpace(req.University),
	})
	if errors.Is(err, data.ErrUserExists) {
		return nil, status.Errorf(codes.AlreadyExists, "an account with this email already exists")
	}
	if err != nil {
		log.Printf("create user failed: %v", err)
		return nil, status.Errorf(codes.Internal, "failed to create user")
	}

	if s.profiles != nil {
		err := s.profiles.CreateProfile(ctx, &pg.Profile{
			UserID:     user.ID.Hex(),
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			University: user.University,
			Email:      user.Email,
		})
		if err != nil {
			log.Printf("create profile for %s failed: %v", user.ID.Hex(), err)
		}
	}

	return s.issueToken(user)
}

// Login authenticates a user and returns a JWT token
func (s *Server) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, data.ErrNotFound) {
		return nil, status.Errorf(codes.NotFound, "user not found")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to find user: %v", err)
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "invalid credentials")
	}
	return s.issueToken(user)
}

func (s *Server) issueToken(user *data.User) (*v1.AuthResponse, error) {
	token, expiresAt, err := s.auth.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}
	return &v1.AuthResponse{Token: token, UserID: user.ID.Hex(), ExpiresAt: expiresAt}, nil
}

// SendMessage stores a message from the caller. Resending a correlation id
// returns the stored message without storing or pushing it again.
func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.Message, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}

	content := strings.TrimSpace(req.Content)
	switch {
	case content == "":
		return nil, status.Error(codes.InvalidArgument, conversation.ErrEmptyMessage.Error())
	case len(content) > maxContentLength:
		return nil, status.Errorf(codes.InvalidArgument, "message is longer than %d bytes", maxContentLength)
	case req.ReceiverID == "":
		return nil, status.Errorf(codes.InvalidArgument, "receiver_id is required")
	case req.ReceiverID == claims.UserID:
		return nil, status.Errorf(codes.InvalidArgument, "cannot message yourself")
	}

	if _, err := s.users.GetUserByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "recipient not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to verify recipient: %v", err)
	}

	saved, created, err := s.msgs.SaveMessage(ctx, data.Message{
		CorrelationID: req.CorrelationID,
		SenderID:      claims.UserID,
		ReceiverID:    req.ReceiverID,
		ListingID:     req.ListingID,
		Content:       content,
	})
	if errors.Is(err, data.ErrCorrelationConflict) {
		return nil, status.Error(codes.AlreadyExists, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to save message: %v", err)
	}

	msg := toWireMessage(saved)
	if created && s.directPublish && s.hub != nil {
		s.hub.Publish(msg)
	}
	return msg, nil
}

// GetConversation returns the latest messages between the caller and a peer,
// oldest first.
func (s *Server) GetConversation(ctx context.Context, req *v1.GetConversationRequest) (*v1.GetConversationResponse, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	if req.PeerID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "peer_id is required")
	}

	limit := clampLimit(req.Limit, defaultHistoryLimit, maxHistoryLimit)
	msgs, err := s.msgs.GetConversation(ctx, conversation.Key(claims.UserID, req.PeerID), limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get history: %v", err)
	}

	resp := &v1.GetConversationResponse{Messages: make([]*v1.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toWireMessage(m))
	}
	return resp, nil
}

// ListInbox returns one entry per conversation of the caller, most recent
// activity first, with the peer's name attached.
func (s *Server) ListInbox(ctx context.Context, req *v1.ListInboxRequest) (*v1.ListInboxResponse, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}

	entries, err := s.msgs.GetInbox(ctx, claims.UserID, clampLimit(req.Limit, defaultInboxLimit, maxHistoryLimit))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read inbox: %v", err)
	}

	peerIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		peerIDs = append(peerIDs, e.PeerID)
	}
	peers, err := s.users.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read participants: %v", err)
	}

	resp := &v1.ListInboxResponse{Entries: make([]*v1.InboxEntry, 0, len(entries))}
	for _, e := range entries {
		peer := v1.Participant{ID: e.PeerID}
		if u, ok := peers[e.PeerID]; ok {
			peer.FirstName, peer.LastName, peer.Email = u.FirstName, u.LastName, u.Email
		}
		last := e.LastMessage
		resp.Entries = append(resp.Entries, &v1.InboxEntry{
			ConversationID: e.ConversationID,
			Peer:           peer,
			LastMessage:    toWireMessage(&last),
			LastActivity:   e.LastActivity,
		})
	}
	return resp, nil
}

// Subscribe keeps the caller's stream registered in the hub until the
// client goes away. Response headers are sent once the stream is registered.
func (s *Server) Subscribe(_ *v1.SubscribeRequest, stream v1.SubscribeServer) error {
	claims, ok := getClaimsFromContext(stream.Context())
	if !ok {
		return status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	if s.hub == nil {
		return status.Errorf(codes.Unavailable, "realtime delivery is disabled")
	}

	connID := s.hub.Register(claims.UserID, stream)
	defer s.hub.Unregister(claims.UserID, connID)

	// headers tell the client it is registered
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	log.Printf("subscriber %s connected (%s)", claims.UserID, claims.Email)

	<-stream.Context().Done()
	return nil
}

func clampLimit(requested int32, def, ceiling int64) int64 {
	limit := int64(requested)
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func toWireMessage(m *data.Message) *v1.Message {
	return &v1.Message{
		CorrelationID:  m.CorrelationID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ListingID:      m.ListingID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// Package chatclient connects the conversation reconciler to the chat
// service over gRPC.
package chatclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	v1 "github.com/easylease/sublease/api/chat/v1"
	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/conversation"
)

// ErrNoToken is returned by calls that need a signed-in session.
var ErrNoToken = errors.New("not signed in")

// Dial opens a connection to the chat service at addr.
func Dial(addr string, useTLS bool) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if useTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// Client implements conversation.Sender, conversation.HistoryFetcher and
// conversation.InboxFetcher for one signed-in user.
type Client struct {
	rpc   *v1.ChatServiceClient
	token string

	// HistoryLimit and InboxLimit are passed to the server; zero uses the
	// server default.
	HistoryLimit int32
	InboxLimit   int32
}

func New(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: v1.NewChatServiceClient(cc)}
}

// Login signs in and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (conversation.Session, error) {
	resp, err := c.rpc.Login(ctx, &v1.LoginRequest{Email: email, Password: password})
	if err != nil {
		return conversation.Session{}, err
	}
	c.token = resp.Token
	return conversation.Session{UserID: resp.UserID}, nil
}

// UseToken adopts a token issued earlier and returns the session it names.
// The signature is checked by the server on the first call, not here.
func (c *Client) UseToken(token string) (conversation.Session, error) {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return conversation.Session{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" {
		return conversation.Session{}, errors.New("token has no user id")
	}
	c.token = token
	return conversation.Session{UserID: claims.UserID}, nil
}

// Token returns the bearer token in use.
func (c *Client) Token() string { return c.token }

func (c *Client) authed(ctx context.Context) (context.Context, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token), nil
}

// Send submits m and returns the stored message.
func (c *Client) Send(ctx context.Context, m conversation.Message) (conversation.Message, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return conversation.Message{}, err
	}
	resp, err := c.rpc.SendMessage(ctx, &v1.SendMessageRequest{
		CorrelationID: m.CorrelationID,
		ReceiverID:    m.ReceiverID,
		ListingID:     m.ListingID,
		Content:       m.Content,
	})
	if err != nil {
		return conversation.Message{}, err
	}
	return fromWire(resp), nil
}

// History loads the conversation with peerID, oldest first.
func (c *Client) History(ctx context.Context, peerID string) ([]conversation.Message, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.GetConversation(ctx, &v1.GetConversationRequest{PeerID: peerID, Limit: c.HistoryLimit})
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, fromWire(m))
	}
	return out, nil
}

// Inbox loads one summary per conversation, newest activity first.
func (c *Client) Inbox(ctx context.Context) ([]conversation.Summary, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.ListInbox(ctx, &v1.ListInboxRequest{Limit: c.InboxLimit})
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Summary, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		s := conversation.Summary{
			ConversationID: e.ConversationID,
			Peer: conversation.Participant{
				ID:        e.Peer.ID,
				FirstName: e.Peer.FirstName,
				LastName:  e.Peer.LastName,
				Email:     e.Peer.Email,
			},
			LastActivity: e.LastActivity,
		}
		if e.LastMessage != nil {
			s.LastMessage = fromWire(e.LastMessage)
		}
		out = append(out, s)
	}
	return out, nil
}

// Subscribe opens the realtime feed. The stream ends when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context) (conversation.Stream, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	s, err := c.rpc.Subscribe(ctx, &v1.SubscribeRequest{})
	if err != nil {
		return nil, err
	}
	// the server sends headers once the stream is registered
	if _, err := s.Header(); err != nil {
		return nil, err
	}
	return stream{s}, nil
}

type stream struct {
	s v1.SubscribeClient
}

func (s stream) Recv() (conversation.Message, error) {
	m, err := s.s.Recv()
	if err != nil {
		return conversation.Message{}, err
	}
	return fromWire(m), nil
}

func fromWire(m *v1.Message) conversation.Message {
	return conversation.Message{
		CorrelationID:  m.CorrelationID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ListingID:      m.ListingID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

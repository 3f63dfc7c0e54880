package chatclient

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/easylease/sublease/api/chat/v1"
	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/conversation"
)

// fakeChat is a one-user chat service: alice talking to bob.
type fakeChat struct {
	v1.UnimplementedChatServiceServer
	pushed chan *v1.Message

	mu sync.Mutex
	// afterHistoryRead runs once, after GetConversation has read its
	// snapshot and before it replies.
	afterHistoryRead func()
}

func requireToken(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	if got := md.Get("authorization"); len(got) == 0 || got[0] != "Bearer tok" {
		return status.Error(codes.Unauthenticated, "bad token")
	}
	return nil
}

func (f *fakeChat) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	if req.Password != "secret123" {
		return nil, status.Error(codes.PermissionDenied, "invalid credentials")
	}
	return &v1.AuthResponse{Token: "tok", UserID: "alice"}, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.Message, error) {
	if err := requireToken(ctx); err != nil {
		return nil, err
	}
	m := &v1.Message{
		CorrelationID:  req.CorrelationID,
		ConversationID: conversation.Key("alice", req.ReceiverID),
		SenderID:       "alice",
		ReceiverID:     req.ReceiverID,
		ListingID:      req.ListingID,
		Content:        req.Content,
		CreatedAt:      time.Now().UTC(),
	}
	f.pushed <- m
	return m, nil
}

func (f *fakeChat) GetConversation(ctx context.Context, req *v1.GetConversationRequest) (*v1.GetConversationResponse, error) {
	if err := requireToken(ctx); err != nil {
		return nil, err
	}
	resp := &v1.GetConversationResponse{Messages: []*v1.Message{{
		CorrelationID: "old-1", SenderID: req.PeerID, ReceiverID: "alice", Content: "is the room free in May?",
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}}}

	f.mu.Lock()
	hook := f.afterHistoryRead
	f.afterHistoryRead = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return resp, nil
}

func (f *fakeChat) ListInbox(ctx context.Context, req *v1.ListInboxRequest) (*v1.ListInboxResponse, error) {
	if err := requireToken(ctx); err != nil {
		return nil, err
	}
	return &v1.ListInboxResponse{Entries: []*v1.InboxEntry{{
		ConversationID: conversation.Key("alice", "bob"),
		Peer:           v1.Participant{ID: "bob", FirstName: "Bob"},
		LastMessage:    &v1.Message{Content: "latest"},
		LastActivity:   time.Now().UTC(),
	}}}, nil
}

func (f *fakeChat) Subscribe(_ *v1.SubscribeRequest, stream v1.SubscribeServer) error {
	if err := requireToken(stream.Context()); err != nil {
		return err
	}
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case m := <-f.pushed:
			if err := stream.Send(m); err != nil {
				return err
			}
		}
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return newTestClientFor(t, &fakeChat{pushed: make(chan *v1.Message, 8)})
}

func newTestClientFor(t *testing.T, chat *fakeChat) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	v1.RegisterChatServiceServer(s, chat)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return New(conn)
}

func TestCallsNeedToken(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Send(context.Background(), conversation.Message{ReceiverID: "bob", Content: "hi"}); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if _, err := c.Subscribe(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Login(context.Background(), "alice@uga.edu", "wrong"); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	session, err := c.Login(context.Background(), "alice@uga.edu", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.UserID != "alice" || c.Token() != "tok" {
		t.Fatalf("unexpected session %+v token %q", session, c.Token())
	}
}

func TestUseToken(t *testing.T) {
	token, _, err := auth.NewJWTManager("k", time.Hour).GenerateToken("u-42", "ada@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	c := New(nil)
	session, err := c.UseToken(token)
	if err != nil {
		t.Fatalf("UseToken: %v", err)
	}
	if session.UserID != "u-42" || c.Token() != token {
		t.Fatalf("unexpected session %+v", session)
	}
	if _, err := c.UseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestReconcilerOverGRPC(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := c.Login(ctx, "alice@uga.edu", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	inbox := conversation.NewInbox(c)
	r := conversation.NewReconciler(session, c, c, inbox)

	msgs, err := r.Open(ctx, "bob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(msgs) != 1 || msgs[0].CorrelationID != "old-1" {
		t.Fatalf("unexpected history: %+v", msgs)
	}

	stream, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	applied := make(chan string, 4)
	r.OnChange = func(id string) {
		select {
		case applied <- id:
		default:
		}
	}
	go func() { _ = r.Run(ctx, stream) }()

	sent, err := r.Compose(ctx, "bob", "listing-7", "yes, from May 1")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if sent.Pending || sent.ListingID != "listing-7" {
		t.Fatalf("unexpected confirmed message: %+v", sent)
	}

	// wait for the pushed copy to be applied: it refreshes the inbox
	deadline := time.After(2 * time.Second)
	for len(inbox.Entries()) == 0 {
		select {
		case <-applied:
		case <-deadline:
			t.Fatalf("pushed message never applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	thread := r.Messages("bob")
	if len(thread) != 2 {
		t.Fatalf("expected history plus one sent message, got %d: %+v", len(thread), thread)
	}
	if thread[1].CorrelationID != sent.CorrelationID || thread[1].Pending {
		t.Fatalf("sent message not confirmed once: %+v", thread[1])
	}
	if e := inbox.Entries()[0]; e.Peer.FirstName != "Bob" || e.LastMessage.Content != "latest" {
		t.Fatalf("unexpected inbox entry: %+v", e)
	}
}

func TestMessageSentWhileOpeningIsShownOnce(t *testing.T) {
	chat := &fakeChat{pushed: make(chan *v1.Message, 8)}
	c := newTestClientFor(t, chat)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := c.Login(ctx, "alice@uga.edu", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	r := conversation.NewReconciler(session, c, c, conversation.NewInbox(c))
	applied := make(chan string, 8)
	r.OnChange = func(id string) {
		select {
		case applied <- id:
		default:
		}
	}

	stream, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	go func() { _ = r.Run(ctx, stream) }()

	// bob writes after the history snapshot was taken; the reply waits until
	// the push has been applied
	late := &v1.Message{
		CorrelationID: "late-1", ConversationID: conversation.Key("alice", "bob"),
		SenderID: "bob", ReceiverID: "alice", Content: "still looking?", CreatedAt: time.Now().UTC(),
	}
	chat.mu.Lock()
	chat.afterHistoryRead = func() {
		chat.pushed <- late
		select {
		case <-applied:
		case <-time.After(2 * time.Second):
		}
	}
	chat.mu.Unlock()

	msgs, err := r.Open(ctx, "bob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(msgs) != 2 || msgs[0].CorrelationID != "old-1" || msgs[1].CorrelationID != "late-1" {
		t.Fatalf("expected history then the late message, got %+v", msgs)
	}

	// a second open merges the same push without duplicating it
	msgs, err = r.Open(ctx, "bob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	count := 0
	for _, m := range msgs {
		if m.CorrelationID == "late-1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("late message shown %d times: %+v", count, msgs)
	}
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownMessage is returned by Retry for a correlation id that is not in
// any open thread.
var ErrUnknownMessage = errors.New("no such message")

// Session identifies the signed-in user.
type Session struct {
	UserID string
}

// Sender submits a message for persistence and returns the stored record.
type Sender interface {
	Send(ctx context.Context, m Message) (Message, error)
}

// HistoryFetcher loads a conversation's messages, oldest first.
type HistoryFetcher interface {
	History(ctx context.Context, peerID string) ([]Message, error)
}

// Stream yields confirmed messages from the realtime feed. Recv blocks until
// a message arrives or the stream ends.
type Stream interface {
	Recv() (Message, error)
}

// Reconciler keeps the open threads and the inbox of one session in line
// with the store. Compose and the receive loop may run on different
// goroutines; updates are applied in the order they arrive.
type Reconciler struct {
	session Session
	sender  Sender
	history HistoryFetcher
	inbox   *Inbox

	// OnChange, if set, is called after a thread changes. It must not call
	// back into the Reconciler.
	OnChange func(conversationID string)

	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	threads map[string]*Thread
}

func NewReconciler(session Session, sender Sender, history HistoryFetcher, inbox *Inbox) *Reconciler {
	return &Reconciler{
		session: session,
		sender:  sender,
		history: history,
		inbox:   inbox,
		newID:   uuid.NewString,
		now:     time.Now,
		threads: make(map[string]*Thread),
	}
}

// Inbox returns the session's inbox.
func (r *Reconciler) Inbox() *Inbox { return r.inbox }

// Open loads the conversation with peerID and returns its messages. The
// thread accepts pushes from the moment Open is called, so subscribe first
// and nothing sent while the history is in flight is lost. History is merged
// by correlation id and a pushed copy is never shown twice.
func (r *Reconciler) Open(ctx context.Context, peerID string) ([]Message, error) {
	key := Key(r.session.UserID, peerID)
	r.mu.Lock()
	r.thread(key)
	r.mu.Unlock()

	history, err := r.history.History(ctx, peerID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	r.mu.Lock()
	t := r.thread(key)
	t.Merge(history)
	msgs := t.Messages()
	r.mu.Unlock()

	r.changed(key)
	return msgs, nil
}

// Messages returns the current messages of the conversation with peerID.
func (r *Reconciler) Messages(peerID string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[Key(r.session.UserID, peerID)]
	if !ok {
		return nil
	}
	return t.Messages()
}

// Compose shows a new message immediately and submits it. If the submit
// fails the message stays in the thread flagged as failed and can be resent
// with Retry.
func (r *Reconciler) Compose(ctx context.Context, peerID, listingID, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}

	key := Key(r.session.UserID, peerID)
	m := Message{
		CorrelationID:  r.newID(),
		ConversationID: key,
		SenderID:       r.session.UserID,
		ReceiverID:     peerID,
		ListingID:      listingID,
		Content:        text,
		CreatedAt:      r.now(),
		Pending:        true,
	}

	r.mu.Lock()
	r.thread(key).AddPending(m)
	r.mu.Unlock()
	r.changed(key)

	return r.submit(ctx, m)
}

// Retry resubmits a failed message under its original correlation id.
func (r *Reconciler) Retry(ctx context.Context, correlationID string) (Message, error) {
	r.mu.Lock()
	var (
		m     Message
		found bool
	)
	for _, t := range r.threads {
		if m, found = t.Get(correlationID); found {
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return Message{}, ErrUnknownMessage
	}
	if !m.Pending {
		r.mu.Unlock()
		return m, nil
	}
	r.threads[m.ConversationID].MarkFailed(correlationID, false)
	r.mu.Unlock()
	r.changed(m.ConversationID)

	return r.submit(ctx, m)
}

// Failed returns the failed messages across all open threads.
func (r *Reconciler) Failed() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, t := range r.threads {
		for _, m := range t.msgs {
			if m.Failed {
				out = append(out, m)
			}
		}
	}
	return out
}

func (r *Reconciler) submit(ctx context.Context, m Message) (Message, error) {
	confirmed, err := r.sender.Send(ctx, m)

	r.mu.Lock()
	t := r.thread(m.ConversationID)
	if err != nil {
		t.MarkFailed(m.CorrelationID, true)
		failed, _ := t.Get(m.CorrelationID)
		r.mu.Unlock()
		r.changed(m.ConversationID)
		return failed, fmt.Errorf("send message: %w", err)
	}
	if confirmed.CorrelationID == "" {
		confirmed.CorrelationID = m.CorrelationID
	}
	if confirmed.ConversationID == "" {
		confirmed.ConversationID = m.ConversationID
	}
	t.Confirm(confirmed)
	r.mu.Unlock()
	r.changed(m.ConversationID)
	return confirmed, nil
}

// Apply reconciles a confirmed message from the realtime feed and refreshes
// the inbox. Messages that do not involve the session user are ignored.
func (r *Reconciler) Apply(ctx context.Context, m Message) error {
	if !m.Involves(r.session.UserID) {
		return nil
	}
	key := Key(m.SenderID, m.ReceiverID)
	if m.ConversationID == "" {
		m.ConversationID = key
	}

	r.mu.Lock()
	t, open := r.threads[key]
	if open {
		t.Confirm(m)
	}
	r.mu.Unlock()
	if open {
		r.changed(key)
	}

	if r.inbox == nil {
		return nil
	}
	if _, err := r.inbox.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

// Run applies messages from stream until it ends or ctx is done. A clean end
// of stream returns nil. The stream is not reopened.
func (r *Reconciler) Run(ctx context.Context, stream Stream) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if err := r.Apply(ctx, m); err != nil {
			log.Printf("conversation: %v", err)
		}
	}
}

func (r *Reconciler) thread(key string) *Thread {
	t, ok := r.threads[key]
	if !ok {
		t = NewThread(key)
		r.threads[key] = t
	}
	return t
}

func (r *Reconciler) changed(key string) {
	if r.OnChange != nil {
		r.OnChange(key)
	}
}

// Package conversation merges locally composed messages with confirmed
// messages delivered by the realtime feed, one thread per pair of users.
package conversation

import (
	"errors"
	"time"
)

// ErrEmptyMessage is returned when composing a message with no text.
var ErrEmptyMessage = errors.New("message content is empty")

// Key derives the conversation id for two users. The order of the arguments
// does not matter.
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// Message is one chat message, either confirmed by the store or still
// pending locally.
type Message struct {
	CorrelationID  string    `json:"correlation_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	ListingID      string    `json:"listing_id,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	// Pending is set until the store confirms the message.
	Pending bool `json:"-"`
	// Failed is set when submitting a pending message returned an error.
	Failed bool `json:"-"`
}

// Involves reports whether userID sent or received m.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Peer returns the other participant from userID's point of view.
func (m Message) Peer(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Thread is the ordered message list of one conversation. Each correlation
// id appears at most once. Thread is not safe for concurrent use.
type Thread struct {
	key   string
	msgs  []Message
	index map[string]int
}

func NewThread(key string) *Thread {
	return &Thread{key: key, index: make(map[string]int)}
}

// Key returns the conversation id.
func (t *Thread) Key() string { return t.key }

// Len returns the number of messages.
func (t *Thread) Len() int { return len(t.msgs) }

// AddPending appends an optimistic message. It returns false, and leaves the
// thread untouched, if the correlation id is already present.
func (t *Thread) AddPending(m Message) bool {
	if _, ok := t.index[m.CorrelationID]; ok {
		return false
	}
	m.Pending = true
	t.append(m)
	return true
}

// Confirm reconciles a confirmed message. A local entry with the same
// correlation id is replaced in place; otherwise the message is appended.
// It reports whether an existing entry was replaced.
func (t *Thread) Confirm(m Message) bool {
	m.Pending = false
	m.Failed = false
	if i, ok := t.index[m.CorrelationID]; ok {
		t.msgs[i] = m
		return true
	}
	t.append(m)
	return false
}

// Merge puts history, oldest first, ahead of the messages the thread already
// holds. A held message whose correlation id appears in history is replaced
// by the stored copy.
func (t *Thread) Merge(history []Message) {
	held := t.msgs
	t.msgs = make([]Message, 0, len(history)+len(held))
	t.index = make(map[string]int, len(history)+len(held))
	for _, m := range history {
		t.Confirm(m)
	}
	for _, m := range held {
		if _, ok := t.index[m.CorrelationID]; ok && m.CorrelationID != "" {
			continue
		}
		t.append(m)
	}
}

// MarkFailed flags a pending message as failed or clears the flag. Confirmed
// messages are never flagged.
func (t *Thread) MarkFailed(correlationID string, failed bool) bool {
	i, ok := t.index[correlationID]
	if !ok || !t.msgs[i].Pending {
		return false
	}
	t.msgs[i].Failed = failed
	return true
}

// Get returns the message with the given correlation id.
func (t *Thread) Get(correlationID string) (Message, bool) {
	i, ok := t.index[correlationID]
	if !ok {
		return Message{}, false
	}
	return t.msgs[i], true
}

// Messages returns a copy of the messages in display order.
func (t *Thread) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Thread) append(m Message) {
	if m.CorrelationID != "" {
		t.index[m.CorrelationID] = len(t.msgs)
	}
	t.msgs = append(t.msgs, m)
}

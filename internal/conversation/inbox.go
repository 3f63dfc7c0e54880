package conversation

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Participant is the display information of a conversation member.
type Participant struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Summary is one inbox row: the latest message of a conversation.
type Summary struct {
	ConversationID string      `json:"conversation_id"`
	Peer           Participant `json:"peer"`
	LastMessage    Message     `json:"last_message"`
	LastActivity   time.Time   `json:"last_activity"`
}

// InboxFetcher loads the authoritative inbox view for the session user.
type InboxFetcher interface {
	Inbox(ctx context.Context) ([]Summary, error)
}

// Inbox holds the latest summary per conversation, newest activity first.
// It is rebuilt from a full fetch on every refresh. When refreshes overlap,
// a result that arrives after a newer one has been committed is dropped.
type Inbox struct {
	fetcher InboxFetcher

	mu        sync.Mutex
	issued    uint64
	committed uint64
	entries   []Summary
}

func NewInbox(fetcher InboxFetcher) *Inbox {
	return &Inbox{fetcher: fetcher}
}

// Refresh refetches the inbox. It reports whether the result was committed.
func (i *Inbox) Refresh(ctx context.Context) (bool, error) {
	i.mu.Lock()
	i.issued++
	gen := i.issued
	i.mu.Unlock()

	entries, err := i.fetcher.Inbox(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch inbox: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if gen < i.committed {
		return false, nil
	}

	sorted := make([]Summary, len(entries))
	copy(sorted, entries)
	slices.SortStableFunc(sorted, func(a, b Summary) int {
		return b.LastActivity.Compare(a.LastActivity)
	})
	i.entries = sorted
	i.committed = gen
	return true, nil
}

// Entries returns a copy of the current summaries.
func (i *Inbox) Entries() []Summary {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Summary, len(i.entries))
	copy(out, i.entries)
	return out
}

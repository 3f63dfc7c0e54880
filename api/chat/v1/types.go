// Package chatv1 is the wire contract of the sublease chat service: request
// and response types, the JSON codec they travel in, the service descriptor
// and a client.
package chatv1

import "time"

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	University      string `json:"university"`
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SendMessageRequest carries a client-assigned correlation id. Sending the
// same id twice stores the message once.
type SendMessageRequest struct {
	CorrelationID string `json:"correlation_id"`
	ReceiverID    string `json:"receiver_id"`
	ListingID     string `json:"listing_id,omitempty"`
	Content       string `json:"content"`
}

// Message is a confirmed, stored message.
type Message struct {
	CorrelationID  string    `json:"correlation_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	ListingID      string    `json:"listing_id,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type GetConversationRequest struct {
	PeerID string `json:"peer_id"`
	Limit  int32  `json:"limit,omitempty"`
}

// GetConversationResponse lists messages oldest first.
type GetConversationResponse struct {
	Messages []*Message `json:"messages"`
}

type ListInboxRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type Participant struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type InboxEntry struct {
	ConversationID string      `json:"conversation_id"`
	Peer           Participant `json:"peer"`
	LastMessage    *Message    `json:"last_message"`
	LastActivity   time.Time   `json:"last_activity"`
}

// ListInboxResponse lists conversations, most recent activity first.
type ListInboxResponse struct {
	Entries []*InboxEntry `json:"entries"`
}

type SubscribeRequest struct{}

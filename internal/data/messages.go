package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/easylease/sublease/internal/conversation"
)

// ErrCorrelationConflict is returned when a correlation id is reused by a
// different sender or for a different conversation.
var ErrCorrelationConflict = errors.New("correlation id already used by another message")

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// SaveMessage stores a message and returns the stored record. Saving the
// same correlation id again returns the first record; created reports
// whether this call inserted it.
func (m *MessagesStore) SaveMessage(ctx context.Context, msg Message) (stored *Message, created bool, err error) {
	if msg.CorrelationID == "" {
		msg.CorrelationID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ID = bson.ObjectID{}
	msg.ConversationID = conversation.Key(msg.SenderID, msg.ReceiverID)

	filter := bson.M{"correlation_id": msg.CorrelationID}
	update := bson.M{"$setOnInsert": msg}

	res, err := m.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		// a duplicate key here means a concurrent save of the same id won
		return nil, false, fmt.Errorf("save message: %w", err)
	}

	var out Message
	if err := m.coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("load saved message: %w", err)
	}
	if out.SenderID != msg.SenderID || out.ConversationID != msg.ConversationID {
		return nil, false, ErrCorrelationConflict
	}

	return &out, err == nil && res.UpsertedCount > 0, nil
}

// GetConversation returns the latest messages of a conversation, ordered
// oldest to newest.
func (m *MessagesStore) GetConversation(ctx context.Context, conversationID string, limit int64) ([]*Message, error) {
	// newest first so the limit keeps the latest ones, reversed below
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetInbox returns one entry per conversation involving userID, most recent
// activity first.
func (m *MessagesStore) GetInbox(ctx context.Context, userID string, limit int64) ([]*InboxEntry, error) {
	pipeline := mongo.Pipeline{
		// Stage 1: every message the user sent or received
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender_id", Value: userID}},
				bson.D{{Key: "receiver_id", Value: userID}},
			}},
		}}},

		// Stage 2: chronological, so $last below picks the newest message
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},

		// Stage 3: one group per conversation
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "peer_id", Value: bson.D{{Key: "$last", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$sender_id", userID}}},
					"$receiver_id",
					"$sender_id",
				}},
			}}}},
			{Key: "last_message", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
			{Key: "last_activity", Value: bson.D{{Key: "$last", Value: "$created_at"}}},
		}}},

		// Stage 4: most recent conversation first
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_activity", Value: -1}}}},

		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate inbox: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*InboxEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode inbox: %w", err)
	}
	return entries, nil
}

// Watch opens a change stream of newly inserted messages.
func (m *MessagesStore) Watch(ctx context.Context) (*MessageFeed, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	cs, err := m.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch messages: %w", err)
	}
	return &MessageFeed{cs: cs}, nil
}

// MessageFeed yields messages as they are inserted.
type MessageFeed struct {
	cs *mongo.ChangeStream
}

// Next blocks until the next inserted message. It returns io.EOF when the
// stream closes without an error.
func (f *MessageFeed) Next(ctx context.Context) (*Message, error) {
	if !f.cs.Next(ctx) {
		if err := f.cs.Err(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var event struct {
		FullDocument Message `bson:"fullDocument"`
	}
	if err := f.cs.Decode(&event); err != nil {
		return nil, fmt.Errorf("decode change event: %w", err)
	}
	return &event.FullDocument, nil
}

// Close stops the change stream.
func (f *MessageFeed) Close(ctx context.Context) error {
	return f.cs.Close(ctx)
}

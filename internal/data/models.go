package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to the users collection.
type User struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Email      string        `bson:"email"`
	Password   string        `bson:"password"`
	FirstName  string        `bson:"first_name"`
	LastName   string        `bson:"last_name"`
	University string        `bson:"university"`
	CreatedAt  time.Time     `bson:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at"`
}

// Message maps to the messages collection. CorrelationID is assigned by the
// sending client and is unique.
type Message struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	CorrelationID  string        `bson:"correlation_id"`
	ConversationID string        `bson:"conversation_id"`
	SenderID       string        `bson:"sender_id"`
	ReceiverID     string        `bson:"receiver_id"`
	ListingID      string        `bson:"listing_id,omitempty"`
	Content        string        `bson:"content"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// InboxEntry is one row of the inbox aggregation: the latest message of a
// conversation the user takes part in.
type InboxEntry struct {
	ConversationID string    `bson:"_id"`
	PeerID         string    `bson:"peer_id"`
	LastMessage    Message   `bson:"last_message"`
	LastActivity   time.Time `bson:"last_activity"`
}

// LegacyListing maps to the listings collection behind the /api routes.
type LegacyListing struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      string        `bson:"title" json:"title"`
	Pets       bool          `bson:"pets" json:"pets"`
	Sqft       int           `bson:"sqft" json:"sqft"`
	Rent       int           `bson:"rent" json:"rent"`
	Parking    bool          `bson:"parking" json:"parking"`
	University string        `bson:"university" json:"university"`
	Lat        *float64      `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng        *float64      `bson:"lng,omitempty" json:"lng,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

// Coordinates returns the listing's location, if both parts are set.
func (l LegacyListing) Coordinates() (lat, lng float64, ok bool) {
	if l.Lat == nil || l.Lng == nil {
		return 0, 0, false
	}
	return *l.Lat, *l.Lng, true
}

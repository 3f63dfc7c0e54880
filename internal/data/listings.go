package data

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// LegacyListingsStore holds the listing documents served by the /api routes.
type LegacyListingsStore struct {
	coll *mongo.Collection
}

func NewLegacyListingsStore(coll *mongo.Collection) *LegacyListingsStore {
	return &LegacyListingsStore{coll: coll}
}

// List returns every legacy listing.
func (s *LegacyListingsStore) List(ctx context.Context) ([]LegacyListing, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []LegacyListing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return listings, nil
}

// Create inserts l and returns it with its id set.
func (s *LegacyListingsStore) Create(ctx context.Context, l LegacyListing) (*LegacyListing, error) {
	l.ID = bson.ObjectID{}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	res, err := s.coll.InsertOne(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	l.ID = res.InsertedID.(bson.ObjectID)
	return &l, nil
}

package data

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/easylease/sublease/internal/listing"
)

// UniversitiesStore reads and seeds the universities reference collection.
type UniversitiesStore struct {
	coll *mongo.Collection
}

func NewUniversitiesStore(coll *mongo.Collection) *UniversitiesStore {
	return &UniversitiesStore{coll: coll}
}

// List returns every university ordered by name.
func (u *UniversitiesStore) List(ctx context.Context) ([]listing.University, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := u.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find universities: %w", err)
	}
	defer cursor.Close(ctx)

	unis := []listing.University{}
	if err := cursor.All(ctx, &unis); err != nil {
		return nil, fmt.Errorf("decode universities: %w", err)
	}
	return unis, nil
}

// FindByName returns the university with exactly this name.
func (u *UniversitiesStore) FindByName(ctx context.Context, name string) (*listing.University, error) {
	var uni listing.University
	if err := u.coll.FindOne(ctx, bson.M{"name": name}).Decode(&uni); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find university: %w", err)
	}
	return &uni, nil
}

// Replace swaps the whole collection for unis. It is used to seed the
// reference data.
func (u *UniversitiesStore) Replace(ctx context.Context, unis []listing.University) error {
	if _, err := u.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("clear universities: %w", err)
	}
	if len(unis) == 0 {
		return nil
	}

	docs := make([]any, len(unis))
	for i, uni := range unis {
		docs[i] = uni
	}
	if _, err := u.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert universities: %w", err)
	}
	return nil
}

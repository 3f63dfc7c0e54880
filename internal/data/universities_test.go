package data

import (
	"context"
	"errors"
	"testing"

	"github.com/easylease/sublease/internal/listing"
)

func TestUniversitiesReplaceAndFind(t *testing.T) {
	c := setupDB(t)
	defer func() { _ = c.Close(context.Background()) }()

	ctx := context.Background()
	store := NewUniversitiesStore(c.UniversitiesCollection())

	seed := []listing.University{
		{Name: "University of Georgia", Lat: 33.948, Lng: -83.377},
		{Name: "Auburn University", Lat: 32.603, Lng: -85.486},
	}
	if err := store.Replace(ctx, seed); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	// seeding twice replaces rather than duplicates
	if err := store.Replace(ctx, seed); err != nil {
		t.Fatalf("second Replace failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Auburn University" {
		t.Fatalf("unexpected universities: %+v", all)
	}

	uga, err := store.FindByName(ctx, "University of Georgia")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if uga.Lat != 33.948 {
		t.Fatalf("unexpected latitude %v", uga.Lat)
	}
	if _, err := store.FindByName(ctx, "Hogwarts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	listings := NewLegacyListingsStore(c.ListingsCollection())
	created, err := listings.Create(ctx, LegacyListing{Title: "Loft", Rent: 700, Sqft: 400, University: "University of Georgia"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatalf("created listing has no id")
	}
	got, err := listings.List(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("List failed: %v (%d)", err, len(got))
	}
}

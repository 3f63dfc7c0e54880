package listing

import (
	"strings"
	"time"

	"github.com/easylease/sublease/internal/normalize"
)

// UniversityMode selects how the university filter is compared against a
// listing's universities.
type UniversityMode int

const (
	// UniversityContains matches when any listed university contains the
	// filter text, ignoring case.
	UniversityContains UniversityMode = iota
	// UniversityExact matches when any listed university equals the filter
	// text, ignoring case.
	UniversityExact
)

// Filters are the location and date constraints picked by the user. The zero
// value matches everything.
type Filters struct {
	University     string
	UniversityMode UniversityMode
	City           string
	State          string
	PostalCode     string

	// LatestMoveIn keeps listings whose lease starts on or before it.
	LatestMoveIn time.Time
	// EarliestLeaseEnd keeps listings whose lease ends on or after it.
	EarliestLeaseEnd time.Time
}

// Preferences are the budget and amenity constraints. They also drive the
// legacy score. A MaxRent of zero or less means no rent ceiling.
type Preferences struct {
	MaxRent   int  `yaml:"max_rent"`
	MinSqft   int  `yaml:"min_sqft"`
	Pets      bool `yaml:"pets"`
	Parking   bool `yaml:"parking"`
	Furnished bool `yaml:"furnished"`
}

func (p Preferences) rentOK(rent int) bool {
	return p.MaxRent <= 0 || rent <= p.MaxRent
}

// Predicate reports whether a listing passes one constraint.
type Predicate func(Listing) bool

// Predicates returns the active constraints for f and p. Constraints at
// their zero value are left out, so an empty result means every listing
// passes.
func Predicates(f Filters, p Preferences) []Predicate {
	var preds []Predicate

	if f.University != "" {
		want := f.University
		mode := f.UniversityMode
		preds = append(preds, func(l Listing) bool {
			for _, u := range l.Universities {
				if mode == UniversityExact && normalize.EqualFold(u, want) {
					return true
				}
				if mode == UniversityContains && normalize.ContainsFold(u, want) {
					return true
				}
			}
			return false
		})
	}
	if f.City != "" {
		city := f.City
		preds = append(preds, func(l Listing) bool { return normalize.ContainsFold(l.City, city) })
	}
	if f.State != "" {
		state := f.State
		preds = append(preds, func(l Listing) bool { return normalize.ContainsFold(l.State, state) })
	}
	if f.PostalCode != "" {
		zip := f.PostalCode
		preds = append(preds, func(l Listing) bool {
			return l.PostalCode != "" && strings.Contains(l.PostalCode, zip)
		})
	}
	if !f.LatestMoveIn.IsZero() {
		d := f.LatestMoveIn
		preds = append(preds, func(l Listing) bool {
			return !l.LeaseStart.IsZero() && !l.LeaseStart.After(d)
		})
	}
	if !f.EarliestLeaseEnd.IsZero() {
		d := f.EarliestLeaseEnd
		preds = append(preds, func(l Listing) bool {
			return !l.LeaseEnd.IsZero() && !l.LeaseEnd.Before(d)
		})
	}

	if p.MaxRent > 0 {
		preds = append(preds, func(l Listing) bool { return p.rentOK(l.Rent) })
	}
	if p.MinSqft > 0 {
		minSqft := p.MinSqft
		preds = append(preds, func(l Listing) bool { return l.SqFt >= minSqft })
	}
	if p.Pets {
		preds = append(preds, func(l Listing) bool { return l.PetsAllowed })
	}
	if p.Parking {
		preds = append(preds, func(l Listing) bool { return l.ParkingAvailable })
	}
	if p.Furnished {
		preds = append(preds, func(l Listing) bool { return l.Furnished })
	}

	return preds
}

// Matches reports whether l passes every active constraint.
func Matches(l Listing, f Filters, p Preferences) bool {
	for _, pred := range Predicates(f, p) {
		if !pred(l) {
			return false
		}
	}
	return true
}

// Filter returns the listings that pass every active constraint, in input
// order. The input slice is not modified.
func Filter(all []Listing, f Filters, p Preferences) []Listing {
	preds := Predicates(f, p)
	out := make([]Listing, 0, len(all))
next:
	for _, l := range all {
		for _, pred := range preds {
			if !pred(l) {
				continue next
			}
		}
		out = append(out, l)
	}
	return out
}

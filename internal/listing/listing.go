// Package listing holds the sublease listing model and the client-side
// discovery pipeline: filtering, legacy scoring, ordering and pagination over
// an already-fetched result set.
package listing

import (
	"time"
)

// MaxImages is the most photos a listing may carry.
const MaxImages = 5

// Owner is the public profile information joined onto a listing.
type Owner struct {
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	University string `json:"university"`
	Email      string `json:"email"`
	AvatarURL  string `json:"profilepic_url,omitempty"`
}

// Listing is a rentable unit posted by a user.
type Listing struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"user_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StreetAddress    string    `json:"street_address"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	PostalCode       string    `json:"zip_code"`
	Rent             int       `json:"rent"`
	SqFt             int       `json:"sq_ft"`
	Universities     []string  `json:"universities"`
	LeaseStart       time.Time `json:"lease_start"`
	LeaseEnd         time.Time `json:"lease_end"`
	PetsAllowed      bool      `json:"pets_allowed"`
	ParkingAvailable bool      `json:"parking_available"`
	Furnished        bool      `json:"furnished"`
	ImageURLs        []string  `json:"image_urls"`
	Lat              *float64  `json:"lat,omitempty"`
	Lng              *float64  `json:"lng,omitempty"`
	CreatedAt        time.Time `json:"created_at"`

	Owner *Owner `json:"profiles,omitempty"`
}

// Coordinates returns the listing's location, if it has one.
func (l Listing) Coordinates() (lat, lng float64, ok bool) {
	if l.Lat == nil || l.Lng == nil {
		return 0, 0, false
	}
	return *l.Lat, *l.Lng, true
}

// FullAddress joins the address parts into a single line suitable for
// geocoding.
func (l Listing) FullAddress() string {
	addr := l.StreetAddress
	for _, part := range []string{l.City, l.State + " " + l.PostalCode} {
		if part == "" || part == " " {
			continue
		}
		if addr != "" {
			addr += ", "
		}
		addr += part
	}
	return addr
}

// University is a reference entity used for autocomplete and proximity.
type University struct {
	Name string  `json:"name" bson:"name"`
	Lat  float64 `json:"lat" bson:"lat"`
	Lng  float64 `json:"lng" bson:"lng"`
}

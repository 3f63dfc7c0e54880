package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/geocode"
	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/storage"
)

// listingRequest is the body of create and update calls. Dates use
// listing.DateLayout.
type listingRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	StreetAddress    string   `json:"street_address"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	PostalCode       string   `json:"zip_code"`
	Rent             int      `json:"rent"`
	SqFt             int      `json:"sq_ft"`
	Universities     []string `json:"universities"`
	LeaseStart       string   `json:"lease_start"`
	LeaseEnd         string   `json:"lease_end"`
	PetsAllowed      bool     `json:"pets_allowed"`
	ParkingAvailable bool     `json:"parking_available"`
	Furnished        bool     `json:"furnished"`
}

func (r listingRequest) toListing() (listing.Listing, error) {
	var bad listing.ValidationErrors
	parse := func(field, v string) time.Time {
		if v == "" {
			return time.Time{}
		}
		t, err := time.Parse(listing.DateLayout, v)
		if err != nil {
			bad = append(bad, listing.FieldError{Field: field, Message: "must be a date like " + listing.DateLayout})
		}
		return t
	}

	l := listing.Listing{
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		StreetAddress:    strings.TrimSpace(r.StreetAddress),
		City:             strings.TrimSpace(r.City),
		State:            strings.TrimSpace(r.State),
		PostalCode:       strings.TrimSpace(r.PostalCode),
		Rent:             r.Rent,
		SqFt:             r.SqFt,
		Universities:     listing.SplitUniversities(strings.Join(r.Universities, ",")),
		LeaseStart:       parse("lease_start", r.LeaseStart),
		LeaseEnd:         parse("lease_end", r.LeaseEnd),
		PetsAllowed:      r.PetsAllowed,
		ParkingAvailable: r.ParkingAvailable,
		Furnished:        r.Furnished,
	}
	if len(bad) > 0 {
		return l, bad
	}
	return l, listing.Validate(l)
}

// locate fills in the coordinates of l. An address the geocoder cannot find
// is a validation error; an unreachable geocoder leaves l without
// coordinates.
func (s *Server) locate(ctx context.Context, l *listing.Listing) error {
	if s.deps.Geocoder == nil {
		return nil
	}
	loc, err := s.deps.Geocoder.Lookup(ctx, l.FullAddress())
	if errors.Is(err, geocode.ErrNotFound) {
		return listing.ValidationErrors{{Field: "street_address", Message: "address could not be located"}}
	}
	if err != nil {
		log.Printf("geocode %q: %v", l.FullAddress(), err)
		return nil
	}
	l.Lat, l.Lng = &loc.Lat, &loc.Lng
	return nil
}

func (s *Server) bindListing(c *gin.Context) (listing.Listing, bool) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return listing.Listing{}, false
	}
	l, err := req.toListing()
	if err == nil {
		err = s.locate(c.Request.Context(), &l)
	}
	if err != nil {
		respondError(c, err, "Failed to save listing")
		return listing.Listing{}, false
	}
	return l, true
}

// GET /v1/listings
func (s *Server) listListings(c *gin.Context) {
	all, err := s.deps.Listings.ListListings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch listings")
		return
	}
	c.JSON(http.StatusOK, all)
}

// GET /v1/profile/listings
func (s *Server) myListings(c *gin.Context) {
	mine, err := s.deps.Listings.ListingsByOwner(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "Failed to fetch listings")
		return
	}
	c.JSON(http.StatusOK, mine)
}

// GET /v1/listings/:id
func (s *Server) getListing(c *gin.Context) {
	l, err := s.deps.Listings.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch listing")
		return
	}
	c.JSON(http.StatusOK, l)
}

// POST /v1/listings
func (s *Server) createListing(c *gin.Context) {
	l, ok := s.bindListing(c)
	if !ok {
		return
	}
	l.OwnerID = currentUser(c)

	if err := s.deps.Listings.CreateListing(c.Request.Context(), &l); err != nil {
		respondError(c, err, "Failed to save listing")
		return
	}
	c.JSON(http.StatusCreated, l)
}

// PUT /v1/listings/:id
func (s *Server) updateListing(c *gin.Context) {
	l, ok := s.bindListing(c)
	if !ok {
		return
	}
	l.ID = c.Param("id")

	ctx := c.Request.Context()
	if err := s.deps.Listings.UpdateListing(ctx, currentUser(c), &l); err != nil {
		respondError(c, err, "Failed to save listing")
		return
	}
	updated, err := s.deps.Listings.GetListing(ctx, l.ID)
	if err != nil {
		respondError(c, err, "Failed to fetch listing")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETE /v1/listings/:id
func (s *Server) deleteListing(c *gin.Context) {
	if err := s.deps.Listings.DeleteListing(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete listing")
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /v1/listings/:id/images
//
// Every file is attempted. Files beyond the image cap and non-images are
// reported as failed without being uploaded.
func (s *Server) uploadImages(c *gin.Context) {
	if s.deps.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage is not configured"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files are required"})
		return
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	l, err := s.deps.Listings.GetListing(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch listing")
		return
	}
	if l.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	room := listing.MaxImages - len(l.ImageURLs)
	var accepted []storage.File
	var failed []storage.UploadFailure
	for _, fh := range form.File["files"] {
		f := formFile(fh)
		switch {
		case !strings.HasPrefix(f.ContentType, "image/"):
			failed = append(failed, storage.UploadFailure{File: f.Name, Error: "not an image"})
		case len(accepted) >= room:
			failed = append(failed, storage.UploadFailure{File: f.Name, Error: fmt.Sprintf("listing already has %d images", listing.MaxImages)})
		default:
			accepted = append(accepted, f)
		}
	}

	report := s.deps.Images.UploadAll(ctx, "listings/"+l.ID, accepted)
	failed = append(failed, report.Failed...)

	stored := l.ImageURLs
	if len(report.Uploaded) > 0 {
		var dropped []string
		stored, dropped, err = s.deps.Listings.AppendImages(ctx, userID, l.ID, report.Uploaded)
		if err != nil {
			respondError(c, err, "Failed to save images")
			return
		}
		// another upload filled the listing first; these objects are stored
		// but not attached
		for _, url := range dropped {
			failed = append(failed, storage.UploadFailure{File: url, Error: fmt.Sprintf("listing already has %d images", listing.MaxImages)})
		}
	}
	if stored == nil {
		stored = []string{}
	}
	if failed == nil {
		failed = []storage.UploadFailure{}
	}
	c.JSON(http.StatusOK, gin.H{"image_urls": stored, "failed": failed})
}

func formFile(fh *multipart.FileHeader) storage.File {
	return storage.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/geo"
	"github.com/easylease/sublease/internal/listing"
)

// GET /api/universities
func (s *Server) listUniversities(c *gin.Context) {
	unis, err := s.deps.Universities.List(c.Request.Context())
	if err != nil {
		log.Printf("list universities: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch universities"})
		return
	}
	c.JSON(http.StatusOK, unis)
}

// GET /api/listings?university=<name>
func (s *Server) listLegacyListings(c *gin.Context) {
	ctx := c.Request.Context()

	all, err := s.deps.Legacy.List(ctx)
	if err != nil {
		log.Printf("list legacy listings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}

	name := c.Query("university")
	if name == "" {
		c.JSON(http.StatusOK, all)
		return
	}

	uni, err := s.deps.Universities.FindByName(ctx, name)
	if errors.Is(err, data.ErrNotFound) {
		c.JSON(http.StatusOK, []data.LegacyListing{})
		return
	}
	if err != nil {
		log.Printf("find university %q: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}

	c.JSON(http.StatusOK, nearUniversity(all, *uni, geo.LegacyRadiusMiles))
}

// nearUniversity keeps the listings within radius miles of uni. Listings
// without coordinates are dropped.
func nearUniversity(all []data.LegacyListing, uni listing.University, radius float64) []data.LegacyListing {
	out := []data.LegacyListing{}
	for _, l := range all {
		lat, lng, ok := l.Coordinates()
		if !ok {
			continue
		}
		if geo.WithinRadius(uni.Lat, uni.Lng, lat, lng, radius) {
			out = append(out, l)
		}
	}
	return out
}

// POST /api/listings
func (s *Server) createLegacyListing(c *gin.Context) {
	var l data.LegacyListing
	if err := c.ShouldBindJSON(&l); err != nil {
		log.Printf("decode legacy listing: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save listing"})
		return
	}

	created, err := s.deps.Legacy.Create(c.Request.Context(), l)
	if err != nil {
		log.Printf("create legacy listing: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save listing"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Package httpapi serves the marketplace over HTTP: the legacy /api routes
// backed by MongoDB and the authenticated /v1 platform routes backed by
// PostgreSQL and object storage.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/geocode"
	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/middleware"
	"github.com/easylease/sublease/internal/pg"
	"github.com/easylease/sublease/internal/storage"
)

type UniversityStore interface {
	List(ctx context.Context) ([]listing.University, error)
	FindByName(ctx context.Context, name string) (*listing.University, error)
}

type LegacyListingStore interface {
	List(ctx context.Context) ([]data.LegacyListing, error)
	Create(ctx context.Context, l data.LegacyListing) (*data.LegacyListing, error)
}

type ListingStore interface {
	ListListings(ctx context.Context) ([]listing.Listing, error)
	ListingsByOwner(ctx context.Context, userID string) ([]listing.Listing, error)
	GetListing(ctx context.Context, id string) (*listing.Listing, error)
	CreateListing(ctx context.Context, l *listing.Listing) error
	UpdateListing(ctx context.Context, ownerID string, l *listing.Listing) error
	DeleteListing(ctx context.Context, ownerID, id string) error
	AppendImages(ctx context.Context, ownerID, id string, urls []string) (stored, dropped []string, err error)
}

type FavoriteStore interface {
	AddFavorite(ctx context.Context, userID, listingID string) error
	RemoveFavorite(ctx context.Context, userID, listingID string) error
	ListFavorites(ctx context.Context, userID string) ([]listing.Listing, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*pg.Profile, error)
	UpdateProfile(ctx context.Context, userID, firstName, lastName, university string) (*pg.Profile, error)
	SetAvatar(ctx context.Context, userID, url string) error
}

type ImageStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
	UploadAll(ctx context.Context, prefix string, files []storage.File) storage.UploadReport
}

type Geocoder interface {
	Lookup(ctx context.Context, address string) (geocode.Location, error)
}

// Deps wires the server. Images and Geocoder are optional: without Images
// uploads answer 503, without Geocoder listings are stored without
// coordinates. Limiter, when set, throttles authenticated writes per user.
type Deps struct {
	Universities UniversityStore
	Legacy       LegacyListingStore
	Listings     ListingStore
	Favorites    FavoriteStore
	Profiles     ProfileStore
	Images       ImageStore
	Geocoder     Geocoder
	JWT          *auth.JWTManager
	Limiter      *middleware.LimiterStore
}

type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")
	api.GET("/universities", s.listUniversities)
	api.GET("/listings", s.listLegacyListings)
	api.POST("/listings", s.createLegacyListing)

	v1 := r.Group("/v1")
	v1.GET("/universities", s.listUniversities)
	v1.GET("/listings", s.listListings)
	v1.GET("/listings/:id", s.getListing)
	v1.GET("/profiles/:id", s.getProfile)

	authed := v1.Group("", s.requireAuth())
	if s.deps.Limiter != nil {
		authed.Use(middleware.RateLimit(s.deps.Limiter, userKey))
	}
	authed.POST("/listings", s.createListing)
	authed.PUT("/listings/:id", s.updateListing)
	authed.DELETE("/listings/:id", s.deleteListing)
	authed.POST("/listings/:id/images", s.uploadImages)

	authed.GET("/favorites", s.listFavorites)
	authed.PUT("/favorites/:listingID", s.addFavorite)
	authed.DELETE("/favorites/:listingID", s.removeFavorite)

	authed.PUT("/profile", s.updateProfile)
	authed.GET("/profile/listings", s.myListings)
	authed.POST("/profile/avatar", s.uploadAvatar)

	return r
}

// Handler wraps h with CORS for the given origins.
func Handler(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(h)
}

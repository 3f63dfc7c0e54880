package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /v1/favorites
func (s *Server) listFavorites(c *gin.Context) {
	favs, err := s.deps.Favorites.ListFavorites(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "Failed to fetch favorites")
		return
	}
	c.JSON(http.StatusOK, favs)
}

// PUT /v1/favorites/:listingID
func (s *Server) addFavorite(c *gin.Context) {
	if err := s.deps.Favorites.AddFavorite(c.Request.Context(), currentUser(c), c.Param("listingID")); err != nil {
		respondError(c, err, "Failed to save favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /v1/favorites/:listingID
func (s *Server) removeFavorite(c *gin.Context) {
	if err := s.deps.Favorites.RemoveFavorite(c.Request.Context(), currentUser(c), c.Param("listingID")); err != nil {
		respondError(c, err, "Failed to remove favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

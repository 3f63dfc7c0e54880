package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/storage"
)

// GET /v1/profiles/:id
func (s *Server) getProfile(c *gin.Context) {
	p, err := s.deps.Profiles.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

type profileRequest struct {
	FirstName  string `json:"firstname" binding:"required"`
	LastName   string `json:"lastname" binding:"required"`
	University string `json:"university"`
}

// PUT /v1/profile
func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "firstname and lastname are required"})
		return
	}

	p, err := s.deps.Profiles.UpdateProfile(c.Request.Context(), currentUser(c),
		strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), strings.TrimSpace(req.University))
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /v1/profile/avatar
func (s *Server) uploadAvatar(c *gin.Context) {
	if s.deps.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage is not configured"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be an image"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	userID := currentUser(c)
	key := storage.ObjectKey("avatars/"+userID, fh.Filename)
	if err := s.deps.Images.Upload(ctx, key, f, contentType); err != nil {
		respondError(c, err, "Failed to upload avatar")
		return
	}

	url := s.deps.Images.PublicURL(key)
	if err := s.deps.Profiles.SetAvatar(ctx, userID, url); err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profilepic_url": url})
}

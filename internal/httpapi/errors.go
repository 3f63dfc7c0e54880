package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/pg"
)

// respondError maps store and validation errors onto status codes. Anything
// unrecognised is logged and reported as msg with a 500.
func respondError(c *gin.Context, err error, msg string) {
	var invalid listing.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing", "fields": invalid})
	case errors.Is(err, pg.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, pg.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	default:
		log.Printf("%s: %v", msg, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

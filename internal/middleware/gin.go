package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// KeyFunc picks the rate limit key for an HTTP request.
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by client address.
func ClientIPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests with 429 once their key runs out of tokens.
func RateLimit(store *LimiterStore, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIPKey
	}
	return func(c *gin.Context) {
		if !store.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

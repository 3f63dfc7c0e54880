package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/middleware"
)

const claimsKey = "claims"

// requireAuth accepts requests carrying a valid bearer token minted by the
// chat service.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := s.deps.JWT.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims.UserID
		}
	}
	return ""
}

func userKey(c *gin.Context) string {
	if id := currentUser(c); id != "" {
		return "user:" + id
	}
	return middleware.ClientIPKey(c)
}

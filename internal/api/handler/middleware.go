package handler

import (
	"net/http"
	"strings"

	"barangay/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// sessionMiddleware attaches the caller session when a token is presented.
// A request without a token continues anonymously; an invalid token is rejected.
func (h *Handler) sessionMiddleware(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		c.Next()
		return
	}
	if h.Tokens == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication is not configured"})
		return
	}

	claims, err := h.Tokens.Verify(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}
	user, err := h.Store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
		return
	}

	c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), auth.NewSession(user)))
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return c.Query("token")
}

// session returns the caller session, nil when anonymous.
func session(c *gin.Context) *auth.Session {
	return auth.FromContext(c.Request.Context())
}

func requireTriage(c *gin.Context) {
	s := session(c)
	switch {
	case !s.Authenticated():
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
	case !s.CanTriage():
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Officials only"})
	default:
		c.Next()
	}
}

func requireSuperAdmin(c *gin.Context) {
	s := session(c)
	switch {
	case !s.Authenticated():
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
	case !s.IsSuperAdmin():
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Super administrators only"})
	default:
		c.Next()
	}
}

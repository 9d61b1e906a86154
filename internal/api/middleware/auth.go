package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig defines embedder token authentication.
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the shared embedder token.
	TokenHash string
}

// Auth creates a bearer-token middleware. Every request must carry
// "Authorization: Bearer <token>" matching the configured hash. Renderer
// connections authenticate the same way; the token arrives on the upgrade
// request.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	hash := []byte(cfg.TokenHash)

	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	// Browsers cannot set headers on websocket upgrades.
	return c.Query("token")
}

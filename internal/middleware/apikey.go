package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth checks every admin request against a single static API key
// (config.AdminConfig.APIKey) — the admin surface has one
// operator identity, not many per-user credentials to check against.
type AdminAuth struct {
	apiKey string
}

// NewAdminAuth returns an AdminAuth checking requests against apiKey.
func NewAdminAuth(apiKey string) *AdminAuth {
	return &AdminAuth{apiKey: apiKey}
}

// RequireAPIKey rejects any request whose X-API-Key header does not
// match the configured admin key, using a constant-time comparison to
// avoid leaking the key through response-timing side channels.
func (m *AdminAuth) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotbook/models"
)

const callerContextKey = "caller"

// CallerMiddleware resolves the caller identity set by the upstream
// auth gateway. The gateway terminates authentication and forwards the
// resolved identity in headers; the engine only enforces ownership.
func CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := models.Caller{
			ID:       c.GetHeader("X-Caller-ID"),
			Role:     c.GetHeader("X-Caller-Role"),
			Verified: c.GetHeader("X-Caller-Verified") == "true",
		}
		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// RequireCaller rejects requests that arrive without a resolved identity.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller.ID == "" || (caller.Role != models.RoleClient && caller.Role != models.RoleVendor) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid caller identity"})
			return
		}
		c.Next()
	}
}

// CallerFrom returns the caller attached by CallerMiddleware; zero value
// when the middleware did not run.
func CallerFrom(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerContextKey); ok {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Caller{}
}

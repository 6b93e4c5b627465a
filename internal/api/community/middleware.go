package community

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
)

// userIDKey is the gin context key the identity middleware populates.
const userIDKey = "user_id"

// RequireUser extracts the caller's identity from the X-User-ID header. The
// auth collaborator in front of this service authenticates the member and
// forwards the opaque id; requests without one are rejected.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "missing X-User-ID header",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalUser records the caller's identity when the auth collaborator
// forwarded one. Anonymous requests pass through with no identity set.
func OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated member id set by RequireUser.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequestMetrics records request latency per route.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		prommetrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

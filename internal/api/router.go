// Package api assembles the gin router for the engagement engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/connectthrive/community-engine/internal/api/community"
	"github.com/connectthrive/community-engine/internal/config"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

// NewRouter builds the HTTP router with all routes and middleware wired.
func NewRouter(cfg *config.Config, handler *community.Handler, db HealthChecker) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(community.RequestMetrics())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")

	// Public reads.
	v1.GET("/leaderboard", handler.GetLeaderboard)
	v1.GET("/badges", handler.GetBadgeCatalog)
	v1.GET("/badges/:id", handler.GetBadge)
	v1.GET("/users/:id", handler.GetProfile)
	v1.GET("/users/:id/stats", handler.GetUserStats)
	v1.GET("/users/:id/badges", handler.GetUserBadges)
	v1.GET("/users/:id/points", handler.GetUserPoints)
	v1.GET("/posts/:id/comments", handler.GetComments)
	v1.POST("/posts/:id/view", handler.ViewPost)

	// The feed is readable anonymously; a forwarded identity only enriches
	// the liked-by-viewer flags.
	v1.GET("/posts", community.OptionalUser(), handler.GetFeed)

	// Authenticated member actions.
	authed := v1.Group("")
	authed.Use(community.RequireUser())
	authed.PUT("/users/me", handler.UpsertProfile)
	authed.POST("/posts", handler.CreatePost)
	authed.POST("/posts/:id/like", handler.LikePost)
	authed.POST("/comments/:id/like", handler.LikeComment)
	authed.POST("/posts/:id/comments", handler.CreateComment)
	authed.POST("/reports", handler.CreateReport)
	authed.POST("/users/:id/points/adjust", handler.AdjustUserPoints)

	return router
}

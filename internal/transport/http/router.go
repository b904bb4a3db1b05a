// Package httptransport serves the administrative HTTP surface:
// health, stats, list, add, delete, force_verify. It is intentionally
// small — the DNS core has one operator identity, not a multi-tenant
// user base.
package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"catalogdns/internal/admin"
	"catalogdns/internal/config"
	"catalogdns/internal/health"
	"catalogdns/internal/middleware"
	"catalogdns/internal/monitoring"
)

// RouterDependencies are the services the admin router wires into routes.
type RouterDependencies struct {
	Config  *config.Config
	Admin   *admin.Service
	Health  *health.Checker
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
}

// NewRouter builds the gin.Engine serving the admin API, liveness/readiness
// probes and the Prometheus scrape endpoint.
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 * 1024 * 1024))

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.HTTPMetrics())
	router.Use(monitor.SystemMetrics())

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.Admin.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	adminHandler := NewAdminHandler(deps.Admin)
	auth := middleware.NewAdminAuth(deps.Config.Admin.APIKey)

	// Unauthenticated liveness/readiness probes for the orchestrator.
	router.GET("/live", gin.WrapH(deps.Health.Handler()))
	router.GET("/ready", gin.WrapH(deps.Health.Handler()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := router.Group("/api/v1", auth.RequireAPIKey())
	{
		v1.GET("/health", adminHandler.Health)
		v1.GET("/stats", adminHandler.Stats)

		domains := v1.Group("/domains")
		{
			domains.GET("", adminHandler.List)
			domains.POST("", middleware.ValidateContentType("application/json"), adminHandler.Add)
			domains.GET("/:name", adminHandler.Get)
			domains.DELETE("/:name", adminHandler.Delete)
			domains.POST("/:name/force_verify", adminHandler.ForceVerify)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

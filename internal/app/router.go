package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
	"dispatch/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	Gateway     *ws.Gateway
	UserHandler *handler.UserHandler
	TripHandler *handler.TripHandler
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered. The
// trip lifecycle runs over the websocket endpoint; HTTP carries
// registration, reads and toll adjustments.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Real-time channel.
	router.GET("/ws", deps.Gateway.Handle)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("/:id", deps.UserHandler.GetUser)
		}

		trips := v1.Group("/trips")
		{
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/toll", deps.TripHandler.AdjustToll)
		}
	}

	return router
}

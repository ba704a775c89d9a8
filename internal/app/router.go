package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"orbix/internal/handler"
	"orbix/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler   *handler.RideHandler
	DriverHandler *handler.DriverHandler
	RiderHandler  *handler.RiderHandler
	WSHandler     *handler.WSHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Presence socket for push events.
		v1.GET("/ws", deps.WSHandler.Connect)

		// Rider routes.
		riders := v1.Group("/riders")
		{
			riders.POST("/register", deps.RiderHandler.Register)
			riders.GET("/:id", deps.RiderHandler.Get)
			riders.POST("/:id/wallet/link", deps.RiderHandler.LinkWallet)
			riders.POST("/:id/wallet/topup", deps.RiderHandler.TopUp)
			riders.GET("/:id/wallet/discount", deps.RiderHandler.DiscountQuote)
			riders.GET("/:id/transactions", deps.RiderHandler.Transactions)
			riders.GET("/:id/rides", deps.RideHandler.RiderHistory)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.POST("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.POST("/:id/deactivate", deps.DriverHandler.Deactivate)
			drivers.GET("/:id/stats", deps.DriverHandler.Stats)
			drivers.GET("/:id/transactions", deps.DriverHandler.Transactions)
			drivers.GET("/:id/rides", deps.RideHandler.DriverHistory)
		}

		// Ride lifecycle routes.
		rides := v1.Group("/rides")
		{
			rides.GET("/estimate", deps.RideHandler.Estimate)
			rides.POST("", deps.RideHandler.Create)
			rides.GET("/available", deps.RideHandler.Available)
			rides.GET("/:id", deps.RideHandler.Get)
			rides.POST("/:id/accept", deps.RideHandler.Accept)
			rides.POST("/:id/start", deps.RideHandler.Start)
			rides.POST("/:id/complete", deps.RideHandler.Complete)
			rides.POST("/:id/cancel", deps.RideHandler.Cancel)
			rides.POST("/:id/rate", deps.RideHandler.Rate)
			rides.POST("/:id/pay", deps.RideHandler.Pay)
		}
	}

	return router
}

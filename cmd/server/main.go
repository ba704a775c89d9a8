package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"orbix/internal/app"
	"orbix/internal/config"
	"orbix/internal/gateway"
	"orbix/internal/handler"
	"orbix/internal/maps"
	internalRedis "orbix/internal/redis"
	"orbix/internal/repository/postgres"
	"orbix/internal/service"
	"orbix/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	geoCache := internalRedis.NewGeoCache(redisClient)

	// Initialize repositories.
	riderRepo := postgres.NewRiderRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	rideRepo := postgres.NewRideRepository(db)
	walletRepo := postgres.NewWalletRepository(db)

	// Initialize routing. Without an API key every lookup degrades to
	// the fixed fallback estimate.
	var router maps.Router = maps.Offline{}
	if cfg.Maps.APIKey != "" {
		mapsService, err := maps.NewService(cfg.Maps.APIKey, geoCache)
		if err != nil {
			log.Fatalf("failed to create maps client: %v", err)
		}
		router = mapsService
	} else {
		log.Println("MAPS_API_KEY not set, using fallback route estimates")
	}

	// Initialize payment gateways.
	providers := make(map[string]gateway.Provider)
	if cfg.Payments.StripeSecretKey != "" {
		providers["stripe"] = gateway.NewStripeProvider(cfg.Payments.StripeSecretKey)
	}
	if cfg.Payments.RazorpayKeyID != "" {
		providers["razorpay"] = gateway.NewRazorpayProvider(cfg.Payments.RazorpayKeyID, cfg.Payments.RazorpayKeySecret)
	}

	// Initialize the presence hub.
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services.
	notificationService := service.NewNotificationService(hub)
	fareService := service.NewFareService()
	driverService := service.NewDriverService(locationStore, driverRepo)
	riderService := service.NewRiderService(riderRepo)
	walletService := service.NewWalletService(riderRepo, walletRepo, fareService, providers)
	dispatchService := service.NewDispatchService(locationStore, lockStore, driverRepo, riderRepo, router, notificationService)
	settlementService := service.NewSettlementService(rideRepo, riderRepo, driverRepo, walletRepo, driverService, notificationService, providers)
	rideService := service.NewRideService(rideRepo, riderRepo, driverRepo, router, fareService, dispatchService, settlementService, notificationService)

	// Initialize handlers.
	riderHandler := handler.NewRiderHandler(riderService, walletService)
	driverHandler := handler.NewDriverHandler(driverService, walletService)
	rideHandler := handler.NewRideHandler(rideService, settlementService)
	wsHandler := handler.NewWSHandler(hub)

	// Create router.
	engine := app.NewRouter(app.RouterDeps{
		RideHandler:   rideHandler,
		DriverHandler: driverHandler,
		RiderHandler:  riderHandler,
		WSHandler:     wsHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

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

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/ws"
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
	runCtx, stop := context.WithCancel(context.Background())
	server, expiry := wireServer(runCtx, db, redisClient, nrApp, cfg)

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

	stop()
	expiry.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server along
// with the expiry scheduler so shutdown can drain its timers.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.ExpiryScheduler) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	pricingCache := internalRedis.NewPricingCache(redisClient)

	// Initialize repositories.
	userRepo := postgres.NewUserRepository(db)
	tripRepo := postgres.NewTripRepository(db)
	fareRepo := postgres.NewFareRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService()
	fareService := service.NewFareService(fareRepo, pricingCache)
	presenceService := service.NewPresenceService(userRepo, sessionRepo, locationStore)
	expiry := service.NewExpiryScheduler()

	hub := ws.NewHub()

	dispatchService := service.NewDispatchService(
		tripRepo, userRepo, fareService, expiry, hub, notificationService,
		cfg.Dispatch.RequestTimeout,
	)
	tripService := service.NewTripService(
		db, tripRepo, userRepo, fareService, lockStore, locationStore,
		expiry, hub, notificationService,
	)
	chatService := service.NewChatService(messageRepo, userRepo, hub, notificationService)

	gateway := ws.NewGateway(hub, presenceService, dispatchService, tripService, chatService)

	// Background sweep of sessions left open by dead connections.
	go presenceService.RunSessionSweeper(ctx, cfg.Dispatch.SessionSweepInterval, cfg.Dispatch.SessionMaxAge)

	// Initialize handlers.
	userHandler := handler.NewUserHandler(userRepo)
	tripHandler := handler.NewTripHandler(tripService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		Gateway:     gateway,
		UserHandler: userHandler,
		TripHandler: tripHandler,
		RedisClient: redisClient,
		NewRelicApp: nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expiry
}

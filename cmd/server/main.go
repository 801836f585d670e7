package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/hiraku/stagebook/internal/config"     // Internal config loader
	"github.com/hiraku/stagebook/internal/database"   // MySQL connection setup
	"github.com/hiraku/stagebook/internal/handler"    // HTTP handlers
	"github.com/hiraku/stagebook/internal/middleware" // Rate limiting
	"github.com/hiraku/stagebook/internal/queue"      // RabbitMQ consumers
	"github.com/hiraku/stagebook/internal/repository" // Data access layer
	"github.com/hiraku/stagebook/internal/router"    // Route registration
	"github.com/hiraku/stagebook/internal/service"   // Business services
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load()                  // Load environment config
	rlCfg := config.LoadRateLimitConfig() // Load rate limiter tuning

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns) // Connect to MySQL
	if err != nil {
		log.Fatalf("database: %v", err) // Abort without a primary store
	}
	defer db.Close()

	rdb := config.NewRedisClient() // May be nil; limiter and snapshots degrade
	if rdb == nil {
		log.Println("redis unavailable; rate limiting off, occupancy recomputed per request")
	}

	performanceRepo := repository.NewPerformanceRepo(db)   // Performances and stages
	reservationRepo := repository.NewReservationRepo(db)   // The reservation ledger
	notificationRepo := repository.NewNotificationRepo(db) // Mail outbox
	snapshots := repository.NewOccupancyStore(rdb)         // Occupancy snapshots in Redis

	publisher := service.NewPublisher() // RabbitMQ event publisher

	booking := service.NewBookingService(performanceRepo, reservationRepo, notificationRepo, publisher, cfg.BaseURL)
	cancellation := service.NewCancellationService(reservationRepo, publisher)
	tracker := service.NewCheckInTracker(reservationRepo, publisher)

	go queue.StartMailWorker(notificationRepo)                                    // Drain mail.outbound
	go queue.StartOccupancyRefresher(performanceRepo, reservationRepo, snapshots) // Refresh snapshots on ledger events

	e := echo.New()                              // Create Echo instance
	e.Use(middleware.NewRateLimiter(rlCfg, rdb)) // Per-IP fixed-window limiter
	router.RegisterRoutes(e)                     // Health check
	router.RegisterPublic(e,                     // Guest-facing endpoints
		handler.NewPublicHandler(performanceRepo, reservationRepo, snapshots),
		handler.NewBookingHandler(booking),
		handler.NewCancellationHandler(cancellation, cfg.BaseURL),
	)
	router.RegisterTroupe(e, handler.NewTroupeHandler(performanceRepo, reservationRepo, tracker), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

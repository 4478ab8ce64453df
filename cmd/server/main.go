package main // Entry point package

import (
	"context"   // Context for the sweeper's lifetime
	"log"       // Logging library
	"os/signal" // Signal handling for graceful shutdown
	"syscall"   // SIGTERM constant

	"github.com/joho/godotenv"    // Optional .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/starevents/ticketing/internal/booking"    // Reservation state machine
	"github.com/starevents/ticketing/internal/config"     // Internal config loader
	"github.com/starevents/ticketing/internal/database"   // MySQL connection
	"github.com/starevents/ticketing/internal/handler"    // HTTP handlers
	"github.com/starevents/ticketing/internal/loyalty"    // Loyalty ledger
	"github.com/starevents/ticketing/internal/queue"      // RabbitMQ consumer
	"github.com/starevents/ticketing/internal/repository" // Data access layer
	"github.com/starevents/ticketing/internal/router"     // Internal router setup
	queuepub "github.com/starevents/ticketing/internal/service"
	"github.com/starevents/ticketing/internal/sweeper" // Background expiry sweeper
	"github.com/starevents/ticketing/internal/ticket"  // QR ticket artifacts
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err) // Cannot run without storage
	}
	defer db.Close()

	rdb := config.NewRedisClient() // May be nil; rate limiting and caching degrade to no-ops
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response caching disabled")
	}

	// Repositories
	eventRepo := repository.NewEventRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	discountRepo := repository.NewDiscountRepo(db)
	loyaltyRepo := repository.NewLoyaltyRepo(db)
	venueRepo := repository.NewVenueRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)

	// Domain services
	ledger := loyalty.NewLedger(loyaltyRepo)
	tickets := ticket.NewQRGenerator(cfg.QRDir)
	publisher := queuepub.New()
	svc := booking.NewService(db, eventRepo, bookingRepo, discountRepo, ledger, tickets, publisher, booking.Settings{
		HoldTTL:          cfg.HoldTTL,
		MaxPerEvent:      cfg.MaxTicketsPerEvt,
		ConfirmCapPolicy: cfg.ConfirmCapPolicy,
	})

	// Background workers stop on SIGINT/SIGTERM; in-flight HTTP requests
	// are unaffected because Echo owns its own listener.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Expiry sweeper: safety net behind the lazy expiry checks.
	go sweeper.New(svc, cfg.SweepInterval, cfg.SweepJitter, cfg.SweepBatch).Run(ctx)

	// booking.paid consumer: writes confirmations to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()          // Create Echo instance
	router.RegisterRoutes(e) // Health check
	router.RegisterPublic(e, &handler.PublicHandler{
		EventRepo:    eventRepo,
		VenueRepo:    venueRepo,
		CategoryRepo: categoryRepo,
	}, rdb)
	router.RegisterCustomer(e,
		handler.NewBookingHandler(svc),
		handler.NewLoyaltyHandler(ledger),
		cfg.JWTSecret, rdb)
	router.RegisterOrganizer(e, handler.NewOrganizerHandler(eventRepo), cfg.JWTSecret)
	router.RegisterAdmin(e,
		handler.NewAdminEventHandler(eventRepo),
		handler.NewAdminDiscountHandler(discountRepo),
		cfg.JWTSecret)

	// Serve generated ticket QR images at the path stored on bookings.
	e.Static("/qrcodes", cfg.QRDir)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

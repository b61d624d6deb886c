package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/booking"
	"github.com/iliyamo/visit-queue-reservation/internal/config"
	"github.com/iliyamo/visit-queue-reservation/internal/database"
	"github.com/iliyamo/visit-queue-reservation/internal/handler"
	"github.com/iliyamo/visit-queue-reservation/internal/middleware"
	"github.com/iliyamo/visit-queue-reservation/internal/queue"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
	"github.com/iliyamo/visit-queue-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional. When unavailable, rate limiting and response
	// caching degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orgs := repository.NewOrganizationRepo(db)
	windows := repository.NewWindowRepo(db)
	reservations := repository.NewReservationRepo(db)
	queueRepo := repository.NewQueueRepo(db)

	ledger := booking.NewLedger(db, windows, reservations, queueRepo, cfg.AdmitMaxRetries)
	canceller := booking.NewCanceller(db, windows, reservations, queueRepo, cfg.AdmitMaxRetries)
	validator := booking.NewValidator(reservations)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	orgHandler := handler.NewOrganizationHandler(orgs)
	windowHandler := handler.NewWindowHandler(orgs, windows)
	reservationHandler := handler.NewReservationHandler(ledger, canceller, reservations)
	orgQueueHandler := handler.NewOrgQueueHandler(orgs, queueRepo, canceller, validator)
	publicHandler := handler.NewPublicHandler(orgs, windows)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, publicHandler, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterUser(e, reservationHandler, cfg.JWTSecret)
	router.RegisterOrg(e, orgHandler, windowHandler, orgQueueHandler, cfg.JWTSecret)

	// Background consumer writes reservation events to logs/reservation.log.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

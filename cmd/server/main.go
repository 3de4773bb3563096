package main // Entry point package

import (
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/adventure-site-booking/internal/config"
	"github.com/iliyamo/adventure-site-booking/internal/database"
	"github.com/iliyamo/adventure-site-booking/internal/handler"
	custommw "github.com/iliyamo/adventure-site-booking/internal/middleware"
	"github.com/iliyamo/adventure-site-booking/internal/queue"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
	"github.com/iliyamo/adventure-site-booking/internal/router"
)

// requestValidator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request structs.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Env == "prod" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: caching and rate limiting degrade to no-ops
	// when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	items := repository.NewItemRepo(db)
	bookings := repository.NewBookingRepo(db)
	facilities := repository.NewFacilityReservationRepo(db)
	availability := repository.NewAvailabilityRepo(db)
	payments := repository.NewPaymentRepo(db)

	authHandler := handler.NewAuthHandler(users, &cfg)
	bookingHandler := handler.NewBookingHandler(items, bookings, facilities, availability, payments)
	availabilityHandler := handler.NewAvailabilityHandler(items, availability)
	paymentHandler := handler.NewPaymentHandler(payments, bookings, availability)
	checkInHandler := handler.NewCheckInHandler(items, bookings)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{v: validator.New()}

	limiter := custommw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := custommw.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, limiter)
	router.RegisterPublic(e, availabilityHandler, cache)
	router.RegisterPayments(e, paymentHandler)
	router.RegisterGuest(e, bookingHandler, cfg.JWTSecret, limiter)
	router.RegisterHost(e, bookingHandler, checkInHandler, cfg.JWTSecret, limiter)

	// Notification consumer runs for the life of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.WithError(err).Warn("notification consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

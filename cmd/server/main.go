package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-charge-reservation/internal/config"
	"github.com/iliyamo/ev-charge-reservation/internal/database"
	"github.com/iliyamo/ev-charge-reservation/internal/handler"
	"github.com/iliyamo/ev-charge-reservation/internal/queue"
	"github.com/iliyamo/ev-charge-reservation/internal/repository"
	"github.com/iliyamo/ev-charge-reservation/internal/router"
	"github.com/iliyamo/ev-charge-reservation/internal/sweeper"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; cache and limiter degrade off

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	stationRepo := repository.NewStationRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	publisher := queue.NewPublisher()
	defer publisher.Close()
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	sw := sweeper.New(stationRepo, reservationRepo, tokenRepo, publisher)
	if err := sw.Start(cfg.SweepSpec); err != nil {
		log.Fatalf("sweeper: invalid spec %q: %v", cfg.SweepSpec, err)
	}
	defer sw.Stop()

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	stationH := handler.NewStationHandler(stationRepo)
	reservationH := handler.NewReservationHandler(stationRepo, reservationRepo, publisher)
	profileH := handler.NewProfileHandler(cfg, userRepo)
	activityH := handler.NewActivityHandler(userRepo, reservationRepo)
	healthH := handler.NewHealth(db)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e, healthH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAdmin(e, stationH, activityH, cfg.JWTSecret)
	router.RegisterUser(e, stationH, reservationH, profileH, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/truckdispatch/backend/internal/config"
	"github.com/truckdispatch/backend/internal/db"
	httpapi "github.com/truckdispatch/backend/internal/http"
	"github.com/truckdispatch/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "dispatch-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	defaults := service.AllocationConfig{
		Bounds: service.LoadBounds{
			MinLoadPercent: cfg.MinLoadPercent,
			MaxLoadPercent: cfg.MaxLoadPercent,
		},
		Strategy:            service.StrategyGrouped,
		TruckOrder:          service.TruckOrderCapacity,
		StrictMin:           cfg.StrictMinLoad,
		FuelPricePerLitre:   cfg.FuelPricePerLitre,
		FuelEfficiencyKmpl:  cfg.FuelEfficiencyKmpl,
		FallbackBoxWeightKg: cfg.FallbackBoxWeightKg,
	}

	router := httpapi.Router(cfg, store, defaults, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-labs/aegis/internal/config"
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/engine"
	"github.com/aegis-labs/aegis/internal/httpapi"
	"github.com/aegis-labs/aegis/internal/providers"
	"github.com/aegis-labs/aegis/pkg/logger"
	"github.com/shopspring/decimal"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting Aegis")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	deps := engine.Dependencies{
		PriceFeed:     providers.NewStaticPriceFeed(),
		TradeExecutor: providers.NewLoggingTradeExecutor(log),
		LiquidityProviders: map[string]domain.LiquidityProvider{
			"synthetic": providers.NewStaticLiquidityProvider("synthetic", decimal.NewFromInt(5_000_000)),
		},
		HistoricalData: providers.NewStaticHistoricalDataProvider(),
	}

	eng := engine.New(deps, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)

	srv := httpapi.New(httpapi.Config{
		Port:   cfg.Port,
		Engine: eng,
		Log:    log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP diagnostic façade stopped")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Aegis is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()
	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	log.Info().Msg("Aegis stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/app"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/config"
)

func main() {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "gateway").
		Logger().
		Level(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	gw, err := app.NewGateway(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	if err := gw.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("service exited with error")
	}
}

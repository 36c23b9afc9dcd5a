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
		Str("service", "router").
		Logger().
		Level(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadRouter()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	rt, err := app.NewRouter(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build router")
	}

	if err := rt.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("service exited with error")
	}
}

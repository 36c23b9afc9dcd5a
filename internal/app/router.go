package app

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/config"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/kafka"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/service"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

// Router centralizes dependency wiring for the router worker service.
type Router struct {
	cfg    config.RouterConfig
	logger zerolog.Logger

	redis  *redis.Client
	db     *gorm.DB
	mirror *kafka.SignalMirror
}

// NewRouter builds the router worker with all required dependencies.
func NewRouter(cfg config.RouterConfig, logger zerolog.Logger) (*Router, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	mirror := kafka.NewSignalMirror(cfg.KafkaBrokers, cfg.KafkaMirrorTopic)

	return &Router{
		cfg:    cfg,
		logger: logger,
		redis:  redisClient,
		db:     db,
		mirror: mirror,
	}, nil
}

// Run starts the consume loop and the expiry sweep, blocking until ctx
// cancellation or fatal error.
func (a *Router) Run(ctx context.Context) error {
	defer a.cleanup()

	signalLog := stream.NewLog(a.redis, a.cfg.SignalStreamKey, a.cfg.ConsumerGroup)
	eventBus := bus.New(a.redis)

	sessions := store.NewSessionStore(a.db)
	queue := store.NewWorkQueueStore(a.db)
	history := store.NewHistoryStore(a.db)
	snapshots := store.NewSnapshotStore(a.db)

	smart := service.NewSmartRouter(sessions, queue, history, snapshots, a.logger)
	worker := service.NewRouterWorker(signalLog, smart, eventBus, a.mirror, a.cfg.VisibilityTimeout, a.logger)
	sweeper := service.NewExpirySweeper(sessions, eventBus, a.cfg.ExpirySweepInterval, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("router service exited with error: %w", err)
	}
	return ctx.Err()
}

func (a *Router) cleanup() {
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing Kafka mirror")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing Redis client")
		}
	}
	if a.db != nil {
		if err := store.Close(a.db); err != nil {
			a.logger.Warn().Err(err).Msg("error closing database")
		}
	}
}

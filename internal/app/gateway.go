package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/config"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/rest"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/service"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

// Gateway centralizes dependency wiring for the HTTP gateway service.
type Gateway struct {
	cfg    config.GatewayConfig
	logger zerolog.Logger

	redis *redis.Client
	db    *gorm.DB

	httpServer *http.Server
}

// NewGateway builds the gateway with all required dependencies.
func NewGateway(cfg config.GatewayConfig, logger zerolog.Logger) (*Gateway, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Gateway{
		cfg:    cfg,
		logger: logger,
		redis:  redisClient,
		db:     db,
	}, nil
}

// Run starts the HTTP server and blocks until ctx cancellation or fatal error.
func (a *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	// The router service's consumer group is created eagerly by the router;
	// the gateway only appends.
	signalLog := stream.NewLog(a.redis, a.cfg.SignalStreamKey, "")
	eventBus := bus.New(a.redis)
	snapshots := store.NewSnapshotStore(a.db)
	queue := store.NewWorkQueueStore(a.db)
	acker := store.NewAckStore(a.db)
	execution := service.NewExecutionService(queue, acker, eventBus, a.logger)

	r, srv := rest.NewServer(a.cfg.HTTPAddr)
	a.httpServer = srv
	root := r.Group("")
	rest.NewBridgeController(signalLog, snapshots, eventBus, a.logger).RegisterRoutes(root, a.cfg.BridgeSecret)
	rest.NewAgentController(execution, a.logger).RegisterRoutes(root, a.cfg.BridgeSecret)
	rest.NewStreamController(eventBus, eventBus, a.logger).RegisterRoutes(root)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *Gateway) runHTTPServer(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.httpServer.Addr).Msg("HTTP server started")
		serverErr <- a.httpServer.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *Gateway) cleanup() {
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

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/routine"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

const (
	readBlock = 5 * time.Second
	readCount = 16
)

// RouterWorker drains the ingestion log as part of the router consumer group:
// decode, route through the SmartRouter, broadcast to the event bus, mirror
// to Kafka, and only then acknowledge. A worker that dies mid-entry leaves it
// pending; the claim pass of a healthy worker picks it up after the
// visibility timeout.
type RouterWorker struct {
	log        SignalLog
	router     *SmartRouter
	events     EventPublisher
	mirror     SignalMirror
	visibility time.Duration
	consumer   string
	logger     zerolog.Logger
}

func NewRouterWorker(log SignalLog, router *SmartRouter, events EventPublisher, mirror SignalMirror, visibility time.Duration, logger zerolog.Logger) *RouterWorker {
	host, _ := os.Hostname()
	if host == "" {
		host = "router"
	}
	consumer := fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	return &RouterWorker{
		log:        log,
		router:     router,
		events:     events,
		mirror:     mirror,
		visibility: visibility,
		consumer:   consumer,
		logger:     logger.With().Str("component", "router").Str("consumer", consumer).Logger(),
	}
}

// Consumer returns the worker's consumer-group identity.
func (w *RouterWorker) Consumer() string {
	return w.consumer
}

// Run consumes until ctx is cancelled. Transient stream errors back off
// exponentially and retry forever; a single bad entry never terminates the
// worker.
func (w *RouterWorker) Run(ctx context.Context) error {
	retry := &backoff.Backoff{Min: 250 * time.Millisecond, Max: 30 * time.Second, Jitter: true}

	for {
		if err := w.log.EnsureGroup(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn().Err(err).Msg("ensure consumer group failed, retrying")
			if !sleep(ctx, retry.Duration()) {
				return ctx.Err()
			}
			continue
		}
		break
	}
	retry.Reset()

	// The claim pass runs beside the read loop so stuck entries are stolen
	// even while fresh signals keep the reader busy.
	manager := routine.NewManager(ctx, func(id string, err error) {
		w.logger.Error().Err(err).Str("routine", id).Msg("background routine failed")
	})
	if err := manager.Run("claim-pass", w.claimLoop); err != nil {
		return err
	}
	defer manager.ShutdownAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := w.log.ReadGroup(ctx, w.consumer, readBlock, readCount)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn().Err(err).Msg("stream read failed, backing off")
			if !sleep(ctx, retry.Duration()) {
				return ctx.Err()
			}
			continue
		}
		retry.Reset()

		for _, entry := range entries {
			w.process(ctx, entry)
		}
	}
}

// claimLoop periodically steals entries held unacked past the visibility
// timeout by consumers that stalled or died, and processes them here.
func (w *RouterWorker) claimLoop(ctx context.Context) error {
	interval := w.visibility / 2
	if interval <= 0 {
		interval = readBlock
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			claimed, err := w.log.Claim(ctx, w.consumer, w.visibility, readCount)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Warn().Err(err).Msg("claim pass failed")
				continue
			}
			for _, entry := range claimed {
				w.process(ctx, entry)
			}
		}
	}
}

// process handles one entry. No ack on failure: the entry stays pending and
// is redelivered, which the idempotent SmartRouter absorbs.
func (w *RouterWorker) process(ctx context.Context, entry stream.Entry) {
	sig := entry.Signal
	if sig.MasterID == "" || sig.Ticket == "" {
		w.logger.Warn().Str("entry", entry.ID).Msg("malformed entry, dead-lettering")
		if err := w.log.DeadLetter(ctx, entry.ID); err != nil {
			w.logger.Error().Err(err).Str("entry", entry.ID).Msg("dead-letter ack failed")
		}
		return
	}

	if err := w.router.Route(ctx, sig); err != nil {
		w.logger.Error().Err(err).
			Str("entry", entry.ID).
			Str("master", sig.MasterID).
			Str("ticket", sig.Ticket).
			Msg("routing failed, entry left for redelivery")
		return
	}

	w.broadcast(ctx, sig)

	if w.mirror != nil {
		if err := w.mirror.Publish(ctx, entry.ID, sig); err != nil {
			// Analytics mirror is off the delivery path.
			w.logger.Warn().Err(err).Str("entry", entry.ID).Msg("kafka mirror publish failed")
		}
	}

	if err := w.log.Ack(ctx, entry.ID); err != nil {
		// Redelivery after the visibility timeout re-runs an idempotent path.
		w.logger.Error().Err(err).Str("entry", entry.ID).Msg("ack failed")
	}
}

// broadcast pushes a lightweight copy of the master's event to the master's
// dashboard channel; CLOSE events additionally carry realized PnL.
func (w *RouterWorker) broadcast(ctx context.Context, sig domain.RawSignal) {
	ev := domain.Event{
		Type:       domain.EventPositionsUpdate,
		UserID:     sig.MasterID,
		Ticket:     sig.Ticket,
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Volume:     sig.Volume,
		Price:      sig.Price,
		OccurredAt: time.Now().UnixMilli(),
	}
	if sig.Action == domain.ActionClose {
		ev.Type = domain.EventMasterPnl
		ev.Profit = sig.Profit
		ev.NetProfit = sig.Profit + sig.Commission + sig.Swap
	}
	if err := w.events.Publish(ctx, bus.EventChannel(sig.MasterID), ev); err != nil {
		w.logger.Warn().Err(err).Str("master", sig.MasterID).Msg("broadcast failed")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// ExpirySweeper periodically deactivates copy sessions past their expiry
// (auto-renew sessions are left to the billing side) and tells the follower's
// dashboard. Deactivation is what makes a late realized-PnL ack a no-op on
// shadow equity.
type ExpirySweeper struct {
	sessions SessionStore
	events   EventPublisher
	interval time.Duration
	logger   zerolog.Logger
}

func NewExpirySweeper(sessions SessionStore, events EventPublisher, interval time.Duration, logger zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		sessions: sessions,
		events:   events,
		interval: interval,
		logger:   logger.With().Str("component", "expiry").Logger(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	expired, err := s.sessions.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	for _, sess := range expired {
		s.logger.Info().
			Uint("session", sess.ID).
			Str("follower", sess.FollowerID).
			Str("master", sess.MasterID).
			Msg("copy session expired")
		ev := domain.Event{
			Type:       domain.EventSessionExpired,
			UserID:     sess.FollowerID,
			MasterID:   sess.MasterID,
			SessionID:  sess.ID,
			OccurredAt: time.Now().UnixMilli(),
		}
		if err := s.events.Publish(ctx, bus.EventChannel(sess.FollowerID), ev); err != nil {
			s.logger.Warn().Err(err).Str("follower", sess.FollowerID).Msg("publish session expired failed")
		}
	}
}

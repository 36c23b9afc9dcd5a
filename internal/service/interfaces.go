package service

import (
	"context"
	"time"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

// Store dependencies are consumed through interfaces so the business logic
// tests run against in-memory fakes.

type SessionStore interface {
	ActiveByMaster(ctx context.Context, masterID string) ([]domain.CopySession, error)
	DeactivateExpired(ctx context.Context, now time.Time) ([]domain.CopySession, error)
}

type WorkQueue interface {
	Exists(ctx context.Context, followerID, ticket, action string) (bool, error)
	Create(ctx context.Context, item *domain.WorkItem) error
	PendingByFollower(ctx context.Context, followerID string) ([]domain.WorkItem, error)
}

type HistoryStore interface {
	UpsertMasterClose(ctx context.Context, rec domain.TradeHistoryRecord) error
}

type SnapshotStore interface {
	Get(ctx context.Context, userID string) (domain.BrokerSnapshot, error)
}

// AckApplier commits an execution report atomically (status flip + follower
// history + shadow equity).
type AckApplier interface {
	Apply(ctx context.Context, id uint64, status, executedTicket, message string, decide store.HistoryDecision) (domain.WorkItem, error)
}

// EventPublisher pushes realtime envelopes to dashboard channels.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, ev domain.Event) error
}

// SignalLog is the ingestion log surface the router worker drains.
type SignalLog interface {
	EnsureGroup(ctx context.Context) error
	ReadGroup(ctx context.Context, consumer string, block time.Duration, count int64) ([]stream.Entry, error)
	Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]stream.Entry, error)
	Ack(ctx context.Context, id string) error
	DeadLetter(ctx context.Context, id string) error
}

// SignalMirror forwards routed signals to the analytics topic. Optional.
type SignalMirror interface {
	Publish(ctx context.Context, entryID string, sig domain.RawSignal) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
)

// SmartRouter is the position-sizing engine: invoked once per raw signal, it
// persists the master's own trade history, resolves the master's active
// subscribers, and writes one sized PENDING work item per follower. It is
// idempotent by construction, which is what lets the ingestion log deliver
// at least once while each follower executes at most once.
type SmartRouter struct {
	sessions  SessionStore
	queue     WorkQueue
	history   HistoryStore
	snapshots SnapshotStore
	logger    zerolog.Logger

	// Balance reads and follower fan-out are serialized per master. Two
	// signals from the same master never size followers concurrently; this is
	// a stated policy, not an accident of scheduling.
	mastersMu sync.Mutex
	masters   map[string]*sync.Mutex
}

func NewSmartRouter(sessions SessionStore, queue WorkQueue, history HistoryStore, snapshots SnapshotStore, logger zerolog.Logger) *SmartRouter {
	return &SmartRouter{
		sessions:  sessions,
		queue:     queue,
		history:   history,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "smartrouter").Logger(),
		masters:   make(map[string]*sync.Mutex),
	}
}

// Route processes one raw signal. A returned error means the signal must not
// be acknowledged and will be redelivered; per-follower failures are absorbed
// here and never abort the remaining followers.
func (r *SmartRouter) Route(ctx context.Context, sig domain.RawSignal) error {
	if sig.MasterID == "" || sig.Ticket == "" || sig.Action == "" {
		return fmt.Errorf("signal missing required fields (master=%q ticket=%q action=%q)", sig.MasterID, sig.Ticket, sig.Action)
	}

	lock := r.masterLock(sig.MasterID)
	lock.Lock()
	defer lock.Unlock()

	if sig.Action == domain.ActionClose {
		if err := r.recordMasterClose(ctx, sig); err != nil {
			// Redelivery repairs a failed history write; work items already
			// created for this signal are protected by the idempotency key.
			return fmt.Errorf("persist master history: %w", err)
		}
	}

	sessions, err := r.sessions.ActiveByMaster(ctx, sig.MasterID)
	if err != nil {
		return fmt.Errorf("resolve subscribers: %w", err)
	}

	for _, sess := range sessions {
		if err := r.routeToFollower(ctx, sig, sess); err != nil {
			// One follower's outage must not starve the rest.
			r.logger.Error().Err(err).
				Str("master", sig.MasterID).
				Str("follower", sess.FollowerID).
				Str("ticket", sig.Ticket).
				Str("action", sig.Action).
				Msg("routing to follower failed")
		}
	}
	return nil
}

func (r *SmartRouter) routeToFollower(ctx context.Context, sig domain.RawSignal, sess domain.CopySession) error {
	exists, err := r.queue.Exists(ctx, sess.FollowerID, sig.Ticket, sig.Action)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if exists {
		r.logger.Debug().
			Str("follower", sess.FollowerID).
			Str("ticket", sig.Ticket).
			Str("action", sig.Action).
			Msg("duplicate signal, skipping")
		return nil
	}

	volume := sig.Volume
	orderType := sig.Type
	if sig.Action == domain.ActionOpen && sig.Volume > 0 {
		volume = r.sizeForFollower(ctx, sig, sess)
		if sess.InvertCopy {
			orderType = invertOrderType(sig.Type)
		}
	}

	item := &domain.WorkItem{
		FollowerID: sess.FollowerID,
		MasterID:   sig.MasterID,
		Ticket:     sig.Ticket,
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Type:       orderType,
		Volume:     volume,
		Price:      sig.Price,
		SL:         sig.SL,
		TP:         sig.TP,
	}
	err = r.queue.Create(ctx, item)
	if errors.Is(err, store.ErrDuplicateWork) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue work item: %w", err)
	}
	return nil
}

// sizeForFollower computes the follower's lot size from the latest broker
// snapshots. It never fails: missing balances degrade to the fail-safe
// minimum lot.
func (r *SmartRouter) sizeForFollower(ctx context.Context, sig domain.RawSignal, sess domain.CopySession) float64 {
	in := SizingInputs{
		MasterVolume: sig.Volume,
		Allocation:   sess.Allocation,
		RiskFactor:   sess.RiskFactor,
	}
	if snap, err := r.snapshots.Get(ctx, sig.MasterID); err == nil {
		in.MasterBalance = snap.Balance
	} else if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn().Err(err).Str("master", sig.MasterID).Msg("master snapshot unavailable")
	}
	if snap, err := r.snapshots.Get(ctx, sess.FollowerID); err == nil {
		in.FollowerBalance = snap.Balance
	} else if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn().Err(err).Str("follower", sess.FollowerID).Msg("follower snapshot unavailable")
	}
	return ComputeVolume(in)
}

func (r *SmartRouter) recordMasterClose(ctx context.Context, sig domain.RawSignal) error {
	rec := domain.TradeHistoryRecord{
		OwnerID:    sig.MasterID,
		Ticket:     sig.Ticket,
		Symbol:     sig.Symbol,
		Type:       sig.Type,
		Volume:     sig.Volume,
		OpenPrice:  sig.OpenPrice,
		ClosePrice: sig.Price,
		OpenTime:   sig.OpenTime,
		CloseTime:  sig.CloseTime,
		Profit:     sig.Profit,
		Commission: sig.Commission,
		Swap:       sig.Swap,
		NetProfit:  sig.Profit + sig.Commission + sig.Swap,
	}
	return r.history.UpsertMasterClose(ctx, rec)
}

func (r *SmartRouter) masterLock(masterID string) *sync.Mutex {
	r.mastersMu.Lock()
	defer r.mastersMu.Unlock()
	lock, ok := r.masters[masterID]
	if !ok {
		lock = &sync.Mutex{}
		r.masters[masterID] = lock
	}
	return lock
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

// In-memory collaborators mirroring the store contracts, so the routing and
// ack logic is exercised without Postgres or Redis.

type fakeSessions struct {
	mu       sync.Mutex
	sessions []domain.CopySession
	err      error
}

func (f *fakeSessions) ActiveByMaster(_ context.Context, masterID string) ([]domain.CopySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.CopySession
	for _, s := range f.sessions {
		if s.MasterID == masterID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) DeactivateExpired(_ context.Context, now time.Time) ([]domain.CopySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var expired []domain.CopySession
	for i, s := range f.sessions {
		if s.IsActive && !s.AutoRenew && !s.Expiry.IsZero() && !s.Expiry.After(now) {
			f.sessions[i].IsActive = false
			expired = append(expired, s)
		}
	}
	return expired, nil
}

type workKey struct {
	follower, ticket, action string
}

type fakeQueue struct {
	mu     sync.Mutex
	items  map[workKey]*domain.WorkItem
	nextID uint64

	existsErr map[string]error // keyed by follower id
	createErr map[string]error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		items:     make(map[workKey]*domain.WorkItem),
		existsErr: make(map[string]error),
		createErr: make(map[string]error),
	}
}

func (f *fakeQueue) Exists(_ context.Context, followerID, ticket, action string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.existsErr[followerID]; err != nil {
		return false, err
	}
	_, ok := f.items[workKey{followerID, ticket, action}]
	return ok, nil
}

func (f *fakeQueue) Create(_ context.Context, item *domain.WorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[item.FollowerID]; err != nil {
		return err
	}
	key := workKey{item.FollowerID, item.Ticket, item.Action}
	if _, ok := f.items[key]; ok {
		return store.ErrDuplicateWork
	}
	f.nextID++
	item.ID = f.nextID
	item.Status = domain.StatusPending
	item.CreatedAt = time.Now()
	cp := *item
	f.items[key] = &cp
	return nil
}

func (f *fakeQueue) PendingByFollower(_ context.Context, followerID string) ([]domain.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WorkItem
	for _, item := range f.items {
		if item.FollowerID == followerID && item.Status == domain.StatusPending {
			out = append(out, *item)
		}
	}
	// FIFO by insertion id.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeQueue) byFollower(followerID string) []domain.WorkItem {
	items, _ := f.PendingByFollower(context.Background(), followerID)
	return items
}

type fakeHistory struct {
	mu      sync.Mutex
	records map[workKey]domain.TradeHistoryRecord // action field unused
	err     error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{records: make(map[workKey]domain.TradeHistoryRecord)}
}

func (f *fakeHistory) UpsertMasterClose(_ context.Context, rec domain.TradeHistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := workKey{rec.OwnerID, rec.Ticket, ""}
	existing, ok := f.records[key]
	if !ok {
		f.records[key] = rec
		return nil
	}
	if existing.ClosePrice == 0 && rec.ClosePrice != 0 {
		existing.ClosePrice = rec.ClosePrice
		existing.NetProfit = rec.NetProfit
		f.records[key] = existing
	}
	return nil
}

func (f *fakeHistory) get(owner, ticket string) (domain.TradeHistoryRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[workKey{owner, ticket, ""}]
	return rec, ok
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps map[string]domain.BrokerSnapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snaps: make(map[string]domain.BrokerSnapshot)}
}

func (f *fakeSnapshots) set(userID string, balance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[userID] = domain.BrokerSnapshot{UserID: userID, Balance: balance}
}

func (f *fakeSnapshots) Get(_ context.Context, userID string) (domain.BrokerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[userID]
	if !ok {
		return domain.BrokerSnapshot{}, store.ErrNotFound
	}
	return snap, nil
}

// fakeAcker models the transactional ack store: terminal guard, history
// booking, shadow equity increment on active sessions.
type fakeAcker struct {
	mu       sync.Mutex
	items    map[uint64]*domain.WorkItem
	history  []domain.TradeHistoryRecord
	sessions *fakeSessions
}

func newFakeAcker(sessions *fakeSessions, items ...domain.WorkItem) *fakeAcker {
	f := &fakeAcker{items: make(map[uint64]*domain.WorkItem), sessions: sessions}
	for _, item := range items {
		cp := item
		f.items[item.ID] = &cp
	}
	return f
}

func (f *fakeAcker) Apply(_ context.Context, id uint64, status, executedTicket, message string, decide store.HistoryDecision) (domain.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.WorkItem{}, store.ErrNotFound
	}
	if item.Terminal() {
		return domain.WorkItem{}, store.ErrTerminal
	}
	item.Status = status
	item.ExecutedTicket = executedTicket
	item.ErrorMessage = message

	if rec := decide(*item); rec != nil {
		f.history = append(f.history, *rec)
		if f.sessions != nil {
			f.sessions.mu.Lock()
			for i, s := range f.sessions.sessions {
				if s.FollowerID == item.FollowerID && s.MasterID == item.MasterID && s.IsActive {
					f.sessions.sessions[i].CurrentEquity += rec.NetProfit
				}
			}
			f.sessions.mu.Unlock()
		}
	}
	return *item, nil
}

type publishedEvent struct {
	channel string
	event   domain.Event
}

type fakeBus struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakeBus) Publish(_ context.Context, channel string, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{channel: channel, event: ev})
	return nil
}

func (f *fakeBus) byType(t string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, ev := range f.events {
		if ev.event.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakeLog is an in-memory ingestion log for worker tests.
type fakeLog struct {
	mu      sync.Mutex
	acked   []string
	entries []stream.Entry
}

func (f *fakeLog) EnsureGroup(context.Context) error { return nil }

func (f *fakeLog) ReadGroup(context.Context, string, time.Duration, int64) ([]stream.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.entries
	f.entries = nil
	return out, nil
}

func (f *fakeLog) Claim(context.Context, string, time.Duration, int64) ([]stream.Entry, error) {
	return nil, nil
}

func (f *fakeLog) Ack(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeLog) DeadLetter(ctx context.Context, id string) error {
	return f.Ack(ctx, id)
}

var errBoom = errors.New("boom")

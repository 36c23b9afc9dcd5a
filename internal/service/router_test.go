package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/stream"
)

type fakeMirror struct {
	published []string
	err       error
}

func (f *fakeMirror) Publish(_ context.Context, entryID string, _ domain.RawSignal) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, entryID)
	return nil
}

func newTestWorker(log *fakeLog, router *SmartRouter, events *fakeBus, mirror SignalMirror) *RouterWorker {
	return NewRouterWorker(log, router, events, mirror, 30*time.Second, zerolog.Nop())
}

func TestProcessRoutesBroadcastsMirrorsAndAcks(t *testing.T) {
	sessions := &fakeSessions{sessions: []domain.CopySession{
		{ID: 1, FollowerID: "f1", MasterID: "m1", IsActive: true},
	}}
	queue := newFakeQueue()
	log := &fakeLog{}
	events := &fakeBus{}
	mirror := &fakeMirror{}
	w := newTestWorker(log, newTestRouter(sessions, queue, newFakeHistory(), newFakeSnapshots()), events, mirror)

	w.process(context.Background(), stream.Entry{ID: "1-0", Signal: openSignal("m1", "100", 0.10)})

	assert.Len(t, queue.byFollower("f1"), 1)
	require.Len(t, events.byType(domain.EventPositionsUpdate), 1)
	assert.Equal(t, []string{"1-0"}, mirror.published)
	assert.Equal(t, []string{"1-0"}, log.acked)
}

func TestProcessDeadLettersMalformedEntry(t *testing.T) {
	log := &fakeLog{}
	queue := newFakeQueue()
	w := newTestWorker(log, newTestRouter(&fakeSessions{}, queue, newFakeHistory(), newFakeSnapshots()), &fakeBus{}, nil)

	// Empty master id, as produced by an undecodable payload.
	w.process(context.Background(), stream.Entry{ID: "2-0"})

	assert.Equal(t, []string{"2-0"}, log.acked)
	assert.Empty(t, queue.items)
}

func TestProcessLeavesEntryPendingOnRouteFailure(t *testing.T) {
	sessions := &fakeSessions{err: errBoom}
	log := &fakeLog{}
	events := &fakeBus{}
	mirror := &fakeMirror{}
	w := newTestWorker(log, newTestRouter(sessions, newFakeQueue(), newFakeHistory(), newFakeSnapshots()), events, mirror)

	w.process(context.Background(), stream.Entry{ID: "3-0", Signal: openSignal("m1", "100", 0.10)})

	// No ack, no broadcast, no mirror: the entry must be redelivered whole.
	assert.Empty(t, log.acked)
	assert.Empty(t, events.events)
	assert.Empty(t, mirror.published)
}

func TestProcessBroadcastsPnlOnClose(t *testing.T) {
	events := &fakeBus{}
	w := newTestWorker(&fakeLog{}, newTestRouter(&fakeSessions{}, newFakeQueue(), newFakeHistory(), newFakeSnapshots()), events, nil)

	sig := domain.RawSignal{
		MasterID:   "m1",
		Ticket:     "100",
		Symbol:     "EURUSD",
		Action:     domain.ActionClose,
		Type:       "BUY",
		Price:      1.1050,
		Volume:     0.10,
		Profit:     50,
		Commission: -2,
		Swap:       -0.5,
	}
	w.process(context.Background(), stream.Entry{ID: "4-0", Signal: sig})

	pnl := events.byType(domain.EventMasterPnl)
	require.Len(t, pnl, 1)
	assert.InDelta(t, 47.5, pnl[0].event.NetProfit, 1e-9)
}

func TestProcessAckFailureDoesNotPanic(t *testing.T) {
	// Mirror failure is off the delivery path: the entry still acks.
	log := &fakeLog{}
	mirror := &fakeMirror{err: errBoom}
	w := newTestWorker(log, newTestRouter(&fakeSessions{}, newFakeQueue(), newFakeHistory(), newFakeSnapshots()), &fakeBus{}, mirror)

	w.process(context.Background(), stream.Entry{ID: "5-0", Signal: openSignal("m1", "100", 0.10)})

	assert.Equal(t, []string{"5-0"}, log.acked)
}

func TestRunStopsOnCancel(t *testing.T) {
	w := newTestWorker(&fakeLog{}, newTestRouter(&fakeSessions{}, newFakeQueue(), newFakeHistory(), newFakeSnapshots()), &fakeBus{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestConsumerIdentityIsStable(t *testing.T) {
	w := newTestWorker(&fakeLog{}, newTestRouter(&fakeSessions{}, newFakeQueue(), newFakeHistory(), newFakeSnapshots()), &fakeBus{}, nil)
	assert.NotEmpty(t, w.Consumer())
	assert.Equal(t, w.Consumer(), w.Consumer())
}

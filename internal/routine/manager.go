package routine

import (
	"context"
	"errors"
	"sync"
)

// Handler runs until its context is cancelled. Returning an error triggers
// the OnError hook but never tears down sibling routines.
type Handler func(ctx context.Context) error

var (
	ErrEmptyID       = errors.New("routine manager: empty id")
	ErrNilHandler    = errors.New("routine manager: nil handler")
	ErrRoutineExists = errors.New("routine manager: routine already running")
)

// Manager tracks named background routines (ingestion claim pass, session
// expiry sweep) so the owning service can shut them down together.
type Manager struct {
	baseCtx context.Context
	onError func(string, error)

	mu       sync.Mutex
	routines map[string]*routine
}

type routine struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(ctx context.Context, onError func(string, error)) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Manager{
		baseCtx:  ctx,
		onError:  onError,
		routines: make(map[string]*routine),
	}
}

// Run starts handler under the given id. The id must be unique among live
// routines; finished routines free their id.
func (m *Manager) Run(id string, handler Handler) error {
	if id == "" {
		return ErrEmptyID
	}
	if handler == nil {
		return ErrNilHandler
	}

	m.mu.Lock()
	if _, exists := m.routines[id]; exists {
		m.mu.Unlock()
		return ErrRoutineExists
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	r := &routine{cancel: cancel, done: make(chan struct{})}
	m.routines[id] = r
	m.mu.Unlock()

	go func() {
		defer func() {
			close(r.done)
			m.mu.Lock()
			if current, ok := m.routines[id]; ok && current == r {
				delete(m.routines, id)
			}
			m.mu.Unlock()
		}()
		if err := handler(ctx); err != nil && !errors.Is(err, context.Canceled) && m.onError != nil {
			m.onError(id, err)
		}
	}()
	return nil
}

// ShutdownAll cancels every live routine and waits for each to finish.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	live := make([]*routine, 0, len(m.routines))
	for _, r := range m.routines {
		live = append(live, r)
	}
	m.mu.Unlock()

	for _, r := range live {
		r.cancel()
	}
	for _, r := range live {
		<-r.done
	}
}

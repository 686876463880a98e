package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrNoUsableContext is returned when a session's validated window is empty
// and there is nothing sane to send to the model.
var ErrNoUsableContext = errors.New("no usable conversation context")

// DefaultWindow bounds how many recent turns are sent downstream.
const DefaultWindow = 10

// Manager bounds, validates, and persists conversation histories. Mutations
// for a given session id are serialized through a per-session lock so
// concurrent requests cannot lose updates.
type Manager struct {
	store  Store
	window int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(store Store, window int) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Manager{
		store:  store,
		window: window,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock acquires the session's mutex and returns its release function. The
// caller holds it across the whole load-mutate-save sequence.
func (m *Manager) Lock(sessionID string) func() {
	sessionID = NormalizeSessionID(sessionID)
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	return m.store.Load(ctx, NormalizeSessionID(sessionID))
}

func (m *Manager) Save(ctx context.Context, sessionID string, turns []Turn) error {
	return m.store.Save(ctx, NormalizeSessionID(sessionID), turns)
}

// Reset clears the session's turn sequence under the session lock.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	unlock := m.Lock(sessionID)
	defer unlock()
	return m.store.Reset(ctx, NormalizeSessionID(sessionID))
}

// Window returns at most the manager's window of most recent turns, oldest
// first, with invalid turns dropped. ErrNoUsableContext is returned when
// nothing survives validation.
func (m *Manager) Window(turns []Turn) ([]Turn, error) {
	return WindowOf(turns, m.window)
}

// WindowOf bounds and validates an arbitrary history.
func WindowOf(turns []Turn, max int) ([]Turn, error) {
	if max <= 0 {
		max = DefaultWindow
	}
	if len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Valid() {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoUsableContext
	}
	return out, nil
}

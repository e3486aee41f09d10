package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-chi-calculator/internal/engine"
)

// Manager runs key presses against stored sessions. Presses for one session
// are serialised: each batch runs to completion, in arrival order, before the
// next one for that session starts.
type Manager struct {
	store Store
	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
		locks: make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session in the initial state.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.now()
	sess := &Session{
		ID:        m.newID(),
		State:     engine.NewState(),
		Tape:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns the stored session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Count returns the number of stored sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Press applies keys to the session in order and saves the result. Keys the
// engine rejects abort the batch without saving anything.
func (m *Manager) Press(ctx context.Context, id string, keys []engine.Key) (*Session, []engine.Step, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	steps, err := sess.State.Run(keys)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", id, err)
	}
	for _, st := range steps {
		sess.Tape = append(sess.Tape, st.Key)
	}
	sess.UpdatedAt = m.now()

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return sess, steps, nil
}

// Clear presses C on the session.
func (m *Manager) Clear(ctx context.Context, id string) (*Session, error) {
	sess, _, err := m.Press(ctx, id, []engine.Key{engine.ClearKey()})
	return sess, err
}

// Delete removes the session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()

	return m.store.Delete(ctx, id)
}

// lock takes the per-session mutex and returns its release. Entries are
// dropped once nobody holds or waits for them.
func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

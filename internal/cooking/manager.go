package cooking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/recipe"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTickInterval sets how often session timers are ticked. Each tick takes
// one second off, so anything other than a second is only useful in tests.
func WithTickInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.tickInterval = d
	}
}

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager owns the open cooking sessions and runs one ticker per session.
type Manager struct {
	n            notify.Notifier
	log          *zap.Logger
	tickInterval time.Duration

	mu       sync.Mutex
	sessions map[string]entry
	wg       sync.WaitGroup
}

// NewManager creates a Manager with no open sessions.
func NewManager(notifier notify.Notifier, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		n:            notifier,
		log:          log,
		tickInterval: time.Second,
		sessions:     make(map[string]entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts cooking mode for r on its first step.
func (m *Manager) Open(r recipe.Recipe) (*Session, error) {
	s, err := NewSession(uuid.NewString(), r, m.n, m.log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.sessions[s.ID] = entry{session: s, cancel: cancel}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx, s)

	m.log.Info("cooking session opened", zap.String("session", s.ID), zap.String("recipe", s.RecipeName), zap.Int("steps", len(s.Steps)))
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close ends a session and stops its ticker. Any running timer is dropped.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.cancel()
	m.log.Info("cooking session closed", zap.String("session", id))
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and waits for the tickers to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for id, e := range m.sessions {
		e.cancel()
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context, s *Session) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

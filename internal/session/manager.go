package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"parking-garage/internal/garage"
	"parking-garage/internal/logging"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session owns one garage. All calls into the garage go through Do, which
// runs them one at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	garage         *garage.InstrumentedGarage
	lastAccessedAt time.Time
	closed         bool
	now            func() time.Time
}

// Do runs fn with exclusive access to the session's garage. It returns
// ErrSessionNotFound without calling fn once the session has been deleted.
func (s *Session) Do(fn func(g *garage.InstrumentedGarage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.lastAccessedAt = s.now()
	fn(s.garage)
	return nil
}

// close withdraws the garage. It reports false if the session was already
// closed or, when idleBefore is non-zero, was used at or after idleBefore.
func (s *Session) close(ctx context.Context, idleBefore time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !idleBefore.IsZero() && !s.lastAccessedAt.Before(idleBefore) {
		return false
	}
	s.closed = true
	s.garage.Close(ctx)
	return true
}

func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// Info is a point-in-time description of a session.
type Info struct {
	ID             string    `json:"id"`
	Capacity       int       `json:"capacity"`
	Occupied       int       `json:"occupied"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:             s.ID,
		Capacity:       s.garage.Capacity(),
		Occupied:       s.garage.Len(),
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.lastAccessedAt,
	}
}

// Manager keeps the live sessions in memory.
type Manager struct {
	sessions    map[string]*Session
	telemetry   *garage.TelemetryProvider
	maxSessions int
	mu          sync.RWMutex
	now         func() time.Time
}

func NewManager(telemetry *garage.TelemetryProvider, maxSessions int) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		telemetry:   telemetry,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Create starts a session with an empty garage of the given capacity.
func (m *Manager) Create(ctx context.Context, capacity int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	g, err := garage.NewInstrumentedGarage(capacity, m.telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to create garage: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:             uuid.New().String(),
		CreatedAt:      now,
		garage:         g,
		lastAccessedAt: now,
		now:            m.now,
	}
	m.sessions[s.ID] = s

	logging.Info(ctx, "session created", logging.SessionID(s.ID), "capacity", g.Capacity())
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok || !s.close(ctx, time.Time{}) {
		return ErrSessionNotFound
	}

	logging.Info(ctx, "session deleted", logging.SessionID(id))
	return nil
}

// List returns the sessions ordered by creation time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle removes sessions not used for longer than ttl and reports how
// many were removed.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	evicted := 0
	for _, s := range m.List() {
		// close rechecks idleness under the session lock.
		if !s.close(ctx, cutoff) {
			continue
		}

		m.mu.Lock()
		if m.sessions[s.ID] == s {
			delete(m.sessions, s.ID)
		}
		m.mu.Unlock()

		logging.Debug(ctx, "session evicted", logging.SessionID(s.ID))
		evicted++
	}
	if evicted > 0 {
		logging.Info(ctx, "evicted idle sessions", "count", evicted, "ttl", ttl.String())
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx, ttl)
		}
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joeblew999/plat-parks/internal/logging"
)

// DefaultIdleTTL is how long a session without an open stream is kept.
const DefaultIdleTTL = 10 * time.Minute

// NewID returns a new sortable unique ID for sessions and browsers.
func NewID() string {
	return ulid.Make().String()
}

// Manager owns the live sessions of a server.
type Manager struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. Session startups run under ctx.
func NewManager(ctx context.Context, cfg Config) *Manager {
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for a new page view.
func (m *Manager) Create(browserID string) *Session {
	s := New(NewID(), browserID, m.cfg)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	s.Start(m.ctx)
	return s
}

// Get returns a live session and records activity on it.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes and forgets sessions idle for longer than ttl. It returns the
// number removed.
func (m *Manager) Sweep(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Idle(now, ttl) {
			s.Close()
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now, ttl); n > 0 {
				m.cfg.Log.Debug().Int("removed", n).Int("live", m.Len()).Msg("Swept idle sessions")
			}
		}
	}
}

// Close stops every session.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

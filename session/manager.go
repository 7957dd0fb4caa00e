package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/opsboard/engine"
	"github.com/spektr-org/opsboard/helpers"
)

// Manager holds the live sessions of a server.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	opts     []engine.Option
}

// NewManager creates a manager. Sessions idle for longer than ttl are
// dropped by Sweep; ttl <= 0 keeps them until deleted.
func NewManager(ttl time.Duration, opts ...engine.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		opts:     opts,
	}
}

// Create opens a session on a loaded workbook.
func (m *Manager) Create(wb *helpers.Workbook) (*Session, error) {
	s, err := New(uuid.NewString(), wb, m.opts...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s, nil
}

// Get looks a session up by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	return s, nil
}

// Delete drops a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle since before now − ttl and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("🧹 Opsboard: swept %d idle sessions (%d left)", removed, len(m.sessions))
	}
	return removed
}

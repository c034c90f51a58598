package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

const defaultIdleTTL = 30 * time.Minute

// Manager holds the live orchestrators of the process, keyed by session id.
type Manager struct {
	deps    Dependencies
	opts    Options
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Orchestrator
}

// NewManager validates the dependencies shared by every session.
func NewManager(deps Dependencies, opts Options, idleTTL time.Duration) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		deps:     deps,
		opts:     opts,
		idleTTL:  idleTTL,
		now:      clock,
		sessions: make(map[uuid.UUID]*Orchestrator),
	}, nil
}

// Create starts and registers a session.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*Orchestrator, error) {
	o, err := New(ctx, m.deps, m.opts, input)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[o.ID()] = o
	n := len(m.sessions)
	m.mu.Unlock()
	m.deps.Metrics.SetActiveSessions(n)
	return o, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id uuid.UUID) (*Orchestrator, error) {
	m.mu.Lock()
	o, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found").
			WithDetails(map[string]any{"session_id": id.String()})
	}
	return o, nil
}

// Discard abandons a session. It reports whether the session existed.
func (m *Manager) Discard(id uuid.UUID) bool {
	m.mu.Lock()
	o, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if ok {
		o.Close()
		m.deps.Metrics.SetActiveSessions(n)
	}
	return ok
}

// Sweep evicts sessions idle for longer than the idle TTL. Sessions with a
// submission in flight are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var evicted []*Orchestrator
	for id, o := range m.sessions {
		updated, processing := o.idleSince()
		if processing || updated.After(cutoff) {
			continue
		}
		evicted = append(evicted, o)
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, o := range evicted {
		o.Close()
	}
	m.deps.Metrics.SetActiveSessions(n)
	return len(evicted)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

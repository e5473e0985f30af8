package session

import (
	"errors"
	"sync"
	"time"

	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
	"github.com/bearcattt/scramjet/internal/shared/id"
)

// ErrNotFound is returned when a session ID resolves to nothing.
var ErrNotFound = errors.New("session: not found")

// Emitter receives session lifecycle events. Implementations must not block.
type Emitter interface {
	Emit(event string, fields map[string]any)
}

// Session binds a top-level window to its sandbox metadata. Sessions live
// in memory only; nothing survives a restart.
type Session struct {
	ID        id.SessionID `json:"id"`
	Meta      *Meta        `json:"meta"`
	Top       *window.Window
	CreatedAt time.Time `json:"created_at"`
}

// CreateOptions configures a new session.
type CreateOptions struct {
	Origin  string
	BaseURL string
	Prefix  string
	Codec   string
	Bypass  []string
}

// Manager tracks live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	metrics  *monitoring.Metrics
	events   Emitter
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[id.SessionID]*Session)}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithEvents adds event emission to the manager.
func (m *Manager) WithEvents(events Emitter) *Manager {
	m.events = events
	return m
}

// Create registers a session for the given top-level window. Unnamed
// windows receive a synthetic name first so frame-targeted opens can
// resolve them.
func (m *Manager) Create(top *window.Window, opts CreateOptions) *Session {
	name := top.Name()
	if name == "" {
		name = id.NewWindowID().String()
		top.SetName(name)
	}

	s := &Session{
		ID: id.NewSessionID(),
		Meta: &Meta{
			Origin:          opts.Origin,
			BaseURL:         opts.BaseURL,
			TopFrameName:    name,
			ParentFrameName: name,
			Prefix:          opts.Prefix,
			Codec:           opts.Codec,
			Bypass:          opts.Bypass,
		},
		Top:       top,
		CreatedAt: time.Now(),
	}
	s.Meta.SessionID = s.ID

	m.mu.Lock()
	m.sessions[s.ID] = s
	active := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionCreated()
		m.metrics.SetSessionsActive(active)
	}
	m.emit("session.created", map[string]any{
		"session": s.ID.String(),
		"window":  name,
		"origin":  opts.Origin,
	})
	return s
}

// Get retrieves a session by ID.
func (m *Manager) Get(sid id.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	return s, ok
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Delete removes a session and returns it for teardown. The caller owns
// closing the session's windows and releasing their markers.
func (m *Manager) Delete(sid id.SessionID) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[sid]
	if ok {
		delete(m.sessions, sid)
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	if m.metrics != nil {
		m.metrics.SetSessionsActive(active)
	}
	m.emit("session.deleted", map[string]any{
		"session": sid.String(),
	})
	return s, true
}

func (m *Manager) emit(event string, fields map[string]any) {
	if m.events != nil {
		m.events.Emit(event, fields)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

package sandbox

import (
	"sync"

	"github.com/bearcattt/scramjet/internal/domain/intercept"
	"github.com/bearcattt/scramjet/internal/domain/session"
	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
	"github.com/bearcattt/scramjet/internal/shared/id"
)

// Rewriter transforms a URL using per-client session metadata. It must be
// total: on any failure it returns its input.
type Rewriter interface {
	Rewrite(rawURL string, meta *session.Meta) string
}

// Emitter receives sandbox activity events. Implementations must not block.
type Emitter interface {
	Emit(event string, fields map[string]any)
}

// Stats describes the marker table.
type Stats struct {
	ActiveClients int    `json:"active_clients"`
	TotalCreated  uint64 `json:"total_created"`
}

// Manager owns the marker table and resolves window references to proxies.
type Manager struct {
	mu      sync.RWMutex
	clients map[*window.Window]*Client
	created uint64

	registry *intercept.Registry
	rewriter Rewriter
	metrics  *monitoring.Metrics
	events   Emitter
}

// NewManager creates a sandbox manager. A nil rewriter disables URL
// rewriting; intercepted opens then delegate their URLs untouched.
func NewManager(rw Rewriter) *Manager {
	return &Manager{
		clients:  make(map[*window.Window]*Client),
		registry: intercept.NewRegistry(),
		rewriter: rw,
	}
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

// Adopt marks an existing window as sandboxed and returns its client. An
// already marked window keeps its client; the given metadata is ignored
// then. This is the bootstrap entry used when a page is first loaded.
func (m *Manager) Adopt(win *window.Window, meta *session.Meta) *Client {
	if win == nil {
		return nil
	}
	if c, ok := m.lookup(win); ok {
		return c
	}
	ensureName(win)
	if meta == nil {
		meta = &session.Meta{}
	}
	return m.adopt(win, meta)
}

// AdoptTree adopts a window and every window framed beneath it. Subframes
// get child metadata: inherited top frame name, parent frame name of their
// embedding window.
func (m *Manager) AdoptTree(top *window.Window, meta *session.Meta) *Client {
	c := m.Adopt(top, meta)
	if c == nil {
		return nil
	}
	m.adoptFrames(top, c.meta)
	return c
}

func (m *Manager) adoptFrames(w *window.Window, parentMeta *session.Meta) {
	parentName := w.Name()
	for _, el := range w.Document().Frames() {
		content := el.ContentWindow()
		if content == nil || content.Closed() {
			continue
		}
		child := m.Adopt(content, parentMeta.Child(parentName))
		if child != nil {
			m.adoptFrames(content, child.meta)
		}
	}
}

// ClientOf looks up the marker table. It never constructs.
func (m *Manager) ClientOf(win *window.Window) (*Client, bool) {
	return m.lookup(win)
}

// Clients returns a snapshot of all marked clients.
func (m *Manager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

// ClientsOfSession returns the clients whose metadata carries the session.
func (m *Manager) ClientsOfSession(sid id.SessionID) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Client
	for _, c := range m.clients {
		if c.meta.SessionID == sid {
			out = append(out, c)
		}
	}
	return out
}

// Release unmarks a window and drops its hooks. Markers are not tied to
// garbage collection; teardown calls this explicitly when a window closes.
func (m *Manager) Release(win *window.Window) {
	m.mu.Lock()
	c, ok := m.clients[win]
	if ok {
		delete(m.clients, win)
	}
	active := len(m.clients)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.registry.Release(win)
	if m.metrics != nil {
		m.metrics.SetClientsActive(active)
	}
	m.emit("client.released", map[string]any{
		"client":  c.id.String(),
		"session": c.meta.SessionID.String(),
	})
}

// Stats returns marker table statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{ActiveClients: len(m.clients), TotalCreated: m.created}
}

// resolveCreate is the creation path: it takes the raw result of a
// delegated open and answers with a proxy, adopting unmarked windows on the
// spot. Absent input propagates as absent.
func (m *Manager) resolveCreate(win *window.Window, via *Client) *GlobalProxy {
	if win == nil {
		return nil
	}
	if c, ok := m.lookup(win); ok {
		return c.proxy
	}
	name := ensureName(win)
	return m.adopt(win, via.meta.Derive(name)).proxy
}

// resolveObserve is the observation path: marked windows resolve to their
// proxy, everything else is foreign and resolves to nil. It never
// constructs.
func (m *Manager) resolveObserve(win *window.Window) *GlobalProxy {
	if win == nil {
		return nil
	}
	if c, ok := m.lookup(win); ok {
		return c.proxy
	}
	return nil
}

// adopt builds a client for an unmarked window: construct, install hooks,
// then publish the marker.
func (m *Manager) adopt(win *window.Window, meta *session.Meta) *Client {
	c := newClient(m, win, meta)
	c.Hook()

	m.mu.Lock()
	if existing, ok := m.clients[win]; ok {
		m.mu.Unlock()
		// Lost a publish race; reassert the published client's hooks
		// over the ones installed above.
		existing.Hook()
		return existing
	}
	m.clients[win] = c
	m.created++
	active := len(m.clients)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncClientCreated()
		m.metrics.SetClientsActive(active)
	}
	m.emit("client.adopted", map[string]any{
		"client":  c.id.String(),
		"session": c.meta.SessionID.String(),
		"window":  win.Name(),
	})
	return c
}

func (m *Manager) lookup(win *window.Window) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[win]
	return c, ok
}

func (m *Manager) emit(event string, fields map[string]any) {
	if m.events != nil {
		m.events.Emit(event, fields)
	}
}

// ensureName gives unnamed windows a synthetic name so frame-targeted opens
// can resolve them later.
func ensureName(win *window.Window) string {
	name := win.Name()
	if name == "" {
		name = id.NewWindowID().String()
		win.SetName(name)
	}
	return name
}

package events

import (
	"sync"
	"time"
)

// Event is a timestamped sandbox activity record.
type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Hub fans events out to subscribers. Emitters never block: a subscriber
// whose buffer is full loses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

// NewHub creates a hub with the default per-subscriber buffer.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: 64,
	}
}

// WithBuffer sets the per-subscriber channel capacity.
func (h *Hub) WithBuffer(n int) *Hub {
	if n > 0 {
		h.buffer = n
	}
	return h
}

// Emit delivers an event to every live subscriber.
func (h *Hub) Emit(event string, fields map[string]any) {
	e := Event{
		Type:      event,
		Timestamp: time.Now().Unix(),
		Fields:    fields,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function is
// idempotent and releases the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	token := h.next
	h.next++
	h.subs[token] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[token]; ok {
			delete(h.subs, token)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscriberCount reports the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops all subscribers. Further emits are discarded and further
// subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for token, ch := range h.subs {
		delete(h.subs, token)
		close(ch)
	}
}

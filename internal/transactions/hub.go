package transactions

import (
	"sync"

	"tradepos-backend/internal/models"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

type Event struct {
	Kind        EventKind          `json:"kind"`
	Transaction models.Transaction `json:"transaction"`
}

// Hub fans transaction changes out to stream subscribers. A subscriber that
// does not keep up loses events rather than blocking writers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{}), buffer: 32}
}

// Subscribe returns the event channel and a function that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warningf("transaction stream subscriber is slow, dropping %s event", ev.Kind)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

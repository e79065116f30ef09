package broadcast

import (
	"sync"

	"github.com/cinetix/seathold/internal/domain"
)

// subscriberBuffer bounds how far a slow client may fall behind before it is
// dropped instead of stalling everyone else.
const subscriberBuffer = 16

// Hub fans events out to the subscribers of one screening on this instance.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan domain.SeatEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan domain.SeatEvent]struct{}),
	}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe func. Unsubscribing twice is a no-op.
func (h *Hub) Subscribe() (<-chan domain.SeatEvent, func()) {
	ch := make(chan domain.SeatEvent, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once

	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, unsubscribe
}

// Broadcast delivers the event to every subscriber that can keep up; full
// buffers are skipped, never blocked on.
func (h *Hub) Broadcast(event domain.SeatEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Registry tracks one hub per screening and the lifecycle of its upstream
// Redis subscription.
type Registry struct {
	mu   sync.Mutex
	hubs map[int]*hubEntry
}

type hubEntry struct {
	hub   *Hub
	stop  func()
	count int
}

func NewRegistry() *Registry {
	return &Registry{
		hubs: make(map[int]*hubEntry),
	}
}

// Acquire returns the hub for a screening, creating it (and invoking start
// for the upstream subscription) on first use. The returned release must be
// called when the caller's subscription ends; the last release stops the
// upstream feed.
func (r *Registry) Acquire(screeningID int, start func(hub *Hub) (stop func())) (*Hub, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.hubs[screeningID]
	if !ok {
		hub := NewHub()
		entry = &hubEntry{
			hub:  hub,
			stop: start(hub),
		}
		r.hubs[screeningID] = entry
	}

	entry.count++

	var once sync.Once

	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			entry.count--
			if entry.count == 0 {
				entry.stop()
				delete(r.hubs, screeningID)
			}
		})
	}

	return entry.hub, release
}

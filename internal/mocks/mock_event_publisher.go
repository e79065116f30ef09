package mocks

import (
	"context"
	"sync"

	"github.com/cinetix/seathold/internal/domain"
)

// MockEventPublisher records published events; safe for concurrent use so
// tests can assert on events emitted from background goroutines.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []domain.SeatEvent

	PublishFunc func(ctx context.Context, event domain.SeatEvent) error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.SeatEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}

	return nil
}

func (m *MockEventPublisher) Events() []domain.SeatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SeatEvent, len(m.events))
	copy(out, m.events)

	return out
}

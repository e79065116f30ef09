package mocks

import (
	"context"
	"time"

	"github.com/cinetix/seathold/internal/lock"
)

type MockLocker struct {
	lock.Locker
	AcquireFunc func(ctx context.Context, key string, ttl, wait time.Duration) (func(), error)
	IsHeldFunc  func(ctx context.Context, key string) (bool, error)
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	return m.AcquireFunc(ctx, key, ttl, wait)
}

func (m *MockLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return m.IsHeldFunc(ctx, key)
}

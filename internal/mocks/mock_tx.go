package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// MockTx satisfies pgx.Tx for services that only ever Commit or Rollback;
// any other method panics through the embedded nil interface.
type MockTx struct {
	pgx.Tx
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTx) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

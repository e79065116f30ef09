package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cinetix/seathold/internal/domain"
)

type MockHoldRepo struct {
	domain.HoldRepository
	CreateHoldsFunc              func(ctx context.Context, tx pgx.Tx, userID, screeningID int, seatIDs []int, kind domain.HoldKind, groupID uuid.UUID, expiresAt time.Time) error
	GetActiveHoldSeatIdsFunc     func(ctx context.Context, screeningID int, seatIDs []int) ([]int, error)
	GetActiveHoldSeatIdsTxFunc   func(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) ([]int, error)
	DeleteExpiredForSeatsFunc    func(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) error
	GetHoldFunc                  func(ctx context.Context, userID, screeningID, seatID int) (*domain.SeatHold, error)
	UpdateKindFunc               func(ctx context.Context, tx pgx.Tx, holdID int, kind domain.HoldKind, expiresAt time.Time) error
	DeleteByGroupFunc            func(ctx context.Context, groupID uuid.UUID) ([]domain.ReleasedHold, error)
	DeleteByUserAndScreeningFunc func(ctx context.Context, userID, screeningID int) ([]domain.ReleasedHold, error)
	DeleteForConversionFunc      func(ctx context.Context, tx pgx.Tx, userID, screeningID int, seatIDs []int) (int64, error)
	DeleteExpiredFunc            func(ctx context.Context, now time.Time) ([]domain.ReleasedHold, error)
	BeginTxFunc                  func(ctx context.Context) (pgx.Tx, error)
}

func (m *MockHoldRepo) CreateHolds(
	ctx context.Context,
	tx pgx.Tx,
	userID, screeningID int,
	seatIDs []int,
	kind domain.HoldKind,
	groupID uuid.UUID,
	expiresAt time.Time) error {

	return m.CreateHoldsFunc(ctx, tx, userID, screeningID, seatIDs, kind, groupID, expiresAt)
}

func (m *MockHoldRepo) GetActiveHoldSeatIds(ctx context.Context, screeningID int, seatIDs []int) ([]int, error) {
	return m.GetActiveHoldSeatIdsFunc(ctx, screeningID, seatIDs)
}

func (m *MockHoldRepo) GetActiveHoldSeatIdsTx(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) ([]int, error) {
	return m.GetActiveHoldSeatIdsTxFunc(ctx, tx, screeningID, seatIDs)
}

func (m *MockHoldRepo) DeleteExpiredForSeats(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) error {
	return m.DeleteExpiredForSeatsFunc(ctx, tx, screeningID, seatIDs)
}

func (m *MockHoldRepo) GetHold(ctx context.Context, userID, screeningID, seatID int) (*domain.SeatHold, error) {
	return m.GetHoldFunc(ctx, userID, screeningID, seatID)
}

func (m *MockHoldRepo) UpdateKind(
	ctx context.Context,
	tx pgx.Tx,
	holdID int,
	kind domain.HoldKind,
	expiresAt time.Time) error {

	return m.UpdateKindFunc(ctx, tx, holdID, kind, expiresAt)
}

func (m *MockHoldRepo) DeleteByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.ReleasedHold, error) {
	return m.DeleteByGroupFunc(ctx, groupID)
}

func (m *MockHoldRepo) DeleteByUserAndScreening(ctx context.Context, userID, screeningID int) ([]domain.ReleasedHold, error) {
	return m.DeleteByUserAndScreeningFunc(ctx, userID, screeningID)
}

func (m *MockHoldRepo) DeleteForConversion(
	ctx context.Context,
	tx pgx.Tx,
	userID, screeningID int,
	seatIDs []int) (int64, error) {

	return m.DeleteForConversionFunc(ctx, tx, userID, screeningID, seatIDs)
}

func (m *MockHoldRepo) DeleteExpired(ctx context.Context, now time.Time) ([]domain.ReleasedHold, error) {
	return m.DeleteExpiredFunc(ctx, now)
}

func (m *MockHoldRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return m.BeginTxFunc(ctx)
}

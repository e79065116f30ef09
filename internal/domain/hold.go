package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type HoldKind string

const (
	HoldKindTemporary         HoldKind = "temporary"
	HoldKindProcessingPayment HoldKind = "processing_payment"
)

func (k HoldKind) Valid() bool {
	return k == HoldKindTemporary || k == HoldKindProcessingPayment
}

// TTL returns how long a hold of this kind lives from the moment it is
// created or upgraded.
func (k HoldKind) TTL() time.Duration {
	if k == HoldKindProcessingPayment {
		return 60 * time.Minute
	}
	return 10 * time.Minute
}

// SeatHold is the reservation unit: a time-bounded claim on one seat of one
// screening. All holds created by a single request share a GroupID, which
// must imply a shared user id and screening id.
type SeatHold struct {
	ID          int
	UserID      int
	ScreeningID int
	SeatID      int
	Kind        HoldKind
	GroupID     uuid.UUID
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

func (h SeatHold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}

// ReleasedHold identifies a deleted hold so its release can be announced
// through the broadcaster.
type ReleasedHold struct {
	ScreeningID int
	SeatID      int
}

type HoldRepository interface {
	// CreateHolds inserts one hold per seat inside tx; all rows share groupID.
	CreateHolds(ctx context.Context, tx pgx.Tx, userID, screeningID int, seatIDs []int, kind HoldKind, groupID uuid.UUID, expiresAt time.Time) error

	// GetActiveHoldSeatIds returns the seat ids among seatIDs that currently
	// carry a non-expired hold. Passing nil seatIDs scans the whole screening.
	GetActiveHoldSeatIds(ctx context.Context, screeningID int, seatIDs []int) ([]int, error)
	GetActiveHoldSeatIdsTx(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) ([]int, error)

	// DeleteExpiredForSeats clears expired-but-unreaped rows for the given
	// seats inside tx, so the uniqueness constraint only guards live holds.
	DeleteExpiredForSeats(ctx context.Context, tx pgx.Tx, screeningID int, seatIDs []int) error

	GetHold(ctx context.Context, userID, screeningID, seatID int) (*SeatHold, error)
	UpdateKind(ctx context.Context, tx pgx.Tx, holdID int, kind HoldKind, expiresAt time.Time) error

	DeleteByGroup(ctx context.Context, groupID uuid.UUID) ([]ReleasedHold, error)
	DeleteByUserAndScreening(ctx context.Context, userID, screeningID int) ([]ReleasedHold, error)

	// DeleteForConversion removes holds inside the ticketing collaborator's
	// own transaction, immediately before it inserts ticket_seats rows.
	DeleteForConversion(ctx context.Context, tx pgx.Tx, userID, screeningID int, seatIDs []int) (int64, error)

	// DeleteExpired is the reaper's bulk sweep; it needs no locks because an
	// expired hold can no longer be renewed.
	DeleteExpired(ctx context.Context, now time.Time) ([]ReleasedHold, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus makes conflict an ordinary value instead of an error:
// contended seats are an expected, frequent result that callers must be able
// to render, not an exceptional condition.
type OutcomeStatus string

const (
	OutcomeOk        OutcomeStatus = "ok"
	OutcomePartialOk OutcomeStatus = "partial_ok"
	OutcomeConflict  OutcomeStatus = "conflict"
)

type CreateReservationCommand struct {
	UserID              int
	ScreeningID         int
	SeatIDs             []int
	Kind                HoldKind
	RequireAll          bool
	SuggestAlternatives bool
}

// ReservationOutcome is the structured result of a create attempt. On
// Conflict, Unavailable always lists the contended seats and Alternatives
// carries suggestions when the caller asked for them.
type ReservationOutcome struct {
	Status       OutcomeStatus
	GroupID      uuid.UUID
	ExpiresAt    time.Time
	HeldSeatIDs  []int
	Unavailable  []int
	Alternatives *Suggestions

	// LockTimedOut marks a Conflict caused by losing the lock race rather
	// than by committed holds; queue workers retry these with backoff.
	LockTimedOut bool
}

type UpdateReservationCommand struct {
	UserID      int
	ScreeningID int
	SeatIDs     []int
	NewKind     HoldKind
}

type CancelReservationCommand struct {
	// Exactly one of GroupID or (UserID, ScreeningID) identifies the holds.
	GroupID     uuid.UUID
	UserID      int
	ScreeningID int
}

type ReservationService interface {
	CreateReservation(ctx context.Context, cmd CreateReservationCommand) (*ReservationOutcome, error)
	UpdateReservationKind(ctx context.Context, cmd UpdateReservationCommand) (time.Time, error)
	CancelReservation(ctx context.Context, cmd CancelReservationCommand) (int64, error)
	GetAvailableSeats(ctx context.Context, screeningID int) ([]Seat, error)
	IsSeatAvailable(ctx context.Context, screeningID, seatID int) (bool, error)
}

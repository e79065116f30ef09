package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Seat is immutable roster data owned by the catalog. The engine references
// seats by id and never writes to them.
type Seat struct {
	ID         int
	RoomID     int
	RowLabel   string
	SeatNumber int
	SeatClass  string
	Price      decimal.Decimal
}

type Screening struct {
	ID        int
	RoomID    int
	StartTime time.Time
	EndTime   time.Time
}

type SeatRepository interface {
	GetSeatsByRoom(ctx context.Context, roomID int) ([]Seat, error)
	GetSeatsByIds(ctx context.Context, seatIDs []int) ([]Seat, error)
}

type ScreeningRepository interface {
	GetScreening(ctx context.Context, screeningID int) (*Screening, error)
}

// TicketRepository is the read side of the ticketing collaborator. A row in
// ticket_seats means the seat is sold and may never be held again for that
// screening.
type TicketRepository interface {
	GetTicketSeatIds(ctx context.Context, screeningID int) ([]int, error)
	GetTicketSeatIdsForSeats(ctx context.Context, screeningID int, seatIDs []int) ([]int, error)
}

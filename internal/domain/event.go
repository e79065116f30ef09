package domain

import (
	"context"
	"time"
)

type SeatEventType string

const (
	SeatEventSnapshot SeatEventType = "snapshot"
	SeatEventReserved SeatEventType = "reserved"
	SeatEventReleased SeatEventType = "released"
)

// SeatEvent is the availability delta pushed to everyone watching a
// screening. Delivery is best-effort; a client that misses one can always
// re-derive truth from the availability endpoint.
type SeatEvent struct {
	Type        SeatEventType `json:"type"`
	ScreeningID int           `json:"screening_id"`
	SeatIDs     []int         `json:"seats"`
	Timestamp   time.Time     `json:"timestamp"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event SeatEvent) error
}

// Package reaper deletes seat holds whose TTL has passed and announces the
// freed seats. Expired holds already count as free everywhere else; the
// sweep is physical cleanup plus notification, so it needs no locks.
package reaper

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cinetix/seathold/internal/domain"
)

const DefaultInterval = 60 * time.Second

type Reaper struct {
	holdRepo  domain.HoldRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
	interval  time.Duration

	running atomic.Bool
	reaped  metric.Int64Counter
}

func New(
	holdRepo domain.HoldRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	interval time.Duration) *Reaper {

	if interval <= 0 {
		interval = DefaultInterval
	}

	meter := otel.Meter("seathold/reaper")
	reaped, _ := meter.Int64Counter("reaper.holds_deleted",
		metric.WithDescription("Expired seat holds removed by the reaper"))

	return &Reaper{
		holdRepo:  holdRepo,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		reaped:    reaped,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	r.logger.Info("reaper starting", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper shutting down")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. A tick that fires while the previous sweep is
// still running is skipped rather than queued.
func (r *Reaper) Sweep(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("previous sweep still running, skipping tick")
		return
	}
	defer r.running.Store(false)

	released, err := r.holdRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		r.logger.Error("failed to delete expired holds", "error", err)
		return
	}

	if len(released) == 0 {
		return
	}

	r.reaped.Add(ctx, int64(len(released)))
	r.logger.Info("reaped expired holds", "count", len(released))

	byScreening := make(map[int][]int)
	for _, rel := range released {
		byScreening[rel.ScreeningID] = append(byScreening[rel.ScreeningID], rel.SeatID)
	}

	for screeningID, seatIDs := range byScreening {
		err = r.publisher.Publish(ctx, domain.SeatEvent{
			Type:        domain.SeatEventReleased,
			ScreeningID: screeningID,
			SeatIDs:     seatIDs,
			Timestamp:   time.Now(),
		})
		if err != nil {
			r.logger.Warn("failed to publish release event", "screening_id", screeningID, "error", err)
		}
	}
}

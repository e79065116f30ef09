package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cinetix/seathold/internal/domain"
)

const (
	// maxAttempts bounds retries for lock timeouts and transient store
	// errors; after that the job is reported failed rather than retried
	// forever.
	maxAttempts = 3

	initialBackoff = 500 * time.Millisecond
)

// Worker consumes reservation jobs and drives them through the engine with
// bounded concurrency.
type Worker struct {
	queue        *Queue
	reservations domain.ReservationService
	logger       *slog.Logger
	concurrency  int

	pending metric.Int64UpDownCounter
}

func NewWorker(
	queue *Queue,
	reservations domain.ReservationService,
	logger *slog.Logger,
	concurrency int) *Worker {

	if concurrency < 1 {
		concurrency = 1
	}

	meter := otel.Meter("seathold/jobqueue")

	// Diagnostics only: the gauge is per instance and nothing may depend on
	// it for correctness across the fleet.
	pending, _ := meter.Int64UpDownCounter("jobqueue.pending_jobs",
		metric.WithDescription("Reservation jobs currently being processed by this instance"))

	return &Worker{
		queue:        queue,
		reservations: reservations,
		logger:       logger,
		concurrency:  concurrency,
		pending:      pending,
	}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.queue.conn.Channel()
	if err != nil {
		return fmt.Errorf("jobqueue: open consumer channel: %w", err)
	}
	defer ch.Close()

	err = ch.Qos(w.concurrency, 0, false)
	if err != nil {
		return fmt.Errorf("jobqueue: set qos: %w", err)
	}

	deliveries, err := ch.Consume(RequestQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("jobqueue: consume: %w", err)
	}

	w.logger.Info("reservation worker starting", "concurrency", w.concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, w.concurrency)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				wg.Wait()
				return errors.New("jobqueue: deliveries channel closed")
			}

			sem <- struct{}{}
			wg.Add(1)

			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()

				w.handleDelivery(ctx, d)
			}(d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	w.pending.Add(ctx, 1)
	defer w.pending.Add(ctx, -1)

	var job ReservationJob

	err := json.Unmarshal(d.Body, &job)
	if err != nil {
		w.logger.Error("rejecting malformed job", "error", err)
		d.Nack(false, false)
		return
	}

	result := w.process(ctx, job)

	err = w.queue.PublishResult(ctx, result)
	if err != nil {
		w.logger.Warn("failed to publish job result", "request_id", job.RequestID, "error", err)
	}

	d.Ack(false)
}

// process runs the engine with retry. Conflicts are terminal results, not
// failures; only lock timeouts and transient store errors are retried.
func (w *Worker) process(ctx context.Context, job ReservationJob) JobResult {
	logger := w.logger.With("request_id", job.RequestID, "screening_id", job.ScreeningID)

	cmd := domain.CreateReservationCommand{
		UserID:              job.UserID,
		ScreeningID:         job.ScreeningID,
		SeatIDs:             job.SeatIDs,
		Kind:                domain.HoldKind(job.Kind),
		RequireAll:          job.RequireAll,
		SuggestAlternatives: job.SuggestAlternatives,
	}

	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		outcome, err := w.reservations.CreateReservation(ctx, cmd)

		switch {
		case err == nil && outcome.LockTimedOut && attempt < maxAttempts:
			logger.Info("lock contention, retrying", "attempt", attempt)

		case err != nil && errors.Is(err, domain.ErrTransientStore) && attempt < maxAttempts:
			logger.Warn("transient store error, retrying", "attempt", attempt, "error", err)

		case err != nil:
			logger.Error("reservation job failed", "attempt", attempt, "error", err)
			return JobResult{
				RequestID: job.RequestID,
				Status:    "failed",
				Error:     err.Error(),
			}

		default:
			return toJobResult(job.RequestID, outcome)
		}

		select {
		case <-ctx.Done():
			return JobResult{
				RequestID: job.RequestID,
				Status:    "failed",
				Error:     ctx.Err().Error(),
			}
		case <-time.After(backoff):
		}

		backoff *= 2
	}
}

func toJobResult(requestID string, outcome *domain.ReservationOutcome) JobResult {
	result := JobResult{
		RequestID:          requestID,
		Status:             string(outcome.Status),
		HeldSeatIDs:        outcome.HeldSeatIDs,
		UnavailableSeatIDs: outcome.Unavailable,
	}

	if outcome.Status != domain.OutcomeConflict {
		result.ReservationGroupID = outcome.GroupID.String()
		expiresAt := outcome.ExpiresAt
		result.ExpiresAt = &expiresAt
	}

	return result
}

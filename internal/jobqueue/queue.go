// Package jobqueue serializes bursts of reservation requests through a
// durable RabbitMQ queue, decoupling the request-accepting front door from
// the slower lock-and-transaction work and providing bounded retry with
// backoff for transient failures.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RequestQueue = "reservation.requests"
	ResultQueue  = "reservation.results"
)

// ReservationJob is the queued form of a create-reservation request.
type ReservationJob struct {
	RequestID           string `json:"request_id"`
	UserID              int    `json:"user_id"`
	ScreeningID         int    `json:"screening_id"`
	SeatIDs             []int  `json:"seat_ids"`
	Kind                string `json:"kind"`
	RequireAll          bool   `json:"require_all"`
	SuggestAlternatives bool   `json:"suggest_alternatives"`
}

// JobResult reports the terminal outcome of a job so callers can correlate
// by request id.
type JobResult struct {
	RequestID          string     `json:"request_id"`
	Status             string     `json:"status"`
	ReservationGroupID string     `json:"reservation_group_id,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	HeldSeatIDs        []int      `json:"held_seats,omitempty"`
	UnavailableSeatIDs []int      `json:"unavailable_seats,omitempty"`
	Error              string     `json:"error,omitempty"`
}

// Queue owns one AMQP connection and channel; publishing is serialized by a
// mutex because AMQP channels are not safe for concurrent writes.
type Queue struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func Connect(url string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: open channel: %w", err)
	}

	for _, name := range []string{RequestQueue, ResultQueue} {
		_, err = ch.QueueDeclare(name, true, false, false, false, nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("jobqueue: declare %s: %w", name, err)
		}
	}

	return &Queue{conn: conn, ch: ch}, nil
}

func (q *Queue) Close() error {
	return q.conn.Close()
}

func (q *Queue) PublishJob(ctx context.Context, job ReservationJob) error {
	return q.publish(ctx, RequestQueue, job)
}

func (q *Queue) PublishResult(ctx context.Context, result JobResult) error {
	return q.publish(ctx, ResultQueue, result)
}

func (q *Queue) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("jobqueue: publish to %s: %w", queue, err)
	}

	return nil
}

// Package broadcast propagates seat-state changes to everyone watching a
// screening. Events travel through Redis pub/sub so every service instance
// sees changes committed by its peers; the per-instance hub fans them out to
// locally connected clients. Delivery is best-effort and at most once; a
// client that misses an event re-derives truth from the availability
// endpoint.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cinetix/seathold/internal/domain"
)

func channelName(screeningID int) string {
	return fmt.Sprintf("screening_events:%d", screeningID)
}

// RedisBroadcaster publishes seat events to a per-screening Redis channel.
type RedisBroadcaster struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisBroadcaster(client redis.UniversalClient, logger *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		logger: logger,
	}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("broadcast: marshal event: %w", err)
	}

	err = b.client.Publish(ctx, channelName(event.ScreeningID), payload).Err()
	if err != nil {
		return fmt.Errorf("broadcast: publish: %w", err)
	}

	return nil
}

// Subscribe consumes the screening's channel and forwards decoded events to
// the hub until ctx is cancelled.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, screeningID int, hub *Hub) {
	sub := b.client.Subscribe(ctx, channelName(screeningID))
	defer sub.Close()

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event domain.SeatEvent

			err := json.Unmarshal([]byte(msg.Payload), &event)
			if err != nil {
				b.logger.Warn("dropping malformed seat event", "channel", msg.Channel, "error", err)
				continue
			}

			hub.Broadcast(event)
		}
	}
}

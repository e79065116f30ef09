package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cinetix/seathold/internal/broadcast"
	"github.com/cinetix/seathold/internal/domain"
)

// sseHeartbeat keeps intermediaries from reaping an idle stream.
const sseHeartbeat = 15 * time.Second

// SeatEventsHandler streams seat availability changes for one screening as
// server-sent events. The first event is always a snapshot of the currently
// free seats so a client joining mid-show starts from truth.
func (app *Application) SeatEventsHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverErrorResponse(w, r, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	seats, err := app.reservations.GetAvailableSeats(r.Context(), screeningID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	hub, release := app.hubs.Acquire(screeningID, func(hub *broadcast.Hub) func() {
		// The upstream Redis subscription outlives any single client; it is
		// torn down when the last subscriber for this screening leaves.
		ctx, cancel := context.WithCancel(context.Background())
		go app.broadcaster.Subscribe(ctx, screeningID, hub)
		return cancel
	})
	defer release()

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The stream is long-lived, so the server-wide write timeout must not
	// apply; each write instead gets its own deadline.
	rc := http.NewResponseController(w)

	seatIDs := make([]int, 0, len(seats))
	for _, seat := range seats {
		seatIDs = append(seatIDs, seat.ID)
	}

	snapshot := domain.SeatEvent{
		Type:        domain.SeatEventSnapshot,
		ScreeningID: screeningID,
		SeatIDs:     seatIDs,
		Timestamp:   time.Now().UTC(),
	}

	err = writeSSEEvent(w, rc, snapshot)
	if err != nil {
		logger.Debug("seat event stream closed", "screening_id", screeningID, "error", err)
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_ = rc.SetWriteDeadline(time.Now().Add(5 * time.Second))
			_, err = fmt.Fprint(w, ": keepalive\n\n")
			if err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}

			err = writeSSEEvent(w, rc, event)
			if err != nil {
				logger.Debug("seat event stream closed", "screening_id", screeningID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, rc *http.ResponseController, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = rc.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)

	return err
}

package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cinetix/seathold/api"
	"github.com/cinetix/seathold/internal/domain"
)

const defaultSuggestionCount = 5

func (app *Application) SuggestAlternativesHandler(w http.ResponseWriter, r *http.Request) {
	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	req := domain.SuggestionRequest{
		ScreeningID:    screeningID,
		Count:          defaultSuggestionCount,
		PreferAdjacent: true,
	}

	query := r.URL.Query()

	if raw := query.Get("seat_ids"); raw != "" {
		seatIDs, err := parseSeatIDList(raw)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		req.RequestedSeatIDs = seatIDs
	}

	if raw := query.Get("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count < 1 || count > 20 {
			app.badRequestResponse(w, r, fmt.Errorf("count must be an integer between 1 and 20"))
			return
		}
		req.Count = count
	}

	if raw := query.Get("prefer_adjacent"); raw != "" {
		preferAdjacent, err := strconv.ParseBool(raw)
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("prefer_adjacent must be a boolean"))
			return
		}
		req.PreferAdjacent = preferAdjacent
	}

	if raw := query.Get("user_id"); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil || userID < 1 {
			app.badRequestResponse(w, r, fmt.Errorf("user_id must be a positive integer"))
			return
		}
		req.UserID = userID
	}

	suggestions, err := app.suggester.SuggestAlternatives(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrTransientStore):
			app.serviceUnavailableResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := api.SuggestionsResponse{
		ScreeningId: screeningID,
		Suggestions: toApiSuggestions(suggestions),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiSuggestions(s *domain.Suggestions) api.Suggestions {
	out := api.Suggestions{
		Seats:  make([]api.Seat, 0, len(s.Seats)),
		Groups: make([][]api.Seat, 0, len(s.Groups)),
	}

	for _, seat := range s.Seats {
		out.Seats = append(out.Seats, toApiSeat(seat))
	}

	for _, group := range s.Groups {
		seats := make([]api.Seat, 0, len(group))
		for _, seat := range group {
			seats = append(seats, toApiSeat(seat))
		}
		out.Groups = append(out.Groups, seats)
	}

	return out
}

func parseSeatIDList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	seatIDs := make([]int, 0, len(parts))

	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id < 1 {
			return nil, fmt.Errorf("seat_ids must be a comma-separated list of positive integers")
		}
		seatIDs = append(seatIDs, id)
	}

	return seatIDs, nil
}

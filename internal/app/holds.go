package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cinetix/seathold/api"
	"github.com/cinetix/seathold/internal/domain"
	"github.com/cinetix/seathold/internal/jobqueue"
)

func (app *Application) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	var input api.CreateReservationRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	outcome, err := app.reservations.CreateReservation(r.Context(), domain.CreateReservationCommand{
		UserID:              input.UserId,
		ScreeningID:         screeningID,
		SeatIDs:             input.SeatIdList,
		Kind:                domain.HoldKind(input.Kind),
		RequireAll:          input.RequireAll,
		SuggestAlternatives: input.SuggestAlternatives,
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			logger.Warn("reservation for unknown screening or seats", "screening_id", screeningID)
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrTransientStore):
			app.serviceUnavailableResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := toReservationResponse(outcome)

	status := http.StatusCreated
	if outcome.Status == domain.OutcomeConflict {
		// Contended seats are an expected outcome; the payload carries what
		// was taken and what to offer instead.
		logger.Info("reservation conflict", "screening_id", screeningID, "unavailable", outcome.Unavailable)
		status = http.StatusConflict
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toReservationResponse(outcome *domain.ReservationOutcome) api.ReservationResponse {
	resp := api.ReservationResponse{
		Success:          outcome.Status != domain.OutcomeConflict,
		HeldSeats:        outcome.HeldSeatIDs,
		UnavailableSeats: outcome.Unavailable,
	}

	if resp.Success {
		resp.ReservationGroupId = outcome.GroupID.String()
		expiresAt := outcome.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}

	if outcome.Alternatives != nil {
		alternatives := toApiSuggestions(outcome.Alternatives)
		resp.Alternatives = &alternatives
	}

	return resp
}

func (app *Application) EnqueueReservationHandler(w http.ResponseWriter, r *http.Request) {
	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	if app.queue == nil {
		app.errorResponse(w, r, http.StatusNotImplemented, "asynchronous reservations are not enabled")
		return
	}

	var input api.CreateReservationRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	job := jobqueue.ReservationJob{
		RequestID:           uuid.New().String(),
		UserID:              input.UserId,
		ScreeningID:         screeningID,
		SeatIDs:             input.SeatIdList,
		Kind:                input.Kind,
		RequireAll:          input.RequireAll,
		SuggestAlternatives: input.SuggestAlternatives,
	}

	err = app.queue.PublishJob(r.Context(), job)
	if err != nil {
		app.serviceUnavailableResponse(w, r, err)
		return
	}

	resp := api.EnqueueReservationResponse{
		RequestId: job.RequestID,
		Queued:    true,
	}

	err = app.writeJSON(w, http.StatusAccepted, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) UpdateReservationKindHandler(w http.ResponseWriter, r *http.Request) {
	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	var input api.UpdateReservationRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	expiresAt, err := app.reservations.UpdateReservationKind(r.Context(), domain.UpdateReservationCommand{
		UserID:      input.UserId,
		ScreeningID: screeningID,
		SeatIDs:     input.SeatIdList,
		NewKind:     domain.HoldKind(input.NewKind),
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHoldNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrInvalidKindTransition):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, domain.ErrTransientStore):
			app.serviceUnavailableResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := api.UpdateReservationResponse{
		Success:   true,
		ExpiresAt: expiresAt,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelReservationByUserHandler(w http.ResponseWriter, r *http.Request) {
	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("user_id query parameter must be a positive integer"))
		return
	}

	app.cancelReservation(w, r, domain.CancelReservationCommand{
		UserID:      userID,
		ScreeningID: screeningID,
	})
}

func (app *Application) CancelReservationByGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid reservation group ID"))
		return
	}

	app.cancelReservation(w, r, domain.CancelReservationCommand{
		GroupID: groupID,
	})
}

func (app *Application) cancelReservation(w http.ResponseWriter, r *http.Request, cmd domain.CancelReservationCommand) {
	count, err := app.reservations.CancelReservation(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrTransientStore) {
			app.serviceUnavailableResponse(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	// Cancelling nothing is still success; the count lets the caller tell
	// the difference.
	resp := api.CancelReservationResponse{
		Success: true,
		Count:   count,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

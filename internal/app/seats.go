package app

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/cinetix/seathold/api"
	"github.com/cinetix/seathold/internal/domain"
)

func (app *Application) GetAvailableSeatsHandler(w http.ResponseWriter, r *http.Request) {
	screeningID := readIDParam(r, "screeningID")
	if screeningID == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	seats, err := app.reservations.GetAvailableSeats(r.Context(), screeningID)
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

	resp := api.AvailableSeatsResponse{
		ScreeningId: screeningID,
		SeatRows:    toSeatRows(seats),
		Count:       len(seats),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiSeat(seat domain.Seat) api.Seat {
	return api.Seat{
		Id:     seat.ID,
		Row:    seat.RowLabel,
		Number: seat.SeatNumber,
		Class:  seat.SeatClass,
		Price:  seat.Price.InexactFloat64(),
	}
}

// toSeatRows groups seats by row label, rows in label order and seats in
// number order within each row.
func toSeatRows(seats []domain.Seat) []api.SeatRow {
	byRow := make(map[string][]api.Seat)
	for _, seat := range seats {
		byRow[seat.RowLabel] = append(byRow[seat.RowLabel], toApiSeat(seat))
	}

	labels := make([]string, 0, len(byRow))
	for label := range byRow {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([]api.SeatRow, 0, len(labels))
	for _, label := range labels {
		rowSeats := byRow[label]
		sort.Slice(rowSeats, func(i, j int) bool {
			return rowSeats[i].Number < rowSeats[j].Number
		})

		rows = append(rows, api.SeatRow{Row: label, Seats: rowSeats})
	}

	return rows
}

// Package api defines the request and response types of the seat-hold HTTP
// surface. The wire contract is transport-independent; the same shapes are
// carried by the job queue.
package api

import "time"

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validation_errors"`
	RequestId        string            `json:"request_id,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type CreateReservationRequest struct {
	UserId              int    `json:"user_id" validate:"required,gt=0"`
	SeatIdList          []int  `json:"seat_ids" validate:"required,min=1,max=8,unique,dive,gt=0"`
	Kind                string `json:"kind" validate:"omitempty,hold_kind"`
	RequireAll          bool   `json:"require_all"`
	SuggestAlternatives bool   `json:"suggest_alternatives"`
}

type ReservationResponse struct {
	Success            bool           `json:"success"`
	ReservationGroupId string         `json:"reservation_group_id,omitempty"`
	ExpiresAt          *time.Time     `json:"expires_at,omitempty"`
	HeldSeats          []int          `json:"held_seats,omitempty"`
	UnavailableSeats   []int          `json:"unavailable_seats,omitempty"`
	Alternatives       *Suggestions   `json:"alternatives,omitempty"`
	Error              *ErrorResponse `json:"error,omitempty"`
}

type EnqueueReservationResponse struct {
	RequestId string `json:"request_id"`
	Queued    bool   `json:"queued"`
}

type UpdateReservationRequest struct {
	UserId     int    `json:"user_id" validate:"required,gt=0"`
	SeatIdList []int  `json:"seat_ids" validate:"required,min=1,max=8,unique,dive,gt=0"`
	NewKind    string `json:"new_kind" validate:"required,hold_kind"`
}

type UpdateReservationResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CancelReservationResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

type Seat struct {
	Id     int     `json:"id"`
	Row    string  `json:"row"`
	Number int     `json:"number"`
	Class  string  `json:"class"`
	Price  float64 `json:"price"`
}

type SeatRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}

type AvailableSeatsResponse struct {
	ScreeningId int       `json:"screening_id"`
	SeatRows    []SeatRow `json:"seat_rows"`
	Count       int       `json:"count"`
}

type Suggestions struct {
	Seats  []Seat   `json:"seats"`
	Groups [][]Seat `json:"groups"`
}

type SuggestionsResponse struct {
	ScreeningId int         `json:"screening_id"`
	Suggestions Suggestions `json:"suggestions"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"system_info"`
}

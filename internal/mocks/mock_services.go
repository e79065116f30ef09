package mocks

import (
	"context"
	"time"

	"github.com/cinetix/seathold/internal/domain"
)

type MockReservationService struct {
	domain.ReservationService
	CreateReservationFunc     func(ctx context.Context, cmd domain.CreateReservationCommand) (*domain.ReservationOutcome, error)
	UpdateReservationKindFunc func(ctx context.Context, cmd domain.UpdateReservationCommand) (time.Time, error)
	CancelReservationFunc     func(ctx context.Context, cmd domain.CancelReservationCommand) (int64, error)
	GetAvailableSeatsFunc     func(ctx context.Context, screeningID int) ([]domain.Seat, error)
	IsSeatAvailableFunc       func(ctx context.Context, screeningID, seatID int) (bool, error)
}

func (m *MockReservationService) CreateReservation(
	ctx context.Context,
	cmd domain.CreateReservationCommand) (*domain.ReservationOutcome, error) {

	return m.CreateReservationFunc(ctx, cmd)
}

func (m *MockReservationService) UpdateReservationKind(
	ctx context.Context,
	cmd domain.UpdateReservationCommand) (time.Time, error) {

	return m.UpdateReservationKindFunc(ctx, cmd)
}

func (m *MockReservationService) CancelReservation(
	ctx context.Context,
	cmd domain.CancelReservationCommand) (int64, error) {

	return m.CancelReservationFunc(ctx, cmd)
}

func (m *MockReservationService) GetAvailableSeats(ctx context.Context, screeningID int) ([]domain.Seat, error) {
	return m.GetAvailableSeatsFunc(ctx, screeningID)
}

func (m *MockReservationService) IsSeatAvailable(ctx context.Context, screeningID, seatID int) (bool, error) {
	return m.IsSeatAvailableFunc(ctx, screeningID, seatID)
}

type MockSuggestionService struct {
	domain.SuggestionService
	SuggestAlternativesFunc func(ctx context.Context, req domain.SuggestionRequest) (*domain.Suggestions, error)
}

func (m *MockSuggestionService) SuggestAlternatives(
	ctx context.Context,
	req domain.SuggestionRequest) (*domain.Suggestions, error) {

	return m.SuggestAlternativesFunc(ctx, req)
}

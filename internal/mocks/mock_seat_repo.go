package mocks

import (
	"context"

	"github.com/cinetix/seathold/internal/domain"
)

type MockSeatRepo struct {
	domain.SeatRepository
	GetSeatsByRoomFunc func(ctx context.Context, roomID int) ([]domain.Seat, error)
	GetSeatsByIdsFunc  func(ctx context.Context, seatIDs []int) ([]domain.Seat, error)
}

func (m *MockSeatRepo) GetSeatsByRoom(ctx context.Context, roomID int) ([]domain.Seat, error) {
	return m.GetSeatsByRoomFunc(ctx, roomID)
}

func (m *MockSeatRepo) GetSeatsByIds(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
	return m.GetSeatsByIdsFunc(ctx, seatIDs)
}

type MockScreeningRepo struct {
	domain.ScreeningRepository
	GetScreeningFunc func(ctx context.Context, screeningID int) (*domain.Screening, error)
}

func (m *MockScreeningRepo) GetScreening(ctx context.Context, screeningID int) (*domain.Screening, error) {
	return m.GetScreeningFunc(ctx, screeningID)
}

type MockTicketRepo struct {
	domain.TicketRepository
	GetTicketSeatIdsFunc         func(ctx context.Context, screeningID int) ([]int, error)
	GetTicketSeatIdsForSeatsFunc func(ctx context.Context, screeningID int, seatIDs []int) ([]int, error)
}

func (m *MockTicketRepo) GetTicketSeatIds(ctx context.Context, screeningID int) ([]int, error) {
	return m.GetTicketSeatIdsFunc(ctx, screeningID)
}

func (m *MockTicketRepo) GetTicketSeatIdsForSeats(ctx context.Context, screeningID int, seatIDs []int) ([]int, error) {
	return m.GetTicketSeatIdsForSeatsFunc(ctx, screeningID, seatIDs)
}

type MockPreferenceProvider struct {
	domain.PreferenceProvider
	GetUserPreferencesFunc func(ctx context.Context, userID int) (*domain.UserPreferences, error)
}

func (m *MockPreferenceProvider) GetUserPreferences(ctx context.Context, userID int) (*domain.UserPreferences, error) {
	return m.GetUserPreferencesFunc(ctx, userID)
}

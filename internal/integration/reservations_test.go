package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/cinetix/seathold/api"
	"github.com/cinetix/seathold/internal/lock"
)

type ReservationsTestSuite struct {
	BaseSuite
}

func TestReservationsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(ReservationsTestSuite))
}

func (s *ReservationsTestSuite) SetupTest() {
	s.resetState()
}

func (s *ReservationsTestSuite) postReservation(screeningID int, body api.CreateReservationRequest) (*http.Response, api.ReservationResponse) {
	jsonData, err := json.Marshal(body)
	s.Require().NoError(err)

	res, err := http.Post(
		fmt.Sprintf("%s/screenings/%d/reservations", s.server.URL, screeningID),
		"application/json",
		bytes.NewReader(jsonData),
	)
	s.Require().NoError(err)
	defer res.Body.Close()

	var resp api.ReservationResponse
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))

	return res, resp
}

func (s *ReservationsTestSuite) TestCreateReservation() {
	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2},
	})

	s.Equal(http.StatusCreated, res.StatusCode)
	s.True(resp.Success)
	s.Equal([]int{1, 2}, resp.HeldSeats)
	s.NotEmpty(resp.ReservationGroupId)
	s.Require().NotNil(resp.ExpiresAt)
	s.True(resp.ExpiresAt.After(time.Now().Add(9*time.Minute)))

	s.Equal([]int{1, 2}, s.activeHoldSeatIds(1))
}

func (s *ReservationsTestSuite) TestConcurrentIdenticalRequestsHaveOneWinner() {
	const contenders = 8

	var wg sync.WaitGroup
	statuses := make([]int, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			res, _ := s.postReservation(1, api.CreateReservationRequest{
				UserId:     i + 1,
				SeatIdList: []int{3, 4},
				RequireAll: true,
			})
			statuses[i] = res.StatusCode
		}(i)
	}

	wg.Wait()

	created := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			s.T().Errorf("unexpected status %d", status)
		}
	}

	s.Equal(1, created, "exactly one contender may win the combination")
	s.Equal([]int{3, 4}, s.activeHoldSeatIds(1))
}

func (s *ReservationsTestSuite) TestPartialReservationWithoutRequireAll() {
	s.insertHold(99, 1, 2, "temporary", uuid.NewString(), time.Now().Add(10*time.Minute))

	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2, 3},
		RequireAll: false,
	})

	s.Equal(http.StatusCreated, res.StatusCode)
	s.True(resp.Success)
	s.Equal([]int{1, 3}, resp.HeldSeats)
	s.Equal([]int{2}, resp.UnavailableSeats)
}

func (s *ReservationsTestSuite) TestRequireAllFailsAtomically() {
	s.insertHold(99, 1, 2, "temporary", uuid.NewString(), time.Now().Add(10*time.Minute))

	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2, 3},
		RequireAll: true,
	})

	s.Equal(http.StatusConflict, res.StatusCode)
	s.False(resp.Success)
	s.Equal([]int{2}, resp.UnavailableSeats)

	// The blocker's hold is the only row; nothing may be held partially.
	s.Equal([]int{2}, s.activeHoldSeatIds(1))
}

func (s *ReservationsTestSuite) TestTicketedSeatConflicts() {
	s.insertTicket(99, 1, 1)

	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1},
	})

	s.Equal(http.StatusConflict, res.StatusCode)
	s.Equal([]int{1}, resp.UnavailableSeats)
}

func (s *ReservationsTestSuite) TestExpiredHoldSeatIsAvailableBeforeReap() {
	// Expired but not yet swept; the seat must count as free and the stale
	// row must not trip the uniqueness constraint.
	s.insertHold(99, 1, 1, "temporary", uuid.NewString(), time.Now().Add(-time.Minute))

	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1},
	})

	s.Equal(http.StatusCreated, res.StatusCode)
	s.True(resp.Success)
	s.Equal([]int{1}, resp.HeldSeats)
}

func (s *ReservationsTestSuite) TestConflictSuggestsAlternatives() {
	s.insertHold(99, 1, 1, "temporary", uuid.NewString(), time.Now().Add(10*time.Minute))
	s.insertHold(99, 1, 2, "temporary", uuid.NewString(), time.Now().Add(10*time.Minute))

	res, resp := s.postReservation(1, api.CreateReservationRequest{
		UserId:              1,
		SeatIdList:          []int{1, 2},
		RequireAll:          true,
		SuggestAlternatives: true,
	})

	s.Equal(http.StatusConflict, res.StatusCode)
	s.Require().NotNil(resp.Alternatives)
	s.NotEmpty(resp.Alternatives.Seats)
	s.NotEmpty(resp.Alternatives.Groups, "two seats were requested, adjacent pairs exist")

	for _, seat := range resp.Alternatives.Seats {
		s.NotContains([]int{1, 2}, seat.Id, "held seats must never be suggested")
	}
}

func (s *ReservationsTestSuite) TestUpdateReservationKind() {
	_, created := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2},
	})
	s.Require().True(created.Success)

	jsonData, err := json.Marshal(api.UpdateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2},
		NewKind:    "processing_payment",
	})
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/screenings/1/reservations", s.server.URL),
		bytes.NewReader(jsonData))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer res.Body.Close()

	s.Equal(http.StatusOK, res.StatusCode)

	var resp api.UpdateReservationResponse
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
	s.True(resp.Success)
	s.True(resp.ExpiresAt.After(time.Now().Add(59*time.Minute)), "payment holds live about an hour")

	var kind string
	err = s.db.QueryRow(s.T().Context(),
		`SELECT kind FROM seat_holds WHERE screening_id = 1 AND seat_id = 1`).Scan(&kind)
	s.Require().NoError(err)
	s.Equal("processing_payment", kind)
}

func (s *ReservationsTestSuite) TestCancelReservationByGroupIsIdempotent() {
	_, created := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2},
	})
	s.Require().True(created.Success)

	cancel := func() api.CancelReservationResponse {
		req, err := http.NewRequest(http.MethodDelete,
			fmt.Sprintf("%s/reservations/%s", s.server.URL, created.ReservationGroupId), nil)
		s.Require().NoError(err)

		res, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		defer res.Body.Close()

		s.Equal(http.StatusOK, res.StatusCode)

		var resp api.CancelReservationResponse
		s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
		return resp
	}

	first := cancel()
	s.True(first.Success)
	s.Equal(int64(2), first.Count)

	second := cancel()
	s.True(second.Success)
	s.Zero(second.Count)

	s.Zero(s.countHolds(1))
}

func (s *ReservationsTestSuite) TestCancelReservationByUser() {
	_, created := s.postReservation(1, api.CreateReservationRequest{
		UserId:     7,
		SeatIdList: []int{1},
	})
	s.Require().True(created.Success)

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/screenings/1/reservations?user_id=7", s.server.URL), nil)
	s.Require().NoError(err)

	res, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer res.Body.Close()

	s.Equal(http.StatusOK, res.StatusCode)

	var resp api.CancelReservationResponse
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
	s.Equal(int64(1), resp.Count)
	s.Zero(s.countHolds(1))
}

func (s *ReservationsTestSuite) TestGetAvailableSeatsReflectsHoldsAndTickets() {
	s.insertHold(99, 1, 2, "temporary", uuid.NewString(), time.Now().Add(10*time.Minute))
	s.insertTicket(99, 1, 7)

	res, err := http.Get(fmt.Sprintf("%s/screenings/1/seats", s.server.URL))
	s.Require().NoError(err)
	defer res.Body.Close()

	s.Equal(http.StatusOK, res.StatusCode)

	var resp api.AvailableSeatsResponse
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
	s.Equal(8, resp.Count)

	for _, row := range resp.SeatRows {
		for _, seat := range row.Seats {
			s.NotEqual(2, seat.Id)
			s.NotEqual(7, seat.Id)
		}
	}
}

func (s *ReservationsTestSuite) TestValidationErrors() {
	jsonData := []byte(`{"user_id": 1, "seat_ids": []}`)

	res, err := http.Post(
		fmt.Sprintf("%s/screenings/1/reservations", s.server.URL),
		"application/json",
		bytes.NewReader(jsonData),
	)
	s.Require().NoError(err)
	defer res.Body.Close()

	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(readBody(res.Body), "seat_ids")
}

func (s *ReservationsTestSuite) TestLockReleasedAfterCreate() {
	ctx := context.Background()
	key := lock.CompositeKey(1, []int{1, 2})

	_, created := s.postReservation(1, api.CreateReservationRequest{
		UserId:     1,
		SeatIdList: []int{1, 2},
	})
	s.Require().True(created.Success)

	held, err := s.locker.IsHeld(ctx, key)
	s.Require().NoError(err)
	s.False(held, "lock still held after a successful create")

	// Same combination again, now doomed to conflict: the failure path
	// must release the lock just like the happy path does.
	res, conflicted := s.postReservation(1, api.CreateReservationRequest{
		UserId:     2,
		SeatIdList: []int{1, 2},
		RequireAll: true,
	})
	s.Equal(http.StatusConflict, res.StatusCode)
	s.False(conflicted.Success)

	held, err = s.locker.IsHeld(ctx, key)
	s.Require().NoError(err)
	s.False(held, "lock still held after a conflicting create")
}

// Package suggest proposes alternative seats when a reservation attempt
// collides with existing holds or tickets. It is purely advisory: it never
// creates, touches or locks a hold.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cinetix/seathold/internal/domain"
)

// Ranking weights. Same-row placement dominates, then class and row taste
// from the user's purchase history, then raw proximity.
const (
	weightSameRow        = 40.0
	weightPreferredClass = 25.0
	weightPreferredRow   = 15.0
	weightProximityMax   = 10.0

	proximityRowPenalty = 3.0
)

type Engine struct {
	screeningRepo domain.ScreeningRepository
	seatRepo      domain.SeatRepository
	holdRepo      domain.HoldRepository
	ticketRepo    domain.TicketRepository
	prefs         domain.PreferenceProvider
	logger        *slog.Logger
}

func NewEngine(
	screeningRepo domain.ScreeningRepository,
	seatRepo domain.SeatRepository,
	holdRepo domain.HoldRepository,
	ticketRepo domain.TicketRepository,
	prefs domain.PreferenceProvider,
	logger *slog.Logger) *Engine {

	return &Engine{
		screeningRepo: screeningRepo,
		seatRepo:      seatRepo,
		holdRepo:      holdRepo,
		ticketRepo:    ticketRepo,
		prefs:         prefs,
		logger:        logger,
	}
}

func (e *Engine) SuggestAlternatives(
	ctx context.Context,
	req domain.SuggestionRequest) (*domain.Suggestions, error) {

	screening, err := e.screeningRepo.GetScreening(ctx, req.ScreeningID)
	if err != nil {
		return nil, err
	}

	roster, err := e.seatRepo.GetSeatsByRoom(ctx, screening.RoomID)
	if err != nil {
		return nil, err
	}

	// The occupied set is recomputed on every call; offering a seat based on
	// stale data would hand the caller a guaranteed conflict.
	occupied, err := e.occupiedSeatIds(ctx, req.ScreeningID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int]bool, len(occupied)+len(req.RequestedSeatIDs))
	for _, id := range occupied {
		excluded[id] = true
	}
	for _, id := range req.RequestedSeatIDs {
		excluded[id] = true
	}

	candidates := make([]domain.Seat, 0, len(roster))
	requested := make([]domain.Seat, 0, len(req.RequestedSeatIDs))

	for _, seat := range roster {
		if excluded[seat.ID] {
			if containsInt(req.RequestedSeatIDs, seat.ID) {
				requested = append(requested, seat)
			}
			continue
		}
		candidates = append(candidates, seat)
	}

	prefs := e.userPreferences(ctx, req.UserID)

	ranked := Rank(candidates, requested, prefs)

	suggestions := &domain.Suggestions{
		Seats:  ranked,
		Groups: [][]domain.Seat{},
	}

	if req.PreferAdjacent && req.Count >= 2 {
		groups := AdjacentGroups(candidates, req.Count)
		suggestions.Groups = RankGroups(groups, requested, prefs)
	}

	return suggestions, nil
}

func (e *Engine) occupiedSeatIds(ctx context.Context, screeningID int) ([]int, error) {
	held, err := e.holdRepo.GetActiveHoldSeatIds(ctx, screeningID, nil)
	if err != nil {
		return nil, fmt.Errorf("suggest: active holds: %w", err)
	}

	ticketed, err := e.ticketRepo.GetTicketSeatIds(ctx, screeningID)
	if err != nil {
		return nil, fmt.Errorf("suggest: ticket seats: %w", err)
	}

	return append(held, ticketed...), nil
}

// userPreferences degrades to no personalization when history is missing or
// the lookup fails; suggestions are advisory, so a loud failure here would
// cost more than it protects.
func (e *Engine) userPreferences(ctx context.Context, userID int) *domain.UserPreferences {
	if userID == 0 || e.prefs == nil {
		return nil
	}

	prefs, err := e.prefs.GetUserPreferences(ctx, userID)
	if err != nil {
		e.logger.Warn("preference lookup failed, ranking without personalization", "user_id", userID, "error", err)
		return nil
	}

	return prefs
}

// AdjacentGroups returns every same-row run of exactly count strictly
// consecutive seat numbers among the candidates.
func AdjacentGroups(candidates []domain.Seat, count int) [][]domain.Seat {
	byRow := make(map[string][]domain.Seat)
	for _, seat := range candidates {
		byRow[seat.RowLabel] = append(byRow[seat.RowLabel], seat)
	}

	rowLabels := make([]string, 0, len(byRow))
	for label := range byRow {
		rowLabels = append(rowLabels, label)
	}
	sort.Strings(rowLabels)

	groups := make([][]domain.Seat, 0)

	for _, label := range rowLabels {
		row := byRow[label]
		sort.Slice(row, func(i, j int) bool {
			return row[i].SeatNumber < row[j].SeatNumber
		})

		for start := 0; start+count <= len(row); start++ {
			if isConsecutive(row[start : start+count]) {
				group := make([]domain.Seat, count)
				copy(group, row[start:start+count])
				groups = append(groups, group)
			}
		}
	}

	return groups
}

func isConsecutive(seats []domain.Seat) bool {
	for i := 1; i < len(seats); i++ {
		if seats[i].SeatNumber != seats[i-1].SeatNumber+1 {
			return false
		}
	}
	return true
}

// Rank orders candidates best-first by weighted score, breaking ties by
// proximity to the original request and finally by seat id so the result is
// deterministic.
func Rank(candidates, requested []domain.Seat, prefs *domain.UserPreferences) []domain.Seat {
	scored := make([]domain.Seat, len(candidates))
	copy(scored, candidates)

	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := score(scored[i], requested, prefs), score(scored[j], requested, prefs)
		if si != sj {
			return si > sj
		}

		di, dj := distance(scored[i], requested), distance(scored[j], requested)
		if di != dj {
			return di < dj
		}

		return scored[i].ID < scored[j].ID
	})

	return scored
}

// RankGroups orders adjacent groups by the sum of their member scores, best
// first, with the same proximity tie-break as single seats.
func RankGroups(groups [][]domain.Seat, requested []domain.Seat, prefs *domain.UserPreferences) [][]domain.Seat {
	sort.SliceStable(groups, func(i, j int) bool {
		si, sj := groupScore(groups[i], requested, prefs), groupScore(groups[j], requested, prefs)
		if si != sj {
			return si > sj
		}

		return groupDistance(groups[i], requested) < groupDistance(groups[j], requested)
	})

	return groups
}

func score(seat domain.Seat, requested []domain.Seat, prefs *domain.UserPreferences) float64 {
	var s float64

	for _, want := range requested {
		if want.RowLabel == seat.RowLabel {
			s += weightSameRow
			break
		}
	}

	if prefs != nil {
		if prefs.PreferredClasses[seat.SeatClass] > 0 {
			s += weightPreferredClass
		}
		if prefs.PreferredRows[seat.RowLabel] > 0 {
			s += weightPreferredRow
		}
	}

	if d := distance(seat, requested); d >= 0 {
		s += weightProximityMax / (1 + d)
	}

	return s
}

func groupScore(group []domain.Seat, requested []domain.Seat, prefs *domain.UserPreferences) float64 {
	var s float64
	for _, seat := range group {
		s += score(seat, requested, prefs)
	}
	return s
}

// distance measures closeness to the nearest originally-requested seat:
// seat-number distance plus a per-row penalty. Returns -1 when there is no
// reference seat to measure against.
func distance(seat domain.Seat, requested []domain.Seat) float64 {
	if len(requested) == 0 {
		return -1
	}

	best := -1.0

	for _, want := range requested {
		d := absFloat(float64(seat.SeatNumber - want.SeatNumber))
		d += proximityRowPenalty * absFloat(rowIndex(seat.RowLabel)-rowIndex(want.RowLabel))

		if best < 0 || d < best {
			best = d
		}
	}

	return best
}

func groupDistance(group []domain.Seat, requested []domain.Seat) float64 {
	if len(group) == 0 {
		return -1
	}

	var total float64
	for _, seat := range group {
		total += distance(seat, requested)
	}
	return total / float64(len(group))
}

// rowIndex maps row labels to a numeric axis: single letters count from
// 'A', anything longer falls back to the first letter.
func rowIndex(label string) float64 {
	if label == "" {
		return 0
	}
	return float64(label[0])
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

package domain

import "context"

type SuggestionRequest struct {
	ScreeningID      int
	RequestedSeatIDs []int
	Count            int
	PreferAdjacent   bool
	UserID           int
}

// Suggestions is advisory output only: computing it never creates, touches
// or locks a hold.
type Suggestions struct {
	// Seats is the full ranked list of free single-seat alternatives.
	Seats []Seat
	// Groups holds same-row runs of exactly the requested size, best first.
	Groups [][]Seat
}

// UserPreferences summarizes a user's purchase history for ranking. Zero
// values simply contribute nothing to the score.
type UserPreferences struct {
	PreferredClasses map[string]int
	PreferredRows    map[string]int
}

type PreferenceProvider interface {
	GetUserPreferences(ctx context.Context, userID int) (*UserPreferences, error)
}

type SuggestionService interface {
	SuggestAlternatives(ctx context.Context, req SuggestionRequest) (*Suggestions, error)
}

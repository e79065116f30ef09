package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetix/seathold/internal/domain"
)

// PostgresPreferenceRepository derives a user's seating taste from seats
// they actually bought. The counts feed the suggestion ranking; an empty
// history is a valid result, not an error.
type PostgresPreferenceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPreferenceRepository(db *pgxpool.Pool) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{
		db: db,
	}
}

func (p *PostgresPreferenceRepository) GetUserPreferences(
	ctx context.Context,
	userID int) (*domain.UserPreferences, error) {

	query := `
		SELECT s.seat_class, s.row_label, COUNT(*)
		FROM ticket_seats ts
		JOIN seats s ON ts.seat_id = s.id
		WHERE ts.user_id = $1
		GROUP BY s.seat_class, s.row_label
	`

	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := &domain.UserPreferences{
		PreferredClasses: make(map[string]int),
		PreferredRows:    make(map[string]int),
	}

	for rows.Next() {
		var (
			seatClass string
			rowLabel  string
			count     int
		)

		err = rows.Scan(&seatClass, &rowLabel, &count)
		if err != nil {
			return nil, err
		}

		prefs.PreferredClasses[seatClass] += count
		prefs.PreferredRows[rowLabel] += count
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return prefs, nil
}

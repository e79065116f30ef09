package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetix/seathold/internal/domain"
)

// PostgresTicketRepository reads the ticket_seats table owned by the
// ticketing collaborator. The engine only ever reads it; writes happen in
// ticketing's own conversion transaction.
type PostgresTicketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTicketRepository(db *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		db: db,
	}
}

func (p *PostgresTicketRepository) GetTicketSeatIds(ctx context.Context, screeningID int) ([]int, error) {
	query := `
		SELECT seat_id
		FROM ticket_seats
		WHERE screening_id = $1
	`

	return p.querySeatIds(ctx, query, screeningID)
}

func (p *PostgresTicketRepository) GetTicketSeatIdsForSeats(
	ctx context.Context,
	screeningID int,
	seatIDs []int) ([]int, error) {

	query := `
		SELECT seat_id
		FROM ticket_seats
		WHERE screening_id = $1 AND seat_id = ANY($2)
	`

	return p.querySeatIds(ctx, query, screeningID, seatIDs)
}

func (p *PostgresTicketRepository) querySeatIds(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIds := make([]int, 0)

	for rows.Next() {
		var seatID int

		err = rows.Scan(&seatID)
		if err != nil {
			return nil, err
		}

		seatIds = append(seatIds, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIds, nil
}

var _ domain.TicketRepository = (*PostgresTicketRepository)(nil)

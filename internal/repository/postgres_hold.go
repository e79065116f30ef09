package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetix/seathold/internal/domain"
)

type PostgresHoldRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHoldRepository(db *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{
		db: db,
	}
}

func (p *PostgresHoldRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return p.db.BeginTx(ctx, pgx.TxOptions{})
}

func (p *PostgresHoldRepository) CreateHolds(
	ctx context.Context,
	tx pgx.Tx,
	userID, screeningID int,
	seatIDs []int,
	kind domain.HoldKind,
	groupID uuid.UUID,
	expiresAt time.Time) error {

	rows := make([][]any, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		rows = append(rows, []any{
			userID,
			screeningID,
			seatID,
			string(kind),
			groupID,
			expiresAt,
		})
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"seat_holds"},
		[]string{"user_id", "screening_id", "seat_id", "kind", "group_id", "expires_at"},
		pgx.CopyFromRows(rows),
	)

	return err
}

func (p *PostgresHoldRepository) GetActiveHoldSeatIds(
	ctx context.Context,
	screeningID int,
	seatIDs []int) ([]int, error) {

	return activeHoldSeatIds(ctx, p.db, screeningID, seatIDs)
}

func (p *PostgresHoldRepository) GetActiveHoldSeatIdsTx(
	ctx context.Context,
	tx pgx.Tx,
	screeningID int,
	seatIDs []int) ([]int, error) {

	return activeHoldSeatIds(ctx, tx, screeningID, seatIDs)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// activeHoldSeatIds treats holds with a past expiry as free even before the
// reaper physically deletes them.
func activeHoldSeatIds(ctx context.Context, q querier, screeningID int, seatIDs []int) ([]int, error) {
	query := `
		SELECT seat_id
		FROM seat_holds
		WHERE screening_id = $1 AND expires_at > now()
	`
	args := []any{screeningID}

	if seatIDs != nil {
		query += ` AND seat_id = ANY($2)`
		args = append(args, seatIDs)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	heldSeatIds := make([]int, 0)

	for rows.Next() {
		var seatID int

		err = rows.Scan(&seatID)
		if err != nil {
			return nil, err
		}

		heldSeatIds = append(heldSeatIds, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return heldSeatIds, nil
}

func (p *PostgresHoldRepository) DeleteExpiredForSeats(
	ctx context.Context,
	tx pgx.Tx,
	screeningID int,
	seatIDs []int) error {

	query := `
		DELETE FROM seat_holds
		WHERE screening_id = $1 AND seat_id = ANY($2) AND expires_at <= now()
	`

	_, err := tx.Exec(ctx, query, screeningID, seatIDs)

	return err
}

func (p *PostgresHoldRepository) GetHold(
	ctx context.Context,
	userID, screeningID, seatID int) (*domain.SeatHold, error) {

	query := `
		SELECT id, user_id, screening_id, seat_id, kind, group_id, expires_at, created_at
		FROM seat_holds
		WHERE user_id = $1 AND screening_id = $2 AND seat_id = $3
	`

	var hold domain.SeatHold

	err := p.db.QueryRow(ctx, query, userID, screeningID, seatID).Scan(
		&hold.ID,
		&hold.UserID,
		&hold.ScreeningID,
		&hold.SeatID,
		&hold.Kind,
		&hold.GroupID,
		&hold.ExpiresAt,
		&hold.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	return &hold, nil
}

func (p *PostgresHoldRepository) UpdateKind(
	ctx context.Context,
	tx pgx.Tx,
	holdID int,
	kind domain.HoldKind,
	expiresAt time.Time) error {

	query := `
		UPDATE seat_holds
		SET kind = $1, expires_at = $2
		WHERE id = $3 AND expires_at > now()
	`

	tag, err := tx.Exec(ctx, query, string(kind), expiresAt, holdID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}

	return nil
}

func (p *PostgresHoldRepository) DeleteByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.ReleasedHold, error) {
	query := `
		DELETE FROM seat_holds
		WHERE group_id = $1
		RETURNING screening_id, seat_id
	`

	rows, err := p.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReleasedHolds(rows)
}

func (p *PostgresHoldRepository) DeleteByUserAndScreening(
	ctx context.Context,
	userID, screeningID int) ([]domain.ReleasedHold, error) {

	query := `
		DELETE FROM seat_holds
		WHERE user_id = $1 AND screening_id = $2
		RETURNING screening_id, seat_id
	`

	rows, err := p.db.Query(ctx, query, userID, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReleasedHolds(rows)
}

func (p *PostgresHoldRepository) DeleteForConversion(
	ctx context.Context,
	tx pgx.Tx,
	userID, screeningID int,
	seatIDs []int) (int64, error) {

	query := `
		DELETE FROM seat_holds
		WHERE user_id = $1 AND screening_id = $2 AND seat_id = ANY($3)
	`

	tag, err := tx.Exec(ctx, query, userID, screeningID, seatIDs)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresHoldRepository) DeleteExpired(ctx context.Context, now time.Time) ([]domain.ReleasedHold, error) {
	query := `
		DELETE FROM seat_holds
		WHERE expires_at <= $1
		RETURNING screening_id, seat_id
	`

	rows, err := p.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReleasedHolds(rows)
}

func scanReleasedHolds(rows pgx.Rows) ([]domain.ReleasedHold, error) {
	released := make([]domain.ReleasedHold, 0)

	for rows.Next() {
		var r domain.ReleasedHold

		err := rows.Scan(&r.ScreeningID, &r.SeatID)
		if err != nil {
			return nil, err
		}

		released = append(released, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return released, nil
}

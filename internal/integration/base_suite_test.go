package integration_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"

	"github.com/cinetix/seathold/internal/app"
	"github.com/cinetix/seathold/internal/lock"
)

const (
	dbName         = "seathold"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *app.Application
	db             *pgxpool.Pool
	cache          *redis.Client
	locker         *lock.RedisLocker
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		// Short waits keep contention tests fast; a loser should give up
		// quickly instead of spinning for the production five seconds.
		LockTTL:  10 * time.Second,
		LockWait: 500 * time.Millisecond,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	testApp, err := app.New(cfg, logger)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	// A second pool for seeding and assertions, independent of the app's.
	db, err := pgxpool.New(ctx, postgresContainer.ConnectionString)
	if err != nil {
		log.Printf("cannot open seed pool: %s", err)
		return
	}

	// A second Redis client so tests can observe lock state through the
	// same locker implementation the app uses.
	s.cache = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})
	s.locker = lock.NewRedisLocker(s.cache)

	s.app = testApp
	s.db = db
	s.server = httptest.NewServer(testApp.Routes())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.app != nil {
		s.app.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// resetState wipes mutable tables and reseeds the fixture room, seats and
// screening so every test starts from the same floor plan.
func (s *BaseSuite) resetState() {
	ctx := context.Background()

	_, err := s.db.Exec(ctx, `TRUNCATE seat_holds, ticket_seats RESTART IDENTITY`)
	s.Require().NoError(err)

	_, err = s.db.Exec(ctx, `TRUNCATE screenings, seats, rooms RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	_, err = s.db.Exec(ctx, `INSERT INTO rooms (name) VALUES ('Room 1')`)
	s.Require().NoError(err)

	// Two rows of five: A1-A5 standard, B1-B5 with B4/B5 vip.
	_, err = s.db.Exec(ctx, `
		INSERT INTO seats (room_id, row_label, seat_number, seat_class, price) VALUES
		(1, 'A', 1, 'standard', 12.00),
		(1, 'A', 2, 'standard', 12.00),
		(1, 'A', 3, 'standard', 12.00),
		(1, 'A', 4, 'standard', 12.00),
		(1, 'A', 5, 'standard', 12.00),
		(1, 'B', 1, 'standard', 12.00),
		(1, 'B', 2, 'standard', 12.00),
		(1, 'B', 3, 'standard', 12.00),
		(1, 'B', 4, 'vip', 20.00),
		(1, 'B', 5, 'vip', 20.00)`)
	s.Require().NoError(err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO screenings (room_id, start_time, end_time)
		VALUES (1, now() + interval '2 hours', now() + interval '4 hours')`)
	s.Require().NoError(err)
}

func (s *BaseSuite) insertHold(userID, screeningID, seatID int, kind string, groupID string, expiresAt time.Time) {
	_, err := s.db.Exec(context.Background(), `
		INSERT INTO seat_holds (user_id, screening_id, seat_id, kind, group_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, screeningID, seatID, kind, groupID, expiresAt)
	s.Require().NoError(err)
}

func (s *BaseSuite) insertTicket(userID, screeningID, seatID int) {
	_, err := s.db.Exec(context.Background(), `
		INSERT INTO ticket_seats (user_id, screening_id, seat_id)
		VALUES ($1, $2, $3)`,
		userID, screeningID, seatID)
	s.Require().NoError(err)
}

func (s *BaseSuite) countHolds(screeningID int) int {
	var count int
	err := s.db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM seat_holds WHERE screening_id = $1`, screeningID).Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *BaseSuite) activeHoldSeatIds(screeningID int) []int {
	rows, err := s.db.Query(context.Background(),
		`SELECT seat_id FROM seat_holds WHERE screening_id = $1 AND expires_at > now() ORDER BY seat_id`,
		screeningID)
	s.Require().NoError(err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		s.Require().NoError(rows.Scan(&id))
		ids = append(ids, id)
	}

	return ids
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}

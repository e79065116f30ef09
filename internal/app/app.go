// Package app wires the seat-hold engine together and exposes it over HTTP.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/cinetix/seathold/internal/broadcast"
	"github.com/cinetix/seathold/internal/domain"
	"github.com/cinetix/seathold/internal/jobqueue"
	"github.com/cinetix/seathold/internal/lock"
	"github.com/cinetix/seathold/internal/reaper"
	"github.com/cinetix/seathold/internal/repository"
	"github.com/cinetix/seathold/internal/reservation"
	"github.com/cinetix/seathold/internal/suggest"
	appvalidator "github.com/cinetix/seathold/internal/validator"
	"github.com/cinetix/seathold/internal/vcs"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	queue     *jobqueue.Queue

	reservations domain.ReservationService
	suggester    domain.SuggestionService
	broadcaster  *broadcast.RedisBroadcaster
	hubs         *broadcast.Registry
	sweeper      *reaper.Reaper
	worker       *jobqueue.Worker
}

type Config struct {
	Port  int
	Env   string
	DB    DBConfig
	Redis RedisConfig

	AmqpURL           string
	WorkerConcurrency int
	ReaperInterval    time.Duration
	LockTTL           time.Duration
	LockWait          time.Duration
	WorkerLockWait    time.Duration
	OtelCollectorUrl  string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.AmqpURL, "amqp-url", "", "RabbitMQ URL (empty disables the job queue)")
	flag.IntVar(&cfg.WorkerConcurrency, "worker-concurrency", 4, "Reservation worker concurrency")
	flag.DurationVar(&cfg.ReaperInterval, "reaper-interval", reaper.DefaultInterval, "Expired hold sweep interval")
	flag.DurationVar(&cfg.LockTTL, "lock-ttl", lock.DefaultTTL, "Seat lock lease TTL")
	flag.DurationVar(&cfg.LockWait, "lock-wait", lock.DefaultAcquireWait, "Seat lock acquisition wait (API path)")
	flag.DurationVar(&cfg.WorkerLockWait, "worker-lock-wait", 30*time.Second, "Seat lock acquisition wait (queue worker)")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.run()
}

// New builds a fully wired application from config. Callers other than Run
// (the integration tests) inject their own logger.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &Application{
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		validator: appvalidator.NewValidator(),
	}

	screeningRepo := repository.NewPostgresScreeningRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	holdRepo := repository.NewPostgresHoldRepository(db)
	ticketRepo := repository.NewPostgresTicketRepository(db)
	prefRepo := repository.NewPostgresPreferenceRepository(db)

	app.broadcaster = broadcast.NewRedisBroadcaster(redisClient, logger)
	app.hubs = broadcast.NewRegistry()

	app.suggester = suggest.NewEngine(screeningRepo, seatRepo, holdRepo, ticketRepo, prefRepo, logger)

	locker := lock.NewRedisLocker(redisClient)

	app.reservations = reservation.NewService(
		locker,
		screeningRepo,
		seatRepo,
		holdRepo,
		ticketRepo,
		app.suggester,
		app.broadcaster,
		logger,
		reservation.WithLockTimings(cfg.LockTTL, cfg.LockWait),
	)

	app.sweeper = reaper.New(holdRepo, app.broadcaster, logger, cfg.ReaperInterval)

	if cfg.AmqpURL != "" {
		queue, err := jobqueue.Connect(cfg.AmqpURL)
		if err != nil {
			app.Close()
			return nil, err
		}

		app.queue = queue

		// The worker gets its own engine with a longer lock wait; a queued
		// job has nobody waiting on the socket, so it can afford to sit out
		// contention instead of failing fast.
		workerReservations := reservation.NewService(
			locker,
			screeningRepo,
			seatRepo,
			holdRepo,
			ticketRepo,
			app.suggester,
			app.broadcaster,
			logger,
			reservation.WithLockTimings(cfg.LockTTL, cfg.WorkerLockWait),
		)

		app.worker = jobqueue.NewWorker(queue, workerReservations, logger, cfg.WorkerConcurrency)
	}

	return app, nil
}

func (app *Application) Close() {
	if app.queue != nil {
		app.queue.Close()
	}
	if app.redis != nil {
		app.redis.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go app.sweeper.Start(background)

	if app.worker != nil {
		go func() {
			err := app.worker.Run(background)
			if err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error("reservation worker stopped", "error", err)
			}
		}()
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopBackground()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

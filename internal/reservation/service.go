// Package reservation orchestrates the seat-hold state machine: distributed
// locking, the transactional conflict check, bulk hold creation, kind
// upgrades and cancellation.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cinetix/seathold/internal/domain"
	"github.com/cinetix/seathold/internal/lock"
)

type Service struct {
	locker        lock.Locker
	screeningRepo domain.ScreeningRepository
	seatRepo      domain.SeatRepository
	holdRepo      domain.HoldRepository
	ticketRepo    domain.TicketRepository
	suggester     domain.SuggestionService
	publisher     domain.EventPublisher
	logger        *slog.Logger

	lockTTL  time.Duration
	lockWait time.Duration

	outcomes     metric.Int64Counter
	lockTimeouts metric.Int64Counter
}

type Option func(*Service)

// WithLockTimings overrides the lock lease TTL and the acquisition wait.
// The queue worker uses a longer wait than the synchronous API path.
func WithLockTimings(ttl, wait time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
		s.lockWait = wait
	}
}

func NewService(
	locker lock.Locker,
	screeningRepo domain.ScreeningRepository,
	seatRepo domain.SeatRepository,
	holdRepo domain.HoldRepository,
	ticketRepo domain.TicketRepository,
	suggester domain.SuggestionService,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	opts ...Option) *Service {

	meter := otel.Meter("seathold/reservation")

	outcomes, _ := meter.Int64Counter("reservation.outcomes",
		metric.WithDescription("Reservation attempts by outcome"))
	lockTimeouts, _ := meter.Int64Counter("reservation.lock_timeouts",
		metric.WithDescription("Lock acquisitions that timed out"))

	s := &Service{
		locker:        locker,
		screeningRepo: screeningRepo,
		seatRepo:      seatRepo,
		holdRepo:      holdRepo,
		ticketRepo:    ticketRepo,
		suggester:     suggester,
		publisher:     publisher,
		logger:        logger,
		lockTTL:       lock.DefaultTTL,
		lockWait:      lock.DefaultAcquireWait,
		outcomes:      outcomes,
		lockTimeouts:  lockTimeouts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) CreateReservation(
	ctx context.Context,
	cmd domain.CreateReservationCommand) (*domain.ReservationOutcome, error) {

	kind := cmd.Kind
	if kind == "" {
		kind = domain.HoldKindTemporary
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown hold kind %q", domain.ErrInvalidKindTransition, cmd.Kind)
	}

	screening, err := s.screeningRepo.GetScreening(ctx, cmd.ScreeningID)
	if err != nil {
		return nil, err
	}

	err = s.validateSeatsBelongToRoom(ctx, screening.RoomID, cmd.SeatIDs)
	if err != nil {
		return nil, err
	}

	key := lock.CompositeKey(cmd.ScreeningID, cmd.SeatIDs)

	release, err := s.locker.Acquire(ctx, key, s.lockTTL, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Contention on the combination is a conflict, not a fault: the
			// caller gets the seat list back plus alternatives, same as if
			// the check itself had found the seats taken.
			s.lockTimeouts.Add(ctx, 1)
			outcome := s.conflictOutcome(ctx, cmd, cmd.SeatIDs)
			outcome.LockTimedOut = true
			return outcome, nil
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	// A stuck lock blocks every future attempt on this combination until its
	// TTL runs out, so release must survive every exit path.
	defer release()

	outcome, err := s.reserveUnderLock(ctx, cmd, kind)
	if err != nil {
		return nil, err
	}

	s.recordOutcome(ctx, outcome.Status)

	if outcome.Status == domain.OutcomeConflict && cmd.SuggestAlternatives {
		outcome.Alternatives = s.alternatives(ctx, cmd)
	}

	if len(outcome.HeldSeatIDs) > 0 {
		s.publish(ctx, domain.SeatEventReserved, cmd.ScreeningID, outcome.HeldSeatIDs)
	}

	return outcome, nil
}

// reserveUnderLock performs the transactional conflict re-check and writes
// the hold rows. The re-check is required even though the lock is held: the
// lock serializes identical combinations only, not the already-committed
// state of overlapping-but-different requests.
func (s *Service) reserveUnderLock(
	ctx context.Context,
	cmd domain.CreateReservationCommand,
	kind domain.HoldKind) (*domain.ReservationOutcome, error) {

	tx, err := s.holdRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	defer tx.Rollback(ctx)

	held, err := s.holdRepo.GetActiveHoldSeatIdsTx(ctx, tx, cmd.ScreeningID, cmd.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	ticketed, err := s.ticketRepo.GetTicketSeatIdsForSeats(ctx, cmd.ScreeningID, cmd.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	unavailable := make(map[int]bool, len(held)+len(ticketed))
	for _, id := range held {
		unavailable[id] = true
	}
	for _, id := range ticketed {
		unavailable[id] = true
	}

	free := make([]int, 0, len(cmd.SeatIDs))
	taken := make([]int, 0)

	for _, id := range cmd.SeatIDs {
		if unavailable[id] {
			taken = append(taken, id)
		} else {
			free = append(free, id)
		}
	}

	if len(free) == 0 || (cmd.RequireAll && len(taken) > 0) {
		return &domain.ReservationOutcome{
			Status:      domain.OutcomeConflict,
			Unavailable: taken,
		}, nil
	}

	// Expired rows the reaper hasn't swept yet would trip the uniqueness
	// constraint even though their seats count as free; clear them first.
	err = s.holdRepo.DeleteExpiredForSeats(ctx, tx, cmd.ScreeningID, free)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	groupID := uuid.New()
	expiresAt := time.Now().Add(kind.TTL())

	err = s.holdRepo.CreateHolds(ctx, tx, cmd.UserID, cmd.ScreeningID, free, kind, groupID, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			// An overlapping request with a different composite key committed
			// between our re-check and the insert; the constraint is the
			// final arbiter.
			return &domain.ReservationOutcome{
				Status:      domain.OutcomeConflict,
				Unavailable: cmd.SeatIDs,
			}, nil
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ReservationOutcome{
				Status:      domain.OutcomeConflict,
				Unavailable: cmd.SeatIDs,
			}, nil
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	status := domain.OutcomeOk
	if len(taken) > 0 {
		status = domain.OutcomePartialOk
	}

	outcome := &domain.ReservationOutcome{
		Status:      status,
		GroupID:     groupID,
		ExpiresAt:   expiresAt,
		HeldSeatIDs: free,
		Unavailable: taken,
	}

	if status == domain.OutcomePartialOk && cmd.SuggestAlternatives {
		outcome.Alternatives = s.alternatives(ctx, cmd)
	}

	return outcome, nil
}

func (s *Service) validateSeatsBelongToRoom(ctx context.Context, roomID int, seatIDs []int) error {
	seats, err := s.seatRepo.GetSeatsByIds(ctx, seatIDs)
	if err != nil {
		return err
	}

	found := make(map[int]bool, len(seats))
	for _, seat := range seats {
		if seat.RoomID != roomID {
			return fmt.Errorf("%w: seat %d is not in room %d", domain.ErrRecordNotFound, seat.ID, roomID)
		}
		found[seat.ID] = true
	}

	for _, id := range seatIDs {
		if !found[id] {
			return fmt.Errorf("%w: seat %d", domain.ErrRecordNotFound, id)
		}
	}

	return nil
}

func (s *Service) conflictOutcome(
	ctx context.Context,
	cmd domain.CreateReservationCommand,
	unavailable []int) *domain.ReservationOutcome {

	s.recordOutcome(ctx, domain.OutcomeConflict)

	outcome := &domain.ReservationOutcome{
		Status:      domain.OutcomeConflict,
		Unavailable: unavailable,
	}

	if cmd.SuggestAlternatives {
		outcome.Alternatives = s.alternatives(ctx, cmd)
	}

	return outcome
}

// alternatives is best-effort decoration of a conflict result; its failure
// never turns a conflict into an error.
func (s *Service) alternatives(ctx context.Context, cmd domain.CreateReservationCommand) *domain.Suggestions {
	suggestions, err := s.suggester.SuggestAlternatives(ctx, domain.SuggestionRequest{
		ScreeningID:      cmd.ScreeningID,
		RequestedSeatIDs: cmd.SeatIDs,
		Count:            len(cmd.SeatIDs),
		PreferAdjacent:   len(cmd.SeatIDs) >= 2,
		UserID:           cmd.UserID,
	})
	if err != nil {
		s.logger.Warn("failed to compute alternatives", "screening_id", cmd.ScreeningID, "error", err)
		return nil
	}

	return suggestions
}

func (s *Service) UpdateReservationKind(
	ctx context.Context,
	cmd domain.UpdateReservationCommand) (time.Time, error) {

	if cmd.NewKind != domain.HoldKindProcessingPayment {
		return time.Time{}, domain.ErrInvalidKindTransition
	}

	now := time.Now()
	expiresAt := now.Add(cmd.NewKind.TTL())

	// Ownership is proven by the user id match on each hold, and a kind
	// upgrade narrows rather than widens conflicting state, so no external
	// lock is needed here.
	holds := make([]*domain.SeatHold, 0, len(cmd.SeatIDs))

	for _, seatID := range cmd.SeatIDs {
		hold, err := s.holdRepo.GetHold(ctx, cmd.UserID, cmd.ScreeningID, seatID)
		if err != nil {
			return time.Time{}, err
		}

		if hold.Expired(now) {
			return time.Time{}, domain.ErrHoldNotFound
		}

		holds = append(holds, hold)
	}

	tx, err := s.holdRepo.BeginTx(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	defer tx.Rollback(ctx)

	for _, hold := range holds {
		err = s.holdRepo.UpdateKind(ctx, tx, hold.ID, cmd.NewKind, expiresAt)
		if err != nil {
			return time.Time{}, err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	return expiresAt, nil
}

// CancelReservation deletes matching holds and reports how many were
// removed. Cancelling nothing is success with a zero count, which lets
// callers retry freely.
func (s *Service) CancelReservation(
	ctx context.Context,
	cmd domain.CancelReservationCommand) (int64, error) {

	var (
		released []domain.ReleasedHold
		err      error
	)

	if cmd.GroupID != uuid.Nil {
		released, err = s.holdRepo.DeleteByGroup(ctx, cmd.GroupID)
	} else {
		released, err = s.holdRepo.DeleteByUserAndScreening(ctx, cmd.UserID, cmd.ScreeningID)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	s.publishReleases(ctx, released)

	return int64(len(released)), nil
}

// DeleteHoldsForConversion removes a user's holds for the given seats inside
// the caller's transaction, so ticketing can delete the holds and insert the
// ticket rows in one commit. It contends on the same composite lock as
// CreateReservation to keep the combination stable for the duration.
// No released event is published; the seats stay occupied as tickets.
func (s *Service) DeleteHoldsForConversion(
	ctx context.Context,
	tx pgx.Tx,
	userID, screeningID int,
	seatIDs []int) (int64, error) {

	key := lock.CompositeKey(screeningID, seatIDs)

	release, err := s.locker.Acquire(ctx, key, s.lockTTL, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return 0, domain.ErrLockNotAcquired
		}

		return 0, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	defer release()

	return s.holdRepo.DeleteForConversion(ctx, tx, userID, screeningID, seatIDs)
}

func (s *Service) GetAvailableSeats(ctx context.Context, screeningID int) ([]domain.Seat, error) {
	screening, err := s.screeningRepo.GetScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	roster, err := s.seatRepo.GetSeatsByRoom(ctx, screening.RoomID)
	if err != nil {
		return nil, err
	}

	held, err := s.holdRepo.GetActiveHoldSeatIds(ctx, screeningID, nil)
	if err != nil {
		return nil, err
	}

	ticketed, err := s.ticketRepo.GetTicketSeatIds(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	occupied := make(map[int]bool, len(held)+len(ticketed))
	for _, id := range held {
		occupied[id] = true
	}
	for _, id := range ticketed {
		occupied[id] = true
	}

	available := make([]domain.Seat, 0, len(roster))
	for _, seat := range roster {
		if !occupied[seat.ID] {
			available = append(available, seat)
		}
	}

	return available, nil
}

func (s *Service) IsSeatAvailable(ctx context.Context, screeningID, seatID int) (bool, error) {
	held, err := s.holdRepo.GetActiveHoldSeatIds(ctx, screeningID, []int{seatID})
	if err != nil {
		return false, err
	}

	if len(held) > 0 {
		return false, nil
	}

	ticketed, err := s.ticketRepo.GetTicketSeatIdsForSeats(ctx, screeningID, []int{seatID})
	if err != nil {
		return false, err
	}

	return len(ticketed) == 0, nil
}

func (s *Service) publish(ctx context.Context, eventType domain.SeatEventType, screeningID int, seatIDs []int) {
	err := s.publisher.Publish(ctx, domain.SeatEvent{
		Type:        eventType,
		ScreeningID: screeningID,
		SeatIDs:     seatIDs,
		Timestamp:   time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to publish seat event", "screening_id", screeningID, "type", eventType, "error", err)
	}
}

func (s *Service) publishReleases(ctx context.Context, released []domain.ReleasedHold) {
	byScreening := make(map[int][]int)
	for _, r := range released {
		byScreening[r.ScreeningID] = append(byScreening[r.ScreeningID], r.SeatID)
	}

	for screeningID, seatIDs := range byScreening {
		s.publish(ctx, domain.SeatEventReleased, screeningID, seatIDs)
	}
}

func (s *Service) recordOutcome(ctx context.Context, status domain.OutcomeStatus) {
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

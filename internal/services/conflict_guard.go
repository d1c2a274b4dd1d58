package services

import (
	"context"
	"errors"
	"fmt"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLockName    = "conflict-lock"
	DefaultLockTimeout = 10 * time.Second
)

type CommitBookingRequest struct {
	OrganizerID int64
	Title       string
	Window      domain.TimeWindow
	Clusters    []domain.BookingCluster
}

// ConflictGuard commits multi-room bookings without double-booking a room or
// a participant.
//
// Every commit runs the check-then-insert sequence inside one global named
// lock, so at most one booking is being verified and written at a time across
// the whole deployment. Participant checks span arbitrary rooms, which is why
// the lock is not per room.
type ConflictGuard struct {
	Lock        ports.NamedLock
	Bookings    ports.BookingRepository
	LockName    string
	LockTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *obs.Metrics
}

func NewConflictGuard(lock ports.NamedLock, bookings ports.BookingRepository, logger *zap.Logger) *ConflictGuard {
	return &ConflictGuard{
		Lock:        lock,
		Bookings:    bookings,
		LockName:    DefaultLockName,
		LockTimeout: DefaultLockTimeout,
		Logger:      logger,
	}
}

func (g *ConflictGuard) logger() *zap.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return zap.L()
}

// CommitBooking verifies that no room or participant of the request is busy
// during the window and then stores the booking. It returns the new booking
// id, or an error matching one of domain.ErrRoomConflict,
// domain.ErrTimeConflict, domain.ErrLockTimeout or domain.ErrPersistence.
//
// Once the lock is held, cancelling ctx no longer interrupts the sequence:
// the booking is either fully committed or rolled back before the lock is
// released.
func (g *ConflictGuard) CommitBooking(ctx context.Context, req CommitBookingRequest) (_ int64, err error) {
	defer obs.Time(ctx, "guard.CommitBooking")(&err)

	if err := validateCommit(req); err != nil {
		return 0, err
	}

	name := g.LockName
	if name == "" {
		name = DefaultLockName
	}
	timeout := g.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	waitStart := time.Now()
	ok, err := g.Lock.Acquire(ctx, name, timeout)
	g.Metrics.LockWaited(time.Since(waitStart).Seconds())
	if err != nil {
		g.Metrics.Booking(obs.OutcomePersistence)
		return 0, fmt.Errorf("commit booking: acquire lock %q: %w: %w", name, domain.ErrPersistence, err)
	}
	if !ok {
		g.Metrics.Booking(obs.OutcomeLockTimeout)
		return 0, fmt.Errorf("commit booking: %w: waited %s for %q", domain.ErrLockTimeout, timeout, name)
	}

	critical := context.WithoutCancel(ctx)
	defer func() {
		if relErr := g.Lock.Release(critical, name); relErr != nil {
			g.logger().Error("release booking lock failed",
				zap.String("req_id", obs.RequestID(ctx)),
				zap.String("lock", name),
				zap.Error(relErr),
			)
		}
	}()

	if err := g.checkConflicts(critical, req); err != nil {
		g.recordOutcome(err)
		return 0, fmt.Errorf("commit booking: %w", err)
	}

	id, err := g.insert(critical, req)
	if err != nil {
		g.Metrics.Booking(obs.OutcomePersistence)
		return 0, fmt.Errorf("commit booking: %w: %w", domain.ErrPersistence, err)
	}

	g.Metrics.Booking(obs.OutcomeCommitted)
	g.logger().Info("booking committed",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.Int64("booking_id", id),
		zap.Int("rooms", len(req.Clusters)),
	)
	return id, nil
}

func validateCommit(req CommitBookingRequest) error {
	if len(req.Clusters) == 0 {
		return fmt.Errorf("commit booking: %w: at least one room is required", domain.ErrInvalidBooking)
	}
	if req.Window.Duration <= 0 {
		return fmt.Errorf("commit booking: %w: duration must be positive", domain.ErrInvalidBooking)
	}
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("commit booking: %w: title must not be empty", domain.ErrInvalidBooking)
	}
	rooms := make(map[int64]int, len(req.Clusters))
	seated := make(map[int64]int)
	for i, c := range req.Clusters {
		if len(c.ParticipantIDs) == 0 {
			return fmt.Errorf("commit booking: %w: cluster %d has no participants", domain.ErrInvalidBooking, i+1)
		}
		if prev, ok := rooms[c.RoomID]; ok {
			return fmt.Errorf("commit booking: %w: room %d is in clusters %d and %d", domain.ErrInvalidBooking, c.RoomID, prev+1, i+1)
		}
		rooms[c.RoomID] = i
		for _, pid := range c.ParticipantIDs {
			if prev, ok := seated[pid]; ok {
				return fmt.Errorf("commit booking: %w: participant %d is in clusters %d and %d", domain.ErrInvalidBooking, pid, prev+1, i+1)
			}
			seated[pid] = i
		}
	}
	return nil
}

// checkConflicts walks clusters in order, checking the room before the
// participants, and stops at the first collision.
func (g *ConflictGuard) checkConflicts(ctx context.Context, req CommitBookingRequest) error {
	for i, c := range req.Clusters {
		roomBookings, err := g.Bookings.GetActiveBookingsForRoom(ctx, c.RoomID)
		if err != nil {
			return fmt.Errorf("%w: check room %d: %w", domain.ErrPersistence, c.RoomID, err)
		}
		if b, hit := firstOverlap(roomBookings, req.Window); hit {
			return &domain.ConflictError{
				Kind:           domain.ErrRoomConflict,
				ClusterIndex:   i,
				RoomID:         c.RoomID,
				ParticipantIDs: c.ParticipantIDs,
				Existing:       b,
			}
		}

		participantBookings, err := g.Bookings.GetActiveBookingsForParticipants(ctx, c.ParticipantIDs)
		if err != nil {
			return fmt.Errorf("%w: check participants of room %d: %w", domain.ErrPersistence, c.RoomID, err)
		}
		if b, hit := firstOverlap(participantBookings, req.Window); hit {
			return &domain.ConflictError{
				Kind:           domain.ErrTimeConflict,
				ClusterIndex:   i,
				RoomID:         c.RoomID,
				ParticipantIDs: c.ParticipantIDs,
				Existing:       b,
			}
		}
	}
	return nil
}

func firstOverlap(bookings []domain.Booking, window domain.TimeWindow) (domain.Booking, bool) {
	for _, b := range bookings {
		if b.Active && b.Window.Overlaps(window) {
			return b, true
		}
	}
	return domain.Booking{}, false
}

func (g *ConflictGuard) insert(ctx context.Context, req CommitBookingRequest) (int64, error) {
	tx, err := g.Bookings.BeginBooking(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := tx.InsertBooking(ctx, domain.Booking{
		OrganizerID: req.OrganizerID,
		Title:       req.Title,
		Window:      req.Window,
		Active:      true,
	})
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	for _, c := range req.Clusters {
		if err := tx.InsertParticipantLinks(ctx, id, c.ParticipantIDs); err != nil {
			return 0, fmt.Errorf("insert participants for room %d: %w", c.RoomID, err)
		}
		if err := tx.InsertRoomBookingLinks(ctx, id, c.RoomID, c.ParticipantIDs); err != nil {
			return 0, fmt.Errorf("insert room booking for room %d: %w", c.RoomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit booking tx: %w", err)
	}
	return id, nil
}

func (g *ConflictGuard) recordOutcome(err error) {
	switch {
	case errors.Is(err, domain.ErrRoomConflict):
		g.Metrics.Booking(obs.OutcomeRoomConflict)
	case errors.Is(err, domain.ErrTimeConflict):
		g.Metrics.Booking(obs.OutcomeTimeConflict)
	default:
		g.Metrics.Booking(obs.OutcomePersistence)
	}
}

package services

import (
	"context"
	"errors"
	"meeting-placement-service/internal/adapters/locks"
	"meeting-placement-service/internal/adapters/memory"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func at(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }

func window(h, m int, minutes int) domain.TimeWindow {
	return domain.TimeWindow{Start: at(h, m), Duration: time.Duration(minutes) * time.Minute}
}

// newGuardFixture returns a guard over a store where room 101 is booked for
// participant 1 from 10:00 to 11:00.
func newGuardFixture(t *testing.T) (*ConflictGuard, *memory.Store, *locks.MemoryLock, int64) {
	t.Helper()

	store := memory.NewStore()
	existing := store.AddBooking(domain.Booking{
		OrganizerID: 1,
		Title:       "standup",
		Window:      window(10, 0, 60),
		Active:      true,
	}, 101, []int64{1})

	lock := locks.NewMemoryLock()
	guard := NewConflictGuard(lock, store, zap.NewNop())
	guard.Metrics = obs.NewMetrics("test")
	return guard, store, lock, existing
}

func request(w domain.TimeWindow, clusters ...domain.BookingCluster) CommitBookingRequest {
	return CommitBookingRequest{OrganizerID: 2, Title: "planning", Window: w, Clusters: clusters}
}

func TestCommitBookingRoomConflict(t *testing.T) {
	guard, store, _, existing := newGuardFixture(t)

	_, err := guard.CommitBooking(context.Background(), request(
		window(10, 30, 30),
		domain.BookingCluster{RoomID: 101, ParticipantIDs: []int64{2, 3}},
	))

	require.True(t, errors.Is(err, domain.ErrRoomConflict), "got %v", err)
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 0, ce.ClusterIndex)
	assert.Equal(t, int64(101), ce.RoomID)
	assert.Equal(t, []int64{2, 3}, ce.ParticipantIDs)
	assert.Equal(t, existing, ce.Existing.ID)

	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(guard.Metrics.BookingOutcomes.WithLabelValues(obs.OutcomeRoomConflict)))
}

func TestCommitBookingAfterExistingEnds(t *testing.T) {
	guard, store, _, _ := newGuardFixture(t)

	id, err := guard.CommitBooking(context.Background(), request(
		window(11, 0, 30),
		domain.BookingCluster{RoomID: 101, ParticipantIDs: []int64{1, 2}},
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{3}},
	))
	require.NoError(t, err)

	b, links, ok := store.Booking(id)
	require.True(t, ok)
	assert.True(t, b.Active)
	assert.Equal(t, "planning", b.Title)
	assert.Equal(t, int64(2), b.OrganizerID)
	assert.Equal(t, []domain.RoomBooking{
		{RoomID: 101, BookingID: id, ParticipantID: 1},
		{RoomID: 101, BookingID: id, ParticipantID: 2},
		{RoomID: 102, BookingID: id, ParticipantID: 3},
	}, links)

	assert.Equal(t, 1.0, testutil.ToFloat64(guard.Metrics.BookingOutcomes.WithLabelValues(obs.OutcomeCommitted)))
}

func TestCommitBookingTimeConflict(t *testing.T) {
	guard, store, _, existing := newGuardFixture(t)

	_, err := guard.CommitBooking(context.Background(), request(
		window(10, 45, 30),
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{4}},
		domain.BookingCluster{RoomID: 103, ParticipantIDs: []int64{1}},
	))

	require.True(t, errors.Is(err, domain.ErrTimeConflict), "got %v", err)
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.ClusterIndex)
	assert.Equal(t, int64(103), ce.RoomID)
	assert.Equal(t, existing, ce.Existing.ID)

	// The first cluster was fine, but nothing may be written.
	assert.Equal(t, 1, store.BookingCount())
}

func TestCommitBookingIgnoresInactiveBookings(t *testing.T) {
	guard, store, _, existing := newGuardFixture(t)
	require.NoError(t, store.SetBookingActive(context.Background(), existing, false))

	_, err := guard.CommitBooking(context.Background(), request(
		window(10, 0, 60),
		domain.BookingCluster{RoomID: 101, ParticipantIDs: []int64{1}},
	))
	assert.NoError(t, err)
}

func TestCommitBookingConcurrentRequestsCommitOnce(t *testing.T) {
	guard, store, _, _ := newGuardFixture(t)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = guard.CommitBooking(context.Background(), request(
				window(14, 0, 60),
				domain.BookingCluster{RoomID: 201, ParticipantIDs: []int64{int64(100 + i)}},
			))
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrRoomConflict), "got %v", err)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, store.BookingCount())
}

func TestCommitBookingLockTimeout(t *testing.T) {
	guard, store, lock, _ := newGuardFixture(t)
	guard.LockTimeout = 20 * time.Millisecond

	ok, err := lock.Acquire(context.Background(), DefaultLockName, 0)
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Release(context.Background(), DefaultLockName)

	_, err = guard.CommitBooking(context.Background(), request(
		window(15, 0, 30),
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{5}},
	))
	assert.True(t, errors.Is(err, domain.ErrLockTimeout), "got %v", err)
	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(guard.Metrics.BookingOutcomes.WithLabelValues(obs.OutcomeLockTimeout)))
}

type failingBookings struct {
	*memory.Store
	beginErr error
}

func (f *failingBookings) BeginBooking(ctx context.Context) (ports.BookingTx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := f.Store.BeginBooking(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{BookingTx: tx}, nil
}

// failingTx fails the room links of the second cluster.
type failingTx struct {
	ports.BookingTx
	calls int
}

func (t *failingTx) InsertRoomBookingLinks(ctx context.Context, bookingID, roomID int64, ids []int64) error {
	t.calls++
	if t.calls == 2 {
		return errors.New("disk full")
	}
	return t.BookingTx.InsertRoomBookingLinks(ctx, bookingID, roomID, ids)
}

func TestCommitBookingPersistenceFailureRollsBack(t *testing.T) {
	guard, store, lock, _ := newGuardFixture(t)
	guard.Bookings = &failingBookings{Store: store}

	_, err := guard.CommitBooking(context.Background(), request(
		window(16, 0, 30),
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{5}},
		domain.BookingCluster{RoomID: 103, ParticipantIDs: []int64{6}},
	))
	require.True(t, errors.Is(err, domain.ErrPersistence), "got %v", err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, store.BookingCount())

	// The lock must have been released.
	ok, err := lock.Acquire(context.Background(), DefaultLockName, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCommitBookingBeginFailure(t *testing.T) {
	guard, store, _, _ := newGuardFixture(t)
	guard.Bookings = &failingBookings{Store: store, beginErr: errors.New("connection reset")}

	_, err := guard.CommitBooking(context.Background(), request(
		window(16, 0, 30),
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{5}},
	))
	assert.True(t, errors.Is(err, domain.ErrPersistence), "got %v", err)
}

func TestCommitBookingSurvivesCancellationOnceLocked(t *testing.T) {
	guard, store, _, _ := newGuardFixture(t)
	guard.Bookings = &failingBookings{Store: store}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The lock is free, so it is taken without waiting; the cancelled
	// context must not reach the transaction.
	_, err := guard.CommitBooking(ctx, request(
		window(17, 0, 30),
		domain.BookingCluster{RoomID: 102, ParticipantIDs: []int64{5}},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, store.BookingCount())
}

func TestCommitBookingValidation(t *testing.T) {
	guard, _, _, _ := newGuardFixture(t)

	tests := []struct {
		name string
		req  CommitBookingRequest
	}{
		{"no rooms", request(window(9, 0, 30))},
		{"zero duration", request(domain.TimeWindow{Start: at(9, 0)}, domain.BookingCluster{RoomID: 1, ParticipantIDs: []int64{1}})},
		{"empty cluster", request(window(9, 0, 30), domain.BookingCluster{RoomID: 1})},
		{"blank title", CommitBookingRequest{Window: window(9, 0, 30), Title: "  ", Clusters: []domain.BookingCluster{{RoomID: 1, ParticipantIDs: []int64{1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.CommitBooking(context.Background(), tt.req)
			assert.True(t, errors.Is(err, domain.ErrInvalidBooking), "got %v", err)
		})
	}
}

func TestCommitBookingRejectsRepeatedRoomsAndParticipants(t *testing.T) {
	tests := []struct {
		name     string
		clusters []domain.BookingCluster
		want     string
	}{
		{
			"room in two clusters",
			[]domain.BookingCluster{{RoomID: 5, ParticipantIDs: []int64{1}}, {RoomID: 5, ParticipantIDs: []int64{2}}},
			"room 5 is in clusters 1 and 2",
		},
		{
			"participant in two clusters",
			[]domain.BookingCluster{{RoomID: 6, ParticipantIDs: []int64{3}}, {RoomID: 7, ParticipantIDs: []int64{4, 3}}},
			"participant 3 is in clusters 1 and 2",
		},
		{
			"participant twice in one cluster",
			[]domain.BookingCluster{{RoomID: 6, ParticipantIDs: []int64{3, 3}}},
			"participant 3 is in clusters 1 and 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, store, lock, _ := newGuardFixture(t)
			guard.LockTimeout = 20 * time.Millisecond
			ok, err := lock.Acquire(context.Background(), DefaultLockName, 0)
			require.NoError(t, err)
			require.True(t, ok)
			defer lock.Release(context.Background(), DefaultLockName)

			_, err = guard.CommitBooking(context.Background(), request(window(14, 0, 30), tt.clusters...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, errors.Is(err, domain.ErrInvalidBooking))
			assert.False(t, errors.Is(err, domain.ErrPersistence))
			assert.False(t, errors.Is(err, domain.ErrLockTimeout), "rejected before waiting on the lock")
			assert.Equal(t, 1, store.BookingCount())
		})
	}
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"meeting-placement-service/internal/adapters/locks"
	"meeting-placement-service/internal/adapters/seed"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/db"
	"meeting-placement-service/internal/ports"
	"meeting-placement-service/internal/services"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDataset() seed.Dataset {
	return seed.Dataset{
		Cities: []seed.City{{ID: 1, AirportCode: "SEA"}, {ID: 2, AirportCode: "YVR"}},
		Buildings: []seed.Building{
			{CityID: 1, BuildingNumber: 2, Latitude: 47.62, Longitude: -122.33},
			{CityID: 1, BuildingNumber: 1, Latitude: 47.61, Longitude: -122.34},
			{CityID: 2, BuildingNumber: 1, Latitude: 49.28, Longitude: -123.12},
		},
		Employees: []seed.Employee{
			{ID: 1, Name: "Ada", Email: "ada@example.com", CityID: 1, BuildingNumber: 1, Floor: 2},
			{ID: 2, Name: "Bo", Email: "bo@example.com", CityID: 1, BuildingNumber: 2, Floor: 4},
			{ID: 3, Name: "Cy", Email: "cy@example.com", CityID: 2, BuildingNumber: 1, Floor: 1},
			{ID: 4, Name: "Di", Email: "di@example.com", CityID: 1, BuildingNumber: 1, Floor: 2, Inactive: true},
		},
		Rooms: []seed.Room{
			{ID: 10, Name: "Alki", RoomNumber: "1-210", CityID: 1, BuildingNumber: 1, Floor: 2, Capacity: 4, Facility: domain.FacilityAV},
			{ID: 11, Name: "Ballard", RoomNumber: "2-101", CityID: 1, BuildingNumber: 2, Floor: 1, Capacity: 8, Facility: domain.FacilityAVVC},
			{ID: 12, Name: "Cascade", RoomNumber: "2-300", CityID: 1, BuildingNumber: 2, Floor: 3, Capacity: 8, Inactive: true},
			{ID: 20, Name: "Granville", RoomNumber: "1-100", CityID: 2, BuildingNumber: 1, Floor: 1, Capacity: 6, Facility: domain.FacilityVC},
		},
	}
}

func newTestStore(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "placement.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, SQLite))
	require.NoError(t, Seed(ctx, conn, SQLite, testDataset()))
	return NewSQLStore(conn, SQLite), conn
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func window(h, m, minutes int) domain.TimeWindow {
	return domain.TimeWindow{Start: at(h, m), Duration: time.Duration(minutes) * time.Minute}
}

func roomIDs(rooms []domain.Room) []int64 {
	out := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.ID)
	}
	return out
}

func insertBooking(t *testing.T, s *SQLStore, w domain.TimeWindow, roomID int64, pids ...int64) int64 {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginBooking(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	id, err := tx.InsertBooking(ctx, domain.Booking{OrganizerID: pids[0], Title: "sync", Window: w, Active: true})
	require.NoError(t, err)
	require.NoError(t, tx.InsertParticipantLinks(ctx, id, pids))
	require.NoError(t, tx.InsertRoomBookingLinks(ctx, id, roomID, pids))
	require.NoError(t, tx.Commit())
	return id
}

func TestSeedIsIdempotent(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	ds := testDataset()
	ds.Rooms[0].Capacity = 5
	require.NoError(t, Seed(ctx, conn, SQLite, ds))
	require.NoError(t, InitSchema(ctx, conn, SQLite))

	var rooms, floors int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM room;`).Scan(&rooms))
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM floor_building;`).Scan(&floors))
	assert.Equal(t, 4, rooms)
	assert.Equal(t, 5, floors)

	got, err := s.GetAvailableRooms(ctx, ports.RoomQuery{Window: window(9, 0, 30), BuildingNumbers: []int{1}, CityIDs: []int64{1}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Capacity)
}

func TestGetBuildingCoordinates(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.GetBuildingCoordinates(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, domain.Coordinates{Lat: 47.61, Lon: -122.34}, got[0].Coordinates)
	assert.Equal(t, 2, got[1].Number)
}

func TestGetParticipantLocations(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.GetParticipantLocations(context.Background(), []int64{3, 1, 4, 99})
	require.NoError(t, err)
	require.Len(t, got, 2, "inactive and unknown ids are omitted")

	assert.Equal(t, domain.Participant{
		ID: 1, Name: "Ada", Email: "ada@example.com",
		BuildingNumber: 1, Floor: 2, CityID: 1,
		Coordinates: domain.Coordinates{Lat: 47.61, Lon: -122.34},
	}, got[0])
	assert.Equal(t, int64(2), got[1].CityID)

	empty, err := s.GetParticipantLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetAvailableRooms(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	query := func(q ports.RoomQuery) []int64 {
		rooms, err := s.GetAvailableRooms(ctx, q)
		require.NoError(t, err)
		return roomIDs(rooms)
	}

	w := window(10, 0, 60)
	assert.Equal(t, []int64{10, 11, 20}, query(ports.RoomQuery{Window: w}))
	assert.Equal(t, []int64{10, 11}, query(ports.RoomQuery{Window: w, CityIDs: []int64{1}}))
	assert.Equal(t, []int64{11, 20}, query(ports.RoomQuery{Window: w, MinCapacity: 5}))
	assert.Equal(t, []int64{11}, query(ports.RoomQuery{Window: w, BuildingNumbers: []int{2}, CityIDs: []int64{1}}))
	assert.Equal(t, []int64{11, 20}, query(ports.RoomQuery{
		Window:     w,
		Facilities: []domain.Facility{domain.FacilityVC, domain.FacilityAVVC},
	}))

	insertBooking(t, s, window(10, 30, 30), 11, 2)
	assert.Equal(t, []int64{10, 20}, query(ports.RoomQuery{Window: w}))
	assert.Equal(t, []int64{10, 11, 20}, query(ports.RoomQuery{Window: window(11, 0, 30)}), "back-to-back is free")
	assert.Equal(t, []int64{10, 11, 20}, query(ports.RoomQuery{Window: window(10, 0, 30)}))
}

func TestGetUnavailableRooms(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	insertBooking(t, s, window(10, 0, 60), 10, 1)

	got, err := s.GetUnavailableRooms(ctx, []int64{1}, window(10, 15, 15))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 12}, roomIDs(got))

	got, err = s.GetUnavailableRooms(ctx, []int64{2}, window(10, 15, 15))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBookingsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	late := insertBooking(t, s, window(15, 0, 45), 10, 1, 2)
	early := insertBooking(t, s, window(9, 0, 30), 11, 2)

	got, err := s.GetActiveBookingsForParticipants(ctx, []int64{2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)
	assert.Equal(t, window(15, 0, 45), got[1].Window)
	assert.Equal(t, "sync", got[1].Title)
	assert.True(t, got[1].Active)

	got, err = s.GetActiveBookingsForRoom(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "one booking per room even with several participants")
	assert.Equal(t, late, got[0].ID)

	require.NoError(t, s.SetBookingActive(ctx, late, false))
	got, err = s.GetActiveBookingsForRoom(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetBookingActive(ctx, late, true))
	got, err = s.GetActiveBookingsForRoom(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = s.SetBookingActive(ctx, 999, false)
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

// insertTwoRooms books room 10 for Ada and Bo and room 20 for Cy, organized by Bo.
func insertTwoRooms(t *testing.T, s *SQLStore, w domain.TimeWindow) int64 {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginBooking(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	id, err := tx.InsertBooking(ctx, domain.Booking{OrganizerID: 2, Title: "planning", Window: w, Active: true})
	require.NoError(t, err)
	require.NoError(t, tx.InsertParticipantLinks(ctx, id, []int64{1, 2, 3}))
	require.NoError(t, tx.InsertRoomBookingLinks(ctx, id, 20, []int64{3}))
	require.NoError(t, tx.InsertRoomBookingLinks(ctx, id, 10, []int64{2, 1}))
	require.NoError(t, tx.Commit())
	return id
}

func TestGetHostedBookings(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	late := insertTwoRooms(t, s, window(15, 0, 30))
	early := insertTwoRooms(t, s, window(9, 0, 30))
	insertBooking(t, s, window(11, 0, 30), 11, 1)
	require.NoError(t, s.SetBookingActive(ctx, late, false))

	got, err := s.GetHostedBookings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)
	assert.False(t, got[1].Active, "inactive bookings are listed")

	d := got[0]
	assert.Equal(t, domain.Attendee{ID: 2, Name: "Bo", Email: "bo@example.com"}, d.Organizer)
	assert.Equal(t, "planning", d.Title)
	assert.Equal(t, window(9, 0, 30), d.Window)
	require.Len(t, d.Rooms, 2)
	assert.Equal(t, int64(10), d.Rooms[0].ID)
	assert.Equal(t, "Alki", d.Rooms[0].Name)
	assert.Equal(t, []domain.Attendee{
		{ID: 1, Name: "Ada", Email: "ada@example.com"},
		{ID: 2, Name: "Bo", Email: "bo@example.com"},
	}, d.Rooms[0].Attendees)
	assert.Equal(t, int64(20), d.Rooms[1].ID)
	assert.Equal(t, int64(2), d.Rooms[1].CityID)

	got, err = s.GetHostedBookings(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetInvitedBookings(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	id := insertTwoRooms(t, s, window(9, 0, 30))

	got, err := s.GetInvitedBookings(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "Bo", got[0].Organizer.Name)
	require.Len(t, got[0].Rooms, 1, "only the invitee's room")
	assert.Equal(t, int64(20), got[0].Rooms[0].ID)
	assert.Equal(t, []domain.Attendee{{ID: 3, Name: "Cy", Email: "cy@example.com"}}, got[0].Rooms[0].Attendees)

	got, err = s.GetInvitedBookings(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteBooking(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	id := insertTwoRooms(t, s, window(9, 0, 30))
	keep := insertBooking(t, s, window(9, 0, 30), 11, 1)

	require.NoError(t, s.DeleteBooking(ctx, id))

	for _, table := range []string{"booking", "participate", "room_booking"} {
		var n int
		require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+`;`).Scan(&n))
		assert.Equal(t, 1, n, table)
	}

	rooms, err := s.GetAvailableRooms(ctx, ports.RoomQuery{Window: window(9, 0, 30)})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, roomIDs(rooms))

	got, err := s.GetActiveBookingsForRoom(ctx, 11)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, keep, got[0].ID)

	err = s.DeleteBooking(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

func TestBookingTxRollback(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginBooking(ctx)
	require.NoError(t, err)
	id, err := tx.InsertBooking(ctx, domain.Booking{OrganizerID: 1, Title: "x", Window: window(9, 0, 30), Active: true})
	require.NoError(t, err)
	require.NoError(t, tx.InsertParticipantLinks(ctx, id, []int64{1}))
	assert.Error(t, tx.InsertParticipantLinks(ctx, id, []int64{1}), "duplicate participant")
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM booking;`).Scan(&n))
	assert.Zero(t, n)
}

func TestInsertBookingRejectsPartialMinutes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginBooking(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.InsertBooking(ctx, domain.Booking{
		Title:  "x",
		Window: domain.TimeWindow{Start: at(9, 0), Duration: 90 * time.Second},
	})
	assert.Error(t, err)
}

func TestConflictGuardOnSQLite(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	guard := services.NewConflictGuard(locks.NewMemoryLock(), s, zap.NewNop())
	guard.LockTimeout = time.Second

	req := services.CommitBookingRequest{
		OrganizerID: 1,
		Title:       "planning",
		Window:      window(13, 0, 60),
		Clusters: []domain.BookingCluster{
			{RoomID: 10, ParticipantIDs: []int64{1}},
			{RoomID: 20, ParticipantIDs: []int64{3}},
		},
	}
	id, err := guard.CommitBooking(ctx, req)
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = guard.CommitBooking(ctx, req)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, domain.ErrRoomConflict)
	assert.Equal(t, 0, conflict.ClusterIndex)
	assert.Equal(t, id, conflict.Existing.ID)

	_, err = guard.CommitBooking(ctx, services.CommitBookingRequest{
		OrganizerID: 2,
		Title:       "1:1",
		Window:      window(13, 30, 30),
		Clusters:    []domain.BookingCluster{{RoomID: 11, ParticipantIDs: []int64{2, 3}}},
	})
	assert.ErrorIs(t, err, domain.ErrTimeConflict, "participant 3 is already booked")
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"strings"
	"time"
)

// SQLStore implements the repository ports on top of database/sql for both
// SQLite and Postgres.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{DB: db, Dialect: d}
}

func (s *SQLStore) check() error {
	if s.DB == nil {
		return errors.New("sql store: DB is nil")
	}
	return nil
}

// Return every building of the city ordered by building number.
func (s *SQLStore) GetBuildingCoordinates(ctx context.Context, cityID int64) (_ []domain.Building, err error) {
	defer obs.Time(ctx, "store.GetBuildingCoordinates")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(`
	SELECT
		city_id,
		building_number,
		latitude,
		longitude
	FROM building_location
	WHERE city_id = ?
	ORDER BY building_number;
	`), cityID)
	if err != nil {
		return nil, fmt.Errorf("get building coordinates: query building_location table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Building, 0, 16)
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(&b.CityID, &b.Number, &b.Coordinates.Lat, &b.Coordinates.Lon); err != nil {
			return nil, fmt.Errorf("get building coordinates: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get building coordinates: row iteration: %w", err)
	}
	return out, nil
}

// Return the locations of active employees among ids.
func (s *SQLStore) GetParticipantLocations(ctx context.Context, ids []int64) (_ []domain.Participant, err error) {
	defer obs.Time(ctx, "store.GetParticipantLocations")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Participant{}, nil
	}

	q := fmt.Sprintf(`
	SELECT
		e.id,
		e.name,
		e.email,
		fb.building_number,
		fb.floor_number,
		fb.city_id,
		bl.latitude,
		bl.longitude
	FROM employee e
	JOIN floor_building fb ON fb.id = e.floor_building_id
	JOIN building_location bl
		ON bl.city_id = fb.city_id AND bl.building_number = fb.building_number
	WHERE e.is_active = TRUE
		AND e.id IN (%s)
	ORDER BY e.id;
	`, placeholders(len(ids)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get participant locations: query employee table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Participant, 0, len(ids))
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Email,
			&p.BuildingNumber, &p.Floor, &p.CityID,
			&p.Coordinates.Lat, &p.Coordinates.Lon,
		); err != nil {
			return nil, fmt.Errorf("get participant locations: scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get participant locations: row iteration: %w", err)
	}
	return out, nil
}

const roomColumns = `
		r.id,
		r.name,
		r.room_number,
		fb.city_id,
		fb.building_number,
		fb.floor_number,
		r.capacity,
		r.facility,
		r.is_active`

// roomBusyClause matches rooms holding an active booking that overlaps the
// window. It binds the window end, then the window start.
const roomBusyClause = `EXISTS (
		SELECT 1
		FROM room_booking rb
		JOIN booking b ON b.id = rb.booking_id
		WHERE rb.room_id = r.id
			AND b.is_active = TRUE
			AND b.start_unix < ?
			AND ? < b.start_unix + b.length_minutes * 60
	)`

// Return active rooms matching q with no active booking overlapping q.Window,
// ordered by room id.
func (s *SQLStore) GetAvailableRooms(ctx context.Context, q ports.RoomQuery) (_ []domain.Room, err error) {
	defer obs.Time(ctx, "store.GetAvailableRooms")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	where := []string{"r.is_active = TRUE", "r.capacity >= ?"}
	args := []any{q.MinCapacity}

	if len(q.CityIDs) > 0 {
		where = append(where, fmt.Sprintf("fb.city_id IN (%s)", placeholders(len(q.CityIDs))))
		args = append(args, int64Args(q.CityIDs)...)
	}
	if len(q.BuildingNumbers) > 0 {
		where = append(where, fmt.Sprintf("fb.building_number IN (%s)", placeholders(len(q.BuildingNumbers))))
		for _, b := range q.BuildingNumbers {
			args = append(args, b)
		}
	}
	if len(q.Facilities) > 0 {
		where = append(where, fmt.Sprintf("r.facility IN (%s)", placeholders(len(q.Facilities))))
		for _, f := range q.Facilities {
			args = append(args, string(f))
		}
	}
	where = append(where, "NOT "+roomBusyClause)
	args = append(args, q.Window.End().Unix(), q.Window.Start.Unix())

	query := fmt.Sprintf(`
	SELECT %s
	FROM room r
	JOIN floor_building fb ON fb.id = r.floor_building_id
	WHERE %s
	ORDER BY r.id;
	`, roomColumns, strings.Join(where, "\n\t\tAND "))

	return s.queryRooms(ctx, "get available rooms", query, args)
}

// Return rooms in the cities that are inactive or booked during window.
func (s *SQLStore) GetUnavailableRooms(ctx context.Context, cityIDs []int64, window domain.TimeWindow) (_ []domain.Room, err error) {
	defer obs.Time(ctx, "store.GetUnavailableRooms")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	where := []string{"(r.is_active = FALSE OR " + roomBusyClause + ")"}
	args := []any{window.End().Unix(), window.Start.Unix()}
	if len(cityIDs) > 0 {
		where = append(where, fmt.Sprintf("fb.city_id IN (%s)", placeholders(len(cityIDs))))
		args = append(args, int64Args(cityIDs)...)
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM room r
	JOIN floor_building fb ON fb.id = r.floor_building_id
	WHERE %s
	ORDER BY r.id;
	`, roomColumns, strings.Join(where, "\n\t\tAND "))

	return s.queryRooms(ctx, "get unavailable rooms", query, args)
}

func (s *SQLStore) queryRooms(ctx context.Context, op, query string, args []any) ([]domain.Room, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query room table: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Room, 0, 16)
	for rows.Next() {
		var r domain.Room
		var facility string
		if err := rows.Scan(
			&r.ID, &r.Name, &r.RoomNumber,
			&r.CityID, &r.BuildingNumber, &r.Floor,
			&r.Capacity, &facility, &r.Active,
		); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		r.Facility = domain.Facility(facility)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}
	return out, nil
}

const bookingColumns = `
		b.id,
		b.organizer_id,
		b.meeting_title,
		b.start_unix,
		b.length_minutes,
		b.is_active`

// Return active bookings that reserve the room.
func (s *SQLStore) GetActiveBookingsForRoom(ctx context.Context, roomID int64) (_ []domain.Booking, err error) {
	defer obs.Time(ctx, "store.GetActiveBookingsForRoom")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
	SELECT %s
	FROM booking b
	WHERE b.is_active = TRUE
		AND b.id IN (SELECT rb.booking_id FROM room_booking rb WHERE rb.room_id = ?)
	ORDER BY b.start_unix, b.id;
	`, bookingColumns)

	return s.queryBookings(ctx, "get room bookings", q, []any{roomID})
}

// Return active bookings any of the participants attend.
func (s *SQLStore) GetActiveBookingsForParticipants(ctx context.Context, participantIDs []int64) (_ []domain.Booking, err error) {
	defer obs.Time(ctx, "store.GetActiveBookingsForParticipants")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}
	if len(participantIDs) == 0 {
		return []domain.Booking{}, nil
	}

	q := fmt.Sprintf(`
	SELECT %s
	FROM booking b
	WHERE b.is_active = TRUE
		AND b.id IN (
			SELECT p.booking_id FROM participate p WHERE p.participant_id IN (%s)
		)
	ORDER BY b.start_unix, b.id;
	`, bookingColumns, placeholders(len(participantIDs)))

	return s.queryBookings(ctx, "get participant bookings", q, int64Args(participantIDs))
}

func (s *SQLStore) queryBookings(ctx context.Context, op, query string, args []any) ([]domain.Booking, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query booking table: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Booking, 0, 8)
	for rows.Next() {
		var b domain.Booking
		var startUnix int64
		var minutes int
		if err := rows.Scan(&b.ID, &b.OrganizerID, &b.Title, &startUnix, &minutes, &b.Active); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		b.Window = domain.TimeWindow{
			Start:    time.Unix(startUnix, 0).UTC(),
			Duration: time.Duration(minutes) * time.Minute,
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}
	return out, nil
}

// Toggle a booking's active flag.
func (s *SQLStore) SetBookingActive(ctx context.Context, bookingID int64, active bool) (err error) {
	defer obs.Time(ctx, "store.SetBookingActive")(&err)

	if err := s.check(); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(`
	UPDATE booking SET is_active = ? WHERE id = ?;
	`), active, bookingID)
	if err != nil {
		return fmt.Errorf("set booking active: update booking table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set booking active: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set booking active: %w: id=%d", domain.ErrBookingNotFound, bookingID)
	}
	return nil
}

// Return every booking the user organizes with its rooms and attendees.
func (s *SQLStore) GetHostedBookings(ctx context.Context, organizerID int64) (_ []domain.BookingDetail, err error) {
	defer obs.Time(ctx, "store.GetHostedBookings")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
	SELECT %s
	FROM booking b
	WHERE b.organizer_id = ?
	ORDER BY b.start_unix, b.id;
	`, bookingColumns)

	bookings, err := s.queryBookings(ctx, "get hosted bookings", q, []any{organizerID})
	if err != nil {
		return nil, err
	}
	return s.bookingDetails(ctx, "get hosted bookings", bookings, 0)
}

// Return every booking the user attends, listing only the rooms they sit in.
func (s *SQLStore) GetInvitedBookings(ctx context.Context, participantID int64) (_ []domain.BookingDetail, err error) {
	defer obs.Time(ctx, "store.GetInvitedBookings")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
	SELECT %s
	FROM booking b
	WHERE b.id IN (SELECT p.booking_id FROM participate p WHERE p.participant_id = ?)
	ORDER BY b.start_unix, b.id;
	`, bookingColumns)

	bookings, err := s.queryBookings(ctx, "get invited bookings", q, []any{participantID})
	if err != nil {
		return nil, err
	}
	return s.bookingDetails(ctx, "get invited bookings", bookings, participantID)
}

// bookingDetails attaches organizers, rooms and attendees to bookings. A
// non-zero onlyFor keeps just the rooms that participant sits in.
func (s *SQLStore) bookingDetails(ctx context.Context, op string, bookings []domain.Booking, onlyFor int64) ([]domain.BookingDetail, error) {
	out := make([]domain.BookingDetail, 0, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	bookingIDs := make([]int64, 0, len(bookings))
	organizerIDs := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		bookingIDs = append(bookingIDs, b.ID)
		organizerIDs = append(organizerIDs, b.OrganizerID)
	}

	organizers, err := s.attendees(ctx, op, organizerIDs)
	if err != nil {
		return nil, err
	}

	where := fmt.Sprintf("rb.booking_id IN (%s)", placeholders(len(bookingIDs)))
	args := int64Args(bookingIDs)
	if onlyFor != 0 {
		where += `
		AND EXISTS (
			SELECT 1 FROM room_booking own
			WHERE own.booking_id = rb.booking_id
				AND own.room_id = rb.room_id
				AND own.participant_id = ?
		)`
		args = append(args, onlyFor)
	}

	q := fmt.Sprintf(`
	SELECT
		rb.booking_id,
		rb.participant_id,
		COALESCE(e.name, ''),
		COALESCE(e.email, ''),
		%s
	FROM room_booking rb
	JOIN room r ON r.id = rb.room_id
	JOIN floor_building fb ON fb.id = r.floor_building_id
	LEFT JOIN employee e ON e.id = rb.participant_id
	WHERE %s
	ORDER BY rb.booking_id, r.id, rb.participant_id;
	`, roomColumns, where)

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query room_booking table: %w", op, err)
	}
	defer rows.Close()

	rooms := make(map[int64][]domain.BookedRoom, len(bookings))
	for rows.Next() {
		var bookingID int64
		var a domain.Attendee
		var r domain.Room
		var facility string
		if err := rows.Scan(
			&bookingID, &a.ID, &a.Name, &a.Email,
			&r.ID, &r.Name, &r.RoomNumber,
			&r.CityID, &r.BuildingNumber, &r.Floor,
			&r.Capacity, &facility, &r.Active,
		); err != nil {
			return nil, fmt.Errorf("%s: scan room row: %w", op, err)
		}
		r.Facility = domain.Facility(facility)

		list := rooms[bookingID]
		if n := len(list); n == 0 || list[n-1].ID != r.ID {
			list = append(list, domain.BookedRoom{Room: r})
		}
		last := &list[len(list)-1]
		last.Attendees = append(last.Attendees, a)
		rooms[bookingID] = list
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: room row iteration: %w", op, err)
	}

	for _, b := range bookings {
		organizer, ok := organizers[b.OrganizerID]
		if !ok {
			organizer = domain.Attendee{ID: b.OrganizerID}
		}
		booked := rooms[b.ID]
		if booked == nil {
			booked = []domain.BookedRoom{}
		}
		out = append(out, domain.BookingDetail{Booking: b, Organizer: organizer, Rooms: booked})
	}
	return out, nil
}

func (s *SQLStore) attendees(ctx context.Context, op string, ids []int64) (map[int64]domain.Attendee, error) {
	q := fmt.Sprintf(`
	SELECT id, name, email
	FROM employee
	WHERE id IN (%s);
	`, placeholders(len(ids)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("%s: query employee table: %w", op, err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Attendee, len(ids))
	for rows.Next() {
		var a domain.Attendee
		if err := rows.Scan(&a.ID, &a.Name, &a.Email); err != nil {
			return nil, fmt.Errorf("%s: scan employee row: %w", op, err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: employee row iteration: %w", op, err)
	}
	return out, nil
}

// Remove a booking with its participant and room links.
func (s *SQLStore) DeleteBooking(ctx context.Context, bookingID int64) (err error) {
	defer obs.Time(ctx, "store.DeleteBooking")(&err)

	if err := s.check(); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete booking: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"room_booking", "participate"} {
		if _, err := tx.ExecContext(ctx, s.Dialect.Rebind(fmt.Sprintf(`
		DELETE FROM %s WHERE booking_id = ?;
		`, table)), bookingID); err != nil {
			return fmt.Errorf("delete booking: delete from %s table: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, s.Dialect.Rebind(`
	DELETE FROM booking WHERE id = ?;
	`), bookingID)
	if err != nil {
		return fmt.Errorf("delete booking: delete from booking table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete booking: %w: id=%d", domain.ErrBookingNotFound, bookingID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete booking: db commit: %w", err)
	}
	return nil
}

func (s *SQLStore) BeginBooking(ctx context.Context) (ports.BookingTx, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking: db begin: %w", err)
	}
	return &sqlBookingTx{tx: tx, d: s.Dialect}, nil
}

type sqlBookingTx struct {
	tx        *sql.Tx
	d         Dialect
	committed bool
}

func (t *sqlBookingTx) InsertBooking(ctx context.Context, b domain.Booking) (int64, error) {
	if b.Window.Duration%time.Minute != 0 {
		return 0, fmt.Errorf("insert booking: duration %s is not a whole number of minutes", b.Window.Duration)
	}

	var id int64
	err := t.tx.QueryRowContext(ctx, t.d.Rebind(`
	INSERT INTO booking (organizer_id, meeting_title, start_unix, length_minutes, is_active)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id;
	`),
		b.OrganizerID, b.Title, b.Window.Start.Unix(), int(b.Window.Duration/time.Minute), b.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return id, nil
}

func (t *sqlBookingTx) InsertParticipantLinks(ctx context.Context, bookingID int64, participantIDs []int64) error {
	stmt, err := t.tx.PrepareContext(ctx, t.d.Rebind(`
	INSERT INTO participate (booking_id, participant_id) VALUES (?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert participants: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, pid := range participantIDs {
		if _, err := stmt.ExecContext(ctx, bookingID, pid); err != nil {
			return fmt.Errorf("insert participant booking_id=%d participant_id=%d: %w", bookingID, pid, err)
		}
	}
	return nil
}

func (t *sqlBookingTx) InsertRoomBookingLinks(ctx context.Context, bookingID int64, roomID int64, participantIDs []int64) error {
	stmt, err := t.tx.PrepareContext(ctx, t.d.Rebind(`
	INSERT INTO room_booking (room_id, booking_id, participant_id) VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert room bookings: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, pid := range participantIDs {
		if _, err := stmt.ExecContext(ctx, roomID, bookingID, pid); err != nil {
			return fmt.Errorf("insert room booking room_id=%d participant_id=%d: %w", roomID, pid, err)
		}
	}
	return nil
}

func (t *sqlBookingTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.committed = true
	return nil
}

func (t *sqlBookingTx) Rollback() error {
	if t.committed {
		return nil
	}
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

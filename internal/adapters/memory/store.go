package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"meeting-placement-service/internal/adapters/seed"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/ports"
	"slices"
	"sync"
)

// Store keeps buildings, participants, rooms and bookings in memory. It
// implements every repository port and is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	buildings    map[int64][]domain.Building
	participants map[int64]domain.Participant
	rooms        map[int64]domain.Room
	bookings     map[int64]domain.Booking
	// booking id -> participant ids
	participates map[int64][]int64
	roomBookings []domain.RoomBooking
	nextID       int64
}

func NewStore() *Store {
	return &Store{
		buildings:    make(map[int64][]domain.Building),
		participants: make(map[int64]domain.Participant),
		rooms:        make(map[int64]domain.Room),
		bookings:     make(map[int64]domain.Booking),
		participates: make(map[int64][]int64),
	}
}

// FromDataset builds a store holding the dataset's buildings, active
// employees and rooms.
func FromDataset(ds seed.Dataset) *Store {
	s := NewStore()
	coords := ds.Coordinates()
	for _, b := range ds.Buildings {
		s.AddBuilding(domain.Building{
			CityID:      b.CityID,
			Number:      b.BuildingNumber,
			Coordinates: domain.Coordinates{Lat: b.Latitude, Lon: b.Longitude},
		})
	}
	for _, e := range ds.Employees {
		if e.Inactive {
			continue
		}
		s.AddParticipant(domain.Participant{
			ID:             e.ID,
			Name:           e.Name,
			Email:          e.Email,
			BuildingNumber: e.BuildingNumber,
			Floor:          e.Floor,
			CityID:         e.CityID,
			Coordinates:    coords[e.CityID][e.BuildingNumber],
		})
	}
	for _, r := range ds.Rooms {
		s.AddRoom(domain.Room{
			ID:             r.ID,
			Name:           r.Name,
			RoomNumber:     r.RoomNumber,
			CityID:         r.CityID,
			BuildingNumber: r.BuildingNumber,
			Floor:          r.Floor,
			Capacity:       r.Capacity,
			Facility:       r.Facility,
			Active:         !r.Inactive,
		})
	}
	return s
}

// AddBuilding adds or moves a building. Buildings keep insertion order per city.
func (s *Store) AddBuilding(b domain.Building) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.buildings[b.CityID]
	for i := range list {
		if list[i].Number == b.Number {
			list[i] = b
			return
		}
	}
	s.buildings[b.CityID] = append(list, b)
}

func (s *Store) AddParticipant(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
}

func (s *Store) AddRoom(r domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// AddBooking stores an already-committed booking occupying the room for the
// participants, and returns its id.
func (s *Store) AddBooking(b domain.Booking, roomID int64, participantIDs []int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	b.ID = s.nextID
	s.bookings[b.ID] = b
	s.participates[b.ID] = append(s.participates[b.ID], participantIDs...)
	for _, pid := range participantIDs {
		s.roomBookings = append(s.roomBookings, domain.RoomBooking{RoomID: roomID, BookingID: b.ID, ParticipantID: pid})
	}
	return b.ID
}

// Booking returns a stored booking with its room links.
func (s *Store) Booking(id int64) (domain.Booking, []domain.RoomBooking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, nil, false
	}
	var links []domain.RoomBooking
	for _, rb := range s.roomBookings {
		if rb.BookingID == id {
			links = append(links, rb)
		}
	}
	return b, links, true
}

// BookingCount returns the number of stored bookings, active or not.
func (s *Store) BookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *Store) GetBuildingCoordinates(_ context.Context, cityID int64) ([]domain.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.buildings[cityID]), nil
}

func (s *Store) GetParticipantLocations(_ context.Context, ids []int64) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Participant, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GetAvailableRooms(_ context.Context, q ports.RoomQuery) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Room, 0)
	for _, r := range s.sortedRooms() {
		if !r.Active || r.Capacity < q.MinCapacity {
			continue
		}
		if len(q.CityIDs) > 0 && !slices.Contains(q.CityIDs, r.CityID) {
			continue
		}
		if len(q.BuildingNumbers) > 0 && !slices.Contains(q.BuildingNumbers, r.BuildingNumber) {
			continue
		}
		if len(q.Facilities) > 0 && !slices.Contains(q.Facilities, r.Facility) {
			continue
		}
		if s.roomBusy(r.ID, q.Window) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) GetUnavailableRooms(_ context.Context, cityIDs []int64, window domain.TimeWindow) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Room, 0)
	for _, r := range s.sortedRooms() {
		if len(cityIDs) > 0 && !slices.Contains(cityIDs, r.CityID) {
			continue
		}
		if !r.Active || s.roomBusy(r.ID, window) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) sortedRooms() []domain.Room {
	rooms := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	slices.SortFunc(rooms, func(a, b domain.Room) int { return cmp.Compare(a.ID, b.ID) })
	return rooms
}

func (s *Store) roomBusy(roomID int64, window domain.TimeWindow) bool {
	for _, rb := range s.roomBookings {
		if rb.RoomID != roomID {
			continue
		}
		if b := s.bookings[rb.BookingID]; b.Active && b.Window.Overlaps(window) {
			return true
		}
	}
	return false
}

func (s *Store) GetActiveBookingsForRoom(_ context.Context, roomID int64) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]struct{})
	for _, rb := range s.roomBookings {
		if rb.RoomID == roomID {
			ids[rb.BookingID] = struct{}{}
		}
	}
	return s.activeBookings(ids), nil
}

func (s *Store) GetActiveBookingsForParticipants(_ context.Context, participantIDs []int64) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]struct{})
	for bookingID, attendees := range s.participates {
		for _, pid := range attendees {
			if slices.Contains(participantIDs, pid) {
				ids[bookingID] = struct{}{}
				break
			}
		}
	}
	return s.activeBookings(ids), nil
}

// activeBookings returns the active bookings among ids ordered by start, then id.
func (s *Store) activeBookings(ids map[int64]struct{}) []domain.Booking {
	out := make([]domain.Booking, 0, len(ids))
	for id := range ids {
		if b := s.bookings[id]; b.Active {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := a.Window.Start.Compare(b.Window.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) SetBookingActive(_ context.Context, bookingID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("set booking active: %w: id=%d", domain.ErrBookingNotFound, bookingID)
	}
	b.Active = active
	s.bookings[bookingID] = b
	return nil
}

func (s *Store) GetHostedBookings(_ context.Context, organizerID int64) ([]domain.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BookingDetail, 0)
	for _, b := range s.sortedBookings() {
		if b.OrganizerID == organizerID {
			out = append(out, s.detail(b, 0))
		}
	}
	return out, nil
}

func (s *Store) GetInvitedBookings(_ context.Context, participantID int64) ([]domain.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BookingDetail, 0)
	for _, b := range s.sortedBookings() {
		if slices.Contains(s.participates[b.ID], participantID) {
			out = append(out, s.detail(b, participantID))
		}
	}
	return out, nil
}

func (s *Store) DeleteBooking(_ context.Context, bookingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[bookingID]; !ok {
		return fmt.Errorf("delete booking: %w: id=%d", domain.ErrBookingNotFound, bookingID)
	}
	delete(s.bookings, bookingID)
	delete(s.participates, bookingID)
	s.roomBookings = slices.DeleteFunc(s.roomBookings, func(rb domain.RoomBooking) bool {
		return rb.BookingID == bookingID
	})
	return nil
}

// sortedBookings returns every booking ordered by start, then id.
func (s *Store) sortedBookings() []domain.Booking {
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := a.Window.Start.Compare(b.Window.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// detail resolves a booking's rooms and attendees. A non-zero onlyFor keeps
// just the rooms that participant sits in.
func (s *Store) detail(b domain.Booking, onlyFor int64) domain.BookingDetail {
	attendees := make(map[int64][]domain.Attendee)
	for _, rb := range s.roomBookings {
		if rb.BookingID == b.ID {
			attendees[rb.RoomID] = append(attendees[rb.RoomID], s.attendee(rb.ParticipantID))
		}
	}

	roomIDs := make([]int64, 0, len(attendees))
	for id, list := range attendees {
		if onlyFor != 0 && !slices.ContainsFunc(list, func(a domain.Attendee) bool { return a.ID == onlyFor }) {
			continue
		}
		roomIDs = append(roomIDs, id)
	}
	slices.Sort(roomIDs)

	d := domain.BookingDetail{
		Booking:   b,
		Organizer: s.attendee(b.OrganizerID),
		Rooms:     make([]domain.BookedRoom, 0, len(roomIDs)),
	}
	for _, id := range roomIDs {
		room, ok := s.rooms[id]
		if !ok {
			room = domain.Room{ID: id}
		}
		list := attendees[id]
		slices.SortFunc(list, func(a, b domain.Attendee) int { return cmp.Compare(a.ID, b.ID) })
		d.Rooms = append(d.Rooms, domain.BookedRoom{Room: room, Attendees: list})
	}
	return d
}

func (s *Store) attendee(id int64) domain.Attendee {
	p, ok := s.participants[id]
	if !ok {
		return domain.Attendee{ID: id}
	}
	return domain.Attendee{ID: p.ID, Name: p.Name, Email: p.Email}
}

func (s *Store) BeginBooking(_ context.Context) (ports.BookingTx, error) {
	return &bookingTx{store: s}, nil
}

// bookingTx stages writes and applies them to the store on Commit.
type bookingTx struct {
	store *Store
	done  bool

	bookings     []domain.Booking
	participates map[int64][]int64
	roomBookings []domain.RoomBooking
}

var errTxDone = errors.New("booking tx already finished")

func (tx *bookingTx) InsertBooking(_ context.Context, b domain.Booking) (int64, error) {
	if tx.done {
		return 0, errTxDone
	}

	tx.store.mu.Lock()
	tx.store.nextID++
	b.ID = tx.store.nextID
	tx.store.mu.Unlock()

	tx.bookings = append(tx.bookings, b)
	return b.ID, nil
}

func (tx *bookingTx) InsertParticipantLinks(_ context.Context, bookingID int64, participantIDs []int64) error {
	if tx.done {
		return errTxDone
	}
	if tx.participates == nil {
		tx.participates = make(map[int64][]int64)
	}
	for _, pid := range participantIDs {
		if slices.Contains(tx.participates[bookingID], pid) {
			return fmt.Errorf("insert participant link: duplicate participant %d for booking %d", pid, bookingID)
		}
		tx.participates[bookingID] = append(tx.participates[bookingID], pid)
	}
	return nil
}

func (tx *bookingTx) InsertRoomBookingLinks(_ context.Context, bookingID int64, roomID int64, participantIDs []int64) error {
	if tx.done {
		return errTxDone
	}
	for _, pid := range participantIDs {
		tx.roomBookings = append(tx.roomBookings, domain.RoomBooking{RoomID: roomID, BookingID: bookingID, ParticipantID: pid})
	}
	return nil
}

func (tx *bookingTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.bookings {
		s.bookings[b.ID] = b
	}
	for id, pids := range tx.participates {
		s.participates[id] = append(s.participates[id], pids...)
	}
	s.roomBookings = append(s.roomBookings, tx.roomBookings...)
	return nil
}

func (tx *bookingTx) Rollback() error {
	tx.done = true
	return nil
}

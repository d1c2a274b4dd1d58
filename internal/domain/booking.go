package domain

import "time"

// Half-open time interval [Start, Start+Duration).
type TimeWindow struct {
	Start    time.Time
	Duration time.Duration
}

func (w TimeWindow) End() time.Time { return w.Start.Add(w.Duration) }

// Overlaps reports whether two windows share any instant. Touching windows
// (one ends exactly when the other starts) do not overlap.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End()) && o.Start.Before(w.End())
}

// A meeting booking. One booking may span several rooms.
type Booking struct {
	ID          int64
	OrganizerID int64
	Title       string
	Window      TimeWindow
	Active      bool
}

// One unit of a multi-room booking request: a room and the participants
// meeting in it.
type BookingCluster struct {
	RoomID         int64
	ParticipantIDs []int64
}

// Links a participant to the room they attend for a booking.
type RoomBooking struct {
	RoomID        int64
	BookingID     int64
	ParticipantID int64
}

// Someone attending a booking, resolved to their name and email when known.
type Attendee struct {
	ID    int64
	Name  string
	Email string
}

// A room reserved by a booking and the attendees meeting in it.
type BookedRoom struct {
	Room
	Attendees []Attendee
}

// BookingDetail is a booking with its organizer and the rooms it reserves.
// Rooms are ordered by room id and attendees by id.
type BookingDetail struct {
	Booking
	Organizer Attendee
	Rooms     []BookedRoom
}

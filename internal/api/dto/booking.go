package dto

import "time"

type BookingRoomRequest struct {
	RoomID         int64   `json:"room_id" validate:"required,gt=0"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1,dive,gt=0"`
}

type BookingRequest struct {
	OrganizerID   int64                `json:"organizer_id" validate:"required,gt=0"`
	Title         string               `json:"title" validate:"required,max=200"`
	Start         time.Time            `json:"start"`
	LengthMinutes int                  `json:"length_minutes" validate:"required,min=1,max=1440"`
	Rooms         []BookingRoomRequest `json:"rooms" validate:"required,min=1,dive"`
}

type BookingResponse struct {
	BookingID int64 `json:"booking_id"`
}

type BookingStatusResponse struct {
	BookingID int64 `json:"booking_id"`
	Active    bool  `json:"active"`
}

// Body of a 409 response.
type ConflictResponse struct {
	Error                string  `json:"error"`
	Type                 string  `json:"type"`
	Cluster              int     `json:"cluster"`
	RoomID               int64   `json:"room_id"`
	ParticipantIDs       []int64 `json:"participant_ids"`
	ConflictingBookingID int64   `json:"conflicting_booking_id"`
}

type MeetingTimesRequest struct {
	OrganizerID    int64   `json:"organizer_id" validate:"required,gt=0"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"max=500,dive,gt=0"`
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
}

type BusyWindowResponse struct {
	BookingID     int64     `json:"booking_id"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	LengthMinutes int       `json:"length_minutes"`
}

type MeetingTimesResponse struct {
	Date string               `json:"date"`
	Busy []BusyWindowResponse `json:"busy"`
}

type AttendeeResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BookedRoomResponse struct {
	Room         RoomResponse       `json:"room"`
	Participants []AttendeeResponse `json:"participants"`
}

type BookingDetailResponse struct {
	BookingID     int64                `json:"booking_id"`
	Organizer     AttendeeResponse     `json:"organizer"`
	Title         string               `json:"title"`
	Start         time.Time            `json:"start"`
	End           time.Time            `json:"end"`
	LengthMinutes int                  `json:"length_minutes"`
	Active        bool                 `json:"active"`
	Rooms         []BookedRoomResponse `json:"rooms"`
}

// Body of the hosted and invited booking listings.
type BookingListResponse struct {
	UserID   int64                   `json:"user_id"`
	Bookings []BookingDetailResponse `json:"bookings"`
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoAvailableRooms   = errors.New("no available rooms")
	ErrClusteringFailed   = errors.New("clustering failed")
	ErrRoomConflict       = errors.New("room conflict")
	ErrTimeConflict       = errors.New("meeting time conflict")
	ErrLockTimeout        = errors.New("booking lock timeout")
	ErrPersistence        = errors.New("persistence error")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrInvalidBooking     = errors.New("invalid booking request")
)

// ConflictError describes why a booking request collided with an existing
// active booking. It unwraps to ErrRoomConflict or ErrTimeConflict.
type ConflictError struct {
	Kind           error
	ClusterIndex   int
	RoomID         int64
	ParticipantIDs []int64
	Existing       Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"%v: cluster=%d room_id=%d conflicting_booking_id=%d",
		e.Kind, e.ClusterIndex+1, e.RoomID, e.Existing.ID,
	)
}

func (e *ConflictError) Unwrap() error { return e.Kind }

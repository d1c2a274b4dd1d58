package ports

import (
	"context"
	"meeting-placement-service/internal/domain"
)

// Port: booking storage used by the conflict guard and schedule operations.
type BookingRepository interface {
	// Return active bookings that reserve the room.
	GetActiveBookingsForRoom(ctx context.Context, roomID int64) ([]domain.Booking, error)
	// Return active bookings any of the participants attend.
	GetActiveBookingsForParticipants(ctx context.Context, participantIDs []int64) ([]domain.Booking, error)
	// Start a unit of work for inserting one multi-room booking.
	BeginBooking(ctx context.Context) (BookingTx, error)
	// Toggle a booking's active flag. Returns domain.ErrBookingNotFound for unknown ids.
	SetBookingActive(ctx context.Context, bookingID int64, active bool) error
	// Return every booking the user organizes, active or not, ordered by start.
	GetHostedBookings(ctx context.Context, organizerID int64) ([]domain.BookingDetail, error)
	// Return every booking the user attends, active or not, ordered by start.
	// Only the rooms the user sits in are listed.
	GetInvitedBookings(ctx context.Context, participantID int64) ([]domain.BookingDetail, error)
	// Remove a booking and its links. Returns domain.ErrBookingNotFound for unknown ids.
	DeleteBooking(ctx context.Context, bookingID int64) error
}

// A booking unit of work. Nothing is visible to other readers until Commit.
type BookingTx interface {
	InsertBooking(ctx context.Context, b domain.Booking) (int64, error)
	InsertParticipantLinks(ctx context.Context, bookingID int64, participantIDs []int64) error
	InsertRoomBookingLinks(ctx context.Context, bookingID int64, roomID int64, participantIDs []int64) error
	Commit() error
	// Rollback is a no-op after a successful Commit.
	Rollback() error
}

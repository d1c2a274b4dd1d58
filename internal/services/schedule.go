package services

import (
	"cmp"
	"context"
	"fmt"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"slices"
	"time"
)

// ScheduleService answers calendar questions about existing bookings and
// toggles bookings on and off.
type ScheduleService struct {
	Bookings ports.BookingRepository
}

// BusyTimes returns the active bookings of the organizer and participants
// that start on the calendar day of date, in date's location. Bookings are
// ordered by start time; a booking shared by several people appears once.
func (s *ScheduleService) BusyTimes(ctx context.Context, organizerID int64, participantIDs []int64, date time.Time) (_ []domain.Booking, err error) {
	defer obs.Time(ctx, "schedule.BusyTimes")(&err)

	ids := withOrganizer(participantIDs, organizerID)
	if len(ids) == 0 {
		return []domain.Booking{}, nil
	}

	bookings, err := s.Bookings.GetActiveBookingsForParticipants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("busy times: %w", err)
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	seen := make(map[int64]struct{}, len(bookings))
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !b.Active {
			continue
		}
		if b.Window.Start.Before(dayStart) || !b.Window.Start.Before(dayEnd) {
			continue
		}
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}

	slices.SortStableFunc(out, func(a, b domain.Booking) int {
		return cmp.Compare(a.Window.Start.UnixNano(), b.Window.Start.UnixNano())
	})
	return out, nil
}

// SetBookingActive activates or cancels a booking. Unknown ids fail with
// domain.ErrBookingNotFound.
func (s *ScheduleService) SetBookingActive(ctx context.Context, bookingID int64, active bool) (err error) {
	defer obs.Time(ctx, "schedule.SetBookingActive")(&err)

	if err := s.Bookings.SetBookingActive(ctx, bookingID, active); err != nil {
		return fmt.Errorf("set booking %d active=%t: %w", bookingID, active, err)
	}
	return nil
}

// HostedBookings lists the bookings the user organizes. A non-zero since drops
// bookings that ended before it.
func (s *ScheduleService) HostedBookings(ctx context.Context, organizerID int64, since time.Time) (_ []domain.BookingDetail, err error) {
	defer obs.Time(ctx, "schedule.HostedBookings")(&err)

	bookings, err := s.Bookings.GetHostedBookings(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("hosted bookings of %d: %w", organizerID, err)
	}
	return endedAfter(bookings, since), nil
}

// InvitedBookings lists the bookings the user attends with only the rooms
// they sit in. A non-zero since drops bookings that ended before it.
func (s *ScheduleService) InvitedBookings(ctx context.Context, participantID int64, since time.Time) (_ []domain.BookingDetail, err error) {
	defer obs.Time(ctx, "schedule.InvitedBookings")(&err)

	bookings, err := s.Bookings.GetInvitedBookings(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("invited bookings of %d: %w", participantID, err)
	}
	return endedAfter(bookings, since), nil
}

// DeleteBooking removes a booking for good. Unknown ids fail with
// domain.ErrBookingNotFound.
func (s *ScheduleService) DeleteBooking(ctx context.Context, bookingID int64) (err error) {
	defer obs.Time(ctx, "schedule.DeleteBooking")(&err)

	if err := s.Bookings.DeleteBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("delete booking %d: %w", bookingID, err)
	}
	return nil
}

func endedAfter(bookings []domain.BookingDetail, since time.Time) []domain.BookingDetail {
	if since.IsZero() {
		return bookings
	}
	out := make([]domain.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		if !b.Window.End().Before(since) {
			out = append(out, b)
		}
	}
	return out
}

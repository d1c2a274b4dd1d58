package handlers

import (
	"context"
	"meeting-placement-service/internal/api/dto"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/services"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type BookingCommitter interface {
	CommitBooking(ctx context.Context, req services.CommitBookingRequest) (int64, error)
}

type Scheduler interface {
	BusyTimes(ctx context.Context, organizerID int64, participantIDs []int64, date time.Time) ([]domain.Booking, error)
	SetBookingActive(ctx context.Context, bookingID int64, active bool) error
	HostedBookings(ctx context.Context, organizerID int64, since time.Time) ([]domain.BookingDetail, error)
	InvitedBookings(ctx context.Context, participantID int64, since time.Time) ([]domain.BookingDetail, error)
	DeleteBooking(ctx context.Context, bookingID int64) error
}

// BookingHandler exposes booking commits and schedule operations.
type BookingHandler struct {
	Guard    BookingCommitter
	Schedule Scheduler
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Start.IsZero() {
		writeError(w, r, http.StatusBadRequest, "start is required")
		return
	}

	clusters := make([]domain.BookingCluster, 0, len(req.Rooms))
	for _, room := range req.Rooms {
		clusters = append(clusters, domain.BookingCluster{
			RoomID:         room.RoomID,
			ParticipantIDs: room.ParticipantIDs,
		})
	}

	id, err := h.Guard.CommitBooking(r.Context(), services.CommitBookingRequest{
		OrganizerID: req.OrganizerID,
		Title:       req.Title,
		Window: domain.TimeWindow{
			Start:    req.Start,
			Duration: time.Duration(req.LengthMinutes) * time.Minute,
		},
		Clusters: clusters,
	})
	if err != nil {
		writeServiceError(w, r, "commit booking", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.BookingResponse{BookingID: id})
}

func (h *BookingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *BookingHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *BookingHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r, "bookingID", "invalid booking id")
	if !ok {
		return
	}

	if err := h.Schedule.SetBookingActive(r.Context(), id, active); err != nil {
		writeServiceError(w, r, "set booking active", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.BookingStatusResponse{BookingID: id, Active: active})
}

// MeetingTimes lists when the organizer and participants are already busy on
// a UTC calendar day.
func (h *BookingHandler) MeetingTimes(w http.ResponseWriter, r *http.Request) {
	var req dto.MeetingTimesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := time.ParseInLocation(time.DateOnly, req.Date, time.UTC)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must match 2006-01-02")
		return
	}

	bookings, err := h.Schedule.BusyTimes(r.Context(), req.OrganizerID, req.ParticipantIDs, date)
	if err != nil {
		writeServiceError(w, r, "busy times", err)
		return
	}

	res := dto.MeetingTimesResponse{
		Date: req.Date,
		Busy: make([]dto.BusyWindowResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		res.Busy = append(res.Busy, dto.BusyWindowResponse{
			BookingID:     b.ID,
			Title:         b.Title,
			Start:         b.Window.Start,
			End:           b.Window.End(),
			LengthMinutes: int(b.Window.Duration / time.Minute),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID", "invalid booking id")
	if !ok {
		return
	}

	if err := h.Schedule.DeleteBooking(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Hosted lists the bookings a user organizes. An optional since query
// parameter (RFC 3339) drops bookings that ended before it.
func (h *BookingHandler) Hosted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "hosted bookings", h.Schedule.HostedBookings)
}

// Invited lists the bookings a user attends, with only the rooms they sit in.
func (h *BookingHandler) Invited(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "invited bookings", h.Schedule.InvitedBookings)
}

type bookingLister func(ctx context.Context, userID int64, since time.Time) ([]domain.BookingDetail, error)

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, op string, fetch bookingLister) {
	userID, ok := pathID(w, r, "userID", "invalid user id")
	if !ok {
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	bookings, err := fetch(r.Context(), userID, since)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	res := dto.BookingListResponse{
		UserID:   userID,
		Bookings: make([]dto.BookingDetailResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		res.Bookings = append(res.Bookings, bookingDetailResponse(b))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func bookingDetailResponse(b domain.BookingDetail) dto.BookingDetailResponse {
	res := dto.BookingDetailResponse{
		BookingID:     b.ID,
		Organizer:     attendeeResponse(b.Organizer),
		Title:         b.Title,
		Start:         b.Window.Start,
		End:           b.Window.End(),
		LengthMinutes: int(b.Window.Duration / time.Minute),
		Active:        b.Active,
		Rooms:         make([]dto.BookedRoomResponse, 0, len(b.Rooms)),
	}
	for _, room := range b.Rooms {
		people := make([]dto.AttendeeResponse, 0, len(room.Attendees))
		for _, a := range room.Attendees {
			people = append(people, attendeeResponse(a))
		}
		res.Rooms = append(res.Rooms, dto.BookedRoomResponse{
			Room:         roomResponse(room.Room, 0),
			Participants: people,
		})
	}
	return res
}

func attendeeResponse(a domain.Attendee) dto.AttendeeResponse {
	return dto.AttendeeResponse{ID: a.ID, Name: a.Name, Email: a.Email}
}

// pathID parses a positive id from the named URL parameter, writing a 400
// with msg when it is missing or malformed.
func pathID(w http.ResponseWriter, r *http.Request, param, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

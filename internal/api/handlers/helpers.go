package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"meeting-placement-service/internal/api/dto"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v and validates it. It writes
// a 400 and returns false on any problem.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	if err := dto.Validate(v); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		kind := "ROOM_CONFLICT"
		if errors.Is(conflict.Kind, domain.ErrTimeConflict) {
			kind = "TIME_CONFLICT"
		}
		writeJSON(w, r, http.StatusConflict, dto.ConflictResponse{
			Error:                conflict.Kind.Error(),
			Type:                 kind,
			Cluster:              conflict.ClusterIndex + 1,
			RoomID:               conflict.RoomID,
			ParticipantIDs:       conflict.ParticipantIDs,
			ConflictingBookingID: conflict.Existing.ID,
		})
		return
	case errors.Is(err, domain.ErrNoAvailableRooms):
		writeError(w, r, http.StatusBadRequest, "no available rooms")
		return
	case errors.Is(err, domain.ErrUnknownParticipant), errors.Is(err, domain.ErrInvalidBooking):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrClusteringFailed):
		writeError(w, r, http.StatusUnprocessableEntity, "could not split participants into the requested number of rooms")
		return
	case errors.Is(err, domain.ErrLockTimeout):
		writeError(w, r, http.StatusServiceUnavailable, "booking system busy, try again")
		return
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, r, http.StatusNotFound, "booking not found")
		return
	}

	zap.L().Error(op+" failed",
		zap.String("req_id", obs.RequestID(r.Context())),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

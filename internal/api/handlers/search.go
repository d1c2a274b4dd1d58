package handlers

import (
	"context"
	"meeting-placement-service/internal/api/dto"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/services"
	"net/http"
	"time"
)

type Searcher interface {
	Search(ctx context.Context, req services.SearchRequest) (*services.SearchResult, error)
}

// SearchHandler exposes the room search.
type SearchHandler struct {
	Service Searcher
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Start.IsZero() {
		writeError(w, r, http.StatusBadRequest, "start is required")
		return
	}

	facilities := make([]domain.Facility, 0, len(req.Facilities))
	for _, f := range req.Facilities {
		facilities = append(facilities, domain.Facility(f))
	}

	result, err := h.Service.Search(r.Context(), services.SearchRequest{
		OrganizerID:    req.OrganizerID,
		ParticipantIDs: req.ParticipantIDs,
		NumClusters:    req.NumRooms,
		Facilities:     facilities,
		Window: domain.TimeWindow{
			Start:    req.Start,
			Duration: time.Duration(req.LengthMinutes) * time.Minute,
		},
	})
	if err != nil {
		writeServiceError(w, r, "search", err)
		return
	}

	res := dto.SearchResponse{
		NumRooms:         result.NumClusters,
		Facilities:       make([]string, 0, len(result.Facilities)),
		Clusters:         make([]dto.ClusterResponse, 0, len(result.Clusters)),
		ClusterGroups:    result.ClusterGroups(),
		UnavailableRooms: make([]dto.RoomResponse, 0, len(result.UnavailableRooms)),
	}
	for _, f := range result.Facilities {
		res.Facilities = append(res.Facilities, string(f))
	}
	for _, c := range result.Clusters {
		res.Clusters = append(res.Clusters, dto.ClusterResponse{
			Cluster:           c.Index,
			ParticipantIDs:    c.ParticipantIDs(),
			Emails:            c.Emails(),
			BuildingNumber:    c.BuildingNumber,
			OptimalFloor:      c.OptimalFloor,
			OptimalRooms:      candidateResponses(c.OptimalRooms),
			AllAvailableRooms: candidateResponses(c.AllAvailableRooms),
		})
	}
	for _, room := range result.UnavailableRooms {
		res.UnavailableRooms = append(res.UnavailableRooms, roomResponse(room, 0))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func candidateResponses(cs []domain.RoomCandidate) []dto.RoomResponse {
	out := make([]dto.RoomResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, roomResponse(c.Room, c.AvgDistance))
	}
	return out
}

func roomResponse(room domain.Room, avg float64) dto.RoomResponse {
	return dto.RoomResponse{
		RoomID:         room.ID,
		Name:           room.Name,
		RoomNumber:     room.RoomNumber,
		CityID:         room.CityID,
		BuildingNumber: room.BuildingNumber,
		Floor:          room.Floor,
		Capacity:       room.Capacity,
		Facility:       string(room.Facility),
		Active:         room.Active,
		AvgDistance:    avg,
	}
}

package ports

import (
	"context"
	"meeting-placement-service/internal/domain"
)

// Filter for available-room lookups. Empty slices mean "no restriction".
type RoomQuery struct {
	CityIDs         []int64
	BuildingNumbers []int
	MinCapacity     int
	Facilities      []domain.Facility
	Window          domain.TimeWindow
}

// Port: meeting room availability.
type RoomRepository interface {
	// Return active rooms matching q with no active booking overlapping q.Window.
	GetAvailableRooms(ctx context.Context, q RoomQuery) ([]domain.Room, error)
	// Return rooms in the cities that are inactive or booked during window.
	GetUnavailableRooms(ctx context.Context, cityIDs []int64, window domain.TimeWindow) ([]domain.Room, error)
}

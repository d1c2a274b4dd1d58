package ports

import (
	"context"
	"meeting-placement-service/internal/domain"
)

// Port: source of building coordinates used to build per-city distance graphs.
type BuildingRepository interface {
	// Return every building of a city with its coordinates.
	GetBuildingCoordinates(ctx context.Context, cityID int64) ([]domain.Building, error)
}

package ports

import (
	"context"
	"meeting-placement-service/internal/domain"
)

// Port: resolves participants to their building, floor, city and coordinates.
type ParticipantRepository interface {
	// Return the locations of the given active participants. Unknown ids are omitted.
	GetParticipantLocations(ctx context.Context, ids []int64) ([]domain.Participant, error)
}

package ports

import "meeting-placement-service/internal/domain"

// Memoizes building-to-building distances. Implementations key entries by
// the unordered building pair and must treat a coordinate change on either
// building as a miss.
type DistanceCache interface {
	Get(a, b domain.Building) (float64, bool)
	Put(a, b domain.Building, meters float64)
}

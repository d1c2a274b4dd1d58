package services

import (
	"cmp"
	"math"
	"meeting-placement-service/internal/domain"
	"slices"
)

// Meters added per floor when ranking rooms.
const DefaultFloorPenaltyMeters = 3.0

// FindOptimalFloor returns the group's ideal floor in a building of a city:
// the mean of each participant's floor if they work there, or 1 if they do
// not, truncated to an integer.
func FindOptimalFloor(cityID int64, buildingNumber int, participants []domain.Participant) int {
	if len(participants) == 0 {
		return 0
	}

	total := 0
	for _, p := range participants {
		if p.InBuilding(cityID, buildingNumber) {
			total += p.Floor
		} else {
			total++
		}
	}
	return total / len(participants)
}

// RankRoomsByFloor sorts rooms in place by closeness of their floor to the
// optimal floor. Rooms equally close keep their relative order.
func RankRoomsByFloor(optimalFloor int, rooms []domain.RoomCandidate) {
	slices.SortStableFunc(rooms, func(a, b domain.RoomCandidate) int {
		return cmp.Compare(absInt(optimalFloor-a.Floor), absInt(optimalFloor-b.Floor))
	})
}

// RoomAverageDistance is the mean distance (meters, rounded to 2 decimals) the
// participants travel to the room. Participants in the room's building pay
// the floor difference; others pay the building's travel cost plus both
// floors.
func RoomAverageDistance(
	room domain.Room,
	buildingCost float64,
	participants []domain.Participant,
	floorPenalty float64,
) float64 {
	if len(participants) == 0 {
		return 0
	}

	total := 0.0
	for _, p := range participants {
		if p.InBuilding(room.CityID, room.BuildingNumber) {
			total += float64(absInt(room.Floor-p.Floor)) * floorPenalty
		} else {
			total += buildingCost +
				float64(room.Floor)*floorPenalty +
				float64(p.Floor)*floorPenalty
		}
	}
	return math.Round(total/float64(len(participants))*100) / 100
}

// SortByAvgDistance sorts candidates in place by ascending average distance,
// keeping input order among equals.
func SortByAvgDistance(rooms []domain.RoomCandidate) {
	slices.SortStableFunc(rooms, func(a, b domain.RoomCandidate) int {
		return cmp.Compare(a.AvgDistance, b.AvgDistance)
	})
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

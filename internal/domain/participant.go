package domain

// A meeting participant resolved to the building and floor they work on.
type Participant struct {
	ID             int64
	Name           string
	Email          string
	BuildingNumber int
	Floor          int
	CityID         int64
	Coordinates    Coordinates
}

// Demands aggregates participants into per-building headcounts, ordered by
// first appearance. Buildings with the same number in different cities are
// counted apart.
func Demands(participants []Participant) []BuildingDemand {
	type key struct {
		city     int64
		building int
	}
	index := make(map[key]int, len(participants))
	out := make([]BuildingDemand, 0, len(participants))
	for _, p := range participants {
		k := key{p.CityID, p.BuildingNumber}
		if i, ok := index[k]; ok {
			out[i].Headcount++
			continue
		}
		index[k] = len(out)
		out = append(out, BuildingDemand{CityID: p.CityID, BuildingNumber: p.BuildingNumber, Headcount: 1})
	}
	return out
}

// InBuilding reports whether the participant works in the given building.
func (p Participant) InBuilding(cityID int64, buildingNumber int) bool {
	return p.CityID == cityID && p.BuildingNumber == buildingNumber
}

// Cities returns the distinct city ids of the participants in first-seen order.
func Cities(participants []Participant) []int64 {
	seen := make(map[int64]struct{}, 4)
	out := make([]int64, 0, 4)
	for _, p := range participants {
		if _, ok := seen[p.CityID]; ok {
			continue
		}
		seen[p.CityID] = struct{}{}
		out = append(out, p.CityID)
	}
	return out
}

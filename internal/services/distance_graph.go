package services

import (
	"cmp"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/ports"
	"slices"
)

// UnknownBuildingCost is the travel cost reported for buildings missing from
// a graph. It is large but finite so sums and averages stay well defined.
const UnknownBuildingCost = 10_000_000.0

// DistanceGraph is an undirected weighted graph of the buildings of one city.
// Distances are in meters. Buildings keep their insertion order, which is
// the tie-break order of RankBuildings.
type DistanceGraph struct {
	city      int64
	order     []int
	distances map[int]map[int]float64
}

func NewDistanceGraph(buildings ...int) *DistanceGraph {
	g := &DistanceGraph{distances: make(map[int]map[int]float64, len(buildings))}
	for _, b := range buildings {
		g.addBuilding(b)
	}
	return g
}

func (g *DistanceGraph) addBuilding(b int) {
	if _, ok := g.distances[b]; ok {
		return
	}
	g.order = append(g.order, b)
	g.distances[b] = map[int]float64{b: 0}
}

// AddDistance records the distance in both directions, adding either building
// to the graph if needed. A building's distance to itself is always 0.
func (g *DistanceGraph) AddDistance(b1, b2 int, meters float64) {
	g.addBuilding(b1)
	g.addBuilding(b2)
	if b1 == b2 {
		return
	}
	g.distances[b1][b2] = meters
	g.distances[b2][b1] = meters
}

// City returns the id of the city the graph covers.
func (g *DistanceGraph) City() int64 { return g.city }

// Has reports whether the building is a node of the graph.
func (g *DistanceGraph) Has(b int) bool {
	_, ok := g.distances[b]
	return ok
}

// Buildings returns the graph's buildings in insertion order.
func (g *DistanceGraph) Buildings() []int {
	return slices.Clone(g.order)
}

// Distance returns the stored distance between two buildings.
func (g *DistanceGraph) Distance(a, b int) (float64, bool) {
	row, ok := g.distances[a]
	if !ok {
		return 0, false
	}
	d, ok := row[b]
	return d, ok
}

// TravelCost returns the total distance every participant travels to reach
// the meeting building: Σ distance × headcount.
//
// An unknown meeting building costs UnknownBuildingCost. A demand building
// without a known distance, including any building of another city, adds
// UnknownBuildingCost once and ends the sum.
func (g *DistanceGraph) TravelCost(meeting int, demands []domain.BuildingDemand) float64 {
	row, ok := g.distances[meeting]
	if !ok {
		return UnknownBuildingCost
	}

	total := 0.0
	for _, d := range demands {
		if d.CityID != g.city {
			total += UnknownBuildingCost
			break
		}
		if d.BuildingNumber == meeting {
			continue
		}
		dist, ok := row[d.BuildingNumber]
		if !ok {
			total += UnknownBuildingCost
			break
		}
		total += dist * float64(d.Headcount)
	}
	return total
}

// Travel cost of holding a meeting in one building.
type BuildingCost struct {
	BuildingNumber int
	Cost           float64
}

// RankBuildings orders candidates by ascending travel cost. Candidates with
// equal cost keep their input order.
func (g *DistanceGraph) RankBuildings(candidates []int, demands []domain.BuildingDemand) []BuildingCost {
	ranked := make([]BuildingCost, 0, len(candidates))
	for _, b := range candidates {
		ranked = append(ranked, BuildingCost{BuildingNumber: b, Cost: g.TravelCost(b, demands)})
	}

	slices.SortStableFunc(ranked, func(a, b BuildingCost) int {
		return cmp.Compare(a.Cost, b.Cost)
	})
	return ranked
}

// BuildCityGraph builds the full pairwise graph for the buildings of one
// city. Buildings are added in input order. A nil cache computes every
// distance.
func BuildCityGraph(cityID int64, buildings []domain.Building, distanceCache ports.DistanceCache) *DistanceGraph {
	g := NewDistanceGraph()
	g.city = cityID
	for _, b := range buildings {
		g.addBuilding(b.Number)
	}

	for i, src := range buildings {
		for _, dst := range buildings[i+1:] {
			if src.Number == dst.Number {
				continue
			}
			g.AddDistance(src.Number, dst.Number, pairDistance(src, dst, distanceCache))
		}
	}
	return g
}

func pairDistance(a, b domain.Building, distanceCache ports.DistanceCache) float64 {
	if distanceCache != nil {
		if d, ok := distanceCache.Get(a, b); ok {
			return d
		}
	}

	d := a.Coordinates.DistanceMeters(b.Coordinates)
	if distanceCache != nil {
		distanceCache.Put(a, b, d)
	}
	return d
}

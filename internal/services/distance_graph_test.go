package services

import (
	"meeting-placement-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceGraphSymmetricAndSelfZero(t *testing.T) {
	g := NewDistanceGraph()
	g.AddDistance(1, 2, 500)
	g.AddDistance(3, 3, 99)

	d12, ok := g.Distance(1, 2)
	require.True(t, ok)
	d21, ok := g.Distance(2, 1)
	require.True(t, ok)
	assert.Equal(t, 500.0, d12)
	assert.Equal(t, d12, d21)

	d33, ok := g.Distance(3, 3)
	require.True(t, ok)
	assert.Zero(t, d33)

	assert.Equal(t, []int{1, 2, 3}, g.Buildings())
	assert.True(t, g.Has(3))
	assert.False(t, g.Has(4))
}

func TestTravelCost(t *testing.T) {
	g := NewDistanceGraph(1, 2, 3)
	g.AddDistance(1, 2, 100)
	g.AddDistance(1, 3, 300)
	g.AddDistance(2, 3, 250)

	demands := []domain.BuildingDemand{
		{BuildingNumber: 1, Headcount: 2},
		{BuildingNumber: 2, Headcount: 3},
	}

	assert.Equal(t, 300.0, g.TravelCost(1, demands))
	assert.Equal(t, 200.0, g.TravelCost(2, demands))
	assert.Equal(t, 300.0*2+250*3, g.TravelCost(3, demands))
}

func TestTravelCostUnknownBuildings(t *testing.T) {
	g := NewDistanceGraph(1, 2)
	g.AddDistance(1, 2, 100)

	t.Run("unknown meeting building", func(t *testing.T) {
		cost := g.TravelCost(9, []domain.BuildingDemand{{BuildingNumber: 1, Headcount: 1}})
		assert.Equal(t, UnknownBuildingCost, cost)
	})

	t.Run("unknown demand building stops the sum", func(t *testing.T) {
		demands := []domain.BuildingDemand{
			{BuildingNumber: 2, Headcount: 1},
			{BuildingNumber: 7, Headcount: 4},
			{BuildingNumber: 2, Headcount: 5},
		}
		assert.Equal(t, 100+UnknownBuildingCost, g.TravelCost(1, demands))
	})
}

func TestTravelCostOtherCityIsUnknown(t *testing.T) {
	g := BuildCityGraph(1, []domain.Building{
		{CityID: 1, Number: 1, Coordinates: domain.Coordinates{Lat: 47.6205, Lon: -122.3493}},
		{CityID: 1, Number: 2, Coordinates: domain.Coordinates{Lat: 47.6231, Lon: -122.3370}},
	}, nil)
	near, ok := g.Distance(1, 2)
	require.True(t, ok)

	demands := []domain.BuildingDemand{
		{CityID: 1, BuildingNumber: 2, Headcount: 1},
		{CityID: 2, BuildingNumber: 1, Headcount: 3},
	}
	assert.InDelta(t, near+UnknownBuildingCost, g.TravelCost(1, demands), 1e-6,
		"building 1 of city 2 is not building 1 of city 1")
	assert.Equal(t, UnknownBuildingCost, g.TravelCost(2, demands))
}

func TestRankBuildingsStable(t *testing.T) {
	g := NewDistanceGraph(1, 2, 3)
	g.AddDistance(1, 2, 100)
	g.AddDistance(1, 3, 100)
	g.AddDistance(2, 3, 50)

	// Demand only in building 1: buildings 2 and 3 tie at 100.
	demands := []domain.BuildingDemand{{BuildingNumber: 1, Headcount: 1}}

	ranked := g.RankBuildings([]int{3, 2, 1}, demands)
	require.Len(t, ranked, 3)
	assert.Equal(t, BuildingCost{BuildingNumber: 1, Cost: 0}, ranked[0])
	assert.Equal(t, 3, ranked[1].BuildingNumber)
	assert.Equal(t, 2, ranked[2].BuildingNumber)
}

type countingCache struct {
	memo map[[2]int]float64
	gets int
	hits int
}

func (c *countingCache) key(a, b domain.Building) [2]int {
	if b.Number < a.Number {
		a, b = b, a
	}
	return [2]int{a.Number, b.Number}
}

func (c *countingCache) Get(a, b domain.Building) (float64, bool) {
	c.gets++
	d, ok := c.memo[c.key(a, b)]
	if ok {
		c.hits++
	}
	return d, ok
}

func (c *countingCache) Put(a, b domain.Building, meters float64) {
	c.memo[c.key(a, b)] = meters
}

func TestBuildCityGraphUsesCache(t *testing.T) {
	buildings := []domain.Building{
		{CityID: 1, Number: 1, Coordinates: domain.Coordinates{Lat: 47.6205, Lon: -122.3493}},
		{CityID: 1, Number: 2, Coordinates: domain.Coordinates{Lat: 47.6231, Lon: -122.3370}},
		{CityID: 1, Number: 3, Coordinates: domain.Coordinates{Lat: 47.6154, Lon: -122.3387}},
	}
	c := &countingCache{memo: map[[2]int]float64{}}

	first := BuildCityGraph(1, buildings, c)
	second := BuildCityGraph(1, buildings, c)

	assert.Equal(t, 6, c.gets)
	assert.Equal(t, 3, c.hits)
	assert.Equal(t, []int{1, 2, 3}, first.Buildings())
	assert.Equal(t, int64(1), first.City())

	want := buildings[0].Coordinates.DistanceMeters(buildings[1].Coordinates)
	for _, g := range []*DistanceGraph{first, second} {
		d, ok := g.Distance(2, 1)
		require.True(t, ok)
		assert.InDelta(t, want, d, 1e-9)
	}
}

func TestBuildCityGraphWithoutCache(t *testing.T) {
	g := BuildCityGraph(0, []domain.Building{{Number: 4}}, nil)
	assert.Equal(t, []int{4}, g.Buildings())
	assert.Zero(t, g.TravelCost(4, []domain.BuildingDemand{{BuildingNumber: 4, Headcount: 3}}))
}

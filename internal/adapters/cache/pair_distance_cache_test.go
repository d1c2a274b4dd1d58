package cache

import (
	"meeting-placement-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func building(city int64, number int, lat, lon float64) domain.Building {
	return domain.Building{CityID: city, Number: number, Coordinates: domain.Coordinates{Lat: lat, Lon: lon}}
}

func TestPairDistanceCacheUnordered(t *testing.T) {
	c := NewPairDistanceCache(8)
	a := building(1, 1, 47.61, -122.34)
	b := building(1, 2, 47.62, -122.33)

	_, ok := c.Get(a, b)
	assert.False(t, ok)

	c.Put(b, a, 1234.5)
	got, ok := c.Get(a, b)
	assert.True(t, ok)
	assert.Equal(t, 1234.5, got)
	assert.Equal(t, 1, c.Len())
}

func TestPairDistanceCacheKeysByCity(t *testing.T) {
	c := NewPairDistanceCache(8)
	c.Put(building(1, 1, 0, 0), building(1, 2, 0, 1), 10)

	_, ok := c.Get(building(2, 1, 0, 0), building(2, 2, 0, 1))
	assert.False(t, ok)
}

func TestPairDistanceCacheMovedBuildingMisses(t *testing.T) {
	c := NewPairDistanceCache(8)
	a := building(1, 1, 47.61, -122.34)
	b := building(1, 2, 47.62, -122.33)
	c.Put(a, b, 100)

	moved := building(1, 2, 47.70, -122.33)
	_, ok := c.Get(a, moved)
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "stale entry is dropped")

	c.Put(a, moved, 200)
	got, ok := c.Get(moved, a)
	assert.True(t, ok)
	assert.Equal(t, 200.0, got)
}

func TestPairDistanceCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewPairDistanceCache(2)
	b1 := building(1, 1, 0, 0)
	b2 := building(1, 2, 0, 1)
	b3 := building(1, 3, 0, 2)

	c.Put(b1, b2, 1)
	c.Put(b1, b3, 2)
	_, _ = c.Get(b1, b2)
	c.Put(b2, b3, 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(b1, b3)
	assert.False(t, ok, "least recently used pair is evicted")
	_, ok = c.Get(b1, b2)
	assert.True(t, ok)
	_, ok = c.Get(b2, b3)
	assert.True(t, ok)
}

func TestNewPairDistanceCacheDefaultSize(t *testing.T) {
	c := NewPairDistanceCache(0)
	assert.Equal(t, DefaultPairCacheSize, c.size)
}

func TestPairDistanceCacheOverwriteKeepsOneEntry(t *testing.T) {
	c := NewPairDistanceCache(2)
	a := building(1, 1, 0, 0)
	b := building(1, 2, 0, 1)

	c.Put(a, b, 1)
	c.Put(b, a, 5)

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get(a, b)
	assert.True(t, ok)
	assert.Equal(t, 5.0, got)
}

package cache

import (
	"meeting-placement-service/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultPairCacheSize = 4096

type pairKey struct {
	city int64
	lo   int
	hi   int
}

type pairEntry struct {
	loCoords domain.Coordinates
	hiCoords domain.Coordinates
	meters   float64
}

// PairDistanceCache is a bounded LRU memo of building-to-building distances.
// Entries are keyed by city and the unordered building pair; an entry whose
// stored coordinates differ from the lookup's is treated as a miss.
type PairDistanceCache struct {
	size    int
	entries *lru.Cache[pairKey, pairEntry]
}

func NewPairDistanceCache(size int) *PairDistanceCache {
	if size <= 0 {
		size = DefaultPairCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[pairKey, pairEntry](size)
	return &PairDistanceCache{size: size, entries: entries}
}

// normalize orders a pair so (a, b) and (b, a) share a key.
func normalize(a, b domain.Building) (pairKey, domain.Coordinates, domain.Coordinates) {
	if b.Number < a.Number {
		a, b = b, a
	}
	return pairKey{city: a.CityID, lo: a.Number, hi: b.Number}, a.Coordinates, b.Coordinates
}

func (c *PairDistanceCache) Get(a, b domain.Building) (float64, bool) {
	key, loCoords, hiCoords := normalize(a, b)

	e, ok := c.entries.Get(key)
	if !ok {
		return 0, false
	}
	if !e.loCoords.Same(loCoords) || !e.hiCoords.Same(hiCoords) {
		c.entries.Remove(key)
		return 0, false
	}
	return e.meters, true
}

func (c *PairDistanceCache) Put(a, b domain.Building, meters float64) {
	key, loCoords, hiCoords := normalize(a, b)
	c.entries.Add(key, pairEntry{loCoords: loCoords, hiCoords: hiCoords, meters: meters})
}

func (c *PairDistanceCache) Len() int {
	return c.entries.Len()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"meeting-placement-service/internal/domain"
)

const (
	// Floor penalty in kilometer units used while clustering.
	DefaultHeightMultiplier = 0.003
	// Reseed attempts before clustering gives up.
	DefaultMaxRestarts = 100
	// Iteration cap per cluster requested.
	iterationsPerCluster = 50
)

// A point in clustering space: building location plus floor.
type ClusterPoint struct {
	Coordinates domain.Coordinates
	Floor       float64
}

// Clusterer partitions participants with a k-means++ style heuristic over
// (latitude, longitude, floor).
//
// The run is not guaranteed to converge: it stops after numClusters*50
// iterations and keeps whatever assignment it has. When the final pass
// leaves a cluster empty, the whole run is discarded and reseeded, at most
// MaxRestarts times.
type Clusterer struct {
	HeightMultiplier float64
	MaxRestarts      int
	// Rand drives seeding and must not be shared by concurrent calls. A nil
	// Rand uses the global source.
	Rand *rand.Rand
	// OnRestart, when set, is called every time a run is discarded.
	OnRestart func(attempt int)
}

func NewClusterer(heightMultiplier float64, maxRestarts int, rng *rand.Rand) *Clusterer {
	return &Clusterer{
		HeightMultiplier: heightMultiplier,
		MaxRestarts:      maxRestarts,
		Rand:             rng,
	}
}

// Cluster assigns every point to one of numClusters clusters and returns the
// 0-based cluster index per point. Every cluster is non-empty.
func (c *Clusterer) Cluster(ctx context.Context, points []ClusterPoint, numClusters int) ([]int, error) {
	if numClusters < 1 {
		return nil, fmt.Errorf("cluster participants: numClusters must be at least 1, got %d", numClusters)
	}
	if len(points) == 0 {
		return nil, errors.New("cluster participants: no participants")
	}
	if numClusters > len(points) {
		return nil, fmt.Errorf(
			"cluster participants: %w: %d clusters requested for %d participants",
			domain.ErrClusteringFailed, numClusters, len(points),
		)
	}

	maxRestarts := c.MaxRestarts
	if maxRestarts < 1 {
		maxRestarts = DefaultMaxRestarts
	}

	for attempt := 0; attempt <= maxRestarts; attempt++ {
		if attempt > 0 && c.OnRestart != nil {
			c.OnRestart(attempt)
		}

		assignments, err := c.run(ctx, points, numClusters)
		if err != nil {
			return nil, fmt.Errorf("cluster participants: %w", err)
		}
		if allNonEmpty(assignments, numClusters) {
			return assignments, nil
		}
	}

	return nil, fmt.Errorf(
		"cluster participants: %w: a cluster stayed empty after %d restarts",
		domain.ErrClusteringFailed, maxRestarts,
	)
}

// run performs one seeding, iteration and final assignment pass.
func (c *Clusterer) run(ctx context.Context, points []ClusterPoint, numClusters int) ([]int, error) {
	centroids := c.seed(points, numClusters)

	maxIterations := numClusters * iterationsPerCluster
	for iter := 0; iter < maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assignments := c.assignNearest(points, centroids)
		next := recomputeCentroids(points, assignments, centroids)
		converged := sameCentroids(centroids, next)
		centroids = next
		if converged {
			break
		}
	}

	return c.assignBalanced(points, centroids), nil
}

// distance between a point and a centroid. Points sharing exact coordinates
// compare by floor difference; otherwise both floors are added on top of
// the ground distance, the same asymmetry RoomAverageDistance has.
func (c *Clusterer) distance(a, b ClusterPoint) float64 {
	if a.Coordinates.Same(b.Coordinates) {
		return math.Abs(a.Floor-b.Floor) * c.HeightMultiplier
	}
	return a.Coordinates.DistanceKm(b.Coordinates) +
		a.Floor*c.HeightMultiplier +
		b.Floor*c.HeightMultiplier
}

func (c *Clusterer) randFloat() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return rand.Float64()
}

func (c *Clusterer) randIntN(n int) int {
	if c.Rand != nil {
		return c.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// seed picks the first centroid uniformly and each next one with probability
// proportional to the distance to its nearest chosen centroid.
func (c *Clusterer) seed(points []ClusterPoint, numClusters int) []ClusterPoint {
	centroids := make([]ClusterPoint, 0, numClusters)
	centroids = append(centroids, points[c.randIntN(len(points))])

	closest := make([]float64, len(points))
	for len(centroids) < numClusters {
		sum := 0.0
		for i, p := range points {
			closest[i] = c.nearestDistance(p, centroids)
			sum += closest[i]
		}

		target := c.randFloat() * sum
		idx := 0
		if target == 0 {
			idx++
		}
		for target > 0 && idx < len(points) {
			target -= closest[idx]
			idx++
		}
		centroids = append(centroids, points[idx-1])
	}
	return centroids
}

func (c *Clusterer) nearestDistance(p ClusterPoint, centroids []ClusterPoint) float64 {
	best := math.Inf(1)
	for _, centroid := range centroids {
		best = math.Min(best, c.distance(p, centroid))
	}
	return best
}

// assignNearest maps each point to its nearest centroid. Ties go to the
// first centroid in list order.
func (c *Clusterer) assignNearest(points []ClusterPoint, centroids []ClusterPoint) []int {
	assignments := make([]int, len(points))
	for i, p := range points {
		best := 0
		bestDist := math.Inf(1)
		for k, centroid := range centroids {
			if d := c.distance(p, centroid); d < bestDist {
				best, bestDist = k, d
			}
		}
		assignments[i] = best
	}
	return assignments
}

// assignBalanced is the final pass. Among equally near centroids it picks the
// one holding the fewest points so far.
func (c *Clusterer) assignBalanced(points []ClusterPoint, centroids []ClusterPoint) []int {
	assignments := make([]int, len(points))
	counts := make([]int, len(centroids))
	dists := make([]float64, len(centroids))

	for i, p := range points {
		minDist := math.Inf(1)
		for k, centroid := range centroids {
			dists[k] = c.distance(p, centroid)
			minDist = math.Min(minDist, dists[k])
		}

		chosen := -1
		for k, d := range dists {
			if d != minDist {
				continue
			}
			if chosen == -1 || counts[k] < counts[chosen] {
				chosen = k
			}
		}

		counts[chosen]++
		assignments[i] = chosen
	}
	return assignments
}

// recomputeCentroids moves every centroid to the mean of its points. A
// centroid without points stays where it was.
func recomputeCentroids(points []ClusterPoint, assignments []int, prev []ClusterPoint) []ClusterPoint {
	n := len(prev)
	sums := make([]ClusterPoint, n)
	counts := make([]int, n)
	for i, p := range points {
		k := assignments[i]
		sums[k].Coordinates.Lat += p.Coordinates.Lat
		sums[k].Coordinates.Lon += p.Coordinates.Lon
		sums[k].Floor += p.Floor
		counts[k]++
	}

	next := make([]ClusterPoint, n)
	for k := range next {
		if counts[k] == 0 {
			next[k] = prev[k]
			continue
		}
		cnt := float64(counts[k])
		next[k] = ClusterPoint{
			Coordinates: domain.Coordinates{
				Lat: sums[k].Coordinates.Lat / cnt,
				Lon: sums[k].Coordinates.Lon / cnt,
			},
			Floor: sums[k].Floor / cnt,
		}
	}
	return next
}

// sameCentroids compares exactly; there is no tolerance.
func sameCentroids(a, b []ClusterPoint) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allNonEmpty(assignments []int, numClusters int) bool {
	counts := make([]int, numClusters)
	for _, k := range assignments {
		counts[k]++
	}
	for _, n := range counts {
		if n == 0 {
			return false
		}
	}
	return true
}

// PointsFor converts participants to clustering points.
func PointsFor(participants []domain.Participant) []ClusterPoint {
	points := make([]ClusterPoint, len(participants))
	for i, p := range participants {
		points[i] = ClusterPoint{Coordinates: p.Coordinates, Floor: float64(p.Floor)}
	}
	return points
}

package services

import (
	"context"
	"errors"
	"fmt"
	"meeting-placement-service/internal/domain"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SearchRequest struct {
	OrganizerID    int64
	ParticipantIDs []int64
	NumClusters    int
	Facilities     []domain.Facility
	Window         domain.TimeWindow
}

// The rooms found for one group of participants.
type ClusterResult struct {
	// 1-based cluster number.
	Index        int
	Participants []domain.Participant
	// Building whose rooms make up OptimalRooms.
	BuildingNumber int
	BuildingCost   float64
	OptimalFloor   int
	// Rooms of the chosen building, closest to the optimal floor first.
	OptimalRooms []domain.RoomCandidate
	// Every free room in the group's cities, nearest first.
	AllAvailableRooms []domain.RoomCandidate
}

func (c ClusterResult) Emails() []string {
	out := make([]string, len(c.Participants))
	for i, p := range c.Participants {
		out[i] = p.Email
	}
	return out
}

func (c ClusterResult) ParticipantIDs() []int64 {
	out := make([]int64, len(c.Participants))
	for i, p := range c.Participants {
		out[i] = p.ID
	}
	return out
}

type SearchResult struct {
	Clusters []ClusterResult
	// Rooms in any participant city that are inactive or already booked.
	UnavailableRooms []domain.Room
	// Effective filters after normalization and the multi-city override.
	NumClusters int
	Facilities  []domain.Facility
}

func (r SearchResult) OptimalRooms() [][]domain.RoomCandidate {
	out := make([][]domain.RoomCandidate, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = c.OptimalRooms
	}
	return out
}

func (r SearchResult) AllAvailableRooms() [][]domain.RoomCandidate {
	out := make([][]domain.RoomCandidate, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = c.AllAvailableRooms
	}
	return out
}

func (r SearchResult) ClusterGroups() [][]string {
	out := make([][]string, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = c.Emails()
	}
	return out
}

// SearchService finds meeting rooms for a set of participants: it splits them
// into groups, then picks the building with the lowest travel cost that still
// has a free room for each group.
type SearchService struct {
	Participants ports.ParticipantRepository
	Buildings    ports.BuildingRepository
	Rooms        ports.RoomRepository
	Clusterer    *Clusterer
	// Optional memo for building distances.
	DistanceCache ports.DistanceCache
	FloorPenalty  float64
	Logger        *zap.Logger
	Metrics       *obs.Metrics
}

func (s *SearchService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.L()
}

// Search returns ranked rooms per participant group. It fails with
// domain.ErrNoAvailableRooms when any group has no room at all, and with
// domain.ErrClusteringFailed when the participants cannot be split into the
// requested number of groups.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (_ *SearchResult, err error) {
	defer obs.Time(ctx, "search.Search")(&err)

	start := time.Now()
	defer func() { s.Metrics.Search(searchOutcome(err), time.Since(start).Seconds()) }()

	if req.NumClusters < 1 {
		return nil, fmt.Errorf("search: num_clusters must be at least 1, got %d", req.NumClusters)
	}
	if req.Window.Duration <= 0 {
		return nil, errors.New("search: duration must be positive")
	}

	ids := withOrganizer(req.ParticipantIDs, req.OrganizerID)
	participants, err := s.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	cities := domain.Cities(participants)
	numClusters := req.NumClusters
	facilities := NormalizeFacilities(req.Facilities)
	if len(cities) > 1 {
		numClusters = max(numClusters, len(cities))
		facilities = RemoteFacilities()
	}

	clusterer := s.Clusterer
	if clusterer == nil {
		clusterer = NewClusterer(DefaultHeightMultiplier, DefaultMaxRestarts, nil)
	}
	assignments, err := clusterer.Cluster(ctx, PointsFor(participants), numClusters)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	groups := make([][]domain.Participant, numClusters)
	for i, k := range assignments {
		groups[k] = append(groups[k], participants[i])
	}

	graphs, err := s.cityGraphs(ctx, cities)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Clusters:    make([]ClusterResult, numClusters),
		NumClusters: numClusters,
		Facilities:  facilities,
	}

	g, gctx := errgroup.WithContext(ctx)
	for k, group := range groups {
		g.Go(func() error {
			cr, err := s.searchCluster(gctx, group, graphs[group[0].CityID], facilities, req.Window)
			if err != nil {
				return fmt.Errorf("search: cluster %d: %w", k+1, err)
			}
			cr.Index = k + 1
			result.Clusters[k] = cr
			return nil
		})
	}
	g.Go(func() error {
		rooms, err := s.Rooms.GetUnavailableRooms(gctx, cities, req.Window)
		if err != nil {
			return fmt.Errorf("search: unavailable rooms: %w", err)
		}
		result.UnavailableRooms = rooms
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger().Info("search done",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.Int("participants", len(participants)),
		zap.Int("clusters", numClusters),
		zap.Int("cities", len(cities)),
	)
	return result, nil
}

// withOrganizer appends the organizer and drops duplicate ids, keeping first
// occurrences in order.
func withOrganizer(ids []int64, organizer int64) []int64 {
	seen := make(map[int64]struct{}, len(ids)+1)
	out := make([]int64, 0, len(ids)+1)
	for _, id := range append(append([]int64{}, ids...), organizer) {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// loadParticipants resolves ids and returns participants in request order.
func (s *SearchService) loadParticipants(ctx context.Context, ids []int64) ([]domain.Participant, error) {
	if len(ids) == 0 {
		return nil, errors.New("search: no participants")
	}

	found, err := s.Participants.GetParticipantLocations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search: participant locations: %w", err)
	}

	byID := make(map[int64]domain.Participant, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]domain.Participant, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("search: %w: %v", domain.ErrUnknownParticipant, missing)
	}
	return out, nil
}

func (s *SearchService) cityGraphs(ctx context.Context, cities []int64) (map[int64]*DistanceGraph, error) {
	graphs := make(map[int64]*DistanceGraph, len(cities))
	for _, city := range cities {
		buildings, err := s.Buildings.GetBuildingCoordinates(ctx, city)
		if err != nil {
			return nil, fmt.Errorf("search: building coordinates for city %d: %w", city, err)
		}
		graphs[city] = BuildCityGraph(city, buildings, s.DistanceCache)
	}
	return graphs, nil
}

func (s *SearchService) floorPenalty() float64 {
	if s.FloorPenalty > 0 {
		return s.FloorPenalty
	}
	return DefaultFloorPenaltyMeters
}

// searchCluster picks the cheapest building of the graph's city with a free
// room for the group and ranks its rooms, then lists every free room in the
// group's cities.
func (s *SearchService) searchCluster(
	ctx context.Context,
	group []domain.Participant,
	graph *DistanceGraph,
	facilities []domain.Facility,
	window domain.TimeWindow,
) (ClusterResult, error) {
	demands := domain.Demands(group)
	cities := domain.Cities(group)
	ranked := graph.RankBuildings(graph.Buildings(), demands)
	penalty := s.floorPenalty()

	cr := ClusterResult{Participants: group, BuildingNumber: -1}
	for _, bc := range ranked {
		rooms, err := s.Rooms.GetAvailableRooms(ctx, ports.RoomQuery{
			CityIDs:         []int64{graph.City()},
			BuildingNumbers: []int{bc.BuildingNumber},
			MinCapacity:     len(group),
			Facilities:      facilities,
			Window:          window,
		})
		if err != nil {
			return ClusterResult{}, fmt.Errorf("available rooms in building %d: %w", bc.BuildingNumber, err)
		}
		if len(rooms) == 0 {
			continue
		}

		cr.BuildingNumber = bc.BuildingNumber
		cr.BuildingCost = bc.Cost
		cr.OptimalRooms = make([]domain.RoomCandidate, len(rooms))
		for i, room := range rooms {
			cr.OptimalRooms[i] = domain.RoomCandidate{
				Room:        room,
				AvgDistance: RoomAverageDistance(room, bc.Cost, group, penalty),
			}
		}
		break
	}
	if cr.BuildingNumber == -1 {
		return ClusterResult{}, domain.ErrNoAvailableRooms
	}

	cr.OptimalFloor = FindOptimalFloor(graph.City(), cr.BuildingNumber, group)
	RankRoomsByFloor(cr.OptimalFloor, cr.OptimalRooms)

	all, err := s.Rooms.GetAvailableRooms(ctx, ports.RoomQuery{CityIDs: cities, Window: window})
	if err != nil {
		return ClusterResult{}, fmt.Errorf("all available rooms: %w", err)
	}

	costs := make(map[int]float64, len(ranked))
	for _, bc := range ranked {
		costs[bc.BuildingNumber] = bc.Cost
	}
	cr.AllAvailableRooms = make([]domain.RoomCandidate, len(all))
	for i, room := range all {
		cost, ok := costs[room.BuildingNumber]
		if !ok || room.CityID != graph.City() {
			cost = UnknownBuildingCost
		}
		cr.AllAvailableRooms[i] = domain.RoomCandidate{
			Room:        room,
			AvgDistance: RoomAverageDistance(room, cost, group, penalty),
		}
	}
	SortByAvgDistance(cr.AllAvailableRooms)

	return cr, nil
}

func searchOutcome(err error) string {
	switch {
	case err == nil:
		return obs.OutcomeOK
	case errors.Is(err, domain.ErrNoAvailableRooms):
		return obs.OutcomeNoRooms
	case errors.Is(err, domain.ErrClusteringFailed):
		return obs.OutcomeClusterFailed
	default:
		return obs.OutcomeError
	}
}

package domain

// Facility tag attached to a meeting room.
type Facility string

const (
	FacilityNone Facility = "N/A"
	FacilityAV   Facility = "AV"
	FacilityVC   Facility = "VC"
	FacilityAVVC Facility = "AV/VC"
)

// Valid reports whether f is one of the known facility tags.
func (f Facility) Valid() bool {
	switch f {
	case FacilityNone, FacilityAV, FacilityVC, FacilityAVVC:
		return true
	}
	return false
}

// A bookable meeting room.
type Room struct {
	ID             int64
	Name           string
	RoomNumber     string
	CityID         int64
	BuildingNumber int
	Floor          int
	Capacity       int
	Facility       Facility
	Active         bool
}

// A room considered for a cluster, with the average distance (meters) the
// cluster's participants travel to reach it.
type RoomCandidate struct {
	Room
	AvgDistance float64
}

package domain

// A physical office building. Building numbers are unique within a city only,
// so a building is identified by (CityID, Number).
type Building struct {
	CityID      int64
	Number      int
	Coordinates Coordinates
}

// Aggregated headcount of a group's participants located in one building.
type BuildingDemand struct {
	CityID         int64
	BuildingNumber int
	Headcount      int
}

package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"meeting-placement-service/internal/domain"
	"os"
	"strings"
)

type City struct {
	ID          int64  `json:"id"`
	AirportCode string `json:"airport_code"`
}

type Building struct {
	CityID         int64   `json:"city_id"`
	BuildingNumber int     `json:"building_number"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type Employee struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CityID         int64  `json:"city_id"`
	BuildingNumber int    `json:"building_number"`
	Floor          int    `json:"floor"`
	Inactive       bool   `json:"inactive,omitempty"`
}

type Room struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RoomNumber     string          `json:"room_number"`
	CityID         int64           `json:"city_id"`
	BuildingNumber int             `json:"building_number"`
	Floor          int             `json:"floor"`
	Capacity       int             `json:"capacity"`
	Facility       domain.Facility `json:"facility"`
	Inactive       bool            `json:"inactive,omitempty"`
}

// Dataset is the reference data a store is seeded with: cities, building
// locations, employees and rooms.
type Dataset struct {
	Cities    []City     `json:"cities"`
	Buildings []Building `json:"buildings"`
	Employees []Employee `json:"employees"`
	Rooms     []Room     `json:"rooms"`
}

// ReadFile loads and validates a JSON dataset.
func ReadFile(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed: read %q: %w", path, err)
	}

	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("read seed: parse json: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("read seed %q: %w", path, err)
	}
	return ds, nil
}

type buildingKey struct {
	city   int64
	number int
}

// Validate checks ids, references between records and facility tags.
// Missing facility tags default to N/A.
func (ds *Dataset) Validate() error {
	cities := make(map[int64]struct{}, len(ds.Cities))
	for i, c := range ds.Cities {
		if c.ID <= 0 {
			return fmt.Errorf("validate seed: city at index %d: invalid id %d", i+1, c.ID)
		}
		cities[c.ID] = struct{}{}
	}

	buildings := make(map[buildingKey]struct{}, len(ds.Buildings))
	for i, b := range ds.Buildings {
		if _, ok := cities[b.CityID]; !ok {
			return fmt.Errorf("validate seed: building at index %d: unknown city %d", i+1, b.CityID)
		}
		if b.Latitude < -90 || b.Latitude > 90 || b.Longitude < -180 || b.Longitude > 180 {
			return fmt.Errorf("validate seed: building at index %d: coordinates out of range", i+1)
		}
		buildings[buildingKey{b.CityID, b.BuildingNumber}] = struct{}{}
	}

	employees := make(map[int64]struct{}, len(ds.Employees))
	for i, e := range ds.Employees {
		if e.ID <= 0 {
			return fmt.Errorf("validate seed: employee at index %d: invalid id %d", i+1, e.ID)
		}
		if _, dup := employees[e.ID]; dup {
			return fmt.Errorf("validate seed: employee at index %d: duplicate id %d", i+1, e.ID)
		}
		employees[e.ID] = struct{}{}
		if strings.TrimSpace(e.Email) == "" {
			return fmt.Errorf("validate seed: employee %d: email cannot be empty", e.ID)
		}
		if _, ok := buildings[buildingKey{e.CityID, e.BuildingNumber}]; !ok {
			return fmt.Errorf("validate seed: employee %d: unknown building %d in city %d", e.ID, e.BuildingNumber, e.CityID)
		}
	}

	rooms := make(map[int64]struct{}, len(ds.Rooms))
	for i := range ds.Rooms {
		r := &ds.Rooms[i]
		if r.ID <= 0 {
			return fmt.Errorf("validate seed: room at index %d: invalid id %d", i+1, r.ID)
		}
		if _, dup := rooms[r.ID]; dup {
			return fmt.Errorf("validate seed: room at index %d: duplicate id %d", i+1, r.ID)
		}
		rooms[r.ID] = struct{}{}
		if r.Capacity < 1 {
			return fmt.Errorf("validate seed: room %d: capacity must be positive", r.ID)
		}
		if r.Facility == "" {
			r.Facility = domain.FacilityNone
		}
		if !r.Facility.Valid() {
			return fmt.Errorf("validate seed: room %d: unknown facility %q", r.ID, r.Facility)
		}
		if _, ok := buildings[buildingKey{r.CityID, r.BuildingNumber}]; !ok {
			return fmt.Errorf("validate seed: room %d: unknown building %d in city %d", r.ID, r.BuildingNumber, r.CityID)
		}
	}

	if len(ds.Cities) == 0 {
		return errors.New("validate seed: no cities")
	}
	return nil
}

// Coordinates returns the location of every building keyed by city and number.
func (ds Dataset) Coordinates() map[int64]map[int]domain.Coordinates {
	out := make(map[int64]map[int]domain.Coordinates, len(ds.Cities))
	for _, b := range ds.Buildings {
		if out[b.CityID] == nil {
			out[b.CityID] = make(map[int]domain.Coordinates)
		}
		out[b.CityID][b.BuildingNumber] = domain.Coordinates{Lat: b.Latitude, Lon: b.Longitude}
	}
	return out
}

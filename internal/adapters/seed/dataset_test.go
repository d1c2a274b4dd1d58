package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDataset() Dataset {
	return Dataset{
		Cities:    []City{{ID: 1, AirportCode: "SEA"}},
		Buildings: []Building{{CityID: 1, BuildingNumber: 1, Latitude: 47.6, Longitude: -122.3}},
		Employees: []Employee{{ID: 1, Email: "a@example.com", CityID: 1, BuildingNumber: 1, Floor: 2}},
		Rooms:     []Room{{ID: 1, CityID: 1, BuildingNumber: 1, Floor: 2, Capacity: 4}},
	}
}

func TestValidateDefaultsFacility(t *testing.T) {
	ds := validDataset()
	require.NoError(t, ds.Validate())
	assert.Equal(t, "N/A", string(ds.Rooms[0].Facility))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ds *Dataset)
	}{
		{"no cities", func(ds *Dataset) { ds.Cities = nil; ds.Buildings = nil; ds.Employees = nil; ds.Rooms = nil }},
		{"building in unknown city", func(ds *Dataset) { ds.Buildings[0].CityID = 9 }},
		{"latitude out of range", func(ds *Dataset) { ds.Buildings[0].Latitude = 91 }},
		{"employee in unknown building", func(ds *Dataset) { ds.Employees[0].BuildingNumber = 3 }},
		{"employee without email", func(ds *Dataset) { ds.Employees[0].Email = " " }},
		{"duplicate employee", func(ds *Dataset) { ds.Employees = append(ds.Employees, ds.Employees[0]) }},
		{"room without capacity", func(ds *Dataset) { ds.Rooms[0].Capacity = 0 }},
		{"unknown facility", func(ds *Dataset) { ds.Rooms[0].Facility = "projector" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := validDataset()
			tt.mutate(&ds)
			assert.Error(t, ds.Validate())
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"cities": [{"id": 1, "airport_code": "SEA"}],
		"buildings": [{"city_id": 1, "building_number": 1, "latitude": 47.6, "longitude": -122.3}],
		"employees": [],
		"rooms": [{"id": 5, "name": "Rainier", "city_id": 1, "building_number": 1, "floor": 3, "capacity": 6, "facility": "AV/VC"}]
	}`), 0o600))

	ds, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, ds.Rooms, 1)
	assert.Equal(t, "AV/VC", string(ds.Rooms[0].Facility))
	assert.Equal(t, 47.6, ds.Coordinates()[1][1].Lat)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReadFileShippedSeed(t *testing.T) {
	ds, err := ReadFile(filepath.Join("..", "..", "..", "data", "seeds", "campus.json"))
	require.NoError(t, err)
	assert.Len(t, ds.Cities, 2)
	assert.NotEmpty(t, ds.Rooms)
}

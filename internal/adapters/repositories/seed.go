package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"meeting-placement-service/internal/adapters/seed"
)

// Seed upserts the dataset's cities, buildings, employees and rooms in one
// transaction. Bookings are never touched.
func Seed(ctx context.Context, db *sql.DB, d Dialect, ds seed.Dataset) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := seeder{tx: tx, d: d, floors: make(map[floorKey]int64)}

	for _, c := range ds.Cities {
		if _, err := tx.ExecContext(ctx, d.Rebind(`
		INSERT INTO city (id, airport_code)
		VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET airport_code = excluded.airport_code;
		`), c.ID, c.AirportCode); err != nil {
			return fmt.Errorf("seed: insert city id=%d: %w", c.ID, err)
		}
	}

	for _, b := range ds.Buildings {
		if _, err := tx.ExecContext(ctx, d.Rebind(`
		INSERT INTO building_location (city_id, building_number, latitude, longitude)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (city_id, building_number) DO UPDATE
		SET latitude = excluded.latitude,
			longitude = excluded.longitude;
		`), b.CityID, b.BuildingNumber, b.Latitude, b.Longitude); err != nil {
			return fmt.Errorf("seed: insert building city=%d number=%d: %w", b.CityID, b.BuildingNumber, err)
		}
	}

	for _, e := range ds.Employees {
		fb, err := s.floorBuilding(ctx, e.CityID, e.BuildingNumber, e.Floor)
		if err != nil {
			return fmt.Errorf("seed: employee id=%d: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, d.Rebind(`
		INSERT INTO employee (id, name, email, floor_building_id, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
			email = excluded.email,
			floor_building_id = excluded.floor_building_id,
			is_active = excluded.is_active;
		`), e.ID, e.Name, e.Email, fb, !e.Inactive); err != nil {
			return fmt.Errorf("seed: insert employee id=%d: %w", e.ID, err)
		}
	}

	for _, r := range ds.Rooms {
		fb, err := s.floorBuilding(ctx, r.CityID, r.BuildingNumber, r.Floor)
		if err != nil {
			return fmt.Errorf("seed: room id=%d: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, d.Rebind(`
		INSERT INTO room (id, name, room_number, capacity, facility, floor_building_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
			room_number = excluded.room_number,
			capacity = excluded.capacity,
			facility = excluded.facility,
			floor_building_id = excluded.floor_building_id,
			is_active = excluded.is_active;
		`), r.ID, r.Name, r.RoomNumber, r.Capacity, string(r.Facility), fb, !r.Inactive); err != nil {
			return fmt.Errorf("seed: insert room id=%d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}
	return nil
}

// SeedFromJSON reads a dataset file and seeds it.
func SeedFromJSON(ctx context.Context, db *sql.DB, d Dialect, jsonPath string) error {
	ds, err := seed.ReadFile(jsonPath)
	if err != nil {
		return err
	}
	return Seed(ctx, db, d, ds)
}

type floorKey struct {
	city     int64
	building int
	floor    int
}

type seeder struct {
	tx     *sql.Tx
	d      Dialect
	floors map[floorKey]int64
}

// floorBuilding returns the id of the (city, building, floor) row, creating it if needed.
func (s *seeder) floorBuilding(ctx context.Context, city int64, building, floor int) (int64, error) {
	key := floorKey{city, building, floor}
	if id, ok := s.floors[key]; ok {
		return id, nil
	}

	if _, err := s.tx.ExecContext(ctx, s.d.Rebind(`
	INSERT INTO floor_building (city_id, building_number, floor_number)
	VALUES (?, ?, ?)
	ON CONFLICT (city_id, building_number, floor_number) DO NOTHING;
	`), city, building, floor); err != nil {
		return 0, fmt.Errorf("insert floor_building: %w", err)
	}

	var id int64
	if err := s.tx.QueryRowContext(ctx, s.d.Rebind(`
	SELECT id FROM floor_building
	WHERE city_id = ? AND building_number = ? AND floor_number = ?;
	`), city, building, floor).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup floor_building: %w", err)
	}

	s.floors[key] = id
	return id, nil
}

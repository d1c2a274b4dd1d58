package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func schemaStatements(d Dialect) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		`
	CREATE TABLE IF NOT EXISTS city (
		id BIGINT PRIMARY KEY,
		airport_code TEXT NOT NULL
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS building_location (
		city_id BIGINT NOT NULL REFERENCES city(id),
		building_number INTEGER NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (city_id, building_number)
	);
	`,
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS floor_building (
		id %s,
		city_id BIGINT NOT NULL,
		building_number INTEGER NOT NULL,
		floor_number INTEGER NOT NULL,
		UNIQUE (city_id, building_number, floor_number)
	);
	`, serial),
		`
	CREATE TABLE IF NOT EXISTS employee (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		floor_building_id BIGINT NOT NULL REFERENCES floor_building(id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS room (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		room_number TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		facility TEXT NOT NULL DEFAULT 'N/A',
		floor_building_id BIGINT NOT NULL REFERENCES floor_building(id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`,
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS booking (
		id %s,
		organizer_id BIGINT NOT NULL,
		meeting_title TEXT NOT NULL,
		start_unix BIGINT NOT NULL,
		length_minutes INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`, serial),
		`
	CREATE TABLE IF NOT EXISTS participate (
		booking_id BIGINT NOT NULL REFERENCES booking(id),
		participant_id BIGINT NOT NULL,
		PRIMARY KEY (booking_id, participant_id)
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS room_booking (
		room_id BIGINT NOT NULL,
		booking_id BIGINT NOT NULL REFERENCES booking(id),
		participant_id BIGINT NOT NULL,
		PRIMARY KEY (room_id, booking_id, participant_id)
	);
	`,
		`
	CREATE INDEX IF NOT EXISTS idx_room_booking_booking
	ON room_booking(booking_id);
	`,
		`
	CREATE INDEX IF NOT EXISTS idx_participate_participant
	ON participate(participant_id);
	`,
	}
}

// InitSchema creates the placement tables if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements(d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

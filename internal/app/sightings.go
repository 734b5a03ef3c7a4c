package app

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ridscan/internal/rid"
)

// SightingStore persists observed aircraft records to SQLite for
// post-flight review. The parser core keeps no on-disk state; this store is
// an application-layer output.
type SightingStore struct {
	db *sql.DB
}

// OpenSightingStore opens or creates the database at path.
func OpenSightingStore(path string) (*SightingStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SightingStore{db: db}, nil
}

// Close closes the database connection.
func (s *SightingStore) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sightings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uav_id TEXT NOT NULL,
		event TEXT NOT NULL,
		protocol TEXT NOT NULL,
		transport TEXT NOT NULL,
		rssi INTEGER NOT NULL,
		latitude REAL,
		longitude REAL,
		altitude_geo REAL,
		speed_h REAL,
		message_count INTEGER NOT NULL,
		operator_id TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_uav_id ON sightings(uav_id);
	CREATE INDEX IF NOT EXISTS idx_sightings_recorded_at ON sightings(recorded_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record inserts one lifecycle event row for a UAV.
func (s *SightingStore) Record(event string, uav *rid.UAVObject) error {
	var lat, lon, alt, speed any
	if uav.Location.Valid {
		lat = uav.Location.Latitude
		lon = uav.Location.Longitude
		alt = float64(uav.Location.AltitudeGeo)
		speed = float64(uav.Location.SpeedHorizontal)
	}

	var operatorID any
	if uav.OperatorID.Valid {
		operatorID = uav.OperatorID.ID
	}

	_, err := s.db.Exec(`
		INSERT INTO sightings
		(uav_id, event, protocol, transport, rssi, latitude, longitude,
		 altitude_geo, speed_h, message_count, operator_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uav.ID, event, uav.Protocol.String(), uav.Transport.String(),
		uav.RSSI, lat, lon, alt, speed, uav.MessageCount, operatorID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

// CountForUAV returns the number of recorded events for one aircraft.
func (s *SightingStore) CountForUAV(uavID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sightings WHERE uav_id = ?", uavID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sightings: %w", err)
	}
	return count, nil
}

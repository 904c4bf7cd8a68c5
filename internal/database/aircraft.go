package database

import (
	"database/sql"
	"fmt"

	"skywatch/internal/models"
)

// AircraftRepository is the aircraft store: the write-only sink the search
// aggregator forwards merged snapshots to, plus a read path for display.
type AircraftRepository interface {
	UpsertBatch(aircraft []models.AircraftRecord) error
	ByHex(hex string) (*models.AircraftRecord, error)
}

type aircraftRepository struct {
	db *sql.DB
}

// UpsertBatch writes one merged snapshot in a single transaction. Later
// snapshots replace earlier state for the same hex.
func (r *aircraftRepository) UpsertBatch(aircraft []models.AircraftRecord) error {
	if len(aircraft) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO aircraft (
		hex, callsign, registration, type_code, squawk,
		lat, lon, alt_baro, ground_speed, track, source, seen_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ac := range aircraft {
		if ac.Hex == "" {
			continue
		}
		if _, err := stmt.Exec(
			ac.Hex, ac.Callsign, ac.Registration, ac.TypeCode, ac.Squawk,
			ac.Lat, ac.Lon, float64(ac.AltBaro), ac.GroundSpeed, ac.Track,
			ac.Source, ac.SeenAt,
		); err != nil {
			return fmt.Errorf("failed to insert aircraft %s: %w", ac.Hex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *aircraftRepository) ByHex(hex string) (*models.AircraftRecord, error) {
	var ac models.AircraftRecord
	var altBaro float64
	err := r.db.QueryRow(`SELECT hex, callsign, registration, type_code, squawk,
		lat, lon, alt_baro, ground_speed, track, source, seen_at
		FROM aircraft WHERE hex = ?`, hex).
		Scan(&ac.Hex, &ac.Callsign, &ac.Registration, &ac.TypeCode, &ac.Squawk,
			&ac.Lat, &ac.Lon, &altBaro, &ac.GroundSpeed, &ac.Track, &ac.Source, &ac.SeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft %s: %w", hex, err)
	}
	ac.AltBaro = models.Altitude(altBaro)
	return &ac, nil
}

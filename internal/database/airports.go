package database

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"

	"skywatch/internal/models"
)

// AirportRepository stores airports keyed by ICAO code. Upserts are
// non-destructive: an incoming empty field never overwrites a stored value,
// so enrichment from different providers accumulates instead of regressing.
type AirportRepository interface {
	Upsert(airport models.Airport) error
	Get(icao string) (*models.Airport, error)
	IsPopulated() (bool, error)
	SeedFromCSV(csvPath string, batchSize int) error
}

type airportRepository struct {
	db *sql.DB
}

func (r *airportRepository) Upsert(airport models.Airport) error {
	if airport.ICAO == "" {
		return fmt.Errorf("airport ICAO code is required")
	}

	// COALESCE keeps the stored value whenever the incoming one is NULL
	_, err := r.db.Exec(`INSERT INTO airports (icao, iata, name, country)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(icao) DO UPDATE SET
			iata = COALESCE(excluded.iata, airports.iata),
			name = COALESCE(excluded.name, airports.name),
			country = COALESCE(excluded.country, airports.country)`,
		airport.ICAO,
		nullable(airport.IATA),
		nullable(airport.Name),
		nullable(airport.Country),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert airport %s: %w", airport.ICAO, err)
	}
	return nil
}

func (r *airportRepository) Get(icao string) (*models.Airport, error) {
	var airport models.Airport
	var iata, name, country sql.NullString
	err := r.db.QueryRow(`SELECT icao, iata, name, country FROM airports WHERE icao = ?`, icao).
		Scan(&airport.ICAO, &iata, &name, &country)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query airport %s: %w", icao, err)
	}
	airport.IATA = iata.String
	airport.Name = name.String
	airport.Country = country.String
	return &airport, nil
}

func (r *airportRepository) IsPopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM airports LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check airports table: %w", err)
	}
	return true, nil
}

// airportRow maps one line of the airport seed dataset
type airportRow struct {
	ICAO    string `csv:"icao"`
	IATA    string `csv:"iata"`
	Name    string `csv:"name"`
	Country string `csv:"country"`
}

// SeedFromCSV bulk-loads the airport seed dataset so route display works
// before any provider enrichment has arrived.
func (r *airportRepository) SeedFromCSV(csvPath string, batchSize int) error {
	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open airport CSV %s: %w", csvPath, err)
	}
	defer file.Close()

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(in) // Allows use of quotes in CSV
	})

	var airports []*airportRow
	if err := gocsv.Unmarshal(utfbom.SkipOnly(file), &airports); err != nil {
		return fmt.Errorf("failed to parse airport CSV %s: %w", csvPath, err)
	}

	batch := make([]models.Airport, 0, batchSize)
	for _, row := range airports {
		icao := strings.ToUpper(strings.TrimSpace(row.ICAO))
		if icao == "" {
			continue
		}
		batch = append(batch, models.Airport{
			ICAO:    icao,
			IATA:    strings.ToUpper(strings.TrimSpace(row.IATA)),
			Name:    strings.TrimSpace(row.Name),
			Country: strings.TrimSpace(row.Country),
		})
		if len(batch) >= batchSize {
			if err := r.upsertBatch(batch); err != nil {
				return fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0] // Reset slice but keep capacity
		}
	}

	if len(batch) > 0 {
		if err := r.upsertBatch(batch); err != nil {
			return fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	return nil
}

func (r *airportRepository) upsertBatch(airports []models.Airport) error {
	if len(airports) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO airports (icao, iata, name, country)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(icao) DO UPDATE SET
			iata = COALESCE(excluded.iata, airports.iata),
			name = COALESCE(excluded.name, airports.name),
			country = COALESCE(excluded.country, airports.country)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, airport := range airports {
		if _, err := stmt.Exec(
			airport.ICAO,
			nullable(airport.IATA),
			nullable(airport.Name),
			nullable(airport.Country),
		); err != nil {
			return fmt.Errorf("failed to insert airport %s: %w", airport.ICAO, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

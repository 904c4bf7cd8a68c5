package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite handle and hands out the repositories that the route
// cache and search layers persist through.
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies performance optimizations for small devices
func optimizeSQLite(db *sql.DB) error {
	// Enable WAL mode for better concurrency (allows concurrent reads)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA cache_size=-64000"); err != nil {
		return fmt.Errorf("failed to set cache size: %w", err)
	}

	// NORMAL is safe under WAL since writes go to the WAL first
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA temp_store=MEMORY"); err != nil {
		return fmt.Errorf("failed to set temp_store: %w", err)
	}

	// Route lookups and the aircraft store write concurrently
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// RouteRepository returns the cached-route repository
func (d *DB) RouteRepository() RouteRepository {
	return &routeRepository{db: d.db}
}

// AirportRepository returns the airport repository
func (d *DB) AirportRepository() AirportRepository {
	return &airportRepository{db: d.db}
}

// AircraftRepository returns the aircraft store repository
func (d *DB) AircraftRepository() AircraftRepository {
	return &aircraftRepository{db: d.db}
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	routesSchema := `CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hex TEXT NOT NULL,
		callsign TEXT NOT NULL,
		origin_icao TEXT,
		dest_icao TEXT,
		seen_at TIMESTAMP NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	);`

	airportsSchema := `CREATE TABLE IF NOT EXISTS airports (
		icao TEXT PRIMARY KEY,
		iata TEXT,
		name TEXT,
		country TEXT
	);`

	aircraftSchema := `CREATE TABLE IF NOT EXISTS aircraft (
		hex TEXT PRIMARY KEY,
		callsign TEXT,
		registration TEXT,
		type_code TEXT,
		squawk TEXT,
		lat REAL,
		lon REAL,
		alt_baro REAL,
		ground_speed REAL,
		track REAL,
		source TEXT,
		seen_at TIMESTAMP NOT NULL
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_routes_hex ON routes(hex)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_fetched_at ON routes(fetched_at)`,
	}

	for _, schema := range []string{routesSchema, airportsSchema, aircraftSchema} {
		if _, err := d.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

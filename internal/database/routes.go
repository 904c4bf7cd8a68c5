package database

import (
	"database/sql"
	"fmt"
	"time"

	"skywatch/internal/models"
)

// RouteRepository persists route resolutions. Rows are insert-only; the
// freshest row per hex is the one the cache consults.
type RouteRepository interface {
	Insert(route *models.CachedRoute) error
	LatestByHex(hex string) (*models.CachedRoute, error)
	ByHex(hex string) ([]models.CachedRoute, error)
	ByAirport(icao string) ([]models.CachedRoute, error)
	ByOrigin(icao string) ([]models.CachedRoute, error)
	ByDestination(icao string) ([]models.CachedRoute, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type routeRepository struct {
	db *sql.DB
}

func (r *routeRepository) Insert(route *models.CachedRoute) error {
	res, err := r.db.Exec(`INSERT INTO routes (
		hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		route.Hex,
		route.Callsign,
		nullable(route.OriginICAO),
		nullable(route.DestICAO),
		route.SeenAt,
		route.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		route.ID = id
	}
	return nil
}

func (r *routeRepository) LatestByHex(hex string) (*models.CachedRoute, error) {
	row := r.db.QueryRow(`SELECT id, hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
		FROM routes WHERE hex = ? ORDER BY id DESC LIMIT 1`, hex)

	route, err := scanRoute(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest route: %w", err)
	}
	return route, nil
}

func (r *routeRepository) ByHex(hex string) ([]models.CachedRoute, error) {
	return r.queryRoutes(`SELECT id, hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
		FROM routes WHERE hex = ? ORDER BY fetched_at DESC, id DESC`, hex)
}

func (r *routeRepository) ByAirport(icao string) ([]models.CachedRoute, error) {
	return r.queryRoutes(`SELECT id, hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
		FROM routes WHERE origin_icao = ? OR dest_icao = ? ORDER BY fetched_at DESC, id DESC`, icao, icao)
}

func (r *routeRepository) ByOrigin(icao string) ([]models.CachedRoute, error) {
	return r.queryRoutes(`SELECT id, hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
		FROM routes WHERE origin_icao = ? ORDER BY fetched_at DESC, id DESC`, icao)
}

func (r *routeRepository) ByDestination(icao string) ([]models.CachedRoute, error) {
	return r.queryRoutes(`SELECT id, hex, callsign, origin_icao, dest_icao, seen_at, fetched_at
		FROM routes WHERE dest_icao = ? ORDER BY fetched_at DESC, id DESC`, icao)
}

// DeleteOlderThan removes routes fetched before the cutoff and reports how
// many rows went away. Invoked by the retention sweep task.
func (r *routeRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM routes WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale routes: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted routes: %w", err)
	}
	return deleted, nil
}

func (r *routeRepository) queryRoutes(query string, args ...any) ([]models.CachedRoute, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []models.CachedRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, *route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read routes: %w", err)
	}
	return routes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*models.CachedRoute, error) {
	var route models.CachedRoute
	var origin, dest sql.NullString
	if err := row.Scan(&route.ID, &route.Hex, &route.Callsign, &origin, &dest, &route.SeenAt, &route.FetchedAt); err != nil {
		return nil, err
	}
	route.OriginICAO = origin.String
	route.DestICAO = dest.String
	return &route, nil
}

// nullable maps "" to NULL so half-known routes store a real NULL endpoint
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

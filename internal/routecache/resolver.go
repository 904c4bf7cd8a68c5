package routecache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"skywatch/internal/database"
	"skywatch/internal/models"
)

const (
	// defaultFreshness is how long a cached route answers for the same
	// callsign before a re-fetch.
	defaultFreshness = time.Hour

	// defaultRetention is how long cached routes survive before the
	// cleanup sweep removes them.
	defaultRetention = 30 * 24 * time.Hour
)

// Config configures the route resolver.
type Config struct {
	Routes    database.RouteRepository
	Airports  database.AirportRepository
	Providers []RouteProvider // tried in order; the first usable answer wins
	Freshness time.Duration
	Retention time.Duration
}

// Resolver answers route lookups cache-aside: the local cache first, then the
// providers in priority order, persisting whatever they return.
type Resolver struct {
	routes    database.RouteRepository
	airports  database.AirportRepository
	providers []RouteProvider
	freshness time.Duration
	retention time.Duration
	group     singleflight.Group
	now       func() time.Time
}

// New creates a route resolver
func New(cfg Config) *Resolver {
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = defaultFreshness
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Resolver{
		routes:    cfg.Routes,
		airports:  cfg.Airports,
		providers: cfg.Providers,
		freshness: freshness,
		retention: retention,
		now:       time.Now,
	}
}

// Lookup returns the best-known route for an aircraft, fetching from the
// providers when the cache has nothing fresh for the current callsign.
// A nil route with a nil error means no provider knows the callsign.
func (r *Resolver) Lookup(ctx context.Context, hex, callsign string) (*models.FlightRoute, error) {
	callsign = models.NormalizeCallsign(callsign)
	if callsign == "" {
		return nil, nil
	}

	cached, err := r.routes.LatestByHex(hex)
	if err != nil {
		return nil, err
	}
	if cacheFresh(r.now(), cached, callsign, r.freshness) {
		return r.resolveRoute(cached)
	}

	// Collapse concurrent lookups for the same aircraft and callsign into a
	// single provider fetch.
	v, err, _ := r.group.Do(hex+"|"+callsign, func() (any, error) {
		return r.fetchAndPersist(ctx, hex, callsign)
	})
	if err != nil {
		return nil, err
	}
	route, _ := v.(*models.FlightRoute)
	return route, nil
}

// cacheFresh decides whether a cached row still answers for the given
// callsign at the given instant. Pure so the hit/stale/changed-callsign rules
// are testable without any I/O.
func cacheFresh(now time.Time, cached *models.CachedRoute, callsign string, freshness time.Duration) bool {
	if cached == nil {
		return false
	}
	if now.Sub(cached.FetchedAt) >= freshness {
		return false
	}
	return cached.Callsign == callsign
}

// fetchAndPersist asks each provider in order and persists the first usable
// answer. Providers that error or answer "unknown" are skipped; if none
// answers, nothing is written and the result is nil.
func (r *Resolver) fetchAndPersist(ctx context.Context, hex, callsign string) (*models.FlightRoute, error) {
	for _, provider := range r.providers {
		route, err := provider.Route(ctx, callsign)
		if err != nil {
			slog.Warn("Route provider failed", "provider", provider.Name(), "callsign", callsign, "error", err)
			continue
		}
		if route == nil || (route.Origin == nil && route.Destination == nil) {
			continue
		}

		if err := r.persist(hex, callsign, route); err != nil {
			return nil, err
		}

		now := r.now()
		cached := &models.CachedRoute{
			Hex:       hex,
			Callsign:  callsign,
			SeenAt:    now,
			FetchedAt: now,
		}
		if route.Origin != nil {
			cached.OriginICAO = route.Origin.ICAO
		}
		if route.Destination != nil {
			cached.DestICAO = route.Destination.ICAO
		}
		if err := r.routes.Insert(cached); err != nil {
			return nil, fmt.Errorf("failed to cache route for %s: %w", hex, err)
		}

		slog.Debug("Resolved route", "hex", hex, "callsign", callsign,
			"provider", provider.Name(), "origin", cached.OriginICAO, "destination", cached.DestICAO)
		return r.resolveRoute(cached)
	}

	return nil, nil
}

// persist upserts the airport metadata a provider returned. Upserts are
// non-destructive: empty incoming fields never erase stored enrichment.
func (r *Resolver) persist(hex, callsign string, route *ProviderRoute) error {
	for _, airport := range []*models.Airport{route.Origin, route.Destination} {
		if airport == nil {
			continue
		}
		if err := r.airports.Upsert(*airport); err != nil {
			return fmt.Errorf("failed to upsert airport %s: %w", airport.ICAO, err)
		}
	}
	return nil
}

// resolveRoute turns a cached row into a FlightRoute, resolving stored ICAO
// codes through the airport table so callers see accumulated enrichment.
func (r *Resolver) resolveRoute(cached *models.CachedRoute) (*models.FlightRoute, error) {
	route := &models.FlightRoute{
		Callsign:   cached.Callsign,
		ObservedAt: cached.SeenAt,
	}

	var err error
	if route.Origin, err = r.resolveAirport(cached.OriginICAO); err != nil {
		return nil, err
	}
	if route.Destination, err = r.resolveAirport(cached.DestICAO); err != nil {
		return nil, err
	}
	return route, nil
}

func (r *Resolver) resolveAirport(icao string) (*models.Airport, error) {
	if icao == "" {
		return nil, nil
	}
	airport, err := r.airports.Get(icao)
	if err != nil {
		return nil, err
	}
	if airport == nil {
		// Known code, no metadata yet.
		return &models.Airport{ICAO: icao}, nil
	}
	return airport, nil
}

// CachedByHex returns previously resolved routes for an aircraft, freshest
// first, without any network fetch.
func (r *Resolver) CachedByHex(hex string) ([]models.FlightRoute, error) {
	cached, err := r.routes.ByHex(hex)
	if err != nil {
		return nil, err
	}
	return r.resolveRoutes(cached)
}

// CachedByAirport returns cached routes touching an airport as either
// endpoint, freshest first.
func (r *Resolver) CachedByAirport(icao string) ([]models.FlightRoute, error) {
	cached, err := r.routes.ByAirport(icao)
	if err != nil {
		return nil, err
	}
	return r.resolveRoutes(cached)
}

// CachedByOrigin returns cached routes departing an airport, freshest first.
func (r *Resolver) CachedByOrigin(icao string) ([]models.FlightRoute, error) {
	cached, err := r.routes.ByOrigin(icao)
	if err != nil {
		return nil, err
	}
	return r.resolveRoutes(cached)
}

// CachedByDestination returns cached routes arriving at an airport, freshest
// first.
func (r *Resolver) CachedByDestination(icao string) ([]models.FlightRoute, error) {
	cached, err := r.routes.ByDestination(icao)
	if err != nil {
		return nil, err
	}
	return r.resolveRoutes(cached)
}

func (r *Resolver) resolveRoutes(cached []models.CachedRoute) ([]models.FlightRoute, error) {
	routes := make([]models.FlightRoute, 0, len(cached))
	for i := range cached {
		route, err := r.resolveRoute(&cached[i])
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}
	return routes, nil
}

// Cleanup deletes cached routes older than the retention window and reports
// how many were removed. Invoked by the scheduler; dormant otherwise.
func (r *Resolver) Cleanup(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.retention)
	deleted, err := r.routes.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("Swept stale cached routes", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

package models

import (
	"strings"
	"time"
)

// Airport describes one airport. ICAO is the primary key; the other fields
// are enrichment that may arrive later from a different provider, so empty
// values must never clobber known ones (see AirportRepository.Upsert).
type Airport struct {
	ICAO    string
	IATA    string
	Name    string
	Country string
}

// FlightRoute is the resolved origin/destination pair for a callsign.
// Either endpoint may be nil when a provider only knew half the route.
type FlightRoute struct {
	Callsign    string
	Origin      *Airport
	Destination *Airport
	ObservedAt  time.Time
}

// CachedRoute is one persisted route resolution. Rows are insert-only; the
// freshest row per hex is the authoritative one. OriginICAO/DestICAO are
// empty when the provider did not know that endpoint.
type CachedRoute struct {
	ID         int64
	Hex        string
	Callsign   string // callsign at fetch time, used for change invalidation
	OriginICAO string
	DestICAO   string
	SeenAt     time.Time
	FetchedAt  time.Time
}

// NormalizeCallsign trims the padding the transponder feed leaves around
// callsigns. An all-whitespace callsign normalizes to "".
func NormalizeCallsign(callsign string) string {
	return strings.TrimSpace(callsign)
}

package search

import (
	"strings"
	"unicode"
)

// Criterion is one search request. The variants form a closed set; the
// aggregator matches exhaustively and a new variant will not compile until
// every switch handles it.
type Criterion interface {
	criterion()
}

// ByHex searches by ICAO24 hex address.
type ByHex struct {
	Hexes []string
}

// BySquawk searches by transponder code.
type BySquawk struct {
	Squawks []string
}

// ByCallsign searches by callsign.
type ByCallsign struct {
	Callsigns []string
}

// ByRegistration searches by tail registration.
type ByRegistration struct {
	Registrations []string
}

// ByType searches by airframe type code.
type ByType struct {
	Types []string
}

// ByLocation searches a geographic circle. Radius is in meters.
type ByLocation struct {
	Lat          float64
	Lon          float64
	RadiusMeters float64
}

// Interesting searches the curated upstream lists.
type Interesting struct {
	Military bool
	LADD     bool
	PIA      bool
}

// FreeText is a raw "search everything" query. Each whitespace token is
// classified into the most likely identifier category before fan-out.
type FreeText struct {
	Text string
}

func (ByHex) criterion()          {}
func (BySquawk) criterion()       {}
func (ByCallsign) criterion()     {}
func (ByRegistration) criterion() {}
func (ByType) criterion()         {}
func (ByLocation) criterion()     {}
func (Interesting) criterion()    {}
func (FreeText) criterion()       {}

// plan is a criterion flattened into per-category identifier sets, one
// sub-query per non-empty category.
type plan struct {
	hexes         []string
	squawks       []string
	callsigns     []string
	registrations []string
	types         []string
	location      *ByLocation
	military      bool
	ladd          bool
	pia           bool
}

func buildPlan(c Criterion) plan {
	switch v := c.(type) {
	case ByHex:
		return plan{hexes: v.Hexes}
	case BySquawk:
		return plan{squawks: v.Squawks}
	case ByCallsign:
		return plan{callsigns: v.Callsigns}
	case ByRegistration:
		return plan{registrations: v.Registrations}
	case ByType:
		return plan{types: v.Types}
	case ByLocation:
		loc := v
		return plan{location: &loc}
	case Interesting:
		return plan{military: v.Military, ladd: v.LADD, pia: v.PIA}
	case FreeText:
		return classifyTokens(v.Text)
	default:
		return plan{}
	}
}

// classifyTokens assigns each token of a free-text query to one category.
// Rules are checked in priority order: a 4 digit token is always a squawk
// even though it would also pass the type-code rule.
func classifyTokens(text string) plan {
	var p plan
	for _, token := range strings.Fields(text) {
		token = strings.ToUpper(token)
		switch {
		case len(token) == 4 && allDigits(token):
			p.squawks = append(p.squawks, token)
		case len(token) == 6 && allAlphanumeric(token):
			p.hexes = append(p.hexes, token)
		case len(token) <= 4:
			p.types = append(p.types, token)
		case len(token) >= 5 && len(token) <= 8 && containsDigit(token):
			p.registrations = append(p.registrations, token)
		case len(token) >= 5 && len(token) <= 8:
			p.callsigns = append(p.callsigns, token)
		}
	}
	return p
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func allAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

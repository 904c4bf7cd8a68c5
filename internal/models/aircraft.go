package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// AircraftRecord represents one observed aircraft state as returned by the
// upstream tracking service. Records are ephemeral: they are forwarded to the
// aircraft store and replaced wholesale by the next snapshot.
type AircraftRecord struct {
	Hex          string   `json:"hex"`      // 6 hex digit ICAO24 address, the stable identifier
	Callsign     string   `json:"flight"`   // flight callsign, may be blank
	Registration string   `json:"r"`        // tail registration (e.g., N12345)
	TypeCode     string   `json:"t"`        // airframe type code (e.g., B738)
	Squawk       string   `json:"squawk"`   // 4 digit transponder code
	Lat          float64  `json:"lat"`      // latitude in degrees
	Lon          float64  `json:"lon"`      // longitude in degrees
	AltBaro      Altitude `json:"alt_baro"` // barometric altitude in feet
	GroundSpeed  float64  `json:"gs"`       // ground speed in knots
	Track        float64  `json:"track"`    // true track in degrees
	BaroRate     float64  `json:"baro_rate"`
	Source       string   `json:"type"` // message source type (adsb_icao, mlat, ...)
	Seen         float64  `json:"seen"` // seconds since last message

	// SeenAt is stamped by the client when the record is decoded; it is not
	// part of the upstream payload.
	SeenAt time.Time `json:"-"`
}

// Altitude is a barometric altitude in feet. The upstream feed reports the
// string "ground" for aircraft on the surface, which decodes to 0.
type Altitude float64

func (a *Altitude) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"ground"`)) {
		*a = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Altitude(v)
	return nil
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAircraftRecord_DecodesGroundAltitude(t *testing.T) {
	payload := `{"hex":"a1b2c3","flight":"BAW256 ","alt_baro":"ground","gs":0}`

	var record AircraftRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	assert.Equal(t, Altitude(0), record.AltBaro)
	assert.Equal(t, "a1b2c3", record.Hex)
}

func TestAircraftRecord_DecodesNumericAltitude(t *testing.T) {
	payload := `{"hex":"a1b2c3","alt_baro":37000}`

	var record AircraftRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	assert.Equal(t, Altitude(37000), record.AltBaro)
}

func TestNormalizeCallsign(t *testing.T) {
	assert.Equal(t, "BAW256", NormalizeCallsign("BAW256  "))
	assert.Equal(t, "", NormalizeCallsign("   "))
}

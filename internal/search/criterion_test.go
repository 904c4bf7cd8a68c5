package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTokens(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, p plan)
	}{
		{
			name: "four digits is a squawk",
			text: "7700",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"7700"}, p.squawks)
				assert.Empty(t, p.types, "squawk wins over type code for 4 digit tokens")
			},
		},
		{
			name: "six alphanumerics is a hex",
			text: "a1b2c3",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"A1B2C3"}, p.hexes)
			},
		},
		{
			name: "short token is a type code",
			text: "B738",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"B738"}, p.types)
			},
		},
		{
			name: "medium token with digit is a registration",
			text: "N1234AB",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"N1234AB"}, p.registrations)
			},
		},
		{
			name: "six character registration lookalike goes to hex",
			text: "N12345",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"N12345"}, p.hexes)
				assert.Empty(t, p.registrations, "hex rule claims six alphanumerics first")
			},
		},
		{
			name: "medium token without digit is a callsign",
			text: "SPEEDBRD",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"SPEEDBRD"}, p.callsigns)
			},
		},
		{
			name: "mixed query fans into several categories",
			text: "7700 a1b2c3 B738 N1234AB SPEEDBRD",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, []string{"7700"}, p.squawks)
				assert.Equal(t, []string{"A1B2C3"}, p.hexes)
				assert.Equal(t, []string{"B738"}, p.types)
				assert.Equal(t, []string{"N1234AB"}, p.registrations)
				assert.Equal(t, []string{"SPEEDBRD"}, p.callsigns)
			},
		},
		{
			name: "overlong token is ignored",
			text: "THISISTOOLONG",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, plan{}, p)
			},
		},
		{
			name: "blank query yields nothing",
			text: "   ",
			check: func(t *testing.T, p plan) {
				assert.Equal(t, plan{}, p)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, classifyTokens(tt.text))
		})
	}
}

func TestBuildPlan_Variants(t *testing.T) {
	p := buildPlan(ByHex{Hexes: []string{"a1b2c3"}})
	assert.Equal(t, []string{"a1b2c3"}, p.hexes)

	p = buildPlan(Interesting{Military: true, PIA: true})
	assert.True(t, p.military)
	assert.False(t, p.ladd)
	assert.True(t, p.pia)

	p = buildPlan(ByLocation{Lat: 51.5, Lon: -0.1, RadiusMeters: 5000})
	if assert.NotNil(t, p.location) {
		assert.Equal(t, 5000.0, p.location.RadiusMeters)
	}

	p = buildPlan(FreeText{Text: "7700"})
	assert.Equal(t, []string{"7700"}, p.squawks)
}

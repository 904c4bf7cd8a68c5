package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skywatch/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NotNil(t, db)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)
	assert.NotNil(t, db)
}

func TestRouteInsertAndLatestByHex(t *testing.T) {
	db := setupTestDB(t)
	repo := db.RouteRepository()

	first := &models.CachedRoute{
		Hex: "a1b2c3", Callsign: "BAW256", OriginICAO: "EGLL", DestICAO: "KJFK",
		SeenAt: time.Now().Add(-time.Hour), FetchedAt: time.Now().Add(-time.Hour),
	}
	second := &models.CachedRoute{
		Hex: "a1b2c3", Callsign: "BAW117",
		SeenAt: time.Now(), FetchedAt: time.Now(),
	}
	require.NoError(t, repo.Insert(first))
	require.NoError(t, repo.Insert(second))
	assert.Greater(t, second.ID, first.ID, "insert order is monotonic")

	latest, err := repo.LatestByHex("a1b2c3")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "BAW117", latest.Callsign)
	assert.Empty(t, latest.OriginICAO, "NULL endpoints scan as empty strings")
}

func TestRouteLatestByHex_NoRows(t *testing.T) {
	db := setupTestDB(t)

	latest, err := db.RouteRepository().LatestByHex("ffffff")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRouteDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := db.RouteRepository()

	old := &models.CachedRoute{
		Hex: "a1b2c3", Callsign: "BAW256",
		SeenAt: time.Now().Add(-40 * 24 * time.Hour), FetchedAt: time.Now().Add(-40 * 24 * time.Hour),
	}
	recent := &models.CachedRoute{
		Hex: "d4e5f6", Callsign: "UAL1",
		SeenAt: time.Now(), FetchedAt: time.Now(),
	}
	require.NoError(t, repo.Insert(old))
	require.NoError(t, repo.Insert(recent))

	deleted, err := repo.DeleteOlderThan(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	latest, err := repo.LatestByHex("a1b2c3")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestAirportUpsert_NonDestructive(t *testing.T) {
	db := setupTestDB(t)
	repo := db.AirportRepository()

	require.NoError(t, repo.Upsert(models.Airport{
		ICAO: "VIDP", IATA: "DEL", Name: "Indira Gandhi International Airport",
	}))

	// An upsert with empty enrichment must not erase what is stored.
	require.NoError(t, repo.Upsert(models.Airport{ICAO: "VIDP"}))

	airport, err := repo.Get("VIDP")
	require.NoError(t, err)
	require.NotNil(t, airport)
	assert.Equal(t, "DEL", airport.IATA)
	assert.Equal(t, "Indira Gandhi International Airport", airport.Name)

	// Non-empty incoming values do overwrite.
	require.NoError(t, repo.Upsert(models.Airport{ICAO: "VIDP", Country: "India"}))
	airport, err = repo.Get("VIDP")
	require.NoError(t, err)
	assert.Equal(t, "DEL", airport.IATA)
	assert.Equal(t, "India", airport.Country)
}

func TestAirportGet_Missing(t *testing.T) {
	db := setupTestDB(t)

	airport, err := db.AirportRepository().Get("ZZZZ")
	require.NoError(t, err)
	assert.Nil(t, airport)
}

func TestAirportUpsert_RequiresICAO(t *testing.T) {
	db := setupTestDB(t)
	assert.Error(t, db.AirportRepository().Upsert(models.Airport{Name: "Nowhere"}))
}

func TestAirportSeedFromCSV(t *testing.T) {
	db := setupTestDB(t)
	repo := db.AirportRepository()

	populated, err := repo.IsPopulated()
	require.NoError(t, err)
	assert.False(t, populated)

	csvPath := filepath.Join(t.TempDir(), "airports.csv")
	csv := "icao,iata,name,country\n" +
		"egll,LHR,Heathrow,United Kingdom\n" +
		",XXX,No ICAO,Nowhere\n" +
		"KJFK,JFK,John F Kennedy International,United States\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	require.NoError(t, repo.SeedFromCSV(csvPath, 2))

	populated, err = repo.IsPopulated()
	require.NoError(t, err)
	assert.True(t, populated)

	airport, err := repo.Get("EGLL")
	require.NoError(t, err)
	require.NotNil(t, airport)
	assert.Equal(t, "LHR", airport.IATA)
	assert.Equal(t, "Heathrow", airport.Name)

	missing, err := repo.Get("")
	require.NoError(t, err)
	assert.Nil(t, missing, "rows without an ICAO code are skipped")
}

func TestAircraftUpsertBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := db.AircraftRepository()

	require.NoError(t, repo.UpsertBatch(nil), "empty batch should not error")

	batch := []models.AircraftRecord{
		{Hex: "a1b2c3", Callsign: "BAW256", Squawk: "2200", Lat: 51.5, Lon: -0.1, SeenAt: time.Now()},
		{Hex: "d4e5f6", Callsign: "UAL1", SeenAt: time.Now()},
	}
	require.NoError(t, repo.UpsertBatch(batch))

	ac, err := repo.ByHex("a1b2c3")
	require.NoError(t, err)
	require.NotNil(t, ac)
	assert.Equal(t, "BAW256", ac.Callsign)
	assert.Equal(t, 51.5, ac.Lat)

	// A later snapshot replaces the stored state for the same hex.
	require.NoError(t, repo.UpsertBatch([]models.AircraftRecord{
		{Hex: "a1b2c3", Callsign: "BAW117", SeenAt: time.Now()},
	}))
	ac, err = repo.ByHex("a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "BAW117", ac.Callsign)

	missing, err := repo.ByHex("ffffff")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

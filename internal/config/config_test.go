package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.LocationTTL)
	assert.Equal(t, "backend", cfg.Territory.Source)
	assert.Equal(t, 100*time.Millisecond, cfg.GeoNames.MinInterval)
	assert.Equal(t, time.Second, cfg.Overpass.MinInterval)
	assert.Equal(t, 25*time.Second, cfg.Overpass.QueryTimeout)
	assert.Equal(t, time.Second, cfg.Nominatim.MinInterval)
	assert.NotEmpty(t, cfg.Nominatim.UserAgent)
	assert.Equal(t, 150.0, cfg.Grid.LotSizeM2)
	assert.Equal(t, 65, cfg.Grid.SyntheticHouseStart)
	assert.Equal(t, 50.0, cfg.Grid.MaxMatchDistanceM)
	assert.Equal(t, 3, cfg.Grid.AttemptsMultiplier)
	assert.Equal(t, 2.0, cfg.Grid.MaxBlockAreaKm2)
	assert.Equal(t, 2*time.Minute, cfg.Grid.DetailsTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestLoadFrom_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "API_PORT=9090\nBACKEND_URL=http://backend.local/api/\nCACHE_BACKEND=redis\nTERRITORY_SOURCE=postgres\nDB_HOST=db\nDB_NAME=zones\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://backend.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "postgres", cfg.Territory.Source)
	assert.Contains(t, cfg.GetDatabaseDSN(), "host=db")
	assert.Contains(t, cfg.GetDatabaseDSN(), "dbname=zones")
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFrom_RejectsUnknownOptions(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"cache backend", "CACHE_BACKEND", "memcached"},
		{"territory source", "TERRITORY_SOURCE", "mongo"},
		{"reverse geocoder", "GRID_REVERSE_GEOCODER", "mapbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

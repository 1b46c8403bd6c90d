package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/territory-service/internal/config"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func TestProviders_ReverseGeocoder(t *testing.T) {
	p := NewProviders(loadConfig(t), zap.NewNop())

	assert.Same(t, p.Google, p.ReverseGeocoder("google"))
	assert.Same(t, p.Nominatim, p.ReverseGeocoder("nominatim"))
	assert.Nil(t, p.ReverseGeocoder("none"))
}

func TestProviders_LocationProvidersShareClients(t *testing.T) {
	p := NewProviders(loadConfig(t), zap.NewNop())
	lp := p.LocationProviders()

	require.Len(t, lp.Municipalities, 2)
	assert.Equal(t, "geonames", lp.Municipalities[0].Name)
	assert.Equal(t, "nominatim", lp.Municipalities[1].Name)
	require.Len(t, lp.Communities, 2)
	assert.Equal(t, "overpass", lp.Communities[0].Name)
	assert.Same(t, p.Nominatim, lp.AreaResolver)
	assert.Same(t, p.Overpass, lp.Streets)
}

func TestNewGridUseCase(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Grid.ReverseGeocoder = "none"

	uc, err := NewGridUseCase(cfg, NewProviders(cfg, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, uc)
}

func TestNewTerritorySource_Backend(t *testing.T) {
	cfg := loadConfig(t)
	p := NewProviders(cfg, zap.NewNop())

	src, err := NewTerritorySource(cfg, p, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, p.Backend, src.Repository)
	assert.NoError(t, src.Close())
}

func TestNewCacheRepository_DefaultsToMemory(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Cache.Backend = "redis"

	repo := NewCacheRepository(cfg, nil, zap.NewNop())
	assert.NotNil(t, repo)
}

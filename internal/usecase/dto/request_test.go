package dto

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/validator"
)

func TestBlockInput_ToDomain(t *testing.T) {
	in := BlockInput{
		ID:     "Annex-block-3",
		Number: 3,
		Coordinates: [][2]float64{
			{-79.40, 43.66}, {-79.40, 43.67}, {-79.39, 43.67}, {-79.39, 43.66},
		},
	}
	require.NoError(t, validator.Validate(in))

	block := in.ToDomain()
	assert.True(t, geometry.IsClosed(block.Coordinates))
	assert.Len(t, block.Coordinates, 5)
	assert.InDelta(t, 43.67, block.Bounds.North, 1e-12)
	assert.InDelta(t, -79.39, block.Bounds.East, 1e-12)
	assert.InDelta(t, 43.665, block.Center.Lat(), 1e-9)
	assert.Greater(t, block.AreaKm2, 0.0)
}

func TestStreetsRequest_ToCommunity(t *testing.T) {
	c := StreetsRequest{Name: "Annex", Lat: 43.67, Lng: -79.40, OSMType: "relation", OSMID: 42}.ToCommunity()
	assert.True(t, c.HasRelation())
	assert.Equal(t, osm.TypeRelation, c.OSMType)

	c = StreetsRequest{Name: "Annex", Lat: 43.67, Lng: -79.40}.ToCommunity()
	assert.False(t, c.HasRelation())
}

func TestSubdivideRequest_Validation(t *testing.T) {
	req := SubdivideRequest{Name: "", Boundary: [][2]float64{{-79.4, 43.6}}}
	assert.Error(t, validator.Validate(req))
}

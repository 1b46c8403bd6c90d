package usecase_test

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/usecase"
)

// Bounds chosen so that the flat approximation lands inside each grid threshold.
var (
	bounds2x2 = domain.Bounds{North: 43.651, South: 43.649, East: -79.378, West: -79.383}    // ~0.089 km²
	bounds3x3 = domain.Bounds{North: 43.6515, South: 43.6485, East: -79.376, West: -79.384}  // ~0.214 km²
	bounds4x4 = domain.Bounds{North: 43.653, South: 43.647, East: -79.375, West: -79.385}    // ~0.535 km²
	bounds5x5 = domain.Bounds{North: 43.6545, South: 43.6455, East: -79.374, West: -79.3865} // ~1.003 km²
	bounds6x6 = domain.Bounds{North: 43.66, South: 43.64, East: -79.36, West: -79.40}        // ~7.13 km²
)

func newGridUseCase(t *testing.T, oracle geometry.Oracle, estimators ...usecase.BuildingEstimator) *usecase.GridUseCase {
	opts := usecase.DefaultGridOptions()
	opts.Seed = 42
	uc, err := usecase.NewGridUseCase(oracle, estimators, opts, zap.NewNop())
	require.NoError(t, err)
	return uc
}

func TestNewGridUseCase_RequiresOracle(t *testing.T) {
	uc, err := usecase.NewGridUseCase(nil, nil, usecase.DefaultGridOptions(), zap.NewNop())
	assert.Nil(t, uc)
	assert.True(t, stderrors.Is(err, errors.ErrGeometryUnavailable))
}

func TestGridUseCase_ChooseGridSize(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())

	tests := []struct {
		name   string
		bounds domain.Bounds
		want   int
	}{
		{"under 0.1 km2", bounds2x2, 2},
		{"under 0.3 km2", bounds3x3, 3},
		{"under 0.8 km2", bounds4x4, 4},
		{"under 2 km2", bounds5x5, 5},
		{"large", bounds6x6, 6},
		{"degenerate", domain.Bounds{North: 43.65, South: 43.65, East: -79.38, West: -79.38}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uc.ChooseGridSize(tt.bounds))
		})
	}
}

func TestGridUseCase_ChooseGridSize_Monotonic(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())

	prev := 0
	for i := 1; i <= 200; i++ {
		span := float64(i) * 0.0005
		b := domain.Bounds{North: 43.65 + span, South: 43.65, East: -79.38 + span, West: -79.38}
		size := uc.ChooseGridSize(b)
		assert.GreaterOrEqual(t, size, prev)
		assert.GreaterOrEqual(t, size, 2)
		assert.LessOrEqual(t, size, 6)
		prev = size
	}
}

func TestGridUseCase_GenerateBlocks(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())

	for _, parent := range []domain.Bounds{bounds2x2, bounds3x3, bounds4x4, bounds5x5, bounds6x6} {
		n := uc.ChooseGridSize(parent)
		blocks := uc.GenerateBlocks("Riverside", parent)
		require.Len(t, blocks, n*n)

		sum := 0.0
		for i, b := range blocks {
			assert.Equal(t, i+1, b.Number)
			assert.Equal(t, "Riverside", b.TerritoryName)
			assert.Len(t, b.Coordinates, 5)
			assert.True(t, geometry.IsClosed(b.Coordinates))
			assert.Equal(t, b.Bounds, geometry.ComputeBounds(b.Coordinates), "ring must round-trip to its bounds")
			assert.Equal(t, b.Bounds.Center(), b.Center)
			assert.InDelta(t, geometry.ApproximateAreaKm2(b.Bounds), b.AreaKm2, 1e-12)
			sum += b.AreaKm2
		}
		assert.InEpsilon(t, geometry.ApproximateAreaKm2(parent), sum, 1e-4)
	}
}

func TestGridUseCase_GenerateBlocks_RowMajorFromSouthWest(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())
	blocks := uc.GenerateBlocks("Riverside", bounds2x2)
	require.Len(t, blocks, 4)

	assert.Equal(t, "Riverside-block-1", blocks[0].ID)
	assert.Equal(t, bounds2x2.South, blocks[0].Bounds.South)
	assert.Equal(t, bounds2x2.West, blocks[0].Bounds.West)

	// block 2 is east of block 1 in the same row
	assert.Equal(t, blocks[0].Bounds.South, blocks[1].Bounds.South)
	assert.Equal(t, bounds2x2.East, blocks[1].Bounds.East)

	// block 3 starts the northern row
	assert.Equal(t, bounds2x2.West, blocks[2].Bounds.West)
	assert.Equal(t, bounds2x2.North, blocks[3].Bounds.North)
	assert.Equal(t, "Riverside-block-4", blocks[3].ID)

	// SW, NW, NE, SE, SW
	ring := blocks[0].Coordinates
	b := blocks[0].Bounds
	assert.Equal(t, orb.Point{b.West, b.South}, ring[0])
	assert.Equal(t, orb.Point{b.West, b.North}, ring[1])
	assert.Equal(t, orb.Point{b.East, b.North}, ring[2])
	assert.Equal(t, orb.Point{b.East, b.South}, ring[3])
}

func TestGridUseCase_Subdivide(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())

	t.Run("closes ring and subdivides", func(t *testing.T) {
		open := geometry.RectangleRing(bounds5x5)[:4]
		blocks, err := uc.Subdivide("Harbour", open)
		require.NoError(t, err)
		assert.Len(t, blocks, 25)
	})

	t.Run("rejects degenerate ring", func(t *testing.T) {
		_, err := uc.Subdivide("Line", orb.Ring{{-79.38, 43.65}, {-79.37, 43.66}})
		assert.True(t, stderrors.Is(err, errors.ErrInvalidPolygon))
	})
}

func firstBlock(t *testing.T, uc *usecase.GridUseCase) *domain.GridBlock {
	blocks := uc.GenerateBlocks("Riverside", bounds2x2)
	require.NotEmpty(t, blocks)
	return &blocks[0]
}

func address(formatted string) *domain.GeocodedAddress {
	return &domain.GeocodedAddress{FormattedAddress: formatted, Lat: 43.65, Lng: -79.38, Provider: "test"}
}

func TestGridUseCase_FetchBlockDetails_AttemptCap(t *testing.T) {
	oracle := &stubOracle{areaM2: 1500}
	geocoder := &MockReverseGeocoder{}
	// every sample resolves to the same building
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(address("10 Main St, Toronto, ON"), nil)

	uc := newGridUseCase(t, oracle,
		usecase.NewGeocodedEstimator(geocoder, oracle, usecase.DefaultMaxMatchDistanceM, zap.NewNop()),
		usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart),
	)

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err)

	assert.Equal(t, 10, details.EstimatedBuildings)
	assert.Equal(t, 30, details.Attempts)
	assert.Len(t, details.Buildings, 1)
	geocoder.AssertNumberOfCalls(t, "ReverseGeocode", 30)
}

func TestGridUseCase_FetchBlockDetails_StopsAtEstimate(t *testing.T) {
	oracle := &stubOracle{areaM2: 1500}
	uc := newGridUseCase(t, oracle, usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart))

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err)

	assert.Equal(t, 10, details.EstimatedBuildings)
	assert.Equal(t, 10, details.Attempts)
	require.Len(t, details.Buildings, 10)
	for i, b := range details.Buildings {
		assert.Equal(t, 65+2*i, b.HouseNumber)
		assert.Equal(t, "Block 1 Street", b.StreetName)
		assert.Equal(t, domain.BuildingTypeEstimated, b.Type)
	}

	require.Len(t, details.Streets, 1)
	assert.Equal(t, 10, details.Streets[0].Count)
	assert.Equal(t, []int{65, 67, 69, 71, 73, 75, 77, 79, 81, 83}, details.Streets[0].BuildingNumbers)
}

func TestGridUseCase_FetchBlockDetails_DeduplicatesAddresses(t *testing.T) {
	oracle := &stubOracle{areaM2: 450}
	geocoder := &MockReverseGeocoder{}
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(address("12 King St W, Toronto"), nil).Twice()
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(address("14 King St W, Toronto"), nil).Once()
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(address("3 Bay St, Toronto"), nil).Once()

	uc := newGridUseCase(t, oracle,
		usecase.NewGeocodedEstimator(geocoder, oracle, usecase.DefaultMaxMatchDistanceM, zap.NewNop()),
		usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart),
	)

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err)

	assert.Equal(t, 3, details.EstimatedBuildings)
	assert.Equal(t, 4, details.Attempts)
	require.Len(t, details.Buildings, 3)

	count12 := 0
	for _, b := range details.Buildings {
		if b.HouseNumber == 12 && b.StreetName == "King St W" {
			count12++
		}
		assert.Equal(t, domain.BuildingTypeResidential, b.Type)
	}
	assert.Equal(t, 1, count12)

	require.Len(t, details.Streets, 2)
	assert.Equal(t, "Bay St", details.Streets[0].Name)
	assert.Equal(t, "King St W", details.Streets[1].Name)
	assert.Equal(t, []int{12, 14}, details.Streets[1].BuildingNumbers)
}

func TestGridUseCase_FetchBlockDetails_GeocoderFailure(t *testing.T) {
	oracle := &stubOracle{areaM2: 300}
	geocoder := &MockReverseGeocoder{}
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(nil, errors.ErrProviderError)

	uc := newGridUseCase(t, oracle,
		usecase.NewGeocodedEstimator(geocoder, oracle, usecase.DefaultMaxMatchDistanceM, zap.NewNop()),
		usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart),
	)

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err, "per-point failures never abort the block")

	assert.Equal(t, 2, details.EstimatedBuildings)
	assert.Equal(t, 6, details.Attempts)
	require.Len(t, details.Buildings, 1)
	assert.Equal(t, 0, details.Buildings[0].HouseNumber)
	assert.Equal(t, "Block 1 Street", details.Buildings[0].StreetName)
}

func TestGridUseCase_FetchBlockDetails_FallsBackToSynthetic(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		addr     *domain.GeocodedAddress
	}{
		{"too far from sample", 80, address("10 Main St, Toronto")},
		{"no house number", 0, address("Toronto, ON, Canada")},
		{"no result", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &stubOracle{areaM2: 300, distanceM: tt.distance}
			geocoder := &MockReverseGeocoder{}
			if tt.addr == nil {
				geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(nil, nil)
			} else {
				geocoder.On("ReverseGeocode", mock.Anything, mock.Anything).Return(tt.addr, nil)
			}

			uc := newGridUseCase(t, oracle,
				usecase.NewGeocodedEstimator(geocoder, oracle, usecase.DefaultMaxMatchDistanceM, zap.NewNop()),
				usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart),
			)

			details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
			require.NoError(t, err)
			require.Len(t, details.Buildings, 2)
			assert.Equal(t, 65, details.Buildings[0].HouseNumber)
			assert.Equal(t, 67, details.Buildings[1].HouseNumber)
			assert.Equal(t, domain.BuildingTypeEstimated, details.Buildings[0].Type)
		})
	}
}

func TestGridUseCase_FetchBlockDetails_PointsOutsideCountAsAttempts(t *testing.T) {
	oracle := &stubOracle{areaM2: 1500, outside: true}
	geocoder := &MockReverseGeocoder{}

	uc := newGridUseCase(t, oracle,
		usecase.NewGeocodedEstimator(geocoder, oracle, usecase.DefaultMaxMatchDistanceM, zap.NewNop()),
	)

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err)
	assert.Empty(t, details.Buildings)
	assert.Equal(t, 30, details.Attempts)
	assert.Equal(t, 30, oracle.containsCalls())
	geocoder.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything)
}

func TestGridUseCase_FetchBlockDetails_SamplesInsideBlock(t *testing.T) {
	uc := newGridUseCase(t, geometry.NewOracle())
	block := firstBlock(t, uc)

	details, err := uc.FetchBlockDetails(context.Background(), block)
	require.NoError(t, err)
	require.NotEmpty(t, details.Buildings)
	for _, b := range details.Buildings {
		assert.True(t, block.Bounds.Contains(b.Coordinate))
	}
}

func TestGridUseCase_FetchBlockDetails_Cancelled(t *testing.T) {
	uc := newGridUseCase(t, &stubOracle{areaM2: 1500})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.FetchBlockDetails(ctx, firstBlock(t, uc))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGridUseCase_FetchBlockDetails_RejectsOversizedBlock(t *testing.T) {
	tests := []struct {
		name   string
		oracle geometry.Oracle
	}{
		{"stub area", &stubOracle{areaM2: 2.5e6}},
		{"wide ring", geometry.NewOracle()},
		{"nan area", &stubOracle{areaM2: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newGridUseCase(t, tt.oracle)
			// a single block covering a 0.2° square
			bounds := domain.Bounds{North: 43.8, South: 43.6, East: -79.3, West: -79.5}
			block := domain.GridBlock{
				ID:          "Wide-block-1",
				Number:      1,
				Bounds:      bounds,
				Coordinates: geometry.RectangleRing(bounds),
			}

			details, err := uc.FetchBlockDetails(context.Background(), &block)
			assert.Nil(t, details)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidPolygon))
		})
	}
}

func TestGridUseCase_FetchBlockDetails_MaxBlockAreaConfigurable(t *testing.T) {
	oracle := &stubOracle{areaM2: 1500}
	opts := usecase.DefaultGridOptions()
	opts.MaxBlockAreaKm2 = 0.001
	uc, err := usecase.NewGridUseCase(oracle, nil, opts, zap.NewNop())
	require.NoError(t, err)

	_, err = uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidPolygon))

	opts.MaxBlockAreaKm2 = 0.01
	uc, err = usecase.NewGridUseCase(oracle, nil, opts, zap.NewNop())
	require.NoError(t, err)

	details, err := uc.FetchBlockDetails(context.Background(), firstBlock(t, uc))
	require.NoError(t, err)
	assert.Equal(t, 10, details.EstimatedBuildings)
}

func TestGridUseCase_FetchTerritoryDetails(t *testing.T) {
	oracle := &stubOracle{areaM2: 600}
	uc := newGridUseCase(t, oracle, usecase.NewSyntheticEstimator(usecase.DefaultSyntheticHouseStart))
	blocks := uc.GenerateBlocks("Riverside", bounds2x2)

	filled, err := uc.FetchTerritoryDetails(context.Background(), blocks, 2)
	require.NoError(t, err)
	require.Len(t, filled, 4)

	for i, b := range filled {
		assert.Equal(t, i+1, b.Number)
		assert.Len(t, b.Buildings, 4)
		require.Len(t, b.Streets, 1)
		assert.Equal(t, usecase.PlaceholderStreet(&b), b.Streets[0].Name)
	}
	// input blocks are not mutated
	assert.Empty(t, blocks[0].Buildings)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in     string
		house  int
		street string
		ok     bool
	}{
		{"123 Main St, Toronto, ON M5V 1A1, Canada", 123, "Main St", true},
		{"45B Queen Street East", 45, "Queen Street East", true},
		{"  7 Elm Ave", 7, "Elm Ave", true},
		{"Toronto, ON", 0, "", false},
		{"", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			house, street, ok := usecase.ParseAddress(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.house, house)
			assert.Equal(t, tt.street, street)
		})
	}
}

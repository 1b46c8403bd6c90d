package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"

	"github.com/territory-service/internal/domain"
)

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Clear(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

// MockReverseGeocoder is a mock of ReverseGeocoder
type MockReverseGeocoder struct {
	mock.Mock
}

func (m *MockReverseGeocoder) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.GeocodedAddress, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeocodedAddress), args.Error(1)
}

// MockOverlapChecker is a mock of OverlapChecker
type MockOverlapChecker struct {
	mock.Mock
}

func (m *MockOverlapChecker) CheckOverlap(ctx context.Context, ring orb.Ring, excludeID string) (*domain.OverlapCheckResult, error) {
	args := m.Called(ctx, ring, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverlapCheckResult), args.Error(1)
}

// MockTerritoryRepository is a mock of TerritoryRepository
type MockTerritoryRepository struct {
	mock.Mock
}

func (m *MockTerritoryRepository) ListWithBoundaries(ctx context.Context) ([]domain.Territory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Territory), args.Error(1)
}

// MockMunicipalitySearcher is a mock of MunicipalitySearcher
type MockMunicipalitySearcher struct {
	mock.Mock
}

func (m *MockMunicipalitySearcher) SearchMunicipalities(ctx context.Context, query string, province *domain.Province, limit int) ([]domain.LocationSearchResult, error) {
	args := m.Called(ctx, query, province, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LocationSearchResult), args.Error(1)
}

// MockCommunitySearcher is a mock of CommunitySearcher
type MockCommunitySearcher struct {
	mock.Mock
}

func (m *MockCommunitySearcher) SearchCommunities(ctx context.Context, area *domain.MunicipalityArea) ([]domain.LocationSearchResult, error) {
	args := m.Called(ctx, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LocationSearchResult), args.Error(1)
}

// MockMunicipalityAreaResolver is a mock of MunicipalityAreaResolver
type MockMunicipalityAreaResolver struct {
	mock.Mock
}

func (m *MockMunicipalityAreaResolver) ResolveMunicipality(ctx context.Context, municipality, province string) (*domain.MunicipalityArea, error) {
	args := m.Called(ctx, municipality, province)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MunicipalityArea), args.Error(1)
}

// MockStreetSearcher is a mock of StreetSearcher
type MockStreetSearcher struct {
	mock.Mock
}

func (m *MockStreetSearcher) SearchStreets(ctx context.Context, center orb.Point, radiusM int, highwayFilter string) ([]domain.StreetResult, error) {
	args := m.Called(ctx, center, radiusM, highwayFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreetResult), args.Error(1)
}

// MockPlaceAutocompleter is a mock of PlaceAutocompleter
type MockPlaceAutocompleter struct {
	mock.Mock
}

func (m *MockPlaceAutocompleter) Autocomplete(ctx context.Context, query string) ([]domain.LocationSearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LocationSearchResult), args.Error(1)
}

// stubOracle is a deterministic geometry oracle with a fixed spherical area
type stubOracle struct {
	mu        sync.Mutex
	areaM2    float64
	distanceM float64
	outside   bool
	contains  int
}

func (s *stubOracle) Contains(ring orb.Ring, p orb.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contains++
	return !s.outside
}

func (s *stubOracle) AreaM2(ring orb.Ring) float64 { return s.areaM2 }

func (s *stubOracle) DistanceM(a, b orb.Point) float64 { return s.distanceM }

func (s *stubOracle) containsCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contains
}

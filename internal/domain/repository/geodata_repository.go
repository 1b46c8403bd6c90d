package repository

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/territory-service/internal/domain"
)

// ReverseGeocoder - обратное геокодирование точки в адрес.
// Пустой результат без ошибки означает, что адреса рядом нет.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, p orb.Point) (*domain.GeocodedAddress, error)
}

// MunicipalitySearcher - поиск населённых пунктов (GeoNames, Nominatim)
type MunicipalitySearcher interface {
	SearchMunicipalities(ctx context.Context, query string, province *domain.Province, limit int) ([]domain.LocationSearchResult, error)
}

// CommunitySearcher - поиск районов внутри муниципалитета
type CommunitySearcher interface {
	SearchCommunities(ctx context.Context, area *domain.MunicipalityArea) ([]domain.LocationSearchResult, error)
}

// MunicipalityAreaResolver - разрешение муниципалитета в OSM relation и bbox
type MunicipalityAreaResolver interface {
	ResolveMunicipality(ctx context.Context, municipality, province string) (*domain.MunicipalityArea, error)
}

// StreetSearcher - именованные улицы вокруг точки
type StreetSearcher interface {
	SearchStreets(ctx context.Context, center orb.Point, radiusM int, highwayFilter string) ([]domain.StreetResult, error)
}

// PlaceAutocompleter - подсказки мест (Google Places через прокси приложения)
type PlaceAutocompleter interface {
	Autocomplete(ctx context.Context, query string) ([]domain.LocationSearchResult, error)
}

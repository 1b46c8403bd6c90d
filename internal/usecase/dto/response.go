package dto

import (
	"github.com/paulmach/osm"

	"github.com/territory-service/internal/domain"
)

// SubdivideResponse - ответ на разбиение территории
type SubdivideResponse struct {
	GridSize int                `json:"grid_size"`
	AreaKm2  float64            `json:"area_km2"`
	Bounds   domain.Bounds      `json:"bounds"`
	Blocks   []domain.GridBlock `json:"blocks"`
}

// LocationListResponse - список результатов поиска мест
type LocationListResponse struct {
	Results []domain.LocationSearchResult `json:"results"`
	Total   int                           `json:"total"`
}

// ProvincesResponse - список провинций
type ProvincesResponse struct {
	Provinces []domain.Province `json:"provinces"`
}

// StreetsResponse - улицы района в порядке приоритета
type StreetsResponse struct {
	Streets []domain.StreetResult `json:"streets"`
	Total   int                   `json:"total"`
}

// ClearCacheResponse - результат очистки кэша
type ClearCacheResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse - состояние сервиса и его зависимостей
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// NewLocationList - обёртка результатов с количеством
func NewLocationList(results []domain.LocationSearchResult) LocationListResponse {
	if results == nil {
		results = []domain.LocationSearchResult{}
	}
	return LocationListResponse{Results: results, Total: len(results)}
}

func osmType(s string) osm.Type {
	switch s {
	case "node":
		return osm.TypeNode
	case "way":
		return osm.TypeWay
	case "relation":
		return osm.TypeRelation
	}
	return ""
}

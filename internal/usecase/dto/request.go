package dto

import (
	"github.com/paulmach/orb"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/geometry"
)

// ValidateBoundaryRequest - запрос на проверку нарисованной границы.
// Замыкание и число вершин проверяет BoundaryValidator, ответ содержит ошибку в errors.
type ValidateBoundaryRequest struct {
	Boundary  [][2]float64 `json:"boundary" validate:"required,min=1,max=10000,dive,lnglat"`
	ExcludeID string       `json:"exclude_id,omitempty" validate:"omitempty,max=64"`
}

// SubdivideRequest - запрос на разбиение территории на блоки
type SubdivideRequest struct {
	Name     string       `json:"name" validate:"required,min=1,max=200"`
	Boundary [][2]float64 `json:"boundary" validate:"required,min=3,max=10000,dive,lnglat"`
}

// BlockDetailsRequest - запрос на детекцию зданий в блоке
type BlockDetailsRequest struct {
	Block BlockInput `json:"block"`
}

// BlockInput - блок, ранее полученный из /territories/blocks
type BlockInput struct {
	ID            string       `json:"id" validate:"required,max=256"`
	Number        int          `json:"number" validate:"required,min=1,max=36"`
	TerritoryName string       `json:"territory_name" validate:"omitempty,max=200"`
	Coordinates   [][2]float64 `json:"coordinates" validate:"required,min=4,max=64,dive,lnglat"`
}

// MunicipalitiesRequest - query-параметры поиска муниципалитетов
type MunicipalitiesRequest struct {
	Query    string `query:"q" validate:"omitempty,max=100"`
	Province string `query:"province" validate:"omitempty,max=50"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

// CommunitiesRequest - query-параметры поиска районов
type CommunitiesRequest struct {
	Municipality string `query:"municipality" validate:"required,min=1,max=100"`
	Province     string `query:"province" validate:"omitempty,max=50"`
}

// StreetsRequest - query-параметры поиска улиц района
type StreetsRequest struct {
	Name    string  `query:"name" validate:"omitempty,max=100"`
	Lat     float64 `query:"lat" validate:"required,min=-90,max=90"`
	Lng     float64 `query:"lng" validate:"required,min=-180,max=180"`
	OSMType string  `query:"osm_type" validate:"omitempty,oneof=node way relation"`
	OSMID   int64   `query:"osm_id" validate:"omitempty,min=1"`
}

// SearchLocationsRequest - query-параметры общего поиска мест
type SearchLocationsRequest struct {
	Query string `query:"q" validate:"required,min=2,max=100"`
}

// Ring - кольцо из пар [lng, lat]
func Ring(pairs [][2]float64) orb.Ring {
	return geometry.RingFromPairs(pairs)
}

// ToDomain восстанавливает блок с производными полями из его кольца
func (b BlockInput) ToDomain() domain.GridBlock {
	ring := geometry.CloseRing(Ring(b.Coordinates))
	bounds := geometry.ComputeBounds(ring)
	return domain.GridBlock{
		ID:            b.ID,
		Number:        b.Number,
		TerritoryName: b.TerritoryName,
		Coordinates:   ring,
		Center:        bounds.Center(),
		Bounds:        bounds,
		AreaKm2:       geometry.ApproximateAreaKm2(bounds),
	}
}

// ToCommunity - район для поиска улиц
func (r StreetsRequest) ToCommunity() domain.LocationSearchResult {
	return domain.LocationSearchResult{
		Name:    r.Name,
		Type:    domain.LocationTypeCommunity,
		Lat:     r.Lat,
		Lng:     r.Lng,
		OSMType: osmType(r.OSMType),
		OSMID:   r.OSMID,
	}
}

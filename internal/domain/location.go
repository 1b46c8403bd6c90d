package domain

import "github.com/paulmach/osm"

// LocationType - уровень административной иерархии результата поиска
type LocationType string

const (
	LocationTypeProvince     LocationType = "province"
	LocationTypeMunicipality LocationType = "municipality"
	LocationTypeCommunity    LocationType = "community"
)

// LocationSearchResult - нормализованный результат поиска мест от разных провайдеров
type LocationSearchResult struct {
	Name       string       `json:"name"`
	Type       LocationType `json:"type"`
	Province   string       `json:"province,omitempty"`
	Lat        float64      `json:"lat"`
	Lng        float64      `json:"lng"`
	Source     string       `json:"source"`
	SourceID   string       `json:"source_id,omitempty"`
	Population int64        `json:"population,omitempty"`
	PlaceType  string       `json:"place_type,omitempty"`
	OSMType    osm.Type     `json:"osm_type,omitempty"`
	OSMID      int64        `json:"osm_id,omitempty"`
}

// HasRelation - у результата есть стабильная ссылка на OSM relation
func (r *LocationSearchResult) HasRelation() bool {
	return r.OSMType == osm.TypeRelation && r.OSMID > 0
}

// Province - провинция или территория Канады
type Province struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	AdminCode1 string  `json:"admin_code1"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// StreetResult - улица рядом с районом
type StreetResult struct {
	Name        string  `json:"name"`
	HighwayType string  `json:"highway_type"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
}

// MunicipalityArea - муниципалитет, разрешённый в OSM relation
type MunicipalityArea struct {
	Name       string
	RelationID osm.RelationID
	Bounds     Bounds
	Lat        float64
	Lng        float64
}

// GeocodedAddress - ответ обратного геокодирования точки
type GeocodedAddress struct {
	FormattedAddress string
	Lat              float64
	Lng              float64
	Provider         string
}

package domain

import "github.com/paulmach/orb"

// BuildingType - происхождение записи о здании
type BuildingType string

const (
	// BuildingTypeResidential - адрес подтверждён обратным геокодированием
	BuildingTypeResidential BuildingType = "residential"
	// BuildingTypeEstimated - синтетический адрес-заглушка
	BuildingTypeEstimated BuildingType = "estimated"
)

// GridBlock - прямоугольный блок сетки, на которую делится территория
type GridBlock struct {
	ID            string         `json:"id"`
	Number        int            `json:"number"`
	TerritoryName string         `json:"territory_name"`
	Coordinates   orb.Ring       `json:"coordinates"`
	Center        orb.Point      `json:"center"`
	Bounds        Bounds         `json:"bounds"`
	AreaKm2       float64        `json:"area_km2"`
	Streets       []StreetData   `json:"streets,omitempty"`
	Buildings     []BuildingData `json:"buildings,omitempty"`
}

// StreetData - улица внутри блока с отсортированными номерами домов
type StreetData struct {
	Name            string      `json:"name"`
	Coordinates     []orb.Point `json:"coordinates"`
	BuildingNumbers []int       `json:"building_numbers"`
	Count           int         `json:"count"`
}

// BuildingData - оценка здания по точке выборки
type BuildingData struct {
	HouseNumber int          `json:"house_number"`
	StreetName  string       `json:"street_name"`
	Coordinate  orb.Point    `json:"coordinate"`
	Type        BuildingType `json:"type"`
}

// BlockDetails - результат детекции зданий и улиц в блоке
type BlockDetails struct {
	BlockID            string         `json:"block_id"`
	Streets            []StreetData   `json:"streets"`
	Buildings          []BuildingData `json:"buildings"`
	EstimatedBuildings int            `json:"estimated_buildings"`
	Attempts           int            `json:"attempts"`
}

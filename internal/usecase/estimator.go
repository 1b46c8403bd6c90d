package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/geometry"
)

// leadingHouseNumber: "123A Main St, Toronto" -> 123, "Main St"
var leadingHouseNumber = regexp.MustCompile(`^\s*(\d+)[A-Za-z]?\s+([^,]+)`)

// Sample - точка выборки внутри блока
type Sample struct {
	Block    *domain.GridBlock
	Point    orb.Point
	Accepted int
}

// BuildingEstimator - стратегия превращения точки выборки в здание.
// (nil, nil) - стратегия не дала результата, пробуется следующая.
// Ошибка означает сбой транспорта, точка записывается как заглушка с номером 0.
type BuildingEstimator interface {
	Name() string
	Estimate(ctx context.Context, s Sample) (*domain.BuildingData, error)
}

// PlaceholderStreet - имя улицы-заглушки блока
func PlaceholderStreet(block *domain.GridBlock) string {
	return fmt.Sprintf("Block %d Street", block.Number)
}

// ParseAddress выделяет ведущий номер дома и улицу из отформатированного адреса
func ParseAddress(formatted string) (int, string, bool) {
	m := leadingHouseNumber.FindStringSubmatch(formatted)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	street := strings.TrimSpace(m[2])
	if street == "" {
		return 0, "", false
	}
	return n, street, true
}

// GeocodedEstimator - реальный адрес через обратное геокодирование
type GeocodedEstimator struct {
	geocoder    repository.ReverseGeocoder
	oracle      geometry.Oracle
	maxDistance float64
	logger      *zap.Logger
}

// NewGeocodedEstimator - maxDistanceM ограничивает расстояние от точки выборки до найденного адреса
func NewGeocodedEstimator(geocoder repository.ReverseGeocoder, oracle geometry.Oracle, maxDistanceM float64, logger *zap.Logger) *GeocodedEstimator {
	return &GeocodedEstimator{
		geocoder:    geocoder,
		oracle:      oracle,
		maxDistance: maxDistanceM,
		logger:      logger,
	}
}

func (e *GeocodedEstimator) Name() string { return "geocoded" }

func (e *GeocodedEstimator) Estimate(ctx context.Context, s Sample) (*domain.BuildingData, error) {
	addr, err := e.geocoder.ReverseGeocode(ctx, s.Point)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, nil
	}

	house, street, ok := ParseAddress(addr.FormattedAddress)
	if !ok {
		e.logger.Debug("Unparseable address", zap.String("address", addr.FormattedAddress))
		return nil, nil
	}

	found := orb.Point{addr.Lng, addr.Lat}
	if d := e.oracle.DistanceM(s.Point, found); d > e.maxDistance {
		e.logger.Debug("Geocoded address too far from sample",
			zap.String("address", addr.FormattedAddress),
			zap.Float64("distance_m", d))
		return nil, nil
	}

	return &domain.BuildingData{
		HouseNumber: house,
		StreetName:  street,
		Coordinate:  s.Point,
		Type:        domain.BuildingTypeResidential,
	}, nil
}

// SyntheticEstimator - заглушка: номера start, start+2, ... по числу принятых зданий
type SyntheticEstimator struct {
	start int
}

func NewSyntheticEstimator(start int) *SyntheticEstimator {
	return &SyntheticEstimator{start: start}
}

func (e *SyntheticEstimator) Name() string { return "synthetic" }

func (e *SyntheticEstimator) Estimate(_ context.Context, s Sample) (*domain.BuildingData, error) {
	return &domain.BuildingData{
		HouseNumber: e.start + 2*s.Accepted,
		StreetName:  PlaceholderStreet(s.Block),
		Coordinate:  s.Point,
		Type:        domain.BuildingTypeEstimated,
	}, nil
}

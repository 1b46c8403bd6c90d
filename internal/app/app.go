// Package app собирает зависимости сервиса из конфигурации; общий для cmd/api и cmd/worker.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/infrastructure/backend"
	"github.com/territory-service/internal/infrastructure/geonames"
	"github.com/territory-service/internal/infrastructure/google"
	"github.com/territory-service/internal/infrastructure/nominatim"
	"github.com/territory-service/internal/infrastructure/overpass"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/ratelimit"
	"github.com/territory-service/internal/repository/cache"
	"github.com/territory-service/internal/repository/postgres"
	"github.com/territory-service/internal/usecase"
)

// Providers - клиенты внешних геосервисов. Каждый клиент создаётся один раз
// и владеет своим ограничителем частоты, поэтому все вызовы провайдера делят лимит.
type Providers struct {
	GeoNames  repository.MunicipalitySearcher
	Overpass  *overpass.Client
	Nominatim *nominatim.Client
	Google    *google.Client
	Backend   *backend.Client
}

// NewProviders создаёт клиентов провайдеров по конфигурации
func NewProviders(cfg *config.Config, logger *zap.Logger) *Providers {
	return &Providers{
		GeoNames:  geonames.NewClient(&cfg.GeoNames, ratelimit.New("geonames", cfg.GeoNames.MinInterval), logger),
		Overpass:  overpass.NewClient(&cfg.Overpass, ratelimit.New("overpass", cfg.Overpass.MinInterval), logger),
		Nominatim: nominatim.NewClient(&cfg.Nominatim, ratelimit.New("nominatim", cfg.Nominatim.MinInterval), logger),
		Google:    google.NewClient(&cfg.Google, ratelimit.New("google", cfg.Google.MinInterval), logger),
		Backend:   backend.NewClient(&cfg.Backend, logger),
	}
}

// LocationProviders - цепочки поиска мест в порядке приоритета
func (p *Providers) LocationProviders() usecase.LocationProviders {
	return usecase.LocationProviders{
		Municipalities: []usecase.MunicipalityProvider{
			{Name: "geonames", Searcher: p.GeoNames},
			{Name: "nominatim", Searcher: p.Nominatim},
		},
		Communities: []usecase.CommunityProvider{
			{Name: "overpass", Searcher: p.Overpass},
			{Name: "nominatim", Searcher: p.Nominatim},
		},
		AreaResolver: p.Nominatim,
		Streets:      p.Overpass,
		Autocomplete: p.Google,
	}
}

// ReverseGeocoder - геокодер для детекции зданий; nil при GRID_REVERSE_GEOCODER=none
func (p *Providers) ReverseGeocoder(name string) repository.ReverseGeocoder {
	switch name {
	case "google":
		return p.Google
	case "nominatim":
		return p.Nominatim
	}
	return nil
}

// NewGridUseCase собирает GridUseCase с цепочкой оценщиков зданий
func NewGridUseCase(cfg *config.Config, p *Providers, logger *zap.Logger) (*usecase.GridUseCase, error) {
	oracle := geometry.NewOracle()
	opts := usecase.GridOptions{
		LotSizeM2:           cfg.Grid.LotSizeM2,
		SyntheticHouseStart: cfg.Grid.SyntheticHouseStart,
		MaxMatchDistanceM:   cfg.Grid.MaxMatchDistanceM,
		AttemptsMultiplier:  cfg.Grid.AttemptsMultiplier,
		MaxBlockAreaKm2:     cfg.Grid.MaxBlockAreaKm2,
	}

	var estimators []usecase.BuildingEstimator
	if geocoder := p.ReverseGeocoder(cfg.Grid.ReverseGeocoder); geocoder != nil {
		estimators = append(estimators, usecase.NewGeocodedEstimator(geocoder, oracle, opts.MaxMatchDistanceM, logger))
	}
	estimators = append(estimators, usecase.NewSyntheticEstimator(opts.SyntheticHouseStart))

	logger.Info("Grid use case configured",
		zap.String("reverse_geocoder", cfg.Grid.ReverseGeocoder),
		zap.Int("estimators", len(estimators)))

	return usecase.NewGridUseCase(oracle, estimators, opts, logger)
}

// TerritorySource - источник существующих территорий для локальной проверки пересечений
type TerritorySource struct {
	Repository repository.TerritoryRepository
	DB         *postgres.DB
}

// Close закрывает соединение с БД, если источник - postgres
func (s *TerritorySource) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewTerritorySource выбирает источник по TERRITORY_SOURCE
func NewTerritorySource(cfg *config.Config, p *Providers, logger *zap.Logger) (*TerritorySource, error) {
	switch cfg.Territory.Source {
	case "postgres":
		db, err := postgres.New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect territory database: %w", err)
		}
		return &TerritorySource{Repository: postgres.NewTerritoryRepository(db), DB: db}, nil
	default:
		return &TerritorySource{Repository: p.Backend}, nil
	}
}

// NewCacheRepository выбирает кэш поиска мест по CACHE_BACKEND; redis может быть nil для memory
func NewCacheRepository(cfg *config.Config, redis *cache.Redis, logger *zap.Logger) repository.CacheRepository {
	if cfg.Cache.Backend == "redis" && redis != nil {
		return cache.NewCacheRepository(redis)
	}
	return cache.NewMemoryCache(logger)
}

package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/metrics"
)

const (
	// LocationCachePrefix - пространство ключей кэша LocationUseCase
	LocationCachePrefix = "location:"
	// DefaultLocationTTL - время жизни закэшированных результатов поиска мест
	DefaultLocationTTL = 5 * time.Minute

	defaultMunicipalityLimit = 10
	maxMunicipalityLimit     = 50

	streetRadiusRelationM = 1000
	streetRadiusApproxM   = 2000
	narrowHighwayFilter   = "primary|secondary|tertiary|residential"
)

var streetPriority = map[string]int{
	"primary":       0,
	"secondary":     1,
	"tertiary":      2,
	"residential":   3,
	"service":       4,
	"unclassified":  5,
	"living_street": 6,
	"pedestrian":    7,
	"footway":       8,
	"path":          9,
	"track":         10,
	"alley":         11,
	"cul_de_sac":    12,
}

var provinces = []domain.Province{
	{Name: "Alberta", Code: "AB", AdminCode1: "01", Lat: 53.9333, Lng: -116.5765},
	{Name: "British Columbia", Code: "BC", AdminCode1: "02", Lat: 53.7267, Lng: -127.6476},
	{Name: "Manitoba", Code: "MB", AdminCode1: "03", Lat: 53.7609, Lng: -98.8139},
	{Name: "New Brunswick", Code: "NB", AdminCode1: "04", Lat: 46.5653, Lng: -66.4619},
	{Name: "Newfoundland and Labrador", Code: "NL", AdminCode1: "05", Lat: 53.1355, Lng: -57.6604},
	{Name: "Nova Scotia", Code: "NS", AdminCode1: "07", Lat: 44.6820, Lng: -63.7443},
	{Name: "Ontario", Code: "ON", AdminCode1: "08", Lat: 51.2538, Lng: -85.3232},
	{Name: "Prince Edward Island", Code: "PE", AdminCode1: "09", Lat: 46.5107, Lng: -63.4168},
	{Name: "Quebec", Code: "QC", AdminCode1: "10", Lat: 52.9399, Lng: -73.5491},
	{Name: "Saskatchewan", Code: "SK", AdminCode1: "11", Lat: 52.9399, Lng: -106.4509},
	{Name: "Yukon", Code: "YT", AdminCode1: "12", Lat: 64.2823, Lng: -135.0000},
	{Name: "Northwest Territories", Code: "NT", AdminCode1: "13", Lat: 64.8255, Lng: -124.8457},
	{Name: "Nunavut", Code: "NU", AdminCode1: "14", Lat: 70.2998, Lng: -83.1076},
}

// MunicipalityProvider - именованный шаг цепочки поиска муниципалитетов
type MunicipalityProvider struct {
	Name     string
	Searcher repository.MunicipalitySearcher
}

// CommunityProvider - именованный шаг цепочки поиска районов
type CommunityProvider struct {
	Name     string
	Searcher repository.CommunitySearcher
}

// LocationProviders - внешние источники геоданных в порядке приоритета
type LocationProviders struct {
	Municipalities []MunicipalityProvider
	Communities    []CommunityProvider
	AreaResolver   repository.MunicipalityAreaResolver
	Streets        repository.StreetSearcher
	Autocomplete   repository.PlaceAutocompleter
}

// LocationUseCase - каскадный поиск провинция → муниципалитет → район → улицы
type LocationUseCase struct {
	providers LocationProviders
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewLocationUseCase - создание нового LocationUseCase
func NewLocationUseCase(
	providers LocationProviders,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *LocationUseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultLocationTTL
	}
	return &LocationUseCase{
		providers: providers,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Provinces - статический список провинций и территорий Канады
func (uc *LocationUseCase) Provinces(_ context.Context) []domain.Province {
	out := make([]domain.Province, len(provinces))
	copy(out, provinces)
	return out
}

// FindProvince ищет провинцию по названию или двухбуквенному коду
func FindProvince(nameOrCode string) *domain.Province {
	s := strings.TrimSpace(nameOrCode)
	for i := range provinces {
		if strings.EqualFold(provinces[i].Code, s) || strings.EqualFold(provinces[i].Name, s) {
			p := provinces[i]
			return &p
		}
	}
	return nil
}

// Municipalities - населённые пункты по префиксу названия, по убыванию населения
func (uc *LocationUseCase) Municipalities(ctx context.Context, query, province string, limit int) ([]domain.LocationSearchResult, error) {
	if limit <= 0 {
		limit = defaultMunicipalityLimit
	}
	if limit > maxMunicipalityLimit {
		limit = maxMunicipalityLimit
	}

	var prov *domain.Province
	if province != "" {
		if prov = FindProvince(province); prov == nil {
			return nil, errors.ErrInvalidRequest.WithMessage(fmt.Sprintf("Unknown province %q", province))
		}
	}

	query = strings.TrimSpace(query)
	key := cacheKey("municipalities", strings.ToLower(query), provinceCode(prov), fmt.Sprint(limit))

	return cachedCall(ctx, uc, key, func(ctx context.Context) ([]domain.LocationSearchResult, bool, error) {
		chain := make([]strategy[domain.LocationSearchResult], 0, len(uc.providers.Municipalities))
		for _, p := range uc.providers.Municipalities {
			chain = append(chain, strategy[domain.LocationSearchResult]{
				name: p.Name,
				run: func(ctx context.Context) ([]domain.LocationSearchResult, error) {
					results, err := p.Searcher.SearchMunicipalities(ctx, query, prov, limit)
					if err != nil {
						return nil, err
					}
					return filterByProvince(results, prov), nil
				},
			})
		}

		results, complete, err := runChain(ctx, uc.logger, "municipalities", chain)
		if err != nil {
			return nil, false, err
		}

		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Population > results[j].Population
		})
		if len(results) > limit {
			results = results[:limit]
		}
		return results, complete, nil
	})
}

// Communities - районы муниципалитета: Overpass по area, затем Nominatim по bbox
func (uc *LocationUseCase) Communities(ctx context.Context, municipality, province string) ([]domain.LocationSearchResult, error) {
	municipality = strings.TrimSpace(municipality)
	if municipality == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("Municipality is required")
	}

	provName := province
	if p := FindProvince(province); p != nil {
		provName = p.Name
	}

	key := cacheKey("communities", strings.ToLower(municipality), strings.ToLower(provName))

	return cachedCall(ctx, uc, key, func(ctx context.Context) ([]domain.LocationSearchResult, bool, error) {
		if uc.providers.AreaResolver == nil {
			return []domain.LocationSearchResult{}, false, nil
		}

		area, err := uc.providers.AreaResolver.ResolveMunicipality(ctx, municipality, provName)
		if err != nil {
			if stderrors.Is(err, errors.ErrLocationNotFound) {
				uc.logger.Info("Municipality has no OSM relation",
					zap.String("municipality", municipality),
					zap.String("province", provName))
				return []domain.LocationSearchResult{}, true, nil
			}
			if stderrors.Is(err, errors.ErrProviderAuth) {
				return nil, false, err
			}
			uc.logger.Warn("Failed to resolve municipality area",
				zap.String("municipality", municipality),
				zap.Error(err))
			return []domain.LocationSearchResult{}, false, nil
		}

		chain := make([]strategy[domain.LocationSearchResult], 0, len(uc.providers.Communities))
		for _, p := range uc.providers.Communities {
			chain = append(chain, strategy[domain.LocationSearchResult]{
				name: p.Name,
				run: func(ctx context.Context) ([]domain.LocationSearchResult, error) {
					return p.Searcher.SearchCommunities(ctx, area)
				},
			})
		}

		return runChain(ctx, uc.logger, "communities", chain)
	})
}

// Streets - именованные улицы вокруг района, ранжированные по типу дороги.
// Таймаут провайдера не возвращается вызывающему: после одного повтора результат пустой.
func (uc *LocationUseCase) Streets(ctx context.Context, community domain.LocationSearchResult) ([]domain.StreetResult, error) {
	key := cacheKey("streets",
		strings.ToLower(community.Name),
		fmt.Sprintf("%.5f", community.Lat),
		fmt.Sprintf("%.5f", community.Lng),
		fmt.Sprint(community.OSMID))

	return cachedCall(ctx, uc, key, func(ctx context.Context) ([]domain.StreetResult, bool, error) {
		if uc.providers.Streets == nil {
			return []domain.StreetResult{}, false, nil
		}

		center := orb.Point{community.Lng, community.Lat}
		radius := streetRadiusApproxM
		if community.HasRelation() {
			radius = streetRadiusRelationM
		}

		streets, err := uc.providers.Streets.SearchStreets(ctx, center, radius, "")
		if err != nil && stderrors.Is(err, errors.ErrProviderTimeout) {
			uc.logger.Warn("Street search timed out, retrying with narrower query",
				zap.String("community", community.Name),
				zap.Int("radius_m", radius/2))
			streets, err = uc.providers.Streets.SearchStreets(ctx, center, radius/2, narrowHighwayFilter)
		}
		if err != nil {
			uc.logger.Warn("Street search failed",
				zap.String("community", community.Name),
				zap.Error(err))
			return []domain.StreetResult{}, false, nil
		}

		return RankStreets(streets), true, nil
	})
}

// RankStreets убирает дубликаты по названию и сортирует по приоритету типа дороги, затем по названию
func RankStreets(streets []domain.StreetResult) []domain.StreetResult {
	seen := make(map[string]struct{}, len(streets))
	out := make([]domain.StreetResult, 0, len(streets))
	for _, s := range streets {
		if s.Name == "" {
			continue
		}
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := highwayRank(out[i].HighwayType), highwayRank(out[j].HighwayType)
		if pi != pj {
			return pi < pj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func highwayRank(highway string) int {
	if p, ok := streetPriority[highway]; ok {
		return p
	}
	return len(streetPriority)
}

// Search - поиск мест для строки поиска: провинции и муниципалитеты, иначе подсказки Google
func (uc *LocationUseCase) Search(ctx context.Context, query string) ([]domain.LocationSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("Query is required")
	}

	key := cacheKey("search", strings.ToLower(query))

	return cachedCall(ctx, uc, key, func(ctx context.Context) ([]domain.LocationSearchResult, bool, error) {
		results := make([]domain.LocationSearchResult, 0)
		lower := strings.ToLower(query)
		for _, p := range provinces {
			if strings.HasPrefix(strings.ToLower(p.Name), lower) || strings.EqualFold(p.Code, query) {
				results = append(results, domain.LocationSearchResult{
					Name:     p.Name,
					Type:     domain.LocationTypeProvince,
					Province: p.Code,
					Lat:      p.Lat,
					Lng:      p.Lng,
					Source:   "static",
				})
			}
		}

		municipalities, err := uc.Municipalities(ctx, query, "", defaultMunicipalityLimit)
		if err != nil {
			return nil, false, err
		}
		results = append(results, municipalities...)
		if len(results) > 0 || uc.providers.Autocomplete == nil {
			return results, true, nil
		}

		predictions, err := uc.providers.Autocomplete.Autocomplete(ctx, query)
		if err != nil {
			if stderrors.Is(err, errors.ErrProviderAuth) {
				return nil, false, err
			}
			uc.logger.Warn("Place autocomplete failed", zap.String("query", query), zap.Error(err))
			return results, false, nil
		}
		return append(results, predictions...), true, nil
	})
}

// ClearCache удаляет все закэшированные результаты поиска мест
func (uc *LocationUseCase) ClearCache(ctx context.Context) (int, error) {
	removed, err := uc.cacheRepo.Clear(ctx, LocationCachePrefix)
	if err != nil {
		uc.logger.Error("Failed to clear location cache", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", errors.ErrCacheError, err)
	}
	uc.logger.Info("Location cache cleared", zap.Int("removed", removed))
	return removed, nil
}

type strategy[T any] struct {
	name string
	run  func(ctx context.Context) ([]T, error)
}

// runChain пробует стратегии по порядку и возвращает первый непустой результат.
// ErrProviderAuth прерывает цепочку; прочие ошибки провайдеров понижают результат до пустого.
// complete=false означает, что пустой результат получен из-за сбоев и кэшировать его нельзя.
func runChain[T any](ctx context.Context, logger *zap.Logger, op string, chain []strategy[T]) ([]T, bool, error) {
	complete := true
	for _, s := range chain {
		results, err := s.run(ctx)
		if err != nil {
			if stderrors.Is(err, errors.ErrProviderAuth) {
				logger.Error("Provider rejected credentials",
					zap.String("operation", op),
					zap.String("provider", s.name),
					zap.Error(err))
				return nil, false, err
			}
			logger.Warn("Provider failed, trying next",
				zap.String("operation", op),
				zap.String("provider", s.name),
				zap.Error(err))
			complete = false
			continue
		}
		if len(results) > 0 {
			logger.Debug("Provider returned results",
				zap.String("operation", op),
				zap.String("provider", s.name),
				zap.Int("count", len(results)))
			return results, true, nil
		}
	}
	return []T{}, complete, nil
}

// cachedCall читает результат из кэша или вычисляет и сохраняет его.
// Ошибки кэша не прерывают запрос.
func cachedCall[T any](
	ctx context.Context,
	uc *LocationUseCase,
	key string,
	load func(ctx context.Context) (T, bool, error),
) (T, error) {
	var zero T

	cached, err := uc.cacheRepo.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Failed to read location cache", zap.String("key", key), zap.Error(err))
	}
	if cached != nil {
		var value T
		if err := json.Unmarshal(cached, &value); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return value, nil
		}
		uc.logger.Warn("Corrupted location cache entry", zap.String("key", key))
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	value, cacheable, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if !cacheable {
		return value, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		uc.logger.Warn("Failed to marshal location cache entry", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := uc.cacheRepo.Set(ctx, key, data, uc.cacheTTL); err != nil {
		uc.logger.Warn("Failed to write location cache", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func cacheKey(method string, params ...string) string {
	return LocationCachePrefix + method + ":" + strings.Join(params, ":")
}

func provinceCode(p *domain.Province) string {
	if p == nil {
		return ""
	}
	return p.Code
}

func filterByProvince(results []domain.LocationSearchResult, p *domain.Province) []domain.LocationSearchResult {
	if p == nil {
		return results
	}
	out := results[:0:0]
	for _, r := range results {
		if r.Province == "" || strings.EqualFold(r.Province, p.Name) || strings.EqualFold(r.Province, p.Code) {
			out = append(out, r)
		}
	}
	return out
}

package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/metrics"
	"github.com/territory-service/internal/pkg/ratelimit"
	"go.uber.org/zap"
)

const providerName = "geonames"

// Коды status.value из документации GeoNames
const (
	statusAuthorization  = 10
	statusDailyLimit     = 18
	statusHourlyLimit    = 19
	statusWeeklyLimit    = 20
	statusServerOverload = 22
)

type client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient создает клиент GeoNames searchJSON
func NewClient(cfg *config.GeoNamesConfig, limiter *ratelimit.Limiter, logger *zap.Logger) repository.MunicipalitySearcher {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		limiter:  limiter,
		logger:   logger.Named("geonames"),
	}
}

type searchResponse struct {
	TotalResultsCount int            `json:"totalResultsCount"`
	Geonames          []geonameEntry `json:"geonames"`
	Status            *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

type geonameEntry struct {
	GeonameID  int64  `json:"geonameId"`
	Name       string `json:"name"`
	AdminName1 string `json:"adminName1"`
	AdminCode1 string `json:"adminCode1"`
	Lat        string `json:"lat"`
	Lng        string `json:"lng"`
	Population int64  `json:"population"`
	FCode      string `json:"fcode"`
}

// SearchMunicipalities - населённые пункты Канады (featureClass=P), отсортированные GeoNames по населению
func (c *client) SearchMunicipalities(ctx context.Context, query string, province *domain.Province, limit int) ([]domain.LocationSearchResult, error) {
	params := url.Values{}
	if query != "" {
		params.Set("name_startsWith", query)
	}
	params.Set("country", "CA")
	params.Set("featureClass", "P")
	params.Set("maxRows", strconv.Itoa(limit))
	params.Set("orderby", "population")
	params.Set("style", "FULL")
	params.Set("username", c.username)
	if province != nil && province.AdminCode1 != "" {
		params.Set("adminCode1", province.AdminCode1)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/searchJSON?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Error("GeoNames request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: geonames: %v", errors.ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		metrics.ObserveProvider(providerName, "auth", started)
		c.logger.Error("GeoNames rejected credentials", zap.String("username", c.username))
		return nil, fmt.Errorf("%w: geonames status 401", errors.ErrProviderAuth)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveProvider(providerName, "error", started)
		return nil, fmt.Errorf("%w: geonames status %d", errors.ErrProviderError, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		return nil, fmt.Errorf("%w: failed to decode geonames response: %v", errors.ErrProviderError, err)
	}

	// GeoNames сообщает об ошибках в теле при HTTP 200
	if body.Status != nil {
		switch body.Status.Value {
		case statusAuthorization:
			metrics.ObserveProvider(providerName, "auth", started)
			c.logger.Error("GeoNames authorization error", zap.String("message", body.Status.Message))
			return nil, fmt.Errorf("%w: %s", errors.ErrProviderAuth, body.Status.Message)
		case statusDailyLimit, statusHourlyLimit, statusWeeklyLimit, statusServerOverload:
			metrics.ObserveProvider(providerName, "limited", started)
			c.logger.Warn("GeoNames limit exceeded", zap.String("message", body.Status.Message))
			return nil, fmt.Errorf("%w: %s", errors.ErrProviderError, body.Status.Message)
		default:
			metrics.ObserveProvider(providerName, "error", started)
			return nil, fmt.Errorf("%w: %s", errors.ErrProviderError, body.Status.Message)
		}
	}

	metrics.ObserveProvider(providerName, "ok", started)

	results := make([]domain.LocationSearchResult, 0, len(body.Geonames))
	for _, g := range body.Geonames {
		lat, _ := strconv.ParseFloat(g.Lat, 64)
		lng, _ := strconv.ParseFloat(g.Lng, 64)
		results = append(results, domain.LocationSearchResult{
			Name:       g.Name,
			Type:       domain.LocationTypeMunicipality,
			Province:   g.AdminName1,
			Lat:        lat,
			Lng:        lng,
			Source:     providerName,
			SourceID:   strconv.FormatInt(g.GeonameID, 10),
			Population: g.Population,
			PlaceType:  g.FCode,
		})
	}

	c.logger.Debug("GeoNames search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))

	return results, nil
}

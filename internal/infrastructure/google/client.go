package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/metrics"
	"github.com/territory-service/internal/pkg/ratelimit"
	"go.uber.org/zap"
)

const providerName = "google"

// Статусы ответов Geocoding/Places API
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusRequestDenied  = "REQUEST_DENIED"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// Client - клиент Google Geocoding/Places через серверный прокси приложения
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient создает клиент Google. Если прокси подставляет ключ сам, APIKey пустой.
func NewClient(cfg *config.GoogleConfig, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: limiter,
		logger:  logger.Named("google"),
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// ReverseGeocode - первый (самый точный) адрес для точки; ZERO_RESULTS - (nil, nil)
func (c *Client) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.GeocodedAddress, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%.7f,%.7f", p.Lat(), p.Lon()))
	params.Set("result_type", "street_address|premise")

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	first := resp.Results[0]
	return &domain.GeocodedAddress{
		FormattedAddress: first.FormattedAddress,
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		Provider:         providerName,
	}, nil
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		Description          string   `json:"description"`
		PlaceID              string   `json:"place_id"`
		Types                []string `json:"types"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

// Autocomplete - подсказки регионов Канады для поиска по мере ввода
func (c *Client) Autocomplete(ctx context.Context, query string) ([]domain.LocationSearchResult, error) {
	params := url.Values{}
	params.Set("input", query)
	params.Set("types", "(regions)")
	params.Set("components", "country:ca")

	var resp autocompleteResponse
	if err := c.get(ctx, "/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	results := make([]domain.LocationSearchResult, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		name := p.StructuredFormatting.MainText
		if name == "" {
			name = p.Description
		}
		results = append(results, domain.LocationSearchResult{
			Name:      name,
			Type:      locationType(p.Types),
			Province:  provinceFromSecondary(p.StructuredFormatting.SecondaryText),
			Source:    providerName,
			SourceID:  p.PlaceID,
			PlaceType: firstOrEmpty(p.Types),
		})
	}
	return results, nil
}

func (c *Client) checkStatus(status, message string) error {
	switch status {
	case statusOK, statusZeroResults:
		return nil
	case statusRequestDenied:
		c.logger.Error("Google rejected request", zap.String("message", message))
		return fmt.Errorf("%w: google: %s", errors.ErrProviderAuth, message)
	case statusOverQueryLimit:
		c.logger.Warn("Google quota exceeded", zap.String("message", message))
		return fmt.Errorf("%w: google quota exceeded", errors.ErrProviderError)
	default:
		return fmt.Errorf("%w: google status %s", errors.ErrProviderError, status)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Warn("Google request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: google: %v", errors.ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveProvider(providerName, "error", started)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: google proxy status %d", errors.ErrProviderAuth, resp.StatusCode)
		}
		return fmt.Errorf("%w: google proxy status %d", errors.ErrProviderError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		return fmt.Errorf("%w: failed to decode google response: %v", errors.ErrProviderError, err)
	}

	metrics.ObserveProvider(providerName, "ok", started)
	return nil
}

func locationType(types []string) domain.LocationType {
	for _, t := range types {
		switch t {
		case "administrative_area_level_1":
			return domain.LocationTypeProvince
		case "sublocality", "sublocality_level_1", "neighborhood":
			return domain.LocationTypeCommunity
		}
	}
	return domain.LocationTypeMunicipality
}

// provinceFromSecondary: "ON, Canada" -> "ON"
func provinceFromSecondary(s string) string {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

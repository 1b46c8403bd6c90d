package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/metrics"
	"github.com/territory-service/internal/pkg/ratelimit"
	"go.uber.org/zap"
)

const providerName = "nominatim"

// communityPhrases - специальные фразы Nominatim для поиска районов в viewbox
var communityPhrases = []string{"neighbourhood", "suburb", "quarter"}

// communityTypes - допустимые значения place у районов
var communityTypes = map[string]bool{
	"neighbourhood": true,
	"suburb":        true,
	"quarter":       true,
	"district":      true,
}

// Client - клиент Nominatim (поиск и обратное геокодирование)
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	email      string
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient создает клиент Nominatim. User-Agent обязателен по правилам использования.
func NewClient(cfg *config.NominatimConfig, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		email:     cfg.Email,
		limiter:   limiter,
		logger:    logger.Named("nominatim"),
	}
}

type place struct {
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	AddressType string            `json:"addresstype"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	ExtraTags   map[string]string `json:"extratags"`
	BoundingBox []string          `json:"boundingbox"`
	Error       string            `json:"error"`
}

func (p *place) point() orb.Point {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)
	return orb.Point{lon, lat}
}

// bounds - boundingbox Nominatim в порядке [south, north, west, east]
func (p *place) bounds() domain.Bounds {
	if len(p.BoundingBox) != 4 {
		return domain.Bounds{}
	}
	v := make([]float64, 4)
	for i, s := range p.BoundingBox {
		v[i], _ = strconv.ParseFloat(s, 64)
	}
	return domain.Bounds{South: v[0], North: v[1], West: v[2], East: v[3]}
}

func (p *place) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	if i := strings.Index(p.DisplayName, ","); i > 0 {
		return p.DisplayName[:i]
	}
	return p.DisplayName
}

func (p *place) toResult(kind domain.LocationType) domain.LocationSearchResult {
	pt := p.point()
	population, _ := strconv.ParseInt(p.ExtraTags["population"], 10, 64)
	placeType := p.AddressType
	if placeType == "" {
		placeType = p.Type
	}
	return domain.LocationSearchResult{
		Name:       p.displayName(),
		Type:       kind,
		Province:   p.Address["state"],
		Lat:        pt.Lat(),
		Lng:        pt.Lon(),
		Source:     providerName,
		SourceID:   fmt.Sprintf("%s/%d", p.OSMType, p.OSMID),
		Population: population,
		PlaceType:  placeType,
		OSMType:    osm.Type(p.OSMType),
		OSMID:      p.OSMID,
	}
}

// SearchMunicipalities - структурированный поиск населённых пунктов Канады
func (c *Client) SearchMunicipalities(ctx context.Context, query string, province *domain.Province, limit int) ([]domain.LocationSearchResult, error) {
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("city", query)
	if province != nil {
		params.Set("state", province.Name)
	}
	params.Set("country", "Canada")
	params.Set("countrycodes", "ca")
	params.Set("featureType", "settlement")
	params.Set("addressdetails", "1")
	params.Set("extratags", "1")
	params.Set("limit", strconv.Itoa(limit))

	var places []place
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	results := make([]domain.LocationSearchResult, 0, len(places))
	for i := range places {
		results = append(results, places[i].toResult(domain.LocationTypeMunicipality))
	}
	return results, nil
}

// ResolveMunicipality находит OSM relation муниципалитета и его bbox
func (c *Client) ResolveMunicipality(ctx context.Context, municipality, province string) (*domain.MunicipalityArea, error) {
	q := municipality
	if province != "" {
		q += ", " + province
	}
	q += ", Canada"

	params := url.Values{}
	params.Set("q", q)
	params.Set("countrycodes", "ca")
	params.Set("limit", "5")

	var places []place
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	for i := range places {
		p := &places[i]
		if osm.Type(p.OSMType) != osm.TypeRelation {
			continue
		}
		pt := p.point()
		return &domain.MunicipalityArea{
			Name:       p.displayName(),
			RelationID: osm.RelationID(p.OSMID),
			Bounds:     p.bounds(),
			Lat:        pt.Lat(),
			Lng:        pt.Lon(),
		}, nil
	}

	return nil, errors.ErrLocationNotFound.WithDetails(map[string]interface{}{
		"municipality": municipality,
		"province":     province,
	})
}

// SearchCommunities - поиск районов внутри bbox муниципалитета (bounded viewbox)
func (c *Client) SearchCommunities(ctx context.Context, area *domain.MunicipalityArea) ([]domain.LocationSearchResult, error) {
	if area == nil || !area.Bounds.Valid() || area.Bounds == (domain.Bounds{}) {
		return nil, nil
	}

	b := area.Bounds
	viewbox := fmt.Sprintf("%f,%f,%f,%f", b.West, b.North, b.East, b.South)

	seen := make(map[string]struct{})
	var results []domain.LocationSearchResult
	for _, phrase := range communityPhrases {
		params := url.Values{}
		params.Set("q", phrase)
		params.Set("viewbox", viewbox)
		params.Set("bounded", "1")
		params.Set("addressdetails", "1")
		params.Set("limit", "50")

		var places []place
		if err := c.get(ctx, "/search", params, &places); err != nil {
			return nil, err
		}

		for i := range places {
			p := &places[i]
			if !communityTypes[p.Type] && !communityTypes[p.AddressType] {
				continue
			}
			r := p.toResult(domain.LocationTypeCommunity)
			if _, ok := seen[r.Name]; ok {
				continue
			}
			seen[r.Name] = struct{}{}
			results = append(results, r)
		}
	}

	return results, nil
}

// ReverseGeocode - адрес ближайшего здания; (nil, nil) если Nominatim не нашёл адрес
func (c *Client) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.GeocodedAddress, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(p.Lat(), 'f', 7, 64))
	params.Set("lon", strconv.FormatFloat(p.Lon(), 'f', 7, 64))
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")

	var res place
	if err := c.get(ctx, "/reverse", params, &res); err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, nil
	}

	formatted := res.DisplayName
	if house, road := res.Address["house_number"], res.Address["road"]; house != "" && road != "" {
		formatted = house + " " + road
	}

	pt := res.point()
	return &domain.GeocodedAddress{
		FormattedAddress: formatted,
		Lat:              pt.Lat(),
		Lng:              pt.Lon(),
		Provider:         providerName,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("format", "jsonv2")
	if c.email != "" {
		params.Set("email", c.email)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			metrics.ObserveProvider(providerName, "timeout", started)
			return fmt.Errorf("%w: nominatim: %v", errors.ErrProviderTimeout, err)
		}
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Error("Nominatim request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: nominatim: %v", errors.ErrProviderError, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusGatewayTimeout:
		metrics.ObserveProvider(providerName, "timeout", started)
		return fmt.Errorf("%w: nominatim status 504", errors.ErrProviderTimeout)
	default:
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Error("Nominatim returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("%w: nominatim status %d", errors.ErrProviderError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		return fmt.Errorf("%w: failed to decode nominatim response: %v", errors.ErrProviderError, err)
	}

	metrics.ObserveProvider(providerName, "ok", started)
	c.logger.Debug("Nominatim call successful", zap.String("path", path))
	return nil
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}

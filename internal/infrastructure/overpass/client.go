package overpass

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
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

const providerName = "overpass"

// AreaIDOffset - соглашение Overpass: area id = relation id + 3600000000
const AreaIDOffset int64 = 3600000000

// DefaultQueryTimeout - [timeout:25] в запросе и дедлайн контекста
const DefaultQueryTimeout = 25 * time.Second

// CommunityPlaces - значения тега place, которые считаются районами
const CommunityPlaces = "neighbourhood|suburb|quarter|hamlet"

// Client - клиент Overpass API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	queryTimeout time.Duration
	limiter      *ratelimit.Limiter
	logger       *zap.Logger
}

// NewClient создает клиент Overpass
func NewClient(cfg *config.OverpassConfig, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Client{
		httpClient:   &http.Client{},
		baseURL:      cfg.BaseURL,
		queryTimeout: timeout,
		limiter:      limiter,
		logger:       logger.Named("overpass"),
	}
}

// Element - элемент ответа Overpass с `out center tags`
type Element struct {
	Type   osm.Type `json:"type"`
	ID     int64    `json:"id"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags osm.Tags `json:"tags"`
}

// Point - координата узла или центр way/relation
func (e *Element) Point() orb.Point {
	if e.Center != nil {
		return orb.Point{e.Center.Lon, e.Center.Lat}
	}
	return orb.Point{e.Lon, e.Lat}
}

type response struct {
	Elements []Element `json:"elements"`
	Remark   string    `json:"remark"`
}

// AreaID переводит OSM relation в id области Overpass
func AreaID(rel osm.RelationID) int64 {
	return int64(rel) + AreaIDOffset
}

// CommunitiesQuery - районы внутри области муниципалитета
func (c *Client) CommunitiesQuery(rel osm.RelationID) string {
	filter := fmt.Sprintf(`["place"~"^(%s)$"]["name"](area.a)`, CommunityPlaces)
	return fmt.Sprintf(`[out:json][timeout:%d];
area(id:%d)->.a;
(
  node%s;
  way%s;
  relation%s;
);
out center tags;`, c.timeoutSeconds(), AreaID(rel), filter, filter, filter)
}

// StreetsQuery - именованные highway в радиусе от точки; пустой filter - любые типы
func (c *Client) StreetsQuery(center orb.Point, radiusM int, highwayFilter string) string {
	highway := `["highway"]`
	if highwayFilter != "" {
		highway = fmt.Sprintf(`["highway"~"^(%s)$"]`, highwayFilter)
	}
	return fmt.Sprintf(`[out:json][timeout:%d];
way%s["name"](around:%d,%f,%f);
out center tags;`, c.timeoutSeconds(), highway, radiusM, center.Lat(), center.Lon())
}

// SearchCommunities ищет районы в муниципалитете; без relation возвращает пустой список
func (c *Client) SearchCommunities(ctx context.Context, area *domain.MunicipalityArea) ([]domain.LocationSearchResult, error) {
	if area == nil || area.RelationID == 0 {
		return nil, nil
	}

	elements, err := c.Query(ctx, c.CommunitiesQuery(area.RelationID))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(elements))
	results := make([]domain.LocationSearchResult, 0, len(elements))
	for i := range elements {
		el := &elements[i]
		name := el.Tags.Find("name")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		p := el.Point()
		results = append(results, domain.LocationSearchResult{
			Name:      name,
			Type:      domain.LocationTypeCommunity,
			Lat:       p.Lat(),
			Lng:       p.Lon(),
			Source:    providerName,
			SourceID:  fmt.Sprintf("%s/%d", el.Type, el.ID),
			PlaceType: el.Tags.Find("place"),
			OSMType:   el.Type,
			OSMID:     el.ID,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// SearchStreets возвращает именованные way вокруг точки в порядке ответа Overpass
func (c *Client) SearchStreets(ctx context.Context, center orb.Point, radiusM int, highwayFilter string) ([]domain.StreetResult, error) {
	elements, err := c.Query(ctx, c.StreetsQuery(center, radiusM, highwayFilter))
	if err != nil {
		return nil, err
	}

	streets := make([]domain.StreetResult, 0, len(elements))
	for i := range elements {
		el := &elements[i]
		name := el.Tags.Find("name")
		if name == "" {
			continue
		}
		p := el.Point()
		streets = append(streets, domain.StreetResult{
			Name:        name,
			HighwayType: el.Tags.Find("highway"),
			Lat:         p.Lat(),
			Lng:         p.Lon(),
		})
	}
	return streets, nil
}

// Query выполняет запрос Overpass QL. HTTP 504 и истечение дедлайна - ErrProviderTimeout.
func (c *Client) Query(ctx context.Context, ql string) ([]Element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(ql))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	c.logger.Debug("Calling Overpass API", zap.Int("query_len", len(ql)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			metrics.ObserveProvider(providerName, "timeout", started)
			c.logger.Warn("Overpass request timed out", zap.Duration("timeout", c.queryTimeout))
			return nil, fmt.Errorf("%w: overpass: %v", errors.ErrProviderTimeout, err)
		}
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Error("Overpass request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: overpass: %v", errors.ErrProviderError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		metrics.ObserveProvider(providerName, "timeout", started)
		c.logger.Warn("Overpass returned 504")
		return nil, fmt.Errorf("%w: overpass status 504", errors.ErrProviderTimeout)
	case resp.StatusCode != http.StatusOK:
		metrics.ObserveProvider(providerName, "error", started)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Overpass returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: overpass status %d", errors.ErrProviderError, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		return nil, fmt.Errorf("%w: failed to decode overpass response: %v", errors.ErrProviderError, err)
	}

	// runtime error в remark означает, что сервер прервал запрос по [timeout:N]
	if strings.Contains(body.Remark, "runtime error") && strings.Contains(body.Remark, "timed out") {
		metrics.ObserveProvider(providerName, "timeout", started)
		return nil, fmt.Errorf("%w: %s", errors.ErrProviderTimeout, body.Remark)
	}

	metrics.ObserveProvider(providerName, "ok", started)
	c.logger.Debug("Overpass call successful", zap.Int("elements", len(body.Elements)))
	return body.Elements, nil
}

func (c *Client) timeoutSeconds() int {
	return int(c.queryTimeout / time.Second)
}

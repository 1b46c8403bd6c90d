package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/metrics"
	"go.uber.org/zap"
)

const providerName = "backend"

// Client - клиент REST бэкенда: проверка пересечений и список территорий
type Client struct {
	httpClient    *http.Client
	baseURL       string
	overlapPath   string
	territoryPath string
	authToken     string
	logger        *zap.Logger
}

// NewClient создает новый клиент бэкенда
func NewClient(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:       cfg.BaseURL,
		overlapPath:   cfg.OverlapPath,
		territoryPath: cfg.TerritoryPath,
		authToken:     cfg.AuthToken,
		logger:        logger.Named("backend"),
	}
}

type overlapRequest struct {
	Boundary      *geojson.Geometry `json:"boundary"`
	ExcludeZoneID string            `json:"excludeZoneId,omitempty"`
}

type zoneRef struct {
	ID      string `json:"id"`
	MongoID string `json:"_id"`
	Name    string `json:"name"`
}

func (z zoneRef) id() string {
	if z.ID != "" {
		return z.ID
	}
	return z.MongoID
}

type overlapResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		HasOverlap       bool      `json:"hasOverlap"`
		OverlappingZones []zoneRef `json:"overlappingZones"`
	} `json:"data"`
}

// CheckOverlap отправляет замкнутое кольцо на бэкенд. Любой сбой (транспорт, не-2xx,
// success=false) возвращается как ErrBackendUnreachable.
func (c *Client) CheckOverlap(ctx context.Context, ring orb.Ring, excludeID string) (*domain.OverlapCheckResult, error) {
	body, err := json.Marshal(overlapRequest{
		Boundary:      geojson.NewGeometry(orb.Polygon{ring}),
		ExcludeZoneID: excludeID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal overlap request: %w", err)
	}

	var resp overlapResponse
	if err := c.do(ctx, http.MethodPost, c.overlapPath, bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	if !resp.Success || resp.Data == nil {
		c.logger.Warn("Overlap check rejected by backend", zap.String("message", resp.Message))
		return nil, fmt.Errorf("%w: %s", errors.ErrBackendUnreachable, resp.Message)
	}

	result := &domain.OverlapCheckResult{
		HasOverlap:       resp.Data.HasOverlap,
		OverlappingZones: make([]domain.OverlappingZone, 0, len(resp.Data.OverlappingZones)),
	}
	for _, z := range resp.Data.OverlappingZones {
		result.OverlappingZones = append(result.OverlappingZones, domain.OverlappingZone{
			ID:   z.id(),
			Name: z.Name,
		})
	}

	c.logger.Debug("Overlap check completed",
		zap.Bool("has_overlap", result.HasOverlap),
		zap.Int("zones", len(result.OverlappingZones)))

	return result, nil
}

type territoryDTO struct {
	zoneRef
	Status     string            `json:"status"`
	Boundary   *geojson.Geometry `json:"boundary"`
	Assignment *struct {
		AgentID       *string   `json:"agentId"`
		TeamID        *string   `json:"teamId"`
		EffectiveFrom time.Time `json:"effectiveFrom"`
	} `json:"currentAssignment"`
}

type territoryListResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    []territoryDTO `json:"data"`
}

// ListWithBoundaries читает все территории в режиме визуализации
func (c *Client) ListWithBoundaries(ctx context.Context) ([]domain.Territory, error) {
	var resp territoryListResponse
	if err := c.do(ctx, http.MethodGet, c.territoryPath+"?visualization=true", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", errors.ErrBackendUnreachable, resp.Message)
	}

	territories := make([]domain.Territory, 0, len(resp.Data))
	for _, t := range resp.Data {
		territory := domain.Territory{
			ID:     t.id(),
			Name:   t.Name,
			Status: domain.TerritoryStatus(t.Status),
		}
		if t.Boundary != nil {
			territory.Boundary = geometry.OuterRing(t.Boundary.Coordinates)
		}
		if t.Assignment != nil {
			territory.Assignment = &domain.Assignment{
				AgentID:       t.Assignment.AgentID,
				TeamID:        t.Assignment.TeamID,
				EffectiveFrom: t.Assignment.EffectiveFrom,
			}
		}
		territories = append(territories, territory)
	}

	c.logger.Debug("Territories loaded", zap.Int("count", len(territories)))
	return territories, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		c.logger.Warn("Backend request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", errors.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveProvider(providerName, "error", started)
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("Backend returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(data)))
		return fmt.Errorf("%w: status %d", errors.ErrBackendUnreachable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveProvider(providerName, "error", started)
		return fmt.Errorf("%w: failed to decode response: %v", errors.ErrBackendUnreachable, err)
	}

	metrics.ObserveProvider(providerName, "ok", started)
	return nil
}

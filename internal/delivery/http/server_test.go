package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/delivery/http/handler"
	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/repository/cache"
	"github.com/territory-service/internal/usecase"
)

type fakeChecker struct {
	result *domain.OverlapCheckResult
	err    error
}

func (f *fakeChecker) CheckOverlap(context.Context, orb.Ring, string) (*domain.OverlapCheckResult, error) {
	return f.result, f.err
}

type fakeTerritories struct {
	list []domain.Territory
}

func (f *fakeTerritories) ListWithBoundaries(context.Context) ([]domain.Territory, error) {
	return f.list, nil
}

type fakeMunicipalities struct {
	results []domain.LocationSearchResult
	err     error
}

func (f *fakeMunicipalities) SearchMunicipalities(context.Context, string, *domain.Province, int) ([]domain.LocationSearchResult, error) {
	return f.results, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *errors.AppError `json:"error"`
}

func newTestServer(t *testing.T, checker *fakeChecker, munis *fakeMunicipalities, checks map[string]HealthChecker) *Server {
	t.Helper()
	logger := zap.NewNop()

	existing := &fakeTerritories{list: []domain.Territory{{
		ID:       "t-1",
		Name:     "Downtown West",
		Boundary: geometry.RectangleRing(domain.Bounds{North: 43.656, South: 43.650, East: -79.380, West: -79.388}),
	}}}
	validator := usecase.NewBoundaryValidator(checker, existing, logger)

	opts := usecase.DefaultGridOptions()
	opts.Seed = 1
	gridUC, err := usecase.NewGridUseCase(geometry.NewOracle(), nil, opts, logger)
	require.NoError(t, err)

	locationUC := usecase.NewLocationUseCase(usecase.LocationProviders{
		Municipalities: []usecase.MunicipalityProvider{{Name: "geonames", Searcher: munis}},
	}, cache.NewMemoryCache(logger), logger, 0)

	return NewServer(
		&config.Config{},
		logger,
		handler.NewTerritoryHandler(validator, gridUC, logger),
		handler.NewBlockHandler(gridUC, time.Minute, logger),
		handler.NewLocationHandler(locationUC, logger),
		checks,
	)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

var candidate = [][2]float64{
	{-79.392, 43.647}, {-79.392, 43.653}, {-79.384, 43.653}, {-79.384, 43.647},
}

func TestServer_ValidateBoundary(t *testing.T) {
	t.Run("backend down uses local territories", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{err: errors.ErrBackendUnreachable}, &fakeMunicipalities{}, nil)

		status, env := doJSON(t, s, "POST", "/api/v1/territories/validate", map[string]interface{}{"boundary": candidate})
		require.Equal(t, 200, status)

		var result domain.ValidationResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, domain.ValidationPathLocal, result.Path)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Downtown West")
	})

	t.Run("backend verdict", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{result: &domain.OverlapCheckResult{}}, &fakeMunicipalities{}, nil)

		status, env := doJSON(t, s, "POST", "/api/v1/territories/validate", map[string]interface{}{"boundary": candidate})
		require.Equal(t, 200, status)

		var result domain.ValidationResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)

		status, env := doJSON(t, s, "POST", "/api/v1/territories/validate", map[string]interface{}{
			"boundary": [][2]float64{{-79.3, 95}},
		})
		assert.Equal(t, 400, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	})
}

func TestServer_SubdivideAndDetails(t *testing.T) {
	s := newTestServer(t, &fakeChecker{result: &domain.OverlapCheckResult{}}, &fakeMunicipalities{}, nil)

	status, env := doJSON(t, s, "POST", "/api/v1/territories/blocks", map[string]interface{}{
		"name": "Annex",
		"boundary": [][2]float64{
			{-79.383, 43.649}, {-79.383, 43.651}, {-79.378, 43.651}, {-79.378, 43.649},
		},
	})
	require.Equal(t, 200, status)

	var sub struct {
		GridSize int                `json:"grid_size"`
		Blocks   []domain.GridBlock `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, 2, sub.GridSize)
	require.Len(t, sub.Blocks, 4)
	assert.Equal(t, "Annex-block-1", sub.Blocks[0].ID)

	// A tiny block keeps the synthetic sampling short.
	status, env = doJSON(t, s, "POST", "/api/v1/blocks/details", map[string]interface{}{
		"block": map[string]interface{}{
			"id":     "Annex-block-1",
			"number": 1,
			"coordinates": [][2]float64{
				{-79.3830, 43.6490}, {-79.3830, 43.6495}, {-79.3825, 43.6495}, {-79.3825, 43.6490}, {-79.3830, 43.6490},
			},
		},
	})
	require.Equal(t, 200, status)

	var details domain.BlockDetails
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "Annex-block-1", details.BlockID)
	assert.Positive(t, details.EstimatedBuildings)
	assert.LessOrEqual(t, details.Attempts, 3*details.EstimatedBuildings)
	assert.NotEmpty(t, details.Buildings)
}

func TestServer_BlockDetailsRejectsOversizedBlock(t *testing.T) {
	s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)

	// about 0.2° x 0.2°, far above the block area limit
	status, env := doJSON(t, s, "POST", "/api/v1/blocks/details", map[string]interface{}{
		"block": map[string]interface{}{
			"id":     "Wide-block-1",
			"number": 1,
			"coordinates": [][2]float64{
				{-79.50, 43.60}, {-79.50, 43.80}, {-79.30, 43.80}, {-79.30, 43.60}, {-79.50, 43.60},
			},
		},
	})
	assert.Equal(t, 400, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_POLYGON", env.Error.Code)
	assert.Contains(t, env.Error.Message, "exceeds")
}

func TestServer_SubdivideRejectsDegenerateRing(t *testing.T) {
	s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)

	status, env := doJSON(t, s, "POST", "/api/v1/territories/blocks", map[string]interface{}{
		"name":     "Line",
		"boundary": [][2]float64{{-79.38, 43.65}, {-79.37, 43.65}, {-79.38, 43.65}},
	})
	assert.Equal(t, 400, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_POLYGON", env.Error.Code)
}

func TestServer_Locations(t *testing.T) {
	t.Run("provinces", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)
		status, env := doJSON(t, s, "GET", "/api/v1/locations/provinces", nil)
		require.Equal(t, 200, status)

		var resp struct {
			Provinces []domain.Province `json:"provinces"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Len(t, resp.Provinces, 13)
	})

	t.Run("municipalities auth error", func(t *testing.T) {
		munis := &fakeMunicipalities{err: errors.ErrProviderAuth}
		s := newTestServer(t, &fakeChecker{}, munis, nil)

		status, env := doJSON(t, s, "GET", "/api/v1/locations/municipalities?q=Tor&province=ON", nil)
		assert.Equal(t, 502, status)
		require.NotNil(t, env.Error)
		assert.True(t, stderrors.Is(env.Error, errors.ErrProviderAuth))
	})

	t.Run("municipalities", func(t *testing.T) {
		munis := &fakeMunicipalities{results: []domain.LocationSearchResult{
			{Name: "Toronto", Province: "Ontario", Population: 2800000},
		}}
		s := newTestServer(t, &fakeChecker{}, munis, nil)

		status, env := doJSON(t, s, "GET", "/api/v1/locations/municipalities?q=Tor&province=ON&limit=5", nil)
		require.Equal(t, 200, status)

		var resp struct {
			Results []domain.LocationSearchResult `json:"results"`
			Total   int                           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, "Toronto", resp.Results[0].Name)
	})

	t.Run("streets require coordinates", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)
		status, _ := doJSON(t, s, "GET", "/api/v1/locations/streets?name=Annex", nil)
		assert.Equal(t, 400, status)
	})

	t.Run("clear cache", func(t *testing.T) {
		s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)
		status, _ := doJSON(t, s, "DELETE", "/api/v1/locations/cache", nil)
		assert.Equal(t, 200, status)
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, map[string]HealthChecker{
		"redis": fakeHealth{},
	})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	s = newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, map[string]HealthChecker{
		"postgres": fakeHealth{err: stderrors.New("down")},
	})
	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, &fakeChecker{}, &fakeMunicipalities{}, nil)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

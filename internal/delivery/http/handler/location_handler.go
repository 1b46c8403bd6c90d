package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/utils"
	"github.com/territory-service/internal/pkg/validator"
	"github.com/territory-service/internal/usecase"
	"github.com/territory-service/internal/usecase/dto"
)

// LocationHandler - каскадный выбор провинции, муниципалитета, района и улиц
type LocationHandler struct {
	locationUC *usecase.LocationUseCase
	logger     *zap.Logger
}

// NewLocationHandler - создание нового LocationHandler
func NewLocationHandler(locationUC *usecase.LocationUseCase, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		locationUC: locationUC,
		logger:     logger,
	}
}

// Provinces godoc
// @Summary Провинции и территории Канады
// @Tags Locations
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.ProvincesResponse}
// @Router /api/v1/locations/provinces [get]
func (h *LocationHandler) Provinces(c *fiber.Ctx) error {
	list := h.locationUC.Provinces(c.UserContext())
	return utils.SendSuccess(c, dto.ProvincesResponse{Provinces: list}, &utils.Meta{Total: len(list)})
}

// Municipalities godoc
// @Summary Поиск муниципалитетов
// @Description Населённые пункты по началу названия, по убыванию населения. GeoNames, при пустом ответе Nominatim.
// @Tags Locations
// @Produce json
// @Param q query string false "Начало названия"
// @Param province query string false "Название или код провинции"
// @Param limit query int false "Максимум результатов" default(10)
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationListResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/locations/municipalities [get]
func (h *LocationHandler) Municipalities(c *fiber.Ctx) error {
	var req dto.MunicipalitiesRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	results, err := h.locationUC.Municipalities(c.UserContext(), req.Query, req.Province, req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.NewLocationList(results)
	return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
}

// Communities godoc
// @Summary Районы муниципалитета
// @Description Районы из OSM (Overpass по area муниципалитета), при пустом ответе поиск Nominatim в bbox муниципалитета.
// @Tags Locations
// @Produce json
// @Param municipality query string true "Название муниципалитета"
// @Param province query string false "Название или код провинции"
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationListResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/locations/communities [get]
func (h *LocationHandler) Communities(c *fiber.Ctx) error {
	var req dto.CommunitiesRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	results, err := h.locationUC.Communities(c.UserContext(), req.Municipality, req.Province)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.NewLocationList(results)
	return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
}

// Streets godoc
// @Summary Улицы района
// @Description Именованные улицы в радиусе от центра района, по приоритету типа дороги. Таймаут Overpass даёт пустой список.
// @Tags Locations
// @Produce json
// @Param name query string false "Название района"
// @Param lat query number true "Широта центра"
// @Param lng query number true "Долгота центра"
// @Param osm_type query string false "Тип OSM объекта района (node, way, relation)"
// @Param osm_id query int false "ID OSM объекта района"
// @Success 200 {object} utils.SuccessResponse{data=dto.StreetsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/locations/streets [get]
func (h *LocationHandler) Streets(c *fiber.Ctx) error {
	var req dto.StreetsRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	streets, err := h.locationUC.Streets(c.UserContext(), req.ToCommunity())
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.StreetsResponse{Streets: streets, Total: len(streets)}, &utils.Meta{Total: len(streets)})
}

// Search godoc
// @Summary Поиск мест
// @Description Провинции по началу названия и муниципалитеты; если ничего не найдено, подсказки Google Places.
// @Tags Locations
// @Produce json
// @Param q query string true "Поисковый запрос (минимум 2 символа)"
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationListResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/locations/search [get]
func (h *LocationHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchLocationsRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	results, err := h.locationUC.Search(c.UserContext(), req.Query)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.NewLocationList(results)
	return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
}

// ClearCache godoc
// @Summary Очистка кэша поиска мест
// @Tags Locations
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.ClearCacheResponse}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/locations/cache [delete]
func (h *LocationHandler) ClearCache(c *fiber.Ctx) error {
	removed, err := h.locationUC.ClearCache(c.UserContext())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.ClearCacheResponse{Removed: removed}, nil)
}

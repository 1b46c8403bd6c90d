package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/utils"
	"github.com/territory-service/internal/pkg/validator"
	"github.com/territory-service/internal/usecase"
	"github.com/territory-service/internal/usecase/dto"
)

// TerritoryHandler - проверка и разбиение нарисованных территорий
type TerritoryHandler struct {
	validator *usecase.BoundaryValidator
	gridUC    *usecase.GridUseCase
	logger    *zap.Logger
}

// NewTerritoryHandler - создание нового TerritoryHandler
func NewTerritoryHandler(v *usecase.BoundaryValidator, gridUC *usecase.GridUseCase, logger *zap.Logger) *TerritoryHandler {
	return &TerritoryHandler{
		validator: v,
		gridUC:    gridUC,
		logger:    logger,
	}
}

// Validate godoc
// @Summary Проверка границы территории
// @Description Проверяет пересечение нарисованной границы с существующими территориями. Сначала спрашивает бэкенд, при его недоступности проверяет локально. Пересечение возвращается в errors, а не как HTTP ошибка.
// @Tags Territories
// @Accept json
// @Produce json
// @Param request body dto.ValidateBoundaryRequest true "Граница в виде пар [lng, lat]"
// @Success 200 {object} utils.SuccessResponse{data=domain.ValidationResult}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/territories/validate [post]
func (h *TerritoryHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidateBoundaryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result := h.validator.ValidateWithSource(c.UserContext(), dto.Ring(req.Boundary), req.ExcludeID)
	return utils.SendSuccess(c, result, nil)
}

// Subdivide godoc
// @Summary Разбиение территории на блоки
// @Description Делит bounding box территории на сетку от 2x2 до 6x6 в зависимости от площади. Блоки нумеруются с юго-запада построчно.
// @Tags Territories
// @Accept json
// @Produce json
// @Param request body dto.SubdivideRequest true "Название и граница территории"
// @Success 200 {object} utils.SuccessResponse{data=dto.SubdivideResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/territories/blocks [post]
func (h *TerritoryHandler) Subdivide(c *fiber.Ctx) error {
	var req dto.SubdivideRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	ring := dto.Ring(req.Boundary)
	blocks, err := h.gridUC.Subdivide(req.Name, ring)
	if err != nil {
		return utils.SendError(c, err)
	}

	bounds := geometry.ComputeBounds(ring)
	return utils.SendSuccess(c, dto.SubdivideResponse{
		GridSize: h.gridUC.ChooseGridSize(bounds),
		AreaKm2:  geometry.ApproximateAreaKm2(bounds),
		Bounds:   bounds,
		Blocks:   blocks,
	}, &utils.Meta{Total: len(blocks)})
}

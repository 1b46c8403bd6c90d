package handler

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/utils"
	"github.com/territory-service/internal/pkg/validator"
	"github.com/territory-service/internal/usecase"
	"github.com/territory-service/internal/usecase/dto"
)

// BlockHandler - детекция зданий и улиц в блоке по запросу
type BlockHandler struct {
	gridUC  *usecase.GridUseCase
	timeout time.Duration
	logger  *zap.Logger
}

// NewBlockHandler - создание нового BlockHandler. timeout ограничивает обработку
// одного блока; 0 отключает ограничение.
func NewBlockHandler(gridUC *usecase.GridUseCase, timeout time.Duration, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{
		gridUC:  gridUC,
		timeout: timeout,
		logger:  logger,
	}
}

// Details godoc
// @Summary Здания и улицы блока
// @Description Оценивает число зданий по площади блока и опрашивает точки внутри блока обратным геокодированием. Точки без адреса заполняются синтетическими номерами.
// @Tags Blocks
// @Accept json
// @Produce json
// @Param request body dto.BlockDetailsRequest true "Блок из /territories/blocks"
// @Success 200 {object} utils.SuccessResponse{data=domain.BlockDetails}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 504 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/blocks/details [post]
func (h *BlockHandler) Details(c *fiber.Ctx) error {
	var req dto.BlockDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	started := time.Now()
	block := req.Block.ToDomain()
	details, err := h.gridUC.FetchBlockDetails(ctx, &block)
	if err != nil {
		h.logger.Error("Failed to fetch block details",
			zap.String("block_id", block.ID),
			zap.Error(err))
		if stderrors.Is(err, context.DeadlineExceeded) {
			return utils.SendError(c, errors.ErrProviderTimeout.WithMessage("Block details timed out"))
		}
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, details, &utils.Meta{
		Total:    len(details.Buildings),
		TimeMSec: float64(time.Since(started).Microseconds()) / 1000,
	})
}

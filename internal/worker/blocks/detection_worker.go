package blocks

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/usecase"
	"github.com/territory-service/internal/worker"
)

const (
	maxBatchSize    = 5                      // территорий за один проход
	emptyQueueSleep = 200 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second
	retryBackoff    = 500 * time.Millisecond
)

// BlockDetectionWorker разбивает территории из stream на блоки и заполняет их зданиями и улицами
type BlockDetectionWorker struct {
	*worker.BaseWorker
	streamRepo  repository.StreamRepository
	gridUC      *usecase.GridUseCase
	maxRetries  int
	concurrency int
}

// NewBlockDetectionWorker создает новый BlockDetectionWorker
func NewBlockDetectionWorker(
	streamRepo repository.StreamRepository,
	gridUC *usecase.GridUseCase,
	consumerGroup string,
	maxRetries int,
	concurrency int,
	logger *zap.Logger,
) *BlockDetectionWorker {
	return &BlockDetectionWorker{
		BaseWorker:  worker.NewBaseWorker("block-detection", consumerGroup, logger),
		streamRepo:  streamRepo,
		gridUC:      gridUC,
		maxRetries:  maxRetries,
		concurrency: concurrency,
	}
}

// Start запускает воркер
func (w *BlockDetectionWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting BlockDetectionWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.ConsumerName()),
		zap.Int("concurrency", w.concurrency))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamBlocksRequested, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		processed, err := w.ProcessBatch(ctx)
		if err != nil {
			logger.Error("Failed to process batch", zap.Error(err))
			w.Sleep(ctx, errorSleep)
			continue
		}
		if processed == 0 {
			w.Sleep(ctx, emptyQueueSleep)
		}
	}
}

// ProcessBatch читает пачку запросов, обрабатывает их и подтверждает.
// Возвращает количество прочитанных сообщений.
func (w *BlockDetectionWorker) ProcessBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamBlocksRequested, w.ConsumerGroup(), w.ConsumerName(), maxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger.Info("Processing batch", zap.Int("message_count", len(messages)))

	acks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var event domain.BlocksRequestedEvent
		if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			// битое сообщение подтверждаем, чтобы не застревало в pending
			acks = append(acks, msg.ID)
			continue
		}

		done := w.process(ctx, &event)
		if err := w.streamRepo.PublishToStream(ctx, domain.StreamBlocksDone, done); err != nil {
			// без ACK сообщение останется в pending и будет переобработано
			logger.Error("Failed to publish done event",
				zap.String("request_id", event.RequestID.String()),
				zap.Error(err))
			continue
		}
		acks = append(acks, msg.ID)
	}

	if len(acks) > 0 {
		if err := w.streamRepo.AckMessages(ctx, domain.StreamBlocksRequested, w.ConsumerGroup(), acks); err != nil {
			logger.Error("Failed to ack messages", zap.Error(err))
		}
	}

	return len(messages), nil
}

func (w *BlockDetectionWorker) process(ctx context.Context, event *domain.BlocksRequestedEvent) *domain.BlocksDoneEvent {
	logger := w.Logger().With(
		zap.String("request_id", event.RequestID.String()),
		zap.String("territory_id", event.TerritoryID))

	done := &domain.BlocksDoneEvent{
		RequestID:   event.RequestID,
		TerritoryID: event.TerritoryID,
	}

	blocks, err := w.gridUC.Subdivide(event.Name, event.Ring())
	if err != nil {
		logger.Warn("Territory rejected", zap.Error(err))
		done.Error = err.Error()
		return done
	}
	done.GridSize = int(math.Round(math.Sqrt(float64(len(blocks)))))

	started := time.Now()
	err = w.Retry(ctx, w.maxRetries, retryBackoff, retryable, func(ctx context.Context) error {
		filled, err := w.gridUC.FetchTerritoryDetails(ctx, blocks, w.concurrency)
		if err != nil {
			return err
		}
		done.Blocks = filled
		return nil
	})
	if err != nil {
		logger.Error("Failed to fetch block details", zap.Error(err))
		done.Error = err.Error()
		done.Blocks = blocks
		return done
	}

	logger.Info("Territory processed",
		zap.Int("blocks", len(done.Blocks)),
		zap.Duration("duration", time.Since(started)))
	return done
}

func retryable(err error) bool {
	return !stderrors.Is(err, context.Canceled) &&
		!stderrors.Is(err, errors.ErrInvalidPolygon) &&
		!stderrors.Is(err, errors.ErrProviderAuth)
}

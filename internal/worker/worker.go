package worker

import (
	"context"
)

// Worker - фоновый потребитель Redis Streams под управлением WorkerManager
type Worker interface {
	// Start блокируется до остановки воркера или отмены контекста
	Start(ctx context.Context) error

	// Stop сигнализирует воркеру завершиться
	Stop() error

	Name() string
}

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type loopWorker struct {
	*BaseWorker
	started chan struct{}
	panics  bool
}

func newLoopWorker(name string) *loopWorker {
	return &loopWorker{
		BaseWorker: NewBaseWorker(name, "group", zap.NewNop()),
		started:    make(chan struct{}),
	}
}

func (w *loopWorker) Start(ctx context.Context) error {
	close(w.started)
	if w.panics {
		panic("boom")
	}
	<-w.StopChan()
	return nil
}

type stuckWorker struct {
	*BaseWorker
}

func (w *stuckWorker) Start(ctx context.Context) error {
	select {}
}

func TestWorkerManager_StartStop(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), time.Second)
	a, b := newLoopWorker("a"), newLoopWorker("b")
	m.Register(a)
	m.Register(b)

	require.NoError(t, m.Start(context.Background()))
	<-a.started
	<-b.started

	assert.NoError(t, m.Stop())
	assert.True(t, a.IsStopped())
	assert.True(t, b.IsStopped())
}

func TestWorkerManager_NoWorkers(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), 0)
	assert.Error(t, m.Start(context.Background()))
}

func TestWorkerManager_RecoversPanics(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), time.Second)
	w := newLoopWorker("panicky")
	w.panics = true
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	<-w.started
	assert.NoError(t, m.Stop())
}

func TestWorkerManager_ShutdownTimeout(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), 50*time.Millisecond)
	m.Register(&stuckWorker{BaseWorker: NewBaseWorker("stuck", "group", zap.NewNop())})

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Stop())
}

func TestBaseWorker_StopIsIdempotent(t *testing.T) {
	w := NewBaseWorker("w", "group", zap.NewNop())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.True(t, w.IsStopped())
	assert.False(t, w.Sleep(context.Background(), time.Hour))
	assert.NotEmpty(t, w.ConsumerName())
}

func TestBaseWorker_Retry(t *testing.T) {
	errTemporary := errors.New("temporary")
	errFatal := errors.New("fatal")
	w := NewBaseWorker("w", "group", zap.NewNop())

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := w.Retry(context.Background(), 3, time.Millisecond, nil, func(context.Context) error {
			calls++
			if calls < 3 {
				return errTemporary
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := w.Retry(context.Background(), 5, time.Millisecond, func(err error) bool {
			return !errors.Is(err, errFatal)
		}, func(context.Context) error {
			calls++
			return errFatal
		})
		assert.ErrorIs(t, err, errFatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := w.Retry(context.Background(), 2, time.Millisecond, nil, func(context.Context) error {
			calls++
			return errTemporary
		})
		assert.ErrorIs(t, err, errTemporary)
		assert.Equal(t, 2, calls)
	})
}

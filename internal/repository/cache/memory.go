package cache

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/territory-service/internal/domain/repository"
	"go.uber.org/zap"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryCache - процессный кеш с TTL. Просроченные записи удаляются при чтении
// и при явном Clear, фоновой очистки нет.
type memoryCache struct {
	items  *xsync.MapOf[string, memoryEntry]
	now    func() time.Time
	logger *zap.Logger
}

// NewMemoryCache создает процессный кеш
func NewMemoryCache(logger *zap.Logger) repository.CacheRepository {
	return newMemoryCache(time.Now, logger)
}

func newMemoryCache(now func() time.Time, logger *zap.Logger) *memoryCache {
	return &memoryCache{
		items:  xsync.NewMapOf[string, memoryEntry](),
		now:    now,
		logger: logger,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := c.items.Load(key)
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.items.Delete(key)
		return nil, nil
	}
	return entry.value, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.items.Store(key, entry)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

func (c *memoryCache) Clear(_ context.Context, prefix string) (int, error) {
	removed := 0
	c.items.Range(func(key string, _ memoryEntry) bool {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
			removed++
		}
		return true
	})

	c.logger.Info("Memory cache cleared", zap.String("prefix", prefix), zap.Int("removed", removed))
	return removed, nil
}

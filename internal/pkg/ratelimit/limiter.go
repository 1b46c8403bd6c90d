// Package ratelimit разносит запросы к внешнему провайдеру минимум на заданный интервал.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter - ограничитель частоты для одного клиента провайдера.
// Каждый клиент владеет своим экземпляром, глобального состояния нет.
type Limiter struct {
	name     string
	interval time.Duration
	limiter  *rate.Limiter
}

// New создаёт ограничитель "не чаще одного запроса в interval".
// Нулевой interval отключает ограничение.
func New(name string, interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		name:     name,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Wait блокирует до момента, когда можно отправлять следующий запрос
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", l.name, err)
	}
	return nil
}

// Interval возвращает минимальный интервал между запросами
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Name возвращает имя провайдера
func (l *Limiter) Name() string {
	return l.name
}

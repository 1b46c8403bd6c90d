package repository

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/territory-service/internal/domain"
)

// TerritoryRepository - источник существующих территорий (REST бэкенд или postgres)
type TerritoryRepository interface {
	// ListWithBoundaries возвращает территории для визуализации и локальной проверки пересечений
	ListWithBoundaries(ctx context.Context) ([]domain.Territory, error)
}

// OverlapChecker - авторитетная проверка пересечений на стороне бэкенда
type OverlapChecker interface {
	CheckOverlap(ctx context.Context, ring orb.Ring, excludeID string) (*domain.OverlapCheckResult, error)
}

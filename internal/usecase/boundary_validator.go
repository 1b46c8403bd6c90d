package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/metrics"
)

// LargeAreaNoticeKm2 - выше этой площади плоская оценка площади и сетки неточна
const LargeAreaNoticeKm2 = 50.0

const (
	backendOverlapMessage = "Boundary overlaps with existing territory: %s"
	localOverlapMessage   = "Boundary overlaps with an existing territory: %s"
	localOnlyWarning      = "Overlap service unavailable, boundary was checked locally only"
	sourceFailedWarning   = "Existing territories could not be loaded, overlap was not checked"
	largeAreaNotice       = "Territory area is about %.1f km², block sizes may be inaccurate above %.0f km²"
)

type territoryLoader func(ctx context.Context) ([]domain.Territory, error)

// BoundaryValidator решает, можно ли сохранить нарисованную границу.
// Вердикт бэкенда приоритетен; при его недоступности работает локальная проверка.
type BoundaryValidator struct {
	checker     repository.OverlapChecker
	territories repository.TerritoryRepository
	logger      *zap.Logger
}

// NewBoundaryValidator - checker и territories могут быть nil (только локальная проверка / без источника)
func NewBoundaryValidator(
	checker repository.OverlapChecker,
	territories repository.TerritoryRepository,
	logger *zap.Logger,
) *BoundaryValidator {
	return &BoundaryValidator{
		checker:     checker,
		territories: territories,
		logger:      logger,
	}
}

// Validate проверяет кандидата против переданного списка территорий
func (v *BoundaryValidator) Validate(ctx context.Context, candidate orb.Ring, existing []domain.Territory, excludeID string) *domain.ValidationResult {
	return v.validate(ctx, candidate, excludeID, func(context.Context) ([]domain.Territory, error) {
		return existing, nil
	})
}

// ValidateWithSource загружает существующие территории из источника только если нужна локальная проверка
func (v *BoundaryValidator) ValidateWithSource(ctx context.Context, candidate orb.Ring, excludeID string) *domain.ValidationResult {
	return v.validate(ctx, candidate, excludeID, func(ctx context.Context) ([]domain.Territory, error) {
		if v.territories == nil {
			return nil, fmt.Errorf("territory source is not configured")
		}
		return v.territories.ListWithBoundaries(ctx)
	})
}

func (v *BoundaryValidator) validate(ctx context.Context, candidate orb.Ring, excludeID string, load territoryLoader) *domain.ValidationResult {
	result := &domain.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
		Path:     domain.ValidationPathNone,
	}

	ring := geometry.CloseRing(candidate)
	if !geometry.ValidateRing(ring) {
		result.Errors = append(result.Errors, errors.ErrInvalidPolygon.Message)
		v.observe(result, "invalid")
		return result
	}

	if area := geometry.ApproximateAreaKm2(geometry.ComputeBounds(ring)); area > LargeAreaNoticeKm2 {
		result.Notices = append(result.Notices, fmt.Sprintf(largeAreaNotice, area, LargeAreaNoticeKm2))
	}

	if v.checker != nil {
		backend, err := v.checker.CheckOverlap(ctx, ring, excludeID)
		if err == nil {
			result.Path = domain.ValidationPathBackend
			result.Backend = backend
			if backend.HasOverlap {
				names := make([]string, 0, len(backend.OverlappingZones))
				for _, z := range backend.OverlappingZones {
					names = append(names, z.Name)
				}
				result.Conflicts = names
				result.Errors = append(result.Errors, fmt.Sprintf(backendOverlapMessage, strings.Join(names, ", ")))
			}
			v.observe(result, verdict(result))
			return result
		}

		v.logger.Warn("Backend overlap check failed, falling back to local validation",
			zap.String("exclude_id", excludeID),
			zap.Error(err))
	}

	result.Path = domain.ValidationPathLocal
	result.Warnings = append(result.Warnings, localOnlyWarning)

	existing, err := load(ctx)
	if err != nil {
		v.logger.Error("Failed to load territories for local validation", zap.Error(err))
		result.Warnings = append(result.Warnings, sourceFailedWarning)
		v.observe(result, "unchecked")
		return result
	}

	var conflicts []string
	for i := range existing {
		t := &existing[i]
		if t.ID == excludeID || !t.HasBoundary() {
			continue
		}
		if geometry.PolygonsOverlap(ring, t.Boundary) {
			conflicts = append(conflicts, t.Name)
		}
	}
	if len(conflicts) > 0 {
		result.Conflicts = conflicts
		result.Errors = append(result.Errors, fmt.Sprintf(localOverlapMessage, strings.Join(conflicts, ", ")))
	}

	v.observe(result, verdict(result))
	return result
}

func verdict(r *domain.ValidationResult) string {
	if r.Valid() {
		return "valid"
	}
	return "overlap"
}

func (v *BoundaryValidator) observe(r *domain.ValidationResult, verdict string) {
	metrics.ValidationOutcomes.WithLabelValues(string(r.Path), verdict).Inc()
	v.logger.Debug("Boundary validated",
		zap.String("path", string(r.Path)),
		zap.String("verdict", verdict),
		zap.Int("errors", len(r.Errors)),
		zap.Int("warnings", len(r.Warnings)))
}

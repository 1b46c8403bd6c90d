package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
)

// visibleStatuses - статусы зон, участвующих в проверке пересечений
var visibleStatuses = []string{
	string(domain.TerritoryStatusDraft),
	string(domain.TerritoryStatusScheduled),
	string(domain.TerritoryStatusActive),
	string(domain.TerritoryStatusInactive),
	string(domain.TerritoryStatusCompleted),
}

type territoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewTerritoryRepository - read-only доступ к таблице zones бэкенда
func NewTerritoryRepository(db *DB) repository.TerritoryRepository {
	return &territoryRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

type territoryRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Status        string         `db:"status"`
	BoundaryJSON  sql.NullString `db:"boundary_json"`
	AgentID       sql.NullString `db:"agent_id"`
	TeamID        sql.NullString `db:"team_id"`
	EffectiveFrom sql.NullTime   `db:"effective_from"`
}

// ListWithBoundaries возвращает зоны с текущим назначением; граница - внешнее кольцо из PostGIS
func (r *territoryRepository) ListWithBoundaries(ctx context.Context) ([]domain.Territory, error) {
	query := `
		SELECT
			z.id, z.name, z.status,
			ST_AsGeoJSON(z.boundary) AS boundary_json,
			a.agent_id, a.team_id, a.effective_from
		FROM zones z
		LEFT JOIN zone_assignments a ON a.zone_id = z.id AND a.is_current
		WHERE z.status = ANY($1)
		ORDER BY z.name
	`

	started := time.Now()
	var rows []territoryRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(visibleStatuses)); err != nil {
		r.logger.Error("Failed to list territories", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	territories := make([]domain.Territory, 0, len(rows))
	for _, row := range rows {
		t := domain.Territory{
			ID:     row.ID,
			Name:   row.Name,
			Status: domain.TerritoryStatus(row.Status),
		}

		if row.BoundaryJSON.Valid && row.BoundaryJSON.String != "" {
			g, err := geojson.UnmarshalGeometry([]byte(row.BoundaryJSON.String))
			if err != nil {
				r.logger.Warn("Skipping invalid zone boundary",
					zap.String("zone_id", row.ID),
					zap.Error(err))
			} else {
				t.Boundary = geometry.OuterRing(g.Coordinates)
			}
		}

		if row.AgentID.Valid || row.TeamID.Valid {
			a := &domain.Assignment{EffectiveFrom: row.EffectiveFrom.Time}
			if row.AgentID.Valid {
				a.AgentID = &row.AgentID.String
			}
			if row.TeamID.Valid {
				a.TeamID = &row.TeamID.String
			}
			t.Assignment = a
		}

		territories = append(territories, t)
	}

	r.logger.Debug("Territories loaded from postgres",
		zap.Int("count", len(territories)),
		zap.Duration("took", time.Since(started)))

	return territories, nil
}

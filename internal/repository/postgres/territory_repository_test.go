package postgres

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
)

var territoryColumns = []string{"id", "name", "status", "boundary_json", "agent_id", "team_id", "effective_from"}

func newMockRepository(t *testing.T) (*territoryRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := NewDBForTest(sqlx.NewDb(mockDB, "pgx"), zap.NewNop())
	return NewTerritoryRepository(db).(*territoryRepository), mock
}

func TestTerritoryRepository_ListWithBoundaries(t *testing.T) {
	repo, mock := newMockRepository(t)
	effective := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(territoryColumns).
		AddRow("z1", "Harbourfront", "ACTIVE",
			`{"type":"Polygon","coordinates":[[[-79.39,43.63],[-79.39,43.64],[-79.37,43.64],[-79.37,43.63],[-79.39,43.63]]]}`,
			"agent-9", nil, effective).
		AddRow("z2", "Leslieville", "DRAFT", nil, nil, nil, nil).
		AddRow("z3", "Broken", "ACTIVE", `{"type":"Polygon","coordinates":`, nil, "team-2", effective)

	mock.ExpectQuery(`FROM zones z\s+LEFT JOIN zone_assignments`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	territories, err := repo.ListWithBoundaries(context.Background())
	require.NoError(t, err)
	require.Len(t, territories, 3)

	assert.Equal(t, "Harbourfront", territories[0].Name)
	assert.Equal(t, domain.TerritoryStatusActive, territories[0].Status)
	assert.Len(t, territories[0].Boundary, 5)
	require.NotNil(t, territories[0].Assignment)
	assert.Equal(t, "agent-9", *territories[0].Assignment.AgentID)
	assert.Nil(t, territories[0].Assignment.TeamID)
	assert.Equal(t, effective, territories[0].Assignment.EffectiveFrom)

	assert.False(t, territories[1].HasBoundary())
	assert.Nil(t, territories[1].Assignment)

	// invalid geojson is skipped, the zone is still returned
	assert.False(t, territories[2].HasBoundary())
	require.NotNil(t, territories[2].Assignment)
	assert.Equal(t, "team-2", *territories[2].Assignment.TeamID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTerritoryRepository_ListWithBoundaries_DatabaseError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM zones z`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(stderrors.New("connection reset"))

	_, err := repo.ListWithBoundaries(context.Background())
	assert.True(t, stderrors.Is(err, errors.ErrDatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

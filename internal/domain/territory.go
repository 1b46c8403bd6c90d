package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// TerritoryStatus - статус территории в бэкенде
type TerritoryStatus string

const (
	TerritoryStatusDraft     TerritoryStatus = "DRAFT"
	TerritoryStatusScheduled TerritoryStatus = "SCHEDULED"
	TerritoryStatusActive    TerritoryStatus = "ACTIVE"
	TerritoryStatusInactive  TerritoryStatus = "INACTIVE"
	TerritoryStatusCompleted TerritoryStatus = "COMPLETED"
)

// Territory - территория (зона) обхода. Сервис только читает территории для проверки пересечений.
type Territory struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     TerritoryStatus `json:"status"`
	Boundary   orb.Ring        `json:"boundary,omitempty"`
	Assignment *Assignment     `json:"assignment,omitempty"`
}

// HasBoundary - у территории есть нарисованная граница
func (t *Territory) HasBoundary() bool {
	return len(t.Boundary) > 0
}

// Assignment - текущее назначение территории агенту или команде
type Assignment struct {
	AgentID       *string   `json:"agent_id,omitempty"`
	TeamID        *string   `json:"team_id,omitempty"`
	EffectiveFrom time.Time `json:"effective_from"`
}

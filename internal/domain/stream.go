package domain

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Stream names
const (
	StreamBlocksRequested = "stream:territory:blocks:requested"
	StreamBlocksDone      = "stream:territory:blocks:done"
)

// BlocksRequestedEvent - запрос на разбиение территории и детекцию зданий по блокам
type BlocksRequestedEvent struct {
	RequestID   uuid.UUID    `json:"request_id"`
	TerritoryID string       `json:"territory_id"`
	Name        string       `json:"name"`
	Boundary    [][2]float64 `json:"boundary"`
}

// BlocksDoneEvent - результат обработки территории
type BlocksDoneEvent struct {
	RequestID   uuid.UUID   `json:"request_id"`
	TerritoryID string      `json:"territory_id"`
	GridSize    int         `json:"grid_size,omitempty"`
	Blocks      []GridBlock `json:"blocks,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}

// Ring переводит пары [lng, lat] из события в orb.Ring
func (e *BlocksRequestedEvent) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(e.Boundary))
	for _, p := range e.Boundary {
		ring = append(ring, orb.Point{p[0], p[1]})
	}
	return ring
}

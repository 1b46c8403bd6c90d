// Package geometry содержит чистые геометрические предикаты над кольцами WGS84
// и обёртку над paulmach/orb для сферических вычислений.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/territory-service/internal/domain"
)

// KmPerDegree - длина градуса широты в километрах для плоского приближения площади
const KmPerDegree = 111.0

// MinRingPoints - минимум точек замкнутого кольца (3 различные + замыкающая)
const MinRingPoints = 4

// PointInPolygon - проверка точки лучом (even-odd). Поведение для точек ровно на ребре
// не определено, но детерминировано.
func PointInPolygon(p orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	x, y := p.Lon(), p.Lat()
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon(), ring[i].Lat()
		xj, yj := ring[j].Lon(), ring[j].Lat()
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PolygonsOverlap - пересечение по вхождению вершин: хотя бы одна вершина a внутри b
// или вершина b внутри a. Пересечения рёбер без вхождения вершин не обнаруживаются.
func PolygonsOverlap(a, b orb.Ring) bool {
	for _, p := range a {
		if PointInPolygon(p, b) {
			return true
		}
	}
	for _, p := range b {
		if PointInPolygon(p, a) {
			return true
		}
	}
	return false
}

// ComputeBounds - min/max по вершинам кольца
func ComputeBounds(ring orb.Ring) domain.Bounds {
	if len(ring) == 0 {
		return domain.Bounds{}
	}

	b := domain.Bounds{
		North: ring[0].Lat(),
		South: ring[0].Lat(),
		East:  ring[0].Lon(),
		West:  ring[0].Lon(),
	}
	for _, p := range ring[1:] {
		b.North = math.Max(b.North, p.Lat())
		b.South = math.Min(b.South, p.Lat())
		b.East = math.Max(b.East, p.Lon())
		b.West = math.Min(b.West, p.Lon())
	}
	return b
}

// ApproximateAreaKm2 - плоское приближение площади прямоугольника:
// latSpan*111 * lngSpan*111 * cos(meanLat). Годится только для небольших территорий,
// от этой формулы зависят сохранённые размеры сеток.
func ApproximateAreaKm2(b domain.Bounds) float64 {
	latSpan := b.North - b.South
	lngSpan := b.East - b.West
	meanLat := (b.North + b.South) / 2
	return latSpan * KmPerDegree * lngSpan * KmPerDegree * math.Cos(meanLat*math.Pi/180)
}

// IsClosed - последняя точка совпадает с первой
func IsClosed(ring orb.Ring) bool {
	return len(ring) > 1 && ring[0].Equal(ring[len(ring)-1])
}

// CloseRing возвращает копию кольца, замкнутую при необходимости
func CloseRing(ring orb.Ring) orb.Ring {
	closed := make(orb.Ring, len(ring), len(ring)+1)
	copy(closed, ring)
	if len(closed) > 0 && !IsClosed(closed) {
		closed = append(closed, closed[0])
	}
	return closed
}

// DistinctPoints - число различных вершин кольца без учёта замыкающей
func DistinctPoints(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// ValidateRing проверяет замкнутое кольцо: минимум 3 различные вершины и координаты WGS84
func ValidateRing(ring orb.Ring) bool {
	if len(ring) < MinRingPoints || !IsClosed(ring) {
		return false
	}
	if DistinctPoints(ring) < MinRingPoints-1 {
		return false
	}
	for _, p := range ring {
		if math.IsNaN(p.Lat()) || math.IsNaN(p.Lon()) {
			return false
		}
		if p.Lat() < -90 || p.Lat() > 90 || p.Lon() < -180 || p.Lon() > 180 {
			return false
		}
	}
	return true
}

// RingFromPairs строит кольцо из пар [lng, lat]
func RingFromPairs(pairs [][2]float64) orb.Ring {
	ring := make(orb.Ring, 0, len(pairs))
	for _, p := range pairs {
		ring = append(ring, orb.Point{p[0], p[1]})
	}
	return ring
}

// RectangleRing - замкнутое кольцо прямоугольника в порядке SW, NW, NE, SE, SW
func RectangleRing(b domain.Bounds) orb.Ring {
	return orb.Ring{
		{b.West, b.South},
		{b.West, b.North},
		{b.East, b.North},
		{b.East, b.South},
		{b.West, b.South},
	}
}

// OuterRing извлекает внешнее кольцо полигона (для мультиполигона - первого)
func OuterRing(g orb.Geometry) orb.Ring {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			return v[0]
		}
	case orb.MultiPolygon:
		if len(v) > 0 && len(v[0]) > 0 {
			return v[0][0]
		}
	case orb.Ring:
		return v
	}
	return nil
}

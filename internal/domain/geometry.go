package domain

import "github.com/paulmach/orb"

// Bounds - прямоугольные границы полигона в градусах WGS84 (без обработки антимеридиана)
type Bounds struct {
	North float64 `json:"north" validate:"min=-90,max=90"`
	South float64 `json:"south" validate:"min=-90,max=90"`
	East  float64 `json:"east" validate:"min=-180,max=180"`
	West  float64 `json:"west" validate:"min=-180,max=180"`
}

// Center возвращает середину прямоугольника как точку (lng, lat)
func (b Bounds) Center() orb.Point {
	return orb.Point{(b.East + b.West) / 2, (b.North + b.South) / 2}
}

// Contains проверяет попадание точки в границы включительно
func (b Bounds) Contains(p orb.Point) bool {
	return p.Lon() >= b.West && p.Lon() <= b.East && p.Lat() >= b.South && p.Lat() <= b.North
}

// Valid проверяет инварианты north >= south и east >= west
func (b Bounds) Valid() bool {
	return b.North >= b.South && b.East >= b.West
}

package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Oracle - геометрический движок для детекции зданий: вхождение точки,
// сферическая площадь и расстояние. Наличие проверяется при создании потребителя.
type Oracle interface {
	Contains(ring orb.Ring, p orb.Point) bool
	AreaM2(ring orb.Ring) float64
	DistanceM(a, b orb.Point) float64
}

type orbOracle struct{}

// NewOracle возвращает Oracle поверх paulmach/orb
func NewOracle() Oracle {
	return orbOracle{}
}

func (orbOracle) Contains(ring orb.Ring, p orb.Point) bool {
	if !ring.Bound().Contains(p) {
		return false
	}
	return planar.RingContains(ring, p)
}

func (orbOracle) AreaM2(ring orb.Ring) float64 {
	return math.Abs(geo.Area(orb.Polygon{ring}))
}

func (orbOracle) DistanceM(a, b orb.Point) float64 {
	return geo.Distance(a, b)
}

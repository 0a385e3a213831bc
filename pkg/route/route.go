// Package route computes orthogonal wire paths between two pin positions.
package route

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

// DefaultThreshold is the axis delta, in pixels, at or below which a segment
// is dropped.
const DefaultThreshold = 1.0

// Router draws L-shaped paths with at most one corner.
type Router struct {
	Threshold float64
}

// Route is Router{}.Route.
func Route(from, to geom.Point) []geom.Point {
	return Router{}.Route(from, to)
}

// Route returns the path from from to to. The longer axis is walked first;
// on a tie the path goes vertical first. When the shorter delta is within
// the threshold the corner is dropped and the path is a single segment.
// The result always starts at from and ends at to.
func (r Router) Route(from, to geom.Point) []geom.Point {
	eps := r.Threshold
	if eps <= 0 {
		eps = DefaultThreshold
	}
	dx, dy := to.X-from.X, to.Y-from.Y

	var corner geom.Point
	if math.Abs(dx) > math.Abs(dy) {
		if math.Abs(dy) <= eps {
			return []geom.Point{from, to}
		}
		corner = geom.Pt(to.X, from.Y)
	} else {
		if math.Abs(dx) <= eps {
			return []geom.Point{from, to}
		}
		corner = geom.Pt(from.X, to.Y)
	}
	return []geom.Point{from, corner, to}
}

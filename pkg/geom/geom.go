// Package geom holds the canvas geometry shared by the wiring engine: points in
// canvas pixels and the affine transforms that place groups inside their parents.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in canvas pixels.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func Add(p, q Point) Point { return r2.Add(p, q) }

// Sub returns p-q.
func Sub(p, q Point) Point { return r2.Sub(p, q) }

// Dist returns the euclidean distance between p and q.
func Dist(p, q Point) float64 { return r2.Norm(r2.Sub(p, q)) }

// Polar returns the point at radius r and angle theta (radians) around center.
func Polar(center Point, r, theta float64) Point {
	return r2.Add(center, Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)})
}

// Near reports whether p and q are within eps of each other on both axes.
func Near(p, q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Key quantizes p to 1/100 px so that coincident points compare equal as map keys.
func Key(p Point) string {
	return fmt.Sprintf("%.2f,%.2f", quantize(p.X), quantize(p.Y))
}

func quantize(v float64) float64 {
	q := math.Round(v*100) / 100
	if q == 0 {
		return 0 // fold -0
	}
	return q
}

// Transform is a 2D affine transform held as a 3x3 homogeneous matrix.
// The zero value is the identity.
type Transform struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{}
}

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float64) Transform {
	return Transform{m: mat.NewDense(3, 3, []float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})}
}

// Rotate returns a rotation by deg degrees around the origin. Quarter turns are exact.
func Rotate(deg float64) Transform {
	s, c := sincos(deg)
	return Transform{m: mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})}
}

// Scale returns a scale by (sx, sy). Negative factors mirror.
func Scale(sx, sy float64) Transform {
	return Transform{m: mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})}
}

// Place composes the usual component placement: mirror, then rotate, then move to at.
func Place(at Point, deg float64, mirrorX, mirrorY bool) Transform {
	sx, sy := 1.0, 1.0
	if mirrorY {
		sx = -1
	}
	if mirrorX {
		sy = -1
	}
	return Translate(at.X, at.Y).Mul(Rotate(deg)).Mul(Scale(sx, sy))
}

// Mul returns t∘u: u is applied first, then t.
func (t Transform) Mul(u Transform) Transform {
	if t.m == nil {
		return u
	}
	if u.m == nil {
		return t
	}
	var r mat.Dense
	r.Mul(t.m, u.m)
	return Transform{m: &r}
}

// Apply maps p through t.
func (t Transform) Apply(p Point) Point {
	if t.m == nil {
		return p
	}
	in := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var out mat.VecDense
	out.MulVec(t.m, in)
	return Point{X: out.AtVec(0), Y: out.AtVec(1)}
}

// Offset returns the translation part of t.
func (t Transform) Offset() Point {
	if t.m == nil {
		return Point{}
	}
	return Point{X: t.m.At(0, 2), Y: t.m.At(1, 2)}
}

// IsIdentity reports whether t leaves every point unchanged.
func (t Transform) IsIdentity() bool {
	if t.m == nil {
		return true
	}
	return mat.Equal(t.m, mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
}

func sincos(deg float64) (float64, float64) {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	switch d {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(d * math.Pi / 180)
}

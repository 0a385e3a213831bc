package gioscene

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

// ScreenToWorld is the inverse of WorldToScreen.
func (c Camera) ScreenToWorld(x, y float64) geom.Point {
	zoom := zoomOf(c)
	return geom.Pt(x/zoom+c.Offset.X, y/zoom+c.Offset.Y)
}

// Pan shifts the view by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	zoom := zoomOf(*c)
	c.Offset.X -= dx / zoom
	c.Offset.Y -= dy / zoom
}

// ZoomAt scales by factor, keeping the world point under (x, y) fixed.
func (c *Camera) ZoomAt(x, y, factor float64) {
	if factor <= 0 {
		return
	}
	anchor := c.ScreenToWorld(x, y)
	c.Zoom = math.Max(0.05, math.Min(zoomOf(*c)*factor, 50))
	c.Offset = geom.Pt(anchor.X-x/c.Zoom, anchor.Y-y/c.Zoom)
}

// Bounds returns the world-space box around every visible drawable of m.
// ok is false for an empty scene.
func Bounds(m *scene.Memory) (lo, hi geom.Point, ok bool) {
	lo = geom.Pt(math.Inf(1), math.Inf(1))
	hi = geom.Pt(math.Inf(-1), math.Inf(-1))
	grow := func(p geom.Point, r float64) {
		lo.X, lo.Y = math.Min(lo.X, p.X-r), math.Min(lo.Y, p.Y-r)
		hi.X, hi.Y = math.Max(hi.X, p.X+r), math.Max(hi.Y, p.Y+r)
		ok = true
	}
	for _, d := range m.Drawables() {
		if !d.Visible {
			continue
		}
		if d.Kind == scene.KindCircle {
			grow(d.Center, d.Radius)
			continue
		}
		for _, p := range d.Points {
			grow(p, 0)
		}
	}
	return lo, hi, ok
}

// Fit returns a camera that centers the scene in a width x height viewport
// with margin screen pixels on every side.
func Fit(m *scene.Memory, width, height int, margin float64) Camera {
	lo, hi, ok := Bounds(m)
	if !ok || width <= 0 || height <= 0 {
		return Camera{Zoom: 1}
	}
	w := math.Max(hi.X-lo.X, 1)
	h := math.Max(hi.Y-lo.Y, 1)
	availW := math.Max(float64(width)-2*margin, 1)
	availH := math.Max(float64(height)-2*margin, 1)
	zoom := math.Min(availW/w, availH/h)

	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	return Camera{
		Zoom:   zoom,
		Offset: geom.Pt(cx-float64(width)/2/zoom, cy-float64(height)/2/zoom),
	}
}

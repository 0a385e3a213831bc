// Package gioscene paints an in-memory scene with gio drawing operations.
package gioscene

import (
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

// Colors is the palette used per drawable class.
type Colors struct {
	Background color.NRGBA
	Wire       color.NRGBA
	Junction   color.NRGBA
	Pin        color.NRGBA
	Body       color.NRGBA
}

// DefaultColors returns a light schematic palette.
func DefaultColors() *Colors {
	return &Colors{
		Background: color.NRGBA{R: 245, G: 244, B: 239, A: 255},
		Wire:       color.NRGBA{R: 0, G: 150, B: 0, A: 255},
		Junction:   color.NRGBA{R: 0, G: 150, B: 0, A: 255},
		Pin:        color.NRGBA{R: 132, G: 0, B: 0, A: 255},
		Body:       color.NRGBA{R: 132, G: 0, B: 0, A: 255},
	}
}

func (c *Colors) forClass(class scene.Class) color.NRGBA {
	switch class {
	case scene.ClassWire:
		return c.Wire
	case scene.ClassJunction:
		return c.Junction
	case scene.ClassPin:
		return c.Pin
	default:
		return c.Body
	}
}

// Camera maps canvas pixels to screen pixels.
type Camera struct {
	Offset geom.Point
	Zoom   float64
}

// WorldToScreen converts a canvas point to screen coordinates.
func (c Camera) WorldToScreen(p geom.Point) (float64, float64) {
	zoom := c.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return (p.X - c.Offset.X) * zoom, (p.Y - c.Offset.Y) * zoom
}

// Stats counts what a Paint call emitted.
type Stats struct {
	Paths   int
	Circles int
	Hidden  int
}

// Paint draws every visible drawable of m into ops. Wires are stroked first,
// then junction dots and pins on top.
func Paint(ops *op.Ops, m *scene.Memory, cam Camera, colors *Colors) Stats {
	if colors == nil {
		colors = DefaultColors()
	}

	var stats Stats
	drawables := m.Drawables()

	// Wire width in screen pixels
	const wireWidth = 2.0

	for _, d := range drawables {
		if d.Kind != scene.KindPath {
			continue
		}
		if !d.Visible {
			stats.Hidden++
			continue
		}
		if len(d.Points) < 2 {
			continue
		}

		var path clip.Path
		path.Begin(ops)
		x0, y0 := cam.WorldToScreen(d.Points[0])
		path.MoveTo(f32.Pt(float32(x0), float32(y0)))
		for _, p := range d.Points[1:] {
			x, y := cam.WorldToScreen(p)
			path.LineTo(f32.Pt(float32(x), float32(y)))
		}

		paint.FillShape(ops, colors.forClass(d.Class), clip.Stroke{
			Path:  path.End(),
			Width: wireWidth,
		}.Op())
		stats.Paths++
	}

	for _, d := range drawables {
		if d.Kind != scene.KindCircle {
			continue
		}
		if !d.Visible {
			stats.Hidden++
			continue
		}
		x, y := cam.WorldToScreen(d.Center)
		r := d.Radius * zoomOf(cam)
		if r < 1 {
			r = 1
		}
		paint.FillShape(ops, colors.forClass(d.Class),
			clip.Ellipse{
				Min: image.Pt(int(x-r), int(y-r)),
				Max: image.Pt(int(x+r), int(y+r)),
			}.Op(ops))
		stats.Circles++
	}

	return stats
}

func zoomOf(cam Camera) float64 {
	if cam.Zoom == 0 {
		return 1
	}
	return cam.Zoom
}

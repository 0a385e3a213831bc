// Package viewer is a small gio window for poking at a wiring session:
// components can be dragged with the mouse and the wires follow.
package viewer

import (
	"fmt"
	"image"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene/gioscene"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/script"
)

// pickRadius is how close, in screen pixels, a press must land to a pin.
const pickRadius = 12.0

// Run opens a window on env and blocks forever; closing the window exits
// the process. savePath, when set, is where Ctrl+S writes the session.
func Run(env *script.Env, title, savePath string) {
	go func() {
		w := new(app.Window)
		w.Option(app.Title(title))
		w.Option(app.Size(unit.Dp(1200), unit.Dp(800)))

		v := newViewer(w, env, savePath)
		if err := v.loop(); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

type viewer struct {
	window   *app.Window
	theme    *material.Theme
	env      *script.Env
	savePath string

	cam    gioscene.Camera
	colors *gioscene.Colors
	fitted bool
	size   image.Point

	fitBtn    widget.Clickable
	settleBtn widget.Clickable
	saveBtn   widget.Clickable

	// pointer state
	dragging string
	panning  bool
	last     f32.Point

	status string
}

func newViewer(w *app.Window, env *script.Env, savePath string) *viewer {
	v := &viewer{
		window:   w,
		theme:    material.NewTheme(),
		env:      env,
		savePath: savePath,
		cam:      gioscene.Camera{Zoom: 1},
		colors:   gioscene.DefaultColors(),
	}
	v.theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	return v
}

func (v *viewer) loop() error {
	var ops op.Ops
	for {
		switch e := v.window.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := layout.Context{
				Ops:         &ops,
				Constraints: layout.Exact(e.Size),
				Metric:      e.Metric,
				Now:         e.Now,
				Source:      e.Source,
			}
			v.handleInput(gtx)
			if v.env.Ctrl.Tick() > 0 || v.dragging != "" {
				v.window.Invalidate()
			}
			v.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (v *viewer) handleInput(gtx layout.Context) {
	if v.fitBtn.Clicked(gtx) {
		v.fit()
	}
	if v.settleBtn.Clicked(gtx) {
		res := v.env.Ctrl.UpdateRatsnest()
		v.status = fmt.Sprintf("settled: %d wires, %d dots, %d skipped", res.Wires, res.Dots, len(res.Skipped))
	}
	if v.saveBtn.Clicked(gtx) {
		v.save()
	}

	for {
		ev, ok := gtx.Event(
			key.Filter{Name: "F"},
			key.Filter{Name: "S", Required: key.ModShortcut},
			key.Filter{Name: "Q"},
			key.Filter{Name: key.NameEscape},
		)
		if !ok {
			break
		}
		ke, ok := ev.(key.Event)
		if !ok || ke.State != key.Press {
			continue
		}
		switch ke.Name {
		case "F":
			v.fit()
		case "S":
			v.save()
		case "Q", key.NameEscape:
			os.Exit(0)
		}
	}

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  v,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -1000, Max: 1000},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		v.pointer(pe)
	}
}

func (v *viewer) pointer(pe pointer.Event) {
	switch pe.Kind {
	case pointer.Press:
		if pe.Buttons != pointer.ButtonPrimary {
			return
		}
		v.last = pe.Position
		if id, ok := Pick(v.env.Ctrl.Registry(), v.cam, float64(pe.Position.X), float64(pe.Position.Y), pickRadius); ok {
			v.dragging = id
			v.status = "dragging " + id
		} else {
			v.panning = true
		}
	case pointer.Drag:
		dx := float64(pe.Position.X - v.last.X)
		dy := float64(pe.Position.Y - v.last.Y)
		v.last = pe.Position
		switch {
		case v.dragging != "":
			if err := v.env.Drag(v.dragging, dx/v.cam.Zoom, dy/v.cam.Zoom); err != nil {
				v.status = err.Error()
			}
		case v.panning:
			v.cam.Pan(dx, dy)
		}
		v.window.Invalidate()
	case pointer.Release, pointer.Cancel:
		if v.dragging != "" {
			if err := v.env.Drop(v.dragging); err != nil {
				v.status = err.Error()
			} else {
				v.status = "dropped " + v.dragging
			}
			v.dragging = ""
		}
		v.panning = false
		v.window.Invalidate()
	case pointer.Scroll:
		v.cam.ZoomAt(float64(pe.Position.X), float64(pe.Position.Y), 1-float64(pe.Scroll.Y)*0.1)
		v.window.Invalidate()
	}
}

func (v *viewer) fit() {
	v.cam = gioscene.Fit(v.env.Scene, v.size.X, v.size.Y, 40)
	v.window.Invalidate()
}

func (v *viewer) save() {
	if v.savePath == "" {
		v.status = "no save path given"
		return
	}
	if err := persist.SaveFile(v.savePath, v.env.Session()); err != nil {
		v.status = err.Error()
		return
	}
	v.status = "saved " + v.savePath
}

func (v *viewer) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, v.colors.Background)
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(v.layoutToolbar),
		layout.Flexed(1, v.layoutCanvas),
	)
}

func (v *viewer) layoutToolbar(gtx layout.Context) layout.Dimensions {
	inset := layout.Inset{Top: 8, Bottom: 8, Left: 8, Right: 8}
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
					layout.Rigid(material.Button(v.theme, &v.fitBtn, "Fit (F)").Layout),
					layout.Rigid(layout.Spacer{Width: 8}.Layout),
					layout.Rigid(material.Button(v.theme, &v.settleBtn, "Settle").Layout),
					layout.Rigid(layout.Spacer{Width: 8}.Layout),
					layout.Rigid(material.Button(v.theme, &v.saveBtn, "Save (Ctrl+S)").Layout),
				)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				r := v.env.Ctrl.Renderer()
				info := fmt.Sprintf("Components: %d | Nets: %d | Wires: %d | Dots: %d | Zoom: %.2fx",
					len(v.env.Ctrl.Registry().Components()),
					v.env.Ctrl.Model().Len(),
					len(r.Wires()),
					r.DotCount(),
					v.cam.Zoom)
				if v.status != "" {
					info = v.status + " | " + info
				}
				return material.Body1(v.theme, info).Layout(gtx)
			}),
		)
	})
}

func (v *viewer) layoutCanvas(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	v.size = size
	if !v.fitted && size.X > 0 && size.Y > 0 {
		v.fitted = true
		v.cam = gioscene.Fit(v.env.Scene, size.X, size.Y, 40)
	}

	area := clip.Rect{Max: size}.Push(gtx.Ops)
	event.Op(gtx.Ops, v)
	gioscene.Paint(gtx.Ops, v.env.Scene, v.cam, v.colors)
	area.Pop()

	return layout.Dimensions{Size: size}
}

package script

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/symlib"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netsync"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

// Symbols resolves library ids. symlib.Index implements it.
type Symbols interface {
	Resolve(libID string) (*symlib.Symbol, error)
}

// Env is the state a script runs against.
type Env struct {
	Scene   *scene.Memory
	Ctrl    *netsync.Controller
	Symbols Symbols
	Scale   float64
	// Dir resolves relative save/restore paths. Empty means the working
	// directory.
	Dir string
	Log *slog.Logger

	placed map[string]persist.Placement
}

// NewEnv attaches ctrl to a fresh in-memory scene.
func NewEnv(ctrl *netsync.Controller, symbols Symbols) (*Env, error) {
	m := scene.NewMemory()
	if err := ctrl.Attach(m); err != nil {
		return nil, err
	}
	return &Env{Scene: m, Ctrl: ctrl, Symbols: symbols, Log: slog.Default()}, nil
}

// Run executes every statement. It stops at the first failing statement and
// reports its position.
func (e *Env) Run(s *Script) error {
	for _, st := range s.Stmts {
		if err := e.Exec(st); err != nil {
			return fmt.Errorf("%s: %w", st.Pos, err)
		}
	}
	return nil
}

// Exec executes one statement.
func (e *Env) Exec(st *Stmt) error {
	switch {
	case st.Place != nil:
		return e.place(st.Place)
	case st.Connect != nil:
		_, err := e.Ctrl.ConnectPins(st.Connect.From.Component, st.Connect.From.Pin, st.Connect.To.Component, st.Connect.To.Pin)
		return err
	case st.Move != nil:
		return e.move(st.Move)
	case st.Delete != nil:
		if err := e.Ctrl.DeleteComponent(st.Delete.ID); err != nil {
			return err
		}
		e.Forget(st.Delete.ID)
		return nil
	case st.Unwire != nil:
		return e.Ctrl.DeleteWireBetween(conn(st.Unwire.From), conn(st.Unwire.To))
	case st.Paste != nil:
		return e.paste(st.Paste)
	case st.Settle:
		e.Ctrl.UpdateRatsnest()
		return nil
	case st.Save != nil:
		return persist.SaveFile(e.path(st.Save.Path), e.Session())
	case st.Restore != nil:
		sess, err := persist.ReadFile(e.path(st.Restore.Path))
		if err != nil {
			return err
		}
		_, err = e.Restore(sess)
		return err
	case st.Expect != nil:
		return e.expect(st.Expect)
	}
	return fmt.Errorf("empty statement")
}

func conn(p PinRef) netlist.Connection {
	return netlist.Connection{ComponentID: p.Component, PinNumber: p.Pin}
}

func (e *Env) path(p string) string {
	if e.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Dir, p)
}

// Place puts one component on the canvas.
func (e *Env) Place(pl persist.Placement) error {
	if e.Symbols == nil {
		return fmt.Errorf("place %s: no symbol library loaded", pl.ComponentID)
	}
	sym, err := e.Symbols.Resolve(pl.LibID)
	if err != nil {
		return fmt.Errorf("place %s: %w", pl.ComponentID, err)
	}
	comp := pins.FromSymbol(pl.ComponentID, sym, e.Scale)
	at := pins.Placement{At: geom.Pt(pl.X, pl.Y), Angle: pl.Angle, MirrorX: pl.MirrorX, MirrorY: pl.MirrorY}
	if _, err := e.Ctrl.PlaceComponent(comp, at); err != nil {
		return err
	}
	if e.placed == nil {
		e.placed = make(map[string]persist.Placement)
	}
	e.placed[pl.ComponentID] = pl
	return nil
}

func (e *Env) place(p *Place) error {
	pl := persist.Placement{ComponentID: p.ID, LibID: p.LibID, X: p.X, Y: p.Y}
	if p.Angle != nil {
		pl.Angle = *p.Angle
	}
	switch strings.ToLower(p.Mirror) {
	case "":
	case "x":
		pl.MirrorX = true
	case "y":
		pl.MirrorY = true
	default:
		return fmt.Errorf("place %s: mirror must be x or y, got %q", p.ID, p.Mirror)
	}
	return e.Place(pl)
}

// move drags a component in steps, ticking a frame after each step, then
// releases it so the controller settles.
func (e *Env) move(m *Move) error {
	pl, ok := e.placed[m.ID]
	if !ok {
		return fmt.Errorf("move %s: %w", m.ID, pins.ErrNotFound)
	}
	dx, dy := m.X, m.Y
	if m.Absolute() {
		dx, dy = m.X-pl.X, m.Y-pl.Y
	}
	steps := m.Steps
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if err := e.Drag(m.ID, dx/float64(steps), dy/float64(steps)); err != nil {
			return err
		}
		e.Ctrl.Tick()
	}
	return e.Drop(m.ID)
}

// Drag moves a placed component by (dx, dy) without ending the interaction.
// Wires follow on the next Tick.
func (e *Env) Drag(id string, dx, dy float64) error {
	pl, ok := e.placed[id]
	if !ok {
		return fmt.Errorf("drag %s: %w", id, pins.ErrNotFound)
	}
	g, ok := e.Ctrl.Registry().Group(id)
	if !ok {
		return fmt.Errorf("drag %s: %w", id, pins.ErrNotFound)
	}
	if err := e.Scene.Translate(g, dx, dy); err != nil {
		return err
	}
	pl.X, pl.Y = pl.X+dx, pl.Y+dy
	e.placed[id] = pl
	return nil
}

// Drop ends a drag on id; the controller settles the ratsnest.
func (e *Env) Drop(id string) error {
	g, ok := e.Ctrl.Registry().Group(id)
	if !ok {
		return fmt.Errorf("drop %s: %w", id, pins.ErrNotFound)
	}
	return e.Scene.Release(g)
}

// Forget drops id from the placement record after the component is deleted.
func (e *Env) Forget(id string) {
	delete(e.placed, id)
}

func (e *Env) paste(p *Paste) error {
	idMap := make(map[string]string, len(p.Pairs))
	for _, pair := range p.Pairs {
		src, ok := e.placed[pair.From]
		if !ok {
			return fmt.Errorf("paste %s: %w", pair.From, pins.ErrNotFound)
		}
		cp := src
		cp.ComponentID = pair.To
		cp.X += p.DX
		cp.Y += p.DY
		if err := e.Place(cp); err != nil {
			return err
		}
		idMap[pair.From] = pair.To
	}
	_, err := e.Ctrl.CopyComponents(idMap)
	return err
}

func (e *Env) expect(x *Expect) error {
	var got int
	switch strings.ToLower(x.What) {
	case "wires":
		got = len(e.Ctrl.Renderer().Wires())
	case "dots":
		got = e.Ctrl.Renderer().DotCount()
	case "nets":
		got = e.Ctrl.Model().Len()
	case "components":
		got = len(e.Ctrl.Registry().Components())
	default:
		return fmt.Errorf("expect: unknown count %q", x.What)
	}
	if got != x.Count {
		return fmt.Errorf("expect %s %d: got %d", x.What, x.Count, got)
	}
	return nil
}

// Restore places every component of sess that is not on the canvas yet and
// restores its netlist. Components that fail to place are logged and left
// out; their links show up as restore diagnostics.
func (e *Env) Restore(sess persist.Session) (netsync.Report, error) {
	for _, pl := range sess.Components {
		if e.Ctrl.Registry().Has(pl.ComponentID) {
			continue
		}
		if err := e.Place(pl); err != nil {
			e.logger().Warn("component not restored", "component", pl.ComponentID, "err", err)
		}
	}
	return e.Ctrl.Restore(sess.Netlist())
}

// Session returns the current placements and netlist.
func (e *Env) Session() persist.Session {
	ids := make([]string, 0, len(e.placed))
	for id := range e.placed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	comps := make([]persist.Placement, 0, len(ids))
	for _, id := range ids {
		pl := e.placed[id]
		pl.X, pl.Y = round(pl.X), round(pl.Y)
		comps = append(comps, pl)
	}
	return persist.NewSession(comps, e.Ctrl.CurrentNetlist())
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

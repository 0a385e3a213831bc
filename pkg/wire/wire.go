// Package wire draws the visual wires and junction dots of a netlist.
//
// One Wire is drawn per chain link. Every wire endpoint gets a junction dot;
// dots are keyed by their quantized position so two wire ends at the same
// spot share a single dot.
package wire

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/offset"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/route"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

// DefaultDotRadius is the radius of a junction dot.
const DefaultDotRadius = 3.0

// ErrDuplicate is returned when a link already has a wire.
var ErrDuplicate = errors.New("wire: link already drawn")

// Locator resolves pin positions. pins.Registry implements it.
type Locator interface {
	Locate(componentID, pinNumber string) (geom.Point, error)
}

// Wire is the drawn form of one chain link.
type Wire struct {
	NetID  string
	Link   netlist.Link
	Node   scene.NodeID
	Points []geom.Point

	// delta holds each endpoint's offset from its pin center, so a retarget
	// keeps the endpoint where the allocator put it.
	delta [2]geom.Point
}

// Key is the direction-independent link key.
func (w *Wire) Key() string {
	return w.Link.Key()
}

// Ends returns the first and last path points.
func (w *Wire) Ends() (geom.Point, geom.Point) {
	return w.Points[0], w.Points[len(w.Points)-1]
}

// Touches reports whether either end belongs to componentID.
func (w *Wire) Touches(componentID string) bool {
	return w.Link.Touches(componentID)
}

func (w *Wire) tag() scene.WireTag {
	return scene.WireTag{
		WireType:        scene.WireTypeConnection,
		FromComponentID: w.Link.From.ComponentID,
		FromPinNumber:   w.Link.From.PinNumber,
		ToComponentID:   w.Link.To.ComponentID,
		ToPinNumber:     w.Link.To.PinNumber,
		NetID:           w.NetID,
	}
}

// Renderer owns every wire and dot node it created.
type Renderer struct {
	scene     scene.Scene
	tags      *scene.Tags
	pins      Locator
	tracker   *offset.Tracker
	router    route.Router
	dotRadius float64
	log       *slog.Logger

	wires  []*Wire
	byKey  map[string]*Wire
	byNode map[scene.NodeID]*Wire
	dots   map[string]scene.NodeID
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger for skipped wires.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithRouter replaces the default router.
func WithRouter(rt route.Router) Option {
	return func(r *Renderer) { r.router = rt }
}

// WithDotRadius sets the junction dot radius.
func WithDotRadius(radius float64) Option {
	return func(r *Renderer) { r.dotRadius = radius }
}

// NewRenderer creates a renderer drawing into s.
func NewRenderer(s scene.Scene, tags *scene.Tags, pins Locator, tracker *offset.Tracker, opts ...Option) *Renderer {
	r := &Renderer{
		scene:     s,
		tags:      tags,
		pins:      pins,
		tracker:   tracker,
		dotRadius: DefaultDotRadius,
		log:       slog.Default(),
		byKey:     make(map[string]*Wire),
		byNode:    make(map[scene.NodeID]*Wire),
		dots:      make(map[string]scene.NodeID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tracker returns the pin wire tracker.
func (r *Renderer) Tracker() *offset.Tracker {
	return r.tracker
}

// Materialize draws link as a wire of netID with a dot at each end. Both pins
// must resolve; otherwise nothing is drawn and the error wraps the lookup
// failure.
func (r *Renderer) Materialize(netID string, link netlist.Link) (*Wire, error) {
	if _, ok := r.byKey[link.Key()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, link)
	}
	w := &Wire{NetID: netID, Link: link}
	if err := r.layout(w, true); err != nil {
		r.log.Warn("wire skipped", "net", netID, "link", link.String(), "err", err)
		return nil, err
	}

	node, err := r.scene.NewPath(scene.Root, w.Points, scene.ClassWire)
	if err != nil {
		r.tracker.Release(link.From.PinID())
		r.tracker.Release(link.To.PinID())
		return nil, fmt.Errorf("wire: draw %s: %w", link, err)
	}
	w.Node = node
	r.tags.Set(node, w.tag())

	r.wires = append(r.wires, w)
	r.byKey[w.Key()] = w
	r.byNode[node] = w

	a, b := w.Ends()
	r.ensureDot(a)
	r.ensureDot(b)
	return w, nil
}

// layout resolves both pins, takes fresh offsets when allocate is set and
// routes the path. The tracker is only touched once both pins resolved.
func (r *Renderer) layout(w *Wire, allocate bool) error {
	from, err := r.pins.Locate(w.Link.From.ComponentID, w.Link.From.PinNumber)
	if err != nil {
		return fmt.Errorf("wire: from %s: %w", w.Link.From, err)
	}
	to, err := r.pins.Locate(w.Link.To.ComponentID, w.Link.To.PinNumber)
	if err != nil {
		return fmt.Errorf("wire: to %s: %w", w.Link.To, err)
	}

	if allocate {
		a := r.tracker.Allocate(w.Link.From.PinID(), from)
		b := r.tracker.Allocate(w.Link.To.PinID(), to)
		w.delta = [2]geom.Point{geom.Sub(a, from), geom.Sub(b, to)}
	}
	w.Points = r.router.Route(geom.Add(from, w.delta[0]), geom.Add(to, w.delta[1]))
	return nil
}

// Dematerialize removes the wire, releases its tracker slots and drops the
// dots no other wire ends on.
func (r *Renderer) Dematerialize(w *Wire) {
	if r.forget(w) {
		r.tracker.Release(w.Link.From.PinID())
		r.tracker.Release(w.Link.To.PinID())
	}
}

func (r *Renderer) forget(w *Wire) bool {
	cur, ok := r.byKey[w.Key()]
	if !ok || cur != w {
		return false
	}
	delete(r.byKey, w.Key())
	delete(r.byNode, w.Node)
	for i, x := range r.wires {
		if x == w {
			r.wires = append(r.wires[:i], r.wires[i+1:]...)
			break
		}
	}
	r.tags.Delete(w.Node)
	if r.scene.Exists(w.Node) {
		if err := r.scene.Remove(w.Node); err != nil {
			r.log.Warn("wire remove failed", "net", w.NetID, "link", w.Link.String(), "err", err)
		}
	}
	a, b := w.Ends()
	r.pruneDot(a)
	r.pruneDot(b)
	return true
}

// Retarget re-resolves the endpoints that belong to componentIDs and redraws
// the path in place. Offsets and dots are left alone.
func (r *Renderer) Retarget(w *Wire, componentIDs ...string) error {
	moved := func(id string) bool {
		for _, c := range componentIDs {
			if c == id {
				return true
			}
		}
		return false
	}

	from, to := w.Ends()
	if moved(w.Link.From.ComponentID) {
		p, err := r.pins.Locate(w.Link.From.ComponentID, w.Link.From.PinNumber)
		if err != nil {
			r.log.Warn("retarget skipped", "net", w.NetID, "component", w.Link.From.ComponentID, "pin", w.Link.From.PinNumber, "err", err)
			return fmt.Errorf("wire: retarget %s: %w", w.Link.From, err)
		}
		from = geom.Add(p, w.delta[0])
	}
	if moved(w.Link.To.ComponentID) {
		p, err := r.pins.Locate(w.Link.To.ComponentID, w.Link.To.PinNumber)
		if err != nil {
			r.log.Warn("retarget skipped", "net", w.NetID, "component", w.Link.To.ComponentID, "pin", w.Link.To.PinNumber, "err", err)
			return fmt.Errorf("wire: retarget %s: %w", w.Link.To, err)
		}
		to = geom.Add(p, w.delta[1])
	}

	w.Points = r.router.Route(from, to)
	return r.scene.SetPath(w.Node, w.Points)
}

// Reroute recomputes the whole wire with fresh offsets, as a settle pass
// does after resetting the tracker. netID and link re-tag the wire, since a
// chain split or merge can move a link to another net or flip its direction.
// A wire whose pins no longer resolve is removed.
func (r *Renderer) Reroute(w *Wire, netID string, link netlist.Link) error {
	if err := r.Retag(w, netID, link); err != nil {
		return err
	}
	if err := r.layout(w, true); err != nil {
		r.log.Warn("wire skipped", "net", netID, "link", link.String(), "err", err)
		r.forget(w)
		return err
	}
	return r.scene.SetPath(w.Node, w.Points)
}

// Retag moves w to netID and link without redrawing it. link must join the
// same two pins as the wire's current link.
func (r *Renderer) Retag(w *Wire, netID string, link netlist.Link) error {
	if link.Key() != w.Key() {
		return fmt.Errorf("wire: retag %s as %s", w.Link, link)
	}
	w.NetID, w.Link = netID, link
	r.tags.Set(w.Node, w.tag())
	return nil
}

// Clear removes every wire and dot and empties the tracker.
func (r *Renderer) Clear() {
	for _, w := range append([]*Wire(nil), r.wires...) {
		r.forget(w)
	}
	r.clearDots()
	r.tracker.Reset()
}

// RefreshJunctions removes every dot and draws one per distinct wire
// endpoint. It returns the dot count.
func (r *Renderer) RefreshJunctions() int {
	r.clearDots()
	for _, w := range r.wires {
		a, b := w.Ends()
		r.ensureDot(a)
		r.ensureDot(b)
	}
	return len(r.dots)
}

func (r *Renderer) clearDots() {
	for k, id := range r.dots {
		r.tags.Delete(id)
		if r.scene.Exists(id) {
			_ = r.scene.Remove(id)
		}
		delete(r.dots, k)
	}
}

func (r *Renderer) ensureDot(p geom.Point) {
	k := geom.Key(p)
	if _, ok := r.dots[k]; ok {
		return
	}
	id, err := r.scene.NewCircle(scene.Root, p, r.dotRadius, scene.ClassJunction)
	if err != nil {
		r.log.Warn("junction dot failed", "at", k, "err", err)
		return
	}
	r.tags.Set(id, scene.JunctionTag{PinConnection: true})
	r.dots[k] = id
}

// pruneDot removes the dot at p unless another wire still ends there.
func (r *Renderer) pruneDot(p geom.Point) {
	k := geom.Key(p)
	id, ok := r.dots[k]
	if !ok {
		return
	}
	for _, w := range r.wires {
		a, b := w.Ends()
		if geom.Key(a) == k || geom.Key(b) == k {
			return
		}
	}
	r.tags.Delete(id)
	if r.scene.Exists(id) {
		_ = r.scene.Remove(id)
	}
	delete(r.dots, k)
}

// Wires returns the wires in drawing order.
func (r *Renderer) Wires() []*Wire {
	return append([]*Wire(nil), r.wires...)
}

// Wire returns the wire drawn for the link with key.
func (r *Renderer) Wire(key string) (*Wire, bool) {
	w, ok := r.byKey[key]
	return w, ok
}

// WireAt returns the wire drawn as node.
func (r *Renderer) WireAt(node scene.NodeID) (*Wire, bool) {
	w, ok := r.byNode[node]
	return w, ok
}

// WiresFor returns the wires with an end on componentID.
func (r *Renderer) WiresFor(componentID string) []*Wire {
	var out []*Wire
	for _, w := range r.wires {
		if w.Touches(componentID) {
			out = append(out, w)
		}
	}
	return out
}

// Dots returns the junction dot positions, sorted by key.
func (r *Renderer) Dots() []geom.Point {
	keys := make([]string, 0, len(r.dots))
	for k := range r.dots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]geom.Point, 0, len(keys))
	for _, k := range keys {
		p, err := r.scene.AbsolutePosition(r.dots[k])
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DotCount returns the number of junction dots.
func (r *Renderer) DotCount() int {
	return len(r.dots)
}

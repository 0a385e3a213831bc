// Package pins places component instances on a scene and resolves the
// absolute position of their pins.
//
// Positions are never cached: every Locate walks the component's subtree and
// asks the scene for the pin's absolute position through the full group
// transform chain, so a pin inside a moved, rotated or nested group always
// resolves to where it is drawn.
package pins

import (
	"errors"
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/symlib"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

var (
	// ErrNotFound is returned when a component or pin cannot be resolved.
	ErrNotFound = errors.New("pins: not found")
	// ErrDuplicate is returned when a component id is placed twice.
	ErrDuplicate = errors.New("pins: duplicate component")
)

const (
	// DefaultScale converts symbol millimetres to canvas pixels.
	DefaultScale = 10.0
	// DefaultPinRadius is the radius of the pin affordance circle.
	DefaultPinRadius = 2.5
)

// PinDef is a pin in symbol-local canvas coordinates.
type PinDef struct {
	Number         string
	Name           string
	ElectricalType string
	At             geom.Point
}

// Component describes what to place: its pins and an optional body outline.
type Component struct {
	ID      string
	LibID   string
	Pins    []PinDef
	Outline []geom.Point
}

// FromSymbol builds a Component from a resolved library symbol, scaling
// millimetres by scale (DefaultScale when zero).
func FromSymbol(id string, sym *symlib.Symbol, scale float64) Component {
	if scale == 0 {
		scale = DefaultScale
	}
	c := Component{ID: id, LibID: sym.ID}
	for _, p := range sym.Pins {
		c.Pins = append(c.Pins, PinDef{
			Number:         p.Number,
			Name:           p.Name,
			ElectricalType: p.ElectricalType,
			At:             geom.Pt(p.X*scale, p.Y*scale),
		})
	}
	if bb := sym.BBox; bb != nil {
		c.Outline = []geom.Point{
			geom.Pt(bb.MinX*scale, bb.MinY*scale),
			geom.Pt(bb.MaxX*scale, bb.MinY*scale),
			geom.Pt(bb.MaxX*scale, bb.MaxY*scale),
			geom.Pt(bb.MinX*scale, bb.MaxY*scale),
			geom.Pt(bb.MinX*scale, bb.MinY*scale),
		}
	}
	return c
}

// Placement is where and how a component group sits on the canvas.
type Placement struct {
	At      geom.Point
	Angle   float64
	MirrorX bool
	MirrorY bool
}

// Transform returns the group transform for p.
func (p Placement) Transform() geom.Transform {
	return geom.Place(p.At, p.Angle, p.MirrorX, p.MirrorY)
}

// Pin is the derived pin record. It is computed on demand.
type Pin struct {
	ComponentID    string
	PinNumber      string
	Name           string
	ElectricalType string
	Position       geom.Point
	Node           scene.NodeID
}

// ID returns "component:pin".
func (p Pin) ID() string {
	return p.ComponentID + ":" + p.PinNumber
}

type instance struct {
	group scene.NodeID
	nodes []scene.NodeID
}

// Registry tracks component instances on one scene.
type Registry struct {
	scene     scene.Scene
	tags      *scene.Tags
	pinRadius float64
	comps     map[string]*instance
}

// Option configures a Registry.
type Option func(*Registry)

// WithPinRadius sets the radius of pin circles.
func WithPinRadius(r float64) Option {
	return func(reg *Registry) { reg.pinRadius = r }
}

// NewRegistry creates a registry drawing into s and tagging into tags.
func NewRegistry(s scene.Scene, tags *scene.Tags, opts ...Option) *Registry {
	r := &Registry{
		scene:     s,
		tags:      tags,
		pinRadius: DefaultPinRadius,
		comps:     make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Place creates the component group, its body and one tagged node per pin.
func (r *Registry) Place(c Component, p Placement) (scene.NodeID, error) {
	if c.ID == "" {
		return 0, fmt.Errorf("pins: component id is empty")
	}
	if _, ok := r.comps[c.ID]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, c.ID)
	}

	group, err := r.scene.NewGroup(scene.Root, p.Transform())
	if err != nil {
		return 0, fmt.Errorf("pins: place %s: %w", c.ID, err)
	}
	inst := &instance{group: group, nodes: []scene.NodeID{group}}
	r.tags.Set(group, scene.ComponentTag{ComponentID: c.ID, LibID: c.LibID})

	if len(c.Outline) > 1 {
		body, err := r.scene.NewPath(group, c.Outline, scene.ClassBody)
		if err != nil {
			r.discard(inst)
			return 0, fmt.Errorf("pins: place %s body: %w", c.ID, err)
		}
		inst.nodes = append(inst.nodes, body)
	}

	for _, pd := range c.Pins {
		node, err := r.scene.NewCircle(group, pd.At, r.pinRadius, scene.ClassPin)
		if err != nil {
			r.discard(inst)
			return 0, fmt.Errorf("pins: place %s pin %s: %w", c.ID, pd.Number, err)
		}
		r.tags.Set(node, scene.PinTag{
			ComponentID:    c.ID,
			PinNumber:      pd.Number,
			Name:           pd.Name,
			ElectricalType: pd.ElectricalType,
		})
		inst.nodes = append(inst.nodes, node)
	}

	r.comps[c.ID] = inst
	return group, nil
}

func (r *Registry) discard(inst *instance) {
	for _, id := range inst.nodes {
		r.tags.Delete(id)
	}
	if r.scene.Exists(inst.group) {
		_ = r.scene.Remove(inst.group)
	}
}

// Adopt registers a component group that was built outside the registry.
// The group must carry a ComponentTag; pins are its PinTag descendants.
func (r *Registry) Adopt(group scene.NodeID) (string, error) {
	ct, ok := scene.Lookup[scene.ComponentTag](r.tags, group)
	if !ok {
		return "", fmt.Errorf("pins: node %d has no component tag", group)
	}
	if _, ok := r.comps[ct.ComponentID]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, ct.ComponentID)
	}
	inst := &instance{group: group}
	r.walk(group, func(id scene.NodeID) bool {
		inst.nodes = append(inst.nodes, id)
		return true
	})
	r.comps[ct.ComponentID] = inst
	return ct.ComponentID, nil
}

// Remove deletes the component from the scene and forgets it.
func (r *Registry) Remove(componentID string) error {
	inst, ok := r.comps[componentID]
	if !ok {
		return fmt.Errorf("%w: component %s", ErrNotFound, componentID)
	}
	r.Forget(componentID)
	if r.scene.Exists(inst.group) {
		if err := r.scene.Remove(inst.group); err != nil {
			return fmt.Errorf("pins: remove %s: %w", componentID, err)
		}
	}
	return nil
}

// Forget drops the registry entry and its tags without touching the scene.
// Used when the host already removed the group.
func (r *Registry) Forget(componentID string) {
	inst, ok := r.comps[componentID]
	if !ok {
		return
	}
	for _, id := range inst.nodes {
		r.tags.Delete(id)
	}
	delete(r.comps, componentID)
}

// Has reports whether componentID is placed.
func (r *Registry) Has(componentID string) bool {
	_, ok := r.comps[componentID]
	return ok
}

// Group returns the group node of componentID.
func (r *Registry) Group(componentID string) (scene.NodeID, bool) {
	inst, ok := r.comps[componentID]
	if !ok {
		return 0, false
	}
	return inst.group, true
}

// Components returns the placed component ids, sorted.
func (r *Registry) Components() []string {
	ids := make([]string, 0, len(r.comps))
	for id := range r.comps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ComponentOf returns the component whose group is node.
func (r *Registry) ComponentOf(node scene.NodeID) (string, bool) {
	ct, ok := scene.Lookup[scene.ComponentTag](r.tags, node)
	if !ok {
		return "", false
	}
	if _, placed := r.comps[ct.ComponentID]; !placed {
		return "", false
	}
	return ct.ComponentID, true
}

// PinNodes returns the pin affordance nodes of componentID.
func (r *Registry) PinNodes(componentID string) []scene.NodeID {
	inst, ok := r.comps[componentID]
	if !ok {
		return nil
	}
	var out []scene.NodeID
	r.walk(inst.group, func(id scene.NodeID) bool {
		if _, ok := scene.Lookup[scene.PinTag](r.tags, id); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Locate resolves the absolute canvas position of a pin.
func (r *Registry) Locate(componentID, pinNumber string) (geom.Point, error) {
	p, err := r.Pin(componentID, pinNumber)
	if err != nil {
		return geom.Point{}, err
	}
	return p.Position, nil
}

// Pin returns the derived pin record. Only the subtree of componentID is
// searched, so equal pin numbers on other components never match.
func (r *Registry) Pin(componentID, pinNumber string) (Pin, error) {
	inst, ok := r.comps[componentID]
	if !ok {
		return Pin{}, fmt.Errorf("%w: component %s", ErrNotFound, componentID)
	}

	var (
		found scene.NodeID
		tag   scene.PinTag
		hit   bool
	)
	r.walk(inst.group, func(id scene.NodeID) bool {
		pt, ok := scene.Lookup[scene.PinTag](r.tags, id)
		if ok && pt.PinNumber == pinNumber {
			found, tag, hit = id, pt, true
			return false
		}
		return true
	})
	if !hit {
		return Pin{}, fmt.Errorf("%w: pin %s:%s", ErrNotFound, componentID, pinNumber)
	}

	pos, err := r.scene.AbsolutePosition(found)
	if err != nil {
		return Pin{}, fmt.Errorf("pins: locate %s:%s: %w", componentID, pinNumber, err)
	}
	return Pin{
		ComponentID:    componentID,
		PinNumber:      pinNumber,
		Name:           tag.Name,
		ElectricalType: tag.ElectricalType,
		Position:       pos,
		Node:           found,
	}, nil
}

// Pins returns every pin of componentID in scene order.
func (r *Registry) Pins(componentID string) ([]Pin, error) {
	inst, ok := r.comps[componentID]
	if !ok {
		return nil, fmt.Errorf("%w: component %s", ErrNotFound, componentID)
	}
	var out []Pin
	var err error
	r.walk(inst.group, func(id scene.NodeID) bool {
		pt, ok := scene.Lookup[scene.PinTag](r.tags, id)
		if !ok {
			return true
		}
		pos, perr := r.scene.AbsolutePosition(id)
		if perr != nil {
			err = fmt.Errorf("pins: locate %s:%s: %w", componentID, pt.PinNumber, perr)
			return false
		}
		out = append(out, Pin{
			ComponentID:    componentID,
			PinNumber:      pt.PinNumber,
			Name:           pt.Name,
			ElectricalType: pt.ElectricalType,
			Position:       pos,
			Node:           id,
		})
		return true
	})
	return out, err
}

// walk visits id and its descendants depth-first until fn returns false.
func (r *Registry) walk(id scene.NodeID, fn func(scene.NodeID) bool) bool {
	if !fn(id) {
		return false
	}
	for _, c := range r.scene.Children(id) {
		if !r.walk(c, fn) {
			return false
		}
	}
	return true
}

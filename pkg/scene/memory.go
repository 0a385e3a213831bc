package scene

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

type node struct {
	id       NodeID
	kind     Kind
	parent   NodeID
	children []NodeID
	local    geom.Transform
	points   []geom.Point
	center   geom.Point
	radius   float64
	class    Class
	visible  bool
}

// Memory is an in-memory scene graph. It backs the tests, the CLI and the
// websocket bridge, and it is what gioscene paints.
type Memory struct {
	nodes  map[NodeID]*node
	nextID NodeID

	subs    map[int]func(Event)
	nextSub int
}

// NewMemory creates an empty scene holding only the root group.
func NewMemory() *Memory {
	m := &Memory{
		nodes:  make(map[NodeID]*node),
		nextID: Root + 1,
		subs:   make(map[int]func(Event)),
	}
	m.nodes[Root] = &node{id: Root, kind: KindGroup, visible: true}
	return m
}

var _ Scene = (*Memory)(nil)

func (m *Memory) add(parent NodeID, n *node) (NodeID, error) {
	p, ok := m.nodes[parent]
	if !ok {
		return 0, fmt.Errorf("scene: parent %d: %w", parent, ErrNoNode)
	}
	if p.kind != KindGroup {
		return 0, fmt.Errorf("scene: parent %d is a %s, not a group", parent, p.kind)
	}
	n.id = m.nextID
	m.nextID++
	n.parent = parent
	n.visible = true
	m.nodes[n.id] = n
	p.children = append(p.children, n.id)
	return n.id, nil
}

// NewGroup adds a group placed by t inside parent.
func (m *Memory) NewGroup(parent NodeID, t geom.Transform) (NodeID, error) {
	return m.add(parent, &node{kind: KindGroup, local: t})
}

// NewPath adds a polyline in parent-local coordinates.
func (m *Memory) NewPath(parent NodeID, pts []geom.Point, class Class) (NodeID, error) {
	return m.add(parent, &node{kind: KindPath, points: clonePoints(pts), class: class})
}

// NewCircle adds a circle in parent-local coordinates.
func (m *Memory) NewCircle(parent NodeID, center geom.Point, radius float64, class Class) (NodeID, error) {
	return m.add(parent, &node{kind: KindCircle, center: center, radius: radius, class: class})
}

func (m *Memory) get(id NodeID, kind Kind) (*node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	if n.kind != kind {
		return nil, fmt.Errorf("scene: node %d is a %s, not a %s", id, n.kind, kind)
	}
	return n, nil
}

// SetPath replaces a path's points.
func (m *Memory) SetPath(id NodeID, pts []geom.Point) error {
	n, err := m.get(id, KindPath)
	if err != nil {
		return err
	}
	n.points = clonePoints(pts)
	return nil
}

// SetCircle moves and resizes a circle.
func (m *Memory) SetCircle(id NodeID, center geom.Point, radius float64) error {
	n, err := m.get(id, KindCircle)
	if err != nil {
		return err
	}
	n.center = center
	n.radius = radius
	return nil
}

// SetVisible shows or hides a node.
func (m *Memory) SetVisible(id NodeID, visible bool) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	n.visible = visible
	return nil
}

// Visible reports whether id and all of its ancestors are shown.
func (m *Memory) Visible(id NodeID) bool {
	for {
		n, ok := m.nodes[id]
		if !ok || !n.visible {
			return false
		}
		if id == Root {
			return true
		}
		id = n.parent
	}
}

// Remove deletes id and its subtree, then emits EventRemoved for id.
func (m *Memory) Remove(id NodeID) error {
	if id == Root {
		return fmt.Errorf("scene: cannot remove root")
	}
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	if p, ok := m.nodes[n.parent]; ok {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	m.drop(n)
	m.emit(Event{Kind: EventRemoved, Node: id})
	return nil
}

func (m *Memory) drop(n *node) {
	for _, c := range n.children {
		if cn, ok := m.nodes[c]; ok {
			m.drop(cn)
		}
	}
	delete(m.nodes, n.id)
}

// Exists reports whether id is in the scene.
func (m *Memory) Exists(id NodeID) bool {
	_, ok := m.nodes[id]
	return ok
}

// Children returns the direct children of id in insertion order.
func (m *Memory) Children(id NodeID) []NodeID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.children...)
}

// World returns the transform from id's local space to the root.
func (m *Memory) World(id NodeID) (geom.Transform, error) {
	n, ok := m.nodes[id]
	if !ok {
		return geom.Transform{}, fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	t := n.local
	for n.id != Root {
		p, ok := m.nodes[n.parent]
		if !ok {
			return geom.Transform{}, fmt.Errorf("scene: node %d detached", id)
		}
		t = p.local.Mul(t)
		n = p
	}
	return t, nil
}

// AbsolutePosition implements Scene.
func (m *Memory) AbsolutePosition(id NodeID) (geom.Point, error) {
	n, ok := m.nodes[id]
	if !ok {
		return geom.Point{}, fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	world, err := m.World(id)
	if err != nil {
		return geom.Point{}, err
	}
	switch n.kind {
	case KindCircle:
		return world.Apply(n.center), nil
	case KindPath:
		if len(n.points) == 0 {
			return world.Apply(geom.Point{}), nil
		}
		return world.Apply(n.points[0]), nil
	default:
		return world.Apply(geom.Point{}), nil
	}
}

// SetTransform replaces a group's local transform and emits EventMoving, the
// way a canvas reports an object being dragged.
func (m *Memory) SetTransform(id NodeID, t geom.Transform) error {
	n, err := m.get(id, KindGroup)
	if err != nil {
		return err
	}
	n.local = t
	m.emit(Event{Kind: EventMoving, Node: id})
	return nil
}

// Translate moves a group by (dx, dy) in its parent's space.
func (m *Memory) Translate(id NodeID, dx, dy float64) error {
	n, err := m.get(id, KindGroup)
	if err != nil {
		return err
	}
	return m.SetTransform(id, geom.Translate(dx, dy).Mul(n.local))
}

// Release ends an interaction on id and emits EventModified.
func (m *Memory) Release(id NodeID) error {
	if _, ok := m.nodes[id]; !ok {
		return fmt.Errorf("scene: node %d: %w", id, ErrNoNode)
	}
	m.emit(Event{Kind: EventModified, Node: id})
	return nil
}

// Subscribe registers fn for every subsequent event.
func (m *Memory) Subscribe(fn func(Event)) func() {
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() { delete(m.subs, id) }
}

func (m *Memory) emit(ev Event) {
	keys := make([]int, 0, len(m.subs))
	for k := range m.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if fn, ok := m.subs[k]; ok {
			fn(ev)
		}
	}
}

// Drawable is a flattened, world-space view of a path or circle.
type Drawable struct {
	ID      NodeID
	Kind    Kind
	Class   Class
	Points  []geom.Point
	Center  geom.Point
	Radius  float64
	Visible bool
}

// Drawables returns every path and circle in world coordinates, in node order.
func (m *Memory) Drawables() []Drawable {
	ids := make([]NodeID, 0, len(m.nodes))
	for id, n := range m.nodes {
		if n.kind != KindGroup {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Drawable, 0, len(ids))
	for _, id := range ids {
		n := m.nodes[id]
		world, err := m.World(id)
		if err != nil {
			continue
		}
		d := Drawable{ID: id, Kind: n.kind, Class: n.class, Visible: m.Visible(id)}
		switch n.kind {
		case KindPath:
			d.Points = make([]geom.Point, len(n.points))
			for i, p := range n.points {
				d.Points[i] = world.Apply(p)
			}
		case KindCircle:
			d.Center = world.Apply(n.center)
			d.Radius = n.radius
		}
		out = append(out, d)
	}
	return out
}

// CountClass returns the number of drawables of the given class.
func (m *Memory) CountClass(class Class) int {
	n := 0
	for _, nd := range m.nodes {
		if nd.kind != KindGroup && nd.class == class {
			n++
		}
	}
	return n
}

// Len returns the number of nodes, root included.
func (m *Memory) Len() int {
	return len(m.nodes)
}

func clonePoints(pts []geom.Point) []geom.Point {
	return append([]geom.Point(nil), pts...)
}

// Package scene defines the drawing-surface contract the wiring engine consumes
// and a small in-memory scene graph that implements it.
//
// The engine only needs to create and remove drawables, resolve the absolute
// position of a nested node and observe move/modify/remove events. Everything
// else about rendering belongs to the host canvas.
package scene

import (
	"errors"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

// NodeID identifies a drawable in a scene. Root is the implicit canvas group.
type NodeID uint64

// Root is the top-level group every other node descends from.
const Root NodeID = 0

// ErrNoNode is returned when an operation names a node that does not exist.
var ErrNoNode = errors.New("scene: no such node")

// Kind is the primitive type of a node.
type Kind int

const (
	KindGroup Kind = iota
	KindPath
	KindCircle
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindPath:
		return "path"
	case KindCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// Class selects how a drawable is styled by the host.
type Class string

const (
	ClassBody     Class = "body"
	ClassPin      Class = "pin"
	ClassWire     Class = "wire"
	ClassJunction Class = "junction"
)

// EventKind says what happened to a node.
type EventKind int

const (
	// EventMoving fires for every intermediate transform change during a drag.
	EventMoving EventKind = iota
	// EventModified fires once when an interaction on the node ends.
	EventModified
	// EventRemoved fires after the node left the scene.
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventMoving:
		return "moving"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers synchronously, in emission order.
type Event struct {
	Kind EventKind
	Node NodeID
}

// Scene is the subset of a 2D scene-graph library the engine depends on.
type Scene interface {
	NewGroup(parent NodeID, t geom.Transform) (NodeID, error)
	NewPath(parent NodeID, pts []geom.Point, class Class) (NodeID, error)
	NewCircle(parent NodeID, center geom.Point, radius float64, class Class) (NodeID, error)

	SetPath(id NodeID, pts []geom.Point) error
	SetCircle(id NodeID, center geom.Point, radius float64) error
	SetVisible(id NodeID, visible bool) error

	// Remove deletes the node and all of its descendants.
	Remove(id NodeID) error

	// AbsolutePosition resolves a node's anchor through the whole parent chain.
	// Groups anchor at their local origin, circles at their center and paths
	// at their first point.
	AbsolutePosition(id NodeID) (geom.Point, error)
	Children(id NodeID) []NodeID
	Exists(id NodeID) bool

	Subscribe(fn func(Event)) (cancel func())
}

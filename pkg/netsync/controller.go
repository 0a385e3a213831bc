package netsync

import (
	"errors"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/offset"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/ratsnest"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/route"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/wire"
)

var (
	// ErrDetached is returned by operations that need a scene.
	ErrDetached = errors.New("netsync: controller is not attached")
	// ErrAttached is returned when attaching twice.
	ErrAttached = errors.New("netsync: controller is already attached")
)

// State is the interaction state of one component.
type State int

const (
	Idle State = iota
	Moving
	Deleted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Diagnostic records a link that could not be drawn.
type Diagnostic struct {
	Op     string
	NetID  string
	Link   netlist.Link
	Reason string
}

// Controller synchronizes the netlist with the wires on the attached scene.
type Controller struct {
	ctx   Context
	log   *slog.Logger
	model *netlist.Model

	scene   scene.Scene
	tags    *scene.Tags
	reg     *pins.Registry
	tracker *offset.Tracker
	r       *wire.Renderer
	sched   *ratsnest.Scheduler
	cancel  func()

	inbox    []scene.Event
	draining bool

	states map[string]State
	diags  []Diagnostic
}

// New creates a detached controller with an empty netlist.
func New(ctx Context) *Controller {
	var opts []netlist.Option
	if ctx.NewNetID != nil {
		opts = append(opts, netlist.WithIDGenerator(ctx.NewNetID))
	}
	ctx.Config = ctx.Config.withDefaults()
	return &Controller{
		ctx:    ctx,
		log:    ctx.logger(),
		model:  netlist.New(opts...),
		states: make(map[string]State),
	}
}

// Attach binds the controller to s and starts listening to its events. The
// pin registry starts empty; components are placed through PlaceComponent or
// adopted from the registry.
func (c *Controller) Attach(s scene.Scene) error {
	if c.scene != nil {
		return ErrAttached
	}
	cfg := c.ctx.Config

	c.scene = s
	c.tags = scene.NewTags()
	c.reg = pins.NewRegistry(s, c.tags, pins.WithPinRadius(cfg.PinRadius))
	c.tracker = offset.New(offset.WithRadius(cfg.OffsetRadius), offset.WithSlots(cfg.OffsetSlots))
	c.r = wire.NewRenderer(s, c.tags, c.reg, c.tracker,
		wire.WithLogger(c.log),
		wire.WithRouter(route.Router{Threshold: cfg.RouteThreshold}),
		wire.WithDotRadius(cfg.DotRadius),
	)
	c.sched = ratsnest.New(c.r, c.model, ratsnest.WithLogger(c.log))
	c.cancel = s.Subscribe(c.enqueue)
	c.log.Debug("attached")
	return nil
}

// Detach stops listening, removes the wires and dots it drew and forgets the
// scene. The netlist is kept.
func (c *Controller) Detach() {
	if c.scene == nil {
		return
	}
	c.cancel()
	c.r.Clear()
	c.scene, c.tags, c.reg, c.tracker, c.r, c.sched, c.cancel = nil, nil, nil, nil, nil, nil, nil
	c.inbox = nil
	c.states = make(map[string]State)
	c.log.Debug("detached")
}

// Attached reports whether a scene is bound.
func (c *Controller) Attached() bool {
	return c.scene != nil
}

// Model returns the netlist. Mutate it only through the controller.
func (c *Controller) Model() *netlist.Model { return c.model }

// Registry returns the pin registry of the attached scene.
func (c *Controller) Registry() *pins.Registry { return c.reg }

// Tags returns the tag table of the attached scene.
func (c *Controller) Tags() *scene.Tags { return c.tags }

// Renderer returns the wire renderer of the attached scene.
func (c *Controller) Renderer() *wire.Renderer { return c.r }

// Scheduler returns the update scheduler of the attached scene.
func (c *Controller) Scheduler() *ratsnest.Scheduler { return c.sched }

// State returns the interaction state of componentID.
func (c *Controller) State(componentID string) State {
	return c.states[componentID]
}

// Diagnostics returns the skip trail, oldest first.
func (c *Controller) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diags...)
}

// ClearDiagnostics empties the skip trail.
func (c *Controller) ClearDiagnostics() {
	c.diags = nil
}

func (c *Controller) note(op string, l netlist.NetLink, reason string) {
	c.diags = append(c.diags, Diagnostic{Op: op, NetID: l.NetID, Link: l.Link, Reason: reason})
	c.log.Warn("link skipped", "op", op, "net", l.NetID, "link", l.String(), "reason", reason)
}

func (c *Controller) noteResult(op string, res ratsnest.Result) {
	for _, l := range res.Skipped {
		c.note(op, l, "pin not resolved")
	}
}

// enqueue is the scene subscriber. Events raised while an operation or
// another event is in progress wait in the inbox.
func (c *Controller) enqueue(ev scene.Event) {
	c.inbox = append(c.inbox, ev)
	if c.draining {
		return
	}
	c.drain()
}

func (c *Controller) drain() {
	c.draining = true
	defer func() { c.draining = false }()
	for len(c.inbox) > 0 && c.scene != nil {
		ev := c.inbox[0]
		c.inbox = c.inbox[1:]
		c.handle(ev)
	}
}

// run executes fn as one operation: scene events it raises are handled
// after it returns.
func (c *Controller) run(fn func()) {
	if c.draining {
		fn()
		return
	}
	c.draining = true
	fn()
	c.draining = false
	if len(c.inbox) > 0 {
		c.drain()
	}
}

func (c *Controller) handle(ev scene.Event) {
	switch ev.Kind {
	case scene.EventMoving:
		if ids := c.componentsUnder(ev.Node); len(ids) > 0 {
			c.dragMove(ids)
		}
	case scene.EventModified:
		if ids := c.componentsUnder(ev.Node); len(ids) > 0 {
			c.dragEnd(ids)
		}
	case scene.EventRemoved:
		c.removed(ev.Node)
	}
}

// componentsUnder returns the component of node, or the components nested
// anywhere below it when node is a plain group such as a selection.
func (c *Controller) componentsUnder(node scene.NodeID) []string {
	if id, ok := c.reg.ComponentOf(node); ok {
		return []string{id}
	}
	var out []string
	for _, child := range c.scene.Children(node) {
		out = append(out, c.componentsUnder(child)...)
	}
	return out
}

// removed handles a node the host deleted from the scene.
func (c *Controller) removed(node scene.NodeID) {
	if id, ok := c.reg.ComponentOf(node); ok {
		c.deleteComponent(id, false)
		return
	}
	if w, ok := c.r.WireAt(node); ok {
		c.deleteWire(w)
		return
	}
	// a parent group went away; its components went with it
	for _, id := range c.reg.Components() {
		if g, ok := c.reg.Group(id); ok && !c.scene.Exists(g) {
			c.deleteComponent(id, false)
		}
	}
}

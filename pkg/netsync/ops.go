package netsync

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/ratsnest"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/wire"
)

// PlaceComponent puts a component on the attached scene in the Idle state.
func (c *Controller) PlaceComponent(comp pins.Component, at pins.Placement) (scene.NodeID, error) {
	if c.scene == nil {
		return 0, ErrDetached
	}
	var (
		id  scene.NodeID
		err error
	)
	c.run(func() {
		id, err = c.reg.Place(comp, at)
	})
	if err != nil {
		return 0, fmt.Errorf("netsync: place: %w", err)
	}
	c.states[comp.ID] = Idle
	return id, nil
}

// ConnectPins joins two pins and draws the new wire. Both pins must exist on
// the attached scene.
func (c *Controller) ConnectPins(fromComponentID, fromPin, toComponentID, toPin string) (*netlist.Net, error) {
	if c.scene == nil {
		return nil, ErrDetached
	}
	a := netlist.Connection{ComponentID: fromComponentID, PinNumber: fromPin}
	b := netlist.Connection{ComponentID: toComponentID, PinNumber: toPin}
	for _, p := range []netlist.Connection{a, b} {
		if c.states[p.ComponentID] == Deleted {
			return nil, fmt.Errorf("netsync: connect %s: %w", p, pins.ErrNotFound)
		}
		if _, err := c.reg.Pin(p.ComponentID, p.PinNumber); err != nil {
			return nil, fmt.Errorf("netsync: connect %s: %w", p, err)
		}
	}

	var (
		net *netlist.Net
		err error
	)
	c.run(func() {
		net, err = c.model.Connect(a, b)
		if err != nil {
			return
		}
		c.noteResult("connect", c.sched.Reconcile())
	})
	if err != nil {
		return nil, fmt.Errorf("netsync: connect %s-%s: %w", a, b, err)
	}
	return net, nil
}

// DeleteComponent removes the component, every connection it had and every
// wire drawn to it, then settles the remaining wires.
func (c *Controller) DeleteComponent(componentID string) error {
	if c.scene == nil {
		return ErrDetached
	}
	c.run(func() { c.deleteComponent(componentID, true) })
	return nil
}

func (c *Controller) deleteComponent(id string, fromScene bool) {
	c.states[id] = Deleted
	removed := c.model.RemoveConnectionsFor(id)
	for _, w := range c.r.WiresFor(id) {
		c.r.Dematerialize(w)
	}

	if fromScene {
		if err := c.reg.Remove(id); err != nil && !errors.Is(err, pins.ErrNotFound) {
			c.log.Warn("component removal failed", "component", id, "err", err)
		}
	} else {
		c.reg.Forget(id)
	}

	res := c.sched.UpdateRatsnest()
	c.noteResult("delete", res)
	c.log.Info("component deleted", "component", id, "links", len(removed), "wires", res.Wires)
}

// DeleteWire removes the chain link drawn by w. The net is cut at that link.
func (c *Controller) DeleteWire(w *wire.Wire) error {
	if c.scene == nil {
		return ErrDetached
	}
	var err error
	c.run(func() { err = c.deleteWire(w) })
	return err
}

func (c *Controller) deleteWire(w *wire.Wire) error {
	_, err := c.model.RemoveConnection(w.Link.From, w.Link.To)
	c.r.Dematerialize(w)
	c.noteResult("unwire", c.sched.Reconcile())
	if err != nil {
		return fmt.Errorf("netsync: delete wire: %w", err)
	}
	return nil
}

// DeleteWireBetween removes the wire joining two pins.
func (c *Controller) DeleteWireBetween(from, to netlist.Connection) error {
	if c.scene == nil {
		return ErrDetached
	}
	w, ok := c.r.Wire(netlist.Link{From: from, To: to}.Key())
	if !ok {
		return fmt.Errorf("netsync: delete wire %s-%s: %w", from, to, netlist.ErrLinkNotFound)
	}
	return c.DeleteWire(w)
}

// DragStart moves components from Idle to Moving and hides their pins.
func (c *Controller) DragStart(componentIDs ...string) {
	if c.scene == nil {
		return
	}
	c.run(func() {
		for _, id := range componentIDs {
			c.dragStart(id)
		}
	})
}

func (c *Controller) dragStart(id string) bool {
	if c.states[id] != Idle || !c.reg.Has(id) {
		return c.states[id] == Moving
	}
	c.states[id] = Moving
	if c.ctx.Config.HidePinsOnDrag {
		c.setPinsVisible(id, false)
	}
	return true
}

// DragMove reports that components moved during a drag. Their wires are
// redrawn on the next Tick.
func (c *Controller) DragMove(componentIDs ...string) {
	if c.scene == nil {
		return
	}
	c.run(func() { c.dragMove(componentIDs) })
}

func (c *Controller) dragMove(ids []string) {
	var moving []string
	for _, id := range ids {
		if c.dragStart(id) {
			moving = append(moving, id)
		}
	}
	c.sched.ScheduleUpdate(moving...)
}

// DragEnd returns components to Idle and runs the settle pass.
func (c *Controller) DragEnd(componentIDs ...string) ratsnest.Result {
	if c.scene == nil {
		return ratsnest.Result{}
	}
	var res ratsnest.Result
	c.run(func() { res = c.dragEnd(componentIDs) })
	return res
}

func (c *Controller) dragEnd(ids []string) ratsnest.Result {
	for _, id := range ids {
		if c.states[id] != Moving {
			continue
		}
		c.states[id] = Idle
		if c.ctx.Config.HidePinsOnDrag {
			c.setPinsVisible(id, true)
		}
	}
	res := c.sched.UpdateRatsnest()
	c.noteResult("settle", res)
	return res
}

func (c *Controller) setPinsVisible(id string, visible bool) {
	for _, n := range c.reg.PinNodes(id) {
		if err := c.scene.SetVisible(n, visible); err != nil {
			c.log.Debug("pin visibility", "component", id, "err", err)
		}
	}
}

// ScheduleUpdate queues components for the next continuous redraw.
func (c *Controller) ScheduleUpdate(componentIDs ...string) {
	if c.scene == nil {
		return
	}
	c.sched.ScheduleUpdate(componentIDs...)
}

// Tick is the frame boundary of continuous mode.
func (c *Controller) Tick() int {
	if c.scene == nil {
		return 0
	}
	var n int
	c.run(func() { n = c.sched.Tick() })
	return n
}

// UpdateRatsnest runs a settle pass.
func (c *Controller) UpdateRatsnest() ratsnest.Result {
	if c.scene == nil {
		return ratsnest.Result{}
	}
	var res ratsnest.Result
	c.run(func() {
		res = c.sched.UpdateRatsnest()
		c.noteResult("settle", res)
	})
	return res
}

// CurrentNetlist returns the persisted form of the netlist.
func (c *Controller) CurrentNetlist() netlist.Snapshot {
	return c.model.Snapshot()
}

package netsync

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
)

// Report summarizes a restore.
type Report struct {
	Nets         int // nets loaded
	Materialized int // nets with every link drawn
	Wires        int
	Dots         int
	Dropped      int // nets without connections
	Skipped      []Diagnostic
}

// Restore replaces the netlist with s as given and redraws every link from a
// cleared tracker, in net order then index order. Links whose pins are not on
// the scene are skipped and recorded; the rest of the netlist is still drawn.
func (c *Controller) Restore(s netlist.Snapshot) (Report, error) {
	if c.scene == nil {
		return Report{}, ErrDetached
	}
	var rep Report
	c.run(func() { rep = c.restore(s) })
	return rep, nil
}

func (c *Controller) restore(s netlist.Snapshot) Report {
	rep := Report{Dropped: c.model.Load(s)}
	c.sched.Cancel()
	c.r.Clear()

	for _, n := range c.model.Nets() {
		rep.Nets++
		complete := true
		for i, l := range n.Links() {
			nl := netlist.NetLink{NetID: n.ID, Index: i, Link: l}
			if _, err := c.r.Materialize(n.ID, l); err != nil {
				complete = false
				d := Diagnostic{Op: "restore", NetID: n.ID, Link: l, Reason: err.Error()}
				rep.Skipped = append(rep.Skipped, d)
				c.note("restore", nl, err.Error())
				continue
			}
			rep.Wires++
		}
		if complete {
			rep.Materialized++
		}
	}
	rep.Dots = c.r.DotCount()
	c.log.Info("netlist restored", "nets", rep.Nets, "wires", rep.Wires, "skipped", len(rep.Skipped))
	return rep
}

// CopyComponents duplicates the nets among copied components. idMap maps
// each original component id to the id of its copy; the copies must already
// be placed. For every net, the members whose component was copied are
// chained in their original order into a new net, when there are at least
// two of them.
func (c *Controller) CopyComponents(idMap map[string]string) ([]*netlist.Net, error) {
	if c.scene == nil {
		return nil, ErrDetached
	}
	for _, newID := range idMap {
		for _, n := range c.model.Nets() {
			for _, m := range n.Connections {
				if m.ComponentID == newID {
					return nil, fmt.Errorf("netsync: copy: %s is already connected", newID)
				}
			}
		}
	}

	var created []*netlist.Net
	c.run(func() {
		for _, n := range c.model.Nets() {
			var conns []netlist.Connection
			for _, m := range n.Connections {
				if newID, ok := idMap[m.ComponentID]; ok {
					conns = append(conns, netlist.Connection{ComponentID: newID, PinNumber: m.PinNumber})
				}
			}
			if len(conns) < 2 {
				continue
			}
			net := c.model.AddConnection(nil, conns[0])
			for _, m := range conns[1:] {
				c.model.AddConnection(net, m)
			}
			created = append(created, net)
		}
		c.noteResult("copy", c.sched.Reconcile())
	})
	return created, nil
}

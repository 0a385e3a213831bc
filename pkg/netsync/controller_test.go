package netsync

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

func newController(t *testing.T) (*Controller, *scene.Memory) {
	t.Helper()
	n := 0
	c := New(Context{
		Config: DefaultConfig(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewNetID: func() string {
			n++
			return fmt.Sprintf("net-%d", n)
		},
	})
	m := scene.NewMemory()
	require.NoError(t, c.Attach(m))
	return c, m
}

func twoPin(id string) pins.Component {
	return pins.Component{
		ID: id,
		Pins: []pins.PinDef{
			{Number: "1", ElectricalType: "passive", At: geom.Pt(-30, 0)},
			{Number: "2", ElectricalType: "passive", At: geom.Pt(30, 0)},
		},
	}
}

func place(t *testing.T, c *Controller, id string, x, y float64) scene.NodeID {
	t.Helper()
	g, err := c.PlaceComponent(twoPin(id), pins.Placement{At: geom.Pt(x, y)})
	require.NoError(t, err)
	return g
}

func conn(s string) netlist.Connection {
	c, err := netlist.ParsePinID(s)
	if err != nil {
		panic(err)
	}
	return c
}

func chain(n *netlist.Net) []string {
	out := make([]string, len(n.Connections))
	for i, m := range n.Connections {
		out[i] = m.PinID()
	}
	return out
}

func TestConnectScenario(t *testing.T) {
	c, m := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "LED1", 200, 100)

	net, err := c.ConnectPins("R1", "1", "LED1", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"R1:1", "LED1:1"}, chain(net))
	assert.Equal(t, 1, c.Model().Len())
	assert.Len(t, c.Renderer().Wires(), 1)
	assert.Equal(t, 2, c.Renderer().DotCount())
	assert.Equal(t, 2, m.CountClass(scene.ClassJunction))

	_, err = c.ConnectPins("LED1", "2", "R1", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Renderer().Tracker().Count("R1:1"))

	var ends []geom.Point
	for _, w := range c.Renderer().WiresFor("R1") {
		a, b := w.Ends()
		if w.Link.From == conn("R1:1") {
			ends = append(ends, a)
		} else {
			ends = append(ends, b)
		}
	}
	require.Len(t, ends, 2)
	assert.False(t, geom.Near(ends[0], ends[1], 0.5), "R1:1 endpoints coincide: %v", ends)
}

func TestConnectUnknownPin(t *testing.T) {
	c, _ := newController(t)
	place(t, c, "R1", 0, 0)
	_, err := c.ConnectPins("R1", "1", "R1", "7")
	assert.ErrorIs(t, err, pins.ErrNotFound)
	_, err = c.ConnectPins("R1", "1", "R1", "1")
	assert.ErrorIs(t, err, netlist.ErrSelfConnection)
	assert.Zero(t, c.Model().Len())
}

func TestDeleteScenario(t *testing.T) {
	c, m := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "LED1", 200, 100)
	_, err := c.ConnectPins("R1", "1", "LED1", "1")
	require.NoError(t, err)
	_, err = c.ConnectPins("LED1", "2", "R1", "1")
	require.NoError(t, err)

	require.NoError(t, c.DeleteComponent("R1"))
	assert.Equal(t, Deleted, c.State("R1"))
	assert.False(t, c.Registry().Has("R1"))
	assert.Zero(t, c.Model().Len())
	assert.Empty(t, c.Renderer().Wires())
	assert.Zero(t, c.Renderer().DotCount())
	assert.Zero(t, m.CountClass(scene.ClassWire))
	assert.Zero(t, m.CountClass(scene.ClassJunction))
	assert.True(t, c.Registry().Has("LED1"))

	_, err = c.ConnectPins("R1", "1", "LED1", "1")
	assert.ErrorIs(t, err, pins.ErrNotFound)
}

func TestDeleteKeepsOtherLinks(t *testing.T) {
	c, m := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "LED1", 200, 0)
	place(t, c, "C1", 200, 200)

	_, err := c.ConnectPins("R1", "1", "LED1", "1")
	require.NoError(t, err)
	_, err = c.ConnectPins("LED1", "2", "R1", "1")
	require.NoError(t, err)
	_, err = c.ConnectPins("LED1", "2", "C1", "1")
	require.NoError(t, err)
	require.Equal(t, []string{"C1:1", "LED1:2", "R1:1", "LED1:1"}, chain(c.Model().Nets()[0]))

	require.NoError(t, c.DeleteComponent("R1"))
	assert.Empty(t, c.Renderer().WiresFor("R1"))
	for _, n := range c.Model().Nets() {
		for _, x := range n.Connections {
			assert.NotEqual(t, "R1", x.ComponentID)
		}
	}

	nets := c.Model().Nets()
	require.Len(t, nets, 1)
	assert.Equal(t, []string{"C1:1", "LED1:2"}, chain(nets[0]))
	require.Len(t, c.Renderer().Wires(), 1)
	assert.Equal(t, 2, c.Renderer().DotCount())
	assert.Equal(t, 1, m.CountClass(scene.ClassWire))
}

func TestDeleteViaSceneEvent(t *testing.T) {
	c, m := newController(t)
	g := place(t, c, "R1", 0, 0)
	place(t, c, "LED1", 200, 0)
	_, err := c.ConnectPins("R1", "2", "LED1", "1")
	require.NoError(t, err)

	require.NoError(t, m.Remove(g))
	assert.Zero(t, c.Model().Len())
	assert.Empty(t, c.Renderer().Wires())
	assert.Zero(t, m.CountClass(scene.ClassJunction))
	assert.Equal(t, Deleted, c.State("R1"))
}

func TestDeleteWire(t *testing.T) {
	c, m := newController(t)
	place(t, c, "A", 0, 0)
	place(t, c, "B", 200, 0)
	place(t, c, "C", 400, 0)
	_, _ = c.ConnectPins("A", "2", "B", "1")
	_, _ = c.ConnectPins("B", "1", "C", "1")
	require.Len(t, c.Renderer().Wires(), 2)

	require.NoError(t, c.DeleteWireBetween(conn("C:1"), conn("B:1")))
	assert.Len(t, c.Renderer().Wires(), 1)
	assert.False(t, c.Model().SameNet(conn("A:2"), conn("C:1")))
	assert.Zero(t, c.Renderer().Tracker().Count("C:1"))

	// the host deleting the drawn wire works the same way
	w := c.Renderer().Wires()[0]
	require.NoError(t, m.Remove(w.Node))
	assert.Zero(t, c.Model().Len())
	assert.Zero(t, c.Renderer().DotCount())

	err := c.DeleteWireBetween(conn("A:2"), conn("B:1"))
	assert.ErrorIs(t, err, netlist.ErrLinkNotFound)
}

func TestDragLifecycle(t *testing.T) {
	c, m := newController(t)
	g := place(t, c, "R1", 0, 0)
	place(t, c, "LED1", 300, 0)
	_, err := c.ConnectPins("R1", "2", "LED1", "1")
	require.NoError(t, err)
	dots := c.Renderer().Dots()
	pinNodes := c.Registry().PinNodes("R1")

	require.NoError(t, m.Translate(g, 0, 40))
	assert.Equal(t, Moving, c.State("R1"))
	for _, n := range pinNodes {
		assert.False(t, m.Visible(n))
	}
	assert.Equal(t, Idle, c.State("LED1"))
	assert.Equal(t, []string{"R1"}, c.Scheduler().Pending())

	require.NoError(t, m.Translate(g, 0, 10))
	assert.Equal(t, 1, c.Tick())
	w := c.Renderer().Wires()[0]
	from, _ := w.Ends()
	assert.Equal(t, geom.Pt(30, 50), from)
	assert.Equal(t, dots, c.Renderer().Dots())

	require.NoError(t, m.Release(g))
	assert.Equal(t, Idle, c.State("R1"))
	for _, n := range pinNodes {
		assert.True(t, m.Visible(n))
	}
	assert.Empty(t, c.Scheduler().Pending())
	assert.Contains(t, c.Renderer().Dots(), geom.Pt(30, 50))
}

func TestNestedSelectionDrag(t *testing.T) {
	c, m := newController(t)
	place(t, c, "R1", 0, 0)

	sel, err := m.NewGroup(scene.Root, geom.Identity())
	require.NoError(t, err)
	g, err := m.NewGroup(sel, geom.Translate(200, 0))
	require.NoError(t, err)
	c.Tags().Set(g, scene.ComponentTag{ComponentID: "J1"})
	p, err := m.NewCircle(g, geom.Pt(0, 0), 2, scene.ClassPin)
	require.NoError(t, err)
	c.Tags().Set(p, scene.PinTag{ComponentID: "J1", PinNumber: "1"})
	_, err = c.Registry().Adopt(g)
	require.NoError(t, err)

	_, err = c.ConnectPins("R1", "2", "J1", "1")
	require.NoError(t, err)

	require.NoError(t, m.Translate(sel, 0, 25))
	assert.Equal(t, Moving, c.State("J1"))
	assert.Equal(t, Idle, c.State("R1"))
	assert.Equal(t, 1, c.Tick())
	_, to := c.Renderer().Wires()[0].Ends()
	assert.Equal(t, geom.Pt(200, 25), to)

	require.NoError(t, m.Release(sel))
	assert.Equal(t, Idle, c.State("J1"))
}

func TestSettleIdempotent(t *testing.T) {
	c, m := newController(t)
	for i, id := range []string{"R1", "R2", "R3", "R4"} {
		place(t, c, id, float64(i)*150, float64(i%2)*80)
	}
	_, _ = c.ConnectPins("R1", "2", "R2", "1")
	_, _ = c.ConnectPins("R2", "1", "R3", "1")
	_, _ = c.ConnectPins("R3", "1", "R4", "1")
	_, _ = c.ConnectPins("R1", "1", "R4", "2")

	a := c.UpdateRatsnest()
	nodes := m.Len()
	b := c.UpdateRatsnest()
	assert.Equal(t, a.Wires, b.Wires)
	assert.Equal(t, a.Dots, b.Dots)
	assert.Equal(t, nodes, m.Len())
	assert.Equal(t, b.Dots, m.CountClass(scene.ClassJunction))
}

func TestRoundTrip(t *testing.T) {
	c, _ := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 150, 0)
	place(t, c, "R3", 300, 0)
	_, _ = c.ConnectPins("R1", "2", "R2", "1")
	_, _ = c.ConnectPins("R2", "1", "R3", "1")
	_, _ = c.ConnectPins("R2", "2", "R3", "2")
	want := c.CurrentNetlist()

	rep, err := c.Restore(want)
	require.NoError(t, err)
	assert.Equal(t, want, c.CurrentNetlist())
	assert.Equal(t, 2, rep.Nets)
	assert.Equal(t, 2, rep.Materialized)
	assert.Equal(t, 3, rep.Wires)
	assert.Empty(t, rep.Skipped)
}

func TestRestoreWithMissingComponent(t *testing.T) {
	c, m := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 150, 0)
	place(t, c, "LED1", 300, 0)

	snap := netlist.Snapshot{Nets: []netlist.Net{
		{ID: "a", Connections: []netlist.Connection{conn("R1:2"), conn("R2:1")}},
		{ID: "b", Connections: []netlist.Connection{conn("R2:2"), conn("LED1:1")}},
		{ID: "c", Connections: []netlist.Connection{conn("LED1:2"), conn("U7:3")}},
	}}
	rep, err := c.Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Nets)
	assert.Equal(t, 2, rep.Materialized)
	assert.Equal(t, 2, rep.Wires)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "c", rep.Skipped[0].NetID)
	assert.Equal(t, 2, m.CountClass(scene.ClassWire))

	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "restore", diags[0].Op)

	// the netlist keeps the unresolved net
	assert.Equal(t, snap, c.CurrentNetlist())
}

func TestRestoreOffsetsAreReproducible(t *testing.T) {
	c, _ := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 150, 0)
	place(t, c, "R3", 0, 150)

	snap := netlist.Snapshot{Nets: []netlist.Net{
		{ID: "a", Connections: []netlist.Connection{conn("R2:1"), conn("R1:1"), conn("R3:1")}},
	}}
	_, err := c.Restore(snap)
	require.NoError(t, err)
	first := map[string][]geom.Point{}
	for _, w := range c.Renderer().Wires() {
		first[w.Key()] = append([]geom.Point(nil), w.Points...)
	}

	_, err = c.Restore(snap)
	require.NoError(t, err)
	for _, w := range c.Renderer().Wires() {
		assert.Equal(t, first[w.Key()], w.Points)
	}
	assert.Equal(t, 2, c.Renderer().Tracker().Count("R1:1"))
}

func TestCopyComponents(t *testing.T) {
	c, _ := newController(t)
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 150, 0)
	place(t, c, "R3", 300, 0)
	_, _ = c.ConnectPins("R1", "2", "R2", "1")
	_, _ = c.ConnectPins("R2", "1", "R3", "1")

	place(t, c, "R1_1", 0, 300)
	place(t, c, "R3_1", 300, 300)
	nets, err := c.CopyComponents(map[string]string{"R1": "R1_1", "R3": "R3_1"})
	require.NoError(t, err)
	require.Len(t, nets, 1)
	assert.Equal(t, []string{"R1_1:2", "R3_1:1"}, chain(nets[0]))
	assert.Len(t, c.Renderer().Wires(), 3)

	_, err = c.CopyComponents(map[string]string{"R2": "R1_1"})
	assert.Error(t, err)
}

func TestAttachDetach(t *testing.T) {
	c, m := newController(t)
	assert.ErrorIs(t, c.Attach(m), ErrAttached)
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 100, 0)
	_, err := c.ConnectPins("R1", "2", "R2", "1")
	require.NoError(t, err)

	c.Detach()
	assert.False(t, c.Attached())
	assert.Zero(t, m.CountClass(scene.ClassWire))
	assert.Equal(t, 1, c.Model().Len())
	_, err = c.ConnectPins("R1", "1", "R2", "2")
	assert.ErrorIs(t, err, ErrDetached)

	// events from the old scene are no longer seen
	g, _ := m.NewGroup(scene.Root, geom.Identity())
	require.NoError(t, m.Translate(g, 1, 1))

	m2 := scene.NewMemory()
	require.NoError(t, c.Attach(m2))
	place(t, c, "R1", 0, 0)
	place(t, c, "R2", 100, 0)
	res := c.UpdateRatsnest()
	assert.Equal(t, 1, res.Wires)
	assert.Equal(t, 1, m2.CountClass(scene.ClassWire))
}

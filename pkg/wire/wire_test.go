package wire

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/offset"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene"
)

type fixture struct {
	scene *scene.Memory
	tags  *scene.Tags
	reg   *pins.Registry
	r     *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := scene.NewMemory()
	tags := scene.NewTags()
	reg := pins.NewRegistry(m, tags)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRenderer(m, tags, reg, offset.New(), WithLogger(quiet))
	return &fixture{scene: m, tags: tags, reg: reg, r: r}
}

func (f *fixture) place(t *testing.T, id string, at geom.Point) scene.NodeID {
	t.Helper()
	g, err := f.reg.Place(pins.Component{
		ID: id,
		Pins: []pins.PinDef{
			{Number: "1", At: geom.Pt(-20, 0)},
			{Number: "2", At: geom.Pt(20, 0)},
		},
	}, pins.Placement{At: at})
	require.NoError(t, err)
	return g
}

func link(a, b string) netlist.Link {
	from, _ := netlist.ParsePinID(a)
	to, _ := netlist.ParsePinID(b)
	return netlist.Link{From: from, To: to}
}

func TestMaterialize(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(100, 100))
	f.place(t, "LED1", geom.Pt(300, 200))

	w, err := f.r.Materialize("n1", link("R1:2", "LED1:1"))
	require.NoError(t, err)

	from, to := w.Ends()
	assert.Equal(t, geom.Pt(120, 100), from)
	assert.Equal(t, geom.Pt(280, 200), to)
	assert.Len(t, w.Points, 3)

	tag, ok := scene.Lookup[scene.WireTag](f.tags, w.Node)
	require.True(t, ok)
	assert.Equal(t, scene.WireTypeConnection, tag.WireType)
	assert.Equal(t, "R1", tag.FromComponentID)
	assert.Equal(t, "LED1", tag.ToComponentID)
	assert.Equal(t, "n1", tag.NetID)

	assert.Equal(t, 2, f.r.DotCount())
	assert.Equal(t, 2, scene.Count[scene.JunctionTag](f.tags))
	assert.Equal(t, 1, f.r.Tracker().Count("R1:2"))

	_, err = f.r.Materialize("n1", link("LED1:1", "R1:2"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMaterializeUnresolvedSkips(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(0, 0))

	_, err := f.r.Materialize("n1", link("R1:1", "GONE:1"))
	assert.ErrorIs(t, err, pins.ErrNotFound)
	assert.Empty(t, f.r.Wires())
	assert.Zero(t, f.r.DotCount())
	assert.Zero(t, f.r.Tracker().Count("R1:1"))
	assert.Zero(t, f.scene.CountClass(scene.ClassWire))
}

func TestSharedPinOffsetsAndDots(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(0, 0))
	f.place(t, "LED1", geom.Pt(200, 0))
	f.place(t, "C1", geom.Pt(0, 200))

	w1, err := f.r.Materialize("n1", link("R1:1", "LED1:1"))
	require.NoError(t, err)
	w2, err := f.r.Materialize("n1", link("C1:1", "R1:1"))
	require.NoError(t, err)

	assert.Equal(t, 2, f.r.Tracker().Count("R1:1"))
	a1, _ := w1.Ends()
	_, b2 := w2.Ends()
	assert.False(t, geom.Near(a1, b2, 0.5), "endpoints at R1:1 coincide")
	assert.Equal(t, 4, f.r.DotCount())

	f.r.Dematerialize(w2)
	assert.Equal(t, 1, f.r.Tracker().Count("R1:1"))
	assert.Zero(t, f.r.Tracker().Count("C1:1"))
	assert.Equal(t, 2, f.r.DotCount())
	assert.False(t, f.scene.Exists(w2.Node))

	// second call is a no-op
	f.r.Dematerialize(w2)
	assert.Equal(t, 1, f.r.Tracker().Count("R1:1"))
}

func TestCoincidentEndsShareDot(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(0, 0))
	f.place(t, "R2", geom.Pt(100, 0))
	f.place(t, "R3", geom.Pt(200, 0))

	// move R3 so its pin 1 lands on R2:2 at (120, 0)
	require.NoError(t, f.scene.SetTransform(mustGroup(t, f, "R3"), geom.Translate(140, 0)))

	_, err := f.r.Materialize("n1", link("R1:2", "R2:2"))
	require.NoError(t, err)
	_, err = f.r.Materialize("n2", link("R3:1", "R1:1"))
	require.NoError(t, err)

	assert.Equal(t, 3, f.r.DotCount())
	assert.Equal(t, 3, f.r.RefreshJunctions())
}

func mustGroup(t *testing.T, f *fixture, id string) scene.NodeID {
	t.Helper()
	g, ok := f.reg.Group(id)
	require.True(t, ok)
	return g
}

func TestRetarget(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(0, 0))
	led := f.place(t, "LED1", geom.Pt(200, 100))

	w, err := f.r.Materialize("n1", link("R1:2", "LED1:1"))
	require.NoError(t, err)
	dotsBefore := f.r.Dots()

	require.NoError(t, f.scene.Translate(led, 0, 50))
	require.NoError(t, f.r.Retarget(w, "LED1"))

	from, to := w.Ends()
	assert.Equal(t, geom.Pt(20, 0), from)
	assert.Equal(t, geom.Pt(180, 150), to)
	assert.Equal(t, dotsBefore, f.r.Dots(), "retarget must not touch dots")

	require.NoError(t, f.reg.Remove("LED1"))
	assert.ErrorIs(t, f.r.Retarget(w, "LED1"), pins.ErrNotFound)
}

func TestRerouteAndClear(t *testing.T) {
	f := newFixture(t)
	f.place(t, "R1", geom.Pt(0, 0))
	f.place(t, "R2", geom.Pt(0, 100))

	w, err := f.r.Materialize("n1", link("R1:1", "R2:1"))
	require.NoError(t, err)

	f.r.Tracker().Reset()
	require.NoError(t, f.r.Reroute(w, "n9", link("R2:1", "R1:1")))
	tag, _ := scene.Lookup[scene.WireTag](f.tags, w.Node)
	assert.Equal(t, "n9", tag.NetID)
	assert.Equal(t, "R2", tag.FromComponentID)

	f.r.Clear()
	assert.Empty(t, f.r.Wires())
	assert.Zero(t, f.r.DotCount())
	assert.Empty(t, f.r.Tracker().Pins())
	assert.Zero(t, f.tags.Len()-scene.Count[scene.PinTag](f.tags)-scene.Count[scene.ComponentTag](f.tags))
}

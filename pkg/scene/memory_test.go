package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

func TestAbsolutePositionNestedGroups(t *testing.T) {
	m := NewMemory()
	outer, err := m.NewGroup(Root, geom.Translate(100, 100))
	require.NoError(t, err)
	inner, err := m.NewGroup(outer, geom.Translate(10, 0).Mul(geom.Rotate(90)))
	require.NoError(t, err)
	pin, err := m.NewCircle(inner, geom.Pt(5, 0), 1, ClassPin)
	require.NoError(t, err)

	pos, err := m.AbsolutePosition(pin)
	require.NoError(t, err)
	assert.True(t, geom.Near(pos, geom.Pt(110, 105), 1e-9), "got %v", pos)

	require.NoError(t, m.Translate(outer, 5, -5))
	pos, err = m.AbsolutePosition(pin)
	require.NoError(t, err)
	assert.True(t, geom.Near(pos, geom.Pt(115, 100), 1e-9), "got %v", pos)
}

func TestRemoveSubtreeAndEvents(t *testing.T) {
	m := NewMemory()
	var events []Event
	cancel := m.Subscribe(func(ev Event) { events = append(events, ev) })

	g, _ := m.NewGroup(Root, geom.Identity())
	c, _ := m.NewCircle(g, geom.Pt(0, 0), 1, ClassPin)

	require.NoError(t, m.Translate(g, 1, 1))
	require.NoError(t, m.Release(g))
	require.NoError(t, m.Remove(g))

	assert.False(t, m.Exists(c))
	assert.Empty(t, m.Children(Root))
	assert.Equal(t, []Event{
		{Kind: EventMoving, Node: g},
		{Kind: EventModified, Node: g},
		{Kind: EventRemoved, Node: g},
	}, events)

	cancel()
	p, _ := m.NewPath(Root, []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, ClassWire)
	require.NoError(t, m.Remove(p))
	assert.Len(t, events, 3)

	_, err := m.AbsolutePosition(c)
	assert.True(t, errors.Is(err, ErrNoNode))
}

func TestDrawablesWorldSpace(t *testing.T) {
	m := NewMemory()
	g, _ := m.NewGroup(Root, geom.Translate(10, 20))
	m.NewPath(g, []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}}, ClassWire)
	dot, _ := m.NewCircle(Root, geom.Pt(1, 1), 2, ClassJunction)
	require.NoError(t, m.SetVisible(g, false))

	ds := m.Drawables()
	require.Len(t, ds, 2)
	assert.Equal(t, []geom.Point{{X: 10, Y: 20}, {X: 15, Y: 20}}, ds[0].Points)
	assert.False(t, ds[0].Visible)
	assert.Equal(t, dot, ds[1].ID)
	assert.True(t, ds[1].Visible)
	assert.Equal(t, 1, m.CountClass(ClassJunction))
}

func TestTagsLookup(t *testing.T) {
	tags := NewTags()
	tags.Set(1, WireTag{WireType: WireTypeConnection, NetID: "n1"})
	tags.Set(2, JunctionTag{PinConnection: true})

	w, ok := Lookup[WireTag](tags, 1)
	require.True(t, ok)
	assert.Equal(t, "n1", w.NetID)

	_, ok = Lookup[WireTag](tags, 2)
	assert.False(t, ok)
	assert.Equal(t, 1, Count[JunctionTag](tags))
	assert.Equal(t, "junctionDot", JunctionTag{}.Type())

	tags.Delete(1)
	assert.Equal(t, 1, tags.Len())
}

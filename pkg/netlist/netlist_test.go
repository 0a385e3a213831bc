package netlist

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("net-%d", n)
	})
}

func pin(s string) Connection {
	c, err := ParsePinID(s)
	if err != nil {
		panic(err)
	}
	return c
}

func chain(n *Net) []string {
	out := make([]string, len(n.Connections))
	for i, c := range n.Connections {
		out[i] = c.PinID()
	}
	return out
}

func TestParsePinID(t *testing.T) {
	c, err := ParsePinID("U1:A:3")
	require.NoError(t, err)
	assert.Equal(t, Connection{ComponentID: "U1:A", PinNumber: "3"}, c)

	for _, bad := range []string{"", "R1", ":1", "R1:"} {
		_, err := ParsePinID(bad)
		assert.Error(t, err, bad)
	}
}

func TestConnectCreatesNet(t *testing.T) {
	m := New(seqIDs())
	n, err := m.Connect(pin("R1:1"), pin("LED1:1"))
	require.NoError(t, err)

	assert.Equal(t, "net-1", n.ID)
	assert.Equal(t, []string{"R1:1", "LED1:1"}, chain(n))
	require.Len(t, n.Links(), 1)
	assert.Equal(t, "LED1:1|R1:1", n.Links()[0].Key())
}

func TestConnectSelf(t *testing.T) {
	m := New()
	_, err := m.Connect(pin("R1:1"), pin("R1:1"))
	assert.ErrorIs(t, err, ErrSelfConnection)
	assert.Zero(t, m.Len())
}

func TestConnectPlacement(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		want   []string
	}{
		{"tail appends", "C:1", []string{"A:1", "B:1", "C:1", "X:1"}},
		{"head prepends", "A:1", []string{"X:1", "A:1", "B:1", "C:1"}},
		{"interior inserts after", "B:1", []string{"A:1", "B:1", "X:1", "C:1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(seqIDs())
			m.Load(Snapshot{Nets: []Net{{ID: "n", Connections: []Connection{pin("A:1"), pin("B:1"), pin("C:1")}}}})

			n, err := m.Connect(pin(tt.anchor), pin("X:1"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, chain(n))
			assert.Equal(t, 1, m.Len())
		})
	}
}

func TestConnectExistingMemberIsNoop(t *testing.T) {
	m := New(seqIDs())
	_, err := m.Connect(pin("A:1"), pin("B:1"))
	require.NoError(t, err)
	_, err = m.Connect(pin("B:1"), pin("C:1"))
	require.NoError(t, err)

	n, err := m.Connect(pin("C:1"), pin("A:1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A:1", "B:1", "C:1"}, chain(n))
}

func TestConnectMergesNets(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("A:1"), pin("B:1"))
	_, _ = m.Connect(pin("C:1"), pin("D:1"))

	// A is the head of the first net and D the tail of the second; both get
	// flipped so A and D end up next to each other.
	n, err := m.Connect(pin("A:1"), pin("D:1"))
	require.NoError(t, err)
	assert.Equal(t, "net-1", n.ID)
	assert.Equal(t, []string{"B:1", "A:1", "D:1", "C:1"}, chain(n))
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.SameNet(pin("B:1"), pin("C:1")))
}

func TestAddConnection(t *testing.T) {
	m := New(seqIDs())
	seed := m.AddConnection(nil, pin("R1:1"))
	assert.Equal(t, []string{"R1:1"}, chain(seed))
	assert.Empty(t, seed.Links())

	m.AddConnection(seed, pin("R2:1"))
	assert.Equal(t, []string{"R1:1", "R2:1"}, chain(seed))
	assert.Len(t, m.Links(), 1)
}

func TestRemoveConnectionsForSplits(t *testing.T) {
	m := New(seqIDs())
	m.Load(Snapshot{Nets: []Net{
		{ID: "n1", Connections: []Connection{pin("A:1"), pin("B:1"), pin("U:1"), pin("C:1"), pin("D:1")}},
		{ID: "n2", Connections: []Connection{pin("U:2"), pin("E:1")}},
		{ID: "n3", Connections: []Connection{pin("F:1"), pin("G:1")}},
	}})

	removed := m.RemoveConnectionsFor("U")
	keys := make([]string, len(removed))
	for i, l := range removed {
		keys[i] = l.Key()
	}
	assert.Equal(t, []string{"B:1|U:1", "C:1|U:1", "E:1|U:2"}, keys)

	nets := m.Nets()
	require.Len(t, nets, 3)
	assert.Equal(t, "n1", nets[0].ID)
	assert.Equal(t, []string{"A:1", "B:1"}, chain(nets[0]))
	assert.Equal(t, "net-1", nets[1].ID)
	assert.Equal(t, []string{"C:1", "D:1"}, chain(nets[1]))
	assert.Equal(t, "n3", nets[2].ID)

	for _, l := range m.Links() {
		assert.False(t, l.Touches("U"))
	}
}

func TestRemoveConnectionsForPrunesSingletons(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("R1:1"), pin("LED1:1"))

	m.RemoveConnectionsFor("R1")
	assert.Zero(t, m.Len())
	_, ok := m.NetOf(pin("LED1:1"))
	assert.False(t, ok)
}

func TestRemoveConnectionsForKeepsUnrelatedSeed(t *testing.T) {
	m := New(seqIDs())
	m.AddConnection(nil, pin("A:1"))
	m.RemoveConnectionsFor("B")
	assert.Equal(t, 1, m.Len())
}

func TestRemoveConnection(t *testing.T) {
	m := New(seqIDs())
	m.Load(Snapshot{Nets: []Net{{ID: "n1", Connections: []Connection{pin("A:1"), pin("B:1"), pin("C:1"), pin("D:1")}}}})

	l, err := m.RemoveConnection(pin("C:1"), pin("B:1"))
	require.NoError(t, err)
	assert.Equal(t, "B:1|C:1", l.Key())

	nets := m.Nets()
	require.Len(t, nets, 2)
	assert.Equal(t, []string{"A:1", "B:1"}, chain(nets[0]))
	assert.Equal(t, "n1", nets[0].ID)
	assert.Equal(t, []string{"C:1", "D:1"}, chain(nets[1]))
	assert.False(t, m.SameNet(pin("A:1"), pin("D:1")))

	_, err = m.RemoveConnection(pin("A:1"), pin("D:1"))
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestRemoveLastLinkDeletesNet(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("A:1"), pin("B:1"))
	_, err := m.RemoveConnection(pin("A:1"), pin("B:1"))
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("R1:1"), pin("LED1:1"))
	_, _ = m.Connect(pin("R1:2"), pin("LED1:2"))
	_, _ = m.Connect(pin("LED1:2"), pin("C1:1"))

	s := m.Snapshot()
	m2 := New(seqIDs())
	assert.Zero(t, m2.Load(s))
	assert.Equal(t, s, m2.Snapshot())

	// the snapshot is a copy
	s.Nets[0].Connections[0].PinNumber = "9"
	assert.Equal(t, "1", m.Nets()[0].Connections[0].PinNumber)
}

func TestLoadDropsEmptyAndFillsIDs(t *testing.T) {
	m := New(seqIDs())
	dropped := m.Load(Snapshot{Nets: []Net{
		{ID: "keep", Connections: []Connection{pin("A:1"), pin("B:1")}},
		{ID: "empty"},
		{Connections: []Connection{pin("C:1"), pin("D:1")}},
	}})
	assert.Equal(t, 1, dropped)
	nets := m.Nets()
	require.Len(t, nets, 2)
	assert.Equal(t, "net-1", nets[1].ID)
}

func TestGroupsAndSameNet(t *testing.T) {
	m := New(seqIDs())
	m.Load(Snapshot{Nets: []Net{
		{ID: "a", Connections: []Connection{pin("R1:2"), pin("C1:1")}},
		{ID: "b", Connections: []Connection{pin("C1:1"), pin("U1:4")}},
		{ID: "c", Connections: []Connection{pin("R2:1"), pin("R2:2")}},
	}})

	groups := m.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []Connection{pin("C1:1"), pin("R1:2"), pin("U1:4")}, groups[0])
	assert.Equal(t, []Connection{pin("R2:1"), pin("R2:2")}, groups[1])

	assert.True(t, m.SameNet(pin("R1:2"), pin("U1:4")))
	assert.False(t, m.SameNet(pin("R1:2"), pin("R2:1")))
	assert.False(t, m.SameNet(pin("R1:2"), pin("X:1")))
}

func TestExportKiCad(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("R1:1"), pin("LED1:2"))

	out := m.ExportKiCad("")
	assert.True(t, strings.HasPrefix(out, "(export (version D)"))
	assert.Contains(t, out, "(comp (ref LED1))")
	assert.Contains(t, out, "(comp (ref R1))")
	assert.Contains(t, out, "(net (code 1) (name Net-1)")
	assert.Contains(t, out, "(node (ref LED1) (pin 2))")
	assert.Contains(t, out, "(node (ref R1) (pin 1))")
}

func TestComponents(t *testing.T) {
	m := New(seqIDs())
	_, _ = m.Connect(pin("R1:1"), pin("LED1:2"))
	_, _ = m.Connect(pin("R1:2"), pin("C1:1"))
	assert.Equal(t, []string{"R1", "LED1", "C1"}, m.Components())
}

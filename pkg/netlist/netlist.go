package netlist

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrSelfConnection is returned when a pin is connected to itself.
	ErrSelfConnection = errors.New("netlist: cannot connect a pin to itself")
	// ErrLinkNotFound is returned when no net holds the requested chain link.
	ErrLinkNotFound = errors.New("netlist: link not found")
)

// Connection is one (component, pin) endpoint.
type Connection struct {
	ComponentID string `json:"componentId" msgpack:"componentId"`
	PinNumber   string `json:"pinNumber" msgpack:"pinNumber"`
}

// PinID is the stable pin identity used by trackers and lookups.
func (c Connection) PinID() string {
	return c.ComponentID + ":" + c.PinNumber
}

func (c Connection) String() string {
	return c.PinID()
}

// ParsePinID parses "R1:2" into a Connection. The last colon separates the pin.
func ParsePinID(s string) (Connection, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Connection{}, fmt.Errorf("netlist: invalid pin id %q (want component:pin)", s)
	}
	return Connection{ComponentID: s[:i], PinNumber: s[i+1:]}, nil
}

// Link is one consecutive pair of a net's chain.
type Link struct {
	From Connection
	To   Connection
}

// Key identifies the link independent of its direction.
func (l Link) Key() string {
	a, b := l.From.PinID(), l.To.PinID()
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Touches reports whether either end belongs to componentID.
func (l Link) Touches(componentID string) bool {
	return l.From.ComponentID == componentID || l.To.ComponentID == componentID
}

func (l Link) String() string {
	return l.From.PinID() + "-" + l.To.PinID()
}

// Net is an ordered chain of connections.
type Net struct {
	ID          string       `json:"netId" msgpack:"netId"`
	Connections []Connection `json:"connections" msgpack:"connections"`
}

// Links returns the consecutive pairs of the chain.
func (n *Net) Links() []Link {
	if len(n.Connections) < 2 {
		return nil
	}
	out := make([]Link, 0, len(n.Connections)-1)
	for i := 0; i+1 < len(n.Connections); i++ {
		out = append(out, Link{From: n.Connections[i], To: n.Connections[i+1]})
	}
	return out
}

// Contains reports whether c is a member.
func (n *Net) Contains(c Connection) bool {
	return n.indexOf(c) >= 0
}

func (n *Net) indexOf(c Connection) int {
	for i, m := range n.Connections {
		if m == c {
			return i
		}
	}
	return -1
}

func (n *Net) clone() *Net {
	return &Net{ID: n.ID, Connections: append([]Connection(nil), n.Connections...)}
}

// NetLink is a link together with the net it belongs to.
type NetLink struct {
	NetID string
	Index int
	Link
}

// Option configures a Model.
type Option func(*Model)

// WithIDGenerator replaces the default uuid net id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Model) { m.newID = fn }
}

// Model is the collection of nets, in creation order.
type Model struct {
	nets  []*Net
	newID func() string
}

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Nets returns the nets in order. The nets are live; treat them as read-only.
func (m *Model) Nets() []*Net {
	return append([]*Net(nil), m.nets...)
}

// Len returns the number of nets.
func (m *Model) Len() int {
	return len(m.nets)
}

// Net returns the net with the given id.
func (m *Model) Net(id string) (*Net, bool) {
	for _, n := range m.nets {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NetOf returns the first net holding c.
func (m *Model) NetOf(c Connection) (*Net, bool) {
	n, _ := m.find(c)
	return n, n != nil
}

func (m *Model) find(c Connection) (*Net, int) {
	for _, n := range m.nets {
		if i := n.indexOf(c); i >= 0 {
			return n, i
		}
	}
	return nil, -1
}

func (m *Model) position(n *Net) int {
	for i, x := range m.nets {
		if x == n {
			return i
		}
	}
	return -1
}

// Links returns every chain link in net order, then index order.
func (m *Model) Links() []NetLink {
	var out []NetLink
	for _, n := range m.nets {
		for i, l := range n.Links() {
			out = append(out, NetLink{NetID: n.ID, Index: i, Link: l})
		}
	}
	return out
}

// AddConnection appends c to net's chain. A nil net starts a new net seeded
// with c alone, waiting for its second endpoint.
func (m *Model) AddConnection(net *Net, c Connection) *Net {
	if net == nil {
		net = &Net{ID: m.newID(), Connections: []Connection{c}}
		m.nets = append(m.nets, net)
		return net
	}
	net.Connections = append(net.Connections, c)
	return net
}

// Connect joins a and b and returns the net that now holds both.
func (m *Model) Connect(a, b Connection) (*Net, error) {
	if a == b {
		return nil, ErrSelfConnection
	}
	na, ia := m.find(a)
	nb, ib := m.find(b)

	switch {
	case na == nil && nb == nil:
		net := &Net{ID: m.newID(), Connections: []Connection{a, b}}
		m.nets = append(m.nets, net)
		return net, nil
	case nb == nil:
		extend(na, ia, b)
		return na, nil
	case na == nil:
		extend(nb, ib, a)
		return nb, nil
	case na == nb:
		return na, nil
	default:
		m.merge(na, ia, nb, ib)
		return na, nil
	}
}

// extend adds c to net next to the member at anchor.
func extend(net *Net, anchor int, c Connection) {
	conns := net.Connections
	switch {
	case anchor == len(conns)-1:
		net.Connections = append(conns, c)
	case anchor == 0:
		net.Connections = append([]Connection{c}, conns...)
	default:
		out := make([]Connection, 0, len(conns)+1)
		out = append(out, conns[:anchor+1]...)
		out = append(out, c)
		out = append(out, conns[anchor+1:]...)
		net.Connections = out
	}
}

// merge folds nb into na so that the members at ia and ib become neighbours
// when both are chain ends.
func (m *Model) merge(na *Net, ia int, nb *Net, ib int) {
	left := na.Connections
	if ia == 0 && len(left) > 1 {
		left = reversed(left)
	}
	right := nb.Connections
	if ib == len(right)-1 && len(right) > 1 {
		right = reversed(right)
	}
	merged := make([]Connection, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	na.Connections = merged

	if i := m.position(nb); i >= 0 {
		m.nets = append(m.nets[:i], m.nets[i+1:]...)
	}
}

func reversed(conns []Connection) []Connection {
	out := make([]Connection, len(conns))
	for i, c := range conns {
		out[len(conns)-1-i] = c
	}
	return out
}

// RemoveConnectionsFor drops every connection of componentID and returns the
// chain links that disappeared with them.
func (m *Model) RemoveConnectionsFor(componentID string) []Link {
	var removed []Link
	var out []*Net
	for _, n := range m.nets {
		hit := false
		for _, c := range n.Connections {
			if c.ComponentID == componentID {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, n)
			continue
		}

		for _, l := range n.Links() {
			if l.Touches(componentID) {
				removed = append(removed, l)
			}
		}

		var runs [][]Connection
		var run []Connection
		for _, c := range n.Connections {
			if c.ComponentID == componentID {
				runs = append(runs, run)
				run = nil
				continue
			}
			run = append(run, c)
		}
		runs = append(runs, run)
		out = append(out, m.fromRuns(n.ID, runs)...)
	}
	m.nets = out
	return removed
}

// RemoveConnection deletes the chain link between from and to, in either
// direction.
func (m *Model) RemoveConnection(from, to Connection) (Link, error) {
	for pos, n := range m.nets {
		for i := 0; i+1 < len(n.Connections); i++ {
			a, b := n.Connections[i], n.Connections[i+1]
			if (a == from && b == to) || (a == to && b == from) {
				runs := [][]Connection{n.Connections[:i+1], n.Connections[i+1:]}
				repl := m.fromRuns(n.ID, runs)

				nets := make([]*Net, 0, len(m.nets)+1)
				nets = append(nets, m.nets[:pos]...)
				nets = append(nets, repl...)
				nets = append(nets, m.nets[pos+1:]...)
				m.nets = nets
				return Link{From: a, To: b}, nil
			}
		}
	}
	return Link{}, fmt.Errorf("%w: %s-%s", ErrLinkNotFound, from, to)
}

// fromRuns turns the surviving runs of a cut net into nets. Runs shorter than
// two members are pruned; the first survivor keeps id.
func (m *Model) fromRuns(id string, runs [][]Connection) []*Net {
	var out []*Net
	for _, run := range runs {
		if len(run) < 2 {
			continue
		}
		netID := id
		if len(out) > 0 {
			netID = m.newID()
		}
		out = append(out, &Net{ID: netID, Connections: append([]Connection(nil), run...)})
	}
	return out
}

// SameNet reports whether a and b are one electrical node. Nets that share a
// member count as one node.
func (m *Model) SameNet(a, b Connection) bool {
	if a == b {
		return true
	}
	uf := m.unionFind()
	return uf.has(a) && uf.has(b) && uf.find(a) == uf.find(b)
}

// Groups returns every electrical node with two or more members. Members are
// sorted by component then pin, groups by their first member.
func (m *Model) Groups() [][]Connection {
	uf := m.unionFind()
	byRoot := make(map[Connection][]Connection)
	for _, c := range uf.order {
		root := uf.find(c)
		byRoot[root] = append(byRoot[root], c)
	}

	var groups [][]Connection
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return less(members[i], members[j]) })
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return less(groups[i][0], groups[j][0]) })
	return groups
}

func less(a, b Connection) bool {
	if a.ComponentID != b.ComponentID {
		return a.ComponentID < b.ComponentID
	}
	return a.PinNumber < b.PinNumber
}

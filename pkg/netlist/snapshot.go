package netlist

// Snapshot is the persisted netlist shape. It is authoritative on restore and
// written back unchanged on save.
type Snapshot struct {
	Nets []Net `json:"nets" msgpack:"nets"`
}

// Snapshot returns a deep copy of the model in persisted form.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{Nets: make([]Net, 0, len(m.nets))}
	for _, n := range m.nets {
		s.Nets = append(s.Nets, *n.clone())
	}
	return s
}

// Load replaces the model with s. Nets are taken as given, without going
// through Connect, except that nets with no connections are dropped and
// missing ids are generated. It returns the number of nets dropped.
func (m *Model) Load(s Snapshot) int {
	dropped := 0
	nets := make([]*Net, 0, len(s.Nets))
	for i := range s.Nets {
		n := s.Nets[i].clone()
		if len(n.Connections) == 0 {
			dropped++
			continue
		}
		if n.ID == "" {
			n.ID = m.newID()
		}
		nets = append(nets, n)
	}
	m.nets = nets
	return dropped
}

// Reset removes every net.
func (m *Model) Reset() {
	m.nets = nil
}

// Components returns the ids of every component referenced by a net, in
// first-seen order.
func (m *Model) Components() []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range m.nets {
		for _, c := range n.Connections {
			if !seen[c.ComponentID] {
				seen[c.ComponentID] = true
				out = append(out, c.ComponentID)
			}
		}
	}
	return out
}

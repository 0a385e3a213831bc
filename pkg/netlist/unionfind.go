package netlist

// unionFind groups connections into electrical nodes. Union by rank with
// path compression.
type unionFind struct {
	parent map[Connection]Connection
	rank   map[Connection]int
	order  []Connection
}

func (m *Model) unionFind() *unionFind {
	uf := &unionFind{
		parent: make(map[Connection]Connection),
		rank:   make(map[Connection]int),
	}
	for _, n := range m.nets {
		for i, c := range n.Connections {
			uf.add(c)
			if i > 0 {
				uf.union(n.Connections[i-1], c)
			}
		}
	}
	return uf
}

func (uf *unionFind) add(c Connection) {
	if _, ok := uf.parent[c]; ok {
		return
	}
	uf.parent[c] = c
	uf.order = append(uf.order, c)
}

func (uf *unionFind) has(c Connection) bool {
	_, ok := uf.parent[c]
	return ok
}

func (uf *unionFind) find(c Connection) Connection {
	root := c
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for c != root {
		next := uf.parent[c]
		uf.parent[c] = root
		c = next
	}
	return root
}

func (uf *unionFind) union(a, b Connection) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

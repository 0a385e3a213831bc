package scene

// Tag is the engine-side description of what a drawable represents. Tags live
// in a side-table keyed by NodeID instead of on the drawable itself.
type Tag interface {
	isTag()
}

// WireTypeConnection is the only wire type the engine creates.
const WireTypeConnection = "connection"

// WireTag marks the path drawn for one chain link of a net.
type WireTag struct {
	WireType        string
	FromComponentID string
	FromPinNumber   string
	ToComponentID   string
	ToPinNumber     string
	NetID           string
}

// JunctionTag marks a dot drawn at a wire endpoint.
type JunctionTag struct {
	PinConnection bool
}

// Type mirrors the tag value persisted by canvas front-ends.
func (JunctionTag) Type() string { return "junctionDot" }

// PinTag marks a connectable terminal inside a component group.
type PinTag struct {
	ComponentID    string
	PinNumber      string
	Name           string
	ElectricalType string
}

// ComponentTag marks the group that holds one component instance.
type ComponentTag struct {
	ComponentID string
	LibID       string
}

func (WireTag) isTag()      {}
func (JunctionTag) isTag()  {}
func (PinTag) isTag()       {}
func (ComponentTag) isTag() {}

// Tags is the side-table of node tags.
type Tags struct {
	m map[NodeID]Tag
}

// NewTags creates an empty table.
func NewTags() *Tags {
	return &Tags{m: make(map[NodeID]Tag)}
}

// Set tags id, replacing any previous tag.
func (t *Tags) Set(id NodeID, tag Tag) {
	t.m[id] = tag
}

// Get returns the tag for id.
func (t *Tags) Get(id NodeID) (Tag, bool) {
	tag, ok := t.m[id]
	return tag, ok
}

// Delete forgets id.
func (t *Tags) Delete(id NodeID) {
	delete(t.m, id)
}

// Len returns the number of tagged nodes.
func (t *Tags) Len() int {
	return len(t.m)
}

// Lookup returns the tag for id if it has the concrete type T.
func Lookup[T Tag](t *Tags, id NodeID) (T, bool) {
	var zero T
	tag, ok := t.m[id]
	if !ok {
		return zero, false
	}
	v, ok := tag.(T)
	return v, ok
}

// Count returns how many nodes carry a tag of type T.
func Count[T Tag](t *Tags) int {
	n := 0
	for _, tag := range t.m {
		if _, ok := tag.(T); ok {
			n++
		}
	}
	return n
}

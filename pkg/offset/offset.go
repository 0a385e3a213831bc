// Package offset tracks how many wires end at each pin and spreads their
// endpoints around the pin center so they do not coincide.
//
// Offsets are cosmetic. Nothing here feeds back into the netlist.
package offset

import (
	"math"
	"sort"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

const (
	DefaultRadius = 3.0
	DefaultSlots  = 8
)

// Tracker is the pin -> wire count table.
type Tracker struct {
	radius float64
	slots  int
	counts map[string]int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRadius sets the distance of offset endpoints from the pin center.
func WithRadius(r float64) Option {
	return func(t *Tracker) {
		if r > 0 {
			t.radius = r
		}
	}
}

// WithSlots sets how many distinct angles are used before they repeat.
func WithSlots(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.slots = n
		}
	}
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		radius: DefaultRadius,
		slots:  DefaultSlots,
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allocate records one more wire at pinID and returns where it should end.
// The first wire gets raw; occurrence i sits on a circle around raw at
// angle 2π/slots·i.
func (t *Tracker) Allocate(pinID string, raw geom.Point) geom.Point {
	i := t.counts[pinID]
	t.counts[pinID] = i + 1
	if i == 0 {
		return raw
	}
	theta := 2 * math.Pi / float64(t.slots) * float64(i)
	return geom.Polar(raw, t.radius, theta)
}

// Release forgets one wire at pinID.
func (t *Tracker) Release(pinID string) {
	switch n := t.counts[pinID]; {
	case n > 1:
		t.counts[pinID] = n - 1
	default:
		delete(t.counts, pinID)
	}
}

// Reset empties the table.
func (t *Tracker) Reset() {
	t.counts = make(map[string]int)
}

// Count returns the number of wires currently at pinID.
func (t *Tracker) Count(pinID string) int {
	return t.counts[pinID]
}

// Pins returns the pins with at least one wire, sorted.
func (t *Tracker) Pins() []string {
	out := make([]string, 0, len(t.counts))
	for id := range t.counts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

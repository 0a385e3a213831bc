// Package ratsnest keeps the drawn wires in step with the netlist.
//
// During a drag, ScheduleUpdate collects the moving components and Tick,
// called once per frame, redraws only the wires attached to them. Junction
// dots are left to lag. UpdateRatsnest is the settle pass: it reconciles the
// wire set with the netlist, recomputes every wire from a fresh tracker in
// net order then index order, and redraws all dots exactly once.
package ratsnest

import (
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/wire"
)

// Links is the read side of the netlist the scheduler needs.
type Links interface {
	Links() []netlist.NetLink
}

// Stats counts scheduler work since creation.
type Stats struct {
	Frames    int // ticks that had pending work
	Requests  int // ScheduleUpdate component requests
	Coalesced int // requests merged into an already pending component
	Retargets int // wire redraws done by ticks
	Settles   int
	Skipped   int // links skipped by settle passes
	Cancelled int // pending components dropped by a settle
}

// Result describes one settle pass.
type Result struct {
	Wires   int
	Dots    int
	Added   int
	Removed int
	Skipped []netlist.NetLink
}

// Scheduler drives the renderer from the netlist.
type Scheduler struct {
	r     *wire.Renderer
	model Links
	log   *slog.Logger

	pending map[string]bool
	order   []string
	stats   Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a scheduler.
func New(r *wire.Renderer, model Links, opts ...Option) *Scheduler {
	s := &Scheduler{
		r:       r,
		model:   model,
		log:     slog.Default(),
		pending: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleUpdate marks components as moved in the current frame.
func (s *Scheduler) ScheduleUpdate(componentIDs ...string) {
	for _, id := range componentIDs {
		s.stats.Requests++
		if s.pending[id] {
			s.stats.Coalesced++
			continue
		}
		s.pending[id] = true
		s.order = append(s.order, id)
	}
}

// Pending returns the components waiting for the next tick, in request order.
func (s *Scheduler) Pending() []string {
	return append([]string(nil), s.order...)
}

// Tick redraws every wire attached to a pending component once and clears
// the pending set. It returns the number of wires redrawn.
func (s *Scheduler) Tick() int {
	if len(s.order) == 0 {
		return 0
	}
	moving := s.order
	s.order = nil
	s.pending = make(map[string]bool)
	s.stats.Frames++

	n := 0
	for _, w := range s.r.Wires() {
		var ids []string
		for _, id := range moving {
			if w.Touches(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		// a failed retarget leaves the wire for the settle pass to drop
		if err := s.r.Retarget(w, ids...); err == nil {
			n++
		}
	}
	s.stats.Retargets += n
	return n
}

// Cancel drops pending continuous work.
func (s *Scheduler) Cancel() {
	if len(s.order) == 0 {
		return
	}
	s.stats.Cancelled += len(s.order)
	s.order = nil
	s.pending = make(map[string]bool)
}

// UpdateRatsnest is the settle pass. It supersedes any pending continuous
// work and is idempotent for an unchanged netlist and unchanged positions.
func (s *Scheduler) UpdateRatsnest() Result {
	s.Cancel()
	s.stats.Settles++

	links := s.model.Links()
	want := make(map[string]bool, len(links))
	for _, l := range links {
		want[l.Key()] = true
	}

	var res Result
	for _, w := range s.r.Wires() {
		if !want[w.Key()] {
			s.r.Dematerialize(w)
			res.Removed++
		}
	}

	s.r.Tracker().Reset()
	done := make(map[string]bool, len(links))
	for _, l := range links {
		key := l.Key()
		if done[key] {
			s.log.Warn("duplicate link skipped", "net", l.NetID, "link", l.String())
			continue
		}
		done[key] = true

		if w, ok := s.r.Wire(key); ok {
			if err := s.r.Reroute(w, l.NetID, l.Link); err != nil {
				res.Skipped = append(res.Skipped, l)
			}
			continue
		}
		if _, err := s.r.Materialize(l.NetID, l.Link); err != nil {
			res.Skipped = append(res.Skipped, l)
			continue
		}
		res.Added++
	}

	res.Dots = s.r.RefreshJunctions()
	res.Wires = len(s.r.Wires())
	s.stats.Skipped += len(res.Skipped)
	if len(res.Skipped) > 0 {
		s.log.Info("settle finished with skips", "wires", res.Wires, "skipped", len(res.Skipped))
	}
	return res
}

// Reconcile applies netlist edits without a full recompute: wires whose link
// is gone are removed, new links are drawn with the tracker as it stands and
// surviving wires are re-tagged in place. Used after a single connect or wire
// delete, where redrawing everything would move unrelated wire offsets.
func (s *Scheduler) Reconcile() Result {
	links := s.model.Links()
	want := make(map[string]netlist.NetLink, len(links))
	for _, l := range links {
		if _, dup := want[l.Key()]; !dup {
			want[l.Key()] = l
		}
	}

	var res Result
	for _, w := range s.r.Wires() {
		l, ok := want[w.Key()]
		if !ok {
			s.r.Dematerialize(w)
			res.Removed++
			continue
		}
		if w.NetID != l.NetID || w.Link != l.Link {
			_ = s.r.Retag(w, l.NetID, l.Link)
		}
	}

	done := make(map[string]bool, len(links))
	for _, l := range links {
		key := l.Key()
		if done[key] {
			continue
		}
		done[key] = true
		if _, ok := s.r.Wire(key); ok {
			continue
		}
		if _, err := s.r.Materialize(l.NetID, l.Link); err != nil {
			res.Skipped = append(res.Skipped, l)
			continue
		}
		res.Added++
	}

	res.Wires = len(s.r.Wires())
	res.Dots = s.r.DotCount()
	s.stats.Skipped += len(res.Skipped)
	return res
}

// Stats returns the counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

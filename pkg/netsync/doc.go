// Package netsync keeps a netlist and its drawn wires consistent while a
// schematic is edited.
//
// A Controller is built from an explicit Context and attached to one scene
// at a time. It owns the netlist, the pin registry of the attached scene, the
// wire renderer and the update scheduler. Scene events are queued in an inbox
// and handled in order once the current operation returns, so no handler ever
// runs inside another.
//
// Each component is Idle, Moving or Deleted:
//
//	Idle    -> Moving   drag start: pin affordances hidden, netlist untouched
//	Moving  -> Moving   each move: continuous redraw of the attached wires
//	Moving  -> Idle     drag end: settle pass
//	any     -> Deleted  connections removed, wires removed, settle pass
//
// The netlist is the source of truth. Wires and junction dots can always be
// thrown away and drawn again from it.
package netsync

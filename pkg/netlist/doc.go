// Package netlist is the logical half of the wiring engine: which component
// pins are electrically joined.
//
// # Model
//
// A Net is an ordered chain of Connections. Each consecutive pair in the
// chain is a Link and is drawn as exactly one wire. All members of a net are
// one electrical node regardless of their order; the order only decides which
// pairs get a wire.
//
// # Mutations
//
//   - AddConnection appends to a chain, or seeds a new one-member net.
//   - Connect joins two pins. A pin that already belongs to a net anchors the
//     new member: at the tail it is appended, at the head it is prepended,
//     and in the middle it is inserted right after the anchor. Two different
//     nets are merged, oriented so the two pins end up adjacent when both are
//     chain ends.
//   - RemoveConnectionsFor and RemoveConnection cut the chain. Each surviving
//     run of two or more members stays a net (the first one keeps the id);
//     runs of one member are pruned, because without a wire they are not
//     connected to anything.
//
// The Model is not safe for concurrent use. The engine has exactly one writer.
package netlist

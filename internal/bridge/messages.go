package bridge

import (
	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netsync"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/wire"
)

// Inbound is a command sent by a canvas client.
type Inbound struct {
	Type string `json:"type"`
	// ID is echoed in the reply so clients can match responses.
	ID string `json:"id,omitempty"`

	ComponentID string  `json:"componentId,omitempty"`
	LibID       string  `json:"libId,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Angle       float64 `json:"angle,omitempty"`
	MirrorX     bool    `json:"mirrorX,omitempty"`
	MirrorY     bool    `json:"mirrorY,omitempty"`
	DX          float64 `json:"dx,omitempty"`
	DY          float64 `json:"dy,omitempty"`

	From *netlist.Connection `json:"from,omitempty"`
	To   *netlist.Connection `json:"to,omitempty"`

	Script   string           `json:"script,omitempty"`
	Snapshot *persist.Session `json:"snapshot,omitempty"`
}

// Outbound is a reply or a broadcast frame.
type Outbound struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Client  string `json:"client,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	NetID   string `json:"netId,omitempty"`

	Frame    *Frame            `json:"frame,omitempty"`
	Netlist  *netlist.Snapshot `json:"netlist,omitempty"`
	Snapshot *persist.Session  `json:"snapshot,omitempty"`
	Skipped  []Skip            `json:"skipped,omitempty"`
	KiCad    string            `json:"kicad,omitempty"`
}

// Frame is the drawable state after a command or a tick.
type Frame struct {
	Seq   uint64       `json:"seq"`
	Wires []WireView   `json:"wires"`
	Dots  [][2]float64 `json:"dots"`
}

// WireView is one drawn wire.
type WireView struct {
	NetID  string       `json:"netId"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points [][2]float64 `json:"points"`
}

// Skip is a link that could not be drawn.
type Skip struct {
	Op     string `json:"op"`
	NetID  string `json:"netId"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

const (
	codeInvalid  = "invalid_argument"
	codeNotFound = "not_found"
	codeFailed   = "failed"
)

func xy(p geom.Point) [2]float64 {
	return [2]float64{p.X, p.Y}
}

func viewWire(w *wire.Wire) WireView {
	v := WireView{
		NetID:  w.NetID,
		From:   w.Link.From.PinID(),
		To:     w.Link.To.PinID(),
		Points: make([][2]float64, len(w.Points)),
	}
	for i, p := range w.Points {
		v.Points[i] = xy(p)
	}
	return v
}

func viewSkips(ds []netsync.Diagnostic) []Skip {
	out := make([]Skip, 0, len(ds))
	for _, d := range ds {
		out = append(out, Skip{
			Op:     d.Op,
			NetID:  d.NetID,
			From:   d.Link.From.PinID(),
			To:     d.Link.To.PinID(),
			Reason: d.Reason,
		})
	}
	return out
}

// Package bridge connects browser canvases to a wiring controller over
// websockets.
//
// A Hub goroutine owns the controller and its scene. Connections never touch
// them; they post commands into the hub and receive replies and frames on
// their own outbound channel. A frame ticker posts ticks the same way, which
// keeps the engine single-threaded.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netsync"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/script"
)

// ErrClosed is returned by Do after the hub stopped.
var ErrClosed = errors.New("bridge: hub closed")

// request carries one command. Replies go to reply when set, otherwise to
// the client's outbound queue ahead of any frame the command causes.
type request struct {
	in    Inbound
	reply chan Outbound
	c     *client
}

type client struct {
	out chan Outbound
}

// Hub serializes all access to one canvas.
type Hub struct {
	env      *script.Env
	parser   *script.Parser
	interval time.Duration
	log      *slog.Logger

	requests chan request
	join     chan joinReq
	leave    chan string
	done     chan struct{}

	// owned by the Run goroutine
	clients map[string]*client
	seq     uint64
}

type joinReq struct {
	id string
	c  *client
}

// NewHub creates a hub for env. interval is the continuous-update frame
// period; zero disables the ticker.
func NewHub(env *script.Env, interval time.Duration, log *slog.Logger) (*Hub, error) {
	if log == nil {
		log = slog.Default()
	}
	p, err := script.NewParser()
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	return &Hub{
		env:      env,
		parser:   p,
		interval: interval,
		log:      log,
		requests: make(chan request),
		join:     make(chan joinReq),
		leave:    make(chan string),
		done:     make(chan struct{}),
		clients:  make(map[string]*client),
	}, nil
}

// Run processes commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-h.join:
			h.clients[j.id] = j.c
			push(j.c.out, Outbound{Type: "frame", Client: j.id, Frame: h.frame()})
		case id := <-h.leave:
			delete(h.clients, id)
		case req := <-h.requests:
			out, changed := h.exec(req.in)
			out.ID = req.in.ID
			if req.c != nil {
				push(req.c.out, out)
			} else {
				req.reply <- out
			}
			if changed {
				h.broadcast()
			}
		case <-tick:
			if h.env.Ctrl.Tick() > 0 {
				h.broadcast()
			}
		}
	}
}

// Do runs one command on the hub goroutine and returns its reply.
func (h *Hub) Do(ctx context.Context, in Inbound) (Outbound, error) {
	reply := make(chan Outbound, 1)
	select {
	case h.requests <- request{in: in, reply: reply}:
	case <-h.done:
		return Outbound{}, ErrClosed
	case <-ctx.Done():
		return Outbound{}, ctx.Err()
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return Outbound{}, ctx.Err()
	}
}

func (h *Hub) post(ctx context.Context, c *client, in Inbound) error {
	select {
	case h.requests <- request{in: in, c: c}:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) subscribe(ctx context.Context, id string, c *client) error {
	select {
	case h.join <- joinReq{id: id, c: c}:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) unsubscribe(id string) {
	select {
	case h.leave <- id:
	case <-h.done:
	}
}

func (h *Hub) broadcast() {
	f := h.frame()
	for _, c := range h.clients {
		push(c.out, Outbound{Type: "frame", Frame: f})
	}
}

func (h *Hub) frame() *Frame {
	h.seq++
	r := h.env.Ctrl.Renderer()
	f := &Frame{Seq: h.seq, Wires: []WireView{}, Dots: [][2]float64{}}
	for _, w := range r.Wires() {
		f.Wires = append(f.Wires, viewWire(w))
	}
	for _, p := range r.Dots() {
		f.Dots = append(f.Dots, xy(p))
	}
	return f
}

// exec applies one command. changed reports whether the drawing may differ.
func (h *Hub) exec(in Inbound) (out Outbound, changed bool) {
	ctrl := h.env.Ctrl
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	out.Type = "ok"

	var err error
	switch typ {
	case "":
		return errorOut(codeInvalid, "type is required"), false
	case "ping":
		return Outbound{Type: "pong"}, false
	case "frame":
		out.Type = "frame"
		out.Frame = h.frame()
		return out, false
	case "netlist":
		s := ctrl.CurrentNetlist()
		out.Netlist = &s
		return out, false
	case "kicad":
		out.KiCad = ctrl.Model().ExportKiCad("otw")
		return out, false
	case "snapshot":
		s := h.env.Session()
		out.Snapshot = &s
		return out, false

	case "place":
		err = h.env.Place(persist.Placement{
			ComponentID: in.ComponentID,
			LibID:       in.LibID,
			X:           in.X,
			Y:           in.Y,
			Angle:       in.Angle,
			MirrorX:     in.MirrorX,
			MirrorY:     in.MirrorY,
		})
	case "connect":
		if in.From == nil || in.To == nil {
			return errorOut(codeInvalid, "from and to are required"), false
		}
		var n *netlist.Net
		n, err = ctrl.ConnectPins(in.From.ComponentID, in.From.PinNumber, in.To.ComponentID, in.To.PinNumber)
		if err == nil {
			out.NetID = n.ID
		}
	case "delete":
		err = ctrl.DeleteComponent(in.ComponentID)
		if err == nil {
			h.env.Forget(in.ComponentID)
		}
	case "unwire":
		if in.From == nil || in.To == nil {
			return errorOut(codeInvalid, "from and to are required"), false
		}
		err = ctrl.DeleteWireBetween(*in.From, *in.To)
	case "drag":
		// frames follow on the next tick
		return h.result(out, h.env.Drag(in.ComponentID, in.DX, in.DY)), false
	case "drop":
		err = h.env.Drop(in.ComponentID)
	case "settle":
		res := ctrl.UpdateRatsnest()
		if len(res.Skipped) > 0 {
			out.Skipped = viewSkips(ctrl.Diagnostics())
		}
	case "restore":
		if in.Snapshot == nil {
			return errorOut(codeInvalid, "snapshot is required"), false
		}
		var rep netsync.Report
		rep, err = h.env.Restore(*in.Snapshot)
		out.Skipped = viewSkips(rep.Skipped)
	case "script":
		var s *script.Script
		s, err = h.parser.ParseString("ws", in.Script)
		if err == nil {
			err = h.env.Run(s)
		}
	default:
		return errorOut(codeInvalid, fmt.Sprintf("unknown command %q", in.Type)), false
	}

	if err != nil {
		h.log.Debug("command failed", "type", typ, "err", err)
	}
	// a failed script may still have applied earlier statements
	return h.result(out, err), err == nil || typ == "script"
}

func (h *Hub) result(out Outbound, err error) Outbound {
	if err == nil {
		return out
	}
	code := codeFailed
	if errors.Is(err, pins.ErrNotFound) {
		code = codeNotFound
	}
	return errorOut(code, err.Error())
}

func errorOut(code, msg string) Outbound {
	return Outbound{Type: "error", Code: code, Message: msg}
}

// push delivers out without blocking, dropping the oldest queued message
// when the client falls behind.
func push(ch chan Outbound, out Outbound) {
	select {
	case ch <- out:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- out:
	default:
	}
}

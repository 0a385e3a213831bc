package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// Handler serves the websocket endpoint and a few read-only HTTP views.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler returns the HTTP handler for hub. An empty origins list
// accepts every origin.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// Routes returns a mux with /ws, /netlist, /netlist.net and /healthz.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/netlist", h.serveNetlist)
	mux.HandleFunc("/netlist.net", h.serveKiCad)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (h *Handler) serveNetlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.hub.Do(r.Context(), Inbound{Type: "netlist"})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out.Netlist)
}

func (h *Handler) serveKiCad(w http.ResponseWriter, r *http.Request) {
	out, err := h.hub.Do(r.Context(), Inbound{Type: "kicad"})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out.KiCad))
}

// ServeWS upgrades the connection and relays commands until it closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.NewString()
	log := h.hub.log.With("client", id)

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Warn("set read deadline failed", "err", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	c := &client{out: make(chan Outbound, 32)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-c.out:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	if err := h.hub.subscribe(ctx, id, c); err != nil {
		cancel()
		<-writerDone
		return
	}
	defer h.hub.unsubscribe(id)
	log.Info("client connected")

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			log.Info("client disconnected", "err", err)
			cancel()
			<-writerDone
			return
		}
		if err := h.hub.post(ctx, c, in); err != nil {
			push(c.out, errorOut(codeFailed, err.Error()))
			cancel()
			<-writerDone
			return
		}
	}
}

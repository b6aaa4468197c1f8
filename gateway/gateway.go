// Package gateway exposes the relay's runtime state over HTTP: a websocket
// feed of link transitions and a compressed snapshot export.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/signalsfoundry/platform-relay/internal/logging"
	"github.com/signalsfoundry/platform-relay/registry"
	"github.com/signalsfoundry/platform-relay/relay"
	"github.com/signalsfoundry/platform-relay/timectrl"
)

// LinkEventMsg is the wire form of a link transition pushed to websocket
// subscribers.
type LinkEventMsg struct {
	Type string     `json:"type"` // "LINK_UP" | "LINK_DOWN"
	Tick uint64     `json:"tick"`
	Link relay.Link `json:"link"`
}

// Snapshot is the exported relay state, serialised as zstd-compressed JSON.
type Snapshot struct {
	Capture   time.Time    `json:"capture"`
	Tick      uint64       `json:"tick"`
	Links     []relay.Link `json:"links"`
	Platforms int          `json:"platforms"`
	Surfaces  int          `json:"surfaces"`
	Nodes     int          `json:"nodes"`
}

// Server serves the gateway endpoints. Construct it with NewServer and
// mount Handler on an HTTP server.
type Server struct {
	controller *relay.Controller
	reg        *registry.Registry
	clock      timectrl.Clock
	log        logging.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer constructs a gateway over the given controller, registry, and
// clock. The clock may be nil, in which case ticks report zero.
func NewServer(ctrl *relay.Controller, reg *registry.Registry, clock timectrl.Clock, opts ...Option) *Server {
	s := &Server{
		controller: ctrl,
		reg:        reg,
		clock:      clock,
		log:        logging.Noop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Noop()
	}
	return s
}

// Handler returns a mux with the gateway routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/links", s.linksHandler)
	mux.HandleFunc("/snapshot", s.snapshotHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	return mux
}

func (s *Server) tick() uint64 {
	if s.clock == nil {
		return 0
	}
	return s.clock.Tick()
}

func (s *Server) linksHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(s.controller.Links())
}

func (s *Server) snapshotHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := Snapshot{
		Capture: time.Now().UTC(),
		Tick:    s.tick(),
		Links:   s.controller.Links(),
	}
	if s.reg != nil {
		snap.Platforms, snap.Surfaces, snap.Nodes = s.reg.Stats()
	}

	rw.Header().Set("Content-Type", "application/zstd")
	rw.Header().Set("Content-Disposition", `attachment; filename="relay-snapshot.json.zst"`)

	enc, err := zstd.NewWriter(rw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		http.Error(rw, "snapshot encoder failed", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(enc).Encode(snap); err != nil {
		s.log.Warn(r.Context(), "snapshot encode failed", logging.String("error", err.Error()))
	}
	if err := enc.Close(); err != nil {
		s.log.Warn(r.Context(), "snapshot flush failed", logging.String("error", err.Error()))
	}
}

func (s *Server) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sid := s.nextID.Add(1)
	ctx := r.Context()
	s.log.Info(ctx, "gateway subscriber connected", logging.Uint64("session", sid))

	// Buffered so a slow consumer cannot stall the controller's update
	// pass; overflowing events are dropped.
	events := make(chan LinkEventMsg, 64)
	unsubscribe := s.controller.Subscribe(func(ev relay.LinkEvent) {
		msg := LinkEventMsg{Type: "LINK_DOWN", Tick: s.tick(), Link: ev.Link}
		if ev.Type == relay.LinkEventUp {
			msg.Type = "LINK_UP"
		}
		select {
		case events <- msg:
		default:
		}
	})
	defer unsubscribe()

	// Reader goroutine: we never expect client frames, but reading is how
	// we learn the peer went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			s.log.Info(ctx, "gateway subscriber disconnected", logging.Uint64("session", sid))
			return
		case msg := <-events:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

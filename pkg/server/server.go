// Package server exposes the sync engine over HTTP: a websocket
// endpoint for participants plus health, stats, and metrics endpoints
// for operators.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/hub"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
)

// Server wires the hub to its HTTP surface
type Server struct {
	cfg      config.Config
	hub      *hub.Hub
	logger   logging.Logger
	metrics  *metrics.Registry
	upgrader websocket.Upgrader
	started  time.Time
}

// New creates a server fronting the given hub
func New(cfg config.Config, h *hub.Hub, logger logging.Logger, reg *metrics.Registry) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Server{
		cfg:     cfg,
		hub:     h,
		logger:  logger.With(logging.Component("server")),
		metrics: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The board is open to any origin; there is no cookie-based
			// session to protect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		started: time.Now(),
	}
}

// Router builds the HTTP routing table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// handleWebSocket upgrades the connection and runs it against the hub
// until it drops. The read loop runs on the request goroutine; writes
// are pumped from the connection's send buffer.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", logging.Error(err))
		return
	}

	conn := newWSConn(ws, s.cfg.SendBufferSize, s.logger)
	go conn.writePump()

	participant := s.hub.Connect(conn)
	defer func() {
		s.hub.Disconnect(participant.ID)
		conn.Close()
	}()

	conn.readPump(func(msg *protocol.Message) {
		s.hub.Handle(participant.ID, msg)
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

// handleStats reports a point-in-time summary of the board
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

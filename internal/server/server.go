// Package server exposes a running capture or playback over HTTP: health,
// JSON status, Prometheus metrics, and a websocket feed for the dashboard.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
)

// StatusFunc returns a JSON-encodable snapshot of one component.
type StatusFunc func() interface{}

// Options configures a Server.
type Options struct {
	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// FeedRate caps the websocket feed at this many events per second for
	// each event type. Zero leaves the feed unthrottled.
	FeedRate int
}

// Server is the vmcloop status server.
type Server struct {
	httpServer *http.Server
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
	hub        *Hub
	throttle   *Throttle
	mux        *http.ServeMux

	mu      sync.RWMutex
	sources map[string]StatusFunc
}

// New creates a status server for addr.
func New(addr string, opts Options) *Server {
	log := logging.OrNop(opts.Logger).Named("status")
	clk := clock.Default(opts.Clock)
	s := &Server{
		clock:    clk,
		log:      log,
		metrics:  opts.Metrics,
		hub:      NewHub(log),
		throttle: NewThrottle(opts.FeedRate, 0, clk),
		mux:      http.NewServeMux(),
		sources:  make(map[string]StatusFunc),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(s.mux, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	s.mux.HandleFunc("/dashboard/", s.handleDashboard)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
}

// Hub returns the websocket hub that feeds the dashboard.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Publish sends v to dashboard clients as a typ frame unless the feed for
// typ is over its rate, in which case the frame is dropped and counted.
func (s *Server) Publish(typ string, v interface{}) {
	if !s.throttle.Allow(typ) {
		return
	}
	s.hub.Broadcast(typ, v)
}

// Register adds a component to /api/status under name. Registering the
// same name again replaces it.
func (s *Server) Register(name string, fn StatusFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = fn
}

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "vmcloop",
		"status":  "running",
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	Time        time.Time              `json:"time"`
	Clients     int                    `json:"clients"`
	FeedDropped map[string]uint64      `json:"feed_dropped,omitempty"`
	Components  map[string]interface{} `json:"components"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	resp := StatusResponse{
		Time:        s.clock.Now(),
		Clients:     s.hub.ClientCount(),
		FeedDropped: s.throttle.Dropped(),
		Components:  make(map[string]interface{}, len(names)),
	}
	for _, name := range names {
		resp.Components[name] = s.sources[name]()
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(DashboardHTML))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins listening. It blocks until the server is shut down, and
// returns nil after a clean Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.log.Info("status server listening", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and disconnects websocket
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	return err
}

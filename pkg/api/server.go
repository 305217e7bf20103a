package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	httpx "github.com/suzarilshah/aquanexus-sub003/pkg/http"
	"github.com/suzarilshah/aquanexus-sub003/pkg/metrics"
)

// Deps are the collaborators behind the HTTP surface. Metrics, History,
// Breaker and Store are optional.
type Deps struct {
	Runner       Runner
	Sessions     SessionService
	Environments EnvironmentReader
	Migrator     Migrator
	Events       Subscriber
	Metrics      *metrics.Metrics
	History      metrics.RunHistory
	Breaker      BreakerReporter
	Store        Pinger
}

// Server routes HTTP requests to the replay components.
type Server struct {
	Deps
	cfg      *config.ReplayConfig
	router   *mux.Router
	upgrader websocket.Upgrader
	logOut   io.Writer
}

// NewServer builds the router for a validated configuration.
func NewServer(cfg *config.ReplayConfig, deps Deps) *Server {
	s := &Server{
		Deps:   deps,
		cfg:    cfg,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers connect from the dashboard origin; identity comes
			// from the upstream auth header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logOut: os.Stdout,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.handle("/cron/virtual-devices", "cron", s.handleCron, http.MethodGet, http.MethodPost)

	s.handle("/sessions/start", "sessions_start", s.handleStart, http.MethodPost)
	s.handle("/sessions/reset", "sessions_reset", s.handleReset, http.MethodPost)
	s.handle("/sessions/status", "sessions_status", s.handleStatus, http.MethodGet)
	s.handle("/sessions/pause", "sessions_pause", s.handlePause, http.MethodPost)
	s.handle("/sessions/resume", "sessions_resume", s.handleResume, http.MethodPost)

	// Not instrumented: the status recorder would hide the Hijacker.
	s.router.HandleFunc("/sessions/stream", s.handleStream).Methods(http.MethodGet)

	s.handle("/migrate", "migrate", s.handleMigrate, http.MethodGet, http.MethodPost)
	s.handle("/healthz", "healthz", s.handleHealth, http.MethodGet)

	if s.Metrics != nil {
		s.router.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) handle(path, route string, fn http.HandlerFunc, methods ...string) {
	var h http.Handler = fn
	if s.Metrics != nil {
		h = s.Metrics.WrapHandler(route, h)
	}

	s.router.Handle(path, h).Methods(methods...)
}

// Handler returns the router wrapped with CORS, recovery and access logging.
func (s *Server) Handler() http.Handler {
	return httpx.Wrap(s.router, s.logOut, s.cfg.UserHeader)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	RunID   string `json:"runId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody reads an optional JSON body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}

	return nil
}

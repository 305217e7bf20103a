package api

import (
	"context"
	"net/http"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/metrics"
)

const pingTimeout = 2 * time.Second

type healthResponse struct {
	Status  string             `json:"status"`
	Backend string             `json:"backend"`
	Breaker string             `json:"breaker,omitempty"`
	LastRun *metrics.RunPoint  `json:"lastRun,omitempty"`
	Recent  []metrics.RunPoint `json:"recentRuns,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Backend: s.cfg.StreamingBackend}
	code := http.StatusOK

	if s.History != nil {
		resp.LastRun = s.History.Last()
		resp.Recent = s.History.Recent()
	}

	if s.Breaker != nil {
		resp.Breaker = s.Breaker.BreakerState()
	}

	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := s.Store.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/replay"
)

type cronResponse struct {
	Success               bool              `json:"success"`
	RunID                 string            `json:"runId"`
	Status                models.RunStatus  `json:"status"`
	EnvironmentsProcessed int               `json:"environmentsProcessed"`
	SessionsProcessed     int               `json:"sessionsProcessed"`
	ReadingsSent          int               `json:"readingsSent"`
	Errors                []models.RunError `json:"errors"`
	Timestamp             time.Time         `json:"timestamp"`
}

// cronKey returns the caller's key from the query or a bearer token.
func cronKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

func (s *Server) authorizedCron(r *http.Request) bool {
	key := cronKey(r)
	if key == "" || s.cfg.CronSecret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.CronSecret)) == 1
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedCron(r) {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}

	q := r.URL.Query()

	trigger := replay.Trigger{
		Source:        models.TriggerScheduler,
		EnvironmentID: q.Get("environmentId"),
	}

	if q.Get("manual") == "true" {
		trigger.Source = models.TriggerManual
	}

	// A run is finished even when the scheduler stops waiting for it.
	run, err := s.Runner.Run(context.WithoutCancel(r.Context()), trigger)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, replay.ErrUnknownEnvironment) {
			status = http.StatusNotFound
		}

		resp := errorResponse{Error: err.Error()}
		if run != nil {
			resp.RunID = run.RunID
		}

		log.Printf("Run failed source=%s env=%q: %v", trigger.Source, trigger.EnvironmentID, err)
		writeJSON(w, status, resp)

		return
	}

	writeJSON(w, http.StatusOK, cronResponse{
		Success:               true,
		RunID:                 run.RunID,
		Status:                run.Status,
		EnvironmentsProcessed: len(run.EnvironmentIDs),
		SessionsProcessed:     len(run.SessionIDs),
		ReadingsSent:          run.ReadingsSent,
		Errors:                run.Errors,
		Timestamp:             run.FinishedAt,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/suzarilshah/aquanexus-sub003/pkg/migration"
)

const (
	actionSummary    = "summary"
	actionRetireCron = "retire-legacy-cron"
)

type migrateRequest struct {
	Action string `json:"action"`
}

type migrateStatusResponse struct {
	Success bool `json:"success"`
	*migration.Status
}

type summaryResponse struct {
	Success bool `json:"success"`
	*migration.Summary
}

func (s *Server) requireAdmin(userID string) error {
	if !s.cfg.IsAdmin(userID) {
		return errAdminOnly
	}

	return nil
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if r.Method == http.MethodGet {
		s.migrateQuery(w, r, userID)
		return
	}

	var req migrateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	switch req.Action {
	case "", "migrate":
		res, err := s.Migrator.Migrate(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		status := http.StatusOK
		if !res.Success {
			status = http.StatusBadRequest
		}

		writeJSON(w, status, res)
	case actionRetireCron:
		if err := s.requireAdmin(userID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		res, err := s.Migrator.RetireLegacyCronJob(r.Context())
		if errors.Is(err, migration.ErrSchedulerNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}

		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		status := http.StatusOK
		if !res.Success {
			status = http.StatusBadGateway
		}

		writeJSON(w, status, res)
	default:
		writeError(w, statusFor(errUnknownAction), errUnknownAction)
	}
}

func (s *Server) migrateQuery(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.URL.Query().Get("action") {
	case "", "status":
		st, err := s.Migrator.Status(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, migrateStatusResponse{Success: true, Status: st})
	case actionSummary:
		if err := s.requireAdmin(userID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		sum, err := s.Migrator.Summary(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, summaryResponse{Success: true, Summary: sum})
	default:
		writeError(w, statusFor(errUnknownAction), errUnknownAction)
	}
}

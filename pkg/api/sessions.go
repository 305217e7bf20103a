package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/session"
)

type sessionView struct {
	ID                string               `json:"id"`
	EnvironmentID     string               `json:"environmentId"`
	DeviceType        models.DeviceType    `json:"deviceType"`
	Status            models.SessionStatus `json:"status"`
	Cursor            int                  `json:"cursor"`
	TotalRows         int                  `json:"totalRows"`
	Progress          float64              `json:"progress"`
	ConsecutiveErrors int                  `json:"consecutiveErrors"`
	LastError         string               `json:"lastError,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	LastAdvancedAt    *time.Time           `json:"lastAdvancedAt,omitempty"`
}

func newSessionView(s *models.StreamingSession) sessionView {
	return sessionView{
		ID:                s.ID,
		EnvironmentID:     s.EnvironmentID,
		DeviceType:        s.DeviceType,
		Status:            s.Status,
		Cursor:            s.Cursor,
		TotalRows:         s.TotalRows,
		Progress:          s.Progress(),
		ConsecutiveErrors: s.ConsecutiveErrors,
		LastError:         s.LastError,
		CreatedAt:         s.CreatedAt,
		LastAdvancedAt:    s.LastAdvancedAt,
	}
}

type sessionResponse struct {
	Success bool        `json:"success"`
	Session sessionView `json:"session"`
}

type sessionsResponse struct {
	Success       bool          `json:"success"`
	EnvironmentID string        `json:"environmentId"`
	Sessions      []sessionView `json:"sessions"`
}

type controlRequest struct {
	DeviceType    string `json:"deviceType"`
	EnvironmentID string `json:"environmentId"`
	RetainData    bool   `json:"retainData"`
	SessionID     string `json:"sessionId"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden), errors.Is(err, errAdminOnly):
		return http.StatusForbidden
	case errors.Is(err, errNoEnvironment), errors.Is(err, errSessionNotFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTerminal), errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrLeaseHeld), errors.Is(err, db.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrPurgeFailed):
		return http.StatusBadGateway
	case errors.Is(err, errInvalidBody), errors.Is(err, errNoDevice), errors.Is(err, errUnknownAction),
		errors.Is(err, errMissingSessionID), errors.Is(err, models.ErrInvalidDeviceType),
		errors.Is(err, session.ErrNoDevice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) userID(r *http.Request) (string, error) {
	if id := r.Header.Get(s.cfg.UserHeader); id != "" {
		return id, nil
	}

	return "", errMissingUser
}

// environmentFor returns the requested environment if the user owns it, or
// the user's first environment when none is named.
func (s *Server) environmentFor(ctx context.Context, userID, environmentID string) (*models.Environment, error) {
	if environmentID == "" {
		envs, err := s.Environments.ListUserEnvironments(ctx, userID)
		if err != nil {
			return nil, err
		}

		if len(envs) == 0 {
			return nil, errNoEnvironment
		}

		return &envs[0], nil
	}

	env, err := s.Environments.GetEnvironment(ctx, environmentID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNoEnvironment
	}

	if err != nil {
		return nil, err
	}

	if env.UserID != userID {
		return nil, errForbidden
	}

	return env, nil
}

// ownedSession loads a session and checks that it belongs to one of the
// user's environments or to the user's legacy streams.
func (s *Server) ownedSession(ctx context.Context, userID, sessionID string) (*models.StreamingSession, error) {
	if sessionID == "" {
		return nil, errMissingSessionID
	}

	sess, err := s.Sessions.Get(ctx, sessionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errSessionNotFound
	}

	if err != nil {
		return nil, err
	}

	if sess.EnvironmentID == models.LegacyEnvironmentID(userID) {
		return sess, nil
	}

	if _, err := s.environmentFor(ctx, userID, sess.EnvironmentID); err != nil {
		return nil, err
	}

	return sess, nil
}

// deviceRequest decodes a control request that names a device type and
// resolves its environment.
func (s *Server) deviceRequest(r *http.Request) (*controlRequest, *models.Environment, models.DeviceType, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, nil, "", err
	}

	var req controlRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, nil, "", err
	}

	deviceType, err := models.ParseDeviceType(req.DeviceType)
	if err != nil {
		return nil, nil, "", err
	}

	env, err := s.environmentFor(r.Context(), userID, req.EnvironmentID)
	if err != nil {
		return nil, nil, "", err
	}

	if env.DeviceID(deviceType) == "" {
		return nil, nil, "", errNoDevice
	}

	return &req, env, deviceType, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	_, env, deviceType, err := s.deviceRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sess, err := s.Sessions.Start(r.Context(), env.ID, deviceType)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: newSessionView(sess)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	req, env, deviceType, err := s.deviceRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sess, err := s.Sessions.Reset(r.Context(), env.ID, deviceType, req.RetainData)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: newSessionView(sess)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	q := r.URL.Query()

	if id := q.Get("sessionId"); id != "" {
		sess, err := s.ownedSession(r.Context(), userID, id)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: newSessionView(sess)})

		return
	}

	env, err := s.environmentFor(r.Context(), userID, q.Get("environmentId"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sessions, err := s.Sessions.ListForEnvironment(r.Context(), env.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, newSessionView(&sessions[i]))
	}

	writeJSON(w, http.StatusOK, sessionsResponse{Success: true, EnvironmentID: env.ID, Sessions: views})
}

type sessionOp func(ctx context.Context, sessionID string) (*models.StreamingSession, error)

func (s *Server) handleSessionOp(w http.ResponseWriter, r *http.Request, op sessionOp) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var req controlRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sess, err := s.ownedSession(r.Context(), userID, req.SessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sess, err = op(r.Context(), sess.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: newSessionView(sess)})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleSessionOp(w, r, s.Sessions.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleSessionOp(w, r, s.Sessions.Resume)
}

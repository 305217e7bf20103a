package api

import "errors"

var (
	errUnauthorized     = errors.New("unauthorized")
	errMissingUser      = errors.New("authentication required")
	errForbidden        = errors.New("environment belongs to another user")
	errAdminOnly        = errors.New("admin access required")
	errNoEnvironment    = errors.New("environment not found")
	errSessionNotFound  = errors.New("session not found")
	errNoDevice         = errors.New("environment has no device of this type")
	errInvalidBody      = errors.New("invalid request body")
	errUnknownAction    = errors.New("unknown action")
	errMissingSessionID = errors.New("sessionId is required")
)

package session

import "errors"

var (
	ErrTerminal          = errors.New("session has ended; reset required")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrLeaseHeld         = errors.New("session is leased by another run")
	ErrNoDevice          = errors.New("environment has no device of this type")
	ErrPurgeFailed       = errors.New("failed to purge telemetry")
)

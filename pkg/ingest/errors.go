package ingest

import "errors"

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("ingestion API unavailable")

	errServerStatus = errors.New("ingestion API server error")
	errClientStatus = errors.New("ingestion API rejected request")
	errRequest      = errors.New("ingestion request failed")
	errEncode       = errors.New("failed to build ingestion request")
)

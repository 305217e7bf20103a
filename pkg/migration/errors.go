package migration

import "errors"

var (
	ErrSchedulerNotConfigured = errors.New("legacy scheduler job is not configured")
	ErrScheduler              = errors.New("scheduler request failed")
	errSchedulerStatus        = errors.New("unexpected scheduler status")
	errSchedulerRejected      = errors.New("scheduler rejected request")
)

// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// SessionStore persists streaming sessions. Cursor and status changes are
// conditional updates so that concurrent writers cannot both commit.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.StreamingSession, error)
	GetLiveSession(ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error)
	LatestSession(ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error)
	ListSessions(ctx context.Context, environmentID string) ([]models.StreamingSession, error)
	CreateSession(ctx context.Context, s *models.StreamingSession) error
	ReplaceLiveSession(ctx context.Context, next *models.StreamingSession, closeReason string) (*models.StreamingSession, error)
	AdvanceSession(ctx context.Context, id string, expected, next int, resetErrors bool, at time.Time) (*models.StreamingSession, error)
	IncrementSessionErrors(ctx context.Context, id, message string, threshold int) (*models.StreamingSession, error)
	TransitionSession(ctx context.Context, id string, from, to models.SessionStatus) (*models.StreamingSession, error)
	AcquireLease(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (*models.StreamingSession, error)
	ReleaseLease(ctx context.Context, id, owner string) error
}

// EnvironmentStore reads environments and devices managed by the settings UI.
type EnvironmentStore interface {
	GetEnvironment(ctx context.Context, id string) (*models.Environment, error)
	ListEnabledEnvironments(ctx context.Context) ([]models.Environment, error)
	ListUserEnvironments(ctx context.Context, userID string) ([]models.Environment, error)
	CreateEnvironment(ctx context.Context, env *models.Environment) error
	CountEnvironments(ctx context.Context) (int, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	UpsertDevice(ctx context.Context, d *models.Device) error
}

// AuditStore records cron runs and the session event log.
type AuditStore interface {
	SaveCronRun(ctx context.Context, run *models.CronRun) error
	GetCronRun(ctx context.Context, runID string) (*models.CronRun, error)
	AppendEvent(ctx context.Context, e *models.EventLogEntry) error
	ListEvents(ctx context.Context, sessionID string, limit int) ([]models.EventLogEntry, error)
	CleanOldData(ctx context.Context, retentionPeriod time.Duration) error
}

// MigrationPlan is the full set of writes that moves one user off the legacy
// configuration. With ExistingEnvironmentID set, the legacy configuration is
// attached to that environment and nothing new is created.
type MigrationPlan struct {
	UserID                string
	LegacyScope           string
	ExistingEnvironmentID string
	Environment           *models.Environment
	Sessions              []*models.StreamingSession
}

// LegacyStore persists the pre-environment configuration and global settings.
type LegacyStore interface {
	GetLegacyConfig(ctx context.Context, userID string) (*models.LegacyConfig, error)
	ListLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error)
	ListActiveLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error)
	UpsertLegacyConfig(ctx context.Context, c *models.LegacyConfig) error
	CommitMigration(ctx context.Context, plan *MigrationPlan) (envID string, created bool, err error)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Service represents all database operations.
type Service interface {
	SessionStore
	EnvironmentStore
	AuditStore
	LegacyStore

	Close() error
}

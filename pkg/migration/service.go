package migration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const (
	retiredSetting  = "legacy_cron_retired_at"
	environmentName = "Migrated environment"
)

// Status describes where a user stands in the migration.
type Status struct {
	HasLegacyConfig bool   `json:"hasLegacyConfig"`
	HasEnvironments bool   `json:"hasEnvironments"`
	Migrated        bool   `json:"migrated"`
	EnvironmentID   string `json:"environmentId,omitempty"`
}

// Result is the outcome of a migration request. Expected refusals, such as a
// user without a legacy configuration, are reported in Error rather than as
// a Go error.
type Result struct {
	Success       bool   `json:"success"`
	EnvironmentID string `json:"environmentId,omitempty"`
	Created       bool   `json:"created"`
	Error         string `json:"error,omitempty"`
}

// RetireResult is the outcome of retiring the legacy scheduler job.
type RetireResult struct {
	Success        bool   `json:"success"`
	AlreadyRetired bool   `json:"alreadyRetired"`
	RetiredAt      string `json:"retiredAt,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Summary aggregates migration progress across users.
type Summary struct {
	TotalLegacyUsers  int  `json:"totalLegacyUsers"`
	Migrated          int  `json:"migrated"`
	Unmigrated        int  `json:"unmigrated"`
	Environments      int  `json:"environments"`
	LegacyCronRetired bool `json:"legacyCronRetired"`
}

// Service implements the legacy migration operations.
type Service struct {
	store     Store
	seeder    Seeder
	scheduler SchedulerClient
	jobID     string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithScheduler enables RetireLegacyCronJob for the given job.
func WithScheduler(client SchedulerClient, jobID string) Option {
	return func(s *Service) {
		s.scheduler = client
		s.jobID = jobID
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a migration service.
func NewService(store Store, seeder Seeder, opts ...Option) *Service {
	s := &Service{
		store:  store,
		seeder: seeder,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Status reports the user's legacy and environment state.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	envs, err := s.store.ListUserEnvironments(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Status{HasEnvironments: len(envs) > 0}

	legacy, err := s.store.GetLegacyConfig(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return st, nil
	}

	if err != nil {
		return nil, err
	}

	st.HasLegacyConfig = true

	if legacy.MigratedEnvironmentID != "" {
		st.Migrated = true
		st.EnvironmentID = legacy.MigratedEnvironmentID

		return st, nil
	}

	if env := matchingEnvironment(legacy, envs); env != nil {
		st.Migrated = true
		st.EnvironmentID = env.ID
	}

	return st, nil
}

// Migrate creates the user's environment from the legacy configuration. It
// is idempotent: repeated or concurrent calls return the same environment.
func (s *Service) Migrate(ctx context.Context, userID string) (*Result, error) {
	legacy, err := s.store.GetLegacyConfig(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return &Result{Error: "no legacy configuration found"}, nil
	}

	if err != nil {
		return nil, err
	}

	if legacy.MigratedEnvironmentID != "" {
		return &Result{Success: true, EnvironmentID: legacy.MigratedEnvironmentID}, nil
	}

	if legacy.FishDeviceID == "" && legacy.PlantDeviceID == "" {
		return &Result{Error: "legacy configuration has no devices"}, nil
	}

	envs, err := s.store.ListUserEnvironments(ctx, userID)
	if err != nil {
		return nil, err
	}

	scope := models.LegacyEnvironmentID(userID)

	if env := matchingEnvironment(legacy, envs); env != nil {
		envID, _, err := s.store.CommitMigration(ctx, &db.MigrationPlan{
			UserID:                userID,
			LegacyScope:           scope,
			ExistingEnvironmentID: env.ID,
		})
		if err != nil {
			return nil, err
		}

		log.Printf("Linked legacy config of user %s to existing environment %s", userID, envID)

		return &Result{Success: true, EnvironmentID: envID}, nil
	}

	plan, err := s.plan(ctx, legacy, scope)
	if err != nil {
		return nil, err
	}

	envID, created, err := s.store.CommitMigration(ctx, plan)
	if err != nil {
		return nil, err
	}

	if created {
		log.Printf("Migrated user %s to environment %s with %d sessions", userID, envID, len(plan.Sessions))
	}

	return &Result{Success: true, EnvironmentID: envID, Created: created}, nil
}

func (s *Service) plan(ctx context.Context, legacy *models.LegacyConfig, scope string) (*db.MigrationPlan, error) {
	now := s.now().UTC()

	env := &models.Environment{
		ID:              uuid.NewString(),
		UserID:          legacy.UserID,
		Name:            environmentName,
		FishDeviceID:    legacy.FishDeviceID,
		PlantDeviceID:   legacy.PlantDeviceID,
		SpeedMultiplier: 1,
		Enabled:         legacy.Enabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	plan := &db.MigrationPlan{
		UserID:      legacy.UserID,
		LegacyScope: scope,
		Environment: env,
	}

	for _, t := range models.DeviceTypes {
		if legacy.DeviceID(t) == "" {
			continue
		}

		position, err := s.legacyPosition(ctx, legacy, scope, t)
		if err != nil {
			return nil, err
		}

		seed, err := s.seeder.NewSeed(env.ID, t, position)
		if err != nil {
			return nil, fmt.Errorf("seed %s session: %w", t, err)
		}

		plan.Sessions = append(plan.Sessions, seed)
	}

	return plan, nil
}

// legacyPosition is the furthest point the legacy stream reached, from
// either the config row or a session the legacy backend kept.
func (s *Service) legacyPosition(
	ctx context.Context, legacy *models.LegacyConfig, scope string, t models.DeviceType) (int, error) {
	position := legacy.Row(t)

	sess, err := s.store.LatestSession(ctx, scope, t)
	if errors.Is(err, db.ErrNotFound) {
		return position, nil
	}

	if err != nil {
		return 0, err
	}

	return max(position, sess.Cursor), nil
}

// matchingEnvironment finds an environment that already streams every
// device of the legacy configuration.
func matchingEnvironment(legacy *models.LegacyConfig, envs []models.Environment) *models.Environment {
	if legacy.FishDeviceID == "" && legacy.PlantDeviceID == "" {
		return nil
	}

	for i := range envs {
		env := &envs[i]
		matched := true

		for _, t := range models.DeviceTypes {
			if id := legacy.DeviceID(t); id != "" && env.DeviceID(t) != id {
				matched = false
			}
		}

		if matched {
			return env
		}
	}

	return nil
}

// RetireLegacyCronJob disables the legacy scheduler job once. After a
// successful call the retirement time is persisted and later calls return
// without contacting the scheduler.
func (s *Service) RetireLegacyCronJob(ctx context.Context) (*RetireResult, error) {
	at, err := s.store.GetSetting(ctx, retiredSetting)
	if err == nil {
		return &RetireResult{Success: true, AlreadyRetired: true, RetiredAt: at}, nil
	}

	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	if s.scheduler == nil || s.jobID == "" {
		return nil, ErrSchedulerNotConfigured
	}

	if err := s.scheduler.DisableJob(ctx, s.jobID); err != nil {
		log.Printf("Failed to retire legacy job %s: %v", s.jobID, err)

		return &RetireResult{Error: err.Error()}, nil
	}

	at = s.now().UTC().Format(time.RFC3339)
	if err := s.store.PutSetting(ctx, retiredSetting, at); err != nil {
		return nil, err
	}

	log.Printf("Retired legacy scheduler job %s", s.jobID)

	return &RetireResult{Success: true, RetiredAt: at}, nil
}

// Summary reports migration progress across all legacy users.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	configs, err := s.store.ListLegacyConfigs(ctx)
	if err != nil {
		return nil, err
	}

	envs, err := s.store.CountEnvironments(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{TotalLegacyUsers: len(configs), Environments: envs}

	for i := range configs {
		if configs[i].MigratedEnvironmentID != "" {
			sum.Migrated++
		}
	}

	sum.Unmigrated = sum.TotalLegacyUsers - sum.Migrated

	_, err = s.store.GetSetting(ctx, retiredSetting)

	switch {
	case err == nil:
		sum.LegacyCronRetired = true
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}

	return sum, nil
}

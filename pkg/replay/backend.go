package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const legacySpeed = 1

// EnvironmentSource reads environments.
type EnvironmentSource interface {
	GetEnvironment(ctx context.Context, id string) (*models.Environment, error)
	ListEnabledEnvironments(ctx context.Context) ([]models.Environment, error)
}

// EnvironmentAdapter streams every enabled environment at its own speed.
type EnvironmentAdapter struct {
	store EnvironmentSource
}

func NewEnvironmentAdapter(store EnvironmentSource) *EnvironmentAdapter {
	return &EnvironmentAdapter{store: store}
}

func (*EnvironmentAdapter) Name() string {
	return config.BackendEnvironments
}

func (a *EnvironmentAdapter) Targets(ctx context.Context, environmentID string) ([]models.Target, error) {
	if environmentID != "" {
		env, err := a.store.GetEnvironment(ctx, environmentID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEnvironment, environmentID)
		}

		if err != nil {
			return nil, err
		}

		if !env.Enabled {
			return nil, nil
		}

		return []models.Target{environmentTarget(env)}, nil
	}

	envs, err := a.store.ListEnabledEnvironments(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]models.Target, 0, len(envs))
	for i := range envs {
		targets = append(targets, environmentTarget(&envs[i]))
	}

	return targets, nil
}

func environmentTarget(env *models.Environment) models.Target {
	t := models.Target{
		EnvironmentID: env.ID,
		UserID:        env.UserID,
		Speed:         env.SpeedMultiplier,
	}

	for _, dt := range models.DeviceTypes {
		if id := env.DeviceID(dt); id != "" {
			t.Devices = append(t.Devices, models.TargetDevice{Type: dt, DeviceID: id})
		}
	}

	return t
}

// LegacySource reads the pre-environment configuration.
type LegacySource interface {
	ListActiveLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error)
}

// LegacyAdapter streams unmigrated legacy configurations at 1x, each as a
// pseudo-environment resuming from its stored row.
type LegacyAdapter struct {
	store LegacySource
}

func NewLegacyAdapter(store LegacySource) *LegacyAdapter {
	return &LegacyAdapter{store: store}
}

func (*LegacyAdapter) Name() string {
	return config.BackendLegacy
}

func (a *LegacyAdapter) Targets(ctx context.Context, environmentID string) ([]models.Target, error) {
	configs, err := a.store.ListActiveLegacyConfigs(ctx)
	if err != nil {
		return nil, err
	}

	var targets []models.Target

	for i := range configs {
		c := &configs[i]

		envID := models.LegacyEnvironmentID(c.UserID)
		if environmentID != "" && environmentID != envID {
			continue
		}

		t := models.Target{
			EnvironmentID: envID,
			UserID:        c.UserID,
			Speed:         legacySpeed,
		}

		for _, dt := range models.DeviceTypes {
			if id := c.DeviceID(dt); id != "" {
				t.Devices = append(t.Devices, models.TargetDevice{Type: dt, DeviceID: id, StartCursor: c.Row(dt)})
			}
		}

		targets = append(targets, t)
	}

	return targets, nil
}

// NewBackend selects the backend named by the streaming_backend setting.
func NewBackend(name string, store interface {
	EnvironmentSource
	LegacySource
}) (StreamingBackend, error) {
	switch name {
	case config.BackendEnvironments, "":
		return NewEnvironmentAdapter(store), nil
	case config.BackendLegacy:
		return NewLegacyAdapter(store), nil
	default:
		return nil, fmt.Errorf("unknown streaming backend %q", name)
	}
}

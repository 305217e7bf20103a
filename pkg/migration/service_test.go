package migration

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/session"
	"go.uber.org/mock/gomock"
)

type fixedRows map[models.DeviceType]int

func (f fixedRows) RowCount(archetype models.DeviceType) (int, error) {
	return f[archetype], nil
}

func newStore(t *testing.T) *db.DB {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "migration.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newSeeder(store *db.DB) *session.Manager {
	return session.NewManager(store, fixedRows{models.DeviceFish: 10, models.DevicePlant: 4}, nil)
}

func seedLegacy(t *testing.T, store *db.DB, c *models.LegacyConfig) {
	t.Helper()

	c.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.UpsertLegacyConfig(context.Background(), c))
}

func TestMigrate_CreatesEnvironmentAtLegacyPosition(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(store, newSeeder(store))

	seedLegacy(t, store, &models.LegacyConfig{
		UserID: "u1", FishDeviceID: "fish-1", PlantDeviceID: "plant-1",
		FishRow: 4, PlantRow: 9, Enabled: true,
	})
	require.NoError(t, store.CreateSession(ctx, &models.StreamingSession{
		ID: "legacy-fish", EnvironmentID: "legacy:u1", DeviceType: models.DeviceFish,
		Status: models.SessionActive, Cursor: 6, TotalRows: 10, CreatedAt: time.Now().UTC(),
	}))

	res, err := svc.Migrate(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Created)
	require.NotEmpty(t, res.EnvironmentID)

	env, err := store.GetEnvironment(ctx, res.EnvironmentID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.SpeedMultiplier)
	assert.True(t, env.Enabled)
	assert.Equal(t, "fish-1", env.FishDeviceID)
	assert.Equal(t, "plant-1", env.PlantDeviceID)

	fish, err := store.LatestSession(ctx, env.ID, models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, 6, fish.Cursor)
	assert.Equal(t, models.SessionActive, fish.Status)

	plant, err := store.LatestSession(ctx, env.ID, models.DevicePlant)
	require.NoError(t, err)
	assert.Equal(t, 4, plant.Cursor)
	assert.Equal(t, models.SessionCompleted, plant.Status)

	old, err := store.GetSession(ctx, "legacy-fish")
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, old.Status)

	again, err := svc.Migrate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.False(t, again.Created)
	assert.Equal(t, res.EnvironmentID, again.EnvironmentID)

	st, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &Status{
		HasLegacyConfig: true, HasEnvironments: true, Migrated: true, EnvironmentID: res.EnvironmentID,
	}, st)
}

func TestMigrate_Refusals(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(store, newSeeder(store))

	seedLegacy(t, store, &models.LegacyConfig{UserID: "empty", Enabled: true})

	tests := []struct {
		name   string
		userID string
		errMsg string
	}{
		{name: "no legacy config", userID: "nobody", errMsg: "no legacy configuration found"},
		{name: "no devices", userID: "empty", errMsg: "legacy configuration has no devices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Migrate(ctx, tt.userID)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.errMsg, res.Error)
		})
	}

	n, err := store.CountEnvironments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrate_ExistingEnvironmentCountsAsMigrated(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(store, newSeeder(store))
	now := time.Now().UTC()

	seedLegacy(t, store, &models.LegacyConfig{UserID: "u1", FishDeviceID: "fish-1", Enabled: true})
	require.NoError(t, store.CreateEnvironment(ctx, &models.Environment{
		ID: "env-1", UserID: "u1", Name: "Tank", FishDeviceID: "fish-1", PlantDeviceID: "plant-9",
		SpeedMultiplier: 5, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}))

	st, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, st.Migrated)
	assert.Equal(t, "env-1", st.EnvironmentID)

	res, err := svc.Migrate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Created)
	assert.Equal(t, "env-1", res.EnvironmentID)

	n, err := store.CountEnvironments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	legacy, err := store.GetLegacyConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "env-1", legacy.MigratedEnvironmentID)
}

func TestMigrate_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(store, newSeeder(store))

	seedLegacy(t, store, &models.LegacyConfig{UserID: "u1", FishDeviceID: "fish-1", FishRow: 2, Enabled: true})

	const workers = 6

	var (
		wg  sync.WaitGroup
		ids = make([]string, workers)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			res, err := svc.Migrate(ctx, "u1")
			if assert.NoError(t, err) && assert.True(t, res.Success) {
				ids[i] = res.EnvironmentID
			}
		}(i)
	}

	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	n, err := store.CountEnvironments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrate_SeedFailure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ctrl := gomock.NewController(t)
	seeder := NewMockSeeder(ctrl)
	svc := NewService(store, seeder)

	seedLegacy(t, store, &models.LegacyConfig{UserID: "u1", PlantDeviceID: "plant-1", PlantRow: 1, Enabled: false})

	seeder.EXPECT().NewSeed(gomock.Any(), models.DevicePlant, 1).Return(nil, errors.New("dataset unreadable"))

	_, err := svc.Migrate(ctx, "u1")
	require.Error(t, err)

	legacy, err := store.GetLegacyConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, legacy.MigratedEnvironmentID)
}

func TestRetireLegacyCronJob(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ctrl := gomock.NewController(t)
	scheduler := NewMockSchedulerClient(ctrl)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewService(store, newSeeder(store),
		WithScheduler(scheduler, "job-7"),
		WithClock(func() time.Time { return fixed }))

	gomock.InOrder(
		scheduler.EXPECT().DisableJob(gomock.Any(), "job-7").Return(ErrScheduler),
		scheduler.EXPECT().DisableJob(gomock.Any(), "job-7").Return(nil),
	)

	res, err := svc.RetireLegacyCronJob(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res, err = svc.RetireLegacyCronJob(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyRetired)
	assert.Equal(t, "2026-03-01T12:00:00Z", res.RetiredAt)

	res, err = svc.RetireLegacyCronJob(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.AlreadyRetired)
	assert.Equal(t, "2026-03-01T12:00:00Z", res.RetiredAt)
}

func TestRetireLegacyCronJob_NotConfigured(t *testing.T) {
	store := newStore(t)
	svc := NewService(store, newSeeder(store))

	_, err := svc.RetireLegacyCronJob(context.Background())
	require.ErrorIs(t, err, ErrSchedulerNotConfigured)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ctrl := gomock.NewController(t)
	scheduler := NewMockSchedulerClient(ctrl)
	svc := NewService(store, newSeeder(store), WithScheduler(scheduler, "job-7"))

	seedLegacy(t, store, &models.LegacyConfig{UserID: "u1", FishDeviceID: "fish-1", Enabled: true})
	seedLegacy(t, store, &models.LegacyConfig{UserID: "u2", PlantDeviceID: "plant-2", Enabled: true})
	seedLegacy(t, store, &models.LegacyConfig{UserID: "u3", FishDeviceID: "fish-3", Enabled: true})

	_, err := svc.Migrate(ctx, "u1")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Summary{TotalLegacyUsers: 3, Migrated: 1, Unmigrated: 2, Environments: 1}, sum)

	scheduler.EXPECT().DisableJob(gomock.Any(), "job-7").Return(nil)

	_, err = svc.RetireLegacyCronJob(ctx)
	require.NoError(t, err)

	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, sum.LegacyCronRetired)
}

package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/ingest"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/pubsub"
	"go.uber.org/mock/gomock"
)

type fixedRows map[models.DeviceType]int

func (f fixedRows) RowCount(archetype models.DeviceType) (int, error) {
	n, ok := f[archetype]
	if !ok {
		return 0, errors.New("unknown archetype")
	}

	return n, nil
}

type fixture struct {
	store  *db.DB
	purger *ingest.MockClient
	broker *pubsub.Broker
	mgr    *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	ctrl := gomock.NewController(t)
	purger := ingest.NewMockClient(ctrl)
	broker := pubsub.NewBroker(64)

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateEnvironment(ctx, &models.Environment{
		ID: "env", UserID: "u1", Name: "Tank", FishDeviceID: "fish-1",
		SpeedMultiplier: 3, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.UpsertDevice(ctx, &models.Device{
		ID: "fish-1", UserID: "u1", Name: "Fish", DeviceType: models.DeviceFish,
		MacAddress: "AA:BB:CC", APIKey: "secret",
	}))

	mgr := NewManager(store, fixedRows{models.DeviceFish: 10, models.DevicePlant: 4}, purger,
		WithPublisher(broker), WithErrorThreshold(3))

	return &fixture{store: store, purger: purger, broker: broker, mgr: mgr}
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, s.Status)
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, 10, s.TotalRows)

	again, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)

	// Start positions past the end are clamped and already complete.
	done, err := f.mgr.GetOrCreate(ctx, "other", models.DevicePlant, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, done.Cursor)
	assert.Equal(t, models.SessionCompleted, done.Status)
}

func TestAdvanceToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	events, cancel := f.broker.Subscribe("env")
	defer cancel()

	s, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)
	<-events // created

	steps := []struct {
		from, to int
		status   models.SessionStatus
	}{
		{0, 3, models.SessionActive},
		{3, 6, models.SessionActive},
		{6, 9, models.SessionActive},
		{9, 10, models.SessionCompleted},
	}

	for _, step := range steps {
		s, err = f.mgr.Advance(ctx, s.ID, step.from, step.to, step.to-step.from)
		require.NoError(t, err)
		assert.Equal(t, step.to, s.Cursor)
		assert.Equal(t, step.status, s.Status)
	}

	e := <-events
	assert.Equal(t, pubsub.EventCompleted, e.Type)
	assert.Equal(t, 10, e.Cursor)

	_, err = f.mgr.Advance(ctx, s.ID, 10, 11, 1)
	require.ErrorIs(t, err, db.ErrStaleCursor)
}

func TestAdvanceRejectsStaleWriter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)

	_, err = f.mgr.Advance(ctx, s.ID, 0, 3, 3)
	require.NoError(t, err)

	_, err = f.mgr.Advance(ctx, s.ID, 0, 3, 3)
	require.ErrorIs(t, err, db.ErrStaleCursor)
}

func TestRecordErrorThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)

	failed, got, err := f.mgr.RecordError(ctx, s.ID, "timeout")
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, 1, got.ConsecutiveErrors)

	// A successful advance clears the streak.
	got, err = f.mgr.Advance(ctx, s.ID, 0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConsecutiveErrors)

	for i := 0; i < 2; i++ {
		failed, _, err = f.mgr.RecordError(ctx, s.ID, "timeout")
		require.NoError(t, err)
		assert.False(t, failed)
	}

	failed, got, err = f.mgr.RecordError(ctx, s.ID, "revoked key")
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, models.SessionFailed, got.Status)
	assert.Equal(t, "revoked key", got.LastError)

	evts, err := f.store.ListEvents(ctx, s.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.EventLifecycle, evts[0].Kind)
	assert.Contains(t, evts[0].Message, "revoked key")
}

func TestPauseResumeStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.mgr.Start(ctx, "env", models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, s.Status)

	paused, err := f.mgr.Pause(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, paused.Status)

	_, err = f.mgr.Pause(ctx, s.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Paused sessions cannot advance.
	_, err = f.mgr.Advance(ctx, s.ID, 0, 1, 1)
	require.ErrorIs(t, err, db.ErrStaleCursor)

	resumed, err := f.mgr.Start(ctx, "env", models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, s.ID, resumed.ID)
	assert.Equal(t, models.SessionActive, resumed.Status)

	_, err = f.mgr.Advance(ctx, s.ID, 0, 10, 10)
	require.NoError(t, err)

	_, err = f.mgr.Start(ctx, "env", models.DeviceFish)
	require.ErrorIs(t, err, ErrTerminal)
}

func TestAcquireLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)

	_, err = f.mgr.Acquire(ctx, s.ID, "run-1", time.Minute)
	require.NoError(t, err)

	_, err = f.mgr.Acquire(ctx, s.ID, "run-2", time.Minute)
	require.ErrorIs(t, err, ErrLeaseHeld)

	require.NoError(t, f.mgr.Release(ctx, s.ID, "run-1"))

	_, err = f.mgr.Acquire(ctx, s.ID, "run-2", time.Minute)
	require.NoError(t, err)
}

func TestReset(t *testing.T) {
	tests := []struct {
		name       string
		retainData bool
		purgeErr   error
		wantErr    error
	}{
		{name: "delete data", retainData: false},
		{name: "retain data", retainData: true},
		{name: "purge failure aborts", retainData: false, purgeErr: errors.New("503"), wantErr: ErrPurgeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)

			old, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
			require.NoError(t, err)

			_, err = f.mgr.Advance(ctx, old.ID, 0, 10, 10)
			require.NoError(t, err)

			if !tt.retainData {
				f.purger.EXPECT().
					Purge(gomock.Any(), &ingest.PurgeRequest{
						APIKey:      "secret",
						DeviceMac:   "AA:BB:CC",
						ReadingType: models.DeviceFish,
					}).
					Return(tt.purgeErr)
			}

			next, err := f.mgr.Reset(ctx, "env", models.DeviceFish, tt.retainData)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				latest, err := f.store.LatestSession(ctx, "env", models.DeviceFish)
				require.NoError(t, err)
				assert.Equal(t, old.ID, latest.ID)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, old.ID, next.ID)
			assert.Equal(t, 0, next.Cursor)
			assert.Equal(t, models.SessionActive, next.Status)

			prev, err := f.store.GetSession(ctx, old.ID)
			require.NoError(t, err)
			assert.Equal(t, models.SessionCompleted, prev.Status)
		})
	}
}

func TestResetClosesLiveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	old, err := f.mgr.GetOrCreate(ctx, "env", models.DeviceFish, 0)
	require.NoError(t, err)

	next, err := f.mgr.Reset(ctx, "env", models.DeviceFish, true)
	require.NoError(t, err)

	prev, err := f.store.GetSession(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, prev.Status)
	assert.Equal(t, "reset", prev.LastError)

	live, err := f.store.GetLiveSession(ctx, "env", models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, next.ID, live.ID)
}

func TestResetWithoutDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.mgr.Reset(ctx, "env", models.DevicePlant, false)
	require.ErrorIs(t, err, ErrNoDevice)
}

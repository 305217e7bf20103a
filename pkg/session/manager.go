/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package session owns the streaming session state machine. Sessions are
// only changed through the Manager, and every change is a conditional update
// in the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/ingest"
	"github.com/suzarilshah/aquanexus-sub003/pkg/metrics"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/pubsub"
)

const (
	defaultThreshold = 5
	resetReason      = "reset"
)

// Store is the persistence the Manager needs.
type Store interface {
	db.SessionStore
	GetEnvironment(ctx context.Context, id string) (*models.Environment, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	AppendEvent(ctx context.Context, e *models.EventLogEntry) error
}

// RowCounter reports dataset sizes.
type RowCounter interface {
	RowCount(archetype models.DeviceType) (int, error)
}

// Purger removes previously ingested telemetry.
type Purger interface {
	Purge(ctx context.Context, req *ingest.PurgeRequest) error
}

// Manager implements the session lifecycle.
type Manager struct {
	store     Store
	rows      RowCounter
	purger    Purger
	publisher pubsub.Publisher
	metrics   metrics.Recorder
	threshold int
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher sends lifecycle updates to p.
func WithPublisher(p pubsub.Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithMetrics records status transitions.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithErrorThreshold sets how many consecutive failures fail a session.
func WithErrorThreshold(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// NewManager creates a session manager.
func NewManager(store Store, rows RowCounter, purger Purger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		rows:      rows,
		purger:    purger,
		metrics:   metrics.Nop{},
		threshold: defaultThreshold,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, id string) (*models.StreamingSession, error) {
	return m.store.GetSession(ctx, id)
}

// ListForEnvironment returns the latest session of each device type.
func (m *Manager) ListForEnvironment(ctx context.Context, environmentID string) ([]models.StreamingSession, error) {
	return m.store.ListSessions(ctx, environmentID)
}

// GetOrCreate returns the latest session of the pair unless there is none,
// in which case a new active session starting at startCursor is created.
// Terminal sessions are returned as they are; only Reset replaces them.
func (m *Manager) GetOrCreate(
	ctx context.Context, environmentID string, deviceType models.DeviceType, startCursor int) (*models.StreamingSession, error) {
	s, err := m.store.LatestSession(ctx, environmentID, deviceType)
	if err == nil {
		return s, nil
	}

	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	s, err = m.newSession(environmentID, deviceType, startCursor)
	if err != nil {
		return nil, err
	}

	err = m.store.CreateSession(ctx, s)
	if errors.Is(err, db.ErrSessionExists) {
		// Another run created it first.
		return m.store.GetLiveSession(ctx, environmentID, deviceType)
	}

	if err != nil {
		return nil, err
	}

	log.Printf("Created session %s env=%s device=%s cursor=%d/%d",
		s.ID, environmentID, deviceType, s.Cursor, s.TotalRows)
	m.lifecycle(ctx, s, "created")

	return s, nil
}

// Start makes sure the pair has a live session. A paused session is resumed;
// a terminal one yields ErrTerminal.
func (m *Manager) Start(
	ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error) {
	s, err := m.GetOrCreate(ctx, environmentID, deviceType, 0)
	if err != nil {
		return nil, err
	}

	switch s.Status {
	case models.SessionActive:
		return s, nil
	case models.SessionPaused:
		return m.Resume(ctx, s.ID)
	default:
		return s, fmt.Errorf("%w: session %s is %s", ErrTerminal, s.ID, s.Status)
	}
}

func (m *Manager) newSession(
	environmentID string, deviceType models.DeviceType, cursor int) (*models.StreamingSession, error) {
	total, err := m.rows.RowCount(deviceType)
	if err != nil {
		return nil, err
	}

	cursor = max(0, min(cursor, total))

	status := models.SessionActive
	if cursor == total {
		status = models.SessionCompleted
	}

	return &models.StreamingSession{
		ID:            uuid.NewString(),
		EnvironmentID: environmentID,
		DeviceType:    deviceType,
		Status:        status,
		Cursor:        cursor,
		TotalRows:     total,
		CreatedAt:     m.clock(),
	}, nil
}

// NewSeed builds, without storing, a session positioned at cursor. The
// migration service commits seeds together with the environment.
func (m *Manager) NewSeed(
	environmentID string, deviceType models.DeviceType, cursor int) (*models.StreamingSession, error) {
	return m.newSession(environmentID, deviceType, cursor)
}

// Acquire leases an active session to owner for ttl.
func (m *Manager) Acquire(
	ctx context.Context, sessionID, owner string, ttl time.Duration) (*models.StreamingSession, error) {
	s, err := m.store.AcquireLease(ctx, sessionID, owner, m.clock(), ttl)
	if errors.Is(err, db.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: %w", ErrLeaseHeld, err)
	}

	return s, err
}

// Release drops owner's lease.
func (m *Manager) Release(ctx context.Context, sessionID, owner string) error {
	return m.store.ReleaseLease(ctx, sessionID, owner)
}

// Advance moves the cursor from expected to next after successCount rows
// were delivered. Stale writers get db.ErrStaleCursor.
func (m *Manager) Advance(
	ctx context.Context, sessionID string, expected, next, successCount int) (*models.StreamingSession, error) {
	s, err := m.store.AdvanceSession(ctx, sessionID, expected, next, successCount > 0, m.clock())
	if err != nil {
		return nil, err
	}

	if s.Status == models.SessionCompleted {
		log.Printf("Session %s env=%s device=%s completed at row %d",
			s.ID, s.EnvironmentID, s.DeviceType, s.Cursor)
		m.metrics.SessionTransition(models.SessionCompleted)
		m.lifecycle(ctx, s, "completed")
	}

	return s, nil
}

// RecordError counts a failure and reports whether it failed the session.
func (m *Manager) RecordError(ctx context.Context, sessionID, message string) (bool, *models.StreamingSession, error) {
	s, err := m.store.IncrementSessionErrors(ctx, sessionID, message, m.threshold)
	if err != nil {
		return false, nil, err
	}

	m.event(ctx, &models.EventLogEntry{
		SessionID: s.ID,
		Kind:      models.EventError,
		Message:   message,
		Count:     s.ConsecutiveErrors,
	})

	if s.Status != models.SessionFailed {
		return false, s, nil
	}

	log.Printf("Session %s env=%s device=%s failed after %d consecutive errors: %s",
		s.ID, s.EnvironmentID, s.DeviceType, s.ConsecutiveErrors, message)
	m.metrics.SessionTransition(models.SessionFailed)
	m.lifecycle(ctx, s, "failed: "+message)

	return true, s, nil
}

// Pause stops an active session from advancing.
func (m *Manager) Pause(ctx context.Context, sessionID string) (*models.StreamingSession, error) {
	return m.transition(ctx, sessionID, models.SessionActive, models.SessionPaused)
}

// Resume reactivates a paused session.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*models.StreamingSession, error) {
	return m.transition(ctx, sessionID, models.SessionPaused, models.SessionActive)
}

func (m *Manager) transition(
	ctx context.Context, sessionID string, from, to models.SessionStatus) (*models.StreamingSession, error) {
	s, err := m.store.TransitionSession(ctx, sessionID, from, to)
	if errors.Is(err, db.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if err != nil {
		return nil, err
	}

	m.metrics.SessionTransition(to)
	m.lifecycle(ctx, s, string(to))

	return s, nil
}

// Reset replaces the pair's session with a new active one at cursor 0.
// Unless retainData is set, the device's ingested telemetry is purged first
// and a purge failure leaves everything untouched.
func (m *Manager) Reset(
	ctx context.Context, environmentID string, deviceType models.DeviceType, retainData bool) (*models.StreamingSession, error) {
	if !retainData {
		if err := m.purge(ctx, environmentID, deviceType); err != nil {
			return nil, err
		}
	}

	next, err := m.newSession(environmentID, deviceType, 0)
	if err != nil {
		return nil, err
	}

	closed, err := m.store.ReplaceLiveSession(ctx, next, resetReason)
	if err != nil {
		return nil, err
	}

	if closed != nil {
		m.metrics.SessionTransition(models.SessionFailed)
		m.lifecycle(ctx, closed, resetReason)
	}

	log.Printf("Reset env=%s device=%s new session %s retainData=%t",
		environmentID, deviceType, next.ID, retainData)
	m.metrics.SessionTransition(next.Status)
	m.lifecycle(ctx, next, "created by reset")

	return next, nil
}

func (m *Manager) purge(ctx context.Context, environmentID string, deviceType models.DeviceType) error {
	env, err := m.store.GetEnvironment(ctx, environmentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPurgeFailed, err)
	}

	deviceID := env.DeviceID(deviceType)
	if deviceID == "" {
		return fmt.Errorf("%w: %s", ErrNoDevice, deviceType)
	}

	device, err := m.store.GetDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %s: %w", ErrPurgeFailed, deviceID, err)
	}

	if err := m.purger.Purge(ctx, &ingest.PurgeRequest{
		APIKey:      device.APIKey,
		DeviceMac:   device.MacAddress,
		ReadingType: deviceType,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrPurgeFailed, err)
	}

	log.Printf("Purged telemetry of device %s env=%s", deviceID, environmentID)

	return nil
}

// LogBatch records a delivered batch in the event log and notifies
// subscribers.
func (m *Manager) LogBatch(ctx context.Context, s *models.StreamingSession, from, count int) {
	idx := from

	m.event(ctx, &models.EventLogEntry{
		SessionID: s.ID,
		Kind:      models.EventBatchSent,
		Message:   fmt.Sprintf("rows %d-%d", from, from+count-1),
		RowIndex:  &idx,
		Count:     count,
	})

	m.publish(s, pubsub.EventBatchSent, "")
}

func (m *Manager) lifecycle(ctx context.Context, s *models.StreamingSession, message string) {
	m.event(ctx, &models.EventLogEntry{
		SessionID: s.ID,
		Kind:      models.EventLifecycle,
		Message:   message,
	})

	eventType := pubsub.EventSessionUpdated

	switch s.Status {
	case models.SessionFailed:
		eventType = pubsub.EventSessionFailed
	case models.SessionCompleted:
		eventType = pubsub.EventCompleted
	case models.SessionActive, models.SessionPaused:
	}

	m.publish(s, eventType, message)
}

func (m *Manager) event(ctx context.Context, e *models.EventLogEntry) {
	e.CreatedAt = m.clock()

	if err := m.store.AppendEvent(ctx, e); err != nil {
		log.Printf("Failed to append %s event for session %s: %v", e.Kind, e.SessionID, err)
	}
}

func (m *Manager) publish(s *models.StreamingSession, eventType, message string) {
	if m.publisher == nil {
		return
	}

	m.publisher.Publish(s.EnvironmentID, pubsub.Event{
		Type:          eventType,
		EnvironmentID: s.EnvironmentID,
		SessionID:     s.ID,
		DeviceType:    s.DeviceType,
		Status:        s.Status,
		Cursor:        s.Cursor,
		TotalRows:     s.TotalRows,
		Message:       message,
		Timestamp:     m.clock(),
	})
}

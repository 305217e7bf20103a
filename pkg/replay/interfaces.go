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

// Package replay pkg/replay/interfaces.go

//go:generate mockgen -destination=mock_replay.go -package=replay github.com/suzarilshah/aquanexus-sub003/pkg/replay Emitter,StreamingBackend

package replay

import (
	"context"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/dispatch"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/timing"
)

// StreamingBackend produces the work of one run.
type StreamingBackend interface {
	// Name identifies the backend in run summaries.
	Name() string

	// Targets lists what to advance. A non-empty environmentID restricts the
	// result to that environment.
	Targets(ctx context.Context, environmentID string) ([]models.Target, error)
}

// Emitter delivers one dataset row as a device.
type Emitter interface {
	Emit(ctx context.Context, device *models.Device, deviceType models.DeviceType, row *models.DatasetRow) dispatch.Result
}

// Sessions is the part of the session manager the orchestrator drives.
type Sessions interface {
	GetOrCreate(ctx context.Context, environmentID string, deviceType models.DeviceType, startCursor int) (*models.StreamingSession, error)
	Acquire(ctx context.Context, sessionID, owner string, ttl time.Duration) (*models.StreamingSession, error)
	Release(ctx context.Context, sessionID, owner string) error
	Advance(ctx context.Context, sessionID string, expected, next, successCount int) (*models.StreamingSession, error)
	RecordError(ctx context.Context, sessionID, message string) (bool, *models.StreamingSession, error)
	LogBatch(ctx context.Context, s *models.StreamingSession, from, count int)
}

// DueCalculator decides which rows a session owes.
type DueCalculator interface {
	Compute(s *models.StreamingSession, speed int) (*timing.Due, error)
}

// DeviceResolver looks up virtual device records.
type DeviceResolver interface {
	GetDevice(ctx context.Context, id string) (*models.Device, error)
}

// RunStore persists run summaries.
type RunStore interface {
	SaveCronRun(ctx context.Context, run *models.CronRun) error
	CleanOldData(ctx context.Context, retentionPeriod time.Duration) error
}

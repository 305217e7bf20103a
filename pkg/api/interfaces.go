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

// Package api serves the replay engine over HTTP: the scheduler trigger,
// session control for the dashboard, the legacy migration endpoints and
// operational endpoints.
package api

//go:generate mockgen -destination=mock_api.go -package=api github.com/suzarilshah/aquanexus-sub003/pkg/api Runner,Migrator

import (
	"context"

	"github.com/suzarilshah/aquanexus-sub003/pkg/migration"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/pubsub"
	"github.com/suzarilshah/aquanexus-sub003/pkg/replay"
)

// Runner executes orchestrator runs.
type Runner interface {
	Run(ctx context.Context, trigger replay.Trigger) (*models.CronRun, error)
}

// SessionService controls streaming sessions.
type SessionService interface {
	Get(ctx context.Context, id string) (*models.StreamingSession, error)
	ListForEnvironment(ctx context.Context, environmentID string) ([]models.StreamingSession, error)
	Start(ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error)
	Reset(ctx context.Context, environmentID string, deviceType models.DeviceType, retainData bool) (*models.StreamingSession, error)
	Pause(ctx context.Context, sessionID string) (*models.StreamingSession, error)
	Resume(ctx context.Context, sessionID string) (*models.StreamingSession, error)
}

// EnvironmentReader looks up environments for ownership checks.
type EnvironmentReader interface {
	GetEnvironment(ctx context.Context, id string) (*models.Environment, error)
	ListUserEnvironments(ctx context.Context, userID string) ([]models.Environment, error)
}

// Migrator runs the legacy migration operations.
type Migrator interface {
	Status(ctx context.Context, userID string) (*migration.Status, error)
	Migrate(ctx context.Context, userID string) (*migration.Result, error)
	RetireLegacyCronJob(ctx context.Context) (*migration.RetireResult, error)
	Summary(ctx context.Context) (*migration.Summary, error)
}

// Subscriber delivers session events of one environment.
type Subscriber interface {
	Subscribe(topic string) (<-chan pubsub.Event, func())
}

// Pinger checks that the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BreakerReporter exposes the ingestion circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

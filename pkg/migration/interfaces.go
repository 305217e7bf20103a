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

// Package migration moves users from the single global legacy replay
// configuration onto environments.
package migration

//go:generate mockgen -destination=mock_migration.go -package=migration github.com/suzarilshah/aquanexus-sub003/pkg/migration Seeder,SchedulerClient

import (
	"context"

	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// Store is the persistence the Service needs.
type Store interface {
	GetLegacyConfig(ctx context.Context, userID string) (*models.LegacyConfig, error)
	ListLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error)
	ListUserEnvironments(ctx context.Context, userID string) ([]models.Environment, error)
	CountEnvironments(ctx context.Context) (int, error)
	LatestSession(ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error)
	CommitMigration(ctx context.Context, plan *db.MigrationPlan) (string, bool, error)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Seeder builds unsaved sessions positioned at a cursor.
type Seeder interface {
	NewSeed(environmentID string, deviceType models.DeviceType, cursor int) (*models.StreamingSession, error)
}

// SchedulerClient talks to the external scheduler that used to drive the
// legacy job.
type SchedulerClient interface {
	DisableJob(ctx context.Context, jobID string) error
}

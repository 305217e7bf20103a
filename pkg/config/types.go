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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errMissingSecret   = errors.New("cron_secret is required")
	errMissingDBPath   = errors.New("db_path is required")
	errMissingDataset  = errors.New("dataset path is required")
	errMissingIngest   = errors.New("ingest.url is required")
	errInvalidBackend  = errors.New("invalid streaming_backend")
	errInvalidLimit    = errors.New("invalid limit")
	errInvalidListen   = errors.New("listen_addr is required")
	errInvalidSchedURL = errors.New("scheduler.url is required when legacy_job_id is set")
)

const (
	BackendEnvironments = "environments"
	BackendLegacy       = "legacy"

	defaultErrorThreshold = 5
	defaultLeaseTTL       = 2 * time.Minute
	defaultEventRetention = 30 * 24 * time.Hour
	defaultIngestTimeout  = 10 * time.Second
	defaultUserHeader     = "X-User-ID"
	defaultRPS            = 20
	defaultBurst          = 5
	defaultBreakerFails   = 5
	defaultBreakerOpen    = 30 * time.Second
	defaultSchedulerRetry = 30 * time.Second
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DatasetPaths points at the CSV source of each device archetype.
type DatasetPaths struct {
	Fish  string `json:"fish"`
	Plant string `json:"plant"`
}

// BreakerConfig configures the ingestion circuit breaker.
type BreakerConfig struct {
	MaxFailures int      `json:"max_failures"`
	OpenTimeout Duration `json:"open_timeout"`
}

// IngestConfig describes the ingestion API collaborator.
type IngestConfig struct {
	URL               string        `json:"url"`
	Timeout           Duration      `json:"timeout"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	Burst             int           `json:"burst"`
	Breaker           BreakerConfig `json:"breaker"`
}

// SchedulerConfig describes the external scheduler's management API, used to
// retire the legacy job.
type SchedulerConfig struct {
	URL         string   `json:"url"`
	Token       string   `json:"token,omitempty"`
	LegacyJobID string   `json:"legacy_job_id"`
	MaxElapsed  Duration `json:"max_elapsed"`
}

// WebhookConfig represents a webhook notification configuration.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url"`
	Cooldown Duration `json:"cooldown"`
	Template string   `json:"template"`
	Headers  []Header `json:"headers,omitempty"` // Optional custom headers
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReplayConfig is the root configuration of the replay service.
type ReplayConfig struct {
	ListenAddr       string          `json:"listen_addr"`
	DBPath           string          `json:"db_path"`
	Datasets         DatasetPaths    `json:"datasets"`
	CronSecret       string          `json:"cron_secret,omitempty"`
	StreamingBackend string          `json:"streaming_backend"`
	ErrorThreshold   int             `json:"error_threshold"`
	LeaseTTL         Duration        `json:"lease_ttl"`
	EventRetention   Duration        `json:"event_retention"`
	UserHeader       string          `json:"user_header"`
	AdminUsers       []string        `json:"admin_users"`
	Ingest           IngestConfig    `json:"ingest"`
	Scheduler        SchedulerConfig `json:"scheduler"`
	Webhooks         []WebhookConfig `json:"webhooks,omitempty"`
}

// ApplyEnv lets deployments inject secrets without writing them to disk.
func (c *ReplayConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv("REPLAY_CRON_SECRET"); v != "" {
		c.CronSecret = v
	}

	if v := getenv("REPLAY_SCHEDULER_TOKEN"); v != "" {
		c.Scheduler.Token = v
	}
}

// Validate fills defaults and rejects unusable configurations.
func (c *ReplayConfig) Validate() error {
	c.applyDefaults()

	switch {
	case c.ListenAddr == "":
		return errInvalidListen
	case c.DBPath == "":
		return errMissingDBPath
	case c.Datasets.Fish == "" || c.Datasets.Plant == "":
		return errMissingDataset
	case c.CronSecret == "":
		return errMissingSecret
	case c.Ingest.URL == "":
		return errMissingIngest
	}

	if c.StreamingBackend != BackendEnvironments && c.StreamingBackend != BackendLegacy {
		return fmt.Errorf("%w: %q", errInvalidBackend, c.StreamingBackend)
	}

	if c.ErrorThreshold < 1 {
		return fmt.Errorf("%w: error_threshold must be positive", errInvalidLimit)
	}

	if c.Ingest.RequestsPerSecond < 0 || c.Ingest.Burst < 1 {
		return fmt.Errorf("%w: ingest rate", errInvalidLimit)
	}

	if c.Scheduler.LegacyJobID != "" && c.Scheduler.URL == "" {
		return errInvalidSchedURL
	}

	return nil
}

func (c *ReplayConfig) applyDefaults() {
	if c.StreamingBackend == "" {
		c.StreamingBackend = BackendEnvironments
	}

	if c.ErrorThreshold == 0 {
		c.ErrorThreshold = defaultErrorThreshold
	}

	if c.LeaseTTL <= 0 {
		c.LeaseTTL = Duration(defaultLeaseTTL)
	}

	if c.EventRetention <= 0 {
		c.EventRetention = Duration(defaultEventRetention)
	}

	if c.UserHeader == "" {
		c.UserHeader = defaultUserHeader
	}

	if c.Ingest.Timeout <= 0 {
		c.Ingest.Timeout = Duration(defaultIngestTimeout)
	}

	if c.Ingest.RequestsPerSecond == 0 {
		c.Ingest.RequestsPerSecond = defaultRPS
	}

	if c.Ingest.Burst == 0 {
		c.Ingest.Burst = defaultBurst
	}

	if c.Ingest.Breaker.MaxFailures == 0 {
		c.Ingest.Breaker.MaxFailures = defaultBreakerFails
	}

	if c.Ingest.Breaker.OpenTimeout <= 0 {
		c.Ingest.Breaker.OpenTimeout = Duration(defaultBreakerOpen)
	}

	if c.Scheduler.MaxElapsed <= 0 {
		c.Scheduler.MaxElapsed = Duration(defaultSchedulerRetry)
	}
}

// IsAdmin reports whether the user may run administrative migration actions.
func (c *ReplayConfig) IsAdmin(userID string) bool {
	for _, id := range c.AdminUsers {
		if id == userID {
			return true
		}
	}

	return false
}

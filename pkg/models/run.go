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

package models

import "time"

// TriggerSource tells who started an orchestrator run.
type TriggerSource string

const (
	TriggerScheduler TriggerSource = "scheduler"
	TriggerManual    TriggerSource = "manual"
)

// RunStatus is the outcome of an orchestrator run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunError is a failure scoped to part of a run, e.g. "env/abc/fish".
type RunError struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// CronRun is the audit record of one orchestrator invocation.
type CronRun struct {
	RunID          string        `json:"run_id"`
	TriggerSource  TriggerSource `json:"trigger_source"`
	Backend        string        `json:"backend"`
	EnvironmentIDs []string      `json:"environment_ids"`
	SessionIDs     []string      `json:"session_ids"`
	ReadingsSent   int           `json:"readings_sent"`
	Errors         []RunError    `json:"errors"`
	Status         RunStatus     `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// AddError appends a scoped error to the run.
func (r *CronRun) AddError(scope, message string) {
	r.Errors = append(r.Errors, RunError{Scope: scope, Message: message})
}

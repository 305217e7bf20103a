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

// Package replay runs one tick of virtual device playback: for every target
// it computes the rows due, emits them and advances the session.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/suzarilshah/aquanexus-sub003/pkg/alerts"
	"github.com/suzarilshah/aquanexus-sub003/pkg/dispatch"
	"github.com/suzarilshah/aquanexus-sub003/pkg/metrics"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/session"
	"github.com/suzarilshah/aquanexus-sub003/pkg/timing"
)

const (
	defaultLeaseTTL = 2 * time.Minute
	runScope        = "run"
)

// Trigger describes who asked for a run and what it covers.
type Trigger struct {
	Source        models.TriggerSource
	EnvironmentID string
}

// Config tunes the orchestrator.
type Config struct {
	LeaseTTL  time.Duration
	Retention time.Duration
}

// Deps are the orchestrator's collaborators. Alerter and Metrics are optional.
type Deps struct {
	Backend    StreamingBackend
	Sessions   Sessions
	Calculator DueCalculator
	Devices    DeviceResolver
	Emitter    Emitter
	Runs       RunStore
	Alerter    alerts.AlertService
	Metrics    metrics.Recorder
}

// Orchestrator executes runs. Concurrent runs are safe: a session is only
// processed by the run holding its lease.
type Orchestrator struct {
	Deps
	cfg Config
	now func() time.Time
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}

	return &Orchestrator{
		Deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
}

// runState is the bookkeeping of one run.
type runState struct {
	run *models.CronRun
}

// Run performs one tick. Per-item failures are collected in the returned
// run; an error is returned only when the run could not be carried out, in
// which case the run is still returned and persisted with status failed.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (*models.CronRun, error) {
	rs := &runState{
		run: &models.CronRun{
			RunID:          uuid.NewString(),
			TriggerSource:  trigger.Source,
			Backend:        o.Backend.Name(),
			EnvironmentIDs: []string{},
			SessionIDs:     []string{},
			Errors:         []models.RunError{},
			Status:         models.RunCompleted,
			StartedAt:      o.now().UTC(),
		},
	}

	log.Printf("Starting run %s source=%s backend=%s env=%q",
		rs.run.RunID, trigger.Source, rs.run.Backend, trigger.EnvironmentID)

	targets, err := o.Backend.Targets(ctx, trigger.EnvironmentID)
	if err != nil {
		rs.run.Status = models.RunFailed
		rs.run.AddError(runScope, err.Error())
		o.finish(ctx, rs.run)

		return rs.run, fmt.Errorf("%w: %w", ErrTargets, err)
	}

	for i := range targets {
		if err := ctx.Err(); err != nil {
			rs.run.AddError(runScope, err.Error())
			break
		}

		o.processTarget(ctx, rs, &targets[i])
	}

	o.finish(ctx, rs.run)

	return rs.run, nil
}

func (o *Orchestrator) processTarget(ctx context.Context, rs *runState, target *models.Target) {
	rs.run.EnvironmentIDs = append(rs.run.EnvironmentIDs, target.EnvironmentID)

	if !timing.ValidSpeed(target.Speed) {
		rs.run.AddError("env/"+target.EnvironmentID,
			fmt.Sprintf("invalid speed multiplier %d (allowed %d-%d)",
				target.Speed, timing.MinSpeedMultiplier, timing.MaxSpeedMultiplier))

		return
	}

	for _, dev := range target.Devices {
		o.processDevice(ctx, rs, target, dev)
	}
}

func (o *Orchestrator) processDevice(ctx context.Context, rs *runState, target *models.Target, dev models.TargetDevice) {
	scope := fmt.Sprintf("env/%s/%s", target.EnvironmentID, dev.Type)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic processing %s: %v", scope, r)
			rs.run.AddError(scope, fmt.Sprintf("panic: %v", r))
		}
	}()

	s, err := o.Sessions.GetOrCreate(ctx, target.EnvironmentID, dev.Type, dev.StartCursor)
	if err != nil {
		rs.run.AddError(scope, err.Error())
		return
	}

	rs.run.SessionIDs = append(rs.run.SessionIDs, s.ID)

	if s.Status != models.SessionActive {
		return
	}

	owner := rs.run.RunID

	s, err = o.Sessions.Acquire(ctx, s.ID, owner, o.cfg.LeaseTTL)
	if errors.Is(err, session.ErrLeaseHeld) {
		log.Printf("Skipping %s: session leased by another run", scope)
		return
	}

	if err != nil {
		rs.run.AddError(scope, err.Error())
		return
	}

	defer func() {
		if err := o.Sessions.Release(context.WithoutCancel(ctx), s.ID, owner); err != nil {
			log.Printf("Failed to release lease on session %s: %v", s.ID, err)
		}
	}()

	due, err := o.Calculator.Compute(s, target.Speed)
	if err != nil {
		rs.run.AddError(scope, err.Error())
		return
	}

	if due.Count == 0 {
		return
	}

	device, err := o.Devices.GetDevice(ctx, dev.DeviceID)
	if err != nil {
		msg := fmt.Sprintf("device %s: %v", dev.DeviceID, err)
		rs.run.AddError(scope, msg)
		o.recordError(ctx, s, msg)

		return
	}

	sent := 0

	var failure *dispatch.Result

	for i := range due.Rows {
		res := o.Emitter.Emit(ctx, device, dev.Type, &due.Rows[i])
		if !res.Success {
			failure = &res
			break
		}

		sent++
	}

	if sent > 0 {
		rs.run.ReadingsSent += sent
		o.Metrics.ReadingsSent(dev.Type, sent)

		advanced, err := o.Sessions.Advance(ctx, s.ID, due.FromIndex, due.FromIndex+sent, sent)
		if err != nil {
			rs.run.AddError(scope, err.Error())
			return
		}

		o.Sessions.LogBatch(ctx, advanced, due.FromIndex, sent)

		if advanced.Status == models.SessionCompleted {
			o.alert(ctx, advanced, alerts.Info, "Session completed",
				fmt.Sprintf("All %d rows replayed", advanced.TotalRows))
		}
	}

	if failure == nil {
		return
	}

	o.Metrics.EmitFailed(dev.Type)

	if failure.Unavailable {
		// Not the device's fault, so the session is not charged. Later
		// devices are still attempted; an open breaker rejects them cheaply.
		rs.run.AddError(scope, "ingestion unavailable: "+failure.Message)

		return
	}

	rs.run.AddError(scope, failure.Message)
	o.recordError(ctx, s, failure.Message)
}

func (o *Orchestrator) recordError(ctx context.Context, s *models.StreamingSession, msg string) {
	failed, updated, err := o.Sessions.RecordError(ctx, s.ID, msg)
	if err != nil {
		log.Printf("Failed to record error on session %s: %v", s.ID, err)
		return
	}

	if failed {
		o.alert(ctx, updated, alerts.Error, "Session failed",
			fmt.Sprintf("%d consecutive errors, last: %s", updated.ConsecutiveErrors, msg))
	}
}

func (o *Orchestrator) alert(ctx context.Context, s *models.StreamingSession, level alerts.AlertLevel, title, msg string) {
	if o.Alerter == nil || !o.Alerter.IsEnabled() {
		return
	}

	err := o.Alerter.Alert(ctx, &alerts.Alert{
		Level:         level,
		Title:         title,
		Message:       msg,
		EnvironmentID: s.EnvironmentID,
		SessionID:     s.ID,
		DeviceType:    string(s.DeviceType),
		Details: map[string]any{
			"cursor":     s.Cursor,
			"total_rows": s.TotalRows,
		},
	})
	if err != nil {
		log.Printf("Failed to send %q alert for session %s: %v", title, s.ID, err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, run *models.CronRun) {
	ctx = context.WithoutCancel(ctx)
	run.FinishedAt = o.now().UTC()

	if err := o.Runs.SaveCronRun(ctx, run); err != nil {
		log.Printf("Failed to save run %s: %v", run.RunID, err)
	}

	o.Metrics.ObserveRun(run)

	if o.cfg.Retention > 0 {
		if err := o.Runs.CleanOldData(ctx, o.cfg.Retention); err != nil {
			log.Printf("Failed to clean old audit data: %v", err)
		}
	}

	log.Printf("Finished run %s status=%s environments=%d sessions=%d readings=%d errors=%d in %v",
		run.RunID, run.Status, len(run.EnvironmentIDs), len(run.SessionIDs),
		run.ReadingsSent, len(run.Errors), run.FinishedAt.Sub(run.StartedAt))
}

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

// Package dispatch turns dataset rows into telemetry and submits it on
// behalf of a virtual device.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/ingest"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

var (
	errNoReadings = errors.New("row has no mapped readings")
	errNoDevice   = errors.New("device is not configured")
)

// Result is the outcome of emitting one row. Unavailable means the
// ingestion API was not tried because its circuit breaker is open.
type Result struct {
	Success     bool
	Message     string
	Unavailable bool
}

// Dispatcher emits rows through an ingestion client. It keeps no state
// between calls and never retries.
type Dispatcher struct {
	client ingest.Client
	now    func() time.Time
}

// New creates a Dispatcher.
func New(client ingest.Client) *Dispatcher {
	return &Dispatcher{
		client: client,
		now:    time.Now,
	}
}

// Emit submits one row as the given device.
func (d *Dispatcher) Emit(
	ctx context.Context, device *models.Device, deviceType models.DeviceType, row *models.DatasetRow) Result {
	if device == nil || device.APIKey == "" {
		return Result{Message: errNoDevice.Error()}
	}

	ts := d.now().UTC().Format(time.RFC3339)

	readings, err := Readings(deviceType, row, ts)
	if err != nil {
		return Result{Message: fmt.Sprintf("row %d: mapping %s: %v", row.Index, MappingVersion, err)}
	}

	err = d.client.Submit(ctx, &ingest.Payload{
		APIKey:      device.APIKey,
		DeviceMac:   device.MacAddress,
		ReadingType: deviceType,
		Readings:    readings,
		Timestamp:   ts,
	})
	if err != nil {
		return Result{
			Message:     fmt.Sprintf("row %d: %v", row.Index, err),
			Unavailable: errors.Is(err, ingest.ErrUnavailable),
		}
	}

	return Result{Success: true}
}

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

// Package ingest pkg/ingest/interfaces.go

//go:generate mockgen -destination=mock_ingest.go -package=ingest github.com/suzarilshah/aquanexus-sub003/pkg/ingest Client

package ingest

import (
	"context"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// Client talks to the ingestion API collaborator.
type Client interface {
	// Submit posts one telemetry payload.
	Submit(ctx context.Context, payload *Payload) error

	// Purge deletes previously ingested telemetry of a device.
	Purge(ctx context.Context, req *PurgeRequest) error
}

// Payload is the body of POST /telemetry. It carries the device's own
// credential and hardware id.
type Payload struct {
	APIKey      string            `json:"apiKey"`
	DeviceMac   string            `json:"deviceMac"`
	ReadingType models.DeviceType `json:"readingType"`
	Readings    []models.Reading  `json:"readings"`
	Timestamp   string            `json:"timestamp"`
}

// PurgeRequest is the body of DELETE /telemetry.
type PurgeRequest struct {
	APIKey      string            `json:"apiKey"`
	DeviceMac   string            `json:"deviceMac"`
	ReadingType models.DeviceType `json:"readingType"`
}

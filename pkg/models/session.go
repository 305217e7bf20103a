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

// SessionStatus is the state of a streaming session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Terminal reports whether the status can only be left through a reset.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// StreamingSession is the resumable playback state of one
// (environment, device type) pair.
type StreamingSession struct {
	ID                string        `json:"id"`
	EnvironmentID     string        `json:"environment_id"`
	DeviceType        DeviceType    `json:"device_type"`
	Status            SessionStatus `json:"status"`
	Cursor            int           `json:"cursor"`
	TotalRows         int           `json:"total_rows"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	LastError         string        `json:"last_error,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	LastAdvancedAt    *time.Time    `json:"last_advanced_at,omitempty"`
	LeaseOwner        string        `json:"-"`
	LeaseExpiresAt    *time.Time    `json:"-"`
}

// Progress returns the fraction of the dataset already emitted, in [0, 1].
func (s *StreamingSession) Progress() float64 {
	if s.TotalRows <= 0 {
		return 0
	}

	return float64(s.Cursor) / float64(s.TotalRows)
}

// EventKind classifies audit trail entries.
type EventKind string

const (
	EventDataSent  EventKind = "data_sent"
	EventBatchSent EventKind = "batch_sent"
	EventError     EventKind = "error"
	EventLifecycle EventKind = "lifecycle"
)

// EventLogEntry is an append-only audit record tied to a session.
type EventLogEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	RowIndex  *int      `json:"row_index,omitempty"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

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

// Package timing decides which dataset rows a session owes on a tick.
//
// Speed is expressed as rows per tick, never as a wall-clock rate, so the
// calculator keeps no state and a tick that follows missed ticks owes the same
// number of rows as any other.
package timing

import (
	"fmt"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const (
	// MinSpeedMultiplier and MaxSpeedMultiplier bound the rows emitted per tick.
	MinSpeedMultiplier = 1
	MaxSpeedMultiplier = 100
)

// RowSource provides read access to the replay datasets.
type RowSource interface {
	RowAt(archetype models.DeviceType, index int) (models.DatasetRow, error)
}

// Due is the half-open row range [FromIndex, ToIndex) owed by a session.
type Due struct {
	Rows       []models.DatasetRow
	FromIndex  int
	ToIndex    int
	Count      int
	IsComplete bool
}

// Calculator computes due rows for sessions.
type Calculator struct {
	rows RowSource
}

// NewCalculator creates a calculator over a dataset source.
func NewCalculator(rows RowSource) *Calculator {
	return &Calculator{rows: rows}
}

// ValidSpeed reports whether a speed multiplier is within bounds.
func ValidSpeed(speed int) bool {
	return speed >= MinSpeedMultiplier && speed <= MaxSpeedMultiplier
}

// Compute returns the rows due for the session at the given speed. Invalid
// speeds and exhausted sessions yield an empty result.
func (c *Calculator) Compute(s *models.StreamingSession, speed int) (*Due, error) {
	if s == nil || speed <= 0 {
		return &Due{}, nil
	}

	if s.Cursor >= s.TotalRows {
		return &Due{FromIndex: s.TotalRows, ToIndex: s.TotalRows, IsComplete: true}, nil
	}

	from := s.Cursor
	if from < 0 {
		from = 0
	}

	n := min(speed, s.TotalRows-from)
	due := &Due{
		Rows:      make([]models.DatasetRow, 0, n),
		FromIndex: from,
		ToIndex:   from + n,
		Count:     n,
	}

	for i := from; i < due.ToIndex; i++ {
		row, err := c.rows.RowAt(s.DeviceType, i)
		if err != nil {
			return nil, fmt.Errorf("session %s row %d: %w", s.ID, i, err)
		}

		due.Rows = append(due.Rows, row)
	}

	due.IsComplete = due.ToIndex == s.TotalRows

	return due, nil
}

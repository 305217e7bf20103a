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

package timing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

var errNoRow = errors.New("no row")

type fakeRows struct {
	n int
}

func (f fakeRows) RowAt(_ models.DeviceType, index int) (models.DatasetRow, error) {
	if index < 0 || index >= f.n {
		return models.DatasetRow{}, errNoRow
	}

	return models.DatasetRow{Index: index}, nil
}

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(fakeRows{n: 10})

	tests := []struct {
		name     string
		cursor   int
		speed    int
		from     int
		to       int
		count    int
		complete bool
	}{
		{name: "first tick", cursor: 0, speed: 3, from: 0, to: 3, count: 3},
		{name: "middle tick", cursor: 3, speed: 3, from: 3, to: 6, count: 3},
		{name: "tail shorter than speed", cursor: 9, speed: 3, from: 9, to: 10, count: 1, complete: true},
		{name: "exact finish", cursor: 7, speed: 3, from: 7, to: 10, count: 3, complete: true},
		{name: "exhausted", cursor: 10, speed: 3, from: 10, to: 10, count: 0, complete: true},
		{name: "zero speed fails closed", cursor: 2, speed: 0},
		{name: "negative speed fails closed", cursor: 2, speed: -4},
		{name: "speed larger than dataset", cursor: 0, speed: 100, from: 0, to: 10, count: 10, complete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &models.StreamingSession{ID: "s", DeviceType: models.DeviceFish, Cursor: tt.cursor, TotalRows: 10}

			due, err := calc.Compute(s, tt.speed)
			require.NoError(t, err)

			assert.Equal(t, tt.count, due.Count)
			assert.Len(t, due.Rows, tt.count)
			assert.Equal(t, tt.complete, due.IsComplete)

			if tt.count > 0 {
				assert.Equal(t, tt.from, due.FromIndex)
				assert.Equal(t, tt.to, due.ToIndex)

				for i, row := range due.Rows {
					assert.Equal(t, tt.from+i, row.Index)
				}
			}
		})
	}
}

func TestCalculator_NilSession(t *testing.T) {
	due, err := NewCalculator(fakeRows{n: 1}).Compute(nil, 5)
	require.NoError(t, err)
	assert.Zero(t, due.Count)
}

func TestCalculator_MissingRow(t *testing.T) {
	// Snapshot says 10 rows but only 5 exist.
	s := &models.StreamingSession{ID: "s", DeviceType: models.DevicePlant, Cursor: 4, TotalRows: 10}

	_, err := NewCalculator(fakeRows{n: 5}).Compute(s, 3)
	require.ErrorIs(t, err, errNoRow)
}

func TestValidSpeed(t *testing.T) {
	assert.False(t, ValidSpeed(0))
	assert.True(t, ValidSpeed(1))
	assert.True(t, ValidSpeed(100))
	assert.False(t, ValidSpeed(101))
}

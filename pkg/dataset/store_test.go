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

package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const fishCSV = "\ufeffTimestamp,Water Temperature(°C),EC Values(uS/cm,TDS(mg/L),Turbidity(NTU),Water pH\n" +
	"2024-03-01 00:00,24.1,410,205,3.2,7.1\n" +
	"2024-03-01 05:00,24.3,not-a-number,207,3.1,7.0\n" +
	"2024-03-01 10:00,24.6,415,208,3.0\n" +
	"2024-03-01 15:00,24.9,418,209,2.9,6.9\n" +
	",25.0,420,210,2.8,6.9\n" +
	"2024-03-01 20:00,nan,420,210,2.8,6.9\n" +
	"2024-03-02 01:00,25.1,Inf,211,2.7,6.8\n" +
	"2024-03-02 06:00,25.2,421,212,2.7,-inf\n"

const plantCSV = "Timestamp, Height of the Plant(cm), Plant Temperature(°C), Humidity(RH), Pressure(Pa)\n" +
	"2024-03-01 00:00,10.5,22.0,61,101325\n" +
	"2024-03-01 05:00,10.7,22.4,60,101300\n"

func TestParse_SkipsMalformedLines(t *testing.T) {
	rows, stats, err := Parse(strings.NewReader(fishCSV), models.DeviceFish)
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 2, Skipped: 6}, stats)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "2024-03-01 00:00", rows[0].Timestamp)
	assert.InDelta(t, 24.1, rows[0].Fields["water_temperature"], 1e-9)
	assert.InDelta(t, 410, rows[0].Fields["ec_value"], 1e-9)
	assert.InDelta(t, 7.1, rows[0].Fields["water_ph"], 1e-9)

	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, "2024-03-01 15:00", rows[1].Timestamp)
}

func TestParse_PlantHeadersWithSpaces(t *testing.T) {
	rows, stats, err := Parse(strings.NewReader(plantCSV), models.DevicePlant)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rows)
	assert.InDelta(t, 10.7, rows[1].Fields["height"], 1e-9)
	assert.InDelta(t, 101300, rows[1].Fields["pressure"], 1e-9)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		archetype models.DeviceType
		want      error
	}{
		{"unknown archetype", plantCSV, models.DeviceType("shrimp"), ErrUnknownArchetype},
		{"no mapped columns", "Timestamp,Foo\n1,2\n", models.DeviceFish, ErrNoColumns},
		{"empty input", "", models.DeviceFish, ErrFailedToLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.input), tt.archetype)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	fish := filepath.Join(dir, "fish.csv")
	plant := filepath.Join(dir, "plant.csv")

	require.NoError(t, os.WriteFile(fish, []byte(fishCSV), 0o600))
	require.NoError(t, os.WriteFile(plant, []byte(plantCSV), 0o600))

	return NewStore(map[models.DeviceType]string{
		models.DeviceFish:  fish,
		models.DevicePlant: plant,
	})
}

func TestStore_RowLookup(t *testing.T) {
	s := newTestStore(t)

	n, err := s.RowCount(models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	row, err := s.RowAt(models.DeviceFish, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index)

	_, err = s.RowAt(models.DeviceFish, 2)
	require.ErrorIs(t, err, ErrRowNotFound)

	_, err = s.RowAt(models.DeviceFish, -1)
	require.ErrorIs(t, err, ErrRowNotFound)

	stats, err := s.Stats(models.DeviceFish)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Skipped)
}

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(map[models.DeviceType]string{models.DeviceFish: "/nonexistent/fish.csv"})

	_, err := s.Load(models.DeviceFish)
	require.ErrorIs(t, err, ErrFailedToLoad)

	_, err = s.RowCount(models.DevicePlant)
	require.ErrorIs(t, err, ErrUnknownArchetype)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rows, err := s.Load(models.DevicePlant)
			assert.NoError(t, err)
			assert.Len(t, rows, 2)
		}()
	}

	wg.Wait()
}

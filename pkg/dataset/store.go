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

// Package dataset loads the fixed historical sensor datasets that virtual
// devices replay. Datasets are parsed once and are read-only afterwards.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const (
	timestampColumn = "Timestamp"
	utf8BOM         = "\ufeff"
)

type columnMapping struct {
	header string
	field  string
}

// headerMappings maps CSV header prefixes to canonical field names. Some
// source headers are truncated (the EC column lacks its closing parenthesis),
// so matching is by prefix.
var headerMappings = map[models.DeviceType][]columnMapping{
	models.DeviceFish: {
		{"Water Temperature(°C)", "water_temperature"},
		{"EC Values(uS/cm", "ec_value"},
		{"TDS(mg/L)", "tds"},
		{"Turbidity(NTU)", "turbidity"},
		{"Water pH", "water_ph"},
	},
	models.DevicePlant: {
		{"Height of the Plant(cm)", "height"},
		{"Plant Temperature(°C)", "temperature"},
		{"Humidity(RH)", "humidity"},
		{"Pressure(Pa)", "pressure"},
	},
}

// Stats describes the outcome of parsing one dataset.
type Stats struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

type table struct {
	once  sync.Once
	rows  []models.DatasetRow
	stats Stats
	err   error
}

// Store serves rows of the per-archetype datasets. Each dataset is loaded
// lazily on first use and memoized.
type Store struct {
	paths  map[models.DeviceType]string
	tables map[models.DeviceType]*table
}

// NewStore creates a store over CSV files keyed by archetype.
func NewStore(paths map[models.DeviceType]string) *Store {
	s := &Store{
		paths:  make(map[models.DeviceType]string, len(paths)),
		tables: make(map[models.DeviceType]*table, len(paths)),
	}

	for t, p := range paths {
		s.paths[t] = p
		s.tables[t] = &table{}
	}

	return s
}

func (s *Store) table(archetype models.DeviceType) (*table, error) {
	t, ok := s.tables[archetype]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArchetype, archetype)
	}

	t.once.Do(func() {
		t.rows, t.stats, t.err = loadFile(s.paths[archetype], archetype)
		if t.err == nil {
			log.Printf("Loaded %s dataset: %d rows, %d malformed lines skipped",
				archetype, t.stats.Rows, t.stats.Skipped)
		}
	})

	return t, t.err
}

// Load returns the ordered rows of an archetype's dataset. The returned slice
// is shared and must not be modified.
func (s *Store) Load(archetype models.DeviceType) ([]models.DatasetRow, error) {
	t, err := s.table(archetype)
	if err != nil {
		return nil, err
	}

	return t.rows, nil
}

// RowCount returns the number of rows in an archetype's dataset.
func (s *Store) RowCount(archetype models.DeviceType) (int, error) {
	t, err := s.table(archetype)
	if err != nil {
		return 0, err
	}

	return len(t.rows), nil
}

// RowAt returns the row at index, or ErrRowNotFound.
func (s *Store) RowAt(archetype models.DeviceType, index int) (models.DatasetRow, error) {
	t, err := s.table(archetype)
	if err != nil {
		return models.DatasetRow{}, err
	}

	if index < 0 || index >= len(t.rows) {
		return models.DatasetRow{}, fmt.Errorf("%w: %s[%d]", ErrRowNotFound, archetype, index)
	}

	return t.rows[index], nil
}

// Stats returns parse statistics for an archetype, loading it if needed.
func (s *Store) Stats(archetype models.DeviceType) (Stats, error) {
	t, err := s.table(archetype)
	if err != nil {
		return Stats{}, err
	}

	return t.stats, nil
}

func loadFile(path string, archetype models.DeviceType) ([]models.DatasetRow, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %w", ErrFailedToLoad, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			log.Printf("failed to close dataset %s: %v", path, err)
		}
	}(f)

	return Parse(f, archetype)
}

// Parse reads a dataset from CSV. Malformed lines are counted and skipped.
func Parse(r io.Reader, archetype models.DeviceType) ([]models.DatasetRow, Stats, error) {
	mappings, ok := headerMappings[archetype]
	if !ok {
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrUnknownArchetype, archetype)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: header: %w", ErrFailedToLoad, err)
	}

	tsCol, fieldCols := resolveHeader(header, mappings)
	if tsCol < 0 || len(fieldCols) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: %s header %v", ErrNoColumns, archetype, header)
	}

	var (
		rows  []models.DatasetRow
		stats Stats
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Skipped++
			continue
		}

		if err != nil {
			return nil, Stats{}, fmt.Errorf("%w: %w", ErrFailedToLoad, err)
		}

		row, ok := parseRecord(record, len(header), tsCol, fieldCols)
		if !ok {
			stats.Skipped++
			continue
		}

		row.Index = len(rows)
		rows = append(rows, row)
	}

	stats.Rows = len(rows)

	return rows, stats, nil
}

func resolveHeader(header []string, mappings []columnMapping) (int, map[int]string) {
	tsCol := -1
	fieldCols := make(map[int]string)

	for i, raw := range header {
		clean := strings.TrimSpace(strings.TrimPrefix(raw, utf8BOM))

		if strings.HasPrefix(clean, timestampColumn) {
			tsCol = i
			continue
		}

		for _, m := range mappings {
			if strings.HasPrefix(clean, m.header) {
				fieldCols[i] = m.field
				break
			}
		}
	}

	return tsCol, fieldCols
}

func parseRecord(record []string, width, tsCol int, fieldCols map[int]string) (models.DatasetRow, bool) {
	if len(record) != width {
		return models.DatasetRow{}, false
	}

	ts := strings.TrimSpace(record[tsCol])
	if ts == "" {
		return models.DatasetRow{}, false
	}

	fields := make(map[string]float64, len(fieldCols))

	for col, name := range fieldCols {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.DatasetRow{}, false
		}

		fields[name] = v
	}

	return models.DatasetRow{Timestamp: ts, Fields: fields}, true
}

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// SaveCronRun stores the summary of an orchestrator run.
func (db *DB) SaveCronRun(ctx context.Context, run *models.CronRun) error {
	envIDs, err := json.Marshal(nonNil(run.EnvironmentIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal environment ids: %w", err)
	}

	sessionIDs, err := json.Marshal(nonNil(run.SessionIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal session ids: %w", err)
	}

	runErrors := run.Errors
	if runErrors == nil {
		runErrors = []models.RunError{}
	}

	errs, err := json.Marshal(runErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal run errors: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cron_runs
			(run_id, trigger_source, backend, environment_ids, session_ids,
			 readings_sent, errors, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.TriggerSource,
		run.Backend,
		string(envIDs),
		string(sessionIDs),
		run.ReadingsSent,
		string(errs),
		run.Status,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("%w cron run: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetCronRun returns a stored run summary.
func (db *DB) GetCronRun(ctx context.Context, runID string) (*models.CronRun, error) {
	var (
		run                      models.CronRun
		envIDs, sessionIDs, errs string
	)

	err := db.QueryRowContext(ctx, `
		SELECT run_id, trigger_source, backend, environment_ids, session_ids,
			readings_sent, errors, status, started_at, finished_at
		FROM cron_runs
		WHERE run_id = ?`, runID).Scan(
		&run.RunID,
		&run.TriggerSource,
		&run.Backend,
		&envIDs,
		&sessionIDs,
		&run.ReadingsSent,
		&errs,
		&run.Status,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w cron run: %w", ErrFailedToQuery, err)
	}

	if err := json.Unmarshal([]byte(envIDs), &run.EnvironmentIDs); err != nil {
		return nil, fmt.Errorf("%w cron run environments: %w", ErrFailedToScan, err)
	}

	if err := json.Unmarshal([]byte(sessionIDs), &run.SessionIDs); err != nil {
		return nil, fmt.Errorf("%w cron run sessions: %w", ErrFailedToScan, err)
	}

	if err := json.Unmarshal([]byte(errs), &run.Errors); err != nil {
		return nil, fmt.Errorf("%w cron run errors: %w", ErrFailedToScan, err)
	}

	return &run, nil
}

// AppendEvent adds an entry to a session's event log.
func (db *DB) AppendEvent(ctx context.Context, e *models.EventLogEntry) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO event_log (session_id, kind, message, row_index, count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Message, e.RowIndex, e.Count, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w event: %w", ErrFailedToInsert, err)
	}

	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}

	return nil
}

// ListEvents returns a session's most recent events, newest first.
func (db *DB) ListEvents(ctx context.Context, sessionID string, limit int) ([]models.EventLogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, kind, message, row_index, count, created_at
		FROM event_log
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w events: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var events []models.EventLogEntry

	for rows.Next() {
		var (
			e        models.EventLogEntry
			rowIndex sql.NullInt64
		)

		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Message, &rowIndex, &e.Count, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w event row: %w", ErrFailedToScan, err)
		}

		if rowIndex.Valid {
			idx := int(rowIndex.Int64)
			e.RowIndex = &idx
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const sessionColumns = `id, environment_id, device_type, status, last_row_sent, total_rows,
	consecutive_errors, last_error, created_at, last_advanced_at, lease_owner, lease_expires_at`

func scanSession(row scanner) (*models.StreamingSession, error) {
	var (
		s          models.StreamingSession
		advancedAt sql.NullTime
		leaseOwner sql.NullString
		leaseUntil sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.EnvironmentID,
		&s.DeviceType,
		&s.Status,
		&s.Cursor,
		&s.TotalRows,
		&s.ConsecutiveErrors,
		&s.LastError,
		&s.CreatedAt,
		&advancedAt,
		&leaseOwner,
		&leaseUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w session: %w", ErrFailedToScan, err)
	}

	if advancedAt.Valid {
		t := advancedAt.Time
		s.LastAdvancedAt = &t
	}

	if leaseOwner.Valid {
		s.LeaseOwner = leaseOwner.String
	}

	if leaseUntil.Valid {
		t := leaseUntil.Time
		s.LeaseExpiresAt = &t
	}

	return &s, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getSession(ctx context.Context, q queryRower, id string) (*models.StreamingSession, error) {
	return scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM streaming_sessions WHERE id = ?`, id))
}

func getLiveSession(
	ctx context.Context, q queryRower, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error) {
	return scanSession(q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM streaming_sessions
		WHERE environment_id = ? AND device_type = ? AND status IN ('active', 'paused')`,
		environmentID, deviceType))
}

// GetSession returns a session by id.
func (db *DB) GetSession(ctx context.Context, id string) (*models.StreamingSession, error) {
	return getSession(ctx, db, id)
}

// GetLiveSession returns the active or paused session for the pair, or ErrNotFound.
func (db *DB) GetLiveSession(
	ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error) {
	return getLiveSession(ctx, db, environmentID, deviceType)
}

// LatestSession returns the most recently created session for the pair in any status.
func (db *DB) LatestSession(
	ctx context.Context, environmentID string, deviceType models.DeviceType) (*models.StreamingSession, error) {
	return scanSession(db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM streaming_sessions
		WHERE environment_id = ? AND device_type = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		environmentID, deviceType))
}

// ListSessions returns the latest session of each device type of an environment.
func (db *DB) ListSessions(ctx context.Context, environmentID string) ([]models.StreamingSession, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM streaming_sessions s
		WHERE environment_id = ?
		AND rowid = (
			SELECT rowid FROM streaming_sessions
			WHERE environment_id = s.environment_id AND device_type = s.device_type
			ORDER BY created_at DESC, rowid DESC
			LIMIT 1
		)
		ORDER BY device_type`, environmentID)
	if err != nil {
		return nil, fmt.Errorf("%w sessions: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var sessions []models.StreamingSession

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}

		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

func insertSession(ctx context.Context, tx *sql.Tx, s *models.StreamingSession) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO streaming_sessions
			(id, environment_id, device_type, status, last_row_sent, total_rows,
			 consecutive_errors, last_error, created_at, last_advanced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.EnvironmentID,
		s.DeviceType,
		s.Status,
		s.Cursor,
		s.TotalRows,
		s.ConsecutiveErrors,
		s.LastError,
		s.CreatedAt,
		s.LastAdvancedAt,
	)
	if isUniqueViolation(err) {
		return ErrSessionExists
	}

	if err != nil {
		return fmt.Errorf("%w session: %w", ErrFailedToInsert, err)
	}

	return nil
}

// CreateSession inserts a session. A live session for the same pair yields
// ErrSessionExists.
func (db *DB) CreateSession(ctx context.Context, s *models.StreamingSession) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertSession(ctx, tx, s)
	})
}

// ReplaceLiveSession closes the live session of next's pair, if any, as failed
// with closeReason and inserts next, atomically. It returns the closed session.
func (db *DB) ReplaceLiveSession(
	ctx context.Context, next *models.StreamingSession, closeReason string) (*models.StreamingSession, error) {
	var closed *models.StreamingSession

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := getLiveSession(ctx, tx, next.EnvironmentID, next.DeviceType)

		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE streaming_sessions
				SET status = ?, last_error = ?, lease_owner = NULL, lease_expires_at = NULL
				WHERE id = ?`,
				models.SessionFailed, closeReason, prev.ID); err != nil {
				return fmt.Errorf("%w session: %w", ErrFailedToUpdate, err)
			}

			prev.Status = models.SessionFailed
			prev.LastError = closeReason
			closed = prev
		}

		return insertSession(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

// AdvanceSession moves the cursor from expected to next. The update only
// applies while the session is active and still at expected; otherwise it
// returns ErrStaleCursor. Reaching total_rows completes the session.
func (db *DB) AdvanceSession(
	ctx context.Context, id string, expected, next int, resetErrors bool, at time.Time) (*models.StreamingSession, error) {
	if next <= expected {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidCursor, expected, next)
	}

	var updated *models.StreamingSession

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE streaming_sessions
			SET last_row_sent = ?,
				last_advanced_at = ?,
				consecutive_errors = CASE WHEN ? THEN 0 ELSE consecutive_errors END,
				status = CASE WHEN ? >= total_rows THEN 'completed' ELSE status END
			WHERE id = ? AND last_row_sent = ? AND status = 'active' AND ? <= total_rows`,
			next, at, resetErrors, next, id, expected, next)
		if err != nil {
			return fmt.Errorf("%w session cursor: %w", ErrFailedToUpdate, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w session cursor: %w", ErrFailedToUpdate, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: session %s expected %d", ErrStaleCursor, id, expected)
		}

		updated, err = getSession(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// IncrementSessionErrors records a failure on an active session and marks it
// failed once the consecutive count reaches threshold.
func (db *DB) IncrementSessionErrors(
	ctx context.Context, id, message string, threshold int) (*models.StreamingSession, error) {
	var updated *models.StreamingSession

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE streaming_sessions
			SET consecutive_errors = consecutive_errors + 1,
				last_error = ?,
				status = CASE WHEN consecutive_errors + 1 >= ? THEN 'failed' ELSE status END
			WHERE id = ? AND status = 'active'`,
			message, threshold, id)
		if err != nil {
			return fmt.Errorf("%w session errors: %w", ErrFailedToUpdate, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w session errors: %w", ErrFailedToUpdate, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: session %s is not active", ErrStaleStatus, id)
		}

		updated, err = getSession(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// TransitionSession changes status from one value to another, failing with
// ErrStaleStatus if the session is no longer in from.
func (db *DB) TransitionSession(
	ctx context.Context, id string, from, to models.SessionStatus) (*models.StreamingSession, error) {
	var updated *models.StreamingSession

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE streaming_sessions SET status = ? WHERE id = ? AND status = ?`, to, id, from)
		if err != nil {
			return fmt.Errorf("%w session status: %w", ErrFailedToUpdate, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w session status: %w", ErrFailedToUpdate, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: session %s is not %s", ErrStaleStatus, id, from)
		}

		updated, err = getSession(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// AcquireLease claims an active session for owner until now+ttl. An expired
// lease can be taken over. It returns the session as of the claim, or
// ErrStaleStatus if the session is leased elsewhere or not active.
func (db *DB) AcquireLease(
	ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (*models.StreamingSession, error) {
	var leased *models.StreamingSession

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE streaming_sessions
			SET lease_owner = ?, lease_expires_at = ?
			WHERE id = ? AND status = 'active'
			AND (lease_owner IS NULL OR lease_owner = ? OR lease_expires_at IS NULL OR lease_expires_at < ?)`,
			owner, now.Add(ttl), id, owner, now)
		if err != nil {
			return fmt.Errorf("%w session lease: %w", ErrFailedToUpdate, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w session lease: %w", ErrFailedToUpdate, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: session %s is leased or not active", ErrStaleStatus, id)
		}

		leased, err = getSession(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return leased, nil
}

// ReleaseLease drops owner's lease. Releasing a lease held by someone else is a no-op.
func (db *DB) ReleaseLease(ctx context.Context, id, owner string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE streaming_sessions
		SET lease_owner = NULL, lease_expires_at = NULL
		WHERE id = ? AND lease_owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("%w session lease: %w", ErrFailedToUpdate, err)
	}

	return nil
}

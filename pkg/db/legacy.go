package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const legacyColumns = `user_id, fish_device_id, plant_device_id, fish_row, plant_row,
	enabled, migrated_environment_id, updated_at`

func scanLegacyConfig(row scanner) (*models.LegacyConfig, error) {
	var (
		c        models.LegacyConfig
		migrated sql.NullString
	)

	err := row.Scan(
		&c.UserID,
		&c.FishDeviceID,
		&c.PlantDeviceID,
		&c.FishRow,
		&c.PlantRow,
		&c.Enabled,
		&migrated,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w legacy config: %w", ErrFailedToScan, err)
	}

	c.MigratedEnvironmentID = migrated.String

	return &c, nil
}

func (db *DB) queryLegacyConfigs(ctx context.Context, query string) ([]models.LegacyConfig, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w legacy configs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var configs []models.LegacyConfig

	for rows.Next() {
		c, err := scanLegacyConfig(rows)
		if err != nil {
			return nil, err
		}

		configs = append(configs, *c)
	}

	return configs, rows.Err()
}

// GetLegacyConfig returns a user's legacy configuration.
func (db *DB) GetLegacyConfig(ctx context.Context, userID string) (*models.LegacyConfig, error) {
	return scanLegacyConfig(db.QueryRowContext(ctx,
		`SELECT `+legacyColumns+` FROM legacy_configs WHERE user_id = ?`, userID))
}

// ListLegacyConfigs returns every legacy configuration.
func (db *DB) ListLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error) {
	return db.queryLegacyConfigs(ctx,
		`SELECT `+legacyColumns+` FROM legacy_configs ORDER BY user_id`)
}

// ListActiveLegacyConfigs returns enabled configurations not yet migrated.
func (db *DB) ListActiveLegacyConfigs(ctx context.Context) ([]models.LegacyConfig, error) {
	return db.queryLegacyConfigs(ctx, `
		SELECT `+legacyColumns+`
		FROM legacy_configs
		WHERE enabled = 1 AND migrated_environment_id IS NULL
		ORDER BY user_id`)
}

// UpsertLegacyConfig inserts or replaces a legacy configuration.
func (db *DB) UpsertLegacyConfig(ctx context.Context, c *models.LegacyConfig) error {
	var migrated sql.NullString
	if c.MigratedEnvironmentID != "" {
		migrated = sql.NullString{String: c.MigratedEnvironmentID, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO legacy_configs (`+legacyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			fish_device_id = excluded.fish_device_id,
			plant_device_id = excluded.plant_device_id,
			fish_row = excluded.fish_row,
			plant_row = excluded.plant_row,
			enabled = excluded.enabled,
			migrated_environment_id = excluded.migrated_environment_id,
			updated_at = excluded.updated_at`,
		c.UserID,
		c.FishDeviceID,
		c.PlantDeviceID,
		c.FishRow,
		c.PlantRow,
		c.Enabled,
		migrated,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w legacy config: %w", ErrFailedToInsert, err)
	}

	return nil
}

// CommitMigration applies a migration plan atomically. The legacy row is
// claimed with a conditional update, so when another migration already
// happened the plan is discarded and the existing environment id is returned
// with created=false. created is also false when the plan adopts an existing
// environment.
func (db *DB) CommitMigration(ctx context.Context, plan *MigrationPlan) (string, bool, error) {
	var (
		envID   string
		created bool
	)

	targetID := plan.ExistingEnvironmentID
	if targetID == "" {
		if plan.Environment == nil {
			return "", false, fmt.Errorf("%w: migration plan has no environment", ErrDatabaseError)
		}

		targetID = plan.Environment.ID
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx, `
			UPDATE legacy_configs
			SET enabled = 0, migrated_environment_id = ?, updated_at = ?
			WHERE user_id = ? AND migrated_environment_id IS NULL`,
			targetID, now, plan.UserID)
		if err != nil {
			return fmt.Errorf("%w legacy config: %w", ErrFailedToUpdate, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w legacy config: %w", ErrFailedToUpdate, err)
		}

		if n == 0 {
			existing, err := scanLegacyConfig(tx.QueryRowContext(ctx,
				`SELECT `+legacyColumns+` FROM legacy_configs WHERE user_id = ?`, plan.UserID))
			if err != nil {
				return err
			}

			envID = existing.MigratedEnvironmentID

			return nil
		}

		if plan.ExistingEnvironmentID == "" {
			if err := insertEnvironment(ctx, tx, plan.Environment); err != nil {
				return err
			}
		}

		if plan.LegacyScope != "" {
			if _, err := tx.ExecContext(ctx, `
				UPDATE streaming_sessions
				SET status = 'paused', lease_owner = NULL, lease_expires_at = NULL
				WHERE environment_id = ? AND status = 'active'`, plan.LegacyScope); err != nil {
				return fmt.Errorf("%w legacy sessions: %w", ErrFailedToUpdate, err)
			}
		}

		if plan.ExistingEnvironmentID == "" {
			for _, s := range plan.Sessions {
				if err := insertSession(ctx, tx, s); err != nil {
					return err
				}
			}

			created = true
		}

		envID = targetID

		return nil
	})
	if err != nil {
		return "", false, err
	}

	return envID, created, nil
}

// GetSetting returns a global setting, or ErrNotFound.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string

	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("%w setting: %w", ErrFailedToQuery, err)
	}

	return value, nil
}

// PutSetting stores a global setting.
func (db *DB) PutSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w setting: %w", ErrFailedToInsert, err)
	}

	return nil
}

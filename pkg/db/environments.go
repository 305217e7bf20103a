package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const environmentColumns = `id, user_id, name, fish_device_id, plant_device_id,
	speed_multiplier, enabled, created_at, updated_at`

func scanEnvironment(row scanner) (*models.Environment, error) {
	var env models.Environment

	err := row.Scan(
		&env.ID,
		&env.UserID,
		&env.Name,
		&env.FishDeviceID,
		&env.PlantDeviceID,
		&env.SpeedMultiplier,
		&env.Enabled,
		&env.CreatedAt,
		&env.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w environment: %w", ErrFailedToScan, err)
	}

	return &env, nil
}

func (db *DB) queryEnvironments(ctx context.Context, query string, args ...interface{}) ([]models.Environment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w environments: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var envs []models.Environment

	for rows.Next() {
		env, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}

		envs = append(envs, *env)
	}

	return envs, rows.Err()
}

// GetEnvironment returns an environment by id.
func (db *DB) GetEnvironment(ctx context.Context, id string) (*models.Environment, error) {
	return scanEnvironment(db.QueryRowContext(ctx,
		`SELECT `+environmentColumns+` FROM environments WHERE id = ?`, id))
}

// ListEnabledEnvironments returns every enabled environment, oldest first.
func (db *DB) ListEnabledEnvironments(ctx context.Context) ([]models.Environment, error) {
	return db.queryEnvironments(ctx, `
		SELECT `+environmentColumns+`
		FROM environments
		WHERE enabled = 1
		ORDER BY created_at, id`)
}

// ListUserEnvironments returns a user's environments, oldest first.
func (db *DB) ListUserEnvironments(ctx context.Context, userID string) ([]models.Environment, error) {
	return db.queryEnvironments(ctx, `
		SELECT `+environmentColumns+`
		FROM environments
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
}

func insertEnvironment(ctx context.Context, x execer, env *models.Environment) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO environments (`+environmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.ID,
		env.UserID,
		env.Name,
		env.FishDeviceID,
		env.PlantDeviceID,
		env.SpeedMultiplier,
		env.Enabled,
		env.CreatedAt,
		env.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w environment: %w", ErrFailedToInsert, err)
	}

	return nil
}

// CreateEnvironment inserts an environment.
func (db *DB) CreateEnvironment(ctx context.Context, env *models.Environment) error {
	return insertEnvironment(ctx, db, env)
}

// CountEnvironments returns the number of environments.
func (db *DB) CountEnvironments(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM environments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w environments: %w", ErrFailedToQuery, err)
	}

	return n, nil
}

// GetDevice returns a device by id.
func (db *DB) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device

	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, name, device_type, mac_address, api_key
		FROM devices
		WHERE id = ?`, id).Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.DeviceType,
		&d.MacAddress,
		&d.APIKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w device: %w", ErrFailedToQuery, err)
	}

	return &d, nil
}

// UpsertDevice inserts or replaces a device record.
func (db *DB) UpsertDevice(ctx context.Context, d *models.Device) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO devices (id, user_id, name, device_type, mac_address, api_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			device_type = excluded.device_type,
			mac_address = excluded.mac_address,
			api_key = excluded.api_key`,
		d.ID, d.UserID, d.Name, d.DeviceType, d.MacAddress, d.APIKey)
	if err != nil {
		return fmt.Errorf("%w device: %w", ErrFailedToInsert, err)
	}

	return nil
}

/*
 * Copyright 2026 Relayops, Inc.
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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/relayops/fleetdeck/pkg/models"
)

const thresholdColumns = `id, check_type, field_path, operator, value, severity,
	consecutive_required, enabled, created_at, updated_at`

func scanThreshold(row pgx.Row) (*models.AlertThreshold, error) {
	var t models.AlertThreshold

	err := row.Scan(&t.ID, &t.CheckType, &t.FieldPath, &t.Operator, &t.Value,
		&t.Severity, &t.ConsecutiveRequired, &t.Enabled, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (d *DB) queryThresholds(ctx context.Context, query string, args ...any) ([]models.AlertThreshold, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []models.AlertThreshold

	for rows.Next() {
		t, err := scanThreshold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}

		thresholds = append(thresholds, *t)
	}

	return thresholds, rows.Err()
}

// ListEnabledThresholds returns the enabled thresholds for one check type.
func (d *DB) ListEnabledThresholds(ctx context.Context, checkType string) ([]models.AlertThreshold, error) {
	return d.queryThresholds(ctx, `
        SELECT `+thresholdColumns+`
        FROM alert_thresholds
        WHERE check_type = $1 AND enabled
        ORDER BY id`, checkType)
}

// ListThresholds returns every threshold, enabled or not.
func (d *DB) ListThresholds(ctx context.Context) ([]models.AlertThreshold, error) {
	return d.queryThresholds(ctx, `
        SELECT `+thresholdColumns+`
        FROM alert_thresholds
        ORDER BY id`)
}

// SaveThreshold inserts or updates a threshold and returns its ID.
func (d *DB) SaveThreshold(ctx context.Context, threshold *models.AlertThreshold) (int64, error) {
	if threshold.ID == 0 {
		row := d.pool.QueryRow(ctx, `
            INSERT INTO alert_thresholds
                (check_type, field_path, operator, value, severity, consecutive_required, enabled)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id`,
			threshold.CheckType, threshold.FieldPath, threshold.Operator, threshold.Value,
			threshold.Severity, threshold.ConsecutiveRequired, threshold.Enabled)

		if err := row.Scan(&threshold.ID); err != nil {
			return 0, fmt.Errorf("insert threshold: %w", err)
		}

		return threshold.ID, nil
	}

	_, err := d.pool.Exec(ctx, `
        UPDATE alert_thresholds
        SET check_type = $2, field_path = $3, operator = $4, value = $5,
            severity = $6, consecutive_required = $7, enabled = $8, updated_at = now()
        WHERE id = $1`,
		threshold.ID, threshold.CheckType, threshold.FieldPath, threshold.Operator,
		threshold.Value, threshold.Severity, threshold.ConsecutiveRequired, threshold.Enabled)
	if err != nil {
		return 0, fmt.Errorf("update threshold: %w", err)
	}

	return threshold.ID, nil
}

// DeleteThreshold removes a threshold; bound policies cascade.
func (d *DB) DeleteThreshold(ctx context.Context, id int64) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM alert_thresholds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete threshold: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

const alertColumns = `id, device_id, threshold_id, severity, status, message,
	triggered_at, acknowledged_at, resolved_at`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert

	err := row.Scan(&a.ID, &a.DeviceID, &a.ThresholdID, &a.Severity, &a.Status,
		&a.Message, &a.TriggeredAt, &a.AcknowledgedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// GetOpenAlert returns the active or acknowledged alert for a
// (device, threshold) pair, or ErrNotFound. A nil thresholdID selects the
// synthetic uptime alert for the device.
func (d *DB) GetOpenAlert(ctx context.Context, deviceID string, thresholdID *int64) (*models.Alert, error) {
	var row pgx.Row

	if thresholdID == nil {
		row = d.pool.QueryRow(ctx, `
            SELECT `+alertColumns+`
            FROM alerts
            WHERE device_id = $1 AND threshold_id IS NULL
              AND status IN ('active', 'acknowledged')
            LIMIT 1`, deviceID)
	} else {
		row = d.pool.QueryRow(ctx, `
            SELECT `+alertColumns+`
            FROM alerts
            WHERE device_id = $1 AND threshold_id = $2
              AND status IN ('active', 'acknowledged')
            LIMIT 1`, deviceID, *thresholdID)
	}

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get open alert: %w", err)
	}

	return alert, nil
}

// CreateAlert inserts a new alert row and returns its ID.
func (d *DB) CreateAlert(ctx context.Context, alert *models.Alert) (int64, error) {
	row := d.pool.QueryRow(ctx, `
        INSERT INTO alerts (device_id, threshold_id, severity, status, message, triggered_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		alert.DeviceID, alert.ThresholdID, alert.Severity, alert.Status,
		alert.Message, alert.TriggeredAt.UTC())

	if err := row.Scan(&alert.ID); err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}

	return alert.ID, nil
}

// GetAlert fetches one alert by ID.
func (d *DB) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	alert, err := scanAlert(d.pool.QueryRow(ctx, `
        SELECT `+alertColumns+`
        FROM alerts
        WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get alert: %w", err)
	}

	return alert, nil
}

// UpdateAlertStatus transitions an alert, stamping the matching timestamp
// column for acknowledged and resolved.
func (d *DB) UpdateAlertStatus(ctx context.Context, id int64, status models.AlertStatus, at time.Time) error {
	var column string

	switch status {
	case models.AlertStatusAcknowledged:
		column = "acknowledged_at"
	case models.AlertStatusResolved:
		column = "resolved_at"
	default:
		return fmt.Errorf("%w: cannot transition alert to %q", ErrDatabaseError, status)
	}

	tag, err := d.pool.Exec(ctx, `
        UPDATE alerts
        SET status = $2, `+column+` = $3
        WHERE id = $1`, id, status, at.UTC())
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListOpenAlerts returns active and acknowledged alerts for a device.
func (d *DB) ListOpenAlerts(ctx context.Context, deviceID string) ([]models.Alert, error) {
	rows, err := d.pool.Query(ctx, `
        SELECT `+alertColumns+`
        FROM alerts
        WHERE device_id = $1 AND status IN ('active', 'acknowledged')
        ORDER BY triggered_at DESC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert

	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		alerts = append(alerts, *a)
	}

	return alerts, rows.Err()
}

// GetPolicyByThreshold returns the remediation policy bound to a threshold,
// or ErrNotFound when none is configured.
func (d *DB) GetPolicyByThreshold(ctx context.Context, thresholdID int64) (*models.AutoRemediationPolicy, error) {
	row := d.pool.QueryRow(ctx, `
        SELECT id, threshold_id, action_id, action_param, cooldown_seconds,
               require_consent, enabled, last_triggered_at
        FROM remediation_policies
        WHERE threshold_id = $1`, thresholdID)

	var (
		p           models.AutoRemediationPolicy
		cooldownSec int64
	)

	err := row.Scan(&p.ID, &p.ThresholdID, &p.ActionID, &p.ActionParam,
		&cooldownSec, &p.RequireConsent, &p.Enabled, &p.LastTriggeredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get policy: %w", err)
	}

	p.Cooldown = time.Duration(cooldownSec) * time.Second

	return &p, nil
}

// SavePolicy upserts the policy bound to a threshold.
func (d *DB) SavePolicy(ctx context.Context, policy *models.AutoRemediationPolicy) (int64, error) {
	row := d.pool.QueryRow(ctx, `
        INSERT INTO remediation_policies
            (threshold_id, action_id, action_param, cooldown_seconds, require_consent, enabled)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (threshold_id) DO UPDATE
        SET action_id = EXCLUDED.action_id, action_param = EXCLUDED.action_param,
            cooldown_seconds = EXCLUDED.cooldown_seconds,
            require_consent = EXCLUDED.require_consent, enabled = EXCLUDED.enabled
        RETURNING id`,
		policy.ThresholdID, policy.ActionID, policy.ActionParam,
		int64(policy.Cooldown/time.Second), policy.RequireConsent, policy.Enabled)

	if err := row.Scan(&policy.ID); err != nil {
		return 0, fmt.Errorf("save policy: %w", err)
	}

	return policy.ID, nil
}

// MarkPolicyTriggered stamps last_triggered_at; the cooldown gate depends
// on this being called for every firing.
func (d *DB) MarkPolicyTriggered(ctx context.Context, policyID int64, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
        UPDATE remediation_policies
        SET last_triggered_at = $2
        WHERE id = $1`, policyID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark policy triggered: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

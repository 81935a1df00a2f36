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

const deploymentColumns = `id, name, type, script, installer_url, installer_args,
	timeout_sec, elevated, target_ids, scheduled_at, status, created_by,
	created_at, completed_at`

func scanDeployment(row pgx.Row) (*models.Deployment, error) {
	var dep models.Deployment

	err := row.Scan(&dep.ID, &dep.Name, &dep.Type, &dep.Script, &dep.InstallerURL,
		&dep.InstallerArgs, &dep.TimeoutSec, &dep.Elevated, &dep.TargetIDs,
		&dep.ScheduledAt, &dep.Status, &dep.CreatedBy, &dep.CreatedAt, &dep.CompletedAt)
	if err != nil {
		return nil, err
	}

	return &dep, nil
}

// CreateDeployment inserts the deployment row and returns its ID. Result
// rows are created separately via CreateDeploymentResults.
func (d *DB) CreateDeployment(ctx context.Context, deployment *models.Deployment) (int64, error) {
	row := d.pool.QueryRow(ctx, `
        INSERT INTO deployments
            (name, type, script, installer_url, installer_args, timeout_sec,
             elevated, target_ids, scheduled_at, status, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at`,
		deployment.Name, deployment.Type, deployment.Script, deployment.InstallerURL,
		deployment.InstallerArgs, deployment.TimeoutSec, deployment.Elevated,
		deployment.TargetIDs, deployment.ScheduledAt, deployment.Status, deployment.CreatedBy)

	if err := row.Scan(&deployment.ID, &deployment.CreatedAt); err != nil {
		return 0, fmt.Errorf("insert deployment: %w", err)
	}

	return deployment.ID, nil
}

// GetDeployment fetches one deployment by ID.
func (d *DB) GetDeployment(ctx context.Context, id int64) (*models.Deployment, error) {
	dep, err := scanDeployment(d.pool.QueryRow(ctx, `
        SELECT `+deploymentColumns+`
        FROM deployments
        WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get deployment: %w", err)
	}

	return dep, nil
}

// UpdateDeploymentStatus transitions a deployment, optionally stamping
// completed_at.
func (d *DB) UpdateDeploymentStatus(
	ctx context.Context, id int64, status models.DeploymentStatus, completedAt *time.Time) error {
	tag, err := d.pool.Exec(ctx, `
        UPDATE deployments
        SET status = $2, completed_at = COALESCE($3, completed_at)
        WHERE id = $1`, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("update deployment status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (d *DB) queryDeployments(ctx context.Context, query string, args ...any) ([]models.Deployment, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var deployments []models.Deployment

	for rows.Next() {
		dep, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}

		deployments = append(deployments, *dep)
	}

	return deployments, rows.Err()
}

// ListDueDeployments returns pending deployments whose scheduled time has
// arrived (or that have no schedule at all).
func (d *DB) ListDueDeployments(ctx context.Context, now time.Time) ([]models.Deployment, error) {
	return d.queryDeployments(ctx, `
        SELECT `+deploymentColumns+`
        FROM deployments
        WHERE status = 'pending'
          AND (scheduled_at IS NULL OR scheduled_at <= $1)
        ORDER BY id`, now.UTC())
}

// ListExpiredDeployments returns running deployments older than the cutoff.
func (d *DB) ListExpiredDeployments(ctx context.Context, cutoff time.Time) ([]models.Deployment, error) {
	return d.queryDeployments(ctx, `
        SELECT `+deploymentColumns+`
        FROM deployments
        WHERE status = 'running' AND created_at < $1
        ORDER BY id`, cutoff.UTC())
}

// CreateDeploymentResults inserts one pending result row per target.
func (d *DB) CreateDeploymentResults(ctx context.Context, deploymentID int64, deviceIDs []string) error {
	batch := &pgx.Batch{}

	for _, deviceID := range deviceIDs {
		batch.Queue(`
            INSERT INTO deployment_results (deployment_id, device_id, status)
            VALUES ($1, $2, 'pending')
            ON CONFLICT (deployment_id, device_id) DO NOTHING`,
			deploymentID, deviceID)
	}

	results := d.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range deviceIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert deployment result: %w", err)
		}
	}

	return nil
}

const resultColumns = `deployment_id, device_id, status, exit_code, output,
	duration_ms, timed_out, started_at, completed_at`

func scanResult(row pgx.Row) (*models.DeploymentResult, error) {
	var r models.DeploymentResult

	err := row.Scan(&r.DeploymentID, &r.DeviceID, &r.Status, &r.ExitCode, &r.Output,
		&r.DurationMS, &r.TimedOut, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func (d *DB) queryResults(ctx context.Context, query string, args ...any) ([]models.DeploymentResult, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deployment results: %w", err)
	}
	defer rows.Close()

	var results []models.DeploymentResult

	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment result: %w", err)
		}

		results = append(results, *r)
	}

	return results, rows.Err()
}

// ListPendingResults returns the still-pending result rows of a deployment.
func (d *DB) ListPendingResults(ctx context.Context, deploymentID int64) ([]models.DeploymentResult, error) {
	return d.queryResults(ctx, `
        SELECT `+resultColumns+`
        FROM deployment_results
        WHERE deployment_id = $1 AND status = 'pending'
        ORDER BY device_id`, deploymentID)
}

// ListPendingResultsForDevice returns pending results for a device whose
// parent deployment is still dispatchable. Used for reconnect dispatch.
func (d *DB) ListPendingResultsForDevice(ctx context.Context, deviceID string) ([]models.DeploymentResult, error) {
	return d.queryResults(ctx, `
        SELECT r.deployment_id, r.device_id, r.status, r.exit_code, r.output,
               r.duration_ms, r.timed_out, r.started_at, r.completed_at
        FROM deployment_results r
        JOIN deployments dep ON dep.id = r.deployment_id
        WHERE r.device_id = $1 AND r.status = 'pending'
          AND dep.status IN ('pending', 'running')
        ORDER BY r.deployment_id`, deviceID)
}

// GetDeploymentResult fetches one (deployment, device) result row.
func (d *DB) GetDeploymentResult(ctx context.Context, deploymentID int64, deviceID string) (*models.DeploymentResult, error) {
	r, err := scanResult(d.pool.QueryRow(ctx, `
        SELECT `+resultColumns+`
        FROM deployment_results
        WHERE deployment_id = $1 AND device_id = $2`, deploymentID, deviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get deployment result: %w", err)
	}

	return r, nil
}

// MarkResultRunning flips a result to running and stamps started_at. Only a
// pending row may transition, which makes repeated dispatch idempotent.
func (d *DB) MarkResultRunning(ctx context.Context, deploymentID int64, deviceID string, startedAt time.Time) error {
	tag, err := d.pool.Exec(ctx, `
        UPDATE deployment_results
        SET status = 'running', started_at = $3
        WHERE deployment_id = $1 AND device_id = $2 AND status = 'pending'`,
		deploymentID, deviceID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark result running: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RecordResultOutcome writes the agent-reported outcome onto a result row.
// Terminal rows are left untouched so a late result cannot reopen an
// expired or cancelled deployment.
func (d *DB) RecordResultOutcome(
	ctx context.Context, deploymentID int64, deviceID string, outcome *models.ResultOutcome) error {
	status := models.ResultFailed
	if outcome.Success {
		status = models.ResultSuccess
	}

	tag, err := d.pool.Exec(ctx, `
        UPDATE deployment_results
        SET status = $3, exit_code = $4, output = $5, duration_ms = $6,
            timed_out = $7, completed_at = now()
        WHERE deployment_id = $1 AND device_id = $2
          AND status IN ('pending', 'uploading', 'running')`,
		deploymentID, deviceID, status, outcome.ExitCode, outcome.Output,
		outcome.DurationMS, outcome.TimedOut)
	if err != nil {
		return fmt.Errorf("record result outcome: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SkipOpenResults forces non-terminal results of a deployment to skipped.
// Cancellation leaves running rows alone; the expiry sweep includes them.
func (d *DB) SkipOpenResults(ctx context.Context, deploymentID int64, includeRunning bool) error {
	states := []string{string(models.ResultPending), string(models.ResultUploading)}
	if includeRunning {
		states = append(states, string(models.ResultRunning))
	}

	_, err := d.pool.Exec(ctx, `
        UPDATE deployment_results
        SET status = 'skipped', completed_at = now()
        WHERE deployment_id = $1 AND status = ANY($2)`, deploymentID, states)
	if err != nil {
		return fmt.Errorf("skip open results: %w", err)
	}

	return nil
}

// CountOpenResults counts result rows not yet in a terminal state.
func (d *DB) CountOpenResults(ctx context.Context, deploymentID int64) (int, error) {
	row := d.pool.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM deployment_results
        WHERE deployment_id = $1
          AND status IN ('pending', 'uploading', 'running')`, deploymentID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count open results: %w", err)
	}

	return count, nil
}

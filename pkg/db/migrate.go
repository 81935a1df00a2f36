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
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS alert_thresholds (
		id BIGSERIAL PRIMARY KEY,
		check_type TEXT NOT NULL,
		field_path TEXT NOT NULL,
		operator TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		severity TEXT NOT NULL,
		consecutive_required INT NOT NULL DEFAULT 1,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_thresholds_check_type
		ON alert_thresholds (check_type) WHERE enabled`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		threshold_id BIGINT REFERENCES alert_thresholds (id) ON DELETE SET NULL,
		severity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		message TEXT NOT NULL DEFAULT '',
		triggered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		acknowledged_at TIMESTAMPTZ,
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_open
		ON alerts (device_id, threshold_id) WHERE status IN ('active', 'acknowledged')`,
	`CREATE TABLE IF NOT EXISTS remediation_policies (
		id BIGSERIAL PRIMARY KEY,
		threshold_id BIGINT NOT NULL UNIQUE REFERENCES alert_thresholds (id) ON DELETE CASCADE,
		action_id TEXT NOT NULL,
		action_param TEXT NOT NULL DEFAULT '',
		cooldown_seconds BIGINT NOT NULL DEFAULT 0,
		require_consent BOOLEAN NOT NULL DEFAULT TRUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		last_triggered_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS deployments (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		script TEXT NOT NULL DEFAULT '',
		installer_url TEXT NOT NULL DEFAULT '',
		installer_args TEXT NOT NULL DEFAULT '',
		timeout_sec INT NOT NULL DEFAULT 600,
		elevated BOOLEAN NOT NULL DEFAULT FALSE,
		target_ids TEXT[] NOT NULL,
		scheduled_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'pending',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS deployment_results (
		deployment_id BIGINT NOT NULL REFERENCES deployments (id) ON DELETE CASCADE,
		device_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		exit_code INT,
		output TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		timed_out BOOLEAN NOT NULL DEFAULT FALSE,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		PRIMARY KEY (deployment_id, device_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_pending_device
		ON deployment_results (device_id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS script_templates (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		script TEXT NOT NULL,
		elevated BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return nil
}

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
)

// GetDeviceTenant resolves the owning tenant for a device.
func (d *DB) GetDeviceTenant(ctx context.Context, deviceID string) (string, error) {
	row := d.pool.QueryRow(ctx, `
        SELECT tenant_id
        FROM devices
        WHERE device_id = $1`, deviceID)

	var tenantID string
	if err := row.Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("get device tenant: %w", err)
	}

	return tenantID, nil
}

// UpdateDeviceStatus upserts the device's liveness row.
func (d *DB) UpdateDeviceStatus(ctx context.Context, deviceID string, online bool, lastSeen time.Time) error {
	_, err := d.pool.Exec(ctx, `
        INSERT INTO devices (device_id, tenant_id, online, last_seen)
        VALUES ($1, '', $2, $3)
        ON CONFLICT (device_id) DO UPDATE
        SET online = EXCLUDED.online, last_seen = EXCLUDED.last_seen`,
		deviceID, online, lastSeen.UTC())
	if err != nil {
		return fmt.Errorf("update device status: %w", err)
	}

	return nil
}

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

	"github.com/relayops/fleetdeck/pkg/models"
)

// ListTemplates returns all script templates.
func (d *DB) ListTemplates(ctx context.Context) ([]models.ScriptTemplate, error) {
	rows, err := d.pool.Query(ctx, `
        SELECT id, name, script, elevated, updated_at
        FROM script_templates
        ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.ScriptTemplate

	for rows.Next() {
		var t models.ScriptTemplate

		if err := rows.Scan(&t.ID, &t.Name, &t.Script, &t.Elevated, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}

		templates = append(templates, t)
	}

	return templates, rows.Err()
}

// SaveTemplate inserts or updates a script template.
func (d *DB) SaveTemplate(ctx context.Context, template *models.ScriptTemplate) (int64, error) {
	if template.ID == 0 {
		row := d.pool.QueryRow(ctx, `
            INSERT INTO script_templates (name, script, elevated)
            VALUES ($1, $2, $3)
            RETURNING id`, template.Name, template.Script, template.Elevated)

		if err := row.Scan(&template.ID); err != nil {
			return 0, fmt.Errorf("insert template: %w", err)
		}

		return template.ID, nil
	}

	_, err := d.pool.Exec(ctx, `
        UPDATE script_templates
        SET name = $2, script = $3, elevated = $4, updated_at = now()
        WHERE id = $1`, template.ID, template.Name, template.Script, template.Elevated)
	if err != nil {
		return 0, fmt.Errorf("update template: %w", err)
	}

	return template.ID, nil
}

// DeleteTemplate removes a script template.
func (d *DB) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM script_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// WriteAudit appends an audit row. Callers treat failures as non-fatal.
func (d *DB) WriteAudit(ctx context.Context, entry *models.AuditEntry) error {
	_, err := d.pool.Exec(ctx, `
        INSERT INTO audit_log (actor, action, target_id, detail, ts)
        VALUES ($1, $2, $3, $4, $5)`,
		entry.Actor, entry.Action, entry.TargetID, entry.Detail, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}

	return nil
}

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

package models

import "time"

// DeploymentType distinguishes plain script runs from installer pushes.
type DeploymentType string

const (
	DeploymentTypeScript    DeploymentType = "script"
	DeploymentTypeInstaller DeploymentType = "installer"
)

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	DeploymentPending   DeploymentStatus = "pending"
	DeploymentRunning   DeploymentStatus = "running"
	DeploymentCompleted DeploymentStatus = "completed"
	DeploymentCancelled DeploymentStatus = "cancelled"
)

// ResultStatus is the per-target state of a deployment.
type ResultStatus string

const (
	ResultPending   ResultStatus = "pending"
	ResultUploading ResultStatus = "uploading"
	ResultRunning   ResultStatus = "running"
	ResultSuccess   ResultStatus = "success"
	ResultFailed    ResultStatus = "failed"
	ResultSkipped   ResultStatus = "skipped"
)

// Terminal reports whether no further transition can occur for this result.
func (s ResultStatus) Terminal() bool {
	switch s {
	case ResultSuccess, ResultFailed, ResultSkipped:
		return true
	default:
		return false
	}
}

// Deployment is a unit of scheduled work targeted at a set of devices.
// A deployment is completed iff every owned DeploymentResult is terminal.
type Deployment struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Type          DeploymentType   `json:"type"`
	Script        string           `json:"script,omitempty"`
	InstallerURL  string           `json:"installer_url,omitempty"`
	InstallerArgs string           `json:"installer_args,omitempty"`
	TimeoutSec    int              `json:"timeout_sec"`
	Elevated      bool             `json:"elevated"`
	TargetIDs     []string         `json:"target_ids"`
	ScheduledAt   *time.Time       `json:"scheduled_at,omitempty"`
	Status        DeploymentStatus `json:"status"`
	CreatedBy     string           `json:"created_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// DeploymentResult is one row per (deployment, target device).
type DeploymentResult struct {
	DeploymentID int64        `json:"deployment_id"`
	DeviceID     string       `json:"device_id"`
	Status       ResultStatus `json:"status"`
	ExitCode     *int         `json:"exit_code,omitempty"`
	Output       string       `json:"output,omitempty"`
	DurationMS   int64        `json:"duration_ms,omitempty"`
	TimedOut     bool         `json:"timed_out"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// ResultOutcome is what an agent reports back for a dispatched deployment.
type ResultOutcome struct {
	Success    bool   `json:"success"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	Output     string `json:"output,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// ScriptTemplate is a reusable operator-managed script body.
type ScriptTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Script    string    `json:"script"`
	Elevated  bool      `json:"elevated"`
	UpdatedAt time.Time `json:"updated_at"`
}

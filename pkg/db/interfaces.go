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

// Package db provides durable storage for the orchestration core.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/relayops/fleetdeck/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/relayops/fleetdeck/pkg/db Service

var (
	ErrNotFound      = errors.New("db: not found")
	ErrDatabaseError = errors.New("db: database error")
)

// Service represents all storage operations used by the core. Business
// entity CRUD (tickets, users, clients) lives in a separate service and is
// deliberately absent here.
type Service interface {
	Close()

	// Device operations.

	GetDeviceTenant(ctx context.Context, deviceID string) (string, error)
	UpdateDeviceStatus(ctx context.Context, deviceID string, online bool, lastSeen time.Time) error

	// Alert threshold operations.

	ListEnabledThresholds(ctx context.Context, checkType string) ([]models.AlertThreshold, error)
	ListThresholds(ctx context.Context) ([]models.AlertThreshold, error)
	SaveThreshold(ctx context.Context, threshold *models.AlertThreshold) (int64, error)
	DeleteThreshold(ctx context.Context, id int64) error

	// Alert operations.

	GetOpenAlert(ctx context.Context, deviceID string, thresholdID *int64) (*models.Alert, error)
	CreateAlert(ctx context.Context, alert *models.Alert) (int64, error)
	GetAlert(ctx context.Context, id int64) (*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id int64, status models.AlertStatus, at time.Time) error
	ListOpenAlerts(ctx context.Context, deviceID string) ([]models.Alert, error)

	// Auto-remediation policy operations.

	GetPolicyByThreshold(ctx context.Context, thresholdID int64) (*models.AutoRemediationPolicy, error)
	SavePolicy(ctx context.Context, policy *models.AutoRemediationPolicy) (int64, error)
	MarkPolicyTriggered(ctx context.Context, policyID int64, at time.Time) error

	// Deployment operations.

	CreateDeployment(ctx context.Context, deployment *models.Deployment) (int64, error)
	GetDeployment(ctx context.Context, id int64) (*models.Deployment, error)
	UpdateDeploymentStatus(ctx context.Context, id int64, status models.DeploymentStatus, completedAt *time.Time) error
	ListDueDeployments(ctx context.Context, now time.Time) ([]models.Deployment, error)
	ListExpiredDeployments(ctx context.Context, cutoff time.Time) ([]models.Deployment, error)

	// Deployment result operations.

	CreateDeploymentResults(ctx context.Context, deploymentID int64, deviceIDs []string) error
	ListPendingResults(ctx context.Context, deploymentID int64) ([]models.DeploymentResult, error)
	ListPendingResultsForDevice(ctx context.Context, deviceID string) ([]models.DeploymentResult, error)
	GetDeploymentResult(ctx context.Context, deploymentID int64, deviceID string) (*models.DeploymentResult, error)
	MarkResultRunning(ctx context.Context, deploymentID int64, deviceID string, startedAt time.Time) error
	RecordResultOutcome(ctx context.Context, deploymentID int64, deviceID string, outcome *models.ResultOutcome) error
	SkipOpenResults(ctx context.Context, deploymentID int64, includeRunning bool) error
	CountOpenResults(ctx context.Context, deploymentID int64) (int, error)

	// Script template operations.

	ListTemplates(ctx context.Context) ([]models.ScriptTemplate, error)
	SaveTemplate(ctx context.Context, template *models.ScriptTemplate) (int64, error)
	DeleteTemplate(ctx context.Context, id int64) error

	// Audit.

	WriteAudit(ctx context.Context, entry *models.AuditEntry) error
}

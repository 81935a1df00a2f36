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

// ThresholdOperator is the comparison applied between an extracted metric
// value and a threshold value.
type ThresholdOperator string

const (
	OperatorGreater        ThresholdOperator = ">"
	OperatorLess           ThresholdOperator = "<"
	OperatorGreaterOrEqual ThresholdOperator = ">="
	OperatorLessOrEqual    ThresholdOperator = "<="
	OperatorEqual          ThresholdOperator = "="
)

// Valid returns true when the operator is supported.
func (o ThresholdOperator) Valid() bool {
	switch o {
	case OperatorGreater, OperatorLess, OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual:
		return true
	default:
		return false
	}
}

// AlertSeverity classifies how urgent an alert is.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the lifecycle state of an alert instance.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// AlertThreshold is an operator-configured rule evaluated against
// diagnostic results. FieldPath is a dotted path into the result payload
// (map keys, numeric array indexes, and the literal segment "length").
type AlertThreshold struct {
	ID                  int64             `json:"id"`
	CheckType           string            `json:"check_type"`
	FieldPath           string            `json:"field_path"`
	Operator            ThresholdOperator `json:"operator"`
	Value               float64           `json:"value"`
	Severity            AlertSeverity     `json:"severity"`
	ConsecutiveRequired int               `json:"consecutive_required"`
	Enabled             bool              `json:"enabled"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Alert is a fired instance of a threshold breach, or a synthetic
// unreachability alert when ThresholdID is nil. At most one alert with
// status active or acknowledged exists per (device, threshold) pair.
type Alert struct {
	ID             int64         `json:"id"`
	DeviceID       string        `json:"device_id"`
	ThresholdID    *int64        `json:"threshold_id,omitempty"`
	Severity       AlertSeverity `json:"severity"`
	Status         AlertStatus   `json:"status"`
	Message        string        `json:"message"`
	TriggeredAt    time.Time     `json:"triggered_at"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}

// AutoRemediationPolicy binds a remediation action to a threshold. The
// policy must not fire again until Cooldown has elapsed since
// LastTriggeredAt.
type AutoRemediationPolicy struct {
	ID              int64         `json:"id"`
	ThresholdID     int64         `json:"threshold_id"`
	ActionID        string        `json:"action_id"`
	ActionParam     string        `json:"action_param,omitempty"`
	Cooldown        time.Duration `json:"cooldown"`
	RequireConsent  bool          `json:"require_consent"`
	Enabled         bool          `json:"enabled"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty"`
}

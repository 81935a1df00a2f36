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

// CloudEvent follows the CloudEvents 1.0 envelope for lifecycle events
// published to the external event stream.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// Lifecycle event data payloads.

type AlertEventData struct {
	AlertID     int64         `json:"alert_id"`
	DeviceID    string        `json:"device_id"`
	ThresholdID *int64        `json:"threshold_id,omitempty"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
}

type DeploymentEventData struct {
	DeploymentID int64            `json:"deployment_id"`
	Name         string           `json:"name"`
	Status       DeploymentStatus `json:"status"`
	Targets      int              `json:"targets"`
	Timestamp    time.Time        `json:"timestamp"`
}

type DeviceHealthEventData struct {
	DeviceID  string    `json:"device_id"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"last_seen"`
	Timestamp time.Time `json:"timestamp"`
}

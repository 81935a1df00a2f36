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

import (
	"encoding/json"
	"time"
)

// Envelope is the wire frame for both channels. Requests that expect a
// correlated result carry a RequestID; results echo it verbatim.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Agent channel, inbound to server.
const (
	AgentMsgHeartbeat         = "heartbeat"
	AgentMsgDiagnosticResult  = "diagnostic_result"
	AgentMsgRemediationResult = "remediation_result"
	AgentMsgScriptResult      = "script_result"
	AgentMsgChatMessage       = "chat_message"
)

// Agent channel, outbound from server.
const (
	AgentMsgDiagnosticRequest  = "diagnostic_request"
	AgentMsgRemediationRequest = "remediation_request"
	AgentMsgScriptRequest      = "script_request"
	AgentMsgInstallerRequest   = "installer_request"
	AgentMsgUpdateAvailable    = "update_available"
)

// Watcher channel, inbound to server.
const (
	WatcherMsgWatchDevice      = "watch_device"
	WatcherMsgUnwatchDevice    = "unwatch_device"
	WatcherMsgChatToDevice     = "chat_to_device"
	WatcherMsgRequestDiag      = "request_diagnostic"
	WatcherMsgExecuteScript    = "execute_script"
	WatcherMsgCreateDeployment = "create_deployment"
	WatcherMsgCancelDeployment = "cancel_deployment"
	WatcherMsgAckAlert         = "acknowledge_alert"
	WatcherMsgResolveAlert     = "resolve_alert"
	WatcherMsgSaveThreshold    = "save_threshold"
	WatcherMsgDeleteThreshold  = "delete_threshold"
	WatcherMsgSavePolicy       = "save_policy"
	WatcherMsgSaveTemplate     = "save_template"
	WatcherMsgDeleteTemplate   = "delete_template"
)

// Watcher channel, outbound from server.
const (
	EventDeviceStatusChanged    = "device_status_changed"
	EventDeviceChatUpdate       = "device_chat_update"
	EventDeviceDiagnosticUpdate = "device_diagnostic_update"
	EventDeviceScriptUpdate     = "device_script_update"
	EventDeploymentProgress     = "deployment_progress"
	EventDeploymentCompleted    = "deployment_completed"
	EventAlertFired             = "alert_fired"
	EventAlertAcknowledged      = "alert_acknowledged"
	EventAlertResolved          = "alert_resolved"
	EventThresholdChanged       = "threshold_changed"
	EventServerNotice           = "server_notice"
	EventError                  = "error"
	EventAck                    = "ack"
)

// Machine-checkable reason strings carried by error events.
const (
	ReasonDeviceOffline = "device_offline"
	ReasonRateLimited   = "rate_limited"
	ReasonAccessDenied  = "access_denied"
	ReasonBadRequest    = "bad_request"
	ReasonNotFound      = "not_found"
)

// ErrorEvent is the structured failure surfaced to the requesting session.
type ErrorEvent struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// HeartbeatPayload is what agents report on their periodic heartbeat.
type HeartbeatPayload struct {
	AgentVersion string  `json:"agentVersion,omitempty"`
	Hostname     string  `json:"hostname,omitempty"`
	CPUPercent   float64 `json:"cpuPercent,omitempty"`
	MemPercent   float64 `json:"memPercent,omitempty"`
	LastUser     string  `json:"lastUser,omitempty"`
}

// DiagnosticResult carries an endpoint check result. Result is an opaque
// JSON document interpreted only through threshold field paths.
type DiagnosticResult struct {
	CheckType string          `json:"checkType"`
	Result    json.RawMessage `json:"result"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// ChatPayload is a chat message relayed between an agent and its watchers.
type ChatPayload struct {
	DeviceID string `json:"deviceId,omitempty"`
	From     string `json:"from,omitempty"`
	Text     string `json:"text"`
}

// Watcher request payloads.

type WatchDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

type RequestDiagnosticRequest struct {
	DeviceID  string `json:"deviceId"`
	CheckType string `json:"checkType"`
}

type ExecuteScriptRequest struct {
	DeviceID   string `json:"deviceId"`
	Script     string `json:"script"`
	TimeoutSec int    `json:"timeoutSec,omitempty"`
	Elevated   bool   `json:"elevated,omitempty"`
}

type CreateDeploymentRequest struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Script        string     `json:"script,omitempty"`
	InstallerURL  string     `json:"installerUrl,omitempty"`
	InstallerArgs string     `json:"installerArgs,omitempty"`
	TimeoutSec    int        `json:"timeoutSec,omitempty"`
	Elevated      bool       `json:"elevated,omitempty"`
	TargetIDs     []string   `json:"targetIds"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
}

type CancelDeploymentRequest struct {
	DeploymentID int64 `json:"deploymentId"`
}

type AlertActionRequest struct {
	AlertID int64 `json:"alertId"`
}

type DeleteByIDRequest struct {
	ID int64 `json:"id"`
}

type SavePolicyRequest struct {
	ID              int64  `json:"id,omitempty"`
	ThresholdID     int64  `json:"thresholdId"`
	ActionID        string `json:"actionId"`
	ActionParam     string `json:"actionParam,omitempty"`
	CooldownSeconds int    `json:"cooldownSeconds"`
	RequireConsent  bool   `json:"requireConsent"`
	Enabled         bool   `json:"enabled"`
}

// Agent-bound command payloads.

type DiagnosticCommand struct {
	CheckType string `json:"checkType"`
}

type ScriptCommand struct {
	Script     string `json:"script"`
	TimeoutSec int    `json:"timeoutSec,omitempty"`
	Elevated   bool   `json:"elevated,omitempty"`
}

type InstallerCommand struct {
	URL        string `json:"url"`
	Args       string `json:"args,omitempty"`
	TimeoutSec int    `json:"timeoutSec,omitempty"`
}

type RemediationCommand struct {
	ActionID string `json:"actionId"`
	Param    string `json:"param,omitempty"`
}

type UpdateAvailablePayload struct {
	Version string `json:"version"`
	URL     string `json:"url,omitempty"`
}

// DeviceResultEvent relays an agent's correlated result to watchers,
// naming the device it came from. Result stays opaque.
type DeviceResultEvent struct {
	DeviceID string          `json:"deviceId"`
	Result   json.RawMessage `json:"result"`
}

// AckEvent confirms a watcher request, echoing its requestId in Ref and
// carrying the created entity's ID when one exists.
type AckEvent struct {
	Ref string `json:"ref,omitempty"`
	ID  int64  `json:"id,omitempty"`
}

// DeviceStatusEvent is broadcast when a device goes online or offline.
type DeviceStatusEvent struct {
	DeviceID string    `json:"device_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

/// AuditEntry records an operator action. Audit writes are best-effort:
// a failed write never aborts the operation it is auditing.
type AuditEntry struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

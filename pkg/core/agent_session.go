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

package core

import (
	"context"
	"encoding/json"

	"github.com/relayops/fleetdeck/pkg/models"
)

// HandleAgentMessage is the single receive path for a device session.
// Every inbound message type is dispatched from this one switch so the
// session's state machine stays auditable in one place. Unknown types are
// dropped at the boundary, never forwarded.
func (s *Server) HandleAgentMessage(ctx context.Context, handle AgentHandle, env *models.Envelope) {
	deviceID := handle.DeviceID()
	s.metrics.IncMessageHandled("agent", env.Type)

	switch env.Type {
	case models.AgentMsgHeartbeat:
		s.handleHeartbeat(ctx, deviceID, env.Payload)

	case models.AgentMsgDiagnosticResult:
		// Threshold evaluation does storage I/O; it runs off the receive
		// loop so a slow query cannot stall this device's heartbeats. The
		// detached context lets it finish if the session drops mid-flight.
		taskCtx := context.WithoutCancel(ctx)
		s.submit(func() { s.handleDiagnosticResult(taskCtx, deviceID, env) })

	case models.AgentMsgRemediationResult, models.AgentMsgScriptResult:
		if env.RequestID == "" {
			s.log.Warn().
				Str("device_id", deviceID).
				Str("type", env.Type).
				Msg("Uncorrelated result, dropping")

			return
		}

		taskCtx := context.WithoutCancel(ctx)
		s.submit(func() { s.dispatcher.HandleResult(taskCtx, deviceID, env.RequestID, env.Payload) })

	case models.AgentMsgChatMessage:
		s.handleAgentChat(ctx, deviceID, env.Payload)

	default:
		s.log.Warn().
			Str("device_id", deviceID).
			Str("type", env.Type).
			Msg("Unknown agent message type, dropping")
	}
}

func (s *Server) handleHeartbeat(ctx context.Context, deviceID string, payload json.RawMessage) {
	s.registry.Touch(deviceID)

	if err := s.store.UpdateDeviceStatus(ctx, deviceID, true, s.now()); err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("Heartbeat status write failed")
	}

	// A successful heartbeat closes any outstanding unreachability alert.
	if err := s.alerts.ResolveUptimeAlert(ctx, deviceID); err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("Uptime alert resolve failed")
	}

	if len(payload) == 0 {
		return
	}

	var hb models.HeartbeatPayload
	if err := json.Unmarshal(payload, &hb); err != nil {
		s.log.Debug().Err(err).Str("device_id", deviceID).Msg("Undecodable heartbeat payload")
		return
	}

	s.log.Trace().
		Str("device_id", deviceID).
		Str("hostname", hb.Hostname).
		Float64("cpu_percent", hb.CPUPercent).
		Msg("Heartbeat")
}

// handleDiagnosticResult feeds a diagnostic result to the alert engine
// and relays it to watchers. A correlated result reaches them through the
// request relay it resolves; only uncorrelated results are broadcast here.
func (s *Server) handleDiagnosticResult(ctx context.Context, deviceID string, env *models.Envelope) {
	var result models.DiagnosticResult
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("Undecodable diagnostic result, dropping")
		return
	}

	relayed := false
	if env.RequestID != "" {
		relayed = s.dispatcher.HandleResult(ctx, deviceID, env.RequestID, env.Payload)
	}

	if err := s.alerts.Evaluate(ctx, deviceID, result.CheckType, result.Result); err != nil {
		s.log.Error().Err(err).
			Str("device_id", deviceID).
			Str("check_type", result.CheckType).
			Msg("Threshold evaluation failed")
	}

	// The correlation relay already delivered this result to watchers.
	if relayed {
		return
	}

	s.broadcast.EmitWatchers(ctx, deviceID, models.EventDeviceDiagnosticUpdate, models.DeviceResultEvent{
		DeviceID: deviceID,
		Result:   env.Payload,
	})
}

func (s *Server) handleAgentChat(ctx context.Context, deviceID string, payload json.RawMessage) {
	var chat models.ChatPayload
	if err := json.Unmarshal(payload, &chat); err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("Undecodable chat message, dropping")
		return
	}

	chat.DeviceID = deviceID

	s.broadcast.EmitWatchers(ctx, deviceID, models.EventDeviceChatUpdate, chat)
}

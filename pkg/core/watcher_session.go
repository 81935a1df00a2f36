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
	"errors"
	"fmt"
	"time"

	"github.com/relayops/fleetdeck/pkg/alerting"
	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/deployments"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/ratelimit"
)

// HandleWatcherMessage is the single receive path for a dashboard
// session. Scope violations, rate-limit rejections, and malformed input
// are answered with structured error events to this session only.
func (s *Server) HandleWatcherMessage(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	s.metrics.IncMessageHandled("watcher", env.Type)

	switch env.Type {
	case models.WatcherMsgWatchDevice:
		s.handleWatchDevice(ctx, handle, env, true)
	case models.WatcherMsgUnwatchDevice:
		s.handleWatchDevice(ctx, handle, env, false)
	case models.WatcherMsgChatToDevice:
		s.handleChatToDevice(ctx, handle, env)
	case models.WatcherMsgRequestDiag:
		s.handleRequestDiagnostic(ctx, handle, env)
	case models.WatcherMsgExecuteScript:
		s.handleExecuteScript(ctx, handle, env)
	case models.WatcherMsgCreateDeployment:
		s.handleCreateDeployment(ctx, handle, env)
	case models.WatcherMsgCancelDeployment:
		s.handleCancelDeployment(ctx, handle, env)
	case models.WatcherMsgAckAlert:
		s.handleAlertAction(ctx, handle, env, false)
	case models.WatcherMsgResolveAlert:
		s.handleAlertAction(ctx, handle, env, true)
	case models.WatcherMsgSaveThreshold:
		s.handleSaveThreshold(ctx, handle, env)
	case models.WatcherMsgDeleteThreshold:
		s.handleDeleteThreshold(ctx, handle, env)
	case models.WatcherMsgSavePolicy:
		s.handleSavePolicy(ctx, handle, env)
	case models.WatcherMsgSaveTemplate:
		s.handleSaveTemplate(ctx, handle, env)
	case models.WatcherMsgDeleteTemplate:
		s.handleDeleteTemplate(ctx, handle, env)
	default:
		s.sendError(handle, models.ReasonBadRequest, fmt.Sprintf("unknown message type %q", env.Type), env.RequestID)
	}
}

func (s *Server) sendError(handle WatcherHandle, reason, message, ref string) {
	env, err := eventEnvelope(models.EventError, models.ErrorEvent{
		Reason:  reason,
		Message: message,
		Ref:     ref,
	})
	if err != nil {
		return
	}

	if err := handle.Send(env); err != nil {
		s.log.Debug().Err(err).Str("session_id", handle.SessionID()).Msg("Error event delivery failed")
	}
}

func (s *Server) sendAck(handle WatcherHandle, ref string, id int64) {
	env, err := eventEnvelope(models.EventAck, models.AckEvent{Ref: ref, ID: id})
	if err != nil {
		return
	}

	if err := handle.Send(env); err != nil {
		s.log.Debug().Err(err).Str("session_id", handle.SessionID()).Msg("Ack delivery failed")
	}
}

// allowOp charges one call against the session's ceiling for the class.
// Rejections are answered immediately and never retried server-side.
func (s *Server) allowOp(handle WatcherHandle, class ratelimit.OperationClass, ref string) bool {
	if s.limiter.Allow(handle.SessionID(), class) {
		return true
	}

	s.metrics.IncRateLimited(string(class))
	s.sendError(handle, models.ReasonRateLimited, fmt.Sprintf("%s rate ceiling reached", class), ref)

	return false
}

// deviceVisible applies the session's scope to a device. When the tenant
// cannot be resolved only admins pass, never cross-tenant access.
func (s *Server) deviceVisible(ctx context.Context, handle WatcherHandle, deviceID string) bool {
	if handle.Scope().IsAdmin {
		return true
	}

	tenantID, err := s.tenants.DeviceTenant(ctx, deviceID)
	if err != nil {
		return false
	}

	return handle.Scope().Covers(tenantID)
}

func (s *Server) requireAdmin(handle WatcherHandle, ref string) bool {
	if handle.Scope().IsAdmin {
		return true
	}

	s.log.Warn().
		Str("session_id", handle.SessionID()).
		Str("subject", handle.Subject()).
		Msg("Non-admin attempted configuration change")

	s.sendError(handle, models.ReasonAccessDenied, "administrator role required", ref)

	return false
}

func decodePayload[T any](s *Server, handle WatcherHandle, env *models.Envelope) (T, bool) {
	var req T

	if err := json.Unmarshal(env.Payload, &req); err != nil {
		s.sendError(handle, models.ReasonBadRequest, "undecodable payload", env.RequestID)
		return req, false
	}

	return req, true
}

func (s *Server) handleWatchDevice(ctx context.Context, handle WatcherHandle, env *models.Envelope, watch bool) {
	req, ok := decodePayload[models.WatchDeviceRequest](s, handle, env)
	if !ok {
		return
	}

	if req.DeviceID == "" {
		s.sendError(handle, models.ReasonBadRequest, "deviceId is required", env.RequestID)
		return
	}

	if watch {
		if !s.deviceVisible(ctx, handle, req.DeviceID) {
			s.log.Warn().
				Str("session_id", handle.SessionID()).
				Str("device_id", req.DeviceID).
				Msg("Scope violation on watch request")

			s.sendError(handle, models.ReasonAccessDenied, "device outside your tenant scope", env.RequestID)

			return
		}

		s.registry.Watch(handle.SessionID(), req.DeviceID)
	} else {
		s.registry.Unwatch(handle.SessionID(), req.DeviceID)
	}

	s.sendAck(handle, env.RequestID, 0)
}

func (s *Server) handleChatToDevice(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.allowOp(handle, ratelimit.OpGuidance, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.ChatPayload](s, handle, env)
	if !ok {
		return
	}

	if req.DeviceID == "" || req.Text == "" {
		s.sendError(handle, models.ReasonBadRequest, "deviceId and text are required", env.RequestID)
		return
	}

	if !s.deviceVisible(ctx, handle, req.DeviceID) {
		s.sendError(handle, models.ReasonAccessDenied, "device outside your tenant scope", env.RequestID)
		return
	}

	agent, online := s.registry.Agent(req.DeviceID)
	if !online {
		s.sendError(handle, models.ReasonDeviceOffline, "device has no live session", env.RequestID)
		return
	}

	chatEnv, err := eventEnvelope(models.AgentMsgChatMessage, models.ChatPayload{
		From: handle.Subject(),
		Text: req.Text,
	})
	if err != nil {
		s.sendError(handle, models.ReasonBadRequest, "undecodable payload", env.RequestID)
		return
	}

	if err := agent.Send(chatEnv); err != nil {
		s.sendError(handle, models.ReasonDeviceOffline, "device has no live session", env.RequestID)
		return
	}

	// Other watchers of the device see the operator's side of the chat.
	s.broadcast.EmitWatchers(ctx, req.DeviceID, models.EventDeviceChatUpdate, models.ChatPayload{
		DeviceID: req.DeviceID,
		From:     handle.Subject(),
		Text:     req.Text,
	})

	s.sendAck(handle, env.RequestID, 0)
}

func (s *Server) handleRequestDiagnostic(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.allowOp(handle, ratelimit.OpTool, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.RequestDiagnosticRequest](s, handle, env)
	if !ok {
		return
	}

	if req.DeviceID == "" || req.CheckType == "" {
		s.sendError(handle, models.ReasonBadRequest, "deviceId and checkType are required", env.RequestID)
		return
	}

	if !s.deviceVisible(ctx, handle, req.DeviceID) {
		s.sendError(handle, models.ReasonAccessDenied, "device outside your tenant scope", env.RequestID)
		return
	}

	_, err := s.dispatcher.SendAdhoc(ctx, req.DeviceID, models.AgentMsgDiagnosticRequest, models.DiagnosticCommand{
		CheckType: req.CheckType,
	}, models.EventDeviceDiagnosticUpdate)
	if err != nil {
		if errors.Is(err, ErrDeviceOffline) {
			s.sendError(handle, models.ReasonDeviceOffline, "device has no live session", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "diagnostic request failed", env.RequestID)

		return
	}

	s.metrics.IncCommandDispatched(models.AgentMsgDiagnosticRequest)
	s.sendAck(handle, env.RequestID, 0)
}

func (s *Server) handleExecuteScript(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.allowOp(handle, ratelimit.OpScript, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.ExecuteScriptRequest](s, handle, env)
	if !ok {
		return
	}

	if req.DeviceID == "" || req.Script == "" {
		s.sendError(handle, models.ReasonBadRequest, "deviceId and script are required", env.RequestID)
		return
	}

	if !s.deviceVisible(ctx, handle, req.DeviceID) {
		s.sendError(handle, models.ReasonAccessDenied, "device outside your tenant scope", env.RequestID)
		return
	}

	_, err := s.dispatcher.SendAdhoc(ctx, req.DeviceID, models.AgentMsgScriptRequest, models.ScriptCommand{
		Script:     req.Script,
		TimeoutSec: req.TimeoutSec,
		Elevated:   req.Elevated,
	}, models.EventDeviceScriptUpdate)
	if err != nil {
		if errors.Is(err, ErrDeviceOffline) {
			s.sendError(handle, models.ReasonDeviceOffline, "device has no live session", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "script request failed", env.RequestID)

		return
	}

	s.metrics.IncCommandDispatched(models.AgentMsgScriptRequest)
	s.writeAudit(ctx, handle.Subject(), "script.execute", req.DeviceID, "")
	s.sendAck(handle, env.RequestID, 0)
}

func (s *Server) handleCreateDeployment(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.allowOp(handle, ratelimit.OpDeploy, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.CreateDeploymentRequest](s, handle, env)
	if !ok {
		return
	}

	for _, deviceID := range req.TargetIDs {
		if !s.deviceVisible(ctx, handle, deviceID) {
			s.sendError(handle, models.ReasonAccessDenied,
				fmt.Sprintf("target %s outside your tenant scope", deviceID), env.RequestID)

			return
		}
	}

	deployment := &models.Deployment{
		Name:          req.Name,
		Type:          models.DeploymentType(req.Type),
		Script:        req.Script,
		InstallerURL:  req.InstallerURL,
		InstallerArgs: req.InstallerArgs,
		TimeoutSec:    req.TimeoutSec,
		Elevated:      req.Elevated,
		TargetIDs:     req.TargetIDs,
		ScheduledAt:   req.ScheduledAt,
		CreatedBy:     handle.Subject(),
	}

	id, err := s.scheduler.Create(ctx, deployment)
	if err != nil {
		if errors.Is(err, deployments.ErrNoTargets) || errors.Is(err, deployments.ErrMissingPayload) {
			s.sendError(handle, models.ReasonBadRequest, err.Error(), env.RequestID)
			return
		}

		s.log.Error().Err(err).Str("subject", handle.Subject()).Msg("Deployment creation failed")
		s.sendError(handle, models.ReasonBadRequest, "deployment creation failed", env.RequestID)

		return
	}

	s.metrics.IncDeploymentCreated()
	s.writeAudit(ctx, handle.Subject(), "deployment.create", fmt.Sprintf("%d", id),
		fmt.Sprintf("%s targeting %d devices", req.Type, len(req.TargetIDs)))
	s.sendAck(handle, env.RequestID, id)
}

func (s *Server) handleCancelDeployment(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	req, ok := decodePayload[models.CancelDeploymentRequest](s, handle, env)
	if !ok {
		return
	}

	deployment, err := s.store.GetDeployment(ctx, req.DeploymentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.sendError(handle, models.ReasonNotFound, "deployment not found", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "deployment lookup failed", env.RequestID)

		return
	}

	for _, deviceID := range deployment.TargetIDs {
		if !s.deviceVisible(ctx, handle, deviceID) {
			s.sendError(handle, models.ReasonAccessDenied, "deployment outside your tenant scope", env.RequestID)
			return
		}
	}

	if err := s.scheduler.Cancel(ctx, req.DeploymentID); err != nil {
		if errors.Is(err, deployments.ErrNotCancellable) {
			s.sendError(handle, models.ReasonBadRequest, err.Error(), env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "deployment cancel failed", env.RequestID)

		return
	}

	s.writeAudit(ctx, handle.Subject(), "deployment.cancel", fmt.Sprintf("%d", req.DeploymentID), "")
	s.sendAck(handle, env.RequestID, req.DeploymentID)
}

func (s *Server) handleAlertAction(ctx context.Context, handle WatcherHandle, env *models.Envelope, resolve bool) {
	req, ok := decodePayload[models.AlertActionRequest](s, handle, env)
	if !ok {
		return
	}

	alert, err := s.store.GetAlert(ctx, req.AlertID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.sendError(handle, models.ReasonNotFound, "alert not found", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "alert lookup failed", env.RequestID)

		return
	}

	if !s.deviceVisible(ctx, handle, alert.DeviceID) {
		s.sendError(handle, models.ReasonAccessDenied, "alert outside your tenant scope", env.RequestID)
		return
	}

	action := "alert.acknowledge"
	if resolve {
		action = "alert.resolve"
		_, err = s.alerts.Resolve(ctx, req.AlertID)
	} else {
		_, err = s.alerts.Acknowledge(ctx, req.AlertID)
	}

	if err != nil {
		if errors.Is(err, alerting.ErrInvalidTransition) {
			s.sendError(handle, models.ReasonBadRequest, err.Error(), env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "alert update failed", env.RequestID)

		return
	}

	s.writeAudit(ctx, handle.Subject(), action, fmt.Sprintf("%d", req.AlertID), "")
	s.sendAck(handle, env.RequestID, req.AlertID)
}

func (s *Server) handleSaveThreshold(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.requireAdmin(handle, env.RequestID) {
		return
	}

	threshold, ok := decodePayload[models.AlertThreshold](s, handle, env)
	if !ok {
		return
	}

	if threshold.CheckType == "" || threshold.FieldPath == "" {
		s.sendError(handle, models.ReasonBadRequest, "check_type and field_path are required", env.RequestID)
		return
	}

	id, err := s.store.SaveThreshold(ctx, &threshold)
	if err != nil {
		s.sendError(handle, models.ReasonBadRequest, "threshold save failed", env.RequestID)
		return
	}

	threshold.ID = id

	s.broadcast.EmitGlobal(ctx, models.EventThresholdChanged, threshold)
	s.writeAudit(ctx, handle.Subject(), "threshold.save", fmt.Sprintf("%d", id), threshold.CheckType)
	s.sendAck(handle, env.RequestID, id)
}

func (s *Server) handleDeleteThreshold(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.requireAdmin(handle, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.DeleteByIDRequest](s, handle, env)
	if !ok {
		return
	}

	if err := s.store.DeleteThreshold(ctx, req.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.sendError(handle, models.ReasonNotFound, "threshold not found", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "threshold delete failed", env.RequestID)

		return
	}

	s.broadcast.EmitGlobal(ctx, models.EventThresholdChanged, models.DeleteByIDRequest{ID: req.ID})
	s.writeAudit(ctx, handle.Subject(), "threshold.delete", fmt.Sprintf("%d", req.ID), "")
	s.sendAck(handle, env.RequestID, req.ID)
}

func (s *Server) handleSavePolicy(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.requireAdmin(handle, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.SavePolicyRequest](s, handle, env)
	if !ok {
		return
	}

	if req.ThresholdID == 0 || req.ActionID == "" {
		s.sendError(handle, models.ReasonBadRequest, "thresholdId and actionId are required", env.RequestID)
		return
	}

	policy := &models.AutoRemediationPolicy{
		ID:             req.ID,
		ThresholdID:    req.ThresholdID,
		ActionID:       req.ActionID,
		ActionParam:    req.ActionParam,
		Cooldown:       time.Duration(req.CooldownSeconds) * time.Second,
		RequireConsent: req.RequireConsent,
		Enabled:        req.Enabled,
	}

	id, err := s.store.SavePolicy(ctx, policy)
	if err != nil {
		s.sendError(handle, models.ReasonBadRequest, "policy save failed", env.RequestID)
		return
	}

	s.writeAudit(ctx, handle.Subject(), "policy.save", fmt.Sprintf("%d", id), policy.ActionID)
	s.sendAck(handle, env.RequestID, id)
}

func (s *Server) handleSaveTemplate(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.requireAdmin(handle, env.RequestID) {
		return
	}

	template, ok := decodePayload[models.ScriptTemplate](s, handle, env)
	if !ok {
		return
	}

	if template.Name == "" || template.Script == "" {
		s.sendError(handle, models.ReasonBadRequest, "name and script are required", env.RequestID)
		return
	}

	id, err := s.store.SaveTemplate(ctx, &template)
	if err != nil {
		s.sendError(handle, models.ReasonBadRequest, "template save failed", env.RequestID)
		return
	}

	s.writeAudit(ctx, handle.Subject(), "template.save", fmt.Sprintf("%d", id), template.Name)
	s.sendAck(handle, env.RequestID, id)
}

func (s *Server) handleDeleteTemplate(ctx context.Context, handle WatcherHandle, env *models.Envelope) {
	if !s.requireAdmin(handle, env.RequestID) {
		return
	}

	req, ok := decodePayload[models.DeleteByIDRequest](s, handle, env)
	if !ok {
		return
	}

	if err := s.store.DeleteTemplate(ctx, req.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.sendError(handle, models.ReasonNotFound, "template not found", env.RequestID)
			return
		}

		s.sendError(handle, models.ReasonBadRequest, "template delete failed", env.RequestID)

		return
	}

	s.writeAudit(ctx, handle.Subject(), "template.delete", fmt.Sprintf("%d", req.ID), "")
	s.sendAck(handle, env.RequestID, req.ID)
}

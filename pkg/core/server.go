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
	"sync"
	"time"

	"github.com/relayops/fleetdeck/pkg/alerting"
	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/deployments"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/metrics"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/ratelimit"
	"github.com/relayops/fleetdeck/pkg/scope"
)

const (
	defaultOfflineThreshold = 90 * time.Second
	defaultSweepInterval    = 30 * time.Second
)

// EventPublisher is the optional external lifecycle event stream.
type EventPublisher interface {
	PublishAlertEvent(ctx context.Context, data models.AlertEventData) error
	PublishDeploymentEvent(ctx context.Context, data models.DeploymentEventData) error
	PublishDeviceHealthEvent(ctx context.Context, data models.DeviceHealthEventData) error
}

// Server is the composition root of the orchestration core. It owns the
// registry, dispatcher, broadcast, limiter, alert engine, and deployment
// scheduler, and is handed to the transport layer by reference.
type Server struct {
	config     *models.CoreConfig
	store      db.Service
	log        logger.Logger
	registry   *Registry
	broadcast  *Broadcast
	dispatcher *Dispatcher
	limiter    *ratelimit.Limiter
	tenants    *scope.TenantCache
	alerts     *alerting.Engine
	scheduler  *deployments.Scheduler
	metrics    *metrics.Metrics
	events     EventPublisher
	workers    *workerPool
	submit     func(func())
	now        func() time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

func NewServer(config *models.CoreConfig, store db.Service, log logger.Logger) *Server {
	registry := NewRegistry(log)
	tenants := scope.NewTenantCache(store, config.TenantCacheTTL.Std())
	broadcast := NewBroadcast(registry, tenants, log)
	dispatcher := NewDispatcher(registry, broadcast, log)

	m := metrics.New(
		func() float64 { return float64(registry.AgentCount()) },
		func() float64 { return float64(registry.WatcherCount()) },
	)

	metered := &meteredBroadcaster{Broadcast: broadcast, metrics: m}

	scheduler := deployments.NewScheduler(store, dispatcher, registry, metered, log)
	scheduler.SetTimings(config.SweepInterval.Std(), config.DeploymentExpiry.Std())
	dispatcher.SetDeploymentResults(scheduler)

	workers := newWorkerPool(config.Workers)

	alerts := alerting.NewEngine(store, metered, log)

	s := &Server{
		config:     config,
		store:      store,
		log:        log.WithComponent("core"),
		registry:   registry,
		broadcast:  broadcast,
		dispatcher: dispatcher,
		limiter:    ratelimit.NewLimiter(nil),
		tenants:    tenants,
		alerts:     alerts,
		scheduler:  scheduler,
		metrics:    m,
		workers:    workers,
		submit:     workers.Submit,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	alerts.SetRemediationFunc(s.autoRemediate)

	return s
}

// SetEventPublisher attaches the NATS lifecycle stream to every component
// that publishes.
func (s *Server) SetEventPublisher(pub EventPublisher) {
	s.events = pub
	s.alerts.SetEventSink(pub)
	s.scheduler.SetEventSink(pub)
}

// Metrics exposes the instrumentation handle for the metrics endpoint.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// Start launches the deployment sweep and the liveness monitor.
func (s *Server) Start(ctx context.Context) {
	s.scheduler.Start(ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.runMonitor(ctx)
	}()

	s.log.Info().Msg("Core server started")
}

// Stop halts background work and waits for it to finish.
func (s *Server) Stop() {
	close(s.done)
	s.scheduler.Stop()
	s.wg.Wait()
	s.workers.Stop()
	s.log.Info().Msg("Core server stopped")
}

// RegisterAgent installs a device session, replacing any previous one,
// and immediately re-dispatches deployments waiting for this device.
func (s *Server) RegisterAgent(ctx context.Context, handle AgentHandle) {
	deviceID := handle.DeviceID()

	if replaced := s.registry.RegisterAgent(handle); replaced != nil {
		replaced.Close()
	}

	s.log.Info().Str("device_id", deviceID).Msg("Agent registered")

	s.markDeviceStatus(ctx, deviceID, true)
	s.scheduler.OnReconnect(ctx, deviceID)
}

// UnregisterAgent tears down a device session. A handle that was already
// replaced by a newer connection is a no-op.
func (s *Server) UnregisterAgent(ctx context.Context, handle AgentHandle) {
	deviceID := handle.DeviceID()

	if !s.registry.UnregisterAgent(handle) {
		return
	}

	s.log.Info().Str("device_id", deviceID).Msg("Agent unregistered")

	s.alerts.ForgetDevice(deviceID)
	s.markDeviceStatus(ctx, deviceID, false)
}

// RegisterWatcher installs a dashboard session.
func (s *Server) RegisterWatcher(handle WatcherHandle) {
	s.registry.RegisterWatcher(handle)
	s.log.Info().Str("session_id", handle.SessionID()).Str("subject", handle.Subject()).Msg("Watcher registered")
}

// UnregisterWatcher tears down a dashboard session and its rate counters.
func (s *Server) UnregisterWatcher(sessionID string) {
	s.registry.UnregisterWatcher(sessionID)
	s.limiter.PurgeSession(sessionID)
	s.log.Info().Str("session_id", sessionID).Msg("Watcher unregistered")
}

// NotifyUpdate pushes an update_available notice to every connected agent.
func (s *Server) NotifyUpdate(version, url string) {
	env, err := eventEnvelope(models.AgentMsgUpdateAvailable, models.UpdateAvailablePayload{
		Version: version,
		URL:     url,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Update notice encode failed")
		return
	}

	for _, handle := range s.registry.AgentHandles() {
		if err := handle.Send(env); err != nil {
			s.log.Debug().Err(err).Str("device_id", handle.DeviceID()).Msg("Update notice delivery failed")
		}
	}
}

func (s *Server) markDeviceStatus(ctx context.Context, deviceID string, online bool) {
	now := s.now()

	if err := s.store.UpdateDeviceStatus(ctx, deviceID, online, now); err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("Device status write failed")
	}

	status := models.DeviceStatusEvent{DeviceID: deviceID, Online: online, LastSeen: now}
	s.broadcast.EmitScoped(ctx, deviceID, models.EventDeviceStatusChanged, status)

	if s.events != nil {
		err := s.events.PublishDeviceHealthEvent(ctx, models.DeviceHealthEventData{
			DeviceID:  deviceID,
			Online:    online,
			LastSeen:  now,
			Timestamp: now,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("device_id", deviceID).Msg("Device health event publish failed")
		}
	}
}

// autoRemediate sends the consent-free remediation command fired by the
// alert engine. An offline device is not retried; the next breach fires
// the policy again once its cooldown allows.
func (s *Server) autoRemediate(ctx context.Context, deviceID string, policy *models.AutoRemediationPolicy) {
	_, err := s.dispatcher.SendAdhoc(ctx, deviceID, models.AgentMsgRemediationRequest, models.RemediationCommand{
		ActionID: policy.ActionID,
		Param:    policy.ActionParam,
	}, models.EventDeviceScriptUpdate)
	if err != nil {
		s.log.Warn().Err(err).
			Str("device_id", deviceID).
			Str("action_id", policy.ActionID).
			Msg("Auto-remediation send failed")

		return
	}

	s.metrics.IncCommandDispatched(models.AgentMsgRemediationRequest)
}

// writeAudit records an operator action. Best-effort: failures are logged
// and never abort the audited operation.
func (s *Server) writeAudit(ctx context.Context, actor, action, targetID, detail string) {
	entry := &models.AuditEntry{
		Actor:     actor,
		Action:    action,
		TargetID:  targetID,
		Detail:    detail,
		Timestamp: s.now(),
	}

	if err := s.store.WriteAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("Audit write failed")
	}
}

// meteredBroadcaster counts alert and deployment lifecycle events on
// their way out to watchers.
type meteredBroadcaster struct {
	*Broadcast
	metrics *metrics.Metrics
}

func (m *meteredBroadcaster) EmitScoped(ctx context.Context, deviceID, event string, payload any) {
	switch event {
	case models.EventAlertFired:
		if alert, ok := payload.(*models.Alert); ok {
			m.metrics.IncAlertFired(string(alert.Severity))
		}
	case models.EventAlertResolved:
		m.metrics.IncAlertResolved()
	case models.EventDeploymentCompleted:
		// The scheduler emits this once per target; count the first only.
		if dep, ok := payload.(*models.Deployment); ok && len(dep.TargetIDs) > 0 && dep.TargetIDs[0] == deviceID {
			m.metrics.IncDeploymentFinished(string(dep.Status))
		}
	}

	m.Broadcast.EmitScoped(ctx, deviceID, event, payload)
}

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

// Package alerting evaluates diagnostic results against configured
// thresholds and owns the alert lifecycle.
package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

var (
	// ErrInvalidTransition is returned for operator actions that do not
	// apply to the alert's current status.
	ErrInvalidTransition = errors.New("alerting: invalid alert transition")

	// ErrPolicyCooldown is returned when a remediation policy exists but
	// its cooldown has not elapsed.
	ErrPolicyCooldown = errors.New("alerting: remediation policy in cooldown")
)

// Broadcaster delivers alert lifecycle events to watcher sessions scoped
// to the affected device.
type Broadcaster interface {
	EmitScoped(ctx context.Context, deviceID, event string, payload any)
}

// RemediationFunc is called when a breach fires an alert whose threshold
// carries a triggerable policy that does not require user consent. The
// engine marks the policy triggered before calling it.
type RemediationFunc func(ctx context.Context, deviceID string, policy *models.AutoRemediationPolicy)

// EventSink publishes alert lifecycle events to the external event stream.
// Publish failures are non-fatal and only logged.
type EventSink interface {
	PublishAlertEvent(ctx context.Context, data models.AlertEventData) error
}

type hitKey struct {
	deviceID    string
	thresholdID int64
}

// Engine is safe for concurrent use. Evaluations for the same device are
// serialized so the hysteresis counter and the open-alert check cannot
// race; different devices evaluate in parallel.
type Engine struct {
	store       db.Service
	broadcaster Broadcaster
	events      EventSink
	remediate   RemediationFunc
	log         logger.Logger
	now         func() time.Time

	mu      sync.Mutex
	hits    map[hitKey]int
	devLock map[string]*sync.Mutex

	policyMu sync.Mutex
}

func NewEngine(store db.Service, broadcaster Broadcaster, log logger.Logger) *Engine {
	return &Engine{
		store:       store,
		broadcaster: broadcaster,
		log:         log,
		now:         time.Now,
		hits:        make(map[hitKey]int),
		devLock:     make(map[string]*sync.Mutex),
	}
}

// SetEventSink attaches the optional external event stream.
func (e *Engine) SetEventSink(sink EventSink) { e.events = sink }

// SetRemediationFunc attaches the consent-free auto-remediation dispatch.
func (e *Engine) SetRemediationFunc(fn RemediationFunc) { e.remediate = fn }

func (e *Engine) deviceLock(deviceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.devLock[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		e.devLock[deviceID] = lock
	}

	return lock
}

// ForgetDevice drops in-memory evaluation state for a device. Called when
// the device session is torn down.
func (e *Engine) ForgetDevice(deviceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for k := range e.hits {
		if k.deviceID == deviceID {
			delete(e.hits, k)
		}
	}

	delete(e.devLock, deviceID)
}

// Evaluate runs every enabled threshold for checkType against a diagnostic
// result payload. Breaches increment the consecutive-hit counter; an alert
// fires when the counter reaches the threshold's requirement and no open
// alert exists for the pair. A non-breaching evaluation resets the counter
// and auto-resolves any open alert.
func (e *Engine) Evaluate(ctx context.Context, deviceID, checkType string, result json.RawMessage) error {
	lock := e.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	thresholds, err := e.store.ListEnabledThresholds(ctx, checkType)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	if len(thresholds) == 0 {
		return nil
	}

	var doc any
	if err := json.Unmarshal(result, &doc); err != nil {
		e.log.Warn().Err(err).
			Str("device_id", deviceID).
			Str("check_type", checkType).
			Msg("Undecodable diagnostic result, skipping evaluation")

		return nil
	}

	for i := range thresholds {
		threshold := &thresholds[i]

		value, ok := ExtractNumber(doc, threshold.FieldPath)
		breaching := ok && compare(value, threshold.Operator, threshold.Value)

		if breaching {
			e.handleBreach(ctx, deviceID, threshold, value)
		} else {
			e.handleClear(ctx, deviceID, threshold)
		}
	}

	return nil
}

func compare(value float64, op models.ThresholdOperator, limit float64) bool {
	switch op {
	case models.OperatorGreater:
		return value > limit
	case models.OperatorLess:
		return value < limit
	case models.OperatorGreaterOrEqual:
		return value >= limit
	case models.OperatorLessOrEqual:
		return value <= limit
	case models.OperatorEqual:
		return value == limit
	default:
		return false
	}
}

func (e *Engine) handleBreach(ctx context.Context, deviceID string, threshold *models.AlertThreshold, value float64) {
	k := hitKey{deviceID: deviceID, thresholdID: threshold.ID}

	e.mu.Lock()
	e.hits[k]++
	count := e.hits[k]
	e.mu.Unlock()

	required := threshold.ConsecutiveRequired
	if required < 1 {
		required = 1
	}

	if count < required {
		return
	}

	// Never double-fire while an alert is outstanding for this pair.
	existing, err := e.store.GetOpenAlert(ctx, deviceID, &threshold.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		e.log.Error().Err(err).
			Str("device_id", deviceID).
			Int64("threshold_id", threshold.ID).
			Msg("Open-alert lookup failed")

		return
	}

	if existing != nil {
		return
	}

	now := e.now()
	alert := &models.Alert{
		DeviceID:    deviceID,
		ThresholdID: &threshold.ID,
		Severity:    threshold.Severity,
		Status:      models.AlertStatusActive,
		Message: fmt.Sprintf("%s %s %s %g (observed %g)",
			threshold.CheckType, threshold.FieldPath, threshold.Operator, threshold.Value, value),
		TriggeredAt: now,
	}

	id, err := e.store.CreateAlert(ctx, alert)
	if err != nil {
		e.log.Error().Err(err).
			Str("device_id", deviceID).
			Int64("threshold_id", threshold.ID).
			Msg("Alert creation failed")

		return
	}

	alert.ID = id

	e.mu.Lock()
	delete(e.hits, k)
	e.mu.Unlock()

	e.log.Info().
		Str("device_id", deviceID).
		Int64("threshold_id", threshold.ID).
		Int64("alert_id", alert.ID).
		Str("severity", string(alert.Severity)).
		Msg("Alert fired")

	e.announce(ctx, models.EventAlertFired, alert)
	e.maybeRemediate(ctx, deviceID, threshold.ID)
}

func (e *Engine) handleClear(ctx context.Context, deviceID string, threshold *models.AlertThreshold) {
	k := hitKey{deviceID: deviceID, thresholdID: threshold.ID}

	e.mu.Lock()
	delete(e.hits, k)
	e.mu.Unlock()

	existing, err := e.store.GetOpenAlert(ctx, deviceID, &threshold.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			e.log.Error().Err(err).
				Str("device_id", deviceID).
				Int64("threshold_id", threshold.ID).
				Msg("Open-alert lookup failed")
		}

		return
	}

	e.resolveAlert(ctx, existing)
}

func (e *Engine) resolveAlert(ctx context.Context, alert *models.Alert) {
	now := e.now()

	if err := e.store.UpdateAlertStatus(ctx, alert.ID, models.AlertStatusResolved, now); err != nil {
		e.log.Error().Err(err).
			Int64("alert_id", alert.ID).
			Msg("Alert auto-resolve failed")

		return
	}

	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now

	e.log.Info().
		Str("device_id", alert.DeviceID).
		Int64("alert_id", alert.ID).
		Msg("Alert auto-resolved")

	e.announce(ctx, models.EventAlertResolved, alert)
}

// CreateUptimeAlert fires a synthetic unreachability alert for a device.
// It is idempotent: a no-op while one is already outstanding.
func (e *Engine) CreateUptimeAlert(ctx context.Context, deviceID string) error {
	existing, err := e.store.GetOpenAlert(ctx, deviceID, nil)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("open uptime alert lookup: %w", err)
	}

	if existing != nil {
		return nil
	}

	alert := &models.Alert{
		DeviceID:    deviceID,
		Severity:    models.SeverityCritical,
		Status:      models.AlertStatusActive,
		Message:     "Device unreachable: heartbeat missed",
		TriggeredAt: e.now(),
	}

	id, err := e.store.CreateAlert(ctx, alert)
	if err != nil {
		return fmt.Errorf("create uptime alert: %w", err)
	}

	alert.ID = id

	e.log.Warn().Str("device_id", deviceID).Int64("alert_id", alert.ID).Msg("Uptime alert fired")

	e.announce(ctx, models.EventAlertFired, alert)

	return nil
}

// ResolveUptimeAlert auto-resolves the outstanding unreachability alert on
// a successful heartbeat. No-op when none is open.
func (e *Engine) ResolveUptimeAlert(ctx context.Context, deviceID string) error {
	existing, err := e.store.GetOpenAlert(ctx, deviceID, nil)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("open uptime alert lookup: %w", err)
	}

	e.resolveAlert(ctx, existing)

	return nil
}

// Acknowledge transitions an alert from active to acknowledged.
func (e *Engine) Acknowledge(ctx context.Context, alertID int64) (*models.Alert, error) {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusActive {
		return nil, fmt.Errorf("%w: acknowledge from %q", ErrInvalidTransition, alert.Status)
	}

	now := e.now()
	if err := e.store.UpdateAlertStatus(ctx, alertID, models.AlertStatusAcknowledged, now); err != nil {
		return nil, err
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now

	e.announce(ctx, models.EventAlertAcknowledged, alert)

	return alert, nil
}

// Resolve transitions an alert to resolved from active or acknowledged.
func (e *Engine) Resolve(ctx context.Context, alertID int64) (*models.Alert, error) {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusActive && alert.Status != models.AlertStatusAcknowledged {
		return nil, fmt.Errorf("%w: resolve from %q", ErrInvalidTransition, alert.Status)
	}

	now := e.now()
	if err := e.store.UpdateAlertStatus(ctx, alertID, models.AlertStatusResolved, now); err != nil {
		return nil, err
	}

	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now

	e.announce(ctx, models.EventAlertResolved, alert)

	return alert, nil
}

func (e *Engine) announce(ctx context.Context, event string, alert *models.Alert) {
	e.broadcaster.EmitScoped(ctx, alert.DeviceID, event, alert)

	if e.events == nil {
		return
	}

	data := models.AlertEventData{
		AlertID:     alert.ID,
		DeviceID:    alert.DeviceID,
		ThresholdID: alert.ThresholdID,
		Severity:    alert.Severity,
		Status:      alert.Status,
		Message:     alert.Message,
		Timestamp:   e.now(),
	}

	if err := e.events.PublishAlertEvent(ctx, data); err != nil {
		e.log.Warn().Err(err).Int64("alert_id", alert.ID).Msg("Alert event publish failed")
	}
}

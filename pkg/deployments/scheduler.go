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

// Package deployments owns the lifecycle of script and installer
// deployments: creation, dispatch to online targets, reconnect
// re-dispatch, result recording, cancellation, and expiry.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultExpiry        = 24 * time.Hour
)

var (
	// ErrNoTargets is returned when a deployment names no target devices.
	ErrNoTargets = errors.New("deployments: no target devices")

	// ErrMissingPayload is returned when a deployment carries neither a
	// script body nor an installer URL matching its type.
	ErrMissingPayload = errors.New("deployments: missing script or installer payload")

	// ErrNotCancellable is returned when cancelling a deployment that is
	// already terminal.
	ErrNotCancellable = errors.New("deployments: deployment not cancellable")
)

// CommandSender delivers a deployment command to one device over its live
// session. Implementations correlate the command with request ID
// "dep-{deploymentID}-{deviceID}" so the result routes back here.
type CommandSender interface {
	SendDeployment(ctx context.Context, deviceID string, deployment *models.Deployment) error
}

// Presence answers whether a device currently has a live session.
type Presence interface {
	IsOnline(deviceID string) bool
}

// Broadcaster fans deployment state transitions out to watcher sessions
// scoped to the affected device.
type Broadcaster interface {
	EmitScoped(ctx context.Context, deviceID, event string, payload any)
}

// EventSink publishes deployment lifecycle events to the external event
// stream. Publish failures are non-fatal and only logged.
type EventSink interface {
	PublishDeploymentEvent(ctx context.Context, data models.DeploymentEventData) error
}

// Scheduler drives deployments through pending, running, and terminal
// states. Offline targets are not an error: their result rows stay
// pending and are re-dispatched when the device registers again.
type Scheduler struct {
	store       db.Service
	sender      CommandSender
	presence    Presence
	broadcaster Broadcaster
	events      EventSink
	log         logger.Logger
	now         func() time.Time

	sweepInterval time.Duration
	expiry        time.Duration

	// completeMu serializes the completion check so two concurrent final
	// results do not both announce completion.
	completeMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

func NewScheduler(
	store db.Service,
	sender CommandSender,
	presence Presence,
	broadcaster Broadcaster,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		store:         store,
		sender:        sender,
		presence:      presence,
		broadcaster:   broadcaster,
		log:           log.WithComponent("deployments"),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		expiry:        defaultExpiry,
		done:          make(chan struct{}),
	}
}

// SetEventSink attaches the optional external event stream.
func (s *Scheduler) SetEventSink(sink EventSink) { s.events = sink }

// SetTimings overrides the sweep cadence and the running-deployment
// expiry window. Non-positive values keep the defaults. Must be called
// before Start.
func (s *Scheduler) SetTimings(sweepInterval, expiry time.Duration) {
	if sweepInterval > 0 {
		s.sweepInterval = sweepInterval
	}

	if expiry > 0 {
		s.expiry = expiry
	}
}

// Start launches the periodic sweep that dispatches due scheduled
// deployments and expires stale running ones.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Create persists a deployment with one pending result row per target and
// dispatches immediately unless it is scheduled for the future.
func (s *Scheduler) Create(ctx context.Context, deployment *models.Deployment) (int64, error) {
	if len(deployment.TargetIDs) == 0 {
		return 0, ErrNoTargets
	}

	switch deployment.Type {
	case models.DeploymentTypeScript:
		if deployment.Script == "" {
			return 0, ErrMissingPayload
		}
	case models.DeploymentTypeInstaller:
		if deployment.InstallerURL == "" {
			return 0, ErrMissingPayload
		}
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrMissingPayload, deployment.Type)
	}

	deployment.Status = models.DeploymentPending

	id, err := s.store.CreateDeployment(ctx, deployment)
	if err != nil {
		return 0, fmt.Errorf("create deployment: %w", err)
	}

	if err := s.store.CreateDeploymentResults(ctx, id, deployment.TargetIDs); err != nil {
		return 0, fmt.Errorf("create deployment results: %w", err)
	}

	s.log.Info().
		Int64("deployment_id", id).
		Str("type", string(deployment.Type)).
		Int("targets", len(deployment.TargetIDs)).
		Msg("Deployment created")

	s.publish(ctx, deployment)

	if deployment.ScheduledAt == nil || !deployment.ScheduledAt.After(s.now()) {
		if err := s.Dispatch(ctx, id); err != nil {
			s.log.Error().Err(err).Int64("deployment_id", id).Msg("Initial dispatch failed")
		}
	}

	return id, nil
}

// Dispatch sends the deployment to every target that is online and still
// pending. Offline targets stay pending for reconnect dispatch.
func (s *Scheduler) Dispatch(ctx context.Context, deploymentID int64) error {
	deployment, err := s.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("load deployment: %w", err)
	}

	if deployment.Status == models.DeploymentCompleted || deployment.Status == models.DeploymentCancelled {
		return nil
	}

	pending, err := s.store.ListPendingResults(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("list pending results: %w", err)
	}

	dispatched := 0

	for i := range pending {
		if s.dispatchOne(ctx, deployment, pending[i].DeviceID) {
			dispatched++
		}
	}

	if dispatched > 0 && deployment.Status == models.DeploymentPending {
		if err := s.store.UpdateDeploymentStatus(ctx, deploymentID, models.DeploymentRunning, nil); err != nil {
			return fmt.Errorf("mark deployment running: %w", err)
		}
	}

	return nil
}

// OnReconnect re-dispatches every pending result waiting on a device that
// just registered. Called by the connection registry.
func (s *Scheduler) OnReconnect(ctx context.Context, deviceID string) {
	pending, err := s.store.ListPendingResultsForDevice(ctx, deviceID)
	if err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("Reconnect result lookup failed")
		return
	}

	for i := range pending {
		deployment, err := s.store.GetDeployment(ctx, pending[i].DeploymentID)
		if err != nil {
			s.log.Error().Err(err).
				Int64("deployment_id", pending[i].DeploymentID).
				Msg("Reconnect deployment lookup failed")

			continue
		}

		if deployment.Status == models.DeploymentCompleted || deployment.Status == models.DeploymentCancelled {
			continue
		}

		if !s.dispatchOne(ctx, deployment, deviceID) {
			continue
		}

		if deployment.Status == models.DeploymentPending {
			if err := s.store.UpdateDeploymentStatus(ctx, deployment.ID, models.DeploymentRunning, nil); err != nil {
				s.log.Error().Err(err).
					Int64("deployment_id", deployment.ID).
					Msg("Mark deployment running failed")
			}
		}
	}
}

func (s *Scheduler) dispatchOne(ctx context.Context, deployment *models.Deployment, deviceID string) bool {
	if !s.presence.IsOnline(deviceID) {
		return false
	}

	if err := s.sender.SendDeployment(ctx, deviceID, deployment); err != nil {
		s.log.Debug().Err(err).
			Int64("deployment_id", deployment.ID).
			Str("device_id", deviceID).
			Msg("Deployment send declined, target stays pending")

		return false
	}

	startedAt := s.now()

	if err := s.store.MarkResultRunning(ctx, deployment.ID, deviceID, startedAt); err != nil {
		// Not pending anymore: a concurrent path already dispatched or
		// the row resolved in the meantime.
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error().Err(err).
				Int64("deployment_id", deployment.ID).
				Str("device_id", deviceID).
				Msg("Mark result running failed")
		}

		return false
	}

	s.log.Info().
		Int64("deployment_id", deployment.ID).
		Str("device_id", deviceID).
		Msg("Deployment dispatched to target")

	s.broadcaster.EmitScoped(ctx, deviceID, models.EventDeploymentProgress, &models.DeploymentResult{
		DeploymentID: deployment.ID,
		DeviceID:     deviceID,
		Status:       models.ResultRunning,
		StartedAt:    &startedAt,
	})

	return true
}

// HandleResult records an agent-reported outcome and completes the
// deployment when that was its last open result. A late result for an
// already-terminal row is accepted and logged without reopening anything.
func (s *Scheduler) HandleResult(ctx context.Context, deploymentID int64, deviceID string, outcome *models.ResultOutcome) error {
	err := s.store.RecordResultOutcome(ctx, deploymentID, deviceID, outcome)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.log.Info().
				Int64("deployment_id", deploymentID).
				Str("device_id", deviceID).
				Bool("success", outcome.Success).
				Msg("Late deployment result for terminal row, ignoring")

			return nil
		}

		return fmt.Errorf("record result outcome: %w", err)
	}

	result, err := s.store.GetDeploymentResult(ctx, deploymentID, deviceID)
	if err != nil {
		return fmt.Errorf("load result: %w", err)
	}

	s.broadcaster.EmitScoped(ctx, deviceID, models.EventDeploymentProgress, result)

	return s.finalizeIfDone(ctx, deploymentID)
}

// Cancel moves a pending or running deployment to cancelled and skips its
// pending/uploading results. A result already running on a device is not
// recalled; it resolves normally but its outcome is moot.
func (s *Scheduler) Cancel(ctx context.Context, deploymentID int64) error {
	deployment, err := s.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("load deployment: %w", err)
	}

	if deployment.Status != models.DeploymentPending && deployment.Status != models.DeploymentRunning {
		return fmt.Errorf("%w: status %q", ErrNotCancellable, deployment.Status)
	}

	now := s.now()
	if err := s.store.UpdateDeploymentStatus(ctx, deploymentID, models.DeploymentCancelled, &now); err != nil {
		return fmt.Errorf("cancel deployment: %w", err)
	}

	if err := s.store.SkipOpenResults(ctx, deploymentID, false); err != nil {
		return fmt.Errorf("skip open results: %w", err)
	}

	deployment.Status = models.DeploymentCancelled
	deployment.CompletedAt = &now

	s.log.Info().Int64("deployment_id", deploymentID).Msg("Deployment cancelled")

	s.announceTerminal(ctx, deployment)

	return nil
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := s.now()

	due, err := s.store.ListDueDeployments(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Due deployment sweep failed")
	}

	for i := range due {
		if err := s.Dispatch(ctx, due[i].ID); err != nil {
			s.log.Error().Err(err).Int64("deployment_id", due[i].ID).Msg("Scheduled dispatch failed")
		}
	}

	expired, err := s.store.ListExpiredDeployments(ctx, now.Add(-s.expiry))
	if err != nil {
		s.log.Error().Err(err).Msg("Expired deployment sweep failed")
		return
	}

	for i := range expired {
		s.expire(ctx, &expired[i])
	}
}

// expire forces every still-open result to skipped, even those running on
// a device, then completes the deployment.
func (s *Scheduler) expire(ctx context.Context, deployment *models.Deployment) {
	if err := s.store.SkipOpenResults(ctx, deployment.ID, true); err != nil {
		s.log.Error().Err(err).Int64("deployment_id", deployment.ID).Msg("Expiry skip failed")
		return
	}

	s.log.Warn().
		Int64("deployment_id", deployment.ID).
		Time("created_at", deployment.CreatedAt).
		Msg("Deployment expired, open results skipped")

	if err := s.finalizeIfDone(ctx, deployment.ID); err != nil {
		s.log.Error().Err(err).Int64("deployment_id", deployment.ID).Msg("Expiry completion failed")
	}
}

// finalizeIfDone flips the deployment to completed iff every owned result
// is terminal.
func (s *Scheduler) finalizeIfDone(ctx context.Context, deploymentID int64) error {
	s.completeMu.Lock()
	defer s.completeMu.Unlock()

	open, err := s.store.CountOpenResults(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("count open results: %w", err)
	}

	if open > 0 {
		return nil
	}

	deployment, err := s.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("load deployment: %w", err)
	}

	if deployment.Status == models.DeploymentCompleted || deployment.Status == models.DeploymentCancelled {
		return nil
	}

	now := s.now()
	if err := s.store.UpdateDeploymentStatus(ctx, deploymentID, models.DeploymentCompleted, &now); err != nil {
		return fmt.Errorf("complete deployment: %w", err)
	}

	deployment.Status = models.DeploymentCompleted
	deployment.CompletedAt = &now

	s.log.Info().Int64("deployment_id", deploymentID).Msg("Deployment completed")

	s.announceTerminal(ctx, deployment)

	return nil
}

func (s *Scheduler) announceTerminal(ctx context.Context, deployment *models.Deployment) {
	for _, deviceID := range deployment.TargetIDs {
		s.broadcaster.EmitScoped(ctx, deviceID, models.EventDeploymentCompleted, deployment)
	}

	s.publish(ctx, deployment)
}

func (s *Scheduler) publish(ctx context.Context, deployment *models.Deployment) {
	if s.events == nil {
		return
	}

	data := models.DeploymentEventData{
		DeploymentID: deployment.ID,
		Name:         deployment.Name,
		Status:       deployment.Status,
		Targets:      len(deployment.TargetIDs),
		Timestamp:    s.now(),
	}

	if err := s.events.PublishDeploymentEvent(ctx, data); err != nil {
		s.log.Warn().Err(err).Int64("deployment_id", deployment.ID).Msg("Deployment event publish failed")
	}
}

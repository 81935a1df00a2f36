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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

// ErrDeviceOffline is returned when a command targets a device with no
// live session.
var ErrDeviceOffline = errors.New("core: device offline")

// RequestKind discriminates correlation IDs so result routing is a
// type-safe match instead of string sniffing.
type RequestKind int

const (
	// KindUnknown marks an ID that decoded to no known shape.
	KindUnknown RequestKind = iota

	// KindAdhoc correlates an operator-initiated one-off command.
	KindAdhoc

	// KindDeployment correlates a deployment dispatch to one target.
	KindDeployment
)

// RequestID is the decoded form of a correlation ID. The wire shapes are
// "dep-{deploymentID}-{deviceID}" and "adhoc-{token}"; agents echo them
// back verbatim, so the encoding is part of the protocol.
type RequestID struct {
	Kind         RequestKind
	DeploymentID int64
	DeviceID     string
	Token        string
}

// String encodes the ID back to its wire shape.
func (r RequestID) String() string {
	switch r.Kind {
	case KindDeployment:
		return fmt.Sprintf("dep-%d-%s", r.DeploymentID, r.DeviceID)
	case KindAdhoc:
		return "adhoc-" + r.Token
	default:
		return ""
	}
}

// DeploymentRequestID builds the correlation ID for one deployment target.
func DeploymentRequestID(deploymentID int64, deviceID string) RequestID {
	return RequestID{Kind: KindDeployment, DeploymentID: deploymentID, DeviceID: deviceID}
}

// ParseRequestID decodes a wire correlation ID. Unknown shapes yield
// KindUnknown, never an error: foreign IDs are dropped by the caller.
func ParseRequestID(s string) RequestID {
	switch {
	case strings.HasPrefix(s, "dep-"):
		rest := strings.TrimPrefix(s, "dep-")

		// Device IDs may themselves contain dashes; only the first
		// separator belongs to the encoding.
		idStr, deviceID, ok := strings.Cut(rest, "-")
		if !ok || deviceID == "" {
			return RequestID{}
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return RequestID{}
		}

		return RequestID{Kind: KindDeployment, DeploymentID: id, DeviceID: deviceID}

	case strings.HasPrefix(s, "adhoc-"):
		token := strings.TrimPrefix(s, "adhoc-")
		if token == "" {
			return RequestID{}
		}

		return RequestID{Kind: KindAdhoc, Token: token}

	default:
		return RequestID{}
	}
}

const pendingAdhocTTL = 5 * time.Minute

type pendingAdhoc struct {
	deviceID string
	event    string
	issuedAt time.Time
}

// DeploymentResults receives deployment result payloads routed by
// correlation ID. Implemented by the deployment scheduler.
type DeploymentResults interface {
	HandleResult(ctx context.Context, deploymentID int64, deviceID string, outcome *models.ResultOutcome) error
}

// Dispatcher sends correlated commands to agents and routes their results
// back by decoded request kind.
type Dispatcher struct {
	registry    *Registry
	broadcaster *Broadcast
	deployments DeploymentResults
	log         logger.Logger
	now         func() time.Time
	newToken    func() string

	mu      sync.Mutex
	pending map[string]pendingAdhoc
}

func NewDispatcher(registry *Registry, broadcaster *Broadcast, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		broadcaster: broadcaster,
		log:         log.WithComponent("dispatch"),
		now:         time.Now,
		newToken:    uuid.NewString,
		pending:     make(map[string]pendingAdhoc),
	}
}

// SetDeploymentResults attaches the deployment result consumer. Set once
// at composition time; the scheduler and dispatcher reference each other.
func (d *Dispatcher) SetDeploymentResults(consumer DeploymentResults) {
	d.deployments = consumer
}

// SendAdhoc sends a one-off correlated command to a device and returns
// the request ID. The eventual result is relayed to watchers of the
// device as resultEvent. Offline targets fail immediately.
func (d *Dispatcher) SendAdhoc(_ context.Context, deviceID, msgType string, payload any, resultEvent string) (string, error) {
	handle, ok := d.registry.Agent(deviceID)
	if !ok {
		return "", ErrDeviceOffline
	}

	requestID := RequestID{Kind: KindAdhoc, Token: d.newToken()}.String()

	env, err := commandEnvelope(msgType, requestID, payload)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.pending[requestID] = pendingAdhoc{
		deviceID: deviceID,
		event:    resultEvent,
		issuedAt: d.now(),
	}
	d.mu.Unlock()

	if err := handle.Send(env); err != nil {
		d.mu.Lock()
		delete(d.pending, requestID)
		d.mu.Unlock()

		return "", fmt.Errorf("send %s to %s: %w", msgType, deviceID, err)
	}

	d.log.Debug().
		Str("device_id", deviceID).
		Str("type", msgType).
		Str("request_id", requestID).
		Msg("Ad-hoc command dispatched")

	return requestID, nil
}

// SendDeployment delivers a deployment command to one target with the
// dep-shaped correlation ID. Implements the scheduler's sender contract.
func (d *Dispatcher) SendDeployment(_ context.Context, deviceID string, deployment *models.Deployment) error {
	handle, ok := d.registry.Agent(deviceID)
	if !ok {
		return ErrDeviceOffline
	}

	requestID := DeploymentRequestID(deployment.ID, deviceID).String()

	var (
		env *models.Envelope
		err error
	)

	switch deployment.Type {
	case models.DeploymentTypeInstaller:
		env, err = commandEnvelope(models.AgentMsgInstallerRequest, requestID, models.InstallerCommand{
			URL:        deployment.InstallerURL,
			Args:       deployment.InstallerArgs,
			TimeoutSec: deployment.TimeoutSec,
		})
	default:
		env, err = commandEnvelope(models.AgentMsgScriptRequest, requestID, models.ScriptCommand{
			Script:     deployment.Script,
			TimeoutSec: deployment.TimeoutSec,
			Elevated:   deployment.Elevated,
		})
	}

	if err != nil {
		return err
	}

	if err := handle.Send(env); err != nil {
		return fmt.Errorf("send deployment %d to %s: %w", deployment.ID, deviceID, err)
	}

	return nil
}

// HandleResult routes an agent result by its correlation ID. Returns
// false when the ID belongs to no known request; such results are dropped
// with a log, never forwarded.
func (d *Dispatcher) HandleResult(ctx context.Context, deviceID, rawID string, payload json.RawMessage) bool {
	requestID := ParseRequestID(rawID)

	switch requestID.Kind {
	case KindDeployment:
		if requestID.DeviceID != deviceID {
			d.log.Warn().
				Str("device_id", deviceID).
				Str("request_id", rawID).
				Msg("Deployment result from wrong device, dropping")

			return false
		}

		var outcome models.ResultOutcome
		if err := json.Unmarshal(payload, &outcome); err != nil {
			d.log.Warn().Err(err).Str("request_id", rawID).Msg("Undecodable deployment result, dropping")
			return false
		}

		if err := d.deployments.HandleResult(ctx, requestID.DeploymentID, deviceID, &outcome); err != nil {
			d.log.Error().Err(err).Str("request_id", rawID).Msg("Deployment result handling failed")
		}

		return true

	case KindAdhoc:
		d.mu.Lock()
		entry, ok := d.pending[rawID]
		if ok {
			delete(d.pending, rawID)
		}
		d.mu.Unlock()

		if !ok || entry.deviceID != deviceID {
			d.log.Warn().
				Str("device_id", deviceID).
				Str("request_id", rawID).
				Msg("Unknown or foreign ad-hoc result, dropping")

			return false
		}

		env, err := commandEnvelope(entry.event, rawID, models.DeviceResultEvent{
			DeviceID: deviceID,
			Result:   payload,
		})
		if err != nil {
			d.log.Error().Err(err).Str("request_id", rawID).Msg("Ad-hoc result relay encode failed")
			return true
		}

		d.broadcaster.SendToWatchers(ctx, deviceID, env)

		return true

	default:
		d.log.Warn().
			Str("device_id", deviceID).
			Str("request_id", rawID).
			Msg("Unknown request ID shape, dropping result")

		return false
	}
}

// PruneStale drops ad-hoc correlation entries whose result never arrived.
// Called from the liveness sweep.
func (d *Dispatcher) PruneStale() int {
	cutoff := d.now().Add(-pendingAdhocTTL)

	d.mu.Lock()
	defer d.mu.Unlock()

	pruned := 0

	for id, entry := range d.pending {
		if entry.issuedAt.Before(cutoff) {
			delete(d.pending, id)
			pruned++
		}
	}

	return pruned
}

func commandEnvelope(msgType, requestID string, payload any) (*models.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}

	return &models.Envelope{Type: msgType, RequestID: requestID, Payload: raw}, nil
}

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
	"fmt"

	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

// Broadcast fans events out to watcher sessions, filtered by each
// session's resolved scope. When a device's tenant cannot be resolved the
// event goes to admin watchers only, never cross-tenant.
type Broadcast struct {
	registry *Registry
	tenants  *scope.TenantCache
	log      logger.Logger
}

func NewBroadcast(registry *Registry, tenants *scope.TenantCache, log logger.Logger) *Broadcast {
	return &Broadcast{
		registry: registry,
		tenants:  tenants,
		log:      log.WithComponent("broadcast"),
	}
}

// EmitScoped delivers an event about a device to every watcher whose
// scope covers the device's tenant.
func (b *Broadcast) EmitScoped(ctx context.Context, deviceID, event string, payload any) {
	b.emitScoped(ctx, deviceID, event, payload, "")
}

// EmitScopedExcept is EmitScoped minus one session, used so the session
// that caused a transition does not receive its own echo on top of the
// direct ack.
func (b *Broadcast) EmitScopedExcept(ctx context.Context, deviceID, event string, payload any, exceptSessionID string) {
	b.emitScoped(ctx, deviceID, event, payload, exceptSessionID)
}

func (b *Broadcast) emitScoped(ctx context.Context, deviceID, event string, payload any, exceptSessionID string) {
	env, err := eventEnvelope(event, payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("Broadcast payload encode failed")
		return
	}

	tenantID, known := b.deviceTenant(ctx, deviceID)

	for _, handle := range b.registry.WatcherHandles() {
		if handle.SessionID() == exceptSessionID {
			continue
		}

		if !known && !handle.Scope().IsAdmin {
			continue
		}

		if known && !handle.Scope().Covers(tenantID) {
			continue
		}

		b.deliver(handle, env, event)
	}
}

// EmitGlobal delivers an event to every watcher regardless of scope, used
// for tenant-free state like threshold changes and server notices.
func (b *Broadcast) EmitGlobal(_ context.Context, event string, payload any) {
	env, err := eventEnvelope(event, payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("Broadcast payload encode failed")
		return
	}

	for _, handle := range b.registry.WatcherHandles() {
		b.deliver(handle, env, event)
	}
}

// EmitWatchers delivers a per-device detail event only to sessions that
// both watch the device and are scoped to see it.
func (b *Broadcast) EmitWatchers(ctx context.Context, deviceID, event string, payload any) {
	env, err := eventEnvelope(event, payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("Broadcast payload encode failed")
		return
	}

	b.SendToWatchers(ctx, deviceID, env)
}

// SendToWatchers delivers a prebuilt envelope to the device's watchers,
// still applying the scope filter.
func (b *Broadcast) SendToWatchers(ctx context.Context, deviceID string, env *models.Envelope) {
	tenantID, known := b.deviceTenant(ctx, deviceID)

	for _, handle := range b.registry.WatchersOf(deviceID) {
		if !known && !handle.Scope().IsAdmin {
			continue
		}

		if known && !handle.Scope().Covers(tenantID) {
			continue
		}

		b.deliver(handle, env, env.Type)
	}
}

func (b *Broadcast) deviceTenant(ctx context.Context, deviceID string) (string, bool) {
	tenantID, err := b.tenants.DeviceTenant(ctx, deviceID)
	if err != nil {
		b.log.Debug().Err(err).Str("device_id", deviceID).Msg("Tenant lookup failed, admin-only delivery")
		return "", false
	}

	return tenantID, true
}

func (b *Broadcast) deliver(handle WatcherHandle, env *models.Envelope, event string) {
	if err := handle.Send(env); err != nil {
		b.log.Debug().Err(err).
			Str("session_id", handle.SessionID()).
			Str("event", event).
			Msg("Watcher delivery failed")
	}
}

func eventEnvelope(event string, payload any) (*models.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}

	return &models.Envelope{Type: event, Payload: raw}, nil
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

func newTestBroadcast(t *testing.T) (*Broadcast, *Registry, *db.MockService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	registry := NewRegistry(logger.NewTestLogger())
	tenants := scope.NewTenantCache(store, time.Minute)

	return NewBroadcast(registry, tenants, logger.NewTestLogger()), registry, store
}

// Tenant isolation: a watcher scoped to one tenant set must receive
// events for its tenants' devices and never for anyone else's, while an
// admin sees everything.
func TestBroadcast_EmitScoped_TenantIsolation(t *testing.T) {
	broadcast, registry, store := newTestBroadcast(t)

	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-t1").Return("t1", nil).AnyTimes()
	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-t2").Return("t2", nil).AnyTimes()

	tech1 := newTenantWatcher("sess-t1", "t1")
	tech2 := newTenantWatcher("sess-t2", "t2")
	admin := newAdminWatcher("sess-admin")
	registry.RegisterWatcher(tech1)
	registry.RegisterWatcher(tech2)
	registry.RegisterWatcher(admin)

	broadcast.EmitScoped(context.Background(), "dev-t1", models.EventDeviceStatusChanged,
		models.DeviceStatusEvent{DeviceID: "dev-t1", Online: true})
	broadcast.EmitScoped(context.Background(), "dev-t2", models.EventDeviceStatusChanged,
		models.DeviceStatusEvent{DeviceID: "dev-t2", Online: true})

	assert.Len(t, tech1.sentTypes(), 1)
	assert.Len(t, tech2.sentTypes(), 1)
	assert.Len(t, admin.sentTypes(), 2)

	var got models.DeviceStatusEvent
	require.NoError(t, decodeEnvelope(tech1.lastEnvelope(), &got))
	assert.Equal(t, "dev-t1", got.DeviceID)
}

func TestBroadcast_EmitScoped_UnknownTenantAdminOnly(t *testing.T) {
	broadcast, registry, store := newTestBroadcast(t)

	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-orphan").Return("", db.ErrNotFound).AnyTimes()

	tech := newTenantWatcher("sess-t1", "t1")
	admin := newAdminWatcher("sess-admin")
	registry.RegisterWatcher(tech)
	registry.RegisterWatcher(admin)

	broadcast.EmitScoped(context.Background(), "dev-orphan", models.EventDeviceStatusChanged,
		models.DeviceStatusEvent{DeviceID: "dev-orphan", Online: false})

	assert.Empty(t, tech.sentTypes())
	assert.Equal(t, []string{models.EventDeviceStatusChanged}, admin.sentTypes())
}

func TestBroadcast_EmitScopedExcept(t *testing.T) {
	broadcast, registry, store := newTestBroadcast(t)

	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-t1").Return("t1", nil).AnyTimes()

	actor := newTenantWatcher("sess-actor", "t1")
	peer := newTenantWatcher("sess-peer", "t1")
	registry.RegisterWatcher(actor)
	registry.RegisterWatcher(peer)

	broadcast.EmitScopedExcept(context.Background(), "dev-t1", models.EventAlertAcknowledged,
		models.Alert{ID: 9, DeviceID: "dev-t1"}, "sess-actor")

	assert.Empty(t, actor.sentTypes())
	assert.Equal(t, []string{models.EventAlertAcknowledged}, peer.sentTypes())
}

func TestBroadcast_EmitGlobal(t *testing.T) {
	broadcast, registry, _ := newTestBroadcast(t)

	tech := newTenantWatcher("sess-t1", "t1")
	admin := newAdminWatcher("sess-admin")
	registry.RegisterWatcher(tech)
	registry.RegisterWatcher(admin)

	broadcast.EmitGlobal(context.Background(), models.EventThresholdChanged,
		models.AlertThreshold{ID: 3, CheckType: "cpu"})

	assert.Equal(t, []string{models.EventThresholdChanged}, tech.sentTypes())
	assert.Equal(t, []string{models.EventThresholdChanged}, admin.sentTypes())
}

// Detail events go to the watch-set intersected with scope: watching a
// device a session cannot see yields nothing.
func TestBroadcast_EmitWatchers(t *testing.T) {
	broadcast, registry, store := newTestBroadcast(t)

	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-t1").Return("t1", nil).AnyTimes()

	watching := newTenantWatcher("sess-watching", "t1")
	outOfScope := newTenantWatcher("sess-foreign", "t2")
	notWatching := newTenantWatcher("sess-idle", "t1")
	registry.RegisterWatcher(watching)
	registry.RegisterWatcher(outOfScope)
	registry.RegisterWatcher(notWatching)
	registry.Watch("sess-watching", "dev-t1")
	registry.Watch("sess-foreign", "dev-t1")

	broadcast.EmitWatchers(context.Background(), "dev-t1", models.EventDeviceChatUpdate,
		models.ChatPayload{DeviceID: "dev-t1", From: "agent", Text: "hello"})

	assert.Equal(t, []string{models.EventDeviceChatUpdate}, watching.sentTypes())
	assert.Empty(t, outOfScope.sentTypes())
	assert.Empty(t, notWatching.sentTypes())
}

func TestBroadcast_SendFailureDoesNotStopFanout(t *testing.T) {
	broadcast, registry, store := newTestBroadcast(t)

	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-t1").Return("t1", nil).AnyTimes()

	broken := newTenantWatcher("sess-broken", "t1")
	broken.sendErr = assert.AnError
	healthy := newTenantWatcher("sess-healthy", "t1")
	registry.RegisterWatcher(broken)
	registry.RegisterWatcher(healthy)

	broadcast.EmitScoped(context.Background(), "dev-t1", models.EventDeviceStatusChanged,
		models.DeviceStatusEvent{DeviceID: "dev-t1", Online: true})

	assert.Equal(t, []string{models.EventDeviceStatusChanged}, healthy.sentTypes())
}

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
	"github.com/relayops/fleetdeck/pkg/models"
)

func TestServer_SweepLivenessExpiresQuietAgents(t *testing.T) {
	server, store := newTestServer(t)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	admin := newAdminWatcher("sess-admin")
	server.RegisterWatcher(admin)

	stale := newFakeAgent("dev-stale")
	server.registry.now = func() time.Time { return base }
	server.registry.RegisterAgent(stale)

	fresh := newFakeAgent("dev-fresh")
	server.registry.now = func() time.Time { return base.Add(2 * time.Minute) }
	server.registry.RegisterAgent(fresh)

	server.now = func() time.Time { return base.Add(2 * time.Minute) }

	store.EXPECT().UpdateDeviceStatus(gomock.Any(), "dev-stale", false, gomock.Any()).Return(nil)
	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-stale").Return("t1", nil).AnyTimes()
	store.EXPECT().GetOpenAlert(gomock.Any(), "dev-stale", gomock.Nil()).Return(nil, db.ErrNotFound)
	store.EXPECT().CreateAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert *models.Alert) (int64, error) {
			assert.Equal(t, "dev-stale", alert.DeviceID)
			assert.Nil(t, alert.ThresholdID)
			return 55, nil
		})

	server.sweepLiveness(context.Background())

	assert.True(t, stale.isClosed())
	assert.False(t, server.registry.IsOnline("dev-stale"))
	assert.True(t, server.registry.IsOnline("dev-fresh"))
	assert.False(t, fresh.isClosed())

	require.Equal(t, []string{models.EventDeviceStatusChanged, models.EventAlertFired}, admin.sentTypes())

	var fired models.Alert
	require.NoError(t, decodeEnvelope(admin.lastEnvelope(), &fired))
	assert.Equal(t, int64(55), fired.ID)
}

func TestServer_SweepLivenessNothingStale(t *testing.T) {
	server, _ := newTestServer(t)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	server.registry.now = func() time.Time { return base }
	server.registry.RegisterAgent(newFakeAgent("dev-1"))

	server.now = func() time.Time { return base.Add(time.Minute) }

	server.sweepLiveness(context.Background())

	assert.True(t, server.registry.IsOnline("dev-1"))
}

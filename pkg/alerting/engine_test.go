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

package alerting

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

type capturedEvent struct {
	deviceID string
	event    string
	payload  any
}

type captureBroadcaster struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (b *captureBroadcaster) EmitScoped(_ context.Context, deviceID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, capturedEvent{deviceID: deviceID, event: event, payload: payload})
}

func (b *captureBroadcaster) captured() []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]capturedEvent, len(b.events))
	copy(out, b.events)

	return out
}

func newTestEngine(t *testing.T) (*Engine, *db.MockService, *captureBroadcaster) {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)
	broadcaster := &captureBroadcaster{}

	engine := NewEngine(store, broadcaster, logger.NewTestLogger())
	engine.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	return engine, store, broadcaster
}

func cpuThreshold(consecutive int) models.AlertThreshold {
	return models.AlertThreshold{
		ID:                  7,
		CheckType:           "cpu",
		FieldPath:           "usagePercent",
		Operator:            models.OperatorGreater,
		Value:               90,
		Severity:            models.SeverityCritical,
		ConsecutiveRequired: consecutive,
		Enabled:             true,
	}
}

func TestEngine_Evaluate_HysteresisThenAutoResolve(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	threshold := cpuThreshold(2)

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{threshold}, nil).
		Times(3)

	// First breach only arms the counter; nothing may be created yet.
	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))
	assert.Empty(t, broadcaster.captured())

	// Second consecutive breach fires exactly one alert.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(nil, db.ErrNotFound)
	store.EXPECT().
		CreateAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert *models.Alert) (int64, error) {
			assert.Equal(t, "dev-1", alert.DeviceID)
			require.NotNil(t, alert.ThresholdID)
			assert.Equal(t, threshold.ID, *alert.ThresholdID)
			assert.Equal(t, models.SeverityCritical, alert.Severity)
			assert.Equal(t, models.AlertStatusActive, alert.Status)

			return 41, nil
		})

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))

	events := broadcaster.captured()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventAlertFired, events[0].event)
	assert.Equal(t, "dev-1", events[0].deviceID)

	fired, ok := events[0].payload.(*models.Alert)
	require.True(t, ok)
	assert.Equal(t, int64(41), fired.ID)

	// A healthy reading auto-resolves the open alert.
	open := &models.Alert{
		ID:          41,
		DeviceID:    "dev-1",
		ThresholdID: &threshold.ID,
		Status:      models.AlertStatusActive,
	}
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(open, nil)
	store.EXPECT().
		UpdateAlertStatus(gomock.Any(), int64(41), models.AlertStatusResolved, gomock.Any()).
		Return(nil)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 50}`)))

	events = broadcaster.captured()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventAlertResolved, events[1].event)
}

func TestEngine_Evaluate_NonBreachResetsCounter(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	threshold := cpuThreshold(2)

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{threshold}, nil).
		Times(3)

	// breach, clear, breach: the clear in the middle resets the streak,
	// so the final breach is only hit one of two.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(nil, db.ErrNotFound)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))
	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 10}`)))
	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))

	assert.Empty(t, broadcaster.captured())
}

func TestEngine_Evaluate_NoDoubleFireWhileOpen(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	threshold := cpuThreshold(1)

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{threshold}, nil)
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(&models.Alert{ID: 9, DeviceID: "dev-1", Status: models.AlertStatusActive}, nil)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 99}`)))

	assert.Empty(t, broadcaster.captured())
}

func TestEngine_Evaluate_AutoResolvesAcknowledged(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	threshold := cpuThreshold(1)

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{threshold}, nil)
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(&models.Alert{ID: 12, DeviceID: "dev-1", Status: models.AlertStatusAcknowledged}, nil)
	store.EXPECT().
		UpdateAlertStatus(gomock.Any(), int64(12), models.AlertStatusResolved, gomock.Any()).
		Return(nil)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 10}`)))

	events := broadcaster.captured()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventAlertResolved, events[0].event)
}

func TestEngine_Evaluate_MissingFieldIsNotABreach(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	threshold := cpuThreshold(1)

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{threshold}, nil)
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
		Return(nil, db.ErrNotFound)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"loadAverage": 3.2}`)))

	assert.Empty(t, broadcaster.captured())
}

func TestEngine_Evaluate_UndecodableResultSkipped(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{cpuThreshold(1)}, nil)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`not json`)))

	assert.Empty(t, broadcaster.captured())
}

func TestEngine_UptimeAlerts(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()

	// No open uptime alert: one is created with a nil threshold.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-2", gomock.Nil()).
		Return(nil, db.ErrNotFound)
	store.EXPECT().
		CreateAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert *models.Alert) (int64, error) {
			assert.Nil(t, alert.ThresholdID)
			assert.Equal(t, models.SeverityCritical, alert.Severity)

			return 51, nil
		})

	require.NoError(t, engine.CreateUptimeAlert(ctx, "dev-2"))

	// One already outstanding: no second alert.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-2", gomock.Nil()).
		Return(&models.Alert{ID: 51, DeviceID: "dev-2", Status: models.AlertStatusActive}, nil)

	require.NoError(t, engine.CreateUptimeAlert(ctx, "dev-2"))
	require.Len(t, broadcaster.captured(), 1)

	// The heartbeat path resolves it.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-2", gomock.Nil()).
		Return(&models.Alert{ID: 51, DeviceID: "dev-2", Status: models.AlertStatusActive}, nil)
	store.EXPECT().
		UpdateAlertStatus(gomock.Any(), int64(51), models.AlertStatusResolved, gomock.Any()).
		Return(nil)

	require.NoError(t, engine.ResolveUptimeAlert(ctx, "dev-2"))

	// Resolving again with nothing open is a no-op.
	store.EXPECT().
		GetOpenAlert(gomock.Any(), "dev-2", gomock.Nil()).
		Return(nil, db.ErrNotFound)

	require.NoError(t, engine.ResolveUptimeAlert(ctx, "dev-2"))

	events := broadcaster.captured()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventAlertFired, events[0].event)
	assert.Equal(t, models.EventAlertResolved, events[1].event)
}

func TestEngine_Acknowledge(t *testing.T) {
	tests := []struct {
		name    string
		status  models.AlertStatus
		wantErr error
	}{
		{name: "from_active", status: models.AlertStatusActive},
		{name: "from_acknowledged", status: models.AlertStatusAcknowledged, wantErr: ErrInvalidTransition},
		{name: "from_resolved", status: models.AlertStatusResolved, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, _ := newTestEngine(t)

			store.EXPECT().
				GetAlert(gomock.Any(), int64(3)).
				Return(&models.Alert{ID: 3, DeviceID: "dev-1", Status: tt.status}, nil)

			if tt.wantErr == nil {
				store.EXPECT().
					UpdateAlertStatus(gomock.Any(), int64(3), models.AlertStatusAcknowledged, gomock.Any()).
					Return(nil)
			}

			alert, err := engine.Acknowledge(context.Background(), 3)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
			assert.NotNil(t, alert.AcknowledgedAt)
		})
	}
}

func TestEngine_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		status  models.AlertStatus
		wantErr error
	}{
		{name: "from_active", status: models.AlertStatusActive},
		{name: "from_acknowledged", status: models.AlertStatusAcknowledged},
		{name: "from_resolved", status: models.AlertStatusResolved, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, _ := newTestEngine(t)

			store.EXPECT().
				GetAlert(gomock.Any(), int64(4)).
				Return(&models.Alert{ID: 4, DeviceID: "dev-1", Status: tt.status}, nil)

			if tt.wantErr == nil {
				store.EXPECT().
					UpdateAlertStatus(gomock.Any(), int64(4), models.AlertStatusResolved, gomock.Any()).
					Return(nil)
			}

			alert, err := engine.Resolve(context.Background(), 4)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.AlertStatusResolved, alert.Status)
			assert.NotNil(t, alert.ResolvedAt)
		})
	}
}

func TestEngine_AutoRemediation(t *testing.T) {
	fireAlert := func(store *db.MockService) {
		store.EXPECT().
			ListEnabledThresholds(gomock.Any(), "cpu").
			Return([]models.AlertThreshold{cpuThreshold(1)}, nil)
		store.EXPECT().
			GetOpenAlert(gomock.Any(), "dev-1", gomock.Not(gomock.Nil())).
			Return(nil, db.ErrNotFound)
		store.EXPECT().
			CreateAlert(gomock.Any(), gomock.Any()).
			Return(int64(61), nil)
	}

	t.Run("dispatches_and_stamps_cooldown", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		fireAlert(store)

		policy := &models.AutoRemediationPolicy{
			ID:          2,
			ThresholdID: 7,
			ActionID:    "restart-service",
			Cooldown:    10 * time.Minute,
			Enabled:     true,
		}
		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(policy, nil)
		store.EXPECT().MarkPolicyTriggered(gomock.Any(), int64(2), gomock.Any()).Return(nil)

		var dispatched *models.AutoRemediationPolicy

		engine.SetRemediationFunc(func(_ context.Context, deviceID string, p *models.AutoRemediationPolicy) {
			assert.Equal(t, "dev-1", deviceID)
			dispatched = p
		})

		require.NoError(t, engine.Evaluate(context.Background(), "dev-1", "cpu", json.RawMessage(`{"usagePercent": 99}`)))
		require.NotNil(t, dispatched)
		assert.Equal(t, "restart-service", dispatched.ActionID)
	})

	t.Run("cooldown_suppresses_dispatch", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		fireAlert(store)

		last := engine.now().Add(-time.Minute)
		policy := &models.AutoRemediationPolicy{
			ID:              2,
			ThresholdID:     7,
			ActionID:        "restart-service",
			Cooldown:        10 * time.Minute,
			Enabled:         true,
			LastTriggeredAt: &last,
		}
		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(policy, nil)

		engine.SetRemediationFunc(func(context.Context, string, *models.AutoRemediationPolicy) {
			t.Fatal("remediation fired inside cooldown window")
		})

		require.NoError(t, engine.Evaluate(context.Background(), "dev-1", "cpu", json.RawMessage(`{"usagePercent": 99}`)))
	})

	t.Run("consent_required_suppresses_dispatch", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		fireAlert(store)

		policy := &models.AutoRemediationPolicy{
			ID:             2,
			ThresholdID:    7,
			ActionID:       "restart-service",
			Cooldown:       10 * time.Minute,
			RequireConsent: true,
			Enabled:        true,
		}
		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(policy, nil)

		engine.SetRemediationFunc(func(context.Context, string, *models.AutoRemediationPolicy) {
			t.Fatal("remediation fired without consent")
		})

		require.NoError(t, engine.Evaluate(context.Background(), "dev-1", "cpu", json.RawMessage(`{"usagePercent": 99}`)))
	})

	t.Run("no_policy_is_fine", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		fireAlert(store)

		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(nil, db.ErrNotFound)

		engine.SetRemediationFunc(func(context.Context, string, *models.AutoRemediationPolicy) {
			t.Fatal("remediation fired without a policy")
		})

		require.NoError(t, engine.Evaluate(context.Background(), "dev-1", "cpu", json.RawMessage(`{"usagePercent": 99}`)))
	})
}

func TestEngine_GetTriggerablePolicy(t *testing.T) {
	t.Run("cooldown_elapsed", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)

		last := engine.now().Add(-time.Hour)
		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(&models.AutoRemediationPolicy{
			ID:              2,
			ThresholdID:     7,
			Cooldown:        10 * time.Minute,
			Enabled:         true,
			LastTriggeredAt: &last,
		}, nil)

		policy, err := engine.GetTriggerablePolicy(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(2), policy.ID)
	})

	t.Run("still_cooling_down", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)

		last := engine.now().Add(-time.Minute)
		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(&models.AutoRemediationPolicy{
			ID:              2,
			ThresholdID:     7,
			Cooldown:        10 * time.Minute,
			Enabled:         true,
			LastTriggeredAt: &last,
		}, nil)

		_, err := engine.GetTriggerablePolicy(context.Background(), 7)
		require.ErrorIs(t, err, ErrPolicyCooldown)
	})

	t.Run("disabled", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)

		store.EXPECT().GetPolicyByThreshold(gomock.Any(), int64(7)).Return(&models.AutoRemediationPolicy{
			ID:          2,
			ThresholdID: 7,
		}, nil)

		_, err := engine.GetTriggerablePolicy(context.Background(), 7)
		require.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestEngine_ForgetDeviceResetsStreak(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()

	store.EXPECT().
		ListEnabledThresholds(gomock.Any(), "cpu").
		Return([]models.AlertThreshold{cpuThreshold(2)}, nil).
		Times(2)

	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))
	engine.ForgetDevice("dev-1")
	require.NoError(t, engine.Evaluate(ctx, "dev-1", "cpu", json.RawMessage(`{"usagePercent": 95}`)))

	assert.Empty(t, broadcaster.captured())
}

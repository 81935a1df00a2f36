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

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/relayops/fleetdeck/pkg/auth"
	"github.com/relayops/fleetdeck/pkg/core"
	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject, role string, tenantIDs []string) string {
	t.Helper()

	claims := auth.Claims{
		Role:      role,
		TenantIDs: tenantIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return token
}

func TestCheckOrigin(t *testing.T) {
	cfg := &models.CoreConfig{AllowedOrigins: []string{"https://fleet.example.test"}}
	server := NewAPIServer(nil, cfg, logger.NewTestLogger())

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "allowed", origin: "https://fleet.example.test", want: true},
		{name: "rejected", origin: "https://evil.example.test", want: false},
		{name: "no_origin_header", origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, server.checkOrigin(r))
		})
	}

	wildcard := NewAPIServer(nil, &models.CoreConfig{AllowedOrigins: []string{"*"}}, logger.NewTestLogger())
	r := httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody)
	r.Header.Set("Origin", "https://anywhere.example.test")
	assert.True(t, wildcard.checkOrigin(r))
}

func TestAuthenticateAgent(t *testing.T) {
	t.Run("local_trust_without_secret", func(t *testing.T) {
		server := NewAPIServer(nil, &models.CoreConfig{}, logger.NewTestLogger())

		r := httptest.NewRequest(http.MethodGet, "/ws/agent?device_id=dev-1", http.NoBody)
		deviceID, err := server.authenticateAgent(r)
		require.NoError(t, err)
		assert.Equal(t, "dev-1", deviceID)

		r = httptest.NewRequest(http.MethodGet, "/ws/agent", http.NoBody)
		_, err = server.authenticateAgent(r)
		require.Error(t, err)
	})

	t.Run("token_subject_is_device_id", func(t *testing.T) {
		cfg := &models.CoreConfig{Auth: models.AuthConfig{JWTSecret: testSecret}}
		server := NewAPIServer(nil, cfg, logger.NewTestLogger())

		r := httptest.NewRequest(http.MethodGet, "/ws/agent", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "dev-1", "", nil))

		deviceID, err := server.authenticateAgent(r)
		require.NoError(t, err)
		assert.Equal(t, "dev-1", deviceID)
	})

	t.Run("claimed_id_must_match_token", func(t *testing.T) {
		cfg := &models.CoreConfig{Auth: models.AuthConfig{JWTSecret: testSecret}}
		server := NewAPIServer(nil, cfg, logger.NewTestLogger())

		r := httptest.NewRequest(http.MethodGet, "/ws/agent?device_id=dev-2", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "dev-1", "", nil))

		_, err := server.authenticateAgent(r)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestAuthenticateWatcher(t *testing.T) {
	t.Run("local_admin_without_secret", func(t *testing.T) {
		server := NewAPIServer(nil, &models.CoreConfig{}, logger.NewTestLogger())

		identity, err := server.authenticateWatcher(httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody))
		require.NoError(t, err)
		assert.True(t, identity.IsAdmin())
	})

	t.Run("bearer_token", func(t *testing.T) {
		cfg := &models.CoreConfig{Auth: models.AuthConfig{JWTSecret: testSecret}}
		server := NewAPIServer(nil, cfg, logger.NewTestLogger())

		r := httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "tech@example.test", auth.RoleTechnician, []string{"t1"}))

		identity, err := server.authenticateWatcher(r)
		require.NoError(t, err)
		assert.Equal(t, "tech@example.test", identity.Subject)
		assert.False(t, identity.IsAdmin())
		assert.Equal(t, []string{"t1"}, identity.TenantIDs)
	})

	t.Run("cookie_token", func(t *testing.T) {
		cfg := &models.CoreConfig{Auth: models.AuthConfig{JWTSecret: testSecret}}
		server := NewAPIServer(nil, cfg, logger.NewTestLogger())

		r := httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody)
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: signToken(t, "admin@example.test", auth.RoleAdmin, nil)})

		identity, err := server.authenticateWatcher(r)
		require.NoError(t, err)
		assert.True(t, identity.IsAdmin())
	})

	t.Run("missing_token_rejected", func(t *testing.T) {
		cfg := &models.CoreConfig{Auth: models.AuthConfig{JWTSecret: testSecret}}
		server := NewAPIServer(nil, cfg, logger.NewTestLogger())

		_, err := server.authenticateWatcher(httptest.NewRequest(http.MethodGet, "/ws/watch", http.NoBody))
		require.Error(t, err)
	})
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *models.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))

	return &env
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, env *models.Envelope) {
	t.Helper()

	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(env))
}

// Drives a watcher and an agent through the live gateway: session
// registration, watch requests, and presence fanout.
func TestGatewaySessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	store.EXPECT().UpdateDeviceStatus(gomock.Any(), "dev-1", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().ListPendingResultsForDevice(gomock.Any(), "dev-1").Return(nil, nil).AnyTimes()
	store.EXPECT().GetDeviceTenant(gomock.Any(), "dev-1").Return("t1", nil).AnyTimes()
	store.EXPECT().GetOpenAlert(gomock.Any(), "dev-1", gomock.Nil()).Return(nil, db.ErrNotFound).AnyTimes()

	cfg := &models.CoreConfig{TenantCacheTTL: models.Duration(time.Minute)}
	coreServer := core.NewServer(cfg, store, logger.NewTestLogger())

	ts := httptest.NewServer(NewAPIServer(coreServer, cfg, logger.NewTestLogger()).Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	// No JWT secret configured: the watcher is a trusted local admin.
	watcher, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/watch", nil)
	require.NoError(t, err)
	defer watcher.Close()

	// The ack proves the session is registered before the agent arrives.
	payload, err := json.Marshal(models.WatchDeviceRequest{DeviceID: "dev-1"})
	require.NoError(t, err)
	writeEnvelope(t, watcher, &models.Envelope{Type: models.WatcherMsgWatchDevice, RequestID: "r1", Payload: payload})

	env := readEnvelope(t, watcher)
	require.Equal(t, models.EventAck, env.Type)

	agent, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/agent?device_id=dev-1", nil)
	require.NoError(t, err)
	defer agent.Close()

	env = readEnvelope(t, watcher)
	require.Equal(t, models.EventDeviceStatusChanged, env.Type)

	var status models.DeviceStatusEvent
	require.NoError(t, json.Unmarshal(env.Payload, &status))
	assert.Equal(t, "dev-1", status.DeviceID)
	assert.True(t, status.Online)

	// An agent chat lands on the watching session.
	chat, err := json.Marshal(models.ChatPayload{Text: "printer is on fire"})
	require.NoError(t, err)
	writeEnvelope(t, agent, &models.Envelope{Type: models.AgentMsgChatMessage, Payload: chat})

	env = readEnvelope(t, watcher)
	require.Equal(t, models.EventDeviceChatUpdate, env.Type)

	require.NoError(t, agent.Close())

	env = readEnvelope(t, watcher)
	require.Equal(t, models.EventDeviceStatusChanged, env.Type)
	require.NoError(t, json.Unmarshal(env.Payload, &status))
	assert.False(t, status.Online)
}

func TestGatewayRejectsUnauthenticatedAgent(t *testing.T) {
	cfg := &models.CoreConfig{
		Auth:           models.AuthConfig{JWTSecret: testSecret},
		TenantCacheTTL: models.Duration(time.Minute),
	}

	ctrl := gomock.NewController(t)
	coreServer := core.NewServer(cfg, db.NewMockService(ctrl), logger.NewTestLogger())

	ts := httptest.NewServer(NewAPIServer(coreServer, cfg, logger.NewTestLogger()).Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/agent?device_id=dev-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The upgrade succeeds; the policy violation arrives as a close frame.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

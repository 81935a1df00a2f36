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

// Package api exposes the WebSocket endpoints for agent and watcher
// sessions.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/relayops/fleetdeck/pkg/auth"
	"github.com/relayops/fleetdeck/pkg/core"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

// APIServer upgrades and authenticates WebSocket connections and hands
// the resulting sessions to the core server.
type APIServer struct {
	core     *core.Server
	verifier *auth.Verifier
	config   *models.CoreConfig
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewAPIServer(coreServer *core.Server, config *models.CoreConfig, log logger.Logger) *APIServer {
	s := &APIServer{
		core:   coreServer,
		config: config,
		logger: log.WithComponent("api"),
	}

	if config.Auth.JWTSecret != "" {
		s.verifier = auth.NewVerifier([]byte(config.Auth.JWTSecret), config.Auth.Issuer)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.checkOrigin(r)
		},
	}

	return s
}

// Router mounts the WebSocket endpoints.
func (s *APIServer) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/agent", s.handleAgentSocket)
	mux.HandleFunc("/ws/watch", s.handleWatcherSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// handleAgentSocket is the device channel. Authentication happens after
// the upgrade so a rejection can be delivered as a close frame instead
// of interfering with the handshake.
func (s *APIServer) handleAgentSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Agent WebSocket upgrade failed")

		return
	}

	deviceID, err := s.authenticateAgent(r)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Agent authentication failed")
		closeWithPolicyViolation(conn, "authentication failed")

		return
	}

	session := newAgentSession(conn, deviceID, s.core, s.logger)
	session.run(r.Context())
}

// handleWatcherSocket is the dashboard channel.
func (s *APIServer) handleWatcherSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Watcher WebSocket upgrade failed")

		return
	}

	identity, err := s.authenticateWatcher(r)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Watcher authentication failed")
		closeWithPolicyViolation(conn, "authentication failed")

		return
	}

	session := newWatcherSession(conn, identity.Subject, scope.Resolve(identity), s.core, s.logger)
	session.run(r.Context())
}

// authenticateAgent resolves the connecting device's identity. With a
// JWT secret configured the device presents a token whose subject is its
// device ID; without one, the self-declared ID is trusted for local and
// development deployments.
func (s *APIServer) authenticateAgent(r *http.Request) (string, error) {
	claimed := r.Header.Get("X-Device-ID")
	if claimed == "" {
		claimed = r.URL.Query().Get("device_id")
	}

	if s.verifier == nil {
		if claimed == "" {
			return "", auth.ErrEmptyToken
		}

		return claimed, nil
	}

	identity, err := s.verifier.VerifyToken(bearerToken(r))
	if err != nil {
		return "", err
	}

	if claimed != "" && claimed != identity.Subject {
		return "", auth.ErrInvalidToken
	}

	return identity.Subject, nil
}

// authenticateWatcher verifies the dashboard caller. Without a JWT
// secret configured every watcher is a trusted local admin.
func (s *APIServer) authenticateWatcher(r *http.Request) (auth.Identity, error) {
	if s.verifier == nil {
		return auth.Identity{Subject: "local", Local: true}, nil
	}

	token := bearerToken(r)
	if token == "" {
		// Browsers cannot set headers on WebSocket upgrades, so the
		// token may arrive as a cookie instead.
		if cookie, err := r.Cookie("accessToken"); err == nil {
			token = cookie.Value
		}
	}

	return s.verifier.VerifyToken(token)
}

func (s *APIServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Non-browser clients send no Origin header.
	if origin == "" {
		return true
	}

	for _, allowed := range s.config.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}

	s.logger.Warn().
		Str("origin", origin).
		Strs("allowed_origins", s.config.AllowedOrigins).
		Msg("WebSocket origin not allowed")

	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

func closeWithPolicyViolation(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}

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
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relayops/fleetdeck/pkg/core"
	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	sendQueueSize = 64
)

var errSendQueueFull = errors.New("api: session send queue full")

// wsSession is the shared connection plumbing for both channels: a
// single writer goroutine draining a bounded queue, ping keepalive, and
// a read loop with a pong-refreshed deadline. A session whose queue
// fills is closed rather than allowed to stall the rest of the fanout.
type wsSession struct {
	conn *websocket.Conn
	log  logger.Logger

	sendq chan *models.Envelope

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSSession(conn *websocket.Conn, log logger.Logger) *wsSession {
	return &wsSession{
		conn:   conn,
		log:    log,
		sendq:  make(chan *models.Envelope, sendQueueSize),
		closed: make(chan struct{}),
	}
}

func (s *wsSession) Send(env *models.Envelope) error {
	select {
	case <-s.closed:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case s.sendq <- env:
		return nil
	default:
		s.log.Warn().Str("type", env.Type).Msg("Send queue full, closing slow session")
		s.Close()

		return errSendQueueFull
	}
}

func (s *wsSession) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// writeLoop is the only goroutine that writes to the connection.
func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case env := <-s.sendq:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := s.conn.WriteJSON(env); err != nil {
				s.log.Debug().Err(err).Msg("WebSocket write failed")
				s.Close()

				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug().Err(err).Msg("WebSocket ping failed")
				s.Close()

				return
			}
		}
	}
}

// readLoop decodes inbound frames and hands them to handle until the
// connection dies or the context ends.
func (s *wsSession) readLoop(ctx context.Context, handle func(context.Context, *models.Envelope)) {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("WebSocket read failed")
			}

			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn().Err(err).Msg("Undecodable frame, dropping")
			continue
		}

		handle(ctx, &env)
	}
}

// agentSession adapts a device connection to the core's AgentHandle.
type agentSession struct {
	*wsSession

	deviceID string
	core     *core.Server
}

func newAgentSession(conn *websocket.Conn, deviceID string, coreServer *core.Server, log logger.Logger) *agentSession {
	return &agentSession{
		wsSession: newWSSession(conn, log.WithFields(map[string]interface{}{"device_id": deviceID})),
		deviceID:  deviceID,
		core:      coreServer,
	}
}

func (s *agentSession) DeviceID() string { return s.deviceID }

func (s *agentSession) run(ctx context.Context) {
	go s.writeLoop()

	s.core.RegisterAgent(ctx, s)
	defer func() {
		s.core.UnregisterAgent(context.WithoutCancel(ctx), s)
		s.Close()
	}()

	s.readLoop(ctx, func(ctx context.Context, env *models.Envelope) {
		s.core.HandleAgentMessage(ctx, s, env)
	})
}

// watcherSession adapts a dashboard connection to the core's
// WatcherHandle.
type watcherSession struct {
	*wsSession

	sessionID string
	subject   string
	scp       scope.Scope
	core      *core.Server
}

func newWatcherSession(conn *websocket.Conn, subject string, scp scope.Scope, coreServer *core.Server, log logger.Logger) *watcherSession {
	sessionID := uuid.NewString()

	return &watcherSession{
		wsSession: newWSSession(conn, log.WithFields(map[string]interface{}{
			"session_id": sessionID,
			"subject":    subject,
		})),
		sessionID: sessionID,
		subject:   subject,
		scp:       scp,
		core:      coreServer,
	}
}

func (s *watcherSession) SessionID() string  { return s.sessionID }
func (s *watcherSession) Subject() string    { return s.subject }
func (s *watcherSession) Scope() scope.Scope { return s.scp }

func (s *watcherSession) run(ctx context.Context) {
	go s.writeLoop()

	s.core.RegisterWatcher(s)
	defer func() {
		s.core.UnregisterWatcher(s.sessionID)
		s.Close()
	}()

	s.readLoop(ctx, func(ctx context.Context, env *models.Envelope) {
		s.core.HandleWatcherMessage(ctx, s, env)
	})
}

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

// Package core is the fleet orchestration core: connection registry,
// command correlation, scoped broadcast, session message handling, and
// device liveness.
package core

import (
	"sync"
	"time"

	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

// AgentHandle is the transport side of a device session. Send must not
// block on a slow peer; implementations buffer and drop the session when
// the buffer fills.
type AgentHandle interface {
	DeviceID() string
	Send(env *models.Envelope) error
	Close()
}

// WatcherHandle is the transport side of an operator dashboard session.
// Subject names the authenticated operator for audit entries.
type WatcherHandle interface {
	SessionID() string
	Subject() string
	Scope() scope.Scope
	Send(env *models.Envelope) error
	Close()
}

type agentEntry struct {
	handle   AgentHandle
	lastSeen time.Time
}

type watcherEntry struct {
	handle  WatcherHandle
	watched map[string]struct{}
}

// Registry owns every live session. At most one agent session exists per
// device ID; a new connection for an already-registered ID replaces the
// old handle (last writer wins). Owned by the server's composition root
// and passed by reference, never a package singleton.
type Registry struct {
	log logger.Logger
	now func() time.Time

	mu       sync.RWMutex
	agents   map[string]*agentEntry
	watchers map[string]*watcherEntry
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		log:      log.WithComponent("registry"),
		now:      time.Now,
		agents:   make(map[string]*agentEntry),
		watchers: make(map[string]*watcherEntry),
	}
}

// RegisterAgent installs the handle as the live session for its device,
// returning the handle it replaced, if any. The caller closes the
// replaced handle outside the registry lock.
func (r *Registry) RegisterAgent(handle AgentHandle) AgentHandle {
	deviceID := handle.DeviceID()

	r.mu.Lock()
	var replaced AgentHandle
	if prev, ok := r.agents[deviceID]; ok {
		replaced = prev.handle
	}

	r.agents[deviceID] = &agentEntry{handle: handle, lastSeen: r.now()}
	r.mu.Unlock()

	if replaced != nil {
		r.log.Info().Str("device_id", deviceID).Msg("Agent session replaced by newer connection")
	}

	return replaced
}

// UnregisterAgent removes the device's session only if handle is still the
// live one, so a replaced session's teardown cannot evict its successor.
func (r *Registry) UnregisterAgent(handle AgentHandle) bool {
	deviceID := handle.DeviceID()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.agents[deviceID]
	if !ok || entry.handle != handle {
		return false
	}

	delete(r.agents, deviceID)

	return true
}

// Touch stamps the device's last-heartbeat time.
func (r *Registry) Touch(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.agents[deviceID]; ok {
		entry.lastSeen = r.now()
	}
}

// Agent returns the live handle for a device.
func (r *Registry) Agent(deviceID string) (AgentHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.agents[deviceID]
	if !ok {
		return nil, false
	}

	return entry.handle, true
}

// IsOnline reports whether a device has a live session.
func (r *Registry) IsOnline(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.agents[deviceID]

	return ok
}

// StaleAgents returns handles whose last heartbeat predates the cutoff.
func (r *Registry) StaleAgents(cutoff time.Time) []AgentHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []AgentHandle

	for _, entry := range r.agents {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry.handle)
		}
	}

	return stale
}

// AgentCount returns the number of live agent sessions.
func (r *Registry) AgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.agents)
}

// AgentHandles snapshots every live agent handle, used for fleet-wide
// pushes like update_available.
func (r *Registry) AgentHandles() []AgentHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]AgentHandle, 0, len(r.agents))
	for _, entry := range r.agents {
		handles = append(handles, entry.handle)
	}

	return handles
}

// RegisterWatcher installs a dashboard session.
func (r *Registry) RegisterWatcher(handle WatcherHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watchers[handle.SessionID()] = &watcherEntry{
		handle:  handle,
		watched: make(map[string]struct{}),
	}
}

// UnregisterWatcher tears down a dashboard session's registry entry and
// watch-set, never global state.
func (r *Registry) UnregisterWatcher(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.watchers, sessionID)
}

// Watch adds a device to a watcher session's watch-set.
func (r *Registry) Watch(sessionID, deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.watchers[sessionID]; ok {
		entry.watched[deviceID] = struct{}{}
	}
}

// Unwatch removes a device from a watcher session's watch-set.
func (r *Registry) Unwatch(sessionID, deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.watchers[sessionID]; ok {
		delete(entry.watched, deviceID)
	}
}

// WatcherCount returns the number of live watcher sessions.
func (r *Registry) WatcherCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.watchers)
}

// WatcherHandles snapshots every live watcher handle.
func (r *Registry) WatcherHandles() []WatcherHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]WatcherHandle, 0, len(r.watchers))
	for _, entry := range r.watchers {
		handles = append(handles, entry.handle)
	}

	return handles
}

// WatchersOf snapshots the watcher handles that have deviceID in their
// watch-set.
func (r *Registry) WatchersOf(deviceID string) []WatcherHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handles []WatcherHandle

	for _, entry := range r.watchers {
		if _, ok := entry.watched[deviceID]; ok {
			handles = append(handles, entry.handle)
		}
	}

	return handles
}

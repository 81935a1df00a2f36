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

// Package scope decides which tenants a watcher session may see and maps
// devices to their owning tenant.
package scope

import (
	"context"
	"sync"
	"time"

	"github.com/relayops/fleetdeck/pkg/auth"
)

// Scope is computed once from the caller's verified identity at connect
// time and is immutable for the lifetime of the session.
type Scope struct {
	IsAdmin   bool
	TenantIDs map[string]struct{}
}

// Covers reports whether a device in the given tenant is visible.
func (s Scope) Covers(tenantID string) bool {
	if s.IsAdmin {
		return true
	}

	_, ok := s.TenantIDs[tenantID]

	return ok
}

// Resolve computes the scope for a verified identity. Non-admin callers
// with no tenant assignments see nothing.
func Resolve(identity auth.Identity) Scope {
	if identity.IsAdmin() {
		return Scope{IsAdmin: true}
	}

	tenants := make(map[string]struct{}, len(identity.TenantIDs))
	for _, id := range identity.TenantIDs {
		tenants[id] = struct{}{}
	}

	return Scope{TenantIDs: tenants}
}

// TenantSource looks up the owning tenant of a device in durable storage.
type TenantSource interface {
	GetDeviceTenant(ctx context.Context, deviceID string) (string, error)
}

const defaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	tenantID string
	expires  time.Time
}

// TenantCache caches device-to-tenant mappings with a short TTL so scoped
// broadcasts do not hit storage per event. A stale mapping for up to the
// TTL window is an accepted trade-off.
type TenantCache struct {
	source TenantSource
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewTenantCache(source TenantSource, ttl time.Duration) *TenantCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &TenantCache{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// DeviceTenant resolves the tenant for a device, consulting the cache first.
func (c *TenantCache) DeviceTenant(ctx context.Context, deviceID string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[deviceID]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expires) {
		return entry.tenantID, nil
	}

	tenantID, err := c.source.GetDeviceTenant(ctx, deviceID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[deviceID] = cacheEntry{tenantID: tenantID, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return tenantID, nil
}

// Invalidate drops the cached mapping for a device, used when a device is
// re-assigned to another tenant.
func (c *TenantCache) Invalidate(deviceID string) {
	c.mu.Lock()
	delete(c.entries, deviceID)
	c.mu.Unlock()
}

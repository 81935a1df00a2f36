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

package scope

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayops/fleetdeck/pkg/auth"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		identity  auth.Identity
		wantAdmin bool
		covers    map[string]bool
	}{
		{
			name:      "admin_role_sees_everything",
			identity:  auth.Identity{Subject: "ops", Role: auth.RoleAdmin},
			wantAdmin: true,
			covers:    map[string]bool{"t1": true, "t2": true},
		},
		{
			name:      "local_trusted_sees_everything",
			identity:  auth.Identity{Local: true},
			wantAdmin: true,
			covers:    map[string]bool{"t1": true},
		},
		{
			name:     "technician_sees_assigned_tenants_only",
			identity: auth.Identity{Subject: "tech", Role: auth.RoleTechnician, TenantIDs: []string{"t1"}},
			covers:   map[string]bool{"t1": true, "t2": false},
		},
		{
			name:     "no_assignments_sees_nothing",
			identity: auth.Identity{Subject: "tech", Role: auth.RoleTechnician},
			covers:   map[string]bool{"t1": false, "t2": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Resolve(tt.identity)

			assert.Equal(t, tt.wantAdmin, s.IsAdmin)

			for tenant, want := range tt.covers {
				assert.Equal(t, want, s.Covers(tenant), "tenant %s", tenant)
			}
		})
	}
}

type countingSource struct {
	calls  atomic.Int64
	tenant string
	err    error
}

func (s *countingSource) GetDeviceTenant(_ context.Context, _ string) (string, error) {
	s.calls.Add(1)
	return s.tenant, s.err
}

func TestTenantCache_CachesWithinTTL(t *testing.T) {
	source := &countingSource{tenant: "t1"}
	cache := NewTenantCache(source, time.Minute)

	for i := 0; i < 5; i++ {
		tenant, err := cache.DeviceTenant(context.Background(), "dev-1")
		require.NoError(t, err)
		assert.Equal(t, "t1", tenant)
	}

	assert.Equal(t, int64(1), source.calls.Load())
}

func TestTenantCache_InvalidateForcesLookup(t *testing.T) {
	source := &countingSource{tenant: "t1"}
	cache := NewTenantCache(source, time.Minute)

	_, err := cache.DeviceTenant(context.Background(), "dev-1")
	require.NoError(t, err)

	cache.Invalidate("dev-1")

	source.tenant = "t2"

	tenant, err := cache.DeviceTenant(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "t2", tenant)
	assert.Equal(t, int64(2), source.calls.Load())
}

func TestTenantCache_ExpiredEntryRefreshes(t *testing.T) {
	source := &countingSource{tenant: "t1"}
	cache := NewTenantCache(source, time.Nanosecond)

	_, err := cache.DeviceTenant(context.Background(), "dev-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = cache.DeviceTenant(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.calls.Load())
}

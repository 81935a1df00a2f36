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

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_CeilingWithinWindow(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{OpScript: 5})

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("sess-1", OpScript), "call %d should pass", i+1)
	}

	assert.False(t, limiter.Allow("sess-1", OpScript), "sixth call in window must be rejected")
}

func TestLimiter_WindowRollover(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{OpScript: 2})

	now := time.Now()
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("sess-1", OpScript))
	assert.True(t, limiter.Allow("sess-1", OpScript))
	assert.False(t, limiter.Allow("sess-1", OpScript))

	// Advance past the window boundary; the counter resets to zero.
	limiter.now = func() time.Time { return now.Add(window) }

	assert.True(t, limiter.Allow("sess-1", OpScript))
}

func TestLimiter_SessionsAreIndependent(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{OpDeploy: 1})

	assert.True(t, limiter.Allow("sess-1", OpDeploy))
	assert.False(t, limiter.Allow("sess-1", OpDeploy))
	assert.True(t, limiter.Allow("sess-2", OpDeploy))
}

func TestLimiter_ClassesAreIndependent(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{OpScript: 1, OpBrowse: 1})

	assert.True(t, limiter.Allow("sess-1", OpScript))
	assert.False(t, limiter.Allow("sess-1", OpScript))
	assert.True(t, limiter.Allow("sess-1", OpBrowse))
}

func TestLimiter_UnknownClassNeverLimited(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{})

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("sess-1", OperationClass("mystery")))
	}
}

func TestLimiter_PurgeSession(t *testing.T) {
	limiter := NewLimiter(map[OperationClass]int{OpScript: 1})

	assert.True(t, limiter.Allow("sess-1", OpScript))
	assert.False(t, limiter.Allow("sess-1", OpScript))

	limiter.PurgeSession("sess-1")

	assert.True(t, limiter.Allow("sess-1", OpScript))

	limiter.PurgeSession("sess-1")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.counters)
}

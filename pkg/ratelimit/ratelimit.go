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

// Package ratelimit guards watcher operations with per-session fixed-window
// counters. It is an abuse guard, not a billing meter: counters reset at
// window boundaries rather than sliding.
package ratelimit

import (
	"sync"
	"time"
)

// OperationClass groups watcher operations that share a ceiling.
type OperationClass string

const (
	OpScript   OperationClass = "script"
	OpDeploy   OperationClass = "deploy"
	OpUpload   OperationClass = "upload"
	OpFile     OperationClass = "file"
	OpGuidance OperationClass = "guidance"
	OpBrowse   OperationClass = "browse"
	OpTool     OperationClass = "tool"
)

const window = time.Minute

// DefaultCeilings are the per-minute ceilings per operation class.
var DefaultCeilings = map[OperationClass]int{
	OpScript:   5,
	OpDeploy:   5,
	OpUpload:   10,
	OpFile:     20,
	OpGuidance: 20,
	OpBrowse:   30,
	OpTool:     30,
}

type key struct {
	sessionID string
	class     OperationClass
}

type counter struct {
	count       int
	windowStart time.Time
}

// Limiter is safe for concurrent use by many session handlers.
type Limiter struct {
	mu       sync.Mutex
	counters map[key]*counter
	ceilings map[OperationClass]int
	now      func() time.Time
}

func NewLimiter(ceilings map[OperationClass]int) *Limiter {
	if ceilings == nil {
		ceilings = DefaultCeilings
	}

	return &Limiter{
		counters: make(map[key]*counter),
		ceilings: ceilings,
		now:      time.Now,
	}
}

// Allow records one call for (sessionID, class) and reports whether it is
// within the ceiling. Unknown classes are never limited.
func (l *Limiter) Allow(sessionID string, class OperationClass) bool {
	ceiling, ok := l.ceilings[class]
	if !ok {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{sessionID: sessionID, class: class}

	c, ok := l.counters[k]
	if !ok || now.Sub(c.windowStart) >= window {
		l.counters[k] = &counter{count: 1, windowStart: now}
		return true
	}

	if c.count >= ceiling {
		return false
	}

	c.count++

	return true
}

// PurgeSession drops all counters for a session. Called on disconnect to
// bound memory.
func (l *Limiter) PurgeSession(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.counters {
		if k.sessionID == sessionID {
			delete(l.counters, k)
		}
	}
}

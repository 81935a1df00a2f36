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
	"encoding/json"
	"errors"
	"sync"

	"github.com/relayops/fleetdeck/pkg/models"
	"github.com/relayops/fleetdeck/pkg/scope"
)

func decodeEnvelope(env *models.Envelope, dst any) error {
	if env == nil {
		return errors.New("no envelope delivered")
	}

	return json.Unmarshal(env.Payload, dst)
}

type fakeAgent struct {
	id      string
	sendErr error

	mu     sync.Mutex
	sent   []*models.Envelope
	closed bool
}

func newFakeAgent(id string) *fakeAgent { return &fakeAgent{id: id} }

func (f *fakeAgent) DeviceID() string { return f.id }

func (f *fakeAgent) Send(env *models.Envelope) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, env)

	return nil
}

func (f *fakeAgent) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

func (f *fakeAgent) sentEnvelopes() []*models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.Envelope, len(f.sent))
	copy(out, f.sent)

	return out
}

func (f *fakeAgent) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

type fakeWatcher struct {
	session string
	subject string
	scp     scope.Scope
	sendErr error

	mu   sync.Mutex
	sent []*models.Envelope
}

func newAdminWatcher(session string) *fakeWatcher {
	return &fakeWatcher{session: session, subject: "admin@example.test", scp: scope.Scope{IsAdmin: true}}
}

func newTenantWatcher(session string, tenantIDs ...string) *fakeWatcher {
	tenants := make(map[string]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		tenants[id] = struct{}{}
	}

	return &fakeWatcher{session: session, subject: "tech@example.test", scp: scope.Scope{TenantIDs: tenants}}
}

func (f *fakeWatcher) SessionID() string  { return f.session }
func (f *fakeWatcher) Subject() string    { return f.subject }
func (f *fakeWatcher) Scope() scope.Scope { return f.scp }
func (f *fakeWatcher) Close()             {}

func (f *fakeWatcher) Send(env *models.Envelope) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, env)

	return nil
}

func (f *fakeWatcher) sentTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]string, 0, len(f.sent))
	for _, env := range f.sent {
		types = append(types, env.Type)
	}

	return types
}

func (f *fakeWatcher) lastEnvelope() *models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		return nil
	}

	return f.sent[len(f.sent)-1]
}

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

package natsutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayops/fleetdeck/pkg/models"
)

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:     "adds subject when list empty",
			subjects: nil,
			subject:  "events.alert.lifecycle",
			want:     []string{"events.alert.lifecycle"},
		},
		{
			name:     "keeps list when wildcard matches",
			subjects: []string{"events.alert.*"},
			subject:  "events.alert.lifecycle",
			want:     []string{"events.alert.*"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"events.>"},
			subject:  "events.device.health",
			want:     []string{"events.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"logs.syslog.*"},
			subject:  "events.deployment.lifecycle",
			want:     []string{"logs.syslog.*", "events.deployment.lifecycle"},
		},
		{
			name:     "single token wildcard does not span levels",
			subjects: []string{"events.*"},
			subject:  "events.alert.lifecycle",
			want:     []string{"events.*", "events.alert.lifecycle"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestNewCloudEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	data := models.AlertEventData{AlertID: 7, DeviceID: "dev-1", Severity: models.SeverityCritical, Timestamp: at}

	event := newCloudEvent("com.relayops.fleetdeck.alert", "events.alert.lifecycle", at, data)

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, "fleetdeck/core", event.Source)
	assert.Equal(t, "events.alert.lifecycle", event.Subject)
	assert.NotEmpty(t, event.ID)
	require.NotNil(t, event.Time)
	assert.Equal(t, at, *event.Time)

	// A zero timestamp falls back to the publish time.
	fallback := newCloudEvent("com.relayops.fleetdeck.alert", "events.alert.lifecycle", time.Time{}, data)
	require.NotNil(t, fallback.Time)
	assert.False(t, fallback.Time.IsZero())
}

func TestTLSConfigIncomplete(t *testing.T) {
	t.Parallel()

	_, err := TLSConfig(&models.NATSConfig{CAFile: "/etc/fleetdeck/ca.pem"})
	require.ErrorIs(t, err, ErrTLSIncomplete)
}

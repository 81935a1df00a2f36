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
	"context"
	"time"
)

// runMonitor periodically tears down agent sessions whose heartbeat has
// gone quiet, firing a synthetic uptime alert for each, and prunes stale
// ad-hoc correlation state.
func (s *Server) runMonitor(ctx context.Context) {
	interval := s.config.SweepInterval.Std()
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepLiveness(ctx)

			if pruned := s.dispatcher.PruneStale(); pruned > 0 {
				s.log.Debug().Int("pruned", pruned).Msg("Stale ad-hoc correlations dropped")
			}
		}
	}
}

func (s *Server) sweepLiveness(ctx context.Context) {
	threshold := s.config.OfflineThreshold.Std()
	if threshold <= 0 {
		threshold = defaultOfflineThreshold
	}

	cutoff := s.now().Add(-threshold)

	for _, handle := range s.registry.StaleAgents(cutoff) {
		deviceID := handle.DeviceID()

		// A handle replaced between the snapshot and here loses the
		// race and is skipped.
		if !s.registry.UnregisterAgent(handle) {
			continue
		}

		handle.Close()

		s.log.Warn().
			Str("device_id", deviceID).
			Dur("threshold", threshold).
			Msg("Heartbeat liveness expired, closing agent session")

		s.alerts.ForgetDevice(deviceID)
		s.markDeviceStatus(ctx, deviceID, false)

		if err := s.alerts.CreateUptimeAlert(ctx, deviceID); err != nil {
			s.log.Error().Err(err).Str("device_id", deviceID).Msg("Uptime alert creation failed")
		}
	}
}

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

package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/relayops/fleetdeck/pkg/db"
	"github.com/relayops/fleetdeck/pkg/models"
)

// GetTriggerablePolicy returns the remediation policy bound to a threshold
// iff it is enabled and its cooldown has elapsed. Returns db.ErrNotFound
// when no usable policy exists and ErrPolicyCooldown when one exists but
// is still cooling down. Callers that fire the remediation must call
// MarkTriggered, or the cooldown never starts.
func (e *Engine) GetTriggerablePolicy(ctx context.Context, thresholdID int64) (*models.AutoRemediationPolicy, error) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()

	return e.triggerablePolicyLocked(ctx, thresholdID)
}

func (e *Engine) triggerablePolicyLocked(ctx context.Context, thresholdID int64) (*models.AutoRemediationPolicy, error) {
	policy, err := e.store.GetPolicyByThreshold(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	if !policy.Enabled {
		return nil, db.ErrNotFound
	}

	if policy.LastTriggeredAt != nil && e.now().Sub(*policy.LastTriggeredAt) < policy.Cooldown {
		return nil, ErrPolicyCooldown
	}

	return policy, nil
}

// MarkTriggered stamps the policy's last-triggered time, starting its
// cooldown window.
func (e *Engine) MarkTriggered(ctx context.Context, policyID int64) error {
	if err := e.store.MarkPolicyTriggered(ctx, policyID, e.now()); err != nil {
		return fmt.Errorf("mark policy triggered: %w", err)
	}

	return nil
}

// maybeRemediate fires the consent-free auto-remediation path after an
// alert is created. The cooldown check and the triggered stamp happen
// under one lock so concurrent breaches cannot double-fire within the
// cooldown window.
func (e *Engine) maybeRemediate(ctx context.Context, deviceID string, thresholdID int64) {
	if e.remediate == nil {
		return
	}

	e.policyMu.Lock()

	policy, err := e.triggerablePolicyLocked(ctx, thresholdID)
	if err != nil {
		e.policyMu.Unlock()

		if !errors.Is(err, db.ErrNotFound) && !errors.Is(err, ErrPolicyCooldown) {
			e.log.Error().Err(err).Int64("threshold_id", thresholdID).Msg("Remediation policy lookup failed")
		}

		return
	}

	if policy.RequireConsent {
		// Consent flows through the watcher channel; the engine only
		// surfaces the alert, it never fires on the operator's behalf.
		e.policyMu.Unlock()
		return
	}

	if err := e.store.MarkPolicyTriggered(ctx, policy.ID, e.now()); err != nil {
		e.policyMu.Unlock()
		e.log.Error().Err(err).Int64("policy_id", policy.ID).Msg("Policy trigger stamp failed")

		return
	}

	e.policyMu.Unlock()

	e.log.Info().
		Str("device_id", deviceID).
		Int64("policy_id", policy.ID).
		Str("action_id", policy.ActionID).
		Msg("Auto-remediation dispatched")

	e.remediate(ctx, deviceID, policy)
}

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

// Package natsutil publishes fleet lifecycle events as CloudEvents on
// NATS JetStream so downstream consumers (ticketing, reporting, SIEM)
// can react without coupling to the control plane.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/relayops/fleetdeck/pkg/logger"
	"github.com/relayops/fleetdeck/pkg/models"
)

const (
	eventSource = "fleetdeck/core"

	subjectAlertLifecycle      = "events.alert.lifecycle"
	subjectDeploymentLifecycle = "events.deployment.lifecycle"
	subjectDeviceHealth        = "events.device.health"
)

// EventPublisher publishes CloudEvents to a JetStream stream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
	log    logger.Logger
}

func NewEventPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
		log:    log.WithComponent("events"),
	}
}

// PublishAlertEvent publishes an alert lifecycle transition.
func (p *EventPublisher) PublishAlertEvent(ctx context.Context, data models.AlertEventData) error {
	return p.publish(ctx, "com.relayops.fleetdeck.alert", subjectAlertLifecycle, data.Timestamp, data)
}

// PublishDeploymentEvent publishes a deployment lifecycle transition.
func (p *EventPublisher) PublishDeploymentEvent(ctx context.Context, data models.DeploymentEventData) error {
	return p.publish(ctx, "com.relayops.fleetdeck.deployment", subjectDeploymentLifecycle, data.Timestamp, data)
}

// PublishDeviceHealthEvent publishes a device online/offline transition.
func (p *EventPublisher) PublishDeviceHealthEvent(ctx context.Context, data models.DeviceHealthEventData) error {
	return p.publish(ctx, "com.relayops.fleetdeck.device.health", subjectDeviceHealth, data.Timestamp, data)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, at time.Time, data any) error {
	event := newCloudEvent(eventType, subject, at, data)

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.log.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Msg("Published lifecycle event")

	return nil
}

func newCloudEvent(eventType, subject string, at time.Time, data any) models.CloudEvent {
	ts := at
	if ts.IsZero() {
		ts = time.Now()
	}

	return models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}
}

// Connect dials NATS, ensures the stream covers the lifecycle subjects,
// and returns a ready publisher. The caller owns the connection.
func Connect(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, *nats.Conn, error) {
	opts, err := connectOptions(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.Stream); err != nil {
		nc.Close()
		return nil, nil, err
	}

	return NewEventPublisher(js, cfg.Stream, log), nc, nil
}

func connectOptions(cfg *models.NATSConfig, log logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS async error")
		}),
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" || cfg.CAFile != "" {
		tlsConf, err := TLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	return opts, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, streamName string) error {
	stream, err := js.Stream(ctx, streamName)
	if err == nil {
		info, infoErr := stream.Info(ctx)
		if infoErr != nil {
			return fmt.Errorf("inspect stream %s: %w", streamName, infoErr)
		}

		subjects := info.Config.Subjects
		for _, subject := range []string{subjectAlertLifecycle, subjectDeploymentLifecycle, subjectDeviceHealth} {
			subjects = ensureSubjectList(subjects, subject)
		}

		if len(subjects) == len(info.Config.Subjects) {
			return nil
		}

		info.Config.Subjects = subjects

		if _, err := js.UpdateStream(ctx, info.Config); err != nil {
			return fmt.Errorf("update stream %s: %w", streamName, err)
		}

		return nil
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"events.>"},
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing entry already
// covers it, honoring NATS `*` and `>` wildcards.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, existing := range subjects {
		if subjectMatches(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")

	for i, token := range patternTokens {
		if token == ">" {
			return true
		}

		if i >= len(subjectTokens) {
			return false
		}

		if token != "*" && token != subjectTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(subjectTokens)
}

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

// Package metrics exposes the core's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "fleetdeck_"

// Metrics is an injected instrumentation handle; tests construct isolated
// instances against their own registry.
type Metrics struct {
	registry *prometheus.Registry

	commandsDispatched   *prometheus.CounterVec
	alertsFired          *prometheus.CounterVec
	alertsResolved       prometheus.Counter
	rateLimitRejections  *prometheus.CounterVec
	deploymentsCreated   prometheus.Counter
	deploymentsCompleted *prometheus.CounterVec
	messagesHandled      *prometheus.CounterVec
}

// New builds a Metrics instance backed by its own registry. The connected
// session gauges read live counts through the supplied functions.
func New(agentCount, watcherCount func() float64) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		commandsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "commands_dispatched_total",
			Help: "Commands dispatched to agents by type",
		}, []string{"type"}),
		alertsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "alerts_fired_total",
			Help: "Alerts fired by severity",
		}, []string{"severity"}),
		alertsResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "alerts_resolved_total",
			Help: "Alerts resolved, automatically or by operators",
		}),
		rateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "rate_limit_rejections_total",
			Help: "Watcher requests rejected by the rate limiter, by class",
		}, []string{"class"}),
		deploymentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "deployments_created_total",
			Help: "Deployments created",
		}),
		deploymentsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "deployments_finished_total",
			Help: "Deployments finished by terminal status",
		}, []string{"status"}),
		messagesHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "messages_handled_total",
			Help: "Inbound session messages by channel and type",
		}, []string{"channel", "type"}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: prefix + "connected_agents",
		Help: "Currently connected agent sessions",
	}, agentCount)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: prefix + "connected_watchers",
		Help: "Currently connected watcher sessions",
	}, watcherCount)

	return m
}

// Handler serves this instance's registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncCommandDispatched(msgType string) {
	m.commandsDispatched.WithLabelValues(msgType).Inc()
}

func (m *Metrics) IncAlertFired(severity string) {
	m.alertsFired.WithLabelValues(severity).Inc()
}

func (m *Metrics) IncAlertResolved() {
	m.alertsResolved.Inc()
}

func (m *Metrics) IncRateLimited(class string) {
	m.rateLimitRejections.WithLabelValues(class).Inc()
}

func (m *Metrics) IncDeploymentCreated() {
	m.deploymentsCreated.Inc()
}

func (m *Metrics) IncDeploymentFinished(status string) {
	m.deploymentsCompleted.WithLabelValues(status).Inc()
}

func (m *Metrics) IncMessageHandled(channel, msgType string) {
	m.messagesHandled.WithLabelValues(channel, msgType).Inc()
}

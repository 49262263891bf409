// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package obsagent provides agent.PromptHook implementations that
// record Prometheus metrics and OpenTelemetry spans for a prompt loop,
// without the core agent package knowing observability exists at all.
// All state is scoped to one Hook value; there is no global tracer or
// metrics registry.
package obsagent

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a Hook records into. A
// single Metrics may back hooks for several agents; every series is
// labeled by agent name.
type Metrics struct {
	registry *prometheus.Registry

	promptCalls    *prometheus.CounterVec
	promptDuration *prometheus.HistogramVec
	tokensTotal    *prometheus.CounterVec

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics with its own registry under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.promptCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "calls_total",
		Help:      "Total number of completion calls issued by a prompt loop",
	}, []string{"agent"})

	m.promptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "call_duration_seconds",
		Help:      "Completion call duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"agent"})

	m.tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "tokens_total",
		Help:      "Total tokens reported by completion responses",
	}, []string{"agent"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "calls_total",
		Help:      "Total number of tool invocations",
	}, []string{"agent", "tool"})

	m.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "call_duration_seconds",
		Help:      "Tool invocation duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"agent", "tool"})

	m.registry.MustRegister(
		m.promptCalls, m.promptDuration, m.tokensTotal,
		m.toolCalls, m.toolDuration,
	)
	return m
}

// Registry exposes the collectors for a promhttp.Handler or a
// prometheus exporter pull/push integration.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

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

package obsagent

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider builds an SDK MeterProvider whose instruments are
// exported through reg, so OTel-instrumented libraries and this
// package's own Prometheus collectors surface on a single /metrics
// endpoint. Pass Metrics.Registry() to merge with the hook's series.
func NewMeterProvider(reg *prometheus.Registry) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("obsagent: create prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

// LoopCounters are OTel counter instruments mirroring this package's
// Prometheus series, for callers standardized on the OTel metrics API
// rather than a Prometheus registry.
type LoopCounters struct {
	PromptCalls metric.Int64Counter
	ToolCalls   metric.Int64Counter
	TokensTotal metric.Int64Counter
}

// NewLoopCounters creates the counter instruments on meter.
func NewLoopCounters(meter metric.Meter) (*LoopCounters, error) {
	promptCalls, err := meter.Int64Counter("agent.prompt.calls",
		metric.WithDescription("Total number of completion calls issued by a prompt loop"))
	if err != nil {
		return nil, err
	}
	toolCalls, err := meter.Int64Counter("agent.tool.calls",
		metric.WithDescription("Total number of tool invocations"))
	if err != nil {
		return nil, err
	}
	tokensTotal, err := meter.Int64Counter("agent.prompt.tokens",
		metric.WithDescription("Total tokens reported by completion responses"))
	if err != nil {
		return nil, err
	}
	return &LoopCounters{PromptCalls: promptCalls, ToolCalls: toolCalls, TokensTotal: tokensTotal}, nil
}

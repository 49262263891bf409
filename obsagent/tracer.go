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
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewTracerProvider builds an SDK TracerProvider that writes spans to
// stdout, for local development and tests where no collector is
// running. Production deployments use NewOTLPTracerProvider instead.
func NewTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("obsagent: create stdout exporter: %w", err)
	}
	return newTracerProvider(ctx, exporter, serviceName, 1.0)
}

// NewOTLPTracerProvider builds an SDK TracerProvider exporting spans
// over OTLP/gRPC to a collector at endpoint (host:port). samplingRate
// is a trace-ID-ratio in [0, 1]; pass 1 to sample everything.
func NewOTLPTracerProvider(ctx context.Context, endpoint, serviceName string, samplingRate float64) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("obsagent: create OTLP exporter: %w", err)
	}
	return newTracerProvider(ctx, exporter, serviceName, samplingRate)
}

func newTracerProvider(ctx context.Context, exporter sdktrace.SpanExporter, serviceName string, samplingRate float64) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("obsagent: build resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(samplingRate)),
		sdktrace.WithResource(res),
	), nil
}

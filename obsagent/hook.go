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
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/agentcore/agent"
	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/tokencount"
)

var _ agent.PromptHook[string] = (*Hook[string])(nil)

// Hook is an agent.PromptHook that records Prometheus metrics and
// OpenTelemetry spans for one agent's prompt loops. A single Hook may
// be attached to many PromptRequests for the same agent; per-call
// state for in-flight tool calls is keyed by internalCallID so
// concurrent tool invocations don't clobber each other's timers.
//
// Completion-call timing assumes a Hook instance observes one prompt
// loop at a time (the loop itself is not concurrent); share a
// dedicated Hook per concurrently-running agent rather than reusing
// one across parallel PromptRequests.
type Hook[Raw any] struct {
	agent.Hooks[Raw]

	metrics   *Metrics
	tracer    trace.Tracer
	agentName string

	// estimator backs OnCompletionResponse's token-usage metric when a
	// provider response reports no Usage at all; without it such a
	// provider would silently record 0 tokens forever. Nil disables
	// the fallback.
	estimator *tokencount.Estimator

	completionStart  time.Time
	completionPrompt message.Message

	mu         sync.Mutex
	toolStarts map[string]time.Time
	toolSpans  map[string]trace.Span
}

// NewHook builds a Hook recording into metrics (may be nil to disable
// metrics) and tracer (may be nil to disable tracing), labeling every
// series/span with agentName.
func NewHook[Raw any](metrics *Metrics, tracer trace.Tracer, agentName string) *Hook[Raw] {
	return &Hook[Raw]{
		metrics:    metrics,
		tracer:     tracer,
		agentName:  agentName,
		toolStarts: make(map[string]time.Time),
		toolSpans:  make(map[string]trace.Span),
	}
}

// WithTokenEstimator attaches a tokencount.Estimator used to fill in
// the tokens_total metric when a completion response reports zero
// usage. Returns h for chaining.
func (h *Hook[Raw]) WithTokenEstimator(estimator *tokencount.Estimator) *Hook[Raw] {
	h.estimator = estimator
	return h
}

// OnCompletionCall starts timing the upcoming completion call.
func (h *Hook[Raw]) OnCompletionCall(_ context.Context, prompt message.Message, _ []message.Message) agent.HookAction {
	h.completionStart = time.Now()
	h.completionPrompt = prompt
	if h.metrics != nil {
		h.metrics.promptCalls.WithLabelValues(h.agentName).Inc()
	}
	return agent.Continue()
}

// OnCompletionResponse records the completion call's duration and
// token usage. When resp reports no usage at all and an estimator is
// configured, the metric is backfilled from the prompt/response text
// instead of silently recording zero.
func (h *Hook[Raw]) OnCompletionResponse(_ context.Context, _ message.Message, resp completion.Response[Raw]) agent.HookAction {
	if h.metrics != nil {
		if !h.completionStart.IsZero() {
			h.metrics.promptDuration.WithLabelValues(h.agentName).Observe(time.Since(h.completionStart).Seconds())
		}

		tokens := resp.Usage.TotalTokens
		if tokens == 0 && h.estimator != nil {
			estimated := h.estimator.EstimateResponseUsage(h.completionPrompt, strings.Join(resp.TextParts(), " "))
			tokens = estimated.TotalTokens
		}
		h.metrics.tokensTotal.WithLabelValues(h.agentName).Add(float64(tokens))
	}
	return agent.Continue()
}


// OnToolCall starts a span and timer for one tool invocation.
func (h *Hook[Raw]) OnToolCall(ctx context.Context, toolName, _, internalCallID, _ string) agent.ToolCallHookAction {
	if h.metrics != nil {
		h.metrics.toolCalls.WithLabelValues(h.agentName, toolName).Inc()
	}

	h.mu.Lock()
	h.toolStarts[internalCallID] = time.Now()
	if h.tracer != nil {
		_, span := h.tracer.Start(ctx, "tool_call", trace.WithAttributes(
			attribute.String("agent.name", h.agentName),
			attribute.String("tool.name", toolName),
		))
		h.toolSpans[internalCallID] = span
	}
	h.mu.Unlock()

	return agent.ToolContinue()
}

// OnToolResult closes out the span/timer opened by OnToolCall.
func (h *Hook[Raw]) OnToolResult(_ context.Context, toolName, _, internalCallID, _, _ string) agent.HookAction {
	h.mu.Lock()
	start, hasStart := h.toolStarts[internalCallID]
	span, hasSpan := h.toolSpans[internalCallID]
	delete(h.toolStarts, internalCallID)
	delete(h.toolSpans, internalCallID)
	h.mu.Unlock()

	if h.metrics != nil && hasStart {
		h.metrics.toolDuration.WithLabelValues(h.agentName, toolName).Observe(time.Since(start).Seconds())
	}
	if hasSpan {
		span.End()
	}
	return agent.Continue()
}

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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kadirpekel/agentcore/agent"
	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

func TestHookRecordsCompletionMetrics(t *testing.T) {
	metrics := NewMetrics("testns")
	hook := NewHook[string](metrics, noop.NewTracerProvider().Tracer("test"), "writer")

	ctx := context.Background()
	prompt := message.NewUserTextMessage("hi")

	action := hook.OnCompletionCall(ctx, prompt, nil)
	assert.Equal(t, agent.Continue(), action)

	resp := completion.Response[string]{Usage: completion.Usage{TotalTokens: 42}}
	hook.OnCompletionResponse(ctx, prompt, resp)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.promptCalls.WithLabelValues("writer")))
	assert.Equal(t, float64(42), testutil.ToFloat64(metrics.tokensTotal.WithLabelValues("writer")))
}

func TestHookRecordsToolCallLifecycle(t *testing.T) {
	metrics := NewMetrics("testns2")
	hook := NewHook[string](metrics, noop.NewTracerProvider().Tracer("test"), "writer")

	ctx := context.Background()
	action := hook.OnToolCall(ctx, "search", "call-1", "internal-1", `{"query":"go"}`)
	require.Equal(t, agent.ToolContinue(), action)

	hook.OnToolResult(ctx, "search", "call-1", "internal-1", `{"query":"go"}`, "result text")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.toolCalls.WithLabelValues("writer", "search")))
	assert.Empty(t, hook.toolStarts)
	assert.Empty(t, hook.toolSpans)
}

func TestHookToleratesNilMetricsAndTracer(t *testing.T) {
	hook := NewHook[string](nil, nil, "writer")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		hook.OnCompletionCall(ctx, message.NewUserTextMessage("hi"), nil)
		hook.OnCompletionResponse(ctx, message.NewUserTextMessage("hi"), completion.Response[string]{})
		hook.OnToolCall(ctx, "search", "call-1", "internal-1", "{}")
		hook.OnToolResult(ctx, "search", "call-1", "internal-1", "{}", "ok")
	})
}

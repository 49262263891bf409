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

package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/agent"
	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/tool"
)

// scriptedModel replays a fixed sequence of responses, one per call,
// and records every request it was sent.
type scriptedModel struct {
	responses []completion.Response[string]
	requests  []completion.Request
	calls     int
}

func (m *scriptedModel) Completion(_ context.Context, req completion.Request) (completion.Response[string], error) {
	m.requests = append(m.requests, req)
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func textResponse(text string) completion.Response[string] {
	msg, _ := message.NewAssistantMessage("", message.Text{Text: text})
	return completion.Response[string]{Choice: msg.Assistant.Content}
}

func toolCallResponse(id, name string, args map[string]any) completion.Response[string] {
	msg, _ := message.NewAssistantMessage("", message.ToolCall{
		ID:       id,
		Function: message.ToolCallFunction{Name: name, Arguments: args},
	})
	return completion.Response[string]{Choice: msg.Assistant.Content}
}

type addArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type addResult struct {
	Sum int `json:"sum"`
}

type adder struct{}

func (adder) Name() string { return "add" }
func (adder) Definition(_ context.Context, _ string) completion.ToolDefinition {
	return completion.ToolDefinition{Name: "add"}
}
func (adder) Call(_ context.Context, args addArgs) (addResult, error) {
	return addResult{Sum: args.X + args.Y}, nil
}

func TestSendReturnsTextWhenNoToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{textResponse("hello there")}}
	a := agent.NewBuilder[string](model).Build()

	out, err := a.Prompt("hi").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestSendExecutesToolCallAndLoopsBack(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "add", map[string]any{"x": 2.0, "y": 3.0}),
		textResponse("the sum is 5"),
	}}
	b := agent.NewBuilder[string](model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	out, err := a.Prompt("add 2 and 3").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "the sum is 5", out)
	assert.Equal(t, 2, model.calls)
}

func TestSendFailsAfterMaxDepth(t *testing.T) {
	responses := make([]completion.Response[string], 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, toolCallResponse("call", "add", map[string]any{"x": 1.0, "y": 1.0}))
	}
	model := &scriptedModel{responses: responses}
	b := agent.NewBuilder[string](model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	_, err := a.Prompt("loop forever").MaxDepth(2).Send(context.Background())
	require.Error(t, err)

	var maxDepthErr *agent.MaxDepthError
	require.ErrorAs(t, err, &maxDepthErr)
	assert.Equal(t, 2, maxDepthErr.MaxDepth)
}

func TestSendUnknownToolSurfacesAsTextResult(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "missing", map[string]any{}),
		textResponse("ok"),
	}}
	a := agent.NewBuilder[string](model).Build()

	out, err := a.Prompt("go").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	// the second completion call's request history should contain a
	// tool result for the unresolved call
	require.Len(t, model.requests, 2)
	history := model.requests[1].Messages()
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	require.NotNil(t, last.User)
}

type terminatingHook struct {
	agent.Hooks[string]
	reason string
}

func (h terminatingHook) OnToolCall(_ context.Context, _ string, _, _, _ string) agent.ToolCallHookAction {
	return agent.ToolTerminate(h.reason)
}

func TestHookTerminateStopsLoopImmediately(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "add", map[string]any{"x": 1.0, "y": 1.0}),
	}}
	b := agent.NewBuilder[string](model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	out, err := a.Prompt("go").Hook(terminatingHook{reason: "stopped by policy"}).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stopped by policy", out)
	assert.Equal(t, 1, model.calls)
}

type skippingHook struct {
	agent.Hooks[string]
}

func (skippingHook) OnToolCall(_ context.Context, _ string, _, _, _ string) agent.ToolCallHookAction {
	return agent.ToolSkip("not allowed")
}

func TestHookSkipRecordsReasonAsResultAndContinues(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "add", map[string]any{"x": 1.0, "y": 1.0}),
		textResponse("done"),
	}}
	b := agent.NewBuilder[string](model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	out, err := a.Prompt("go").Hook(skippingHook{}).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	history := model.requests[1].Messages()
	last := history[len(history)-1]
	require.NotNil(t, last.User)
	tr, ok := last.User.Content.First().(message.ToolResult)
	require.True(t, ok)
	text, ok := tr.Content.First().(message.ToolResultText)
	require.True(t, ok)
	assert.Equal(t, "not allowed", text.Text)
}

func TestDynamicToolsResolvedPerTurn(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "add", map[string]any{"x": 4.0, "y": 5.0}),
		textResponse("9"),
	}}
	dynToolSet := tool.NewSet(tool.AsDyn[addArgs, addResult](adder{}))
	a := agent.NewBuilder[string](model).
		DynamicTools(1, fakeToolIndex{}, dynToolSet).
		Build()

	out, err := a.Prompt("add 4 and 5").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9", out)
}

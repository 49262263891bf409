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
)

// fakeStream replays a fixed sequence of items, recording Final usage.
type fakeStream struct {
	items []completion.StreamedAssistantContent
	idx   int
	usage completion.Usage
}

func (s *fakeStream) Next() (completion.StreamedAssistantContent, bool, error) {
	if s.idx >= len(s.items) {
		return completion.StreamedAssistantContent{}, false, nil
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

func (s *fakeStream) Final() (completion.Usage, string) {
	return s.usage, ""
}

func textDelta(text string) completion.StreamedAssistantContent {
	return completion.StreamedAssistantContent{Kind: completion.StreamedText, TextDelta: text}
}

func finalItem() completion.StreamedAssistantContent {
	return completion.StreamedAssistantContent{Kind: completion.StreamedFinal}
}

func toolCallItem(id, name string, args map[string]any) completion.StreamedAssistantContent {
	return completion.StreamedAssistantContent{
		Kind: completion.StreamedToolCall,
		ToolCall: message.ToolCall{
			ID:       id,
			Function: message.ToolCallFunction{Name: name, Arguments: args},
		},
	}
}

// scriptedStreamingModel replays one fakeStream per call, recording
// every request it was sent.
type scriptedStreamingModel struct {
	streams  []*fakeStream
	requests []completion.Request
	calls    int
}

func (m *scriptedStreamingModel) StreamCompletion(_ context.Context, req completion.Request) (completion.StreamingResponse[string], error) {
	m.requests = append(m.requests, req)
	s := m.streams[m.calls]
	m.calls++
	return s, nil
}

func drainStream(t *testing.T, ch <-chan agent.StreamEvent) []agent.StreamEvent {
	t.Helper()
	var events []agent.StreamEvent
	for ev := range ch {
		events = append(events, ev)
		if ev.Err != nil {
			break
		}
	}
	return events
}

func TestStreamForwardsTextDeltasAndEmitsFinalResponse(t *testing.T) {
	model := &scriptedStreamingModel{streams: []*fakeStream{
		{items: []completion.StreamedAssistantContent{
			textDelta("hel"), textDelta("lo"), finalItem(),
		}, usage: completion.Usage{TotalTokens: 9}},
	}}
	a := agent.NewBuilder[string](nonStreamingModel{}).
		WithStreaming(model).
		Build()

	events := drainStream(t, a.Prompt("hi").Stream(context.Background()))
	require.NotEmpty(t, events)

	var deltas []string
	for _, ev := range events {
		require.NoError(t, ev.Err)
		if ev.Item.Kind == agent.StreamItemKind {
			deltas = append(deltas, ev.Item.Content.TextDelta)
		}
	}
	assert.Equal(t, []string{"hel", "lo"}, deltas)

	last := events[len(events)-1]
	assert.Equal(t, agent.FinalResponseKind, last.Item.Kind)
	assert.Equal(t, "hello", last.Item.Final.AggregatedText)
	assert.Equal(t, 9, last.Item.Final.Usage.TotalTokens)
}

func TestStreamExecutesToolCallAndEmitsSyntheticResultItem(t *testing.T) {
	model := &scriptedStreamingModel{streams: []*fakeStream{
		{items: []completion.StreamedAssistantContent{
			toolCallItem("call_1", "add", map[string]any{"x": 2.0, "y": 3.0}),
			finalItem(),
		}},
		{items: []completion.StreamedAssistantContent{
			textDelta("the sum is 5"), finalItem(),
		}},
	}}
	b := agent.NewBuilder[string](nonStreamingModel{}).WithStreaming(model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	events := drainStream(t, a.Prompt("add 2 and 3").Stream(context.Background()))
	require.NotEmpty(t, events)

	var sawToolResultText bool
	for _, ev := range events {
		require.NoError(t, ev.Err)
		if ev.Item.Kind == agent.StreamItemKind && ev.Item.Content.TextDelta == `{"sum":5}` {
			sawToolResultText = true
		}
	}
	assert.True(t, sawToolResultText)

	last := events[len(events)-1]
	assert.Equal(t, agent.FinalResponseKind, last.Item.Kind)
	assert.Equal(t, "the sum is 5", last.Item.Final.AggregatedText)
	assert.Equal(t, 2, model.calls)
}

func TestStreamHookTerminateDuringToolCallEndsWithFinalReason(t *testing.T) {
	model := &scriptedStreamingModel{streams: []*fakeStream{
		{items: []completion.StreamedAssistantContent{
			toolCallItem("call_1", "add", map[string]any{"x": 1.0, "y": 1.0}),
			finalItem(),
		}},
	}}
	b := agent.NewBuilder[string](nonStreamingModel{}).WithStreaming(model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.Build()

	events := drainStream(t, a.Prompt("go").Hook(terminatingHook{reason: "stopped mid-stream"}).Stream(context.Background()))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, agent.FinalResponseKind, last.Item.Kind)
	assert.Equal(t, "stopped mid-stream", last.Item.Final.AggregatedText)
	assert.Equal(t, 1, model.calls)
}

func TestStreamWithoutStreamingModelFailsFast(t *testing.T) {
	a := agent.NewBuilder[string](nonStreamingModel{}).Build()

	events := drainStream(t, a.Prompt("hi").Stream(context.Background()))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, agent.ErrNoStreamingModel)
}

// nonStreamingModel is a Model[string] stub used only to satisfy
// NewBuilder's non-streaming requirement in streaming-only tests.
type nonStreamingModel struct{}

func (nonStreamingModel) Completion(_ context.Context, _ completion.Request) (completion.Response[string], error) {
	return completion.Response[string]{}, nil
}

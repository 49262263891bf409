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

package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	s.lastParams = body
	return ssestream.NewStream[sdk.MessageStreamEventUnion](&noopDecoder{}, nil)
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func baseRequest(t *testing.T, text string) completion.Request {
	t.Helper()
	return completion.Request{
		Preamble: "be terse",
		Prompt:   message.NewUserTextMessage(text),
	}
}

func TestCompletionTranslatesTextResponse(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "hello there"}},
		Usage:   sdk.Usage{InputTokens: 10, OutputTokens: 5},
	}}
	client := New(stub, "claude-3-5-sonnet-20241022", 256)

	resp, err := client.Completion(context.Background(), baseRequest(t, "hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello there"}, resp.TextParts())
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "be terse", string(stub.lastParams.System[0].Text))
}

func TestCompletionTranslatesToolUseResponse(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{
			Type:  "tool_use",
			ID:    "call_1",
			Name:  "lookup",
			Input: []byte(`{"query":"weather"}`),
		}},
		Usage: sdk.Usage{InputTokens: 20, OutputTokens: 8},
	}}
	client := New(stub, "claude-3-5-sonnet-20241022", 256)

	req := baseRequest(t, "what's the weather")
	req.Tools = []completion.ToolDefinition{{
		Name:        "lookup",
		Description: "looks things up",
		Parameters:  map[string]any{"type": "object"},
	}}
	choice := completion.Required()
	req.ToolChoice = &choice

	resp, err := client.Completion(context.Background(), req)
	require.NoError(t, err)
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Function.Name)
	assert.Equal(t, "weather", calls[0].Function.Arguments["query"])
	require.Len(t, stub.lastParams.Tools, 1)
}

func TestCompletionPropagatesProviderError(t *testing.T) {
	stub := &stubMessagesClient{err: assertError{"rate limited"}}
	client := New(stub, "claude-3-5-sonnet-20241022", 256)

	_, err := client.Completion(context.Background(), baseRequest(t, "hi"))
	require.Error(t, err)
	assert.True(t, completion.IsKind(err, completion.ErrHTTP))
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

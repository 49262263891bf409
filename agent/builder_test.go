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
	"github.com/kadirpekel/agentcore/tool"
)

func TestBuilderAppendPreambleJoinsWithBlankLine(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{textResponse("ok")}}
	a := agent.NewBuilder[string](model).
		Preamble("base").
		AppendPreamble("extra").
		Build()

	_, err := a.Prompt("hi").Send(context.Background())
	require.NoError(t, err)
	require.Len(t, model.requests, 1)
	assert.Equal(t, "base\n\nextra", model.requests[0].Preamble)
}

func TestBuilderContextAssignsSequentialStaticDocIDs(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{textResponse("ok")}}
	a := agent.NewBuilder[string](model).
		Context("first doc").
		Context("second doc").
		Build()

	_, err := a.Prompt("hi").Send(context.Background())
	require.NoError(t, err)

	docs := model.requests[0].Documents
	require.Len(t, docs, 2)
	assert.Equal(t, "static_doc_0", docs[0].ID)
	assert.Equal(t, "first doc", docs[0].Text)
	assert.Equal(t, "static_doc_1", docs[1].ID)
	assert.Equal(t, "second doc", docs[1].Text)
}

func TestBuilderDocumentPreservesCallerSuppliedID(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{textResponse("ok")}}
	a := agent.NewBuilder[string](model).
		Document(completion.Document{ID: "doc-7", Text: "custom"}).
		Build()

	_, err := a.Prompt("hi").Send(context.Background())
	require.NoError(t, err)

	docs := model.requests[0].Documents
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-7", docs[0].ID)
}

func TestBuilderToolChoiceTemperatureMaxTokensAdditionalParamsFlowIntoRequest(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{textResponse("ok")}}
	a := agent.NewBuilder[string](model).
		ToolChoice(completion.Required()).
		Temperature(0.25).
		MaxTokens(128).
		AdditionalParams(map[string]any{"top_p": 0.9}).
		Build()

	_, err := a.Prompt("hi").Send(context.Background())
	require.NoError(t, err)

	req := model.requests[0]
	require.NotNil(t, req.ToolChoice)
	assert.Equal(t, completion.ToolChoiceRequired, req.ToolChoice.Kind)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.25, *req.Temperature)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 128, *req.MaxTokens)
	assert.Equal(t, 0.9, req.AdditionalParams["top_p"])
}

func TestBuilderDefaultMaxDepthAppliesWhenRequestDoesNotOverride(t *testing.T) {
	responses := make([]completion.Response[string], 0, 5)
	for i := 0; i < 5; i++ {
		responses = append(responses, toolCallResponse("call", "add", map[string]any{"x": 1.0, "y": 1.0}))
	}
	model := &scriptedModel{responses: responses}
	b := agent.NewBuilder[string](model)
	agent.Tool[string, addArgs, addResult](b, adder{})
	a := b.DefaultMaxDepth(1).Build()

	_, err := a.Prompt("loop").Send(context.Background())
	require.Error(t, err)

	var maxDepthErr *agent.MaxDepthError
	require.ErrorAs(t, err, &maxDepthErr)
	assert.Equal(t, 1, maxDepthErr.MaxDepth)
}

func TestBuilderToolsRegistersStaticDynTools(t *testing.T) {
	model := &scriptedModel{responses: []completion.Response[string]{
		toolCallResponse("call_1", "add", map[string]any{"x": 1.0, "y": 2.0}),
		textResponse("3"),
	}}
	a := agent.NewBuilder[string](model).
		Tools(tool.AsDyn[addArgs, addResult](adder{})).
		Build()

	out, err := a.Prompt("add").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

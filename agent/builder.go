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

package agent

import (
	"strconv"
	"strings"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/tool"
	"github.com/kadirpekel/agentcore/vectorstore"
)

const defaultMaxDepth = 5

type dynamicContextSource struct {
	samples int
	index   vectorstore.Index[string]
}

type dynamicToolSource struct {
	samples int
	index   vectorstore.Index[string]
	toolset *tool.Set
}

// Agent is an immutable, reusable prompt configuration bound to a
// single completion model: preamble, static/dynamic context, static/
// dynamic tools, and default sampling parameters. An Agent is safe for
// concurrent use — PromptRequest.Send does not mutate it.
type Agent[Raw any] struct {
	model            completion.Model[Raw]
	streamingModel   completion.StreamingModel[Raw]
	preamble         string
	staticContext    []completion.Document
	staticTools      *tool.Set
	dynamicContext   []dynamicContextSource
	dynamicTools     []dynamicToolSource
	toolChoice       *completion.ToolChoice
	temperature      *float64
	maxTokens        *int
	additionalParams map[string]any
	defaultMaxDepth  int
}

// Builder constructs an Agent via a fluent setter chain.
type Builder[Raw any] struct {
	agent Agent[Raw]
}

// NewBuilder starts a builder bound to model.
func NewBuilder[Raw any](model completion.Model[Raw]) *Builder[Raw] {
	return &Builder[Raw]{agent: Agent[Raw]{
		model:       model,
		staticTools: tool.NewSet(),
	}}
}

// WithStreaming additionally binds a streaming-capable model for
// Stream. Most providers implement both completion.Model and
// completion.StreamingModel on the same client type, but the two are
// bound independently to let a caller compose a non-streaming model
// with a distinct streaming transport if needed.
func (b *Builder[Raw]) WithStreaming(model completion.StreamingModel[Raw]) *Builder[Raw] {
	b.agent.streamingModel = model
	return b
}

// Preamble sets the system preamble, replacing any previous value.
func (b *Builder[Raw]) Preamble(preamble string) *Builder[Raw] {
	b.agent.preamble = preamble
	return b
}

// AppendPreamble appends to the existing preamble, separated by a
// blank line.
func (b *Builder[Raw]) AppendPreamble(extra string) *Builder[Raw] {
	if b.agent.preamble == "" {
		b.agent.preamble = extra
	} else {
		b.agent.preamble = strings.Join([]string{b.agent.preamble, extra}, "\n\n")
	}
	return b
}

// Context adds a static document to every request, identified by its
// position in insertion order.
func (b *Builder[Raw]) Context(text string) *Builder[Raw] {
	id := "static_doc_" + strconv.Itoa(len(b.agent.staticContext))
	b.agent.staticContext = append(b.agent.staticContext, completion.Document{ID: id, Text: text})
	return b
}

// Document adds a static document verbatim, with caller-controlled ID
// and metadata.
func (b *Builder[Raw]) Document(doc completion.Document) *Builder[Raw] {
	b.agent.staticContext = append(b.agent.staticContext, doc)
	return b
}

// Tool registers a typed tool, adapted to a dyn tool automatically.
func Tool[Raw, Args, Output any](b *Builder[Raw], t tool.Typed[Args, Output]) *Builder[Raw] {
	b.agent.staticTools.AddTool(tool.AsDyn[Args, Output](t))
	return b
}

// Tools registers a pre-erased list of dyn tools in one call.
func (b *Builder[Raw]) Tools(tools ...tool.DynTool) *Builder[Raw] {
	for _, t := range tools {
		b.agent.staticTools.AddTool(t)
	}
	return b
}

// DynamicContext registers a retrieval source contributing up to
// samples documents per turn, selected by similarity to the prompt's
// rag_text.
func (b *Builder[Raw]) DynamicContext(samples int, index vectorstore.Index[string]) *Builder[Raw] {
	b.agent.dynamicContext = append(b.agent.dynamicContext, dynamicContextSource{samples: samples, index: index})
	return b
}

// DynamicTools registers a retrieval source selecting up to samples
// tool names per turn from toolset, by similarity to the prompt's
// rag_text.
func (b *Builder[Raw]) DynamicTools(samples int, index vectorstore.Index[string], toolset *tool.Set) *Builder[Raw] {
	b.agent.dynamicTools = append(b.agent.dynamicTools, dynamicToolSource{samples: samples, index: index, toolset: toolset})
	return b
}

func (b *Builder[Raw]) ToolChoice(choice completion.ToolChoice) *Builder[Raw] {
	b.agent.toolChoice = &choice
	return b
}

func (b *Builder[Raw]) Temperature(t float64) *Builder[Raw] {
	b.agent.temperature = &t
	return b
}

func (b *Builder[Raw]) MaxTokens(n int) *Builder[Raw] {
	b.agent.maxTokens = &n
	return b
}

func (b *Builder[Raw]) AdditionalParams(params map[string]any) *Builder[Raw] {
	b.agent.additionalParams = params
	return b
}

// DefaultMaxDepth sets the max_depth used by PromptRequest when the
// caller doesn't override it. Defaults to 5.
func (b *Builder[Raw]) DefaultMaxDepth(n int) *Builder[Raw] {
	b.agent.defaultMaxDepth = n
	return b
}

// Build finalizes the Agent.
func (b *Builder[Raw]) Build() *Agent[Raw] {
	a := b.agent
	if a.defaultMaxDepth == 0 {
		a.defaultMaxDepth = defaultMaxDepth
	}
	return &a
}

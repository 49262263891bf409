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

// Package completion defines the provider-agnostic completion
// contract: the request/response model, the Model interface every
// provider adapter implements, and the fluent request builder.
package completion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/oneormany"
)

// Usage is additive token accounting that can be accumulated across
// requests with Add (the Extractor sums it across retries).
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add returns the element-wise sum of two Usage values.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Document is a context document injected into a turn: opaque text
// with an id and optional key/value metadata. Static agent context
// documents are assigned ids "static_doc_{i}"; dynamic context
// documents use whatever id the vector index returns.
type Document struct {
	ID              string
	Text            string
	AdditionalProps map[string]string
}

// Render formats a Document as "<file id: {id}>\n{body}\n</file>",
// optionally prefixed by a sorted "<metadata k: v .../>" line when
// AdditionalProps is non-empty. The fixed template and sorted metadata
// keys are what make two runs with identical inputs produce
// byte-identical request payloads.
func (d Document) Render() string {
	if len(d.AdditionalProps) == 0 {
		return fmt.Sprintf("<file id: %s>\n%s\n</file>\n", d.ID, d.Text)
	}
	keys := make([]string, 0, len(d.AdditionalProps))
	for k := range d.AdditionalProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var meta strings.Builder
	for i, k := range keys {
		if i > 0 {
			meta.WriteByte(' ')
		}
		fmt.Fprintf(&meta, "%s: %q", k, d.AdditionalProps[k])
	}
	return fmt.Sprintf("<file id: %s>\n<metadata %s />\n%s\n</file>\n", d.ID, meta.String(), d.Text)
}

// RenderDocuments concatenates documents in order into a single
// preamble suffix, per the document injection rule.
func RenderDocuments(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.Render())
	}
	return b.String()
}

// ToolDefinition describes one callable tool: its name, a
// model-facing description, and its JSON-schema parameters. Names are
// unique within a registry.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolChoiceKind discriminates the ToolChoice variants.
type ToolChoiceKind int

const (
	ToolChoiceAuto ToolChoiceKind = iota
	ToolChoiceRequired
	ToolChoiceNone
	ToolChoiceSpecific
)

// ToolChoice controls whether/which tools the model may call.
type ToolChoice struct {
	Kind  ToolChoiceKind
	Names []string // populated when Kind == ToolChoiceSpecific
}

func Auto() ToolChoice     { return ToolChoice{Kind: ToolChoiceAuto} }
func Required() ToolChoice { return ToolChoice{Kind: ToolChoiceRequired} }
func None() ToolChoice     { return ToolChoice{Kind: ToolChoiceNone} }
func Specific(names ...string) ToolChoice {
	return ToolChoice{Kind: ToolChoiceSpecific, Names: names}
}

// Request is the normalized completion request every CompletionModel
// consumes. The effective prompt for a turn is formed by rendering
// Documents into the Preamble (see RenderDocuments) and appending
// Prompt as the final element of ChatHistory before dispatch — see
// Request.Messages.
type Request struct {
	Preamble         string
	ChatHistory      []message.Message
	Prompt           message.Message
	Documents        []Document
	Tools            []ToolDefinition
	ToolChoice       *ToolChoice
	Temperature      *float64
	MaxTokens        *int
	AdditionalParams map[string]any
}

// EffectivePreamble renders Documents and appends them to Preamble.
func (r Request) EffectivePreamble() string {
	if len(r.Documents) == 0 {
		return r.Preamble
	}
	rendered := RenderDocuments(r.Documents)
	if r.Preamble == "" {
		return rendered
	}
	return r.Preamble + "\n" + rendered
}

// Messages returns ChatHistory with Prompt appended as the final
// element — the conversation a provider adapter actually sends.
func (r Request) Messages() []message.Message {
	out := make([]message.Message, 0, len(r.ChatHistory)+1)
	out = append(out, r.ChatHistory...)
	out = append(out, r.Prompt)
	return out
}

// Response is the normalized completion response. Raw carries the
// provider's own response value, opaque to the core and used only by
// hooks/telemetry.
type Response[Raw any] struct {
	Choice oneormany.OneOrMany[message.AssistantContent]
	Usage  Usage
	Raw    Raw
}

// TextParts returns the top-level Text items of Choice, in order.
func (r Response[Raw]) TextParts() []string {
	var out []string
	r.Choice.ForEach(func(c message.AssistantContent) {
		if t, ok := c.(message.Text); ok {
			out = append(out, t.Text)
		}
	})
	return out
}

// ToolCalls returns the ToolCall items of Choice, in order.
func (r Response[Raw]) ToolCalls() []message.ToolCall {
	var out []message.ToolCall
	r.Choice.ForEach(func(c message.AssistantContent) {
		if tc, ok := c.(message.ToolCall); ok {
			out = append(out, tc)
		}
	})
	return out
}

// Model is the interface every completion provider adapter
// implements. Each call is atomic: retries and rate-limit handling are
// provider-specific and live in decorators (see the ratelimit
// package), never in the core.
type Model[Raw any] interface {
	Completion(ctx context.Context, req Request) (Response[Raw], error)
}

// StreamingModel is the streaming counterpart of Model. It is a
// distinct interface (rather than a method on Model) because not
// every provider adapter supports streaming.
type StreamingModel[Raw any] interface {
	StreamCompletion(ctx context.Context, req Request) (StreamingResponse[Raw], error)
}

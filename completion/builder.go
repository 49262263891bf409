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

package completion

import (
	"context"

	"github.com/kadirpekel/agentcore/message"
)

// RequestBuilder is the fluent constructor for a Request. Send
// dispatches to the underlying model.
type RequestBuilder[Raw any] struct {
	model   Model[Raw]
	request Request
}

// NewRequestBuilder starts a builder bound to model, seeded with the
// given one-shot prompt text.
func NewRequestBuilder[Raw any](model Model[Raw], prompt string) *RequestBuilder[Raw] {
	return &RequestBuilder[Raw]{
		model: model,
		request: Request{
			Prompt: message.NewUserTextMessage(prompt),
		},
	}
}

func (b *RequestBuilder[Raw]) Preamble(preamble string) *RequestBuilder[Raw] {
	b.request.Preamble = preamble
	return b
}

// Message sets the current turn's prompt message directly (for
// multimodal or tool-result prompts, as opposed to plain text).
func (b *RequestBuilder[Raw]) Message(m message.Message) *RequestBuilder[Raw] {
	b.request.Prompt = m
	return b
}

func (b *RequestBuilder[Raw]) Messages(history []message.Message) *RequestBuilder[Raw] {
	b.request.ChatHistory = history
	return b
}

func (b *RequestBuilder[Raw]) Document(doc Document) *RequestBuilder[Raw] {
	b.request.Documents = append(b.request.Documents, doc)
	return b
}

func (b *RequestBuilder[Raw]) Documents(docs []Document) *RequestBuilder[Raw] {
	b.request.Documents = append(b.request.Documents, docs...)
	return b
}

func (b *RequestBuilder[Raw]) Tool(def ToolDefinition) *RequestBuilder[Raw] {
	b.request.Tools = append(b.request.Tools, def)
	return b
}

func (b *RequestBuilder[Raw]) Tools(defs []ToolDefinition) *RequestBuilder[Raw] {
	b.request.Tools = append(b.request.Tools, defs...)
	return b
}

func (b *RequestBuilder[Raw]) ToolChoice(choice ToolChoice) *RequestBuilder[Raw] {
	b.request.ToolChoice = &choice
	return b
}

func (b *RequestBuilder[Raw]) Temperature(t float64) *RequestBuilder[Raw] {
	b.request.Temperature = &t
	return b
}

func (b *RequestBuilder[Raw]) TemperatureOpt(t *float64) *RequestBuilder[Raw] {
	b.request.Temperature = t
	return b
}

func (b *RequestBuilder[Raw]) MaxTokens(n int) *RequestBuilder[Raw] {
	b.request.MaxTokens = &n
	return b
}

func (b *RequestBuilder[Raw]) MaxTokensOpt(n *int) *RequestBuilder[Raw] {
	b.request.MaxTokens = n
	return b
}

func (b *RequestBuilder[Raw]) AdditionalParams(params map[string]any) *RequestBuilder[Raw] {
	b.request.AdditionalParams = params
	return b
}

func (b *RequestBuilder[Raw]) AdditionalParamsOpt(params map[string]any) *RequestBuilder[Raw] {
	if params != nil {
		b.request.AdditionalParams = params
	}
	return b
}

// Build returns the constructed Request without dispatching it.
func (b *RequestBuilder[Raw]) Build() Request {
	return b.request
}

// Send dispatches the built request to the bound model.
func (b *RequestBuilder[Raw]) Send(ctx context.Context) (Response[Raw], error) {
	return b.model.Completion(ctx, b.request)
}

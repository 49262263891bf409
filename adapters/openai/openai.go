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

// Package openai adapts OpenAI's Chat Completions and Embeddings APIs
// to completion.Model and embedding.Model, using
// github.com/openai/openai-go. The SDK client sits behind a narrow
// interface so tests can substitute a fake without an HTTP round
// trip.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/oneormany"
)

// ChatClient captures the subset of the SDK used for completions, so
// tests can substitute a fake without a live API key.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Client implements completion.Model[*sdk.ChatCompletion].
type Client struct {
	chat  ChatClient
	model string
}

// New wraps an existing ChatClient.
func New(chat ChatClient, model string) *Client {
	return &Client{chat: chat, model: model}
}

// NewFromAPIKey builds a Client against the real OpenAI API.
func NewFromAPIKey(apiKey, model string) *Client {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, model)
}

// Completion issues a non-streaming Chat Completions call.
func (c *Client) Completion(ctx context.Context, req completion.Request) (completion.Response[*sdk.ChatCompletion], error) {
	var zero completion.Response[*sdk.ChatCompletion]

	messages, err := encodeMessages(req.EffectivePreamble(), req.Messages())
	if err != nil {
		return zero, completion.RequestError(err)
	}
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = sdk.Int(int64(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return zero, completion.RequestError(err)
		}
		params.Tools = tools
	}
	if req.ToolChoice != nil {
		params.ToolChoice = encodeToolChoice(*req.ToolChoice)
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return zero, completion.HTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return zero, completion.ResponseError("chat completion returned no choices")
	}

	content, err := decodeChoice(resp.Choices[0])
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}
	choice, err := oneormany.Many(content)
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}

	return completion.Response[*sdk.ChatCompletion]{
		Choice: choice,
		Usage: completion.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		Raw: resp,
	}, nil
}

func encodeMessages(system string, msgs []message.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, sdk.SystemMessage(system))
	}
	for _, m := range msgs {
		switch m.Role {
		case message.RoleUser:
			encoded, err := encodeUserTurn(m)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		case message.RoleAssistant:
			out = append(out, encodeAssistantTurn(m))
		}
	}
	return out, nil
}

// encodeUserTurn splits a user message into possibly several
// ChatCompletionMessageParamUnion entries: tool results become their
// own ChatCompletionToolMessageParam turns (one per result, as the
// OpenAI wire format requires), while text collapses into a single
// user turn.
func encodeUserTurn(m message.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	var out []sdk.ChatCompletionMessageParamUnion
	var text strings.Builder
	var err error
	m.User.Content.ForEach(func(c message.UserContent) {
		if err != nil {
			return
		}
		switch v := c.(type) {
		case message.Text:
			if text.Len() > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(v.Text)
		case message.ToolResult:
			var resultText strings.Builder
			v.Content.ForEach(func(tc message.ToolResultContent) {
				if t, ok := tc.(message.ToolResultText); ok {
					resultText.WriteString(t.Text)
				}
			})
			callID := v.CallID
			if callID == "" {
				callID = v.ID
			}
			out = append(out, sdk.ToolMessage(resultText.String(), callID))
		}
	})
	if err != nil {
		return nil, err
	}
	if text.Len() > 0 {
		out = append(out, sdk.UserMessage(text.String()))
	}
	return out, nil
}

func encodeAssistantTurn(m message.Message) sdk.ChatCompletionMessageParamUnion {
	var text strings.Builder
	var calls []sdk.ChatCompletionMessageToolCallParam
	m.Assistant.Content.ForEach(func(c message.AssistantContent) {
		switch v := c.(type) {
		case message.Text:
			text.WriteString(v.Text)
		case message.ToolCall:
			args, _ := json.Marshal(v.Function.Arguments)
			calls = append(calls, sdk.ChatCompletionMessageToolCallParam{
				ID:   v.ID,
				Type: "function",
				Function: sdk.ChatCompletionMessageToolCallFunctionParam{
					Name:      v.Function.Name,
					Arguments: string(args),
				},
			})
		}
	})
	msg := sdk.AssistantMessage(text.String())
	if msg.OfAssistant != nil {
		msg.OfAssistant.ToolCalls = calls
	}
	return msg
}

func decodeChoice(choice sdk.ChatCompletionChoice) ([]message.AssistantContent, error) {
	var out []message.AssistantContent
	if choice.Message.Content != "" {
		out = append(out, message.Text{Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		var args map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("openai: decode tool call arguments: %w", err)
			}
		}
		out = append(out, message.ToolCall{
			ID:       call.ID,
			CallID:   call.ID,
			Function: message.ToolCallFunction{Name: call.Function.Name, Arguments: args},
		})
	}
	if len(out) == 0 {
		out = append(out, message.Text{Text: ""})
	}
	return out, nil
}

func encodeTools(defs []completion.ToolDefinition) ([]sdk.ChatCompletionToolParam, error) {
	out := make([]sdk.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: sdk.String(def.Description),
				Parameters:  shared.FunctionParameters(def.Parameters),
			},
		})
	}
	return out, nil
}

func encodeToolChoice(choice completion.ToolChoice) sdk.ChatCompletionToolChoiceOptionUnionParam {
	switch choice.Kind {
	case completion.ToolChoiceNone:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("none")}
	case completion.ToolChoiceRequired:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("required")}
	case completion.ToolChoiceSpecific:
		if len(choice.Names) == 1 {
			return sdk.ChatCompletionToolChoiceOptionUnionParam{
				OfChatCompletionNamedToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
					Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: choice.Names[0]},
				},
			}
		}
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("auto")}
	default:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("auto")}
	}
}

// embedModelDimensions holds the well-known output dimensionality of
// OpenAI's current embedding models, since the API does not report it.
var embedModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// EmbedClient captures the subset of the SDK used for embeddings.
type EmbedClient interface {
	New(ctx context.Context, body sdk.EmbeddingNewParams, opts ...option.RequestOption) (*sdk.CreateEmbeddingResponse, error)
}

// EmbeddingModel implements embedding.Model via OpenAI's Embeddings
// API.
type EmbeddingModel struct {
	embed      EmbedClient
	model      string
	dimensions int
	maxDocs    int
}

// NewEmbeddingModel wraps an existing EmbedClient. dimensions defaults
// to the well-known value for model when 0.
func NewEmbeddingModel(embed EmbedClient, model string, dimensions int) *EmbeddingModel {
	if dimensions == 0 {
		dimensions = embedModelDimensions[model]
	}
	return &EmbeddingModel{embed: embed, model: model, dimensions: dimensions, maxDocs: 2048}
}

// NewEmbeddingModelFromAPIKey builds an EmbeddingModel against the real
// OpenAI API.
func NewEmbeddingModelFromAPIKey(apiKey, model string, dimensions int) *EmbeddingModel {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewEmbeddingModel(&c.Embeddings, model, dimensions)
}

func (m *EmbeddingModel) MaxDocuments() int { return m.maxDocs }
func (m *EmbeddingModel) Dimensions() int   { return m.dimensions }

func (m *EmbeddingModel) EmbedText(ctx context.Context, text string) (embedding.Embedding, error) {
	embeds, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return embedding.Embedding{}, err
	}
	return embeds[0], nil
}

func (m *EmbeddingModel) EmbedTexts(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	if len(texts) > m.maxDocs {
		return nil, completion.RequestError(fmt.Errorf("openai: %d texts exceeds max batch size %d", len(texts), m.maxDocs))
	}
	resp, err := m.embed.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(m.model),
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, completion.HTTPError(err)
	}
	out := make([]embedding.Embedding, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		copy(vec, d.Embedding)
		out[i] = embedding.Embedding{Document: texts[i], Vec: vec}
	}
	return out, nil
}

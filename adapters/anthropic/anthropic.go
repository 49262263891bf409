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

// Package anthropic adapts Anthropic's Claude Messages API to the
// core's completion.Model/StreamingModel contract, using
// github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/oneormany"
)

// MessagesClient captures the subset of the SDK client the adapter
// uses, so tests can substitute a fake without a live API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Client implements completion.Model[*sdk.Message] and
// completion.StreamingModel[*sdk.Message].
type Client struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

// New wraps an existing MessagesClient (a real *sdk.Client.Messages or
// a test fake).
func New(msg MessagesClient, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, model: model, maxTokens: maxTokens}
}

// NewFromAPIKey builds a Client against the real Anthropic API.
func NewFromAPIKey(apiKey, model string, maxTokens int) *Client {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, model, maxTokens)
}

func (c *Client) buildParams(req completion.Request) (sdk.MessageNewParams, error) {
	msgs, err := encodeMessages(req.Messages())
	if err != nil {
		return sdk.MessageNewParams{}, err
	}
	maxTokens := c.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system := req.EffectivePreamble(); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return sdk.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	if req.ToolChoice != nil {
		tc, err := encodeToolChoice(*req.ToolChoice)
		if err != nil {
			return sdk.MessageNewParams{}, err
		}
		params.ToolChoice = tc
	}
	return params, nil
}

// Completion issues a non-streaming Messages.New call.
func (c *Client) Completion(ctx context.Context, req completion.Request) (completion.Response[*sdk.Message], error) {
	var zero completion.Response[*sdk.Message]
	params, err := c.buildParams(req)
	if err != nil {
		return zero, completion.RequestError(err)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return zero, completion.HTTPError(err)
	}
	content, err := decodeContent(msg.Content)
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}
	choice, err := oneormany.Many(content)
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}
	return completion.Response[*sdk.Message]{
		Choice: choice,
		Usage: completion.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Raw: msg,
	}, nil
}

// StreamCompletion issues a Messages.NewStreaming call and adapts the
// SSE event union into completion.StreamingResponse.
func (c *Client) StreamCompletion(ctx context.Context, req completion.Request) (completion.StreamingResponse[*sdk.Message], error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, completion.RequestError(err)
	}
	stream := c.msg.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, completion.HTTPError(err)
	}
	return newStreamer(stream), nil
}

func encodeMessages(msgs []message.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks, err := encodeBlocks(m)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case message.RoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case message.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return out, nil
}

func encodeBlocks(m message.Message) ([]sdk.ContentBlockParamUnion, error) {
	var blocks []sdk.ContentBlockParamUnion
	var err error
	switch m.Role {
	case message.RoleUser:
		m.User.Content.ForEach(func(c message.UserContent) {
			if err != nil {
				return
			}
			switch v := c.(type) {
			case message.Text:
				blocks = append(blocks, sdk.NewTextBlock(v.Text))
			case message.ToolResult:
				var text strings.Builder
				v.Content.ForEach(func(tc message.ToolResultContent) {
					if t, ok := tc.(message.ToolResultText); ok {
						text.WriteString(t.Text)
					}
				})
				blocks = append(blocks, sdk.NewToolResultBlock(v.ID, text.String(), false))
			}
		})
	case message.RoleAssistant:
		m.Assistant.Content.ForEach(func(c message.AssistantContent) {
			if err != nil {
				return
			}
			switch v := c.(type) {
			case message.Text:
				blocks = append(blocks, sdk.NewTextBlock(v.Text))
			case message.ToolCall:
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, v.Function.Arguments, v.Function.Name))
			}
		})
	}
	return blocks, err
}

func decodeContent(content []sdk.ContentBlockUnion) ([]message.AssistantContent, error) {
	var out []message.AssistantContent
	for _, block := range content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				out = append(out, message.Text{Text: block.Text})
			}
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("anthropic: decode tool_use input: %w", err)
				}
			}
			out = append(out, message.ToolCall{
				ID:       block.ID,
				CallID:   block.ID,
				Function: message.ToolCallFunction{Name: block.Name, Arguments: args},
			})
		}
	}
	if len(out) == 0 {
		out = append(out, message.Text{Text: ""})
	}
	return out, nil
}

func encodeTools(defs []completion.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		data, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("anthropic: encode tool %q schema: %w", def.Name, err)
		}
		var schemaMap map[string]any
		if err := json.Unmarshal(data, &schemaMap); err != nil {
			return nil, err
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schemaMap}, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func encodeToolChoice(choice completion.ToolChoice) (sdk.ToolChoiceUnionParam, error) {
	switch choice.Kind {
	case completion.ToolChoiceAuto:
		return sdk.ToolChoiceUnionParam{}, nil
	case completion.ToolChoiceNone:
		none := sdk.NewToolChoiceNoneParam()
		return sdk.ToolChoiceUnionParam{OfNone: &none}, nil
	case completion.ToolChoiceRequired:
		return sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}, nil
	case completion.ToolChoiceSpecific:
		if len(choice.Names) != 1 {
			return sdk.ToolChoiceUnionParam{}, fmt.Errorf("anthropic: tool choice specific requires exactly one name, got %d", len(choice.Names))
		}
		return sdk.ToolChoiceParamOfTool(choice.Names[0]), nil
	default:
		return sdk.ToolChoiceUnionParam{}, fmt.Errorf("anthropic: unsupported tool choice kind %d", choice.Kind)
	}
}

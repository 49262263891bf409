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

// Package gemini adapts Google's Gemini GenerateContent API to
// completion.Model/StreamingModel, using google.golang.org/genai.
// Part.Thought splits reasoning from text, and function calls that
// arrive without an ID get a stable synthesized one so tool results
// can still be paired on later turns.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/oneormany"
)

// ModelsClient captures the subset of *genai.Client used by the
// adapter, so tests can substitute a fake without a live API key.
type ModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client implements completion.Model[*genai.GenerateContentResponse]
// and completion.StreamingModel[*genai.GenerateContentResponse].
type Client struct {
	models ModelsClient
	model  string
}

// New wraps an existing ModelsClient.
func New(models ModelsClient, model string) *Client {
	return &Client{models: models, model: model}
}

// NewFromAPIKey builds a Client against the real Gemini API.
func NewFromAPIKey(ctx context.Context, apiKey, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return New(c.Models, model), nil
}

func (c *Client) buildConfig(req completion.Request) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if system := req.EffectivePreamble(); system != "" {
		config.SystemInstruction = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = encodeTools(req.Tools)
	}
	if req.ToolChoice != nil {
		tc, err := encodeToolChoice(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		config.ToolConfig = tc
	}
	return config, nil
}

// Completion issues a non-streaming GenerateContent call.
func (c *Client) Completion(ctx context.Context, req completion.Request) (completion.Response[*genai.GenerateContentResponse], error) {
	var zero completion.Response[*genai.GenerateContentResponse]

	contents, err := encodeContents(req.Messages())
	if err != nil {
		return zero, completion.RequestError(err)
	}
	config, err := c.buildConfig(req)
	if err != nil {
		return zero, completion.RequestError(err)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return zero, completion.HTTPError(err)
	}
	if len(resp.Candidates) == 0 {
		return zero, completion.ResponseError("gemini: response carried no candidates")
	}

	content, err := decodeParts(resp.Candidates[0])
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}
	choice, err := oneormany.Many(content)
	if err != nil {
		return zero, completion.ResponseError(err.Error())
	}

	usage := completion.Usage{}
	if resp.UsageMetadata != nil {
		usage = completion.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return completion.Response[*genai.GenerateContentResponse]{
		Choice: choice,
		Usage:  usage,
		Raw:    resp,
	}, nil
}

// StreamCompletion issues a GenerateContentStream call and adapts the
// push-style iter.Seq2 iterator genai returns into completion's
// pull-based StreamingResponse via a buffering goroutine.
func (c *Client) StreamCompletion(ctx context.Context, req completion.Request) (completion.StreamingResponse[*genai.GenerateContentResponse], error) {
	contents, err := encodeContents(req.Messages())
	if err != nil {
		return nil, completion.RequestError(err)
	}
	config, err := c.buildConfig(req)
	if err != nil {
		return nil, completion.RequestError(err)
	}
	seq := c.models.GenerateContentStream(ctx, c.model, contents, config)
	return newStreamer(seq), nil
}

func encodeContents(msgs []message.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		parts, err := encodeParts(m)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if m.Role == message.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

func encodeParts(m message.Message) ([]*genai.Part, error) {
	var parts []*genai.Part
	switch m.Role {
	case message.RoleUser:
		m.User.Content.ForEach(func(c message.UserContent) {
			switch v := c.(type) {
			case message.Text:
				parts = append(parts, &genai.Part{Text: v.Text})
			case message.ToolResult:
				var text strings.Builder
				v.Content.ForEach(func(tc message.ToolResultContent) {
					if t, ok := tc.(message.ToolResultText); ok {
						text.WriteString(t.Text)
					}
				})
				name := v.CallID
				if name == "" {
					name = v.ID
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       v.ID,
						Name:     name,
						Response: map[string]any{"result": text.String()},
					},
				})
			}
		})
	case message.RoleAssistant:
		m.Assistant.Content.ForEach(func(c message.AssistantContent) {
			switch v := c.(type) {
			case message.Text:
				parts = append(parts, &genai.Part{Text: v.Text})
			case message.ToolCall:
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   v.ID,
						Name: v.Function.Name,
						Args: v.Function.Arguments,
					},
				})
			}
		})
	}
	return parts, nil
}

func decodeParts(candidate *genai.Candidate) ([]message.AssistantContent, error) {
	var out []message.AssistantContent
	if candidate.Content == nil {
		return []message.AssistantContent{message.Text{Text: ""}}, nil
	}
	var reasoning []string
	for _, part := range candidate.Content.Parts {
		switch {
		case part.Text != "" && part.Thought:
			reasoning = append(reasoning, part.Text)
		case part.Text != "":
			out = append(out, message.Text{Text: part.Text})
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = stableCallID(part.FunctionCall.Name, part.FunctionCall.Args)
			}
			out = append(out, message.ToolCall{
				ID:     id,
				CallID: id,
				Function: message.ToolCallFunction{
					Name:      part.FunctionCall.Name,
					Arguments: part.FunctionCall.Args,
				},
			})
		}
	}
	if len(reasoning) > 0 {
		out = append([]message.AssistantContent{message.Reasoning{Reasoning: reasoning}}, out...)
	}
	if len(out) == 0 {
		out = append(out, message.Text{Text: ""})
	}
	return out, nil
}

// stableCallID derives a deterministic identifier from a function call's
// name and arguments, for providers (Gemini included) that sometimes
// omit a call ID entirely.
func stableCallID(name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{"name": name, "args": args})
	sum := sha256.Sum256(data)
	return fmt.Sprintf("gemini-%x", sum[:16])
}

func encodeTools(defs []completion.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGenaiSchema(def.Parameters),
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func encodeToolChoice(choice completion.ToolChoice) (*genai.ToolConfig, error) {
	switch choice.Kind {
	case completion.ToolChoiceAuto:
		return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}}, nil
	case completion.ToolChoiceNone:
		return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone}}, nil
	case completion.ToolChoiceRequired:
		return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny}}, nil
	case completion.ToolChoiceSpecific:
		return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: choice.Names,
		}}, nil
	default:
		return nil, fmt.Errorf("gemini: unsupported tool choice kind %d", choice.Kind)
	}
}

// toGenaiSchema converts a plain JSON-schema map (completion.ToolDefinition's
// wire format) into genai's typed Schema.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}

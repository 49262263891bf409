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

// Package extractor coerces free-form model output into a
// schema-validated value of type T by reusing the tool machinery
// rather than inventing a second code path. Internally it builds an
// Agent with a synthetic "submit" tool whose parameters equal T's JSON
// schema, a tool choice forcing that tool, and a hook that validates
// submit's arguments against that compiled schema (via jsonschema/v6)
// before decoding them into T and terminating the loop. A payload that
// fails validation is skipped rather than decoded, giving the model
// another attempt within the same loop's remaining depth.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kadirpekel/agentcore/agent"
	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/tool"
)

const submitToolName = "submit"

// Result pairs an extracted value with the token usage spent producing
// it, accumulated across retries.
type Result[T any] struct {
	Data  T
	Usage completion.Usage
}

// Extractor[T, Raw] drives an Agent[Raw] until the model calls the
// synthetic submit tool with arguments that decode into T, or gives up
// after MaxRetries malformed attempts.
type Extractor[T any, Raw any] struct {
	agent      *agent.Agent[Raw]
	schema     *jsonschema.Schema
	maxDepth   int
	maxRetries int
}

// Option configures an Extractor at construction time.
type Option[Raw any] func(*config[Raw])

type config[Raw any] struct {
	preamble         string
	tools            []tool.DynTool
	staticContext    []completion.Document
	temperature      *float64
	maxTokens        *int
	additionalParams map[string]any
	maxDepth         int
	maxRetries       int
}

// WithPreamble prepends extra instruction text before the submit-tool
// directive.
func WithPreamble[Raw any](preamble string) Option[Raw] {
	return func(c *config[Raw]) { c.preamble = preamble }
}

// WithContext adds a static document available to every extraction
// call, e.g. the text being extracted from when that text is better
// modeled as context than as the prompt itself.
func WithContext[Raw any](doc completion.Document) Option[Raw] {
	return func(c *config[Raw]) { c.staticContext = append(c.staticContext, doc) }
}

// WithTools additionally registers ordinary tools the model may call
// before ultimately submitting, e.g. a lookup tool that resolves a
// reference before the model has enough information to fill T.
func WithTools[Raw any](tools ...tool.DynTool) Option[Raw] {
	return func(c *config[Raw]) { c.tools = append(c.tools, tools...) }
}

// WithTemperature overrides the model's sampling temperature.
func WithTemperature[Raw any](t float64) Option[Raw] {
	return func(c *config[Raw]) { c.temperature = &t }
}

// WithMaxTokens overrides the model's max output tokens.
func WithMaxTokens[Raw any](n int) Option[Raw] {
	return func(c *config[Raw]) { c.maxTokens = &n }
}

// WithAdditionalParams passes provider-specific extras through to
// every completion request.
func WithAdditionalParams[Raw any](params map[string]any) Option[Raw] {
	return func(c *config[Raw]) { c.additionalParams = params }
}

// WithMaxDepth bounds the underlying prompt loop's tool-call depth per
// extraction attempt. Defaults to 5.
func WithMaxDepth[Raw any](n int) Option[Raw] {
	return func(c *config[Raw]) { c.maxDepth = n }
}

// WithMaxRetries bounds how many extra prompt-loop attempts run after
// an attempt ends without a decodable submit payload. Defaults to 0
// (a single attempt). Within an attempt a malformed submit is skipped
// and the model may submit again within the remaining depth. Once the
// attempts are used up, ErrDeserialization is returned if any decode
// error was seen, otherwise ErrNoData.
func WithMaxRetries[Raw any](n int) Option[Raw] {
	return func(c *config[Raw]) { c.maxRetries = n }
}

// New builds an Extractor for T atop model, deriving T's JSON schema
// via tool.GenerateSchema.
func New[T any, Raw any](model completion.Model[Raw], opts ...Option[Raw]) (*Extractor[T, Raw], error) {
	var c config[Raw]
	for _, opt := range opts {
		opt(&c)
	}

	schema, err := tool.GenerateSchema[T]()
	if err != nil {
		return nil, &Error{Kind: ErrPrompt, Err: err}
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, &Error{Kind: ErrPrompt, Err: err}
	}

	preamble := "Submit the extracted data using the submit tool. " +
		"Do not respond with text; call submit exactly once with the " +
		"requested fields."
	if c.preamble != "" {
		preamble = c.preamble + "\n\n" + preamble
	}

	submit := tool.Func[map[string]any, string]{
		NameValue:        submitToolName,
		DescriptionValue: "Submit the final extracted data matching the required schema.",
		Parameters:       schema,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			encoded, err := json.Marshal(args)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}

	b := agent.NewBuilder[Raw](model).
		Preamble(preamble).
		ToolChoice(completion.Required())
	agent.Tool[Raw, map[string]any, string](b, submit)
	for _, t := range c.tools {
		b.Tools(t)
	}
	for _, doc := range c.staticContext {
		b.Document(doc)
	}
	if c.temperature != nil {
		b.Temperature(*c.temperature)
	}
	if c.maxTokens != nil {
		b.MaxTokens(*c.maxTokens)
	}
	if c.additionalParams != nil {
		b.AdditionalParams(c.additionalParams)
	}
	maxDepth := c.maxDepth
	if maxDepth == 0 {
		maxDepth = 5
	}
	b.DefaultMaxDepth(maxDepth)

	return &Extractor[T, Raw]{agent: b.Build(), schema: compiled, maxDepth: maxDepth, maxRetries: c.maxRetries}, nil
}

// compileSchema compiles a GenerateSchema map into a *jsonschema.Schema
// once at Extractor construction time, so every submit attempt
// validates against the same prepared schema rather than re-parsing it
// per call.
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("submit.json", schemaMap); err != nil {
		return nil, fmt.Errorf("extractor: add schema resource: %w", err)
	}
	schema, err := c.Compile("submit.json")
	if err != nil {
		return nil, fmt.Errorf("extractor: compile schema: %w", err)
	}
	return schema, nil
}

// submitHook intercepts submit calls: it validates the arguments
// against the schema and decodes them into T. On success it terminates
// the loop; on failure it records the error for the caller to inspect
// and skips the call with the reason as the tool result, so the model
// can submit again within the remaining depth. Either way the submit
// tool's Fn is never run.
type submitHook[Raw any] struct {
	agent.Hooks[Raw]
	decodeOK bool
	decodeEr error
	decodeFn func(json.RawMessage) error
	schema   *jsonschema.Schema
	usage    completion.Usage
}

func (h *submitHook[Raw]) OnCompletionResponse(_ context.Context, _ message.Message, resp completion.Response[Raw]) agent.HookAction {
	h.usage = h.usage.Add(resp.Usage)
	return agent.Continue()
}

func (h *submitHook[Raw]) OnToolCall(_ context.Context, toolName string, _, _ string, argsJSON string) agent.ToolCallHookAction {
	if toolName != submitToolName {
		return agent.ToolContinue()
	}

	if h.schema != nil {
		var instance any
		dec := json.NewDecoder(bytes.NewReader([]byte(argsJSON)))
		dec.UseNumber()
		if err := dec.Decode(&instance); err != nil {
			h.decodeEr = err
			h.decodeOK = false
			return agent.ToolSkip("submit arguments were not valid JSON: " + err.Error())
		}
		if err := h.schema.Validate(instance); err != nil {
			h.decodeEr = err
			h.decodeOK = false
			return agent.ToolSkip("submit arguments did not match the required schema: " + err.Error())
		}
	}

	h.decodeEr = h.decodeFn(json.RawMessage(argsJSON))
	h.decodeOK = h.decodeEr == nil
	if h.decodeOK {
		return agent.ToolTerminate("")
	}
	// Malformed payload: skip (don't execute Fn) and let the model try
	// again within the same loop's remaining depth.
	return agent.ToolSkip("submit arguments did not match the required schema: " + h.decodeEr.Error())
}

// Extract runs an extraction for the given input text and returns the
// decoded value; ExtractWithUsage also returns the accumulated usage.
func (e *Extractor[T, Raw]) Extract(ctx context.Context, input string) (T, error) {
	res, err := e.ExtractWithUsage(ctx, input)
	return res.Data, err
}

// ExtractWithUsage is Extract, additionally reporting token usage
// accumulated across retries.
func (e *Extractor[T, Raw]) ExtractWithUsage(ctx context.Context, input string) (Result[T], error) {
	return e.ExtractFromHistory(ctx, input, nil)
}

// ExtractFromHistory runs extraction with prior chat history, for
// callers continuing a conversation rather than starting a fresh one.
func (e *Extractor[T, Raw]) ExtractFromHistory(ctx context.Context, input string, history []message.Message) (Result[T], error) {
	var total completion.Usage
	var zero T
	var lastDecodeErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		var decoded T
		hook := &submitHook[Raw]{
			schema: e.schema,
			decodeFn: func(raw json.RawMessage) error {
				return json.Unmarshal(raw, &decoded)
			},
		}

		req := e.agent.Prompt(input).Hook(hook)
		if history != nil {
			req = req.WithHistory(history)
		}
		req = req.MaxDepth(e.maxDepth)

		_, err := req.Send(ctx)
		total = total.Add(hook.usage)
		if err != nil {
			// Exhausting the loop's depth without a decodable submit is
			// an extraction outcome (NoData or a deserialization
			// failure, decided below), not a prompt failure.
			var depthErr *agent.MaxDepthError
			if !errors.As(err, &depthErr) {
				return Result[T]{Data: zero, Usage: total}, promptError(err)
			}
		} else if hook.decodeOK {
			return Result[T]{Data: decoded, Usage: total}, nil
		}

		if hook.decodeEr != nil {
			lastDecodeErr = hook.decodeEr
		}
	}

	if lastDecodeErr != nil {
		return Result[T]{Data: zero, Usage: total}, deserializationError(lastDecodeErr)
	}
	return Result[T]{Data: zero, Usage: total}, noDataError()
}

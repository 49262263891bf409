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
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
	"github.com/kadirpekel/agentcore/tool"
	"github.com/kadirpekel/agentcore/vectorstore"
)

// PromptRequest is the per-invocation builder returned by
// Agent.Prompt. It carries the initial prompt plus everything that
// varies call-to-call: externally-owned history, a depth bound, an
// optional hook, and an optional reviewer.
type PromptRequest[Raw any] struct {
	agent    *Agent[Raw]
	prompt   message.Message
	history  []message.Message
	maxDepth int
	hook     PromptHook[Raw]
	reviewer Reviewer
}

// Prompt starts a PromptRequest for a one-shot user text prompt.
func (a *Agent[Raw]) Prompt(text string) *PromptRequest[Raw] {
	return &PromptRequest[Raw]{
		agent:    a,
		prompt:   message.NewUserTextMessage(text),
		maxDepth: a.defaultMaxDepth,
		hook:     Hooks[Raw]{},
	}
}

// PromptMessage starts a PromptRequest for an arbitrary (possibly
// multimodal) prompt message.
func (a *Agent[Raw]) PromptMessage(m message.Message) *PromptRequest[Raw] {
	return &PromptRequest[Raw]{
		agent:    a,
		prompt:   m,
		maxDepth: a.defaultMaxDepth,
		hook:     Hooks[Raw]{},
	}
}

// WithHistory sets the prior chat history this prompt continues.
func (r *PromptRequest[Raw]) WithHistory(history []message.Message) *PromptRequest[Raw] {
	r.history = history
	return r
}

// MaxDepth overrides the agent's default_max_depth for this call.
func (r *PromptRequest[Raw]) MaxDepth(n int) *PromptRequest[Raw] {
	r.maxDepth = n
	return r
}

// Hook attaches a PromptHook observing/steering this call.
func (r *PromptRequest[Raw]) Hook(hook PromptHook[Raw]) *PromptRequest[Raw] {
	r.hook = hook
	return r
}

// ReviewerFn attaches a Reviewer post-processing tool outputs.
func (r *PromptRequest[Raw]) ReviewerFn(reviewer Reviewer) *PromptRequest[Raw] {
	r.reviewer = reviewer
	return r
}

func (a *Agent[Raw]) gatherDynamicContext(ctx context.Context, query string) ([]completion.Document, error) {
	var docs []completion.Document
	for _, src := range a.dynamicContext {
		req, err := vectorstore.NewRequestBuilder().Query(query).Samples(uint64(src.samples)).Build()
		if err != nil {
			return nil, err
		}
		matches, err := src.index.TopN(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			docs = append(docs, completion.Document{ID: m.ID, Text: m.Item})
		}
	}
	return docs, nil
}

func (a *Agent[Raw]) gatherDynamicTools(ctx context.Context, query string) ([]completion.ToolDefinition, map[string]tool.DynTool, error) {
	var defs []completion.ToolDefinition
	resolved := make(map[string]tool.DynTool)
	for _, src := range a.dynamicTools {
		req, err := vectorstore.NewRequestBuilder().Query(query).Samples(uint64(src.samples)).Build()
		if err != nil {
			return nil, nil, err
		}
		matches, err := src.index.TopNIDs(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range matches {
			t, ok := src.toolset.Get(m.ID)
			if !ok {
				continue
			}
			if _, already := resolved[m.ID]; already {
				continue
			}
			resolved[m.ID] = t
			defs = append(defs, t.Definition(ctx, query))
		}
	}
	return defs, resolved, nil
}

// buildRequest assembles a single turn's CompletionRequest. Given
// identical agent configuration and inputs this is pure — the only
// variance between two calls comes from the dynamic retrieval sources
// actually returning different hits, not from anything in this
// function itself.
func (a *Agent[Raw]) buildRequest(ctx context.Context, prompt message.Message, history []message.Message) (completion.Request, map[string]tool.DynTool, error) {
	// Retrieval queries use only the prompt's plain-text parts.
	query := prompt.RAGText()

	dynDocs, err := a.gatherDynamicContext(ctx, query)
	if err != nil {
		return completion.Request{}, nil, err
	}
	dynDefs, dynResolved, err := a.gatherDynamicTools(ctx, query)
	if err != nil {
		return completion.Request{}, nil, err
	}

	documents := make([]completion.Document, 0, len(a.staticContext)+len(dynDocs))
	documents = append(documents, a.staticContext...)
	documents = append(documents, dynDocs...)

	tools := a.staticTools.Definitions(ctx, query)
	tools = append(tools, dynDefs...)

	req := completion.Request{
		Preamble:         a.preamble,
		Documents:        documents,
		ChatHistory:      history,
		Prompt:           prompt,
		Tools:            tools,
		ToolChoice:       a.toolChoice,
		Temperature:      a.temperature,
		MaxTokens:        a.maxTokens,
		AdditionalParams: a.additionalParams,
	}
	return req, dynResolved, nil
}

// resolveTool finds toolName in the agent's static tools, falling
// back to the dynamic tools resolved for this specific turn.
func (a *Agent[Raw]) resolveTool(name string, dynResolved map[string]tool.DynTool) (tool.DynTool, bool) {
	if t, ok := a.staticTools.Get(name); ok {
		return t, true
	}
	t, ok := dynResolved[name]
	return t, ok
}

// Send runs the non-streaming prompt loop to completion.
func (r *PromptRequest[Raw]) Send(ctx context.Context) (string, error) {
	a := r.agent
	history := append([]message.Message(nil), r.history...)
	prompt := r.prompt

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return "", ErrCancelled
		default:
		}

		if i > r.maxDepth {
			return "", &MaxDepthError{MaxDepth: r.maxDepth, History: history, Prompt: prompt}
		}

		req, dynResolved, err := a.buildRequest(ctx, prompt, history)
		if err != nil {
			return "", &CompletionError{Err: err}
		}

		if action := r.hook.OnCompletionCall(ctx, prompt, history); action.Kind == HookTerminate {
			return action.Reason, nil
		}

		slog.Debug("sending completion request", "depth", i, "tool_count", len(req.Tools))
		resp, err := a.model.Completion(ctx, req)
		if err != nil {
			slog.Error("completion call failed", "depth", i, "error", err)
			return "", &CompletionError{Err: err}
		}

		if action := r.hook.OnCompletionResponse(ctx, prompt, resp); action.Kind == HookTerminate {
			return action.Reason, nil
		}

		history = append(history, prompt)
		// The completion contract doesn't carry a message-level id (only
		// per-tool-call ids), so one is minted here for history bookkeeping
		// when a caller or hook wants to address this turn later.
		assistantMsg, err := message.NewAssistantMessage(uuid.NewString(), resp.Choice.Slice()...)
		if err != nil {
			return "", &CompletionError{Err: err}
		}
		history = append(history, assistantMsg)

		var textParts []string
		var toolCalls []message.ToolCall
		resp.Choice.ForEach(func(c message.AssistantContent) {
			switch v := c.(type) {
			case message.Text:
				textParts = append(textParts, v.Text)
			case message.ToolCall:
				toolCalls = append(toolCalls, v)
			}
		})

		if len(toolCalls) == 0 {
			return strings.Join(textParts, "\n"), nil
		}

		toolResults := make([]message.UserContent, 0, len(toolCalls))
		terminated := false
		var terminationReason string

		for _, call := range toolCalls {
			// call.ID is the loop's own pairing identifier (matched
			// against ToolResult.ID below); call.CallID is the
			// provider's own id, when it supplies one distinct from ID.
			argsJSON, err := json.Marshal(call.Function.Arguments)
			if err != nil {
				return "", &CompletionError{Err: err}
			}

			action := r.hook.OnToolCall(ctx, call.Function.Name, call.CallID, call.ID, string(argsJSON))
			if action.Kind == ToolCallTerminate {
				terminated = true
				terminationReason = action.Reason
				break
			}
			if action.Kind == ToolCallSkip {
				toolResults = append(toolResults, message.NewToolResultText(call.ID, call.CallID, action.Reason))
				continue
			}

			var out string
			t, ok := a.resolveTool(call.Function.Name, dynResolved)
			if !ok {
				slog.Warn("tool call resolved to no registered tool", "tool", call.Function.Name)
				out = (&tool.Error{Kind: tool.ErrNotFound, Name: call.Function.Name}).Error()
			} else {
				out, err = t.Call(ctx, string(argsJSON))
				if err != nil {
					slog.Error("tool call failed", "tool", call.Function.Name, "error", err)
					out = err.Error()
				}
			}

			if r.reviewer != nil {
				out = r.reviewer.Critique(ctx, call.Function.Name, call.CallID, string(argsJSON), out)
			}

			resultAction := r.hook.OnToolResult(ctx, call.Function.Name, call.CallID, call.ID, string(argsJSON), out)
			toolResults = append(toolResults, message.NewToolResultText(call.ID, call.CallID, out))
			if resultAction.Kind == HookTerminate {
				terminated = true
				terminationReason = resultAction.Reason
				break
			}
		}

		if terminated {
			return terminationReason, nil
		}

		prompt, err = message.NewUserMessage(toolResults...)
		if err != nil {
			return "", &CompletionError{Err: err}
		}
	}
}

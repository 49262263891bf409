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
)

// MultiTurnItemKind discriminates a MultiTurnStreamItem.
type MultiTurnItemKind int

const (
	// StreamItemKind carries a user-visible fragment: a text/reasoning
	// delta forwarded as it arrives, or a synthetic text item carrying
	// a tool's result once it has executed. The synthetic tool-result
	// item exists only for transcripts — the model-facing history
	// append always uses the structured ToolResult form, never this.
	StreamItemKind MultiTurnItemKind = iota
	// FinalResponseKind is emitted exactly once, last.
	FinalResponseKind
)

// MultiTurnStreamItem is one item of Stream's output sequence.
type MultiTurnStreamItem struct {
	Kind    MultiTurnItemKind
	Content completion.StreamedAssistantContent // set when Kind == StreamItemKind
	Final   FinalResponseMeta                   // set when Kind == FinalResponseKind
}

// FinalResponseMeta is the terminal item's payload.
type FinalResponseMeta struct {
	Usage          completion.Usage
	AggregatedText string
}

// StreamEvent is one element of the channel Stream returns: either an
// item or a terminal error. Once Err is non-nil the channel is closed
// and carries nothing further.
type StreamEvent struct {
	Item MultiTurnStreamItem
	Err  error
}

func textItem(text string) MultiTurnStreamItem {
	return MultiTurnStreamItem{Kind: StreamItemKind, Content: completion.StreamedAssistantContent{Kind: completion.StreamedText, TextDelta: text}}
}

// Stream runs the streaming prompt loop: the same state machine as
// Send, but text/reasoning deltas are forwarded as
// they arrive and a tool's result is additionally surfaced as a
// synthetic text item for transcripts once the tool has executed.
// Cancelling ctx stops the loop and closes the channel after an
// ErrCancelled event.
func (r *PromptRequest[Raw]) Stream(ctx context.Context) <-chan StreamEvent {
	out := make(chan StreamEvent, 1)
	go func() {
		defer close(out)
		r.runStream(ctx, out)
	}()
	return out
}

func (r *PromptRequest[Raw]) runStream(ctx context.Context, out chan<- StreamEvent) {
	a := r.agent
	if a.streamingModel == nil {
		out <- StreamEvent{Err: ErrNoStreamingModel}
		return
	}

	history := append([]message.Message(nil), r.history...)
	prompt := r.prompt

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			out <- StreamEvent{Err: ErrCancelled}
			return
		default:
		}

		if i > r.maxDepth {
			out <- StreamEvent{Err: &MaxDepthError{MaxDepth: r.maxDepth, History: history, Prompt: prompt}}
			return
		}

		req, dynResolved, err := a.buildRequest(ctx, prompt, history)
		if err != nil {
			out <- StreamEvent{Err: &CompletionError{Err: err}}
			return
		}

		if action := r.hook.OnCompletionCall(ctx, prompt, history); action.Kind == HookTerminate {
			out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: FinalResponseMeta{AggregatedText: action.Reason}}}
			return
		}

		slog.Debug("sending streaming completion request", "depth", i, "tool_count", len(req.Tools))
		stream, err := a.streamingModel.StreamCompletion(ctx, req)
		if err != nil {
			slog.Error("streaming completion call failed", "depth", i, "error", err)
			out <- StreamEvent{Err: &CompletionError{Err: err}}
			return
		}

		var aggregated strings.Builder
		var toolCalls []message.ToolCall
		var usage completion.Usage

		for {
			select {
			case <-ctx.Done():
				out <- StreamEvent{Err: ErrCancelled}
				return
			default:
			}

			item, ok, err := stream.Next()
			if err != nil {
				out <- StreamEvent{Err: &CompletionError{Err: err}}
				return
			}
			if !ok {
				break
			}

			switch item.Kind {
			case completion.StreamedText:
				aggregated.WriteString(item.TextDelta)
				if action := r.hook.OnTextDelta(ctx, item.TextDelta, aggregated.String()); action.Kind == HookTerminate {
					out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: FinalResponseMeta{AggregatedText: action.Reason}}}
					return
				}
				out <- StreamEvent{Item: MultiTurnStreamItem{Kind: StreamItemKind, Content: item}}
			case completion.StreamedReasoning:
				out <- StreamEvent{Item: MultiTurnStreamItem{Kind: StreamItemKind, Content: item}}
			case completion.StreamedToolCall:
				name := item.ToolCall.Function.Name
				if action := r.hook.OnToolCallDelta(ctx, item.ToolCall.CallID, item.ToolCall.ID, &name, ""); action.Kind == HookTerminate {
					out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: FinalResponseMeta{AggregatedText: action.Reason}}}
					return
				}
				toolCalls = append(toolCalls, item.ToolCall)
			case completion.StreamedFinal:
				usage, _ = stream.Final()
			}
		}

		if action := r.hook.OnCompletionResponse(ctx, prompt, completion.Response[Raw]{Usage: usage}); action.Kind == HookTerminate {
			out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: FinalResponseMeta{AggregatedText: action.Reason}}}
			return
		}

		assistantContent := make([]message.AssistantContent, 0, len(toolCalls)+1)
		if aggregated.Len() > 0 {
			assistantContent = append(assistantContent, message.Text{Text: aggregated.String()})
		}
		for _, tc := range toolCalls {
			assistantContent = append(assistantContent, tc)
		}
		if len(assistantContent) == 0 {
			assistantContent = append(assistantContent, message.Text{Text: ""})
		}

		history = append(history, prompt)
		assistantMsg, err := message.NewAssistantMessage(uuid.NewString(), assistantContent...)
		if err != nil {
			out <- StreamEvent{Err: &CompletionError{Err: err}}
			return
		}
		history = append(history, assistantMsg)

		if len(toolCalls) == 0 {
			final := FinalResponseMeta{Usage: usage, AggregatedText: aggregated.String()}
			if action := r.hook.OnStreamCompletionResponseFinish(ctx, prompt, final); action.Kind == HookTerminate {
				final.AggregatedText = action.Reason
			}
			out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: final}}
			return
		}

		toolResults := make([]message.UserContent, 0, len(toolCalls))
		terminated := false
		var terminationReason string

		for _, call := range toolCalls {
			argsJSON, err := json.Marshal(call.Function.Arguments)
			if err != nil {
				out <- StreamEvent{Err: &CompletionError{Err: err}}
				return
			}

			action := r.hook.OnToolCall(ctx, call.Function.Name, call.CallID, call.ID, string(argsJSON))
			if action.Kind == ToolCallTerminate {
				terminated = true
				terminationReason = action.Reason
				break
			}
			if action.Kind == ToolCallSkip {
				toolResults = append(toolResults, message.NewToolResultText(call.ID, call.CallID, action.Reason))
				out <- StreamEvent{Item: textItem(action.Reason)}
				continue
			}

			var result string
			t, ok := a.resolveTool(call.Function.Name, dynResolved)
			if !ok {
				slog.Warn("tool call resolved to no registered tool", "tool", call.Function.Name)
				result = (&tool.Error{Kind: tool.ErrNotFound, Name: call.Function.Name}).Error()
			} else {
				result, err = t.Call(ctx, string(argsJSON))
				if err != nil {
					slog.Error("tool call failed", "tool", call.Function.Name, "error", err)
					result = err.Error()
				}
			}

			if r.reviewer != nil {
				result = r.reviewer.Critique(ctx, call.Function.Name, call.CallID, string(argsJSON), result)
			}

			resultAction := r.hook.OnToolResult(ctx, call.Function.Name, call.CallID, call.ID, string(argsJSON), result)
			toolResults = append(toolResults, message.NewToolResultText(call.ID, call.CallID, result))
			out <- StreamEvent{Item: textItem(result)}
			if resultAction.Kind == HookTerminate {
				terminated = true
				terminationReason = resultAction.Reason
				break
			}
		}

		if terminated {
			out <- StreamEvent{Item: MultiTurnStreamItem{Kind: FinalResponseKind, Final: FinalResponseMeta{Usage: usage, AggregatedText: terminationReason}}}
			return
		}

		prompt, err = message.NewUserMessage(toolResults...)
		if err != nil {
			out <- StreamEvent{Err: &CompletionError{Err: err}}
			return
		}
	}
}

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

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

// HookActionKind distinguishes a HookAction's variant.
type HookActionKind int

const (
	HookContinue HookActionKind = iota
	HookTerminate
)

// HookAction is the control-flow result of most hook callbacks:
// either let the loop proceed, or stop it immediately with reason as
// the final output.
type HookAction struct {
	Kind   HookActionKind
	Reason string
}

// Continue lets the loop proceed as normal.
func Continue() HookAction { return HookAction{Kind: HookContinue} }

// Terminate stops the loop immediately, surfacing reason as the final
// output.
func Terminate(reason string) HookAction { return HookAction{Kind: HookTerminate, Reason: reason} }

// ToolCallHookActionKind distinguishes a ToolCallHookAction's variant.
type ToolCallHookActionKind int

const (
	ToolCallContinue ToolCallHookActionKind = iota
	ToolCallSkip
	ToolCallTerminate
)

// ToolCallHookAction is on_tool_call's richer control-flow result: a
// tool invocation may additionally be skipped without terminating the
// whole loop.
type ToolCallHookAction struct {
	Kind   ToolCallHookActionKind
	Reason string
}

func ToolContinue() ToolCallHookAction { return ToolCallHookAction{Kind: ToolCallContinue} }
func ToolSkip(reason string) ToolCallHookAction {
	return ToolCallHookAction{Kind: ToolCallSkip, Reason: reason}
}
func ToolTerminate(reason string) ToolCallHookAction {
	return ToolCallHookAction{Kind: ToolCallTerminate, Reason: reason}
}

// PromptHook observes and optionally steers a single PromptRequest's
// execution. Every method is optional: embed Hooks (which implements
// every method as a no-op) and override only what's needed. Hooks
// MUST NOT mutate history themselves — they signal intent through
// their return value and let the loop perform the mutation.
type PromptHook[Raw any] interface {
	OnCompletionCall(ctx context.Context, prompt message.Message, history []message.Message) HookAction
	OnCompletionResponse(ctx context.Context, prompt message.Message, resp completion.Response[Raw]) HookAction
	OnToolCall(ctx context.Context, toolName string, toolCallID, internalCallID, args string) ToolCallHookAction
	OnToolResult(ctx context.Context, toolName string, toolCallID, internalCallID, args, result string) HookAction
	OnTextDelta(ctx context.Context, delta, aggregated string) HookAction
	OnToolCallDelta(ctx context.Context, toolCallID, internalCallID string, toolName *string, delta string) HookAction
	OnStreamCompletionResponseFinish(ctx context.Context, prompt message.Message, final FinalResponseMeta) HookAction
}

// Hooks is the zero-value PromptHook: every callback continues.
// Embed it anonymously to implement only the callbacks a concrete
// hook cares about.
type Hooks[Raw any] struct{}

func (Hooks[Raw]) OnCompletionCall(context.Context, message.Message, []message.Message) HookAction {
	return Continue()
}

func (Hooks[Raw]) OnCompletionResponse(context.Context, message.Message, completion.Response[Raw]) HookAction {
	return Continue()
}

func (Hooks[Raw]) OnToolCall(context.Context, string, string, string, string) ToolCallHookAction {
	return ToolContinue()
}

func (Hooks[Raw]) OnToolResult(context.Context, string, string, string, string, string) HookAction {
	return Continue()
}

func (Hooks[Raw]) OnTextDelta(context.Context, string, string) HookAction {
	return Continue()
}

func (Hooks[Raw]) OnToolCallDelta(context.Context, string, string, *string, string) HookAction {
	return Continue()
}

func (Hooks[Raw]) OnStreamCompletionResponseFinish(context.Context, message.Message, FinalResponseMeta) HookAction {
	return Continue()
}

// Reviewer lets a caller post-process a tool's raw output before it
// is recorded as the tool result, without affecting control flow:
// unlike a hook it cannot terminate the loop, only rewrite the text
// the model will see.
type Reviewer interface {
	Critique(ctx context.Context, toolName, toolCallID, args, out string) string
}

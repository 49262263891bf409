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

import "github.com/kadirpekel/agentcore/message"

// StreamedAssistantContentKind discriminates the items a streaming
// completion emits.
type StreamedAssistantContentKind int

const (
	StreamedText StreamedAssistantContentKind = iota
	StreamedReasoning
	StreamedToolCall
	StreamedFinal
)

// StreamedAssistantContent is one item of a streaming completion.
// Exactly one field is meaningful, selected by Kind:
//
//   - StreamedText: TextDelta is the incremental text fragment.
//   - StreamedReasoning: ReasoningDelta is the incremental reasoning
//     fragment.
//   - StreamedToolCall: ToolCall is fully accumulated (name, id, and
//     parsed arguments) — accumulation of the raw argument-JSON
//     fragments happens inside the provider adapter, which only emits
//     this item once the arguments are a parseable whole at the
//     ContentBlockStop boundary.
//   - StreamedFinal: carries no payload; the terminal usage and raw
//     response come from StreamingResponse.Final. This item is emitted
//     exactly once, last.
type StreamedAssistantContent struct {
	Kind           StreamedAssistantContentKind
	TextDelta      string
	ReasoningDelta string
	ToolCall       message.ToolCall
}

// StreamingResponse is a lazy, finite, non-restartable sequence of
// StreamedAssistantContent items, terminated by exactly one
// StreamedFinal-kind item. Implementations are expected to stop
// pulling upstream bytes and drop any partial tool call without
// executing it when ctx is canceled.
type StreamingResponse[Raw any] interface {
	// Next blocks until the next item is available, the stream ends
	// (ok == false), or ctx is canceled. Once Next returns an item with
	// Kind == StreamedFinal, subsequent calls return ok == false.
	Next() (item StreamedAssistantContent, ok bool, err error)

	// Final returns the terminal usage/raw metadata. It is only valid
	// to call once Next has returned the StreamedFinal item (or the
	// stream has ended).
	Final() (usage Usage, raw Raw)
}

// CollectText drains a StreamingResponse, concatenating every
// StreamedText delta. For a deterministic provider the result equals
// the Text parts of the non-streaming call for the same request.
func CollectText[Raw any](s StreamingResponse[Raw]) (string, error) {
	var text string
	for {
		item, ok, err := s.Next()
		if err != nil {
			return text, err
		}
		if !ok {
			return text, nil
		}
		if item.Kind == StreamedText {
			text += item.TextDelta
		}
	}
}

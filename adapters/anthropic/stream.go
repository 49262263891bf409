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

package anthropic

import (
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

// toolBuffer accumulates a tool_use block's partial JSON fragments
// across InputJSONDelta events, only decoded into arguments once the
// block closes — mirrors the stream's own ContentBlockStop boundary,
// which is the only point at which the fragments are guaranteed to
// form parseable JSON.
type toolBuffer struct {
	name      string
	id        string
	fragments []string
}

func (tb *toolBuffer) finalInput() string {
	joined := strings.Join(tb.fragments, "")
	if strings.TrimSpace(joined) == "" {
		return "{}"
	}
	return joined
}

// streamer implements completion.StreamingResponse[*sdk.Message] over
// an Anthropic SSE event stream.
type streamer struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]

	toolBlocks map[int]*toolBuffer
	pending    []completion.StreamedAssistantContent

	usage     completion.Usage
	raw       *sdk.Message
	finalSent bool
}

func newStreamer(stream *ssestream.Stream[sdk.MessageStreamEventUnion]) *streamer {
	return &streamer{
		stream:     stream,
		toolBlocks: make(map[int]*toolBuffer),
	}
}

func (s *streamer) Next() (completion.StreamedAssistantContent, bool, error) {
	for len(s.pending) == 0 {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return completion.StreamedAssistantContent{}, false, completion.HTTPError(err)
			}
			if s.finalSent {
				return completion.StreamedAssistantContent{}, false, nil
			}
			s.finalSent = true
			return completion.StreamedAssistantContent{Kind: completion.StreamedFinal}, true, nil
		}
		if err := s.handle(s.stream.Current()); err != nil {
			return completion.StreamedAssistantContent{}, false, completion.ResponseError(err.Error())
		}
	}
	item := s.pending[0]
	s.pending = s.pending[1:]
	return item, true, nil
}

func (s *streamer) Final() (completion.Usage, *sdk.Message) {
	return s.usage, s.raw
}

func (s *streamer) emit(item completion.StreamedAssistantContent) {
	s.pending = append(s.pending, item)
}

func (s *streamer) handle(event sdk.MessageStreamEventUnion) error {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		s.toolBlocks = make(map[int]*toolBuffer)
	case sdk.ContentBlockStartEvent:
		idx := int(ev.Index)
		if toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			s.toolBlocks[idx] = &toolBuffer{name: toolUse.Name, id: toolUse.ID}
		}
	case sdk.ContentBlockDeltaEvent:
		idx := int(ev.Index)
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			if delta.Text != "" {
				s.emit(completion.StreamedAssistantContent{Kind: completion.StreamedText, TextDelta: delta.Text})
			}
		case sdk.ThinkingDelta:
			if delta.Thinking != "" {
				s.emit(completion.StreamedAssistantContent{Kind: completion.StreamedReasoning, ReasoningDelta: delta.Thinking})
			}
		case sdk.InputJSONDelta:
			if tb := s.toolBlocks[idx]; tb != nil && delta.PartialJSON != "" {
				tb.fragments = append(tb.fragments, delta.PartialJSON)
			}
		}
	case sdk.ContentBlockStopEvent:
		idx := int(ev.Index)
		if tb, ok := s.toolBlocks[idx]; ok {
			delete(s.toolBlocks, idx)
			var args map[string]any
			if err := json.Unmarshal([]byte(tb.finalInput()), &args); err != nil {
				return err
			}
			s.emit(completion.StreamedAssistantContent{
				Kind: completion.StreamedToolCall,
				ToolCall: message.ToolCall{
					ID:       tb.id,
					CallID:   tb.id,
					Function: message.ToolCallFunction{Name: tb.name, Arguments: args},
				},
			})
		}
	case sdk.MessageDeltaEvent:
		s.usage.InputTokens += int(ev.Usage.InputTokens)
		s.usage.OutputTokens += int(ev.Usage.OutputTokens)
		s.usage.TotalTokens = s.usage.InputTokens + s.usage.OutputTokens
	case sdk.MessageStopEvent:
		s.toolBlocks = make(map[int]*toolBuffer)
	}
	return nil
}

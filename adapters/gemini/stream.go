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

package gemini

import (
	"iter"

	"google.golang.org/genai"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

func toolCallOf(id, name string, args map[string]any) message.ToolCall {
	return message.ToolCall{
		ID:       id,
		CallID:   id,
		Function: message.ToolCallFunction{Name: name, Arguments: args},
	}
}

type streamedItem struct {
	content completion.StreamedAssistantContent
	err     error
}

// streamer implements completion.StreamingResponse[*genai.GenerateContentResponse]
// over genai's push-style GenerateContentStream iterator. A single
// goroutine drains the iterator into a buffered channel, translating
// each chunk's parts as it comes; Next() pulls from that channel,
// giving callers the synchronous interface completion.StreamingResponse
// requires. The producer runs up to 16 items ahead of the consumer and
// blocks once the channel is full.
type streamer struct {
	items chan streamedItem

	emittedCallIDs map[string]bool
	usage          completion.Usage
	raw            *genai.GenerateContentResponse
	finalSent      bool
}

func newStreamer(seq iter.Seq2[*genai.GenerateContentResponse, error]) *streamer {
	s := &streamer{
		items:          make(chan streamedItem, 16),
		emittedCallIDs: make(map[string]bool),
	}
	go s.run(seq)
	return s
}

func (s *streamer) run(seq iter.Seq2[*genai.GenerateContentResponse, error]) {
	defer close(s.items)
	for resp, err := range seq {
		if err != nil {
			s.items <- streamedItem{err: err}
			return
		}
		s.raw = resp
		if resp.UsageMetadata != nil {
			s.usage = completion.Usage{
				InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
				OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
			}
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			switch {
			case part.Text != "" && part.Thought:
				s.items <- streamedItem{content: completion.StreamedAssistantContent{
					Kind:           completion.StreamedReasoning,
					ReasoningDelta: part.Text,
				}}
			case part.Text != "":
				s.items <- streamedItem{content: completion.StreamedAssistantContent{
					Kind:      completion.StreamedText,
					TextDelta: part.Text,
				}}
			case part.FunctionCall != nil:
				id := part.FunctionCall.ID
				if id == "" {
					id = stableCallID(part.FunctionCall.Name, part.FunctionCall.Args)
				}
				if s.emittedCallIDs[id] {
					continue
				}
				s.emittedCallIDs[id] = true
				s.items <- streamedItem{content: completion.StreamedAssistantContent{
					Kind: completion.StreamedToolCall,
					ToolCall: toolCallOf(id, part.FunctionCall.Name, part.FunctionCall.Args),
				}}
			}
		}
	}
}

func (s *streamer) Next() (completion.StreamedAssistantContent, bool, error) {
	item, ok := <-s.items
	if !ok {
		if s.finalSent {
			return completion.StreamedAssistantContent{}, false, nil
		}
		s.finalSent = true
		return completion.StreamedAssistantContent{Kind: completion.StreamedFinal}, true, nil
	}
	if item.err != nil {
		return completion.StreamedAssistantContent{}, false, completion.HTTPError(item.err)
	}
	return item.content, true, nil
}

func (s *streamer) Final() (completion.Usage, *genai.GenerateContentResponse) {
	return s.usage, s.raw
}

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

// Package tokencount provides a tiktoken-backed token estimator for
// when a provider doesn't report Usage, or for pre-flight budgeting
// before a call is made. This is deliberately separate from the
// completion contract itself: usage reporting stays a provider
// concern, and this package only supplies a best-effort fallback a
// caller may opt into.
package tokencount

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/message"
)

// messageOverheadTokens approximates the per-message framing overhead
// (role + separators) most chat-style providers add atop raw content
// tokens, following the OpenAI cookbook's counting recipe.
const messageOverheadTokens = 3

var (
	encodingCache   = map[string]*tiktoken.Tiktoken{}
	encodingCacheMu sync.RWMutex
)

// encodingForModel returns the cached *tiktoken.Tiktoken for model,
// falling back to cl100k_base when the model isn't recognized by
// tiktoken-go.
func encodingForModel(model string) (*tiktoken.Tiktoken, error) {
	encodingCacheMu.RLock()
	enc, ok := encodingCache[model]
	encodingCacheMu.RUnlock()
	if ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tokencount: resolve encoding for %q: %w", model, err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = enc
	encodingCacheMu.Unlock()
	return enc, nil
}

// Estimator counts tokens for a given model using tiktoken-go's BPE
// encodings, caching the resolved encoding per model name.
type Estimator struct {
	model string
	enc   *tiktoken.Tiktoken
}

// NewEstimator builds an Estimator for model (e.g. "gpt-4o",
// "claude-3-5-sonnet" — non-OpenAI model names fall back to
// cl100k_base, which is an approximation, not an exact count).
func NewEstimator(model string) (*Estimator, error) {
	enc, err := encodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &Estimator{model: model, enc: enc}, nil
}

// Model returns the model name this estimator was built for.
func (e *Estimator) Model() string { return e.model }

// Count returns the token length of text.
func (e *Estimator) Count(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// CountRequest estimates the prompt-side token cost of req: its
// effective preamble, every chat-history message's RAG text, the
// current turn, and a flat allowance per tool definition (tool-call
// schemas vary too much in size to estimate accurately without
// encoding them, so a fixed allowance stands in).
func (e *Estimator) CountRequest(req completion.Request) int {
	total := e.Count(req.EffectivePreamble())
	for _, m := range req.Messages() {
		total += messageOverheadTokens + e.Count(m.RAGText())
	}
	total += len(req.Tools) * 64
	return total
}

// EstimateUsage fills in a completion.Usage from prompt and completion
// text directly, for providers that report neither input nor output
// token counts.
func (e *Estimator) EstimateUsage(promptText, completionText string) completion.Usage {
	in := e.Count(promptText)
	out := e.Count(completionText)
	return completion.Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// EstimateResponseUsage is EstimateUsage applied to a full prompt
// message and a completion response's text parts, for callers that
// have a message.Message on hand rather than raw strings.
func (e *Estimator) EstimateResponseUsage(prompt message.Message, respText string) completion.Usage {
	return e.EstimateUsage(prompt.RAGText(), respText)
}

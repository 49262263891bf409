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

// Package ratelimit decorates a completion.Model or
// completion.StreamingModel with a token-bucket throttle, so a provider
// adapter can be wrapped with a tokens-per-minute budget without the
// core completion contract knowing about rate limiting at all. A
// golang.org/x/time/rate.Limiter supplies the bucket; the decorator
// charges an estimated token cost per request and waits for capacity
// before dispatching.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kadirpekel/agentcore/completion"
)

// Estimator returns the token cost to charge the limiter for req,
// before the underlying model is called.
type Estimator func(req completion.Request) int

// DefaultEstimator approximates token cost from character count across
// the preamble and chat history, at roughly one token per four
// characters, plus a fixed allowance for tool definitions and provider
// framing overhead.
func DefaultEstimator(req completion.Request) int {
	chars := len(req.EffectivePreamble())
	for _, m := range req.Messages() {
		chars += len(m.RAGText())
	}
	tokens := chars/4 + 64
	if len(req.Tools) > 0 {
		tokens += len(req.Tools) * 64
	}
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// NewTokenBucket builds a rate.Limiter budgeted in tokens per minute,
// with burst set to the full per-minute budget so a single request of
// up to that budget can pass; a request whose estimate exceeds it makes
// WaitN fail at once.
func NewTokenBucket(tokensPerMinute float64) *rate.Limiter {
	burst := int(tokensPerMinute)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(tokensPerMinute/60.0), burst)
}

// Model wraps a completion.Model[Raw] with a token-bucket throttle.
type Model[Raw any] struct {
	next     completion.Model[Raw]
	limiter  *rate.Limiter
	estimate Estimator
}

// Wrap decorates next with limiter, charging each call's estimated
// token cost (via estimate, or DefaultEstimator when nil) before
// delegating.
func Wrap[Raw any](next completion.Model[Raw], limiter *rate.Limiter, estimate Estimator) *Model[Raw] {
	if estimate == nil {
		estimate = DefaultEstimator
	}
	return &Model[Raw]{next: next, limiter: limiter, estimate: estimate}
}

// Completion implements completion.Model.
func (m *Model[Raw]) Completion(ctx context.Context, req completion.Request) (completion.Response[Raw], error) {
	if err := m.limiter.WaitN(ctx, m.estimate(req)); err != nil {
		var zero completion.Response[Raw]
		return zero, completion.HTTPError(err)
	}
	return m.next.Completion(ctx, req)
}

// StreamingModel wraps a completion.StreamingModel[Raw] with a
// token-bucket throttle.
type StreamingModel[Raw any] struct {
	next     completion.StreamingModel[Raw]
	limiter  *rate.Limiter
	estimate Estimator
}

// WrapStreaming decorates next the same way Wrap does for non-streaming
// models.
func WrapStreaming[Raw any](next completion.StreamingModel[Raw], limiter *rate.Limiter, estimate Estimator) *StreamingModel[Raw] {
	if estimate == nil {
		estimate = DefaultEstimator
	}
	return &StreamingModel[Raw]{next: next, limiter: limiter, estimate: estimate}
}

// StreamCompletion implements completion.StreamingModel.
func (m *StreamingModel[Raw]) StreamCompletion(ctx context.Context, req completion.Request) (completion.StreamingResponse[Raw], error) {
	if err := m.limiter.WaitN(ctx, m.estimate(req)); err != nil {
		return nil, completion.HTTPError(err)
	}
	return m.next.StreamCompletion(ctx, req)
}

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

// Package pipeline is a small combinator layer: Map, Then, Parallel,
// Conditional, Lookup, Prompt, and Extract compose
// `func(context.Context, In) (Out, error)` stages into declarative RAG
// chains. Every combinator is a pure adapter around its constituents —
// none of them add retries, concurrency limits, or caching beyond what
// the wrapped stages already provide.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/extractor"
	"github.com/kadirpekel/agentcore/vectorstore"
)

// Op is a single pipeline stage: an async function from In to Out.
type Op[In, Out any] func(ctx context.Context, in In) (Out, error)

// Map lifts a pure, non-failing function into an Op.
func Map[In, Out any](fn func(In) Out) Op[In, Out] {
	return func(_ context.Context, in In) (Out, error) {
		return fn(in), nil
	}
}

// Then sequences two Ops, feeding the first's output into the second.
func Then[A, B, C any](first Op[A, B], second Op[B, C]) Op[A, C] {
	return func(ctx context.Context, in A) (C, error) {
		var zero C
		mid, err := first(ctx, in)
		if err != nil {
			return zero, err
		}
		return second(ctx, mid)
	}
}

// AndThen is an alias of Then kept for readability at call sites that
// read as a chain of conditions rather than a data pipeline.
func AndThen[A, B, C any](first Op[A, B], second Op[B, C]) Op[A, C] {
	return Then(first, second)
}

// Parallel runs every op against the same input concurrently via
// errgroup, returning their outputs in the same order as ops. The
// first error cancels ctx for the remaining in-flight ops and is
// returned with a nil slice.
func Parallel[In, Out any](ops ...Op[In, Out]) Op[In, []Out] {
	return func(ctx context.Context, in In) ([]Out, error) {
		out := make([]Out, len(ops))
		g, gctx := errgroup.WithContext(ctx)
		for i, op := range ops {
			i, op := i, op
			g.Go(func() error {
				result, err := op(gctx, in)
				if err != nil {
					return err
				}
				out[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Predicate selects which of two branches Conditional runs.
type Predicate[In any] func(In) bool

// Conditional runs ifTrue when pred(in) holds, ifFalse otherwise. Both
// branches share the same In/Out shape.
func Conditional[In, Out any](pred Predicate[In], ifTrue, ifFalse Op[In, Out]) Op[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		if pred(in) {
			return ifTrue(ctx, in)
		}
		return ifFalse(ctx, in)
	}
}

// TryConditional is Conditional where the predicate itself may fail
// (e.g. it depends on a prior lookup), short-circuiting with a zero
// Out and the predicate's error rather than choosing a branch.
func TryConditional[In, Out any](pred func(In) (bool, error), ifTrue, ifFalse Op[In, Out]) Op[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		ok, err := pred(in)
		if err != nil {
			return zero, err
		}
		if ok {
			return ifTrue(ctx, in)
		}
		return ifFalse(ctx, in)
	}
}

// Lookup queries a vector index for the top n matches of a string
// query, the pipeline-op form of the retrieval step agent.Builder's
// DynamicContext performs per-turn.
func Lookup[T any](index vectorstore.Index[T], n int) Op[string, []vectorstore.Match[T]] {
	return func(ctx context.Context, query string) ([]vectorstore.Match[T], error) {
		req, err := vectorstore.NewRequestBuilder().Query(query).Samples(uint64(n)).Build()
		if err != nil {
			return nil, err
		}
		return index.TopN(ctx, req)
	}
}

// Prompt runs a single completion turn against model, the pipeline-op
// form of Agent.Prompt().Send() for callers that want bare
// request/response semantics with no tool loop.
func Prompt[Raw any](model completion.Model[Raw]) Op[completion.Request, completion.Response[Raw]] {
	return func(ctx context.Context, req completion.Request) (completion.Response[Raw], error) {
		return model.Completion(ctx, req)
	}
}

// Extract runs ex against a free-form input string, the pipeline-op
// form of Extractor.Extract.
func Extract[T any, Raw any](ex *extractor.Extractor[T, Raw]) Op[string, T] {
	return func(ctx context.Context, input string) (T, error) {
		return ex.Extract(ctx, input)
	}
}

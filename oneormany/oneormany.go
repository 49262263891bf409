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

// Package oneormany provides a non-empty ordered container used
// throughout the message model: chat content, tool-result content, and
// extractor payloads are never allowed to be empty, so rather than
// audit every call site for a stray empty slice, the type itself
// makes the empty state unrepresentable.
package oneormany

import "errors"

// ErrEmptyList is returned when constructing a OneOrMany from an empty
// slice or iterator.
var ErrEmptyList = errors.New("oneormany: cannot create OneOrMany from an empty list")

// OneOrMany holds one or more items of type T. It can never be empty:
// the only constructors are One and Many, and Many rejects an empty
// input.
type OneOrMany[T any] struct {
	first T
	rest  []T
}

// One builds a OneOrMany containing a single item.
func One[T any](item T) OneOrMany[T] {
	return OneOrMany[T]{first: item}
}

// Many builds a OneOrMany from a slice, failing if it is empty.
func Many[T any](items []T) (OneOrMany[T], error) {
	if len(items) == 0 {
		return OneOrMany[T]{}, ErrEmptyList
	}
	rest := make([]T, len(items)-1)
	copy(rest, items[1:])
	return OneOrMany[T]{first: items[0], rest: rest}, nil
}

// Merge flattens a list of OneOrMany values into a single one,
// failing only if the input list itself is empty (each individual
// OneOrMany is already non-empty by construction).
func Merge[T any](many []OneOrMany[T]) (OneOrMany[T], error) {
	var flat []T
	for _, m := range many {
		flat = append(flat, m.Slice()...)
	}
	return Many(flat)
}

// First returns the first item.
func (o OneOrMany[T]) First() T {
	return o.first
}

// Rest returns every item after the first, which may be empty.
func (o OneOrMany[T]) Rest() []T {
	out := make([]T, len(o.rest))
	copy(out, o.rest)
	return out
}

// Len returns the total number of items (always >= 1).
func (o OneOrMany[T]) Len() int {
	return 1 + len(o.rest)
}

// Slice returns every item, first included, as a plain slice.
func (o OneOrMany[T]) Slice() []T {
	out := make([]T, 0, o.Len())
	out = append(out, o.first)
	out = append(out, o.rest...)
	return out
}

// Push appends an item after the current last item.
func (o *OneOrMany[T]) Push(item T) {
	o.rest = append(o.rest, item)
}

// ForEach calls fn for every item in order.
func (o OneOrMany[T]) ForEach(fn func(T)) {
	fn(o.first)
	for _, item := range o.rest {
		fn(item)
	}
}

// Map transforms every item, preserving non-emptiness.
func Map[T, U any](o OneOrMany[T], fn func(T) U) OneOrMany[U] {
	rest := make([]U, len(o.rest))
	for i, item := range o.rest {
		rest[i] = fn(item)
	}
	return OneOrMany[U]{first: fn(o.first), rest: rest}
}

// TryMap transforms every item, stopping at the first error.
func TryMap[T, U any](o OneOrMany[T], fn func(T) (U, error)) (OneOrMany[U], error) {
	first, err := fn(o.first)
	if err != nil {
		return OneOrMany[U]{}, err
	}
	rest := make([]U, 0, len(o.rest))
	for _, item := range o.rest {
		u, err := fn(item)
		if err != nil {
			return OneOrMany[U]{}, err
		}
		rest = append(rest, u)
	}
	return OneOrMany[U]{first: first, rest: rest}, nil
}

// Filter returns the items matching pred, preserving order. The
// result is a plain slice since filtering can legitimately produce an
// empty result.
func Filter[T any](o OneOrMany[T], pred func(T) bool) []T {
	out := make([]T, 0, o.Len())
	o.ForEach(func(item T) {
		if pred(item) {
			out = append(out, item)
		}
	})
	return out
}

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

package vectorstore

// FilterOp identifies a SearchFilter node's operator.
type FilterOp int

const (
	FilterEq FilterOp = iota
	FilterGt
	FilterLt
	FilterAnd
	FilterOr
)

// SearchFilter is a small, adapter-agnostic predicate algebra:
// eq/gt/lt leaves combined with and/or. Each adapter
// lowers it to its own native filter DSL and must reject any operator
// (or value type) it cannot express with an *Error of kind
// ErrUnsupportedFilter raised at query time — the filter is plain
// data, so there is nothing to reject earlier.
type SearchFilter struct {
	Op       FilterOp
	Key      string // set for Eq/Gt/Lt
	Value    any    // set for Eq/Gt/Lt
	Children []SearchFilter // set for And/Or, always length 2
}

// Eq builds an equality leaf.
func Eq(key string, value any) SearchFilter {
	return SearchFilter{Op: FilterEq, Key: key, Value: value}
}

// Gt builds a greater-than leaf.
func Gt(key string, value any) SearchFilter {
	return SearchFilter{Op: FilterGt, Key: key, Value: value}
}

// Lt builds a less-than leaf.
func Lt(key string, value any) SearchFilter {
	return SearchFilter{Op: FilterLt, Key: key, Value: value}
}

// And combines two filters, both of which must hold.
func And(a, b SearchFilter) SearchFilter {
	return SearchFilter{Op: FilterAnd, Children: []SearchFilter{a, b}}
}

// Or combines two filters, at least one of which must hold.
func Or(a, b SearchFilter) SearchFilter {
	return SearchFilter{Op: FilterOr, Children: []SearchFilter{a, b}}
}

// Eval evaluates f against a metadata map, used by the reference
// in-memory index and by tests asserting adapter lowering behaves the
// same as the reference semantics. Comparisons for Gt/Lt require both
// the stored value and the filter value to be float64-comparable
// (json-decoded numbers); any other comparison reports false rather
// than erroring, since Eval is a best-effort reference, not an
// adapter boundary.
func (f SearchFilter) Eval(metadata map[string]any) bool {
	switch f.Op {
	case FilterEq:
		v, ok := metadata[f.Key]
		return ok && v == f.Value
	case FilterGt:
		return compareNumeric(metadata[f.Key], f.Value, func(a, b float64) bool { return a > b })
	case FilterLt:
		return compareNumeric(metadata[f.Key], f.Value, func(a, b float64) bool { return a < b })
	case FilterAnd:
		return f.Children[0].Eval(metadata) && f.Children[1].Eval(metadata)
	case FilterOr:
		return f.Children[0].Eval(metadata) || f.Children[1].Eval(metadata)
	default:
		return false
	}
}

func compareNumeric(stored, want any, cmp func(a, b float64) bool) bool {
	a, ok := toFloat64(stored)
	if !ok {
		return false
	}
	b, ok := toFloat64(want)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

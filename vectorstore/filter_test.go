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

package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/agentcore/vectorstore"
)

func TestFilterEq(t *testing.T) {
	f := vectorstore.Eq("category", "fruit")
	assert.True(t, f.Eval(map[string]any{"category": "fruit"}))
	assert.False(t, f.Eval(map[string]any{"category": "veg"}))
}

func TestFilterGtLt(t *testing.T) {
	assert.True(t, vectorstore.Gt("price", 5.0).Eval(map[string]any{"price": 10.0}))
	assert.False(t, vectorstore.Gt("price", 5.0).Eval(map[string]any{"price": 1.0}))
	assert.True(t, vectorstore.Lt("price", 5.0).Eval(map[string]any{"price": 1.0}))
}

func TestFilterAndOr(t *testing.T) {
	f := vectorstore.And(vectorstore.Eq("category", "fruit"), vectorstore.Gt("price", 1.0))
	assert.True(t, f.Eval(map[string]any{"category": "fruit", "price": 2.0}))
	assert.False(t, f.Eval(map[string]any{"category": "fruit", "price": 0.5}))

	g := vectorstore.Or(vectorstore.Eq("category", "fruit"), vectorstore.Eq("category", "veg"))
	assert.True(t, g.Eval(map[string]any{"category": "veg"}))
}

func TestFilterMissingKeyIsFalse(t *testing.T) {
	f := vectorstore.Eq("missing", "x")
	assert.False(t, f.Eval(map[string]any{}))
}

func TestUnsupportedFilterErrorIsDistinctKind(t *testing.T) {
	err := vectorstore.UnsupportedFilterError("regex")
	assert.True(t, vectorstore.IsKind(err, vectorstore.ErrUnsupportedFilter))
}

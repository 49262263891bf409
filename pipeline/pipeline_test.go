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

package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
	"github.com/kadirpekel/agentcore/pipeline"
	"github.com/kadirpekel/agentcore/vectorstore"
)

func TestMapAppliesPureFunction(t *testing.T) {
	upper := pipeline.Map(strings.ToUpper)
	out, err := upper(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)
}

func TestThenSequencesStages(t *testing.T) {
	upper := pipeline.Map(strings.ToUpper)
	exclaim := pipeline.Map(func(s string) string { return s + "!" })
	chain := pipeline.Then(upper, exclaim)

	out, err := chain(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "HI!", out)
}

func TestThenShortCircuitsOnFirstError(t *testing.T) {
	boom := pipeline.Op[string, string](func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	})
	neverCalled := pipeline.Map(func(s string) string { t.Fatal("second stage should not run"); return s })
	chain := pipeline.Then(boom, neverCalled)

	_, err := chain(context.Background(), "x")
	require.Error(t, err)
}

func TestParallelRunsAllOpsAndPreservesOrder(t *testing.T) {
	double := pipeline.Map(func(n int) int { return n * 2 })
	square := pipeline.Map(func(n int) int { return n * n })
	par := pipeline.Parallel(double, square)

	out, err := par(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 16}, out)
}

func TestParallelReturnsFirstError(t *testing.T) {
	ok := pipeline.Map(func(int) int { return 1 })
	fails := pipeline.Op[int, int](func(context.Context, int) (int, error) {
		return 0, errors.New("failed")
	})
	par := pipeline.Parallel(ok, fails)

	_, err := par(context.Background(), 0)
	require.Error(t, err)
}

func TestConditionalPicksBranchByPredicate(t *testing.T) {
	isEven := func(n int) bool { return n%2 == 0 }
	op := pipeline.Conditional(isEven,
		pipeline.Map(func(int) string { return "even" }),
		pipeline.Map(func(int) string { return "odd" }))

	out, err := op(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "even", out)

	out, err = op(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "odd", out)
}

func TestTryConditionalShortCircuitsOnPredicateError(t *testing.T) {
	op := pipeline.TryConditional(
		func(string) (bool, error) { return false, errors.New("predicate failed") },
		pipeline.Map(func(string) string { return "true-branch" }),
		pipeline.Map(func(string) string { return "false-branch" }),
	)

	_, err := op(context.Background(), "x")
	require.Error(t, err)
}

type wordVecModel struct{}

func (wordVecModel) MaxDocuments() int { return 100 }
func (wordVecModel) Dimensions() int   { return 3 }

func (m wordVecModel) vecFor(text string) []float64 {
	switch text {
	case "glarb-glarb", "What does glarb-glarb mean?":
		return []float64{0, 1, 0}
	default:
		return []float64{1, 0, 0}
	}
}

func (m wordVecModel) EmbedText(_ context.Context, text string) (embedding.Embedding, error) {
	return embedding.Embedding{Document: text, Vec: m.vecFor(text)}, nil
}

func (m wordVecModel) EmbedTexts(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, len(texts))
	for i, txt := range texts {
		out[i], _ = m.EmbedText(ctx, txt)
	}
	return out, nil
}

func TestLookupQueriesVectorIndex(t *testing.T) {
	model := wordVecModel{}
	idx := vectorstore.NewInMemoryIndex[string](model)
	e, _ := model.EmbedText(context.Background(), "glarb-glarb")
	idx.AddDocument(context.Background(), "doc_glarb", "glarb-glarb", oneormany.One(e), nil)

	lookup := pipeline.Lookup[string](idx, 1)
	out, err := lookup(context.Background(), "What does glarb-glarb mean?")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "doc_glarb", out[0].ID)
}

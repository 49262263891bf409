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

package embedding_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/embedding"
)

// fakeModel embeds each text to a 1-dim vector equal to its length,
// and records the largest batch size it was ever called with.
type fakeModel struct {
	maxDocuments int
	mu           sync.Mutex
	maxSeenBatch int
	calls        int32
}

func (f *fakeModel) MaxDocuments() int { return f.maxDocuments }
func (f *fakeModel) Dimensions() int   { return 1 }

func (f *fakeModel) EmbedText(ctx context.Context, text string) (embedding.Embedding, error) {
	return embedding.Embedding{Document: text, Vec: []float64{float64(len(text))}}, nil
}

func (f *fakeModel) EmbedTexts(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	if len(texts) > f.maxSeenBatch {
		f.maxSeenBatch = len(texts)
	}
	f.mu.Unlock()

	out := make([]embedding.Embedding, len(texts))
	for i, t := range texts {
		out[i] = embedding.Embedding{Document: t, Vec: []float64{float64(len(t))}}
	}
	return out, nil
}

type doc struct {
	id   string
	word string
}

func TestBuildNeverExceedsMaxDocuments(t *testing.T) {
	model := &fakeModel{maxDocuments: 2}
	b := embedding.NewBuilder[doc](model)
	for i := 0; i < 7; i++ {
		b.Document(doc{id: "d"}, "word")
	}

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, model.maxSeenBatch, 2)
}

func TestBuildRegroupsPerDocumentOrder(t *testing.T) {
	model := &fakeModel{maxDocuments: 10}
	b := embedding.NewBuilder[doc](model)
	b.Document(doc{id: "a"}, "alpha", "ant")
	b.Document(doc{id: "b"}, "bravo")

	results, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].Doc.id)
	assert.Equal(t, 2, results[0].Embeddings.Len())
	assert.Equal(t, "alpha", results[0].Embeddings.First().Document)
	assert.Equal(t, "ant", results[0].Embeddings.Rest()[0].Document)

	assert.Equal(t, "b", results[1].Doc.id)
	assert.Equal(t, 1, results[1].Embeddings.Len())
}

func TestBuildRejectsDocumentWithNoTexts(t *testing.T) {
	model := &fakeModel{maxDocuments: 10}
	b := embedding.NewBuilder[doc](model)
	b.Document(doc{id: "empty"})

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, embedding.IsKind(err, embedding.ErrRequest))
}

func TestBuildWithNoDocumentsReturnsEmpty(t *testing.T) {
	model := &fakeModel{maxDocuments: 10}
	b := embedding.NewBuilder[doc](model)

	results, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

type embeddableDoc struct {
	name string
}

func (d embeddableDoc) EmbeddableStrings() []string {
	return []string{d.name, d.name + " synonym"}
}

func TestEmbeddableUsesDocsOwnStrings(t *testing.T) {
	model := &fakeModel{maxDocuments: 10}
	b := embedding.NewBuilder[embeddableDoc](model)
	embedding.Embeddable(b, embeddableDoc{name: "glarb-glarb"})

	results, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Embeddings.Len())
}

func TestEmbeddingEqualityIsByDocumentOnly(t *testing.T) {
	a := embedding.Embedding{Document: "hello", Vec: []float64{1, 2, 3}}
	b := embedding.Embedding{Document: "hello", Vec: []float64{1.0001, 2, 3}}
	assert.True(t, a.Equal(b))
}

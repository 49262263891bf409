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

package qdrant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
	"github.com/kadirpekel/agentcore/vectorstore"
)

var _ vectorstore.Index[string] = (*Index[string])(nil)

type stubModel struct {
	vectors map[string][]float64
}

func (m *stubModel) MaxDocuments() int { return 100 }
func (m *stubModel) Dimensions() int   { return 3 }

func (m *stubModel) EmbedText(_ context.Context, text string) (embedding.Embedding, error) {
	return embedding.Embedding{Document: text, Vec: m.vectors[text]}, nil
}

func (m *stubModel) EmbedTexts(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, len(texts))
	for i, t := range texts {
		out[i], _ = m.EmbedText(ctx, t)
	}
	return out, nil
}

type fakeRaw struct {
	exists       bool
	createCalled bool
	points       map[string]*qdrant.PointStruct
	searchResult []*qdrant.ScoredPoint
	searchReq    *qdrant.SearchPoints
}

func (f *fakeRaw) CollectionExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeRaw) CreateCollection(context.Context, *qdrant.CreateCollection) error {
	f.createCalled = true
	f.exists = true
	return nil
}

func (f *fakeRaw) Upsert(_ context.Context, req *qdrant.UpsertPoints) error {
	if f.points == nil {
		f.points = map[string]*qdrant.PointStruct{}
	}
	for _, p := range req.Points {
		f.points[p.Id.GetUuid()] = p
	}
	return nil
}

func (f *fakeRaw) Search(_ context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error) {
	f.searchReq = req
	return f.searchResult, nil
}

func (f *fakeRaw) DeleteCollection(context.Context, string) error { return nil }
func (f *fakeRaw) Close() error                                  { return nil }

func scoredPoint(id string, score float32, item any) *qdrant.ScoredPoint {
	encoded, _ := json.Marshal(item)
	val, _ := qdrant.NewValue(string(encoded))
	return &qdrant.ScoredPoint{
		Id:      qdrant.NewID(id),
		Score:   score,
		Payload: map[string]*qdrant.Value{payloadKey: val},
	}
}

func TestAddDocumentCreatesCollectionOnce(t *testing.T) {
	fake := &fakeRaw{}
	model := &stubModel{}
	idx := New[string](fake, "docs", model)

	embeds := oneormany.One[embedding.Embedding](embedding.Embedding{Vec: []float64{1, 0, 0}})
	require.NoError(t, idx.AddDocument(context.Background(), "11111111-1111-1111-1111-111111111111", "cats are great", embeds, map[string]any{"topic": "animals"}))
	assert.True(t, fake.createCalled)
	assert.True(t, fake.exists)
	assert.Len(t, fake.points, 1)
}

func TestTopNDecodesStoredPayload(t *testing.T) {
	fake := &fakeRaw{exists: true, searchResult: []*qdrant.ScoredPoint{
		scoredPoint("doc-1", 0.9, "cats are great"),
	}}
	model := &stubModel{vectors: map[string][]float64{"query": {1, 0, 0}}}
	idx := New[string](fake, "docs", model)

	req, err := vectorstore.NewRequestBuilder().Query("query").Samples(1).Build()
	require.NoError(t, err)

	matches, err := idx.TopN(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cats are great", matches[0].Item)
	assert.InDelta(t, float64(float32(0.9)), matches[0].Score, 1e-9)
	require.NotNil(t, fake.searchReq)
	assert.Equal(t, "docs", fake.searchReq.CollectionName)
}

func TestTopNFilterRejectsUnsupportedOperator(t *testing.T) {
	fake := &fakeRaw{exists: true}
	model := &stubModel{vectors: map[string][]float64{"query": {1, 0, 0}}}
	idx := New[string](fake, "docs", model)

	req, err := vectorstore.NewRequestBuilder().Query("query").Samples(1).Filter(vectorstore.Gt("score", 5)).Build()
	require.NoError(t, err)

	_, err = idx.TopN(context.Background(), req)
	require.Error(t, err)
	assert.True(t, vectorstore.IsKind(err, vectorstore.ErrUnsupportedFilter))
}

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

// Package chromem adapts github.com/philippgille/chromem-go, an
// embedded pure-Go vector store, to vectorstore.Index: collections
// created lazily with an embedding function that rejects every call
// (embeddings are always supplied
// pre-computed by this module's own embedding.Model, never computed by
// chromem itself), documents stored with their JSON-encoded payload as
// Content, and QueryEmbedding used directly since the query vector is
// already in hand.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
	"github.com/kadirpekel/agentcore/vectorstore"
)

// identityEmbed rejects any call: this adapter only ever queries and
// stores pre-computed vectors, so chromem should never need to embed
// text itself.
func identityEmbed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("chromem: embedding function invoked but vectors are always pre-computed")
}

// Index implements vectorstore.Index[T] over one chromem collection.
// T values are stored JSON-encoded in each document's Content field and
// decoded back out on TopN.
type Index[T any] struct {
	col   *chromemgo.Collection
	model embedding.Model
}

// New builds an Index backed by an existing chromem collection.
func New[T any](col *chromemgo.Collection, model embedding.Model) *Index[T] {
	return &Index[T]{col: col, model: model}
}

// NewCollection gets or creates a named collection on db and wraps it
// as an Index.
func NewCollection[T any](db *chromemgo.DB, name string, model embedding.Model) (*Index[T], error) {
	col, err := db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, vectorstore.DatastoreError(err)
	}
	return New[T](col, model), nil
}

// AddDocument upserts item under id, storing it JSON-encoded alongside
// its first embedding (chromem's document model carries exactly one
// vector per document; when embeddings carries more than one, only the
// first is stored).
func (idx *Index[T]) AddDocument(ctx context.Context, id string, item T, embeddings oneormany.OneOrMany[embedding.Embedding], metadata map[string]any) error {
	encoded, err := json.Marshal(item)
	if err != nil {
		return vectorstore.JSONError(err)
	}

	var vec []float32
	embeddings.ForEach(func(e embedding.Embedding) {
		if vec == nil {
			vec = toFloat32(e.Vec)
		}
	})

	strMetadata := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMetadata[k] = fmt.Sprint(v)
	}

	doc := chromemgo.Document{
		ID:        id,
		Content:   string(encoded),
		Metadata:  strMetadata,
		Embedding: vec,
	}
	if err := idx.col.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return vectorstore.DatastoreError(err)
	}
	return nil
}

func (idx *Index[T]) query(ctx context.Context, req vectorstore.SearchRequest) ([]chromemgo.Result, error) {
	q, err := idx.model.EmbedText(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	where, err := lowerFilter(req.Filter())
	if err != nil {
		return nil, err
	}

	topK := int(req.Samples())
	results, err := idx.col.QueryEmbedding(ctx, toFloat32(q.Vec), topK, where, nil)
	if err != nil {
		return nil, vectorstore.DatastoreError(err)
	}

	if threshold, ok := req.Threshold(); ok {
		filtered := results[:0]
		for _, r := range results {
			if float64(r.Similarity) >= threshold {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	return results, nil
}

// TopN implements vectorstore.Index.
func (idx *Index[T]) TopN(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.Match[T], error) {
	results, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match[T], 0, len(results))
	for _, r := range results {
		var item T
		if err := json.Unmarshal([]byte(r.Content), &item); err != nil {
			return nil, vectorstore.JSONError(err)
		}
		out = append(out, vectorstore.Match[T]{Score: float64(r.Similarity), ID: r.ID, Item: item})
	}
	return out, nil
}

// TopNIDs implements vectorstore.Index.
func (idx *Index[T]) TopNIDs(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.IDMatch, error) {
	results, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.IDMatch, len(results))
	for i, r := range results {
		out[i] = vectorstore.IDMatch{Score: float64(r.Similarity), ID: r.ID}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// lowerFilter translates vectorstore's small predicate algebra into
// chromem's flat where map, which only expresses a conjunction of
// equality checks. Gt/Lt and Or have no chromem equivalent and are
// rejected at query time, per vectorstore's ErrUnsupportedFilter
// contract.
func lowerFilter(f *vectorstore.SearchFilter) (map[string]string, error) {
	if f == nil {
		return nil, nil
	}
	switch f.Op {
	case vectorstore.FilterEq:
		return map[string]string{f.Key: fmt.Sprint(f.Value)}, nil
	case vectorstore.FilterAnd:
		out := map[string]string{}
		for _, c := range f.Children {
			sub, err := lowerFilter(&c)
			if err != nil {
				return nil, err
			}
			for k, v := range sub {
				out[k] = v
			}
		}
		return out, nil
	case vectorstore.FilterGt:
		return nil, vectorstore.UnsupportedFilterError("gt")
	case vectorstore.FilterLt:
		return nil, vectorstore.UnsupportedFilterError("lt")
	case vectorstore.FilterOr:
		return nil, vectorstore.UnsupportedFilterError("or")
	default:
		return nil, vectorstore.UnsupportedFilterError("unknown")
	}
}

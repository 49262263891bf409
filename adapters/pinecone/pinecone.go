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

// Package pinecone adapts github.com/pinecone-io/go-pinecone to
// vectorstore.Index: an IndexConnection resolved from
// DescribeIndex+Index, metadata (and this adapter's JSON-encoded item
// payload) carried as a structpb.Struct, and
// QueryByVectorValuesRequest for similarity search. Unlike chromem and
// qdrant, Pinecone's metadata filter language natively expresses
// comparison and boolean-combinator operators, so this adapter lowers
// the full vectorstore.SearchFilter algebra instead of rejecting most
// of it.
package pinecone

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
	"github.com/kadirpekel/agentcore/vectorstore"
)

// payloadKey is the reserved metadata field under which the JSON-encoded
// item is stored, recovered on TopN.
const payloadKey = "__item"

// indexConn captures the subset of *pinecone.IndexConnection this
// adapter uses, so tests can substitute a fake without a live index.
type indexConn interface {
	UpsertVectors(ctx context.Context, vectors []*pinecone.Vector) error
	QueryByVectorValues(ctx context.Context, req *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	Close() error
}

type realIndexConn struct {
	ic *pinecone.IndexConnection
}

func (r realIndexConn) UpsertVectors(ctx context.Context, vectors []*pinecone.Vector) error {
	_, err := r.ic.UpsertVectors(ctx, vectors)
	return err
}

func (r realIndexConn) QueryByVectorValues(ctx context.Context, req *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	return r.ic.QueryByVectorValues(ctx, req)
}

func (r realIndexConn) Close() error { return r.ic.Close() }

// Config configures a Pinecone connection.
type Config struct {
	APIKey string
	Host   string
}

// Index implements vectorstore.Index[T] over one Pinecone index
// connection.
type Index[T any] struct {
	conn  indexConn
	model embedding.Model
}

// NewFromConfig resolves indexName's host via DescribeIndex and opens an
// IndexConnection, wrapping it as an Index.
func NewFromConfig[T any](ctx context.Context, cfg Config, indexName string, model embedding.Model) (*Index[T], error) {
	if cfg.APIKey == "" {
		return nil, vectorstore.BuilderError("pinecone: APIKey is required")
	}
	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}
	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, vectorstore.DatastoreError(fmt.Errorf("pinecone: create client: %w", err))
	}

	desc, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, vectorstore.DatastoreError(fmt.Errorf("pinecone: describe index %q: %w", indexName, err))
	}
	conn, err := client.Index(pinecone.NewIndexConnParams{Host: desc.Host})
	if err != nil {
		return nil, vectorstore.DatastoreError(fmt.Errorf("pinecone: open connection to %q: %w", indexName, err))
	}
	return New[T](realIndexConn{conn}, model), nil
}

// New builds an Index around an indexConn, primarily for tests.
func New[T any](conn indexConn, model embedding.Model) *Index[T] {
	return &Index[T]{conn: conn, model: model}
}

// AddDocument upserts item under id, storing it JSON-encoded in the
// vector's metadata alongside its first embedding.
func (idx *Index[T]) AddDocument(ctx context.Context, id string, item T, embeddings oneormany.OneOrMany[embedding.Embedding], metadata map[string]any) error {
	var vec []float32
	embeddings.ForEach(func(e embedding.Embedding) {
		if vec == nil {
			vec = toFloat32(e.Vec)
		}
	})
	if vec == nil {
		return vectorstore.BuilderError("pinecone: AddDocument requires at least one embedding")
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return vectorstore.JSONError(err)
	}

	fields := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		fields[k] = v
	}
	fields[payloadKey] = string(encoded)

	meta, err := structpb.NewStruct(fields)
	if err != nil {
		return vectorstore.JSONError(fmt.Errorf("pinecone: encode metadata: %w", err))
	}

	vector := &pinecone.Vector{Id: id, Values: vec, Metadata: meta}
	if err := idx.conn.UpsertVectors(ctx, []*pinecone.Vector{vector}); err != nil {
		return vectorstore.DatastoreError(err)
	}
	return nil
}

func (idx *Index[T]) query(ctx context.Context, req vectorstore.SearchRequest) ([]*pinecone.ScoredVector, error) {
	q, err := idx.model.EmbedText(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	filter, err := lowerFilter(req.Filter())
	if err != nil {
		return nil, err
	}

	resp, err := idx.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          toFloat32(q.Vec),
		TopK:            uint32(req.Samples()),
		MetadataFilter:  filter,
		IncludeMetadata: true,
		IncludeValues:   false,
	})
	if err != nil {
		return nil, vectorstore.DatastoreError(err)
	}

	matches := resp.Matches
	if threshold, ok := req.Threshold(); ok {
		filtered := matches[:0]
		for _, m := range matches {
			if float64(m.Score) >= threshold {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	return matches, nil
}

// TopN implements vectorstore.Index.
func (idx *Index[T]) TopN(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.Match[T], error) {
	matches, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match[T], 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}
		var item T
		encoded, _ := payloadString(m.Vector.Metadata)
		if err := json.Unmarshal([]byte(encoded), &item); err != nil {
			return nil, vectorstore.JSONError(err)
		}
		out = append(out, vectorstore.Match[T]{Score: float64(m.Score), ID: m.Vector.Id, Item: item})
	}
	return out, nil
}

// TopNIDs implements vectorstore.Index.
func (idx *Index[T]) TopNIDs(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.IDMatch, error) {
	matches, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.IDMatch, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}
		out = append(out, vectorstore.IDMatch{Score: float64(m.Score), ID: m.Vector.Id})
	}
	return out, nil
}

func payloadString(meta *structpb.Struct) (string, bool) {
	if meta == nil {
		return "", false
	}
	v, ok := meta.AsMap()[payloadKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// lowerFilter translates vectorstore's predicate algebra into
// Pinecone's native MongoDB-style metadata filter language ($eq, $gt,
// $lt, $and, $or).
func lowerFilter(f *vectorstore.SearchFilter) (*structpb.Struct, error) {
	if f == nil {
		return nil, nil
	}
	m, err := lowerFilterMap(*f)
	if err != nil {
		return nil, err
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, vectorstore.JSONError(err)
	}
	return out, nil
}

func lowerFilterMap(f vectorstore.SearchFilter) (map[string]any, error) {
	switch f.Op {
	case vectorstore.FilterEq:
		return map[string]any{f.Key: map[string]any{"$eq": f.Value}}, nil
	case vectorstore.FilterGt:
		return map[string]any{f.Key: map[string]any{"$gt": f.Value}}, nil
	case vectorstore.FilterLt:
		return map[string]any{f.Key: map[string]any{"$lt": f.Value}}, nil
	case vectorstore.FilterAnd:
		children, err := lowerChildren(f.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$and": children}, nil
	case vectorstore.FilterOr:
		children, err := lowerChildren(f.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$or": children}, nil
	default:
		return nil, vectorstore.UnsupportedFilterError("unknown")
	}
}

func lowerChildren(children []vectorstore.SearchFilter) ([]any, error) {
	out := make([]any, 0, len(children))
	for _, c := range children {
		m, err := lowerFilterMap(c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

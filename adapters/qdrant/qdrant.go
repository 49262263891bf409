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

// Package qdrant adapts github.com/qdrant/go-client to vectorstore.Index,
// storing each item's JSON-encoded payload under a reserved metadata key
// and recovering it on query. Collections are created lazily with
// cosine distance; payloads are encoded with qdrant.NewValue and
// similarity queries go through the points client's Search RPC.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
	"github.com/kadirpekel/agentcore/vectorstore"
)

// payloadKey is the reserved payload field under which the JSON-encoded
// item is stored, recovered on TopN.
const payloadKey = "__item"

// rawClient captures the subset of *qdrant.Client (and its points
// sub-client) this adapter uses, so tests can substitute a fake server.
type rawClient interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) error
	Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error)
	DeleteCollection(ctx context.Context, name string) error
	Close() error
}

// realClient adapts a live *qdrant.Client to rawClient.
type realClient struct {
	c *qdrant.Client
}

func (r realClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	return r.c.CollectionExists(ctx, name)
}

func (r realClient) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	return r.c.CreateCollection(ctx, req)
}

func (r realClient) Upsert(ctx context.Context, req *qdrant.UpsertPoints) error {
	_, err := r.c.Upsert(ctx, req)
	return err
}

func (r realClient) Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error) {
	resp, err := r.c.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (r realClient) DeleteCollection(ctx context.Context, name string) error {
	return r.c.DeleteCollection(ctx, name)
}

func (r realClient) Close() error { return r.c.Close() }

// Config configures a Qdrant connection.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Index implements vectorstore.Index[T] over one Qdrant collection,
// created lazily on the first AddDocument call once the vector
// dimension is known.
type Index[T any] struct {
	raw        rawClient
	collection string
	model      embedding.Model
	ensured    bool
}

// NewFromConfig dials Qdrant and wraps collection as an Index.
func NewFromConfig[T any](cfg Config, collection string, model embedding.Model) (*Index[T], error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, vectorstore.DatastoreError(fmt.Errorf("qdrant: connect to %s:%d: %w", cfg.Host, cfg.Port, err))
	}
	return New[T](realClient{client}, collection, model), nil
}

// New builds an Index around a rawClient, primarily for tests.
func New[T any](raw rawClient, collection string, model embedding.Model) *Index[T] {
	return &Index[T]{raw: raw, collection: collection, model: model}
}

func (idx *Index[T]) ensureCollection(ctx context.Context, dim int) error {
	if idx.ensured {
		return nil
	}
	exists, err := idx.raw.CollectionExists(ctx, idx.collection)
	if err != nil {
		return vectorstore.DatastoreError(err)
	}
	if !exists {
		err = idx.raw.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: idx.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return vectorstore.DatastoreError(err)
		}
	}
	idx.ensured = true
	return nil
}

// AddDocument upserts item under id, storing it JSON-encoded in the
// point's payload alongside its first embedding.
func (idx *Index[T]) AddDocument(ctx context.Context, id string, item T, embeddings oneormany.OneOrMany[embedding.Embedding], metadata map[string]any) error {
	var vec []float32
	embeddings.ForEach(func(e embedding.Embedding) {
		if vec == nil {
			vec = toFloat32(e.Vec)
		}
	})
	if vec == nil {
		return vectorstore.BuilderError("qdrant: AddDocument requires at least one embedding")
	}

	if err := idx.ensureCollection(ctx, len(vec)); err != nil {
		return err
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return vectorstore.JSONError(err)
	}

	payload := make(map[string]*qdrant.Value, len(metadata)+1)
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return vectorstore.JSONError(fmt.Errorf("qdrant: metadata key %q: %w", k, err))
		}
		payload[k] = val
	}
	payloadVal, err := qdrant.NewValue(string(encoded))
	if err != nil {
		return vectorstore.JSONError(err)
	}
	payload[payloadKey] = payloadVal

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vec...),
		Payload: payload,
	}
	if err := idx.raw.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return vectorstore.DatastoreError(err)
	}
	return nil
}

func (idx *Index[T]) query(ctx context.Context, req vectorstore.SearchRequest) ([]*qdrant.ScoredPoint, error) {
	q, err := idx.model.EmbedText(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	filter, err := lowerFilter(req.Filter())
	if err != nil {
		return nil, err
	}

	search := &qdrant.SearchPoints{
		CollectionName: idx.collection,
		Vector:         toFloat32(q.Vec),
		Limit:          uint64(req.Samples()),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	}

	points, err := idx.raw.Search(ctx, search)
	if err != nil {
		return nil, vectorstore.DatastoreError(err)
	}

	if threshold, ok := req.Threshold(); ok {
		filtered := points[:0]
		for _, p := range points {
			if float64(p.Score) >= threshold {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}
	return points, nil
}

// TopN implements vectorstore.Index.
func (idx *Index[T]) TopN(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.Match[T], error) {
	points, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match[T], 0, len(points))
	for _, p := range points {
		var item T
		encoded := p.Payload[payloadKey].GetStringValue()
		if err := json.Unmarshal([]byte(encoded), &item); err != nil {
			return nil, vectorstore.JSONError(err)
		}
		out = append(out, vectorstore.Match[T]{Score: float64(p.Score), ID: pointID(p), Item: item})
	}
	return out, nil
}

// TopNIDs implements vectorstore.Index.
func (idx *Index[T]) TopNIDs(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.IDMatch, error) {
	points, err := idx.query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.IDMatch, len(points))
	for i, p := range points {
		out[i] = vectorstore.IDMatch{Score: float64(p.Score), ID: pointID(p)}
	}
	return out, nil
}

func pointID(p *qdrant.ScoredPoint) string {
	if p.Id == nil || p.Id.PointIdOptions == nil {
		return ""
	}
	switch id := p.Id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return id.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", id.Num)
	default:
		return ""
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// lowerFilter translates vectorstore's predicate algebra into Qdrant's
// Must-conjunction filter. Only equality and conjunction have a direct
// counterpart in the keyword-match conditions this adapter builds;
// Gt/Lt/Or are rejected at query time per vectorstore's
// ErrUnsupportedFilter contract.
func lowerFilter(f *vectorstore.SearchFilter) (*qdrant.Filter, error) {
	if f == nil {
		return nil, nil
	}
	conds, err := lowerConditions(*f)
	if err != nil {
		return nil, err
	}
	return &qdrant.Filter{Must: conds}, nil
}

func lowerConditions(f vectorstore.SearchFilter) ([]*qdrant.Condition, error) {
	switch f.Op {
	case vectorstore.FilterEq:
		val, err := qdrant.NewValue(f.Value)
		if err != nil {
			return nil, vectorstore.JSONError(err)
		}
		return []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: f.Key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: val.GetStringValue()},
					},
				},
			},
		}}, nil
	case vectorstore.FilterAnd:
		var all []*qdrant.Condition
		for _, c := range f.Children {
			sub, err := lowerConditions(c)
			if err != nil {
				return nil, err
			}
			all = append(all, sub...)
		}
		return all, nil
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

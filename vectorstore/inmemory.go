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

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
)

type inMemoryRecord[T any] struct {
	id         string
	item       T
	embeddings oneormany.OneOrMany[embedding.Embedding]
	metadata   map[string]any
}

// InMemoryIndex is the reference Index: cosine similarity against the
// maximum-scoring embedding of each document, then strict descending
// sort with insertion-order tiebreak.
type InMemoryIndex[T any] struct {
	model      embedding.Model
	records    []inMemoryRecord[T]
	accelerate Accelerator
}

// Accelerator narrows an exact top-n scan to a candidate set for
// approximate recall at scale. When set, InMemoryIndex still re-ranks
// the returned candidates exactly.
type Accelerator interface {
	// Candidates returns the IDs worth scoring exactly against query,
	// or nil to fall back to scanning every record.
	Candidates(query []float64, limit int) []string
}

// NewInMemoryIndex builds an empty index that embeds queries with
// model.
func NewInMemoryIndex[T any](model embedding.Model) *InMemoryIndex[T] {
	return &InMemoryIndex[T]{model: model}
}

// WithAccelerator plugs in an optional LSH-style accelerator.
func (idx *InMemoryIndex[T]) WithAccelerator(a Accelerator) *InMemoryIndex[T] {
	idx.accelerate = a
	return idx
}

// FromDocumentsWithIDFunc builds an index from (item, embeddings)
// pairs, deriving each record's ID from the item via idFn.
func FromDocumentsWithIDFunc[T any](model embedding.Model, docs []embedding.Result[T], idFn func(T) string, metaFn func(T) map[string]any) *InMemoryIndex[T] {
	idx := NewInMemoryIndex[T](model)
	for _, d := range docs {
		var meta map[string]any
		if metaFn != nil {
			meta = metaFn(d.Doc)
		}
		idx.records = append(idx.records, inMemoryRecord[T]{
			id:         idFn(d.Doc),
			item:       d.Doc,
			embeddings: d.Embeddings,
			metadata:   meta,
		})
	}
	return idx
}

// FromDocuments builds an index from (item, embeddings) pairs the same
// way FromDocumentsWithIDFunc does, but assigns each record a random
// ID for the common case where the item type has no natural string
// key.
func FromDocuments[T any](model embedding.Model, docs []embedding.Result[T], metaFn func(T) map[string]any) *InMemoryIndex[T] {
	return FromDocumentsWithIDFunc(model, docs, func(T) string { return uuid.NewString() }, metaFn)
}

// AddDocument inserts a single (item, embeddings) pair under id. The
// context and error exist to satisfy Inserter; an in-memory append can
// fail in neither way.
func (idx *InMemoryIndex[T]) AddDocument(_ context.Context, id string, item T, embeddings oneormany.OneOrMany[embedding.Embedding], metadata map[string]any) error {
	idx.records = append(idx.records, inMemoryRecord[T]{id: id, item: item, embeddings: embeddings, metadata: metadata})
	return nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// maxScore returns the highest cosine similarity between query and
// any embedding belonging to the record.
func maxScore(query []float64, embeddings oneormany.OneOrMany[embedding.Embedding]) float64 {
	best := math.Inf(-1)
	embeddings.ForEach(func(e embedding.Embedding) {
		if s := cosineSimilarity(query, e.Vec); s > best {
			best = s
		}
	})
	return best
}

type scored[T any] struct {
	score float64
	order int
	rec   inMemoryRecord[T]
}

func (idx *InMemoryIndex[T]) scoreAll(ctx context.Context, req SearchRequest) ([]scored[T], error) {
	q, err := idx.model.EmbedText(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	candidateIDs := map[string]bool(nil)
	if idx.accelerate != nil {
		if ids := idx.accelerate.Candidates(q.Vec, int(req.Samples())); ids != nil {
			candidateIDs = make(map[string]bool, len(ids))
			for _, id := range ids {
				candidateIDs[id] = true
			}
		}
	}

	out := make([]scored[T], 0, len(idx.records))
	for i, rec := range idx.records {
		if candidateIDs != nil && !candidateIDs[rec.id] {
			continue
		}
		if f := req.Filter(); f != nil && !f.Eval(rec.metadata) {
			continue
		}
		out = append(out, scored[T]{score: maxScore(q.Vec, rec.embeddings), order: i, rec: rec})
	}
	return out, nil
}

func rankAndTruncate[T any](results []scored[T], req SearchRequest) []scored[T] {
	threshold, hasThreshold := req.Threshold()
	filtered := results[:0]
	for _, r := range results {
		if hasThreshold && r.score < threshold {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].score != filtered[j].score {
			return filtered[i].score > filtered[j].score
		}
		return filtered[i].order < filtered[j].order
	})

	if n := int(req.Samples()); len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered
}

// TopN implements Index.
func (idx *InMemoryIndex[T]) TopN(ctx context.Context, req SearchRequest) ([]Match[T], error) {
	all, err := idx.scoreAll(ctx, req)
	if err != nil {
		return nil, err
	}
	ranked := rankAndTruncate(all, req)

	out := make([]Match[T], len(ranked))
	for i, r := range ranked {
		out[i] = Match[T]{Score: r.score, ID: r.rec.id, Item: r.rec.item}
	}
	return out, nil
}

// TopNIDs implements Index.
func (idx *InMemoryIndex[T]) TopNIDs(ctx context.Context, req SearchRequest) ([]IDMatch, error) {
	all, err := idx.scoreAll(ctx, req)
	if err != nil {
		return nil, err
	}
	ranked := rankAndTruncate(all, req)

	out := make([]IDMatch, len(ranked))
	for i, r := range ranked {
		out[i] = IDMatch{Score: r.score, ID: r.rec.id}
	}
	return out, nil
}

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

// Package vectorstore defines the vector index contract — top-n
// similarity search parameterized over a stored payload type, a small
// filter algebra adapters lower to their native query DSL, and a
// reference in-memory implementation with an optional LSH
// accelerator. The adapter stores (chromem, qdrant, pinecone) each
// implement the same interface from the adapters tree.
package vectorstore

import (
	"context"

	"github.com/kadirpekel/agentcore/embedding"
	"github.com/kadirpekel/agentcore/oneormany"
)

// Match pairs a similarity score with the stored item it scored
// against.
type Match[T any] struct {
	Score float64
	ID    string
	Item  T
}

// IDMatch is a Match without the deserialized payload, for callers
// that only need identifiers (e.g. dynamic tool selection).
type IDMatch struct {
	Score float64
	ID    string
}

// Index is implemented by every vector store adapter. T is the payload
// type results are returned as.
type Index[T any] interface {
	// TopN returns at most req.Samples() matches, sorted by score
	// descending, each carrying its deserialized payload.
	TopN(ctx context.Context, req SearchRequest) ([]Match[T], error)

	// TopNIDs is the same query, returning identifiers only.
	TopNIDs(ctx context.Context, req SearchRequest) ([]IDMatch, error)
}

// Inserter is optionally implemented by indexes that accept
// out-of-band document writes. The prompt loop never writes; callers
// populate an index through this interface (or a store's own bulk
// constructor) before handing it to an agent.
type Inserter[T any] interface {
	AddDocument(ctx context.Context, id string, item T, embeddings oneormany.OneOrMany[embedding.Embedding], metadata map[string]any) error
}

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

package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/agentcore/oneormany"
)

// Result pairs a caller-supplied document with the non-empty set of
// embeddings produced for the strings it yielded.
type Result[Doc any] struct {
	Doc        Doc
	Embeddings oneormany.OneOrMany[Embedding]
}

type entry[Doc any] struct {
	doc   Doc
	texts []string
}

// Builder accumulates (Doc, texts) pairs and, on Build, dispatches
// them to a Model in batches no larger than Model.MaxDocuments,
// regrouping results back by their originating Doc. Batches are
// dispatched concurrently through an errgroup; the first batch error
// aborts the build.
type Builder[Doc any] struct {
	model       Model
	entries     []entry[Doc]
	concurrency int // 0 means unbounded
}

// NewBuilder starts a builder bound to model.
func NewBuilder[Doc any](model Model) *Builder[Doc] {
	return &Builder[Doc]{model: model}
}

// WithConcurrency caps how many batches are in flight at once during
// Build. 0 (the default) means unbounded.
func (b *Builder[Doc]) WithConcurrency(n int) *Builder[Doc] {
	b.concurrency = n
	return b
}

// Document registers doc with the explicit texts to embed on its
// behalf. texts must be non-empty.
func (b *Builder[Doc]) Document(doc Doc, texts ...string) *Builder[Doc] {
	b.entries = append(b.entries, entry[Doc]{doc: doc, texts: texts})
	return b
}

// Embeddable registers doc using its own Embed capability to produce
// the texts to embed.
func Embeddable[Doc Embed](b *Builder[Doc], doc Doc) *Builder[Doc] {
	return b.Document(doc, doc.EmbeddableStrings()...)
}

type flatRef struct {
	entryIdx int
	textIdx  int
}

// Build flattens every registered (Doc, texts) pair, chunks the
// flattened strings into batches of at most Model.MaxDocuments,
// dispatches the batches concurrently, and regroups the resulting
// embeddings back by their originating Doc in per-document string
// order. Failure of any batch aborts the whole build.
func (b *Builder[Doc]) Build(ctx context.Context) ([]Result[Doc], error) {
	var flatTexts []string
	var flatRefs []flatRef

	for ei, e := range b.entries {
		if len(e.texts) == 0 {
			return nil, RequestError("document yielded no embeddable strings")
		}
		for ti, text := range e.texts {
			flatTexts = append(flatTexts, text)
			flatRefs = append(flatRefs, flatRef{entryIdx: ei, textIdx: ti})
		}
	}
	if len(flatTexts) == 0 {
		return nil, nil
	}

	maxDocs := b.model.MaxDocuments()
	if maxDocs <= 0 {
		maxDocs = len(flatTexts)
	}

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(flatTexts); start += maxDocs {
		end := start + maxDocs
		if end > len(flatTexts) {
			end = len(flatTexts)
		}
		batches = append(batches, batch{start: start, texts: flatTexts[start:end]})
	}

	results := make([][]Embedding, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}
	for bi, bt := range batches {
		bi, bt := bi, bt
		g.Go(func() error {
			embeds, err := b.model.EmbedTexts(gctx, bt.texts)
			if err != nil {
				return err
			}
			if len(embeds) != len(bt.texts) {
				return RequestError("provider returned a different number of embeddings than texts submitted")
			}
			results[bi] = embeds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perEntry := make([][]Embedding, len(b.entries))
	for i := range perEntry {
		perEntry[i] = make([]Embedding, len(b.entries[i].texts))
	}
	for bi, bt := range batches {
		for offset, emb := range results[bi] {
			ref := flatRefs[bt.start+offset]
			perEntry[ref.entryIdx][ref.textIdx] = emb
		}
	}

	out := make([]Result[Doc], 0, len(b.entries))
	for i, e := range b.entries {
		group, err := oneormany.Many(perEntry[i])
		if err != nil {
			return nil, RequestError("internal: empty embedding group")
		}
		out = append(out, Result[Doc]{Doc: e.doc, Embeddings: group})
	}
	return out, nil
}

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

// Package embedding defines the embedding-model contract and the
// batch builder that turns arbitrary documents into vectors honoring
// a provider's per-call document cap.
package embedding

import "context"

// Embedding is a single embedded vector paired with the text it was
// produced from. Equality is by Document only: two embeddings of the
// same source text are considered equal regardless of numeric drift
// between providers or model versions.
type Embedding struct {
	Document string
	Vec      []float64
}

// Equal reports whether e and other embed the same source text.
func (e Embedding) Equal(other Embedding) bool {
	return e.Document == other.Document
}

// Model is a text embedding provider. MaxDocuments bounds how many
// strings a single EmbedTexts call may receive; Builder never exceeds
// it.
type Model interface {
	// MaxDocuments is the maximum batch size this model accepts per
	// EmbedTexts call.
	MaxDocuments() int

	// Dimensions is the dimensionality of vectors this model produces.
	Dimensions() int

	// EmbedText embeds a single string.
	EmbedText(ctx context.Context, text string) (Embedding, error)

	// EmbedTexts embeds up to MaxDocuments strings in one call.
	EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error)
}

// Embed is the capability a Doc implements to yield one or more
// strings to embed on its behalf. Any implementation strategy —
// hand-written, generated, reflective — satisfies it.
type Embed interface {
	EmbeddableStrings() []string
}

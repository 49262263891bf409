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

package tool

// Embeddable is an optional capability a DynTool may additionally
// implement to support dynamic (retrieval-selected) tool resolution:
// a tool that wants to be discoverable by an embedding-based index
// must be able to produce one or more embeddable strings — typically
// its name plus description synonyms — distinct from its JSON-schema
// Definition, which is only produced once a tool is already selected.
// Tools that need state close over it at construction time.
type Embeddable interface {
	// EmbeddingDocs returns the strings to embed for this tool. Index
	// 0 is conventionally the tool's own name.
	EmbeddingDocs() []string
}

// embeddingDocsOrName returns t's embedding docs if it implements
// Embeddable, otherwise falls back to its bare name — every tool is
// trivially embeddable by name alone.
func embeddingDocsOrName(t DynTool) []string {
	if e, ok := t.(Embeddable); ok {
		docs := e.EmbeddingDocs()
		if len(docs) > 0 {
			return docs
		}
	}
	return []string{t.Name()}
}

// EmbeddingDocs returns, for every tool in s, the name it should be
// indexed under paired with the strings to embed for it, for building
// the embedding index a caller passes to agent.Builder.DynamicTools
// (which does not call it itself).
func (s *Set) EmbeddingDocs() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.tools))
	for name, t := range s.tools {
		out[name] = embeddingDocsOrName(t)
	}
	return out
}

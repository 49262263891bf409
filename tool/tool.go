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

// Package tool defines the dynamically-dispatchable tool registry:
// typed tools with JSON-schema definitions and typed args/output, the
// dyn (type-erased) form every typed tool is automatically adapted to,
// and a name-indexed ToolSet used for both static and dynamic
// (retrieval-selected) tool resolution.
package tool

import (
	"context"
	"encoding/json"

	"github.com/kadirpekel/agentcore/completion"
)

// Typed is the generic, statically-typed tool interface. Args and
// Output are the tool's parameter and result types; both are ordinary
// Go structs decoded/encoded as JSON.
type Typed[Args, Output any] interface {
	// Name is the tool's unique, model-facing name.
	Name() string

	// Definition returns the tool's JSON-schema definition. prompt is
	// the current turn's text, passed through so retrieval-augmented
	// tools can tailor their description; most implementations ignore
	// it.
	Definition(ctx context.Context, prompt string) completion.ToolDefinition

	// Call executes the tool.
	Call(ctx context.Context, args Args) (Output, error)
}

// DynTool is the type-erased form every Typed tool is automatically
// adapted to via AsDyn. The registry and the prompt loop only ever
// deal in DynTool: heterogeneity between differently-typed tools is
// genuine, so this is the one place interface dispatch replaces
// generics.
type DynTool interface {
	Name() string
	Definition(ctx context.Context, prompt string) completion.ToolDefinition
	// Call executes the tool from a raw JSON arguments string,
	// returning either a JSON-encoded result or plain text.
	Call(ctx context.Context, argsJSON string) (string, error)
}

// typedAdapter makes any Typed[Args, Output] satisfy DynTool.
type typedAdapter[Args, Output any] struct {
	inner Typed[Args, Output]
}

// AsDyn wraps a typed tool as a DynTool. Every typed tool is
// automatically a dyn tool through this adapter.
func AsDyn[Args, Output any](t Typed[Args, Output]) DynTool {
	return typedAdapter[Args, Output]{inner: t}
}

func (a typedAdapter[Args, Output]) Name() string { return a.inner.Name() }

func (a typedAdapter[Args, Output]) Definition(ctx context.Context, prompt string) completion.ToolDefinition {
	return a.inner.Definition(ctx, prompt)
}

// EmbeddingDocs forwards to the wrapped tool's Embeddable
// implementation, if any, so that AsDyn never hides that capability
// behind the adapter.
func (a typedAdapter[Args, Output]) EmbeddingDocs() []string {
	if e, ok := any(a.inner).(Embeddable); ok {
		return e.EmbeddingDocs()
	}
	return nil
}

func (a typedAdapter[Args, Output]) Call(ctx context.Context, argsJSON string) (string, error) {
	var args Args
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", jsonError(a.inner.Name(), err)
	}

	out, err := a.inner.Call(ctx, args)
	if err != nil {
		return "", callError(a.inner.Name(), err)
	}

	// If the output is itself textual, return it verbatim rather than
	// JSON-quoting it.
	if text, ok := any(out).(string); ok {
		return text, nil
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return "", jsonError(a.inner.Name(), err)
	}
	return string(encoded), nil
}

// Func adapts a plain function into a Typed tool without requiring a
// dedicated struct type, for simple cases.
type Func[Args, Output any] struct {
	NameValue        string
	DescriptionValue string
	Parameters       map[string]any
	Fn               func(ctx context.Context, args Args) (Output, error)
}

func (f Func[Args, Output]) Name() string { return f.NameValue }

func (f Func[Args, Output]) Definition(_ context.Context, _ string) completion.ToolDefinition {
	return completion.ToolDefinition{
		Name:        f.NameValue,
		Description: f.DescriptionValue,
		Parameters:  f.Parameters,
	}
}

func (f Func[Args, Output]) Call(ctx context.Context, args Args) (Output, error) {
	return f.Fn(ctx, args)
}

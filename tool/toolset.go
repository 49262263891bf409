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

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/kadirpekel/agentcore/completion"
)

// Set is the name-indexed registry of dyn tools, shared by Agent for
// both the static tool list and the dynamically-retrieved subset
// selected per turn.
//
// A Set is safe for concurrent use: the prompt loop may
// resolve and invoke tools from multiple in-flight turns concurrently,
// but a Set's own membership is expected to be fixed after
// construction in the common case. The mutex exists for the less
// common case of tools being added at runtime (e.g. MCP shims
// discovered lazily).
type Set struct {
	mu    sync.RWMutex
	tools map[string]DynTool
}

// NewSet builds a Set from zero or more tools.
func NewSet(tools ...DynTool) *Set {
	s := &Set{tools: make(map[string]DynTool, len(tools))}
	for _, t := range tools {
		s.tools[t.Name()] = t
	}
	return s
}

// AddTool registers t, replacing any existing tool of the same name.
func (s *Set) AddTool(t DynTool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[t.Name()] = t
}

// Contains reports whether a tool named name is registered.
func (s *Set) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tools[name]
	return ok
}

// Get returns the tool registered under name, if any.
func (s *Set) Get(name string) (DynTool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// Call invokes the named tool with raw argument JSON, returning
// ErrNotFound if no such tool is registered.
func (s *Set) Call(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := s.Get(name)
	if !ok {
		slog.Warn("tool dispatch failed: not registered", "tool", name)
		return "", notFoundError(name)
	}

	slog.Debug("dispatching tool call", "tool", name)
	result, err := t.Call(ctx, argsJSON)
	if err != nil {
		slog.Error("tool call failed", "tool", name, "error", err)
	}
	return result, err
}

// Names returns every registered tool name, sorted, for deterministic
// iteration (definitions sent to a model must not reorder between
// otherwise-identical requests).
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the ToolDefinition of every registered tool, in
// Names order.
func (s *Set) Definitions(ctx context.Context, prompt string) []completion.ToolDefinition {
	names := s.Names()
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]completion.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, s.tools[name].Definition(ctx, prompt))
	}
	return defs
}

// Len reports the number of registered tools.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tools)
}

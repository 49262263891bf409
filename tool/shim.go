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

	"github.com/kadirpekel/agentcore/completion"
)

// RPCClient is the abstract transport a remote tool shim calls
// through. A shim holds a shared client handle, never an agent
// back-pointer: it forwards a single named call and
// its JSON arguments to whatever protocol the client speaks (MCP,
// a plain HTTP RPC, a local subprocess) and returns the raw result
// text. Concrete implementations (e.g. an MCP-go-backed client) live
// in the adapters tree, not here — this package only fixes the
// contract a shim is built against.
type RPCClient interface {
	// ListTools returns the remote descriptors currently available.
	ListTools(ctx context.Context) ([]completion.ToolDefinition, error)

	// CallTool invokes the named remote tool with raw argument JSON
	// and returns its raw result text.
	CallTool(ctx context.Context, name, argsJSON string) (string, error)
}

// Shim adapts a single remote tool, reached through an RPCClient, into
// a DynTool. The descriptor's name is preserved verbatim: a shim must
// not rename the tool it forwards to.
type Shim struct {
	client RPCClient
	def    completion.ToolDefinition
}

// NewShim builds a DynTool forwarding to def.Name through client.
func NewShim(client RPCClient, def completion.ToolDefinition) DynTool {
	return &Shim{client: client, def: def}
}

func (s *Shim) Name() string { return s.def.Name }

func (s *Shim) Definition(_ context.Context, _ string) completion.ToolDefinition {
	return s.def
}

func (s *Shim) Call(ctx context.Context, argsJSON string) (string, error) {
	result, err := s.client.CallTool(ctx, s.def.Name, argsJSON)
	if err != nil {
		return "", callError(s.def.Name, err)
	}
	return result, nil
}

// DiscoverShims lists every tool currently exposed by client and
// wraps each as a DynTool, for bulk registration into a Set.
func DiscoverShims(ctx context.Context, client RPCClient) ([]DynTool, error) {
	defs, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	shims := make([]DynTool, 0, len(defs))
	for _, def := range defs {
		shims = append(shims, NewShim(client, def))
	}
	return shims, nil
}

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

// Package mcp discovers tools exposed by a Model Context Protocol
// server over stdio and adapts each one to tool.DynTool, so an MCP
// server's toolset can be registered into a tool.Set exactly like any
// statically-defined tool. Discovery and invocation go over a stdio
// MCP connection via github.com/mark3labs/mcp-go.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/agentcore/completion"
	"github.com/kadirpekel/agentcore/tool"
)

var _ tool.DynTool = (*Tool)(nil)

// ClientInfo identifies this process to an MCP server during the
// initialize handshake.
var ClientInfo = mcp.Implementation{Name: "agentcore", Version: "0.1.0"}

// ProtocolVersion is the MCP protocol revision this adapter speaks.
const ProtocolVersion = "2024-11-05"

// rawClient captures the subset of *mcp-go/client.Client the adapter
// uses, so tests can substitute a fake server without spawning a real
// subprocess.
type rawClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// StdioClient connects to an MCP server over a subprocess's stdio and
// discovers its tools. The connection is established lazily: Tools
// connects on first call and is cached thereafter.
type StdioClient struct {
	command string
	args    []string
	env     map[string]string
	dial    func() (rawClient, error)

	mu        sync.Mutex
	raw       rawClient
	connected bool
}

// NewStdio builds a StdioClient that will launch command with args and
// env when first connected.
func NewStdio(command string, args []string, env map[string]string) *StdioClient {
	c := &StdioClient{command: command, args: args, env: env}
	c.dial = func() (rawClient, error) {
		return client.NewStdioMCPClient(c.command, envSlice(c.env), c.args...)
	}
	return c
}

// newWithDialer builds a StdioClient around a test-supplied dial
// function, bypassing the real subprocess transport.
func newWithDialer(dial func() (rawClient, error)) *StdioClient {
	return &StdioClient{dial: dial}
}

// Tools connects if necessary and returns every tool the server
// exposes, adapted to tool.DynTool.
func (c *StdioClient) Tools(ctx context.Context) ([]*Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	listResp, err := c.raw.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	tools := make([]*Tool, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, &Tool{
			client: c,
			name:   t.Name,
			desc:   t.Description,
			schema: convertSchema(t.InputSchema),
		})
	}
	return tools, nil
}

func (c *StdioClient) connect(ctx context.Context) error {
	raw, err := c.dial()
	if err != nil {
		return fmt.Errorf("mcp: create client: %w", err)
	}
	if err := raw.Start(ctx); err != nil {
		return fmt.Errorf("mcp: start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = ClientInfo
	initReq.Params.ProtocolVersion = ProtocolVersion
	if _, err := raw.Initialize(ctx, initReq); err != nil {
		raw.Close()
		return fmt.Errorf("mcp: initialize: %w", err)
	}

	c.raw = raw
	c.connected = true
	return nil
}

// Close tears down the underlying subprocess connection.
func (c *StdioClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return nil
	}
	err := c.raw.Close()
	c.raw = nil
	c.connected = false
	return err
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// Tool adapts one MCP server-exposed tool to tool.DynTool.
type Tool struct {
	client *StdioClient
	name   string
	desc   string
	schema map[string]any
}

func (t *Tool) Name() string { return t.name }

func (t *Tool) Definition(_ context.Context, _ string) completion.ToolDefinition {
	return completion.ToolDefinition{
		Name:        t.name,
		Description: t.desc,
		Parameters:  t.schema,
	}
}

// Call invokes the tool over the MCP connection, collapsing its
// content blocks into a single text result.
func (t *Tool) Call(ctx context.Context, argsJSON string) (string, error) {
	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("mcp: decode arguments for %q: %w", t.name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	t.client.mu.Lock()
	raw := t.client.raw
	t.client.mu.Unlock()
	if raw == nil {
		return "", fmt.Errorf("mcp: %q called before connection established", t.name)
	}

	resp, err := raw.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call %q: %w", t.name, err)
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	result := strings.Join(texts, "\n")
	if resp.IsError {
		if result == "" {
			result = "unknown error"
		}
		return "", fmt.Errorf("mcp: tool %q reported an error: %s", t.name, result)
	}
	return result, nil
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

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

package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRawClient struct {
	started    bool
	lastCall   mcp.CallToolRequest
	tools      []mcp.Tool
	callResult *mcp.CallToolResult
	callErr    error
}

func (f *fakeRawClient) Start(context.Context) error { f.started = true; return nil }

func (f *fakeRawClient) Initialize(context.Context, mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}

func (f *fakeRawClient) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeRawClient) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastCall = req
	return f.callResult, f.callErr
}

func (f *fakeRawClient) Close() error { return nil }

func newTestClient(fake *fakeRawClient) *StdioClient {
	return newWithDialer(func() (rawClient, error) { return fake, nil })
}

func TestToolsDiscoversAndConnectsLazily(t *testing.T) {
	fake := &fakeRawClient{tools: []mcp.Tool{
		{Name: "search", Description: "searches things", InputSchema: mcp.ToolInputSchema{Type: "object"}},
	}}
	client := newTestClient(fake)

	tools, err := client.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.True(t, fake.started)
	assert.Equal(t, "search", tools[0].Name())
	def := tools[0].Definition(context.Background(), "")
	assert.Equal(t, "searches things", def.Description)
}

func TestCallCollapsesTextContent(t *testing.T) {
	fake := &fakeRawClient{
		tools: []mcp.Tool{{Name: "search"}},
		callResult: &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "result one"}},
		},
	}
	client := newTestClient(fake)
	tools, err := client.Tools(context.Background())
	require.NoError(t, err)

	out, err := tools[0].Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	assert.Equal(t, "result one", out)
	assert.Equal(t, "search", fake.lastCall.Params.Name)
	assert.Equal(t, "go", fake.lastCall.Params.Arguments.(map[string]any)["query"])
}

func TestCallReturnsErrorWhenServerReportsError(t *testing.T) {
	fake := &fakeRawClient{
		tools: []mcp.Tool{{Name: "search"}},
		callResult: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "boom"}},
		},
	}
	client := newTestClient(fake)
	tools, err := client.Tools(context.Background())
	require.NoError(t, err)

	_, err = tools[0].Call(context.Background(), `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

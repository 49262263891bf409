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

package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/message"
)

func TestNewUserMessageRejectsEmpty(t *testing.T) {
	_, err := message.NewUserMessage()
	require.Error(t, err)
}

func TestNewAssistantMessageRejectsEmpty(t *testing.T) {
	_, err := message.NewAssistantMessage("")
	require.Error(t, err)
}

func TestRAGTextIgnoresNonText(t *testing.T) {
	m, err := message.NewUserMessage(
		message.Text{Text: "what is"},
		message.NewToolResultText("call-1", "", "irrelevant"),
		message.Text{Text: "glarb-glarb?"},
	)
	require.NoError(t, err)
	assert.Equal(t, "what is glarb-glarb?", m.RAGText())
}

func TestToolCallsExtractsFromAssistantMessage(t *testing.T) {
	m, err := message.NewAssistantMessage("msg-1",
		message.Text{Text: "let me check"},
		message.ToolCall{ID: "call-1", Function: message.ToolCallFunction{Name: "lookup"}},
	)
	require.NoError(t, err)

	calls := m.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Function.Name)
}

func TestToolCallsOnUserMessageIsNil(t *testing.T) {
	m := message.NewUserTextMessage("hi")
	assert.Nil(t, m.ToolCalls())
}

func TestRAGTextEmptyWhenNoText(t *testing.T) {
	m, err := message.NewUserMessage(message.NewToolResultText("call-1", "", "result only"))
	require.NoError(t, err)
	assert.Equal(t, "", m.RAGText())
}

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

// Package message defines the provider-agnostic chat message model
// shared by every completion backend: normalized messages, multimodal
// content, and tool calls and results.
//
// A Message is either a User or an Assistant turn, and each carries a
// non-empty ordered list of typed content items.
package message

import (
	"strings"

	"github.com/kadirpekel/agentcore/oneormany"
)

// Role identifies which side of the conversation produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation. Exactly one of User or
// Assistant is populated, selected by Role.
type Message struct {
	Role Role

	// User is populated when Role == RoleUser.
	User *UserMessage

	// Assistant is populated when Role == RoleAssistant.
	Assistant *AssistantMessage
}

// UserMessage carries one or more UserContent items. Constructors
// always populate Content with at least one item; the zero value of
// Message is not a valid message.
type UserMessage struct {
	Content oneormany.OneOrMany[UserContent]
}

// AssistantMessage carries one or more AssistantContent items. ID is
// the provider-assigned message identifier, when the provider supplies
// one.
type AssistantMessage struct {
	ID      string
	Content oneormany.OneOrMany[AssistantContent]
}

// NewUserMessage builds a User message from one or more content items.
func NewUserMessage(content ...UserContent) (Message, error) {
	c, err := oneormany.Many(content)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: RoleUser, User: &UserMessage{Content: c}}, nil
}

// NewUserTextMessage is a convenience constructor for the common case
// of a plain-text user turn.
func NewUserTextMessage(text string) Message {
	m, _ := NewUserMessage(Text{Text: text})
	return m
}

// NewAssistantMessage builds an Assistant message from one or more
// content items.
func NewAssistantMessage(id string, content ...AssistantContent) (Message, error) {
	c, err := oneormany.Many(content)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: RoleAssistant, Assistant: &AssistantMessage{ID: id, Content: c}}, nil
}

// NewAssistantTextMessage is a convenience constructor for a plain-text
// assistant turn.
func NewAssistantTextMessage(text string) Message {
	m, _ := NewAssistantMessage("", Text{Text: text})
	return m
}

// ToolCalls returns the ToolCall items in an Assistant message, in
// order, or nil if the message is not an Assistant message or carries
// none.
func (m Message) ToolCalls() []ToolCall {
	if m.Assistant == nil {
		return nil
	}
	var calls []ToolCall
	m.Assistant.Content.ForEach(func(c AssistantContent) {
		if tc, ok := c.(ToolCall); ok {
			calls = append(calls, tc)
		}
	})
	return calls
}

// RAGText is the concatenation of a message's top-level Text parts,
// joined by spaces, used as the query text for vector-index retrieval.
// Non-text parts (tool calls, tool results, images, reasoning) are
// ignored.
func (m Message) RAGText() string {
	var parts []string
	switch m.Role {
	case RoleUser:
		if m.User != nil {
			m.User.Content.ForEach(func(c UserContent) {
				if t, ok := c.(Text); ok {
					parts = append(parts, t.Text)
				}
			})
		}
	case RoleAssistant:
		if m.Assistant != nil {
			m.Assistant.Content.ForEach(func(c AssistantContent) {
				if t, ok := c.(Text); ok {
					parts = append(parts, t.Text)
				}
			})
		}
	}
	return strings.Join(parts, " ")
}

// ---------------------------------------------------------------------------
// User content
// ---------------------------------------------------------------------------

// UserContent is the sealed set of content items a User message may
// carry: Text, ToolResult, Image, DocumentAttachment, Audio.
type UserContent interface {
	isUserContent()
}

// Text is plain-text content, shared by both User and Assistant
// content sets.
type Text struct {
	Text string
}

func (Text) isUserContent()      {}
func (Text) isAssistantContent() {}

// ToolResult carries the outcome of a tool invocation back to the
// model. ID must match the ID of an earlier ToolCall in the same
// conversation; CallID additionally carries a provider's own call
// identifier when it differs from the tool-loop's internal ID.
type ToolResult struct {
	ID      string
	CallID  string
	Content oneormany.OneOrMany[ToolResultContent]
}

func (ToolResult) isUserContent() {}

// NewToolResultText builds a ToolResult carrying a single text item.
func NewToolResultText(id, callID, text string) ToolResult {
	return ToolResult{
		ID:      id,
		CallID:  callID,
		Content: oneormany.One[ToolResultContent](ToolResultText{Text: text}),
	}
}

// ToolResultContent is the sealed set of content a ToolResult may
// carry: Text or Image.
type ToolResultContent interface {
	isToolResultContent()
}

// ToolResultText is a plain-text tool result item.
type ToolResultText struct {
	Text string
}

func (ToolResultText) isToolResultContent() {}

// ToolResultImage is an image tool result item.
type ToolResultImage struct {
	Image Image
}

func (ToolResultImage) isToolResultContent() {}

// DocumentSourceKind discriminates how a Document/Image/Audio's bytes
// are supplied.
type DocumentSourceKind int

const (
	// SourceUnknown is the zero value and never produced by
	// constructors; it exists so a deserialized-but-unrecognized
	// source doesn't silently alias SourceURL.
	SourceUnknown DocumentSourceKind = iota
	SourceURL
	SourceBase64
	SourceRaw
)

// DocumentSource is a tagged union over the way multimodal content is
// supplied to a provider.
type DocumentSource struct {
	Kind   DocumentSourceKind
	URL    string
	Base64 string
	Raw    []byte
}

func SourceFromURL(url string) DocumentSource { return DocumentSource{Kind: SourceURL, URL: url} }
func SourceFromBase64(data string) DocumentSource { return DocumentSource{Kind: SourceBase64, Base64: data} }
func SourceFromRaw(data []byte) DocumentSource { return DocumentSource{Kind: SourceRaw, Raw: data} }

// Image is an image attachment. MediaType and Detail are optional
// provider hints; Extra carries provider-specific fields verbatim.
type Image struct {
	Source    DocumentSource
	MediaType string
	Detail    string
	Extra     map[string]any
}

func (Image) isUserContent() {}

// DocumentAttachment is a non-textual document attachment distinct
// from the completion-request-level Document (which is always
// synthesized text); this is an opaque blob such as a PDF.
type DocumentAttachment struct {
	Source    DocumentSource
	MediaType string
	Extra     map[string]any
}

func (DocumentAttachment) isUserContent() {}

// Audio is an audio attachment.
type Audio struct {
	Source    DocumentSource
	MediaType string
	Extra     map[string]any
}

func (Audio) isUserContent() {}

// ---------------------------------------------------------------------------
// Assistant content
// ---------------------------------------------------------------------------

// AssistantContent is the sealed set of content items an Assistant
// message may carry: Text, ToolCall, Reasoning.
type AssistantContent interface {
	isAssistantContent()
}

// ToolCallFunction is the name+arguments payload of a tool call.
type ToolCallFunction struct {
	Name      string
	Arguments map[string]any
}

// ToolCall is the model's request to invoke a named tool. ID is the
// loop's internal identifier for this call (used to pair with the
// later ToolResult); CallID is the provider's own identifier when one
// exists and differs from ID.
type ToolCall struct {
	ID       string
	CallID   string
	Function ToolCallFunction
}

func (ToolCall) isAssistantContent() {}

// Reasoning carries a model's chain-of-thought content, when the
// provider exposes it. Redacted is true when the provider returned an
// opaque/redacted reasoning blob rather than readable text.
type Reasoning struct {
	Reasoning []string
	Redacted  bool
}

func (Reasoning) isAssistantContent() {}

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

package agent

import (
	"errors"
	"fmt"

	"github.com/kadirpekel/agentcore/message"
)

// ErrCancelled is returned when the prompt loop's context is
// cancelled. It carries no transcript: the caller already holds the
// history handle it passed in.
var ErrCancelled = errors.New("agent: prompt cancelled")

// ErrNoStreamingModel is returned by Stream when the agent was built
// without a streaming-capable model.
var ErrNoStreamingModel = errors.New("agent: no streaming model configured")

// MaxDepthError is the terminal failure raised when the loop exceeds
// its configured max_depth. It exposes the full transcript so callers
// can render what the agent tried before giving up, or resume from it.
type MaxDepthError struct {
	MaxDepth int
	History  []message.Message
	Prompt   message.Message
}

func (e *MaxDepthError) Error() string {
	return fmt.Sprintf("agent: exceeded max depth %d", e.MaxDepth)
}

// ToolError wraps a tool invocation failure. The prompt loops do not
// construct or return it: a failing tool's error text becomes the tool
// result, and a hook's Terminate ends the loop with the hook's reason
// and a nil error.
type ToolError struct {
	ToolName string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("agent: tool %q failed: %v", e.ToolName, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// CompletionError wraps a failure returned by the underlying
// completion model; it always short-circuits the loop.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("agent: completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

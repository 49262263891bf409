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

package agent_test

import (
	"context"

	"github.com/kadirpekel/agentcore/vectorstore"
)

// fakeToolIndex always resolves to a single "add" hit, used to test
// that an agent's dynamic tool sources get resolved against the
// caller-provided ToolSet each turn.
type fakeToolIndex struct{}

func (fakeToolIndex) TopN(_ context.Context, _ vectorstore.SearchRequest) ([]vectorstore.Match[string], error) {
	return []vectorstore.Match[string]{{Score: 1, ID: "add", Item: "add"}}, nil
}

func (fakeToolIndex) TopNIDs(_ context.Context, _ vectorstore.SearchRequest) ([]vectorstore.IDMatch, error) {
	return []vectorstore.IDMatch{{Score: 1, ID: "add"}}, nil
}

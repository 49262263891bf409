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

package embedding_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/agentcore/embedding"
)

func TestIsKindDistinguishesKinds(t *testing.T) {
	err := embedding.HTTPError("timeout", errors.New("dial tcp: timeout"))
	assert.True(t, embedding.IsKind(err, embedding.ErrHTTP))
	assert.False(t, embedding.IsKind(err, embedding.ErrJSON))
}

func TestIsKindFalseForForeignError(t *testing.T) {
	assert.False(t, embedding.IsKind(errors.New("plain"), embedding.ErrProvider))
}

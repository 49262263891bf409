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

package tool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentcore/tool"
)

type weatherArgs struct {
	City string `json:"city" jsonschema:"required,description=City name"`
	Unit string `json:"unit,omitempty" jsonschema:"enum=celsius|fahrenheit"`
}

func TestGenerateSchemaProducesObjectWithPropertiesAndRequired(t *testing.T) {
	schema, err := tool.GenerateSchema[weatherArgs]()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "unit")

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "city")
	assert.NotContains(t, required, "unit")
}

type emptyArgs struct{}

func TestGenerateSchemaHandlesEmptyStruct(t *testing.T) {
	schema, err := tool.GenerateSchema[emptyArgs]()
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
}

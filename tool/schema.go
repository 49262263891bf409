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
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// reflector is shared across every GenerateSchema call: its
// configuration is fixed, so there's no reason to allocate a fresh one
// per type the way a single call site would.
var reflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
}

// schemaCache memoizes GenerateSchema by reflect.Type: an Extractor or
// a tool registered repeatedly for the same Args/Output type (e.g. one
// constructed per incoming request) would otherwise re-run reflection
// and a JSON round trip on every call.
var schemaCache sync.Map // map[reflect.Type]map[string]any

// GenerateSchema derives a JSON-schema parameters map from a Go struct
// type via reflection, for tools (and the extractor) that would rather
// describe their shape with struct tags than hand-write a Parameters
// map. Results are cached per type.
//
// Supported tags:
//   - json:"name" - parameter name
//   - json:",omitempty" - optional parameter
//   - jsonschema:"required" - explicitly mark as required
//   - jsonschema:"description=..." - parameter description
//   - jsonschema:"enum=val1|val2" - allowed values
func GenerateSchema[T any]() (map[string]any, error) {
	key := reflect.TypeFor[T]()
	if cached, ok := schemaCache.Load(key); ok {
		return cloneSchemaMap(cached.(map[string]any)), nil
	}

	schema := reflector.Reflect(new(T))
	schemaMap, err := schemaToMap(schema)
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}

	result := flattenObjectSchema(schemaMap)
	schemaCache.Store(key, result)
	return cloneSchemaMap(result), nil
}

// flattenObjectSchema narrows a reflected object schema down to the
// type/properties/required/additionalProperties fields tool
// definitions actually need, dropping the rest of what the reflector
// emits (titles, defs, etc.). Non-object schemas are returned
// unchanged.
func flattenObjectSchema(schemaMap map[string]any) map[string]any {
	if schemaMap["type"] != "object" {
		return schemaMap
	}

	result := map[string]any{
		"type":       "object",
		"properties": schemaMap["properties"],
	}
	if required := schemaMap["required"]; required != nil {
		result["required"] = required
	}
	if addProps, ok := schemaMap["additionalProperties"]; ok {
		result["additionalProperties"] = addProps
	}
	return result
}

// cloneSchemaMap returns a shallow copy so callers can't mutate the
// cached entry through the map they received.
func cloneSchemaMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	delete(result, "$schema")
	delete(result, "$id")

	return result, nil
}

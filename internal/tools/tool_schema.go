// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/567-labs/instructor-go/pkg/instructor"
)

// ParametersFor derives the JSON schema of an argument variant from its
// struct tags.
func ParametersFor(args Arguments) (map[string]interface{}, error) {
	t := reflect.TypeOf(args)
	if t == nil {
		return nil, fmt.Errorf("nil argument variant")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	schema, err := instructor.NewSchema(t)
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", args.Capability(), err)
	}
	for _, fn := range schema.Functions {
		if fn.Name != t.Name() {
			continue
		}
		raw, err := json.Marshal(fn.Parameters)
		if err != nil {
			return nil, err
		}
		var params map[string]interface{}
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		return params, nil
	}
	return nil, fmt.Errorf("schema for %s: definition %q not found", args.Capability(), t.Name())
}

// argumentSchemas holds the parameter schema of every capability, keyed by
// capability name. Built once from the argument variants.
var argumentSchemas = sync.OnceValues(func() (map[string]map[string]interface{}, error) {
	variants := []Arguments{ListDirectoryArgs{}, ReadFileArgs{}, WriteFileArgs{}, RunScriptArgs{}}
	out := make(map[string]map[string]interface{}, len(variants))
	for _, args := range variants {
		params, err := ParametersFor(args)
		if err != nil {
			return nil, err
		}
		out[args.Capability()] = params
	}
	return out, nil
})

// SchemaFor returns the parameter schema of the named capability.
func SchemaFor(name string) (map[string]interface{}, error) {
	schemas, err := argumentSchemas()
	if err != nil {
		return nil, err
	}
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", name)
	}
	return schema, nil
}

// RequiredFields lists the keys a schema marks as required.
func RequiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return append([]string(nil), required...)
	case []interface{}:
		out := make([]string, 0, len(required))
		for _, item := range required {
			if key, ok := item.(string); ok {
				out = append(out, key)
			}
		}
		return out
	}
	return nil
}

func mustSchema(name string) map[string]interface{} {
	schema, err := SchemaFor(name)
	if err != nil {
		panic(err)
	}
	return schema
}

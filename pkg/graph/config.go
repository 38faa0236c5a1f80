// Copyright 2025 The Kubernetes Authors.
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

package graph

import (
	"fmt"
	"math"

	runtimeresolver "github.com/opengovsg/formsg-on-cdk/pkg/runtime/resolver"
)

// Typed accessors over resolved node config. Missing keys yield ok=false;
// present keys of the wrong type yield a ConfigurationConstraintError.

func configString(id string, cfg map[string]any, key string) (string, bool, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, err := scalarString(v)
	if err != nil {
		return "", false, constraintf([]string{id}, "config %q: %v", key, err)
	}
	return s, true, nil
}

func requireString(id string, cfg map[string]any, key string) (string, error) {
	s, ok, err := configString(id, cfg, key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", constraintf([]string{id}, "config %q is required", key)
	}
	return s, nil
}

func stringOr(id string, cfg map[string]any, key, def string) (string, error) {
	s, ok, err := configString(id, cfg, key)
	if err != nil || !ok {
		return def, err
	}
	return s, nil
}

func intOr(id string, cfg map[string]any, key string, def int64) (int64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	}
	return 0, constraintf([]string{id}, "config %q must be an integer, got %v", key, v)
}

func boolOr(id string, cfg map[string]any, key string, def bool) (bool, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, constraintf([]string{id}, "config %q must be a boolean, got %v", key, v)
	}
	return b, nil
}

func objectField(id string, cfg map[string]any, key string) (map[string]any, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return nil, constraintf([]string{id}, "config %q must be an object", key)
	}
	return m, nil
}

func stringList(id string, cfg map[string]any, key string) ([]string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, isList := v.([]any)
	if !isList {
		return nil, constraintf([]string{id}, "config %q must be a list", key)
	}
	out := make([]string, 0, len(list))
	for i, e := range list {
		s, err := scalarString(e)
		if err != nil {
			return nil, constraintf([]string{id}, "config %q[%d]: %v", key, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// scalarString renders a scalar value as a string. Lists and objects have no
// string form.
func scalarString(v any) (string, error) {
	switch v.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
	return runtimeresolver.Stringify(v), nil
}

// stringMap converts a config object into string values.
func stringMap(id string, m map[string]any, what string) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, err := scalarString(v)
		if err != nil {
			return nil, constraintf([]string{id}, "%s %q: %v", what, k, err)
		}
		out[k] = s
	}
	return out, nil
}

// normalize converts config values into the JSON-compatible types the
// resolver and the expression engine work with.
func normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			n, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			n, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

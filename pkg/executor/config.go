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

package executor

import "fmt"

// Accessors over resolved resource configs. Configs come out of the graph
// normalized, so numbers are int64 or float64 and lists are []any.

func cfgString(c map[string]any, key string) string {
	s, _ := c[key].(string)
	return s
}

func cfgBool(c map[string]any, key string) bool {
	b, _ := c[key].(bool)
	return b
}

func cfgInt(c map[string]any, key string) int64 {
	switch v := c[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func cfgMap(c map[string]any, key string) map[string]any {
	m, _ := c[key].(map[string]any)
	return m
}

func cfgList(c map[string]any, key string) []any {
	l, _ := c[key].([]any)
	return l
}

func cfgRequired(c map[string]any, key string) (string, error) {
	s := cfgString(c, key)
	if s == "" {
		return "", fmt.Errorf("config %q is required", key)
	}
	return s, nil
}

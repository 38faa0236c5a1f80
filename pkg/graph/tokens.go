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
	"regexp"
)

// Provider-assigned attributes (ARNs, endpoints, DNS names) are unknown
// until a resource exists. The composer represents them as attribute tokens
// that the executor replaces once the owning resource has been created.

var tokenPattern = regexp.MustCompile(`\{\{([a-z][a-zA-Z0-9]*)\.([a-zA-Z][a-zA-Z0-9]*)\}\}`)

// AttributeToken returns the placeholder for a provider-assigned attribute.
func AttributeToken(id, attribute string) string {
	return "{{" + id + "." + attribute + "}}"
}

// TokenLookup returns the provider-assigned value of id.attribute.
type TokenLookup func(id, attribute string) (string, bool)

// SubstituteTokens returns a copy of v with every attribute token replaced
// through lookup. Maps and slices are copied, other values returned as is.
func SubstituteTokens(v any, lookup TokenLookup) (any, error) {
	switch v := v.(type) {
	case string:
		return substituteString(v, lookup)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			s, err := SubstituteTokens(e, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			s, err := SubstituteTokens(e, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, lookup TokenLookup) (string, error) {
	var missing error
	out := tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		v, ok := lookup(m[1], m[2])
		if !ok {
			if missing == nil {
				missing = fmt.Errorf("attribute %s.%s is not available", m[1], m[2])
			}
			return token
		}
		return v
	})
	return out, missing
}

// TokenReferences lists the "<id>.<attribute>" keys of the tokens in s.
func TokenReferences(s string) []string {
	var keys []string
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		keys = append(keys, m[1]+"."+m[2])
	}
	return keys
}

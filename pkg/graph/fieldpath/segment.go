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

// Package fieldpath builds and parses the paths that locate expression fields
// inside a resource config, e.g. environment.generated.APP_URL or
// ingress[0]["from.port"].
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: a map key, or an array index when Index is
// not -1.
type Segment struct {
	Name  string
	Index int
}

// NamedSegment returns a map key segment.
func NamedSegment(name string) Segment { return Segment{Name: name, Index: -1} }

// IndexedSegment returns an array index segment.
func IndexedSegment(i int) Segment { return Segment{Index: i} }

// Parse splits a path produced by Build back into segments.
func Parse(path string) ([]Segment, error) {
	var segments []Segment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			if i == 0 || i == len(path)-1 {
				return nil, fmt.Errorf("unexpected '.' at offset %d", i)
			}
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '[' at offset %d", i)
			}
			inner := path[i+1 : i+end]
			if strings.HasPrefix(inner, `"`) {
				// Quoted keys may contain ']' themselves; find the closing quote.
				name, rest, err := unquotePrefix(path[i+1:])
				if err != nil {
					return nil, fmt.Errorf("offset %d: %w", i, err)
				}
				if !strings.HasPrefix(rest, "]") {
					return nil, fmt.Errorf("expected ']' after quoted key at offset %d", i)
				}
				segments = append(segments, NamedSegment(name))
				i = len(path) - len(rest) + 1
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid index %q at offset %d", inner, i)
			}
			segments = append(segments, IndexedSegment(idx))
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, NamedSegment(path[i:i+end]))
			i += end
		}
	}
	return segments, nil
}

func unquotePrefix(s string) (string, string, error) {
	for j := 1; j < len(s); j++ {
		if s[j] == '\\' {
			j++
			continue
		}
		if s[j] == '"' {
			name, err := strconv.Unquote(s[:j+1])
			return name, s[j+1:], err
		}
	}
	return "", "", fmt.Errorf("unterminated quoted key")
}

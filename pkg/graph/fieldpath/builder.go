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

package fieldpath

import (
	"fmt"
	"strings"
)

// Build renders segments as a path string.
//
// Examples:
//   - [{Name: "environment"}, {Name: "generated"}, {Name: "APP_URL"}] -> environment.generated.APP_URL
//   - [{Name: "ingress"}, {Index: 0}, {Name: "from.port"}] -> ingress[0]["from.port"]
func Build(segments []Segment) string {
	var b strings.Builder

	for i, segment := range segments {
		if segment.Index != -1 {
			b.WriteString(fmt.Sprintf("[%d]", segment.Index))
			continue
		}

		if needsQuoting(segment.Name) {
			b.WriteString(fmt.Sprintf(`[%q]`, segment.Name))
		} else {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(segment.Name)
		}
	}

	return b.String()
}

// Join appends a key to an existing path.
func Join(path, key string) string {
	if path == "" {
		return Build([]Segment{NamedSegment(key)})
	}
	if needsQuoting(key) {
		return path + fmt.Sprintf("[%q]", key)
	}
	return path + "." + key
}

func needsQuoting(name string) bool {
	return name == "" || strings.ContainsAny(name, ".[]\"")
}

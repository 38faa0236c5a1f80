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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndParse(t *testing.T) {
	grid := []struct {
		name     string
		segments []Segment
		want     string
	}{
		{
			name:     "nested keys",
			segments: []Segment{NamedSegment("environment"), NamedSegment("generated"), NamedSegment("APP_URL")},
			want:     "environment.generated.APP_URL",
		},
		{
			name:     "array index",
			segments: []Segment{NamedSegment("healthCheck"), NamedSegment("codes"), IndexedSegment(1)},
			want:     "healthCheck.codes[1]",
		},
		{
			name:     "dotted key",
			segments: []Segment{NamedSegment("origin"), NamedSegment("headers"), NamedSegment("x.origin.verify")},
			want:     `origin.headers["x.origin.verify"]`,
		},
		{
			name:     "leading quoted key",
			segments: []Segment{NamedSegment("a]b"), IndexedSegment(0)},
			want:     `["a]b"][0]`,
		},
	}

	for _, g := range grid {
		t.Run(g.name, func(t *testing.T) {
			got := Build(g.segments)
			assert.Equal(t, g.want, got)

			parsed, err := Parse(got)
			require.NoError(t, err)
			assert.Equal(t, g.segments, parsed)
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "name", Join("", "name"))
	assert.Equal(t, "cors.origins", Join("cors", "origins"))
	assert.Equal(t, `secrets["DB.HOST"]`, Join("secrets", "DB.HOST"))
}

func TestParseErrors(t *testing.T) {
	for _, path := range []string{".a", "a.", "a[", "a[x]", "a[-1]", `a["b]`} {
		t.Run(path, func(t *testing.T) {
			_, err := Parse(path)
			assert.Error(t, err)
		})
	}
}

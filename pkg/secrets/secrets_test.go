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

package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suffixRequest = Request{
	Key:                "suffix",
	Length:             6,
	ExcludePunctuation: true,
	ExcludeUppercase:   true,
	ExcludeCharacters:  "/¥'%:{}-_[]()",
}

func TestRequest_Alphabet(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "suffix is lowercase alphanumeric",
			req:  suffixRequest,
			want: lowercase + digits,
		},
		{
			name: "excluded characters are dropped",
			req:  Request{ExcludeUppercase: true, ExcludeNumbers: true, ExcludePunctuation: true, ExcludeCharacters: "aeiou"},
			want: "bcdfghjklmnpqrstvwxyz",
		},
		{
			name: "everything excluded",
			req:  Request{ExcludeLowercase: true, ExcludeUppercase: true, ExcludeNumbers: true, ExcludePunctuation: true},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Alphabet())
		})
	}
}

func TestGenerators(t *testing.T) {
	generators := map[string]Generator{
		"crypto": NewGenerator(),
		"seeded": NewSeededGenerator(42),
	}
	password := Request{Key: "ddbPassword", ExcludePunctuation: true, ExcludeCharacters: "/¥'%:{}"}

	for name, gen := range generators {
		t.Run(name, func(t *testing.T) {
			suffix, err := gen.Generate(suffixRequest)
			require.NoError(t, err)
			assert.Len(t, suffix, 6)
			assert.Equal(t, strings.ToLower(suffix), suffix)
			for _, c := range suffix {
				assert.Contains(t, lowercase+digits, string(c))
			}

			pw, err := gen.Generate(password)
			require.NoError(t, err)
			assert.Len(t, pw, DefaultLength)
			assert.NotContainsf(t, pw, "/", "password %q", pw)
			assert.NotContains(t, pw, "%")

			_, err = gen.Generate(Request{Key: "bad", Length: -1})
			assert.Error(t, err)

			_, err = gen.Generate(Request{Key: "empty", ExcludeLowercase: true, ExcludeUppercase: true, ExcludeNumbers: true, ExcludePunctuation: true})
			assert.Error(t, err)
		})
	}
}

func TestSeededGenerator_Deterministic(t *testing.T) {
	a, err := NewSeededGenerator(7).Generate(suffixRequest)
	require.NoError(t, err)
	b, err := NewSeededGenerator(7).Generate(suffixRequest)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Values depend on the key, not on how many values were generated before.
	gen := NewSeededGenerator(7)
	_, err = gen.Generate(Request{Key: "sessionSecret"})
	require.NoError(t, err)
	c, err := gen.Generate(suffixRequest)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	other, err := NewSeededGenerator(7).Generate(Request{Key: "other", Length: 32})
	require.NoError(t, err)
	long, err := NewSeededGenerator(7).Generate(Request{Key: "suffix", Length: 32})
	require.NoError(t, err)
	assert.NotEqual(t, other, long)

	_, err = gen.Generate(Request{})
	assert.Error(t, err)
}

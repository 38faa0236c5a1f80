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

package cel

import (
	"testing"

	"github.com/google/cel-go/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoNativeType(t *testing.T) {
	env, err := DefaultEnvironment()
	require.NoError(t, err)

	grid := []struct {
		name string
		expr string
		want any
	}{
		{name: "string", expr: `"form-" + "alb"`, want: "form-alb"},
		{name: "int", expr: `465`, want: int64(465)},
		{name: "double", expr: `0.5`, want: 0.5},
		{name: "bool", expr: `1 < 2`, want: true},
		{name: "empty list", expr: `[]`, want: []any{}},
		{name: "list", expr: `["200", "403"]`, want: []any{"200", "403"}},
		{name: "map", expr: `{"port": 5000, "codes": ["200"]}`, want: map[string]any{"port": int64(5000), "codes": []any{"200"}}},
		{name: "optional none", expr: `optional.none()`, want: nil},
		{name: "optional value", expr: `optional.of("x")`, want: "x"},
		{name: "null", expr: `null`, want: nil},
		{name: "optional in map", expr: `{"domain": optional.none(), "port": optional.of(443)}`, want: map[string]any{"domain": nil, "port": int64(443)}},
		{name: "bytes", expr: `b"abc"`, want: []byte("abc")},
	}

	for _, g := range grid {
		t.Run(g.name, func(t *testing.T) {
			expr, err := Compile(env, g.expr)
			require.NoError(t, err)
			got, err := expr.Eval(map[string]any{})
			require.NoError(t, err)
			assert.Equal(t, g.want, got)
		})
	}
}

func TestGoNativeType_Unsupported(t *testing.T) {
	_, err := GoNativeType(types.Duration{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	env, err := DefaultEnvironment()
	require.NoError(t, err)
	for name, expr := range map[string]string{
		"int keys":        `{1: "a"}`,
		"nested duration": `["a", duration("1s")]`,
	} {
		t.Run(name, func(t *testing.T) {
			compiled, err := Compile(env, expr)
			require.NoError(t, err)
			_, err = compiled.Eval(map[string]any{})
			assert.Error(t, err)
		})
	}
}

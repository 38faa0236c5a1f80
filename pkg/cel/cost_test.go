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
	"errors"
	"testing"

	"github.com/google/cel-go/cel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expensive = `[1, 2, 3, 4, 5, 6, 7, 8, 9, 10].map(x, [1, 2, 3, 4, 5, 6, 7, 8, 9, 10].map(y, x * y)).filter(arr, arr.exists(e, e > 50))`

func TestWithCostLimit(t *testing.T) {
	env, err := cel.NewEnv()
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    string
		limit   uint64
		wantErr bool
	}{
		{name: "trivial within limit", expr: `"test"`, limit: 1},
		{name: "expensive within limit", expr: expensive, limit: PerCallLimit},
		{name: "expensive over limit", expr: expensive, limit: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast, iss := env.Compile(tt.expr)
			require.NoError(t, iss.Err())
			program, err := env.Program(ast, WithCostLimit(tt.limit)...)
			require.NoError(t, err)

			_, details, err := program.Eval(map[string]any{})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsCostLimitExceeded(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, details.ActualCost())
			assert.LessOrEqual(t, *details.ActualCost(), tt.limit)
		})
	}
}

func TestIsCostLimitExceeded(t *testing.T) {
	assert.False(t, IsCostLimitExceeded(nil))
	assert.False(t, IsCostLimitExceeded(errors.New("no such key")))
	assert.True(t, IsCostLimitExceeded(errors.New("operation cancelled: actual cost limit exceeded")))
	assert.True(t, IsCostLimitExceeded(ErrCostLimitExceeded))
}

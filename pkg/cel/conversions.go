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
	"fmt"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// ErrUnsupportedType is returned for CEL values that have no place in a
// resolved config, such as durations or type values.
var ErrUnsupportedType = errors.New("unsupported type")

// GoNativeType converts the result of an expression into the JSON shaped
// values resolved configs hold: bool, int64, uint64, float64, string, []byte,
// []any and map[string]any. null and an empty optional both become nil, so
// an expression like optional.none() leaves the field unset.
func GoNativeType(v ref.Val) (any, error) {
	switch val := v.(type) {
	case types.Null:
		return nil, nil
	case *types.Optional:
		if !val.HasValue() {
			return nil, nil
		}
		return GoNativeType(val.GetValue())
	case types.Bool, types.Int, types.Uint, types.Double, types.String, types.Bytes:
		return val.Value(), nil
	case traits.Mapper:
		return toObject(val)
	case traits.Lister:
		return toList(val)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type().TypeName())
}

func toList(l traits.Lister) ([]any, error) {
	out := []any{}
	for it := l.Iterator(); it.HasNext() == types.True; {
		elem, err := GoNativeType(it.Next())
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", len(out), err)
		}
		out = append(out, elem)
	}
	return out, nil
}

func toObject(m traits.Mapper) (map[string]any, error) {
	out := map[string]any{}
	for it := m.Iterator(); it.HasNext() == types.True; {
		k := it.Next()
		key, ok := k.(types.String)
		if !ok {
			return nil, fmt.Errorf("map key %v is a %s, config keys are strings", k.Value(), k.Type().TypeName())
		}
		val, err := GoNativeType(m.Get(k))
		if err != nil {
			return nil, fmt.Errorf("map key %q: %w", string(key), err)
		}
		out[string(key)] = val
	}
	return out, nil
}

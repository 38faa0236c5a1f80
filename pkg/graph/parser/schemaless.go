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

package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/opengovsg/formsg-on-cdk/pkg/cel"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/fieldpath"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/variable"
)

// ParseConfig extracts every field of a resource config that holds an
// expression. Fields are returned sorted by path.
func ParseConfig(config map[string]any) ([]variable.FieldDescriptor, error) {
	fields, err := parseSchemaless(config, "")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(fields, func(a, b variable.FieldDescriptor) int {
		return strings.Compare(a.Path, b.Path)
	})
	return fields, nil
}

// parseSchemaless walks the config depth first and inspects string leaves.
func parseSchemaless(value any, path string) ([]variable.FieldDescriptor, error) {
	var fields []variable.FieldDescriptor
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			childFields, err := parseSchemaless(child, fieldpath.Join(path, key))
			if err != nil {
				return nil, err
			}
			fields = append(fields, childFields...)
		}
	case []any:
		for i, item := range v {
			itemFields, err := parseSchemaless(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			fields = append(fields, itemFields...)
		}
	case string:
		if v == "" {
			return nil, nil
		}
		standalone, err := isStandaloneExpression(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		if standalone {
			body := strings.TrimSpace(v[len(exprOpen) : len(v)-1])
			if body == "" {
				return nil, fmt.Errorf("field %s: empty expression", path)
			}
			return []variable.FieldDescriptor{{
				Path:                 path,
				Expressions:          []*cel.Expression{cel.NewUncompiled(body)},
				StandaloneExpression: true,
			}}, nil
		}
		exprs, err := extractExpressions(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		if len(exprs) > 0 {
			uncompiled := make([]*cel.Expression, len(exprs))
			for i, e := range exprs {
				uncompiled[i] = cel.NewUncompiled(e)
			}
			fields = append(fields, variable.FieldDescriptor{
				Path:        path,
				Expressions: uncompiled,
			})
		}
	}
	return fields, nil
}

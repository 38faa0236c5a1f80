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

package resolver

import (
	"fmt"
	"strconv"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph/fieldpath"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/parser"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/variable"
)

// ResolutionResult is the outcome of resolving one field.
type ResolutionResult struct {
	Path     string
	Resolved bool
	Replaced any
	Error    error
}

// ResolutionSummary aggregates the results of a Resolve call.
type ResolutionSummary struct {
	TotalExpressions    int
	ResolvedExpressions int
	Results             []ResolutionResult
	Errors              []error
}

// Resolver substitutes evaluated expression values into a resource config.
type Resolver struct {
	// resource is modified in place; callers pass a copy.
	resource map[string]any
	// data maps an expression's Original text to its evaluated value.
	data map[string]any
}

// NewResolver creates a Resolver over resource using the evaluated data.
func NewResolver(resource map[string]any, data map[string]any) *Resolver {
	return &Resolver{
		resource: resource,
		data:     data,
	}
}

// Resolve replaces every field with its value. Standalone expressions keep
// the type of their value; templates render to a string.
func (r *Resolver) Resolve(fields []variable.FieldDescriptor) ResolutionSummary {
	summary := ResolutionSummary{
		TotalExpressions: len(fields),
		Results:          make([]ResolutionResult, 0, len(fields)),
	}
	for _, field := range fields {
		result := r.resolveField(field)
		summary.Results = append(summary.Results, result)
		if result.Resolved {
			summary.ResolvedExpressions++
		}
		if result.Error != nil {
			summary.Errors = append(summary.Errors, result.Error)
		}
	}
	return summary
}

func (r *Resolver) resolveField(field variable.FieldDescriptor) ResolutionResult {
	result := ResolutionResult{Path: field.Path}

	current, err := r.getValueFromPath(field.Path)
	if err != nil {
		result.Error = fmt.Errorf("field %s: %w", field.Path, err)
		return result
	}

	var replaced any
	if field.StandaloneExpression {
		expr := field.Expressions[0].Original
		value, ok := r.data[expr]
		if !ok {
			result.Error = fmt.Errorf("field %s: no value for expression %q", field.Path, expr)
			return result
		}
		replaced = value
	} else {
		template, ok := current.(string)
		if !ok {
			result.Error = fmt.Errorf("field %s: expected a string template, got %T", field.Path, current)
			return result
		}
		replaced, err = parser.Interpolate(template, func(body string) (string, error) {
			value, ok := r.data[body]
			if !ok {
				return "", fmt.Errorf("no value for expression %q", body)
			}
			return Stringify(value), nil
		})
		if err != nil {
			result.Error = fmt.Errorf("field %s: %w", field.Path, err)
			return result
		}
	}

	if err := r.setValueAtPath(field.Path, replaced); err != nil {
		result.Error = fmt.Errorf("field %s: %w", field.Path, err)
		return result
	}
	result.Resolved = true
	result.Replaced = replaced
	return result
}

// Stringify renders a value the way it appears inside a template.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (r *Resolver) getValueFromPath(path string) (any, error) {
	segments, err := fieldpath.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}

	var current any = r.resource
	for _, segment := range segments {
		if segment.Index >= 0 {
			array, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array at segment %v", segment)
			}
			if segment.Index >= len(array) {
				return nil, fmt.Errorf("array index out of bounds: %d", segment.Index)
			}
			current = array[segment.Index]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map at segment %q", segment.Name)
		}
		value, ok := m[segment.Name]
		if !ok {
			return nil, fmt.Errorf("key not found: %s", segment.Name)
		}
		current = value
	}
	return current, nil
}

// setValueAtPath replaces an existing leaf. Paths come from parsing the same
// config, so every parent already exists.
func (r *Resolver) setValueAtPath(path string, value any) error {
	segments, err := fieldpath.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if len(segments) == 0 {
		return fmt.Errorf("empty path")
	}

	var parent any = r.resource
	for _, segment := range segments[:len(segments)-1] {
		if segment.Index >= 0 {
			array, ok := parent.([]any)
			if !ok || segment.Index >= len(array) {
				return fmt.Errorf("expected array at segment %v", segment)
			}
			parent = array[segment.Index]
			continue
		}
		m, ok := parent.(map[string]any)
		if !ok {
			return fmt.Errorf("expected map at segment %q", segment.Name)
		}
		parent = m[segment.Name]
	}

	last := segments[len(segments)-1]
	switch p := parent.(type) {
	case []any:
		if last.Index < 0 || last.Index >= len(p) {
			return fmt.Errorf("expected index at final segment %v", last)
		}
		p[last.Index] = value
	case map[string]any:
		if last.Index >= 0 {
			return fmt.Errorf("expected key at final segment %v", last)
		}
		p[last.Name] = value
	default:
		return fmt.Errorf("cannot set %s on %T", path, parent)
	}
	return nil
}

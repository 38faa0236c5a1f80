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

package variable

import (
	"slices"

	"github.com/opengovsg/formsg-on-cdk/pkg/cel"
)

// FieldDescriptor locates a config field holding one or more ${...}
// expressions. The parser fills Path and Expression.Original; the linker
// compiles the expressions in place.
type FieldDescriptor struct {
	// Path is the location of the field in the resource config.
	// Example: environment.generated.ATTACHMENT_S3_BUCKET
	Path string

	// Expressions holds a single expression for "${foo}", or one per
	// placeholder for templates like "https://${a}/${b}".
	Expressions []*cel.Expression

	// StandaloneExpression is true when the whole field is one expression. Its
	// value then replaces the field as is, keeping its type. Templates always
	// render to a string.
	StandaloneExpression bool
}

// References returns the union of the identifiers read by the field's
// expressions. It is only meaningful after compilation.
func (f FieldDescriptor) References() []string {
	seen := map[string]bool{}
	var refs []string
	for _, expr := range f.Expressions {
		for _, ref := range expr.References {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// ResourceField is a FieldDescriptor classified by what it reads.
type ResourceField struct {
	FieldDescriptor
	Kind ResourceVariableKind
}

// ResourceVariableKind tells whether a field can be resolved before the walk.
type ResourceVariableKind string

const (
	// ResourceVariableKindStatic fields only read deployment parameters, e.g.
	//
	//	mailFrom: ${params.email}
	ResourceVariableKindStatic ResourceVariableKind = "static"
	// ResourceVariableKindDynamic fields read attributes produced by other
	// resources, which makes those resources dependencies, e.g.
	//
	//	bucketName: ${attachmentBucket.name}
	ResourceVariableKindDynamic ResourceVariableKind = "dynamic"
)

func (r ResourceVariableKind) String() string { return string(r) }

// IsStatic returns true if the kind is static.
func (r ResourceVariableKind) IsStatic() bool { return r == ResourceVariableKindStatic }

// IsDynamic returns true if the kind is dynamic.
func (r ResourceVariableKind) IsDynamic() bool { return r == ResourceVariableKindDynamic }

// Classify returns a static field when every reference is one of roots, and
// a dynamic one otherwise.
func Classify(f FieldDescriptor, roots ...string) ResourceField {
	kind := ResourceVariableKindStatic
	for _, ref := range f.References() {
		if !slices.Contains(roots, ref) {
			kind = ResourceVariableKindDynamic
			break
		}
	}
	return ResourceField{FieldDescriptor: f, Kind: kind}
}

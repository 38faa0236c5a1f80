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

package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	gocel "github.com/google/cel-go/cel"

	"github.com/opengovsg/formsg-on-cdk/pkg/cel"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/dag"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/fieldpath"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/parser"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/variable"
)

// LinkedNode is a spec with its expressions compiled and its dependencies
// known.
type LinkedNode struct {
	Spec  ResourceSpec
	Index int
	// Fields are the config fields holding expressions, sorted by path.
	Fields []variable.FieldDescriptor
	// References are the resource IDs the expressions read.
	References []string
	// Dependencies are References plus DependsOn, bucket bindings and the
	// scanner, sorted.
	Dependencies []string
	Capability   Capability
	Bindings     map[BucketRole]string
}

// LinkedDeployment is the output of the link stage.
type LinkedDeployment struct {
	*ValidatedDeployment

	Nodes  map[string]*LinkedNode
	DAG    *dag.DirectedAcyclicGraph[string]
	Levels [][]string
	// Order is Levels flattened: the resolution order.
	Order []string
}

type linker struct{}

func newLinker() *linker { return &linker{} }

func (l *linker) Link(in *ValidatedDeployment) (*LinkedDeployment, error) {
	ids := make([]string, 0, len(in.Specs))
	kinds := make(map[string]Kind, len(in.Specs))
	for _, s := range in.Specs {
		ids = append(ids, s.ID)
		kinds[s.ID] = s.Kind
	}
	env, err := cel.DefaultEnvironment(cel.WithIdentifiers(append(ids, ParamsIdentifier)...))
	if err != nil {
		return nil, fmt.Errorf("%s: create expression environment: %w", StageLink, err)
	}

	out := &LinkedDeployment{
		ValidatedDeployment: in,
		Nodes:               make(map[string]*LinkedNode, len(in.Specs)),
		DAG:                 dag.NewDirectedAcyclicGraph[string](),
	}
	for i, spec := range in.Specs {
		node, err := l.linkNode(env, in, kinds, spec, i)
		if err != nil {
			return nil, terminal(StageLink, err)
		}
		out.Nodes[spec.ID] = node
		if err := out.DAG.AddVertex(spec.ID, i); err != nil {
			return nil, terminal(StageLink, err)
		}
	}

	for _, id := range ids {
		node := out.Nodes[id]
		if slices.Contains(node.Dependencies, id) {
			return nil, terminal(StageLink, &CyclicDependencyError{Cycle: []string{id, id}})
		}
		if err := out.DAG.AddDependencies(id, node.Dependencies); err != nil {
			if cycle := dag.AsCycleError[string](err); cycle != nil {
				return nil, terminal(StageLink, &CyclicDependencyError{Cycle: cycle.Cycle})
			}
			return nil, terminal(StageLink, err)
		}
	}

	out.Levels, err = out.DAG.TopologicalSortLevels()
	if err != nil {
		if cycle := dag.AsCycleError[string](err); cycle != nil {
			return nil, terminal(StageLink, &CyclicDependencyError{Cycle: cycle.Cycle})
		}
		return nil, terminal(StageLink, err)
	}
	for _, level := range out.Levels {
		out.Order = append(out.Order, level...)
	}
	return out, nil
}

func (l *linker) linkNode(env *gocel.Env, in *ValidatedDeployment, kinds map[string]Kind, spec ResourceSpec, index int) (*LinkedNode, error) {
	fields, err := parser.ParseConfig(spec.Config)
	if err != nil {
		return nil, constraintf([]string{spec.ID}, "config: %v", err)
	}

	refs := map[string]bool{}
	for fi := range fields {
		field := &fields[fi]
		for ei, expr := range field.Expressions {
			compiled, err := cel.Compile(env, expr.Original)
			if err != nil {
				var undeclared *cel.UndeclaredIdentifierError
				if errors.As(err, &undeclared) {
					return nil, &UnresolvedReferenceError{
						ID:        spec.ID,
						Reference: undeclared.Names[0],
						Reason:    fmt.Sprintf("no resource or parameter has this name (field %s)", field.Path),
					}
				}
				return nil, constraintf([]string{spec.ID}, "field %s: %v", field.Path, err)
			}
			if err := checkSelections(spec.ID, in, kinds, compiled); err != nil {
				return nil, err
			}
			field.Expressions[ei] = compiled
			for _, ref := range compiled.References {
				if ref != ParamsIdentifier {
					refs[ref] = true
				}
			}
		}
	}
	if err := checkSecretReferences(spec, kinds, fields); err != nil {
		return nil, err
	}

	node := &LinkedNode{
		Spec:       spec,
		Index:      index,
		Fields:     fields,
		References: slices.Sorted(maps.Keys(refs)),
		Bindings:   map[BucketRole]string{},
	}

	deps := maps.Clone(refs)
	for _, dep := range spec.DependsOn {
		if _, ok := kinds[dep]; !ok {
			return nil, &UnresolvedReferenceError{ID: spec.ID, Reference: dep, Reason: "dependsOn names no resource"}
		}
		deps[dep] = true
	}
	if kindRegistry[spec.Kind].principal {
		if capability, ok, _ := configString(spec.ID, spec.Config, configCapability); ok {
			node.Capability = Capability(capability)
		}
		bindings, _ := objectField(spec.ID, spec.Config, configBucketBindings)
		for role, target := range bindings {
			node.Bindings[BucketRole(role)] = target.(string)
			deps[target.(string)] = true
		}
		if scanner, ok, _ := configString(spec.ID, spec.Config, configScanner); ok {
			deps[scanner] = true
		}
	}
	node.Dependencies = slices.Sorted(maps.Keys(deps))
	return node, nil
}

// checkSelections verifies that every attribute and parameter an expression
// selects exists.
func checkSelections(id string, in *ValidatedDeployment, kinds map[string]Kind, expr *cel.Expression) error {
	for _, root := range slices.Sorted(maps.Keys(expr.Selections)) {
		for _, field := range expr.Selections[root] {
			ref := root + "." + field
			if root == ParamsIdentifier {
				if _, declared := in.Parameters[field]; !declared {
					return &UnresolvedReferenceError{ID: id, Reference: ref, Reason: "parameter is not declared"}
				}
				if _, ok := in.ParameterValues[field]; !ok {
					return &UnresolvedReferenceError{ID: id, Reference: ref, Reason: "parameter has no value and no default"}
				}
				continue
			}
			kind, ok := kinds[root]
			if !ok {
				continue
			}
			if !kindRegistry[kind].hasAttribute(field) {
				return &UnresolvedReferenceError{
					ID:        id,
					Reference: ref,
					Reason:    fmt.Sprintf("%s resources have no attribute %q", kind, field),
				}
			}
		}
	}
	return nil
}

// checkSecretReferences requires every entry of a workload's secrets map to
// be a single reference to the arn of a secret resource.
func checkSecretReferences(spec ResourceSpec, kinds map[string]Kind, fields []variable.FieldDescriptor) error {
	entries, _ := objectField(spec.ID, spec.Config, configSecrets)
	byPath := make(map[string]variable.FieldDescriptor, len(fields))
	for _, f := range fields {
		byPath[f.Path] = f
	}
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		f, ok := byPath[fieldpath.Join(configSecrets, key)]
		if !ok || !f.StandaloneExpression || !isSecretARN(f.Expressions[0], kinds) {
			return constraintf([]string{spec.ID}, "secret %s must be a reference to the arn of a secret resource", key)
		}
	}
	return nil
}

func isSecretARN(expr *cel.Expression, kinds map[string]Kind) bool {
	if len(expr.References) != 1 {
		return false
	}
	ref := expr.References[0]
	return kinds[ref] == KindSecret && slices.Equal(expr.Selections[ref], []string{"arn"})
}

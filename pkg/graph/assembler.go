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
	"maps"
	"slices"

	"github.com/google/uuid"

	runtimeresolver "github.com/opengovsg/formsg-on-cdk/pkg/runtime/resolver"
)

type assembler struct{}

func newAssembler() *assembler { return &assembler{} }

func (a *assembler) Assemble(in *ResolvedDeployment) (*DeploymentGraph, error) {
	g := &DeploymentGraph{
		ID:        uuid.NewString(),
		Levels:    in.Levels,
		Values:    in.store.snapshot(),
		Outputs:   map[string]string{},
		index:     make(map[string]*Node, len(in.Nodes)),
		sensitive: in.store.sensitiveValues(),
	}
	for _, id := range in.Order {
		node, ok := in.Nodes[id]
		if !ok {
			return nil, terminal(StageAssemble, &UnresolvedReferenceError{ID: id, Reference: id, Reason: "resource was not resolved"})
		}
		g.Nodes = append(g.Nodes, node)
		g.index[id] = node
	}

	for _, id := range in.Order {
		node := in.Nodes[id]
		outputs := in.LinkedDeployment.Nodes[id].Spec.Outputs
		for _, name := range slices.Sorted(maps.Keys(outputs)) {
			attr := outputs[name]
			key := id + "." + attr
			v, ok := node.Attributes[attr]
			if !ok {
				return nil, terminal(StageAssemble, &UnresolvedReferenceError{ID: id, Reference: key, Reason: "attribute was not produced"})
			}
			value := runtimeresolver.Stringify(v)
			if in.store.isSensitive(key) || in.store.containsSensitive(value) {
				return nil, terminal(StageAssemble, constraintf([]string{id}, "output %q would expose a sensitive value", name))
			}
			g.Outputs[name] = value
		}
	}
	return g, nil
}

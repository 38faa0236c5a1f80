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
	"fmt"
	"slices"
	"strings"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph/dag"
)

// GeneratedValue is an attribute produced while resolving a node. Key has
// the form "<id>.<attribute>".
type GeneratedValue struct {
	Key       string `json:"key"`
	Producer  string `json:"producer"`
	Value     any    `json:"value"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// PolicyGrant allows Principal to perform Actions on Resource. Resource
// already includes the object key scope, e.g. "arn:aws:s3:::bucket/*".
type PolicyGrant struct {
	Principal string   `json:"principal"`
	Actions   []string `json:"actions"`
	Resource  string   `json:"resource"`
	KeyScope  string   `json:"keyScope,omitempty"`
}

// Node is a fully resolved resource of a DeploymentGraph.
type Node struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Order int    `json:"order"`

	// Config holds the spec config with every expression substituted.
	// Provider-assigned values appear as attribute tokens, see AttributeToken.
	Config       map[string]any `json:"config,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Lifecycle    Lifecycle      `json:"lifecycle"`

	// Environment and Secrets are only set on service and function nodes.
	// Secrets maps variable names to secret ARN references.
	Environment map[string]string `json:"environment,omitempty"`
	Secrets     map[string]string `json:"secrets,omitempty"`
	Grants      []PolicyGrant     `json:"grants,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
}

// DeploymentGraph is the immutable result of Compose.
type DeploymentGraph struct {
	// ID is unique per Compose call.
	ID string `json:"id"`
	// Nodes are in resolution order.
	Nodes []*Node `json:"nodes"`
	// Levels groups node IDs by topological depth. Nodes within a level
	// are independent of each other.
	Levels  [][]string        `json:"levels"`
	Values  []GeneratedValue  `json:"values"`
	Outputs map[string]string `json:"outputs"`

	index     map[string]*Node
	sensitive []string
}

// Node returns the node with the given ID.
func (g *DeploymentGraph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Order returns node IDs in resolution order.
func (g *DeploymentGraph) Order() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Value returns the generated value with the given "<id>.<attribute>" key.
func (g *DeploymentGraph) Value(key string) (GeneratedValue, bool) {
	i, found := slices.BinarySearchFunc(g.Values, key, func(v GeneratedValue, k string) int {
		return strings.Compare(v.Key, k)
	})
	if !found {
		return GeneratedValue{}, false
	}
	return g.Values[i], true
}

// DAG rebuilds the dependency graph of g. Each call returns a new DAG.
func (g *DeploymentGraph) DAG() (*dag.DirectedAcyclicGraph[string], error) {
	d := dag.NewDirectedAcyclicGraph[string]()
	for _, n := range g.Nodes {
		if err := d.AddVertex(n.ID, n.Order); err != nil {
			return nil, err
		}
	}
	for _, n := range g.Nodes {
		if err := d.AddDependencies(n.ID, n.Dependencies); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Redact returns a copy of g with every sensitive value replaced by
// RedactedValue. Short sensitive values are only replaced where they make
// up a whole string.
func (g *DeploymentGraph) Redact() *DeploymentGraph {
	r := redactor{sensitive: g.sensitive}
	out := &DeploymentGraph{
		ID:        g.ID,
		Levels:    g.Levels,
		Outputs:   r.strings(g.Outputs),
		index:     map[string]*Node{},
		sensitive: g.sensitive,
	}
	for _, n := range g.Nodes {
		cp := &Node{
			ID:           n.ID,
			Kind:         n.Kind,
			Order:        n.Order,
			Config:       r.object(n.Config),
			Dependencies: n.Dependencies,
			Lifecycle:    n.Lifecycle,
			Environment:  r.strings(n.Environment),
			Secrets:      r.strings(n.Secrets),
			Grants:       n.Grants,
			Attributes:   r.object(n.Attributes),
		}
		out.Nodes = append(out.Nodes, cp)
		out.index[cp.ID] = cp
	}
	for _, v := range g.Values {
		v.Value = r.value(v.Value)
		out.Values = append(out.Values, v)
	}
	return out
}

func (g *DeploymentGraph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DeploymentGraph %s: %d nodes, %d levels", g.ID, len(g.Nodes), len(g.Levels))
	for i, level := range g.Levels {
		fmt.Fprintf(&b, "\n  %d: %s", i, strings.Join(level, ", "))
	}
	return b.String()
}

// RedactedValue replaces sensitive values in redacted graphs.
const RedactedValue = "[REDACTED]"

type redactor struct {
	sensitive []string
}

func (r redactor) value(v any) any {
	switch v := v.(type) {
	case string:
		return r.string(v)
	case map[string]any:
		return r.object(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = r.value(e)
		}
		return out
	default:
		return v
	}
}

func (r redactor) object(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = r.value(v)
	}
	return out
}

func (r redactor) strings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.string(v)
	}
	return out
}

func (r redactor) string(s string) string {
	for _, secret := range r.sensitive {
		if len(secret) < minEmbeddedLength {
			if s == secret {
				return RedactedValue
			}
			continue
		}
		s = strings.ReplaceAll(s, secret, RedactedValue)
	}
	return s
}

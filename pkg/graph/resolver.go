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
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opengovsg/formsg-on-cdk/pkg/cel"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/walker"
	"github.com/opengovsg/formsg-on-cdk/pkg/metrics"
	runtimeresolver "github.com/opengovsg/formsg-on-cdk/pkg/runtime/resolver"
	"github.com/opengovsg/formsg-on-cdk/pkg/secrets"
)

// ResolvedDeployment is the output of the resolve stage.
type ResolvedDeployment struct {
	*LinkedDeployment

	Nodes map[string]*Node
	store *valueStore
}

type resolver struct {
	log         logr.Logger
	profile     Profile
	secrets     secrets.Generator
	parallelism int
}

func newResolver(log logr.Logger, profile Profile, gen secrets.Generator, parallelism int) *resolver {
	return &resolver{log: log, profile: profile, secrets: gen, parallelism: parallelism}
}

// resolution is the state of one Resolve call.
type resolution struct {
	*resolver
	linked *LinkedDeployment
	store  *valueStore

	mu    sync.Mutex
	nodes map[string]*Node
}

func (r *resolver) Resolve(linked *LinkedDeployment) (*ResolvedDeployment, error) {
	res := &resolution{
		resolver: r,
		linked:   linked,
		store:    newValueStore(),
		nodes:    make(map[string]*Node, len(linked.Nodes)),
	}
	for _, v := range linked.SensitiveValues {
		res.store.markSensitive(v)
	}

	var err error
	if r.parallelism > 1 {
		err = res.walk()
	} else {
		for _, id := range linked.Order {
			if err = res.resolveNode(id); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, terminal(StageResolve, err)
	}
	return &ResolvedDeployment{LinkedDeployment: linked, Nodes: res.nodes, store: res.store}, nil
}

// walk resolves independent nodes concurrently. A node starts only once
// every node it depends on is resolved. The reported error is the one of
// the earliest failed node in resolution order, so failures are stable
// across runs.
func (res *resolution) walk() error {
	failures := walker.Walk(context.Background(), res.linked.DAG, func(_ context.Context, id string) error {
		return res.resolveNode(id)
	}, walker.Options{Parallelism: res.parallelism, StopOnError: true})

	for _, id := range res.linked.Order {
		err, failed := failures[id]
		if failed && !errors.Is(err, walker.ErrSkipped) && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	for _, id := range res.linked.Order {
		if err, failed := failures[id]; failed {
			return fmt.Errorf("resource %q: %w", id, err)
		}
	}
	return nil
}

func (res *resolution) resolveNode(id string) error {
	ln := res.linked.Nodes[id]
	spec := ln.Spec
	log := res.log.WithValues("id", id, "kind", spec.Kind)

	data, sensitivePaths, err := res.evaluate(ln)
	if err != nil {
		return err
	}

	config, _ := runtime.DeepCopyJSONValue(spec.Config).(map[string]any)
	summary := runtimeresolver.NewResolver(config, data).Resolve(ln.Fields)
	if len(summary.Errors) > 0 {
		return constraintf([]string{id}, "substitute config: %v", errors.Join(summary.Errors...))
	}

	kind := kindRegistry[spec.Kind]
	out, err := kind.produce(produceInput{id: id, config: config, secrets: res.secrets})
	if err != nil {
		return err
	}
	for _, attr := range slices.Sorted(maps.Keys(out.values)) {
		if !kind.hasAttribute(attr) {
			return fmt.Errorf("resource %q: %s producer emitted undeclared attribute %q", id, spec.Kind, attr)
		}
		err := res.store.put(GeneratedValue{
			Key:       id + "." + attr,
			Producer:  id,
			Value:     out.values[attr],
			Sensitive: out.sensitive.Has(attr),
		})
		if err != nil {
			return err
		}
	}

	lifecycle := spec.Lifecycle
	if lifecycle == "" {
		lifecycle = res.profile.DefaultLifecycle(spec.HoldsUserData)
	}
	node := &Node{
		ID:           id,
		Kind:         spec.Kind,
		Order:        slices.Index(res.linked.Order, id),
		Config:       config,
		Dependencies: ln.Dependencies,
		Lifecycle:    lifecycle,
		Attributes:   out.values,
	}
	if kind.principal {
		if err := res.resolveWorkload(ln, node, sensitivePaths); err != nil {
			return err
		}
	}

	res.mu.Lock()
	res.nodes[id] = node
	res.mu.Unlock()

	metrics.RecordResolvedNode(string(spec.Kind))
	log.V(1).Info("resolved resource", "lifecycle", lifecycle, "attributes", len(out.values))
	return nil
}

// evaluate runs every expression of the node against the values produced
// so far. Results are keyed by expression text. The returned set holds the
// paths of config fields with an expression reading a sensitive value.
func (res *resolution) evaluate(ln *LinkedNode) (map[string]any, sets.Set[string], error) {
	vars := map[string]any{ParamsIdentifier: res.linked.ParameterValues}
	for _, ref := range ln.References {
		attrs, ok := res.store.attributes(ref)
		if !ok {
			return nil, nil, &UnresolvedReferenceError{ID: ln.Spec.ID, Reference: ref, Reason: "resource has not produced any value"}
		}
		vars[ref] = attrs
	}

	data := map[string]any{}
	sensitivePaths := sets.New[string]()
	for _, field := range ln.Fields {
		for _, expr := range field.Expressions {
			if res.readsSensitive(expr) {
				sensitivePaths.Insert(field.Path)
			}
			if _, done := data[expr.Original]; done {
				continue
			}
			v, err := expr.Eval(vars)
			if err != nil {
				return nil, nil, &UnresolvedReferenceError{ID: ln.Spec.ID, Reference: expr.Original, Reason: err.Error()}
			}
			data[expr.Original] = v
		}
	}
	return data, sensitivePaths, nil
}

// readsSensitive reports whether expr reads a sensitive parameter or
// attribute. An identifier read as a whole counts when any of its values
// is sensitive.
func (res *resolution) readsSensitive(expr *cel.Expression) bool {
	for _, name := range expr.Unselected {
		if name == ParamsIdentifier {
			for _, p := range res.linked.Parameters {
				if p.IsSensitive() {
					return true
				}
			}
			continue
		}
		if res.store.hasSensitive(name) {
			return true
		}
	}
	for name, fields := range expr.Selections {
		for _, field := range fields {
			if name == ParamsIdentifier {
				if res.linked.Parameters[field].IsSensitive() {
					return true
				}
				continue
			}
			if res.store.isSensitive(name + "." + field) {
				return true
			}
		}
	}
	return false
}

// resolveWorkload flattens the environment and derives grants of a service
// or function.
func (res *resolution) resolveWorkload(ln *LinkedNode, node *Node, sensitivePaths sets.Set[string]) error {
	id := node.ID
	env, err := objectField(id, node.Config, configEnvironment)
	if err != nil {
		return err
	}
	if node.Environment, err = mergeEnvironment(id, env); err != nil {
		return err
	}
	if err := checkPlainEnvironment(id, env, sensitivePaths); err != nil {
		return err
	}

	secretRefs, err := objectField(id, node.Config, configSecrets)
	if err != nil {
		return err
	}
	if node.Secrets, err = stringMap(id, secretRefs, "secret"); err != nil {
		return err
	}

	if ln.Capability == "" {
		return nil
	}
	buckets := map[BucketRole]boundBucket{}
	for role, bucketID := range ln.Bindings {
		b, err := res.boundBucket(bucketID)
		if err != nil {
			return err
		}
		buckets[role] = b
	}
	node.Grants, err = grantsFor(id, ln.Capability, buckets)
	if err != nil {
		return constraintf([]string{id}, "%v", err)
	}
	return nil
}

// Object ownership settings that keep object ACLs in effect.
var aclOwnerships = []string{"ObjectWriter", "BucketOwnerPreferred"}

func (res *resolution) boundBucket(id string) (boundBucket, error) {
	res.mu.Lock()
	bucket, ok := res.nodes[id]
	res.mu.Unlock()
	if !ok {
		return boundBucket{}, &UnresolvedReferenceError{ID: id, Reference: id + ".arn", Reason: "bucket is not resolved"}
	}
	ownership, err := stringOr(id, bucket.Config, "objectOwnership", "BucketOwnerEnforced")
	if err != nil {
		return boundBucket{}, err
	}
	arn, _ := bucket.Attributes["arn"].(string)
	return boundBucket{arn: arn, aclsEnabled: slices.Contains(aclOwnerships, ownership)}, nil
}

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

package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opengovsg/formsg-on-cdk/pkg/features"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph/walker"
	"github.com/opengovsg/formsg-on-cdk/pkg/metrics"
)

// StateAbsent marks nodes Destroy found nothing to delete for.
const StateAbsent State = "Absent"

// DefaultBackoff paces retries of retriable provider errors.
var DefaultBackoff = wait.Backoff{
	Duration: 2 * time.Second,
	Factor:   2,
	Jitter:   0.1,
	Steps:    5,
}

// Executor applies deployment graphs through a Provisioner.
type Executor struct {
	provisioner Provisioner
	log         logr.Logger
	parallelism int
	backoff     wait.Backoff
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option { return func(e *Executor) { e.log = log } }

// WithParallelism caps the number of resources provisioned at once.
func WithParallelism(n int) Option { return func(e *Executor) { e.parallelism = n } }

// WithBackoff replaces DefaultBackoff.
func WithBackoff(b wait.Backoff) Option { return func(e *Executor) { e.backoff = b } }

// NewExecutor returns an Executor provisioning through p. Independent
// resources are provisioned concurrently when the ParallelProvisioning
// feature is enabled.
func NewExecutor(p Provisioner, opts ...Option) *Executor {
	e := &Executor{
		provisioner: p,
		log:         logr.Discard(),
		parallelism: 1,
		backoff:     DefaultBackoff,
	}
	if features.FeatureGate.Enabled(features.ParallelProvisioning) {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	return e
}

// run holds the state of one Apply or Destroy call.
type run struct {
	e *Executor
	g *graph.DeploymentGraph

	mu        sync.Mutex
	attrs     map[string]map[string]string
	states    map[string]State
	durations map[string]time.Duration
}

func (e *Executor) newRun(g *graph.DeploymentGraph, attrs map[string]map[string]string) *run {
	if attrs == nil {
		attrs = map[string]map[string]string{}
	}
	return &run{
		e:         e,
		g:         g,
		attrs:     attrs,
		states:    map[string]State{},
		durations: map[string]time.Duration{},
	}
}

func (r *run) lookup(id, attr string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[id][attr]
	return v, ok
}

func (r *run) record(id string, state State, attrs map[string]string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = state
	r.durations[id] = elapsed
	if attrs != nil {
		r.attrs[id] = attrs
	}
}

// resource builds the Resource for node with its tokens substituted.
func (r *run) resource(node *graph.Node) (*Resource, error) {
	config, err := graph.SubstituteTokens(node.Config, r.lookup)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	env, err := substituteStrings(node.Environment, r.lookup)
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	secretRefs, err := substituteStrings(node.Secrets, r.lookup)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	grants := make([]graph.PolicyGrant, len(node.Grants))
	for i, g := range node.Grants {
		g.Actions = append([]string(nil), g.Actions...)
		grants[i] = g
	}
	cfg, _ := config.(map[string]any)
	return &Resource{
		DeploymentID: r.g.ID,
		ID:           node.ID,
		Kind:         node.Kind,
		Config:       cfg,
		Environment:  env,
		Secrets:      secretRefs,
		Grants:       grants,
	}, nil
}

func substituteStrings(m map[string]string, lookup graph.TokenLookup) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, err := graph.SubstituteTokens(v, lookup)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = s.(string)
	}
	return out, nil
}

// Apply creates every node of g in dependency order. The returned error
// joins the failures of every node; the Result is returned either way.
func (e *Executor) Apply(ctx context.Context, g *graph.DeploymentGraph) (*Result, error) {
	d, err := g.DAG()
	if err != nil {
		return nil, err
	}
	r := e.newRun(g, nil)
	errs := walker.Walk(ctx, d, func(ctx context.Context, id string) error {
		return r.create(ctx, id)
	}, walker.Options{Parallelism: e.parallelism})

	result := r.result(errs)
	result.Outputs = map[string]string{}
	for name, v := range g.Outputs {
		s, err := graph.SubstituteTokens(v, r.lookup)
		if err != nil {
			e.log.V(1).Info("output not available", "output", name, "reason", err.Error())
			continue
		}
		result.Outputs[name] = s.(string)
	}
	return result, result.Err()
}

func (r *run) create(ctx context.Context, id string) error {
	node, _ := r.g.Node(id)
	log := r.e.log.WithValues("id", id, "kind", node.Kind)

	res, err := r.resource(node)
	if err != nil {
		return err
	}
	start := time.Now()
	var attrs map[string]string
	err = r.e.retry(ctx, log, func(ctx context.Context) error {
		var err error
		attrs, err = r.e.provisioner.Create(ctx, res)
		return err
	})
	elapsed := time.Since(start)
	metrics.RecordOperation(string(node.Kind), "create", outcome(err), elapsed.Seconds())
	if err != nil {
		log.Error(err, "create failed")
		return err
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	r.record(id, StateCreated, attrs, elapsed)
	log.Info("created resource", "duration", elapsed.Round(time.Millisecond).String())
	return nil
}

// Destroy deletes the nodes of g recorded in state, dependents first.
// Retain nodes are left in place together with the network resources that
// enclose them. Every other node is deleted.
func (e *Executor) Destroy(ctx context.Context, g *graph.DeploymentGraph, state map[string]map[string]string) (*Result, error) {
	d, err := g.DAG()
	if err != nil {
		return nil, err
	}
	kept := retained(g)
	r := e.newRun(g, maps.Clone(state))
	errs := walker.Walk(ctx, d, func(ctx context.Context, id string) error {
		if kept.Has(id) {
			r.record(id, StateRetained, nil, 0)
			e.log.V(1).Info("retaining resource", "id", id)
			return nil
		}
		return r.delete(ctx, id)
	}, walker.Options{Parallelism: e.parallelism, Reverse: true})

	result := r.result(errs)
	return result, result.Err()
}

func (r *run) delete(ctx context.Context, id string) error {
	node, _ := r.g.Node(id)
	log := r.e.log.WithValues("id", id, "kind", node.Kind)

	r.mu.Lock()
	attrs, ok := r.attrs[id]
	r.mu.Unlock()
	if !ok {
		r.record(id, StateAbsent, nil, 0)
		log.V(1).Info("nothing to delete")
		return nil
	}
	res, err := r.resource(node)
	if err != nil {
		// Configs of resources whose dependencies are gone cannot be fully
		// substituted. Delete only needs the recorded attributes.
		log.V(1).Info("deleting with unresolved config", "reason", err.Error())
		res = &Resource{DeploymentID: r.g.ID, ID: id, Kind: node.Kind, Config: node.Config}
	}
	res.Attributes = attrs

	start := time.Now()
	err = r.e.retry(ctx, log, func(ctx context.Context) error {
		return r.e.provisioner.Delete(ctx, res)
	})
	elapsed := time.Since(start)
	metrics.RecordOperation(string(node.Kind), "delete", outcome(err), elapsed.Seconds())
	if err != nil {
		log.Error(err, "delete failed")
		return err
	}
	r.record(id, StateDeleted, nil, elapsed)
	log.Info("deleted resource", "duration", elapsed.Round(time.Millisecond).String())
	return nil
}

// retry runs op until it succeeds, fails with a non-retriable error or the
// backoff is exhausted.
func (e *Executor) retry(ctx context.Context, log logr.Logger, op func(context.Context) error) error {
	var last error
	err := wait.ExponentialBackoffWithContext(ctx, e.backoff, func(ctx context.Context) (bool, error) {
		last = op(ctx)
		switch {
		case last == nil:
			return true, nil
		case graph.IsRetriable(last):
			log.V(1).Info("retrying", "reason", last.Error())
			return false, nil
		default:
			return false, last
		}
	})
	if err != nil && last != nil {
		return last
	}
	return err
}

func (r *run) result(errs map[string]error) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := &Result{}
	for _, id := range r.g.Order() {
		n := &NodeResult{ID: id, State: r.states[id], Duration: r.durations[id]}
		if r.states[id] == StateCreated {
			n.Attributes = r.attrs[id]
		}
		if err, ok := errs[id]; ok {
			if errors.Is(err, walker.ErrSkipped) {
				n.State = StateSkipped
			} else {
				n.State = StateFailed
				n.err = err
				n.Error = err.Error()
			}
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out
}

// retained returns the Retain nodes and the enclosing resources they are
// placed in, directly or not. Value references such as a CORS origin or a
// password do not keep a Destroy node alive.
func retained(g *graph.DeploymentGraph) sets.Set[string] {
	kept := sets.New[string]()
	var keep func(id string)
	keep = func(id string) {
		if kept.Has(id) {
			return
		}
		kept.Insert(id)
		node, _ := g.Node(id)
		for _, dep := range node.Dependencies {
			if d, ok := g.Node(dep); ok && graph.Encloses(d.Kind) {
				keep(dep)
			}
		}
	}
	for _, n := range g.Nodes {
		if n.Lifecycle == graph.LifecycleRetain {
			keep(n.ID)
		}
	}
	return kept
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

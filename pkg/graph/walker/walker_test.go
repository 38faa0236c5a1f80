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

package walker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph/dag"
)

// buildDAG adds nodes in order and edges written as "dep->dependent".
func buildDAG(t *testing.T, nodes string, edges ...string) *dag.DirectedAcyclicGraph[string] {
	t.Helper()
	d := dag.NewDirectedAcyclicGraph[string]()
	for i, n := range strings.Split(nodes, ",") {
		require.NoError(t, d.AddVertex(n, i))
	}
	for _, e := range edges {
		tokens := strings.SplitN(e, "->", 2)
		require.NoError(t, d.AddDependencies(tokens[1], []string{tokens[0]}))
	}
	return d
}

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

func (r *recorder) index(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestWalk_RespectsDependencies(t *testing.T) {
	grid := []struct {
		name  string
		nodes string
		edges []string
	}{
		{name: "chain", nodes: "suffix,bucket,service", edges: []string{"suffix->bucket", "bucket->service"}},
		{name: "diamond", nodes: "network,database,cluster,service", edges: []string{
			"network->database", "network->cluster", "database->service", "cluster->service",
		}},
		{name: "independent subtrees", nodes: "suffix,bucket,network,database", edges: []string{
			"suffix->bucket", "network->database",
		}},
	}

	for _, g := range grid {
		for _, parallelism := range []int{1, 4} {
			t.Run(g.name, func(t *testing.T) {
				d := buildDAG(t, g.nodes, g.edges...)
				rec := &recorder{}

				errs := Walk(context.Background(), d, func(_ context.Context, id string) error {
					rec.record(id)
					return nil
				}, Options{Parallelism: parallelism})

				assert.Empty(t, errs)
				require.Len(t, rec.order, len(d.Vertices))
				for id, v := range d.Vertices {
					for dep := range v.DependsOn {
						assert.Less(t, rec.index(dep), rec.index(id), "%s must run before %s", dep, id)
					}
				}
			})
		}
	}
}

func TestWalk_SequentialFollowsDeclarationOrder(t *testing.T) {
	d := buildDAG(t, "A,B,C,D", "D->C")
	rec := &recorder{}

	errs := Walk(context.Background(), d, func(_ context.Context, id string) error {
		rec.record(id)
		return nil
	}, Options{Parallelism: 1})

	assert.Empty(t, errs)
	assert.Equal(t, []string{"A", "B", "D", "C"}, rec.order)
}

func TestWalk_ParallelExecution(t *testing.T) {
	d := buildDAG(t, "attachment,image,service", "attachment->service", "image->service")

	var mu sync.Mutex
	running := 0
	overlapped := false
	rec := &recorder{}

	errs := Walk(context.Background(), d, func(_ context.Context, id string) error {
		mu.Lock()
		running++
		if running > 1 {
			overlapped = true
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		rec.record(id)
		return nil
	}, Options{Parallelism: 2})

	assert.Empty(t, errs)
	assert.True(t, overlapped, "expected the two buckets to run concurrently")
	assert.Equal(t, "service", rec.order[2])
}

func TestWalk_FailureSkipsDependentsOnly(t *testing.T) {
	d := buildDAG(t, "network,database,service,bucket", "network->database", "database->service")
	boom := errors.New("boom")
	rec := &recorder{}

	errs := Walk(context.Background(), d, func(_ context.Context, id string) error {
		rec.record(id)
		if id == "database" {
			return boom
		}
		return nil
	}, Options{})

	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs["database"], boom)
	assert.ErrorIs(t, errs["service"], ErrSkipped)
	assert.Equal(t, -1, rec.index("service"))
	assert.NotEqual(t, -1, rec.index("bucket"), "independent subtree should still run")
}

func TestWalk_StopOnError(t *testing.T) {
	d := buildDAG(t, "A,B,C", "A->B", "B->C")
	boom := errors.New("boom")

	errs := Walk(context.Background(), d, func(_ context.Context, id string) error {
		if id == "A" {
			return boom
		}
		return nil
	}, Options{StopOnError: true})

	assert.ErrorIs(t, errs["A"], boom)
	assert.ErrorIs(t, errs["B"], ErrSkipped)
	assert.ErrorIs(t, errs["C"], ErrSkipped)
}

func TestWalk_EmptyGraph(t *testing.T) {
	d := dag.NewDirectedAcyclicGraph[string]()
	errs := Walk(context.Background(), d, func(context.Context, string) error {
		t.Fatal("no vertex should run")
		return nil
	}, Options{})
	assert.Empty(t, errs)
}

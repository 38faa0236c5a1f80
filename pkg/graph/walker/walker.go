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
	"cmp"
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph/dag"
)

// ErrSkipped is recorded for vertices that never ran, either because one of
// their dependencies failed or because the walk was stopped early.
var ErrSkipped = errors.New("skipped")

// VertexFunc is called once for each vertex of the graph.
type VertexFunc[T cmp.Ordered] func(ctx context.Context, vertexID T) error

// Options configures a walk.
type Options struct {
	// Parallelism caps the number of vertices processed at once.
	// If <= 0, defaults to runtime.NumCPU().
	Parallelism int

	// StopOnError cancels the walk at the first failure.
	// Otherwise independent branches keep going.
	StopOnError bool

	// Reverse processes dependents before their dependencies. Used for
	// teardown.
	Reverse bool
}

// Walk calls fn for every vertex of d, never before all the vertices it waits
// on have completed successfully. The returned map holds an entry for every
// vertex that failed or was skipped; it is empty when the whole graph ran.
func Walk[T cmp.Ordered](ctx context.Context, d *dag.DirectedAcyclicGraph[T], fn VertexFunc[T], opts Options) map[T]error {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	errs := make(map[T]error)
	if len(d.Vertices) == 0 {
		return errs
	}

	// waiting[id] counts what id still waits on. unblocks[id] lists what may
	// start once id is done.
	waiting := make(map[T]int, len(d.Vertices))
	unblocks := make(map[T][]T, len(d.Vertices))
	for id, v := range d.Vertices {
		for dep := range v.DependsOn {
			if opts.Reverse {
				waiting[dep]++
				unblocks[id] = append(unblocks[id], dep)
			} else {
				waiting[id]++
				unblocks[dep] = append(unblocks[dep], id)
			}
		}
	}
	for id := range unblocks {
		slices.SortFunc(unblocks[id], func(a, b T) int {
			return cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order)
		})
	}

	var (
		mu       sync.Mutex
		settled  = make(map[T]bool, len(d.Vertices))
		ready    = make(chan T, len(d.Vertices))
		finished = make(chan struct{})
	)

	// settle marks id as done; callers hold mu.
	settle := func(id T) {
		settled[id] = true
		if len(settled) == len(d.Vertices) {
			close(finished)
		}
	}

	var skip func(id T)
	skip = func(id T) {
		for _, next := range unblocks[id] {
			if settled[next] {
				continue
			}
			errs[next] = ErrSkipped
			settle(next)
			skip(next)
		}
	}

	ids := make([]T, 0, len(d.Vertices))
	for id := range d.Vertices {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b T) int {
		return cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order)
	})
	for _, id := range ids {
		if waiting[id] == 0 {
			ready <- id
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(opts.Parallelism))

dispatch:
	for {
		select {
		case <-finished:
			break dispatch
		case <-gctx.Done():
			break dispatch
		case id := <-ready:
			if err := sem.Acquire(gctx, 1); err != nil {
				break dispatch
			}
			g.Go(func() error {
				defer sem.Release(1)
				err := fn(gctx, id)

				mu.Lock()
				defer mu.Unlock()
				if settled[id] {
					return nil
				}
				settle(id)
				if err != nil {
					errs[id] = err
					skip(id)
					if opts.StopOnError {
						return err
					}
					return nil
				}
				for _, next := range unblocks[id] {
					waiting[next]--
					if waiting[next] == 0 && !settled[next] {
						ready <- next
					}
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		if !settled[id] {
			errs[id] = ErrSkipped
		}
	}
	return errs
}

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

package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Vertex is a node of the graph.
type Vertex[T cmp.Ordered] struct {
	// ID uniquely identifies the vertex.
	ID T
	// Order is the declaration order of the vertex. It breaks ties between
	// vertices that become ready at the same time, which keeps sorting stable.
	Order int
	// DependsOn holds the IDs of the vertices this vertex depends on.
	DependsOn map[T]struct{}
}

// DirectedAcyclicGraph is a graph that refuses to hold cycles.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	Vertices map[T]*Vertex[T]
}

// NewDirectedAcyclicGraph creates an empty graph.
func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{
		Vertices: make(map[T]*Vertex[T]),
	}
}

// CycleError is returned when an operation would create, or found, a cycle.
type CycleError[T cmp.Ordered] struct {
	// Cycle is the path of the cycle. The first element is repeated at the end.
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	parts := make([]string, 0, len(e.Cycle))
	for _, v := range e.Cycle {
		parts = append(parts, fmt.Sprint(v))
	}
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(parts, " -> "))
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError[T cmp.Ordered](err error) *CycleError[T] {
	var cycleErr *CycleError[T]
	if errors.As(err, &cycleErr) {
		return cycleErr
	}
	return nil
}

// AddVertex adds a vertex. Adding the same ID twice is an error.
func (d *DirectedAcyclicGraph[T]) AddVertex(id T, order int) error {
	if _, exists := d.Vertices[id]; exists {
		return fmt.Errorf("vertex %v already exists", id)
	}
	d.Vertices[id] = &Vertex[T]{
		ID:        id,
		Order:     order,
		DependsOn: make(map[T]struct{}),
	}
	return nil
}

// AddDependencies records that id depends on every vertex in deps. The edges
// are rejected when a vertex is missing, when id references itself, or when
// the new edge would close a cycle.
func (d *DirectedAcyclicGraph[T]) AddDependencies(id T, deps []T) error {
	vertex, ok := d.Vertices[id]
	if !ok {
		return fmt.Errorf("vertex %v does not exist", id)
	}
	for _, dep := range deps {
		if dep == id {
			return fmt.Errorf("vertex %v cannot depend on itself", id)
		}
		if _, ok := d.Vertices[dep]; !ok {
			return fmt.Errorf("vertex %v depends on %v, which does not exist", id, dep)
		}
		// dep reaching id means the new edge id -> dep closes a loop.
		if path := d.path(dep, id); path != nil {
			return &CycleError[T]{Cycle: append([]T{id}, path...)}
		}
		vertex.DependsOn[dep] = struct{}{}
	}
	return nil
}

// DependentsOf returns the IDs of the vertices that directly depend on id,
// sorted by declaration order.
func (d *DirectedAcyclicGraph[T]) DependentsOf(id T) []T {
	var out []T
	for _, v := range d.sortedVertices() {
		if _, ok := v.DependsOn[id]; ok {
			out = append(out, v.ID)
		}
	}
	return out
}

// path returns a dependency path from -> ... -> to, or nil.
func (d *DirectedAcyclicGraph[T]) path(from, to T) []T {
	visited := make(map[T]bool)
	var walk func(cur T) []T
	walk = func(cur T) []T {
		if cur == to {
			return []T{cur}
		}
		if visited[cur] {
			return nil
		}
		visited[cur] = true
		for _, next := range sortedKeys(d.Vertices[cur].DependsOn) {
			if rest := walk(next); rest != nil {
				return append([]T{cur}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

// hasCycle reports whether the graph holds a cycle and, if so, its path.
func (d *DirectedAcyclicGraph[T]) hasCycle() (bool, []T) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[T]int, len(d.Vertices))
	var stack []T

	var visit func(id T) []T
	visit = func(id T) []T {
		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range sortedKeys(d.Vertices[id].DependsOn) {
			switch state[dep] {
			case visiting:
				start := slices.Index(stack, dep)
				cycle := slices.Clone(stack[start:])
				return append(cycle, dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, v := range d.sortedVertices() {
		if state[v.ID] == unvisited {
			if cycle := visit(v.ID); cycle != nil {
				return true, cycle
			}
		}
	}
	return false, nil
}

// TopologicalSort returns the vertices so that each one comes after all of its
// dependencies. Vertices are taken in declaration order, repeatedly: a vertex
// is placed as soon as a pass reaches it with every dependency placed, which
// may be earlier in the same pass. Declaration order is otherwise kept.
func (d *DirectedAcyclicGraph[T]) TopologicalSort() ([]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	remaining := d.sortedVertices()
	placed := make(map[T]bool, len(remaining))
	order := make([]T, 0, len(remaining))
	for len(remaining) > 0 {
		var deferred []*Vertex[T]
		for _, v := range remaining {
			if allPlaced(v.DependsOn, placed) {
				placed[v.ID] = true
				order = append(order, v.ID)
			} else {
				deferred = append(deferred, v)
			}
		}
		if len(deferred) == len(remaining) {
			return nil, fmt.Errorf("no progress sorting %d vertices", len(remaining))
		}
		remaining = deferred
	}
	return order, nil
}

// TopologicalSortLevels groups vertices into levels. Every vertex of a level
// depends only on vertices of earlier levels, so the members of one level can
// be processed concurrently. Declaration order is preserved within a level.
func (d *DirectedAcyclicGraph[T]) TopologicalSortLevels() ([][]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	remaining := d.sortedVertices()
	placed := make(map[T]bool, len(remaining))
	var levels [][]T

	for len(remaining) > 0 {
		var level []T
		var next []*Vertex[T]
		for _, v := range remaining {
			if allPlaced(v.DependsOn, placed) {
				level = append(level, v.ID)
			} else {
				next = append(next, v)
			}
		}
		if len(level) == 0 {
			// hasCycle already ruled this out.
			return nil, fmt.Errorf("no progress sorting %d vertices", len(remaining))
		}
		for _, id := range level {
			placed[id] = true
		}
		levels = append(levels, level)
		remaining = next
	}
	return levels, nil
}

func allPlaced[T cmp.Ordered](deps map[T]struct{}, placed map[T]bool) bool {
	for dep := range deps {
		if !placed[dep] {
			return false
		}
	}
	return true
}

func (d *DirectedAcyclicGraph[T]) sortedVertices() []*Vertex[T] {
	out := make([]*Vertex[T], 0, len(d.Vertices))
	for _, v := range d.Vertices {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *Vertex[T]) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func sortedKeys[T cmp.Ordered](m map[T]struct{}) []T {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

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
	"errors"
	"fmt"
	"slices"
	"time"
)

// State is the outcome of one node.
type State string

const (
	StateCreated  State = "Created"
	StateDeleted  State = "Deleted"
	StateRetained State = "Retained"
	StateFailed   State = "Failed"
	// StateSkipped nodes never ran because a node they wait on failed.
	StateSkipped State = "Skipped"
)

// NodeResult reports what happened to a single node.
type NodeResult struct {
	ID         string            `json:"id"`
	State      State             `json:"state"`
	Error      string            `json:"error,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`

	err error
}

// Result is the outcome of Apply or Destroy. Nodes are in graph order.
type Result struct {
	Nodes   []*NodeResult     `json:"nodes"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

// Node returns the result of the node with the given ID.
func (r *Result) Node(id string) (*NodeResult, bool) {
	i := slices.IndexFunc(r.Nodes, func(n *NodeResult) bool { return n.ID == id })
	if i < 0 {
		return nil, false
	}
	return r.Nodes[i], true
}

// Failed returns the IDs of the nodes that failed, in graph order.
func (r *Result) Failed() []string {
	var ids []string
	for _, n := range r.Nodes {
		if n.State == StateFailed {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// State returns the attributes of every created node, keyed by node ID.
// Destroy takes it back.
func (r *Result) State() map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, n := range r.Nodes {
		if n.State == StateCreated {
			out[n.ID] = n.Attributes
		}
	}
	return out
}

// Err joins the errors of every failed node, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, n := range r.Nodes {
		if n.State == StateFailed {
			errs = append(errs, fmt.Errorf("%s: %w", n.ID, n.err))
		}
	}
	return errors.Join(errs...)
}

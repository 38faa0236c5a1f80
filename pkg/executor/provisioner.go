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

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// Resource is one node handed to a Provisioner, with every attribute token
// already substituted.
type Resource struct {
	// DeploymentID identifies the graph the resource belongs to.
	DeploymentID string
	ID           string
	Kind         graph.Kind
	Config       map[string]any
	Environment  map[string]string
	Secrets      map[string]string
	Grants       []graph.PolicyGrant

	// Attributes are the provider attributes recorded when the resource was
	// created. Only set on Delete.
	Attributes map[string]string
}

// Provisioner creates and deletes single resources.
type Provisioner interface {
	// Create provisions r and returns its provider-assigned attributes.
	Create(ctx context.Context, r *Resource) (map[string]string, error)
	// Delete removes r. Deleting a resource that no longer exists succeeds.
	Delete(ctx context.Context, r *Resource) error
}

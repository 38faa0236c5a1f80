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

// Package executor provisions a composed DeploymentGraph against a cloud
// provider.
//
// Apply walks the graph in dependency order. Before a node is created its
// attribute tokens are replaced with the attributes returned for the nodes
// it depends on. Destroy walks in reverse order and leaves Retain nodes, and
// everything they depend on, in place.
//
// A failing node skips its dependents and nothing else; independent
// subtrees keep going. The Result reports what happened to every node so a
// caller can retry one subtree without touching the rest.
package executor

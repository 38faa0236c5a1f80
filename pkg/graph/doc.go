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

// Package graph composes resource declarations into a DeploymentGraph.
//
// The Composer runs a fixed pipeline:
//
//	Validate -> Link -> Resolve -> Assemble
//
//   - Validate: checks IDs, kinds, parameters and the structural references
//     of workloads (bucket bindings, scanner), and normalizes config values.
//
//   - Link: extracts ${...} expressions from every config, compiles them
//     against the declared resource IDs and the "params" root, and builds the
//     dependency DAG. Cycles are reported with their full path.
//
//   - Resolve: walks the DAG in topological order, sequentially or in
//     parallel. Each node's expressions are evaluated against the values its
//     dependencies produced, the results substituted into its config, and
//     its kind's producer emits the node's generated values. Workloads get
//     their layered environment flattened and their grants derived from the
//     capability table.
//
//   - Assemble: orders the resolved nodes and collects deployment outputs.
//
// Provider-assigned attributes, such as ARNs and DNS names, are not known
// until the executor creates the resource. They are carried through the
// graph as attribute tokens, see AttributeToken.
//
// Error model:
//
//   - TerminalError wraps DuplicateResourceError, CyclicDependencyError,
//     UnresolvedReferenceError and ConfigurationConstraintError. Fix the
//     declaration before retrying.
//   - RetriableError marks transient executor failures.
package graph

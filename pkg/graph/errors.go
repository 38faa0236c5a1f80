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
	"errors"
	"fmt"
	"strings"
)

// TerminalError indicates a problem the operator must fix in the deployment
// declaration. Retrying with the same input fails the same way.
type TerminalError struct {
	Stage string
	Err   error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }

// RetriableError indicates a transient failure, e.g. a throttled provider
// call. The caller should retry after backoff.
type RetriableError struct {
	Stage string
	Err   error
}

func (e *RetriableError) Error() string { return fmt.Sprintf("%s (retriable): %v", e.Stage, e.Err) }
func (e *RetriableError) Unwrap() error { return e.Err }

// IsTerminal reports whether err (or any error in its chain) is terminal.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

// IsRetriable reports whether err (or any error in its chain) is retriable.
func IsRetriable(err error) bool {
	var re *RetriableError
	return errors.As(err, &re)
}

// Retriable wraps err as a RetriableError of stage.
func Retriable(stage string, err error) error { return &RetriableError{Stage: stage, Err: err} }

func terminal(stage string, err error) error { return &TerminalError{Stage: stage, Err: err} }

// DuplicateResourceError is returned when two specs share a logical ID.
type DuplicateResourceError struct {
	ID string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource %q", e.ID)
}

// CyclicDependencyError is returned when the dependency relation has a cycle.
// Cycle starts and ends with the same ID.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}

// UnresolvedReferenceError is returned when a resource references a name or
// attribute that no resource, or no parameter, provides.
type UnresolvedReferenceError struct {
	ID        string
	Reference string
	Reason    string
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("resource %q: unresolved reference %q", e.ID, e.Reference)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConfigurationConstraintError is returned when a declaration is well formed
// but breaks a rule of the topology, e.g. a grant bound to an undeclared
// bucket or a sensitive value routed into a plain environment variable.
type ConfigurationConstraintError struct {
	IDs    []string
	Reason string
}

func (e *ConfigurationConstraintError) Error() string {
	return fmt.Sprintf("resource %s: %s", quoteAll(e.IDs), e.Reason)
}

func constraintf(ids []string, format string, a ...any) error {
	return &ConfigurationConstraintError{IDs: ids, Reason: fmt.Sprintf(format, a...)}
}

func quoteAll(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return strings.Join(quoted, ", ")
}

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

package cel

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
)

// UndeclaredIdentifierError is returned by Compile when an expression
// references a name the environment does not declare.
type UndeclaredIdentifierError struct {
	Expression string
	Names      []string
}

func (e *UndeclaredIdentifierError) Error() string {
	return fmt.Sprintf("expression %q references undeclared %v", e.Expression, e.Names)
}

// Expression wraps a CEL expression with its compiled program and metadata.
// It is immutable after Compile and safe for concurrent Eval calls.
type Expression struct {
	// Original is the raw expression, without the ${ } delimiters.
	Original string

	// References lists the top-level identifiers the expression reads,
	// sorted. Eval needs a value for each of them.
	References []string

	// Selections maps each top-level identifier to the fields selected
	// directly on it, e.g. "bucket.name" yields {"bucket": ["name"]}.
	// Index access such as bucket["name"] is not recorded.
	Selections map[string][]string

	// Unselected lists the top-level identifiers read other than through a
	// field selection, e.g. bucket["name"] or bucket on its own.
	Unselected []string

	// Program is the compiled program.
	Program cel.Program
}

// NewUncompiled creates an Expression with only Original set.
func NewUncompiled(expr string) *Expression {
	return &Expression{Original: expr}
}

// Compile parses, checks and plans expr against env.
func Compile(env *cel.Env, expr string) (*Expression, error) {
	start := time.Now()
	compiled, err := compile(env, expr)
	Metrics.ObserveCompilation(time.Since(start).Seconds(), err)
	return compiled, err
}

func compile(env *cel.Env, expr string) (*Expression, error) {
	parsed, iss := env.Parse(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, iss.Err())
	}

	root := ast.NavigateAST(parsed.NativeRep())
	bound := boundVariables(root)
	if unknown := undeclared(env, root, bound); len(unknown) > 0 {
		return nil, &UndeclaredIdentifierError{Expression: expr, Names: unknown}
	}

	checked, iss := env.Check(parsed)
	if iss.Err() != nil {
		return nil, fmt.Errorf("check %q: %w", expr, iss.Err())
	}

	program, err := env.Program(checked, WithCostLimit(PerCallLimit)...)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	return &Expression{
		Original:   expr,
		References: references(checked, bound),
		Selections: selections(root, bound),
		Unselected: unselected(env, root, bound),
		Program:    program,
	}, nil
}

// Eval evaluates the compiled expression and returns a Go native value.
func (e *Expression) Eval(vars map[string]any) (any, error) {
	if e.Program == nil {
		return nil, errors.New("expression " + e.Original + " is not compiled")
	}
	start := time.Now()
	out, _, err := e.Program.Eval(vars)
	Metrics.ObserveEvaluation(time.Since(start).Seconds(), err)
	if IsCostLimitExceeded(err) {
		return nil, fmt.Errorf("eval %q: %w", e.Original, ErrCostLimitExceeded)
	}
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", e.Original, err)
	}

	native, err := GoNativeType(out)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", e.Original, err)
	}
	return native, nil
}

// references returns the variables a checked expression resolved to.
// Comprehension variables are local to the expression and left out.
func references(checked *cel.Ast, bound map[string]bool) []string {
	var names []string
	for _, ref := range checked.NativeRep().ReferenceMap() {
		if ref.Name != "" && len(ref.OverloadIDs) == 0 && !bound[ref.Name] {
			names = append(names, ref.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func boundVariables(root ast.NavigableExpr) map[string]bool {
	bound := map[string]bool{}
	for _, comp := range ast.MatchDescendants(root, ast.KindMatcher(ast.ComprehensionKind)) {
		c := comp.AsComprehension()
		bound[c.IterVar()] = true
		if v2 := c.IterVar2(); v2 != "" {
			bound[v2] = true
		}
		bound[c.AccuVar()] = true
	}
	return bound
}

func selections(root ast.NavigableExpr, bound map[string]bool) map[string][]string {
	out := map[string][]string{}
	for _, sel := range ast.MatchDescendants(root, ast.KindMatcher(ast.SelectKind)) {
		s := sel.AsSelect()
		operand := s.Operand()
		if operand.Kind() != ast.IdentKind || bound[operand.AsIdent()] {
			continue
		}
		name := operand.AsIdent()
		out[name] = append(out[name], s.FieldName())
	}
	for name, fields := range out {
		slices.Sort(fields)
		out[name] = slices.Compact(fields)
	}
	return out
}

func unselected(env *cel.Env, root ast.NavigableExpr, bound map[string]bool) []string {
	var names []string
	for _, ident := range ast.MatchDescendants(root, ast.KindMatcher(ast.IdentKind)) {
		name := ident.AsIdent()
		if bound[name] || isNamespace(env, ident) {
			continue
		}
		if parent, ok := ident.Parent(); ok && parent.Kind() == ast.SelectKind &&
			parent.AsSelect().Operand().ID() == ident.ID() {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// undeclared lists the free identifiers of a parsed expression that env
// cannot resolve. Comprehension variables are bound and never reported.
func undeclared(env *cel.Env, root ast.NavigableExpr, bound map[string]bool) []string {
	var names []string
	for _, ident := range ast.MatchDescendants(root, ast.KindMatcher(ast.IdentKind)) {
		name := ident.AsIdent()
		if bound[name] || isNamespace(env, ident) {
			continue
		}
		if _, isType := env.CELTypeProvider().FindIdent(name); isType {
			continue
		}
		if isDeclared(env, name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// isNamespace reports whether ident qualifies a function call, like
// optional in optional.of(x), rather than naming a value.
func isNamespace(env *cel.Env, ident ast.NavigableExpr) bool {
	parent, ok := ident.Parent()
	if !ok || parent.Kind() != ast.CallKind {
		return false
	}
	call := parent.AsCall()
	if !call.IsMemberFunction() || call.Target().ID() != ident.ID() {
		return false
	}
	return env.HasFunction(ident.AsIdent() + "." + call.FunctionName())
}

func isDeclared(env *cel.Env, name string) bool {
	for _, v := range env.Variables() {
		if v.Name() == name {
			return true
		}
	}
	return false
}

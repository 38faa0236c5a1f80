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
	"slices"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// EnvOption is a function that modifies the environment options.
type EnvOption func(*envOptions)

type envOptions struct {
	// identifiers are declared as CEL variables of type 'dyn'. In the
	// composer these are resource IDs plus the reserved "params" root.
	identifiers []string
	// customDeclarations will be added to the CEL environment.
	customDeclarations []cel.EnvOption
}

// WithIdentifiers declares ids as top-level variables.
func WithIdentifiers(ids ...string) EnvOption {
	return func(opts *envOptions) {
		opts.identifiers = append(opts.identifiers, ids...)
	}
}

// WithCustomDeclarations adds custom declarations to the CEL environment.
func WithCustomDeclarations(declarations ...cel.EnvOption) EnvOption {
	return func(opts *envOptions) {
		opts.customDeclarations = append(opts.customDeclarations, declarations...)
	}
}

// DefaultEnvironment returns the environment used to compile references
// between resources. Every identifier is dynamically typed: the shape of a
// resource's attributes is only known once its producer has run.
func DefaultEnvironment(options ...EnvOption) (*cel.Env, error) {
	declarations := []cel.EnvOption{
		ext.Lists(),
		ext.Strings(),
		cel.OptionalTypes(),
		ext.Encoders(),
	}

	opts := &envOptions{}
	for _, opt := range options {
		opt(opts)
	}
	declarations = append(declarations, opts.customDeclarations...)

	ids := slices.Clone(opts.identifiers)
	slices.Sort(ids)
	for _, name := range slices.Compact(ids) {
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}

	return cel.NewEnv(declarations...)
}

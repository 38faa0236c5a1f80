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
	"runtime"
	"time"

	"github.com/go-logr/logr"

	"github.com/opengovsg/formsg-on-cdk/pkg/features"
	"github.com/opengovsg/formsg-on-cdk/pkg/metrics"
	"github.com/opengovsg/formsg-on-cdk/pkg/secrets"
)

// Stage names, as reported in TerminalError.Stage and in metrics.
const (
	StageValidate = "validate"
	StageLink     = "link"
	StageResolve  = "resolve"
	StageAssemble = "assemble"
)

// Input is what Compose received.
type Input struct {
	Specs      []ResourceSpec
	Parameters map[string]Parameter
	// Values holds supplied parameter values. They override defaults.
	Values map[string]string
}

// Validator checks the declaration for rules that need no expression
// analysis and normalizes it for the later stages.
type Validator interface {
	Validate(*Input) (*ValidatedDeployment, error)
}

// Linker compiles the expressions of every spec and builds the dependency
// DAG.
type Linker interface {
	Link(*ValidatedDeployment) (*LinkedDeployment, error)
}

// Resolver evaluates the linked specs in dependency order, producing each
// node's generated values.
type Resolver interface {
	Resolve(*LinkedDeployment) (*ResolvedDeployment, error)
}

// Assembler builds the final DeploymentGraph.
type Assembler interface {
	Assemble(*ResolvedDeployment) (*DeploymentGraph, error)
}

// Composer turns resource specs into a DeploymentGraph.
//
//	Validate -> Link -> Resolve -> Assemble
//
// Each stage can be replaced through options.
type Composer struct {
	validator Validator
	linker    Linker
	resolver  Resolver
	assembler Assembler

	log         logr.Logger
	profile     Profile
	secrets     secrets.Generator
	parallelism int
}

// Option configures a Composer.
type Option func(*Composer)

// WithValidator overrides the validator stage.
func WithValidator(v Validator) Option { return func(c *Composer) { c.validator = v } }

// WithLinker overrides the linker stage.
func WithLinker(l Linker) Option { return func(c *Composer) { c.linker = l } }

// WithResolver overrides the resolver stage.
func WithResolver(r Resolver) Option { return func(c *Composer) { c.resolver = r } }

// WithAssembler overrides the assembler stage.
func WithAssembler(a Assembler) Option { return func(c *Composer) { c.assembler = a } }

// WithLogger sets the logger. Generated values are never logged.
func WithLogger(log logr.Logger) Option { return func(c *Composer) { c.log = log } }

// WithProfile selects lifecycle defaults. Defaults to ProfileDev.
func WithProfile(p Profile) Option { return func(c *Composer) { c.profile = p } }

// WithSecretGenerator sets the generator for secrets without a configured
// value. Defaults to a crypto/rand backed generator.
func WithSecretGenerator(g secrets.Generator) Option { return func(c *Composer) { c.secrets = g } }

// WithParallelism resolves up to n independent nodes at once. Values above
// one take precedence over the ParallelGraphResolution feature gate.
func WithParallelism(n int) Option { return func(c *Composer) { c.parallelism = n } }

// NewComposer builds a Composer, filling every stage not set by opts with
// the default implementation.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		log:     logr.Discard(),
		profile: ProfileDev,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.secrets == nil {
		c.secrets = secrets.NewGenerator()
	}
	if c.parallelism <= 0 {
		c.parallelism = 1
		if features.FeatureGate.Enabled(features.ParallelGraphResolution) {
			c.parallelism = runtime.GOMAXPROCS(0)
		}
	}

	if c.validator == nil {
		c.validator = newValidator()
	}
	if c.linker == nil {
		c.linker = newLinker()
	}
	if c.resolver == nil {
		c.resolver = newResolver(c.log.WithName("resolver"), c.profile, c.secrets, c.parallelism)
	}
	if c.assembler == nil {
		c.assembler = newAssembler()
	}
	return c
}

// Compose validates, links and resolves specs. It has no side effects: every
// provider-assigned attribute is left as a token for the executor.
// Errors are wrapped in a TerminalError naming the failed stage.
func (c *Composer) Compose(specs []ResourceSpec, params map[string]Parameter, values map[string]string) (*DeploymentGraph, error) {
	start := time.Now()
	g, err := c.compose(&Input{Specs: specs, Parameters: params, Values: values})
	metrics.RecordCompose(time.Since(start).Seconds(), err)
	if err != nil {
		var te *TerminalError
		if errors.As(err, &te) {
			metrics.RecordStageFailure(te.Stage)
		}
		c.log.Error(err, "compose failed")
		return nil, err
	}
	c.log.V(1).Info("composed deployment graph", "id", g.ID, "nodes", len(g.Nodes), "levels", len(g.Levels))
	return g, nil
}

func (c *Composer) compose(in *Input) (*DeploymentGraph, error) {
	validated, err := c.validator.Validate(in)
	if err != nil {
		return nil, err
	}
	linked, err := c.linker.Link(validated)
	if err != nil {
		return nil, err
	}
	resolved, err := c.resolver.Resolve(linked)
	if err != nil {
		return nil, err
	}
	return c.assembler.Assemble(resolved)
}

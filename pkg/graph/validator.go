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
	"fmt"
	"maps"
	"regexp"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// ParamsIdentifier is the expression root for deployment parameters.
const ParamsIdentifier = "params"

var (
	idPattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)

	// reservedWords cannot be resource IDs: they are either the parameter
	// root or keywords of the expression language.
	reservedWords = sets.New(
		ParamsIdentifier,
		"true", "false", "null", "in", "as", "break", "const", "continue",
		"else", "for", "function", "if", "import", "let", "loop", "package",
		"namespace", "return", "var", "void", "while",
	)
)

// ValidatedDeployment is the normalized input of the link stage.
type ValidatedDeployment struct {
	// Specs are deep copies of the input specs, in declaration order, with
	// config values converted to JSON-compatible types.
	Specs      []ResourceSpec
	Parameters map[string]Parameter
	// ParameterValues holds the typed value of every parameter that has a
	// supplied value or a default.
	ParameterValues map[string]any
	// SensitiveValues are the values of sensitive parameters.
	SensitiveValues []string
}

type validator struct{}

func newValidator() *validator { return &validator{} }

func (v *validator) Validate(in *Input) (*ValidatedDeployment, error) {
	out := &ValidatedDeployment{
		Parameters:      map[string]Parameter{},
		ParameterValues: map[string]any{},
	}
	if err := v.validateParameters(in, out); err != nil {
		return nil, terminal(StageValidate, err)
	}

	seen := sets.New[string]()
	outputs := map[string]string{}
	for _, spec := range in.Specs {
		if seen.Has(spec.ID) {
			return nil, terminal(StageValidate, &DuplicateResourceError{ID: spec.ID})
		}
		seen.Insert(spec.ID)

		normalized, err := v.validateSpec(spec)
		if err != nil {
			return nil, terminal(StageValidate, err)
		}
		for _, name := range slices.Sorted(maps.Keys(spec.Outputs)) {
			if owner, taken := outputs[name]; taken {
				return nil, terminal(StageValidate, constraintf([]string{owner, spec.ID}, "output %q is declared twice", name))
			}
			outputs[name] = spec.ID
		}
		out.Specs = append(out.Specs, normalized)
	}

	if err := validateReferences(out.Specs); err != nil {
		return nil, terminal(StageValidate, err)
	}
	return out, nil
}

func (v *validator) validateParameters(in *Input, out *ValidatedDeployment) error {
	for name, p := range in.Parameters {
		if p.Name == "" {
			p.Name = name
		}
		if p.Name != name {
			return constraintf([]string{ParamsIdentifier}, "parameter %q is registered as %q", p.Name, name)
		}
		switch p.Type {
		case ParameterTypeString, ParameterTypeNumber, ParameterTypeSecret:
		case "":
			p.Type = ParameterTypeString
		default:
			return constraintf([]string{ParamsIdentifier}, "parameter %q has unknown type %q", name, p.Type)
		}

		var supplied *string
		if raw, ok := in.Values[name]; ok {
			supplied = &raw
		}
		value, ok, err := p.value(supplied)
		if err != nil {
			return &ConfigurationConstraintError{IDs: []string{ParamsIdentifier}, Reason: err.Error()}
		}
		if ok {
			out.ParameterValues[name] = value
			if p.IsSensitive() {
				if s := fmt.Sprint(value); s != "" {
					out.SensitiveValues = append(out.SensitiveValues, s)
				}
			}
		}
		out.Parameters[name] = p
	}
	for _, name := range slices.Sorted(maps.Keys(in.Values)) {
		if _, ok := in.Parameters[name]; !ok {
			return constraintf([]string{ParamsIdentifier}, "value supplied for undeclared parameter %q", name)
		}
	}
	slices.Sort(out.SensitiveValues)
	return nil
}

func (v *validator) validateSpec(spec ResourceSpec) (ResourceSpec, error) {
	ids := []string{spec.ID}
	if !idPattern.MatchString(spec.ID) {
		return spec, constraintf(ids, "resource IDs must be lowerCamelCase")
	}
	if reservedWords.Has(spec.ID) {
		return spec, constraintf(ids, "resource ID is a reserved word")
	}
	kind, ok := kindRegistry[spec.Kind]
	if !ok {
		return spec, constraintf(ids, "unknown kind %q", spec.Kind)
	}
	switch spec.Lifecycle {
	case "", LifecycleRetain, LifecycleDestroy:
	default:
		return spec, constraintf(ids, "unknown lifecycle %q", spec.Lifecycle)
	}
	for _, name := range slices.Sorted(maps.Keys(spec.Outputs)) {
		if attr := spec.Outputs[name]; !kind.hasAttribute(attr) {
			return spec, &UnresolvedReferenceError{
				ID:        spec.ID,
				Reference: spec.ID + "." + attr,
				Reason:    fmt.Sprintf("output %q names an attribute %s resources do not have", name, spec.Kind),
			}
		}
	}

	config, err := normalize(spec.Config)
	if err != nil {
		return spec, constraintf(ids, "config: %v", err)
	}
	out := spec
	out.Config, _ = config.(map[string]any)
	if out.Config == nil {
		out.Config = map[string]any{}
	}
	out.DependsOn = slices.Clone(spec.DependsOn)
	out.Outputs = maps.Clone(spec.Outputs)
	if kind.principal {
		if err := validatePrincipalShape(out); err != nil {
			return spec, err
		}
	} else {
		for _, key := range principalKeys {
			if _, ok := out.Config[key]; ok {
				return spec, constraintf(ids, "config %q is only valid on service and function resources", key)
			}
		}
	}
	return out, nil
}

// Config keys only workloads may set.
const (
	configEnvironment    = "environment"
	configSecrets        = "secrets"
	configCapability     = "capability"
	configBucketBindings = "bucketBindings"
	configScanner        = "scanner"
)

var principalKeys = []string{configEnvironment, configSecrets, configCapability, configBucketBindings, configScanner}

func validatePrincipalShape(spec ResourceSpec) error {
	ids := []string{spec.ID}
	for _, key := range []string{configEnvironment, configSecrets, configBucketBindings} {
		if _, err := objectField(spec.ID, spec.Config, key); err != nil {
			return err
		}
	}

	capability, hasCapability, err := configString(spec.ID, spec.Config, configCapability)
	if err != nil {
		return err
	}
	bindings, _ := objectField(spec.ID, spec.Config, configBucketBindings)
	if !hasCapability {
		if len(bindings) > 0 {
			return constraintf(ids, "bucket bindings need a capability")
		}
		return nil
	}
	c := Capability(capability)
	if !c.valid() {
		return constraintf(ids, "unknown capability %q", capability)
	}
	for _, role := range slices.Sorted(maps.Keys(bindings)) {
		if !slices.Contains(c.Roles(), BucketRole(role)) {
			return constraintf(ids, "capability %q has no %q bucket role", c, role)
		}
		if _, ok := bindings[role].(string); !ok {
			return constraintf(ids, "bucket binding %q must name a bucket resource", role)
		}
	}
	for _, role := range c.Roles() {
		if _, ok := bindings[string(role)]; !ok {
			return constraintf(ids, "capability %q needs a bucket bound to role %q", c, role)
		}
	}
	return nil
}

// validateReferences checks the structural references of workloads, which
// name resources by ID rather than through expressions.
func validateReferences(specs []ResourceSpec) error {
	kinds := make(map[string]Kind, len(specs))
	for _, s := range specs {
		kinds[s.ID] = s.Kind
	}
	for _, s := range specs {
		if !kindRegistry[s.Kind].principal {
			continue
		}
		bindings, _ := objectField(s.ID, s.Config, configBucketBindings)
		for _, role := range slices.Sorted(maps.Keys(bindings)) {
			target := bindings[role].(string)
			kind, ok := kinds[target]
			if !ok {
				return constraintf([]string{s.ID, target}, "bucket role %q is bound to an undeclared resource", role)
			}
			if kind != KindBucket {
				return constraintf([]string{s.ID, target}, "bucket role %q is bound to a %s, not a bucket", role, kind)
			}
		}

		scanner, ok, err := configString(s.ID, s.Config, configScanner)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		kind, declared := kinds[scanner]
		if !declared {
			return constraintf([]string{s.ID, scanner}, "scanner is not declared")
		}
		if kind != KindFunction && kind != KindService {
			return constraintf([]string{s.ID, scanner}, "scanner must be a function or a service, got %s", kind)
		}
	}
	return nil
}

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
	"strconv"
)

// Kind identifies the type of cloud resource a spec declares.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindSubnet        Kind = "subnet"
	KindSecurityGroup Kind = "securityGroup"
	KindSecret        Kind = "secret"
	KindBucket        Kind = "bucket"
	KindRepository    Kind = "repository"
	KindImageCopy     Kind = "imageCopy"
	KindCluster       Kind = "cluster"
	KindLogGroup      Kind = "logGroup"
	KindLoadBalancer  Kind = "loadBalancer"
	KindService       Kind = "service"
	KindFunction      Kind = "function"
	KindSchedule      Kind = "schedule"
	KindDatabase      Kind = "database"
	KindIngressRule   Kind = "ingressRule"
	KindDistribution  Kind = "distribution"
)

// Lifecycle decides what happens to a resource when its deployment is torn
// down.
type Lifecycle string

const (
	// LifecycleDestroy removes the resource on teardown.
	LifecycleDestroy Lifecycle = "Destroy"
	// LifecycleRetain keeps the resource, and the data it holds, on teardown.
	LifecycleRetain Lifecycle = "Retain"
)

// Profile selects lifecycle defaults for a deployment.
type Profile string

const (
	// ProfileDev destroys every resource on teardown.
	ProfileDev Profile = "dev"
	// ProfileProd retains resources that hold user data.
	ProfileProd Profile = "prod"
)

// DefaultLifecycle returns the lifecycle a resource gets under p when its
// spec does not set one.
func (p Profile) DefaultLifecycle(holdsUserData bool) Lifecycle {
	if p == ProfileProd && holdsUserData {
		return LifecycleRetain
	}
	return LifecycleDestroy
}

// ResourceSpec declares one resource of the deployment. Config values may
// embed ${...} expressions that reference attributes of other resources
// (${bucket.name}) or parameters (${params.email}).
type ResourceSpec struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Config    map[string]any `json:"config,omitempty"`
	DependsOn []string       `json:"dependsOn,omitempty"`

	// Lifecycle overrides the profile default when set.
	Lifecycle Lifecycle `json:"lifecycle,omitempty"`
	// HoldsUserData marks stateful resources. Under the prod profile they
	// default to LifecycleRetain.
	HoldsUserData bool `json:"holdsUserData,omitempty"`

	// Outputs exposes attributes of this resource as deployment outputs,
	// keyed by output name.
	Outputs map[string]string `json:"outputs,omitempty"`
}

// ParameterType is the declared type of a deployment parameter.
type ParameterType string

const (
	ParameterTypeString ParameterType = "string"
	ParameterTypeNumber ParameterType = "number"
	ParameterTypeSecret ParameterType = "secret"
)

// Parameter is a deployment-wide input, referenced as ${params.<name>}.
type Parameter struct {
	Name        string
	Type        ParameterType
	Default     *string
	Sensitive   bool
	Description string
}

// IsSensitive reports whether values of p must be kept out of plain
// environment variables and outputs.
func (p Parameter) IsSensitive() bool {
	return p.Sensitive || p.Type == ParameterTypeSecret
}

// value returns the typed value of p given the supplied raw value, falling
// back to the default. ok is false when neither is set.
func (p Parameter) value(supplied *string) (v any, ok bool, err error) {
	raw := supplied
	if raw == nil {
		raw = p.Default
	}
	if raw == nil {
		return nil, false, nil
	}
	if p.Type != ParameterTypeNumber {
		return *raw, true, nil
	}
	if i, err := strconv.ParseInt(*raw, 10, 64); err == nil {
		return i, true, nil
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parameter %q: %q is not a number", p.Name, *raw)
	}
	return f, true, nil
}

// StringPtr returns a pointer to s, for Parameter defaults.
func StringPtr(s string) *string { return &s }

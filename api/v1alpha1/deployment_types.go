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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ScannerBackendType selects how the virus scanner runs.
type ScannerBackendType string

const (
	// ScannerBackendService runs the scanner as a container service behind an
	// internal load balancer.
	ScannerBackendService ScannerBackendType = "service"
	// ScannerBackendFunction runs the scanner as a function kept warm by a
	// schedule.
	ScannerBackendFunction ScannerBackendType = "function"
)

// DeploymentSpec selects the shape of a deployment.
type DeploymentSpec struct {
	// Profile decides which resources survive teardown. Under prod, buckets
	// and the database are retained.
	// +kubebuilder:validation:Enum=dev;prod
	Profile string `json:"profile,omitempty" validate:"omitempty,oneof=dev prod"`
	// Region to deploy into. Defaults to the region of the AWS profile.
	Region string `json:"region,omitempty" validate:"omitempty,awsregion"`
	// AvailabilityZones to spread subnets over. Discovered from the region
	// when empty.
	AvailabilityZones []string `json:"availabilityZones,omitempty" validate:"omitempty,dive,required"`

	Scanner ScannerSpec `json:"scanner,omitempty"`

	// DisableCDN serves the application straight from its load balancer.
	DisableCDN bool `json:"disableCDN,omitempty"`
	// DisableSuffix drops the random suffix from bucket and log group names.
	DisableSuffix bool `json:"disableSuffix,omitempty"`

	// AppImage overrides the application container image.
	AppImage string `json:"appImage,omitempty"`
	// Environment replaces the static default environment of the
	// application.
	Environment map[string]string `json:"environment,omitempty" validate:"omitempty,dive,keys,envname,endkeys"`
	// Scaling applies to every service of the deployment.
	Scaling *ScalingSpec `json:"scaling,omitempty"`

	// +kubebuilder:validation:Required
	Parameters ParametersSpec `json:"parameters"`
}

type ScannerSpec struct {
	// +kubebuilder:validation:Enum=service;function
	Backend ScannerBackendType `json:"backend,omitempty" validate:"omitempty,oneof=service function"`
	// WarmInterval is the schedule rate of the function backend, in whole
	// minutes.
	WarmInterval *metav1.Duration `json:"warmInterval,omitempty"`
}

type ScalingSpec struct {
	MinCapacity      int64           `json:"minCapacity" validate:"min=1"`
	MaxCapacity      int64           `json:"maxCapacity" validate:"gtefield=MinCapacity"`
	TargetCPUPercent int64           `json:"targetCPUPercent" validate:"min=1,max=100"`
	ScaleInCooldown  metav1.Duration `json:"scaleInCooldown,omitempty"`
	ScaleOutCooldown metav1.Duration `json:"scaleOutCooldown,omitempty"`
}

// ParametersSpec holds the deployment parameters. Secret parameters may be
// left out of the document and supplied through the environment instead.
type ParametersSpec struct {
	Email               string `json:"email" validate:"required,email"`
	InitAgencyDomain    string `json:"initAgencyDomain" validate:"required,fqdn"`
	InitAgencyFullName  string `json:"initAgencyFullName" validate:"required"`
	InitAgencyShortname string `json:"initAgencyShortname" validate:"required"`

	SESHost string `json:"sesHost,omitempty" validate:"omitempty,hostname_rfc1123"`
	SESPort *int64 `json:"sesPort,omitempty" validate:"omitempty,min=1,max=65535"`
	SESUser string `json:"sesUser,omitempty"`
	SESPass string `json:"sesPass,omitempty"`

	GoogleCaptcha       string `json:"googleCaptcha,omitempty"`
	GoogleCaptchaPublic string `json:"googleCaptchaPublic,omitempty"`

	// DomainName serves the application on a custom domain.
	DomainName string `json:"domainName,omitempty" validate:"omitempty,fqdn"`
}

// DeploymentState is the outcome of the last apply or destroy.
type DeploymentState string

const (
	DeploymentStateApplied   DeploymentState = "Applied"
	DeploymentStateFailed    DeploymentState = "Failed"
	DeploymentStateDestroyed DeploymentState = "Destroyed"
)

// DeploymentStatus records what the last apply created. It is written to
// the state file and read back by destroy.
type DeploymentStatus struct {
	State DeploymentState `json:"state,omitempty"`
	// GraphID is the ID of the deployment graph last applied.
	GraphID    string             `json:"graphID,omitempty"`
	Conditions []metav1.Condition `json:"conditions,omitempty"`
	// Resources holds the provider attributes of every created resource,
	// keyed by resource ID.
	Resources map[string]map[string]string `json:"resources,omitempty"`
	Outputs   map[string]string            `json:"outputs,omitempty"`
}

// Deployment is a FormSG deployment on AWS. The spec is composed into a
// deployment graph of resources, which the executor provisions in
// dependency order.
type Deployment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DeploymentSpec   `json:"spec,omitempty"`
	Status DeploymentStatus `json:"status,omitempty"`
}

func (d *Deployment) GetConditions() []metav1.Condition {
	return d.Status.Conditions
}

func (d *Deployment) SetConditions(conditions []metav1.Condition) {
	d.Status.Conditions = conditions
}

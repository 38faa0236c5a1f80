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
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ConditionType is a type of condition for a Deployment.
type ConditionType string

const (
	// DeploymentConditionTypeGraphComposed indicates whether the spec composed
	// into a valid deployment graph.
	DeploymentConditionTypeGraphComposed ConditionType = "GraphComposed"
	// DeploymentConditionTypeReady indicates every resource of the graph was
	// created.
	DeploymentConditionTypeReady ConditionType = "Ready"
	// DeploymentConditionTypeDegraded is set when some resources failed and
	// their dependents were skipped.
	DeploymentConditionTypeDegraded ConditionType = "Degraded"
)

// SetCondition records a condition on d, keeping the transition time when
// the status did not change.
func (d *Deployment) SetCondition(t ConditionType, status metav1.ConditionStatus, reason, message string) {
	conditions := d.GetConditions()
	meta.SetStatusCondition(&conditions, metav1.Condition{
		Type:               string(t),
		Status:             status,
		ObservedGeneration: d.Generation,
		Reason:             reason,
		Message:            message,
	})
	d.SetConditions(conditions)
}

// IsConditionTrue reports whether condition t is set and true.
func (d *Deployment) IsConditionTrue(t ConditionType) bool {
	return meta.IsStatusConditionTrue(d.Status.Conditions, string(t))
}

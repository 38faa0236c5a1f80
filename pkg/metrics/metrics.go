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

package metrics

import (
	"k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"

	"github.com/opengovsg/formsg-on-cdk/pkg/cel"
)

const namespace = "formsg"

var (
	// ComposeDuration tracks how long a full composition takes.
	ComposeDuration = metrics.NewHistogram(
		&metrics.HistogramOpts{
			Namespace:      namespace,
			Name:           "compose_duration_seconds",
			Help:           "Deployment graph composition duration in seconds",
			Buckets:        metrics.ExponentialBuckets(1e-4, 2, 14), // 100us to ~1.6s
			StabilityLevel: metrics.ALPHA,
		},
	)

	// ComposeResult counts compositions by result.
	ComposeResult = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Namespace:      namespace,
			Name:           "compose_result_total",
			Help:           "Count of deployment graph compositions by result",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"result"},
	)

	// StageFailures counts composer failures by stage.
	StageFailures = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Namespace:      namespace,
			Name:           "compose_stage_failures_total",
			Help:           "Count of composition failures by composer stage",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"stage"},
	)

	// ResolvedNodes counts nodes resolved by kind.
	ResolvedNodes = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Namespace:      namespace,
			Name:           "resolved_nodes_total",
			Help:           "Count of resolved graph nodes by resource kind",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"kind"},
	)

	// OperationDuration tracks executor operations.
	OperationDuration = metrics.NewHistogramVec(
		&metrics.HistogramOpts{
			Namespace:      namespace,
			Name:           "provision_operation_duration_seconds",
			Help:           "Provisioning operation duration in seconds",
			Buckets:        metrics.ExponentialBuckets(0.01, 2, 16),
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"kind", "operation", "result"},
	)
)

func init() {
	legacyregistry.MustRegister(ComposeDuration)
	legacyregistry.MustRegister(ComposeResult)
	legacyregistry.MustRegister(StageFailures)
	legacyregistry.MustRegister(ResolvedNodes)
	legacyregistry.MustRegister(OperationDuration)
	cel.Metrics.MustRegister(legacyregistry.Registerer())
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordCompose records the latency and result of one composition.
func RecordCompose(elapsed float64, err error) {
	ComposeDuration.Observe(elapsed)
	ComposeResult.WithLabelValues(result(err)).Inc()
}

// RecordStageFailure increments the failure counter of a composer stage.
func RecordStageFailure(stage string) {
	StageFailures.WithLabelValues(stage).Inc()
}

// RecordResolvedNode increments the resolved node counter for kind.
func RecordResolvedNode(kind string) {
	ResolvedNodes.WithLabelValues(kind).Inc()
}

// RecordOperation records one executor operation.
func RecordOperation(kind, operation, result string, elapsed float64) {
	OperationDuration.WithLabelValues(kind, operation, result).Observe(elapsed)
}

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
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "formsg"
	subsystem = "expression"
)

// Metrics records compilation and evaluation latencies of reference
// expressions.
var Metrics = newExpressionMetrics()

// ExpressionMetrics holds the prometheus collectors.
type ExpressionMetrics struct {
	compilationTime *prometheus.HistogramVec
	evaluationTime  *prometheus.HistogramVec
}

func newExpressionMetrics() *ExpressionMetrics {
	return &ExpressionMetrics{
		compilationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compilation_duration_seconds",
				Help:      "Reference expression compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 10), // 10µs to ~10ms
			},
			[]string{"result"},
		),
		evaluationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Reference expression evaluation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 10),
			},
			[]string{"result"},
		),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveCompilation records a compilation duration.
func (m *ExpressionMetrics) ObserveCompilation(durationSeconds float64, err error) {
	m.compilationTime.WithLabelValues(resultLabel(err)).Observe(durationSeconds)
}

// ObserveEvaluation records an evaluation duration.
func (m *ExpressionMetrics) ObserveEvaluation(durationSeconds float64, err error) {
	m.evaluationTime.WithLabelValues(resultLabel(err)).Observe(durationSeconds)
}

// MustRegister registers the collectors with registry.
func (m *ExpressionMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.compilationTime)
	registry.MustRegister(m.evaluationTime)
}

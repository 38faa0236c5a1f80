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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newExpressionMetrics()
	m.MustRegister(registry)

	m.ObserveCompilation(0.001, nil)
	m.ObserveCompilation(0.002, errors.New("undeclared"))
	m.ObserveEvaluation(0.0005, nil)

	assert.Equal(t, 2, testutil.CollectAndCount(m.compilationTime))
	assert.Equal(t, 1, testutil.CollectAndCount(m.evaluationTime))

	families, err := registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" {
					assert.Contains(t, []string{"success", "error"}, label.GetValue())
				}
			}
		}
	}
	assert.True(t, names["formsg_expression_compilation_duration_seconds"])
	assert.True(t, names["formsg_expression_evaluation_duration_seconds"])
}

func TestExpressionMetrics_DoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newExpressionMetrics()
	require.NotPanics(t, func() { m.MustRegister(registry) })
	assert.Panics(t, func() { m.MustRegister(registry) })
}

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

package features

import (
	"k8s.io/component-base/featuregate"
)

const (
	// ParallelGraphResolution resolves independent branches of the deployment
	// graph concurrently instead of walking the topological order one node at
	// a time.
	ParallelGraphResolution featuregate.Feature = "ParallelGraphResolution"

	// ParallelProvisioning lets the executor create and delete independent
	// resources concurrently.
	ParallelProvisioning featuregate.Feature = "ParallelProvisioning"
)

// defaultFeatureGates lists every known feature with its default state and
// maturity.
var defaultFeatureGates = map[featuregate.Feature]featuregate.FeatureSpec{
	ParallelGraphResolution: {Default: false, PreRelease: featuregate.Alpha},
	ParallelProvisioning:    {Default: true, PreRelease: featuregate.Beta},
}

// FeatureGate is the process-wide gate, configured from the --feature-gates
// flag of the CLI.
var FeatureGate featuregate.MutableFeatureGate = featuregate.NewFeatureGate()

func init() {
	if err := FeatureGate.Add(defaultFeatureGates); err != nil {
		panic(err)
	}
}

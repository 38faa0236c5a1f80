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
	"maps"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph/fieldpath"
)

// Environment layers of a principal's "environment" config, lowest
// precedence first. A key set in a later layer replaces the earlier value.
const (
	EnvLayerDefaults   = "defaults"
	EnvLayerParameters = "parameters"
	EnvLayerGenerated  = "generated"
)

var envLayers = []string{EnvLayerDefaults, EnvLayerParameters, EnvLayerGenerated}

// mergeEnvironment flattens the layered environment of a principal.
func mergeEnvironment(id string, env map[string]any) (map[string]string, error) {
	for layer := range env {
		if !slices.Contains(envLayers, layer) {
			return nil, constraintf([]string{id}, "unknown environment layer %q, expected one of %v", layer, envLayers)
		}
	}
	merged := map[string]string{}
	for _, layer := range envLayers {
		values, err := objectField(id, env, layer)
		if err != nil {
			return nil, err
		}
		strs, err := stringMap(id, values, "environment variable")
		if err != nil {
			return nil, err
		}
		maps.Copy(merged, strs)
	}
	return merged, nil
}

// checkPlainEnvironment rejects variables whose value was read from a
// sensitive value. Those belong in the secrets map. Only the layer that
// wins for a key is checked.
func checkPlainEnvironment(id string, env map[string]any, sensitivePaths sets.Set[string]) error {
	winner := map[string]string{}
	for _, layer := range envLayers {
		values, _ := env[layer].(map[string]any)
		for key := range values {
			winner[key] = layer
		}
	}
	for _, key := range slices.Sorted(maps.Keys(winner)) {
		path := fieldpath.Join(fieldpath.Join(configEnvironment, winner[key]), key)
		if sensitivePaths.Has(path) {
			return constraintf([]string{id}, "environment variable %s carries a sensitive value, deliver it as a secret", key)
		}
	}
	return nil
}

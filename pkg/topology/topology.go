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

package topology

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// builder accumulates the specs of one deployment. Components declare
// their resources through it and reference each other by ID only.
type builder struct {
	cfg   Config
	specs []graph.ResourceSpec
	ids   map[string]bool
}

func (b *builder) add(spec graph.ResourceSpec) {
	if b.ids[spec.ID] {
		// Components use fixed IDs; a clash is a bug in this package.
		panic(fmt.Sprintf("topology: resource %q declared twice", spec.ID))
	}
	b.ids[spec.ID] = true
	b.specs = append(b.specs, spec)
}

// ref returns the expression for an attribute of another resource.
func ref(id, attr string) string { return "${" + id + "." + attr + "}" }

// param returns the expression for a parameter.
func param(name string) string { return "${" + graph.ParamsIdentifier + "." + name + "}" }

// suffixed appends the deployment suffix to name, unless disabled.
func (b *builder) suffixed(name, sep string) string {
	if b.cfg.DisableSuffix {
		return name
	}
	return name + sep + ref(IDSuffix, "value")
}

// Build declares every resource of a deployment shaped by cfg. The specs
// come back in declaration order: secrets first, then storage, registries,
// network, database, compute and edge.
func Build(cfg Config) ([]graph.ResourceSpec, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	b := &builder{cfg: cfg, ids: map[string]bool{}}

	b.secrets()
	b.storage()
	b.registries()
	b.network()
	b.database()
	b.cluster()
	b.scanner()
	b.application()
	b.edge()
	return b.specs, nil
}

// Compose builds the specs for cfg and composes them with the deployment
// parameters. values holds the supplied parameter values.
func Compose(cfg Config, values map[string]string, opts ...graph.Option) (*graph.DeploymentGraph, error) {
	specs, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	return graph.NewComposer(append([]graph.Option{graph.WithProfile(cfg.Profile)}, opts...)...).
		Compose(specs, Parameters(), values)
}

// DomainFromParameters returns the EdgeDomain selected by the domainName
// parameter value.
func DomainFromParameters(values map[string]string) EdgeDomain {
	if name := values[ParamDomainName]; name != "" {
		return CustomDomain{Name: name}
	}
	return GeneratedDomain{}
}

// LogSummary logs what Build declared, by kind.
func LogSummary(log logr.Logger, specs []graph.ResourceSpec) {
	counts := map[graph.Kind]int{}
	for _, s := range specs {
		counts[s.Kind]++
	}
	kv := make([]any, 0, 2*len(counts))
	for _, k := range graph.KnownKinds() {
		if counts[k] > 0 {
			kv = append(kv, string(k), counts[k])
		}
	}
	log.Info("declared deployment", append([]any{"resources", len(specs)}, kv...)...)
}

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

// Package metadata defines the tags put on every provisioned resource that
// accepts them, so resources can be traced back to their deployment.
package metadata

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"sigs.k8s.io/release-utils/version"

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

const (
	// TagPrefix is the key prefix of every tag set by formsg.
	TagPrefix = v1alpha1.Group + "/"
)

const (
	OwnedTag   = TagPrefix + "owned"
	VersionTag = TagPrefix + "version"

	// DeploymentTag names the Deployment the resource was created for.
	DeploymentTag = TagPrefix + "deployment"
	// GraphIDTag is the ID of the deployment graph that created the
	// resource.
	GraphIDTag = TagPrefix + "graph-id"
	// NodeIDTag and NodeKindTag identify the graph node.
	NodeIDTag   = TagPrefix + "node-id"
	NodeKindTag = TagPrefix + "node-kind"
)

var (
	ErrDuplicatedTags = errors.New("duplicate tags")
)

var _ Tagger = GenericTagger{}

// Tagger is a set of tags that can be applied to a resource.
type Tagger interface {
	Tags() map[string]string
	Merge(Tagger) (Tagger, error)
}

// GenericTagger is a map of tags. It implements the Tagger interface.
type GenericTagger map[string]string

// Tags returns the tags.
func (gt GenericTagger) Tags() map[string]string {
	return gt
}

// Merge merges the tags of other into a copy of gt. Keys present in both
// are an error.
func (gt GenericTagger) Merge(other Tagger) (Tagger, error) {
	merged := gt.Copy()
	for k, v := range other.Tags() {
		if _, ok := merged[k]; ok {
			return nil, fmt.Errorf("%w: found key '%s' in both maps", ErrDuplicatedTags, k)
		}
		merged[k] = v
	}
	return GenericTagger(merged), nil
}

// Copy returns a copy of the tags.
func (gt GenericTagger) Copy() map[string]string {
	return maps.Clone(map[string]string(gt))
}

// NewMetaTagger returns the tags marking a resource as owned by formsg,
// and by which version.
func NewMetaTagger() GenericTagger {
	return map[string]string{
		OwnedTag:   "true",
		VersionTag: version.GetVersionInfo().GitVersion,
	}
}

// NewDeploymentTagger returns the tags linking a resource to the
// Deployment named name.
func NewDeploymentTagger(name string) GenericTagger {
	return map[string]string{
		DeploymentTag: name,
	}
}

// NewNodeTagger returns the tags linking a resource to its graph node.
func NewNodeTagger(graphID, id string, kind graph.Kind) GenericTagger {
	return map[string]string{
		GraphIDTag:  graphID,
		NodeIDTag:   id,
		NodeKindTag: string(kind),
	}
}

// IsOwned reports whether tags mark a resource as owned by formsg.
func IsOwned(tags map[string]string) bool {
	return tags[OwnedTag] == "true"
}

// ResourceTags renders t as the Key/Value list CloudFormation resource
// types take, sorted by key.
func ResourceTags(t Tagger) []any {
	tags := t.Tags()
	out := make([]any, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		out = append(out, map[string]any{"Key": k, "Value": tags[k]})
	}
	return out
}

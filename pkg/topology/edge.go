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

import "github.com/opengovsg/formsg-on-cdk/pkg/graph"

const (
	IDDistribution = "distribution"

	// OutputURL is the public URL of the deployment.
	OutputURL = "url"
	// APIPathPattern is served uncached.
	APIPathPattern = "api/*"
)

// publicURL returns the expression for the URL users reach the
// application on.
func (b *builder) publicURL() string {
	if b.cfg.DisableCDN {
		return ref(IDLoadBalancer, "url")
	}
	return ref(IDDistribution, "url")
}

// edge declares the distribution in front of the load balancer and the
// url output. Without the CDN the load balancer URL is the output.
func (b *builder) edge() {
	if b.cfg.DisableCDN {
		b.spec(IDLoadBalancer).Outputs = map[string]string{OutputURL: "url"}
		return
	}

	behavior := func(cachePolicy string) map[string]any {
		return map[string]any{
			"viewerProtocolPolicy": "REDIRECT_TO_HTTPS",
			"originRequestPolicy":  "ALL_VIEWER",
			"allowedMethods":       "ALLOW_ALL",
			"cachePolicy":          cachePolicy,
		}
	}
	api := behavior("CACHING_DISABLED")
	api["pathPattern"] = APIPathPattern

	config := map[string]any{
		"origin": map[string]any{
			"domainName":     ref(IDLoadBalancer, "dnsName"),
			"protocolPolicy": "HTTP_ONLY",
			"originShield":   true,
			"customHeaders": map[string]any{
				OriginVerifyHeader: ref(IDOriginVerify, "value"),
			},
		},
		"defaultBehavior": behavior("CACHING_OPTIMIZED"),
		"behaviors":       []any{api},
	}
	if cd, ok := b.cfg.Domain.(CustomDomain); ok {
		config["aliases"] = []string{cd.Name}
	}
	b.add(graph.ResourceSpec{
		ID:      IDDistribution,
		Kind:    graph.KindDistribution,
		Config:  config,
		Outputs: map[string]string{OutputURL: "url"},
	})
}

// spec returns the declared spec with the given ID.
func (b *builder) spec(id string) *graph.ResourceSpec {
	for i := range b.specs {
		if b.specs[i].ID == id {
			return &b.specs[i]
		}
	}
	panic("topology: no resource " + id)
}

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

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

const (
	IDNetwork = "network"

	IDLoadBalancerSecurityGroup        = "loadBalancerSecurityGroup"
	IDAppSecurityGroup                 = "appSecurityGroup"
	IDDatabaseSecurityGroup            = "databaseSecurityGroup"
	IDScannerSecurityGroup             = "scannerSecurityGroup"
	IDScannerLoadBalancerSecurityGroup = "scannerLoadBalancerSecurityGroup"

	networkCIDR = "10.0.0.0/16"
	anyIPv4     = "0.0.0.0/0"
	httpPort    = 80
)

// subnetID returns the ID of the n-th (1-based) public or private subnet.
func subnetID(public bool, n int) string {
	if public {
		return fmt.Sprintf("publicSubnet%d", n)
	}
	return fmt.Sprintf("privateSubnet%d", n)
}

// subnetRefs returns the ID expressions of the public or private subnets.
func (b *builder) subnetRefs(public bool) []string {
	out := make([]string, len(b.cfg.AvailabilityZones))
	for i := range b.cfg.AvailabilityZones {
		out[i] = ref(subnetID(public, i+1), "id")
	}
	return out
}

// network declares the VPC with one public and one private subnet per
// availability zone. Subnets split the network into /18 blocks, public
// ones first. Public subnets route through the network's internet gateway
// and each hosts the NAT gateway of the private subnet in its zone.
func (b *builder) network() {
	b.add(graph.ResourceSpec{
		ID:     IDNetwork,
		Kind:   graph.KindNetwork,
		Config: map[string]any{"cidr": networkCIDR, "maxAzs": int64(MaxAvailabilityZones)},
	})
	block := 0
	for _, public := range []bool{true, false} {
		for i, az := range b.cfg.AvailabilityZones {
			cfg := map[string]any{
				"network":          ref(IDNetwork, "id"),
				"availabilityZone": az,
				"cidr":             fmt.Sprintf("10.0.%d.0/18", block*64),
				"public":           public,
			}
			if public {
				cfg["routeTable"] = ref(IDNetwork, "publicRouteTable")
			} else {
				cfg["natGateway"] = ref(subnetID(true, i+1), "natGateway")
			}
			b.add(graph.ResourceSpec{ID: subnetID(public, i+1), Kind: graph.KindSubnet, Config: cfg})
			block++
		}
	}

	b.securityGroup(IDLoadBalancerSecurityGroup, "Allows HTTP to the application load balancer")
	b.securityGroup(IDAppSecurityGroup, "Application tasks")
	b.securityGroup(IDDatabaseSecurityGroup, "Allows connection to DocumentDB")
	b.ingress("loadBalancerIngress", IDLoadBalancerSecurityGroup, anyIPv4, httpPort)
}

func (b *builder) securityGroup(id, description string) {
	b.add(graph.ResourceSpec{
		ID:   id,
		Kind: graph.KindSecurityGroup,
		Config: map[string]any{
			"network":     ref(IDNetwork, "id"),
			"description": description,
		},
	})
}

// ingress allows tcp traffic on port into securityGroup. source is either
// a CIDR block or the ID of another security group.
func (b *builder) ingress(id, securityGroup, source string, port int64) {
	if source != anyIPv4 {
		source = ref(source, "id")
	}
	b.add(graph.ResourceSpec{
		ID:   id,
		Kind: graph.KindIngressRule,
		Config: map[string]any{
			"securityGroup": ref(securityGroup, "id"),
			"source":        source,
			"protocol":      "tcp",
			"port":          port,
		},
	})
}

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

package executor

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// Operation is one call recorded by the DryRunProvisioner.
type Operation struct {
	Verb string
	ID   string
}

// DryRunProvisioner provisions nothing. It returns attributes shaped like
// real ones, derived from the resource IDs, and records every call.
type DryRunProvisioner struct {
	Region  string
	Account string

	mu       sync.Mutex
	ops      []Operation
	failures map[Operation]error
}

// NewDryRunProvisioner returns a DryRunProvisioner for the given region and
// account.
func NewDryRunProvisioner(region, account string) *DryRunProvisioner {
	return &DryRunProvisioner{Region: region, Account: account, failures: map[Operation]error{}}
}

// FailOn makes the verb ("create" or "delete") fail with err for id.
func (p *DryRunProvisioner) FailOn(verb, id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[Operation{Verb: verb, ID: id}] = err
}

// Operations returns the recorded calls in call order.
func (p *DryRunProvisioner) Operations() []Operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Operation(nil), p.ops...)
}

func (p *DryRunProvisioner) call(verb, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	op := Operation{Verb: verb, ID: id}
	p.ops = append(p.ops, op)
	return p.failures[op]
}

func (p *DryRunProvisioner) Create(_ context.Context, r *Resource) (map[string]string, error) {
	if err := p.call("create", r.ID); err != nil {
		return nil, err
	}
	return p.attributes(r), nil
}

func (p *DryRunProvisioner) Delete(_ context.Context, r *Resource) error {
	return p.call("delete", r.ID)
}

func shortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

func (p *DryRunProvisioner) arn(service, resource string) string {
	return fmt.Sprintf("arn:aws:%s:%s:%s:%s", service, p.Region, p.Account, resource)
}

func (p *DryRunProvisioner) attributes(r *Resource) map[string]string {
	h := shortHash(r.ID)
	name := cfgString(r.Config, "name")
	if name == "" {
		name = r.ID
	}
	switch r.Kind {
	case graph.KindNetwork:
		return map[string]string{"id": "vpc-" + h, "publicRouteTable": "rtb-" + h}
	case graph.KindSubnet:
		if cfgBool(r.Config, "public") {
			return map[string]string{"id": "subnet-" + h, "natGateway": "nat-" + h}
		}
		return map[string]string{"id": "subnet-" + h}
	case graph.KindSecurityGroup:
		return map[string]string{"id": "sg-" + h}
	case graph.KindIngressRule:
		return map[string]string{"id": "sgr-" + h}
	case graph.KindSecret:
		return map[string]string{"arn": p.arn("secretsmanager", "secret:"+name+"-"+h[:6])}
	case graph.KindRepository:
		return map[string]string{
			"arn": p.arn("ecr", "repository/"+name),
			"uri": fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s", p.Account, p.Region, name),
		}
	case graph.KindCluster:
		return map[string]string{"arn": p.arn("ecs", "cluster/"+name)}
	case graph.KindLogGroup:
		return map[string]string{"arn": p.arn("logs", "log-group:"+name)}
	case graph.KindLoadBalancer:
		host := fmt.Sprintf("%s-%s.%s.elb.amazonaws.com", name, h, p.Region)
		if internetFacing, _ := r.Config["internetFacing"].(bool); !internetFacing {
			host = "internal-" + host
		}
		return map[string]string{
			"arn":         p.arn("elasticloadbalancing", "loadbalancer/app/"+name+"/"+h),
			"dnsName":     host,
			"listenerArn": p.arn("elasticloadbalancing", "listener/app/"+name+"/"+h+"/"+shortHash(h)),
		}
	case graph.KindService:
		return map[string]string{
			"arn":         p.arn("ecs", "service/"+name),
			"taskRoleArn": fmt.Sprintf("arn:aws:iam::%s:role/%s-task-%s", p.Account, name, h),
		}
	case graph.KindFunction:
		return map[string]string{
			"arn":     p.arn("lambda", "function:"+name),
			"roleArn": fmt.Sprintf("arn:aws:iam::%s:role/%s-%s", p.Account, name, h),
		}
	case graph.KindSchedule:
		return map[string]string{"arn": p.arn("events", "rule/"+r.ID)}
	case graph.KindDatabase:
		return map[string]string{"endpoint": fmt.Sprintf("%s.cluster-%s.%s.docdb.amazonaws.com", r.ID, h, p.Region)}
	case graph.KindDistribution:
		return map[string]string{
			"id":         "E" + strings.ToUpper(h),
			"domainName": "d" + h + ".cloudfront.net",
		}
	default:
		return map[string]string{}
	}
}

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
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/secrets"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

const (
	testRegion  = "ap-southeast-1"
	testAccount = "123456789012"
)

var fastBackoff = wait.Backoff{Duration: time.Millisecond, Factor: 1, Steps: 5}

// edgeSpecs is a load balancer behind a security group, plus an unrelated
// bucket.
func edgeSpecs() []graph.ResourceSpec {
	return []graph.ResourceSpec{
		{ID: "network", Kind: graph.KindNetwork, Config: map[string]any{"cidr": "10.0.0.0/16"}},
		{ID: "appSecurityGroup", Kind: graph.KindSecurityGroup, Config: map[string]any{
			"network":     "${network.id}",
			"description": "application",
		}},
		{ID: "appIngress", Kind: graph.KindIngressRule, Config: map[string]any{
			"securityGroup": "${appSecurityGroup.id}",
			"source":        "0.0.0.0/0",
			"protocol":      "tcp",
			"port":          80,
		}},
		{ID: "loadBalancer", Kind: graph.KindLoadBalancer, Outputs: map[string]string{"url": "url"}, Config: map[string]any{
			"name":           "alb",
			"internetFacing": true,
			"securityGroups": []any{"${appSecurityGroup.id}"},
		}},
		{ID: "dataBucket", Kind: graph.KindBucket, HoldsUserData: true, Config: map[string]any{"name": "data"}},
	}
}

func composeSpecs(t *testing.T, profile graph.Profile, specs []graph.ResourceSpec) *graph.DeploymentGraph {
	t.Helper()
	g, err := graph.NewComposer(graph.WithProfile(profile)).Compose(specs, nil, nil)
	require.NoError(t, err)
	return g
}

// capture records the resources handed to the wrapped provisioner.
type capture struct {
	Provisioner

	mu      sync.Mutex
	created map[string]*Resource
}

func newCapture(p Provisioner) *capture {
	return &capture{Provisioner: p, created: map[string]*Resource{}}
}

func (c *capture) Create(ctx context.Context, r *Resource) (map[string]string, error) {
	c.mu.Lock()
	c.created[r.ID] = r
	c.mu.Unlock()
	return c.Provisioner.Create(ctx, r)
}

func indexOf(ops []Operation, verb, id string) int {
	return slices.Index(ops, Operation{Verb: verb, ID: id})
}

func TestApply(t *testing.T) {
	g := composeSpecs(t, graph.ProfileDev, edgeSpecs())
	dry := NewDryRunProvisioner(testRegion, testAccount)
	p := newCapture(dry)

	result, err := NewExecutor(p, WithParallelism(1)).Apply(context.Background(), g)
	require.NoError(t, err)

	for _, n := range result.Nodes {
		assert.Equal(t, StateCreated, n.State, n.ID)
	}
	ops := dry.Operations()
	assert.Less(t, indexOf(ops, "create", "network"), indexOf(ops, "create", "appSecurityGroup"))
	assert.Less(t, indexOf(ops, "create", "appSecurityGroup"), indexOf(ops, "create", "appIngress"))
	assert.Less(t, indexOf(ops, "create", "appSecurityGroup"), indexOf(ops, "create", "loadBalancer"))

	sg, _ := result.Node("appSecurityGroup")
	assert.Equal(t, sg.Attributes["id"], p.created["appIngress"].Config["securityGroup"])
	assert.Equal(t, []any{sg.Attributes["id"]}, p.created["loadBalancer"].Config["securityGroups"])

	lb, _ := result.Node("loadBalancer")
	assert.Equal(t, "http://"+lb.Attributes["dnsName"], result.Outputs["url"])
	assert.NotContains(t, result.Outputs["url"], "internal-")
}

func TestApply_FailureSkipsDependents(t *testing.T) {
	g := composeSpecs(t, graph.ProfileDev, edgeSpecs())
	dry := NewDryRunProvisioner(testRegion, testAccount)
	boom := errors.New("quota exceeded")
	dry.FailOn("create", "appSecurityGroup", boom)

	result, err := NewExecutor(dry, WithBackoff(fastBackoff)).Apply(context.Background(), g)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	want := map[string]State{
		"network":          StateCreated,
		"appSecurityGroup": StateFailed,
		"appIngress":       StateSkipped,
		"loadBalancer":     StateSkipped,
		"dataBucket":       StateCreated,
	}
	for id, state := range want {
		n, ok := result.Node(id)
		require.True(t, ok, id)
		assert.Equal(t, state, n.State, id)
	}
	assert.Equal(t, []string{"appSecurityGroup"}, result.Failed())
	assert.Empty(t, result.Outputs, "outputs of skipped nodes are not reported")
	assert.NotContains(t, result.State(), "appSecurityGroup")
}

// flaky fails Create with a retriable error a fixed number of times.
type flaky struct {
	Provisioner
	failures int
	err      error

	mu    sync.Mutex
	calls int
}

func (f *flaky) Create(ctx context.Context, r *Resource) (map[string]string, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, f.err
	}
	return f.Provisioner.Create(ctx, r)
}

func TestApply_Retry(t *testing.T) {
	specs := []graph.ResourceSpec{{ID: "network", Kind: graph.KindNetwork}}
	throttled := graph.Retriable(StageProvision, errors.New("throttled"))

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantState State
	}{
		{name: "recovers", failures: 2, err: throttled, wantCalls: 3, wantState: StateCreated},
		{name: "terminal errors are not retried", failures: 2, err: errors.New("invalid cidr"), wantCalls: 1, wantState: StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := composeSpecs(t, graph.ProfileDev, specs)
			p := &flaky{Provisioner: NewDryRunProvisioner(testRegion, testAccount), failures: tt.failures, err: tt.err}

			result, _ := NewExecutor(p, WithBackoff(fastBackoff)).Apply(context.Background(), g)
			n, _ := result.Node("network")
			assert.Equal(t, tt.wantState, n.State)
			assert.Equal(t, tt.wantCalls, p.calls)
		})
	}
}

func TestApply_RetryExhausted(t *testing.T) {
	g := composeSpecs(t, graph.ProfileDev, []graph.ResourceSpec{{ID: "network", Kind: graph.KindNetwork}})
	p := &flaky{
		Provisioner: NewDryRunProvisioner(testRegion, testAccount),
		failures:    100,
		err:         graph.Retriable(StageProvision, errors.New("throttled")),
	}

	_, err := NewExecutor(p, WithBackoff(fastBackoff)).Apply(context.Background(), g)
	require.Error(t, err)
	assert.True(t, graph.IsRetriable(err), "the last provider error is returned")
	assert.Greater(t, p.calls, 1)
	assert.LessOrEqual(t, p.calls, fastBackoff.Steps)
}

func TestDestroy(t *testing.T) {
	retainIngress := func(specs []graph.ResourceSpec) []graph.ResourceSpec {
		specs[2].Lifecycle = graph.LifecycleRetain
		return specs
	}
	bucketCORS := func(specs []graph.ResourceSpec) []graph.ResourceSpec {
		specs[4].Config["cors"] = []any{map[string]any{
			"allowedMethods": []any{"GET"},
			"allowedOrigins": []any{"${loadBalancer.url}"},
		}}
		return specs
	}
	tests := []struct {
		name    string
		profile graph.Profile
		specs   []graph.ResourceSpec
		want    map[string]State
	}{
		{
			name:    "dev removes everything",
			profile: graph.ProfileDev,
			specs:   edgeSpecs(),
			want: map[string]State{
				"network": StateDeleted, "appSecurityGroup": StateDeleted, "appIngress": StateDeleted,
				"loadBalancer": StateDeleted, "dataBucket": StateDeleted,
			},
		},
		{
			name:    "prod retains user data",
			profile: graph.ProfileProd,
			specs:   edgeSpecs(),
			want: map[string]State{
				"network": StateDeleted, "appSecurityGroup": StateDeleted, "appIngress": StateDeleted,
				"loadBalancer": StateDeleted, "dataBucket": StateRetained,
			},
		},
		{
			name:    "retained resources keep their dependencies",
			profile: graph.ProfileDev,
			specs:   retainIngress(edgeSpecs()),
			want: map[string]State{
				"network": StateRetained, "appSecurityGroup": StateRetained, "appIngress": StateRetained,
				"loadBalancer": StateDeleted, "dataBucket": StateDeleted,
			},
		},
		{
			name:    "referenced values do not keep resources",
			profile: graph.ProfileProd,
			specs:   bucketCORS(edgeSpecs()),
			want: map[string]State{
				"network": StateDeleted, "appSecurityGroup": StateDeleted, "appIngress": StateDeleted,
				"loadBalancer": StateDeleted, "dataBucket": StateRetained,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := composeSpecs(t, tt.profile, tt.specs)
			dry := NewDryRunProvisioner(testRegion, testAccount)
			e := NewExecutor(dry, WithParallelism(1))

			applied, err := e.Apply(context.Background(), g)
			require.NoError(t, err)

			result, err := e.Destroy(context.Background(), g, applied.State())
			require.NoError(t, err)
			for id, state := range tt.want {
				n, ok := result.Node(id)
				require.True(t, ok, id)
				assert.Equal(t, state, n.State, id)
			}

			ops := dry.Operations()
			if tt.want["appSecurityGroup"] == StateDeleted {
				assert.Less(t, indexOf(ops, "delete", "loadBalancer"), indexOf(ops, "delete", "appSecurityGroup"))
				assert.Less(t, indexOf(ops, "delete", "appIngress"), indexOf(ops, "delete", "appSecurityGroup"))
				assert.Less(t, indexOf(ops, "delete", "appSecurityGroup"), indexOf(ops, "delete", "network"))
			}
		})
	}
}

func TestDestroy_ProdDeployment(t *testing.T) {
	values := map[string]string{
		topology.ParamEmail:               "admin@form.example.gov",
		topology.ParamInitAgencyDomain:    "agency.example.gov",
		topology.ParamInitAgencyFullName:  "Example Agency",
		topology.ParamInitAgencyShortname: "exa",
		topology.ParamSESUser:             "AKIAEXAMPLESESUSER",
		topology.ParamSESPass:             "ses-pass-Zx81kQ02mv",
	}
	cfg := topology.Config{
		Profile:           graph.ProfileProd,
		AvailabilityZones: []string{"ap-southeast-1a", "ap-southeast-1b"},
	}
	g, err := topology.Compose(cfg, values, graph.WithSecretGenerator(secrets.NewSeededGenerator(7)))
	require.NoError(t, err)

	dry := NewDryRunProvisioner(testRegion, testAccount)
	e := NewExecutor(dry, WithParallelism(1))
	applied, err := e.Apply(context.Background(), g)
	require.NoError(t, err)
	result, err := e.Destroy(context.Background(), g, applied.State())
	require.NoError(t, err)

	for _, n := range g.Nodes {
		got, ok := result.Node(n.ID)
		require.True(t, ok, n.ID)
		switch {
		case n.Lifecycle == graph.LifecycleRetain:
			assert.Equal(t, StateRetained, got.State, n.ID)
		case !graph.Encloses(n.Kind):
			assert.Equal(t, StateDeleted, got.State, "%s has a Destroy lifecycle", n.ID)
		}
	}

	// The database keeps the network resources it is placed in, including
	// the public subnets holding the NAT gateways its subnets route through.
	for _, id := range []string{
		topology.IDNetwork, "privateSubnet1", "privateSubnet2", "publicSubnet1", "publicSubnet2",
		topology.IDDatabaseSecurityGroup,
	} {
		n, _ := result.Node(id)
		assert.Equal(t, StateRetained, n.State, id)
	}
	for _, id := range []string{
		topology.IDLoadBalancerSecurityGroup, topology.IDAppSecurityGroup,
		topology.IDLoadBalancer, topology.IDDistribution, topology.IDDBPassword, topology.IDSuffix,
	} {
		n, _ := result.Node(id)
		assert.Equal(t, StateDeleted, n.State, id)
	}
}

func TestDestroy_PartialState(t *testing.T) {
	g := composeSpecs(t, graph.ProfileDev, edgeSpecs())
	dry := NewDryRunProvisioner(testRegion, testAccount)
	state := map[string]map[string]string{"network": {"id": "vpc-0abc"}}

	result, err := NewExecutor(dry).Destroy(context.Background(), g, state)
	require.NoError(t, err)

	n, _ := result.Node("network")
	assert.Equal(t, StateDeleted, n.State)
	for _, id := range []string{"appSecurityGroup", "appIngress", "loadBalancer", "dataBucket"} {
		n, _ := result.Node(id)
		assert.Equal(t, StateAbsent, n.State, id)
	}
	assert.Equal(t, []Operation{{Verb: "delete", ID: "network"}}, dry.Operations())
}

func TestDestroy_FailureKeepsDependencies(t *testing.T) {
	g := composeSpecs(t, graph.ProfileDev, edgeSpecs())
	dry := NewDryRunProvisioner(testRegion, testAccount)
	e := NewExecutor(dry, WithBackoff(fastBackoff))
	applied, err := e.Apply(context.Background(), g)
	require.NoError(t, err)

	dry.FailOn("delete", "loadBalancer", errors.New("in use"))
	result, err := e.Destroy(context.Background(), g, applied.State())
	require.Error(t, err)

	lb, _ := result.Node("loadBalancer")
	assert.Equal(t, StateFailed, lb.State)
	for _, id := range []string{"appSecurityGroup", "network"} {
		n, _ := result.Node(id)
		assert.Equal(t, StateSkipped, n.State, "%s is still in use", id)
	}
	bucket, _ := result.Node("dataBucket")
	assert.Equal(t, StateDeleted, bucket.State)
}

func TestApply_Deployment(t *testing.T) {
	values := map[string]string{
		topology.ParamEmail:               "admin@form.example.gov",
		topology.ParamInitAgencyDomain:    "agency.example.gov",
		topology.ParamInitAgencyFullName:  "Example Agency",
		topology.ParamInitAgencyShortname: "exa",
		topology.ParamSESUser:             "AKIAEXAMPLESESUSER",
		topology.ParamSESPass:             "ses-pass-Zx81kQ02mv",
	}
	for _, backend := range []topology.ScannerBackend{topology.ServiceBackend{}, topology.FunctionBackend{}} {
		cfg := topology.Config{
			AvailabilityZones: []string{"ap-southeast-1a", "ap-southeast-1b"},
			Scanner:           backend,
		}
		g, err := topology.Compose(cfg, values, graph.WithSecretGenerator(secrets.NewSeededGenerator(7)))
		require.NoError(t, err)

		p := newCapture(NewDryRunProvisioner(testRegion, testAccount))
		result, err := NewExecutor(p).Apply(context.Background(), g)
		require.NoError(t, err)
		assert.Empty(t, result.Failed())

		url := result.Outputs[topology.OutputURL]
		assert.True(t, strings.HasPrefix(url, "https://d"), url)
		assert.True(t, strings.HasSuffix(url, ".cloudfront.net"), url)

		for id, r := range p.created {
			raw, err := json.Marshal(r)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "{{", "%s has unresolved attribute tokens", id)
		}
		app := p.created[topology.IDApp]
		require.NotNil(t, app)
		assert.Equal(t, url, app.Environment["APP_URL"])
		assert.NotEmpty(t, app.Grants)
	}
}

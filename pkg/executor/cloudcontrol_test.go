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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	cctypes "github.com/aws/aws-sdk-go-v2/service/cloudcontrol/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/metadata"
)

type ccCall struct {
	op       string
	typeName string
	desired  map[string]any
	id       string
}

// fakeCloudControl settles every request after pending polls.
type fakeCloudControl struct {
	mu         sync.Mutex
	calls      []ccCall
	properties map[string]map[string]any
	createErr  map[string]error
	deleteErr  map[string]error
	failCode   map[string]cctypes.HandlerErrorCode
	pending    int
	requests   map[string]*cctypes.ProgressEvent
	polls      map[string]int
	seq        int
}

func newFakeCloudControl() *fakeCloudControl {
	return &fakeCloudControl{
		properties: map[string]map[string]any{},
		createErr:  map[string]error{},
		deleteErr:  map[string]error{},
		failCode:   map[string]cctypes.HandlerErrorCode{},
		requests:   map[string]*cctypes.ProgressEvent{},
		polls:      map[string]int{},
	}
}

func (f *fakeCloudControl) event(op cctypes.Operation, typeName, identifier string) *cctypes.ProgressEvent {
	f.seq++
	token := fmt.Sprintf("request-%d", f.seq)
	ev := &cctypes.ProgressEvent{
		Operation:       op,
		TypeName:        aws.String(typeName),
		Identifier:      aws.String(identifier),
		RequestToken:    aws.String(token),
		OperationStatus: cctypes.OperationStatusSuccess,
	}
	if code, ok := f.failCode[typeName]; ok {
		ev.OperationStatus = cctypes.OperationStatusFailed
		ev.ErrorCode = code
		ev.StatusMessage = aws.String("handler failed")
	}
	if f.pending > 0 {
		settled := *ev
		f.requests[token] = &settled
		ev.OperationStatus = cctypes.OperationStatusInProgress
	}
	return ev
}

func (f *fakeCloudControl) CreateResource(_ context.Context, in *cloudcontrol.CreateResourceInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.CreateResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	typeName := aws.ToString(in.TypeName)
	var desired map[string]any
	if err := json.Unmarshal([]byte(aws.ToString(in.DesiredState)), &desired); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, ccCall{op: "create", typeName: typeName, desired: desired})
	if err := f.createErr[typeName]; err != nil {
		return nil, err
	}
	identifier := fmt.Sprintf("%s-%d", typeName, len(f.calls))
	return &cloudcontrol.CreateResourceOutput{ProgressEvent: f.event(cctypes.OperationCreate, typeName, identifier)}, nil
}

func (f *fakeCloudControl) DeleteResource(_ context.Context, in *cloudcontrol.DeleteResourceInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.DeleteResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	typeName := aws.ToString(in.TypeName)
	f.calls = append(f.calls, ccCall{op: "delete", typeName: typeName, id: aws.ToString(in.Identifier)})
	if err := f.deleteErr[typeName]; err != nil {
		return nil, err
	}
	return &cloudcontrol.DeleteResourceOutput{ProgressEvent: f.event(cctypes.OperationDelete, typeName, aws.ToString(in.Identifier))}, nil
}

func (f *fakeCloudControl) GetResource(_ context.Context, in *cloudcontrol.GetResourceInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(f.properties[aws.ToString(in.TypeName)])
	if err != nil {
		return nil, err
	}
	return &cloudcontrol.GetResourceOutput{
		TypeName: in.TypeName,
		ResourceDescription: &cctypes.ResourceDescription{
			Identifier: in.Identifier,
			Properties: aws.String(string(raw)),
		},
	}, nil
}

func (f *fakeCloudControl) GetResourceRequestStatus(_ context.Context, in *cloudcontrol.GetResourceRequestStatusInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceRequestStatusOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := aws.ToString(in.RequestToken)
	settled, ok := f.requests[token]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "RequestTokenNotFoundException", Message: token}
	}
	f.polls[token]++
	if f.polls[token] < f.pending {
		ev := *settled
		ev.OperationStatus = cctypes.OperationStatusInProgress
		return &cloudcontrol.GetResourceRequestStatusOutput{ProgressEvent: &ev}, nil
	}
	return &cloudcontrol.GetResourceRequestStatusOutput{ProgressEvent: settled}, nil
}

func (f *fakeCloudControl) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op + " " + c.typeName
	}
	return out
}

func (f *fakeCloudControl) desired(typeName string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.op == "create" && c.typeName == typeName {
			return c.desired
		}
	}
	return nil
}

func newTestProvisioner(client CloudControlAPI) *CloudControlProvisioner {
	return NewCloudControlProvisioner(client, testRegion, WithPolling(time.Millisecond, 5*time.Second))
}

func loadBalancerResource() *Resource {
	return &Resource{
		DeploymentID: "d-1",
		ID:           "loadBalancer",
		Kind:         graph.KindLoadBalancer,
		Config: map[string]any{
			"name":           "form-alb",
			"internetFacing": true,
			"listenerPort":   int64(80),
			"subnets":        []any{"subnet-1", "subnet-2"},
			"securityGroups": []any{"sg-1"},
			"originVerify":   map[string]any{"header": "X-Origin-Verify", "value": "v"},
		},
	}
}

func TestCloudControl_Create(t *testing.T) {
	client := newFakeCloudControl()
	client.properties["AWS::ElasticLoadBalancingV2::LoadBalancer"] = map[string]any{"DNSName": "form-alb-1.elb.amazonaws.com"}
	p := newTestProvisioner(client)

	attrs, err := p.Create(context.Background(), loadBalancerResource())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create AWS::ElasticLoadBalancingV2::LoadBalancer",
		"create AWS::ElasticLoadBalancingV2::Listener",
	}, client.ops())
	assert.Equal(t, "AWS::ElasticLoadBalancingV2::LoadBalancer-1", attrs["arn"])
	assert.Equal(t, "form-alb-1.elb.amazonaws.com", attrs["dnsName"])
	assert.Equal(t, "AWS::ElasticLoadBalancingV2::Listener-2", attrs["listenerArn"])

	lb := client.desired("AWS::ElasticLoadBalancingV2::LoadBalancer")
	assert.Equal(t, "internet-facing", lb["Scheme"])
	listener := client.desired("AWS::ElasticLoadBalancingV2::Listener")
	assert.Equal(t, attrs["arn"], listener["LoadBalancerArn"])
	actions := listener["DefaultActions"].([]any)
	fixed := actions[0].(map[string]any)["FixedResponseConfig"].(map[string]any)
	assert.Equal(t, "403", fixed["StatusCode"], "requests without the origin header are refused")
}

func TestCloudControl_CreatePolls(t *testing.T) {
	client := newFakeCloudControl()
	client.pending = 3
	p := newTestProvisioner(client)

	attrs, err := p.Create(context.Background(), &Resource{ID: "sg", Kind: graph.KindSecurityGroup, Config: map[string]any{"network": "vpc-1"}})
	require.NoError(t, err)
	assert.Equal(t, "AWS::EC2::SecurityGroup-1", attrs["id"])
	assert.Equal(t, 3, client.polls["request-1"])
}

func TestCloudControl_CreateRollsBack(t *testing.T) {
	client := newFakeCloudControl()
	client.properties["AWS::ElasticLoadBalancingV2::LoadBalancer"] = map[string]any{"DNSName": "form-alb-1.elb.amazonaws.com"}
	client.createErr["AWS::ElasticLoadBalancingV2::Listener"] = &smithy.GenericAPIError{Code: "InvalidRequestException", Message: "bad port"}
	p := newTestProvisioner(client)

	_, err := p.Create(context.Background(), loadBalancerResource())
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "InvalidRequestException", pe.Code)
	assert.False(t, graph.IsRetriable(err))
	assert.Equal(t, []string{
		"create AWS::ElasticLoadBalancingV2::LoadBalancer",
		"create AWS::ElasticLoadBalancingV2::Listener",
		"delete AWS::ElasticLoadBalancingV2::LoadBalancer",
	}, client.ops())
	assert.Equal(t, "AWS::ElasticLoadBalancingV2::LoadBalancer-1", client.calls[2].id, "the created load balancer is rolled back")
}

func TestCloudControl_FailedRequest(t *testing.T) {
	tests := []struct {
		name          string
		code          cctypes.HandlerErrorCode
		wantRetriable bool
	}{
		{name: "throttled", code: cctypes.HandlerErrorCodeThrottling, wantRetriable: true},
		{name: "conflict", code: cctypes.HandlerErrorCodeResourceConflict, wantRetriable: true},
		{name: "invalid request", code: cctypes.HandlerErrorCodeInvalidRequest, wantRetriable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeCloudControl()
			client.failCode["AWS::ECS::Cluster"] = tt.code
			p := newTestProvisioner(client)

			_, err := p.Create(context.Background(), &Resource{ID: "cluster", Kind: graph.KindCluster, Config: map[string]any{"name": "form"}})
			require.Error(t, err)
			assert.Equal(t, tt.wantRetriable, graph.IsRetriable(err))
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, string(tt.code), pe.Code)
		})
	}
}

func TestCloudControl_Delete(t *testing.T) {
	client := newFakeCloudControl()
	client.deleteErr["AWS::ElasticLoadBalancingV2::Listener"] = &smithy.GenericAPIError{Code: "ResourceNotFoundException"}
	p := newTestProvisioner(client)

	r := loadBalancerResource()
	r.Attributes = map[string]string{
		identifierKey("loadBalancer"): "arn:lb",
		identifierKey("listener"):     "arn:listener",
	}
	require.NoError(t, p.Delete(context.Background(), r), "missing resources count as deleted")
	assert.Equal(t, []string{
		"delete AWS::ElasticLoadBalancingV2::Listener",
		"delete AWS::ElasticLoadBalancingV2::LoadBalancer",
	}, client.ops())
	assert.Equal(t, "arn:lb", client.calls[1].id)
}

func TestCloudControl_Plans(t *testing.T) {
	client := newFakeCloudControl()
	p := newTestProvisioner(client)

	_, err := p.Create(context.Background(), &Resource{ID: "copy", Kind: graph.KindImageCopy})
	require.NoError(t, err)
	assert.Empty(t, client.ops(), "image copies have no Cloud Control resource")

	_, err = p.Create(context.Background(), &Resource{ID: "odd", Kind: "queue"})
	assert.ErrorContains(t, err, "not supported")
}

func TestCloudControl_Bucket(t *testing.T) {
	client := newFakeCloudControl()
	p := newTestProvisioner(client)

	_, err := p.Create(context.Background(), &Resource{ID: "imageBucket", Kind: graph.KindBucket, Config: map[string]any{
		"name":              "image-abc123",
		"enforceTLS":        true,
		"objectOwnership":   "ObjectWriter",
		"blockPublicAccess": "NONE",
		"publicActions":     []any{"s3:GetObject", "s3:PutObject", "s3:PutObjectAcl"},
		"cors":              []any{map[string]any{"allowedMethods": []any{"GET", "POST"}, "allowedOrigins": []any{"https://form.example.gov"}}},
	}})
	require.NoError(t, err)

	bucket := client.desired("AWS::S3::Bucket")
	assert.Equal(t, map[string]any{
		"BlockPublicAcls": false, "IgnorePublicAcls": false, "BlockPublicPolicy": false, "RestrictPublicBuckets": false,
	}, bucket["PublicAccessBlockConfiguration"])
	assert.Contains(t, bucket, "CorsConfiguration")

	policy := client.desired("AWS::S3::BucketPolicy")
	statements := policy["PolicyDocument"].(map[string]any)["Statement"].([]any)
	require.Len(t, statements, 2)
	assert.Equal(t, "Deny", statements[0].(map[string]any)["Effect"])
	assert.Equal(t, "arn:aws:s3:::image-abc123/*", statements[1].(map[string]any)["Resource"])
}

func TestCloudControl_Routing(t *testing.T) {
	tests := []struct {
		name   string
		r      *Resource
		ops    []string
		attrs  map[string]string
		routes map[string]any
	}{
		{
			name: "network",
			r:    &Resource{ID: "network", Kind: graph.KindNetwork, Config: map[string]any{"cidr": "10.0.0.0/16"}},
			ops: []string{
				"create AWS::EC2::VPC",
				"create AWS::EC2::InternetGateway",
				"create AWS::EC2::VPCGatewayAttachment",
				"create AWS::EC2::RouteTable",
				"create AWS::EC2::Route",
			},
			attrs: map[string]string{"id": "AWS::EC2::VPC-1", "publicRouteTable": "AWS::EC2::RouteTable-4"},
			routes: map[string]any{
				"RouteTableId":         "AWS::EC2::RouteTable-4",
				"DestinationCidrBlock": "0.0.0.0/0",
				"GatewayId":            "AWS::EC2::InternetGateway-2",
			},
		},
		{
			name: "public subnet",
			r: &Resource{ID: "publicSubnet1", Kind: graph.KindSubnet, Config: map[string]any{
				"network": "vpc-1", "availabilityZone": "ap-southeast-1a", "cidr": "10.0.0.0/18",
				"public": true, "routeTable": "rtb-public",
			}},
			ops: []string{
				"create AWS::EC2::Subnet",
				"create AWS::EC2::SubnetRouteTableAssociation",
				"create AWS::EC2::EIP",
				"create AWS::EC2::NatGateway",
			},
			attrs: map[string]string{"id": "AWS::EC2::Subnet-1", "natGateway": "AWS::EC2::NatGateway-4"},
		},
		{
			name: "private subnet",
			r: &Resource{ID: "privateSubnet1", Kind: graph.KindSubnet, Config: map[string]any{
				"network": "vpc-1", "availabilityZone": "ap-southeast-1a", "cidr": "10.0.128.0/18",
				"natGateway": "nat-1",
			}},
			ops: []string{
				"create AWS::EC2::Subnet",
				"create AWS::EC2::RouteTable",
				"create AWS::EC2::Route",
				"create AWS::EC2::SubnetRouteTableAssociation",
			},
			attrs: map[string]string{"id": "AWS::EC2::Subnet-1"},
			routes: map[string]any{
				"RouteTableId":         "AWS::EC2::RouteTable-2",
				"DestinationCidrBlock": "0.0.0.0/0",
				"NatGatewayId":         "nat-1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeCloudControl()
			client.properties["AWS::EC2::EIP"] = map[string]any{"AllocationId": "eipalloc-1"}
			p := newTestProvisioner(client)

			attrs, err := p.Create(context.Background(), tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.ops, client.ops())
			for k, v := range tt.attrs {
				assert.Equal(t, v, attrs[k], k)
			}
			if tt.routes != nil {
				assert.Equal(t, tt.routes, client.desired("AWS::EC2::Route"))
			}
		})
	}
}

func TestCloudControl_SubnetAssociations(t *testing.T) {
	client := newFakeCloudControl()
	client.properties["AWS::EC2::EIP"] = map[string]any{"AllocationId": "eipalloc-1"}
	p := newTestProvisioner(client)

	_, err := p.Create(context.Background(), &Resource{ID: "publicSubnet1", Kind: graph.KindSubnet, Config: map[string]any{
		"network": "vpc-1", "public": true, "routeTable": "rtb-public",
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"SubnetId": "AWS::EC2::Subnet-1", "RouteTableId": "rtb-public"},
		client.desired("AWS::EC2::SubnetRouteTableAssociation"))
	nat := client.desired("AWS::EC2::NatGateway")
	assert.Equal(t, "AWS::EC2::Subnet-1", nat["SubnetId"])
	assert.Equal(t, "eipalloc-1", nat["AllocationId"])
	assert.Contains(t, nat, "Tags")

	_, err = p.Create(context.Background(), &Resource{ID: "privateSubnet1", Kind: graph.KindSubnet, Config: map[string]any{"network": "vpc-1"}})
	assert.ErrorContains(t, err, "natGateway")
}

func TestCloudControl_Service(t *testing.T) {
	client := newFakeCloudControl()
	client.properties["AWS::IAM::Role"] = map[string]any{"Arn": "arn:aws:iam::123456789012:role/form"}
	client.properties["AWS::ECS::Service"] = map[string]any{"ServiceArn": "arn:aws:ecs:service/form"}
	p := newTestProvisioner(client)

	attrs, err := p.Create(context.Background(), &Resource{
		ID:   "app",
		Kind: graph.KindService,
		Config: map[string]any{
			"name":    "form",
			"cluster": "arn:aws:ecs:ap-southeast-1:123456789012:cluster/form-cluster",
			"port":    int64(5000),
			"loadBalancer": map[string]any{
				"listenerArn":  "arn:listener",
				"healthCheck":  map[string]any{"path": "/", "healthyHttpCodes": "200,403", "gracePeriodSeconds": int64(300)},
				"originVerify": map[string]any{"header": "X-Origin-Verify", "value": "v"},
			},
			"scaling": map[string]any{"minCapacity": int64(1), "maxCapacity": int64(2), "targetCpuPercent": int64(50)},
		},
		Environment: map[string]string{"APP_URL": "https://form.example.gov"},
		Secrets:     map[string]string{"SESSION_SECRET": "arn:secret:session"},
		Grants:      []graph.PolicyGrant{{Actions: []string{"s3:GetObject"}, Resource: "arn:aws:s3:::image/*"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:ecs:service/form", attrs["arn"])
	assert.Equal(t, "arn:aws:iam::123456789012:role/form", attrs["taskRoleArn"])

	rule := client.desired("AWS::ElasticLoadBalancingV2::ListenerRule")
	assert.Len(t, rule["Conditions"], 2, "the origin verify header is matched")

	target := client.desired("AWS::ApplicationAutoScaling::ScalableTarget")
	assert.Equal(t, "service/form-cluster/form", target["ResourceId"])

	task := client.desired("AWS::ECS::TaskDefinition")
	container := task["ContainerDefinitions"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{map[string]any{"Name": "SESSION_SECRET", "ValueFrom": "arn:secret:session"}}, container["Secrets"])
}

func TestClientToken(t *testing.T) {
	r := &Resource{DeploymentID: "d-1", ID: "app"}
	assert.Equal(t, clientToken(r, "service"), clientToken(r, "service"))
	assert.NotEqual(t, clientToken(r, "service"), clientToken(r, "taskRole"))
	assert.NotEqual(t, clientToken(r, "service"), clientToken(&Resource{DeploymentID: "d-2", ID: "app"}, "service"))
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "api error", err: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, want: true},
		{name: "handler error", err: &ProviderError{Code: "NotFound"}, want: true},
		{name: "wrapped", err: fmt.Errorf("delete: %w", &ProviderError{Code: "NotFound"}), want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestCloudControl_Tags(t *testing.T) {
	client := newFakeCloudControl()
	p := NewCloudControlProvisioner(client, testRegion,
		WithPolling(time.Millisecond, 5*time.Second),
		WithTags(metadata.NewDeploymentTagger("form")))

	_, err := p.Create(context.Background(), &Resource{
		DeploymentID: "d-1",
		ID:           "logoBucket",
		Kind:         graph.KindBucket,
		Config:       map[string]any{"name": "logo-abc123", "publicRead": true},
	})
	require.NoError(t, err)

	tags := map[string]string{}
	for _, tag := range client.desired("AWS::S3::Bucket")["Tags"].([]any) {
		kv := tag.(map[string]any)
		tags[kv["Key"].(string)] = kv["Value"].(string)
	}
	assert.Equal(t, "form", tags[metadata.DeploymentTag])
	assert.Equal(t, "d-1", tags[metadata.GraphIDTag])
	assert.Equal(t, "logoBucket", tags[metadata.NodeIDTag])
	assert.Equal(t, "bucket", tags[metadata.NodeKindTag])
	assert.True(t, metadata.IsOwned(tags))

	assert.NotContains(t, client.desired("AWS::S3::BucketPolicy"), "Tags")
}

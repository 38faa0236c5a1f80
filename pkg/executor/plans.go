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
	"fmt"
	"maps"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// step is one Cloud Control resource backing a node.
type step struct {
	name     string
	typeName string
	// properties renders the desired state. attrs holds what the earlier
	// steps of the same node produced.
	properties func(r *Resource, attrs map[string]string) (map[string]any, error)
	// outputs maps node attributes to properties of the created resource.
	// An empty property selects the primary identifier.
	outputs map[string]string
}

type planner func(region string, r *Resource) ([]step, error)

// Managed CloudFront policies.
const (
	cachePolicyOptimized      = "658327ea-f89d-4fab-a63d-7e88639e58f6"
	cachePolicyDisabled       = "4135ea2d-6df8-44a3-9df3-4b5a84be39ad"
	originRequestPolicyViewer = "216adef6-5c7f-47e4-b989-5492eafa07d3"
)

var (
	cachePolicies = map[string]string{
		"CACHING_OPTIMIZED": cachePolicyOptimized,
		"CACHING_DISABLED":  cachePolicyDisabled,
	}
	originRequestPolicies = map[string]string{
		"ALL_VIEWER": originRequestPolicyViewer,
	}
	allowedMethods = map[string][]string{
		"ALLOW_ALL":      {"GET", "HEAD", "OPTIONS", "PUT", "PATCH", "POST", "DELETE"},
		"ALLOW_GET_HEAD": {"GET", "HEAD"},
	}
)

const (
	policyVersion = "2012-10-17"
	anyIPv4       = "0.0.0.0/0"
)

// taggableTypes take a Tags list of Key/Value pairs.
var taggableTypes = sets.New(
	"AWS::CloudFront::Distribution",
	"AWS::DocDB::DBCluster",
	"AWS::DocDB::DBClusterParameterGroup",
	"AWS::DocDB::DBInstance",
	"AWS::DocDB::DBSubnetGroup",
	"AWS::EC2::EIP",
	"AWS::EC2::InternetGateway",
	"AWS::EC2::NatGateway",
	"AWS::EC2::RouteTable",
	"AWS::EC2::SecurityGroup",
	"AWS::EC2::Subnet",
	"AWS::EC2::VPC",
	"AWS::ECR::Repository",
	"AWS::ECS::Cluster",
	"AWS::ECS::Service",
	"AWS::ECS::TaskDefinition",
	"AWS::ElasticLoadBalancingV2::LoadBalancer",
	"AWS::ElasticLoadBalancingV2::TargetGroup",
	"AWS::IAM::Role",
	"AWS::Lambda::Function",
	"AWS::Logs::LogGroup",
	"AWS::S3::Bucket",
	"AWS::SecretsManager::Secret",
)

var planners = map[graph.Kind]planner{
	graph.KindNetwork:       planNetwork,
	graph.KindSubnet:        planSubnet,
	graph.KindSecurityGroup: single("securityGroup", "AWS::EC2::SecurityGroup", securityGroupProperties, map[string]string{"id": ""}),
	graph.KindIngressRule:   single("ingress", "AWS::EC2::SecurityGroupIngress", ingressProperties, map[string]string{"id": ""}),
	graph.KindSecret:        single("secret", "AWS::SecretsManager::Secret", secretProperties, map[string]string{"arn": ""}),
	graph.KindBucket:        planBucket,
	graph.KindRepository: single("repository", "AWS::ECR::Repository", named("RepositoryName"),
		map[string]string{"arn": "Arn", "uri": "RepositoryUri"}),
	// Cloud Control has no resource type for copying images between
	// registries; copies are pushed with registry tooling.
	graph.KindImageCopy:    func(string, *Resource) ([]step, error) { return nil, nil },
	graph.KindCluster:      single("cluster", "AWS::ECS::Cluster", named("ClusterName"), map[string]string{"arn": "Arn"}),
	graph.KindLogGroup:     single("logGroup", "AWS::Logs::LogGroup", named("LogGroupName"), map[string]string{"arn": "Arn"}),
	graph.KindLoadBalancer: planLoadBalancer,
	graph.KindService:      planService,
	graph.KindFunction:     planFunction,
	graph.KindSchedule:     planSchedule,
	graph.KindDatabase:     planDatabase,
	graph.KindDistribution: planDistribution,
}

func single(name, typeName string, props func(*Resource, map[string]string) (map[string]any, error), outputs map[string]string) planner {
	return func(string, *Resource) ([]step, error) {
		return []step{{name: name, typeName: typeName, properties: props, outputs: outputs}}, nil
	}
}

func named(property string) func(*Resource, map[string]string) (map[string]any, error) {
	return func(r *Resource, _ map[string]string) (map[string]any, error) {
		name, err := cfgRequired(r.Config, "name")
		if err != nil {
			return nil, err
		}
		return map[string]any{property: name}, nil
	}
}

func planNetwork(string, *Resource) ([]step, error) {
	return []step{
		{
			name:     "vpc",
			typeName: "AWS::EC2::VPC",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				return map[string]any{
					"CidrBlock":          cfgString(r.Config, "cidr"),
					"EnableDnsHostnames": true,
					"EnableDnsSupport":   true,
				}, nil
			},
			outputs: map[string]string{"id": ""},
		},
		{
			name:     "internetGateway",
			typeName: "AWS::EC2::InternetGateway",
			properties: func(*Resource, map[string]string) (map[string]any, error) {
				return map[string]any{}, nil
			},
		},
		{
			name:     "gatewayAttachment",
			typeName: "AWS::EC2::VPCGatewayAttachment",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"VpcId":             attrs["id"],
					"InternetGatewayId": attrs[identifierKey("internetGateway")],
				}, nil
			},
		},
		{
			name:     "publicRouteTable",
			typeName: "AWS::EC2::RouteTable",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{"VpcId": attrs["id"]}, nil
			},
			outputs: map[string]string{"publicRouteTable": ""},
		},
		{
			// Created after the attachment: a route to a detached gateway
			// is rejected.
			name:     "internetRoute",
			typeName: "AWS::EC2::Route",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"RouteTableId":         attrs["publicRouteTable"],
					"DestinationCidrBlock": anyIPv4,
					"GatewayId":            attrs[identifierKey("internetGateway")],
				}, nil
			},
		},
	}, nil
}

// planSubnet creates the subnet and its routing. A public subnet joins the
// network's public route table and hosts a NAT gateway. A private subnet
// gets its own route table sending outbound traffic to the NAT gateway of
// the public subnet in its zone.
func planSubnet(_ string, r *Resource) ([]step, error) {
	steps := []step{{name: "subnet", typeName: "AWS::EC2::Subnet", properties: subnetProperties, outputs: map[string]string{"id": ""}}}
	if cfgBool(r.Config, "public") {
		routeTable, err := cfgRequired(r.Config, "routeTable")
		if err != nil {
			return nil, err
		}
		return append(steps,
			associationStep(func(map[string]string) string { return routeTable }),
			step{
				name:     "natAddress",
				typeName: "AWS::EC2::EIP",
				properties: func(*Resource, map[string]string) (map[string]any, error) {
					return map[string]any{"Domain": "vpc"}, nil
				},
				outputs: map[string]string{"natAllocation": "AllocationId"},
			},
			step{
				name:     "natGateway",
				typeName: "AWS::EC2::NatGateway",
				properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
					return map[string]any{
						"SubnetId":     attrs["id"],
						"AllocationId": attrs["natAllocation"],
					}, nil
				},
				outputs: map[string]string{"natGateway": ""},
			},
		), nil
	}
	natGateway, err := cfgRequired(r.Config, "natGateway")
	if err != nil {
		return nil, err
	}
	return append(steps,
		step{
			name:     "routeTable",
			typeName: "AWS::EC2::RouteTable",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				return map[string]any{"VpcId": cfgString(r.Config, "network")}, nil
			},
		},
		step{
			name:     "natRoute",
			typeName: "AWS::EC2::Route",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"RouteTableId":         attrs[identifierKey("routeTable")],
					"DestinationCidrBlock": anyIPv4,
					"NatGatewayId":         natGateway,
				}, nil
			},
		},
		associationStep(func(attrs map[string]string) string { return attrs[identifierKey("routeTable")] }),
	), nil
}

func associationStep(routeTable func(attrs map[string]string) string) step {
	return step{
		name:     "routeTableAssociation",
		typeName: "AWS::EC2::SubnetRouteTableAssociation",
		properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
			return map[string]any{
				"SubnetId":     attrs["id"],
				"RouteTableId": routeTable(attrs),
			}, nil
		},
	}
}

func subnetProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	return map[string]any{
		"VpcId":               cfgString(r.Config, "network"),
		"AvailabilityZone":    cfgString(r.Config, "availabilityZone"),
		"CidrBlock":           cfgString(r.Config, "cidr"),
		"MapPublicIpOnLaunch": cfgBool(r.Config, "public"),
	}, nil
}

func securityGroupProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	return map[string]any{
		"GroupDescription": cfgString(r.Config, "description"),
		"VpcId":            cfgString(r.Config, "network"),
	}, nil
}

func ingressProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	port := cfgInt(r.Config, "port")
	props := map[string]any{
		"GroupId":    cfgString(r.Config, "securityGroup"),
		"IpProtocol": cfgString(r.Config, "protocol"),
		"FromPort":   port,
		"ToPort":     port,
	}
	if source := cfgString(r.Config, "source"); strings.Contains(source, "/") {
		props["CidrIp"] = source
	} else {
		props["SourceSecurityGroupId"] = source
	}
	return props, nil
}

func secretProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	return map[string]any{
		"Name":         cfgString(r.Config, "name"),
		"SecretString": cfgString(r.Config, "value"),
	}, nil
}

func planBucket(string, *Resource) ([]step, error) {
	return []step{
		{name: "bucket", typeName: "AWS::S3::Bucket", properties: bucketProperties},
		{name: "policy", typeName: "AWS::S3::BucketPolicy", properties: bucketPolicyProperties},
	}, nil
}

func bucketProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	props := map[string]any{
		"BucketName": cfgString(r.Config, "name"),
		"OwnershipControls": map[string]any{
			"Rules": []any{map[string]any{"ObjectOwnership": cfgString(r.Config, "objectOwnership")}},
		},
	}
	if cfgBool(r.Config, "versioned") {
		props["VersioningConfiguration"] = map[string]any{"Status": "Enabled"}
	}
	switch cfgString(r.Config, "blockPublicAccess") {
	case "BLOCK_ALL":
		props["PublicAccessBlockConfiguration"] = publicAccessBlock(true, true)
	case "BLOCK_ACLS":
		props["PublicAccessBlockConfiguration"] = publicAccessBlock(true, false)
	default:
		props["PublicAccessBlockConfiguration"] = publicAccessBlock(false, false)
	}
	var rules []any
	for _, c := range cfgList(r.Config, "cors") {
		rule, _ := c.(map[string]any)
		rules = append(rules, map[string]any{
			"AllowedMethods": cfgList(rule, "allowedMethods"),
			"AllowedOrigins": cfgList(rule, "allowedOrigins"),
		})
	}
	if len(rules) > 0 {
		props["CorsConfiguration"] = map[string]any{"CorsRules": rules}
	}
	return props, nil
}

func publicAccessBlock(acls, policy bool) map[string]any {
	return map[string]any{
		"BlockPublicAcls":       acls,
		"IgnorePublicAcls":      acls,
		"BlockPublicPolicy":     policy,
		"RestrictPublicBuckets": policy,
	}
}

func bucketPolicyProperties(r *Resource, _ map[string]string) (map[string]any, error) {
	name := cfgString(r.Config, "name")
	arn := graph.BucketARN(name)
	statements := []any{}
	if cfgBool(r.Config, "enforceTLS") {
		statements = append(statements, map[string]any{
			"Effect":    "Deny",
			"Principal": map[string]any{"AWS": "*"},
			"Action":    "s3:*",
			"Resource":  []string{arn, arn + "/*"},
			"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
		})
	}
	actions := cfgList(r.Config, "publicActions")
	if len(actions) == 0 && cfgBool(r.Config, "publicRead") {
		actions = []any{"s3:GetObject"}
	}
	if len(actions) > 0 {
		statements = append(statements, map[string]any{
			"Effect":    "Allow",
			"Principal": map[string]any{"AWS": "*"},
			"Action":    actions,
			"Resource":  arn + "/*",
		})
	}
	return map[string]any{
		"Bucket":         name,
		"PolicyDocument": map[string]any{"Version": policyVersion, "Statement": statements},
	}, nil
}

func planLoadBalancer(string, *Resource) ([]step, error) {
	return []step{
		{
			name:     "loadBalancer",
			typeName: "AWS::ElasticLoadBalancingV2::LoadBalancer",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				scheme := "internal"
				if cfgBool(r.Config, "internetFacing") {
					scheme = "internet-facing"
				}
				return map[string]any{
					"Name":           cfgString(r.Config, "name"),
					"Type":           "application",
					"Scheme":         scheme,
					"Subnets":        cfgList(r.Config, "subnets"),
					"SecurityGroups": cfgList(r.Config, "securityGroups"),
				}, nil
			},
			outputs: map[string]string{"arn": "", "dnsName": "DNSName"},
		},
		{
			name:     "listener",
			typeName: "AWS::ElasticLoadBalancingV2::Listener",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				// Requests that match no service rule, including those
				// missing the origin verify header, are refused.
				status := "404"
				if cfgMap(r.Config, "originVerify") != nil {
					status = "403"
				}
				return map[string]any{
					"LoadBalancerArn": attrs["arn"],
					"Port":            cfgInt(r.Config, "listenerPort"),
					"Protocol":        "HTTP",
					"DefaultActions": []any{map[string]any{
						"Type":                "fixed-response",
						"FixedResponseConfig": map[string]any{"StatusCode": status},
					}},
				}, nil
			},
			outputs: map[string]string{"listenerArn": ""},
		},
	}, nil
}

// role renders an IAM role assumable by service carrying the grants of r.
func role(service string, managed ...string) func(*Resource, map[string]string) (map[string]any, error) {
	return func(r *Resource, _ map[string]string) (map[string]any, error) {
		props := map[string]any{
			"AssumeRolePolicyDocument": map[string]any{
				"Version": policyVersion,
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": service},
					"Action":    "sts:AssumeRole",
				}},
			},
		}
		if len(managed) > 0 {
			props["ManagedPolicyArns"] = managed
		}
		if len(r.Grants) > 0 {
			statements := make([]any, len(r.Grants))
			for i, g := range r.Grants {
				statements[i] = map[string]any{"Effect": "Allow", "Action": g.Actions, "Resource": g.Resource}
			}
			props["Policies"] = []any{map[string]any{
				"PolicyName":     "storage",
				"PolicyDocument": map[string]any{"Version": policyVersion, "Statement": statements},
			}}
		}
		return props, nil
	}
}

// executionRole may read the secrets delivered to the task.
func executionRole(r *Resource, _ map[string]string) (map[string]any, error) {
	props := map[string]any{
		"AssumeRolePolicyDocument": map[string]any{
			"Version": policyVersion,
			"Statement": []any{map[string]any{
				"Effect":    "Allow",
				"Principal": map[string]any{"Service": "ecs-tasks.amazonaws.com"},
				"Action":    "sts:AssumeRole",
			}},
		},
		"ManagedPolicyArns": []string{"arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy"},
	}
	if len(r.Secrets) > 0 {
		arns := slices.Sorted(maps.Values(r.Secrets))
		props["Policies"] = []any{map[string]any{
			"PolicyName": "secrets",
			"PolicyDocument": map[string]any{
				"Version": policyVersion,
				"Statement": []any{map[string]any{
					"Effect":   "Allow",
					"Action":   "secretsmanager:GetSecretValue",
					"Resource": slices.Compact(arns),
				}},
			},
		}}
	}
	return props, nil
}

func nameValues(m map[string]string, valueKey string) []any {
	out := make([]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, map[string]any{"Name": k, valueKey: m[k]})
	}
	return out
}

// lastSegment returns what follows the final "/" of an ARN.
func lastSegment(arn string) string {
	return arn[strings.LastIndex(arn, "/")+1:]
}

func planService(region string, r *Resource) ([]step, error) {
	name, err := cfgRequired(r.Config, "name")
	if err != nil {
		return nil, err
	}
	lb := cfgMap(r.Config, "loadBalancer")
	health := cfgMap(lb, "healthCheck")
	scaling := cfgMap(r.Config, "scaling")
	logging := cfgMap(r.Config, "logging")
	port := cfgInt(r.Config, "port")

	return []step{
		{
			name:       "taskRole",
			typeName:   "AWS::IAM::Role",
			properties: role("ecs-tasks.amazonaws.com"),
			outputs:    map[string]string{"taskRoleArn": "Arn"},
		},
		{
			name:       "executionRole",
			typeName:   "AWS::IAM::Role",
			properties: executionRole,
			outputs:    map[string]string{"executionRoleArn": "Arn"},
		},
		{
			name:     "targetGroup",
			typeName: "AWS::ElasticLoadBalancingV2::TargetGroup",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				return map[string]any{
					"Port":            port,
					"Protocol":        "HTTP",
					"TargetType":      "ip",
					"VpcId":           cfgString(r.Config, "network"),
					"HealthCheckPath": cfgString(health, "path"),
					"Matcher":         map[string]any{"HttpCode": cfgString(health, "healthyHttpCodes")},
				}, nil
			},
			outputs: map[string]string{"targetGroupArn": ""},
		},
		{
			name:     "listenerRule",
			typeName: "AWS::ElasticLoadBalancingV2::ListenerRule",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				conditions := []any{map[string]any{
					"Field":             "path-pattern",
					"PathPatternConfig": map[string]any{"Values": []string{"/*"}},
				}}
				if verify := cfgMap(lb, "originVerify"); verify != nil {
					conditions = append(conditions, map[string]any{
						"Field": "http-header",
						"HttpHeaderConfig": map[string]any{
							"HttpHeaderName": cfgString(verify, "header"),
							"Values":         []string{cfgString(verify, "value")},
						},
					})
				}
				return map[string]any{
					"ListenerArn": cfgString(lb, "listenerArn"),
					"Priority":    1,
					"Conditions":  conditions,
					"Actions":     []any{map[string]any{"Type": "forward", "TargetGroupArn": attrs["targetGroupArn"]}},
				}, nil
			},
		},
		{
			name:     "taskDefinition",
			typeName: "AWS::ECS::TaskDefinition",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				container := map[string]any{
					"Name":         "web",
					"Image":        cfgString(r.Config, "image"),
					"Essential":    true,
					"PortMappings": []any{map[string]any{"ContainerPort": port, "HostPort": port}},
					"Environment":  nameValues(r.Environment, "Value"),
					"Secrets":      nameValues(r.Secrets, "ValueFrom"),
					"LogConfiguration": map[string]any{
						"LogDriver": "awslogs",
						"Options": map[string]any{
							"awslogs-group":         cfgString(logging, "logGroup"),
							"awslogs-stream-prefix": cfgString(logging, "streamPrefix"),
							"awslogs-region":        region,
						},
					},
				}
				return map[string]any{
					"Family":                  name,
					"Cpu":                     fmt.Sprint(cfgInt(r.Config, "cpu")),
					"Memory":                  fmt.Sprint(cfgInt(r.Config, "memory")),
					"NetworkMode":             "awsvpc",
					"RequiresCompatibilities": []string{"FARGATE"},
					"TaskRoleArn":             attrs["taskRoleArn"],
					"ExecutionRoleArn":        attrs["executionRoleArn"],
					"ContainerDefinitions":    []any{container},
				}, nil
			},
			outputs: map[string]string{"taskDefinitionArn": ""},
		},
		{
			name:     "service",
			typeName: "AWS::ECS::Service",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"ServiceName":                   name,
					"Cluster":                       cfgString(r.Config, "cluster"),
					"TaskDefinition":                attrs["taskDefinitionArn"],
					"LaunchType":                    "FARGATE",
					"DesiredCount":                  cfgInt(scaling, "minCapacity"),
					"HealthCheckGracePeriodSeconds": cfgInt(health, "gracePeriodSeconds"),
					"NetworkConfiguration": map[string]any{
						"AwsvpcConfiguration": map[string]any{
							"AssignPublicIp": "DISABLED",
							"Subnets":        cfgList(r.Config, "subnets"),
							"SecurityGroups": cfgList(r.Config, "securityGroups"),
						},
					},
					"LoadBalancers": []any{map[string]any{
						"ContainerName":  "web",
						"ContainerPort":  port,
						"TargetGroupArn": attrs["targetGroupArn"],
					}},
				}, nil
			},
			outputs: map[string]string{"arn": "ServiceArn"},
		},
		{
			name:     "scalableTarget",
			typeName: "AWS::ApplicationAutoScaling::ScalableTarget",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				return map[string]any{
					"ServiceNamespace":  "ecs",
					"ScalableDimension": "ecs:service:DesiredCount",
					"ResourceId":        "service/" + lastSegment(cfgString(r.Config, "cluster")) + "/" + name,
					"MinCapacity":       cfgInt(scaling, "minCapacity"),
					"MaxCapacity":       cfgInt(scaling, "maxCapacity"),
				}, nil
			},
		},
		{
			name:     "scalingPolicy",
			typeName: "AWS::ApplicationAutoScaling::ScalingPolicy",
			properties: func(_ *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"PolicyName":      name + "-cpu",
					"PolicyType":      "TargetTrackingScaling",
					"ScalingTargetId": attrs[identifierKey("scalableTarget")],
					"TargetTrackingScalingPolicyConfiguration": map[string]any{
						"TargetValue":      cfgInt(scaling, "targetCpuPercent"),
						"ScaleInCooldown":  cfgInt(scaling, "scaleInCooldownSeconds"),
						"ScaleOutCooldown": cfgInt(scaling, "scaleOutCooldownSeconds"),
						"PredefinedMetricSpecification": map[string]any{
							"PredefinedMetricType": "ECSServiceAverageCPUUtilization",
						},
					},
				}, nil
			},
		},
	}, nil
}

func planFunction(string, *Resource) ([]step, error) {
	return []step{
		{
			name:       "role",
			typeName:   "AWS::IAM::Role",
			properties: role("lambda.amazonaws.com", "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
			outputs:    map[string]string{"roleArn": "Arn"},
		},
		{
			name:     "function",
			typeName: "AWS::Lambda::Function",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				props := map[string]any{
					"FunctionName": cfgString(r.Config, "name"),
					"PackageType":  "Image",
					"Code":         map[string]any{"ImageUri": cfgString(r.Config, "image")},
					"Role":         attrs["roleArn"],
					"Timeout":      cfgInt(r.Config, "timeoutSeconds"),
					"MemorySize":   cfgInt(r.Config, "memory"),
				}
				if len(r.Environment) > 0 {
					props["Environment"] = map[string]any{"Variables": r.Environment}
				}
				return props, nil
			},
			outputs: map[string]string{"arn": "Arn"},
		},
	}, nil
}

func planSchedule(string, *Resource) ([]step, error) {
	return []step{
		{
			name:     "rule",
			typeName: "AWS::Events::Rule",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				target := map[string]any{"Id": "target", "Arn": cfgString(r.Config, "target")}
				if input := cfgString(r.Config, "input"); input != "" {
					target["Input"] = input
				}
				return map[string]any{
					"ScheduleExpression": cfgString(r.Config, "rate"),
					"State":              "ENABLED",
					"Targets":            []any{target},
				}, nil
			},
			outputs: map[string]string{"arn": "Arn"},
		},
		{
			name:     "permission",
			typeName: "AWS::Lambda::Permission",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"FunctionName": cfgString(r.Config, "target"),
					"Action":       "lambda:InvokeFunction",
					"Principal":    "events.amazonaws.com",
					"SourceArn":    attrs["arn"],
				}, nil
			},
		},
	}, nil
}

func planDatabase(_ string, r *Resource) ([]step, error) {
	pg := cfgMap(r.Config, "parameterGroup")
	steps := []step{
		{
			name:     "subnetGroup",
			typeName: "AWS::DocDB::DBSubnetGroup",
			properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
				return map[string]any{
					"DBSubnetGroupDescription": "Subnets of " + r.ID,
					"SubnetIds":                cfgList(r.Config, "subnets"),
				}, nil
			},
		},
		{
			name:     "parameterGroup",
			typeName: "AWS::DocDB::DBClusterParameterGroup",
			properties: func(*Resource, map[string]string) (map[string]any, error) {
				return map[string]any{
					"Name":        cfgString(pg, "name"),
					"Family":      cfgString(pg, "family"),
					"Description": "Cluster parameters",
					"Parameters":  cfgMap(pg, "parameters"),
				}, nil
			},
		},
		{
			name:     "cluster",
			typeName: "AWS::DocDB::DBCluster",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"MasterUsername":              cfgString(r.Config, "user"),
					"MasterUserPassword":          cfgString(r.Config, "password"),
					"Port":                        cfgInt(r.Config, "port"),
					"EngineVersion":               cfgString(r.Config, "engineVersion"),
					"DBSubnetGroupName":           attrs[identifierKey("subnetGroup")],
					"DBClusterParameterGroupName": attrs[identifierKey("parameterGroup")],
					"VpcSecurityGroupIds":         cfgList(r.Config, "securityGroups"),
					"StorageEncrypted":            true,
				}, nil
			},
			outputs: map[string]string{"endpoint": "Endpoint"},
		},
	}
	for i := range cfgInt(r.Config, "instances") {
		steps = append(steps, step{
			name:     fmt.Sprintf("instance%d", i+1),
			typeName: "AWS::DocDB::DBInstance",
			properties: func(r *Resource, attrs map[string]string) (map[string]any, error) {
				return map[string]any{
					"DBClusterIdentifier": attrs[identifierKey("cluster")],
					"DBInstanceClass":     cfgString(r.Config, "instanceType"),
				}, nil
			},
		})
	}
	return steps, nil
}

func planDistribution(region string, _ *Resource) ([]step, error) {
	return []step{{
		name:     "distribution",
		typeName: "AWS::CloudFront::Distribution",
		properties: func(r *Resource, _ map[string]string) (map[string]any, error) {
			return map[string]any{"DistributionConfig": distributionConfig(region, r.Config)}, nil
		},
		outputs: map[string]string{"id": "", "domainName": "DomainName"},
	}}, nil
}

const originID = "origin"

// TODO: request an ACM certificate for aliases and set ViewerCertificate.
func distributionConfig(region string, c map[string]any) map[string]any {
	origin := cfgMap(c, "origin")
	var headers []any
	custom := cfgMap(origin, "customHeaders")
	for _, name := range slices.Sorted(maps.Keys(custom)) {
		headers = append(headers, map[string]any{"HeaderName": name, "HeaderValue": custom[name]})
	}
	protocol := "http-only"
	if cfgString(origin, "protocolPolicy") == "HTTPS_ONLY" {
		protocol = "https-only"
	}
	o := map[string]any{
		"Id":                  originID,
		"DomainName":          cfgString(origin, "domainName"),
		"CustomOriginConfig":  map[string]any{"OriginProtocolPolicy": protocol},
		"OriginCustomHeaders": headers,
	}
	if cfgBool(origin, "originShield") {
		o["OriginShield"] = map[string]any{"Enabled": true, "OriginShieldRegion": region}
	}

	var behaviors []any
	for _, b := range cfgList(c, "behaviors") {
		m, _ := b.(map[string]any)
		cb := cacheBehavior(m)
		cb["PathPattern"] = cfgString(m, "pathPattern")
		behaviors = append(behaviors, cb)
	}
	out := map[string]any{
		"Enabled":              true,
		"Origins":              []any{o},
		"DefaultCacheBehavior": cacheBehavior(cfgMap(c, "defaultBehavior")),
	}
	if len(behaviors) > 0 {
		out["CacheBehaviors"] = behaviors
	}
	if aliases := cfgList(c, "aliases"); len(aliases) > 0 {
		out["Aliases"] = aliases
	}
	return out
}

func cacheBehavior(b map[string]any) map[string]any {
	viewer := "allow-all"
	if cfgString(b, "viewerProtocolPolicy") == "REDIRECT_TO_HTTPS" {
		viewer = "redirect-to-https"
	}
	out := map[string]any{
		"TargetOriginId":       originID,
		"ViewerProtocolPolicy": viewer,
		"CachePolicyId":        cachePolicies[cfgString(b, "cachePolicy")],
		"AllowedMethods":       allowedMethods[cfgString(b, "allowedMethods")],
	}
	if id, ok := originRequestPolicies[cfgString(b, "originRequestPolicy")]; ok {
		out["OriginRequestPolicyId"] = id
	}
	return out
}

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
	"maps"
	"strings"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

const (
	IDCluster      = "cluster"
	IDApp          = "app"
	IDAppLogGroup  = "appLogGroup"
	IDLoadBalancer = "loadBalancer"

	// DefaultAppImage is the application image served by default.
	DefaultAppImage = "opengovsg/formsg-intl"
	AppPort         = 5000

	// OriginVerifyHeader carries the shared secret the edge layer adds to
	// every origin request.
	OriginVerifyHeader = "X-Origin-Verify"
)

// service is the shape of one workload declared through declareService.
type service struct {
	id     string
	name   string
	image  string
	port   int64
	cpu    int64
	memory int64

	// env holds the defaults, parameters and generated layers.
	env     map[string]map[string]any
	secrets map[string]any

	capability graph.Capability
	scanner    string

	securityGroup string
	loadBalancer  string
	logGroup      string
	streamPrefix  string
	health        HealthCheck

	// verifyOrigin only forwards requests carrying the origin verify
	// header, when the edge layer is enabled.
	verifyOrigin bool
}

// declareService declares a service on the shared cluster, registered
// behind its load balancer, and opens the database to it.
func (b *builder) declareService(s service) {
	env := map[string]any{}
	for layer, values := range s.env {
		if len(values) > 0 {
			env[layer] = maps.Clone(values)
		}
	}
	lb := map[string]any{
		"listenerArn":   ref(s.loadBalancer, "listenerArn"),
		"containerPort": s.port,
		"healthCheck":   s.health.config(),
	}
	if s.verifyOrigin && !b.cfg.DisableCDN {
		lb["originVerify"] = originVerify()
	}
	logging := map[string]any{
		"logGroup":     ref(s.logGroup, "name"),
		"streamPrefix": s.streamPrefix,
	}
	config := map[string]any{
		"name":           s.name,
		"cluster":        ref(IDCluster, "arn"),
		"network":        ref(IDNetwork, "id"),
		"image":          s.image,
		"port":           s.port,
		"cpu":            s.cpu,
		"memory":         s.memory,
		"loadBalancer":   lb,
		"logging":        logging,
		"scaling":        b.cfg.Scaling.config(),
		"securityGroups": []string{ref(s.securityGroup, "id")},
		"subnets":        b.subnetRefs(false),
		"environment":    env,
		"capability":     string(s.capability),
		"bucketBindings": bindings(s.capability),
	}
	if len(s.secrets) > 0 {
		config["secrets"] = s.secrets
	}
	if s.scanner != "" {
		config["scanner"] = s.scanner
	}
	b.add(graph.ResourceSpec{ID: s.id, Kind: graph.KindService, Config: config})
	b.allowDatabase(s.id, s.securityGroup)
}

func (b *builder) logGroup(id, name string) {
	b.add(graph.ResourceSpec{
		ID:     id,
		Kind:   graph.KindLogGroup,
		Config: map[string]any{"name": b.suffixed(name, "/")},
	})
}

// cluster declares the shared cluster and the public load balancer in
// front of the application.
func (b *builder) cluster() {
	b.add(graph.ResourceSpec{
		ID:     IDCluster,
		Kind:   graph.KindCluster,
		Config: map[string]any{"name": "form", "network": ref(IDNetwork, "id")},
	})

	lb := map[string]any{
		"name":           "form-alb",
		"internetFacing": true,
		"subnets":        b.subnetRefs(true),
		"securityGroups": []string{ref(IDLoadBalancerSecurityGroup, "id")},
		"listenerPort":   int64(httpPort),
	}
	if !b.cfg.DisableCDN {
		lb["originVerify"] = originVerify()
	}
	b.add(graph.ResourceSpec{ID: IDLoadBalancer, Kind: graph.KindLoadBalancer, Config: lb})
	b.ingress("appIngress", IDAppSecurityGroup, IDLoadBalancerSecurityGroup, AppPort)
}

// application declares the form application service.
func (b *builder) application() {
	b.logGroup(IDAppLogGroup, "/aws/ecs/logs/form")

	url := b.publicURL()
	generated := map[string]any{
		"APP_URL":    url,
		"FE_APP_URL": url,
	}
	maps.Copy(generated, bucketEnvironment())
	maps.Copy(generated, b.scannerEnvironment())

	defaults := make(map[string]any, len(b.cfg.Environment))
	for k, v := range b.cfg.Environment {
		defaults[k] = v
	}

	b.declareService(service{
		id:     IDApp,
		name:   "form",
		image:  b.cfg.AppImage,
		port:   AppPort,
		cpu:    512,
		memory: 1024,
		env: map[string]map[string]any{
			graph.EnvLayerDefaults: defaults,
			graph.EnvLayerParameters: {
				"MAIL_FROM":             param(ParamEmail),
				"MAIL_OFFICIAL":         param(ParamEmail),
				"SES_HOST":              param(ParamSESHost),
				"SES_PORT":              param(ParamSESPort),
				"INIT_AGENCY_DOMAIN":    param(ParamInitAgencyDomain),
				"INIT_AGENCY_FULLNAME":  param(ParamInitAgencyFullName),
				"INIT_AGENCY_SHORTNAME": param(ParamInitAgencyShortname),
				"GOOGLE_CAPTCHA_PUBLIC": param(ParamGoogleCaptchaPublic),
			},
			graph.EnvLayerGenerated: generated,
		},
		secrets: map[string]any{
			"DB_HOST":        ref(IDDBConnString, "arn"),
			"SESSION_SECRET": ref(IDSessionSecret, "arn"),
			"SES_USER":       ref(IDSESUser, "arn"),
			"SES_PASS":       ref(IDSESPass, "arn"),
			"GOOGLE_CAPTCHA": ref(IDGoogleCaptcha, "arn"),
		},
		capability:    graph.CapabilityApplication,
		scanner:       IDScanner,
		securityGroup: IDAppSecurityGroup,
		loadBalancer:  IDLoadBalancer,
		logGroup:      IDAppLogGroup,
		streamPrefix:  "form",
		health:        AppHealthCheck,
		verifyOrigin:  true,
	})
}

func originVerify() map[string]any {
	return map[string]any{
		"header": OriginVerifyHeader,
		"value":  ref(IDOriginVerify, "value"),
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

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
	"time"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

const (
	IDScanner             = "scanner"
	IDScannerWarmer       = "scannerWarmer"
	IDScannerLogGroup     = "scannerLogGroup"
	IDScannerLoadBalancer = "scannerLoadBalancer"

	// ScannerServiceImage runs the scanner as a long-lived service.
	ScannerServiceImage = "opengovsg/lambda-virus-scanner:latest-ecs"
	ScannerPort         = 8080
)

// scanner declares the virus scanner for the configured backend. The
// application always reaches it through scannerEnvironment.
func (b *builder) scanner() {
	env := map[string]any{
		"VIRUS_SCANNER_QUARANTINE_S3_BUCKET": ref(IDQuarantineBucket, "name"),
		"VIRUS_SCANNER_CLEAN_S3_BUCKET":      ref(IDCleanBucket, "name"),
	}

	switch backend := b.cfg.Scanner.(type) {
	case FunctionBackend:
		b.add(graph.ResourceSpec{
			ID:   IDScanner,
			Kind: graph.KindFunction,
			Config: map[string]any{
				"name":           "virus-scanner",
				"image":          ref(IDScannerImageCopy, "image"),
				"timeoutSeconds": int64(300),
				"memory":         int64(2048),
				"environment":    map[string]any{graph.EnvLayerGenerated: env},
				"capability":     string(graph.CapabilityScanner),
				"bucketBindings": bindings(graph.CapabilityScanner),
			},
		})
		b.add(graph.ResourceSpec{
			ID:   IDScannerWarmer,
			Kind: graph.KindSchedule,
			Config: map[string]any{
				"target": ref(IDScanner, "arn"),
				"rate":   rateExpression(backend.WarmInterval),
				"input":  `{"warmer":true}`,
			},
		})

	case ServiceBackend:
		b.securityGroup(IDScannerSecurityGroup, "Virus scanner tasks")
		b.securityGroup(IDScannerLoadBalancerSecurityGroup, "Allows the application to reach the virus scanner")
		b.ingress("scannerLoadBalancerIngress", IDScannerLoadBalancerSecurityGroup, IDAppSecurityGroup, httpPort)
		b.ingress("scannerIngress", IDScannerSecurityGroup, IDScannerLoadBalancerSecurityGroup, ScannerPort)
		b.add(graph.ResourceSpec{
			ID:   IDScannerLoadBalancer,
			Kind: graph.KindLoadBalancer,
			Config: map[string]any{
				"name":           "virus-scanner-alb",
				"internetFacing": false,
				"subnets":        b.subnetRefs(false),
				"securityGroups": []string{ref(IDScannerLoadBalancerSecurityGroup, "id")},
				"listenerPort":   int64(httpPort),
			},
		})
		b.logGroup(IDScannerLogGroup, "/aws/ecs/logs/virus-scanner")
		b.declareService(service{
			id:     IDScanner,
			name:   "virus-scanner",
			image:  ScannerServiceImage,
			port:   ScannerPort,
			cpu:    1024,
			memory: 2048,
			env: map[string]map[string]any{
				graph.EnvLayerDefaults:  {"NODE_ENV": "production"},
				graph.EnvLayerGenerated: env,
			},
			capability:    graph.CapabilityScanner,
			securityGroup: IDScannerSecurityGroup,
			loadBalancer:  IDScannerLoadBalancer,
			logGroup:      IDScannerLogGroup,
			streamPrefix:  "virus-scanner",
			health:        ScannerHealthCheck,
		})
	}
}

// scannerEnvironment returns the entries the application uses to reach
// the scanner.
func (b *builder) scannerEnvironment() map[string]any {
	if _, ok := b.cfg.Scanner.(FunctionBackend); ok {
		return map[string]any{"VIRUS_SCANNER_LAMBDA_FUNCTION_NAME": ref(IDScanner, "name")}
	}
	return map[string]any{"VIRUS_SCANNER_LAMBDA_ENDPOINT": ref(IDScannerLoadBalancer, "url")}
}

// rateExpression renders d, a whole number of minutes, as a schedule rate.
func rateExpression(d time.Duration) string {
	n := int64(d / time.Minute)
	if n == 1 {
		return "rate(1 minute)"
	}
	return fmt.Sprintf("rate(%d minutes)", n)
}

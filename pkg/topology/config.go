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

// Package topology declares the resources of a FormSG deployment: storage,
// registries, network, database, compute and edge. It only declares
// specs; the graph composer resolves them.
package topology

import (
	"errors"
	"fmt"
	"time"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// MaxAvailabilityZones caps the zones the network spans.
const MaxAvailabilityZones = 2

// Config selects the shape of a deployment. It is passed by value and never
// read from global state.
type Config struct {
	Profile graph.Profile

	// AvailabilityZones to spread subnets over. Only the first
	// MaxAvailabilityZones are used.
	AvailabilityZones []string

	// Scanner selects the virus scanner backend. Defaults to ServiceBackend.
	Scanner ScannerBackend

	// Domain selects how the public URL is formed. Defaults to
	// GeneratedDomain.
	Domain EdgeDomain
	// DisableCDN serves the application straight from its load balancer.
	DisableCDN bool

	// DisableSuffix drops the random suffix from bucket and log group names.
	// Only one such deployment can exist per account.
	DisableSuffix bool

	// Scaling applies to every service. Defaults to DefaultScaling.
	Scaling ScalingPolicy

	// AppImage overrides the application image.
	AppImage string

	// Environment replaces the static default environment of the
	// application. Defaults to DefaultEnvironment().
	Environment map[string]string
}

// ScannerBackend is either FunctionBackend or ServiceBackend.
type ScannerBackend interface {
	isScannerBackend()
}

// FunctionBackend runs the scanner as a function kept warm by a schedule.
type FunctionBackend struct {
	// WarmInterval is the schedule rate. Defaults to DefaultWarmInterval.
	WarmInterval time.Duration
}

// ServiceBackend runs the scanner as a container service behind an
// internal load balancer.
type ServiceBackend struct{}

func (FunctionBackend) isScannerBackend() {}
func (ServiceBackend) isScannerBackend()  {}

// DefaultWarmInterval keeps the scanner function warm.
const DefaultWarmInterval = 3 * time.Minute

// EdgeDomain is either GeneratedDomain or CustomDomain.
type EdgeDomain interface {
	isEdgeDomain()
}

// GeneratedDomain serves the application on the domain the CDN assigns.
type GeneratedDomain struct{}

// CustomDomain serves the application on Name.
type CustomDomain struct {
	Name string
}

func (GeneratedDomain) isEdgeDomain() {}
func (CustomDomain) isEdgeDomain()    {}

// ScalingPolicy is the CPU target tracking policy of a service.
type ScalingPolicy struct {
	MinCapacity      int64
	MaxCapacity      int64
	TargetCPUPercent int64
	ScaleInCooldown  time.Duration
	ScaleOutCooldown time.Duration
}

// DefaultScaling is shared by every service of the deployment.
var DefaultScaling = ScalingPolicy{
	MinCapacity:      1,
	MaxCapacity:      2,
	TargetCPUPercent: 50,
	ScaleInCooldown:  60 * time.Second,
	ScaleOutCooldown: 60 * time.Second,
}

func (p ScalingPolicy) config() map[string]any {
	return map[string]any{
		"minCapacity":             p.MinCapacity,
		"maxCapacity":             p.MaxCapacity,
		"targetCpuPercent":        p.TargetCPUPercent,
		"scaleInCooldownSeconds":  int64(p.ScaleInCooldown / time.Second),
		"scaleOutCooldownSeconds": int64(p.ScaleOutCooldown / time.Second),
	}
}

// HealthCheck is the load balancer health check of a service.
type HealthCheck struct {
	Path             string
	HealthyHTTPCodes string
	GracePeriod      time.Duration
}

var (
	// AppHealthCheck accepts 403, which the application answers on auth
	// gated routes.
	AppHealthCheck = HealthCheck{Path: "/", HealthyHTTPCodes: "200,403", GracePeriod: 300 * time.Second}
	// ScannerHealthCheck accepts 404, the scanner has no root route.
	ScannerHealthCheck = HealthCheck{Path: "/", HealthyHTTPCodes: "200,404"}
)

func (h HealthCheck) config() map[string]any {
	return map[string]any{
		"path":               h.Path,
		"healthyHttpCodes":   h.HealthyHTTPCodes,
		"gracePeriodSeconds": int64(h.GracePeriod / time.Second),
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.Profile == "" {
		c.Profile = graph.ProfileDev
	}
	if c.Profile != graph.ProfileDev && c.Profile != graph.ProfileProd {
		return c, fmt.Errorf("unknown profile %q", c.Profile)
	}
	if len(c.AvailabilityZones) == 0 {
		return c, errors.New("at least one availability zone is required")
	}
	if len(c.AvailabilityZones) > MaxAvailabilityZones {
		c.AvailabilityZones = c.AvailabilityZones[:MaxAvailabilityZones]
	}
	if c.Scanner == nil {
		c.Scanner = ServiceBackend{}
	}
	if fb, ok := c.Scanner.(FunctionBackend); ok && fb.WarmInterval == 0 {
		c.Scanner = FunctionBackend{WarmInterval: DefaultWarmInterval}
	}
	if fb, ok := c.Scanner.(FunctionBackend); ok && (fb.WarmInterval < time.Minute || fb.WarmInterval%time.Minute != 0) {
		return c, fmt.Errorf("warm interval %s is not a whole number of minutes", fb.WarmInterval)
	}
	if c.Domain == nil {
		c.Domain = GeneratedDomain{}
	}
	if cd, ok := c.Domain.(CustomDomain); ok && cd.Name == "" {
		return c, errors.New("custom domain needs a name")
	}
	if c.DisableCDN {
		if _, custom := c.Domain.(CustomDomain); custom {
			return c, errors.New("a custom domain needs the CDN")
		}
	}
	if c.Scaling == (ScalingPolicy{}) {
		c.Scaling = DefaultScaling
	}
	if c.AppImage == "" {
		c.AppImage = DefaultAppImage
	}
	if c.Environment == nil {
		c.Environment = DefaultEnvironment()
	}
	return c, nil
}

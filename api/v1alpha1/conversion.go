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

package v1alpha1

import (
	"strconv"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

// ParameterValues returns the raw parameter values the spec supplies,
// keyed by parameter name. Unset parameters are left out so their
// defaults apply.
func (s *DeploymentSpec) ParameterValues() map[string]string {
	p := s.Parameters
	values := map[string]string{}
	set := func(name, v string) {
		if v != "" {
			values[name] = v
		}
	}
	set(topology.ParamEmail, p.Email)
	set(topology.ParamInitAgencyDomain, p.InitAgencyDomain)
	set(topology.ParamInitAgencyFullName, p.InitAgencyFullName)
	set(topology.ParamInitAgencyShortname, p.InitAgencyShortname)
	set(topology.ParamSESHost, p.SESHost)
	if p.SESPort != nil {
		set(topology.ParamSESPort, strconv.FormatInt(*p.SESPort, 10))
	}
	set(topology.ParamSESUser, p.SESUser)
	set(topology.ParamSESPass, p.SESPass)
	set(topology.ParamGoogleCaptcha, p.GoogleCaptcha)
	set(topology.ParamGoogleCaptchaPublic, p.GoogleCaptchaPublic)
	set(topology.ParamDomainName, p.DomainName)
	return values
}

// ToConfig converts the spec into a topology config. zones are used when
// the spec names no availability zones.
func (s *DeploymentSpec) ToConfig(zones []string) topology.Config {
	cfg := topology.Config{
		Profile:           graph.Profile(s.Profile),
		AvailabilityZones: s.AvailabilityZones,
		Domain:            topology.DomainFromParameters(s.ParameterValues()),
		DisableCDN:        s.DisableCDN,
		DisableSuffix:     s.DisableSuffix,
		AppImage:          s.AppImage,
		Environment:       s.Environment,
	}
	if len(cfg.AvailabilityZones) == 0 {
		cfg.AvailabilityZones = zones
	}

	switch s.Scanner.Backend {
	case ScannerBackendFunction:
		fb := topology.FunctionBackend{}
		if s.Scanner.WarmInterval != nil {
			fb.WarmInterval = s.Scanner.WarmInterval.Duration
		}
		cfg.Scanner = fb
	case ScannerBackendService:
		cfg.Scanner = topology.ServiceBackend{}
	}

	if sc := s.Scaling; sc != nil {
		cfg.Scaling = topology.ScalingPolicy{
			MinCapacity:      sc.MinCapacity,
			MaxCapacity:      sc.MaxCapacity,
			TargetCPUPercent: sc.TargetCPUPercent,
			ScaleInCooldown:  sc.ScaleInCooldown.Duration,
			ScaleOutCooldown: sc.ScaleOutCooldown.Duration,
		}
	}
	return cfg
}

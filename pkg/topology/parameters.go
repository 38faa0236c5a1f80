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

// Parameter names.
const (
	ParamEmail               = "email"
	ParamInitAgencyDomain    = "initAgencyDomain"
	ParamInitAgencyFullName  = "initAgencyFullName"
	ParamInitAgencyShortname = "initAgencyShortname"
	ParamSESHost             = "sesHost"
	ParamSESPort             = "sesPort"
	ParamSESUser             = "sesUser"
	ParamSESPass             = "sesPass"
	ParamGoogleCaptcha       = "googleCaptcha"
	ParamGoogleCaptchaPublic = "googleCaptchaPublic"
	ParamDomainName          = "domainName"
)

// reCAPTCHA test keys published by Google for automated tests.
const (
	testCaptchaSecret = "6LeIxAcTAAAAAGG-vFI1TnRWxMZNFuojJ4WifJWe"
	testCaptchaPublic = "6LeIxAcTAAAAAJcZVRqyHh71UMIEGNQ_MXjiZKhI"
)

// Parameters returns the inputs of a deployment.
func Parameters() map[string]graph.Parameter {
	params := []graph.Parameter{
		{Name: ParamEmail, Type: graph.ParameterTypeString,
			Description: "OTP emails will be sent bearing this email address as the sender."},
		{Name: ParamInitAgencyDomain, Type: graph.ParameterTypeString,
			Description: "The fully-qualified domain name (FQDN) of the initial agency."},
		{Name: ParamInitAgencyFullName, Type: graph.ParameterTypeString,
			Description: "The full name of the initial agency."},
		{Name: ParamInitAgencyShortname, Type: graph.ParameterTypeString,
			Description: "The shortname of the initial agency."},
		{Name: ParamSESHost, Type: graph.ParameterTypeString, Default: graph.StringPtr("email-smtp.ap-southeast-1.amazonaws.com"),
			Description: "The FQDN of the SMTP host, or of Simple Email Service (SES)."},
		{Name: ParamSESPort, Type: graph.ParameterTypeNumber, Default: graph.StringPtr("465"),
			Description: "The port of the SMTP host or SES."},
		{Name: ParamSESUser, Type: graph.ParameterTypeSecret,
			Description: "The SMTP user for SES."},
		{Name: ParamSESPass, Type: graph.ParameterTypeSecret,
			Description: "The SMTP password for SES."},
		{Name: ParamGoogleCaptcha, Type: graph.ParameterTypeSecret, Default: graph.StringPtr(testCaptchaSecret),
			Description: "The secret key used for reCAPTCHA."},
		{Name: ParamGoogleCaptchaPublic, Type: graph.ParameterTypeString, Default: graph.StringPtr(testCaptchaPublic),
			Description: "The public key used for reCAPTCHA."},
		{Name: ParamDomainName, Type: graph.ParameterTypeString, Default: graph.StringPtr(""),
			Description: "Custom domain to serve the application on. Empty uses the CDN domain."},
	}
	out := make(map[string]graph.Parameter, len(params))
	for _, p := range params {
		out[p.Name] = p
	}
	return out
}

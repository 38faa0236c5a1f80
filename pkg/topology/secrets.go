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

const (
	IDSuffix        = "suffix"
	IDDBPassword    = "ddbPassword"
	IDSessionSecret = "sessionSecret"
	IDGoogleCaptcha = "googleCaptcha"
	IDSESUser       = "sesUser"
	IDSESPass       = "sesPass"
	IDOriginVerify  = "originVerify"
)

const (
	// passwordExclusions keeps generated credentials safe to embed in
	// connection strings and shell environments.
	passwordExclusions = "/¥'%:{}"
	// suffixExclusions additionally drops characters bucket names reject.
	suffixExclusions = "/¥'%:{}-_[]()"
	suffixLength     = 6
)

func secretSpec(id, name string, config map[string]any) graph.ResourceSpec {
	config["name"] = name
	return graph.ResourceSpec{ID: id, Kind: graph.KindSecret, Config: config}
}

func generatedPassword() map[string]any {
	return map[string]any{
		"generate": map[string]any{
			"excludePunctuation": true,
			"excludeCharacters":  passwordExclusions,
		},
	}
}

func (b *builder) secrets() {
	if !b.cfg.DisableSuffix {
		b.add(secretSpec(IDSuffix, "suffix-secret", map[string]any{
			// The suffix ends up in resource names, it is not a credential.
			"sensitive": false,
			"generate": map[string]any{
				"length":             suffixLength,
				"excludePunctuation": true,
				"excludeUppercase":   true,
				"excludeCharacters":  suffixExclusions,
			},
		}))
	}
	b.add(secretSpec(IDDBPassword, "ddb-password", generatedPassword()))
	b.add(secretSpec(IDSessionSecret, "session-secret", generatedPassword()))
	b.add(secretSpec(IDOriginVerify, "origin-verify", generatedPassword()))

	b.add(secretSpec(IDGoogleCaptcha, "google-captcha", map[string]any{"value": param(ParamGoogleCaptcha)}))
	b.add(secretSpec(IDSESUser, "ses-user", map[string]any{"value": param(ParamSESUser)}))
	b.add(secretSpec(IDSESPass, "ses-pass", map[string]any{"value": param(ParamSESPass)}))
}

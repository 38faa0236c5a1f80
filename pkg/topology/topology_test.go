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
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/secrets"
)

var zones = []string{"ap-southeast-1a", "ap-southeast-1b", "ap-southeast-1c"}

func parameterValues() map[string]string {
	return map[string]string{
		ParamEmail:               "admin@form.example.gov",
		ParamInitAgencyDomain:    "agency.example.gov",
		ParamInitAgencyFullName:  "Example Agency",
		ParamInitAgencyShortname: "exa",
		ParamSESUser:             "AKIAEXAMPLESESUSER",
		ParamSESPass:             "ses-pass-Zx81kQ02mv",
	}
}

func compose(t *testing.T, cfg Config) *graph.DeploymentGraph {
	t.Helper()
	if cfg.AvailabilityZones == nil {
		cfg.AvailabilityZones = zones
	}
	g, err := Compose(cfg, parameterValues(), graph.WithSecretGenerator(secrets.NewSeededGenerator(42)))
	require.NoError(t, err)
	return g
}

func node(t *testing.T, g *graph.DeploymentGraph, id string) *graph.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s", id)
	return n
}

func bucketName(t *testing.T, g *graph.DeploymentGraph, id string) string {
	t.Helper()
	name, ok := node(t, g, id).Attributes["name"].(string)
	require.True(t, ok)
	return name
}

func TestBuild(t *testing.T) {
	specs, err := Build(Config{AvailabilityZones: zones})
	require.NoError(t, err)

	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	assert.Subset(t, ids, []string{"publicSubnet1", "publicSubnet2", "privateSubnet1", "privateSubnet2"})
	assert.NotContains(t, ids, "publicSubnet3", "zones are capped at two")
	assert.Contains(t, ids, IDScannerLoadBalancer, "the scanner defaults to a service")
	assert.Contains(t, ids, IDDistribution)
	assert.Equal(t, IDSuffix, ids[0], "secrets come first")
}

func TestBuild_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "no zones", cfg: Config{}, want: "availability zone"},
		{name: "unknown profile", cfg: Config{AvailabilityZones: zones, Profile: "staging"}, want: "unknown profile"},
		{name: "empty custom domain", cfg: Config{AvailabilityZones: zones, Domain: CustomDomain{}}, want: "needs a name"},
		{
			name: "custom domain without cdn",
			cfg:  Config{AvailabilityZones: zones, Domain: CustomDomain{Name: "forms.example.gov"}, DisableCDN: true},
			want: "needs the CDN",
		},
		{
			name: "fractional warm interval",
			cfg:  Config{AvailabilityZones: zones, Scanner: FunctionBackend{WarmInterval: 90 * time.Second}},
			want: "whole number of minutes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompose_ApplicationEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		backend     ScannerBackend
		scannerKey  string
		scannerWant func(g *graph.DeploymentGraph) string
	}{
		{
			name:       "service backend",
			backend:    ServiceBackend{},
			scannerKey: "VIRUS_SCANNER_LAMBDA_ENDPOINT",
			scannerWant: func(*graph.DeploymentGraph) string {
				return "http://" + graph.AttributeToken(IDScannerLoadBalancer, "dnsName")
			},
		},
		{
			name:       "function backend",
			backend:    FunctionBackend{},
			scannerKey: "VIRUS_SCANNER_LAMBDA_FUNCTION_NAME",
			scannerWant: func(*graph.DeploymentGraph) string {
				return "virus-scanner"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compose(t, Config{Scanner: tt.backend})
			env := node(t, g, IDApp).Environment

			for _, key := range []string{
				"APP_URL", "FE_APP_URL", "MAIL_FROM", "MAIL_OFFICIAL", "SES_HOST", "SES_PORT",
				"INIT_AGENCY_DOMAIN", "INIT_AGENCY_FULLNAME", "INIT_AGENCY_SHORTNAME", "GOOGLE_CAPTCHA_PUBLIC",
			} {
				assert.Contains(t, env, key)
			}
			assert.Equal(t, "admin@form.example.gov", env["MAIL_FROM"])
			assert.Equal(t, "465", env["SES_PORT"])
			assert.Equal(t, tt.scannerWant(g), env[tt.scannerKey])
			for _, p := range BucketProfiles() {
				assert.Equal(t, bucketName(t, g, p.ID), env[p.EnvKey], p.EnvKey)
			}
			assert.Equal(t, "Form", env["APP_NAME"], "static defaults are kept")
		})
	}
}

func TestCompose_ApplicationSecrets(t *testing.T) {
	g := compose(t, Config{})
	app := node(t, g, IDApp)

	assert.Equal(t, map[string]string{
		"DB_HOST":        graph.AttributeToken(IDDBConnString, "arn"),
		"SESSION_SECRET": graph.AttributeToken(IDSessionSecret, "arn"),
		"SES_USER":       graph.AttributeToken(IDSESUser, "arn"),
		"SES_PASS":       graph.AttributeToken(IDSESPass, "arn"),
		"GOOGLE_CAPTCHA": graph.AttributeToken(IDGoogleCaptcha, "arn"),
	}, app.Secrets)

	for key, value := range app.Environment {
		assert.NotContains(t, value, "ses-pass-Zx81kQ02mv", key)
		assert.NotContains(t, value, "mongodb://", key)
	}
	assert.NotContains(t, app.Environment, "DB_HOST")
	assert.NotContains(t, app.Environment, "GOOGLE_CAPTCHA")

	conn, ok := g.Value(IDDBConnString + ".value")
	require.True(t, ok)
	assert.True(t, conn.Sensitive)
	assert.Contains(t, conn.Value, graph.AttributeToken(IDDatabase, "endpoint")+":27017/form?replicaSet=rs0")
}

func TestCompose_PublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "generated domain", cfg: Config{}, want: "https://" + graph.AttributeToken(IDDistribution, "domainName")},
		{name: "custom domain", cfg: Config{Domain: CustomDomain{Name: "forms.example.gov"}}, want: "https://forms.example.gov"},
		{name: "no cdn", cfg: Config{DisableCDN: true}, want: "http://" + graph.AttributeToken(IDLoadBalancer, "dnsName")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compose(t, tt.cfg)
			assert.Equal(t, map[string]string{OutputURL: tt.want}, g.Outputs)

			env := node(t, g, IDApp).Environment
			assert.Equal(t, tt.want, env["APP_URL"])
			assert.Equal(t, tt.want, env["FE_APP_URL"])
		})
	}
}

func TestCompose_PutObjectACL(t *testing.T) {
	g := compose(t, Config{})
	acl := []string{}
	for _, grant := range node(t, g, IDApp).Grants {
		if slices.Contains(grant.Actions, "s3:PutObjectAcl") {
			acl = append(acl, grant.Resource)
		}
	}
	assert.ElementsMatch(t, []string{
		graph.BucketARN(bucketName(t, g, IDImageBucket)) + "/*",
		graph.BucketARN(bucketName(t, g, IDLogoBucket)) + "/*",
	}, acl)
}

func TestCompose_GrantIsolation(t *testing.T) {
	for _, backend := range []ScannerBackend{ServiceBackend{}, FunctionBackend{}} {
		g := compose(t, Config{Scanner: backend})

		appBuckets := []string{}
		for _, id := range []string{IDAttachmentBucket, IDImageBucket, IDLogoBucket, IDPaymentProofBucket} {
			appBuckets = append(appBuckets, graph.BucketARN(bucketName(t, g, id))+"/*")
		}
		scanner := node(t, g, IDScanner)
		require.NotEmpty(t, scanner.Grants)
		for _, grant := range scanner.Grants {
			assert.NotContains(t, appBuckets, grant.Resource)
		}

		quarantine := graph.BucketARN(bucketName(t, g, IDQuarantineBucket)) + "/*"
		for _, grant := range node(t, g, IDApp).Grants {
			if grant.Resource == quarantine {
				assert.Equal(t, []string{"s3:PutObject"}, grant.Actions)
			}
		}
	}
}

func TestCompose_IdenticalScaling(t *testing.T) {
	g := compose(t, Config{Scanner: ServiceBackend{}})
	want := map[string]any{
		"minCapacity":             int64(1),
		"maxCapacity":             int64(2),
		"targetCpuPercent":        int64(50),
		"scaleInCooldownSeconds":  int64(60),
		"scaleOutCooldownSeconds": int64(60),
	}
	assert.Equal(t, want, node(t, g, IDApp).Config["scaling"])
	assert.Equal(t, want, node(t, g, IDScanner).Config["scaling"])
}

func TestCompose_HealthChecks(t *testing.T) {
	g := compose(t, Config{Scanner: ServiceBackend{}})
	codes := func(id string) any {
		lb := node(t, g, id).Config["loadBalancer"].(map[string]any)
		return lb["healthCheck"].(map[string]any)["healthyHttpCodes"]
	}
	assert.Equal(t, "200,403", codes(IDApp))
	assert.Equal(t, "200,404", codes(IDScanner))
}

func TestCompose_DatabaseIngress(t *testing.T) {
	tests := []struct {
		name    string
		backend ScannerBackend
		rules   []string
	}{
		{name: "service backend", backend: ServiceBackend{}, rules: []string{"databaseIngressApp", "databaseIngressScanner"}},
		{name: "function backend", backend: FunctionBackend{}, rules: []string{"databaseIngressApp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compose(t, Config{Scanner: tt.backend})
			var rules []string
			for _, n := range g.Nodes {
				if n.Kind != graph.KindIngressRule {
					continue
				}
				if n.Config["securityGroup"] == graph.AttributeToken(IDDatabaseSecurityGroup, "id") {
					rules = append(rules, n.ID)
					assert.Equal(t, int64(DatabasePort), n.Config["port"])
				}
			}
			assert.ElementsMatch(t, tt.rules, rules)
		})
	}
}

func TestCompose_SubnetRouting(t *testing.T) {
	g := compose(t, Config{})

	for i := 1; i <= MaxAvailabilityZones; i++ {
		public := node(t, g, subnetID(true, i))
		assert.Equal(t, graph.AttributeToken(IDNetwork, "publicRouteTable"), public.Config["routeTable"])
		assert.Equal(t, graph.AttributeToken(public.ID, "natGateway"), public.Attributes["natGateway"])

		private := node(t, g, subnetID(false, i))
		assert.Equal(t, graph.AttributeToken(public.ID, "natGateway"), private.Config["natGateway"])
		assert.Contains(t, private.Dependencies, public.ID, "private subnets route through the public subnet of their zone")
		assert.NotContains(t, private.Attributes, "natGateway")
	}
}

func TestCompose_FunctionBackend(t *testing.T) {
	g := compose(t, Config{Scanner: FunctionBackend{}})

	scanner := node(t, g, IDScanner)
	assert.Equal(t, graph.KindFunction, scanner.Kind)
	assert.Equal(t, graph.AttributeToken(IDScannerRepository, "uri")+":latest", scanner.Config["image"])

	warmer := node(t, g, IDScannerWarmer)
	assert.Equal(t, "rate(3 minutes)", warmer.Config["rate"])
	assert.Equal(t, graph.AttributeToken(IDScanner, "arn"), warmer.Config["target"])

	_, ok := g.Node(IDScannerLoadBalancer)
	assert.False(t, ok)
}

func TestCompose_BucketNames(t *testing.T) {
	g := compose(t, Config{})
	suffix, ok := g.Value(IDSuffix + ".value")
	require.True(t, ok)
	assert.False(t, suffix.Sensitive)
	assert.Len(t, suffix.Value, suffixLength)

	for _, p := range BucketProfiles() {
		assert.Equal(t, p.LogicalName+"-"+suffix.Value.(string), bucketName(t, g, p.ID))
	}
	assert.Equal(t, "/aws/ecs/logs/form/"+suffix.Value.(string), node(t, g, IDAppLogGroup).Attributes["name"])

	plain := compose(t, Config{DisableSuffix: true})
	_, ok = plain.Node(IDSuffix)
	assert.False(t, ok)
	for _, p := range BucketProfiles() {
		assert.Equal(t, p.LogicalName, bucketName(t, plain, p.ID))
	}
}

func TestCompose_Lifecycle(t *testing.T) {
	tests := []struct {
		profile graph.Profile
		data    graph.Lifecycle
	}{
		{profile: graph.ProfileDev, data: graph.LifecycleDestroy},
		{profile: graph.ProfileProd, data: graph.LifecycleRetain},
	}
	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			g := compose(t, Config{Profile: tt.profile})
			for _, n := range g.Nodes {
				want := graph.LifecycleDestroy
				if n.Kind == graph.KindBucket || n.Kind == graph.KindDatabase {
					want = tt.data
				}
				assert.Equal(t, want, n.Lifecycle, n.ID)
			}
		})
	}
}

func TestCompose_OriginVerify(t *testing.T) {
	g := compose(t, Config{})
	header, ok := g.Value(IDOriginVerify + ".value")
	require.True(t, ok)

	lb := node(t, g, IDLoadBalancer).Config["originVerify"].(map[string]any)
	assert.Equal(t, OriginVerifyHeader, lb["header"])
	assert.Equal(t, header.Value, lb["value"])

	origin := node(t, g, IDDistribution).Config["origin"].(map[string]any)
	assert.Equal(t, header.Value, origin["customHeaders"].(map[string]any)[OriginVerifyHeader])

	redacted, ok := g.Redact().Node(IDLoadBalancer)
	require.True(t, ok)
	assert.Equal(t, graph.RedactedValue, redacted.Config["originVerify"].(map[string]any)["value"])
}

func TestCompose_Deterministic(t *testing.T) {
	a := compose(t, Config{})
	b := compose(t, Config{})
	assert.Equal(t, a.Outputs, b.Outputs)
	assert.Equal(t, a.Values, b.Values)
	assert.Equal(t, a.Order(), b.Order())
}

func TestDomainFromParameters(t *testing.T) {
	assert.Equal(t, GeneratedDomain{}, DomainFromParameters(map[string]string{}))
	assert.Equal(t, CustomDomain{Name: "forms.example.gov"}, DomainFromParameters(map[string]string{ParamDomainName: "forms.example.gov"}))
}

func TestRateExpression(t *testing.T) {
	assert.Equal(t, "rate(1 minute)", rateExpression(time.Minute))
	assert.Equal(t, "rate(3 minutes)", rateExpression(DefaultWarmInterval))
	assert.Equal(t, "rate(60 minutes)", rateExpression(time.Hour))
}

func TestDefaultEnvironment(t *testing.T) {
	env := DefaultEnvironment()
	assert.NotContains(t, env, "GOOGLE_CAPTCHA", "the captcha secret is delivered as a secret")
	assert.Equal(t, "function", env["VIRUS_SCANNER_LAMBDA_FUNCTION_NAME"])

	env["APP_NAME"] = "changed"
	assert.Equal(t, "Form", DefaultEnvironment()["APP_NAME"])
}

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

package command_test

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/command"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

func newRoot(args ...string) (*command.CLI, *cobra.Command) {
	cli := command.NewCLI(view.ViewHuman, &bytes.Buffer{}, nil, view.LogLevelSilent)
	root := command.NewRootCommand(cli)
	command.AddCommands(root, cli)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	return cli, root
}

func TestNewRootCommand(t *testing.T) {
	cmd := command.NewRootCommand(command.NewCLI(view.ViewHuman, &bytes.Buffer{}, nil, view.LogLevelSilent))

	assert.Equal(t, "formsg", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotEmpty(t, cmd.Version)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.CompletionOptions.DisableDefaultCmd)
}

func TestNewRootCommand_Flags(t *testing.T) {
	cmd := command.NewRootCommand(command.NewCLI(view.ViewHuman, &bytes.Buffer{}, nil, view.LogLevelSilent))

	for _, name := range []string{"output", "debug", "region", "aws-profile", "parallelism", "metrics-file", "feature-gates"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	flag := cmd.PersistentFlags().Lookup("output")
	assert.Equal(t, "", flag.DefValue)
	assert.Equal(t, "Output format. One of: (human | json)", flag.Usage)
	assert.Equal(t, flag, cmd.PersistentFlags().ShorthandLookup("o"))
}

func TestNewRootCommand_VersionFlag(t *testing.T) {
	cmd := command.NewRootCommand(command.NewCLI(view.ViewHuman, &bytes.Buffer{}, nil, view.LogLevelSilent))
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), cmd.Version)
}

func TestAddCommands(t *testing.T) {
	cli := command.NewCLI(view.ViewHuman, &bytes.Buffer{}, nil, view.LogLevelSilent)
	root := command.NewRootCommand(cli)
	command.AddCommands(root, cli)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"version", "validate", "compose", "order", "apply", "destroy"}, names)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "formsg version")
}

func TestSettings_FromFlags(t *testing.T) {
	cli, root := newRoot("version", "-o", "json", "--region", "eu-west-1", "--aws-profile", "ops",
		"--parallelism", "3", "--metrics-file", "metrics.prom", "--debug")

	require.NoError(t, root.Execute())
	assert.Equal(t, "json", cli.Settings.Output)
	assert.Equal(t, "eu-west-1", cli.Settings.Region)
	assert.Equal(t, "ops", cli.Settings.AWSProfile)
	assert.Equal(t, 3, cli.Settings.Parallelism)
	assert.Equal(t, "metrics.prom", cli.Settings.MetricsFile)
	assert.Equal(t, view.LogLevelDebug, cli.Settings.LogLevel)
	assert.IsType(t, &view.JSONView{}, cli.Viewer)
}

func TestSettings_FromEnvironment(t *testing.T) {
	t.Setenv("FORMSG_REGION", "us-east-1")
	t.Setenv("FORMSG_AWS_PROFILE", "ci")
	t.Setenv("FORMSG_PARALLELISM", "8")
	t.Setenv("FORMSG_LOG", "warn")
	t.Setenv("FORMSG_SES_PASS", "from-env")
	t.Setenv("FORMSG_GOOGLE_CAPTCHA", "captcha-from-env")

	cli, root := newRoot("version", "--region", "eu-west-1")

	require.NoError(t, root.Execute())
	assert.Equal(t, "eu-west-1", cli.Settings.Region, "flags win over the environment")
	assert.Equal(t, "ci", cli.Settings.AWSProfile)
	assert.Equal(t, 8, cli.Settings.Parallelism)
	assert.Equal(t, view.LogLevelWarn, cli.Settings.LogLevel)
	assert.Equal(t, map[string]string{
		topology.ParamSESPass:       "from-env",
		topology.ParamGoogleCaptcha: "captcha-from-env",
	}, cli.Settings.SecretParameters)
}

func TestSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "output", args: []string{"version", "-o", "yaml"}, wantErr: "unknown output format"},
		{name: "parallelism", args: []string{"version", "--parallelism=-1"}, wantErr: "parallelism must not be negative"},
		{name: "feature gate", args: []string{"version", "--feature-gates", "NoSuchGate=true"}, wantErr: "NoSuchGate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

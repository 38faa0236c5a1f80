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

package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/release-utils/version"

	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
	"github.com/opengovsg/formsg-on-cdk/pkg/features"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

// EnvPrefix prefixes the environment variables every flag can be set from,
// e.g. FORMSG_REGION for --region.
const EnvPrefix = "FORMSG"

// Settings are the global options shared by every subcommand.
type Settings struct {
	Output      string
	LogLevel    view.LogLevel
	Region      string
	AWSProfile  string
	Parallelism int
	MetricsFile string

	// SecretParameters are parameter values read from the environment
	// rather than the deployment document, keyed by parameter name.
	SecretParameters map[string]string
}

// secretParameters can be supplied as FORMSG_SES_USER and so on.
var secretParameters = map[string]string{
	"ses-user":       topology.ParamSESUser,
	"ses-pass":       topology.ParamSESPass,
	"google-captcha": topology.ParamGoogleCaptcha,
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadSettings(v *viper.Viper) (Settings, error) {
	s := Settings{
		Output:           v.GetString("output"),
		LogLevel:         view.ParseLogLevel(v.GetString("log")),
		Region:           v.GetString("region"),
		AWSProfile:       v.GetString("aws-profile"),
		Parallelism:      v.GetInt("parallelism"),
		MetricsFile:      v.GetString("metrics-file"),
		SecretParameters: map[string]string{},
	}
	if v.GetBool("debug") {
		s.LogLevel = view.LogLevelDebug
	}
	if s.Parallelism < 0 {
		return s, fmt.Errorf("parallelism must not be negative, got %d", s.Parallelism)
	}
	for key, param := range secretParameters {
		if value := v.GetString(key); value != "" {
			s.SecretParameters[param] = value
		}
	}
	return s, nil
}

func NewRootCommand(cli *CLI) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use: "formsg",
		Short: color.RGB(50, 108, 229).Sprintf("formsg [global options] <subcommand> [args]") + "\n" +
			"A CLI utility for composing and provisioning FormSG deployments on AWS",
		Long: color.RGB(50, 108, 229).Sprintf("Usage: formsg [global options] <subcommand> [args]\n") + "\n" +
			"formsg composes a Deployment document into a graph of AWS resources\n" +
			"and provisions them in dependency order. Every global option can also\n" +
			"be set through a FORMSG_ environment variable, e.g. FORMSG_REGION.\n\n" +
			"Secret parameters may be left out of the document and supplied as\n" +
			"FORMSG_SES_USER, FORMSG_SES_PASS and FORMSG_GOOGLE_CAPTCHA.\n",
		Version:       version.GetVersionInfo().GitVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(v)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("feature-gates") {
				if gates := v.GetString("feature-gates"); gates != "" {
					if err := features.FeatureGate.Set(gates); err != nil {
						return fmt.Errorf("invalid %s_FEATURE_GATES: %w", EnvPrefix, err)
					}
				}
			}
			viewType, err := view.ParseOutputFormat(settings.Output)
			if err != nil {
				return err
			}

			s := view.NewStream(cmd.OutOrStdout(), cmd.ErrOrStderr())
			cli.Viewer = view.NewViewer(viewType, s, settings.LogLevel)
			cli.Stream = s
			cli.Settings = settings
			return nil
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	flags := cmd.PersistentFlags()
	flags.StringP("output", "o", "", "Output format. One of: (human | json)")
	flags.Bool("debug", false, "Set log level to debug")
	flags.String("region", "", "AWS region, overriding the deployment document")
	flags.String("aws-profile", "", "Shared AWS config profile to use")
	flags.Int("parallelism", 0, "Resources provisioned at once, 0 picks a default")
	flags.String("metrics-file", "", "Write metrics in the Prometheus text format to this file")
	features.FeatureGate.AddFlag(flags)
	_ = v.BindPFlags(flags)
	v.SetDefault("log", "info")
	_ = v.BindEnv("log")
	for key := range secretParameters {
		_ = v.BindEnv(key)
	}
	return cmd
}

func setCobraUsageTemplate(root *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := root.UsageTemplate()
	usageTemplate = strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Additional Commands:`, `{{StyleHeading "Additional Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(usageTemplate)
	root.SetUsageTemplate(usageTemplate)
}

func Execute() {
	// Disable color output if NO_COLOR is set in the environment
	_, noColor := os.LookupEnv("NO_COLOR")
	color.NoColor = noColor

	// The viewer is reconfigured in PersistentPreRunE after flags are parsed.
	cli := NewCLI(view.ViewHuman, os.Stdout, os.Stderr, view.LogLevelSilent)
	root := NewRootCommand(cli)
	setCobraUsageTemplate(root)
	root.SetVersionTemplate("{{.Version}}\n")
	AddCommands(root, cli)

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, color.RGB(229, 50, 50).Sprint("Error:"), msg)
		}
		os.Exit(1)
	}
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewVersionCommand(cli),
		NewValidateCommand(cli),
		NewComposeCommand(cli),
		NewOrderCommand(cli),
		NewApplyCommand(cli),
		NewDestroyCommand(cli),
	)
}

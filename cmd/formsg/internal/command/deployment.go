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
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/loader"
	"github.com/opengovsg/formsg-on-cdk/pkg/executor"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/metadata"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

const (
	// DefaultRegion is used when neither the flags, the document nor the
	// AWS config name a region.
	DefaultRegion = "ap-southeast-1"

	// dryRunAccount owns every identifier a dry run makes up.
	dryRunAccount = "000000000000"
)

// deploymentOptions are the flags shared by commands that compose a
// deployment document.
type deploymentOptions struct {
	File      string
	StatePath string
	DryRun    bool
}

func (o *deploymentOptions) addFlags(cmd *cobra.Command, stateful bool) {
	cmd.Flags().StringVarP(&o.File, "file", "f", "", "Path to the Deployment document")
	_ = cmd.MarkFlagRequired("file")
	if stateful {
		cmd.Flags().StringVar(&o.StatePath, "state", "", "Path to the state file (default .formsg/<name>.state.yaml)")
		cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "Plan against a simulated provider instead of AWS")
	}
}

// session is a loaded deployment and everything resolved for it.
type session struct {
	deployment *v1alpha1.Deployment
	region     string
	aws        *aws.Config
	log        logr.Logger
}

// loadSession reads and validates the document. Secret parameters set in
// the environment replace the ones in the document.
func (cli *CLI) loadSession(ctx context.Context, o *deploymentOptions) (*session, error) {
	d, err := loader.LoadDeployment(o.File)
	if err != nil {
		return nil, err
	}
	applySecretParameters(&d.Spec.Parameters, cli.Settings.SecretParameters)
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment %s: %w", o.File, err)
	}

	s := &session{
		deployment: d,
		region:     cli.Settings.Region,
		log:        cli.Logger().Logr().WithValues("deployment", d.Name),
	}
	if s.region == "" {
		s.region = d.Spec.Region
	}
	if o.DryRun {
		if s.region == "" {
			s.region = DefaultRegion
		}
		return s, nil
	}

	cfg, err := executor.LoadConfig(ctx, s.region, cli.Settings.AWSProfile)
	if err != nil {
		return nil, err
	}
	s.aws = &cfg
	s.region = cfg.Region
	return s, nil
}

func applySecretParameters(p *v1alpha1.ParametersSpec, values map[string]string) {
	for name, value := range values {
		switch name {
		case topology.ParamSESUser:
			p.SESUser = value
		case topology.ParamSESPass:
			p.SESPass = value
		case topology.ParamGoogleCaptcha:
			p.GoogleCaptcha = value
		}
	}
}

// zones returns the availability zones of the document, or asks EC2 when
// it names none. Dry runs make up two zones instead.
func (s *session) zones(ctx context.Context) ([]string, error) {
	if zones := s.deployment.Spec.AvailabilityZones; len(zones) > 0 {
		return zones, nil
	}
	if s.aws == nil {
		return []string{s.region + "a", s.region + "b"}, nil
	}
	zones, err := executor.AvailabilityZones(ctx, ec2.NewFromConfig(*s.aws), topology.MaxAvailabilityZones)
	if err != nil {
		return nil, err
	}
	s.log.V(1).Info("resolved availability zones", "zones", zones)
	return zones, nil
}

// compose builds the deployment graph of the session.
func (cli *CLI) compose(ctx context.Context, s *session) (*graph.DeploymentGraph, error) {
	zones, err := s.zones(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.deployment.Spec.ToConfig(zones)
	specs, err := topology.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid deployment %s: %w", s.deployment.Name, err)
	}
	topology.LogSummary(s.log, specs)

	opts := []graph.Option{
		graph.WithProfile(cfg.Profile),
		graph.WithLogger(s.log),
	}
	if n := cli.Settings.Parallelism; n > 0 {
		opts = append(opts, graph.WithParallelism(n))
	}
	g, err := graph.NewComposer(opts...).Compose(specs, topology.Parameters(), s.deployment.Spec.ParameterValues())
	if err != nil {
		return nil, err
	}
	s.deployment.SetCondition(v1alpha1.DeploymentConditionTypeGraphComposed, metav1.ConditionTrue, "Composed",
		fmt.Sprintf("composed %d resources in %d levels", len(g.Nodes), len(g.Levels)))
	return g, nil
}

// newExecutor returns an executor backed by Cloud Control, or by a simulated
// provider on dry runs.
func (cli *CLI) newExecutor(ctx context.Context, s *session) (*executor.Executor, error) {
	var p executor.Provisioner
	if s.aws == nil {
		p = executor.NewDryRunProvisioner(s.region, dryRunAccount)
	} else {
		id, err := executor.CallerIdentity(ctx, sts.NewFromConfig(*s.aws))
		if err != nil {
			return nil, err
		}
		s.log.Info("provisioning", "account", id.Account, "region", s.region)
		p = executor.NewCloudControlProvisionerFromConfig(*s.aws,
			executor.WithProvisionerLogger(s.log),
			executor.WithTags(metadata.NewDeploymentTagger(s.deployment.Name)))
	}

	opts := []executor.Option{executor.WithLogger(s.log)}
	if n := cli.Settings.Parallelism; n > 0 {
		opts = append(opts, executor.WithParallelism(n))
	}
	return executor.NewExecutor(p, opts...), nil
}

func (o *deploymentOptions) statePath(d *v1alpha1.Deployment) string {
	if o.StatePath != "" {
		return o.StatePath
	}
	return loader.StatePath(d)
}

// errFailed is returned once a failure has been rendered, so Execute
// does not print it twice.
var errFailed = errors.New("")

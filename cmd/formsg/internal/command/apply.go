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
	"maps"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/component-base/metrics/legacyregistry"

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/loader"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
	"github.com/opengovsg/formsg-on-cdk/pkg/executor"
)

func NewApplyCommand(cli *CLI) *cobra.Command {
	var opts deploymentOptions

	cmd := &cobra.Command{
		Use:   "apply -f FILE",
		Short: "Provision a deployment",
		Long: Highlight("formsg apply -f FILE") + "\n\n" +
			"Compose a Deployment document and create its resources through the\n" +
			"AWS Cloud Control API, dependencies first. Resources that do not\n" +
			"wait on each other are created concurrently. A resource that fails\n" +
			"skips everything depending on it.\n\n" +
			"The created resources and outputs are recorded in the state file,\n" +
			"which destroy reads back. Parameters are never written to it.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runApply(cmd, &opts)
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

func (cli *CLI) runApply(cmd *cobra.Command, opts *deploymentOptions) error {
	ctx := cmd.Context()
	s, err := cli.loadSession(ctx, opts)
	if err != nil {
		return err
	}
	g, err := cli.compose(ctx, s)
	if err != nil {
		return err
	}
	exec, err := cli.newExecutor(ctx, s)
	if err != nil {
		return err
	}

	d := s.deployment
	path := opts.statePath(d)
	previous, err := loader.LoadState(path)
	if err != nil {
		return err
	}

	result, applyErr := exec.Apply(ctx, g)
	if result == nil {
		return applyErr
	}
	recordApply(d, previous, g.ID, result)
	if !opts.DryRun {
		if err := loader.SaveState(path, d); err != nil {
			return err
		}
		s.log.V(1).Info("saved state", "path", path)
	}

	view.NewResultView(cli.Viewer).Render("apply", result)
	if err := cli.writeMetrics(); err != nil {
		return err
	}
	if applyErr != nil {
		s.log.V(1).Info("apply failed", "error", applyErr.Error())
		return errFailed
	}
	return nil
}

// recordApply sets the status of d from result. Resources recorded by a
// previous apply stay unless this apply replaced them.
func recordApply(d *v1alpha1.Deployment, previous v1alpha1.DeploymentStatus, graphID string, result *executor.Result) {
	resources := maps.Clone(previous.Resources)
	if resources == nil {
		resources = map[string]map[string]string{}
	}
	maps.Copy(resources, result.State())

	d.Status.GraphID = graphID
	d.Status.Resources = resources
	d.Status.Outputs = result.Outputs

	if failed := result.Failed(); len(failed) > 0 {
		d.Status.State = v1alpha1.DeploymentStateFailed
		msg := fmt.Sprintf("%d resources failed: %v", len(failed), failed)
		d.SetCondition(v1alpha1.DeploymentConditionTypeReady, metav1.ConditionFalse, "ApplyFailed", msg)
		d.SetCondition(v1alpha1.DeploymentConditionTypeDegraded, metav1.ConditionTrue, "ApplyFailed", msg)
		return
	}
	d.Status.State = v1alpha1.DeploymentStateApplied
	d.SetCondition(v1alpha1.DeploymentConditionTypeReady, metav1.ConditionTrue, "Applied",
		fmt.Sprintf("%d resources created", len(result.State())))
	d.SetCondition(v1alpha1.DeploymentConditionTypeDegraded, metav1.ConditionFalse, "Applied", "")
}

// writeMetrics writes every registered metric to the metrics file, if one
// was asked for.
func (cli *CLI) writeMetrics() error {
	path := cli.Settings.MetricsFile
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, legacyregistry.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

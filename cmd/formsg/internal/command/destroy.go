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

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/loader"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
	"github.com/opengovsg/formsg-on-cdk/pkg/executor"
	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

func NewDestroyCommand(cli *CLI) *cobra.Command {
	var opts deploymentOptions

	cmd := &cobra.Command{
		Use:   "destroy -f FILE",
		Short: "Delete the resources of a deployment",
		Long: Highlight("formsg destroy -f FILE") + "\n\n" +
			"Delete the resources recorded in the state file, dependents first.\n" +
			"Resources with a Retain lifecycle, which the prod profile gives to\n" +
			"everything holding user data, are left in place together with what\n" +
			"they depend on and stay in the state file.\n\n" +
			"A dry run without a state file plans the deletion of every resource.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runDestroy(cmd, &opts)
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

func (cli *CLI) runDestroy(cmd *cobra.Command, opts *deploymentOptions) error {
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
	state := previous.Resources
	if len(state) == 0 {
		if !opts.DryRun {
			s.log.Info("no resources recorded", "path", path)
		} else {
			state = assumeCreated(g)
		}
	}

	result, destroyErr := exec.Destroy(ctx, g, state)
	if result == nil {
		return destroyErr
	}
	recordDestroy(d, state, g.ID, result)
	if !opts.DryRun {
		if err := loader.SaveState(path, d); err != nil {
			return err
		}
	}

	view.NewResultView(cli.Viewer).Render("destroy", result)
	if err := cli.writeMetrics(); err != nil {
		return err
	}
	if destroyErr != nil {
		s.log.V(1).Info("destroy failed", "error", destroyErr.Error())
		return errFailed
	}
	return nil
}

// assumeCreated records every node of g with no attributes.
func assumeCreated(g *graph.DeploymentGraph) map[string]map[string]string {
	state := make(map[string]map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		state[n.ID] = map[string]string{}
	}
	return state
}

// recordDestroy sets the status of d from result. Resources that were
// retained, failed to delete or were never reached stay recorded.
func recordDestroy(d *v1alpha1.Deployment, state map[string]map[string]string, graphID string, result *executor.Result) {
	remaining := map[string]map[string]string{}
	for _, n := range result.Nodes {
		switch n.State {
		case executor.StateRetained, executor.StateFailed, executor.StateSkipped:
			if attrs, ok := state[n.ID]; ok {
				remaining[n.ID] = attrs
			}
		}
	}

	d.Status.GraphID = graphID
	d.Status.Resources = remaining
	d.Status.Outputs = nil
	if failed := result.Failed(); len(failed) > 0 {
		d.Status.State = v1alpha1.DeploymentStateFailed
		msg := fmt.Sprintf("%d resources failed to delete: %v", len(failed), failed)
		d.SetCondition(v1alpha1.DeploymentConditionTypeReady, metav1.ConditionFalse, "DestroyFailed", msg)
		d.SetCondition(v1alpha1.DeploymentConditionTypeDegraded, metav1.ConditionTrue, "DestroyFailed", msg)
		return
	}
	d.Status.State = v1alpha1.DeploymentStateDestroyed
	d.SetCondition(v1alpha1.DeploymentConditionTypeReady, metav1.ConditionFalse, "Destroyed",
		fmt.Sprintf("%d resources retained", len(remaining)))
	d.SetCondition(v1alpha1.DeploymentConditionTypeDegraded, metav1.ConditionFalse, "Destroyed", "")
}

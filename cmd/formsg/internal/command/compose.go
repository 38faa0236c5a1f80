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
	"github.com/spf13/cobra"

	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
)

func NewComposeCommand(cli *CLI) *cobra.Command {
	opts := deploymentOptions{DryRun: true}

	cmd := &cobra.Command{
		Use:   "compose -f FILE",
		Short: "Print the deployment graph of a document",
		Long: Highlight("formsg compose -f FILE") + "\n\n" +
			"Compose a Deployment document into its deployment graph and print\n" +
			"it. Secret values are redacted. Availability zones the document\n" +
			"leaves out are made up from the region, AWS is never called.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.loadSession(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			g, err := cli.compose(cmd.Context(), s)
			if err != nil {
				return err
			}
			view.NewGraphView(cli.Viewer).Render(g.Redact())
			return nil
		},
	}
	opts.addFlags(cmd, false)
	return cmd
}

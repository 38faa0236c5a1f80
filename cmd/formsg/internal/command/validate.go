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

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/loader"
	"github.com/opengovsg/formsg-on-cdk/cmd/formsg/internal/view"
	"github.com/opengovsg/formsg-on-cdk/pkg/topology"
)

type validateOptions struct {
	Path string
}

func NewValidateCommand(cli *CLI) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate -f FILE|DIR",
		Short: "Validate Deployment documents",
		Long: Highlight("formsg validate -f FILE|DIR") + "\n\n" +
			"Validate one Deployment document, or every .yaml and .yml file of a\n" +
			"directory. Documents are checked field by field and then declared,\n" +
			"so option combinations that cannot be deployed are reported too.\n" +
			"Nothing is composed and AWS is never called.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runValidate(&opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Path, "file", "f", "", "Path to a Deployment file or a directory of them")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *CLI) runValidate(opts *validateOptions) error {
	v := view.NewValidateView(cli.Viewer)

	results, err := loader.LoadDeploymentsDetailed(opts.Path)
	if err != nil {
		v.Render(view.ValidateResult{
			Errors: []view.ValidateFileError{{File: opts.Path, Message: err.Error()}},
		})
		return errFailed
	}

	result := view.ValidateResult{FileCount: len(results)}
	for _, r := range results {
		err := r.Err
		if err == nil {
			err = validateDeployment(r.Deployment)
		}
		if err != nil {
			cli.Logger().Debug("validation failed", "file", r.Path, "error", err)
			result.Errors = append(result.Errors, view.ValidateFileError{File: r.Path, Message: err.Error()})
		}
	}

	v.Render(result)
	if result.HasErrors() {
		return errFailed
	}
	return nil
}

// validateDeployment checks the fields of d and then declares its
// resources against made up zones.
func validateDeployment(d *v1alpha1.Deployment) error {
	if err := d.Validate(); err != nil {
		return err
	}
	region := d.Spec.Region
	if region == "" {
		region = DefaultRegion
	}
	_, err := topology.Build(d.Spec.ToConfig([]string{region + "a"}))
	return err
}

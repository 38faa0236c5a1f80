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

// Package loader reads Deployment documents and state files.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/opengovsg/formsg-on-cdk/api/v1alpha1"
)

type DeploymentLoadResult struct {
	Path       string
	Deployment *v1alpha1.Deployment
	Err        error
}

// collectYAMLFiles returns a list of YAML file paths from the given path.
// If path is a file, it returns a single-element slice.
// If path is a directory, it returns all .yaml and .yml files in the directory (non-recursive).
func collectYAMLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		if !isYAML(path) {
			return nil, fmt.Errorf("file %q must have a .yaml or .yml extension", path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// LoadDeploymentsDetailed loads Deployment documents from a file or directory,
// returning per-file results (including parse errors) so callers can continue on failure.
// Only errors related to accessing the path (stat/readdir) are returned directly.
func LoadDeploymentsDetailed(path string) ([]DeploymentLoadResult, error) {
	files, err := collectYAMLFiles(path)
	if err != nil {
		return nil, err
	}

	results := make([]DeploymentLoadResult, 0, len(files))
	for _, file := range files {
		d, loadErr := LoadDeployment(file)
		results = append(results, DeploymentLoadResult{Path: file, Deployment: d, Err: loadErr})
	}

	return results, nil
}

// LoadDeployment loads a single Deployment document. It checks the document
// header only; call Validate for the spec.
func LoadDeployment(path string) (*v1alpha1.Deployment, error) {
	data, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	var d v1alpha1.Deployment
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Deployment: %w", err)
	}

	if d.Kind != v1alpha1.KindDeployment {
		return nil, fmt.Errorf("expected kind %s, got %q", v1alpha1.KindDeployment, d.Kind)
	}

	return &d, nil
}

// StatePath is where the state of d is kept unless a path is given.
func StatePath(d *v1alpha1.Deployment) string {
	return filepath.Join(".formsg", d.Name+".state.yaml")
}

// LoadState reads the status recorded for a deployment. A missing file
// yields an empty status.
func LoadState(path string) (v1alpha1.DeploymentStatus, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v1alpha1.DeploymentStatus{}, nil
	}
	if err != nil {
		return v1alpha1.DeploymentStatus{}, fmt.Errorf("failed to read state: %w", err)
	}

	var d v1alpha1.Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return v1alpha1.DeploymentStatus{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return d.Status, nil
}

// SaveState writes d, status included, to path. Parameters are left out:
// secret values never reach the state file.
func SaveState(path string, d *v1alpha1.Deployment) error {
	out := *d
	out.Spec.Parameters = v1alpha1.ParametersSpec{}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// loadFile reads a YAML file and returns its content as a byte slice.
func loadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path %q is a directory, provide a path to a deployment file (.yaml or .yml)", path)
	}

	if !isYAML(path) {
		return nil, fmt.Errorf("file %q must have a .yaml or .yml extension", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

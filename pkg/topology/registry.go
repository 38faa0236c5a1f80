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
	IDScannerRepository = "scannerRepository"
	IDFormRepository    = "formRepository"
	IDScannerImageCopy  = "scannerImageCopy"

	// ScannerSourceImage is copied into the scanner repository for the
	// function backend.
	ScannerSourceImage = "opengovsg/lambda-virus-scanner:latest"
)

func (b *builder) registries() {
	b.add(graph.ResourceSpec{
		ID:     IDScannerRepository,
		Kind:   graph.KindRepository,
		Config: map[string]any{"name": "lambda-virus-scanner"},
	})
	b.add(graph.ResourceSpec{
		ID:     IDFormRepository,
		Kind:   graph.KindRepository,
		Config: map[string]any{"name": "form"},
	})
	b.add(graph.ResourceSpec{
		ID:   IDScannerImageCopy,
		Kind: graph.KindImageCopy,
		Config: map[string]any{
			"source":      ScannerSourceImage,
			"destination": ref(IDScannerRepository, "uri"),
			"tag":         "latest",
		},
	})
}

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

/*
Package metrics exposes counters and histograms for graph composition and
provisioning. Metrics are registered with the component-base legacy registry
on import.

Composition:

	start := time.Now()
	g, err := composer.Compose(specs, params, values)
	metrics.RecordCompose(time.Since(start).Seconds(), err)

Per stage failures are counted by the composer itself:

	metrics.RecordStageFailure("linker")

Provisioning operations are recorded by the executor, labelled by resource
kind, operation (create, delete) and result (success, failure, skipped):

	metrics.RecordOperation("bucket", "create", "success", elapsed)

Compilation and evaluation latencies of reference expressions, collected by
package cel, are registered on the same registry.

Available labels:

- stage: composer stage that failed (validator, linker, resolver, assembler)
- kind: resource kind (bucket, service, database, ...)
- operation: executor operation (create, delete)
- result: outcome (success, failure, skipped)
*/
package metrics

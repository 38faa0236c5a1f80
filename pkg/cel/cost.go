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

package cel

import (
	"errors"
	"strings"

	"github.com/google/cel-go/cel"
)

const (
	// PerCallLimit bounds the cost of a single expression evaluation,
	// roughly 0.1 second of execution time.
	PerCallLimit = 1000000

	// CheckFrequency is the number of comprehension iterations evaluated
	// between checks for an exceeded cost limit.
	CheckFrequency = 100
)

// ErrCostLimitExceeded is returned by Eval when an expression costs more
// than PerCallLimit.
var ErrCostLimitExceeded = errors.New("expression cost limit exceeded")

// IsCostLimitExceeded reports whether err comes from CEL aborting an
// evaluation over its cost limit.
func IsCostLimitExceeded(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCostLimitExceeded) || strings.Contains(err.Error(), "cost limit exceeded")
}

// WithCostLimit returns the program options that abort evaluations
// costing more than limit.
func WithCostLimit(limit uint64) []cel.ProgramOption {
	return []cel.ProgramOption{
		cel.CostLimit(limit),
		cel.EvalOptions(cel.OptTrackCost),
		cel.InterruptCheckFrequency(CheckFrequency),
	}
}

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

package view

import (
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/opengovsg/formsg-on-cdk/pkg/executor"
)

// ResultView renders the outcome of apply and destroy.
type ResultView interface {
	Render(operation string, result *executor.Result)
}

var stateColors = map[executor.State]*color.Color{
	executor.StateCreated:  color.New(color.FgGreen),
	executor.StateDeleted:  color.New(color.FgGreen),
	executor.StateRetained: color.New(color.FgCyan),
	executor.StateAbsent:   color.New(color.Faint),
	executor.StateFailed:   color.New(color.FgRed),
	executor.StateSkipped:  color.New(color.FgYellow),
}

type resultHumanView struct {
	*HumanView
}

func (v *resultHumanView) Render(operation string, result *executor.Result) {
	w := tabwriter.NewWriter(v.Writer, 0, 4, 2, ' ', 0)
	for _, n := range result.Nodes {
		state := string(n.State)
		if c, ok := stateColors[n.State]; ok {
			state = c.Sprint(state)
		}
		detail := n.Error
		if detail == "" && n.Duration > 0 {
			detail = n.Duration.Round(time.Millisecond).String()
		}
		_, _ = w.Write([]byte(n.ID + "\t" + state + "\t" + detail + "\n"))
	}
	_ = w.Flush()

	for _, name := range slices.Sorted(maps.Keys(result.Outputs)) {
		v.Printf("%s %s = %s\n", color.RGB(50, 108, 229).Sprint("output"), name, result.Outputs[name])
	}
	if failed := result.Failed(); len(failed) > 0 {
		v.Println(color.RGB(229, 50, 50).Sprintf("Error!"), operation, "failed for", len(failed), "resources")
		return
	}
	v.Println(color.RGB(50, 108, 229).Sprintf("Done!"), operation, "completed.")
}

type resultJSONView struct {
	*JSONView
}

type resultJSONOutput struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	*executor.Result
}

func (v *resultJSONView) Render(operation string, result *executor.Result) {
	out := resultJSONOutput{Type: operation, Status: "success", Timestamp: time.Now(), Result: result}
	if len(result.Failed()) > 0 {
		out.Status = "error"
	}
	v.printJSON(out)
}

func NewResultView(v Viewer) ResultView {
	switch vt := v.(type) {
	case *HumanView:
		return &resultHumanView{HumanView: vt}
	case *JSONView:
		return &resultJSONView{JSONView: vt}
	default:
		panic("unknown view type")
	}
}

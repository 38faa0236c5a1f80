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
	"fmt"
	"strings"

	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
)

// GraphView renders composed deployment graphs. Callers pass graphs that
// are already redacted.
type GraphView interface {
	// Render writes the whole graph.
	Render(g *graph.DeploymentGraph)
	// RenderOrder writes the resolution levels of the graph.
	RenderOrder(g *graph.DeploymentGraph)
}

type graphHumanView struct {
	*HumanView
}

func (v *graphHumanView) Render(g *graph.DeploymentGraph) {
	data, err := yaml.Marshal(g)
	if err != nil {
		v.logger.Error("failed to encode graph", "error", err)
		return
	}
	v.Printf("%s", data)
}

func (v *graphHumanView) RenderOrder(g *graph.DeploymentGraph) {
	heading := color.RGB(50, 108, 229).SprintFunc()
	for i, level := range g.Levels {
		v.Printf("%s %s\n", heading(fmt.Sprintf("level %d", i)), strings.Join(level, ", "))
	}
}

type graphJSONView struct {
	*JSONView
}

func (v *graphJSONView) Render(g *graph.DeploymentGraph) {
	v.printJSON(g)
}

type orderJSONResult struct {
	Type   string     `json:"type"`
	ID     string     `json:"id"`
	Order  []string   `json:"order"`
	Levels [][]string `json:"levels"`
}

func (v *graphJSONView) RenderOrder(g *graph.DeploymentGraph) {
	v.printJSON(orderJSONResult{Type: "order", ID: g.ID, Order: g.Order(), Levels: g.Levels})
}

func NewGraphView(v Viewer) GraphView {
	switch vt := v.(type) {
	case *HumanView:
		return &graphHumanView{HumanView: vt}
	case *JSONView:
		return &graphJSONView{JSONView: vt}
	default:
		panic("unknown view type")
	}
}

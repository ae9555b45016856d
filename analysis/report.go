//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package analysis

import (
	"fmt"

	"github.com/opendifferentialprivacy/smartnoise-core/components"
)

// GenerateReport collects the released, non-omitted nodes of the expanded
// graph into report entries ordered by node id. Nodes whose variant does
// not describe itself are skipped.
func (a *Analysis) GenerateReport() ([]*components.Summary, error) {
	state, err := a.traverse()
	if err != nil {
		return nil, err
	}

	var summaries []*components.Summary
	for _, id := range sortedNodeIDs(state.graph) {
		component := state.graph[id]
		if component.Omit {
			continue
		}
		release, ok := state.release[id]
		if !ok {
			continue
		}
		reporter, ok := component.Variant.(components.Reporter)
		if !ok {
			continue
		}
		publicArgs, argProps, err := state.arguments(component)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		entries, err := reporter.Summarize(id, component, publicArgs, argProps, release.Value, state.names[id])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		for _, entry := range entries {
			if len(entry.PrivacyLoss) == 0 {
				entry.PrivacyLoss = release.PrivacyUsages
			}
		}
		summaries = append(summaries, entries...)
	}
	return summaries, nil
}

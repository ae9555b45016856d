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
	"sort"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
	"github.com/opendifferentialprivacy/smartnoise-core/components"
)

// expansionLimit bounds how often a single node may be rewritten. Every
// rewrite rule in the component set is idempotent, so hitting the limit
// means a rule regressed.
const expansionLimit = 16

// topologicalOrder sorts node ids so that every node follows its
// arguments, failing on cyclic graphs. Ties break towards smaller ids to
// keep traversal deterministic.
func topologicalOrder(graph map[uint32]*components.Component) ([]uint32, error) {
	indegree := make(map[uint32]int, len(graph))
	dependents := make(map[uint32][]uint32, len(graph))
	for id, component := range graph {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, argID := range component.Arguments {
			if _, ok := graph[argID]; !ok {
				return nil, fmt.Errorf("node %d depends on undefined node %d", id, argID)
			}
			indegree[id]++
			dependents[argID] = append(dependents[argID], id)
		}
	}

	ready := make([]uint32, 0, len(graph))
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]uint32, 0, len(graph))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		next := append([]uint32(nil), dependents[id]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if len(order) != len(graph) {
		return nil, fmt.Errorf("computation graph contains a cycle")
	}
	return order, nil
}

// traversalState is the working set of one property propagation pass. The
// graph and release are copies; expansion mutates them freely.
type traversalState struct {
	privacy    *base.PrivacyDefinition
	graph      map[uint32]*components.Component
	release    base.Release
	properties map[uint32]base.ValueProperties
	names      map[uint32][]string
	warnings   []string
	maximumID  uint32
	visits     map[uint32]int
}

func newTraversalState(privacy *base.PrivacyDefinition, graph map[uint32]*components.Component, release base.Release) *traversalState {
	state := &traversalState{
		privacy:    privacy,
		graph:      make(map[uint32]*components.Component, len(graph)),
		release:    make(base.Release, len(release)),
		properties: make(map[uint32]base.ValueProperties, len(graph)),
		names:      make(map[uint32][]string),
		visits:     make(map[uint32]int),
	}
	for id, component := range graph {
		state.graph[id] = component
		if id > state.maximumID {
			state.maximumID = id
		}
	}
	for id, node := range release {
		state.release[id] = node
		if id > state.maximumID {
			state.maximumID = id
		}
	}
	return state
}

// run expands and propagates the whole graph in dependency order.
func (s *traversalState) run() error {
	order, err := topologicalOrder(s.graph)
	if err != nil {
		return err
	}
	queue := append([]uint32(nil), order...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		revisit, err := s.visit(id)
		if err != nil {
			return err
		}
		if len(revisit) > 0 {
			queue = append(append([]uint32(nil), revisit...), queue...)
		}
	}
	return nil
}

// visit expands one node and, when no further rewriting is pending,
// propagates its properties. It returns node ids that must run before the
// traversal continues.
func (s *traversalState) visit(id uint32) ([]uint32, error) {
	component, ok := s.graph[id]
	if !ok {
		return nil, fmt.Errorf("node %d is not defined", id)
	}
	s.visits[id]++
	if s.visits[id] > expansionLimit {
		return nil, fmt.Errorf("node %d: expansion did not converge", id)
	}

	publicArgs, argProps, err := s.arguments(component)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}

	expansion, err := components.Expand(component, s.privacy, publicArgs, argProps, id, s.maximumID)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	if !expansion.IsEmpty() {
		for _, warning := range expansion.Warnings {
			s.warnings = append(s.warnings, fmt.Sprintf("node %d: %s", id, warning))
		}
		for newID, newComponent := range expansion.ComputationGraph {
			s.graph[newID] = newComponent
		}
		for newID, props := range expansion.Properties {
			s.properties[newID] = props
		}
		for newID, release := range expansion.Releases {
			s.release[newID] = release
		}
		s.maximumID = expansion.MaximumID()
		if len(expansion.Traversal) > 0 {
			// Inserted nodes need properties before anything revisited can
			// read them as arguments.
			queued := make(map[uint32]bool, len(expansion.Traversal))
			for _, next := range expansion.Traversal {
				queued[next] = true
			}
			var inserted []uint32
			for newID := range expansion.ComputationGraph {
				if queued[newID] {
					continue
				}
				if _, done := s.properties[newID]; done {
					continue
				}
				inserted = append(inserted, newID)
			}
			sort.Slice(inserted, func(i, j int) bool { return inserted[i] < inserted[j] })
			return append(inserted, expansion.Traversal...), nil
		}
	}

	return nil, s.propagate(id, component, publicArgs, argProps)
}

func (s *traversalState) propagate(id uint32, component *components.Component, publicArgs map[string]*base.Value, argProps base.NodeProperties) error {
	// The graph may have been rewritten under the same id.
	component = s.graph[id]

	if release, ok := s.release[id]; ok && release.Public {
		props, err := components.InferProperty(release.Value, true)
		if err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}
		s.properties[id] = props
		s.propagateNames(id, component, publicArgs)
		return nil
	}

	warnable, err := components.PropagateProperty(component, s.privacy, publicArgs, argProps, id)
	if err != nil {
		return fmt.Errorf("node %d: %w", id, err)
	}
	s.properties[id] = warnable.Properties
	for _, warning := range warnable.Warnings {
		s.warnings = append(s.warnings, fmt.Sprintf("node %d: %s", id, warning))
	}
	s.propagateNames(id, component, publicArgs)
	return nil
}

// propagateNames tracks human-readable column names for the report. Nodes
// without their own naming inherit from their primary argument.
func (s *traversalState) propagateNames(id uint32, component *components.Component, publicArgs map[string]*base.Value) {
	if namer, ok := component.Variant.(components.Namer); ok {
		argNames := make(map[string][]string, len(component.Arguments))
		for name, argID := range component.Arguments {
			argNames[name] = s.names[argID]
		}
		var release *base.Value
		if node, ok := s.release[id]; ok {
			release = node.Value
		}
		if names, err := namer.ComputeNames(publicArgs, argNames, release); err == nil {
			s.names[id] = names
			return
		}
	}
	for _, primary := range []string{"data", "left"} {
		if argID, ok := component.Arguments[primary]; ok {
			s.names[id] = s.names[argID]
			return
		}
	}
}

// arguments gathers the released public values and the propagated
// properties of a node's arguments.
func (s *traversalState) arguments(component *components.Component) (map[string]*base.Value, base.NodeProperties, error) {
	publicArgs := make(map[string]*base.Value, len(component.Arguments))
	argProps := make(base.NodeProperties, len(component.Arguments))
	for name, argID := range component.Arguments {
		if release, ok := s.release[argID]; ok && release.Public {
			publicArgs[name] = release.Value
		}
		props, ok := s.properties[argID]
		if !ok {
			return nil, nil, fmt.Errorf("argument %s (node %d) has no properties", name, argID)
		}
		argProps[name] = props
	}
	return publicArgs, argProps, nil
}

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

// Package analysis validates differentially private computation plans. An
// Analysis is a computation graph together with a privacy definition and
// any values already released; validation expands high-level statistics
// into primitive nodes, propagates static properties through the graph,
// and accounts the total privacy usage, all without touching the private
// data.
package analysis

import (
	"fmt"
	"sort"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
	"github.com/opendifferentialprivacy/smartnoise-core/components"
)

// Analysis is a computation plan to validate. The graph and release are
// never mutated; every operation works on internal copies.
type Analysis struct {
	PrivacyDefinition *base.PrivacyDefinition
	ComputationGraph  map[uint32]*components.Component
	Release           base.Release
}

// ValidationResult carries the outcome of a full validation pass over the
// expanded graph.
type ValidationResult struct {
	// Properties holds the propagated properties of every node in the
	// expanded graph, keyed by node id.
	Properties map[uint32]base.ValueProperties
	// Warnings are advisory findings that did not fail validation, such as
	// degenerate clamping bounds.
	Warnings []string
	// ExpandedGraph is the graph after all rewrites, with high-level
	// statistics replaced by aggregator and mechanism nodes.
	ExpandedGraph map[uint32]*components.Component
	// ExpandedRelease includes literals inserted during expansion.
	ExpandedRelease base.Release
	// MaximumID is the highest node id in the expanded graph.
	MaximumID uint32
}

func (a *Analysis) check() error {
	if a.PrivacyDefinition == nil {
		return fmt.Errorf("a privacy definition is required")
	}
	if err := a.PrivacyDefinition.Validate(); err != nil {
		return err
	}
	if len(a.ComputationGraph) == 0 {
		return fmt.Errorf("the computation graph is empty")
	}
	return nil
}

func (a *Analysis) traverse() (*traversalState, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	state := newTraversalState(a.PrivacyDefinition, a.ComputationGraph, a.Release)
	if err := state.run(); err != nil {
		return nil, err
	}
	return state, nil
}

// Validate expands the graph and propagates properties through every node,
// failing on the first property violation.
func (a *Analysis) Validate() (*ValidationResult, error) {
	state, err := a.traverse()
	if err != nil {
		return nil, err
	}
	return &ValidationResult{
		Properties:      state.properties,
		Warnings:        state.warnings,
		ExpandedGraph:   state.graph,
		ExpandedRelease: state.release,
		MaximumID:       state.maximumID,
	}, nil
}

// GetProperties validates the analysis and returns the propagated
// properties of the requested nodes. Requesting a node the expansion
// removed or never produced is an error.
func (a *Analysis) GetProperties(nodeIDs ...uint32) (map[uint32]base.ValueProperties, []string, error) {
	state, err := a.traverse()
	if err != nil {
		return nil, nil, err
	}
	out := make(map[uint32]base.ValueProperties, len(nodeIDs))
	for _, id := range nodeIDs {
		props, ok := state.properties[id]
		if !ok {
			return nil, nil, fmt.Errorf("node %d has no properties", id)
		}
		out[id] = props
	}
	return out, state.warnings, nil
}

// ComputePrivacyUsage totals the privacy usage of every privatizing node
// in the expanded graph under sequential composition. Actual spent usage
// recorded in the release overrides the declared usage of a node.
func (a *Analysis) ComputePrivacyUsage() (base.PrivacyUsage, error) {
	state, err := a.traverse()
	if err != nil {
		return base.PrivacyUsage{}, err
	}

	total := base.PrivacyUsage{}
	spent := false
	for _, id := range sortedNodeIDs(state.graph) {
		component := state.graph[id]
		mechanism, ok := component.Variant.(components.Mechanism)
		if !ok {
			continue
		}
		_, argProps, err := state.arguments(component)
		if err != nil {
			return base.PrivacyUsage{}, fmt.Errorf("node %d: %w", id, err)
		}
		var releaseUsage []base.PrivacyUsage
		if release, ok := state.release[id]; ok {
			releaseUsage = release.PrivacyUsages
		}
		usages, err := mechanism.ComputePrivacyUsage(a.PrivacyDefinition, argProps, releaseUsage)
		if err != nil {
			return base.PrivacyUsage{}, fmt.Errorf("node %d: %w", id, err)
		}
		for _, usage := range usages {
			total = total.Add(usage)
			spent = true
		}
	}
	if spent {
		if err := total.Validate(a.PrivacyDefinition.StrictParameterChecks); err != nil {
			return base.PrivacyUsage{}, fmt.Errorf("total privacy usage: %w", err)
		}
	}
	return total, nil
}

// PrivacyUsageToAccuracy converts the declared privacy usage of every
// mechanism in the expanded graph into an accuracy guarantee at
// significance level alpha, keyed by node id.
func (a *Analysis) PrivacyUsageToAccuracy(alpha float64) (map[uint32][]*base.Accuracy, error) {
	state, err := a.traverse()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32][]*base.Accuracy)
	for _, id := range sortedNodeIDs(state.graph) {
		component := state.graph[id]
		converter, ok := component.Variant.(components.AccuracyConverter)
		if !ok {
			continue
		}
		_, argProps, err := state.arguments(component)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		accuracies, err := converter.PrivacyUsageToAccuracy(a.PrivacyDefinition, argProps, alpha)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		out[id] = accuracies
	}
	return out, nil
}

// AccuracyToPrivacyUsage derives, per requested node, the privacy usage
// that would achieve the given accuracy guarantees. The keys of accuracies
// are ids in the pre-expansion graph that expand to (or already are)
// mechanism nodes.
func (a *Analysis) AccuracyToPrivacyUsage(accuracies map[uint32][]*base.Accuracy) (map[uint32][]base.PrivacyUsage, error) {
	state, err := a.traverse()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32][]base.PrivacyUsage, len(accuracies))
	for _, id := range sortedNodeIDs(state.graph) {
		wanted, ok := accuracies[id]
		if !ok {
			continue
		}
		component := state.graph[id]
		converter, ok := component.Variant.(components.AccuracyConverter)
		if !ok {
			return nil, fmt.Errorf("node %d (%s): accuracy conversion is not supported", id, component.Variant.Name())
		}
		_, argProps, err := state.arguments(component)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		usages, err := converter.AccuracyToPrivacyUsage(a.PrivacyDefinition, argProps, wanted)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		out[id] = usages
	}
	for id := range accuracies {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("node %d is not defined", id)
		}
	}
	return out, nil
}

// ExpandComponent applies one node's rewrite rules in isolation and, when
// the node needs no further traversal, propagates its properties into the
// returned patch. This is the single-step building block behind Validate.
func ExpandComponent(privacy *base.PrivacyDefinition, component *components.Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*components.ComponentExpansion, []string, error) {
	expansion, err := components.Expand(component, privacy, publicArgs, argProps, nodeID, maximumID)
	if err != nil {
		return nil, nil, err
	}
	if len(expansion.Traversal) > 0 {
		return expansion, expansion.Warnings, nil
	}
	current := component
	if replaced, ok := expansion.ComputationGraph[nodeID]; ok {
		current = replaced
	}
	warnable, err := components.PropagateProperty(current, privacy, publicArgs, argProps, nodeID)
	if err != nil {
		return nil, nil, err
	}
	expansion.Properties[nodeID] = warnable.Properties
	return expansion, append(append([]string(nil), expansion.Warnings...), warnable.Warnings...), nil
}

func sortedNodeIDs(graph map[uint32]*components.Component) []uint32 {
	ids := make([]uint32, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

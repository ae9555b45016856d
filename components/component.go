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

// Package components defines the graph operations understood by the static
// validator. Each operation is a Variant; the behaviors a variant supports
// (property propagation, expansion into primitives, sensitivity derivation,
// privacy accounting, accuracy conversion, reporting) are expressed as
// optional capability interfaces, dispatched by type assertion.
package components

import (
	"fmt"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// Variant identifies a graph operation.
type Variant interface {
	Name() string
}

// Component is a node of the computation graph: a variant applied to named
// argument nodes.
type Component struct {
	Variant   Variant
	Arguments map[string]uint32
	// Omit excludes the node's value from the final release.
	Omit bool
	// Submission groups nodes by the analysis submission that added them.
	Submission uint32
}

// Warnable pairs propagated properties with advisory warnings that do not
// fail validation.
type Warnable struct {
	Properties base.ValueProperties
	Warnings   []string
}

// NewWarnable wraps properties with no warnings.
func NewWarnable(properties base.ValueProperties) *Warnable {
	return &Warnable{Properties: properties}
}

// Warn appends an advisory warning and returns the receiver.
func (w *Warnable) Warn(format string, args ...interface{}) *Warnable {
	w.Warnings = append(w.Warnings, fmt.Sprintf(format, args...))
	return w
}

// PropertyPropagator derives output properties from argument properties.
// All variants except pure expanders implement this.
type PropertyPropagator interface {
	Variant
	PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error)
}

// Expandable rewrites a node into a subgraph of primitive nodes before
// validation.
type Expandable interface {
	Variant
	Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error)
}

// SensitivityComputer derives the sensitivity of an aggregate in a given
// sensitivity space. Implemented by the aggregators.
type SensitivityComputer interface {
	Variant
	ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error)
}

// Mechanism accounts the privacy usage actually consumed by a privatizing
// node, after c-stability and group-size corrections.
type Mechanism interface {
	Variant
	ComputePrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, releaseUsage []base.PrivacyUsage) ([]base.PrivacyUsage, error)
}

// AccuracyConverter converts between accuracy guarantees and privacy usage.
type AccuracyConverter interface {
	Variant
	AccuracyToPrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, accuracies []*base.Accuracy) ([]base.PrivacyUsage, error)
	PrivacyUsageToAccuracy(privacy *base.PrivacyDefinition, argProps base.NodeProperties, alpha float64) ([]*base.Accuracy, error)
}

// Reporter produces entries of the final JSON release.
type Reporter interface {
	Variant
	Summarize(nodeID uint32, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, release *base.Value, variableNames []string) ([]*Summary, error)
}

// Namer propagates human-readable column names through a node.
type Namer interface {
	Variant
	ComputeNames(publicArgs map[string]*base.Value, argNames map[string][]string, release *base.Value) ([]string, error)
}

// Summary is one entry of the final report.
type Summary struct {
	Statistic   string
	Variables   []string
	ReleaseInfo *base.Value
	PrivacyLoss []base.PrivacyUsage
	NodeID      uint32
	Submission  uint32
	// Postprocess marks entries that consumed no additional privacy.
	Postprocess bool
	Mechanism   string
}

// ComponentExpansion is a patch against the computation graph: nodes to add
// or replace, statically known properties and releases for inserted nodes,
// and the ids that must be revisited by the traversal.
type ComponentExpansion struct {
	ComputationGraph map[uint32]*Component
	Properties       map[uint32]base.ValueProperties
	Releases         map[uint32]*base.ReleaseNode
	Traversal        []uint32
	Warnings         []string

	maximumID uint32
}

// NewComponentExpansion returns an empty patch. Nodes inserted through the
// patch receive ids strictly above maximumID.
func NewComponentExpansion(maximumID uint32) *ComponentExpansion {
	return &ComponentExpansion{
		ComputationGraph: make(map[uint32]*Component),
		Properties:       make(map[uint32]base.ValueProperties),
		Releases:         make(map[uint32]*base.ReleaseNode),
		maximumID:        maximumID,
	}
}

// MaximumID returns the highest node id after all insertions.
func (e *ComponentExpansion) MaximumID() uint32 { return e.maximumID }

// InsertNode adds a fresh node for component and returns its id.
func (e *ComponentExpansion) InsertNode(component *Component) uint32 {
	e.maximumID++
	e.ComputationGraph[e.maximumID] = component
	return e.maximumID
}

// InsertLiteral adds a fresh omitted Literal node carrying value and returns
// its id. Public literals are usable for static analysis.
func (e *ComponentExpansion) InsertLiteral(value *base.Value, public bool, submission uint32) uint32 {
	id := e.InsertNode(&Component{
		Variant:    &Literal{},
		Arguments:  map[string]uint32{},
		Omit:       true,
		Submission: submission,
	})
	e.Releases[id] = &base.ReleaseNode{Value: value, Public: public}
	return id
}

// ReplaceNode overwrites the definition of an existing node id.
func (e *ComponentExpansion) ReplaceNode(id uint32, component *Component) {
	e.ComputationGraph[id] = component
}

// Revisit queues id for another traversal pass after the patch is applied.
func (e *ComponentExpansion) Revisit(id uint32) {
	e.Traversal = append(e.Traversal, id)
}

// Warn appends an advisory warning surfaced alongside the patch.
func (e *ComponentExpansion) Warn(format string, args ...interface{}) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// IsEmpty reports whether applying the patch would change nothing.
func (e *ComponentExpansion) IsEmpty() bool {
	return len(e.ComputationGraph) == 0 && len(e.Properties) == 0 &&
		len(e.Releases) == 0 && len(e.Traversal) == 0 && len(e.Warnings) == 0
}

// PropagateProperty dispatches property propagation on c's variant, wrapping
// failures with the variant name.
func PropagateProperty(c *Component, privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	propagator, ok := c.Variant.(PropertyPropagator)
	if !ok {
		return nil, fmt.Errorf("node specification %s: property propagation is not supported", c.Variant.Name())
	}
	warnable, err := propagator.PropagateProperty(privacy, publicArgs, argProps, nodeID)
	if err != nil {
		return nil, fmt.Errorf("node specification %s: %w", c.Variant.Name(), err)
	}
	return warnable, nil
}

// Expand dispatches graph expansion on c's variant. Variants without the
// Expandable capability expand to the empty patch.
func Expand(c *Component, privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	expandable, ok := c.Variant.(Expandable)
	if !ok {
		return NewComponentExpansion(maximumID), nil
	}
	expansion, err := expandable.Expand(privacy, c, publicArgs, argProps, nodeID, maximumID)
	if err != nil {
		return nil, fmt.Errorf("node specification %s: %w", c.Variant.Name(), err)
	}
	return expansion, nil
}

// ComputeSensitivity dispatches sensitivity derivation on c's variant,
// failing when the variant is not an aggregator.
func ComputeSensitivity(c *Component, privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	computer, ok := c.Variant.(SensitivityComputer)
	if !ok {
		return nil, fmt.Errorf("node specification %s: sensitivity is not defined", c.Variant.Name())
	}
	sensitivity, err := computer.ComputeSensitivity(privacy, argProps, space)
	if err != nil {
		return nil, fmt.Errorf("node specification %s: %w", c.Variant.Name(), err)
	}
	return sensitivity, nil
}

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

package components

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

func TestDpCountExpandsToCountAndGeometric(t *testing.T) {
	usage := []base.PrivacyUsage{{Epsilon: 1}}
	component := &Component{
		Variant:   &DpCount{PrivacyUsage: usage},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	aggregatorID := uint32(11)
	aggregatorNode, ok := expansion.ComputationGraph[aggregatorID]
	if !ok {
		t.Fatalf("aggregator was not inserted at %d", aggregatorID)
	}
	if _, ok := aggregatorNode.Variant.(*Count); !ok {
		t.Errorf("aggregator variant is %T, want *Count", aggregatorNode.Variant)
	}
	if !aggregatorNode.Omit {
		t.Error("the raw count must never be released")
	}
	if aggregatorNode.Arguments["data"] != 2 {
		t.Errorf("aggregator data argument = %d, want 2", aggregatorNode.Arguments["data"])
	}

	mechanismNode, ok := expansion.ComputationGraph[7]
	if !ok {
		t.Fatal("the composite node was not rewritten")
	}
	mechanism, ok := mechanismNode.Variant.(*SimpleGeometricMechanism)
	if !ok {
		t.Fatalf("mechanism variant is %T, want *SimpleGeometricMechanism", mechanismNode.Variant)
	}
	if diff := cmp.Diff(usage, mechanism.PrivacyUsage); diff != "" {
		t.Errorf("privacy usage mismatch (-want +got):\n%s", diff)
	}
	if mechanismNode.Arguments["data"] != aggregatorID {
		t.Errorf("mechanism data argument = %d, want %d", mechanismNode.Arguments["data"], aggregatorID)
	}
	if diff := cmp.Diff([]uint32{aggregatorID, 7}, expansion.Traversal); diff != "" {
		t.Errorf("traversal mismatch (-want +got):\n%s", diff)
	}
	if expansion.MaximumID() != 11 {
		t.Errorf("MaximumID = %d, want 11", expansion.MaximumID())
	}
}

func TestDpMeanUsesLaplaceByDefault(t *testing.T) {
	component := &Component{
		Variant:   &DpMean{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 0.5}}},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := expansion.ComputationGraph[11].Variant.(*Mean); !ok {
		t.Errorf("aggregator variant is %T, want *Mean", expansion.ComputationGraph[11].Variant)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*LaplaceMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *LaplaceMechanism", expansion.ComputationGraph[7].Variant)
	}
}

func TestDpSumMechanismFollowsDataType(t *testing.T) {
	intProps := boundedFloatProps(100, 1, 0, 10)
	intProps.DataType = base.IntType
	for _, tc := range []struct {
		desc     string
		argProps base.NodeProperties
		wantInt  bool
	}{
		{"integer data", base.NodeProperties{"data": intProps}, true},
		{"float data", base.NodeProperties{"data": boundedFloatProps(100, 1, 0, 10)}, false},
	} {
		component := &Component{
			Variant:   &DpSum{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
			Arguments: map[string]uint32{"data": 2},
		}
		expansion, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, tc.argProps, 7, 10)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.desc, err)
		}
		_, isGeometric := expansion.ComputationGraph[7].Variant.(*SimpleGeometricMechanism)
		if isGeometric != tc.wantInt {
			t.Errorf("%s: geometric = %v, want %v", tc.desc, isGeometric, tc.wantInt)
		}
	}
}

func TestDpMedianExpandsToMidpointQuantile(t *testing.T) {
	component := &Component{
		Variant:   &DpMedian{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	quantile, ok := expansion.ComputationGraph[11].Variant.(*Quantile)
	if !ok {
		t.Fatalf("aggregator variant is %T, want *Quantile", expansion.ComputationGraph[11].Variant)
	}
	if quantile.Alpha != 0.5 {
		t.Errorf("Alpha = %v, want 0.5", quantile.Alpha)
	}
	if quantile.Interpolation != "midpoint" {
		t.Errorf("Interpolation = %q, want midpoint", quantile.Interpolation)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*LaplaceMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *LaplaceMechanism", expansion.ComputationGraph[7].Variant)
	}
}

func TestDpQuantileExponentialSelection(t *testing.T) {
	component := &Component{
		Variant:   &DpQuantile{Mechanism: "Exponential", Alpha: 0.25, PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*ExponentialMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *ExponentialMechanism", expansion.ComputationGraph[7].Variant)
	}
}

func TestDpQuantileAutomaticMechanismFollowsCandidates(t *testing.T) {
	usage := []base.PrivacyUsage{{Epsilon: 1}}

	withCandidates := &Component{
		Variant:   &DpQuantile{Alpha: 0.5, PrivacyUsage: usage},
		Arguments: map[string]uint32{"data": 2, "candidates": 3},
	}
	expansion, err := withCandidates.Variant.(Expandable).Expand(addRemoveDefinition(), withCandidates, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*ExponentialMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *ExponentialMechanism", expansion.ComputationGraph[7].Variant)
	}
	if len(expansion.Warnings) == 0 {
		t.Error("automatic selection must surface a warning")
	}

	withoutCandidates := &Component{
		Variant:   &DpQuantile{Alpha: 0.5, PrivacyUsage: usage},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, err = withoutCandidates.Variant.(Expandable).Expand(addRemoveDefinition(), withoutCandidates, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*LaplaceMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *LaplaceMechanism", expansion.ComputationGraph[7].Variant)
	}
	if len(expansion.Warnings) == 0 {
		t.Error("automatic selection must surface a warning")
	}

	// An explicit mechanism is never second-guessed.
	explicit := &Component{
		Variant:   &DpQuantile{Mechanism: "Laplace", Alpha: 0.5, PrivacyUsage: usage},
		Arguments: map[string]uint32{"data": 2, "candidates": 3},
	}
	expansion, err = explicit.Variant.(Expandable).Expand(addRemoveDefinition(), explicit, nil, nil, 7, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := expansion.ComputationGraph[7].Variant.(*LaplaceMechanism); !ok {
		t.Errorf("mechanism variant is %T, want *LaplaceMechanism", expansion.ComputationGraph[7].Variant)
	}
	if len(expansion.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", expansion.Warnings)
	}
}

func TestDpStatisticRejectsUnknownMechanism(t *testing.T) {
	component := &Component{
		Variant:   &DpCount{Mechanism: "Staircase", PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
		Arguments: map[string]uint32{"data": 2},
	}
	if _, err := component.Variant.(Expandable).Expand(addRemoveDefinition(), component, nil, nil, 7, 10); err == nil {
		t.Error("expected an error for an unknown mechanism")
	}
}

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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opendifferentialprivacy/smartnoise-core/base"
	"github.com/opendifferentialprivacy/smartnoise-core/components"
)

const tolerance = 1e-9

// meanPipeline is a full plan: load a column, cast and clamp it, resize to
// a fixed record count, and release a private mean.
func meanPipeline() *Analysis {
	return &Analysis{
		PrivacyDefinition: &base.PrivacyDefinition{
			GroupSize:   1,
			Neighboring: base.AddRemove,
		},
		ComputationGraph: map[uint32]*components.Component{
			1: {Variant: &components.Materialize{DataPath: "data.csv", ColumnNames: []string{"age"}}},
			2: {Variant: &components.Literal{}},
			3: {Variant: &components.Index{}, Arguments: map[string]uint32{"data": 1, "names": 2}},
			4: {Variant: &components.Cast{AtomicType: base.FloatType}, Arguments: map[string]uint32{"data": 3}},
			5: {Variant: &components.Literal{}},
			6: {Variant: &components.Literal{}},
			7: {Variant: &components.Clamp{}, Arguments: map[string]uint32{"data": 4, "lower": 5, "upper": 6}},
			8: {Variant: &components.Impute{}, Arguments: map[string]uint32{"data": 7}},
			9: {Variant: &components.Literal{}},
			10: {Variant: &components.Resize{}, Arguments: map[string]uint32{"data": 8, "number_rows": 9}},
			11: {
				Variant:   &components.DpMean{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
				Arguments: map[string]uint32{"data": 10},
			},
		},
		Release: base.Release{
			2: {Value: base.ArrayValue(base.StringScalar("age")), Public: true},
			5: {Value: base.ArrayValue(base.FloatScalar(0)), Public: true},
			6: {Value: base.ArrayValue(base.FloatScalar(100)), Public: true},
			9: {Value: base.ArrayValue(base.IntScalar(100)), Public: true},
		},
	}
}

func TestValidateExpandsMeanPipeline(t *testing.T) {
	result, err := meanPipeline().Validate()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	mechanismNode, ok := result.ExpandedGraph[11]
	if !ok {
		t.Fatal("node 11 is missing from the expanded graph")
	}
	if _, ok := mechanismNode.Variant.(*components.LaplaceMechanism); !ok {
		t.Fatalf("node 11 is %T, want *components.LaplaceMechanism", mechanismNode.Variant)
	}

	var meanNode *components.Component
	for _, component := range result.ExpandedGraph {
		if _, ok := component.Variant.(*components.Mean); ok {
			meanNode = component
			break
		}
	}
	if meanNode == nil {
		t.Fatal("no Mean aggregator was inserted")
	}
	if !meanNode.Omit {
		t.Error("the raw mean must never be released")
	}

	props, ok := result.Properties[11]
	if !ok {
		t.Fatal("node 11 has no properties")
	}
	array, err := props.Array()
	if err != nil {
		t.Fatalf("node 11: %v", err)
	}
	if !array.Releasable {
		t.Error("the privatized mean is releasable")
	}
	if result.MaximumID <= 11 {
		t.Errorf("MaximumID = %d, expansion must have inserted nodes", result.MaximumID)
	}
}

func TestValidateRequiresPrivacyDefinition(t *testing.T) {
	a := meanPipeline()
	a.PrivacyDefinition = nil
	if _, err := a.Validate(); err == nil {
		t.Error("expected an error without a privacy definition")
	}
}

func TestValidateEmptyGraphFails(t *testing.T) {
	a := &Analysis{PrivacyDefinition: &base.PrivacyDefinition{GroupSize: 1, Neighboring: base.AddRemove}}
	if _, err := a.Validate(); err == nil {
		t.Error("expected an error for an empty graph")
	}
}

func TestGetProperties(t *testing.T) {
	props, _, err := meanPipeline().GetProperties(4, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	cast, err := props[4].Array()
	if err != nil {
		t.Fatalf("node 4: %v", err)
	}
	if cast.DataType != base.FloatType {
		t.Errorf("node 4 type = %v, want FloatType", cast.DataType)
	}
	resized, err := props[10].Array()
	if err != nil {
		t.Fatalf("node 10: %v", err)
	}
	if resized.NumRecords == nil || *resized.NumRecords != 100 {
		t.Errorf("node 10 NumRecords = %v, want 100", resized.NumRecords)
	}
}

func TestGetPropertiesUnknownNode(t *testing.T) {
	if _, _, err := meanPipeline().GetProperties(999); err == nil {
		t.Error("expected an error for an unknown node")
	}
}

func TestComputePrivacyUsage(t *testing.T) {
	usage, err := meanPipeline().ComputePrivacyUsage()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if math.Abs(usage.Epsilon-1) > tolerance {
		t.Errorf("Epsilon = %v, want 1", usage.Epsilon)
	}
	if usage.Delta != 0 {
		t.Errorf("Delta = %v, want 0", usage.Delta)
	}
}

func TestComputePrivacyUsageSumsMechanisms(t *testing.T) {
	a := meanPipeline()
	a.ComputationGraph[12] = &components.Component{
		Variant:   &components.DpCount{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 0.5}}},
		Arguments: map[string]uint32{"data": 10},
	}
	usage, err := a.ComputePrivacyUsage()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if math.Abs(usage.Epsilon-1.5) > tolerance {
		t.Errorf("Epsilon = %v, want the sequential total 1.5", usage.Epsilon)
	}
}

func TestComputePrivacyUsageWithoutMechanisms(t *testing.T) {
	a := &Analysis{
		PrivacyDefinition: &base.PrivacyDefinition{GroupSize: 1, Neighboring: base.AddRemove},
		ComputationGraph: map[uint32]*components.Component{
			1: {Variant: &components.Literal{}},
		},
	}
	usage, err := a.ComputePrivacyUsage()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if usage.Epsilon != 0 || usage.Delta != 0 {
		t.Errorf("usage = %+v, want zero", usage)
	}
}

func TestAccuracyRoundTrip(t *testing.T) {
	alpha := 0.05
	accuracies, err := meanPipeline().PrivacyUsageToAccuracy(alpha)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	got, ok := accuracies[11]
	if !ok {
		t.Fatal("node 11 has no accuracy")
	}
	if len(got) != 1 || got[0].Value <= 0 {
		t.Fatalf("accuracies = %v, want one positive entry", got)
	}

	usages, err := meanPipeline().AccuracyToPrivacyUsage(map[uint32][]*base.Accuracy{11: got})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	back, ok := usages[11]
	if !ok {
		t.Fatal("node 11 has no derived usage")
	}
	if len(back) != 1 || math.Abs(back[0].Epsilon-1) > tolerance {
		t.Errorf("derived usage = %v, want epsilon 1", back)
	}
}

func TestAccuracyToPrivacyUsageUnknownNode(t *testing.T) {
	wanted := map[uint32][]*base.Accuracy{999: {{Value: 1, Alpha: 0.05}}}
	if _, err := meanPipeline().AccuracyToPrivacyUsage(wanted); err == nil {
		t.Error("expected an error for an unknown node")
	}
}

func TestExpandComponentPropagatesWhenSettled(t *testing.T) {
	privacy := &base.PrivacyDefinition{GroupSize: 1, Neighboring: base.AddRemove}
	numRecords, numColumns, one := int64(100), int64(1), int64(1)
	dataProps := &base.ArrayProperties{
		NumRecords:     &numRecords,
		NumColumns:     &numColumns,
		CStability:     []float64{1},
		DataType:       base.FloatType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	component := &components.Component{
		Variant:   &components.Count{},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, warnings, err := ExpandComponent(privacy, component, nil, base.NodeProperties{"data": dataProps}, 3, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	props, ok := expansion.Properties[3]
	if !ok {
		t.Fatal("the patch carries no properties for node 3")
	}
	array, err := props.Array()
	if err != nil {
		t.Fatalf("node 3: %v", err)
	}
	if array.Aggregator == nil {
		t.Error("a count is an aggregate")
	}
}

func TestExpandComponentDefersToTraversal(t *testing.T) {
	privacy := &base.PrivacyDefinition{GroupSize: 1, Neighboring: base.AddRemove}
	component := &components.Component{
		Variant:   &components.DpCount{PrivacyUsage: []base.PrivacyUsage{{Epsilon: 1}}},
		Arguments: map[string]uint32{"data": 2},
	}
	expansion, _, err := ExpandComponent(privacy, component, nil, nil, 3, 10)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(expansion.Traversal) == 0 {
		t.Fatal("a composite statistic needs further traversal")
	}
	if _, ok := expansion.Properties[3]; ok {
		t.Error("no properties may be propagated while rewrites are pending")
	}
}

func TestGenerateReport(t *testing.T) {
	a := meanPipeline()
	a.Release[11] = &base.ReleaseNode{
		Value:         base.ArrayValue(base.FloatScalar(41.3)),
		PrivacyUsages: []base.PrivacyUsage{{Epsilon: 1}},
	}
	summaries, err := a.GenerateReport()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summary count = %d, want 1", len(summaries))
	}
	entry := summaries[0]
	if entry.Statistic != "DPMean" {
		t.Errorf("Statistic = %q, want DPMean", entry.Statistic)
	}
	if entry.Mechanism != "LaplaceMechanism" {
		t.Errorf("Mechanism = %q, want LaplaceMechanism", entry.Mechanism)
	}
	if diff := cmp.Diff([]string{"age"}, entry.Variables); diff != "" {
		t.Errorf("variable mismatch (-want +got):\n%s", diff)
	}
	if entry.NodeID != 11 {
		t.Errorf("NodeID = %d, want 11", entry.NodeID)
	}
	if len(entry.PrivacyLoss) != 1 || entry.PrivacyLoss[0].Epsilon != 1 {
		t.Errorf("PrivacyLoss = %v, want epsilon 1", entry.PrivacyLoss)
	}
}

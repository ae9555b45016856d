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

func TestMaterializeEmitsColumnarMap(t *testing.T) {
	materialize := &Materialize{DataPath: "data.csv", ColumnNames: []string{"age", "income"}}
	warnable, err := materialize.PropagateProperty(addRemoveDefinition(), nil, nil, 5)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	props, err := warnable.Properties.Partitions()
	if err != nil {
		t.Fatalf("partitions: %v", err)
	}
	if !props.Columnar {
		t.Error("a materialized dataset is columnar")
	}
	if props.Properties.Len() != 2 {
		t.Fatalf("column count = %d, want 2", props.Properties.Len())
	}
	column, ok := props.Properties.Get(base.StringKey("age"))
	if !ok {
		t.Fatal("column age is missing")
	}
	array, err := column.Array()
	if err != nil {
		t.Fatalf("column age: %v", err)
	}
	if array.DataType != base.StringType {
		t.Errorf("column type = %v, want StringType", array.DataType)
	}
	if !array.Nullity {
		t.Error("nothing is known about missingness in raw data")
	}
	if array.Releasable {
		t.Error("a private dataset is not releasable")
	}
	if array.DatasetID == nil || *array.DatasetID != 5 {
		t.Errorf("DatasetID = %v, want 5", array.DatasetID)
	}
}

func TestMaterializeRequiresColumnNames(t *testing.T) {
	if _, err := (&Materialize{DataPath: "data.csv"}).PropagateProperty(addRemoveDefinition(), nil, nil, 5); err == nil {
		t.Error("expected an error without declared columns")
	}
}

func columnarProps(columns map[string]*base.ArrayProperties) base.ValueProperties {
	props := base.NewPropertiesMap()
	for name, col := range columns {
		props.Set(base.StringKey(name), col)
	}
	return &base.MapProperties{Properties: props, Columnar: true}
}

func TestIndexStacksSelectedColumns(t *testing.T) {
	datasetID := int64(5)
	age := boundedFloatProps(100, 1, 0, 100)
	age.DatasetID = &datasetID
	income := boundedFloatProps(100, 1, 0, 1e6)
	income.DatasetID = &datasetID
	data := columnarProps(map[string]*base.ArrayProperties{"age": age, "income": income})

	publicArgs := map[string]*base.Value{
		"names": base.ArrayValue(base.StringVec([]string{"age", "income"})),
	}
	warnable, err := (&Index{}).PropagateProperty(addRemoveDefinition(), publicArgs, base.NodeProperties{"data": data}, 6)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, err := warnable.Properties.Array()
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if out.NumColumns == nil || *out.NumColumns != 2 {
		t.Errorf("NumColumns = %v, want 2", out.NumColumns)
	}
	lower, err := out.LowerFloat()
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	upper, err := out.UpperFloat()
	if err != nil {
		t.Fatalf("upper: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0}, lower); diff != "" {
		t.Errorf("lower mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{100, 1e6}, upper); diff != "" {
		t.Errorf("upper mismatch (-want +got):\n%s", diff)
	}
	if out.DatasetID == nil || *out.DatasetID != 5 {
		t.Errorf("DatasetID = %v, want 5", out.DatasetID)
	}
}

func TestIndexUnknownColumnFails(t *testing.T) {
	data := columnarProps(map[string]*base.ArrayProperties{"age": boundedFloatProps(100, 1, 0, 100)})
	publicArgs := map[string]*base.Value{
		"names": base.ArrayValue(base.StringScalar("height")),
	}
	if _, err := (&Index{}).PropagateProperty(addRemoveDefinition(), publicArgs, base.NodeProperties{"data": data}, 6); err == nil {
		t.Error("expected an error for a missing column")
	}
}

func TestIndexComputeNames(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		names    *base.Value
		argNames map[string][]string
		want     []string
		wantErr  bool
	}{
		{
			desc:  "string selectors",
			names: base.ArrayValue(base.StringVec([]string{"age", "income"})),
			want:  []string{"age", "income"},
		},
		{
			desc:     "integer selectors",
			names:    base.ArrayValue(base.IntVec([]int64{1, 0})),
			argNames: map[string][]string{"data": {"age", "income"}},
			want:     []string{"income", "age"},
		},
		{
			desc:     "integer selector out of range",
			names:    base.ArrayValue(base.IntScalar(3)),
			argNames: map[string][]string{"data": {"age"}},
			wantErr:  true,
		},
	} {
		got, err := (&Index{}).ComputeNames(map[string]*base.Value{"names": tc.names}, tc.argNames, nil)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error", tc.desc)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.desc, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: name mismatch (-want +got):\n%s", tc.desc, diff)
		}
	}
}

func TestFilterErasesRecordCount(t *testing.T) {
	datasetID := int64(5)
	data := boundedFloatProps(100, 1, 0, 10)
	data.DatasetID = &datasetID
	mask := &base.ArrayProperties{
		NumRecords:     data.NumRecords,
		NumColumns:     data.NumColumns,
		CStability:     onesVector(1),
		DataType:       base.BoolType,
		DatasetID:      &datasetID,
		IsNotEmpty:     true,
		Dimensionality: data.Dimensionality,
	}
	warnable, err := (&Filter{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"data": data, "mask": mask}, 9)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, _ := warnable.Properties.Array()
	if out.NumRecords != nil {
		t.Errorf("NumRecords = %d, want unknown", *out.NumRecords)
	}
	if out.IsNotEmpty {
		t.Error("a filter may remove every record")
	}
	if out.DatasetID == nil || *out.DatasetID != 9 {
		t.Errorf("DatasetID = %v, want the filter's own id 9", out.DatasetID)
	}
}

func TestFilterMaskMustBeBoolean(t *testing.T) {
	data := boundedFloatProps(100, 1, 0, 10)
	mask := boundedFloatProps(100, 1, 0, 1)
	if _, err := (&Filter{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"data": data, "mask": mask}, 9); err == nil {
		t.Error("expected an error for a non-boolean mask")
	}
}

func TestFilterMaskMustAlign(t *testing.T) {
	data := boundedFloatProps(100, 1, 0, 10)
	mask := &base.ArrayProperties{
		NumRecords:     data.Dimensionality, // wrong count on purpose
		NumColumns:     data.NumColumns,
		CStability:     onesVector(1),
		DataType:       base.BoolType,
		Dimensionality: data.Dimensionality,
	}
	if _, err := (&Filter{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"data": data, "mask": mask}, 9); err == nil {
		t.Error("expected an error when row alignment cannot be established")
	}
}

func TestColumnBindOrdersByArgumentName(t *testing.T) {
	left := boundedFloatProps(50, 1, 0, 1)
	right := boundedFloatProps(50, 1, 10, 20)
	warnable, err := (&ColumnBind{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"b": right, "a": left}, 3)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, _ := warnable.Properties.Array()
	upper, err := out.UpperFloat()
	if err != nil {
		t.Fatalf("upper: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 20}, upper); diff != "" {
		t.Errorf("upper mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnBindRequiresAlignedRows(t *testing.T) {
	left := boundedFloatProps(50, 1, 0, 1)
	right := boundedFloatProps(60, 1, 0, 1)
	if _, err := (&ColumnBind{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"a": left, "b": right}, 3); err == nil {
		t.Error("expected an error for mismatched record counts")
	}
}

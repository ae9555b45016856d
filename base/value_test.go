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

package base

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFloatArrayRejectsShapeMismatch(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		data    []float64
		shape   []int64
		wantErr bool
	}{
		{"scalar", []float64{1}, nil, false},
		{"vector", []float64{1, 2, 3}, []int64{3}, false},
		{"matrix", []float64{1, 2, 3, 4, 5, 6}, []int64{2, 3}, false},
		{"too few elements", []float64{1, 2}, []int64{3}, true},
		{"too many elements", []float64{1, 2, 3, 4}, []int64{3}, true},
		{"negative axis", []float64{1, 2}, []int64{-2}, true},
		{"three axes", []float64{1, 2, 3, 4, 5, 6, 7, 8}, []int64{2, 2, 2}, true},
	} {
		_, err := NewFloatArray(tc.shape, tc.data)
		if (err != nil) != tc.wantErr {
			t.Errorf("NewFloatArray(%s): got err=%v, wantErr=%t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestArrayShapeAccounting(t *testing.T) {
	for _, tc := range []struct {
		desc           string
		shape          []int64
		wantNumRecords int64
		wantNumColumns int64
	}{
		{"scalar", nil, 1, 1},
		{"vector", []int64{4}, 4, 1},
		{"matrix", []int64{3, 2}, 3, 2},
	} {
		data := make([]float64, 1)
		n := int64(1)
		for _, axis := range tc.shape {
			n *= axis
		}
		data = make([]float64, n)
		arr, err := NewFloatArray(tc.shape, data)
		if err != nil {
			t.Fatalf("NewFloatArray(%s): unexpected error %v", tc.desc, err)
		}
		if got := arr.NumRecords(); got != tc.wantNumRecords {
			t.Errorf("%s: NumRecords() = %d, want %d", tc.desc, got, tc.wantNumRecords)
		}
		if got := arr.NumColumns(); got != tc.wantNumColumns {
			t.Errorf("%s: NumColumns() = %d, want %d", tc.desc, got, tc.wantNumColumns)
		}
	}
}

func TestArrayTypedAccessorMismatch(t *testing.T) {
	arr := FloatScalar(1.0)
	if _, err := arr.Ints(); err == nil {
		t.Errorf("Ints() on float array: expected error, got none")
	}
	if _, err := arr.Floats(); err != nil {
		t.Errorf("Floats() on float array: unexpected error %v", err)
	}
}

func TestFirstFloatPromotesIntsAndBools(t *testing.T) {
	for _, tc := range []struct {
		desc string
		val  *Value
		want float64
	}{
		{"float scalar", ArrayValue(FloatScalar(2.5)), 2.5},
		{"int scalar", ArrayValue(IntScalar(3)), 3},
		{"bool scalar", ArrayValue(BoolScalar(true)), 1},
	} {
		got, err := tc.val.FirstFloat()
		if err != nil {
			t.Fatalf("FirstFloat(%s): unexpected error %v", tc.desc, err)
		}
		if got != tc.want {
			t.Errorf("FirstFloat(%s) = %f, want %f", tc.desc, got, tc.want)
		}
	}
}

func TestFirstFloatRejectsNonSingleton(t *testing.T) {
	if _, err := ArrayValue(FloatVec([]float64{1, 2})).FirstFloat(); err == nil {
		t.Errorf("FirstFloat on a length-2 vector: expected error, got none")
	}
}

func TestFloatVectorBroadcastsScalar(t *testing.T) {
	got, err := FloatScalar(4.0).FloatVector(3)
	if err != nil {
		t.Fatalf("FloatVector: unexpected error %v", err)
	}
	want := []float64{4, 4, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FloatVector broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestFloatVectorRejectsLengthMismatch(t *testing.T) {
	if _, err := FloatVec([]float64{1, 2}).FloatVector(3); err == nil {
		t.Errorf("FloatVector with 2 values against 3 columns: expected error, got none")
	}
}

func TestJaggedDeduplicateRejectsFloats(t *testing.T) {
	col := []float64{1, 2, 2}
	jagged := NewFloatJagged([][]float64{col})
	if _, err := jagged.Deduplicate(); err == nil {
		t.Errorf("Deduplicate on float jagged: expected error, got none")
	}
}

func TestJaggedDeduplicatePreservesOrder(t *testing.T) {
	jagged := NewStringJagged([][]string{{"b", "a", "b", "c", "a"}})
	dedup, err := jagged.Deduplicate()
	if err != nil {
		t.Fatalf("Deduplicate: unexpected error %v", err)
	}
	cols, err := dedup.Strings()
	if err != nil {
		t.Fatalf("Strings: unexpected error %v", err)
	}
	want := [][]string{{"b", "a", "c"}}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("Deduplicate mismatch (-want +got):\n%s", diff)
	}
}

func TestJaggedStandardizeBroadcastsSingleColumn(t *testing.T) {
	jagged := NewIntJagged([][]int64{{1, 2}})
	std, err := jagged.Standardize(3)
	if err != nil {
		t.Fatalf("Standardize: unexpected error %v", err)
	}
	if got := std.NumColumns(); got != 3 {
		t.Errorf("Standardize: NumColumns() = %d, want 3", got)
	}
}

func TestJaggedStandardizeRejectsMismatch(t *testing.T) {
	jagged := NewIntJagged([][]int64{{1}, {2}})
	if _, err := jagged.Standardize(3); err == nil {
		t.Errorf("Standardize 2 columns to 3: expected error, got none")
	}
}

func TestValueMapPreservesInsertionOrder(t *testing.T) {
	m := NewValueMap()
	m.Set(StringKey("b"), ArrayValue(IntScalar(1)))
	m.Set(StringKey("a"), ArrayValue(IntScalar(2)))
	m.Set(StringKey("b"), ArrayValue(IntScalar(3)))
	want := []MapKey{StringKey("b"), StringKey("a")}
	if diff := cmp.Diff(want, m.Keys(), cmp.AllowUnexported(MapKey{})); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	got, ok := m.Get(StringKey("b"))
	if !ok {
		t.Fatalf("Get(b): missing")
	}
	v, err := got.FirstInt()
	if err != nil || v != 3 {
		t.Errorf("Get(b) = %d, %v, want 3, nil", v, err)
	}
}

func TestValueVariantAccessors(t *testing.T) {
	arr := ArrayValue(FloatScalar(1))
	if _, err := arr.Jagged(); err == nil {
		t.Errorf("Jagged() on array value: expected error, got none")
	}
	if _, err := arr.Map(); err == nil {
		t.Errorf("Map() on array value: expected error, got none")
	}
	if _, err := arr.Array(); err != nil {
		t.Errorf("Array() on array value: unexpected error %v", err)
	}
}

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

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// transformBounds runs a two-argument transform and returns its output
// bounds, failing the test on propagation errors.
func transformBounds(t *testing.T, variant PropertyPropagator, left, right *base.ArrayProperties) ([]float64, []float64, *base.ArrayProperties) {
	t.Helper()
	warnable, err := variant.PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"left": left, "right": right}, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, err := warnable.Properties.Array()
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	lower, errL := out.LowerFloat()
	upper, errU := out.UpperFloat()
	if errL != nil || errU != nil {
		return nil, nil, out
	}
	return lower, upper, out
}

func TestAddBounds(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, -5, 5)
	lower, upper, _ := transformBounds(t, &Add{}, left, right)
	if !floatsNear([]float64{-5}, lower) || !floatsNear([]float64{15}, upper) {
		t.Errorf("bounds = [%v, %v], want [[-5], [15]]", lower, upper)
	}
}

func TestSubtractBounds(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, -5, 5)
	lower, upper, _ := transformBounds(t, &Subtract{}, left, right)
	if !floatsNear([]float64{-5}, lower) || !floatsNear([]float64{15}, upper) {
		t.Errorf("bounds = [%v, %v], want [[-5], [15]]", lower, upper)
	}
}

func TestMultiplyBoundsWithNegatives(t *testing.T) {
	// [-2, 3] * [-4, 5]: corners are 8, -10, -12, 15.
	left := boundedFloatProps(100, 1, -2, 3)
	right := boundedFloatProps(100, 1, -4, 5)
	lower, upper, _ := transformBounds(t, &Multiply{}, left, right)
	if !floatsNear([]float64{-12}, lower) || !floatsNear([]float64{15}, upper) {
		t.Errorf("bounds = [%v, %v], want [[-12], [15]]", lower, upper)
	}
}

func TestDivideByIntervalSpanningZero(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, -1, 1)
	lower, upper, out := transformBounds(t, &Divide{}, left, right)
	if lower != nil || upper != nil {
		t.Errorf("bounds = [%v, %v], want unknown when the divisor spans zero", lower, upper)
	}
	if !out.Nullity {
		t.Error("a zero divisor makes the quotient undefined")
	}
}

func TestDivideByPositiveInterval(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, 2, 4)
	lower, upper, out := transformBounds(t, &Divide{}, left, right)
	if !floatsNear([]float64{0}, lower) || !floatsNear([]float64{5}, upper) {
		t.Errorf("bounds = [%v, %v], want [[0], [5]]", lower, upper)
	}
	if out.Nullity {
		t.Error("a strictly positive divisor never divides by zero")
	}
}

func TestScalarOperandBroadcasts(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(1, 1, 5, 5)
	lower, upper, out := transformBounds(t, &Add{}, left, right)
	if !floatsNear([]float64{5}, lower) || !floatsNear([]float64{15}, upper) {
		t.Errorf("bounds = [%v, %v], want [[5], [15]]", lower, upper)
	}
	if out.NumRecords == nil || *out.NumRecords != 100 {
		t.Errorf("NumRecords = %v, want 100", out.NumRecords)
	}
}

func TestBinaryTransformRequiresAlignedRows(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(50, 1, 0, 10)
	if _, err := (&Add{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"left": left, "right": right}, 1); err == nil {
		t.Error("expected an error for mismatched record counts")
	}
}

func TestIntegerOperandsStayInteger(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	left.DataType = base.IntType
	right := boundedFloatProps(100, 1, 0, 10)
	right.DataType = base.IntType
	_, _, out := transformBounds(t, &Add{}, left, right)
	if out.DataType != base.IntType {
		t.Errorf("DataType = %v, want IntType", out.DataType)
	}
	_, _, mixed := transformBounds(t, &Add{}, left, boundedFloatProps(100, 1, 0, 10))
	if mixed.DataType != base.FloatType {
		t.Errorf("mixed DataType = %v, want FloatType", mixed.DataType)
	}
}

func TestComparisonEmitsBooleanCategorical(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, 0, 10)
	warnable, err := (&LessThan{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"left": left, "right": right}, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, _ := warnable.Properties.Array()
	if out.DataType != base.BoolType {
		t.Errorf("DataType = %v, want BoolType", out.DataType)
	}
	categories, err := out.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if categories.DataType() != base.BoolType {
		t.Errorf("category type = %v, want BoolType", categories.DataType())
	}
}

func TestLogicalConnectiveRejectsNumericOperands(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	right := boundedFloatProps(100, 1, 0, 10)
	if _, err := (&And{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"left": left, "right": right}, 1); err == nil {
		t.Error("expected an error for non-boolean operands")
	}
}

func TestNegativeMirrorsBounds(t *testing.T) {
	data := boundedFloatProps(100, 1, -2, 10)
	warnable, err := (&Negative{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"data": data}, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out, _ := warnable.Properties.Array()
	lower, _ := out.LowerFloat()
	upper, _ := out.UpperFloat()
	if !floatsNear([]float64{-10}, lower) || !floatsNear([]float64{2}, upper) {
		t.Errorf("bounds = [%v, %v], want [[-10], [2]]", lower, upper)
	}
}

func TestAbsFoldsBoundsAroundZero(t *testing.T) {
	for _, tc := range []struct {
		desc           string
		lower, upper   float64
		wantLo, wantHi float64
	}{
		{"spans zero", -2, 10, 0, 10},
		{"all positive", 3, 10, 3, 10},
		{"all negative", -10, -3, 3, 10},
	} {
		data := boundedFloatProps(100, 1, tc.lower, tc.upper)
		warnable, err := (&Abs{}).PropagateProperty(addRemoveDefinition(), nil, base.NodeProperties{"data": data}, 1)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.desc, err)
		}
		out, _ := warnable.Properties.Array()
		lower, _ := out.LowerFloat()
		upper, _ := out.UpperFloat()
		if !floatsNear([]float64{tc.wantLo}, lower) || !floatsNear([]float64{tc.wantHi}, upper) {
			t.Errorf("%s: bounds = [%v, %v], want [[%v], [%v]]", tc.desc, lower, upper, tc.wantLo, tc.wantHi)
		}
	}
}

func TestTransformTakesWorstCaseStability(t *testing.T) {
	left := boundedFloatProps(100, 1, 0, 10)
	left.CStability = []float64{2}
	right := boundedFloatProps(100, 1, 0, 10)
	right.CStability = []float64{3}
	_, _, out := transformBounds(t, &Add{}, left, right)
	if !floatsNear([]float64{3}, out.CStability) {
		t.Errorf("CStability = %v, want [3]", out.CStability)
	}
}

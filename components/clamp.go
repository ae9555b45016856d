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
	"fmt"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// Clamp restricts data to known bounds. Numeric data is clamped into
// [lower, upper]; categorical data is mapped onto a category set, with
// out-of-set entries replaced by null_value.
type Clamp struct{}

// Name returns the variant name.
func (*Clamp) Name() string { return "Clamp" }

// PropagateProperty tightens the continuous bounds, or installs the
// categorical nature.
func (*Clamp) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	if _, categorical := publicArgs["categories"]; categorical {
		return clampCategorical(publicArgs, dataProps)
	}
	return clampNumeric(publicArgs, argProps, dataProps)
}

func clampCategorical(publicArgs map[string]*base.Value, dataProps *base.ArrayProperties) (*Warnable, error) {
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	categoriesValue := publicArgs["categories"]
	jagged, err := categoriesValue.Jagged()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if jagged.DataType() != dataProps.DataType && dataProps.DataType != base.UnknownType {
		return nil, fmt.Errorf("categories must share the data's atomic type")
	}
	nullValue, ok := publicArgs["null_value"]
	if !ok {
		return nil, fmt.Errorf("null_value must be a public argument when clamping by categories")
	}
	categories, err := appendNullValue(jagged, nullValue)
	if err != nil {
		return nil, err
	}
	categories, err = categories.Standardize(numColumns)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	out := dataProps.Copy()
	out.Nature = &base.NatureCategorical{Categories: categories}
	return NewWarnable(out), nil
}

// appendNullValue adds the replacement value to every column's category set,
// so the output nature covers every value the clamp can emit.
func appendNullValue(categories *base.Jagged, nullValue *base.Value) (*base.Jagged, error) {
	switch categories.DataType() {
	case base.BoolType:
		null, err := nullValue.FirstBool()
		if err != nil {
			return nil, fmt.Errorf("null_value: %w", err)
		}
		columns, err := categories.Bools()
		if err != nil {
			return nil, err
		}
		out := make([][]bool, len(columns))
		for i, col := range columns {
			out[i] = append(append([]bool(nil), col...), null)
		}
		return base.NewBoolJagged(out), nil
	case base.IntType:
		null, err := nullValue.FirstInt()
		if err != nil {
			return nil, fmt.Errorf("null_value: %w", err)
		}
		columns, err := categories.Ints()
		if err != nil {
			return nil, err
		}
		out := make([][]int64, len(columns))
		for i, col := range columns {
			out[i] = append(append([]int64(nil), col...), null)
		}
		return base.NewIntJagged(out), nil
	case base.StringType:
		null, err := nullValue.FirstString()
		if err != nil {
			return nil, fmt.Errorf("null_value: %w", err)
		}
		columns, err := categories.Strings()
		if err != nil {
			return nil, err
		}
		out := make([][]string, len(columns))
		for i, col := range columns {
			out[i] = append(append([]string(nil), col...), null)
		}
		return base.NewStringJagged(out), nil
	default:
		return nil, fmt.Errorf("float data may not be categorical")
	}
}

func clampNumeric(publicArgs map[string]*base.Value, argProps base.NodeProperties, dataProps *base.ArrayProperties) (*Warnable, error) {
	if !dataProps.DataType.IsNumeric() {
		return nil, fmt.Errorf("data must be numeric to clamp by bounds")
	}
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	out := dataProps.Copy()
	warnable := NewWarnable(out)

	if dataProps.DataType == base.IntType {
		lower, err := resolveIntBound(publicArgs, argProps, "lower", dataProps, numColumns, lowerSide)
		if err != nil {
			return nil, err
		}
		upper, err := resolveIntBound(publicArgs, argProps, "upper", dataProps, numColumns, upperSide)
		if err != nil {
			return nil, err
		}
		prevLower, prevUpper := priorIntBounds(dataProps, numColumns)
		for j := int64(0); j < numColumns; j++ {
			if lower[j] == nil || upper[j] == nil {
				return nil, fmt.Errorf("column %d: clamp bounds could not be resolved", j)
			}
			if prevLower[j] != nil && *prevLower[j] > *lower[j] {
				lower[j] = prevLower[j]
			}
			if prevUpper[j] != nil && *prevUpper[j] < *upper[j] {
				upper[j] = prevUpper[j]
			}
			if *lower[j] >= *upper[j] {
				return nil, fmt.Errorf("column %d: lower bound (%d) must be strictly less than upper bound (%d)", j, *lower[j], *upper[j])
			}
		}
		out.Nature = &base.NatureContinuous{Lower: base.IntBounds(lower), Upper: base.IntBounds(upper)}
		return warnable, nil
	}

	lower, err := resolveFloatBound(publicArgs, argProps, "lower", dataProps, numColumns, lowerSide)
	if err != nil {
		return nil, err
	}
	upper, err := resolveFloatBound(publicArgs, argProps, "upper", dataProps, numColumns, upperSide)
	if err != nil {
		return nil, err
	}
	prevLower, prevUpper := priorFloatBounds(dataProps, numColumns)
	for j := int64(0); j < numColumns; j++ {
		if lower[j] == nil || upper[j] == nil {
			return nil, fmt.Errorf("column %d: clamp bounds could not be resolved", j)
		}
		if prevLower[j] != nil && *prevLower[j] > *lower[j] {
			lower[j] = prevLower[j]
		}
		if prevUpper[j] != nil && *prevUpper[j] < *upper[j] {
			upper[j] = prevUpper[j]
		}
		if *lower[j] >= *upper[j] {
			return nil, fmt.Errorf("column %d: lower bound (%f) must be strictly less than upper bound (%f)", j, *lower[j], *upper[j])
		}
	}
	out.Nature = &base.NatureContinuous{Lower: base.FloatBounds(lower), Upper: base.FloatBounds(upper)}
	return warnable, nil
}

// priorFloatBounds returns the data's existing bounds, or vectors of nil
// when the nature is absent.
func priorFloatBounds(dataProps *base.ArrayProperties, numColumns int64) ([]*float64, []*float64) {
	lower, errL := dataProps.LowerFloatOption()
	upper, errU := dataProps.UpperFloatOption()
	if errL != nil || errU != nil || int64(len(lower)) != numColumns || int64(len(upper)) != numColumns {
		return make([]*float64, numColumns), make([]*float64, numColumns)
	}
	return lower, upper
}

func priorIntBounds(dataProps *base.ArrayProperties, numColumns int64) ([]*int64, []*int64) {
	lower, errL := dataProps.LowerIntOption()
	upper, errU := dataProps.UpperIntOption()
	if errL != nil || errU != nil || int64(len(lower)) != numColumns || int64(len(upper)) != numColumns {
		return make([]*int64, numColumns), make([]*int64, numColumns)
	}
	return lower, upper
}

// Expand synthesizes literal bound nodes when the analyst omitted lower or
// upper but the data's nature already carries them, so the runtime has
// concrete values to clamp against. Bounds already supplied are left alone,
// which keeps the rewrite idempotent.
func (*Clamp) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	if _, categorical := publicArgs["categories"]; categorical {
		return NewComponentExpansion(maximumID), nil
	}
	return expandNumericBounds(component, argProps, nodeID, maximumID)
}

// expandNumericBounds inserts literal lower/upper nodes derived from the
// data's nature for any bound argument not already wired. Shared by Clamp,
// Impute and Resize.
func expandNumericBounds(component *Component, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	expansion := NewComponentExpansion(maximumID)
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return expansion, nil
	}
	if !dataProps.DataType.IsNumeric() {
		return expansion, nil
	}
	_, hasLower := component.Arguments["lower"]
	_, hasUpper := component.Arguments["upper"]
	if hasLower && hasUpper {
		return expansion, nil
	}

	arguments := make(map[string]uint32, len(component.Arguments)+2)
	for name, id := range component.Arguments {
		arguments[name] = id
	}
	changed := false
	if dataProps.DataType == base.IntType {
		if !hasLower {
			if lower, err := dataProps.LowerInt(); err == nil {
				arguments["lower"] = expansion.InsertLiteral(base.ArrayValue(base.IntVec(lower)), true, component.Submission)
				changed = true
			}
		}
		if !hasUpper {
			if upper, err := dataProps.UpperInt(); err == nil {
				arguments["upper"] = expansion.InsertLiteral(base.ArrayValue(base.IntVec(upper)), true, component.Submission)
				changed = true
			}
		}
	} else {
		if !hasLower {
			if lower, err := dataProps.LowerFloat(); err == nil {
				arguments["lower"] = expansion.InsertLiteral(base.ArrayValue(base.FloatVec(lower)), true, component.Submission)
				changed = true
			}
		}
		if !hasUpper {
			if upper, err := dataProps.UpperFloat(); err == nil {
				arguments["upper"] = expansion.InsertLiteral(base.ArrayValue(base.FloatVec(upper)), true, component.Submission)
				changed = true
			}
		}
	}
	if !changed {
		return NewComponentExpansion(maximumID), nil
	}
	expansion.ReplaceNode(nodeID, &Component{
		Variant:    component.Variant,
		Arguments:  arguments,
		Omit:       component.Omit,
		Submission: component.Submission,
	})
	expansion.Revisit(nodeID)
	return expansion, nil
}

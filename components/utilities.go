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
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// argumentProperties returns the properties of a named argument, failing
// when the argument was not supplied.
func argumentProperties(argProps base.NodeProperties, name string) (base.ValueProperties, error) {
	props, ok := argProps[name]
	if !ok {
		return nil, fmt.Errorf("argument %s is missing", name)
	}
	return props, nil
}

// arrayProperties returns the array properties of a named argument.
func arrayProperties(argProps base.NodeProperties, name string) (*base.ArrayProperties, error) {
	props, err := argumentProperties(argProps, name)
	if err != nil {
		return nil, err
	}
	array, err := props.Array()
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", name, err)
	}
	return array, nil
}

// assertUnreleasedNotAggregated blocks computation over aggregates that
// have not passed through a privatizing mechanism. Released aggregates are
// public values and may be postprocessed freely.
func assertUnreleasedNotAggregated(props *base.ArrayProperties) error {
	if props.Releasable {
		return nil
	}
	return props.AssertIsNotAggregated()
}

// onesVector returns a length-n vector of ones.
func onesVector(n int64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// elementwiseMax returns the columnwise maximum of two equal-length vectors.
func elementwiseMax(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = math.Max(a[i], b[i])
	}
	return out
}

// elementwiseMin returns the columnwise minimum of two equal-length vectors.
func elementwiseMin(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = math.Min(a[i], b[i])
	}
	return out
}

// spreadPrivacyUsage distributes the usage declared on a node over n output
// columns: a single declared usage is split evenly, a per-column vector is
// passed through.
func spreadPrivacyUsage(usages []base.PrivacyUsage, n int) ([]base.PrivacyUsage, error) {
	if len(usages) == n {
		return append([]base.PrivacyUsage(nil), usages...), nil
	}
	if len(usages) == 1 {
		out := make([]base.PrivacyUsage, n)
		for i := range out {
			out[i] = usages[0].Scale(1 / float64(n))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%d privacy usages cannot be spread over %d columns", len(usages), n)
}

type boundSide int

const (
	lowerSide boundSide = iota
	upperSide
)

// resolveFloatBound resolves a per-column float bound argument with the
// precedence: released public value, then the bound node's own conservative
// property, then the data's existing property. A nil entry means the bound
// for that column could not be resolved.
func resolveFloatBound(publicArgs map[string]*base.Value, argProps base.NodeProperties, name string, dataProps *base.ArrayProperties, numColumns int64, side boundSide) ([]*float64, error) {
	if value, ok := publicArgs[name]; ok {
		array, err := value.Array()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		bound, err := array.FloatVector(numColumns)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		out := make([]*float64, numColumns)
		for i := range bound {
			v := bound[i]
			out[i] = &v
		}
		return out, nil
	}
	if props, ok := argProps[name]; ok {
		array, err := props.Array()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		var bound []*float64
		if side == lowerSide {
			bound, err = array.LowerFloatOption()
		} else {
			bound, err = array.UpperFloatOption()
		}
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		return broadcastOptionFloats(bound, numColumns)
	}
	var bound []*float64
	var err error
	if side == lowerSide {
		bound, err = dataProps.LowerFloatOption()
	} else {
		bound, err = dataProps.UpperFloatOption()
	}
	if err != nil {
		return make([]*float64, numColumns), nil
	}
	return broadcastOptionFloats(bound, numColumns)
}

// resolveIntBound is the integer analogue of resolveFloatBound.
func resolveIntBound(publicArgs map[string]*base.Value, argProps base.NodeProperties, name string, dataProps *base.ArrayProperties, numColumns int64, side boundSide) ([]*int64, error) {
	if value, ok := publicArgs[name]; ok {
		array, err := value.Array()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		bound, err := array.IntVector(numColumns)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		out := make([]*int64, numColumns)
		for i := range bound {
			v := bound[i]
			out[i] = &v
		}
		return out, nil
	}
	if props, ok := argProps[name]; ok {
		array, err := props.Array()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		var bound []*int64
		if side == lowerSide {
			bound, err = array.LowerIntOption()
		} else {
			bound, err = array.UpperIntOption()
		}
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		return broadcastOptionInts(bound, numColumns)
	}
	var bound []*int64
	var err error
	if side == lowerSide {
		bound, err = dataProps.LowerIntOption()
	} else {
		bound, err = dataProps.UpperIntOption()
	}
	if err != nil {
		return make([]*int64, numColumns), nil
	}
	return broadcastOptionInts(bound, numColumns)
}

func broadcastOptionFloats(bound []*float64, numColumns int64) ([]*float64, error) {
	if int64(len(bound)) == numColumns {
		return append([]*float64(nil), bound...), nil
	}
	if len(bound) == 1 {
		out := make([]*float64, numColumns)
		for i := range out {
			out[i] = bound[0]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%d bounds cannot be broadcast to %d columns", len(bound), numColumns)
}

func broadcastOptionInts(bound []*int64, numColumns int64) ([]*int64, error) {
	if int64(len(bound)) == numColumns {
		return append([]*int64(nil), bound...), nil
	}
	if len(bound) == 1 {
		out := make([]*int64, numColumns)
		for i := range out {
			out[i] = bound[0]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%d bounds cannot be broadcast to %d columns", len(bound), numColumns)
}

// sensitivityMatrix packs per-output sensitivities into a single-row
// matrix, the shape the runtime expects for a one-row aggregate.
func sensitivityMatrix(sensitivities []float64) (*base.Value, error) {
	array, err := base.NewFloatArray([]int64{1, int64(len(sensitivities))}, sensitivities)
	if err != nil {
		return nil, err
	}
	return base.ArrayValue(array), nil
}

// columnFloats extracts column j of a row-major array.
func columnFloats(data []float64, numColumns, j int64) []float64 {
	n := int64(len(data)) / numColumns
	out := make([]float64, n)
	for i := int64(0); i < n; i++ {
		out[i] = data[i*numColumns+j]
	}
	return out
}

// columnInts extracts column j of a row-major array.
func columnInts(data []int64, numColumns, j int64) []int64 {
	n := int64(len(data)) / numColumns
	out := make([]int64, n)
	for i := int64(0); i < n; i++ {
		out[i] = data[i*numColumns+j]
	}
	return out
}

// InferProperty derives the properties of a value known at validation time.
// Public values are the only ones this is ever called on, so the result is
// marked releasable when public is set.
func InferProperty(value *base.Value, public bool) (base.ValueProperties, error) {
	switch {
	case value.IsArray():
		return inferArrayProperty(value, public)
	case value.IsJagged():
		jagged, _ := value.Jagged()
		props := &base.JaggedProperties{
			DataType:   jagged.DataType(),
			Releasable: public,
		}
		if n, err := jagged.MaxLength(); err == nil {
			props.NumRecords = &n
		}
		return props, nil
	default:
		vm, err := value.Map()
		if err != nil {
			return nil, err
		}
		props := base.NewPropertiesMap()
		for _, key := range vm.Keys() {
			inner, _ := vm.Get(key)
			innerProps, err := InferProperty(inner, public)
			if err != nil {
				return nil, err
			}
			props.Set(key, innerProps)
		}
		return &base.MapProperties{Properties: props, Columnar: false}, nil
	}
}

func inferArrayProperty(value *base.Value, public bool) (base.ValueProperties, error) {
	array, err := value.Array()
	if err != nil {
		return nil, err
	}
	numRecords := array.NumRecords()
	numColumns := array.NumColumns()
	dimensionality := int64(len(array.Shape()))

	props := &base.ArrayProperties{
		NumRecords:     &numRecords,
		NumColumns:     &numColumns,
		Releasable:     public,
		CStability:     onesVector(numColumns),
		DataType:       array.DataType(),
		IsNotEmpty:     numRecords > 0,
		Dimensionality: &dimensionality,
	}

	switch array.DataType() {
	case base.FloatType:
		data, _ := array.Floats()
		for _, v := range data {
			if math.IsNaN(v) {
				props.Nullity = true
				break
			}
		}
		if numRecords > 0 && !props.Nullity {
			lower := make([]float64, numColumns)
			upper := make([]float64, numColumns)
			for j := int64(0); j < numColumns; j++ {
				col := columnFloats(data, numColumns, j)
				lower[j] = floats.Min(col)
				upper[j] = floats.Max(col)
			}
			props.Nature = &base.NatureContinuous{
				Lower: base.KnownFloatBounds(lower),
				Upper: base.KnownFloatBounds(upper),
			}
		}
	case base.IntType:
		data, _ := array.Ints()
		if numRecords > 0 {
			lower := make([]int64, numColumns)
			upper := make([]int64, numColumns)
			for j := int64(0); j < numColumns; j++ {
				col := columnInts(data, numColumns, j)
				lower[j], upper[j] = col[0], col[0]
				for _, v := range col {
					if v < lower[j] {
						lower[j] = v
					}
					if v > upper[j] {
						upper[j] = v
					}
				}
			}
			props.Nature = &base.NatureContinuous{
				Lower: base.KnownIntBounds(lower),
				Upper: base.KnownIntBounds(upper),
			}
		}
	case base.BoolType:
		categories := make([][]bool, numColumns)
		for j := range categories {
			categories[j] = []bool{false, true}
		}
		props.Nature = &base.NatureCategorical{Categories: base.NewBoolJagged(categories)}
	case base.StringType:
		data, _ := array.Strings()
		if numRecords > 0 {
			categories := make([][]string, numColumns)
			for j := int64(0); j < numColumns; j++ {
				seen := make(map[string]bool)
				for i := int64(0); i < numRecords; i++ {
					v := data[i*numColumns+j]
					if !seen[v] {
						seen[v] = true
						categories[j] = append(categories[j], v)
					}
				}
			}
			props.Nature = &base.NatureCategorical{Categories: base.NewStringJagged(categories)}
		}
	}
	return props, nil
}

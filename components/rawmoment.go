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

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// RawMoment aggregates each column into its raw moment of a given order,
// the average of the entries raised to that order.
type RawMoment struct {
	Order int64
}

// Name returns the variant name.
func (*RawMoment) Name() string { return "RawMoment" }

// PropagateProperty emits one aggregate row bounded by the extremes of
// x^order over the data bounds.
func (r *RawMoment) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if r.Order < 1 {
		return nil, fmt.Errorf("order must be at least 1, got %d", r.Order)
	}
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if dataProps.DataType != base.FloatType {
		return nil, fmt.Errorf("data must be float")
	}
	if err := dataProps.AssertNonNull(); err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotEmpty(); err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}

	one := int64(1)
	out := &base.ArrayProperties{
		NumRecords:     &one,
		NumColumns:     &numColumns,
		Releasable:     dataProps.Releasable,
		CStability:     append([]float64(nil), dataProps.CStability...),
		Aggregator:     base.NewAggregatorProperties(r, snapshotProperties(argProps), numColumns),
		DataType:       base.FloatType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	if lower, errL := dataProps.LowerFloat(); errL == nil {
		if upper, errU := dataProps.UpperFloat(); errU == nil {
			outLower := make([]float64, numColumns)
			outUpper := make([]float64, numColumns)
			for j := range outLower {
				outLower[j], outUpper[j] = powerRange(lower[j], upper[j], r.Order)
			}
			out.Nature = &base.NatureContinuous{
				Lower: base.KnownFloatBounds(outLower),
				Upper: base.KnownFloatBounds(outUpper),
			}
		}
	}
	return NewWarnable(out), nil
}

// powerRange is the image of [lower, upper] under x^order.
func powerRange(lower, upper float64, order int64) (float64, float64) {
	a := math.Pow(lower, float64(order))
	b := math.Pow(upper, float64(order))
	lo, hi := math.Min(a, b), math.Max(a, b)
	if order%2 == 0 && lower < 0 && upper > 0 {
		lo = 0
	}
	return lo, hi
}

// ComputeSensitivity derives the columnwise sensitivity of the raw moment
// from the image of the bounds and the statically known record count.
func (r *RawMoment) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotAggregated(); err != nil {
		return nil, err
	}
	n, err := dataProps.RecordCount()
	if err != nil {
		return nil, fmt.Errorf("raw moment sensitivity requires a known record count: %w", err)
	}
	lower, err := dataProps.LowerFloat()
	if err != nil {
		return nil, err
	}
	upper, err := dataProps.UpperFloat()
	if err != nil {
		return nil, err
	}

	k, ok := space.(base.KNorm)
	if !ok || (k != 1 && k != 2) {
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}

	sensitivities := make([]float64, len(lower))
	for j := range sensitivities {
		lo, hi := powerRange(lower[j], upper[j], r.Order)
		spread := hi - lo
		var row float64
		switch privacy.Neighboring {
		case base.AddRemove:
			row = spread / float64(n+1)
		case base.Substitute:
			row = spread / float64(n)
		default:
			return nil, fmt.Errorf("neighboring definition must be set")
		}
		sensitivities[j] = row * columnStability(dataProps.CStability, j, privacy)
	}
	return sensitivityMatrix(sensitivities)
}

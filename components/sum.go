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

// Sum aggregates each column into its columnwise total.
type Sum struct{}

// Name returns the variant name.
func (*Sum) Name() string { return "Sum" }

// PropagateProperty emits one aggregate row; bounds scale with the record
// count when it is known.
func (s *Sum) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	if !dataProps.DataType.IsNumeric() {
		return nil, fmt.Errorf("data must be numeric")
	}
	if err := dataProps.AssertNonNull(); err != nil {
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
		Aggregator:     base.NewAggregatorProperties(s, snapshotProperties(argProps), numColumns),
		DataType:       dataProps.DataType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	out.Nature = sumNature(dataProps, numColumns)
	return NewWarnable(out), nil
}

func sumNature(dataProps *base.ArrayProperties, numColumns int64) base.Nature {
	if dataProps.NumRecords == nil {
		return nil
	}
	n := float64(*dataProps.NumRecords)
	lower, errL := dataBoundsFloat(dataProps, lowerSide)
	upper, errU := dataBoundsFloat(dataProps, upperSide)
	if errL != nil || errU != nil {
		return nil
	}
	outLower := make([]float64, numColumns)
	outUpper := make([]float64, numColumns)
	for j := range outLower {
		outLower[j] = lower[j] * n
		outUpper[j] = upper[j] * n
	}
	return &base.NatureContinuous{
		Lower: base.KnownFloatBounds(outLower),
		Upper: base.KnownFloatBounds(outUpper),
	}
}

// ComputeSensitivity derives the columnwise sensitivity of the sum from the
// data bounds. Under AddRemove the extreme contribution of one record is
// the larger bound magnitude; under Substitute it is the bound range.
func (s *Sum) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotAggregated(); err != nil {
		return nil, err
	}
	lower, err := dataBoundsFloat(dataProps, lowerSide)
	if err != nil {
		return nil, err
	}
	upper, err := dataBoundsFloat(dataProps, upperSide)
	if err != nil {
		return nil, err
	}

	k, ok := space.(base.KNorm)
	if !ok || (k != 1 && k != 2) {
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}

	sensitivities := make([]float64, len(lower))
	for j := range sensitivities {
		var row float64
		switch privacy.Neighboring {
		case base.AddRemove:
			row = math.Max(math.Abs(lower[j]), math.Abs(upper[j]))
		case base.Substitute:
			row = upper[j] - lower[j]
		default:
			return nil, fmt.Errorf("neighboring definition must be set")
		}
		if k == 2 {
			row *= row
		}
		sensitivities[j] = row * columnStability(dataProps.CStability, j, privacy)
	}
	return sensitivityMatrix(sensitivities)
}

// dataBoundsFloat reads one side of the data's continuous bounds as floats,
// promoting integer bounds.
func dataBoundsFloat(dataProps *base.ArrayProperties, side boundSide) ([]float64, error) {
	if dataProps.DataType == base.IntType {
		var bound []int64
		var err error
		if side == lowerSide {
			bound, err = dataProps.LowerInt()
		} else {
			bound, err = dataProps.UpperInt()
		}
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(bound))
		for i, v := range bound {
			out[i] = float64(v)
		}
		return out, nil
	}
	if side == lowerSide {
		return dataProps.LowerFloat()
	}
	return dataProps.UpperFloat()
}

// columnStability is the sensitivity multiplier for column j from upstream
// c-stability and the group size.
func columnStability(stabilities []float64, j int, privacy *base.PrivacyDefinition) float64 {
	stability := 1.0
	if j < len(stabilities) {
		stability = stabilities[j]
	} else if len(stabilities) == 1 {
		stability = stabilities[0]
	}
	return stability * float64(privacy.GroupSize)
}

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

// Variance aggregates each column into its columnwise variance.
type Variance struct {
	// FiniteSampleCorrection divides by n-1 instead of n.
	FiniteSampleCorrection bool
}

// Name returns the variant name.
func (*Variance) Name() string { return "Variance" }

// PropagateProperty emits one aggregate row, bounded above by Popoviciu's
// inequality.
func (v *Variance) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
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
		Aggregator:     base.NewAggregatorProperties(v, snapshotProperties(argProps), numColumns),
		DataType:       base.FloatType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	if lower, errL := dataProps.LowerFloat(); errL == nil {
		if upper, errU := dataProps.UpperFloat(); errU == nil {
			outLower := make([]float64, numColumns)
			outUpper := make([]float64, numColumns)
			for j := range outUpper {
				spread := upper[j] - lower[j]
				// Popoviciu's inequality on variances.
				outUpper[j] = spread * spread / 4
			}
			out.Nature = &base.NatureContinuous{
				Lower: base.KnownFloatBounds(outLower),
				Upper: base.KnownFloatBounds(outUpper),
			}
		}
	}
	return NewWarnable(out), nil
}

// ComputeSensitivity derives the columnwise sensitivity of the variance
// from the data bounds and the statically known record count.
func (v *Variance) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotAggregated(); err != nil {
		return nil, err
	}
	n, err := dataProps.RecordCount()
	if err != nil {
		return nil, fmt.Errorf("variance sensitivity requires a known record count: %w", err)
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

	scaling, err := varianceScaling(float64(n), v.FiniteSampleCorrection, privacy.Neighboring)
	if err != nil {
		return nil, err
	}
	sensitivities := make([]float64, len(lower))
	for j := range sensitivities {
		spread := upper[j] - lower[j]
		row := spread * spread * scaling
		sensitivities[j] = row * columnStability(dataProps.CStability, j, privacy)
	}
	return sensitivityMatrix(sensitivities)
}

// varianceScaling is the record-count factor of the variance sensitivity.
// The normalization term matches the divisor the estimator itself uses.
func varianceScaling(n float64, finiteSampleCorrection bool, neighboring base.Neighboring) (float64, error) {
	norm := n
	if finiteSampleCorrection {
		norm = n - 1
	}
	if norm <= 0 {
		return 0, fmt.Errorf("record count %d is too small for the variance normalization", int64(n))
	}
	switch neighboring {
	case base.AddRemove:
		return n / (n + 1) / norm, nil
	case base.Substitute:
		return (n - 1) / n / norm, nil
	default:
		return 0, fmt.Errorf("neighboring definition must be set")
	}
}

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

// Mean aggregates each column into its columnwise average.
type Mean struct{}

// Name returns the variant name.
func (*Mean) Name() string { return "Mean" }

// PropagateProperty emits one aggregate row within the data bounds.
func (m *Mean) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
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
		Aggregator:     base.NewAggregatorProperties(m, snapshotProperties(argProps), numColumns),
		DataType:       base.FloatType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	// The mean stays within the data bounds.
	if lower, err := dataProps.LowerFloatOption(); err == nil {
		if upper, err := dataProps.UpperFloatOption(); err == nil {
			out.Nature = &base.NatureContinuous{
				Lower: base.FloatBounds(lower),
				Upper: base.FloatBounds(upper),
			}
		}
	}
	return NewWarnable(out), nil
}

// ComputeSensitivity derives the columnwise sensitivity of the mean from
// the data bounds and the statically known record count.
func (m *Mean) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotAggregated(); err != nil {
		return nil, err
	}
	n, err := dataProps.RecordCount()
	if err != nil {
		return nil, fmt.Errorf("mean sensitivity requires a known record count: %w", err)
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
		spread := upper[j] - lower[j]
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

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

// Histogram aggregates a single categorical column into per-category
// counts.
type Histogram struct{}

// Name returns the variant name.
func (*Histogram) Name() string { return "Histogram" }

// PropagateProperty emits one count per category, each bounded below by
// zero.
func (h *Histogram) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	if numColumns != 1 {
		return nil, fmt.Errorf("data must be a single column, got %d", numColumns)
	}
	categories, err := dataProps.Categories()
	if err != nil {
		return nil, fmt.Errorf("data must be categorical: %w", err)
	}
	lengths, err := categories.Lengths()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	numCategories := lengths[0]
	if numCategories < 1 {
		return nil, fmt.Errorf("at least one category is required")
	}

	one := int64(1)
	zero := int64(0)
	upper := []*int64{dataProps.NumRecords}
	out := &base.ArrayProperties{
		NumRecords: &numCategories,
		NumColumns: &one,
		Releasable: dataProps.Releasable,
		CStability: maxStability(dataProps.CStability, 1),
		Aggregator: base.NewAggregatorProperties(h, snapshotProperties(argProps), numCategories),
		Nature: &base.NatureContinuous{
			Lower: base.KnownIntBounds([]int64{zero}),
			Upper: base.IntBounds(upper),
		},
		DataType:       base.IntType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	return NewWarnable(out), nil
}

// ComputeSensitivity derives the per-cell sensitivity of the counts. One
// substituted record moves two cells, one added or removed record moves
// one.
func (h *Histogram) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	categories, err := dataProps.Categories()
	if err != nil {
		return nil, fmt.Errorf("data must be categorical: %w", err)
	}
	lengths, err := categories.Lengths()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	numCategories := lengths[0]

	var row float64
	switch s := space.(type) {
	case base.KNorm:
		switch {
		case s == 1 && privacy.Neighboring == base.AddRemove:
			row = 1
		case s == 1 && privacy.Neighboring == base.Substitute:
			row = 2
		case s == 2 && privacy.Neighboring == base.AddRemove:
			row = 1
		case s == 2 && privacy.Neighboring == base.Substitute:
			row = math.Sqrt2
		default:
			return nil, fmt.Errorf("sensitivity is not defined in %s", s)
		}
	case base.InfNorm:
		row = 1
	default:
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}

	row *= stabilityFactor(dataProps.CStability, privacy)
	sensitivities := make([]float64, numCategories)
	for i := range sensitivities {
		sensitivities[i] = row
	}
	return sensitivityMatrix(sensitivities)
}

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

// Quantile aggregates each column into its alpha-quantile.
type Quantile struct {
	Alpha float64
	// Interpolation is one of lower, upper, nearest, midpoint, linear.
	Interpolation string
}

// Name returns the variant name.
func (*Quantile) Name() string { return "Quantile" }

// PropagateProperty emits one aggregate row within the data bounds.
func (q *Quantile) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if q.Alpha < 0 || q.Alpha > 1 || math.IsNaN(q.Alpha) {
		return nil, fmt.Errorf("alpha must be within [0, 1], got %f", q.Alpha)
	}
	switch q.Interpolation {
	case "lower", "upper", "nearest", "midpoint", "linear":
	default:
		return nil, fmt.Errorf("unsupported interpolation %s", q.Interpolation)
	}
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if !dataProps.DataType.IsNumeric() {
		return nil, fmt.Errorf("data must be numeric")
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

	// With a public candidate set the quantile scores each candidate instead
	// of indexing into the data, so the output is a jagged utility matrix.
	if candidatesValue, ok := publicArgs["candidates"]; ok {
		candidates, err := candidatesValue.Jagged()
		if err != nil {
			return nil, fmt.Errorf("candidates: %w", err)
		}
		if candidates.DataType() != dataProps.DataType {
			return nil, fmt.Errorf("data type of candidates must match the data")
		}
		numRecords, err := candidates.MaxLength()
		if err != nil {
			return nil, fmt.Errorf("candidates: %w", err)
		}
		return NewWarnable(&base.JaggedProperties{
			NumRecords: &numRecords,
			Aggregator: base.NewAggregatorProperties(q, snapshotProperties(argProps), numColumns),
			DataType:   base.FloatType,
		}), nil
	}

	one := int64(1)
	out := &base.ArrayProperties{
		NumRecords:     &one,
		NumColumns:     &numColumns,
		Releasable:     dataProps.Releasable,
		CStability:     append([]float64(nil), dataProps.CStability...),
		Aggregator:     base.NewAggregatorProperties(q, snapshotProperties(argProps), numColumns),
		DataType:       dataProps.DataType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	// Midpoint and linear interpolation leave the integers.
	if q.Interpolation == "midpoint" || q.Interpolation == "linear" {
		out.DataType = base.FloatType
	}
	out.Nature = dataProps.Nature
	return NewWarnable(out), nil
}

// ComputeSensitivity derives the quantile's sensitivity. In the additive
// noise space a displaced record can move the quantile across the whole
// bound range; in the exponential space the utility shift depends only on
// alpha.
func (q *Quantile) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := dataProps.AssertIsNotAggregated(); err != nil {
		return nil, err
	}
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}

	switch s := space.(type) {
	case base.KNorm:
		if s != 1 {
			return nil, fmt.Errorf("sensitivity is not defined in %s", s)
		}
		lower, err := dataBoundsFloat(dataProps, lowerSide)
		if err != nil {
			return nil, err
		}
		upper, err := dataBoundsFloat(dataProps, upperSide)
		if err != nil {
			return nil, err
		}
		sensitivities := make([]float64, numColumns)
		for j := range sensitivities {
			sensitivities[j] = (upper[j] - lower[j]) * columnStability(dataProps.CStability, j, privacy)
		}
		return sensitivityMatrix(sensitivities)
	case base.Exponential:
		var row float64
		switch privacy.Neighboring {
		case base.AddRemove:
			row = math.Max(q.Alpha, 1-q.Alpha)
		case base.Substitute:
			row = 1
		default:
			return nil, fmt.Errorf("neighboring definition must be set")
		}
		sensitivities := make([]float64, numColumns)
		for j := range sensitivities {
			sensitivities[j] = row * columnStability(dataProps.CStability, j, privacy)
		}
		return sensitivityMatrix(sensitivities)
	default:
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}
}

// Minimum is the 0-quantile; shorthand for Quantile.
type Minimum struct{}

// Name returns the variant name.
func (*Minimum) Name() string { return "Minimum" }

// Expand rewrites the node into a Quantile.
func (*Minimum) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToQuantile(component, 0, "lower", nodeID, maximumID)
}

// Median is the ½-quantile; shorthand for Quantile.
type Median struct{}

// Name returns the variant name.
func (*Median) Name() string { return "Median" }

// Expand rewrites the node into a Quantile.
func (*Median) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToQuantile(component, 0.5, "midpoint", nodeID, maximumID)
}

// Maximum is the 1-quantile; shorthand for Quantile.
type Maximum struct{}

// Name returns the variant name.
func (*Maximum) Name() string { return "Maximum" }

// Expand rewrites the node into a Quantile.
func (*Maximum) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToQuantile(component, 1, "upper", nodeID, maximumID)
}

func expandToQuantile(component *Component, alpha float64, interpolation string, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	expansion := NewComponentExpansion(maximumID)
	arguments := make(map[string]uint32, len(component.Arguments))
	for name, id := range component.Arguments {
		arguments[name] = id
	}
	expansion.ReplaceNode(nodeID, &Component{
		Variant:    &Quantile{Alpha: alpha, Interpolation: interpolation},
		Arguments:  arguments,
		Omit:       component.Omit,
		Submission: component.Submission,
	})
	expansion.Revisit(nodeID)
	return expansion, nil
}

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

// Cast converts a column's atomic type. Casting to bool requires a public
// true_label; casting to int requires public lower and upper bounds, since
// unparseable entries are imputed uniformly within them.
type Cast struct {
	AtomicType base.DataType
}

// Name returns the variant name.
func (*Cast) Name() string { return "Cast" }

// PropagateProperty rewrites the data type and the nullity and nature rules
// of the target type.
func (c *Cast) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	out := dataProps.Copy()
	out.DataType = c.AtomicType

	switch c.AtomicType {
	case base.BoolType:
		trueLabel, ok := publicArgs["true_label"]
		if !ok {
			return nil, fmt.Errorf("true_label must be a public argument when casting to bool")
		}
		if _, err := trueLabel.Array(); err != nil {
			return nil, fmt.Errorf("true_label: %w", err)
		}
		// Entries not matching the label become false, never null.
		out.Nullity = false
		numColumns, err := out.ColumnCount()
		if err != nil {
			return nil, err
		}
		categories := make([][]bool, numColumns)
		for j := range categories {
			categories[j] = []bool{false, true}
		}
		out.Nature = &base.NatureCategorical{Categories: base.NewBoolJagged(categories)}

	case base.IntType:
		numColumns, err := out.ColumnCount()
		if err != nil {
			return nil, err
		}
		lower, err := resolveIntBound(publicArgs, argProps, "lower", dataProps, numColumns, lowerSide)
		if err != nil {
			return nil, err
		}
		upper, err := resolveIntBound(publicArgs, argProps, "upper", dataProps, numColumns, upperSide)
		if err != nil {
			return nil, err
		}
		for j := int64(0); j < numColumns; j++ {
			if lower[j] == nil || upper[j] == nil {
				return nil, fmt.Errorf("lower and upper must be known when casting to int")
			}
			if *lower[j] > *upper[j] {
				return nil, fmt.Errorf("column %d: lower bound (%d) exceeds upper bound (%d)", j, *lower[j], *upper[j])
			}
		}
		// Unparseable entries are imputed within the bounds.
		out.Nullity = false
		out.Nature = &base.NatureContinuous{
			Lower: base.IntBounds(lower),
			Upper: base.IntBounds(upper),
		}

	case base.FloatType:
		// Unparseable entries become NaN.
		out.Nullity = true
		out.Nature = nil

	case base.StringType:
		out.Nature = nil

	default:
		return nil, fmt.Errorf("unsupported cast target")
	}
	return NewWarnable(out), nil
}

// ToBool casts to boolean; shorthand for Cast.
type ToBool struct{}

// Name returns the variant name.
func (*ToBool) Name() string { return "ToBool" }

// Expand rewrites the node into a Cast.
func (*ToBool) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToCast(component, base.BoolType, nodeID, maximumID)
}

// ToFloat casts to float; shorthand for Cast.
type ToFloat struct{}

// Name returns the variant name.
func (*ToFloat) Name() string { return "ToFloat" }

// Expand rewrites the node into a Cast.
func (*ToFloat) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToCast(component, base.FloatType, nodeID, maximumID)
}

// ToInt casts to integer; shorthand for Cast.
type ToInt struct{}

// Name returns the variant name.
func (*ToInt) Name() string { return "ToInt" }

// Expand rewrites the node into a Cast.
func (*ToInt) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToCast(component, base.IntType, nodeID, maximumID)
}

// ToString casts to string; shorthand for Cast.
type ToString struct{}

// Name returns the variant name.
func (*ToString) Name() string { return "ToString" }

// Expand rewrites the node into a Cast.
func (*ToString) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandToCast(component, base.StringType, nodeID, maximumID)
}

func expandToCast(component *Component, atomicType base.DataType, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	expansion := NewComponentExpansion(maximumID)
	arguments := make(map[string]uint32, len(component.Arguments))
	for name, id := range component.Arguments {
		arguments[name] = id
	}
	expansion.ReplaceNode(nodeID, &Component{
		Variant:    &Cast{AtomicType: atomicType},
		Arguments:  arguments,
		Omit:       component.Omit,
		Submission: component.Submission,
	})
	expansion.Revisit(nodeID)
	return expansion, nil
}

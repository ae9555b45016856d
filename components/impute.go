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

// Impute replaces missing entries, either by sampling from a category set
// or by drawing from a distribution truncated to known bounds. The output
// is guaranteed non-null.
type Impute struct{}

// Name returns the variant name.
func (*Impute) Name() string { return "Impute" }

// PropagateProperty clears nullity and widens the continuous bounds to
// cover both surviving and imputed entries.
func (*Impute) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	if _, categorical := publicArgs["categories"]; categorical {
		return imputeCategorical(publicArgs, dataProps)
	}
	return imputeContinuous(publicArgs, argProps, dataProps)
}

func imputeCategorical(publicArgs map[string]*base.Value, dataProps *base.ArrayProperties) (*Warnable, error) {
	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	jagged, err := publicArgs["categories"].Jagged()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if jagged.DataType() != dataProps.DataType && dataProps.DataType != base.UnknownType {
		return nil, fmt.Errorf("categories must share the data's atomic type")
	}
	categories, err := jagged.Standardize(numColumns)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	out := dataProps.Copy()
	out.Nullity = false
	out.Nature = &base.NatureCategorical{Categories: categories}
	return NewWarnable(out), nil
}

func imputeContinuous(publicArgs map[string]*base.Value, argProps base.NodeProperties, dataProps *base.ArrayProperties) (*Warnable, error) {
	if !dataProps.DataType.IsNumeric() {
		return nil, fmt.Errorf("data must be numeric to impute from a distribution")
	}
	distribution := "Uniform"
	if value, ok := publicArgs["distribution"]; ok {
		name, err := value.FirstString()
		if err != nil {
			return nil, fmt.Errorf("distribution: %w", err)
		}
		distribution = name
	}
	switch distribution {
	case "Uniform":
	case "Gaussian":
		if dataProps.DataType != base.FloatType {
			return nil, fmt.Errorf("Gaussian imputation requires float data")
		}
		if _, ok := publicArgs["shift"]; !ok {
			return nil, fmt.Errorf("shift must be a public argument under Gaussian imputation")
		}
		if _, ok := publicArgs["scale"]; !ok {
			return nil, fmt.Errorf("scale must be a public argument under Gaussian imputation")
		}
	default:
		return nil, fmt.Errorf("unsupported imputation distribution %s", distribution)
	}

	numColumns, err := dataProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	out := dataProps.Copy()
	out.Nullity = false

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
				return nil, fmt.Errorf("column %d: imputation bounds could not be resolved", j)
			}
			if *lower[j] >= *upper[j] {
				return nil, fmt.Errorf("column %d: lower bound (%d) must be strictly less than upper bound (%d)", j, *lower[j], *upper[j])
			}
			lower[j] = widenIntLower(prevLower[j], lower[j])
			upper[j] = widenIntUpper(prevUpper[j], upper[j])
		}
		out.Nature = &base.NatureContinuous{Lower: base.IntBounds(lower), Upper: base.IntBounds(upper)}
		return NewWarnable(out), nil
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
			return nil, fmt.Errorf("column %d: imputation bounds could not be resolved", j)
		}
		if *lower[j] >= *upper[j] {
			return nil, fmt.Errorf("column %d: lower bound (%f) must be strictly less than upper bound (%f)", j, *lower[j], *upper[j])
		}
		lower[j] = widenFloatLower(prevLower[j], lower[j])
		upper[j] = widenFloatUpper(prevUpper[j], upper[j])
	}
	out.Nature = &base.NatureContinuous{Lower: base.FloatBounds(lower), Upper: base.FloatBounds(upper)}
	return NewWarnable(out), nil
}

// widenFloatLower takes the looser of the data's prior bound and the
// imputation bound. Surviving entries obey the prior bound, imputed entries
// the imputation bound; when the prior is unknown the output is unknown.
func widenFloatLower(prior, imputed *float64) *float64 {
	if prior == nil {
		return nil
	}
	if *prior < *imputed {
		return prior
	}
	return imputed
}

func widenFloatUpper(prior, imputed *float64) *float64 {
	if prior == nil {
		return nil
	}
	if *prior > *imputed {
		return prior
	}
	return imputed
}

func widenIntLower(prior, imputed *int64) *int64 {
	if prior == nil {
		return nil
	}
	if *prior < *imputed {
		return prior
	}
	return imputed
}

func widenIntUpper(prior, imputed *int64) *int64 {
	if prior == nil {
		return nil
	}
	if *prior > *imputed {
		return prior
	}
	return imputed
}

// Expand synthesizes literal bound nodes for continuous imputation, exactly
// as Clamp does.
func (*Impute) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	if _, categorical := publicArgs["categories"]; categorical {
		return NewComponentExpansion(maximumID), nil
	}
	return expandNumericBounds(component, argProps, nodeID, maximumID)
}

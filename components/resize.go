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

// Resize pads or subsamples data to a target number of records, making the
// record count statically known. Synthetic padding records are drawn within
// the supplied bounds or categories.
type Resize struct{}

// Name returns the variant name.
func (*Resize) Name() string { return "Resize" }

// PropagateProperty pins the record count, doubles c-stability, and widens
// the bounds to cover synthetic records.
func (*Resize) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}

	_, hasNumberRows := publicArgs["number_rows"]
	_, hasMinimumRows := publicArgs["minimum_rows"]
	if hasNumberRows && hasMinimumRows {
		return nil, fmt.Errorf("number_rows and minimum_rows may not both be set")
	}

	var out *base.ArrayProperties
	if _, categorical := publicArgs["categories"]; categorical {
		if dataProps.DataType == base.FloatType {
			return nil, fmt.Errorf("float data may not be categorical")
		}
		warnable, err := imputeCategorical(publicArgs, dataProps)
		if err != nil {
			return nil, err
		}
		arr, _ := warnable.Properties.Array()
		out = arr
	} else {
		warnable, err := imputeContinuous(publicArgs, argProps, dataProps)
		if err != nil {
			return nil, err
		}
		arr, _ := warnable.Properties.Array()
		out = arr
	}
	// Padding records are non-null, but surviving records keep their nullity.
	out.Nullity = dataProps.Nullity

	if numberColumns, ok := publicArgs["number_columns"]; ok {
		if dataProps.NumColumns != nil {
			return nil, fmt.Errorf("number_columns may not be set when the column count is already known")
		}
		n, err := numberColumns.FirstInt()
		if err != nil {
			return nil, fmt.Errorf("number_columns: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("number_columns must be at least 1, got %d", n)
		}
		out.NumColumns = &n
	}

	if hasNumberRows {
		n, err := publicArgs["number_rows"].FirstInt()
		if err != nil {
			return nil, fmt.Errorf("number_rows: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("number_rows must be greater than zero, got %d", n)
		}
		out.NumRecords = &n
		out.IsNotEmpty = true
	} else if hasMinimumRows {
		n, err := publicArgs["minimum_rows"].FirstInt()
		if err != nil {
			return nil, fmt.Errorf("minimum_rows: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("minimum_rows must be greater than zero, got %d", n)
		}
		out.NumRecords = nil
		out.IsNotEmpty = true
	}

	// A record influences both its own slot and the subsampling of padding,
	// so each record's stability doubles.
	for i := range out.CStability {
		out.CStability[i] *= 2
	}
	return NewWarnable(out), nil
}

// Expand synthesizes literal bound nodes for continuous resizing, exactly
// as Clamp does.
func (*Resize) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	if _, categorical := publicArgs["categories"]; categorical {
		return NewComponentExpansion(maximumID), nil
	}
	return expandNumericBounds(component, argProps, nodeID, maximumID)
}

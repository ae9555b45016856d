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

// Count aggregates data into its number of records.
type Count struct{}

// Name returns the variant name.
func (*Count) Name() string { return "Count" }

// PropagateProperty emits a single integer aggregate bounded below by zero.
func (c *Count) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	one := int64(1)
	zero := int64(0)
	upper := []*int64{nil}
	if dataProps.NumRecords != nil {
		upper[0] = dataProps.NumRecords
	}
	out := &base.ArrayProperties{
		NumRecords: &one,
		NumColumns: &one,
		Releasable: dataProps.Releasable,
		CStability: maxStability(dataProps.CStability, 1),
		Aggregator: base.NewAggregatorProperties(c, snapshotProperties(argProps), 1),
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

// ComputeSensitivity derives the count's sensitivity. Adding or removing a
// record moves the count by one; substitution leaves a statically known
// count untouched.
func (c *Count) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	switch space.(type) {
	case base.KNorm, base.InfNorm:
	default:
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}
	var rowSensitivity float64
	switch privacy.Neighboring {
	case base.AddRemove:
		rowSensitivity = 1
	case base.Substitute:
		if dataProps.NumRecords != nil {
			rowSensitivity = 0
		} else {
			rowSensitivity = 1
		}
	default:
		return nil, fmt.Errorf("neighboring definition must be set")
	}
	sensitivity := rowSensitivity * stabilityFactor(dataProps.CStability, privacy)
	return sensitivityMatrix([]float64{sensitivity})
}

// snapshotProperties copies the argument property map for retention in an
// aggregator record, so later graph rewrites cannot alias it.
func snapshotProperties(argProps base.NodeProperties) base.NodeProperties {
	out := make(base.NodeProperties, len(argProps))
	for name, props := range argProps {
		out[name] = props
	}
	return out
}

// maxStability collapses per-column stabilities into n copies of the worst
// one, for aggregates whose outputs depend on every column.
func maxStability(stabilities []float64, n int64) []float64 {
	worst := 1.0
	for _, s := range stabilities {
		if s > worst {
			worst = s
		}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = worst
	}
	return out
}

// stabilityFactor is the sensitivity multiplier from upstream c-stability
// and the group size of the privacy definition.
func stabilityFactor(stabilities []float64, privacy *base.PrivacyDefinition) float64 {
	worst := 1.0
	for _, s := range stabilities {
		if s > worst {
			worst = s
		}
	}
	return worst * float64(privacy.GroupSize)
}

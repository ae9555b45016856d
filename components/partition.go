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
	"sort"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
)

// Partition splits data into disjoint row groups, either evenly into
// num_partitions groups or keyed by a categorical column.
type Partition struct{}

// Name returns the variant name.
func (*Partition) Name() string { return "Partition" }

// PropagateProperty emits a disjoint partitioned map. Disjointness is what
// later lets budget accounting take the maximum over partitions instead of
// the sum.
func (p *Partition) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}

	props := base.NewPropertiesMap()
	if value, ok := publicArgs["num_partitions"]; ok {
		k, err := value.FirstInt()
		if err != nil {
			return nil, fmt.Errorf("num_partitions: %w", err)
		}
		if k < 1 {
			return nil, fmt.Errorf("num_partitions must be at least 1, got %d", k)
		}
		for i := int64(0); i < k; i++ {
			part := dataProps.Copy()
			part.Aggregator = nil
			if dataProps.NumRecords != nil {
				// Even partitioning gives the first n%k groups one extra row.
				n := *dataProps.NumRecords/k + boolToInt64(i < *dataProps.NumRecords%k)
				part.NumRecords = &n
				part.IsNotEmpty = n > 0
			} else {
				part.NumRecords = nil
				part.IsNotEmpty = false
			}
			datasetID := int64(nodeID)<<16 | i
			part.DatasetID = &datasetID
			props.Set(base.IntKey(i), part)
		}
	} else if value, ok := publicArgs["categories"]; ok {
		byProps, err := arrayProperties(argProps, "by")
		if err != nil {
			return nil, err
		}
		if err := conformable(dataProps, byProps); err != nil {
			return nil, fmt.Errorf("by: %w", err)
		}
		keys, err := partitionKeys(value)
		if err != nil {
			return nil, err
		}
		for i, key := range keys {
			part := dataProps.Copy()
			part.Aggregator = nil
			part.NumRecords = nil
			part.IsNotEmpty = false
			datasetID := int64(nodeID)<<16 | int64(i)
			part.DatasetID = &datasetID
			props.Set(key, part)
		}
	} else {
		return nil, fmt.Errorf("either num_partitions or categories must be supplied")
	}

	return NewWarnable(&base.MapProperties{
		NumRecords: dataProps.NumRecords,
		Disjoint:   true,
		Properties: props,
		Columnar:   false,
	}), nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func partitionKeys(value *base.Value) ([]base.MapKey, error) {
	array, err := value.Array()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	switch array.DataType() {
	case base.StringType:
		names, _ := array.Strings()
		keys := make([]base.MapKey, len(names))
		for i, name := range names {
			keys[i] = base.StringKey(name)
		}
		return keys, nil
	case base.IntType:
		values, _ := array.Ints()
		keys := make([]base.MapKey, len(values))
		for i, v := range values {
			keys[i] = base.IntKey(v)
		}
		return keys, nil
	case base.BoolType:
		values, _ := array.Bools()
		keys := make([]base.MapKey, len(values))
		for i, v := range values {
			keys[i] = base.BoolKey(v)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("partition categories must be strings, integers or booleans")
	}
}

// Union concatenates its argument arrays back into one dataset, row-wise.
type Union struct{}

// Name returns the variant name.
func (*Union) Name() string { return "Union" }

// PropagateProperty merges the argument properties: record counts add,
// bounds widen, and stability takes the columnwise worst case.
func (u *Union) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if len(argProps) == 0 {
		return nil, fmt.Errorf("at least one argument is required")
	}
	names := make([]string, 0, len(argProps))
	for name := range argProps {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]*base.ArrayProperties, 0, len(names))
	for _, name := range names {
		part, err := arrayProperties(argProps, name)
		if err != nil {
			return nil, err
		}
		if err := assertUnreleasedNotAggregated(part); err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		parts = append(parts, part)
	}

	out := parts[0].Copy()
	numColumns, err := parts[0].ColumnCount()
	if err != nil {
		return nil, err
	}
	total := int64(0)
	countKnown := true
	for i, part := range parts {
		cols, err := part.ColumnCount()
		if err != nil {
			return nil, err
		}
		if cols != numColumns {
			return nil, fmt.Errorf("argument %s: column counts do not match: %d and %d", names[i], cols, numColumns)
		}
		if part.NumRecords == nil {
			countKnown = false
		} else {
			total += *part.NumRecords
		}
		if i == 0 {
			continue
		}
		out.Nullity = out.Nullity || part.Nullity
		out.Releasable = out.Releasable && part.Releasable
		out.IsNotEmpty = out.IsNotEmpty || part.IsNotEmpty
		if part.DataType != out.DataType {
			out.DataType = base.UnknownType
		}
		for j := int64(0); j < numColumns; j++ {
			s := columnStabilityRaw(part.CStability, int(j))
			if s > out.CStability[j] {
				out.CStability[j] = s
			}
		}
	}
	if countKnown {
		out.NumRecords = &total
	} else {
		out.NumRecords = nil
	}
	datasetID := int64(nodeID)
	out.DatasetID = &datasetID
	out.Nature = unionNature(parts, numColumns)
	return NewWarnable(out), nil
}

func unionNature(parts []*base.ArrayProperties, numColumns int64) base.Nature {
	lower, upper, ok := knownBounds(parts[0], numColumns)
	if !ok {
		return nil
	}
	outLower := append([]float64(nil), lower...)
	outUpper := append([]float64(nil), upper...)
	for _, part := range parts[1:] {
		lower, upper, ok = knownBounds(part, numColumns)
		if !ok {
			return nil
		}
		outLower = elementwiseMin(outLower, lower)
		outUpper = elementwiseMax(outUpper, upper)
	}
	return &base.NatureContinuous{
		Lower: base.KnownFloatBounds(outLower),
		Upper: base.KnownFloatBounds(outUpper),
	}
}

// Map applies an inner operation to every partition of a partitioned map.
type Map struct {
	Component Variant
}

// Name returns the variant name.
func (m *Map) Name() string {
	if m.Component == nil {
		return "Map"
	}
	return "Map[" + m.Component.Name() + "]"
}

// PropagateProperty runs the inner operation's propagation per partition,
// keeping the map disjoint. Shared arguments are forwarded unchanged.
func (m *Map) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	propagator, ok := m.Component.(PropertyPropagator)
	if !ok {
		return nil, fmt.Errorf("mapped operation must support property propagation")
	}
	dataProps, err := argumentProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	partitions, err := dataProps.Partitions()
	if err != nil {
		return nil, err
	}
	if partitions.Columnar {
		return nil, fmt.Errorf("data must be partitioned, not columnar")
	}

	warnable := &Warnable{}
	outProps := base.NewPropertiesMap()
	for _, key := range partitions.Properties.Keys() {
		partProps, _ := partitions.Properties.Get(key)
		innerArgs := make(base.NodeProperties, len(argProps))
		for name, props := range argProps {
			innerArgs[name] = props
		}
		innerArgs["data"] = partProps
		inner, err := propagator.PropagateProperty(privacy, publicArgs, innerArgs, nodeID)
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", key, err)
		}
		for _, warning := range inner.Warnings {
			warnable.Warn("partition %s: %s", key, warning)
		}
		outProps.Set(key, inner.Properties)
	}
	warnable.Properties = &base.MapProperties{
		NumRecords: partitions.NumRecords,
		Disjoint:   partitions.Disjoint,
		Properties: outProps,
		Columnar:   false,
	}
	return warnable, nil
}

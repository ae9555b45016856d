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

// Literal is a constant embedded in the graph. Public literals have their
// properties inferred from the value itself by the traversal; this fallback
// covers literals the analyst chose not to mark public.
type Literal struct{}

// Name returns the variant name.
func (*Literal) Name() string { return "Literal" }

// PropagateProperty assumes nothing about a private literal.
func (*Literal) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return NewWarnable(&base.ArrayProperties{
		Nullity:    true,
		CStability: onesVector(1),
		DataType:   base.UnknownType,
	}), nil
}

// Materialize loads a tabular dataset. Its output is a columnar map of
// string columns; nothing about the private contents is assumed.
type Materialize struct {
	DataPath    string
	ColumnNames []string
	// Public marks the entire dataset as non-sensitive.
	Public bool
}

// Name returns the variant name.
func (*Materialize) Name() string { return "Materialize" }

// PropagateProperty emits one untyped, possibly-null column property per
// declared column, all tagged with this node's dataset id.
func (m *Materialize) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if len(m.ColumnNames) == 0 {
		return nil, fmt.Errorf("column names must be declared")
	}
	datasetID := int64(nodeID)
	one := int64(1)
	props := base.NewPropertiesMap()
	for _, name := range m.ColumnNames {
		props.Set(base.StringKey(name), &base.ArrayProperties{
			NumColumns:     &one,
			Nullity:        true,
			Releasable:     m.Public,
			CStability:     onesVector(1),
			DataType:       base.StringType,
			DatasetID:      &datasetID,
			Dimensionality: &one,
		})
	}
	return NewWarnable(&base.MapProperties{
		Properties: props,
		Columnar:   true,
	}), nil
}

// ComputeNames reports the declared column names.
func (m *Materialize) ComputeNames(publicArgs map[string]*base.Value, argNames map[string][]string, release *base.Value) ([]string, error) {
	return m.ColumnNames, nil
}

// Index selects columns out of a columnar map, or one partition out of a
// partitioned map.
type Index struct{}

// Name returns the variant name.
func (*Index) Name() string { return "Index" }

// PropagateProperty stacks the selected column properties into a single
// array property, or forwards the selected partition's properties.
func (*Index) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := argumentProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	partitions, err := dataProps.Partitions()
	if err != nil {
		return nil, fmt.Errorf("data must be a columnar or partitioned map")
	}

	keys, err := indexKeys(publicArgs)
	if err != nil {
		return nil, err
	}

	if !partitions.Columnar {
		if len(keys) != 1 {
			return nil, fmt.Errorf("exactly one partition may be selected, got %d", len(keys))
		}
		selected, ok := partitions.Properties.Get(keys[0])
		if !ok {
			return nil, fmt.Errorf("partition %s does not exist", keys[0])
		}
		return NewWarnable(selected), nil
	}

	columns := make([]*base.ArrayProperties, 0, len(keys))
	for _, key := range keys {
		selected, ok := partitions.Properties.Get(key)
		if !ok {
			return nil, fmt.Errorf("column %s does not exist", key)
		}
		array, err := selected.Array()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
		columns = append(columns, array)
	}
	stacked, err := stackColumns(columns)
	if err != nil {
		return nil, err
	}
	return NewWarnable(stacked), nil
}

// ComputeNames names the selected columns: string selectors name columns
// directly, integer selectors pick out of the source's names.
func (*Index) ComputeNames(publicArgs map[string]*base.Value, argNames map[string][]string, release *base.Value) ([]string, error) {
	value, ok := publicArgs["names"]
	if !ok {
		return nil, fmt.Errorf("names must be a public argument")
	}
	array, err := value.Array()
	if err != nil {
		return nil, err
	}
	switch array.DataType() {
	case base.StringType:
		names, _ := array.Strings()
		return names, nil
	case base.IntType:
		source := argNames["data"]
		indices, _ := array.Ints()
		names := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx < 0 || idx >= int64(len(source)) {
				return nil, fmt.Errorf("column index %d has no name", idx)
			}
			names = append(names, source[idx])
		}
		return names, nil
	default:
		return nil, fmt.Errorf("selector type carries no names")
	}
}

func indexKeys(publicArgs map[string]*base.Value) ([]base.MapKey, error) {
	value, ok := publicArgs["names"]
	if !ok {
		return nil, fmt.Errorf("names must be a public argument")
	}
	array, err := value.Array()
	if err != nil {
		return nil, err
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
		indices, _ := array.Ints()
		keys := make([]base.MapKey, len(indices))
		for i, idx := range indices {
			keys[i] = base.IntKey(idx)
		}
		return keys, nil
	case base.BoolType:
		flags, _ := array.Bools()
		keys := make([]base.MapKey, len(flags))
		for i, flag := range flags {
			keys[i] = base.BoolKey(flag)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("names must be strings, integers or booleans")
	}
}

// stackColumns merges per-column properties side by side. Bound natures are
// kept only when every column carries the same kind of nature.
func stackColumns(columns []*base.ArrayProperties) (*base.ArrayProperties, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one column must be selected")
	}
	out := columns[0].Copy()
	numColumns := int64(0)
	for i, col := range columns {
		cols, err := col.ColumnCount()
		if err != nil {
			return nil, err
		}
		numColumns += cols
		if i == 0 {
			continue
		}
		if col.DataType != out.DataType {
			out.DataType = base.UnknownType
		}
		out.Nullity = out.Nullity || col.Nullity
		out.Releasable = out.Releasable && col.Releasable
		out.IsNotEmpty = out.IsNotEmpty && col.IsNotEmpty
		out.CStability = append(out.CStability, col.CStability...)
		if !sameOptionalID(out.DatasetID, col.DatasetID) {
			out.DatasetID = nil
		}
		if !sameOptionalID(out.NumRecords, col.NumRecords) {
			out.NumRecords = nil
		}
	}
	out.NumColumns = &numColumns
	out.Nature = stackNatures(columns)
	out.Aggregator = nil
	two := int64(2)
	if len(columns) == 1 {
		out.Dimensionality = columns[0].Dimensionality
	} else {
		out.Dimensionality = &two
	}
	return out, nil
}

func sameOptionalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stackNatures(columns []*base.ArrayProperties) base.Nature {
	lower := make([]*float64, 0, len(columns))
	upper := make([]*float64, 0, len(columns))
	for _, col := range columns {
		l, errL := col.LowerFloatOption()
		u, errU := col.UpperFloatOption()
		if errL != nil || errU != nil {
			return nil
		}
		lower = append(lower, l...)
		upper = append(upper, u...)
	}
	return &base.NatureContinuous{
		Lower: base.FloatBounds(lower),
		Upper: base.FloatBounds(upper),
	}
}

// Filter selects the rows of data for which a boolean mask holds. The
// output row count becomes statically unknown.
type Filter struct{}

// Name returns the variant name.
func (*Filter) Name() string { return "Filter" }

// PropagateProperty forwards the data properties with the record count
// erased and a fresh dataset id.
func (*Filter) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	maskProps, err := arrayProperties(argProps, "mask")
	if err != nil {
		return nil, err
	}
	if maskProps.DataType != base.BoolType {
		return nil, fmt.Errorf("mask must be boolean")
	}
	if err := maskProps.AssertNonNull(); err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if err := conformable(dataProps, maskProps); err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}

	out := dataProps.Copy()
	out.NumRecords = nil
	out.IsNotEmpty = false
	datasetID := int64(nodeID)
	out.DatasetID = &datasetID
	return NewWarnable(out), nil
}

// conformable fails unless two arrays provably have aligned rows: either
// both record counts are statically known and equal, or both descend
// unfiltered from the same dataset.
func conformable(a, b *base.ArrayProperties) error {
	if a.NumRecords != nil && b.NumRecords != nil {
		if *a.NumRecords != *b.NumRecords {
			return fmt.Errorf("record counts do not match: %d and %d", *a.NumRecords, *b.NumRecords)
		}
		return nil
	}
	if a.DatasetID != nil && b.DatasetID != nil && *a.DatasetID == *b.DatasetID {
		return nil
	}
	return fmt.Errorf("row alignment cannot be established")
}

// ColumnBind concatenates its argument arrays side by side into one array.
// Argument names determine column order.
type ColumnBind struct{}

// Name returns the variant name.
func (*ColumnBind) Name() string { return "ColumnBind" }

// PropagateProperty stacks the argument properties in lexicographic
// argument-name order, requiring pairwise row alignment.
func (*ColumnBind) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if len(argProps) == 0 {
		return nil, fmt.Errorf("at least one argument is required")
	}
	names := make([]string, 0, len(argProps))
	for name := range argProps {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]*base.ArrayProperties, 0, len(names))
	for _, name := range names {
		array, err := arrayProperties(argProps, name)
		if err != nil {
			return nil, err
		}
		if err := assertUnreleasedNotAggregated(array); err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		columns = append(columns, array)
	}
	for i := 1; i < len(columns); i++ {
		if err := conformable(columns[0], columns[i]); err != nil {
			return nil, fmt.Errorf("argument %s: %w", names[i], err)
		}
	}
	stacked, err := stackColumns(columns)
	if err != nil {
		return nil, err
	}
	return NewWarnable(stacked), nil
}

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

package base

import (
	"fmt"
)

// BoundVector is a per-column vector of optional bounds. A nil entry means
// the bound for that column is unknown, which is distinct from a bound that
// is not needed.
type BoundVector struct {
	dataType DataType
	floats   []*float64
	ints     []*int64
}

// FloatBounds wraps per-column optional float bounds.
func FloatBounds(bounds []*float64) *BoundVector {
	return &BoundVector{dataType: FloatType, floats: bounds}
}

// IntBounds wraps per-column optional integer bounds.
func IntBounds(bounds []*int64) *BoundVector {
	return &BoundVector{dataType: IntType, ints: bounds}
}

// KnownFloatBounds wraps per-column float bounds that are all known.
func KnownFloatBounds(bounds []float64) *BoundVector {
	out := make([]*float64, len(bounds))
	for i := range bounds {
		v := bounds[i]
		out[i] = &v
	}
	return FloatBounds(out)
}

// KnownIntBounds wraps per-column integer bounds that are all known.
func KnownIntBounds(bounds []int64) *BoundVector {
	out := make([]*int64, len(bounds))
	for i := range bounds {
		v := bounds[i]
		out[i] = &v
	}
	return IntBounds(out)
}

// DataType returns the atomic type of the bounds.
func (b *BoundVector) DataType() DataType { return b.dataType }

// Len returns the number of columns covered by the bounds.
func (b *BoundVector) Len() int {
	if b.dataType == IntType {
		return len(b.ints)
	}
	return len(b.floats)
}

// FloatsOption returns the optional float bounds, or a type-mismatch error.
func (b *BoundVector) FloatsOption() ([]*float64, error) {
	if b.dataType != FloatType {
		return nil, fmt.Errorf("expected float bounds, got %v bounds", b.dataType)
	}
	return b.floats, nil
}

// IntsOption returns the optional integer bounds, or a type-mismatch error.
func (b *BoundVector) IntsOption() ([]*int64, error) {
	if b.dataType != IntType {
		return nil, fmt.Errorf("expected int bounds, got %v bounds", b.dataType)
	}
	return b.ints, nil
}

// Floats returns the float bounds, failing unless every column is known.
func (b *BoundVector) Floats() ([]float64, error) {
	opt, err := b.FloatsOption()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(opt))
	for i, v := range opt {
		if v == nil {
			return nil, fmt.Errorf("not all bounds are known")
		}
		out[i] = *v
	}
	return out, nil
}

// Ints returns the integer bounds, failing unless every column is known.
func (b *BoundVector) Ints() ([]int64, error) {
	opt, err := b.IntsOption()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(opt))
	for i, v := range opt {
		if v == nil {
			return nil, fmt.Errorf("not all bounds are known")
		}
		out[i] = *v
	}
	return out, nil
}

// Nature is an optional refinement of what values the data may take: either
// continuous per-column bounds, or a categorical set of permissible values.
// A nil Nature means nothing further is known.
type Nature interface {
	isNature()
}

// NatureContinuous holds per-column lower and upper bound vectors.
type NatureContinuous struct {
	Lower *BoundVector
	Upper *BoundVector
}

func (*NatureContinuous) isNature() {}

// NatureCategorical holds the permissible values per column.
type NatureCategorical struct {
	Categories *Jagged
}

func (*NatureCategorical) isNature() {}

// ComponentVariant is the minimal view of a graph operation that property
// records need: aggregator snapshots store the aggregating variant so that
// mechanisms can later re-derive sensitivity from it.
type ComponentVariant interface {
	Name() string
}

// NodeProperties maps argument names (such as "data", "lower", "upper") to
// the properties of the node supplying that argument.
type NodeProperties map[string]ValueProperties

// AggregatorProperties is the snapshot recorded when a component aggregates
// data. The mechanism that eventually privatizes the aggregate re-derives
// sensitivity lazily from this snapshot.
type AggregatorProperties struct {
	Component          ComponentVariant
	Properties         NodeProperties
	LipschitzConstants []float64
}

// NewAggregatorProperties returns a snapshot with unit Lipschitz constants
// for each of numColumns outputs.
func NewAggregatorProperties(component ComponentVariant, properties NodeProperties, numColumns int64) *AggregatorProperties {
	constants := make([]float64, numColumns)
	for i := range constants {
		constants[i] = 1
	}
	return &AggregatorProperties{
		Component:          component,
		Properties:         properties,
		LipschitzConstants: constants,
	}
}

// ValueProperties is the statically derived metadata mirroring a Value's
// shape. Accessors fail when the stored variant does not match.
type ValueProperties interface {
	Array() (*ArrayProperties, error)
	Jagged() (*JaggedProperties, error)
	Partitions() (*MapProperties, error)
}

// ArrayProperties are the derived properties of an Array value.
type ArrayProperties struct {
	// NumRecords is defined once the number of records is known statically
	// (typically set by Resize).
	NumRecords *int64
	NumColumns *int64
	// Nullity is true if the data may contain missing values.
	Nullity bool
	// Releasable is set by the mechanisms; released data no longer consumes
	// privacy budget when re-used.
	Releasable bool
	// CStability is the per-column amplification of privacy usage caused by
	// unstable transformations upstream.
	CStability []float64
	// Aggregator is set when data has been aggregated; it retains what the
	// mechanisms need to compute sensitivity.
	Aggregator *AggregatorProperties
	// Nature is either continuous bounds or categories, when known.
	Nature   Nature
	DataType DataType
	// DatasetID identifies the last Materialize or Filter that produced this
	// data, used to decide conformability when record counts are unknown.
	DatasetID *int64
	// IsNotEmpty is true if the array is provably non-empty.
	IsNotEmpty bool
	// Dimensionality is the number of axes, when known.
	Dimensionality *int64
}

// Array returns the receiver.
func (p *ArrayProperties) Array() (*ArrayProperties, error) { return p, nil }

// Jagged fails: the value is an array.
func (p *ArrayProperties) Jagged() (*JaggedProperties, error) {
	return nil, fmt.Errorf("value must be a jagged matrix")
}

// Partitions fails: the value is an array.
func (p *ArrayProperties) Partitions() (*MapProperties, error) {
	return nil, fmt.Errorf("value must be partitioned")
}

// Copy returns a property record that may be mutated without affecting the
// receiver. Nature and aggregator snapshots are treated as immutable and
// shared.
func (p *ArrayProperties) Copy() *ArrayProperties {
	out := *p
	out.CStability = append([]float64(nil), p.CStability...)
	return &out
}

// RecordCount returns the number of records, failing when unknown.
func (p *ArrayProperties) RecordCount() (int64, error) {
	if p.NumRecords == nil {
		return 0, fmt.Errorf("number of records is not defined")
	}
	return *p.NumRecords, nil
}

// ColumnCount returns the number of columns, failing when unknown.
func (p *ArrayProperties) ColumnCount() (int64, error) {
	if p.NumColumns == nil {
		return 0, fmt.Errorf("number of columns is not defined")
	}
	return *p.NumColumns, nil
}

func (p *ArrayProperties) continuous() (*NatureContinuous, error) {
	switch nature := p.Nature.(type) {
	case *NatureContinuous:
		return nature, nil
	case *NatureCategorical:
		return nil, fmt.Errorf("nature is categorical when expecting continuous")
	default:
		return nil, fmt.Errorf("continuous nature is not defined")
	}
}

// LowerFloatOption returns the optional per-column float lower bounds.
func (p *ArrayProperties) LowerFloatOption() ([]*float64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Lower.FloatsOption()
}

// LowerFloat returns the per-column float lower bounds, failing unless all
// are known.
func (p *ArrayProperties) LowerFloat() ([]float64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Lower.Floats()
}

// UpperFloatOption returns the optional per-column float upper bounds.
func (p *ArrayProperties) UpperFloatOption() ([]*float64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Upper.FloatsOption()
}

// UpperFloat returns the per-column float upper bounds, failing unless all
// are known.
func (p *ArrayProperties) UpperFloat() ([]float64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Upper.Floats()
}

// LowerIntOption returns the optional per-column integer lower bounds.
func (p *ArrayProperties) LowerIntOption() ([]*int64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Lower.IntsOption()
}

// LowerInt returns the per-column integer lower bounds, failing unless all
// are known.
func (p *ArrayProperties) LowerInt() ([]int64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Lower.Ints()
}

// UpperIntOption returns the optional per-column integer upper bounds.
func (p *ArrayProperties) UpperIntOption() ([]*int64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Upper.IntsOption()
}

// UpperInt returns the per-column integer upper bounds, failing unless all
// are known.
func (p *ArrayProperties) UpperInt() ([]int64, error) {
	continuous, err := p.continuous()
	if err != nil {
		return nil, err
	}
	return continuous.Upper.Ints()
}

// Categories returns the categorical nature, failing when the nature is
// continuous or unknown.
func (p *ArrayProperties) Categories() (*Jagged, error) {
	switch nature := p.Nature.(type) {
	case *NatureCategorical:
		return nature.Categories, nil
	case *NatureContinuous:
		return nil, fmt.Errorf("nature is continuous when expecting categorical")
	default:
		return nil, fmt.Errorf("categorical nature is not defined")
	}
}

// AssertNonNull fails if the data may contain missing values.
func (p *ArrayProperties) AssertNonNull() error {
	if p.Nullity {
		return fmt.Errorf("data may contain nullity when non-nullity is required")
	}
	return nil
}

// AssertIsNotEmpty fails unless the data is provably non-empty.
func (p *ArrayProperties) AssertIsNotEmpty() error {
	if !p.IsNotEmpty {
		return fmt.Errorf("data may be empty when non-emptiness is required")
	}
	return nil
}

// AssertIsReleasable fails unless the data has passed through a mechanism.
func (p *ArrayProperties) AssertIsReleasable() error {
	if !p.Releasable {
		return fmt.Errorf("data is not releasable when releasability is required")
	}
	return nil
}

// AssertIsNotAggregated fails if the data is in an aggregated state.
// Aggregated data may not flow through row-wise transforms.
func (p *ArrayProperties) AssertIsNotAggregated() error {
	if p.Aggregator != nil {
		return fmt.Errorf("aggregated data may not be manipulated")
	}
	return nil
}

// JaggedProperties are the derived properties of a Jagged value.
type JaggedProperties struct {
	NumRecords *int64
	Nullity    bool
	Aggregator *AggregatorProperties
	Nature     Nature
	DataType   DataType
	Releasable bool
}

// Array fails: the value is jagged.
func (p *JaggedProperties) Array() (*ArrayProperties, error) {
	return nil, fmt.Errorf("value must be an array")
}

// Jagged returns the receiver.
func (p *JaggedProperties) Jagged() (*JaggedProperties, error) { return p, nil }

// Partitions fails: the value is jagged.
func (p *JaggedProperties) Partitions() (*MapProperties, error) {
	return nil, fmt.Errorf("value must be partitioned")
}

// PropertiesMap is an ordered mapping from partition keys to the properties
// of each partition.
type PropertiesMap struct {
	keys   []MapKey
	values map[MapKey]ValueProperties
}

// NewPropertiesMap returns an empty ordered properties map.
func NewPropertiesMap() *PropertiesMap {
	return &PropertiesMap{values: make(map[MapKey]ValueProperties)}
}

// Set inserts or replaces the properties under key, preserving insertion
// order.
func (m *PropertiesMap) Set(key MapKey, props ValueProperties) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = props
}

// Get returns the properties under key, if present.
func (m *PropertiesMap) Get(key MapKey) (ValueProperties, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns all keys in insertion order.
func (m *PropertiesMap) Keys() []MapKey { return m.keys }

// Len returns the number of entries.
func (m *PropertiesMap) Len() int { return len(m.keys) }

// MapProperties are the derived properties of a partitioned value.
type MapProperties struct {
	// NumRecords is the global count over all partitions, when known.
	NumRecords *int64
	// Disjoint is true when the partitions cover disjoint subsets of rows.
	Disjoint   bool
	Properties *PropertiesMap
	Columnar   bool
}

// Array fails: the value is partitioned.
func (p *MapProperties) Array() (*ArrayProperties, error) {
	return nil, fmt.Errorf("value must be an array")
}

// Jagged fails: the value is partitioned.
func (p *MapProperties) Jagged() (*JaggedProperties, error) {
	return nil, fmt.Errorf("value must be a jagged matrix")
}

// Partitions returns the receiver.
func (p *MapProperties) Partitions() (*MapProperties, error) { return p, nil }

// RecordCount returns the global number of records, failing when unknown.
func (p *MapProperties) RecordCount() (int64, error) {
	if p.NumRecords == nil {
		return 0, fmt.Errorf("number of records is not defined")
	}
	return *p.NumRecords, nil
}

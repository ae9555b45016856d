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

// Package base contains the core data structures of the analysis validator:
// the universal value representation passed between components, the derived
// properties tracked for each value, privacy definitions and usages, and the
// release bookkeeping for partially evaluated analyses.
package base

import (
	"fmt"
)

// DataType is the atomic type of an Array or Jagged value.
type DataType int

const (
	// UnknownType marks data whose atomic type has not been established yet.
	UnknownType DataType = iota
	BoolType
	IntType
	FloatType
	StringType
)

// String returns a human readable name of the data type for error messages.
func (t DataType) String() string {
	switch t {
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the data type supports continuous bounds.
func (t DataType) IsNumeric() bool {
	return t == IntType || t == FloatType
}

// Array is a homogeneously typed array of at most two dimensions. The first
// axis denotes records, the second axis columns. Data is stored flat in
// row-major order. A zero-dimensional array holds a single scalar.
type Array struct {
	dataType DataType
	shape    []int64

	bools  []bool
	ints   []int64
	floats []float64
	strs   []string
}

func checkShape(shape []int64, length int) error {
	if len(shape) > 2 {
		return fmt.Errorf("arrays may have at most 2 dimensions, got %d", len(shape))
	}
	size := int64(1)
	for _, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("array dimensions must be nonnegative, got %d", dim)
		}
		size *= dim
	}
	if size != int64(length) {
		return fmt.Errorf("shape %v does not match data of length %d", shape, length)
	}
	return nil
}

// NewBoolArray returns an array of booleans with the given shape.
func NewBoolArray(shape []int64, data []bool) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{dataType: BoolType, shape: shape, bools: data}, nil
}

// NewIntArray returns an array of integers with the given shape.
func NewIntArray(shape []int64, data []int64) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{dataType: IntType, shape: shape, ints: data}, nil
}

// NewFloatArray returns an array of floats with the given shape.
func NewFloatArray(shape []int64, data []float64) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{dataType: FloatType, shape: shape, floats: data}, nil
}

// NewStringArray returns an array of strings with the given shape.
func NewStringArray(shape []int64, data []string) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{dataType: StringType, shape: shape, strs: data}, nil
}

// BoolScalar wraps a single boolean in a zero-dimensional array.
func BoolScalar(v bool) *Array {
	return &Array{dataType: BoolType, shape: nil, bools: []bool{v}}
}

// IntScalar wraps a single integer in a zero-dimensional array.
func IntScalar(v int64) *Array {
	return &Array{dataType: IntType, shape: nil, ints: []int64{v}}
}

// FloatScalar wraps a single float in a zero-dimensional array.
func FloatScalar(v float64) *Array {
	return &Array{dataType: FloatType, shape: nil, floats: []float64{v}}
}

// StringScalar wraps a single string in a zero-dimensional array.
func StringScalar(v string) *Array {
	return &Array{dataType: StringType, shape: nil, strs: []string{v}}
}

// FloatVec wraps a float slice in a one-dimensional array.
func FloatVec(v []float64) *Array {
	return &Array{dataType: FloatType, shape: []int64{int64(len(v))}, floats: v}
}

// IntVec wraps an integer slice in a one-dimensional array.
func IntVec(v []int64) *Array {
	return &Array{dataType: IntType, shape: []int64{int64(len(v))}, ints: v}
}

// StringVec wraps a string slice in a one-dimensional array.
func StringVec(v []string) *Array {
	return &Array{dataType: StringType, shape: []int64{int64(len(v))}, strs: v}
}

// DataType returns the atomic type of the array.
func (a *Array) DataType() DataType { return a.dataType }

// Shape returns the dimensions of the array. Zero-dimensional arrays return
// an empty shape.
func (a *Array) Shape() []int64 { return a.shape }

// Len returns the total number of cells.
func (a *Array) Len() int {
	switch a.dataType {
	case BoolType:
		return len(a.bools)
	case IntType:
		return len(a.ints)
	case FloatType:
		return len(a.floats)
	case StringType:
		return len(a.strs)
	}
	return 0
}

// NumRecords returns the length of the record axis. Scalars count as one
// record.
func (a *Array) NumRecords() int64 {
	if len(a.shape) == 0 {
		return 1
	}
	return a.shape[0]
}

// NumColumns returns the length of the column axis. Scalars and vectors
// count as one column.
func (a *Array) NumColumns() int64 {
	if len(a.shape) < 2 {
		return 1
	}
	return a.shape[1]
}

// Bools returns the boolean cells, or a type-mismatch error.
func (a *Array) Bools() ([]bool, error) {
	if a.dataType != BoolType {
		return nil, fmt.Errorf("atomic type: expected bool, got %v", a.dataType)
	}
	return a.bools, nil
}

// Ints returns the integer cells, or a type-mismatch error.
func (a *Array) Ints() ([]int64, error) {
	if a.dataType != IntType {
		return nil, fmt.Errorf("atomic type: expected int, got %v", a.dataType)
	}
	return a.ints, nil
}

// Floats returns the float cells, or a type-mismatch error.
func (a *Array) Floats() ([]float64, error) {
	if a.dataType != FloatType {
		return nil, fmt.Errorf("atomic type: expected float, got %v", a.dataType)
	}
	return a.floats, nil
}

// Strings returns the string cells, or a type-mismatch error.
func (a *Array) Strings() ([]string, error) {
	if a.dataType != StringType {
		return nil, fmt.Errorf("atomic type: expected string, got %v", a.dataType)
	}
	return a.strs, nil
}

// FirstFloat returns the single float held by a singleton array. Integer and
// boolean singletons are promoted.
func (a *Array) FirstFloat() (float64, error) {
	if a.Len() != 1 {
		return 0, fmt.Errorf("non-singleton array passed for an argument that must be scalar")
	}
	switch a.dataType {
	case FloatType:
		return a.floats[0], nil
	case IntType:
		return float64(a.ints[0]), nil
	case BoolType:
		if a.bools[0] {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("value must be numeric")
}

// FirstInt returns the single integer held by a singleton array. Boolean
// singletons are promoted.
func (a *Array) FirstInt() (int64, error) {
	if a.Len() != 1 {
		return 0, fmt.Errorf("non-singleton array passed for an argument that must be scalar")
	}
	switch a.dataType {
	case IntType:
		return a.ints[0], nil
	case BoolType:
		if a.bools[0] {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("value must be an integer")
}

// FirstBool returns the single boolean held by a singleton array.
func (a *Array) FirstBool() (bool, error) {
	if a.Len() != 1 {
		return false, fmt.Errorf("non-singleton array passed for an argument that must be scalar")
	}
	if a.dataType != BoolType {
		return false, fmt.Errorf("value must be a bool")
	}
	return a.bools[0], nil
}

// FirstString returns the single string held by a singleton array.
func (a *Array) FirstString() (string, error) {
	if a.Len() != 1 {
		return "", fmt.Errorf("non-singleton array passed for an argument that must be scalar")
	}
	if a.dataType != StringType {
		return "", fmt.Errorf("value must be a string")
	}
	return a.strs[0], nil
}

// FloatVector returns the float cells as a per-column vector. A scalar or
// singleton vector is broadcast to numColumns entries; any other length
// must match the column count exactly.
func (a *Array) FloatVector(numColumns int64) ([]float64, error) {
	data, err := a.Floats()
	if err != nil {
		return nil, err
	}
	switch len(a.shape) {
	case 0:
		out := make([]float64, numColumns)
		for i := range out {
			out[i] = data[0]
		}
		return out, nil
	case 1:
		if int64(len(data)) == numColumns {
			return data, nil
		}
		if len(data) == 1 {
			out := make([]float64, numColumns)
			for i := range out {
				out[i] = data[0]
			}
			return out, nil
		}
		return nil, fmt.Errorf("%d values cannot be broadcast to %d columns", len(data), numColumns)
	}
	return nil, fmt.Errorf("failed attempt to cast float array to vector")
}

// IntVector returns the integer cells as a per-column vector with the same
// broadcast semantics as FloatVector.
func (a *Array) IntVector(numColumns int64) ([]int64, error) {
	data, err := a.Ints()
	if err != nil {
		return nil, err
	}
	switch len(a.shape) {
	case 0:
		out := make([]int64, numColumns)
		for i := range out {
			out[i] = data[0]
		}
		return out, nil
	case 1:
		if int64(len(data)) == numColumns {
			return data, nil
		}
		if len(data) == 1 {
			out := make([]int64, numColumns)
			for i := range out {
				out[i] = data[0]
			}
			return out, nil
		}
		return nil, fmt.Errorf("%d values cannot be broadcast to %d columns", len(data), numColumns)
	}
	return nil, fmt.Errorf("failed attempt to cast int array to vector")
}

// Jagged is a per-column list of variable-length homogeneous vectors,
// typically used to store category sets and histogram bin edges. A nil
// column marks an unknown category set, which is distinct from a known but
// empty one.
type Jagged struct {
	dataType DataType

	bools  [][]bool
	ints   [][]int64
	floats [][]float64
	strs   [][]string
}

// NewBoolJagged returns a jagged matrix of boolean columns.
func NewBoolJagged(columns [][]bool) *Jagged {
	return &Jagged{dataType: BoolType, bools: columns}
}

// NewIntJagged returns a jagged matrix of integer columns.
func NewIntJagged(columns [][]int64) *Jagged {
	return &Jagged{dataType: IntType, ints: columns}
}

// NewFloatJagged returns a jagged matrix of float columns.
func NewFloatJagged(columns [][]float64) *Jagged {
	return &Jagged{dataType: FloatType, floats: columns}
}

// NewStringJagged returns a jagged matrix of string columns.
func NewStringJagged(columns [][]string) *Jagged {
	return &Jagged{dataType: StringType, strs: columns}
}

// DataType returns the atomic type of the jagged matrix.
func (j *Jagged) DataType() DataType { return j.dataType }

// NumColumns returns the number of columns, known or otherwise.
func (j *Jagged) NumColumns() int64 {
	switch j.dataType {
	case BoolType:
		return int64(len(j.bools))
	case IntType:
		return int64(len(j.ints))
	case FloatType:
		return int64(len(j.floats))
	case StringType:
		return int64(len(j.strs))
	}
	return 0
}

func (j *Jagged) columnKnown(i int64) bool {
	switch j.dataType {
	case BoolType:
		return j.bools[i] != nil
	case IntType:
		return j.ints[i] != nil
	case FloatType:
		return j.floats[i] != nil
	case StringType:
		return j.strs[i] != nil
	}
	return false
}

func (j *Jagged) columnLength(i int64) int64 {
	switch j.dataType {
	case BoolType:
		return int64(len(j.bools[i]))
	case IntType:
		return int64(len(j.ints[i]))
	case FloatType:
		return int64(len(j.floats[i]))
	case StringType:
		return int64(len(j.strs[i]))
	}
	return 0
}

// Lengths returns the length of every column, failing if any column is
// unknown.
func (j *Jagged) Lengths() ([]int64, error) {
	lengths := make([]int64, j.NumColumns())
	for i := range lengths {
		if !j.columnKnown(int64(i)) {
			return nil, fmt.Errorf("length is not defined for every column")
		}
		lengths[i] = j.columnLength(int64(i))
	}
	return lengths, nil
}

// MaxLength returns the longest column length, failing if any column is
// unknown.
func (j *Jagged) MaxLength() (int64, error) {
	lengths, err := j.Lengths()
	if err != nil {
		return 0, err
	}
	var max int64
	for _, l := range lengths {
		if l > max {
			max = l
		}
	}
	return max, nil
}

// Bools returns all boolean columns, failing on type mismatch or unknown
// columns.
func (j *Jagged) Bools() ([][]bool, error) {
	if j.dataType != BoolType {
		return nil, fmt.Errorf("expected bool type on a non-bool jagged matrix")
	}
	if _, err := j.Lengths(); err != nil {
		return nil, fmt.Errorf("not all columns are known in bool jagged matrix")
	}
	return j.bools, nil
}

// Ints returns all integer columns, failing on type mismatch or unknown
// columns.
func (j *Jagged) Ints() ([][]int64, error) {
	if j.dataType != IntType {
		return nil, fmt.Errorf("expected int type on a non-int jagged matrix")
	}
	if _, err := j.Lengths(); err != nil {
		return nil, fmt.Errorf("not all columns are known in int jagged matrix")
	}
	return j.ints, nil
}

// Floats returns all float columns, failing on type mismatch or unknown
// columns.
func (j *Jagged) Floats() ([][]float64, error) {
	if j.dataType != FloatType {
		return nil, fmt.Errorf("expected float type on a non-float jagged matrix")
	}
	if _, err := j.Lengths(); err != nil {
		return nil, fmt.Errorf("not all columns are known in float jagged matrix")
	}
	return j.floats, nil
}

// Strings returns all string columns, failing on type mismatch or unknown
// columns.
func (j *Jagged) Strings() ([][]string, error) {
	if j.dataType != StringType {
		return nil, fmt.Errorf("expected string type on a non-string jagged matrix")
	}
	if _, err := j.Lengths(); err != nil {
		return nil, fmt.Errorf("not all columns are known in string jagged matrix")
	}
	return j.strs, nil
}

// Deduplicate removes repeated entries from each known column, preserving
// first-seen order. Float matrices may not be categorical.
func (j *Jagged) Deduplicate() (*Jagged, error) {
	switch j.dataType {
	case FloatType:
		return nil, fmt.Errorf("float data may not be categorical")
	case BoolType:
		out := make([][]bool, len(j.bools))
		for i, col := range j.bools {
			if col == nil {
				continue
			}
			seen := make(map[bool]bool, len(col))
			dedup := make([]bool, 0, len(col))
			for _, v := range col {
				if !seen[v] {
					seen[v] = true
					dedup = append(dedup, v)
				}
			}
			out[i] = dedup
		}
		return NewBoolJagged(out), nil
	case IntType:
		out := make([][]int64, len(j.ints))
		for i, col := range j.ints {
			if col == nil {
				continue
			}
			seen := make(map[int64]bool, len(col))
			dedup := make([]int64, 0, len(col))
			for _, v := range col {
				if !seen[v] {
					seen[v] = true
					dedup = append(dedup, v)
				}
			}
			out[i] = dedup
		}
		return NewIntJagged(out), nil
	case StringType:
		out := make([][]string, len(j.strs))
		for i, col := range j.strs {
			if col == nil {
				continue
			}
			seen := make(map[string]bool, len(col))
			dedup := make([]string, 0, len(col))
			for _, v := range col {
				if !seen[v] {
					seen[v] = true
					dedup = append(dedup, v)
				}
			}
			out[i] = dedup
		}
		return NewStringJagged(out), nil
	}
	return nil, fmt.Errorf("data type must be known to deduplicate")
}

// Standardize broadcasts a single-column category set to numColumns columns
// and deduplicates each. Every column must be known and the column count
// must be either one or numColumns.
func (j *Jagged) Standardize(numColumns int64) (*Jagged, error) {
	dedup, err := j.Deduplicate()
	if err != nil {
		return nil, err
	}
	if _, err := dedup.Lengths(); err != nil {
		return nil, err
	}
	cols := dedup.NumColumns()
	if cols == numColumns {
		return dedup, nil
	}
	if cols != 1 {
		return nil, fmt.Errorf("number of categorical columns (%d) must be one, or match the number of data columns (%d)", cols, numColumns)
	}
	switch dedup.dataType {
	case BoolType:
		out := make([][]bool, numColumns)
		for i := range out {
			out[i] = append([]bool(nil), dedup.bools[0]...)
		}
		return NewBoolJagged(out), nil
	case IntType:
		out := make([][]int64, numColumns)
		for i := range out {
			out[i] = append([]int64(nil), dedup.ints[0]...)
		}
		return NewIntJagged(out), nil
	case StringType:
		out := make([][]string, numColumns)
		for i := range out {
			out[i] = append([]string(nil), dedup.strs[0]...)
		}
		return NewStringJagged(out), nil
	}
	return nil, fmt.Errorf("data type must be known to standardize")
}

// MapKeyKind is the key type of a ValueMap.
type MapKeyKind int

const (
	BoolKeyKind MapKeyKind = iota
	IntKeyKind
	StringKeyKind
)

// MapKey is an enum-typed key of a ValueMap, one of bool, int64 or string.
type MapKey struct {
	kind MapKeyKind
	b    bool
	i    int64
	s    string
}

// BoolKey returns a boolean map key.
func BoolKey(v bool) MapKey { return MapKey{kind: BoolKeyKind, b: v} }

// IntKey returns an integer map key.
func IntKey(v int64) MapKey { return MapKey{kind: IntKeyKind, i: v} }

// StringKey returns a string map key.
func StringKey(v string) MapKey { return MapKey{kind: StringKeyKind, s: v} }

// String renders the key for error messages and report variable names.
func (k MapKey) String() string {
	switch k.kind {
	case BoolKeyKind:
		return fmt.Sprintf("%t", k.b)
	case IntKeyKind:
		return fmt.Sprintf("%d", k.i)
	default:
		return k.s
	}
}

// ValueMap is an ordered mapping from enum-typed keys to values, used for
// partitioned data and components with multiple outputs.
type ValueMap struct {
	keys   []MapKey
	values map[MapKey]*Value
}

// NewValueMap returns an empty ordered value map.
func NewValueMap() *ValueMap {
	return &ValueMap{values: make(map[MapKey]*Value)}
}

// Set inserts or replaces the value under key, preserving insertion order.
func (m *ValueMap) Set(key MapKey, value *Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value under key, if present.
func (m *ValueMap) Get(key MapKey) (*Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns all keys in insertion order.
func (m *ValueMap) Keys() []MapKey { return m.keys }

// Len returns the number of entries.
func (m *ValueMap) Len() int { return len(m.keys) }

// Value is the universal data representation passed between components. It
// is a tagged union over Array, Jagged and ValueMap; exactly one variant is
// set and accessors fail when the stored variant does not match.
type Value struct {
	array    *Array
	jagged   *Jagged
	valueMap *ValueMap
}

// ArrayValue wraps an array.
func ArrayValue(a *Array) *Value { return &Value{array: a} }

// JaggedValue wraps a jagged matrix.
func JaggedValue(j *Jagged) *Value { return &Value{jagged: j} }

// MapValue wraps a value map.
func MapValue(m *ValueMap) *Value { return &Value{valueMap: m} }

// IsArray reports whether the stored variant is an array.
func (v *Value) IsArray() bool { return v.array != nil }

// IsJagged reports whether the stored variant is a jagged matrix.
func (v *Value) IsJagged() bool { return v.jagged != nil }

// IsMap reports whether the stored variant is a value map.
func (v *Value) IsMap() bool { return v.valueMap != nil }

// Array returns the array variant, or a variant-mismatch error.
func (v *Value) Array() (*Array, error) {
	if v.array == nil {
		return nil, fmt.Errorf("value must be an array")
	}
	return v.array, nil
}

// Jagged returns the jagged variant, or a variant-mismatch error.
func (v *Value) Jagged() (*Jagged, error) {
	if v.jagged == nil {
		return nil, fmt.Errorf("value must be a jagged matrix")
	}
	return v.jagged, nil
}

// Map returns the map variant, or a variant-mismatch error.
func (v *Value) Map() (*ValueMap, error) {
	if v.valueMap == nil {
		return nil, fmt.Errorf("value must be a map")
	}
	return v.valueMap, nil
}

// FirstFloat returns the first float of an array value.
func (v *Value) FirstFloat() (float64, error) {
	array, err := v.Array()
	if err != nil {
		return 0, fmt.Errorf("cannot retrieve first float: %w", err)
	}
	return array.FirstFloat()
}

// FirstInt returns the first integer of an array value.
func (v *Value) FirstInt() (int64, error) {
	array, err := v.Array()
	if err != nil {
		return 0, fmt.Errorf("cannot retrieve first integer: %w", err)
	}
	return array.FirstInt()
}

// FirstBool returns the first boolean of an array value.
func (v *Value) FirstBool() (bool, error) {
	array, err := v.Array()
	if err != nil {
		return false, fmt.Errorf("cannot retrieve first bool: %w", err)
	}
	return array.FirstBool()
}

// FirstString returns the first string of an array value.
func (v *Value) FirstString() (string, error) {
	array, err := v.Array()
	if err != nil {
		return "", fmt.Errorf("cannot retrieve first string: %w", err)
	}
	return array.FirstString()
}

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

// intervalFn maps the bound intervals of two operands to the output bound
// interval for one column. Returning ok=false means the output is unbounded
// in that column.
type intervalFn func(l1, u1, l2, u2 float64) (lower, upper float64, ok bool)

// binaryPair holds the aligned pieces of a two-argument row-wise transform.
type binaryPair struct {
	left, right *base.ArrayProperties
	numColumns  int64
	out         *base.ArrayProperties
}

// alignBinary merges shape, stability, releasability and lineage of two
// row-wise operands. A one-row operand broadcasts against the other.
func alignBinary(argProps base.NodeProperties) (*binaryPair, error) {
	left, err := arrayProperties(argProps, "left")
	if err != nil {
		return nil, err
	}
	right, err := arrayProperties(argProps, "right")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(left); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := assertUnreleasedNotAggregated(right); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	leftScalar := left.NumRecords != nil && *left.NumRecords == 1
	rightScalar := right.NumRecords != nil && *right.NumRecords == 1
	if !leftScalar && !rightScalar {
		if err := conformable(left, right); err != nil {
			return nil, err
		}
	}

	out := left.Copy()
	out.Nature = nil
	out.Aggregator = nil
	out.Nullity = left.Nullity || right.Nullity
	out.Releasable = left.Releasable && right.Releasable
	out.IsNotEmpty = left.IsNotEmpty || right.IsNotEmpty
	out.NumRecords = nil
	if left.NumRecords != nil && !leftScalar {
		out.NumRecords = left.NumRecords
	} else if right.NumRecords != nil && !rightScalar {
		out.NumRecords = right.NumRecords
	} else if leftScalar && rightScalar {
		one := int64(1)
		out.NumRecords = &one
	}
	if !sameOptionalID(left.DatasetID, right.DatasetID) {
		out.DatasetID = nil
	}

	numColumns, err := broadcastColumnCount(left, right)
	if err != nil {
		return nil, err
	}
	out.NumColumns = &numColumns
	stability := make([]float64, numColumns)
	for j := int64(0); j < numColumns; j++ {
		stability[j] = math.Max(columnStabilityRaw(left.CStability, int(j)), columnStabilityRaw(right.CStability, int(j)))
	}
	out.CStability = stability
	return &binaryPair{left: left, right: right, numColumns: numColumns, out: out}, nil
}

func broadcastColumnCount(left, right *base.ArrayProperties) (int64, error) {
	l, errL := left.ColumnCount()
	r, errR := right.ColumnCount()
	if errL != nil || errR != nil {
		return 0, fmt.Errorf("column counts must be known")
	}
	switch {
	case l == r:
		return l, nil
	case l == 1:
		return r, nil
	case r == 1:
		return l, nil
	default:
		return 0, fmt.Errorf("column counts do not match: %d and %d", l, r)
	}
}

// propagateArithmetic is the shared propagation for numeric row-wise
// transforms, carrying bounds through interval arithmetic.
func propagateArithmetic(argProps base.NodeProperties, bounds intervalFn) (*Warnable, error) {
	pair, err := alignBinary(argProps)
	if err != nil {
		return nil, err
	}
	if !pair.left.DataType.IsNumeric() || !pair.right.DataType.IsNumeric() {
		return nil, fmt.Errorf("operands must be numeric")
	}
	pair.out.DataType = promoteNumeric(pair.left.DataType, pair.right.DataType)
	pair.out.Nature = intervalNature(pair, bounds)
	return NewWarnable(pair.out), nil
}

func promoteNumeric(a, b base.DataType) base.DataType {
	if a == base.IntType && b == base.IntType {
		return base.IntType
	}
	return base.FloatType
}

// intervalNature evaluates the interval function columnwise, broadcasting
// single-column bounds. Any unknown input bound erases the output nature.
func intervalNature(pair *binaryPair, bounds intervalFn) base.Nature {
	l1, u1, ok1 := knownBounds(pair.left, pair.numColumns)
	l2, u2, ok2 := knownBounds(pair.right, pair.numColumns)
	if !ok1 || !ok2 {
		return nil
	}
	lower := make([]*float64, pair.numColumns)
	upper := make([]*float64, pair.numColumns)
	for j := int64(0); j < pair.numColumns; j++ {
		lo, hi, ok := bounds(l1[j], u1[j], l2[j], u2[j])
		if !ok {
			continue
		}
		loCopy, hiCopy := lo, hi
		lower[j], upper[j] = &loCopy, &hiCopy
	}
	return &base.NatureContinuous{
		Lower: base.FloatBounds(lower),
		Upper: base.FloatBounds(upper),
	}
}

// knownBounds reads fully known float bounds broadcast to numColumns.
func knownBounds(props *base.ArrayProperties, numColumns int64) ([]float64, []float64, bool) {
	lower, errL := dataBoundsFloat(props, lowerSide)
	upper, errU := dataBoundsFloat(props, upperSide)
	if errL != nil || errU != nil {
		return nil, nil, false
	}
	lower, ok := broadcastFloats(lower, numColumns)
	if !ok {
		return nil, nil, false
	}
	upper, ok = broadcastFloats(upper, numColumns)
	if !ok {
		return nil, nil, false
	}
	return lower, upper, true
}

func broadcastFloats(values []float64, numColumns int64) ([]float64, bool) {
	if int64(len(values)) == numColumns {
		return values, true
	}
	if len(values) == 1 {
		out := make([]float64, numColumns)
		for i := range out {
			out[i] = values[0]
		}
		return out, true
	}
	return nil, false
}

// corners evaluates f on the four interval corners and returns its range.
func corners(l1, u1, l2, u2 float64, f func(a, b float64) float64) (float64, float64) {
	values := []float64{f(l1, l2), f(l1, u2), f(u1, l2), f(u1, u2)}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// propagateComparison is the shared propagation for boolean-valued
// comparisons.
func propagateComparison(argProps base.NodeProperties, requireNumeric bool) (*Warnable, error) {
	pair, err := alignBinary(argProps)
	if err != nil {
		return nil, err
	}
	if requireNumeric && (!pair.left.DataType.IsNumeric() || !pair.right.DataType.IsNumeric()) {
		return nil, fmt.Errorf("operands must be numeric")
	}
	pair.out.DataType = base.BoolType
	pair.out.Nature = booleanNature(pair.numColumns)
	return NewWarnable(pair.out), nil
}

// propagateLogical is the shared propagation for boolean connectives.
func propagateLogical(argProps base.NodeProperties) (*Warnable, error) {
	pair, err := alignBinary(argProps)
	if err != nil {
		return nil, err
	}
	if pair.left.DataType != base.BoolType || pair.right.DataType != base.BoolType {
		return nil, fmt.Errorf("operands must be boolean")
	}
	pair.out.DataType = base.BoolType
	pair.out.Nature = booleanNature(pair.numColumns)
	return NewWarnable(pair.out), nil
}

func booleanNature(numColumns int64) base.Nature {
	categories := make([][]bool, numColumns)
	for j := range categories {
		categories[j] = []bool{false, true}
	}
	return &base.NatureCategorical{Categories: base.NewBoolJagged(categories)}
}

// propagateUnaryNumeric is the shared propagation for one-argument numeric
// transforms.
func propagateUnaryNumeric(argProps base.NodeProperties, outType base.DataType, bounds func(l, u float64) (float64, float64, bool)) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	if !dataProps.DataType.IsNumeric() {
		return nil, fmt.Errorf("data must be numeric")
	}
	out := dataProps.Copy()
	if outType != base.UnknownType {
		out.DataType = outType
	}
	out.Nature = nil
	numColumns, err := dataProps.ColumnCount()
	if err == nil {
		if lower, upper, ok := knownBounds(dataProps, numColumns); ok {
			outLower := make([]*float64, numColumns)
			outUpper := make([]*float64, numColumns)
			for j := int64(0); j < numColumns; j++ {
				if lo, hi, ok := bounds(lower[j], upper[j]); ok {
					loCopy, hiCopy := lo, hi
					outLower[j], outUpper[j] = &loCopy, &hiCopy
				}
			}
			out.Nature = &base.NatureContinuous{
				Lower: base.FloatBounds(outLower),
				Upper: base.FloatBounds(outUpper),
			}
		}
	}
	return NewWarnable(out), nil
}

// Add is the row-wise sum of two operands.
type Add struct{}

// Name returns the variant name.
func (*Add) Name() string { return "Add" }

// PropagateProperty carries bounds through addition.
func (*Add) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		return l1 + l2, u1 + u2, true
	})
}

// Subtract is the row-wise difference of two operands.
type Subtract struct{}

// Name returns the variant name.
func (*Subtract) Name() string { return "Subtract" }

// PropagateProperty carries bounds through subtraction.
func (*Subtract) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		return l1 - u2, u1 - l2, true
	})
}

// Multiply is the row-wise product of two operands.
type Multiply struct{}

// Name returns the variant name.
func (*Multiply) Name() string { return "Multiply" }

// PropagateProperty carries bounds through multiplication by corner
// evaluation.
func (*Multiply) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		lo, hi := corners(l1, u1, l2, u2, func(a, b float64) float64 { return a * b })
		return lo, hi, true
	})
}

// Divide is the row-wise quotient of two operands.
type Divide struct{}

// Name returns the variant name.
func (*Divide) Name() string { return "Divide" }

// PropagateProperty carries bounds through division; a divisor interval
// containing zero leaves the output unbounded.
func (*Divide) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	warnable, err := propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		if l2 <= 0 && u2 >= 0 {
			return 0, 0, false
		}
		lo, hi := corners(l1, u1, l2, u2, func(a, b float64) float64 { return a / b })
		return lo, hi, true
	})
	if err != nil {
		return nil, err
	}
	// A zero divisor makes the quotient undefined.
	out, _ := warnable.Properties.Array()
	if right, err := arrayProperties(argProps, "right"); err == nil {
		nullable := true
		if numColumns, errC := right.ColumnCount(); errC == nil {
			if lower, upper, ok := knownBounds(right, numColumns); ok {
				nullable = false
				for j := range lower {
					if lower[j] <= 0 && upper[j] >= 0 {
						nullable = true
						break
					}
				}
			}
		}
		out.Nullity = out.Nullity || nullable
	}
	return warnable, nil
}

// Power raises the left operand to the right operand, row-wise.
type Power struct{}

// Name returns the variant name.
func (*Power) Name() string { return "Power" }

// PropagateProperty carries bounds through exponentiation by corner
// evaluation, widening to zero when an even power can cross it.
func (*Power) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	warnable, err := propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		lo, hi := corners(l1, u1, l2, u2, math.Pow)
		if l1 < 0 && u1 > 0 {
			lo = math.Min(lo, 0)
		}
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return 0, 0, false
		}
		return lo, hi, true
	})
	if err != nil {
		return nil, err
	}
	// Negative bases with fractional exponents are undefined.
	out, _ := warnable.Properties.Array()
	if left, err := arrayProperties(argProps, "left"); err == nil {
		numColumns, errC := left.ColumnCount()
		if errC == nil {
			if lower, _, ok := knownBounds(left, numColumns); ok {
				for j := range lower {
					if lower[j] < 0 && out.DataType == base.FloatType {
						out.Nullity = true
						break
					}
				}
			}
		}
	}
	return warnable, nil
}

// Log is the row-wise logarithm of the left operand in the base of the
// right operand.
type Log struct{}

// Name returns the variant name.
func (*Log) Name() string { return "Log" }

// PropagateProperty carries bounds through the logarithm; non-positive
// arguments make the output nullable and unbounded.
func (*Log) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	warnable, err := propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		if l1 <= 0 || l2 <= 0 || (l2 <= 1 && u2 >= 1) {
			return 0, 0, false
		}
		lo, hi := corners(l1, u1, l2, u2, func(a, b float64) float64 { return math.Log(a) / math.Log(b) })
		return lo, hi, true
	})
	if err != nil {
		return nil, err
	}
	out, _ := warnable.Properties.Array()
	out.DataType = base.FloatType
	if left, err := arrayProperties(argProps, "left"); err == nil {
		numColumns, errC := left.ColumnCount()
		if errC != nil {
			out.Nullity = true
		} else if lower, _, ok := knownBounds(left, numColumns); !ok {
			out.Nullity = true
		} else {
			for j := range lower {
				if lower[j] <= 0 {
					out.Nullity = true
					break
				}
			}
		}
	}
	return warnable, nil
}

// Negative is the row-wise additive inverse.
type Negative struct{}

// Name returns the variant name.
func (*Negative) Name() string { return "Negative" }

// PropagateProperty mirrors the bounds.
func (*Negative) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateUnaryNumeric(argProps, base.UnknownType, func(l, u float64) (float64, float64, bool) {
		return -u, -l, true
	})
}

// Abs is the row-wise absolute value.
type Abs struct{}

// Name returns the variant name.
func (*Abs) Name() string { return "Abs" }

// PropagateProperty folds the bounds around zero.
func (*Abs) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateUnaryNumeric(argProps, base.UnknownType, func(l, u float64) (float64, float64, bool) {
		hi := math.Max(math.Abs(l), math.Abs(u))
		lo := 0.0
		if l > 0 {
			lo = l
		} else if u < 0 {
			lo = -u
		}
		return lo, hi, true
	})
}

// Modulo is the row-wise remainder of the left operand by the right.
type Modulo struct{}

// Name returns the variant name.
func (*Modulo) Name() string { return "Modulo" }

// PropagateProperty bounds the remainder by the divisor when the divisor is
// strictly positive.
func (*Modulo) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		if l2 <= 0 {
			return 0, 0, false
		}
		return 0, u2, true
	})
}

// And is the row-wise conjunction.
type And struct{}

// Name returns the variant name.
func (*And) Name() string { return "And" }

// PropagateProperty emits a boolean column.
func (*And) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateLogical(argProps)
}

// Or is the row-wise disjunction.
type Or struct{}

// Name returns the variant name.
func (*Or) Name() string { return "Or" }

// PropagateProperty emits a boolean column.
func (*Or) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateLogical(argProps)
}

// Negate is the row-wise boolean complement.
type Negate struct{}

// Name returns the variant name.
func (*Negate) Name() string { return "Negate" }

// PropagateProperty emits a boolean column.
func (*Negate) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if err := assertUnreleasedNotAggregated(dataProps); err != nil {
		return nil, err
	}
	if dataProps.DataType != base.BoolType {
		return nil, fmt.Errorf("data must be boolean")
	}
	out := dataProps.Copy()
	if numColumns, err := dataProps.ColumnCount(); err == nil {
		out.Nature = booleanNature(numColumns)
	}
	return NewWarnable(out), nil
}

// Equal is the row-wise equality test.
type Equal struct{}

// Name returns the variant name.
func (*Equal) Name() string { return "Equal" }

// PropagateProperty emits a boolean column.
func (*Equal) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateComparison(argProps, false)
}

// LessThan is the row-wise strict order test.
type LessThan struct{}

// Name returns the variant name.
func (*LessThan) Name() string { return "LessThan" }

// PropagateProperty emits a boolean column.
func (*LessThan) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateComparison(argProps, true)
}

// GreaterThan is the row-wise strict order test.
type GreaterThan struct{}

// Name returns the variant name.
func (*GreaterThan) Name() string { return "GreaterThan" }

// PropagateProperty emits a boolean column.
func (*GreaterThan) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateComparison(argProps, true)
}

// RowMin is the row-wise minimum of two operands.
type RowMin struct{}

// Name returns the variant name.
func (*RowMin) Name() string { return "RowMin" }

// PropagateProperty carries bounds through the minimum.
func (*RowMin) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		return math.Min(l1, l2), math.Min(u1, u2), true
	})
}

// RowMax is the row-wise maximum of two operands.
type RowMax struct{}

// Name returns the variant name.
func (*RowMax) Name() string { return "RowMax" }

// PropagateProperty carries bounds through the maximum.
func (*RowMax) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateArithmetic(argProps, func(l1, u1, l2, u2 float64) (float64, float64, bool) {
		return math.Max(l1, l2), math.Max(u1, u2), true
	})
}

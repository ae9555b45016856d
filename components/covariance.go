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

// Covariance aggregates either one dataset into its flattened
// upper-triangular covariance matrix, or a left and a right dataset into
// their flattened cross-covariance matrix.
type Covariance struct {
	// FiniteSampleCorrection divides by n-1 instead of n.
	FiniteSampleCorrection bool
}

// Name returns the variant name.
func (*Covariance) Name() string { return "Covariance" }

// PropagateProperty emits one aggregate row with one cell per covariance
// pair, bounded by the product of the pair's bound ranges.
func (c *Covariance) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	pairs, err := covariancePairs(argProps)
	if err != nil {
		return nil, err
	}

	one := int64(1)
	numCells := int64(len(pairs.stability))
	datasetID := int64(nodeID)
	out := &base.ArrayProperties{
		NumRecords:     &one,
		NumColumns:     &numCells,
		Releasable:     pairs.releasable,
		CStability:     pairs.stability,
		Aggregator:     base.NewAggregatorProperties(c, snapshotProperties(argProps), numCells),
		DataType:       base.FloatType,
		DatasetID:      &datasetID,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	if pairs.spreads != nil {
		lower := make([]float64, numCells)
		upper := make([]float64, numCells)
		for i, spread := range pairs.spreads {
			// |cov(X, Y)| <= range(X) * range(Y) / 4.
			upper[i] = spread / 4
			lower[i] = -spread / 4
		}
		out.Nature = &base.NatureContinuous{
			Lower: base.KnownFloatBounds(lower),
			Upper: base.KnownFloatBounds(upper),
		}
	}
	return NewWarnable(out), nil
}

// covariancePairs enumerates the output cells in both operating modes:
// the upper triangle of a single dataset, or every left-right pairing.
type covariancePairsInfo struct {
	// spreads holds range(X)*range(Y) per output cell, nil when any bound
	// is unknown.
	spreads    []float64
	stability  []float64
	releasable bool
	numRecords func() (int64, error)
}

func covariancePairs(argProps base.NodeProperties) (*covariancePairsInfo, error) {
	if _, self := argProps["data"]; self {
		dataProps, err := arrayProperties(argProps, "data")
		if err != nil {
			return nil, err
		}
		if err := checkCovarianceInput(dataProps); err != nil {
			return nil, err
		}
		numColumns, err := dataProps.ColumnCount()
		if err != nil {
			return nil, err
		}
		spreads := boundSpreads(dataProps, numColumns)
		info := &covariancePairsInfo{
			releasable: dataProps.Releasable,
			numRecords: dataProps.RecordCount,
		}
		for i := int64(0); i < numColumns; i++ {
			for j := i; j < numColumns; j++ {
				info.stability = append(info.stability,
					columnStabilityRaw(dataProps.CStability, int(i))*columnStabilityRaw(dataProps.CStability, int(j)))
				if spreads != nil {
					info.spreads = append(info.spreads, spreads[i]*spreads[j])
				}
			}
		}
		return info, nil
	}

	leftProps, err := arrayProperties(argProps, "left")
	if err != nil {
		return nil, err
	}
	rightProps, err := arrayProperties(argProps, "right")
	if err != nil {
		return nil, err
	}
	if err := checkCovarianceInput(leftProps); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := checkCovarianceInput(rightProps); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	if err := conformable(leftProps, rightProps); err != nil {
		return nil, err
	}
	leftColumns, err := leftProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	rightColumns, err := rightProps.ColumnCount()
	if err != nil {
		return nil, err
	}
	leftSpreads := boundSpreads(leftProps, leftColumns)
	rightSpreads := boundSpreads(rightProps, rightColumns)
	info := &covariancePairsInfo{
		releasable: leftProps.Releasable && rightProps.Releasable,
		numRecords: leftProps.RecordCount,
	}
	for i := int64(0); i < leftColumns; i++ {
		for j := int64(0); j < rightColumns; j++ {
			info.stability = append(info.stability,
				columnStabilityRaw(leftProps.CStability, int(i))*columnStabilityRaw(rightProps.CStability, int(j)))
			if leftSpreads != nil && rightSpreads != nil {
				info.spreads = append(info.spreads, leftSpreads[i]*rightSpreads[j])
			}
		}
	}
	return info, nil
}

func checkCovarianceInput(props *base.ArrayProperties) error {
	if props.DataType != base.FloatType {
		return fmt.Errorf("data must be float")
	}
	if err := props.AssertNonNull(); err != nil {
		return err
	}
	return assertUnreleasedNotAggregated(props)
}

// boundSpreads returns upper-lower per column, or nil when unknown.
func boundSpreads(props *base.ArrayProperties, numColumns int64) []float64 {
	lower, errL := props.LowerFloat()
	upper, errU := props.UpperFloat()
	if errL != nil || errU != nil || int64(len(lower)) != numColumns {
		return nil
	}
	spreads := make([]float64, numColumns)
	for j := range spreads {
		spreads[j] = upper[j] - lower[j]
	}
	return spreads
}

func columnStabilityRaw(stabilities []float64, j int) float64 {
	if j < len(stabilities) {
		return stabilities[j]
	}
	if len(stabilities) == 1 {
		return stabilities[0]
	}
	return 1
}

// ComputeSensitivity derives the per-cell sensitivity of the covariance
// from the paired bound ranges and the statically known record count.
func (c *Covariance) ComputeSensitivity(privacy *base.PrivacyDefinition, argProps base.NodeProperties, space base.SensitivitySpace) (*base.Value, error) {
	k, ok := space.(base.KNorm)
	if !ok || (k != 1 && k != 2) {
		return nil, fmt.Errorf("sensitivity is not defined in %s", space)
	}
	pairs, err := covariancePairs(argProps)
	if err != nil {
		return nil, err
	}
	if pairs.spreads == nil {
		return nil, fmt.Errorf("data bounds must be known")
	}
	n, err := pairs.numRecords()
	if err != nil {
		return nil, fmt.Errorf("covariance sensitivity requires a known record count: %w", err)
	}
	scaling, err := covarianceScaling(float64(n), c.FiniteSampleCorrection, privacy.Neighboring)
	if err != nil {
		return nil, err
	}
	sensitivities := make([]float64, len(pairs.spreads))
	for i, spread := range pairs.spreads {
		row := spread * scaling
		sensitivities[i] = row * pairs.stability[i] * float64(privacy.GroupSize)
	}
	return sensitivityMatrix(sensitivities)
}

// covarianceScaling is the record-count factor of the covariance
// sensitivity. Substitution perturbs both factors of each product term.
func covarianceScaling(n float64, finiteSampleCorrection bool, neighboring base.Neighboring) (float64, error) {
	norm := n
	if finiteSampleCorrection {
		norm = n - 1
	}
	if norm <= 0 {
		return 0, fmt.Errorf("record count %d is too small for the covariance normalization", int64(n))
	}
	switch neighboring {
	case base.AddRemove:
		return n / (n + 1) / norm, nil
	case base.Substitute:
		return 2 * (n - 1) / n / norm, nil
	default:
		return 0, fmt.Errorf("neighboring definition must be set")
	}
}

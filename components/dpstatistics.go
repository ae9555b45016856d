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

// mechanismVariant instantiates the privatizing mechanism for a composite
// statistic. Automatic selection follows the aggregate's atomic type.
func mechanismVariant(name string, usages []base.PrivacyUsage, dataType base.DataType) (Variant, error) {
	switch name {
	case "Laplace":
		return &LaplaceMechanism{PrivacyUsage: usages}, nil
	case "Gaussian":
		return &GaussianMechanism{PrivacyUsage: usages}, nil
	case "SimpleGeometric":
		return &SimpleGeometricMechanism{PrivacyUsage: usages}, nil
	case "Exponential":
		return &ExponentialMechanism{PrivacyUsage: usages}, nil
	case "", "Automatic":
		if dataType == base.IntType {
			return &SimpleGeometricMechanism{PrivacyUsage: usages}, nil
		}
		return &LaplaceMechanism{PrivacyUsage: usages}, nil
	default:
		return nil, fmt.Errorf("unsupported mechanism %s", name)
	}
}

// expandStatistic rewrites a composite node into an aggregator node feeding
// a mechanism node that keeps the composite's id, so downstream references
// see the privatized value.
func expandStatistic(component *Component, aggregator Variant, aggregatorType base.DataType, mechanismName string, usages []base.PrivacyUsage, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	mechanism, err := mechanismVariant(mechanismName, usages, aggregatorType)
	if err != nil {
		return nil, err
	}
	expansion := NewComponentExpansion(maximumID)
	arguments := make(map[string]uint32, len(component.Arguments))
	for name, id := range component.Arguments {
		arguments[name] = id
	}
	aggregatorID := expansion.InsertNode(&Component{
		Variant:    aggregator,
		Arguments:  arguments,
		Omit:       true,
		Submission: component.Submission,
	})
	expansion.ReplaceNode(nodeID, &Component{
		Variant:    mechanism,
		Arguments:  map[string]uint32{"data": aggregatorID},
		Omit:       component.Omit,
		Submission: component.Submission,
	})
	expansion.Revisit(aggregatorID)
	expansion.Revisit(nodeID)
	return expansion, nil
}

func dataAtomicType(argProps base.NodeProperties) base.DataType {
	if dataProps, err := arrayProperties(argProps, "data"); err == nil {
		return dataProps.DataType
	}
	return base.UnknownType
}

// DpCount releases a differentially private record count.
type DpCount struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpCount) Name() string { return "DPCount" }

// Expand rewrites the node into Count followed by an integer mechanism.
func (s *DpCount) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Count{}, base.IntType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpSum releases differentially private columnwise totals.
type DpSum struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpSum) Name() string { return "DPSum" }

// Expand rewrites the node into Sum followed by a mechanism matching the
// data's atomic type.
func (s *DpSum) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Sum{}, dataAtomicType(argProps), s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpMean releases differentially private columnwise averages.
type DpMean struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpMean) Name() string { return "DPMean" }

// Expand rewrites the node into Mean followed by a float mechanism.
func (s *DpMean) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Mean{}, base.FloatType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpVariance releases differentially private columnwise variances.
type DpVariance struct {
	Mechanism              string
	PrivacyUsage           []base.PrivacyUsage
	FiniteSampleCorrection bool
}

// Name returns the variant name.
func (*DpVariance) Name() string { return "DPVariance" }

// Expand rewrites the node into Variance followed by a float mechanism.
func (s *DpVariance) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Variance{FiniteSampleCorrection: s.FiniteSampleCorrection}, base.FloatType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpCovariance releases a differentially private flattened covariance
// matrix.
type DpCovariance struct {
	Mechanism              string
	PrivacyUsage           []base.PrivacyUsage
	FiniteSampleCorrection bool
}

// Name returns the variant name.
func (*DpCovariance) Name() string { return "DPCovariance" }

// Expand rewrites the node into Covariance followed by a float mechanism.
func (s *DpCovariance) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Covariance{FiniteSampleCorrection: s.FiniteSampleCorrection}, base.FloatType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpHistogram releases differentially private per-category counts.
type DpHistogram struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpHistogram) Name() string { return "DPHistogram" }

// Expand rewrites the node into Histogram followed by an integer mechanism.
func (s *DpHistogram) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &Histogram{}, base.IntType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

// DpQuantile releases differentially private columnwise quantiles.
type DpQuantile struct {
	Mechanism     string
	PrivacyUsage  []base.PrivacyUsage
	Alpha         float64
	Interpolation string
}

// Name returns the variant name.
func (*DpQuantile) Name() string { return "DPQuantile" }

// Expand rewrites the node into Quantile followed by a mechanism; the
// exponential mechanism selects among supplied candidates, additive
// mechanisms noise the interpolated quantile. Automatic selection picks
// the exponential mechanism exactly when candidates are supplied.
func (s *DpQuantile) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	interpolation := s.Interpolation
	if interpolation == "" {
		interpolation = "midpoint"
	}
	mechanismName := s.Mechanism
	automatic := mechanismName == "" || mechanismName == "Automatic"
	if automatic {
		if _, ok := component.Arguments["candidates"]; ok {
			mechanismName = "Exponential"
		} else {
			mechanismName = "Laplace"
		}
	}
	expansion, err := expandStatistic(component, &Quantile{Alpha: s.Alpha, Interpolation: interpolation}, base.FloatType, mechanismName, s.PrivacyUsage, nodeID, maximumID)
	if err != nil {
		return nil, err
	}
	if automatic {
		expansion.Warn("a mechanism was automatically selected for the quantile: %s", mechanismName)
	}
	return expansion, nil
}

// DpMinimum releases a differentially private columnwise minimum.
type DpMinimum struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpMinimum) Name() string { return "DPMinimum" }

// Expand rewrites the node into a DPQuantile at alpha 0.
func (s *DpMinimum) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	quantile := &DpQuantile{Mechanism: s.Mechanism, PrivacyUsage: s.PrivacyUsage, Alpha: 0, Interpolation: "lower"}
	return quantile.Expand(privacy, component, publicArgs, argProps, nodeID, maximumID)
}

// DpMedian releases a differentially private columnwise median.
type DpMedian struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpMedian) Name() string { return "DPMedian" }

// Expand rewrites the node into a DPQuantile at alpha one half.
func (s *DpMedian) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	quantile := &DpQuantile{Mechanism: s.Mechanism, PrivacyUsage: s.PrivacyUsage, Alpha: 0.5, Interpolation: "midpoint"}
	return quantile.Expand(privacy, component, publicArgs, argProps, nodeID, maximumID)
}

// DpMaximum releases a differentially private columnwise maximum.
type DpMaximum struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*DpMaximum) Name() string { return "DPMaximum" }

// Expand rewrites the node into a DPQuantile at alpha 1.
func (s *DpMaximum) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	quantile := &DpQuantile{Mechanism: s.Mechanism, PrivacyUsage: s.PrivacyUsage, Alpha: 1, Interpolation: "upper"}
	return quantile.Expand(privacy, component, publicArgs, argProps, nodeID, maximumID)
}

// DpRawMoment releases differentially private columnwise raw moments.
type DpRawMoment struct {
	Mechanism    string
	PrivacyUsage []base.PrivacyUsage
	Order        int64
}

// Name returns the variant name.
func (*DpRawMoment) Name() string { return "DPRawMoment" }

// Expand rewrites the node into RawMoment followed by a float mechanism.
func (s *DpRawMoment) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandStatistic(component, &RawMoment{Order: s.Order}, base.FloatType, s.Mechanism, s.PrivacyUsage, nodeID, maximumID)
}

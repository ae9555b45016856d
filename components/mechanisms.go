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

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/opendifferentialprivacy/smartnoise-core/base"
	"github.com/opendifferentialprivacy/smartnoise-core/checks"
)

type deltaRule int

const (
	deltaForbidden deltaRule = iota
	deltaRequired
)

// mechanismSpec captures what a privatizing mechanism demands of its input.
type mechanismSpec struct {
	space base.SensitivitySpace
	delta deltaRule
	// dataType restricts the aggregate's atomic type; UnknownType accepts any.
	dataType base.DataType
	// floatingPoint marks mechanisms with known floating-point
	// vulnerabilities.
	floatingPoint bool
}

// propagateMechanism validates a privatizing node and emits the released
// properties: releasable, non-null, no longer in an aggregated state.
func propagateMechanism(privacy *base.PrivacyDefinition, argProps base.NodeProperties, usages []base.PrivacyUsage, spec mechanismSpec) (*Warnable, error) {
	if privacy == nil {
		return nil, fmt.Errorf("privacy definition must be supplied")
	}
	if err := privacy.Validate(); err != nil {
		return nil, err
	}
	if spec.floatingPoint && privacy.ProtectFloatingPoint {
		return nil, fmt.Errorf("mechanism is disabled under floating-point protections")
	}
	dataProps, err := arrayProperties(argProps, "data")
	if err != nil {
		return nil, err
	}
	if dataProps.Aggregator == nil {
		return nil, fmt.Errorf("aggregation is required before a mechanism may be applied")
	}
	if spec.dataType != base.UnknownType && dataProps.DataType != spec.dataType {
		return nil, fmt.Errorf("data must be %v, got %v", spec.dataType, dataProps.DataType)
	}
	if len(usages) == 0 {
		return nil, fmt.Errorf("privacy usage must be declared")
	}
	for _, usage := range usages {
		if err := checkUsage(usage, spec.delta, privacy.StrictParameterChecks); err != nil {
			return nil, err
		}
	}
	sensitivities, err := mechanismSensitivity(privacy, dataProps.Aggregator, spec.space)
	if err != nil {
		return nil, err
	}
	if err := checks.CheckSensitivities(sensitivities); err != nil {
		return nil, err
	}

	out := dataProps.Copy()
	out.Releasable = true
	out.Aggregator = nil
	out.Nullity = false
	warnable := NewWarnable(out)
	if dataProps.Releasable {
		warnable.Warn("data is already public; noising it spends budget without protecting anything")
	}
	return warnable, nil
}

func checkUsage(usage base.PrivacyUsage, rule deltaRule, strict bool) error {
	if strict {
		if err := checks.CheckEpsilonVeryStrict(usage.Epsilon); err != nil {
			return err
		}
	} else if err := checks.CheckEpsilonStrict(usage.Epsilon); err != nil {
		return err
	}
	switch rule {
	case deltaForbidden:
		return checks.CheckNoDelta(usage.Delta)
	case deltaRequired:
		if strict {
			return checks.CheckDeltaVeryStrict(usage.Delta)
		}
		return checks.CheckDeltaStrict(usage.Delta)
	}
	return nil
}

// dataAggregator resolves the aggregator snapshot of the "data" argument,
// for array and jagged aggregates alike.
func dataAggregator(argProps base.NodeProperties) (*base.AggregatorProperties, error) {
	props, ok := argProps["data"]
	if !ok {
		return nil, fmt.Errorf("data: missing")
	}
	var aggregator *base.AggregatorProperties
	if array, err := props.Array(); err == nil {
		aggregator = array.Aggregator
	} else if jagged, err := props.Jagged(); err == nil {
		aggregator = jagged.Aggregator
	} else {
		return nil, fmt.Errorf("data: value must be an array or jagged")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregation is required before a mechanism may be applied")
	}
	return aggregator, nil
}

// mechanismSensitivity re-derives the per-output sensitivity from the
// aggregator snapshot, applying the snapshot's Lipschitz constants.
func mechanismSensitivity(privacy *base.PrivacyDefinition, aggregator *base.AggregatorProperties, space base.SensitivitySpace) ([]float64, error) {
	computer, ok := aggregator.Component.(SensitivityComputer)
	if !ok {
		return nil, fmt.Errorf("aggregator %s does not define sensitivity", aggregator.Component.Name())
	}
	value, err := computer.ComputeSensitivity(privacy, aggregator.Properties, space)
	if err != nil {
		return nil, err
	}
	array, err := value.Array()
	if err != nil {
		return nil, err
	}
	sensitivities, err := array.Floats()
	if err != nil {
		return nil, err
	}
	out := append([]float64(nil), sensitivities...)
	constants := aggregator.LipschitzConstants
	for i := range out {
		switch {
		case i < len(constants):
			out[i] *= constants[i]
		case len(constants) == 1:
			out[i] *= constants[0]
		}
	}
	return out, nil
}

// mechanismUsage spreads the declared usage over the privatized outputs,
// unless the release already recorded its actual expenditure.
func mechanismUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, declared []base.PrivacyUsage, releaseUsage []base.PrivacyUsage, space base.SensitivitySpace) ([]base.PrivacyUsage, error) {
	if len(releaseUsage) > 0 {
		return append([]base.PrivacyUsage(nil), releaseUsage...), nil
	}
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	sensitivities, err := mechanismSensitivity(privacy, aggregator, space)
	if err != nil {
		return nil, err
	}
	return spreadPrivacyUsage(declared, len(sensitivities))
}

// expandMechanism embeds the derived sensitivity as a literal argument, so
// the runtime need not re-derive it. A sensitivity already wired is left
// alone, which keeps the rewrite idempotent.
func expandMechanism(privacy *base.PrivacyDefinition, component *Component, argProps base.NodeProperties, space base.SensitivitySpace, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	expansion := NewComponentExpansion(maximumID)
	if _, ok := component.Arguments["sensitivity"]; ok {
		return expansion, nil
	}
	if privacy == nil {
		return nil, fmt.Errorf("privacy definition must be supplied")
	}
	if _, ok := argProps["data"]; !ok {
		return expansion, nil
	}
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	computer, ok := aggregator.Component.(SensitivityComputer)
	if !ok {
		return nil, fmt.Errorf("aggregator %s does not define sensitivity", aggregator.Component.Name())
	}
	value, err := computer.ComputeSensitivity(privacy, aggregator.Properties, space)
	if err != nil {
		return nil, err
	}
	public := !privacy.ProtectSensitivityFromPrivateValues

	arguments := make(map[string]uint32, len(component.Arguments)+1)
	for name, id := range component.Arguments {
		arguments[name] = id
	}
	arguments["sensitivity"] = expansion.InsertLiteral(value, public, component.Submission)
	expansion.ReplaceNode(nodeID, &Component{
		Variant:    component.Variant,
		Arguments:  arguments,
		Omit:       component.Omit,
		Submission: component.Submission,
	})
	expansion.Revisit(nodeID)
	return expansion, nil
}

// summarizeMechanism emits the release entry for a privatized statistic.
func summarizeMechanism(mechanismName string, nodeID uint32, component *Component, argProps base.NodeProperties, release *base.Value, variableNames []string, usages []base.PrivacyUsage) ([]*Summary, error) {
	statistic := "unknown"
	if dataProps, err := arrayProperties(argProps, "data"); err == nil && dataProps.Aggregator != nil {
		statistic = "DP" + dataProps.Aggregator.Component.Name()
	}
	return []*Summary{{
		Statistic:   statistic,
		Variables:   variableNames,
		ReleaseInfo: release,
		PrivacyLoss: usages,
		NodeID:      nodeID,
		Submission:  component.Submission,
		Mechanism:   mechanismName,
	}}, nil
}

// LaplaceMechanism privatizes a float aggregate with additive noise from
// the Laplace distribution, calibrated to the L1 sensitivity.
type LaplaceMechanism struct {
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*LaplaceMechanism) Name() string { return "LaplaceMechanism" }

// PropagateProperty validates the privatization and marks the output
// releasable.
func (m *LaplaceMechanism) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateMechanism(privacy, argProps, m.PrivacyUsage, mechanismSpec{
		space:         base.KNorm(1),
		delta:         deltaForbidden,
		dataType:      base.FloatType,
		floatingPoint: true,
	})
}

// ComputePrivacyUsage reports the usage consumed per output.
func (m *LaplaceMechanism) ComputePrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, releaseUsage []base.PrivacyUsage) ([]base.PrivacyUsage, error) {
	return mechanismUsage(privacy, argProps, m.PrivacyUsage, releaseUsage, base.KNorm(1))
}

// Expand embeds the L1 sensitivity as a literal argument.
func (m *LaplaceMechanism) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandMechanism(privacy, component, argProps, base.KNorm(1), nodeID, maximumID)
}

// PrivacyUsageToAccuracy returns, per output, the (1-alpha)-confidence
// error bound ln(1/alpha) * sensitivity / epsilon of Laplace noise.
func (m *LaplaceMechanism) PrivacyUsageToAccuracy(privacy *base.PrivacyDefinition, argProps base.NodeProperties, alpha float64) ([]*base.Accuracy, error) {
	return laplaceUsageToAccuracy(privacy, argProps, m.PrivacyUsage, alpha)
}

// AccuracyToPrivacyUsage inverts PrivacyUsageToAccuracy.
func (m *LaplaceMechanism) AccuracyToPrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, accuracies []*base.Accuracy) ([]base.PrivacyUsage, error) {
	return laplaceAccuracyToUsage(privacy, argProps, accuracies)
}

func laplaceUsageToAccuracy(privacy *base.PrivacyDefinition, argProps base.NodeProperties, declared []base.PrivacyUsage, alpha float64) ([]*base.Accuracy, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return nil, err
	}
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	sensitivities, err := mechanismSensitivity(privacy, aggregator, base.KNorm(1))
	if err != nil {
		return nil, err
	}
	usages, err := spreadPrivacyUsage(declared, len(sensitivities))
	if err != nil {
		return nil, err
	}
	accuracies := make([]*base.Accuracy, len(sensitivities))
	for i := range accuracies {
		accuracies[i] = &base.Accuracy{
			Value: math.Log(1/alpha) * sensitivities[i] / usages[i].Epsilon,
			Alpha: alpha,
		}
	}
	return accuracies, nil
}

func laplaceAccuracyToUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, accuracies []*base.Accuracy) ([]base.PrivacyUsage, error) {
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	sensitivities, err := mechanismSensitivity(privacy, aggregator, base.KNorm(1))
	if err != nil {
		return nil, err
	}
	if len(accuracies) != len(sensitivities) {
		return nil, fmt.Errorf("%d accuracies cannot cover %d outputs", len(accuracies), len(sensitivities))
	}
	usages := make([]base.PrivacyUsage, len(accuracies))
	for i, accuracy := range accuracies {
		if err := checks.CheckAlpha(accuracy.Alpha); err != nil {
			return nil, err
		}
		if err := checks.CheckAccuracy(accuracy.Value); err != nil {
			return nil, err
		}
		usages[i] = base.PrivacyUsage{
			Epsilon: math.Log(1/accuracy.Alpha) * sensitivities[i] / accuracy.Value,
		}
	}
	return usages, nil
}

// Summarize emits the release entry.
func (m *LaplaceMechanism) Summarize(nodeID uint32, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, release *base.Value, variableNames []string) ([]*Summary, error) {
	return summarizeMechanism(m.Name(), nodeID, component, argProps, release, variableNames, m.PrivacyUsage)
}

// GaussianMechanism privatizes a float aggregate with additive noise from
// the Gaussian distribution, calibrated to the L2 sensitivity. It provides
// approximate differential privacy and requires a positive delta.
type GaussianMechanism struct {
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*GaussianMechanism) Name() string { return "GaussianMechanism" }

// PropagateProperty validates the privatization and marks the output
// releasable.
func (m *GaussianMechanism) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateMechanism(privacy, argProps, m.PrivacyUsage, mechanismSpec{
		space:         base.KNorm(2),
		delta:         deltaRequired,
		dataType:      base.FloatType,
		floatingPoint: true,
	})
}

// ComputePrivacyUsage reports the usage consumed per output.
func (m *GaussianMechanism) ComputePrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, releaseUsage []base.PrivacyUsage) ([]base.PrivacyUsage, error) {
	return mechanismUsage(privacy, argProps, m.PrivacyUsage, releaseUsage, base.KNorm(2))
}

// Expand embeds the L2 sensitivity as a literal argument.
func (m *GaussianMechanism) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandMechanism(privacy, component, argProps, base.KNorm(2), nodeID, maximumID)
}

// gaussianSigma is the classic analytic calibration of Gaussian noise.
func gaussianSigma(sensitivity float64, usage base.PrivacyUsage) float64 {
	return math.Sqrt(2*math.Log(1.25/usage.Delta)) * sensitivity / usage.Epsilon
}

// PrivacyUsageToAccuracy returns, per output, the (1-alpha)-confidence
// error bound sigma * z(1-alpha/2) of Gaussian noise.
func (m *GaussianMechanism) PrivacyUsageToAccuracy(privacy *base.PrivacyDefinition, argProps base.NodeProperties, alpha float64) ([]*base.Accuracy, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return nil, err
	}
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	sensitivities, err := mechanismSensitivity(privacy, aggregator, base.KNorm(2))
	if err != nil {
		return nil, err
	}
	usages, err := spreadPrivacyUsage(m.PrivacyUsage, len(sensitivities))
	if err != nil {
		return nil, err
	}
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	accuracies := make([]*base.Accuracy, len(sensitivities))
	for i := range accuracies {
		if err := checks.CheckDeltaStrict(usages[i].Delta); err != nil {
			return nil, err
		}
		accuracies[i] = &base.Accuracy{
			Value: gaussianSigma(sensitivities[i], usages[i]) * z,
			Alpha: alpha,
		}
	}
	return accuracies, nil
}

// AccuracyToPrivacyUsage inverts PrivacyUsageToAccuracy, keeping the
// declared delta.
func (m *GaussianMechanism) AccuracyToPrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, accuracies []*base.Accuracy) ([]base.PrivacyUsage, error) {
	aggregator, err := dataAggregator(argProps)
	if err != nil {
		return nil, err
	}
	sensitivities, err := mechanismSensitivity(privacy, aggregator, base.KNorm(2))
	if err != nil {
		return nil, err
	}
	if len(accuracies) != len(sensitivities) {
		return nil, fmt.Errorf("%d accuracies cannot cover %d outputs", len(accuracies), len(sensitivities))
	}
	declared, err := spreadPrivacyUsage(m.PrivacyUsage, len(sensitivities))
	if err != nil {
		return nil, err
	}
	usages := make([]base.PrivacyUsage, len(accuracies))
	for i, accuracy := range accuracies {
		if err := checks.CheckAlpha(accuracy.Alpha); err != nil {
			return nil, err
		}
		if err := checks.CheckAccuracy(accuracy.Value); err != nil {
			return nil, err
		}
		if err := checks.CheckDeltaStrict(declared[i].Delta); err != nil {
			return nil, err
		}
		z := distuv.UnitNormal.Quantile(1 - accuracy.Alpha/2)
		usages[i] = base.PrivacyUsage{
			Epsilon: math.Sqrt(2*math.Log(1.25/declared[i].Delta)) * sensitivities[i] * z / accuracy.Value,
			Delta:   declared[i].Delta,
		}
	}
	return usages, nil
}

// Summarize emits the release entry.
func (m *GaussianMechanism) Summarize(nodeID uint32, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, release *base.Value, variableNames []string) ([]*Summary, error) {
	return summarizeMechanism(m.Name(), nodeID, component, argProps, release, variableNames, m.PrivacyUsage)
}

// SimpleGeometricMechanism privatizes an integer aggregate with additive
// noise from the two-sided geometric distribution, the discrete analogue of
// Laplace noise.
type SimpleGeometricMechanism struct {
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*SimpleGeometricMechanism) Name() string { return "SimpleGeometricMechanism" }

// PropagateProperty validates the privatization and marks the output
// releasable.
func (m *SimpleGeometricMechanism) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	return propagateMechanism(privacy, argProps, m.PrivacyUsage, mechanismSpec{
		space:    base.KNorm(1),
		delta:    deltaForbidden,
		dataType: base.IntType,
	})
}

// ComputePrivacyUsage reports the usage consumed per output.
func (m *SimpleGeometricMechanism) ComputePrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, releaseUsage []base.PrivacyUsage) ([]base.PrivacyUsage, error) {
	return mechanismUsage(privacy, argProps, m.PrivacyUsage, releaseUsage, base.KNorm(1))
}

// Expand embeds the L1 sensitivity as a literal argument.
func (m *SimpleGeometricMechanism) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandMechanism(privacy, component, argProps, base.KNorm(1), nodeID, maximumID)
}

// PrivacyUsageToAccuracy uses the Laplace tail bound, which dominates the
// geometric tail at every alpha.
func (m *SimpleGeometricMechanism) PrivacyUsageToAccuracy(privacy *base.PrivacyDefinition, argProps base.NodeProperties, alpha float64) ([]*base.Accuracy, error) {
	return laplaceUsageToAccuracy(privacy, argProps, m.PrivacyUsage, alpha)
}

// AccuracyToPrivacyUsage inverts PrivacyUsageToAccuracy.
func (m *SimpleGeometricMechanism) AccuracyToPrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, accuracies []*base.Accuracy) ([]base.PrivacyUsage, error) {
	return laplaceAccuracyToUsage(privacy, argProps, accuracies)
}

// Summarize emits the release entry.
func (m *SimpleGeometricMechanism) Summarize(nodeID uint32, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, release *base.Value, variableNames []string) ([]*Summary, error) {
	return summarizeMechanism(m.Name(), nodeID, component, argProps, release, variableNames, m.PrivacyUsage)
}

// ExponentialMechanism privatizes a selection from candidate outputs, with
// probabilities weighted by a utility function. No accuracy conversion is
// defined for it.
type ExponentialMechanism struct {
	PrivacyUsage []base.PrivacyUsage
}

// Name returns the variant name.
func (*ExponentialMechanism) Name() string { return "ExponentialMechanism" }

// PropagateProperty validates the privatization and marks the output
// releasable. A jagged utility matrix over a candidate set collapses into
// one selected value per column.
func (m *ExponentialMechanism) PropagateProperty(privacy *base.PrivacyDefinition, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32) (*Warnable, error) {
	if props, ok := argProps["data"]; ok {
		if jagged, err := props.Jagged(); err == nil {
			return propagateSelection(privacy, jagged, m.PrivacyUsage)
		}
	}
	return propagateMechanism(privacy, argProps, m.PrivacyUsage, mechanismSpec{
		space:    base.Exponential{},
		delta:    deltaForbidden,
		dataType: base.UnknownType,
	})
}

// propagateSelection validates an exponential selection over scored
// candidates and emits the released properties of the chosen values.
func propagateSelection(privacy *base.PrivacyDefinition, dataProps *base.JaggedProperties, usages []base.PrivacyUsage) (*Warnable, error) {
	if privacy == nil {
		return nil, fmt.Errorf("privacy definition must be supplied")
	}
	if err := privacy.Validate(); err != nil {
		return nil, err
	}
	if dataProps.Aggregator == nil {
		return nil, fmt.Errorf("aggregation is required before a mechanism may be applied")
	}
	if len(usages) == 0 {
		return nil, fmt.Errorf("privacy usage must be declared")
	}
	for _, usage := range usages {
		if err := checkUsage(usage, deltaForbidden, privacy.StrictParameterChecks); err != nil {
			return nil, err
		}
	}
	sensitivities, err := mechanismSensitivity(privacy, dataProps.Aggregator, base.Exponential{})
	if err != nil {
		return nil, err
	}
	if err := checks.CheckSensitivities(sensitivities); err != nil {
		return nil, err
	}

	one := int64(1)
	numColumns := int64(len(dataProps.Aggregator.LipschitzConstants))
	out := &base.ArrayProperties{
		NumRecords:     &one,
		NumColumns:     &numColumns,
		Releasable:     true,
		CStability:     onesVector(numColumns),
		DataType:       dataProps.DataType,
		IsNotEmpty:     true,
		Dimensionality: &one,
	}
	return NewWarnable(out), nil
}

// ComputePrivacyUsage reports the usage consumed per output.
func (m *ExponentialMechanism) ComputePrivacyUsage(privacy *base.PrivacyDefinition, argProps base.NodeProperties, releaseUsage []base.PrivacyUsage) ([]base.PrivacyUsage, error) {
	return mechanismUsage(privacy, argProps, m.PrivacyUsage, releaseUsage, base.Exponential{})
}

// Expand embeds the exponential-space sensitivity as a literal argument.
func (m *ExponentialMechanism) Expand(privacy *base.PrivacyDefinition, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, nodeID uint32, maximumID uint32) (*ComponentExpansion, error) {
	return expandMechanism(privacy, component, argProps, base.Exponential{}, nodeID, maximumID)
}

// Summarize emits the release entry.
func (m *ExponentialMechanism) Summarize(nodeID uint32, component *Component, publicArgs map[string]*base.Value, argProps base.NodeProperties, release *base.Value, variableNames []string) ([]*Summary, error) {
	return summarizeMechanism(m.Name(), nodeID, component, argProps, release, variableNames, m.PrivacyUsage)
}

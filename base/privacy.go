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
	"math"
)

// Neighboring is the definition of dataset adjacency under which privacy is
// accounted.
type Neighboring int

const (
	// UnknownNeighboring is the zero value; analyses must set a definition.
	UnknownNeighboring Neighboring = iota
	// AddRemove considers datasets neighboring when one is the other with a
	// single record added or removed.
	AddRemove
	// Substitute considers datasets neighboring when one is the other with a
	// single record replaced.
	Substitute
)

// String returns a human-readable name for n.
func (n Neighboring) String() string {
	switch n {
	case AddRemove:
		return "AddRemove"
	case Substitute:
		return "Substitute"
	default:
		return "Unknown"
	}
}

// PrivacyDefinition pins down the accounting rules for an entire analysis.
type PrivacyDefinition struct {
	// GroupSize is the number of records contributed per protected unit.
	GroupSize uint32
	Neighboring Neighboring
	// StrictParameterChecks rejects epsilon above 2^31 and delta at or above
	// 1e-4, values which are almost always parameterization mistakes.
	StrictParameterChecks bool
	// ProtectFloatingPoint rejects analyses whose mechanisms are known to be
	// vulnerable to floating-point attacks.
	ProtectFloatingPoint bool
	// ProtectSensitivityFromPrivateValues rejects sensitivities that were
	// derived from non-public values.
	ProtectSensitivityFromPrivateValues bool
}

// Validate fails when the definition itself is malformed.
func (pd *PrivacyDefinition) Validate() error {
	if pd.GroupSize == 0 {
		return fmt.Errorf("group size must be at least one")
	}
	if pd.Neighboring == UnknownNeighboring {
		return fmt.Errorf("neighboring definition must be set")
	}
	return nil
}

// PrivacyUsage is an (epsilon, delta) expenditure.
type PrivacyUsage struct {
	Epsilon float64
	Delta   float64
}

// Add returns the composition of two usages.
func (u PrivacyUsage) Add(other PrivacyUsage) PrivacyUsage {
	return PrivacyUsage{Epsilon: u.Epsilon + other.Epsilon, Delta: u.Delta + other.Delta}
}

// Scale multiplies both parameters by c. Used for c-stability and group
// privacy corrections.
func (u PrivacyUsage) Scale(c float64) PrivacyUsage {
	return PrivacyUsage{Epsilon: u.Epsilon * c, Delta: u.Delta * c}
}

// Validate applies the basic sanity checks, plus stricter bounds when
// strict is set.
func (u PrivacyUsage) Validate(strict bool) error {
	if u.Epsilon <= 0 || math.IsInf(u.Epsilon, 0) || math.IsNaN(u.Epsilon) {
		return fmt.Errorf("epsilon must be positive and finite, got %f", u.Epsilon)
	}
	if u.Delta < 0 || u.Delta >= 1 || math.IsNaN(u.Delta) {
		return fmt.Errorf("delta must be in [0, 1), got %f", u.Delta)
	}
	if strict {
		if u.Epsilon > math.Exp2(31) {
			return fmt.Errorf("epsilon %f exceeds maximum accepted under strict parameter checks", u.Epsilon)
		}
		if u.Delta >= 1e-4 {
			return fmt.Errorf("delta %e must be below 1e-4 under strict parameter checks", u.Delta)
		}
	}
	return nil
}

// SensitivitySpace selects the metric in which a sensitivity is expressed.
type SensitivitySpace interface {
	isSensitivitySpace()
	String() string
}

// KNorm is the L_k distance sensitivity space; KNorm(1) is the L1 metric of
// the Laplace mechanism, KNorm(2) the L2 metric of the Gaussian mechanism.
type KNorm int

func (KNorm) isSensitivitySpace() {}

// String returns a human-readable name for the norm.
func (k KNorm) String() string { return fmt.Sprintf("L%d norm", int(k)) }

// InfNorm is the L_infinity distance sensitivity space.
type InfNorm struct{}

func (InfNorm) isSensitivitySpace() {}

// String returns a human-readable name for the norm.
func (InfNorm) String() string { return "L-infinity norm" }

// Exponential is the utility-function sensitivity space of the exponential
// mechanism.
type Exponential struct{}

func (Exponential) isSensitivitySpace() {}

// String returns a human-readable name for the space.
func (Exponential) String() string { return "exponential space" }

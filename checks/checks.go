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

// Package checks contains argument checks shared by the static validator.
package checks

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
)

const (
	epsilonName = "Epsilon"
	deltaName   = "Delta"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckEpsilonVeryStrict returns an error if ε is nonpositive, +∞, or larger
// than 2³¹. Values that large provide no meaningful privacy and almost always
// indicate a units mistake.
func CheckEpsilonVeryStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if err := CheckEpsilonStrict(epsilon, epsName); err != nil {
		return err
	}
	if epsilon > math.Exp2(31) {
		return fmt.Errorf("%s is %f, must be at most 2^31", epsName, epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is negative or greater than or equal to 1.
func CheckDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta < 0 {
		return fmt.Errorf("%s is %e, cannot be negative", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckDeltaStrict returns an error if δ is nonpositive or greater than or equal to 1.
func CheckDeltaStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta <= 0 {
		return fmt.Errorf("%s is %e, must be strictly positive", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckDeltaVeryStrict returns an error if δ is outside (0, 1e-4). A delta
// at 1e-4 or above risks leaking whole records.
func CheckDeltaVeryStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if err := CheckDeltaStrict(delta, delName); err != nil {
		return err
	}
	if delta >= 1e-4 {
		return fmt.Errorf("%s is %e, must be strictly less than 1e-4", delName, delta)
	}
	return nil
}

// CheckNoDelta returns an error if δ is non-zero.
func CheckNoDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if delta != 0 {
		return fmt.Errorf("%s is %e, must be 0", delName, delta)
	}
	return nil
}

// CheckSensitivity returns an error if a sensitivity is negative or +∞.
// A zero sensitivity is accepted with a warning: it releases the exact value.
func CheckSensitivity(sensitivity float64) error {
	if sensitivity < 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("Sensitivity is %f, must be nonnegative and finite", sensitivity)
	}
	if sensitivity == 0 {
		log.Warningf("Sensitivity is zero: the statistic is released exactly")
	}
	return nil
}

// CheckSensitivities applies CheckSensitivity to every column of a
// sensitivity vector.
func CheckSensitivities(sensitivities []float64) error {
	for i, s := range sensitivities {
		if err := CheckSensitivity(s); err != nil {
			return fmt.Errorf("column %d: %v", i, err)
		}
	}
	return nil
}

// CheckBoundsFloat64 returns an error if lower is larger than upper, or if either parameter is ±∞.
func CheckBoundsFloat64(lower, upper float64) error {
	if math.IsNaN(lower) {
		return fmt.Errorf("Lower bound cannot be NaN")
	}
	if math.IsNaN(upper) {
		return fmt.Errorf("Upper bound cannot be NaN")
	}
	if math.IsInf(lower, 0) {
		return fmt.Errorf("Lower bound cannot be infinity")
	}
	if math.IsInf(upper, 0) {
		return fmt.Errorf("Upper bound cannot be infinity")
	}
	if lower > upper {
		return fmt.Errorf("Upper bound (%f) must be larger than lower bound (%f)", upper, lower)
	}
	if lower == upper {
		log.Warningf("Lower bound is equal to upper bound: all elements will be clamped to %f", upper)
	}
	return nil
}

// CheckBoundsInt64 returns an error if lower is larger than upper, and ensures it won't lead to sensitivity overflow.
func CheckBoundsInt64(lower, upper int64) error {
	if lower == math.MinInt64 || upper == math.MinInt64 {
		return fmt.Errorf("Lower bound (%d) and upper bound (%d) must be strictly larger than MinInt64=%d to avoid sensitivity overflow", lower, upper, math.MinInt64)
	}
	if lower > upper {
		return fmt.Errorf("Upper bound (%d) must be larger than lower bound (%d)", upper, lower)
	}
	if lower == upper {
		log.Warningf("Lower bound is equal to upper bound: all elements will be clamped to %d", upper)
	}
	return nil
}

// CheckBoundsFloat64Vectors applies CheckBoundsFloat64 columnwise, failing
// if the vectors differ in length.
func CheckBoundsFloat64Vectors(lower, upper []float64) error {
	if len(lower) != len(upper) {
		return fmt.Errorf("Lower bounds have %d columns, upper bounds have %d", len(lower), len(upper))
	}
	for i := range lower {
		if err := CheckBoundsFloat64(lower[i], upper[i]); err != nil {
			return fmt.Errorf("column %d: %v", i, err)
		}
	}
	return nil
}

// CheckBoundsInt64Vectors applies CheckBoundsInt64 columnwise, failing if
// the vectors differ in length.
func CheckBoundsInt64Vectors(lower, upper []int64) error {
	if len(lower) != len(upper) {
		return fmt.Errorf("Lower bounds have %d columns, upper bounds have %d", len(lower), len(upper))
	}
	for i := range lower {
		if err := CheckBoundsInt64(lower[i], upper[i]); err != nil {
			return fmt.Errorf("column %d: %v", i, err)
		}
	}
	return nil
}

// CheckBoundsNotEqual returns an error if lower and upper bounds are equal.
func CheckBoundsNotEqual(lower, upper float64) error {
	if lower == upper {
		return fmt.Errorf("Lower and upper bounds are both %f, they cannot be equal to each other", lower)
	}
	return nil
}

// CheckAlpha returns an error if the supplied alpha is not between 0 and 1.
func CheckAlpha(alpha float64) error {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return fmt.Errorf("Alpha is %f, must be within (0, 1) and finite", alpha)
	}
	return nil
}

// CheckAlphas applies CheckAlpha to every quantile probability in a vector,
// also failing when the vector is empty.
func CheckAlphas(alphas []float64) error {
	if len(alphas) == 0 {
		return fmt.Errorf("At least one alpha must be supplied")
	}
	for i, alpha := range alphas {
		if err := CheckAlpha(alpha); err != nil {
			return fmt.Errorf("alpha %d: %v", i, err)
		}
	}
	return nil
}

// CheckAccuracy returns an error if an accuracy magnitude is nonpositive or +∞.
func CheckAccuracy(accuracy float64) error {
	if accuracy <= 0 || math.IsInf(accuracy, 0) || math.IsNaN(accuracy) {
		return fmt.Errorf("Accuracy is %f, must be strictly positive and finite", accuracy)
	}
	return nil
}

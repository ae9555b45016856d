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

package checks

import (
	"math"
	"testing"
)

func TestCheckEpsilonStrict(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		epsilon float64
		wantErr bool
	}{
		{"negative epsilon",
			-2,
			true},
		{"zero epsilon",
			0,
			true},
		{"epsilon is NaN",
			math.NaN(),
			true},
		{"epsilon is negative infinity",
			math.Inf(-1),
			true},
		{"epsilon is positive infinity",
			math.Inf(1),
			true},
		{"positive epsilon",
			50,
			false},
		{"small positive epsilon",
			math.Exp2(-51.0),
			false},
	} {
		if err := CheckEpsilonStrict(tc.epsilon); (err != nil) != tc.wantErr {
			t.Errorf("CheckEpsilonStrict: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckEpsilonVeryStrict(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		epsilon float64
		wantErr bool
	}{
		{"zero epsilon",
			0,
			true},
		{"epsilon above 2³¹",
			math.Exp2(32.0),
			true},
		{"epsilon equal to 2³¹",
			math.Exp2(31.0),
			false},
		{"epsilon is infinity",
			math.Inf(1),
			true},
		{"typical epsilon",
			0.5,
			false},
	} {
		if err := CheckEpsilonVeryStrict(tc.epsilon); (err != nil) != tc.wantErr {
			t.Errorf("CheckEpsilonVeryStrict: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckDelta(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		delta   float64
		wantErr bool
	}{
		{"delta is NaN",
			math.NaN(),
			true},
		{"negative delta",
			-1e-5,
			true},
		{"zero delta",
			0,
			false},
		{"delta equal to one",
			1,
			true},
		{"delta above one",
			2,
			true},
		{"typical delta",
			1e-6,
			false},
	} {
		if err := CheckDelta(tc.delta); (err != nil) != tc.wantErr {
			t.Errorf("CheckDelta: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckDeltaStrict(t *testing.T) {
	if err := CheckDeltaStrict(0); err == nil {
		t.Errorf("CheckDeltaStrict: when zero delta for err got nil, want error")
	}
	if err := CheckDeltaStrict(1e-6); err != nil {
		t.Errorf("CheckDeltaStrict: when typical delta for err got %v, want nil", err)
	}
}

func TestCheckDeltaVeryStrict(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		delta   float64
		wantErr bool
	}{
		{"zero delta",
			0,
			true},
		{"delta equal to 1e-4",
			1e-4,
			true},
		{"delta just below 1e-4",
			0.99e-4,
			false},
		{"typical delta",
			1e-7,
			false},
	} {
		if err := CheckDeltaVeryStrict(tc.delta); (err != nil) != tc.wantErr {
			t.Errorf("CheckDeltaVeryStrict: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckNoDelta(t *testing.T) {
	if err := CheckNoDelta(1e-10); err == nil {
		t.Errorf("CheckNoDelta: when nonzero delta for err got nil, want error")
	}
	if err := CheckNoDelta(0); err != nil {
		t.Errorf("CheckNoDelta: when zero delta for err got %v, want nil", err)
	}
}

func TestCheckSensitivities(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		sensitivities []float64
		wantErr       bool
	}{
		{"all positive",
			[]float64{1, 2.5},
			false},
		{"zero sensitivity accepted",
			[]float64{0},
			false},
		{"negative sensitivity",
			[]float64{1, -1},
			true},
		{"infinite sensitivity",
			[]float64{math.Inf(1)},
			true},
		{"NaN sensitivity",
			[]float64{math.NaN()},
			true},
	} {
		if err := CheckSensitivities(tc.sensitivities); (err != nil) != tc.wantErr {
			t.Errorf("CheckSensitivities: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckBoundsFloat64(t *testing.T) {
	for _, tc := range []struct {
		desc         string
		lower, upper float64
		wantErr      bool
	}{
		{"lower below upper",
			0, 10,
			false},
		{"lower equal to upper",
			5, 5,
			false},
		{"lower above upper",
			10, 0,
			true},
		{"lower is NaN",
			math.NaN(), 1,
			true},
		{"upper is infinity",
			0, math.Inf(1),
			true},
	} {
		if err := CheckBoundsFloat64(tc.lower, tc.upper); (err != nil) != tc.wantErr {
			t.Errorf("CheckBoundsFloat64: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckBoundsInt64(t *testing.T) {
	for _, tc := range []struct {
		desc         string
		lower, upper int64
		wantErr      bool
	}{
		{"lower below upper",
			-5, 5,
			false},
		{"lower above upper",
			5, -5,
			true},
		{"lower is MinInt64",
			math.MinInt64, 0,
			true},
	} {
		if err := CheckBoundsInt64(tc.lower, tc.upper); (err != nil) != tc.wantErr {
			t.Errorf("CheckBoundsInt64: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckBoundsVectorsLengthMismatch(t *testing.T) {
	if err := CheckBoundsFloat64Vectors([]float64{0}, []float64{1, 2}); err == nil {
		t.Errorf("CheckBoundsFloat64Vectors: when length mismatch for err got nil, want error")
	}
	if err := CheckBoundsInt64Vectors([]int64{0, 0}, []int64{1}); err == nil {
		t.Errorf("CheckBoundsInt64Vectors: when length mismatch for err got nil, want error")
	}
	if err := CheckBoundsFloat64Vectors([]float64{0, 0}, []float64{1, 2}); err != nil {
		t.Errorf("CheckBoundsFloat64Vectors: when valid bounds for err got %v, want nil", err)
	}
}

func TestCheckAlphas(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		alphas  []float64
		wantErr bool
	}{
		{"typical alphas",
			[]float64{0.05, 0.5},
			false},
		{"empty vector",
			nil,
			true},
		{"zero alpha",
			[]float64{0},
			true},
		{"alpha equal to one",
			[]float64{1},
			true},
		{"alpha is NaN",
			[]float64{math.NaN()},
			true},
	} {
		if err := CheckAlphas(tc.alphas); (err != nil) != tc.wantErr {
			t.Errorf("CheckAlphas: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckAccuracy(t *testing.T) {
	if err := CheckAccuracy(0); err == nil {
		t.Errorf("CheckAccuracy: when zero accuracy for err got nil, want error")
	}
	if err := CheckAccuracy(math.Inf(1)); err == nil {
		t.Errorf("CheckAccuracy: when infinite accuracy for err got nil, want error")
	}
	if err := CheckAccuracy(2.5); err != nil {
		t.Errorf("CheckAccuracy: when positive accuracy for err got %v, want nil", err)
	}
}

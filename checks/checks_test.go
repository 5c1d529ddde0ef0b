//
// Copyright 2026 Google LLC
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

func TestCheckLearningRate(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		lr      float64
		wantErr bool
	}{
		{"negative learning rate",
			-1e-3,
			true},
		{"zero learning rate",
			0,
			true},
		{"learning rate is NaN",
			math.NaN(),
			true},
		{"learning rate is positive infinity",
			math.Inf(1),
			true},
		{"small positive learning rate",
			3e-4,
			false},
	} {
		if err := CheckLearningRate("test", tc.lr); (err != nil) != tc.wantErr {
			t.Errorf("CheckLearningRate: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckNonNegative(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		x       float64
		wantErr bool
	}{
		{"negative", -1, true},
		{"zero", 0, false},
		{"positive", 1e-5, false},
		{"NaN", math.NaN(), true},
		{"infinity", math.Inf(1), true},
	} {
		if err := CheckNonNegative("test", tc.x); (err != nil) != tc.wantErr {
			t.Errorf("CheckNonNegative: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckFinite(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		x       float64
		wantErr bool
	}{
		{"negative", -3, false},
		{"NaN", math.NaN(), true},
		{"negative infinity", math.Inf(-1), true},
	} {
		if err := CheckFinite("test", tc.x); (err != nil) != tc.wantErr {
			t.Errorf("CheckFinite: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckPositiveInt(t *testing.T) {
	for _, tc := range []struct {
		n       int
		wantErr bool
	}{
		{-1, true},
		{0, true},
		{1, false},
		{5000, false},
	} {
		if err := CheckPositiveInt("test", tc.n); (err != nil) != tc.wantErr {
			t.Errorf("CheckPositiveInt(%d): got err %v, want %t", tc.n, err, tc.wantErr)
		}
		if err := CheckNonNegativeInt("test", tc.n); (err != nil) != (tc.n < 0) {
			t.Errorf("CheckNonNegativeInt(%d): got err %v, want %t", tc.n, err, tc.n < 0)
		}
	}
}

func TestCheckFraction(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		p       float64
		wantErr bool
	}{
		{"NaN", math.NaN(), true},
		{"negative", -0.1, true},
		{"zero", 0, false},
		{"one", 1, true},
		{"inside", 0.25, false},
	} {
		if err := CheckFraction("test", tc.p); (err != nil) != tc.wantErr {
			t.Errorf("CheckFraction: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
		if err := CheckBeta("test", tc.p); (err != nil) != tc.wantErr {
			t.Errorf("CheckBeta: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckSameLength(t *testing.T) {
	if err := CheckSameLength(4, Length{"labels", 4}, Length{"protected", 4}); err != nil {
		t.Errorf("CheckSameLength: aligned lengths got err %v", err)
	}
	if err := CheckSameLength(4, Length{"labels", 4}, Length{"protected", 3}); err == nil {
		t.Errorf("CheckSameLength: misaligned lengths got no error")
	}
	// The first misaligned length is reported.
	err := CheckSameLength(4, Length{"labels", 2}, Length{"protected", 3})
	if want := "labels has 2 entries, want 4"; err == nil || err.Error() != want {
		t.Errorf("CheckSameLength: got err %v, want %q", err, want)
	}
}

func TestCheckBinary(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		xs      []float64
		wantErr bool
	}{
		{"empty", nil, false},
		{"zeros and ones", []float64{0, 1, 1, 0}, false},
		{"fractional value", []float64{0, 0.5}, true},
		{"negative value", []float64{-1}, true},
	} {
		if err := CheckBinary("test", tc.xs); (err != nil) != tc.wantErr {
			t.Errorf("CheckBinary: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckIndices(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		indices []int
		dim     int
		wantErr bool
	}{
		{"no indices", nil, 3, false},
		{"valid indices", []int{0, 2}, 3, false},
		{"index out of range", []int{3}, 3, true},
		{"negative index", []int{-1}, 3, true},
		{"repeated index", []int{1, 1}, 3, true},
		{"every feature", []int{0, 1}, 2, false},
	} {
		if err := CheckIndices("test", tc.indices, tc.dim); (err != nil) != tc.wantErr {
			t.Errorf("CheckIndices: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

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

// Package checks contains argument checks for the training procedure and its collaborators.
package checks

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// CheckLearningRate returns an error if lr is nonpositive, NaN or ±∞.
func CheckLearningRate(name string, lr float64) error {
	if lr <= 0 || math.IsInf(lr, 0) || math.IsNaN(lr) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", name, lr)
	}
	return nil
}

// CheckNonNegative returns an error if x is negative, NaN or ±∞.
func CheckNonNegative(name string, x float64) error {
	if x < 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return fmt.Errorf("%s is %f, must be nonnegative and finite", name, x)
	}
	return nil
}

// CheckFinite returns an error if x is NaN or ±∞.
func CheckFinite(name string, x float64) error {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return fmt.Errorf("%s is %f, must be finite", name, x)
	}
	return nil
}

// CheckPositiveInt returns an error if n is less than 1.
func CheckPositiveInt(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("%s is %d, must be at least 1", name, n)
	}
	return nil
}

// CheckNonNegativeInt returns an error if n is negative.
func CheckNonNegativeInt(name string, n int) error {
	if n < 0 {
		return fmt.Errorf("%s is %d, must be at least 0", name, n)
	}
	return nil
}

// CheckFraction returns an error if p is not within [0, 1).
func CheckFraction(name string, p float64) error {
	if math.IsNaN(p) {
		return fmt.Errorf("%s is %e, cannot be NaN", name, p)
	}
	if p < 0 {
		return fmt.Errorf("%s is %e, cannot be negative", name, p)
	}
	if p >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", name, p)
	}
	return nil
}

// CheckBeta returns an error if an Adam decay rate is not within [0, 1).
func CheckBeta(name string, beta float64) error {
	if beta < 0 || beta >= 1 || math.IsNaN(beta) {
		return fmt.Errorf("%s is %f, must be within [0, 1)", name, beta)
	}
	return nil
}

// Length is the named length of a slice.
type Length struct {
	Name string
	N    int
}

// CheckSameLength returns an error for the first of the given lengths that
// differs from want. It is used to verify that samples, labels and protected
// attributes are aligned.
func CheckSameLength(want int, lengths ...Length) error {
	for _, l := range lengths {
		if l.N != want {
			return fmt.Errorf("%s has %d entries, want %d", l.Name, l.N, want)
		}
	}
	return nil
}

// CheckBinary returns an error if any value of xs is neither 0 nor 1.
func CheckBinary(name string, xs []float64) error {
	for i, x := range xs {
		if x != 0 && x != 1 {
			return fmt.Errorf("%s[%d] is %f, must be 0 or 1", name, i, x)
		}
	}
	return nil
}

// CheckIndices returns an error if any index is outside [0, dim) or repeated.
func CheckIndices(name string, indices []int, dim int) error {
	seen := make(map[int]bool, len(indices))
	for _, c := range indices {
		if c < 0 || c >= dim {
			return fmt.Errorf("%s contains %d, must be within [0, %d)", name, c, dim)
		}
		if seen[c] {
			return fmt.Errorf("%s contains %d more than once", name, c)
		}
		seen[c] = true
	}
	if len(indices) == dim && dim > 0 {
		log.Warningf("%s covers every feature: the perturbation key will stay at zero", name)
	}
	return nil
}

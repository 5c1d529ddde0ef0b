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

package dataset

import (
	"github.com/cfattack/cfattack/checks"
	"github.com/cfattack/cfattack/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SyntheticOptions contains the options of a synthetic dataset.
type SyntheticOptions struct {
	Rows int // Number of rows. Defaults to 500.
	Dim  int // Number of features, the categorical one included. Defaults to 6.
	// Whether feature 0 is a binary categorical feature.
	Categorical bool
	// Shift of the protected group along the decision direction. A positive
	// value makes protected rows less likely to be labelled positive.
	// Defaults to 1.
	Disparity    float64
	TestFraction float64 // Defaults to 0.2.
	Seed         int64
}

// Synthetic generates a linearly separable-ish dataset where protected rows
// are shifted away from the positive class.
func Synthetic(opt SyntheticOptions) (*Dataset, error) {
	if opt.Rows == 0 {
		opt.Rows = 500
	}
	if opt.Dim == 0 {
		opt.Dim = 6
	}
	if opt.Disparity == 0 {
		opt.Disparity = 1
	}
	if opt.TestFraction == 0 {
		opt.TestFraction = 0.2
	}
	if err := checks.CheckPositiveInt("Rows", opt.Rows); err != nil {
		return nil, err
	}
	if err := checks.CheckPositiveInt("Dim", opt.Dim); err != nil {
		return nil, err
	}
	r := rand.New(opt.Seed)

	w := make([]float64, opt.Dim)
	for j := range w {
		w[j] = r.Uniform(-1, 1)
	}
	norm := floats.Norm(w, 2)
	x := mat.NewDense(opt.Rows, opt.Dim, nil)
	y := make([]float64, opt.Rows)
	protected := make([]float64, opt.Rows)
	for i := 0; i < opt.Rows; i++ {
		row := x.RawRowView(i)
		if r.Boolean(0.5) {
			protected[i] = 1
		}
		for j := range row {
			row[j] = r.Normal() - protected[i]*opt.Disparity*w[j]/norm
		}
		if opt.Categorical {
			row[0] = 0
			if r.Boolean(0.5) {
				row[0] = 1
			}
		}
		if floats.Dot(row, w)+0.3*r.Normal() > 0 {
			y[i] = 1
		}
	}
	var categorical []int
	if opt.Categorical {
		categorical = []int{0}
	}
	return Split(x, y, protected, categorical, opt.TestFraction, r)
}

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
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Scaler removes the mean of every feature and divides by its population
// standard deviation. Features with zero deviation are only centered.
type Scaler struct {
	Mean, Std []float64
}

// FitScaler estimates the per-feature mean and standard deviation of x.
func FitScaler(x mat.Matrix) *Scaler {
	r, c := x.Dims()
	s := &Scaler{Mean: make([]float64, c), Std: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(col, nil)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform returns the standardized copy of x.
func (s *Scaler) Transform(x mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(x)
	out.Apply(func(_, j int, v float64) float64 { return (v - s.Mean[j]) / s.Std[j] }, out)
	return out
}

// Standardize returns a copy of ds with both splits standardized using the
// statistics of the training split.
func Standardize(ds *Dataset) *Dataset {
	s := FitScaler(ds.TrainX)
	out := *ds
	out.TrainX = s.Transform(ds.TrainX)
	out.TestX = s.Transform(ds.TestX)
	return &out
}

// madScale turns a median absolute deviation into a consistent estimator of
// the standard deviation of normally distributed data.
var madScale = 1 / distuv.UnitNormal.Quantile(0.75)

// MAD returns the normal-scaled median absolute deviation of every column of
// x. Columns with zero deviation get 1, so the result can be used as a
// divisor.
func MAD(x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mad, err := stats.MedianAbsoluteDeviationPopulation(col)
		if err != nil || mad == 0 || math.IsNaN(mad) {
			out[j] = 1
			continue
		}
		out[j] = mad * madScale
	}
	return out
}

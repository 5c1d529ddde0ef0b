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

package cf

import (
	"github.com/cfattack/cfattack/autodiff"
	"gonum.org/v1/gonum/mat"
)

// scaledAbs returns |a - b| with column j divided by mad[j].
func scaledAbs(a, b *autodiff.Var, mad []float64) *autodiff.Var {
	diff := autodiff.Abs(autodiff.Sub(a, b))
	if mad == nil {
		return diff
	}
	r, c := diff.Dims()
	if len(mad) != c {
		panic(mat.ErrShape)
	}
	w := mat.NewDense(r, c, nil)
	w.Apply(func(_, j int, _ float64) float64 { return 1 / mad[j] }, w)
	return autodiff.Mul(diff, a.Graph().Const(w))
}

// manhattan returns the per-row MAD-scaled L1 distance.
func manhattan(a, b *autodiff.Var, mad []float64) *autodiff.Var {
	return autodiff.SumCols(scaledAbs(a, b, mad))
}

// meanAbs returns the per-row mean of the MAD-scaled absolute differences.
func meanAbs(a, b *autodiff.Var, mad []float64) *autodiff.Var {
	_, c := a.Dims()
	return autodiff.Scale(autodiff.SumCols(scaledAbs(a, b, mad)), 1/float64(c))
}

// elasticNet returns the per-row beta·L1 + L2² distance.
func elasticNet(a, b *autodiff.Var, beta float64) *autodiff.Var {
	diff := autodiff.Sub(a, b)
	l1 := autodiff.SumCols(autodiff.Abs(diff))
	l2 := autodiff.SumCols(autodiff.Square(diff))
	return autodiff.Add(autodiff.Scale(l1, beta), l2)
}

// squaredGap returns Σ (p - target)² over the n×1 predictions p.
func squaredGap(p *autodiff.Var, target float64) *autodiff.Var {
	return autodiff.Sum(autodiff.Square(autodiff.AddScalar(p, -target)))
}

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

package nn

import (
	"github.com/cfattack/cfattack/autodiff"
	"gonum.org/v1/gonum/mat"
)

// logClamp bounds log terms of the cross-entropy from below so that saturated
// predictions give a finite loss. Gradients still flow through clamped terms,
// where autodiff.Recip bounds them.
const logClamp = -100

// BinaryCrossEntropy returns the mean binary cross-entropy between the n×1
// probabilities pred and the 0/1 targets.
func BinaryCrossEntropy(pred *autodiff.Var, targets []float64) *autodiff.Var {
	g := pred.Graph()
	y := g.Const(mat.NewDense(len(targets), 1, append([]float64(nil), targets...)))
	oneMinusY := autodiff.AddScalar(autodiff.Neg(y), 1)
	logP := autodiff.ClampMinThrough(autodiff.Log(pred), logClamp)
	log1mP := autodiff.ClampMinThrough(autodiff.Log(autodiff.AddScalar(autodiff.Neg(pred), 1)), logClamp)
	ll := autodiff.Add(autodiff.Mul(y, logP), autodiff.Mul(oneMinusY, log1mP))
	return autodiff.Neg(autodiff.Mean(ll))
}

// Ones returns n ones, the all-positive target.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Accuracy returns the fraction of predictions that match labels after
// thresholding at 0.5.
func Accuracy(preds, labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var correct int
	for i, p := range preds {
		var y float64
		if p >= 0.5 {
			y = 1
		}
		if y == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

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
	"github.com/cfattack/cfattack/nn"
)

// Wachter finds counterfactuals minimizing λ·(f(x') - t)² + Σ|x - x'|/mad,
// where f is the positive-class probability.
type Wachter struct {
	cfg Config
}

// Name returns "wachter".
func (w *Wachter) Name() string { return "wachter" }

// Distance returns the MAD-scaled L1 distance of every row.
func (w *Wachter) Distance(a, b *autodiff.Var, mad []float64) *autodiff.Var {
	return manhattan(a, b, mad)
}

// Objective implements Oracle.
func (w *Wachter) Objective(m *nn.Model, cf, ref *autodiff.Var, lambda, target float64, mad []float64) *autodiff.Var {
	pred := autodiff.Scale(squaredGap(m.Forward(cf), target), lambda)
	return autodiff.Add(pred, autodiff.Sum(w.Distance(ref, cf, mad)))
}

// Generate implements Oracle.
func (w *Wachter) Generate(req Request) (Result, error) {
	return generate(w, w.cfg, req)
}
